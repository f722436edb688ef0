package middleware

import (
	"pawfeed/internal/identity"
	"pawfeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Locals key carrying the viewer id.
const ViewerLocal = "userID"

// AuthRequired enforces a valid bearer token and stores the viewer id in
// c.Locals("userID").
func AuthRequired(p *identity.Provider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok, err := identity.FromHeader(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization header required"))
		}

		viewer, err := p.Resolve(token)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}

		setViewer(c, viewer)
		return c.Next()
	}
}

// OptionalAuth resolves the viewer when a token is present and lets anonymous
// requests through. A token that is present but invalid is still rejected.
func OptionalAuth(p *identity.Provider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok, err := identity.FromHeader(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}
		if !ok {
			return c.Next()
		}

		viewer, err := p.Resolve(token)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}

		setViewer(c, viewer)
		return c.Next()
	}
}

// Viewer returns the resolved viewer id, or identity.Anonymous.
func Viewer(c *fiber.Ctx) string {
	if v, ok := c.Locals(ViewerLocal).(string); ok {
		return v
	}
	return identity.Anonymous
}

func setViewer(c *fiber.Ctx, viewer string) {
	c.Locals(ViewerLocal, viewer)
	c.SetUserContext(WithUserID(c.UserContext(), viewer))
}
