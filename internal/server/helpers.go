package server

import (
	"errors"
	"log/slog"

	"pawfeed/internal/middleware"
	"pawfeed/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a uuid route parameter. On failure it writes a 400 JSON
// response and returns errResponseWritten.
func parseID(c *fiber.Ctx, param, label string) (string, error) {
	id := c.Params(param)
	if _, err := uuid.Parse(id); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+label+" format"))
		return "", errResponseWritten
	}
	return id, nil
}

// respondError writes err with the status its code maps to. Upstream and
// internal failures are logged with their cause; the body never carries it.
func respondError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()),
			slog.String("code", models.ErrorCode(err)),
			slog.String("error", err.Error()),
		)
	}
	return models.RespondWithError(c, status, err)
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge:
		return models.CodeValidation
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		return models.CodeNotFound
	case fiber.StatusUnauthorized:
		return models.CodeUnauthorized
	case fiber.StatusForbidden:
		return models.CodeForbidden
	default:
		return models.CodeInternal
	}
}
