package server

import (
	"pawfeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ProfileResponse wraps a profile with its post index.
type ProfileResponse struct {
	Status  string          `json:"status"`
	Profile *models.Profile `json:"profile"`
}

// GetUserPosts handles GET /api/users/:id/posts
// @Summary A profile's posts, newest first
// @Tags users
// @Produce json
// @Param id path string true "Profile ID"
// @Success 200 {object} PostsResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/posts [get]
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "user ID")
	if err != nil {
		return nil
	}

	posts, err := s.feedService.ByAuthor(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(PostsResponse{Status: "ok", Posts: posts})
}

// GetUserProfile handles GET /api/users/:id
// @Summary Get a profile
// @Tags users
// @Produce json
// @Param id path string true "Profile ID"
// @Success 200 {object} ProfileResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "user ID")
	if err != nil {
		return nil
	}

	profile, err := s.feedService.Profile(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(ProfileResponse{Status: "ok", Profile: profile})
}
