package server

import (
	"pawfeed/internal/blob"
	"pawfeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ServeMedia handles GET /media/i/:handle/:file
func (s *Server) ServeMedia(c *fiber.Ctx) error {
	handle := c.Params("handle")
	file := c.Params("file")
	if !blob.IsValidHandle(handle) {
		return respondError(c, models.NewNotFoundError("Image", handle))
	}

	path, err := s.media.Resolve(handle, file)
	if err != nil {
		return respondError(c, models.NewNotFoundError("Image", handle))
	}

	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
	if err := c.SendFile(path); err != nil {
		return respondError(c, models.NewNotFoundError("Image", handle))
	}
	return nil
}
