package server

import (
	"io"

	"pawfeed/internal/blob"
	"pawfeed/internal/middleware"
	"pawfeed/internal/models"
	"pawfeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

// PostResponse wraps a single post.
type PostResponse struct {
	Status string       `json:"status"`
	Post   *models.Post `json:"post"`
}

// PostsResponse wraps a post listing.
type PostsResponse struct {
	Status string        `json:"status"`
	Posts  []models.Post `json:"posts"`
}

// LikeResponse carries the outcome of a like toggle.
type LikeResponse struct {
	Status string            `json:"status"`
	Action models.LikeAction `json:"action"`
}

// CommentsResponse wraps a comment list.
type CommentsResponse struct {
	Status   string           `json:"status"`
	Comments []models.Comment `json:"comments"`
}

// CommentCreatedResponse carries the confirmed comment and the full list.
type CommentCreatedResponse struct {
	Status   string           `json:"status"`
	Comment  models.Comment   `json:"comment"`
	Comments []models.Comment `json:"comments"`
}

// MessageResponse is a status plus a human readable message.
type MessageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Param caption formData string false "Caption (max 2200 characters)"
// @Param image formData file true "Image"
// @Success 201 {object} PostResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return respondError(c, models.NewValidationError("Image is required"))
	}

	src, err := file.Open()
	if err != nil {
		return respondError(c, models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return respondError(c, models.NewValidationError("Unable to read uploaded file"))
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID: middleware.Viewer(c),
		Caption:  c.FormValue("caption"),
		Image: &blob.Upload{
			Filename:    file.Filename,
			ContentType: file.Header.Get("Content-Type"),
			Content:     content,
		},
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(PostResponse{Status: "ok", Post: post})
}

// GetPosts handles GET /api/posts
// @Summary Global feed, newest first
// @Tags posts
// @Produce json
// @Success 200 {object} PostsResponse
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	posts, err := s.feedService.Feed(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(PostsResponse{Status: "ok", Posts: posts})
}

// GetMyPosts handles GET /api/posts/mine
// @Summary The viewer's own posts
// @Tags posts
// @Produce json
// @Success 200 {object} PostsResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/mine [get]
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	posts, err := s.feedService.Mine(c.UserContext(), middleware.Viewer(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(PostsResponse{Status: "ok", Posts: posts})
}

// GetPost handles GET /api/posts/:id
// @Summary Get a post
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} PostResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "post ID")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(PostResponse{Status: "ok", Post: post})
}

// ToggleLike handles POST /api/posts/:id/like
// @Summary Like or unlike a post
// @Description Flips the viewer's like and reports the resulting state.
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} LikeResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "post ID")
	if err != nil {
		return nil
	}

	action, err := s.engine.ToggleLike(c.UserContext(), id, middleware.Viewer(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(LikeResponse{Status: "ok", Action: action})
}

// GetComments handles GET /api/posts/:id/comments
// @Summary List a post's comments in order
// @Tags comments
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} CommentsResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "post ID")
	if err != nil {
		return nil
	}

	comments, err := s.engine.GetComments(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(CommentsResponse{Status: "ok", Comments: comments})
}

// CreateComment handles POST /api/posts/:id/comments
// @Summary Comment on a post
// @Tags comments
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Success 201 {object} CommentCreatedResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "post ID")
	if err != nil {
		return nil
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	res, err := s.engine.AddComment(c.UserContext(), id, middleware.Viewer(c), req.Text)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(CommentCreatedResponse{
		Status:   "ok",
		Comment:  res.Comment,
		Comments: res.Comments,
	})
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete one of the viewer's posts
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "post ID")
	if err != nil {
		return nil
	}

	err = s.postService.DeletePost(c.UserContext(), service.DeletePostInput{
		RequesterID: middleware.Viewer(c),
		PostID:      id,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(MessageResponse{Status: "ok", Message: "Post deleted successfully"})
}
