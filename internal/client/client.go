// Package client is the HTTP transport the client-side projection uses to
// talk to the pawfeed API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pawfeed/internal/models"
)

// APIError is a failed call. It unwraps to a models.AppError carrying the
// same code the server used, so models.ErrorCode works on both sides.
type APIError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%d): %v", e.Message, e.Status, e.Err)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

func (e *APIError) Unwrap() error {
	return &models.AppError{Code: e.Code, Message: e.Message, Err: e.Err}
}

// Client calls the API as one viewer.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for baseURL authenticating with token. An empty token
// makes anonymous calls.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CommentCreated is the response of AddComment.
type CommentCreated struct {
	Comment  models.Comment   `json:"comment"`
	Comments []models.Comment `json:"comments"`
}

func (c *Client) Feed(ctx context.Context) ([]models.Post, error) {
	var out struct {
		Posts []models.Post `json:"posts"`
	}
	err := c.do(ctx, http.MethodGet, "/api/posts", nil, "", &out)
	return out.Posts, err
}

func (c *Client) Mine(ctx context.Context) ([]models.Post, error) {
	var out struct {
		Posts []models.Post `json:"posts"`
	}
	err := c.do(ctx, http.MethodGet, "/api/posts/mine", nil, "", &out)
	return out.Posts, err
}

func (c *Client) UserPosts(ctx context.Context, userID string) ([]models.Post, error) {
	var out struct {
		Posts []models.Post `json:"posts"`
	}
	err := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/posts", nil, "", &out)
	return out.Posts, err
}

func (c *Client) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	var out struct {
		Post *models.Post `json:"post"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/posts/"+url.PathEscape(postID), nil, "", &out); err != nil {
		return nil, err
	}
	return out.Post, nil
}

func (c *Client) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	var out struct {
		Profile *models.Profile `json:"profile"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID), nil, "", &out); err != nil {
		return nil, err
	}
	return out.Profile, nil
}

// CreatePost uploads image as a multipart form together with caption.
func (c *Client) CreatePost(ctx context.Context, caption, filename string, image []byte) (*models.Post, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if err := w.WriteField("caption", caption); err != nil {
		return nil, err
	}
	part, err := w.CreateFormFile("image", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(image); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	var out struct {
		Post *models.Post `json:"post"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/posts", body, w.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return out.Post, nil
}

func (c *Client) ToggleLike(ctx context.Context, postID string) (models.LikeAction, error) {
	var out struct {
		Action models.LikeAction `json:"action"`
	}
	err := c.do(ctx, http.MethodPost, "/api/posts/"+url.PathEscape(postID)+"/like", nil, "", &out)
	return out.Action, err
}

func (c *Client) AddComment(ctx context.Context, postID, text string) (*CommentCreated, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}
	var out CommentCreated
	if err := c.do(ctx, http.MethodPost, "/api/posts/"+url.PathEscape(postID)+"/comments",
		bytes.NewReader(payload), "application/json", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Comments(ctx context.Context, postID string) ([]models.Comment, error) {
	var out struct {
		Comments []models.Comment `json:"comments"`
	}
	err := c.do(ctx, http.MethodGet, "/api/posts/"+url.PathEscape(postID)+"/comments", nil, "", &out)
	return out.Comments, err
}

func (c *Client) DeletePost(ctx context.Context, postID string) error {
	return c.do(ctx, http.MethodDelete, "/api/posts/"+url.PathEscape(postID), nil, "", nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &APIError{Code: models.CodeInternal, Message: "invalid request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Code: models.CodeUpstream, Message: "network error", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Status: resp.StatusCode, Code: models.CodeUpstream, Message: "network error", Err: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var e models.ErrorResponse
		_ = json.Unmarshal(raw, &e)
		apiErr := &APIError{Status: resp.StatusCode, Code: e.Code, Message: e.Error}
		if apiErr.Code == "" {
			apiErr.Code = codeForStatus(resp.StatusCode)
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Status: resp.StatusCode, Code: models.CodeUpstream, Message: "invalid response", Err: err}
	}
	return nil
}

func codeForStatus(status int) string {
	switch {
	case status == http.StatusBadRequest:
		return models.CodeValidation
	case status == http.StatusUnauthorized:
		return models.CodeUnauthorized
	case status == http.StatusForbidden:
		return models.CodeForbidden
	case status == http.StatusNotFound:
		return models.CodeNotFound
	case status >= http.StatusInternalServerError:
		return models.CodeUpstream
	default:
		return models.CodeInternal
	}
}
