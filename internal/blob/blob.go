// Package blob stores post images and hands back a public URL plus a
// deletable handle.
package blob

import (
	"context"
)

// Upload is the raw image submitted with a new post.
type Upload struct {
	OwnerID     string
	Filename    string
	ContentType string
	Content     []byte
}

// Object is a stored image.
type Object struct {
	Handle string
	URL    string
	Width  int
	Height int
}

// Store persists images. Put returns models.AppError validation errors for
// unusable input; Release must be safe to call for a handle that is already gone.
type Store interface {
	Put(ctx context.Context, in Upload) (*Object, error)
	Release(ctx context.Context, handle string) error
}
