// Package testutil provides shared test doubles and fixtures.
package testutil

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sync"

	"pawfeed/internal/blob"
	"pawfeed/internal/models"

	"github.com/google/uuid"
)

// MemoryBlobStore is an in-memory blob.Store.
type MemoryBlobStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	released   []string
	PutErr     error
	ReleaseErr error
}

// NewMemoryBlobStore creates an empty MemoryBlobStore.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{objects: make(map[string][]byte)}
}

// Put stores the content under a fresh handle.
func (s *MemoryBlobStore) Put(_ context.Context, in blob.Upload) (*blob.Object, error) {
	if s.PutErr != nil {
		return nil, s.PutErr
	}
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("Image is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	handle := uuid.NewString()
	s.objects[handle] = in.Content
	return &blob.Object{Handle: handle, URL: "/media/i/" + handle + "/master.jpg"}, nil
}

// Release drops the handle and records the call.
func (s *MemoryBlobStore) Release(_ context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = append(s.released, handle)
	if s.ReleaseErr != nil {
		return s.ReleaseErr
	}
	delete(s.objects, handle)
	return nil
}

// Has reports whether handle is still stored.
func (s *MemoryBlobStore) Has(handle string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[handle]
	return ok
}

// Released returns the handles passed to Release, in call order.
func (s *MemoryBlobStore) Released() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.released...)
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t interface {
	Helper()
	Fatalf(string, ...any)
}, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
