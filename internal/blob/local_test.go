package blob

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pawfeed/internal/config"
	"pawfeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tinyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	buf := bytes.NewBuffer(nil)
	require.NoError(t, png.Encode(buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func newTestStore(t *testing.T) (*LocalStore, string) {
	t.Helper()
	dir := t.TempDir()
	return NewLocalStore(&config.Config{BlobDir: dir, BlobPublicBase: "/media/i/", ImageMaxUploadSizeMB: 1}), dir
}

func TestLocalStore_PutWritesBothEncodings(t *testing.T) {
	t.Parallel()
	s, dir := newTestStore(t)

	obj, err := s.Put(context.Background(), Upload{
		OwnerID:     "owner-1",
		ContentType: "image/png",
		Content:     tinyPNG(t, 100, 110),
	})
	require.NoError(t, err)

	assert.True(t, IsValidHandle(obj.Handle))
	assert.Equal(t, "/media/i/"+obj.Handle+"/master.jpg", obj.URL)
	// 100x110 is nearest to square and is center-cropped.
	assert.Equal(t, 100, obj.Width)
	assert.Equal(t, 100, obj.Height)

	for _, f := range []string{MasterJPEG, MasterWebP} {
		_, err := os.Stat(filepath.Join(dir, obj.Handle, f))
		assert.NoError(t, err, f)
	}
}

func TestLocalStore_SameImageGetsDistinctHandles(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	content := tinyPNG(t, 10, 10)

	a, err := s.Put(context.Background(), Upload{OwnerID: "o", Content: content})
	require.NoError(t, err)
	b, err := s.Put(context.Background(), Upload{OwnerID: "o", Content: content})
	require.NoError(t, err)
	assert.NotEqual(t, a.Handle, b.Handle)
}

func TestLocalStore_PutRejectsBadInput(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)

	tests := []struct {
		name string
		in   Upload
	}{
		{"empty", Upload{}},
		{"not an image", Upload{Content: []byte("hello, world")}},
		{"too large", Upload{Content: make([]byte, 2*1024*1024)}},
		{"content type mismatch", Upload{ContentType: "image/jpeg", Content: tinyPNG(t, 4, 4)}},
		{"truncated png", Upload{Content: tinyPNG(t, 4, 4)[:20]}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Put(context.Background(), tt.in)
			require.Error(t, err)
			assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
		})
	}
}

func TestLocalStore_ReleaseAndResolve(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)

	obj, err := s.Put(context.Background(), Upload{Content: tinyPNG(t, 8, 8)})
	require.NoError(t, err)

	p, err := s.Resolve(obj.Handle, MasterWebP)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(p, MasterWebP))

	require.NoError(t, s.Release(context.Background(), obj.Handle))
	_, err = s.Resolve(obj.Handle, MasterJPEG)
	assert.True(t, models.IsNotFound(err))

	// Releasing twice is harmless.
	assert.NoError(t, s.Release(context.Background(), obj.Handle))
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)

	assert.Error(t, s.Release(context.Background(), "../etc"))
	_, err := s.Resolve("../etc", MasterJPEG)
	assert.True(t, models.IsNotFound(err))
	_, err = s.Resolve("abcdef", "../../passwd")
	assert.True(t, models.IsNotFound(err))
}
