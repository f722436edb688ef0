package blob

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"pawfeed/internal/config"
	"pawfeed/internal/models"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultDir         = "/tmp/pawfeed/uploads"
	DefaultPublicBase  = "/media/i"
	DefaultMaxUploadMB = 10
	MasterMaxSize      = 2048
	JPEGQuality        = 82
	WebPQuality        = 70
	MasterJPEG         = "master.jpg"
	MasterWebP         = "master.webp"
)

const (
	maxHandleLength = 128
	bytesPerMB      = 1024 * 1024
)

// Landscape, square and portrait.
var allowedRatios = []float64{1.91, 1.0, 0.8}

// LocalStore writes normalised JPEG and WebP masters under dir/<handle>/.
type LocalStore struct {
	dir        string
	publicBase string
	maxBytes   int64
}

// NewLocalStore builds a LocalStore from cfg; zero values fall back to defaults.
func NewLocalStore(cfg *config.Config) *LocalStore {
	s := &LocalStore{
		dir:        DefaultDir,
		publicBase: DefaultPublicBase,
		maxBytes:   DefaultMaxUploadMB * bytesPerMB,
	}
	if cfg != nil {
		if cfg.BlobDir != "" {
			s.dir = cfg.BlobDir
		}
		if cfg.BlobPublicBase != "" {
			s.publicBase = strings.TrimRight(cfg.BlobPublicBase, "/")
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			s.maxBytes = int64(cfg.ImageMaxUploadSizeMB) * bytesPerMB
		}
	}
	return s
}

// Put validates, crops to the nearest allowed aspect ratio, bounds the size
// and writes both encodings.
func (s *LocalStore) Put(_ context.Context, in Upload) (*Object, error) {
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("Image is required")
	}
	if int64(len(in.Content)) > s.maxBytes {
		return nil, models.NewValidationError(fmt.Sprintf("Image too large (max %dMB)", s.maxBytes/bytesPerMB))
	}
	if !isAllowedImageMIME(http.DetectContentType(in.Content)) {
		return nil, models.NewValidationError("Invalid image type")
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, formatToMIME(format)) {
		return nil, models.NewValidationError("Image content type mismatch")
	}

	b := decoded.Bounds()
	master := resizeToFit(cropToRatio(decoded, b.Dx(), b.Dy()), MasterMaxSize, MasterMaxSize)

	jpg, err := encodeJPEG(master)
	if err != nil {
		return nil, models.NewUpstreamError("blob encode", err)
	}
	wp, err := encodeWebP(master)
	if err != nil {
		return nil, models.NewUpstreamError("blob encode", err)
	}

	handle := newHandle(in.OwnerID, jpg)
	dir := filepath.Join(s.dir, handle)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, models.NewUpstreamError("blob write", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MasterJPEG), jpg, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return nil, models.NewUpstreamError("blob write", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MasterWebP), wp, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return nil, models.NewUpstreamError("blob write", err)
	}

	mb := master.Bounds()
	return &Object{
		Handle: handle,
		URL:    s.publicBase + "/" + handle + "/" + MasterJPEG,
		Width:  mb.Dx(),
		Height: mb.Dy(),
	}, nil
}

// Release removes every file stored under handle.
func (s *LocalStore) Release(_ context.Context, handle string) error {
	if !IsValidHandle(handle) {
		return models.NewValidationError("Invalid image handle")
	}
	if err := os.RemoveAll(filepath.Join(s.dir, handle)); err != nil {
		return models.NewUpstreamError("blob release", err)
	}
	return nil
}

// Resolve returns the on-disk path of one stored encoding.
func (s *LocalStore) Resolve(handle, file string) (string, error) {
	if !IsValidHandle(handle) || (file != MasterJPEG && file != MasterWebP) {
		return "", models.NewNotFoundError("Image", handle)
	}
	p := filepath.Join(s.dir, handle, file)
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", models.NewNotFoundError("Image", handle)
		}
		return "", models.NewUpstreamError("blob stat", err)
	}
	return p, nil
}

// IsValidHandle checks that handle is lowercase hex, which keeps it from
// escaping the upload directory.
func IsValidHandle(handle string) bool {
	if handle == "" || len(handle) > maxHandleLength {
		return false
	}
	for _, c := range handle {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// newHandle is unique per upload so two posts of the same picture never
// share files.
func newHandle(ownerID string, content []byte) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%s:%s:", ownerID, uuid.NewString())
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

func cropToRatio(src image.Image, w, h int) image.Image {
	if w <= 0 || h <= 0 {
		return src
	}
	ratio := float64(w) / float64(h)
	best := allowedRatios[0]
	for _, r := range allowedRatios[1:] {
		if abs(ratio-r) < abs(ratio-best) {
			best = r
		}
	}

	var x, y, cw, ch int
	if ratio > best {
		ch = h
		cw = max(int(float64(h)*best), 1)
		x = (w - cw) / 2
	} else {
		cw = w
		ch = max(int(float64(w)/best), 1)
		y = (h - ch) / 2
	}

	origin := src.Bounds().Min
	dst := image.NewRGBA(image.Rect(0, 0, cw, ch))
	draw.Draw(dst, dst.Bounds(), src, image.Point{X: origin.X + x, Y: origin.Y + y}, draw.Src)
	return dst
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: WebPQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(mediaType)
}

func isMatchingContentType(provided, detected string) bool {
	if provided == "image/jpg" {
		provided = "image/jpeg"
	}
	return provided == detected
}

func formatToMIME(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
