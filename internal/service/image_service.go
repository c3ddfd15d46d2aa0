package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"promptlime/internal/config"
	"promptlime/internal/middleware"
	"promptlime/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultImageUploadDir       = "/tmp/promptlime/uploads"
	DefaultImageMaxUploadSizeMB = 10
	MasterMaxSize               = 2048
	CardMaxSize                 = 640
	JPEGQuality                 = 82
	WebPQuality                 = 70

	// MediaURLPrefix is where the upload directory is served.
	MediaURLPrefix = "/media"
)

type UploadImageInput struct {
	Filename    string
	ContentType string
	Content     []byte
}

// PromptImage describes a stored prompt preview. URLs are relative to the
// API host.
type PromptImage struct {
	Hash    string `json:"hash"`
	URL     string `json:"url"`
	WebPURL string `json:"webp_url"`
	CardURL string `json:"card_url"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Bytes   int64  `json:"bytes"`
}

// ImageService stores prompt preview images as JPEG and WebP renditions on
// local disk, addressed by content hash.
type ImageService struct {
	uploadDir          string
	maxUploadSizeBytes int64
}

func NewImageService(cfg *config.Config) *ImageService {
	uploadDir := DefaultImageUploadDir
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB

	if cfg != nil {
		if cfg.ImageUploadDir != "" {
			uploadDir = cfg.ImageUploadDir
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
	}

	return &ImageService{
		uploadDir:          uploadDir,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// UploadDir is the directory served under MediaURLPrefix.
func (s *ImageService) UploadDir() string {
	return s.uploadDir
}

// Upload validates, normalizes and stores an image. Uploading the same
// content twice returns the existing renditions.
func (s *ImageService) Upload(ctx context.Context, in UploadImageInput) (*PromptImage, error) {
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detectedType) {
		return nil, models.NewValidationError("Invalid image type")
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	if !isSupportedDecodedFormat(format) {
		return nil, models.NewValidationError("Unsupported image format")
	}

	sourceMimeType := decodedFormatToMime(format)
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, sourceMimeType) {
		return nil, models.NewValidationError("Image content type mismatch")
	}

	master := resizeToFit(decoded, MasterMaxSize, MasterMaxSize)
	card := resizeToFit(master, CardMaxSize, CardMaxSize)

	masterJPG, err := encodeJPEG(master, JPEGQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	hash := contentHash(masterJPG)
	mb := master.Bounds()
	result := &PromptImage{
		Hash:    hash,
		URL:     s.mediaURL(hash, "master.jpg"),
		WebPURL: s.mediaURL(hash, "master.webp"),
		CardURL: s.mediaURL(hash, "card.webp"),
		Width:   mb.Dx(),
		Height:  mb.Dy(),
		Bytes:   int64(len(masterJPG)),
	}

	if _, err := os.Stat(filepath.Join(s.uploadDir, hash, "card.webp")); err == nil {
		return result, nil
	}

	masterWebP, err := encodeWebP(master, WebPQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	cardWebP, err := encodeWebP(card, WebPQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{"master.jpg", masterJPG},
		{"master.webp", masterWebP},
		{"card.webp", cardWebP},
	}
	written := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(s.uploadDir, hash, f.name)
		if err := writeBytesToFile(path, f.data); err != nil {
			cleanupImageFiles(written)
			return nil, models.NewInternalError(err)
		}
		written = append(written, path)
	}

	middleware.Logger.InfoContext(ctx, "prompt image stored",
		slog.String("hash", hash),
		slog.String("filename", in.Filename),
		slog.Int("width", result.Width),
		slog.Int("height", result.Height))
	return result, nil
}

func (s *ImageService) mediaURL(hash, name string) string {
	return fmt.Sprintf("%s/%s/%s", MediaURLPrefix, hash, name)
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
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
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
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

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func cleanupImageFiles(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
