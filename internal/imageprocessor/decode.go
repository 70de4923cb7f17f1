package imageprocessor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 95

// MaxPixels bounds width*height of a decodable image. Headers are checked
// before pixel buffers are allocated.
const MaxPixels = 50_000_000

// ErrImageTooLarge is returned by Load for images above MaxPixels.
var ErrImageTooLarge = errors.New("image dimensions exceed limit")

// Load decodes the image at path. JPEG images are rotated according to
// their EXIF orientation.
func Load(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("decode %s: %dx%d: %w", path, cfg.Width, cfg.Height, ErrImageTooLarge)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if format == "jpeg" {
		img = Reorient(img, exifOrientation(data))
	}
	return img, nil
}

// EncodeJPEG serializes img for detectors that only accept JPEG input.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
