package imageprocessor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

var (
	red  = color.NRGBA{R: 255, A: 255}
	blue = color.NRGBA{B: 255, A: 255}
)

// twoPixel is a 2x1 image: red on the left, blue on the right.
func twoPixel() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, red)
	img.SetNRGBA(1, 0, blue)
	return img
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadPNG(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, twoPixel()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	img, err := Load(writeFile(t, "face.png", buf.Bytes()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 1 {
		t.Fatalf("unexpected bounds: %v", img.Bounds())
	}
}

func TestLoadJPEGWithoutExif(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 4)), nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	img, err := Load(writeFile(t, "face.jpg", buf.Bytes()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 4 {
		t.Fatalf("unexpected bounds: %v", img.Bounds())
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty.jpg":   nil,
		"garbage.jpg": []byte("definitely not an image"),
	} {
		if _, err := Load(writeFile(t, name, data)); err == nil {
			t.Errorf("%s: expected decode error", name)
		}
	}
}

// pngHeader is a PNG whose IHDR declares width x height RGBA pixels but which
// carries no pixel data.
func pngHeader(width, height uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	chunk := func(kind string, data []byte) {
		_ = binary.Write(&buf, binary.BigEndian, uint32(len(data)))
		crc := crc32.NewIEEE()
		crc.Write([]byte(kind))
		crc.Write(data)
		buf.WriteString(kind)
		buf.Write(data)
		_ = binary.Write(&buf, binary.BigEndian, crc.Sum32())
	}
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], width)
	binary.BigEndian.PutUint32(ihdr[4:], height)
	ihdr[8], ihdr[9] = 8, 6 // 8-bit RGBA
	chunk("IHDR", ihdr)
	chunk("IDAT", nil)
	chunk("IEND", nil)
	return buf.Bytes()
}

func TestLoadRejectsOversizedDimensions(t *testing.T) {
	_, err := Load(writeFile(t, "huge.png", pngHeader(50000, 50000)))
	if !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("expected ErrImageTooLarge, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.jpg")); err == nil {
		t.Fatal("expected error")
	}
}

func TestReorient(t *testing.T) {
	cases := []struct {
		orientation int
		width       int
		height      int
		first       color.NRGBA
	}{
		{1, 2, 1, red},
		{2, 2, 1, blue},
		{3, 2, 1, blue},
		{4, 2, 1, red},
		{5, 1, 2, red},
		{6, 1, 2, red},
		{7, 1, 2, blue},
		{8, 1, 2, blue},
	}
	for _, tc := range cases {
		out := Reorient(twoPixel(), tc.orientation)
		b := out.Bounds()
		if b.Dx() != tc.width || b.Dy() != tc.height {
			t.Errorf("orientation %d: bounds %v", tc.orientation, b)
			continue
		}
		got := color.NRGBAModel.Convert(out.At(b.Min.X, b.Min.Y)).(color.NRGBA)
		if got != tc.first {
			t.Errorf("orientation %d: first pixel %v, want %v", tc.orientation, got, tc.first)
		}
	}
}

func TestEncodeJPEGRoundTrip(t *testing.T) {
	data, err := EncodeJPEG(image.NewGray(image.Rect(0, 0, 16, 16)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.Width != 16 || cfg.Height != 16 {
		t.Fatalf("unexpected size %dx%d", cfg.Width, cfg.Height)
	}
}
