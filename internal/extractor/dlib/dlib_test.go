//go:build !nodlib

package dlib

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"
)

// These tests need the dlib model files; point DLIB_MODELS_DIR at a directory
// holding shape_predictor_5_face_landmarks.dat and
// dlib_face_recognition_resnet_model_v1.dat to run them.
func modelsDir(t *testing.T) string {
	t.Helper()
	dir := os.Getenv("DLIB_MODELS_DIR")
	if dir == "" {
		t.Skip("DLIB_MODELS_DIR not set")
	}
	if _, err := os.Stat(filepath.Join(dir, "dlib_face_recognition_resnet_model_v1.dat")); err != nil {
		t.Skipf("dlib models missing: %v", err)
	}
	return dir
}

func TestNewMissingModels(t *testing.T) {
	if _, err := New(t.TempDir(), false); err == nil {
		t.Fatal("expected error for empty models directory")
	}
}

func TestDetectBlankImageHasNoFaces(t *testing.T) {
	rec, err := New(modelsDir(t), false)
	if err != nil {
		t.Fatalf("load models: %v", err)
	}
	defer rec.Close()

	faces, err := rec.Detect(context.Background(), image.NewGray(image.Rect(0, 0, 64, 64)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(faces) != 0 {
		t.Fatalf("expected no faces, got %d", len(faces))
	}
}

func TestDetectHonoursCancelledContext(t *testing.T) {
	rec, err := New(modelsDir(t), false)
	if err != nil {
		t.Fatalf("load models: %v", err)
	}
	defer rec.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := rec.Detect(ctx, image.NewGray(image.Rect(0, 0, 8, 8))); err == nil {
		t.Fatal("expected context error")
	}
}
