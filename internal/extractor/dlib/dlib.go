//go:build !nodlib

// Package dlib runs face detection and 128-d descriptor extraction in
// process through dlib's ResNet model.
package dlib

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/Kagami/go-face"

	"github.com/example/facecompare/internal/imageprocessor"
)

// Recognizer adapts go-face to imageprocessor.Detector. dlib models are not
// safe for concurrent use, so calls are serialized.
type Recognizer struct {
	mu     sync.Mutex
	rec    *face.Recognizer
	useCNN bool
}

// New loads the shape predictor, ResNet and (optionally) CNN detector models
// from modelsDir.
func New(modelsDir string, useCNN bool) (*Recognizer, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("load dlib models from %s: %w", modelsDir, err)
	}
	return &Recognizer{rec: rec, useCNN: useCNN}, nil
}

// Detect re-encodes img as JPEG, which is the only input dlib accepts here.
func (r *Recognizer) Detect(ctx context.Context, img image.Image) ([]imageprocessor.DetectedFace, error) {
	payload, err := imageprocessor.EncodeJPEG(img)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var faces []face.Face
	if r.useCNN {
		faces, err = r.rec.RecognizeCNN(payload)
	} else {
		faces, err = r.rec.Recognize(payload)
	}
	if err != nil {
		return nil, fmt.Errorf("dlib recognize: %w", err)
	}

	out := make([]imageprocessor.DetectedFace, len(faces))
	for i, f := range faces {
		descriptor := f.Descriptor
		out[i] = imageprocessor.DetectedFace{
			Box:       f.Rectangle,
			Embedding: descriptor[:],
		}
	}
	return out, nil
}

func (r *Recognizer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rec.Close()
}
