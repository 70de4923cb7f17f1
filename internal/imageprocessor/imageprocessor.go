// Package imageprocessor defines the face detector boundary and the image
// handling shared by every detector backend.
package imageprocessor

import (
	"context"
	"image"
)

// DetectedFace is one face found by a Detector.
type DetectedFace struct {
	Box       image.Rectangle
	Embedding []float32
}

// Detector finds faces and computes their embeddings. Implementations must
// be safe for concurrent use.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]DetectedFace, error)
}
