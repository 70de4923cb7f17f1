// Package embedding turns a staged image into a single normalized face
// embedding, enforcing the one-face-per-image rule.
package embedding

import (
	"context"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/example/facecompare/internal/imageprocessor"
	"github.com/example/facecompare/internal/similarity"
)

// Service wraps a Detector with the face-count policy.
type Service struct {
	detector imageprocessor.Detector
	logger   *zap.Logger
}

func NewService(detector imageprocessor.Detector, logger *zap.Logger) *Service {
	return &Service{detector: detector, logger: logger.Named("embedding")}
}

// Extract decodes the image at path and returns the unit-length embedding of
// its only face. Every failure is an *Error.
func (s *Service) Extract(ctx context.Context, path string) (similarity.Vector, error) {
	img, err := imageprocessor.Load(path)
	if err != nil {
		s.logger.Debug("image decode failed", zap.String("path", path), zap.Error(err))
		return nil, &Error{Kind: KindDecode, Err: err}
	}

	faces, err := s.detect(ctx, img)
	if err != nil {
		s.logger.Error("face extraction error", zap.String("path", path), zap.Error(err))
		return nil, &Error{Kind: KindExtraction, Err: err}
	}

	switch n := len(faces); {
	case n == 0:
		s.logger.Debug("no face detected", zap.String("path", path))
		return nil, &Error{Kind: KindNoFace}
	case n > 1:
		s.logger.Debug("multiple faces detected", zap.String("path", path), zap.Int("faces", n))
		return nil, &Error{Kind: KindMultipleFaces, Count: n}
	}

	raw := faces[0].Embedding
	if len(raw) == 0 {
		return nil, &Error{Kind: KindEmbeddingMissing}
	}
	vec, err := similarity.Normalize(similarity.FromFloat32(raw))
	if err != nil {
		return nil, &Error{Kind: KindEmbeddingMissing, Err: err}
	}
	return vec, nil
}

// detect shields the request path from detector panics, which cgo-backed
// models are prone to on malformed input.
func (s *Service) detect(ctx context.Context, img image.Image) (faces []imageprocessor.DetectedFace, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detector panic: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.detector.Detect(ctx, img)
}
