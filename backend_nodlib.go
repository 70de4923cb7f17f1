//go:build nodlib

package main

import (
	"errors"

	"go.uber.org/zap"

	"github.com/example/facecompare/internal/config"
	"github.com/example/facecompare/internal/imageprocessor"
)

func newDlibDetector(config.ExtractorConfig, *zap.Logger) (imageprocessor.Detector, func(), error) {
	return nil, nil, errors.New("built without dlib support (nodlib tag); use the grpc extractor backend")
}
