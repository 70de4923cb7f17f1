//go:build !nodlib

package main

import (
	"go.uber.org/zap"

	"github.com/example/facecompare/internal/config"
	"github.com/example/facecompare/internal/extractor/dlib"
	"github.com/example/facecompare/internal/imageprocessor"
)

func newDlibDetector(cfg config.ExtractorConfig, logger *zap.Logger) (imageprocessor.Detector, func(), error) {
	rec, err := dlib.New(cfg.ModelsDir, cfg.UseCNN)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("dlib models loaded", zap.String("models_dir", cfg.ModelsDir), zap.Bool("cnn", cfg.UseCNN))
	return rec, rec.Close, nil
}
