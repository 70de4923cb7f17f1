package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/facecompare/internal/config"
	"github.com/example/facecompare/internal/grpcclient"
	"github.com/example/facecompare/internal/imageprocessor"
)

// newDetector builds the configured backend. The returned func releases it.
func newDetector(ctx context.Context, cfg config.ExtractorConfig, logger *zap.Logger) (imageprocessor.Detector, func(), error) {
	switch cfg.Backend {
	case config.BackendDlib:
		return newDlibDetector(cfg, logger)
	case config.BackendGRPC:
		detector, conn, err := grpcclient.DialExtractor(ctx, cfg.Addr, logger)
		if err != nil {
			return nil, nil, err
		}
		return detector, func() { conn.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown extractor backend %q", cfg.Backend)
	}
}
