package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/facecompare/internal/embedding"
	"github.com/example/facecompare/internal/usecase"
)

var compareCmd = &cobra.Command{
	Use:   "compare <image1> <image2>",
	Short: "Compare the faces in two local image files",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		detector, closeDetector, err := newDetector(cmd.Context(), cfg.Extractor, logger)
		if err != nil {
			return fmt.Errorf("init %s extractor: %w", cfg.Extractor.Backend, err)
		}
		defer closeDetector()

		uc := usecase.NewComparisonUseCase(
			embedding.NewService(detector, logger),
			nil,
			nil,
			logger,
			usecase.WithTempDir(cfg.TempDir),
			usecase.WithTimeout(cfg.RequestTimeout),
		)
		_, result := uc.CompareFaces(cmd.Context(), usecase.FileUpload(args[0]), usecase.FileUpload(args[1]))

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Payload())
	},
}
