package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/facecompare/internal/usecase"
)

// MaxUploadSize caps the whole multipart body of a comparison request.
const MaxUploadSize = 20 << 20

var imageFields = []string{"image1", "image2"}

// RegisterRoutes wires the HTTP handlers to the Gin router. historyAuth
// guards the history endpoints.
func RegisterRoutes(router *gin.Engine, uc *usecase.ComparisonUseCase, historyAuth gin.HandlerFunc) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/compare_faces/", compareFaces(uc))

	history := router.Group("/", historyAuth)
	history.GET("/results/:id", getResult(uc))
	history.GET("/metrics/summary", getMetricsSummary(uc))
}

func compareFaces(uc *usecase.ComparisonUseCase) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize)

		uploads := make([]usecase.Upload, 0, len(imageFields))
		var missing []string
		for _, field := range imageFields {
			header, err := c.FormFile(field)
			if err != nil {
				if isBodyTooLarge(err) {
					c.JSON(http.StatusRequestEntityTooLarge, gin.H{"detail": "request body too large"})
					return
				}
				missing = append(missing, field)
				continue
			}
			uploads = append(uploads, multipartUpload(header))
		}
		if len(missing) > 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": missingFieldErrors(missing)})
			return
		}

		requestID, result := uc.CompareFaces(c.Request.Context(), uploads[0], uploads[1])
		c.Header("X-Request-ID", requestID)
		c.JSON(http.StatusOK, result.Payload())
	}
}

func getResult(uc *usecase.ComparisonUseCase) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Param("id")

		log, err := uc.GetResult(c.Request.Context(), requestID)
		switch {
		case errors.Is(err, usecase.ErrHistoryDisabled):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		case errors.Is(err, usecase.ErrResultNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
			return
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load result"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"request_id":    log.RequestID,
			"match":         log.Matched,
			"failed":        log.Failed,
			"similarity":    log.Similarity,
			"message":       log.Message,
			"processing_ms": log.ProcessingMs,
			"image1_sha1":   log.Image1SHA1,
			"image2_sha1":   log.Image2SHA1,
			"created_at":    log.CreatedAt,
		})
	}
}

func getMetricsSummary(uc *usecase.ComparisonUseCase) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := uc.GetMetricsSummary(c.Request.Context())
		if errors.Is(err, usecase.ErrHistoryDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to aggregate metrics"})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func multipartUpload(header *multipart.FileHeader) usecase.Upload {
	return usecase.Upload{
		Filename: header.Filename,
		Open: func() (io.ReadCloser, error) {
			return header.Open()
		},
	}
}

// missingFieldErrors mirrors the validation error shape clients of the
// comparison API already parse.
func missingFieldErrors(fields []string) []gin.H {
	details := make([]gin.H, 0, len(fields))
	for _, field := range fields {
		details = append(details, gin.H{
			"loc":  []string{"body", field},
			"msg":  "field required",
			"type": "value_error.missing",
		})
	}
	return details
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
