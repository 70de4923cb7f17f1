package repository

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/facecompare/internal/logging"
)

// ErrNotFound is returned when no comparison matches the request id.
var ErrNotFound = errors.New("comparison not found")

// ComparisonLog is one recorded face comparison.
type ComparisonLog struct {
	ID           uint      `gorm:"primaryKey"`
	RequestID    string    `gorm:"column:request_id;uniqueIndex;size:64"`
	Matched      bool      `gorm:"column:matched"`
	Failed       bool      `gorm:"column:failed"`
	Similarity   float64   `gorm:"column:similarity"`
	Message      string    `gorm:"column:message;type:text"`
	ProcessingMs int64     `gorm:"column:processing_ms"`
	Image1SHA1   string    `gorm:"column:image1_sha1;size:40;index"`
	Image2SHA1   string    `gorm:"column:image2_sha1;size:40;index"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (ComparisonLog) TableName() string {
	return "comparison_logs"
}

// MetricsAggregation holds raw aggregates over all recorded comparisons.
type MetricsAggregation struct {
	TotalCount          int64
	MatchCount          int64
	FailedCount         int64
	AverageSimilarity   float64
	AverageProcessingMs float64
}

// ComparisonRepository persists comparison logs with gorm.
type ComparisonRepository struct {
	db             *gorm.DB
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

func NewComparisonRepository(db *gorm.DB, logger *zap.Logger) *ComparisonRepository {
	return &ComparisonRepository{
		db:             db,
		logger:         logger.Named("comparison_repository"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// AutoMigrate ensures the schema is available.
func (r *ComparisonRepository) AutoMigrate(ctx context.Context) error {
	return r.executeWithRetry(ctx, "repository.auto_migrate", "", func() error {
		return r.db.WithContext(ctx).AutoMigrate(&ComparisonLog{})
	})
}

// SaveLog persists a comparison log entry. It runs on the comparison
// response path and is attempted once.
func (r *ComparisonRepository) SaveLog(ctx context.Context, log *ComparisonLog) error {
	return r.execute(ctx, "repository.save_log", log.RequestID, 1, func() error {
		return r.db.WithContext(ctx).Create(log).Error
	})
}

// FindByRequestID loads the comparison recorded under requestID.
func (r *ComparisonRepository) FindByRequestID(ctx context.Context, requestID string) (*ComparisonLog, error) {
	var log ComparisonLog
	err := r.executeWithRetry(ctx, "repository.find_by_request_id", requestID, func() error {
		return r.db.WithContext(ctx).First(&log, "request_id = ?", requestID).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// AggregateMetrics computes totals and averages. Similarity is averaged over
// completed comparisons only.
func (r *ComparisonRepository) AggregateMetrics(ctx context.Context) (*MetricsAggregation, error) {
	var agg MetricsAggregation
	err := r.executeWithRetry(ctx, "repository.aggregate_metrics", "", func() error {
		return r.db.WithContext(ctx).
			Model(&ComparisonLog{}).
			Select(`COUNT(*) AS total_count,
				COALESCE(SUM(CASE WHEN matched THEN 1 ELSE 0 END), 0) AS match_count,
				COALESCE(SUM(CASE WHEN failed THEN 1 ELSE 0 END), 0) AS failed_count,
				COALESCE(AVG(CASE WHEN NOT failed THEN similarity END), 0) AS average_similarity,
				COALESCE(AVG(processing_ms), 0) AS average_processing_ms`).
			Scan(&agg).Error
	})
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

func (r *ComparisonRepository) executeWithRetry(ctx context.Context, operation, requestID string, fn func() error) error {
	return r.execute(ctx, operation, requestID, r.retryAttempts, fn)
}

// execute runs fn up to attempts times, backing off between transient failures.
func (r *ComparisonRepository) execute(ctx context.Context, operation, requestID string, attempts int, fn func() error) error {
	opLogger := logging.WithOperation(r.logger, operation, requestID)
	backoff := r.initialBackoff

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= r.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if !logging.IsTransient(err) {
			break
		}
		opLogger.Warn("transient database error", zap.Error(err), zap.Int("attempt", attempt+1))
	}

	opLogger.Error("database operation failed", zap.Error(err))
	return logging.NewOperationError(operation, requestID, err)
}
