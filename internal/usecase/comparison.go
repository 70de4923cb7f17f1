package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/facecompare/internal/embedding"
	"github.com/example/facecompare/internal/logging"
	"github.com/example/facecompare/internal/repository"
	"github.com/example/facecompare/internal/similarity"
	"github.com/example/facecompare/internal/staging"
)

var (
	// ErrHistoryDisabled is returned by history lookups when no store is configured.
	ErrHistoryDisabled = errors.New("comparison history is disabled")
	// ErrResultNotFound is returned when no comparison was recorded under an id.
	ErrResultNotFound = errors.New("comparison result not found")
)

// Extractor produces a normalized embedding for the single face in an image file.
type Extractor interface {
	Extract(ctx context.Context, path string) (similarity.Vector, error)
}

// ComparisonRepository defines the persistence operations needed by the use case.
type ComparisonRepository interface {
	SaveLog(ctx context.Context, log *repository.ComparisonLog) error
	FindByRequestID(ctx context.Context, requestID string) (*repository.ComparisonLog, error)
	AggregateMetrics(ctx context.Context) (*repository.MetricsAggregation, error)
}

// Upload is one image submitted for comparison.
type Upload struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}

// FileUpload reads an image from the local filesystem.
func FileUpload(path string) Upload {
	return Upload{
		Filename: path,
		Open:     func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// ComparisonUseCase orchestrates staging, embedding extraction and scoring.
type ComparisonUseCase struct {
	extractor      Extractor
	repo           ComparisonRepository
	cache          Cache
	logger         *zap.Logger
	tempDir        string
	timeout        time.Duration
	now            func() time.Time
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

type cachedComparison struct {
	RequestID    string    `json:"request_id"`
	Matched      bool      `json:"matched"`
	Failed       bool      `json:"failed"`
	Similarity   float64   `json:"similarity"`
	Message      string    `json:"message"`
	ProcessingMs int64     `json:"processing_ms"`
	Image1SHA1   string    `json:"image1_sha1"`
	Image2SHA1   string    `json:"image2_sha1"`
	CreatedAt    time.Time `json:"created_at"`
}

// Option customizes a ComparisonUseCase.
type Option func(*ComparisonUseCase)

// WithTempDir stages uploads under dir instead of os.TempDir.
func WithTempDir(dir string) Option {
	return func(uc *ComparisonUseCase) { uc.tempDir = dir }
}

// WithTimeout bounds embedding extraction and scoring per request.
func WithTimeout(d time.Duration) Option {
	return func(uc *ComparisonUseCase) { uc.timeout = d }
}

// NewComparisonUseCase constructs a use case. repo and cache may be nil, in
// which case comparisons are not recorded.
func NewComparisonUseCase(extractor Extractor, repo ComparisonRepository, cache Cache, logger *zap.Logger, opts ...Option) *ComparisonUseCase {
	uc := &ComparisonUseCase{
		extractor:      extractor,
		repo:           repo,
		cache:          cache,
		logger:         logger.Named("comparison_usecase"),
		now:            time.Now,
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// CompareFaces compares the faces in two uploads. It never fails: every
// error is reported through the result's Message. The returned id names the
// comparison in the history.
func (uc *ComparisonUseCase) CompareFaces(ctx context.Context, image1, image2 Upload) (string, *ComparisonResult) {
	start := uc.now()
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.compare_faces", requestID)

	result, hashes := uc.compare(ctx, opLogger, start, image1, image2)
	if result.Failed() {
		opLogger.Info("comparison failed", zap.String("message", result.Message))
	} else {
		opLogger.Info("comparison finished",
			zap.Bool("match", result.Match),
			zap.Float64("similarity", result.Similarity),
			zap.Duration("elapsed", result.ProcessingTime),
		)
	}

	uc.record(ctx, opLogger, requestID, hashes, result)
	return requestID, result
}

func (uc *ComparisonUseCase) compare(ctx context.Context, logger *zap.Logger, start time.Time, image1, image2 Upload) (*ComparisonResult, [2]string) {
	var hashes [2]string

	file1, hash1, err1 := uc.stage(image1)
	defer uc.release(logger, file1)
	file2, hash2, err2 := uc.stage(image2)
	defer uc.release(logger, file2)
	hashes[0], hashes[1] = hash1, hash2

	if err1 != nil || err2 != nil {
		logger.Error("failed to stage uploads", zap.NamedError("image1", err1), zap.NamedError("image2", err2))
		return failure(MessageStagingFailed, uc.now().Sub(start)), hashes
	}

	if uc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}

	var (
		embeddings [2]similarity.Vector
		errs       [2]error
		g          errgroup.Group
	)
	for i, file := range []*staging.File{file1, file2} {
		i, path := i, file.Path
		g.Go(func() error {
			embeddings[i], errs[i] = uc.extractor.Extract(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	uc.release(logger, file1)
	uc.release(logger, file2)

	for i, err := range errs {
		if err != nil {
			logger.Info("embedding extraction failed",
				zap.Int("image", i+1),
				zap.Stringer("kind", embedding.KindOf(err)),
				zap.Error(err),
			)
		}
	}
	for _, err := range errs {
		if err != nil {
			return failure(err.Error(), uc.now().Sub(start)), hashes
		}
	}

	score, err := similarity.Cosine(embeddings[0], embeddings[1])
	if err != nil {
		logger.Error("similarity computation failed", zap.Error(err))
		return failure(err.Error(), uc.now().Sub(start)), hashes
	}

	return &ComparisonResult{
		Match:          similarity.IsMatch(score),
		Similarity:     score,
		ProcessingTime: uc.now().Sub(start),
	}, hashes
}

// stage writes an upload to disk and returns its SHA-1.
func (uc *ComparisonUseCase) stage(upload Upload) (*staging.File, string, error) {
	body, err := upload.Open()
	if err != nil {
		return nil, "", &staging.Error{Name: upload.Filename, Err: err}
	}
	defer body.Close()

	hasher := sha1.New()
	file, err := staging.Stage(uc.tempDir, upload.Filename, io.TeeReader(body, hasher))
	if err != nil {
		return nil, "", err
	}
	return file, hex.EncodeToString(hasher.Sum(nil)), nil
}

func (uc *ComparisonUseCase) release(logger *zap.Logger, file *staging.File) {
	if err := file.Remove(); err != nil {
		logger.Warn("failed to remove staged upload", zap.String("path", file.Path), zap.Error(err))
	}
}

// record stores the outcome in the history. Failures are logged only; they
// never change what the caller sees.
func (uc *ComparisonUseCase) record(ctx context.Context, logger *zap.Logger, requestID string, hashes [2]string, result *ComparisonResult) {
	if uc.repo == nil && uc.cache == nil {
		return
	}

	log := &repository.ComparisonLog{
		RequestID:    requestID,
		Matched:      result.Match,
		Failed:       result.Failed(),
		Similarity:   result.Similarity,
		Message:      result.Message,
		ProcessingMs: result.ProcessingTime.Milliseconds(),
		Image1SHA1:   hashes[0],
		Image2SHA1:   hashes[1],
		CreatedAt:    uc.now().UTC(),
	}

	if uc.repo != nil {
		if err := uc.repo.SaveLog(ctx, log); err != nil {
			logger.Warn("failed to persist comparison", zap.Error(err))
		}
	}

	if uc.cache != nil {
		serialized, err := json.Marshal(toCached(log))
		if err != nil {
			logger.Warn("failed to serialize comparison", zap.Error(err))
			return
		}
		if err := uc.cache.Set(ctx, resultKey(requestID), string(serialized), resultTTL); err != nil {
			logger.Warn("failed to cache comparison", zap.Error(logging.NewOperationError("cache.set.result", requestID, err)))
		}
	}
}

// GetResult returns a recorded comparison, preferring the cache.
func (uc *ComparisonUseCase) GetResult(ctx context.Context, requestID string) (*repository.ComparisonLog, error) {
	if uc.repo == nil && uc.cache == nil {
		return nil, ErrHistoryDisabled
	}
	opLogger := logging.WithOperation(uc.logger, "usecase.get_result", requestID)

	if uc.cache != nil {
		cached, err := uc.withRedisGet(ctx, requestID, "cache.get.result", resultKey(requestID))
		switch {
		case err == nil:
			var payload cachedComparison
			if err := json.Unmarshal([]byte(cached), &payload); err != nil {
				opLogger.Warn("failed to decode cached result", zap.Error(err))
			} else {
				return fromCached(payload), nil
			}
		case !errors.Is(err, redis.Nil):
			opLogger.Warn("failed to read cache", zap.Error(err))
		}
	}

	if uc.repo == nil {
		return nil, ErrResultNotFound
	}
	log, err := uc.repo.FindByRequestID(ctx, requestID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}
	return log, nil
}

func (uc *ComparisonUseCase) withRedisRetry(ctx context.Context, requestID, operation string, fn func() error) error {
	backoff := uc.initialBackoff
	opLogger := logging.WithOperation(uc.logger, operation, requestID)

	var err error
	for attempt := 0; attempt < uc.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= uc.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("redis operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}
		if !logging.IsTransient(err) {
			break
		}
		opLogger.Warn("transient redis error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, requestID, err)
}

func (uc *ComparisonUseCase) withRedisGet(ctx context.Context, requestID, operation, key string) (string, error) {
	var result string
	err := uc.withRedisRetry(ctx, requestID, operation, func() error {
		value, err := uc.cache.Get(ctx, key)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

func toCached(log *repository.ComparisonLog) cachedComparison {
	return cachedComparison{
		RequestID:    log.RequestID,
		Matched:      log.Matched,
		Failed:       log.Failed,
		Similarity:   log.Similarity,
		Message:      log.Message,
		ProcessingMs: log.ProcessingMs,
		Image1SHA1:   log.Image1SHA1,
		Image2SHA1:   log.Image2SHA1,
		CreatedAt:    log.CreatedAt,
	}
}

func fromCached(c cachedComparison) *repository.ComparisonLog {
	return &repository.ComparisonLog{
		RequestID:    c.RequestID,
		Matched:      c.Matched,
		Failed:       c.Failed,
		Similarity:   c.Similarity,
		Message:      c.Message,
		ProcessingMs: c.ProcessingMs,
		Image1SHA1:   c.Image1SHA1,
		Image2SHA1:   c.Image2SHA1,
		CreatedAt:    c.CreatedAt,
	}
}
