package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/facecompare/internal/auth"
	"github.com/example/facecompare/internal/config"
	"github.com/example/facecompare/internal/embedding"
	"github.com/example/facecompare/internal/handlers"
	"github.com/example/facecompare/internal/logging"
	"github.com/example/facecompare/internal/repository"
	"github.com/example/facecompare/internal/usecase"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the face comparison HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
		return runServe(cmd.Context(), cfg, logger)
	},
}

func runServe(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	detector, closeDetector, err := newDetector(ctx, cfg.Extractor, logger)
	if err != nil {
		return fmt.Errorf("init %s extractor: %w", cfg.Extractor.Backend, err)
	}
	defer closeDetector()

	// Left as nil interfaces when the history is not configured.
	var (
		repo  usecase.ComparisonRepository
		cache usecase.Cache
	)
	if cfg.History.DatabaseDSN != "" {
		db, err := initDatabase(ctx, cfg.History.DatabaseDSN, logger)
		if err != nil {
			return err
		}
		comparisons := repository.NewComparisonRepository(db, logger)
		if err := comparisons.AutoMigrate(ctx); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		repo = comparisons
	}
	if cfg.History.RedisAddr != "" {
		redisCtx, redisCancel := context.WithTimeout(ctx, 5*time.Second)
		client, err := initRedis(redisCtx, cfg.History.RedisAddr)
		redisCancel()
		if err != nil {
			return err
		}
		defer client.Close()
		cache = usecase.NewRedisCache(client)
	}
	logger.Info("comparison history",
		zap.Bool("enabled", cfg.HistoryEnabled()),
		zap.Bool("postgres", repo != nil),
		zap.Bool("redis", cache != nil),
	)

	uc := usecase.NewComparisonUseCase(
		embedding.NewService(detector, logger),
		repo,
		cache,
		logger,
		usecase.WithTempDir(cfg.TempDir),
		usecase.WithTimeout(cfg.RequestTimeout),
	)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(cfg, uc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("face comparison API listening",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("extractor", cfg.Extractor.Backend),
	)
	return serveHTTPServer(ctx, server, cfg.ShutdownTimeout, logger)
}

func newRouter(cfg *config.Config, uc *usecase.ComparisonUseCase) *gin.Engine {
	gin.SetMode(cfg.GinMode)

	r := gin.Default()
	r.MaxMultipartMemory = handlers.MaxUploadSize
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	handlers.RegisterRoutes(r, uc, auth.Optional(cfg.Auth.JWTSecret, cfg.Auth.JWTAudience))
	return r
}

func initDatabase(ctx context.Context, dsn string, zapLogger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, logging.NewOperationError("main.init_database", "", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, logging.NewOperationError("main.init_database", "", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, logging.NewOperationError("main.ping_database", "", err)
	}
	zapLogger.Info("connected to postgres")
	return db, nil
}

func initRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, logging.NewOperationError("main.init_redis", "", err)
	}
	return client, nil
}
