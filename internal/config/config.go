// Package config loads service settings from struct defaults, an optional
// TOML file, a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/mcuadros/go-defaults"
)

const (
	BackendDlib = "dlib"
	BackendGRPC = "grpc"
)

type Config struct {
	HTTPAddr        string        `toml:"http_addr" default:":8000"`
	GinMode         string        `toml:"gin_mode" default:"release"`
	TempDir         string        `toml:"temp_dir"`
	RequestTimeout  time.Duration `toml:"request_timeout" default:"30s"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" default:"15s"`

	Extractor ExtractorConfig `toml:"extractor"`
	History   HistoryConfig   `toml:"history"`
	Auth      AuthConfig      `toml:"auth"`
	Log       LogConfig       `toml:"log"`
}

// ExtractorConfig selects the face detection backend.
type ExtractorConfig struct {
	Backend   string `toml:"backend" default:"dlib"`
	ModelsDir string `toml:"models_dir" default:"models"`
	UseCNN    bool   `toml:"use_cnn"`
	Addr      string `toml:"addr" default:"face-extractor:50051"`
}

// HistoryConfig enables comparison recording. Empty values disable it.
type HistoryConfig struct {
	DatabaseDSN string `toml:"database_dsn"`
	RedisAddr   string `toml:"redis_addr"`
}

type AuthConfig struct {
	JWTSecret   string `toml:"jwt_secret"`
	JWTAudience string `toml:"jwt_audience"`
}

type LogConfig struct {
	Level string `toml:"level" default:"info"`
	File  string `toml:"file"`
}

// Load builds a Config. path may be empty, in which case CONFIG_FILE is
// consulted; a missing .env file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	defaults.SetDefaults(cfg)

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Extractor.Backend {
	case BackendDlib:
		if c.Extractor.ModelsDir == "" {
			return errors.New("extractor.models_dir is required for the dlib backend")
		}
	case BackendGRPC:
		if c.Extractor.Addr == "" {
			return errors.New("extractor.addr is required for the grpc backend")
		}
	default:
		return fmt.Errorf("unknown extractor backend %q", c.Extractor.Backend)
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown gin_mode %q", c.GinMode)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown_timeout must be positive")
	}
	return nil
}

// HistoryEnabled reports whether any comparison store is configured.
func (c *Config) HistoryEnabled() bool {
	return c.History.DatabaseDSN != "" || c.History.RedisAddr != ""
}

func applyEnv(cfg *Config) error {
	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.GinMode = getEnv("GIN_MODE", cfg.GinMode)
	cfg.TempDir = getEnv("TEMP_DIR", cfg.TempDir)
	cfg.Extractor.Backend = getEnv("EXTRACTOR_BACKEND", cfg.Extractor.Backend)
	cfg.Extractor.ModelsDir = getEnv("MODELS_DIR", cfg.Extractor.ModelsDir)
	cfg.Extractor.Addr = getEnv("EXTRACTOR_ADDR", cfg.Extractor.Addr)
	cfg.History.DatabaseDSN = getEnv("DATABASE_DSN", cfg.History.DatabaseDSN)
	cfg.History.RedisAddr = getEnv("REDIS_ADDR", cfg.History.RedisAddr)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.JWTAudience = getEnv("JWT_AUDIENCE", cfg.Auth.JWTAudience)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)

	var err error
	if cfg.Extractor.UseCNN, err = boolEnv("USE_CNN", cfg.Extractor.UseCNN); err != nil {
		return err
	}
	if cfg.RequestTimeout, err = durationEnv("REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return err
	}
	if cfg.ShutdownTimeout, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return err
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func boolEnv(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}
