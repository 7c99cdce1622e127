// Package config loads runtime settings from .env files and the environment.
package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/subosito/gotenv"
)

var (
	ErrMissingDatabaseURL = errors.New("NUTRIHUB_DATABASE_URL is not set")
	ErrMissingServiceKey  = errors.New("NUTRIHUB_SERVICE_KEY is not set")
)

const (
	DefaultInputPath  = "data/nutrition-info.json"
	DefaultBatchSize  = 10
	DefaultBatchPause = time.Second
	DefaultAPIURL     = "http://localhost:3000"
)

type Config struct {
	Env         string
	DatabaseURL string
	ServiceKey  string
	StorageURL  string
	APIURL      string
	LogLevel    slog.Level
	InputPath   string
	BatchSize   int
	BatchPause  time.Duration
}

// LoadEnv loads config/envs/.env.<env> into the process environment.
// Variables already set in the environment win.
func LoadEnv(env string) {
	envFile := "config/envs/.env." + env
	if err := gotenv.Load(envFile); err != nil {
		slog.Warn("No .env file found, using OS environment", slog.String("file", envFile))
	}
}

// Load reads the .env file for APP_ENV (default "dev") and then the environment.
func Load() Config {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	LoadEnv(env)
	cfg := FromEnv()
	cfg.Env = env
	return cfg
}

// FromEnv builds a Config from the current environment only.
func FromEnv() Config {
	cfg := Config{
		DatabaseURL: os.Getenv("NUTRIHUB_DATABASE_URL"),
		ServiceKey:  os.Getenv("NUTRIHUB_SERVICE_KEY"),
		StorageURL:  strings.TrimRight(os.Getenv("NUTRIHUB_STORAGE_URL"), "/"),
		APIURL:      strings.TrimRight(os.Getenv("NUTRIHUB_API_URL"), "/"),
		InputPath:   os.Getenv("NUTRIHUB_INPUT"),
		LogLevel:    slog.LevelInfo,
		BatchSize:   DefaultBatchSize,
		BatchPause:  DefaultBatchPause,
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.InputPath == "" {
		cfg.InputPath = DefaultInputPath
	}
	if lvl := os.Getenv("NUTRIHUB_LOG_LEVEL"); lvl != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(lvl)); err != nil {
			slog.Warn("Invalid NUTRIHUB_LOG_LEVEL, using info", slog.String("value", lvl))
			cfg.LogLevel = slog.LevelInfo
		}
	}
	if n, err := strconv.Atoi(os.Getenv("NUTRIHUB_BATCH_SIZE")); err == nil && n > 0 {
		cfg.BatchSize = n
	}
	if d, err := time.ParseDuration(os.Getenv("NUTRIHUB_BATCH_PAUSE")); err == nil && d >= 0 {
		cfg.BatchPause = d
	}
	return cfg
}

// Validate reports every missing required setting.
func (c Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.ServiceKey == "" {
		errs = append(errs, ErrMissingServiceKey)
	}
	return errors.Join(errs...)
}
