package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/ports"
)

type Config struct {
	Policy   ports.Policy   `yaml:"policy"`
	Storage  StorageConfig  `yaml:"storage"`
	Postgres PostgresConfig `yaml:"postgres"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	WAL      WALConfig      `yaml:"wal"`
	Render   RenderConfig   `yaml:"render"`
	Log      LogConfig      `yaml:"log"`
}

type StorageConfig struct {
	UploadDir string `yaml:"upload_dir"`
	PlotDir   string `yaml:"plot_dir"`
	Compress  bool   `yaml:"compress"`
}

type PostgresConfig struct {
	ConnString    string `yaml:"conn_string"`
	SessionsTable string `yaml:"sessions_table"`
	SeriesTable   string `yaml:"series_table"`
	ExportSeries  bool   `yaml:"export_series"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type WALConfig struct {
	Dir string `yaml:"dir"`
}

type RenderConfig struct {
	Width       int `yaml:"width"`
	Height      int `yaml:"height"`
	Parallelism int `yaml:"parallelism"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

var ErrDatabaseRequired = errors.New("postgres.conn_string is required")

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Policy.MaxWALSizeBytes == 0 {
		c.Policy.MaxWALSizeBytes = 1 << 30
	}
	if c.Policy.MaxQueueLen == 0 {
		c.Policy.MaxQueueLen = 1_000
	}
	if c.Policy.MaxBatchSize == 0 {
		c.Policy.MaxBatchSize = 4
	}
	if c.Policy.IdleSleep == 0 {
		c.Policy.IdleSleep = 50 * time.Millisecond
	}
	if c.Policy.OnQueueFull == "" {
		c.Policy.OnQueueFull = "block"
	}
	if c.Policy.OnWALFull == "" {
		c.Policy.OnWALFull = "block"
	}
	if c.Storage.UploadDir == "" {
		c.Storage.UploadDir = "uploads"
	}
	if c.Storage.PlotDir == "" {
		c.Storage.PlotDir = "static/plots"
	}
	if c.Postgres.SessionsTable == "" {
		c.Postgres.SessionsTable = "sessions"
	}
	if c.Postgres.SeriesTable == "" {
		c.Postgres.SeriesTable = "series_samples"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.WAL.Dir == "" {
		c.WAL.Dir = "./data/wal"
	}
	if c.Render.Width == 0 {
		c.Render.Width = 1200
	}
	if c.Render.Height == 0 {
		c.Render.Height = 600
	}
	if c.Render.Parallelism == 0 {
		c.Render.Parallelism = 4
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) validate() error {
	switch c.Policy.OnQueueFull {
	case "block", "drop", "reject":
	default:
		return fmt.Errorf("policy.on_queue_full: unknown value %q", c.Policy.OnQueueFull)
	}
	switch c.Policy.OnWALFull {
	case "block", "drop":
	default:
		return fmt.Errorf("policy.on_wal_full: unknown value %q", c.Policy.OnWALFull)
	}
	if c.Policy.MaxQueueLen < 0 || c.Policy.MaxBatchSize < 0 {
		return fmt.Errorf("policy limits must not be negative")
	}
	if c.Render.Width < 0 || c.Render.Height < 0 || c.Render.Parallelism < 0 {
		return fmt.Errorf("render sizes must not be negative")
	}
	if c.Postgres.ExportSeries && c.Postgres.ConnString == "" {
		return fmt.Errorf("postgres.export_series: %w", ErrDatabaseRequired)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required")
	}
	if c.WAL.Dir == "" {
		return fmt.Errorf("wal.dir is required")
	}
	return nil
}

// RequireDatabase reports an error when no Postgres connection is set.
func (c *Config) RequireDatabase() error {
	if c.Postgres.ConnString == "" {
		return ErrDatabaseRequired
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	l, _ := parseLevel(c.Log.Level)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}
