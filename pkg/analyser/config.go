package analyser

import (
	"github.com/Arrow-air/Flight-Log-Analyser/internal/app/config"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// Policy controls journal and queue thresholds.
	Policy = ports.Policy
	// StorageConfig locates uploads and rendered charts.
	StorageConfig = config.StorageConfig
	// PostgresConfig configures session persistence and series export.
	PostgresConfig = config.PostgresConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// WALConfig configures on-disk job durability.
	WALConfig = config.WALConfig
	// RenderConfig sizes the charts and bounds rendering concurrency.
	RenderConfig = config.RenderConfig
	// LogConfig sets the log level.
	LogConfig = config.LogConfig
)

// ErrDatabaseRequired is returned when a feature needs postgres.conn_string.
var ErrDatabaseRequired = config.ErrDatabaseRequired

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return config.Default()
}
