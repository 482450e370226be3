// Package config provides loading and parsing of sigraph.yaml configuration
// files. The configuration covers the graph database connection and the
// optional Redis event intake.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sigraph-ai/sigraph/graph"
)

// Config represents a sigraph.yaml configuration file.
type Config struct {
	// Graph configures the graph database connection.
	Graph GraphConfig `yaml:"graph"`

	// Ingest configures the Redis event intake worker.
	Ingest *IngestConfig `yaml:"ingest,omitempty"`
}

// GraphConfig holds the graph database connection settings.
type GraphConfig struct {
	// URI is the Bolt-style database address, e.g. "neo4j://graph:7687".
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Database selects a named database. Empty uses the driver default.
	Database string `yaml:"database,omitempty"`

	// PoolSize caps concurrent connections. Default: 20.
	PoolSize int `yaml:"pool_size,omitempty"`

	// ConnectionLifetime is the maximum connection age.
	// Format: Go duration string. Default: 30m.
	ConnectionLifetime string `yaml:"connection_lifetime,omitempty"`

	// AcquisitionTimeout bounds the wait for a pooled connection.
	// Format: Go duration string. Default: 30s.
	AcquisitionTimeout string `yaml:"acquisition_timeout,omitempty"`

	// RetryCount is the number of attempts for transient failures.
	// Default: 3.
	RetryCount int `yaml:"retry_count,omitempty"`

	// RetryDelay is the base delay of the quadratic retry backoff.
	// Format: Go duration string. Default: 2s.
	RetryDelay string `yaml:"retry_delay,omitempty"`
}

// GetPoolSize returns the configured pool size or the default value.
func (g *GraphConfig) GetPoolSize() int {
	if g == nil || g.PoolSize <= 0 {
		return 20
	}
	return g.PoolSize
}

// GetConnectionLifetime parses the connection lifetime string and returns a
// duration. Returns the default value if not set or invalid.
func (g *GraphConfig) GetConnectionLifetime() time.Duration {
	if g == nil {
		return 30 * time.Minute
	}
	return durationOr(g.ConnectionLifetime, 30*time.Minute)
}

// GetAcquisitionTimeout parses the acquisition timeout string and returns a
// duration. Returns the default value if not set or invalid.
func (g *GraphConfig) GetAcquisitionTimeout() time.Duration {
	if g == nil {
		return 30 * time.Second
	}
	return durationOr(g.AcquisitionTimeout, 30*time.Second)
}

// GetRetryCount returns the configured retry count or the default value.
func (g *GraphConfig) GetRetryCount() int {
	if g == nil || g.RetryCount <= 0 {
		return 3
	}
	return g.RetryCount
}

// GetRetryDelay parses the retry delay string and returns a duration.
// Returns the default value if not set or invalid.
func (g *GraphConfig) GetRetryDelay() time.Duration {
	if g == nil {
		return 2 * time.Second
	}
	return durationOr(g.RetryDelay, 2*time.Second)
}

// ClientConfig converts the section into the graph client's configuration,
// with every unset knob resolved to its default.
func (g *GraphConfig) ClientConfig() graph.Config {
	return graph.Config{
		URI:                          g.URI,
		Username:                     g.Username,
		Password:                     g.Password,
		Database:                     g.Database,
		MaxConnectionPoolSize:        g.GetPoolSize(),
		MaxConnectionLifetime:        g.GetConnectionLifetime(),
		ConnectionAcquisitionTimeout: g.GetAcquisitionTimeout(),
		RetryCount:                   g.GetRetryCount(),
		RetryDelay:                   g.GetRetryDelay(),
	}
}

// IngestConfig configures the Redis event intake worker.
type IngestConfig struct {
	// RedisURL is the Redis connection URL, e.g. "redis://localhost:6379/0".
	RedisURL string `yaml:"redis_url"`

	// Concurrency is the number of concurrent worker goroutines.
	// Default: 4.
	Concurrency int `yaml:"concurrency,omitempty"`

	// ShutdownTimeout is the time to wait for graceful shutdown.
	// Format: Go duration string. Default: 30s.
	ShutdownTimeout string `yaml:"shutdown_timeout,omitempty"`

	// HeartbeatInterval is the interval between worker heartbeats.
	// Format: Go duration string. Default: 10s.
	HeartbeatInterval string `yaml:"heartbeat_interval,omitempty"`
}

// GetConcurrency returns the configured concurrency or the default value.
func (i *IngestConfig) GetConcurrency() int {
	if i == nil || i.Concurrency <= 0 {
		return 4
	}
	return i.Concurrency
}

// GetShutdownTimeout parses the shutdown timeout string and returns a
// duration. Returns the default value if not set or invalid.
func (i *IngestConfig) GetShutdownTimeout() time.Duration {
	if i == nil {
		return 30 * time.Second
	}
	return durationOr(i.ShutdownTimeout, 30*time.Second)
}

// GetHeartbeatInterval parses the heartbeat interval string and returns a
// duration. Returns the default value if not set or invalid.
func (i *IngestConfig) GetHeartbeatInterval() time.Duration {
	if i == nil {
		return 10 * time.Second
	}
	return durationOr(i.HeartbeatInterval, 10*time.Second)
}

func durationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// Load reads and parses a sigraph.yaml file from the given path. If the
// path is a directory, it looks for sigraph.yaml or sigraph.yml there.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	configPath := path
	if info.IsDir() {
		yamlPath := filepath.Join(path, "sigraph.yaml")
		if _, err := os.Stat(yamlPath); err == nil {
			configPath = yamlPath
		} else {
			ymlPath := filepath.Join(path, "sigraph.yml")
			if _, err := os.Stat(ymlPath); err != nil {
				return nil, fmt.Errorf("no sigraph.yaml or sigraph.yml found in %s", path)
			}
			configPath = ymlPath
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &config, nil
}

// LoadFromCurrentDir loads the configuration from the working directory.
func LoadFromCurrentDir() (*Config, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return Load(dir)
}
