package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Report     ReportConfig     `yaml:"report"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	EnableTimescale        bool   `yaml:"enable_timescale"`
	LogLevel               string `yaml:"log_level"`
}

// ReportConfig controls report generation.
type ReportConfig struct {
	DefaultTimezone string `yaml:"default_timezone"`
	OutputDir       string `yaml:"output_dir"`
	Concurrency     int    `yaml:"concurrency"` // stores computed in parallel
	Workers         int    `yaml:"workers"`     // report jobs run in parallel
	QueueSize       int    `yaml:"queue_size"`

	Location *time.Location `yaml:"-"`
}

// IngestConfig points at the three CSV feeds and sizes the insert batches.
type IngestConfig struct {
	StatusFile      string `yaml:"status_file"`
	HoursFile       string `yaml:"hours_file"`
	TimezoneFile    string `yaml:"timezone_file"`
	StatusBatchSize int    `yaml:"status_batch_size"`
	SmallBatchSize  int    `yaml:"small_batch_size"`
	Workers         int    `yaml:"workers"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 1
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Driver != "postgres" && cfg.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}

	if cfg.Report.DefaultTimezone == "" {
		cfg.Report.DefaultTimezone = "America/Chicago"
	}
	loc, err := time.LoadLocation(cfg.Report.DefaultTimezone)
	if err != nil {
		return fmt.Errorf("invalid report.default_timezone %q: %w", cfg.Report.DefaultTimezone, err)
	}
	cfg.Report.Location = loc
	if cfg.Report.OutputDir == "" {
		cfg.Report.OutputDir = "./reports"
	}
	if cfg.Report.Concurrency <= 0 {
		cfg.Report.Concurrency = 8
	}
	if cfg.Report.Workers <= 0 {
		cfg.Report.Workers = 1
	}
	if cfg.Report.QueueSize <= 0 {
		cfg.Report.QueueSize = 16
	}

	if cfg.Ingest.StatusBatchSize <= 0 {
		cfg.Ingest.StatusBatchSize = 10000
	}
	if cfg.Ingest.SmallBatchSize <= 0 {
		cfg.Ingest.SmallBatchSize = 5000
	}
	if cfg.Ingest.Workers <= 0 {
		cfg.Ingest.Workers = 4
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
	return nil
}
