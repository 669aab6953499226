package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Analysis AnalysisConfig `yaml:"analysis" envconfig:"ANALYSIS"`
	Export   ExportConfig   `yaml:"export" envconfig:"EXPORT"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"50"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"20"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/mstcli.log"`
}

// AnalysisConfig carries the tunable pipeline constants.
type AnalysisConfig struct {
	// ConcentrationTolerance is the relative difference under which two
	// concentrations count as the same dose when bucketing replicates.
	ConcentrationTolerance float64 `yaml:"concentration_tolerance" envconfig:"CONCENTRATION_TOLERANCE" default:"1e-6"`
	// Column overrides for the raw-table schema; empty values keep the
	// instrument defaults.
	ConcentrationColumn string `yaml:"concentration_column" envconfig:"CONCENTRATION_COLUMN"`
	FluorBeforeColumn   string `yaml:"fluor_before_column" envconfig:"FLUOR_BEFORE_COLUMN"`
	FluorAfterColumn    string `yaml:"fluor_after_column" envconfig:"FLUOR_AFTER_COLUMN"`
	Channel650Column    string `yaml:"channel_650_column" envconfig:"CHANNEL_650_COLUMN"`
	Channel670Column    string `yaml:"channel_670_column" envconfig:"CHANNEL_670_COLUMN"`
}

// ExportConfig controls the export artifacts.
type ExportConfig struct {
	OutputDir     string `yaml:"output_dir" envconfig:"OUTPUT_DIR" default:"results"`
	WorkbookName  string `yaml:"workbook_name" envconfig:"WORKBOOK_NAME" default:"mst_analysis.xlsx"`
	WriteCSV      bool   `yaml:"write_csv" envconfig:"WRITE_CSV" default:"true"`
	WriteWorkbook bool   `yaml:"write_workbook" envconfig:"WRITE_WORKBOOK" default:"true"`
}

// Load loads configuration from environment variables and an optional
// config file (MST_CONFIG_FILE, default config.yaml). File values fill in
// where the environment left defaults.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("MST", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := os.Getenv("MST_CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}
	if _, err := os.Stat(configFile); err == nil {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Analysis.ConcentrationTolerance < 0 {
		return fmt.Errorf("concentration tolerance must not be negative")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	return nil
}

// Default returns the built-in configuration, bypassing environment and
// file loading. Useful in tests and the CLI.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       RateLimitConfig{Enabled: true, RPS: 50, Burst: 20},
		},
		Logging: LoggingConfig{Level: "info", Output: "console", FilePath: "logs/mstcli.log"},
		Analysis: AnalysisConfig{
			ConcentrationTolerance: 1e-6,
		},
		Export: ExportConfig{
			OutputDir:     "results",
			WorkbookName:  "mst_analysis.xlsx",
			WriteCSV:      true,
			WriteWorkbook: true,
		},
	}
}
