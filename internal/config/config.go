package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"qpcrcli/internal/ddct"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// AnalysisConfig holds the defaults of every ΔΔCt run. CLI flags and API
// form fields override them per run.
type AnalysisConfig struct {
	ControlPattern   string `yaml:"control_pattern" envconfig:"CONTROL_PATTERN"`
	ReferencePattern string `yaml:"reference_pattern" envconfig:"REFERENCE_PATTERN"`

	ControlColumn   string `yaml:"control_column" envconfig:"CONTROL_COLUMN"`
	ReferenceColumn string `yaml:"reference_column" envconfig:"REFERENCE_COLUMN"`
	SampleColumn    string `yaml:"sample_column" envconfig:"SAMPLE_COLUMN"`
	CqColumn        string `yaml:"cq_column" envconfig:"CQ_COLUMN"`
	WellColumn      string `yaml:"well_column" envconfig:"WELL_COLUMN"`
	Sheet           string `yaml:"sheet" envconfig:"SHEET"`

	CaseSensitive    bool `yaml:"case_sensitive" envconfig:"CASE_SENSITIVE"`
	ExcludeReference bool `yaml:"exclude_reference" envconfig:"EXCLUDE_REFERENCE"`

	OutlierFilter    bool    `yaml:"outlier_filter" envconfig:"OUTLIER_FILTER"`
	OutlierMethod    string  `yaml:"outlier_method" envconfig:"OUTLIER_METHOD"`
	OutlierThreshold float64 `yaml:"outlier_threshold" envconfig:"OUTLIER_THRESHOLD"`
	MinReps          int     `yaml:"min_reps" envconfig:"MIN_REPS"`
	RecordOutliers   bool    `yaml:"record_outliers" envconfig:"RECORD_OUTLIERS"`

	OutputFormat string `yaml:"output_format" envconfig:"OUTPUT_FORMAT"`
	Parallel     int    `yaml:"parallel" envconfig:"PARALLEL"`
}

// TelemetryConfig controls tracing and metrics
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TracesEnabled  bool   `yaml:"traces_enabled" envconfig:"TRACES_ENABLED"`
	TraceExporter  string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

// Load builds the configuration from defaults, then the config file if one
// is found, then DDCT_* environment variables. Later sources win.
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile is Load with an explicit config file. An empty path skips the
// file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Only variables that are set overwrite a field
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys absent from the file
// keep their current value.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}
	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate limit rps must be positive when enabled")
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging output %q (want console, file or both)", c.Logging.Output)
	}
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = DefaultLogFile
	}

	switch c.Telemetry.TraceExporter {
	case "stdout", "none":
	default:
		return fmt.Errorf("invalid trace exporter %q (want stdout or none)", c.Telemetry.TraceExporter)
	}

	if _, err := c.Analysis.Options(); err != nil {
		return err
	}
	switch strings.ToLower(c.Analysis.OutputFormat) {
	case "xlsx", "csv":
	default:
		return fmt.Errorf("invalid output format %q (want xlsx or csv)", c.Analysis.OutputFormat)
	}
	if c.Analysis.Parallel < 1 {
		return fmt.Errorf("parallel must be at least 1, got %d", c.Analysis.Parallel)
	}
	return nil
}

// Options converts the analysis defaults into engine options. The patterns
// may still be empty here; they are checked when a run starts.
func (a AnalysisConfig) Options() (ddct.Options, error) {
	method, err := ddct.ParseMethod(a.OutlierMethod)
	if err != nil {
		return ddct.Options{}, err
	}

	opts := ddct.DefaultOptions()
	opts.ControlPattern = a.ControlPattern
	opts.ReferencePattern = a.ReferencePattern
	opts.Columns = ddct.Columns{
		Control:   a.ControlColumn,
		Reference: a.ReferenceColumn,
		Sample:    a.SampleColumn,
		Cq:        a.CqColumn,
		Well:      a.WellColumn,
	}
	opts.CaseSensitive = a.CaseSensitive
	opts.ExcludeReferenceInSamples = a.ExcludeReference
	opts.OutlierFilter = a.OutlierFilter
	opts.OutlierMethod = method
	opts.OutlierThreshold = a.OutlierThreshold
	opts.MinReps = a.MinReps
	opts.RecordOutliers = a.RecordOutliers
	return opts, opts.ValidateDefaults()
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv(ConfigFileEnv); p != "" {
		return p
	}
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	cols := ddct.DefaultColumns()
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			MaxUploadBytes:  DefaultMaxUploadBytes,
			RequestTimeout:  DefaultRequestTimeout,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     false,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			Output:      "console",
			FilePath:    DefaultLogFile,
			Development: false,
		},
		Analysis: AnalysisConfig{
			ControlColumn:    cols.Control,
			ReferenceColumn:  cols.Reference,
			SampleColumn:     cols.Sample,
			CqColumn:         cols.Cq,
			WellColumn:       cols.Well,
			Sheet:            "0",
			OutlierFilter:    true,
			OutlierMethod:    "mad",
			OutlierThreshold: 3.0,
			MinReps:          3,
			RecordOutliers:   true,
			OutputFormat:     "xlsx",
			Parallel:         DefaultParallel,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			TracesEnabled:  false,
			TraceExporter:  "stdout",
			MetricsEnabled: true,
		},
	}
}
