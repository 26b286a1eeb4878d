// Package config loads and validates licensecount settings from a YAML file,
// LICENSECOUNT_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/licensecount/pkg/safeconv"
)

// Sentinel validation errors.
var (
	ErrInvalidApplicationID = errors.New("target application id must be positive")
	ErrInvalidWorkers       = errors.New("workers must not be negative")
	ErrInvalidPort          = errors.New("invalid server port")
	ErrInvalidLogLevel      = errors.New("invalid log level")
	ErrInvalidFormat        = errors.New("invalid format")
	ErrInvalidBodySize      = errors.New("invalid max body size")
	ErrSchema               = errors.New("configuration does not match schema")
)

// Output and log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatPlot = "plot"
)

const maxPort = 65535

// OutputFormats lists the report formats accepted by output.format.
var OutputFormats = []string{FormatText, FormatJSON, FormatYAML, FormatPlot}

// LogFormats lists the handler formats accepted by logging.format.
var LogFormats = []string{FormatText, FormatJSON}

// Config holds all licensecount settings.
type Config struct {
	License   LicenseConfig   `json:"license"   mapstructure:"license"   yaml:"license"`
	Logging   LoggingConfig   `json:"logging"   mapstructure:"logging"   yaml:"logging"`
	Output    OutputConfig    `json:"output"    mapstructure:"output"    yaml:"output"`
	Server    ServerConfig    `json:"server"    mapstructure:"server"    yaml:"server"`
	Telemetry TelemetryConfig `json:"telemetry" mapstructure:"telemetry" yaml:"telemetry"`
}

// LicenseConfig holds calculation settings.
type LicenseConfig struct {
	TargetApplicationID int `json:"target_application_id" mapstructure:"target_application_id" yaml:"target_application_id"`
	Workers             int `json:"workers"               mapstructure:"workers"               yaml:"workers"`
	ParallelThreshold   int `json:"parallel_threshold"    mapstructure:"parallel_threshold"    yaml:"parallel_threshold"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"  mapstructure:"level"  yaml:"level"`
	Format string `json:"format" mapstructure:"format" yaml:"format"`
}

// OutputConfig holds report settings.
type OutputConfig struct {
	Format string `json:"format" mapstructure:"format" yaml:"format"`
	Color  bool   `json:"color"  mapstructure:"color"  yaml:"color"`
}

// ServerConfig holds HTTP service settings.
type ServerConfig struct {
	Host         string        `json:"host"          mapstructure:"host"          yaml:"host"`
	Port         int           `json:"port"          mapstructure:"port"          yaml:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"  mapstructure:"read_timeout"  yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" mapstructure:"write_timeout" yaml:"write_timeout"`
	MaxBodySize  string        `json:"max_body_size" mapstructure:"max_body_size" yaml:"max_body_size"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `json:"otlp_endpoint" mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	OTLPHeaders  string  `json:"otlp_headers"  mapstructure:"otlp_headers"  yaml:"otlp_headers"`
	OTLPInsecure bool    `json:"otlp_insecure" mapstructure:"otlp_insecure" yaml:"otlp_insecure"`
	SampleRatio  float64 `json:"sample_ratio"  mapstructure:"sample_ratio"  yaml:"sample_ratio"`
	Environment  string  `json:"environment"   mapstructure:"environment"   yaml:"environment"`
}

// Addr returns the host:port the HTTP service listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MaxBodyBytes parses MaxBodySize ("32MB", "512KiB", "1048576").
func (s ServerConfig) MaxBodyBytes() (int64, error) {
	n, err := humanize.ParseBytes(s.MaxBodySize)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidBodySize, s.MaxBodySize, err)
	}

	size, err := safeconv.Uint64ToInt64(n)
	if err != nil || size == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidBodySize, s.MaxBodySize)
	}

	return size, nil
}

// SlogLevel returns the parsed logging level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(l.Level))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, l.Level)
	}

	return level, nil
}

// Validate checks every setting and returns the first violation.
func (c *Config) Validate() error {
	if c.License.TargetApplicationID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidApplicationID, c.License.TargetApplicationID)
	}

	if c.License.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.License.Workers)
	}

	if c.Server.Port <= 0 || c.Server.Port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Server.Port)
	}

	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}

	if !slices.Contains(LogFormats, c.Logging.Format) {
		return fmt.Errorf("%w: logging.format %q", ErrInvalidFormat, c.Logging.Format)
	}

	if !slices.Contains(OutputFormats, c.Output.Format) {
		return fmt.Errorf("%w: output.format %q", ErrInvalidFormat, c.Output.Format)
	}

	if _, err := c.Server.MaxBodyBytes(); err != nil {
		return err
	}

	return validateSchema(c)
}
