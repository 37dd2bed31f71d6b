package config

import (
	"time"

	"github.com/openfroyo/tfsync/pkg/telemetry"
)

// Project is the optional project configuration read from
// .tfsync/config.yaml.
type Project struct {
	// Terraform configures the terraform collaborator.
	Terraform TerraformConfig `yaml:"terraform"`

	// Expressions selects the expression language used by `when`, `expr`
	// and `onbeforesaving` (expr, starlark).
	Expressions string `yaml:"expressions" validate:"oneof=expr starlark"`

	// Timeout bounds every external process. Zero disables it.
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`

	// Journal configures the reconciliation history.
	Journal JournalConfig `yaml:"journal"`

	// Metrics configures the metrics export.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing configures span export.
	Tracing TracingConfig `yaml:"tracing"`

	// Logging configures the log output.
	Logging LoggingConfig `yaml:"logging"`
}

// TerraformConfig configures the terraform collaborator.
type TerraformConfig struct {
	// Binary is the terraform executable.
	Binary string `yaml:"binary" validate:"required"`

	// ShowResources overrides the location of the managed addresses in the
	// `show -json` output. A value starting with $ is a JSONPath.
	ShowResources string `yaml:"show_resources"`
}

// JournalConfig configures the reconciliation history.
type JournalConfig struct {
	Enabled bool `yaml:"enabled"`

	// Path of the SQLite database, relative to the .tfsync directory.
	Path string `yaml:"path" validate:"required_if=Enabled true"`
}

// MetricsConfig configures the metrics export.
type MetricsConfig struct {
	// Textfile receives the metrics in the textfile collector format when
	// the run ends.
	Textfile string `yaml:"textfile"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Exporter string `yaml:"exporter" validate:"oneof=none stdout otlp"`
	Endpoint string `yaml:"endpoint" validate:"required_if=Exporter otlp"`
	Insecure bool   `yaml:"insecure"`
}

// LoggingConfig configures the log output.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// DefaultProject returns the configuration used when config.yaml is absent
// and the base the file is decoded over.
func DefaultProject() *Project {
	return &Project{
		Terraform:   TerraformConfig{Binary: "terraform"},
		Expressions: "expr",
		Journal:     JournalConfig{Path: "journal.db"},
		Tracing:     TracingConfig{Exporter: "none"},
		Logging:     LoggingConfig{Level: "info", Format: "console"},
	}
}

// Telemetry returns the telemetry configuration of the project.
func (p *Project) Telemetry(version string) *telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = version
	cfg.Logging.Level = p.Logging.Level
	cfg.Logging.Format = p.Logging.Format
	cfg.Tracing.Exporter = p.Tracing.Exporter
	cfg.Tracing.Endpoint = p.Tracing.Endpoint
	cfg.Tracing.Insecure = p.Tracing.Insecure
	cfg.Metrics.Textfile = p.Metrics.Textfile
	return cfg
}
