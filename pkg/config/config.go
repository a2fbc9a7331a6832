package config

import (
	"fmt"
	"time"
)

// BaseConfig is the single unified configuration structure that all connectors use.
type BaseConfig struct {
	// Name identifies the connector instance
	Name string `yaml:"name" json:"name"`
	// Type specifies the connector type (e.g., "csv", "json", "chart")
	Type string `yaml:"type" json:"type"`
	// Version indicates the configuration version
	Version string `yaml:"version" json:"version"`

	// Performance settings control batching in the runner
	Performance PerformanceConfig `yaml:"performance" json:"performance"`

	// Security configuration for credentials
	Security SecurityConfig `yaml:"security" json:"security"`

	// Observability settings for monitoring and debugging
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`

	// Properties holds connector-specific settings. Each connector decodes
	// them into its own typed structure with DecodeProperties.
	Properties map[string]interface{} `yaml:"properties" json:"properties"`
}

// PerformanceConfig contains all performance-related settings.
type PerformanceConfig struct {
	// BatchSize controls the number of records handed to the destination together
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// BufferSize sets the size of the runner's record channel
	BufferSize int `yaml:"buffer_size" json:"buffer_size"`
	// FlushInterval triggers periodic batch flushes
	FlushInterval time.Duration `yaml:"flush_interval" json:"flush_interval"`
}

// SecurityConfig contains credential settings.
type SecurityConfig struct {
	// Credentials stores connector credentials (use ${ENV} substitution in files)
	Credentials map[string]string `yaml:"credentials" json:"credentials"`
}

// ObservabilityConfig contains monitoring and observability settings.
type ObservabilityConfig struct {
	// EnableMetrics activates metrics collection
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// EnableTracing activates tracing spans around ingest, aggregation and rendering
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
	// TracingSampleRate controls trace sampling (0.0-1.0)
	TracingSampleRate float64 `yaml:"tracing_sample_rate" json:"tracing_sample_rate"`
}

// NewBaseConfig creates a new BaseConfig with sensible defaults.
//
// Parameters:
//   - name: The connector instance name
//   - connectorType: The type of connector (e.g., "csv", "chart")
func NewBaseConfig(name, connectorType string) *BaseConfig {
	return &BaseConfig{
		Name:    name,
		Type:    connectorType,
		Version: "1.0.0",
		Performance: PerformanceConfig{
			BatchSize:     1000,
			BufferSize:    10000,
			FlushInterval: 10 * time.Second,
		},
		Security: SecurityConfig{
			Credentials: make(map[string]string),
		},
		Observability: ObservabilityConfig{
			EnableMetrics:     true,
			EnableTracing:     false,
			LogLevel:          "info",
			TracingSampleRate: 1.0,
		},
		Properties: make(map[string]interface{}),
	}
}

// ApplyDefaults fills zero-valued performance settings with the defaults of
// NewBaseConfig. Configurations read from files usually only carry the
// fields the user cared about.
func (bc *BaseConfig) ApplyDefaults() {
	defaults := NewBaseConfig(bc.Name, bc.Type)
	if bc.Version == "" {
		bc.Version = defaults.Version
	}
	if bc.Performance.BatchSize <= 0 {
		bc.Performance.BatchSize = defaults.Performance.BatchSize
	}
	if bc.Performance.BufferSize <= 0 {
		bc.Performance.BufferSize = defaults.Performance.BufferSize
	}
	if bc.Performance.FlushInterval <= 0 {
		bc.Performance.FlushInterval = defaults.Performance.FlushInterval
	}
	if bc.Observability.LogLevel == "" {
		bc.Observability.LogLevel = defaults.Observability.LogLevel
	}
	if bc.Security.Credentials == nil {
		bc.Security.Credentials = make(map[string]string)
	}
	if bc.Properties == nil {
		bc.Properties = make(map[string]interface{})
	}
}

// Validate validates the configuration for correctness.
// Connectors should call this after loading configuration to catch errors early.
func (bc *BaseConfig) Validate() error {
	if bc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if bc.Type == "" {
		return fmt.Errorf("type is required")
	}
	if bc.Performance.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive")
	}
	if bc.Performance.BufferSize <= 0 {
		return fmt.Errorf("buffer_size must be positive")
	}
	if bc.Observability.TracingSampleRate < 0 || bc.Observability.TracingSampleRate > 1 {
		return fmt.Errorf("tracing_sample_rate must be within [0, 1]")
	}
	return nil
}

// HasCredentials returns true if credentials are configured
func (s *SecurityConfig) HasCredentials() bool {
	return len(s.Credentials) > 0
}
