// Package config provides connector-specific configurations decoded from BaseConfig properties
package config

// ColumnConfig declares one column of a source schema
type ColumnConfig struct {
	Name string `yaml:"name" json:"name"`
	// Type is one of string, long, double, boolean, timestamp, json
	Type string `yaml:"type" json:"type"`
}

// CSVSourceConfig contains configuration for the CSV source connector
type CSVSourceConfig struct {
	// Path of the CSV file; falls back to security.credentials.path
	Path      string `yaml:"path" json:"path"`
	Delimiter string `yaml:"delimiter" json:"delimiter"`
	HasHeader *bool  `yaml:"has_header" json:"has_header"`
	// NullValues are cell contents read as null
	NullValues []string `yaml:"null_values" json:"null_values"`
	// Columns declares the schema. Without it, every header becomes a
	// column whose type is inferred from the first sampled rows.
	Columns    []ColumnConfig `yaml:"columns" json:"columns"`
	SampleSize int            `yaml:"sample_size" json:"sample_size"`
}

// JSONSourceConfig contains configuration for the line-delimited JSON source connector
type JSONSourceConfig struct {
	// Path of the JSONL file; falls back to security.credentials.path
	Path string `yaml:"path" json:"path"`
	// Format is "lines" (default) or "array"
	Format string `yaml:"format" json:"format"`
	// Columns declares the schema; object keys not listed are ignored
	Columns    []ColumnConfig `yaml:"columns" json:"columns"`
	SampleSize int            `yaml:"sample_size" json:"sample_size"`
}

// CSVHasHeader reports whether the CSV file carries a header row (default true)
func (c *CSVSourceConfig) CSVHasHeader() bool {
	return c.HasHeader == nil || *c.HasHeader
}
