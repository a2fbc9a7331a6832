package csv

import (
	"github.com/ajitpratap0/nebula-chart/pkg/connector/registry"
)

func init() {
	_ = registry.RegisterSource(registry.ConnectorInfo{
		Name:        "csv",
		Description: "CSV file source with declared or inferred column types",
		Version:     "1.0.0",
		Capabilities: []string{
			"streaming",
			"batch",
			"schema_discovery",
			"type_inference",
		},
		ConfigSchema: map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"required":    true,
				"description": "Path to the CSV file (or security.credentials.path)",
			},
			"delimiter": map[string]interface{}{
				"type":    "string",
				"default": ",",
			},
			"has_header": map[string]interface{}{
				"type":        "bool",
				"default":     true,
				"description": "Whether the first row holds column names",
			},
			"null_values": map[string]interface{}{
				"type":        "array",
				"description": "Cell contents read as null; empty cells are always null",
			},
			"columns": map[string]interface{}{
				"type":        "array",
				"description": "Declared columns {name, type}; types: string, long, double, boolean, timestamp, json",
			},
			"sample_size": map[string]interface{}{
				"type":    "integer",
				"default": 100,
			},
		},
	}, NewCSVSource)
}
