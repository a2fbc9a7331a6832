package json

import (
	"github.com/ajitpratap0/nebula-chart/pkg/connector/registry"
)

func init() {
	_ = registry.RegisterSource(registry.ConnectorInfo{
		Name:        "json",
		Description: "JSON file source supporting line-delimited and array formats",
		Version:     "1.0.0",
		Capabilities: []string{
			"streaming",
			"batch",
			"json_array",
			"json_lines",
			"type_inference",
		},
		ConfigSchema: map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"required":    true,
				"description": "Path to the JSON file (or security.credentials.path)",
			},
			"format": map[string]interface{}{
				"type":        "string",
				"default":     "lines",
				"description": "JSON format: 'array' for JSON array, 'lines' for line-delimited JSON",
				"enum":        []string{"array", "lines"},
			},
			"columns": map[string]interface{}{
				"type":        "array",
				"description": "Declared columns {name, type}; keys not listed are ignored",
			},
			"sample_size": map[string]interface{}{
				"type":    "integer",
				"default": 100,
			},
		},
	}, NewJSONSource)
}
