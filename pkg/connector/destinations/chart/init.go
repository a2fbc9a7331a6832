package chart

import (
	"github.com/ajitpratap0/nebula-chart/pkg/connector/registry"
)

func init() {
	_ = registry.RegisterDestination(registry.ConnectorInfo{
		Name:        "chart",
		Description: "Buffers every record and renders the configured series as a BAR, LINE, SCATTER or STACKED_BAR chart",
		Version:     "1.0.0",
		Capabilities: []string{
			"batch",
			"streaming",
			"png",
			"svg",
			"table",
			"json",
		},
		ConfigSchema: map[string]interface{}{
			"chart_type": map[string]interface{}{
				"type":     "string",
				"required": true,
				"enum":     []string{"BAR", "LINE", "SCATTER", "STACKED_BAR"},
			},
			"x_axis_type": map[string]interface{}{
				"type":     "string",
				"required": true,
				"enum":     []string{"NUMBER", "CATEGORY"},
			},
			"x_axis_name": map[string]interface{}{
				"type":     "string",
				"required": true,
			},
			"y_axis_type": map[string]interface{}{
				"type":     "string",
				"required": true,
				"enum":     []string{"NUMBER", "CATEGORY"},
			},
			"y_axis_name": map[string]interface{}{
				"type":     "string",
				"required": true,
			},
			"serieses": map[string]interface{}{
				"type":        "array",
				"required":    true,
				"description": "Series as {name, x, y} or {name, column}",
			},
			"series_mapping_rule": map[string]interface{}{
				"type":        "array",
				"required":    false,
				"description": "Rules {column, value, series} routing matching rows into a series",
			},
			"title": map[string]interface{}{
				"type":    "string",
				"default": defaultTitle,
			},
			"width": map[string]interface{}{
				"type":    "integer",
				"default": defaultWidth,
			},
			"height": map[string]interface{}{
				"type":    "integer",
				"default": defaultHeight,
			},
			"output": map[string]interface{}{
				"type":        "object",
				"description": "path and format (png|svg) of the image, table to print a text table, json to dump the series",
			},
		},
	}, NewChartDestination)
}
