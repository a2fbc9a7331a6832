package chart

import (
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/nebula-chart/pkg/config"
	"github.com/ajitpratap0/nebula-chart/pkg/connector/core"
	"github.com/ajitpratap0/nebula-chart/pkg/errors"
)

const (
	defaultTitle  = "nebula-chart"
	defaultWidth  = 800
	defaultHeight = 600
)

// ChartType selects how series are drawn
type ChartType int

const (
	ChartTypeBar ChartType = iota + 1
	ChartTypeLine
	ChartTypeScatter
	ChartTypeStackedBar
)

var chartTypeNames = map[ChartType]string{
	ChartTypeBar:        "BAR",
	ChartTypeLine:       "LINE",
	ChartTypeScatter:    "SCATTER",
	ChartTypeStackedBar: "STACKED_BAR",
}

func (t ChartType) String() string {
	if name, ok := chartTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ChartType(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler
func (t ChartType) MarshalText() ([]byte, error) {
	name, ok := chartTypeNames[t]
	if !ok {
		return nil, fmt.Errorf("invalid chart type %d", int(t))
	}
	return []byte(name), nil
}

// UnmarshalText parses a chart type name, ignoring case
func (t *ChartType) UnmarshalText(text []byte) error {
	s := strings.ToUpper(strings.TrimSpace(string(text)))
	for k, name := range chartTypeNames {
		if name == s {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("unknown chart type %q (expected BAR, LINE, SCATTER or STACKED_BAR)", string(text))
}

// AxisType selects the scale of an axis
type AxisType int

const (
	AxisTypeNumber AxisType = iota + 1
	AxisTypeCategory
)

func (t AxisType) String() string {
	switch t {
	case AxisTypeNumber:
		return "NUMBER"
	case AxisTypeCategory:
		return "CATEGORY"
	}
	return fmt.Sprintf("AxisType(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler
func (t AxisType) MarshalText() ([]byte, error) {
	switch t {
	case AxisTypeNumber, AxisTypeCategory:
		return []byte(t.String()), nil
	}
	return nil, fmt.Errorf("invalid axis type %d", int(t))
}

// UnmarshalText parses an axis type name, ignoring case
func (t *AxisType) UnmarshalText(text []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(text))) {
	case "NUMBER":
		*t = AxisTypeNumber
	case "CATEGORY":
		*t = AxisTypeCategory
	default:
		return fmt.Errorf("unknown axis type %q (expected NUMBER or CATEGORY)", string(text))
	}
	return nil
}

// ImageFormat is the encoding of the rendered chart image
type ImageFormat string

const (
	ImageFormatPNG ImageFormat = "png"
	ImageFormatSVG ImageFormat = "svg"
)

// SeriesDefinition names a series and the columns its points are read
// from: either X and Y, or a single Column plotted against row order.
type SeriesDefinition struct {
	Name   string `yaml:"name" json:"name"`
	X      string `yaml:"x,omitempty" json:"x,omitempty"`
	Y      string `yaml:"y,omitempty" json:"y,omitempty"`
	Column string `yaml:"column,omitempty" json:"column,omitempty"`
}

// SingleColumn reports whether the series is keyed by row order
func (s SeriesDefinition) SingleColumn() bool {
	return s.Column != ""
}

// ClassificationRule routes rows whose Column equals Value into Series.
// Numeric cells compare by number, so "2.0" matches a cell holding 2.
type ClassificationRule struct {
	Column string `yaml:"column" json:"column"`
	Value  string `yaml:"value" json:"value"`
	Series string `yaml:"series" json:"series"`
}

// OutputConfig selects the presenters that receive the finished chart
type OutputConfig struct {
	// Path of the rendered image; empty disables image output
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
	// Format of the image; inferred from the path extension when empty
	Format ImageFormat `yaml:"format,omitempty" json:"format,omitempty"`
	// Table prints the series as a text table to stdout
	Table bool `yaml:"table,omitempty" json:"table,omitempty"`
	// JSON is the path of a JSON dump of the aggregated series
	JSON string `yaml:"json,omitempty" json:"json,omitempty"`
}

// PluginTask is the validated configuration of one chart output task
type PluginTask struct {
	ChartType ChartType            `yaml:"chart_type" json:"chart_type"`
	XAxisType AxisType             `yaml:"x_axis_type" json:"x_axis_type"`
	XAxisName string               `yaml:"x_axis_name" json:"x_axis_name"`
	YAxisType AxisType             `yaml:"y_axis_type" json:"y_axis_type"`
	YAxisName string               `yaml:"y_axis_name" json:"y_axis_name"`
	Serieses  []SeriesDefinition   `yaml:"serieses" json:"serieses"`
	Rules     []ClassificationRule `yaml:"series_mapping_rule,omitempty" json:"series_mapping_rule,omitempty"`

	Title  string       `yaml:"title,omitempty" json:"title,omitempty"`
	Width  int          `yaml:"width,omitempty" json:"width,omitempty"`
	Height int          `yaml:"height,omitempty" json:"height,omitempty"`
	Output OutputConfig `yaml:"output,omitempty" json:"output,omitempty"`
}

// LoadTask decodes and validates the chart task held in the properties
// section of a destination configuration.
func LoadTask(cfg *config.BaseConfig) (*PluginTask, error) {
	var task PluginTask
	if err := config.DecodeProperties(cfg, &task); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid chart configuration")
	}
	return finishLoad(&task)
}

// ParseTask decodes and validates a standalone chart configuration file
func ParseTask(data []byte) (*PluginTask, error) {
	var task PluginTask
	if err := config.Parse(data, &task); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid chart configuration")
	}
	return finishLoad(&task)
}

// DecodeTask restores a task from the source produced by TaskSource
func DecodeTask(ts core.TaskSource) (*PluginTask, error) {
	var task PluginTask
	if err := ts.Decode(&task); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid chart task source")
	}
	return finishLoad(&task)
}

func finishLoad(task *PluginTask) (*PluginTask, error) {
	task.applyDefaults()
	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

// TaskSource serializes the task for handoff to Open
func (t *PluginTask) TaskSource() (core.TaskSource, error) {
	data, err := yaml.Marshal(t)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode chart task")
	}
	ts := core.TaskSource{}
	if err := yaml.Unmarshal(data, &ts); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode chart task")
	}
	return ts, nil
}

func (t *PluginTask) applyDefaults() {
	if t.Title == "" {
		t.Title = defaultTitle
	}
	if t.Width == 0 {
		t.Width = defaultWidth
	}
	if t.Height == 0 {
		t.Height = defaultHeight
	}
	if t.Output.Path != "" && t.Output.Format == "" {
		switch strings.ToLower(filepath.Ext(t.Output.Path)) {
		case ".svg":
			t.Output.Format = ImageFormatSVG
		default:
			t.Output.Format = ImageFormatPNG
		}
	}
	t.Output.Format = ImageFormat(strings.ToLower(string(t.Output.Format)))
}

// Validate checks the task for everything aggregation and rendering rely on
func (t *PluginTask) Validate() error {
	switch {
	case t.ChartType == 0:
		return configError("chart_type is required")
	case t.XAxisType == 0:
		return configError("x_axis_type is required")
	case t.YAxisType == 0:
		return configError("y_axis_type is required")
	case t.XAxisName == "":
		return configError("x_axis_name is required")
	case t.YAxisName == "":
		return configError("y_axis_name is required")
	case len(t.Serieses) == 0:
		return configError("serieses must declare at least one series")
	}

	declared := make(map[string]struct{}, len(t.Serieses))
	for i, s := range t.Serieses {
		if s.Name == "" {
			return configError("series name is required").WithDetail("series_index", i)
		}
		if _, dup := declared[s.Name]; dup {
			return configError("duplicate series name").WithDetail("series", s.Name)
		}
		declared[s.Name] = struct{}{}

		pair := s.X != "" || s.Y != ""
		switch {
		case s.Column != "" && pair:
			return configError("series must use either column or x and y, not both").WithDetail("series", s.Name)
		case s.Column == "" && (s.X == "" || s.Y == ""):
			return configError("series needs a column or both x and y").WithDetail("series", s.Name)
		}
	}

	for i, r := range t.Rules {
		if r.Column == "" || r.Series == "" {
			return configError("series_mapping_rule needs column and series").WithDetail("rule_index", i)
		}
		if _, ok := declared[r.Series]; !ok {
			return configError("series_mapping_rule references undeclared series").
				WithDetail("rule_index", i).
				WithDetail("series", r.Series)
		}
	}

	if t.Width <= 0 || t.Height <= 0 {
		return configError(fmt.Sprintf("chart size must be positive, got %dx%d", t.Width, t.Height))
	}

	switch t.Output.Format {
	case "", ImageFormatPNG, ImageFormatSVG:
	default:
		return configError(fmt.Sprintf("unknown output format %q (expected png or svg)", t.Output.Format))
	}

	return nil
}

func configError(msg string) *errors.Error {
	return errors.New(errors.ErrorTypeConfig, msg)
}
