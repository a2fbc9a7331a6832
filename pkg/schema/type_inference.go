// Package schema builds connector schemas for text sources: from declared
// columns, or by inferring field types from sampled values.
package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-chart/pkg/config"
	"github.com/ajitpratap0/nebula-chart/pkg/connector/core"
	"github.com/ajitpratap0/nebula-chart/pkg/errors"
)

// DefaultSampleSize is the number of rows sampled for inference
const DefaultSampleSize = 100

// TimestampFormats are the layouts recognized in text cells
var TimestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// FromColumns builds a schema from column declarations
func FromColumns(name string, columns []config.ColumnConfig) (*core.Schema, error) {
	if len(columns) == 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "no columns declared")
	}

	now := time.Now()
	s := &core.Schema{
		Name:      name,
		Fields:    make([]core.Field, 0, len(columns)),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	seen := make(map[string]struct{}, len(columns))
	for i, c := range columns {
		if c.Name == "" {
			return nil, errors.New(errors.ErrorTypeConfig, "column name is required").WithDetail("column_index", i)
		}
		if _, dup := seen[c.Name]; dup {
			return nil, errors.New(errors.ErrorTypeConfig, "duplicate column").WithDetail("column", c.Name)
		}
		seen[c.Name] = struct{}{}

		t, ok := core.ParseFieldType(strings.ToLower(c.Type))
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeConfig, "unknown column type %q", c.Type).
				WithDetail("column", c.Name)
		}
		s.Fields = append(s.Fields, core.Field{Name: c.Name, Type: t, Nullable: true})
	}
	return s, nil
}

// Inferrer guesses field types from sampled values. A column takes the
// narrowest type every non-null sample satisfies; ints widen to floats and
// anything else falls back to string.
type Inferrer struct {
	logger     *zap.Logger
	nullValues map[string]struct{}
}

// NewInferrer creates an inferrer treating nullValues (and the empty
// string) as nulls
func NewInferrer(logger *zap.Logger, nullValues []string) *Inferrer {
	nulls := map[string]struct{}{"": {}}
	for _, v := range nullValues {
		nulls[v] = struct{}{}
	}
	return &Inferrer{
		logger:     logger.With(zap.String("component", "type_inference")),
		nullValues: nulls,
	}
}

// IsNull reports whether a text cell stands for null
func (e *Inferrer) IsNull(s string) bool {
	_, ok := e.nullValues[s]
	return ok
}

// InferColumns infers a schema for text rows laid out by headers
func (e *Inferrer) InferColumns(name string, headers []string, rows [][]string) *core.Schema {
	fields := make([]core.Field, len(headers))
	for col, h := range headers {
		values := make([]interface{}, 0, len(rows))
		for _, row := range rows {
			if col < len(row) && !e.IsNull(row[col]) {
				values = append(values, row[col])
			}
		}
		fields[col] = e.field(h, values, len(rows))
	}
	return e.finish(name, fields, len(rows))
}

// InferObjects infers a schema for decoded JSON objects. Fields are ordered
// by name since objects carry no column order.
func (e *Inferrer) InferObjects(name string, samples []map[string]interface{}) *core.Schema {
	seen := make(map[string]struct{})
	var names []string
	for _, obj := range samples {
		for k := range obj {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				names = append(names, k)
			}
		}
	}
	sort.Strings(names)

	fields := make([]core.Field, len(names))
	for i, n := range names {
		var values []interface{}
		for _, obj := range samples {
			if v, ok := obj[n]; ok && v != nil {
				values = append(values, v)
			}
		}
		fields[i] = e.field(n, values, len(samples))
	}
	return e.finish(name, fields, len(samples))
}

func (e *Inferrer) field(name string, values []interface{}, total int) core.Field {
	t := inferType(values)
	return core.Field{
		Name:        name,
		Type:        t,
		Description: fmt.Sprintf("Inferred as %s from %d of %d samples", t, len(values), total),
		Nullable:    len(values) < total || total == 0,
	}
}

func (e *Inferrer) finish(name string, fields []core.Field, samples int) *core.Schema {
	now := time.Now()
	e.logger.Debug("inferred schema",
		zap.String("schema", name),
		zap.Int("field_count", len(fields)),
		zap.Int("sample_count", samples))
	return &core.Schema{
		Name:        name,
		Description: fmt.Sprintf("Inferred from %d samples", samples),
		Fields:      fields,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// inferType returns the narrowest type all values satisfy
func inferType(values []interface{}) core.FieldType {
	if len(values) == 0 {
		return core.FieldTypeString
	}

	candidates := []core.FieldType{
		core.FieldTypeInt,
		core.FieldTypeFloat,
		core.FieldTypeBool,
		core.FieldTypeTimestamp,
	}
	for _, t := range candidates {
		all := true
		for _, v := range values {
			if _, err := ConvertValue(t, v); err != nil {
				all = false
				break
			}
		}
		if all {
			return t
		}
	}

	for _, v := range values {
		switch v.(type) {
		case map[string]interface{}, []interface{}:
			return core.FieldTypeJSON
		}
	}
	return core.FieldTypeString
}

// ParseCell converts a text cell into the Go value of t
func ParseCell(t core.FieldType, s string) (interface{}, error) {
	return ConvertValue(t, s)
}

// ConvertValue converts a text cell or a decoded JSON value into the Go
// value a page expects for t.
func ConvertValue(t core.FieldType, v interface{}) (interface{}, error) {
	switch t {
	case core.FieldTypeString:
		switch x := v.(type) {
		case string:
			return x, nil
		case json.Number:
			return x.String(), nil
		case bool, int64, float64:
			return fmt.Sprint(x), nil
		}
	case core.FieldTypeInt:
		switch x := v.(type) {
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
				return n, nil
			}
		case json.Number:
			if n, err := x.Int64(); err == nil {
				return n, nil
			}
		case int64:
			return x, nil
		case float64:
			if x == float64(int64(x)) {
				return int64(x), nil
			}
		}
	case core.FieldTypeFloat:
		switch x := v.(type) {
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
				return f, nil
			}
		case json.Number:
			if f, err := x.Float64(); err == nil {
				return f, nil
			}
		case int64:
			return float64(x), nil
		case float64:
			return x, nil
		}
	case core.FieldTypeBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(x)) {
			case "true", "yes", "y", "t":
				return true, nil
			case "false", "no", "n", "f":
				return false, nil
			}
		}
	case core.FieldTypeTimestamp:
		if s, ok := v.(string); ok {
			s = strings.TrimSpace(s)
			for _, layout := range TimestampFormats {
				if ts, err := time.Parse(layout, s); err == nil {
					return ts, nil
				}
			}
		}
	case core.FieldTypeJSON:
		if s, ok := v.(string); ok {
			var out interface{}
			if err := json.Unmarshal([]byte(s), &out); err != nil {
				return nil, fmt.Errorf("value %q is not valid json: %w", s, err)
			}
			return out, nil
		}
		return v, nil
	case core.FieldTypeBinary:
		switch x := v.(type) {
		case string:
			return []byte(x), nil
		case []byte:
			return x, nil
		}
	}
	return nil, fmt.Errorf("value %v (%T) is not a valid %s", v, v, t)
}
