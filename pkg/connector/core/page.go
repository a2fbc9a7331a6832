package core

import (
	"fmt"
	"time"

	"github.com/ajitpratap0/nebula-chart/pkg/errors"
	"github.com/ajitpratap0/nebula-chart/pkg/pool"
)

// Page is an immutable batch of rows laid out by schema position. A nil
// cell is a null.
type Page struct {
	schema *Schema
	rows   [][]interface{}
}

// NewPage builds a page from rows already laid out by schema position.
// Every row must have exactly one cell per field.
func NewPage(schema *Schema, rows [][]interface{}) (*Page, error) {
	for i, row := range rows {
		if len(row) != len(schema.Fields) {
			return nil, errors.Newf(errors.ErrorTypeData,
				"row %d has %d cells, schema has %d fields", i, len(row), len(schema.Fields))
		}
	}
	return &Page{schema: schema, rows: rows}, nil
}

// PageFromRecords lays out records by schema position, normalizing each
// value to the Go type of its field. Keys absent from a record are nulls;
// keys not in the schema are ignored.
func PageFromRecords(schema *Schema, records []*pool.Record) (*Page, error) {
	rows := make([][]interface{}, 0, len(records))
	for i, rec := range records {
		row := make([]interface{}, len(schema.Fields))
		for j, f := range schema.Fields {
			raw, ok := rec.GetData(f.Name)
			if !ok || raw == nil {
				continue
			}
			v, err := normalize(f.Type, raw)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeData, "cannot convert record to page").
					WithDetail("record", i).
					WithDetail("column", f.Name)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return &Page{schema: schema, rows: rows}, nil
}

// Schema returns the page schema
func (p *Page) Schema() *Schema {
	return p.schema
}

// Len returns the number of rows
func (p *Page) Len() int {
	return len(p.rows)
}

// normalize converts a record value into the canonical Go type for t
func normalize(t FieldType, v interface{}) (interface{}, error) {
	switch t {
	case FieldTypeString:
		switch s := v.(type) {
		case string:
			return s, nil
		case []byte:
			return string(s), nil
		case fmt.Stringer:
			return s.String(), nil
		}
	case FieldTypeInt:
		switch n := v.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int16:
			return int64(n), nil
		case int8:
			return int64(n), nil
		case uint32:
			return int64(n), nil
		case uint16:
			return int64(n), nil
		case uint8:
			return int64(n), nil
		case float64:
			if n == float64(int64(n)) {
				return int64(n), nil
			}
		}
	case FieldTypeFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case int:
			return float64(n), nil
		}
	case FieldTypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case FieldTypeTimestamp:
		if ts, ok := v.(time.Time); ok {
			return ts, nil
		}
	case FieldTypeBinary:
		if b, ok := v.([]byte); ok {
			return b, nil
		}
	case FieldTypeJSON:
		return v, nil
	}
	return nil, fmt.Errorf("value %v (%T) is not a valid %s", v, v, t)
}

// PageReader iterates the rows of a page with typed column accessors.
type PageReader struct {
	schema *Schema
	page   *Page
	pos    int
}

// NewPageReader creates a reader for pages of the given schema
func NewPageReader(schema *Schema) *PageReader {
	return &PageReader{schema: schema, pos: -1}
}

// SetPage positions the reader before the first row of page
func (r *PageReader) SetPage(page *Page) {
	r.page = page
	r.pos = -1
}

// NextRecord advances to the next row
func (r *PageReader) NextRecord() bool {
	if r.page == nil || r.pos+1 >= len(r.page.rows) {
		return false
	}
	r.pos++
	return true
}

// IsNull reports whether the column holds a null in the current row
func (r *PageReader) IsNull(col int) bool {
	return r.cell(col) == nil
}

// GetString returns a string column value
func (r *PageReader) GetString(col int) (string, error) {
	v, ok := r.cell(col).(string)
	if !ok {
		return "", r.typeError(col, FieldTypeString)
	}
	return v, nil
}

// GetLong returns an integer column value
func (r *PageReader) GetLong(col int) (int64, error) {
	v, ok := r.cell(col).(int64)
	if !ok {
		return 0, r.typeError(col, FieldTypeInt)
	}
	return v, nil
}

// GetDouble returns a floating-point column value
func (r *PageReader) GetDouble(col int) (float64, error) {
	v, ok := r.cell(col).(float64)
	if !ok {
		return 0, r.typeError(col, FieldTypeFloat)
	}
	return v, nil
}

// GetBoolean returns a boolean column value
func (r *PageReader) GetBoolean(col int) (bool, error) {
	v, ok := r.cell(col).(bool)
	if !ok {
		return false, r.typeError(col, FieldTypeBool)
	}
	return v, nil
}

// GetTimestamp returns a timestamp column value
func (r *PageReader) GetTimestamp(col int) (time.Time, error) {
	v, ok := r.cell(col).(time.Time)
	if !ok {
		return time.Time{}, r.typeError(col, FieldTypeTimestamp)
	}
	return v, nil
}

func (r *PageReader) cell(col int) interface{} {
	if r.page == nil || r.pos < 0 || col < 0 || col >= len(r.page.rows[r.pos]) {
		return nil
	}
	return r.page.rows[r.pos][col]
}

func (r *PageReader) typeError(col int, want FieldType) error {
	name := fmt.Sprintf("#%d", col)
	if col >= 0 && col < len(r.schema.Fields) {
		name = r.schema.Fields[col].Name
	}
	return errors.Newf(errors.ErrorTypeData, "column %s is not a non-null %s", name, want)
}
