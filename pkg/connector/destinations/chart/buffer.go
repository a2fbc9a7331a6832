package chart

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-chart/pkg/connector/core"
	"github.com/ajitpratap0/nebula-chart/pkg/errors"
	"github.com/ajitpratap0/nebula-chart/pkg/metrics"
)

// Row is one buffered record: column name to scalar. Nulls and columns of
// unsupported types are not stored, so lookups yield an absent Value.
type Row map[string]Value

// Buffer accumulates every row of one task until the stream ends.
// It is not safe for concurrent use.
type Buffer struct {
	schema      *core.Schema
	reader      *core.PageReader
	destination string
	logger      *zap.Logger

	rows    []Row
	warned  map[string]struct{}
	drained bool
}

// NewBuffer creates an empty buffer for pages of schema
func NewBuffer(schema *core.Schema, destination string, logger *zap.Logger) *Buffer {
	return &Buffer{
		schema:      schema,
		reader:      core.NewPageReader(schema),
		destination: destination,
		logger:      logger.With(zap.String("component", "chart_buffer")),
		warned:      make(map[string]struct{}),
	}
}

// Ingest appends one row per page record. Columns whose type cannot be
// plotted are dropped from the row; the row itself is always kept.
func (b *Buffer) Ingest(page *core.Page) error {
	if b.drained {
		return errors.New(errors.ErrorTypeInternal, "chart buffer already drained")
	}

	b.reader.SetPage(page)
	for b.reader.NextRecord() {
		row := make(Row, len(b.schema.Fields))
		for i, f := range b.schema.Fields {
			v, err := b.read(i, f)
			if err != nil {
				return err
			}
			if !v.IsAbsent() {
				row[f.Name] = v
			}
		}
		b.rows = append(b.rows, row)
	}

	metrics.RowsBuffered.WithLabelValues(b.destination).Add(float64(page.Len()))
	return nil
}

func (b *Buffer) read(col int, f core.Field) (Value, error) {
	switch f.Type {
	case core.FieldTypeString, core.FieldTypeInt, core.FieldTypeFloat:
	default:
		b.skip(f)
		return Value{}, nil
	}

	if b.reader.IsNull(col) {
		return Value{}, nil
	}

	var (
		v   Value
		err error
	)
	switch f.Type {
	case core.FieldTypeString:
		var s string
		s, err = b.reader.GetString(col)
		v = StringValue(s)
	case core.FieldTypeInt:
		var n int64
		n, err = b.reader.GetLong(col)
		v = IntValue(n)
	case core.FieldTypeFloat:
		var n float64
		n, err = b.reader.GetDouble(col)
		v = FloatValue(n)
	}
	if err != nil {
		return Value{}, errors.Wrap(err, errors.ErrorTypeData, "failed to read column").
			WithDetail("column", f.Name)
	}
	return v, nil
}

func (b *Buffer) skip(f core.Field) {
	metrics.FieldsSkipped.WithLabelValues(b.destination, f.Name, string(f.Type)).Inc()

	if _, ok := b.warned[f.Name]; ok {
		return
	}
	b.warned[f.Name] = struct{}{}
	b.logger.Warn("unsupported column type, field skipped",
		zap.String("column", f.Name),
		zap.String("type", string(f.Type)))
}

// Drain hands over the buffered rows in ingestion order. It can be called
// once; the buffer rejects further use afterwards.
func (b *Buffer) Drain() ([]Row, error) {
	if b.drained {
		return nil, errors.New(errors.ErrorTypeInternal, "chart buffer already drained")
	}
	b.drained = true
	rows := b.rows
	b.rows = nil
	return rows, nil
}

// Len returns the number of buffered rows
func (b *Buffer) Len() int {
	return len(b.rows)
}
