// Package csv provides a CSV file source with declared or inferred column types
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-chart/pkg/config"
	"github.com/ajitpratap0/nebula-chart/pkg/connector/core"
	"github.com/ajitpratap0/nebula-chart/pkg/errors"
	"github.com/ajitpratap0/nebula-chart/pkg/logger"
	"github.com/ajitpratap0/nebula-chart/pkg/pool"
	"github.com/ajitpratap0/nebula-chart/pkg/schema"
)

// CSVSource reads typed records from a CSV file
type CSVSource struct {
	config   *config.BaseConfig
	settings config.CSVSourceConfig
	logger   *zap.Logger
	inferrer *schema.Inferrer

	file    *os.File
	reader  *csv.Reader
	headers []string
	// columns maps schema position to cell position
	columns []int
	schema  *core.Schema

	// pending holds rows consumed while sampling for inference
	pending [][]string
	lines   atomic.Int64

	recordsRead atomic.Int64
	started     atomic.Bool
}

// NewCSVSource creates a new CSV source connector
func NewCSVSource(cfg *config.BaseConfig) (core.Source, error) {
	return &CSVSource{config: cfg}, nil
}

// Initialize opens the file and settles the schema
func (s *CSVSource) Initialize(ctx context.Context, cfg *config.BaseConfig) error {
	s.config = cfg
	s.logger = logger.WithContext(ctx).With(zap.String("connector", "csv"), zap.String("source", cfg.Name))

	if err := config.DecodeProperties(cfg, &s.settings); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid csv source configuration")
	}
	if s.settings.Path == "" {
		s.settings.Path = cfg.Security.Credentials["path"]
	}
	if s.settings.Path == "" {
		return errors.New(errors.ErrorTypeConfig, "csv source requires a path")
	}
	if s.settings.SampleSize <= 0 {
		s.settings.SampleSize = schema.DefaultSampleSize
	}
	s.inferrer = schema.NewInferrer(s.logger, s.settings.NullValues)

	file, err := os.Open(s.settings.Path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to open CSV file").
			WithDetail("path", s.settings.Path)
	}
	s.file = file

	s.reader = csv.NewReader(file)
	s.reader.FieldsPerRecord = -1
	if d := s.settings.Delimiter; d != "" {
		r, size := utf8.DecodeRuneInString(d)
		if size != len(d) {
			s.file.Close()
			return errors.Newf(errors.ErrorTypeConfig, "delimiter must be a single character, got %q", d)
		}
		s.reader.Comma = r
	}

	if s.settings.CSVHasHeader() {
		headers, err := s.readRow()
		if err != nil && err != io.EOF {
			s.file.Close()
			return errors.Wrap(err, errors.ErrorTypeData, "failed to read CSV header")
		}
		s.headers = headers
	}

	if err := s.resolveSchema(); err != nil {
		s.file.Close()
		return err
	}

	s.logger.Info("CSV source initialized",
		zap.String("file", s.settings.Path),
		zap.Bool("has_header", s.settings.CSVHasHeader()),
		zap.Int("columns", len(s.schema.Fields)))
	return nil
}

func (s *CSVSource) resolveSchema() error {
	if len(s.settings.Columns) > 0 {
		sch, err := schema.FromColumns("csv", s.settings.Columns)
		if err != nil {
			return err
		}
		s.schema = sch
		s.columns = make([]int, len(sch.Fields))
		for i, f := range sch.Fields {
			s.columns[i] = i
			if s.headers == nil {
				continue
			}
			s.columns[i] = -1
			for j, h := range s.headers {
				if h == f.Name {
					s.columns[i] = j
					break
				}
			}
			if s.columns[i] < 0 {
				return errors.New(errors.ErrorTypeConfig, "declared column not found in CSV header").
					WithDetail("column", f.Name)
			}
		}
		return nil
	}

	for len(s.pending) < s.settings.SampleSize {
		row, err := s.readRow()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "failed to sample CSV rows")
		}
		s.pending = append(s.pending, row)
	}

	headers := s.headers
	if headers == nil {
		width := 0
		for _, row := range s.pending {
			if len(row) > width {
				width = len(row)
			}
		}
		headers = make([]string, width)
		for i := range headers {
			headers[i] = columnName(i)
		}
	}
	if len(headers) == 0 {
		return errors.New(errors.ErrorTypeData, "CSV file has no columns").
			WithDetail("path", s.settings.Path)
	}

	s.schema = s.inferrer.InferColumns("csv", headers, s.pending)
	s.columns = make([]int, len(headers))
	for i := range s.columns {
		s.columns[i] = i
	}
	return nil
}

func columnName(i int) string {
	return fmt.Sprintf("column_%d", i)
}

func (s *CSVSource) readRow() ([]string, error) {
	row, err := s.reader.Read()
	if err == nil {
		s.lines.Add(1)
	}
	return row, err
}

// next returns sampled rows first, then the rest of the file
func (s *CSVSource) next() ([]string, error) {
	if len(s.pending) > 0 {
		row := s.pending[0]
		s.pending = s.pending[1:]
		return row, nil
	}
	return s.readRow()
}

// record converts one CSV row into a typed record
func (s *CSVSource) record(row []string) (*pool.Record, error) {
	offset := s.recordsRead.Add(1)
	rec := pool.NewRecord("csv", offset)
	for i, f := range s.schema.Fields {
		col := s.columns[i]
		if col >= len(row) || s.inferrer.IsNull(row[col]) {
			continue
		}
		v, err := schema.ParseCell(f.Type, row[col])
		if err != nil {
			rec.Release()
			return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid CSV cell").
				WithDetail("record", offset).
				WithDetail("column", f.Name)
		}
		rec.SetData(f.Name, v)
	}
	return rec, nil
}

// Discover returns the schema settled during Initialize
func (s *CSVSource) Discover(ctx context.Context) (*core.Schema, error) {
	if s.schema == nil {
		return nil, errors.New(errors.ErrorTypeData, "schema not discovered yet")
	}
	return s.schema, nil
}

func (s *CSVSource) start() error {
	if s.reader == nil {
		return errors.New(errors.ErrorTypeValidation, "csv source is not initialized")
	}
	if !s.started.CompareAndSwap(false, true) {
		return errors.New(errors.ErrorTypeValidation, "csv source can only be read once")
	}
	return nil
}

// Read returns a stream of records from the CSV file
func (s *CSVSource) Read(ctx context.Context) (*core.RecordStream, error) {
	if err := s.start(); err != nil {
		return nil, err
	}

	recordChan := make(chan *pool.Record, s.config.Performance.BufferSize)
	errorChan := make(chan error, 1)

	go func() {
		defer close(recordChan)
		defer close(errorChan)

		for {
			row, err := s.next()
			if err == io.EOF {
				return
			}
			if err != nil {
				errorChan <- errors.Wrap(err, errors.ErrorTypeData, "failed to read CSV row")
				return
			}
			rec, err := s.record(row)
			if err != nil {
				errorChan <- err
				return
			}

			select {
			case recordChan <- rec:
			case <-ctx.Done():
				rec.Release()
				return
			}
		}
	}()

	return &core.RecordStream{Records: recordChan, Errors: errorChan}, nil
}

// ReadBatch returns batches of records from the CSV file
func (s *CSVSource) ReadBatch(ctx context.Context, batchSize int) (*core.BatchStream, error) {
	if err := s.start(); err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = s.config.Performance.BatchSize
	}

	batchChan := make(chan []*pool.Record, 1)
	errorChan := make(chan error, 1)

	go func() {
		defer close(batchChan)
		defer close(errorChan)

		batch := pool.GetBatchSlice(batchSize)
		flush := func() bool {
			if len(batch) == 0 {
				pool.PutBatchSlice(batch)
				return true
			}
			select {
			case batchChan <- batch:
				batch = pool.GetBatchSlice(batchSize)
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			row, err := s.next()
			if err == io.EOF {
				flush()
				return
			}
			if err != nil {
				errorChan <- errors.Wrap(err, errors.ErrorTypeData, "failed to read CSV row")
				return
			}
			rec, err := s.record(row)
			if err != nil {
				errorChan <- err
				return
			}
			batch = append(batch, rec)
			if len(batch) >= batchSize && !flush() {
				return
			}
		}
	}()

	return &core.BatchStream{Batches: batchChan, Errors: errorChan}, nil
}

// SupportsIncremental returns false; the file is always read whole
func (s *CSVSource) SupportsIncremental() bool { return false }

// SupportsRealtime returns false since CSV is not real-time
func (s *CSVSource) SupportsRealtime() bool { return false }

// SupportsBatch returns true since CSV supports batch reads
func (s *CSVSource) SupportsBatch() bool { return true }

// Close closes the CSV file
func (s *CSVSource) Close(ctx context.Context) error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close CSV file")
	}
	return nil
}

// Health checks the health of the source
func (s *CSVSource) Health(ctx context.Context) error {
	if s.file == nil {
		return errors.New(errors.ErrorTypeValidation, "file not opened")
	}
	return nil
}

// Metrics returns metrics for the source
func (s *CSVSource) Metrics() map[string]interface{} {
	return map[string]interface{}{
		"type":         "csv",
		"records_read": s.recordsRead.Load(),
		"lines_read":   s.lines.Load(),
	}
}
