// Package json provides a line-delimited (or array) JSON file source
package json

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync/atomic"

	gojson "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-chart/pkg/config"
	"github.com/ajitpratap0/nebula-chart/pkg/connector/core"
	"github.com/ajitpratap0/nebula-chart/pkg/errors"
	jsonpool "github.com/ajitpratap0/nebula-chart/pkg/json"
	"github.com/ajitpratap0/nebula-chart/pkg/logger"
	"github.com/ajitpratap0/nebula-chart/pkg/pool"
	"github.com/ajitpratap0/nebula-chart/pkg/schema"
)

// JSONFormat represents the JSON file format
type JSONFormat string

const (
	// JSONArray represents a file containing a JSON array of objects
	JSONArray JSONFormat = "array"
	// JSONLines represents line-delimited JSON (JSONL/NDJSON)
	JSONLines JSONFormat = "lines"
)

// JSONSource reads typed records from a JSON file
type JSONSource struct {
	config   *config.BaseConfig
	settings config.JSONSourceConfig
	format   JSONFormat
	logger   *zap.Logger
	inferrer *schema.Inferrer

	file    *os.File
	decoder *gojson.Decoder
	schema  *core.Schema

	// pending holds objects consumed while sampling for inference
	pending []map[string]interface{}

	recordsRead atomic.Int64
	started     atomic.Bool
}

// NewJSONSource creates a new JSON source
func NewJSONSource(cfg *config.BaseConfig) (core.Source, error) {
	return &JSONSource{config: cfg}, nil
}

// Initialize opens the file and settles the schema
func (s *JSONSource) Initialize(ctx context.Context, cfg *config.BaseConfig) error {
	s.config = cfg
	s.logger = logger.WithContext(ctx).With(zap.String("connector", "json"), zap.String("source", cfg.Name))

	if err := config.DecodeProperties(cfg, &s.settings); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid json source configuration")
	}
	if s.settings.Path == "" {
		s.settings.Path = cfg.Security.Credentials["path"]
	}
	if s.settings.Path == "" {
		return errors.New(errors.ErrorTypeConfig, "json source requires a path")
	}
	switch JSONFormat(s.settings.Format) {
	case "":
		s.format = JSONLines
	case JSONLines, JSONArray:
		s.format = JSONFormat(s.settings.Format)
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unknown json format %q (expected lines or array)", s.settings.Format)
	}
	if s.settings.SampleSize <= 0 {
		s.settings.SampleSize = schema.DefaultSampleSize
	}
	s.inferrer = schema.NewInferrer(s.logger, nil)

	file, err := os.Open(s.settings.Path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to open JSON file").
			WithDetail("path", s.settings.Path)
	}
	s.file = file
	s.decoder = jsonpool.NewDecoder(bufio.NewReaderSize(file, 64*1024))

	if s.format == JSONArray {
		if err := s.openArray(); err != nil {
			s.file.Close()
			return err
		}
	}

	if err := s.resolveSchema(); err != nil {
		s.file.Close()
		return err
	}

	s.logger.Info("JSON source initialized",
		zap.String("file", s.settings.Path),
		zap.String("format", string(s.format)),
		zap.Int("columns", len(s.schema.Fields)))
	return nil
}

func (s *JSONSource) openArray() error {
	tok, err := s.decoder.Token()
	if err == io.EOF {
		return errors.New(errors.ErrorTypeData, "JSON file is empty")
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to read JSON array")
	}
	if delim, ok := tok.(gojson.Delim); !ok || delim != '[' {
		return errors.New(errors.ErrorTypeData, "expected JSON array")
	}
	return nil
}

func (s *JSONSource) resolveSchema() error {
	if len(s.settings.Columns) > 0 {
		sch, err := schema.FromColumns("json", s.settings.Columns)
		if err != nil {
			return err
		}
		s.schema = sch
		return nil
	}

	for len(s.pending) < s.settings.SampleSize {
		obj, err := s.decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		s.pending = append(s.pending, obj)
	}
	s.schema = s.inferrer.InferObjects("json", s.pending)
	if len(s.schema.Fields) == 0 {
		return errors.New(errors.ErrorTypeData, "JSON file has no fields to infer").
			WithDetail("path", s.settings.Path)
	}
	return nil
}

// decode reads the next object from the file
func (s *JSONSource) decode() (map[string]interface{}, error) {
	if s.format == JSONArray && !s.decoder.More() {
		return nil, io.EOF
	}
	var obj map[string]interface{}
	if err := s.decoder.Decode(&obj); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode JSON object").
			WithDetail("record", s.recordsRead.Load()+int64(len(s.pending))+1)
	}
	return obj, nil
}

func (s *JSONSource) next() (map[string]interface{}, error) {
	if len(s.pending) > 0 {
		obj := s.pending[0]
		s.pending = s.pending[1:]
		return obj, nil
	}
	return s.decode()
}

// record converts one object into a typed record; keys outside the schema
// are dropped
func (s *JSONSource) record(obj map[string]interface{}) (*pool.Record, error) {
	offset := s.recordsRead.Add(1)
	rec := pool.NewRecord("json", offset)
	for _, f := range s.schema.Fields {
		raw, ok := obj[f.Name]
		if !ok || raw == nil {
			continue
		}
		v, err := schema.ConvertValue(f.Type, raw)
		if err != nil {
			rec.Release()
			return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid JSON value").
				WithDetail("record", offset).
				WithDetail("column", f.Name)
		}
		rec.SetData(f.Name, v)
	}
	return rec, nil
}

// Discover returns the schema settled during Initialize
func (s *JSONSource) Discover(ctx context.Context) (*core.Schema, error) {
	if s.schema == nil {
		return nil, errors.New(errors.ErrorTypeData, "schema not discovered yet")
	}
	return s.schema, nil
}

func (s *JSONSource) start() error {
	if s.decoder == nil {
		return errors.New(errors.ErrorTypeValidation, "json source is not initialized")
	}
	if !s.started.CompareAndSwap(false, true) {
		return errors.New(errors.ErrorTypeValidation, "json source can only be read once")
	}
	return nil
}

// Read returns a stream of records from the JSON file
func (s *JSONSource) Read(ctx context.Context) (*core.RecordStream, error) {
	if err := s.start(); err != nil {
		return nil, err
	}

	recordChan := make(chan *pool.Record, s.config.Performance.BufferSize)
	errorChan := make(chan error, 1)

	go func() {
		defer close(recordChan)
		defer close(errorChan)

		for {
			obj, err := s.next()
			if err == io.EOF {
				return
			}
			if err != nil {
				errorChan <- err
				return
			}
			rec, err := s.record(obj)
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

// ReadBatch returns batches of records from the JSON file
func (s *JSONSource) ReadBatch(ctx context.Context, batchSize int) (*core.BatchStream, error) {
	records, err := s.Read(ctx)
	if err != nil {
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
		send := func() bool {
			select {
			case batchChan <- batch:
				batch = pool.GetBatchSlice(batchSize)
				return true
			case <-ctx.Done():
				return false
			}
		}

		for rec := range records.Records {
			batch = append(batch, rec)
			if len(batch) >= batchSize && !send() {
				return
			}
		}
		if err := <-records.Errors; err != nil {
			errorChan <- err
			return
		}
		if len(batch) > 0 {
			send()
			return
		}
		pool.PutBatchSlice(batch)
	}()

	return &core.BatchStream{Batches: batchChan, Errors: errorChan}, nil
}

// SupportsIncremental returns false; the file is always read whole
func (s *JSONSource) SupportsIncremental() bool { return false }

// SupportsRealtime returns false
func (s *JSONSource) SupportsRealtime() bool { return false }

// SupportsBatch returns true
func (s *JSONSource) SupportsBatch() bool { return true }

// Close closes the JSON file
func (s *JSONSource) Close(ctx context.Context) error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close JSON file")
	}
	return nil
}

// Health checks the health of the source
func (s *JSONSource) Health(ctx context.Context) error {
	if s.file == nil {
		return errors.New(errors.ErrorTypeValidation, "file not opened")
	}
	return nil
}

// Metrics returns metrics for the source
func (s *JSONSource) Metrics() map[string]interface{} {
	return map[string]interface{}{
		"type":         "json",
		"format":       string(s.format),
		"records_read": s.recordsRead.Load(),
	}
}
