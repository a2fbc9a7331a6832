// Package pipeline runs one extract and load job for nebula-chart: records
// stream from a source connector, are grouped into batches, and are handed
// to a destination connector as a single batch stream.
//
// # Basic Usage
//
//	p := pipeline.NewSimplePipeline(csvSource, chartDestination, &pipeline.PipelineConfig{
//	    BatchSize:       1000,
//	    SourceName:      "sales",
//	    DestinationName: "sales-chart",
//	}, logger)
//
//	p.AddTransform(pipeline.FilterTransform(func(r *pool.Record) bool {
//	    _, ok := r.GetData("units")
//	    return ok
//	}))
//
//	err := p.Run(ctx)
//
// Records keep their source order end to end. Transforms run on the reader
// goroutine, so ordinal series built by the chart destination see rows in
// the order the source produced them.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-chart/pkg/connector/core"
	"github.com/ajitpratap0/nebula-chart/pkg/errors"
	"github.com/ajitpratap0/nebula-chart/pkg/metrics"
	"github.com/ajitpratap0/nebula-chart/pkg/pool"
)

// SimplePipeline moves every record of a source into a destination
type SimplePipeline struct {
	source      core.Source
	destination core.Destination
	transforms  []Transform

	sourceName      string
	destinationName string

	batchSize     int
	bufferSize    int
	flushInterval time.Duration

	recordsProcessed atomic.Int64
	recordsFailed    atomic.Int64
	startTime        time.Time

	logger *zap.Logger
}

// Transform modifies a record in flight. Returning a nil record drops it.
type Transform func(ctx context.Context, record *pool.Record) (*pool.Record, error)

// PipelineConfig contains pipeline configuration parameters
type PipelineConfig struct {
	BatchSize     int           // Records per destination batch
	BufferSize    int           // Capacity of the record channel between reader and batcher
	FlushInterval time.Duration // Partial batches are flushed at this interval

	SourceName      string // Label used in metrics and logs
	DestinationName string
}

// DefaultPipelineConfig returns the configuration used when none is given
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		BatchSize:     1000,
		BufferSize:    2000,
		FlushInterval: 10 * time.Second,
	}
}

// NewSimplePipeline creates a pipeline. Zero-valued settings in config are
// replaced by DefaultPipelineConfig values.
func NewSimplePipeline(source core.Source, destination core.Destination, config *PipelineConfig, logger *zap.Logger) *SimplePipeline {
	defaults := DefaultPipelineConfig()
	if config == nil {
		config = defaults
	}

	p := &SimplePipeline{
		source:          source,
		destination:     destination,
		sourceName:      config.SourceName,
		destinationName: config.DestinationName,
		batchSize:       config.BatchSize,
		bufferSize:      config.BufferSize,
		flushInterval:   config.FlushInterval,
		logger:          logger.With(zap.String("component", "pipeline")),
	}
	if p.batchSize <= 0 {
		p.batchSize = defaults.BatchSize
	}
	if p.bufferSize <= 0 {
		p.bufferSize = p.batchSize * 2
	}
	if p.flushInterval <= 0 {
		p.flushInterval = defaults.FlushInterval
	}
	return p
}

// AddTransform appends a transform. Transforms run in the order they were added.
func (p *SimplePipeline) AddTransform(transform Transform) {
	p.transforms = append(p.transforms, transform)
}

// Run discovers the source schema, hands it to the destination and streams
// all records through. It returns once the destination has consumed the
// whole stream. A source or transform failure is forwarded to the
// destination as a stream error so that it aborts instead of committing.
func (p *SimplePipeline) Run(ctx context.Context) error {
	p.startTime = time.Now()
	p.logger.Info("starting pipeline",
		zap.String("source", p.sourceName),
		zap.String("destination", p.destinationName),
		zap.Int("batch_size", p.batchSize),
		zap.Int("transforms", len(p.transforms)))

	schema, err := p.source.Discover(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to discover source schema")
	}
	if err := p.destination.CreateSchema(ctx, schema); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize destination schema")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := p.source.Read(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to start source read")
	}

	recordChan := make(chan *pool.Record, p.bufferSize)
	batchChan := make(chan []*pool.Record, 4)
	destErrors := make(chan error, 1)

	// readErr is written before recordChan is closed; sourceErr is the
	// reader failure the batcher forwarded to the destination
	var readErr, sourceErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer close(recordChan)
		readErr = p.readSource(ctx, stream, recordChan)
	}()
	go func() {
		defer wg.Done()
		sourceErr = p.batchCollector(ctx, recordChan, batchChan, destErrors, func() error { return readErr })
	}()

	writeErr := p.destination.WriteBatch(ctx, &core.BatchStream{
		Batches: batchChan,
		Errors:  destErrors,
	})

	// Unblock the reader and batcher when the destination stopped early
	cancel()
	wg.Wait()

	duration := time.Since(p.startTime)
	processed := p.recordsProcessed.Load()

	if writeErr != nil {
		metrics.RecordsProcessed.WithLabelValues(p.sourceName, p.destinationName, "failure").Add(float64(processed))
		p.logger.Error("pipeline failed",
			zap.Int64("records_processed", processed),
			zap.Int64("records_failed", p.recordsFailed.Load()),
			zap.Duration("duration", duration),
			zap.Error(writeErr))
		if sourceErr != nil {
			return sourceErr
		}
		return fmt.Errorf("destination write failed: %w", writeErr)
	}

	metrics.RecordsProcessed.WithLabelValues(p.sourceName, p.destinationName, "success").Add(float64(processed))
	p.logger.Info("pipeline completed",
		zap.Int64("records_processed", processed),
		zap.Int64("records_failed", p.recordsFailed.Load()),
		zap.Duration("duration", duration),
		zap.Float64("throughput_rps", float64(processed)/duration.Seconds()))

	return nil
}

// readSource forwards source records through the transforms. It returns the
// first source or transform error.
func (p *SimplePipeline) readSource(ctx context.Context, stream *core.RecordStream, out chan<- *pool.Record) error {
	errs := stream.Errors
	for {
		select {
		case record, ok := <-stream.Records:
			if !ok {
				// Sources close Errors before Records; pick up a pending failure
				select {
				case err := <-errs:
					if err != nil {
						p.recordsFailed.Add(1)
						return fmt.Errorf("source error: %w", err)
					}
				default:
				}
				p.logger.Debug("source stream closed")
				return nil
			}

			transformed, err := p.transform(ctx, record)
			if err != nil {
				p.recordsFailed.Add(1)
				record.Release()
				return err
			}
			if transformed == nil {
				continue
			}

			select {
			case out <- transformed:
			case <-ctx.Done():
				return ctx.Err()
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				p.recordsFailed.Add(1)
				return fmt.Errorf("source error: %w", err)
			}

		case <-ctx.Done():
			p.logger.Debug("source reader cancelled")
			return ctx.Err()
		}
	}
}

func (p *SimplePipeline) transform(ctx context.Context, record *pool.Record) (*pool.Record, error) {
	current := record
	for i, transform := range p.transforms {
		result, err := transform(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("transform %d failed: %w", i, err)
		}
		if result == nil {
			current.Release()
			return nil, nil
		}
		current = result
	}
	return current, nil
}

// batchCollector groups records into batches. When the reader ends with an
// error, the error is sent to the destination and the batch channel is
// left open so the destination cannot mistake the failure for end of stream.
// The forwarded error is returned.
func (p *SimplePipeline) batchCollector(ctx context.Context, in <-chan *pool.Record, out chan<- []*pool.Record, errs chan<- error, readErr func() error) error {
	batch := pool.GetBatchSlice(p.batchSize)
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	flush := func() bool {
		if len(batch) == 0 {
			return true
		}
		select {
		case out <- batch:
			p.recordsProcessed.Add(int64(len(batch)))
			batch = pool.GetBatchSlice(p.batchSize)
			return true
		case <-ctx.Done():
			return false
		}
	}
	discard := func() {
		for _, r := range batch {
			r.Release()
		}
		pool.PutBatchSlice(batch)
	}

	for {
		select {
		case record, ok := <-in:
			if !ok {
				if err := readErr(); err != nil && ctx.Err() == nil {
					discard()
					errs <- err
					return err
				}
				if !flush() {
					discard()
					return nil
				}
				pool.PutBatchSlice(batch)
				close(out)
				p.logger.Debug("batch collector finished")
				return nil
			}

			batch = append(batch, record)
			if len(batch) >= p.batchSize && !flush() {
				discard()
				return nil
			}

		case <-ticker.C:
			if !flush() {
				discard()
				return nil
			}

		case <-ctx.Done():
			discard()
			p.logger.Debug("batch collector cancelled")
			return nil
		}
	}
}

// Metrics returns pipeline metrics
func (p *SimplePipeline) Metrics() map[string]interface{} {
	duration := time.Since(p.startTime)
	processed := p.recordsProcessed.Load()

	return map[string]interface{}{
		"records_processed": processed,
		"records_failed":    p.recordsFailed.Load(),
		"duration":          duration.String(),
		"throughput_rps":    float64(processed) / duration.Seconds(),
		"batch_size":        p.batchSize,
		"flush_interval_ms": p.flushInterval.Milliseconds(),
		"transform_count":   len(p.transforms),
	}
}

// FieldMapperTransform renames fields according to mapping. Unmapped fields
// are preserved.
func FieldMapperTransform(mapping map[string]string) Transform {
	return func(ctx context.Context, record *pool.Record) (*pool.Record, error) {
		if record.Data == nil {
			return record, nil
		}

		newData := pool.GetMap()
		for field, value := range record.Data {
			if renamed, ok := mapping[field]; ok {
				newData[renamed] = value
				continue
			}
			if _, taken := newData[field]; !taken {
				newData[field] = value
			}
		}

		old := record.Data
		record.Data = newData
		pool.PutMap(old)
		return record, nil
	}
}

// FilterTransform keeps the records for which predicate returns true
func FilterTransform(predicate func(*pool.Record) bool) Transform {
	return func(ctx context.Context, record *pool.Record) (*pool.Record, error) {
		if predicate(record) {
			return record, nil
		}
		return nil, nil
	}
}
