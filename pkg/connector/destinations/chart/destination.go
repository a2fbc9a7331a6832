package chart

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-chart/pkg/config"
	"github.com/ajitpratap0/nebula-chart/pkg/connector/core"
	"github.com/ajitpratap0/nebula-chart/pkg/errors"
	"github.com/ajitpratap0/nebula-chart/pkg/logger"
	"github.com/ajitpratap0/nebula-chart/pkg/pool"
)

// ChartDestination drives the chart output plugin from the record runner.
// One WriteBatch or Write call is one transaction with a single task; the
// records it receives are released once they are buffered.
type ChartDestination struct {
	config *config.BaseConfig
	schema *core.Schema
	plugin *OutputPlugin
	opts   []Option
	logger *zap.Logger
}

// NewChartDestination creates a new chart destination
func NewChartDestination(cfg *config.BaseConfig) (core.Destination, error) {
	return NewChartDestinationWithOptions(cfg)
}

// NewChartDestinationWithOptions creates a chart destination whose plugin
// is built with opts
func NewChartDestinationWithOptions(cfg *config.BaseConfig, opts ...Option) (*ChartDestination, error) {
	return &ChartDestination{
		config: cfg,
		opts:   opts,
		logger: logger.Get(),
	}, nil
}

// Initialize validates the chart configuration before any record is read
func (d *ChartDestination) Initialize(ctx context.Context, cfg *config.BaseConfig) error {
	d.config = cfg
	if _, err := LoadTask(cfg); err != nil {
		return err
	}
	d.logger = logger.WithContext(ctx).With(zap.String("destination", cfg.Name))
	d.plugin = NewOutputPlugin(cfg.Name, d.logger, d.opts...)
	return nil
}

// CreateSchema fixes the column layout of incoming records
func (d *ChartDestination) CreateSchema(ctx context.Context, schema *core.Schema) error {
	d.schema = schema
	return nil
}

// Write buffers a record stream and presents the chart when it ends
func (d *ChartDestination) Write(ctx context.Context, stream *core.RecordStream) error {
	batchSize := d.config.Performance.BatchSize
	return d.run(ctx, func(add func([]*pool.Record) error) error {
		batch := pool.GetBatchSlice(batchSize)
		defer func() { pool.PutBatchSlice(batch) }()

		errs := stream.Errors

		for {
			select {
			case record, ok := <-stream.Records:
				if !ok {
					return add(batch)
				}
				batch = append(batch, record)
				if len(batch) >= batchSize {
					if err := add(batch); err != nil {
						return err
					}
					batch = batch[:0]
				}
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				if err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}

// WriteBatch buffers a batch stream and presents the chart when it ends
func (d *ChartDestination) WriteBatch(ctx context.Context, stream *core.BatchStream) error {
	return d.run(ctx, func(add func([]*pool.Record) error) error {
		errs := stream.Errors
		for {
			select {
			case batch, ok := <-stream.Batches:
				if !ok {
					return nil
				}
				err := add(batch)
				pool.PutBatchSlice(batch)
				if err != nil {
					return err
				}
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				if err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}

// run executes one transaction whose single task is fed by consume
func (d *ChartDestination) run(ctx context.Context, consume func(add func([]*pool.Record) error) error) error {
	if d.plugin == nil {
		return errors.New(errors.ErrorTypeValidation, "chart destination is not initialized")
	}
	if d.schema == nil {
		return errors.New(errors.ErrorTypeValidation, "chart destination has no schema")
	}

	control := func(ctx context.Context, ts core.TaskSource) ([]core.TaskReport, error) {
		out, err := d.plugin.Open(ctx, ts, d.schema, 0)
		if err != nil {
			return nil, err
		}
		defer out.Close()

		err = consume(func(records []*pool.Record) error {
			if len(records) == 0 {
				return nil
			}
			page, err := core.PageFromRecords(d.schema, records)
			for _, r := range records {
				r.Release()
			}
			if err != nil {
				return err
			}
			return out.Add(ctx, page)
		})
		if err != nil {
			out.Abort()
			return nil, err
		}

		if err := out.Finish(ctx); err != nil {
			out.Abort()
			return nil, err
		}
		report, err := out.Commit()
		if err != nil {
			return nil, err
		}
		return []core.TaskReport{report}, nil
	}

	_, err := d.plugin.Transaction(ctx, d.config, d.schema, 1, control)
	return err
}

// Close waits for started presentations to end
func (d *ChartDestination) Close(ctx context.Context) error {
	if d.plugin == nil {
		return nil
	}
	return d.plugin.Wait(ctx)
}

// SupportsBulkLoad returns whether the destination supports bulk loading
func (d *ChartDestination) SupportsBulkLoad() bool { return false }

// SupportsTransactions returns whether the destination supports transactions
func (d *ChartDestination) SupportsTransactions() bool { return false }

// SupportsUpsert returns whether the destination supports upsert
func (d *ChartDestination) SupportsUpsert() bool { return false }

// SupportsBatch returns whether the destination supports batch writing
func (d *ChartDestination) SupportsBatch() bool { return true }

// SupportsStreaming returns whether the destination supports streaming
func (d *ChartDestination) SupportsStreaming() bool { return true }

// BulkLoad is not supported
func (d *ChartDestination) BulkLoad(ctx context.Context, reader interface{}, format string) error {
	return errors.New(errors.ErrorTypeCapability, "bulk load not supported")
}

// BeginTransaction is not supported
func (d *ChartDestination) BeginTransaction(ctx context.Context) (core.Transaction, error) {
	return nil, errors.New(errors.ErrorTypeCapability, "transactions not supported")
}

// Upsert is not supported
func (d *ChartDestination) Upsert(ctx context.Context, records []*pool.Record, keys []string) error {
	return errors.New(errors.ErrorTypeCapability, "upsert not supported")
}

// AlterSchema is not supported
func (d *ChartDestination) AlterSchema(ctx context.Context, oldSchema, newSchema *core.Schema) error {
	return errors.New(errors.ErrorTypeCapability, "schema alteration not supported")
}

// DropSchema is not supported
func (d *ChartDestination) DropSchema(ctx context.Context, schema *core.Schema) error {
	return errors.New(errors.ErrorTypeCapability, "schema drop not supported")
}

// Health checks the health of the destination
func (d *ChartDestination) Health(ctx context.Context) error {
	if d.plugin == nil {
		return errors.New(errors.ErrorTypeValidation, "chart destination is not initialized")
	}
	return nil
}

// Metrics returns metrics for the destination
func (d *ChartDestination) Metrics() map[string]interface{} {
	m := map[string]interface{}{
		"type": "chart",
	}
	if d.plugin != nil {
		rows, series, points := d.plugin.Stats()
		m["rows_buffered"] = rows
		m["series"] = series
		m["points_emitted"] = points
	}
	return m
}
