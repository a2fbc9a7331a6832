package chart

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-chart/pkg/connector/core"
	"github.com/ajitpratap0/nebula-chart/pkg/connector/registry"
	"github.com/ajitpratap0/nebula-chart/pkg/errors"
	"github.com/ajitpratap0/nebula-chart/pkg/pool"
)

func records(pairs ...int64) []*pool.Record {
	var out []*pool.Record
	for i := 0; i+1 < len(pairs); i += 2 {
		r := pool.NewRecord("test", int64(i/2))
		r.SetData("c1", pairs[i])
		r.SetData("c2", pairs[i+1])
		out = append(out, r)
	}
	return out
}

func batchStream(batches ...[]*pool.Record) *core.BatchStream {
	ch := make(chan []*pool.Record, len(batches))
	for _, b := range batches {
		ch <- b
	}
	close(ch)
	return &core.BatchStream{Batches: ch, Errors: make(chan error)}
}

func newTestDestination(t *testing.T, props map[string]interface{}, rec *recordingPresenter) *ChartDestination {
	t.Helper()
	cfg := chartConfig(props)
	d, err := NewChartDestinationWithOptions(cfg, WithPresenters(func(*PluginTask) []Presenter {
		return []Presenter{rec}
	}))
	require.NoError(t, err)
	require.NoError(t, d.Initialize(context.Background(), cfg))
	return d
}

func TestChartDestinationWriteBatch(t *testing.T) {
	ctx := context.Background()
	rec := newRecordingPresenter()
	d := newTestDestination(t, lineProperties(), rec)
	require.NoError(t, d.CreateSchema(ctx, intSchema("c1", "c2")))

	require.NoError(t, d.WriteBatch(ctx, batchStream(records(1, 2), records(3, 4))))
	require.NoError(t, d.Close(ctx))

	require.Len(t, rec.charts, 1)
	c := <-rec.charts
	assert.Equal(t, ints(1, 2, 3, 4), c.Series[0].Points)

	m := d.Metrics()
	assert.Equal(t, int64(2), m["rows_buffered"])
	assert.Equal(t, int64(2), m["points_emitted"])
}

func TestChartDestinationWriteStream(t *testing.T) {
	ctx := context.Background()
	rec := newRecordingPresenter()
	props := lineProperties()
	props["serieses"] = []interface{}{
		map[string]interface{}{"name": "even", "x": "c1", "y": "c2"},
		map[string]interface{}{"name": "odd", "x": "c1", "y": "c2"},
	}
	props["series_mapping_rule"] = []interface{}{
		map[string]interface{}{"column": "c1", "value": 2, "series": "even"},
		map[string]interface{}{"column": "c1", "value": 1, "series": "odd"},
	}
	d := newTestDestination(t, props, rec)
	d.config.Performance.BatchSize = 1
	require.NoError(t, d.CreateSchema(ctx, intSchema("c1", "c2")))

	ch := make(chan *pool.Record, 2)
	for _, r := range records(1, 10, 2, 20) {
		ch <- r
	}
	close(ch)

	require.NoError(t, d.Write(ctx, &core.RecordStream{Records: ch, Errors: make(chan error)}))
	require.NoError(t, d.Close(ctx))

	c := <-rec.charts
	require.Len(t, c.Series, 2)
	assert.Equal(t, ints(2, 20), c.Series[0].Points)
	assert.Equal(t, ints(1, 10), c.Series[1].Points)
}

func TestChartDestinationStreamError(t *testing.T) {
	ctx := context.Background()
	rec := newRecordingPresenter()
	d := newTestDestination(t, lineProperties(), rec)
	require.NoError(t, d.CreateSchema(ctx, intSchema("c1", "c2")))

	errs := make(chan error, 1)
	errs <- errors.New(errors.ErrorTypeData, "source broke")
	err := d.WriteBatch(ctx, &core.BatchStream{Batches: make(chan []*pool.Record), Errors: errs})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "source broke")
	require.NoError(t, d.Close(ctx))
	assert.Empty(t, rec.charts)
}

func TestChartDestinationRejectsMistypedRecords(t *testing.T) {
	ctx := context.Background()
	d := newTestDestination(t, lineProperties(), newRecordingPresenter())
	require.NoError(t, d.CreateSchema(ctx, intSchema("c1", "c2")))

	r := pool.NewRecord("test", 0)
	r.SetData("c1", "one")
	err := d.WriteBatch(ctx, batchStream([]*pool.Record{r}))

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestChartDestinationRequiresSchema(t *testing.T) {
	d := newTestDestination(t, lineProperties(), newRecordingPresenter())

	err := d.WriteBatch(context.Background(), batchStream())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no schema")
}

func TestChartDestinationInitializeValidates(t *testing.T) {
	props := lineProperties()
	delete(props, "serieses")
	cfg := chartConfig(props)

	d, err := NewChartDestination(cfg)
	require.NoError(t, err)
	err = d.Initialize(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestChartDestinationCapabilities(t *testing.T) {
	ctx := context.Background()
	d := newTestDestination(t, lineProperties(), newRecordingPresenter())

	assert.True(t, d.SupportsBatch())
	assert.True(t, d.SupportsStreaming())
	assert.False(t, d.SupportsUpsert())
	assert.False(t, d.SupportsTransactions())
	assert.False(t, d.SupportsBulkLoad())
	assert.NoError(t, d.Health(ctx))

	for _, err := range []error{
		d.Upsert(ctx, nil, nil),
		d.BulkLoad(ctx, nil, "csv"),
		d.AlterSchema(ctx, nil, nil),
		d.DropSchema(ctx, nil),
	} {
		assert.True(t, errors.IsType(err, errors.ErrorTypeCapability))
	}
	_, err := d.BeginTransaction(ctx)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCapability))
}

func TestChartDestinationWritesImage(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out.png")
	props := lineProperties()
	props["output"] = map[string]interface{}{"path": path}
	cfg := chartConfig(props)

	d, err := NewChartDestination(cfg)
	require.NoError(t, err)
	require.NoError(t, d.Initialize(ctx, cfg))
	require.NoError(t, d.CreateSchema(ctx, intSchema("c1", "c2")))
	require.NoError(t, d.WriteBatch(ctx, batchStream(records(1, 2, 3, 4))))
	require.NoError(t, d.Close(ctx))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data[:4])
}

func TestChartRegistered(t *testing.T) {
	assert.True(t, registry.Has(registry.KindDestination, "chart"))
	assert.False(t, registry.Has(registry.KindSource, "chart"))

	info, err := registry.Info(registry.KindDestination, "chart")
	require.NoError(t, err)
	assert.Equal(t, registry.KindDestination, info.Kind)
	assert.Contains(t, info.ConfigSchema, "series_mapping_rule")
}
