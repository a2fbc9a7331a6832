package csv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-chart/pkg/config"
	"github.com/ajitpratap0/nebula-chart/pkg/connector/core"
	"github.com/ajitpratap0/nebula-chart/pkg/connector/registry"
	"github.com/ajitpratap0/nebula-chart/pkg/errors"
	"github.com/ajitpratap0/nebula-chart/pkg/pool"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newSource(t *testing.T, props map[string]interface{}) *CSVSource {
	t.Helper()
	cfg := config.NewBaseConfig("csv-test", "csv")
	cfg.Properties = props
	src, err := NewCSVSource(cfg)
	require.NoError(t, err)
	require.NoError(t, src.Initialize(context.Background(), cfg))
	t.Cleanup(func() { _ = src.Close(context.Background()) })
	return src.(*CSVSource)
}

func drain(t *testing.T, stream *core.RecordStream) ([]*pool.Record, error) {
	t.Helper()
	var out []*pool.Record
	for r := range stream.Records {
		out = append(out, r)
	}
	return out, <-stream.Errors
}

func TestCSVSourceInfersTypes(t *testing.T) {
	path := writeFile(t, "month,units,price\njan,1,1.5\nfeb,2,\nmar,3,2\n")
	src := newSource(t, map[string]interface{}{"path": path})

	schema, err := src.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, schema.Fields, 3)
	assert.Equal(t, core.FieldTypeString, schema.Fields[0].Type)
	assert.Equal(t, core.FieldTypeInt, schema.Fields[1].Type)
	assert.Equal(t, core.FieldTypeFloat, schema.Fields[2].Type)

	stream, err := src.Read(context.Background())
	require.NoError(t, err)
	records, err := drain(t, stream)
	require.NoError(t, err)
	require.Len(t, records, 3)

	units, _ := records[0].GetData("units")
	assert.Equal(t, int64(1), units)
	_, ok := records[1].GetData("price")
	assert.False(t, ok, "empty cells are nulls")
	month, _ := records[2].GetData("month")
	assert.Equal(t, "mar", month)
}

func TestCSVSourceDeclaredColumns(t *testing.T) {
	path := writeFile(t, "a;b;c\n1;x;2.5\n2;y;NA\n")
	src := newSource(t, map[string]interface{}{
		"path":        path,
		"delimiter":   ";",
		"null_values": []interface{}{"NA"},
		"columns": []interface{}{
			map[string]interface{}{"name": "c", "type": "double"},
			map[string]interface{}{"name": "a", "type": "long"},
		},
	})

	schema, err := src.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "c", schema.Fields[0].Name)
	assert.Equal(t, core.FieldTypeInt, schema.Fields[1].Type)

	stream, err := src.ReadBatch(context.Background(), 10)
	require.NoError(t, err)
	var records []*pool.Record
	for batch := range stream.Batches {
		records = append(records, batch...)
	}
	require.NoError(t, <-stream.Errors)
	require.Len(t, records, 2)

	c, _ := records[0].GetData("c")
	assert.Equal(t, 2.5, c)
	_, ok := records[0].GetData("b")
	assert.False(t, ok, "undeclared columns are dropped")
	_, ok = records[1].GetData("c")
	assert.False(t, ok)
}

func TestCSVSourceWithoutHeader(t *testing.T) {
	path := writeFile(t, "1,2\n3,4\n")
	src := newSource(t, map[string]interface{}{"path": path, "has_header": false})

	schema, err := src.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "column_0", schema.Fields[0].Name)
	assert.Equal(t, "column_1", schema.Fields[1].Name)

	stream, err := src.Read(context.Background())
	require.NoError(t, err)
	records, err := drain(t, stream)
	require.NoError(t, err)
	require.Len(t, records, 2)
	v, _ := records[1].GetData("column_1")
	assert.Equal(t, int64(4), v)
}

func TestCSVSourceBatchesAfterSampling(t *testing.T) {
	path := writeFile(t, "x\n1\n2\n3\n4\n5\n")
	src := newSource(t, map[string]interface{}{"path": path, "sample_size": 2})

	stream, err := src.ReadBatch(context.Background(), 2)
	require.NoError(t, err)
	var sizes []int
	var xs []interface{}
	for batch := range stream.Batches {
		sizes = append(sizes, len(batch))
		for _, r := range batch {
			v, _ := r.GetData("x")
			xs = append(xs, v)
		}
	}
	require.NoError(t, <-stream.Errors)
	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Equal(t, []interface{}{int64(1), int64(2), int64(3), int64(4), int64(5)}, xs)
}

func TestCSVSourceBadCell(t *testing.T) {
	path := writeFile(t, "x\n1\nnope\n")
	src := newSource(t, map[string]interface{}{
		"path":    path,
		"columns": []interface{}{map[string]interface{}{"name": "x", "type": "long"}},
	})

	stream, err := src.Read(context.Background())
	require.NoError(t, err)
	records, err := drain(t, stream)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
	assert.Len(t, records, 1)
}

func TestCSVSourceReadOnce(t *testing.T) {
	src := newSource(t, map[string]interface{}{"path": writeFile(t, "x\n1\n")})

	_, err := src.Read(context.Background())
	require.NoError(t, err)
	_, err = src.ReadBatch(context.Background(), 1)
	assert.Error(t, err)
}

func TestCSVSourceConfigErrors(t *testing.T) {
	tests := map[string]map[string]interface{}{
		"missing path":   {},
		"missing file":   {"path": filepath.Join(t.TempDir(), "absent.csv")},
		"bad delimiter":  {"path": writeFile(t, "x\n1\n"), "delimiter": ";;"},
		"unknown column": {"path": writeFile(t, "x\n1\n"), "columns": []interface{}{map[string]interface{}{"name": "y", "type": "long"}}},
	}
	for name, props := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := config.NewBaseConfig("csv-test", "csv")
			cfg.Properties = props
			src, err := NewCSVSource(cfg)
			require.NoError(t, err)
			assert.Error(t, src.Initialize(context.Background(), cfg))
		})
	}
}

func TestCSVSourcePathFromCredentials(t *testing.T) {
	cfg := config.NewBaseConfig("csv-test", "csv")
	cfg.Security.Credentials["path"] = writeFile(t, "x\n1\n")
	src, err := NewCSVSource(cfg)
	require.NoError(t, err)
	require.NoError(t, src.Initialize(context.Background(), cfg))
	defer src.Close(context.Background())

	assert.NoError(t, src.Health(context.Background()))
}

func TestCSVRegistered(t *testing.T) {
	assert.True(t, registry.Has(registry.KindSource, "csv"))
	info, err := registry.Info(registry.KindSource, "csv")
	require.NoError(t, err)
	assert.Equal(t, registry.KindSource, info.Kind)
}
