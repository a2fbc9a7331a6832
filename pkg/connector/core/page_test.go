package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-chart/pkg/errors"
	"github.com/ajitpratap0/nebula-chart/pkg/pool"
)

func testSchema() *Schema {
	return &Schema{
		Name: "sales",
		Fields: []Field{
			{Name: "region", Type: FieldTypeString},
			{Name: "month", Type: FieldTypeInt},
			{Name: "revenue", Type: FieldTypeFloat},
			{Name: "closed", Type: FieldTypeBool},
			{Name: "at", Type: FieldTypeTimestamp},
		},
	}
}

func TestPageFromRecords(t *testing.T) {
	schema := testSchema()
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	r1 := pool.NewRecord("test", 0)
	defer r1.Release()
	r1.SetData("region", "north")
	r1.SetData("month", 1)
	r1.SetData("revenue", int64(10))
	r1.SetData("closed", true)
	r1.SetData("at", at)
	r1.SetData("ignored", "x")

	r2 := pool.NewRecord("test", 1)
	defer r2.Release()
	r2.SetData("month", float64(2))

	page, err := PageFromRecords(schema, []*pool.Record{r1, r2})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Len())
	assert.Same(t, schema, page.Schema())

	reader := NewPageReader(schema)
	reader.SetPage(page)

	require.True(t, reader.NextRecord())
	region, err := reader.GetString(0)
	require.NoError(t, err)
	assert.Equal(t, "north", region)
	month, err := reader.GetLong(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), month)
	revenue, err := reader.GetDouble(2)
	require.NoError(t, err)
	assert.Equal(t, 10.0, revenue)
	closed, err := reader.GetBoolean(3)
	require.NoError(t, err)
	assert.True(t, closed)
	ts, err := reader.GetTimestamp(4)
	require.NoError(t, err)
	assert.Equal(t, at, ts)

	require.True(t, reader.NextRecord())
	assert.True(t, reader.IsNull(0))
	month, err = reader.GetLong(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), month)
	_, err = reader.GetDouble(2)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))

	assert.False(t, reader.NextRecord())
}

func TestPageFromRecordsRejectsWrongType(t *testing.T) {
	r := pool.NewRecord("test", 0)
	defer r.Release()
	r.SetData("month", "january")

	_, err := PageFromRecords(testSchema(), []*pool.Record{r})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
	assert.Contains(t, err.Error(), "january")
}

func TestNewPageValidatesWidth(t *testing.T) {
	schema := &Schema{Fields: []Field{{Name: "a", Type: FieldTypeInt}}}

	_, err := NewPage(schema, [][]interface{}{{int64(1)}, {int64(2), int64(3)}})
	require.Error(t, err)

	page, err := NewPage(schema, [][]interface{}{{int64(1)}, {nil}})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Len())
}

func TestParseFieldType(t *testing.T) {
	tests := map[string]FieldType{
		"string":    FieldTypeString,
		"long":      FieldTypeInt,
		"double":    FieldTypeFloat,
		"boolean":   FieldTypeBool,
		"timestamp": FieldTypeTimestamp,
		"json":      FieldTypeJSON,
	}
	for name, want := range tests {
		got, ok := ParseFieldType(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	_, ok := ParseFieldType("decimal")
	assert.False(t, ok)
}

func TestSchemaFieldIndex(t *testing.T) {
	schema := testSchema()
	assert.Equal(t, 2, schema.FieldIndex("revenue"))
	assert.Equal(t, -1, schema.FieldIndex("missing"))
}

func TestTaskSourceDecode(t *testing.T) {
	ts := TaskSource{"name": "sales", "width": 640}

	var out struct {
		Name  string `yaml:"name"`
		Width int    `yaml:"width"`
	}
	require.NoError(t, ts.Decode(&out))
	assert.Equal(t, "sales", out.Name)
	assert.Equal(t, 640, out.Width)
}
