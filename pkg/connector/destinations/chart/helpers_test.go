package chart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/nebula-chart/pkg/config"
	"github.com/ajitpratap0/nebula-chart/pkg/connector/core"
	"github.com/ajitpratap0/nebula-chart/pkg/testutil"
)

func intSchema(names ...string) *core.Schema {
	fields := make([]core.Field, len(names))
	for i, n := range names {
		fields[i] = core.Field{Name: n, Type: core.FieldTypeInt, Nullable: true}
	}
	return &core.Schema{Name: "test", Fields: fields}
}

func mustPage(t *testing.T, schema *core.Schema, rows ...[]interface{}) *core.Page {
	t.Helper()
	page, err := core.NewPage(schema, rows)
	require.NoError(t, err)
	return page
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	return testutil.ObservedLogger(zapcore.DebugLevel)
}

func ints(pairs ...int64) []Point {
	points := make([]Point, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		points = append(points, Point{X: IntValue(pairs[i]), Y: IntValue(pairs[i+1])})
	}
	return points
}

func row(kv ...interface{}) Row {
	r := Row{}
	for i := 0; i+1 < len(kv); i += 2 {
		switch v := kv[i+1].(type) {
		case int:
			r[kv[i].(string)] = IntValue(int64(v))
		case float64:
			r[kv[i].(string)] = FloatValue(v)
		case string:
			r[kv[i].(string)] = StringValue(v)
		}
	}
	return r
}

func chartConfig(props map[string]interface{}) *config.BaseConfig {
	cfg := config.NewBaseConfig("chart-test", "chart")
	cfg.Properties = props
	return cfg
}

func lineProperties() map[string]interface{} {
	return map[string]interface{}{
		"chart_type":  "LINE",
		"x_axis_type": "NUMBER",
		"x_axis_name": "c1",
		"y_axis_type": "NUMBER",
		"y_axis_name": "c2",
		"serieses": []interface{}{
			map[string]interface{}{"name": "A", "x": "c1", "y": "c2"},
		},
	}
}

// recordingPresenter captures the chart it was handed
type recordingPresenter struct {
	charts chan *Chart
}

func newRecordingPresenter() *recordingPresenter {
	return &recordingPresenter{charts: make(chan *Chart, 4)}
}

func (p *recordingPresenter) Name() string { return "recording" }

func (p *recordingPresenter) Present(_ context.Context, c *Chart, started func()) error {
	started()
	p.charts <- c
	return nil
}

func zapString(key, value string) zapcore.Field {
	return zap.String(key, value)
}
