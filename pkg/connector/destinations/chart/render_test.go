package chart

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gochart "github.com/wcharczuk/go-chart/v2"

	"github.com/ajitpratap0/nebula-chart/pkg/errors"
)

func testChart(ct ChartType, xType AxisType, series ...Series) *Chart {
	return &Chart{
		Title:  "test",
		Type:   ct,
		XAxis:  Axis{Name: "x", Type: xType},
		YAxis:  Axis{Name: "y", Type: AxisTypeNumber},
		Width:  defaultWidth,
		Height: defaultHeight,
		Series: series,
	}
}

func categoryPoints(pairs ...interface{}) []Point {
	points := make([]Point, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		points = append(points, Point{X: StringValue(pairs[i].(string)), Y: IntValue(int64(pairs[i+1].(int)))})
	}
	return points
}

func TestRendererLine(t *testing.T) {
	log, logs := observedLogger()
	r := &renderer{logger: log}

	c := testChart(ChartTypeLine, AxisTypeNumber,
		Series{Name: "A", Points: ints(1, 2, 3, 4)},
		Series{Name: "B", Points: append(ints(1, 5), Point{X: IntValue(2)})},
	)
	built, err := r.build(c)
	require.NoError(t, err)

	ch, ok := built.(*gochart.Chart)
	require.True(t, ok)
	require.Len(t, ch.Series, 2)
	b := ch.Series[1].(gochart.ContinuousSeries)
	assert.Equal(t, []float64{1}, b.XValues)
	assert.Equal(t, 1, r.skipped)
	assert.Equal(t, 1, logs.FilterMessage("malformed point").Len())
	assert.Equal(t, 1.0, ch.XAxis.Range.GetMin())
	assert.Equal(t, 3.0, ch.XAxis.Range.GetMax())
}

func TestRendererScatterUsesDots(t *testing.T) {
	log, _ := observedLogger()
	r := &renderer{logger: log}

	built, err := r.build(testChart(ChartTypeScatter, AxisTypeNumber, Series{Name: "A", Points: ints(1, 1)}))
	require.NoError(t, err)

	ch := built.(*gochart.Chart)
	s := ch.Series[0].(gochart.ContinuousSeries)
	assert.Equal(t, float64(gochart.Disabled), s.Style.StrokeWidth)
	assert.Positive(t, s.Style.DotWidth)
	assert.Equal(t, 0.0, ch.XAxis.Range.GetMin())
	assert.Equal(t, 2.0, ch.XAxis.Range.GetMax())
}

func TestRendererCategoryAxis(t *testing.T) {
	log, _ := observedLogger()
	r := &renderer{logger: log}

	built, err := r.build(testChart(ChartTypeLine, AxisTypeCategory,
		Series{Name: "A", Points: categoryPoints("jan", 1, "feb", 2)},
		Series{Name: "B", Points: categoryPoints("feb", 3, "mar", 4)},
	))
	require.NoError(t, err)

	ch := built.(*gochart.Chart)
	assert.Equal(t, []float64{2, 3}, ch.Series[1].(gochart.ContinuousSeries).XValues)
	require.Len(t, ch.XAxis.Ticks, 3)
	assert.Equal(t, "jan", ch.XAxis.Ticks[0].Label)
	assert.Equal(t, "mar", ch.XAxis.Ticks[2].Label)
	assert.Equal(t, 0.5, ch.XAxis.Range.GetMin())
	assert.Equal(t, 3.5, ch.XAxis.Range.GetMax())
}

func TestRendererBar(t *testing.T) {
	log, _ := observedLogger()
	r := &renderer{logger: log}

	built, err := r.build(testChart(ChartTypeBar, AxisTypeCategory,
		Series{Name: "even", Points: categoryPoints("2", 20)},
		Series{Name: "odd", Points: append(categoryPoints("1", 10), Point{})},
	))
	require.NoError(t, err)

	bc, ok := built.(*gochart.BarChart)
	require.True(t, ok)
	require.Len(t, bc.Bars, 2)
	assert.Equal(t, "2 (even)", bc.Bars[0].Label)
	assert.Equal(t, 20.0, bc.Bars[0].Value)
	assert.Equal(t, "1 (odd)", bc.Bars[1].Label)
	assert.Equal(t, 1, r.skipped)
	assert.Equal(t, 0.0, bc.YAxis.Range.GetMin())
}

func TestRendererStackedBar(t *testing.T) {
	log, _ := observedLogger()
	r := &renderer{logger: log}

	built, err := r.build(testChart(ChartTypeStackedBar, AxisTypeCategory,
		Series{Name: "a", Points: categoryPoints("q1", 1, "q2", 2, "q1", 3)},
		Series{Name: "b", Points: categoryPoints("q2", 5, "q3", -1)},
	))
	require.NoError(t, err)

	sc, ok := built.(*gochart.StackedBarChart)
	require.True(t, ok)
	require.Len(t, sc.Bars, 2)
	assert.Equal(t, "q1", sc.Bars[0].Name)
	require.Len(t, sc.Bars[0].Values, 1)
	assert.Equal(t, 4.0, sc.Bars[0].Values[0].Value)
	assert.Equal(t, "q2", sc.Bars[1].Name)
	assert.Len(t, sc.Bars[1].Values, 2)
	assert.Equal(t, 1, r.skipped)
}

func TestRendererNoPlottablePoints(t *testing.T) {
	log, _ := observedLogger()

	for _, ct := range []ChartType{ChartTypeBar, ChartTypeLine, ChartTypeScatter, ChartTypeStackedBar} {
		r := &renderer{logger: log}
		_, err := r.build(testChart(ct, AxisTypeNumber, Series{Name: "A", Points: []Point{}}))
		require.Error(t, err, ct.String())
		assert.True(t, errors.IsType(err, errors.ErrorTypeRender))
	}
}

func TestRendererPanicsOnUnknownType(t *testing.T) {
	log, _ := observedLogger()
	r := &renderer{logger: log}

	assert.Panics(t, func() {
		_, _ = r.build(testChart(ChartType(99), AxisTypeNumber))
	})
}

func TestRenderFormats(t *testing.T) {
	log, _ := observedLogger()

	charts := []*Chart{
		testChart(ChartTypeLine, AxisTypeNumber, Series{Name: "A", Points: ints(1, 2, 3, 4)}),
		testChart(ChartTypeScatter, AxisTypeCategory, Series{Name: "A", Points: categoryPoints("x", 1)}),
		testChart(ChartTypeBar, AxisTypeCategory, Series{Name: "A", Points: categoryPoints("x", 1, "y", 2)}),
		testChart(ChartTypeStackedBar, AxisTypeCategory,
			Series{Name: "A", Points: categoryPoints("x", 1, "y", 2)},
			Series{Name: "B", Points: categoryPoints("x", 3)},
		),
	}

	for _, c := range charts {
		t.Run(c.Type.String(), func(t *testing.T) {
			var png bytes.Buffer
			require.NoError(t, Render(c, ImageFormatPNG, &png, log))
			assert.True(t, bytes.HasPrefix(png.Bytes(), []byte("\x89PNG")))

			var svg bytes.Buffer
			require.NoError(t, Render(c, ImageFormatSVG, &svg, log))
			assert.Contains(t, svg.String(), "<svg")
		})
	}
}

func TestRenderSkipsNonFinitePoints(t *testing.T) {
	log, logs := observedLogger()

	c := testChart(ChartTypeLine, AxisTypeNumber, Series{Name: "A", Points: []Point{
		{X: FloatValue(math.NaN()), Y: IntValue(1)},
		{X: IntValue(2), Y: IntValue(3)},
		{X: IntValue(4), Y: IntValue(5)},
	}})

	var png bytes.Buffer
	require.NoError(t, Render(c, ImageFormatPNG, &png, log))
	assert.True(t, bytes.HasPrefix(png.Bytes(), []byte("\x89PNG")))
	assert.Equal(t, 1, logs.FilterMessage("malformed point").Len())
}

func TestRendererStackedBarSkipsNonFinite(t *testing.T) {
	log, logs := observedLogger()
	r := &renderer{logger: log}

	built, err := r.build(testChart(ChartTypeStackedBar, AxisTypeCategory,
		Series{Name: "a", Points: []Point{
			{X: StringValue("q1"), Y: IntValue(2)},
			{X: StringValue("q1"), Y: FloatValue(math.NaN())},
			{X: StringValue("q2"), Y: FloatValue(math.Inf(1))},
		}},
	))
	require.NoError(t, err)

	sc := built.(*gochart.StackedBarChart)
	require.Len(t, sc.Bars, 1)
	assert.Equal(t, 2.0, sc.Bars[0].Values[0].Value)
	assert.Equal(t, 2, r.skipped)
	assert.Equal(t, 2, logs.FilterMessage("malformed point").Len())
}

func TestScaleLabelRejectsNonFinite(t *testing.T) {
	s := newScale(Axis{Name: "x", Type: AxisTypeNumber})

	_, ok := s.label(FloatValue(math.Inf(-1)))
	assert.False(t, ok)
	label, ok := s.label(FloatValue(1.5))
	assert.True(t, ok)
	assert.Equal(t, "1.5", label)
}

func TestBarGeometry(t *testing.T) {
	width, spacing := barGeometry(800, 2)
	assert.Equal(t, 50, width)
	assert.Equal(t, 300, spacing)

	width, spacing = barGeometry(200, 500)
	assert.Equal(t, 1, width)
	assert.Equal(t, 1, spacing)
}
