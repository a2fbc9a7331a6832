package chart

import (
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-chart/pkg/errors"
)

// Axis describes one axis of a chart
type Axis struct {
	Name string   `json:"name"`
	Type AxisType `json:"type"`
}

// Chart is the finished chart of one task, handed to presenters
type Chart struct {
	Title  string    `json:"title"`
	Type   ChartType `json:"chart_type"`
	XAxis  Axis      `json:"x_axis"`
	YAxis  Axis      `json:"y_axis"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Series []Series  `json:"series"`
}

// NewChart combines a task's layout with its aggregated series
func NewChart(task *PluginTask, result *Result) *Chart {
	return &Chart{
		Title:  task.Title,
		Type:   task.ChartType,
		XAxis:  Axis{Name: task.XAxisName, Type: task.XAxisType},
		YAxis:  Axis{Name: task.YAxisName, Type: task.YAxisType},
		Width:  task.Width,
		Height: task.Height,
		Series: result.Series,
	}
}

var palette = []drawing.Color{
	chart.ColorBlue,
	chart.ColorGreen,
	chart.ColorRed,
	chart.ColorOrange,
	chart.ColorCyan,
	chart.ColorYellow,
	chart.ColorAlternateGray,
}

func colorFor(i int) drawing.Color {
	return palette[i%len(palette)]
}

// renderable is satisfied by every go-chart chart kind
type renderable interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

// Render draws c as an image in the given format
func Render(c *Chart, format ImageFormat, w io.Writer, logger *zap.Logger) error {
	r := &renderer{logger: logger.With(zap.String("component", "chart_renderer"))}
	built, err := r.build(c)
	if err != nil {
		return err
	}

	if err := built.Render(rendererProvider(format), w); err != nil {
		return errors.Wrap(err, errors.ErrorTypeRender, "failed to render chart").
			WithDetail("chart_type", c.Type.String())
	}
	return nil
}

func rendererProvider(format ImageFormat) chart.RendererProvider {
	switch format {
	case ImageFormatPNG, "":
		return chart.PNG
	case ImageFormatSVG:
		return chart.SVG
	}
	panic(fmt.Sprintf("chart: unsupported image format %q", format))
}

type renderer struct {
	logger  *zap.Logger
	skipped int
}

func (r *renderer) build(c *Chart) (renderable, error) {
	switch c.Type {
	case ChartTypeLine:
		return r.continuous(c, false)
	case ChartTypeScatter:
		return r.continuous(c, true)
	case ChartTypeBar:
		return r.bars(c)
	case ChartTypeStackedBar:
		return r.stacked(c)
	}
	panic(fmt.Sprintf("chart: unsupported chart type %v", c.Type))
}

func (r *renderer) malformed(series string, p Point, reason string) {
	r.skipped++
	r.logger.Warn("malformed point",
		zap.String("series", series),
		zap.Any("x", p.X.Interface()),
		zap.Any("y", p.Y.Interface()),
		zap.String("reason", reason))
}

func background() chart.Style {
	return chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}}
}

// continuous draws line and scatter charts. Series left without points are
// omitted since go-chart rejects empty continuous series.
func (r *renderer) continuous(c *Chart, dots bool) (*chart.Chart, error) {
	xs, ys := newScale(c.XAxis), newScale(c.YAxis)

	series := make([]chart.Series, 0, len(c.Series))
	for i, s := range c.Series {
		xv := make([]float64, 0, len(s.Points))
		yv := make([]float64, 0, len(s.Points))
		for _, p := range s.Points {
			x, okX := xs.coord(p.X)
			y, okY := ys.coord(p.Y)
			if !okX || !okY {
				r.malformed(s.Name, p, "coordinate does not fit axis")
				continue
			}
			xv = append(xv, x)
			yv = append(yv, y)
		}
		if len(xv) == 0 {
			continue
		}

		style := chart.Style{StrokeColor: colorFor(i), StrokeWidth: 2}
		if dots {
			style = chart.Style{StrokeWidth: chart.Disabled, DotWidth: 4, DotColor: colorFor(i)}
		}
		series = append(series, chart.ContinuousSeries{Name: s.Name, XValues: xv, YValues: yv, Style: style})
	}
	if len(series) == 0 {
		return nil, errors.New(errors.ErrorTypeRender, "no plottable points")
	}

	ch := &chart.Chart{
		Title:      c.Title,
		Width:      c.Width,
		Height:     c.Height,
		Background: background(),
		XAxis:      chart.XAxis{Name: c.XAxis.Name, Range: xs.continuousRange(), Ticks: xs.ticks()},
		YAxis:      chart.YAxis{Name: c.YAxis.Name, Range: ys.continuousRange(), Ticks: ys.ticks()},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(ch)}
	return ch, nil
}

func (r *renderer) bars(c *Chart) (*chart.BarChart, error) {
	xs, ys := newScale(c.XAxis), newScale(c.YAxis)
	multi := len(c.Series) > 1

	var bars []chart.Value
	for i, s := range c.Series {
		for _, p := range s.Points {
			label, okX := xs.label(p.X)
			y, okY := ys.coord(p.Y)
			if !okX || !okY {
				r.malformed(s.Name, p, "coordinate does not fit axis")
				continue
			}
			if multi {
				label = fmt.Sprintf("%s (%s)", label, s.Name)
			}
			bars = append(bars, chart.Value{
				Label: label,
				Value: y,
				Style: chart.Style{FillColor: colorFor(i), StrokeColor: colorFor(i)},
			})
		}
	}
	if len(bars) == 0 {
		return nil, errors.New(errors.ErrorTypeRender, "no plottable points")
	}

	ys.include(0)
	width, spacing := barGeometry(c.Width, len(bars))
	return &chart.BarChart{
		Title:      c.Title,
		Width:      c.Width,
		Height:     c.Height,
		Background: background(),
		BarWidth:   width,
		BarSpacing: spacing,
		YAxis:      chart.YAxis{Name: c.YAxis.Name, Range: ys.continuousRange(), Ticks: ys.ticks()},
		Bars:       bars,
	}, nil
}

func (r *renderer) stacked(c *Chart) (*chart.StackedBarChart, error) {
	xs, ys := newScale(c.XAxis), newScale(c.YAxis)

	type stack struct {
		sums []float64
		seen []bool
	}
	var order []string
	stacks := make(map[string]*stack)

	for i, s := range c.Series {
		for _, p := range s.Points {
			label, okX := xs.label(p.X)
			y, okY := ys.coord(p.Y)
			if !okX || !okY {
				r.malformed(s.Name, p, "coordinate does not fit axis")
				continue
			}
			if y <= 0 {
				r.malformed(s.Name, p, "stacked segments must be positive")
				continue
			}
			st, ok := stacks[label]
			if !ok {
				st = &stack{sums: make([]float64, len(c.Series)), seen: make([]bool, len(c.Series))}
				stacks[label] = st
				order = append(order, label)
			}
			st.sums[i] += y
			st.seen[i] = true
		}
	}
	if len(order) == 0 {
		return nil, errors.New(errors.ErrorTypeRender, "no plottable points")
	}

	width, spacing := barGeometry(c.Width, len(order))
	bars := make([]chart.StackedBar, 0, len(order))
	for _, label := range order {
		st := stacks[label]
		values := make([]chart.Value, 0, len(c.Series))
		for i, s := range c.Series {
			if !st.seen[i] {
				continue
			}
			values = append(values, chart.Value{
				Label: s.Name,
				Value: st.sums[i],
				Style: chart.Style{FillColor: colorFor(i), StrokeColor: colorFor(i)},
			})
		}
		bars = append(bars, chart.StackedBar{Name: label, Width: width, Values: values})
	}

	return &chart.StackedBarChart{
		Title:      c.Title,
		Width:      c.Width,
		Height:     c.Height,
		Background: background(),
		BarSpacing: spacing,
		Bars:       bars,
	}, nil
}

// barGeometry splits the plot width between n bars, two thirds bar and
// one third gap, capped at 50px per bar.
func barGeometry(canvasWidth, n int) (width, spacing int) {
	slot := (canvasWidth - 100) / n
	width = slot * 2 / 3
	if width > 50 {
		width = 50
	}
	if width < 1 {
		width = 1
	}
	spacing = slot - width
	if spacing < 1 {
		spacing = 1
	}
	return width, spacing
}

// scale maps point components onto one axis. Category positions are
// assigned 1, 2, ... in first-seen order.
type scale struct {
	axis       Axis
	categories []string
	positions  map[string]int
	min, max   float64
	seen       bool
}

func newScale(axis Axis) *scale {
	return &scale{axis: axis, positions: make(map[string]int)}
}

func (s *scale) include(v float64) {
	if !s.seen || v < s.min {
		s.min = v
	}
	if !s.seen || v > s.max {
		s.max = v
	}
	s.seen = true
}

// coord returns the plot position of v
func (s *scale) coord(v Value) (float64, bool) {
	switch s.axis.Type {
	case AxisTypeNumber:
		f, ok := finite(v)
		if ok {
			s.include(f)
		}
		return f, ok
	case AxisTypeCategory:
		if v.IsAbsent() {
			return 0, false
		}
		key := v.String()
		pos, ok := s.positions[key]
		if !ok {
			s.categories = append(s.categories, key)
			pos = len(s.categories)
			s.positions[key] = pos
		}
		return float64(pos), true
	}
	panic(fmt.Sprintf("chart: unsupported axis type %v", s.axis.Type))
}

// finite returns the numeric value of v unless it is absent, textual, NaN
// or infinite
func finite(v Value) (float64, bool) {
	f, ok := v.Float64()
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// label returns the text of v on a labeled axis such as bar names
func (s *scale) label(v Value) (string, bool) {
	switch s.axis.Type {
	case AxisTypeNumber:
		if _, ok := finite(v); !ok {
			return "", false
		}
		return v.String(), true
	case AxisTypeCategory:
		return v.String(), !v.IsAbsent()
	}
	panic(fmt.Sprintf("chart: unsupported axis type %v", s.axis.Type))
}

func (s *scale) continuousRange() *chart.ContinuousRange {
	switch s.axis.Type {
	case AxisTypeNumber:
		switch {
		case !s.seen:
			return &chart.ContinuousRange{Min: 0, Max: 1}
		case s.min == s.max:
			return &chart.ContinuousRange{Min: s.min - 1, Max: s.max + 1}
		}
		return &chart.ContinuousRange{Min: s.min, Max: s.max}
	case AxisTypeCategory:
		n := len(s.categories)
		if n == 0 {
			n = 1
		}
		return &chart.ContinuousRange{Min: 0.5, Max: float64(n) + 0.5}
	}
	panic(fmt.Sprintf("chart: unsupported axis type %v", s.axis.Type))
}

// ticks labels category positions; numeric axes use generated ticks
func (s *scale) ticks() []chart.Tick {
	if s.axis.Type != AxisTypeCategory || len(s.categories) == 0 {
		return nil
	}
	ticks := make([]chart.Tick, 0, len(s.categories)+2)
	if len(s.categories) == 1 {
		ticks = append(ticks, chart.Tick{Value: 0.5})
	}
	for i, c := range s.categories {
		ticks = append(ticks, chart.Tick{Value: float64(i + 1), Label: c})
	}
	if len(s.categories) == 1 {
		ticks = append(ticks, chart.Tick{Value: 1.5})
	}
	return ticks
}
