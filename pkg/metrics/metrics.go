// Package metrics provides Prometheus instrumentation for nebula-chart.
//
// All collectors are registered on the default registry through promauto, so
// the CLI can gather them at exit without further wiring.
//
// # Basic Usage
//
//	metrics.RowsBuffered.WithLabelValues("sales-chart").Inc()
//
//	timer := metrics.NewTimer("aggregate")
//	result := chart.Aggregate(rows, task)
//	metrics.AggregationLatency.WithLabelValues(task.ChartType.String()).
//	    Observe(timer.Stop().Seconds())
package metrics

import (
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

var (
	// RecordsProcessed tracks the total number of records moved by the runner.
	// Labels: source (connector name), destination (connector name), status (success/failure)
	RecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_records_processed_total",
			Help: "Total number of records processed",
		},
		[]string{"source", "destination", "status"},
	)

	// RowsBuffered counts rows appended to a chart task buffer.
	// Labels: destination
	RowsBuffered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_chart_rows_buffered_total",
			Help: "Total number of rows buffered by chart tasks",
		},
		[]string{"destination"},
	)

	// FieldsSkipped counts fields omitted from buffered rows because their
	// column type cannot be plotted.
	// Labels: destination, column, type
	FieldsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_chart_fields_skipped_total",
			Help: "Total number of fields skipped because of an unsupported column type",
		},
		[]string{"destination", "column", "type"},
	)

	// PointsEmitted counts the points produced by the aggregator per series.
	// Labels: destination, series
	PointsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_chart_points_emitted_total",
			Help: "Total number of points produced per series",
		},
		[]string{"destination", "series"},
	)

	// AggregationLatency tracks the duration of the aggregation pass in seconds.
	// Labels: chart_type
	AggregationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "nebula_chart_aggregation_duration_seconds",
			Help: "Duration of the series aggregation pass",
			Buckets: []float64{
				0.0001, // 100µs
				0.001,  // 1ms
				0.01,   // 10ms
				0.1,    // 100ms
				1,      // 1s
				10,
			},
		},
		[]string{"chart_type"},
	)

	// RenderFailures counts presentation failures that were logged and swallowed.
	// Labels: presenter
	RenderFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebula_chart_render_failures_total",
			Help: "Total number of chart presentation failures",
		},
		[]string{"presenter"},
	)
)

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the label the timer was created with
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation. The timer can be
// stopped multiple times.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// CounterValue reads the current value of a counter. It returns 0 when the
// counter cannot be written out.
func CounterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// FamilySummary is one line of a metrics summary
type FamilySummary struct {
	Name  string
	Value float64
}

// Summarize gathers every nebula_ metric family from g and returns the sum of
// its counter values, or the sample count for histograms, sorted by name.
func Summarize(g prometheus.Gatherer) ([]FamilySummary, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	var out []FamilySummary
	for _, mf := range families {
		name := mf.GetName()
		if len(name) < 7 || name[:7] != "nebula_" {
			continue
		}

		var total float64
		for _, m := range mf.GetMetric() {
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				total += m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				total += m.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
		out = append(out, FamilySummary{Name: name, Value: total})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
