package chart

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-chart/pkg/config"
	"github.com/ajitpratap0/nebula-chart/pkg/connector/core"
	"github.com/ajitpratap0/nebula-chart/pkg/errors"
	"github.com/ajitpratap0/nebula-chart/pkg/metrics"
	"github.com/ajitpratap0/nebula-chart/pkg/observability"
)

// OutputPlugin renders the pages it receives as a chart once the stream
// ends. Each task keeps its own buffer; nothing is shared across tasks.
type OutputPlugin struct {
	name       string
	logger     *zap.Logger
	tracer     *observability.ConnectorTracer
	stdout     io.Writer
	presenters func(task *PluginTask) []Presenter

	mu       sync.Mutex
	launches []*Launch

	rows   atomic.Int64
	series atomic.Int64
	points atomic.Int64
}

// Option customizes an OutputPlugin
type Option func(*OutputPlugin)

// WithStdout sets the writer used by the table presenter
func WithStdout(w io.Writer) Option {
	return func(p *OutputPlugin) { p.stdout = w }
}

// WithPresenters replaces the presenters derived from the task output settings
func WithPresenters(fn func(task *PluginTask) []Presenter) Option {
	return func(p *OutputPlugin) { p.presenters = fn }
}

// NewOutputPlugin creates the chart output plugin for the named destination
func NewOutputPlugin(name string, logger *zap.Logger, opts ...Option) *OutputPlugin {
	p := &OutputPlugin{
		name:   name,
		logger: logger.With(zap.String("connector", "chart"), zap.String("destination", name)),
		tracer: observability.NewConnectorTracer("chart", name),
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.presenters == nil {
		p.presenters = func(task *PluginTask) []Presenter {
			return Presenters(task, p.stdout, p.logger)
		}
	}
	return p
}

var _ core.OutputPlugin = (*OutputPlugin)(nil)

// Transaction validates the configuration and runs the tasks once. The
// output is not idempotent, so control is never retried.
func (p *OutputPlugin) Transaction(ctx context.Context, cfg *config.BaseConfig, schema *core.Schema, taskCount int, control core.OutputControl) (core.ConfigDiff, error) {
	task, err := LoadTask(cfg)
	if err != nil {
		return nil, err
	}
	ts, err := task.TaskSource()
	if err != nil {
		return nil, err
	}

	p.logger.Info("chart transaction started",
		zap.String("chart_type", task.ChartType.String()),
		zap.Int("task_count", taskCount),
		zap.Int("columns", len(schema.Fields)))

	if _, err := control(ctx, ts); err != nil {
		return nil, err
	}
	return core.ConfigDiff{}, nil
}

// Resume always fails: a chart cannot be partially replayed
func (p *OutputPlugin) Resume(ctx context.Context, task core.TaskSource, schema *core.Schema, taskCount int, control core.OutputControl) (core.ConfigDiff, error) {
	return nil, errors.New(errors.ErrorTypeCapability, "chart output plugin does not support resuming")
}

// Cleanup has nothing to release
func (p *OutputPlugin) Cleanup(ctx context.Context, task core.TaskSource, schema *core.Schema, taskCount int, successReports []core.TaskReport) {
}

// Open creates the per-task state for one task
func (p *OutputPlugin) Open(ctx context.Context, ts core.TaskSource, schema *core.Schema, taskIndex int) (core.TransactionalPageOutput, error) {
	task, err := DecodeTask(ts)
	if err != nil {
		return nil, err
	}

	taskID := uuid.NewString()
	log := p.logger.With(zap.String("task_id", taskID), zap.Int("task_index", taskIndex))
	logTask(log, task)

	return &taskState{
		plugin: p,
		task:   task,
		taskID: taskID,
		logger: log,
		buffer: NewBuffer(schema, p.name, log),
	}, nil
}

func logTask(log *zap.Logger, task *PluginTask) {
	log.Info("chart task opened",
		zap.String("chart_type", task.ChartType.String()),
		zap.String("x_axis", task.XAxisName),
		zap.String("x_axis_type", task.XAxisType.String()),
		zap.String("y_axis", task.YAxisName),
		zap.String("y_axis_type", task.YAxisType.String()))
	for _, s := range task.Serieses {
		log.Info("series",
			zap.String("name", s.Name),
			zap.String("x", s.X),
			zap.String("y", s.Y),
			zap.String("column", s.Column))
	}
	for _, r := range task.Rules {
		log.Info("series mapping rule",
			zap.String("column", r.Column),
			zap.String("value", r.Value),
			zap.String("series", r.Series))
	}
}

// Wait blocks until every presentation started by this plugin has ended
func (p *OutputPlugin) Wait(ctx context.Context) error {
	p.mu.Lock()
	launches := append([]*Launch(nil), p.launches...)
	p.mu.Unlock()

	for _, l := range launches {
		select {
		case <-l.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Stats reports totals across the tasks finished so far
func (p *OutputPlugin) Stats() (rows, series, points int64) {
	return p.rows.Load(), p.series.Load(), p.points.Load()
}

func (p *OutputPlugin) track(l *Launch) {
	p.mu.Lock()
	p.launches = append(p.launches, l)
	p.mu.Unlock()
}

// taskState is everything one task owns between Open and Commit
type taskState struct {
	plugin *OutputPlugin
	task   *PluginTask
	taskID string
	logger *zap.Logger
	buffer *Buffer

	result   *Result
	launch   *Launch
	finished bool
	aborted  bool
	closed   bool
}

// Add buffers the rows of page
func (t *taskState) Add(ctx context.Context, page *core.Page) error {
	if t.finished || t.aborted || t.closed {
		return errors.New(errors.ErrorTypeInternal, "chart task no longer accepts pages").
			WithDetail("task_id", t.taskID)
	}
	return t.plugin.tracer.TraceBatch(ctx, page.Len(), "ingest", func(context.Context) error {
		return t.buffer.Ingest(page)
	})
}

// Finish aggregates the buffered rows and launches the presenters. It
// returns once presentation has started; presentation failures are logged
// and do not fail the task.
func (t *taskState) Finish(ctx context.Context) error {
	if t.aborted {
		return errors.New(errors.ErrorTypeInternal, "chart task was aborted").
			WithDetail("task_id", t.taskID)
	}
	rows, err := t.buffer.Drain()
	if err != nil {
		return err
	}
	t.finished = true

	ctx, span := t.plugin.tracer.StartSpan(ctx, "aggregate")
	timer := metrics.NewTimer("aggregate")
	t.result = Aggregate(rows, t.task.Serieses, t.task.Rules)
	metrics.AggregationLatency.WithLabelValues(t.task.ChartType.String()).Observe(timer.Stop().Seconds())
	span.SetAttribute("rows", len(rows))
	span.SetAttribute("points", t.result.PointCount())
	span.End()

	for _, s := range t.result.Series {
		metrics.PointsEmitted.WithLabelValues(t.plugin.name, s.Name).Add(float64(len(s.Points)))
	}
	t.plugin.rows.Add(int64(len(rows)))
	t.plugin.series.Add(int64(len(t.result.Series)))
	t.plugin.points.Add(int64(t.result.PointCount()))

	t.logger.Info("series aggregated",
		zap.Int("rows", len(rows)),
		zap.Int("series", len(t.result.Series)),
		zap.Int("points", t.result.PointCount()))

	c := NewChart(t.task, t.result)
	t.launch = StartPresentation(context.WithoutCancel(ctx), t.plugin.presenters(t.task), c, t.logger)
	t.plugin.track(t.launch)

	started, err := t.launch.WaitStarted(ctx)
	if err != nil {
		return err
	}
	if !started {
		t.logger.Warn("chart presentation did not start")
	}
	return nil
}

// Close ends the task; later pages are rejected
func (t *taskState) Close() error {
	t.closed = true
	return nil
}

// Abort drops the task without presenting anything
func (t *taskState) Abort() {
	if t.finished {
		return
	}
	t.aborted = true
	t.logger.Warn("chart task aborted")
}

// Commit acknowledges the task with an empty report
func (t *taskState) Commit() (core.TaskReport, error) {
	if !t.finished {
		return nil, errors.New(errors.ErrorTypeInternal, "chart task committed before finish").
			WithDetail("task_id", t.taskID)
	}
	return core.TaskReport{}, nil
}
