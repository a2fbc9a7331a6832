package chart

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-chart/pkg/errors"
	"github.com/ajitpratap0/nebula-chart/pkg/json"
	"github.com/ajitpratap0/nebula-chart/pkg/metrics"
)

// Presenter shows a finished chart. Present must call started once the
// presentation is up; it may keep running afterwards.
type Presenter interface {
	Name() string
	Present(ctx context.Context, c *Chart, started func()) error
}

// Launch tracks one presentation run. Its started signal fires at most once.
type Launch struct {
	started chan struct{}
	done    chan struct{}
	once    sync.Once
	err     error
}

// StartPresentation runs presenters one after another on a dedicated
// worker. Failures are logged, counted and kept for Err; they never reach
// the caller otherwise.
func StartPresentation(ctx context.Context, presenters []Presenter, c *Chart, logger *zap.Logger) *Launch {
	l := &Launch{
		started: make(chan struct{}),
		done:    make(chan struct{}),
	}
	log := logger.With(zap.String("component", "chart_presentation"))

	go func() {
		defer close(l.done)

		var errs []error
		for _, p := range presenters {
			if err := l.run(ctx, p, c); err != nil {
				metrics.RenderFailures.WithLabelValues(p.Name()).Inc()
				log.Error("chart presentation failed",
					zap.String("presenter", p.Name()),
					zap.Error(err),
					zap.String("stack", errors.StackTrace(err)))
				errs = append(errs, err)
			}
		}
		l.err = stderrors.Join(errs...)
	}()

	return l
}

func (l *Launch) run(ctx context.Context, p Presenter, c *Chart) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.ErrorTypeRender, fmt.Sprintf("presenter panicked: %v", r)).
				WithDetail("presenter", p.Name())
		}
	}()

	if err := p.Present(ctx, c, l.markStarted); err != nil {
		return errors.Wrap(err, errors.ErrorTypeRender, "presentation failed").
			WithDetail("presenter", p.Name())
	}
	return nil
}

func (l *Launch) markStarted() {
	l.once.Do(func() { close(l.started) })
}

// WaitStarted blocks until a presenter has started or every presenter has
// given up. It reports whether the presentation started.
func (l *Launch) WaitStarted(ctx context.Context) (bool, error) {
	select {
	case <-l.started:
		return true, nil
	case <-l.done:
		select {
		case <-l.started:
			return true, nil
		default:
			return false, nil
		}
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Done is closed once every presenter has returned
func (l *Launch) Done() <-chan struct{} {
	return l.done
}

// Err returns the joined presentation failures. Valid after Done.
func (l *Launch) Err() error {
	select {
	case <-l.done:
		return l.err
	default:
		return nil
	}
}

// ImagePresenter renders the chart to an image file
type ImagePresenter struct {
	Path   string
	Format ImageFormat
	Logger *zap.Logger
}

// Name implements Presenter
func (p *ImagePresenter) Name() string { return "image" }

// Present implements Presenter
func (p *ImagePresenter) Present(_ context.Context, c *Chart, started func()) error {
	f, err := os.Create(p.Path) //nolint:gosec // G304: path comes from the task configuration
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "cannot create chart image").
			WithDetail("path", p.Path)
	}
	started()

	w := bufio.NewWriter(f)
	if err := Render(c, p.Format, w, p.Logger); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "cannot write chart image")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "cannot close chart image")
	}

	p.Logger.Info("chart image written",
		zap.String("path", p.Path),
		zap.String("format", string(p.Format)))
	return nil
}

// TablePresenter prints every point as a row of a text table
type TablePresenter struct {
	Writer io.Writer
}

// Name implements Presenter
func (p *TablePresenter) Name() string { return "table" }

// Present implements Presenter
func (p *TablePresenter) Present(_ context.Context, c *Chart, started func()) error {
	started()

	table := tablewriter.NewWriter(p.Writer)
	table.SetHeader([]string{"series", c.XAxis.Name, c.YAxis.Name})
	table.SetAutoFormatHeaders(false)
	table.SetCaption(true, fmt.Sprintf("%s (%s)", c.Title, c.Type))
	for _, s := range c.Series {
		for _, pt := range s.Points {
			table.Append([]string{s.Name, cell(pt.X), cell(pt.Y)})
		}
	}
	table.Render()
	return nil
}

func cell(v Value) string {
	if v.IsAbsent() {
		return "-"
	}
	return v.String()
}

// JSONPresenter writes the chart and its series as JSON
type JSONPresenter struct {
	Path string
}

// Name implements Presenter
func (p *JSONPresenter) Name() string { return "json" }

// Present implements Presenter
func (p *JSONPresenter) Present(_ context.Context, c *Chart, started func()) error {
	f, err := os.Create(p.Path) //nolint:gosec // G304: path comes from the task configuration
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "cannot create chart JSON").
			WithDetail("path", p.Path)
	}
	started()

	if err := json.WriteIndented(f, c); err != nil {
		f.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "cannot write chart JSON")
	}
	return f.Close()
}

// Presenters builds the presenters selected by the task output settings
func Presenters(task *PluginTask, stdout io.Writer, logger *zap.Logger) []Presenter {
	var out []Presenter
	if task.Output.Path != "" {
		out = append(out, &ImagePresenter{Path: task.Output.Path, Format: task.Output.Format, Logger: logger})
	}
	if task.Output.Table {
		out = append(out, &TablePresenter{Writer: stdout})
	}
	if task.Output.JSON != "" {
		out = append(out, &JSONPresenter{Path: task.Output.JSON})
	}
	return out
}
