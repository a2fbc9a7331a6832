package core

import (
	"context"

	"github.com/ajitpratap0/nebula-chart/pkg/config"
)

// TaskReport is the per-task acknowledgment returned by Commit
type TaskReport map[string]interface{}

// ConfigDiff carries configuration changes a transaction wants persisted
// for the next run
type ConfigDiff map[string]interface{}

// TaskSource is the serialized task configuration handed from a
// transaction to every task it opens.
type TaskSource map[string]interface{}

// Decode decodes the task source into out using its yaml tags
func (ts TaskSource) Decode(out interface{}) error {
	return config.DecodeProperties(&config.BaseConfig{Properties: ts}, out)
}

// OutputControl runs the tasks of a transaction and collects their reports
type OutputControl func(ctx context.Context, task TaskSource) ([]TaskReport, error)

// OutputPlugin is the host boundary of a page-oriented output stage.
type OutputPlugin interface {
	Transaction(ctx context.Context, cfg *config.BaseConfig, schema *Schema, taskCount int, control OutputControl) (ConfigDiff, error)
	Resume(ctx context.Context, task TaskSource, schema *Schema, taskCount int, control OutputControl) (ConfigDiff, error)
	Cleanup(ctx context.Context, task TaskSource, schema *Schema, taskCount int, successReports []TaskReport)
	Open(ctx context.Context, task TaskSource, schema *Schema, taskIndex int) (TransactionalPageOutput, error)
}

// TransactionalPageOutput receives the pages of one task.
type TransactionalPageOutput interface {
	Add(ctx context.Context, page *Page) error
	Finish(ctx context.Context) error
	Close() error
	Abort()
	Commit() (TaskReport, error)
}
