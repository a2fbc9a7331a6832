package core

import (
	"context"
	"time"

	"github.com/ajitpratap0/nebula-chart/pkg/config"
	"github.com/ajitpratap0/nebula-chart/pkg/pool"
)

// ConnectorType represents the type of connector
type ConnectorType string

const (
	ConnectorTypeSource      ConnectorType = "source"
	ConnectorTypeDestination ConnectorType = "destination"
)

// Schema represents the data schema
type Schema struct {
	Name        string
	Description string
	Fields      []Field
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Field represents a field in the schema
type Field struct {
	Name        string
	Type        FieldType
	Description string
	Nullable    bool
}

// FieldType represents the data type of a field
type FieldType string

const (
	FieldTypeString    FieldType = "string"
	FieldTypeInt       FieldType = "int"
	FieldTypeFloat     FieldType = "float"
	FieldTypeBool      FieldType = "bool"
	FieldTypeTimestamp FieldType = "timestamp"
	FieldTypeJSON      FieldType = "json"
	FieldTypeBinary    FieldType = "binary"
)

// ParseFieldType maps configuration type names onto field types. It
// accepts the long/double/boolean spellings used by column declarations.
func ParseFieldType(name string) (FieldType, bool) {
	switch name {
	case "string", "text":
		return FieldTypeString, true
	case "long", "int", "integer":
		return FieldTypeInt, true
	case "double", "float":
		return FieldTypeFloat, true
	case "boolean", "bool":
		return FieldTypeBool, true
	case "timestamp":
		return FieldTypeTimestamp, true
	case "json":
		return FieldTypeJSON, true
	case "binary", "bytes":
		return FieldTypeBinary, true
	}
	return "", false
}

// FieldIndex returns the position of the named field, or -1
func (s *Schema) FieldIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// RecordStream represents a stream of records
type RecordStream struct {
	Records <-chan *pool.Record
	Errors  <-chan error
}

// BatchStream represents a stream of record batches
type BatchStream struct {
	Batches <-chan []*pool.Record
	Errors  <-chan error
}

// Transaction represents a destination transaction
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Source is the interface that all source connectors must implement
type Source interface {
	// Core functionality
	Initialize(ctx context.Context, config *config.BaseConfig) error
	Discover(ctx context.Context) (*Schema, error)
	Read(ctx context.Context) (*RecordStream, error)
	ReadBatch(ctx context.Context, batchSize int) (*BatchStream, error)
	Close(ctx context.Context) error

	// Capabilities
	SupportsIncremental() bool
	SupportsRealtime() bool
	SupportsBatch() bool

	// Health and metrics
	Health(ctx context.Context) error
	Metrics() map[string]interface{}
}

// Destination is the interface that all destination connectors must implement
type Destination interface {
	// Core functionality
	Initialize(ctx context.Context, config *config.BaseConfig) error
	CreateSchema(ctx context.Context, schema *Schema) error
	Write(ctx context.Context, stream *RecordStream) error
	WriteBatch(ctx context.Context, stream *BatchStream) error
	Close(ctx context.Context) error

	// Capabilities
	SupportsBulkLoad() bool
	SupportsTransactions() bool
	SupportsUpsert() bool
	SupportsBatch() bool
	SupportsStreaming() bool

	// Advanced operations
	BulkLoad(ctx context.Context, reader interface{}, format string) error
	BeginTransaction(ctx context.Context) (Transaction, error)
	Upsert(ctx context.Context, records []*pool.Record, keys []string) error

	// Schema operations
	AlterSchema(ctx context.Context, oldSchema, newSchema *Schema) error
	DropSchema(ctx context.Context, schema *Schema) error

	// Health and metrics
	Health(ctx context.Context) error
	Metrics() map[string]interface{}
}
