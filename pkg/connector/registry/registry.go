// Package registry keeps the factories and catalog entries of every
// connector compiled into the binary. Connectors register themselves from
// init functions.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-chart/pkg/config"
	"github.com/ajitpratap0/nebula-chart/pkg/connector/core"
	"github.com/ajitpratap0/nebula-chart/pkg/errors"
	"github.com/ajitpratap0/nebula-chart/pkg/logger"
)

// Kind tells sources and destinations apart. A source and a destination
// may share a name.
type Kind string

const (
	KindSource      Kind = "source"
	KindDestination Kind = "destination"
)

// SourceFactory creates a source connector from its configuration
type SourceFactory func(config *config.BaseConfig) (core.Source, error)

// DestinationFactory creates a destination connector from its configuration
type DestinationFactory func(config *config.BaseConfig) (core.Destination, error)

// ConnectorInfo describes a registered connector for `nebula-chart list`
type ConnectorInfo struct {
	Name         string                 `json:"name"`
	Kind         Kind                   `json:"type"`
	Description  string                 `json:"description"`
	Version      string                 `json:"version"`
	Capabilities []string               `json:"capabilities"`
	ConfigSchema map[string]interface{} `json:"config_schema"`
}

type key struct {
	kind Kind
	name string
}

type entry struct {
	info        ConnectorInfo
	source      SourceFactory
	destination DestinationFactory
}

// Registry maps connector names to their factories and descriptions
type Registry struct {
	mu      sync.RWMutex
	entries map[key]*entry
	logger  *zap.Logger
}

var globalRegistry = NewRegistry()

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[key]*entry),
		logger:  logger.Get().With(zap.String("component", "connector_registry")),
	}
}

// RegisterSource adds a source under info.Name
func (r *Registry) RegisterSource(info ConnectorInfo, factory SourceFactory) error {
	info.Kind = KindSource
	return r.register(&entry{info: info, source: factory})
}

// RegisterDestination adds a destination under info.Name
func (r *Registry) RegisterDestination(info ConnectorInfo, factory DestinationFactory) error {
	info.Kind = KindDestination
	return r.register(&entry{info: info, destination: factory})
}

func (r *Registry) register(e *entry) error {
	if e.info.Name == "" {
		return errors.Newf(errors.ErrorTypeConfig, "%s connector has no name", e.info.Kind)
	}
	k := key{kind: e.info.Kind, name: e.info.Name}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[k]; exists {
		return errors.Newf(errors.ErrorTypeConfig, "%s connector %s already registered", k.kind, k.name)
	}
	r.entries[k] = e
	r.logger.Debug("connector registered", zap.String("kind", string(k.kind)), zap.String("name", k.name))
	return nil
}

func (r *Registry) lookup(kind Kind, name string) (*entry, error) {
	r.mu.RLock()
	e, exists := r.entries[key{kind: kind, name: name}]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "%s connector %s not found", kind, name)
	}
	return e, nil
}

// CreateSource instantiates the source registered as name
func (r *Registry) CreateSource(name string, config *config.BaseConfig) (core.Source, error) {
	e, err := r.lookup(KindSource, name)
	if err != nil {
		return nil, err
	}
	source, err := e.source(config)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create source connector %s", name))
	}
	return source, nil
}

// CreateDestination instantiates the destination registered as name
func (r *Registry) CreateDestination(name string, config *config.BaseConfig) (core.Destination, error) {
	e, err := r.lookup(KindDestination, name)
	if err != nil {
		return nil, err
	}
	destination, err := e.destination(config)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create destination connector %s", name))
	}
	return destination, nil
}

// Has reports whether a connector of kind is registered as name
func (r *Registry) Has(kind Kind, name string) bool {
	_, err := r.lookup(kind, name)
	return err == nil
}

// Info returns the description of a registered connector
func (r *Registry) Info(kind Kind, name string) (ConnectorInfo, error) {
	e, err := r.lookup(kind, name)
	if err != nil {
		return ConnectorInfo{}, err
	}
	return e.info, nil
}

// List returns every connector, destinations first, each kind sorted by name
func (r *Registry) List() []ConnectorInfo {
	r.mu.RLock()
	infos := make([]ConnectorInfo, 0, len(r.entries))
	for _, e := range r.entries {
		infos = append(infos, e.info)
	}
	r.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Kind != infos[j].Kind {
			return infos[i].Kind == KindDestination
		}
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// RegisterSource adds a source to the global registry
func RegisterSource(info ConnectorInfo, factory SourceFactory) error {
	return globalRegistry.RegisterSource(info, factory)
}

// RegisterDestination adds a destination to the global registry
func RegisterDestination(info ConnectorInfo, factory DestinationFactory) error {
	return globalRegistry.RegisterDestination(info, factory)
}

// CreateSource instantiates a source from the global registry
func CreateSource(name string, config *config.BaseConfig) (core.Source, error) {
	return globalRegistry.CreateSource(name, config)
}

// CreateDestination instantiates a destination from the global registry
func CreateDestination(name string, config *config.BaseConfig) (core.Destination, error) {
	return globalRegistry.CreateDestination(name, config)
}

// Has reports whether the global registry holds the connector
func Has(kind Kind, name string) bool {
	return globalRegistry.Has(kind, name)
}

// Info describes a connector of the global registry
func Info(kind Kind, name string) (ConnectorInfo, error) {
	return globalRegistry.Info(kind, name)
}

// List returns every connector of the global registry
func List() []ConnectorInfo {
	return globalRegistry.List()
}
