// Package adapter defines the pluggable format-adapter interface and the
// ordered registry the pipeline selects from. One adapter exists per
// supported document dialect; each detects applicability, fetches, and
// parses into the unified service model.
package adapter

import (
	"context"
	"fmt"

	"github.com/typeforge/typeforge/internal/domain"
	"github.com/typeforge/typeforge/internal/fetch"
)

// SourceConfig is one configured document source. Exactly one of Source or
// Document supplies the payload; Metadata is free-form and consumed by
// primary-document selection.
type SourceConfig struct {
	Type     domain.SourceKind
	Name     string
	Source   *fetch.Source
	Document interface{}
	Options  map[string]interface{}
	Metadata map[string]interface{}
}

// Adapter translates one document dialect into a ServiceDefinition.
type Adapter interface {
	// Type is the dialect tag this adapter serves.
	Type() domain.SourceKind
	// CanHandle reports whether this adapter should attempt the source.
	CanHandle(cfg SourceConfig) bool
	// Fetch resolves the raw payload, either via the shared fetcher or from
	// an already-embedded document.
	Fetch(ctx context.Context, cfg SourceConfig) (interface{}, error)
	// Parse builds the service model, returning a descriptive error naming
	// the source when the payload does not match the expected shape.
	Parse(raw interface{}, cfg SourceConfig) (*domain.ServiceDefinition, error)
}

// Registry is an explicit, ordered adapter list constructed once per
// pipeline instance. There is no hidden module-level default state.
type Registry struct {
	adapters []Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// Adapters returns the registration order.
func (r *Registry) Adapters() []Adapter {
	return r.adapters
}

// Candidates is a pure selection over the registry: adapters whose CanHandle
// accepts the config, in registration order, with any adapter matching the
// prefer tag moved to the front.
func (r *Registry) Candidates(cfg SourceConfig, prefer domain.SourceKind) []Adapter {
	var preferred, rest []Adapter
	for _, a := range r.adapters {
		if !a.CanHandle(cfg) {
			continue
		}
		if prefer != "" && a.Type() == prefer {
			preferred = append(preferred, a)
		} else {
			rest = append(rest, a)
		}
	}
	return append(preferred, rest...)
}

// FetchSource implements the shared fetch behavior every adapter delegates
// to: an inline document wins, otherwise the configured source is resolved
// through the fetcher.
func FetchSource(ctx context.Context, fetcher *fetch.Fetcher, cfg SourceConfig) (interface{}, error) {
	if cfg.Document != nil {
		return cfg.Document, nil
	}
	if cfg.Source != nil {
		return fetcher.FetchDocumentation(ctx, *cfg.Source)
	}
	return nil, fmt.Errorf("source %s has neither a request nor an inline document", SourceName(cfg))
}

// SourceName names a source for error messages: configured name, then type,
// then a placeholder.
func SourceName(cfg SourceConfig) string {
	if cfg.Name != "" {
		return cfg.Name
	}
	if cfg.Type != "" {
		return string(cfg.Type)
	}
	return "<unnamed>"
}
