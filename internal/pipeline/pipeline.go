// Package pipeline orchestrates a compilation run: configured sources are
// fetched and parsed by format adapters (invoke), one parsed document is
// promoted to primary, the service definition is optionally normalized, the
// generator renders the client bundle, and an optional writer persists it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/typeforge/typeforge/internal/adapter"
	"github.com/typeforge/typeforge/internal/domain"
	"github.com/typeforge/typeforge/internal/fetch"
	"github.com/typeforge/typeforge/internal/generate"
)

// Standard errors returned by pipeline runs.
var (
	// ErrNoServiceDefinition means no source produced a parseable document
	// and no definition was seeded into the run.
	ErrNoServiceDefinition = errors.New("no service definition available for generation")
	// ErrNoAdapter means no registered adapter accepted a configured source.
	ErrNoAdapter = errors.New("no adapter accepts source")
)

// SourceError records the failure of one configured source without aborting
// the sources that succeeded.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// ParsedDocument is one successfully fetched and parsed source.
type ParsedDocument struct {
	Config      adapter.SourceConfig
	Raw         interface{}
	Definition  *domain.ServiceDefinition
	AdapterType domain.SourceKind
}

// Context is the shared mutable state of a single run. Only the active stage
// touches it, so no locking is needed.
type Context struct {
	Definition   *domain.ServiceDefinition
	Raw          interface{}
	AdapterType  domain.SourceKind
	Documents    []ParsedDocument
	SourceErrors []*SourceError
	Bundle       *domain.GeneratedBundle
}

// BundleWriter persists a generated bundle under a directory.
type BundleWriter interface {
	Write(dir string, bundle *domain.GeneratedBundle) error
}

// RunParams configures a single pipeline run.
type RunParams struct {
	Sources []adapter.SourceConfig
	// Prefer moves adapters of this kind to the front of candidate selection.
	Prefer domain.SourceKind
	// Primary selects the primary document by configured source name or type.
	Primary string
	// ContinueOnError controls whether a failed source aborts the invoke
	// stage. Unset means true: failures are collected, parsing continues.
	ContinueOnError *bool

	SkipInvoke    bool
	SkipNormalize bool
	SkipOutput    bool

	// Definition seeds the run context, typically together with SkipInvoke.
	Definition *domain.ServiceDefinition

	Transforms      []Transform
	Extensions      []SchemaExtension
	ExtensionInputs []interface{}

	Generate  generate.Options
	OutputDir string
}

func (p RunParams) continueOnError() bool {
	return p.ContinueOnError == nil || *p.ContinueOnError
}

// Pipeline runs compilations against a fixed adapter registry. Construct one
// per configuration; runs are independent.
type Pipeline struct {
	registry     *adapter.Registry
	fetcher      *fetch.Fetcher
	generator    *generate.Generator
	writer       BundleWriter
	interceptors []Interceptor
	logger       *slog.Logger
}

// New builds a pipeline. writer may be nil when bundle persistence is
// handled elsewhere. A logging interceptor is installed by default.
func New(registry *adapter.Registry, fetcher *fetch.Fetcher, generator *generate.Generator, writer BundleWriter, logger *slog.Logger) *Pipeline {
	p := &Pipeline{
		registry:  registry,
		fetcher:   fetcher,
		generator: generator,
		writer:    writer,
		logger:    logger.With("component", "pipeline"),
	}
	p.Use(NewLoggingInterceptor(p.logger))
	return p
}

// Use appends interceptors to the chain. Earlier registrations wrap
// outermost.
func (p *Pipeline) Use(interceptors ...Interceptor) {
	p.interceptors = append(p.interceptors, interceptors...)
}

// Run executes the stages invoke, normalize, generate, and output in order.
// All stages except generate can be skipped. The returned Context carries
// the parsed documents, per-source errors, and the generated bundle.
func (p *Pipeline) Run(ctx context.Context, params RunParams) (*Context, error) {
	rc := &Context{Definition: params.Definition}

	if !params.SkipInvoke {
		err := p.runStage(ctx, "invoke", rc, func(ctx context.Context, rc *Context) error {
			return p.invoke(ctx, rc, params)
		})
		if err != nil {
			return rc, err
		}
	}

	if rc.Definition == nil {
		selectPrimary(rc, params)
	}
	if rc.Definition == nil {
		return rc, ErrNoServiceDefinition
	}

	if !params.SkipNormalize {
		err := p.runStage(ctx, "normalize", rc, func(ctx context.Context, rc *Context) error {
			return normalize(rc, params)
		})
		if err != nil {
			return rc, err
		}
	}

	err := p.runStage(ctx, "generate", rc, func(ctx context.Context, rc *Context) error {
		bundle, err := p.generator.Generate(rc.Definition, params.Generate)
		if err != nil {
			return err
		}
		rc.Bundle = bundle
		return nil
	})
	if err != nil {
		return rc, err
	}

	if !params.SkipOutput && p.writer != nil && params.OutputDir != "" {
		err := p.runStage(ctx, "output", rc, func(ctx context.Context, rc *Context) error {
			return p.writer.Write(params.OutputDir, rc.Bundle)
		})
		if err != nil {
			return rc, err
		}
	}

	return rc, nil
}

func (p *Pipeline) runStage(ctx context.Context, stage string, rc *Context, fn StageFunc) error {
	if err := chainInterceptors(p.interceptors, stage, fn)(ctx, rc); err != nil {
		return fmt.Errorf("stage %s: %w", stage, err)
	}
	return nil
}

// invoke fetches and parses every configured source. Sources are fetched
// concurrently but reduced in declaration order, so the resulting document
// list is order-stable regardless of completion timing.
func (p *Pipeline) invoke(ctx context.Context, rc *Context, params RunParams) error {
	results := make([]*ParsedDocument, len(params.Sources))
	failures := make([]*SourceError, len(params.Sources))

	g, gctx := errgroup.WithContext(ctx)
	for i := range params.Sources {
		cfg := params.Sources[i]
		g.Go(func() error {
			doc, err := p.invokeSource(gctx, cfg, params.Prefer)
			if err != nil {
				srcErr := &SourceError{Source: adapter.SourceName(cfg), Err: err}
				if !params.continueOnError() {
					return srcErr
				}
				failures[i] = srcErr
				return nil
			}
			results[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range params.Sources {
		if failures[i] != nil {
			p.logger.Warn("Source failed",
				slog.String("source", failures[i].Source),
				slog.Any("error", failures[i].Err))
			rc.SourceErrors = append(rc.SourceErrors, failures[i])
		}
		if results[i] != nil {
			rc.Documents = append(rc.Documents, *results[i])
		}
	}

	if len(params.Sources) > 0 && len(rc.Documents) == 0 {
		errs := make([]error, 0, len(rc.SourceErrors))
		for _, srcErr := range rc.SourceErrors {
			errs = append(errs, srcErr)
		}
		return fmt.Errorf("all %d sources failed: %w", len(params.Sources), errors.Join(errs...))
	}
	return nil
}

// invokeSource fetches the payload once and tries each candidate adapter in
// selection order. Parse failures fall through to the next candidate; when
// every candidate fails the aggregate error surfaces.
func (p *Pipeline) invokeSource(ctx context.Context, cfg adapter.SourceConfig, prefer domain.SourceKind) (*ParsedDocument, error) {
	candidates := p.registry.Candidates(cfg, prefer)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAdapter, adapter.SourceName(cfg))
	}

	raw, err := candidates[0].Fetch(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var parseErrs []error
	for _, a := range candidates {
		def, err := a.Parse(raw, cfg)
		if err != nil {
			p.logger.Debug("Adapter declined source",
				slog.String("source", adapter.SourceName(cfg)),
				slog.String("adapter", string(a.Type())),
				slog.Any("error", err))
			parseErrs = append(parseErrs, fmt.Errorf("%s: %w", a.Type(), err))
			continue
		}
		return &ParsedDocument{
			Config:      cfg,
			Raw:         raw,
			Definition:  def,
			AdapterType: a.Type(),
		}, nil
	}
	return nil, fmt.Errorf("no adapter parsed source %s: %w",
		adapter.SourceName(cfg), errors.Join(parseErrs...))
}

// selectPrimary promotes one parsed document into the run context: a source
// whose name or type matches params.Primary (declaration order), then a
// source whose metadata marks primary, then the first parsed document.
func selectPrimary(rc *Context, params RunParams) {
	if len(rc.Documents) == 0 {
		return
	}
	promote := func(doc ParsedDocument) {
		rc.Definition = doc.Definition
		rc.Raw = doc.Raw
		rc.AdapterType = doc.AdapterType
	}

	if params.Primary != "" {
		for _, doc := range rc.Documents {
			if doc.Config.Name == params.Primary || string(doc.Config.Type) == params.Primary {
				promote(doc)
				return
			}
		}
	}
	for _, doc := range rc.Documents {
		if primary, ok := doc.Config.Metadata["primary"].(bool); ok && primary {
			promote(doc)
			return
		}
	}
	promote(rc.Documents[0])
}
