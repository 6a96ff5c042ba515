// Package generate renders a ServiceDefinition into a bundle of TypeScript
// source files: one module per endpoint, a shared runtime transport, an
// optional shared-types module, and an aggregating entry file. Output is
// deterministic: generating twice from an unchanged definition yields
// byte-identical bundles.
package generate

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/typeforge/typeforge/internal/domain"
)

// Options tune bundle layout. Zero values select the defaults.
type Options struct {
	// Extension is the emitted file extension, ".ts" by default.
	Extension string
	// EntryName is the entry file's base name, "index" by default.
	EntryName string
}

func (o Options) withDefaults() Options {
	if o.Extension == "" {
		o.Extension = ".ts"
	}
	if !strings.HasPrefix(o.Extension, ".") {
		o.Extension = "." + o.Extension
	}
	if o.EntryName == "" {
		o.EntryName = "index"
	}
	return o
}

// Generator renders service definitions into file bundles.
type Generator struct {
	logger *slog.Logger
}

func NewGenerator(logger *slog.Logger) *Generator {
	return &Generator{logger: logger.With("component", "generator")}
}

// Generate renders the full bundle for one service definition.
func (g *Generator) Generate(def *domain.ServiceDefinition, opts Options) (*domain.GeneratedBundle, error) {
	if def == nil {
		return nil, fmt.Errorf("cannot generate without a service definition")
	}
	opts = opts.withDefaults()

	transportModule := transportDir + "/" + transportBaseName
	bundle := &domain.GeneratedBundle{}

	hasTypes := len(def.Types) > 0
	if hasTypes {
		bundle.Files = append(bundle.Files, domain.GeneratedFile{
			Filename: "types" + opts.Extension,
			Content:  renderTypesFile(def.Types),
		})
	}
	bundle.Files = append(bundle.Files, domain.GeneratedFile{
		Filename: transportModule + opts.Extension,
		Content:  transportSource,
	})

	reserved := []string{opts.EntryName, transportModule}
	if hasTypes {
		reserved = append(reserved, "types")
	}
	endpointPaths := resolveEndpointPaths(def.Endpoints, reserved)
	for i := range def.Endpoints {
		ep := &def.Endpoints[i]
		filename := endpointPaths[i] + opts.Extension
		bundle.Files = append(bundle.Files, domain.GeneratedFile{
			Filename: filename,
			Content:  renderEndpointFile(ep, filename, transportModule),
		})
	}

	entry := opts.EntryName + opts.Extension
	bundle.Files = append(bundle.Files, domain.GeneratedFile{
		Filename: entry,
		Content:  renderEntryFile(hasTypes, transportModule, endpointPaths),
	})
	bundle.Entrypoint = entry

	g.logger.Info("Generated client bundle",
		slog.Int("endpoint_count", len(def.Endpoints)),
		slog.Int("file_count", len(bundle.Files)))
	return bundle, nil
}

// resolveEndpointPaths derives the extension-less module path for every
// endpoint and disambiguates collisions by appending the HTTP method to the
// last segment, then a counter if two identical method+path operations
// somehow remain. The reserved names (entry file, transport module, types
// file) count as taken so no endpoint can shadow them.
func resolveEndpointPaths(endpoints []domain.EndpointDefinition, reserved []string) []string {
	paths := make([]string, len(endpoints))
	counts := make(map[string]int)
	for i := range endpoints {
		p := strings.Join(endpointSegments(&endpoints[i]), "/")
		paths[i] = p
		counts[p]++
	}
	taken := make(map[string]int, len(reserved))
	for _, name := range reserved {
		taken[name] = 1
	}
	for i := range paths {
		if counts[paths[i]] > 1 || taken[paths[i]] > 0 {
			paths[i] = paths[i] + "-" + strings.ToLower(endpoints[i].Method)
		}
		taken[paths[i]]++
		if n := taken[paths[i]]; n > 1 {
			paths[i] = fmt.Sprintf("%s-%d", paths[i], n)
		}
	}
	return paths
}

// renderTypesFile emits the shared named types in sorted order.
func renderTypesFile(types map[string]*domain.Schema) string {
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("// Auto-generated shared types.\n")
	b.WriteString("// Do not edit manually.\n\n")
	for _, name := range names {
		schema := types[name]
		if schema.Description != "" {
			fmt.Fprintf(&b, "/** %s */\n", sanitizeComment(schema.Description))
		}
		fmt.Fprintf(&b, "export type %s = %s;\n\n", pascalCase(domain.SanitizeID(name)), RenderType(schema, 0))
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// renderEntryFile emits the aggregating module: types first when present,
// then the transport, then one export line per endpoint file.
func renderEntryFile(hasTypes bool, transportModule string, endpointPaths []string) string {
	var b strings.Builder
	b.WriteString("// Auto-generated entry point.\n")
	b.WriteString("// Do not edit manually.\n\n")
	if hasTypes {
		b.WriteString("export * from './types';\n")
	}
	fmt.Fprintf(&b, "export * from './%s';\n", transportModule)
	for _, p := range endpointPaths {
		fmt.Fprintf(&b, "export * from './%s';\n", p)
	}
	return b.String()
}
