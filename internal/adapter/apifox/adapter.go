// Package apifox adapts Apifox project exports. Exports that are already
// OpenAPI- or Swagger-shaped delegate entirely to those parsers; the native
// export shape carries a flat api list without full JSON Schema, so bodies
// and responses come out weakly typed.
package apifox

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/typeforge/typeforge/internal/adapter"
	"github.com/typeforge/typeforge/internal/adapter/openapi"
	"github.com/typeforge/typeforge/internal/adapter/swagger"
	"github.com/typeforge/typeforge/internal/domain"
	"github.com/typeforge/typeforge/internal/fetch"
	"github.com/typeforge/typeforge/internal/schemaconv"
)

// Adapter implements adapter.Adapter for Apifox exports.
type Adapter struct {
	fetcher *fetch.Fetcher
	logger  *slog.Logger
}

func NewAdapter(fetcher *fetch.Fetcher, logger *slog.Logger) *Adapter {
	return &Adapter{
		fetcher: fetcher,
		logger:  logger.With("component", "apifox_adapter"),
	}
}

func (a *Adapter) Type() domain.SourceKind { return domain.SourceKindApifox }

func (a *Adapter) CanHandle(cfg adapter.SourceConfig) bool {
	return cfg.Type == "" || cfg.Type == domain.SourceKindApifox
}

func (a *Adapter) Fetch(ctx context.Context, cfg adapter.SourceConfig) (interface{}, error) {
	return adapter.FetchSource(ctx, a.fetcher, cfg)
}

func (a *Adapter) Parse(raw interface{}, cfg adapter.SourceConfig) (*domain.ServiceDefinition, error) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("source %s: payload is not a JSON object", adapter.SourceName(cfg))
	}

	// Apifox can export standard documents; hand those straight over.
	if openapi.IsDocument(m) {
		a.logger.Debug("Apifox export is OpenAPI-shaped, delegating")
		def := openapi.ParseDocument(m)
		def.Source.Kind = domain.SourceKindApifox
		return def, nil
	}
	if swagger.IsDocument(m) {
		a.logger.Debug("Apifox export is Swagger-shaped, delegating")
		def := swagger.ParseDocument(m)
		def.Source.Kind = domain.SourceKindApifox
		return def, nil
	}

	apis := apiList(m)
	if apis == nil {
		return nil, fmt.Errorf("source %s: payload is not an Apifox export", adapter.SourceName(cfg))
	}

	def := &domain.ServiceDefinition{
		Source: domain.SourceInfo{Kind: domain.SourceKindApifox, Raw: m},
	}
	if project, ok := m["apifoxProject"].(map[string]interface{}); ok {
		def.Title, _ = project["name"].(string)
		def.Description, _ = project["description"].(string)
	}

	used := make(map[string]int)
	for _, raw := range apis {
		api, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		def.Endpoints = append(def.Endpoints, buildEndpoint(api, used))
	}
	return def, nil
}

// apiList finds the flat endpoint array under either native key. A payload
// with project keys but no list still counts, as an empty export.
func apiList(m map[string]interface{}) []interface{} {
	if apis, ok := m["apis"].([]interface{}); ok {
		return apis
	}
	if apis, ok := m["apiList"].([]interface{}); ok {
		return apis
	}
	if _, ok := m["apifoxProject"]; ok {
		return []interface{}{}
	}
	return nil
}

func buildEndpoint(api map[string]interface{}, used map[string]int) domain.EndpointDefinition {
	method, _ := api["method"].(string)
	if method == "" {
		method = "GET"
	}
	method = strings.ToUpper(method)
	path, _ := api["path"].(string)
	if path == "" {
		path = "/"
	}

	ep := domain.EndpointDefinition{Method: method, Path: path}
	ep.Name, _ = api["name"].(string)
	ep.Description, _ = api["description"].(string)
	if tags, ok := api["tags"].([]interface{}); ok {
		for _, t := range tags {
			if tag, ok := t.(string); ok {
				ep.Tags = append(ep.Tags, tag)
			}
		}
	}

	id := domain.SanitizeID(ep.Name)
	if id == "" {
		id = domain.SanitizeID(method + "_" + path)
	}
	used[id]++
	if n := used[id]; n > 1 {
		id = fmt.Sprintf("%s_%d", id, n)
	}
	ep.ID = id

	if params, ok := api["parameters"].(map[string]interface{}); ok {
		ep.Parameters = append(ep.Parameters, keyedParams(params, "path", domain.LocationPath)...)
		ep.Parameters = append(ep.Parameters, keyedParams(params, "query", domain.LocationQuery)...)
		ep.Parameters = append(ep.Parameters, keyedParams(params, "header", domain.LocationHeader)...)
	}

	// Native exports do not carry full JSON Schema for every field, so the
	// body and response stay weakly typed unless a schema happens to be
	// present.
	if body, ok := api["requestBody"].(map[string]interface{}); ok {
		if s := schemaconv.Convert(body["jsonSchema"]); s != nil {
			ep.Body = s
		} else {
			ep.Body = &domain.Schema{Kind: domain.KindUnknown}
		}
		if ct, ok := body["type"].(string); ok {
			ep.BodyType = ct
		}
	}

	ep.Responses = []domain.ResponseDefinition{{
		Status: 200,
		Schema: &domain.Schema{Kind: domain.KindUnknown},
	}}
	if responses, ok := api["responses"].([]interface{}); ok && len(responses) > 0 {
		if first, ok := responses[0].(map[string]interface{}); ok {
			if code, ok := first["code"].(float64); ok {
				ep.Responses[0].Status = int(code)
			}
			if s := schemaconv.Convert(first["jsonSchema"]); s != nil {
				ep.Responses[0].Schema = s
			}
		}
	}
	return ep
}

func keyedParams(params map[string]interface{}, field string, loc domain.ParameterLocation) []domain.ParameterDefinition {
	entries, ok := params[field].([]interface{})
	if !ok {
		return nil
	}
	var out []domain.ParameterDefinition
	for _, raw := range entries {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := entry["name"].(string)
		if name == "" {
			continue
		}
		required, _ := entry["required"].(bool)
		schema := schemaconv.Convert(entry["schema"])
		if schema == nil {
			schema = &domain.Schema{Kind: domain.KindString}
		}
		if d, ok := entry["description"].(string); ok && schema.Description == "" {
			schema.Description = d
		}
		out = append(out, domain.ParameterDefinition{
			Name:     name,
			Location: loc,
			Required: required || loc == domain.LocationPath,
			Schema:   schema,
		})
	}
	return out
}
