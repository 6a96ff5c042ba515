// Package openapi adapts OpenAPI 3.x documents into the unified service
// model. Structural parsing is map-based behind a shape guard; the
// kin-openapi loader additionally validates detected documents in warn-only
// mode, matching how fetched schemas have always been checked here.
package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/typeforge/typeforge/internal/adapter"
	"github.com/typeforge/typeforge/internal/domain"
	"github.com/typeforge/typeforge/internal/fetch"
	"github.com/typeforge/typeforge/internal/schemaconv"
)

// Verbs is the fixed set of path-item operations considered, in emission
// order.
var Verbs = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

// Adapter implements adapter.Adapter for OpenAPI 3.x.
type Adapter struct {
	fetcher *fetch.Fetcher
	logger  *slog.Logger
}

func NewAdapter(fetcher *fetch.Fetcher, logger *slog.Logger) *Adapter {
	return &Adapter{
		fetcher: fetcher,
		logger:  logger.With("component", "openapi_adapter"),
	}
}

func (a *Adapter) Type() domain.SourceKind { return domain.SourceKindOpenAPI }

func (a *Adapter) CanHandle(cfg adapter.SourceConfig) bool {
	return cfg.Type == "" || cfg.Type == domain.SourceKindOpenAPI
}

func (a *Adapter) Fetch(ctx context.Context, cfg adapter.SourceConfig) (interface{}, error) {
	return adapter.FetchSource(ctx, a.fetcher, cfg)
}

func (a *Adapter) Parse(raw interface{}, cfg adapter.SourceConfig) (*domain.ServiceDefinition, error) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("source %s: payload is not a JSON object", adapter.SourceName(cfg))
	}
	if !IsDocument(m) {
		return nil, fmt.Errorf("source %s: payload is not an OpenAPI 3.x document", adapter.SourceName(cfg))
	}
	a.validate(m, cfg)
	return ParseDocument(m), nil
}

// validate runs the kin-openapi loader over the payload. Findings are logged
// and never change parse output.
func (a *Adapter) validate(m map[string]interface{}, cfg adapter.SourceConfig) {
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	loader := &openapi3.Loader{Context: context.Background()}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		a.logger.Warn("OpenAPI document failed to load for validation",
			slog.String("source", adapter.SourceName(cfg)), slog.Any("error", err))
		return
	}
	if err := doc.Validate(context.Background()); err != nil {
		a.logger.Warn("OpenAPI document validation reported issues",
			slog.String("source", adapter.SourceName(cfg)), slog.Any("error", err))
	}
}

// IsDocument is the OpenAPI 3.x shape guard: a string openapi field plus a
// paths object.
func IsDocument(m map[string]interface{}) bool {
	version, ok := m["openapi"].(string)
	if !ok || version == "" {
		return false
	}
	_, ok = m["paths"].(map[string]interface{})
	return ok
}

// ParseDocument builds a ServiceDefinition from an OpenAPI 3.x payload. It
// is exported so the Apifox adapter can delegate OpenAPI-shaped exports.
func ParseDocument(m map[string]interface{}) *domain.ServiceDefinition {
	def := &domain.ServiceDefinition{
		Source: domain.SourceInfo{Kind: domain.SourceKindOpenAPI, Raw: m},
	}

	if info, ok := m["info"].(map[string]interface{}); ok {
		def.Title, _ = info["title"].(string)
		def.Version, _ = info["version"].(string)
		def.Description, _ = info["description"].(string)
	}
	for _, entry := range sliceField(m, "servers") {
		if server, ok := entry.(map[string]interface{}); ok {
			if url, ok := server["url"].(string); ok && url != "" {
				def.Servers = append(def.Servers, url)
			}
		}
	}
	if components, ok := m["components"].(map[string]interface{}); ok {
		if schemas, ok := components["schemas"].(map[string]interface{}); ok {
			def.Types = convertNamedSchemas(schemas)
		}
	}

	paths, _ := m["paths"].(map[string]interface{})
	pathKeys := sortedKeys(paths)
	used := make(map[string]int)

	for _, path := range pathKeys {
		item, ok := paths[path].(map[string]interface{})
		if !ok {
			continue
		}
		pathParams := sliceField(item, "parameters")
		for _, verb := range Verbs {
			op, ok := item[verb].(map[string]interface{})
			if !ok {
				continue
			}
			def.Endpoints = append(def.Endpoints, buildEndpoint(path, verb, op, pathParams, used))
		}
	}
	return def
}

func buildEndpoint(path, verb string, op map[string]interface{}, pathParams []interface{}, used map[string]int) domain.EndpointDefinition {
	method := strings.ToUpper(verb)
	ep := domain.EndpointDefinition{
		Path:   path,
		Method: method,
	}
	ep.ID = endpointID(op, method, path, used)
	ep.Name, _ = op["summary"].(string)
	ep.Description, _ = op["description"].(string)
	for _, t := range sliceField(op, "tags") {
		if tag, ok := t.(string); ok {
			ep.Tags = append(ep.Tags, tag)
		}
	}

	// Path-level parameters come first; operation-level ones are appended
	// rather than replacing a same-name entry. Generation de-duplicates by
	// property key later.
	ep.Parameters = append(ep.Parameters, convertParameters(pathParams)...)
	ep.Parameters = append(ep.Parameters, convertParameters(sliceField(op, "parameters"))...)

	if body, ok := op["requestBody"].(map[string]interface{}); ok {
		if content, ok := body["content"].(map[string]interface{}); ok {
			if ct, schema := firstContent(content); schema != nil {
				ep.Body = schema
				ep.BodyType = ct
			}
		}
	}

	ep.Responses = convertResponses(op["responses"])
	return ep
}

// endpointID resolves operationId or synthesizes METHOD_path, then
// disambiguates duplicates with a numeric suffix.
func endpointID(op map[string]interface{}, method, path string, used map[string]int) string {
	id, _ := op["operationId"].(string)
	id = domain.SanitizeID(id)
	if id == "" {
		id = domain.SanitizeID(method + "_" + path)
	}
	used[id]++
	if n := used[id]; n > 1 {
		id = fmt.Sprintf("%s_%d", id, n)
	}
	return id
}

func convertParameters(raws []interface{}) []domain.ParameterDefinition {
	var out []domain.ParameterDefinition
	for _, raw := range raws {
		p, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := p["name"].(string)
		if name == "" {
			// $ref-only entries carry no name; they are skipped rather than
			// resolved.
			continue
		}
		loc := parameterLocation(p)
		if loc == "" {
			continue
		}
		required, _ := p["required"].(bool)
		style, _ := p["style"].(string)
		schema := schemaconv.Convert(p["schema"])
		if schema == nil {
			schema = &domain.Schema{Kind: domain.KindUnknown}
		}
		if schema.Description == "" {
			if d, ok := p["description"].(string); ok {
				schema.Description = d
			}
		}
		out = append(out, domain.ParameterDefinition{
			Name:     name,
			Location: loc,
			Required: required,
			Schema:   schema,
			Style:    style,
		})
	}
	return out
}

func parameterLocation(p map[string]interface{}) domain.ParameterLocation {
	in, _ := p["in"].(string)
	switch in {
	case "path":
		return domain.LocationPath
	case "query":
		return domain.LocationQuery
	case "header":
		return domain.LocationHeader
	default:
		return ""
	}
}

func convertResponses(raw interface{}) []domain.ResponseDefinition {
	responses, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	var out []domain.ResponseDefinition
	for _, code := range sortedKeys(responses) {
		resp, ok := responses[code].(map[string]interface{})
		if !ok {
			continue
		}
		status, _ := strconv.Atoi(code)
		rd := domain.ResponseDefinition{Status: status}
		rd.Description, _ = resp["description"].(string)
		if content, ok := resp["content"].(map[string]interface{}); ok {
			if ct, schema := firstContent(content); schema != nil {
				rd.ContentType = ct
				rd.Schema = schema
			}
		}
		out = append(out, rd)
	}
	domain.SortResponses(out)
	return out
}

// firstContent picks the first declared content-type/schema pair, preferring
// application/json, then the lexicographically first media type so output is
// deterministic.
func firstContent(content map[string]interface{}) (string, *domain.Schema) {
	keys := sortedKeys(content)
	ordered := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "application/json" {
			ordered = append([]string{k}, ordered...)
		} else {
			ordered = append(ordered, k)
		}
	}
	for _, ct := range ordered {
		media, ok := content[ct].(map[string]interface{})
		if !ok {
			continue
		}
		if schema := schemaconv.Convert(media["schema"]); schema != nil {
			return ct, schema
		}
	}
	return "", nil
}

func convertNamedSchemas(schemas map[string]interface{}) map[string]*domain.Schema {
	out := make(map[string]*domain.Schema, len(schemas))
	for name, raw := range schemas {
		if s := schemaconv.Convert(raw); s != nil {
			out[name] = s
		}
	}
	return out
}

func sliceField(m map[string]interface{}, key string) []interface{} {
	s, _ := m[key].([]interface{})
	return s
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
