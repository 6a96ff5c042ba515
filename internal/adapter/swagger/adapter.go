// Package swagger adapts Swagger 2.0 documents. Body parameters
// (in: "body") are pulled out of the parameter list into the endpoint body;
// every other parameter keeps Swagger's flat in value.
package swagger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/typeforge/typeforge/internal/adapter"
	"github.com/typeforge/typeforge/internal/domain"
	"github.com/typeforge/typeforge/internal/fetch"
	"github.com/typeforge/typeforge/internal/schemaconv"
)

var verbs = []string{"get", "put", "post", "delete", "options", "head", "patch"}

// Adapter implements adapter.Adapter for Swagger 2.0.
type Adapter struct {
	fetcher *fetch.Fetcher
	logger  *slog.Logger
}

func NewAdapter(fetcher *fetch.Fetcher, logger *slog.Logger) *Adapter {
	return &Adapter{
		fetcher: fetcher,
		logger:  logger.With("component", "swagger_adapter"),
	}
}

func (a *Adapter) Type() domain.SourceKind { return domain.SourceKindSwagger }

func (a *Adapter) CanHandle(cfg adapter.SourceConfig) bool {
	return cfg.Type == "" || cfg.Type == domain.SourceKindSwagger
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
		return nil, fmt.Errorf("source %s: payload is not a Swagger 2.0 document", adapter.SourceName(cfg))
	}
	return ParseDocument(m), nil
}

// IsDocument is the Swagger 2.0 shape guard: the literal "2.0" version plus
// a paths object.
func IsDocument(m map[string]interface{}) bool {
	version, ok := m["swagger"].(string)
	if !ok || version != "2.0" {
		return false
	}
	_, ok = m["paths"].(map[string]interface{})
	return ok
}

// ParseDocument builds a ServiceDefinition from a Swagger 2.0 payload.
// Exported for the Apifox adapter's delegation path.
func ParseDocument(m map[string]interface{}) *domain.ServiceDefinition {
	def := &domain.ServiceDefinition{
		Source: domain.SourceInfo{Kind: domain.SourceKindSwagger, Raw: m},
	}

	if info, ok := m["info"].(map[string]interface{}); ok {
		def.Title, _ = info["title"].(string)
		def.Version, _ = info["version"].(string)
		def.Description, _ = info["description"].(string)
	}
	def.Servers = servers(m)
	if definitions, ok := m["definitions"].(map[string]interface{}); ok {
		def.Types = make(map[string]*domain.Schema, len(definitions))
		for name, raw := range definitions {
			if s := schemaconv.Convert(raw); s != nil {
				def.Types[name] = s
			}
		}
	}

	defaultProduces := firstString(m["produces"])
	paths, _ := m["paths"].(map[string]interface{})
	used := make(map[string]int)

	for _, path := range sortedKeys(paths) {
		item, ok := paths[path].(map[string]interface{})
		if !ok {
			continue
		}
		pathParams, _ := item["parameters"].([]interface{})
		for _, verb := range verbs {
			op, ok := item[verb].(map[string]interface{})
			if !ok {
				continue
			}
			def.Endpoints = append(def.Endpoints, buildEndpoint(path, verb, op, pathParams, defaultProduces, used))
		}
	}
	return def
}

func buildEndpoint(path, verb string, op map[string]interface{}, pathParams []interface{}, defaultProduces string, used map[string]int) domain.EndpointDefinition {
	method := strings.ToUpper(verb)
	ep := domain.EndpointDefinition{Path: path, Method: method}

	id, _ := op["operationId"].(string)
	id = domain.SanitizeID(id)
	if id == "" {
		id = domain.SanitizeID(method + "_" + path)
	}
	used[id]++
	if n := used[id]; n > 1 {
		id = fmt.Sprintf("%s_%d", id, n)
	}
	ep.ID = id

	ep.Name, _ = op["summary"].(string)
	ep.Description, _ = op["description"].(string)
	if tags, ok := op["tags"].([]interface{}); ok {
		for _, t := range tags {
			if tag, ok := t.(string); ok {
				ep.Tags = append(ep.Tags, tag)
			}
		}
	}

	var rawParams []interface{}
	rawParams = append(rawParams, pathParams...)
	if opParams, ok := op["parameters"].([]interface{}); ok {
		rawParams = append(rawParams, opParams...)
	}
	for _, raw := range rawParams {
		p, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := p["name"].(string)
		in, _ := p["in"].(string)
		required, _ := p["required"].(bool)

		if in == "body" {
			// The body parameter carries a full JSON Schema under "schema".
			if s := schemaconv.Convert(p["schema"]); s != nil {
				ep.Body = s
			} else {
				ep.Body = &domain.Schema{Kind: domain.KindUnknown}
			}
			ep.BodyType = firstStringOr(op["consumes"], "application/json")
			continue
		}

		loc := location(in)
		if name == "" || loc == "" {
			continue
		}
		// Non-body Swagger parameters declare their type inline, so the
		// parameter map itself is the descriptor.
		schema := schemaconv.Convert(p)
		if schema == nil {
			schema = &domain.Schema{Kind: domain.KindUnknown}
		}
		ep.Parameters = append(ep.Parameters, domain.ParameterDefinition{
			Name:     name,
			Location: loc,
			Required: required,
			Schema:   schema,
		})
	}

	produces := firstString(op["produces"])
	if produces == "" {
		produces = defaultProduces
	}
	ep.Responses = responses(op["responses"], produces)
	return ep
}

func location(in string) domain.ParameterLocation {
	switch in {
	case "path":
		return domain.LocationPath
	case "query":
		return domain.LocationQuery
	case "header":
		return domain.LocationHeader
	case "formData":
		// Form fields travel in the request body.
		return domain.LocationBody
	default:
		return ""
	}
}

func responses(raw interface{}, produces string) []domain.ResponseDefinition {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	var out []domain.ResponseDefinition
	for _, code := range sortedKeys(m) {
		resp, ok := m[code].(map[string]interface{})
		if !ok {
			continue
		}
		status, _ := strconv.Atoi(code)
		rd := domain.ResponseDefinition{Status: status}
		rd.Description, _ = resp["description"].(string)
		if s := schemaconv.Convert(resp["schema"]); s != nil {
			rd.Schema = s
			rd.ContentType = produces
			if rd.ContentType == "" {
				rd.ContentType = "application/json"
			}
		}
		out = append(out, rd)
	}
	domain.SortResponses(out)
	return out
}

// servers reconstructs base URLs from schemes, host and basePath.
func servers(m map[string]interface{}) []string {
	host, _ := m["host"].(string)
	if host == "" {
		return nil
	}
	basePath, _ := m["basePath"].(string)
	var schemes []string
	if raw, ok := m["schemes"].([]interface{}); ok {
		for _, s := range raw {
			if scheme, ok := s.(string); ok {
				schemes = append(schemes, scheme)
			}
		}
	}
	if len(schemes) == 0 {
		schemes = []string{"https"}
	}
	out := make([]string, 0, len(schemes))
	for _, scheme := range schemes {
		out = append(out, scheme+"://"+host+basePath)
	}
	return out
}

func firstString(raw interface{}) string {
	if s, ok := raw.([]interface{}); ok && len(s) > 0 {
		if str, ok := s[0].(string); ok {
			return str
		}
	}
	return ""
}

func firstStringOr(raw interface{}, fallback string) string {
	if s := firstString(raw); s != "" {
		return s
	}
	return fallback
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
