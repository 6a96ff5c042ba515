// Package postman adapts Postman Collection v2.x exports. Collections carry
// literal example payloads instead of schemas, so body and response shapes
// are inferred from examples.
package postman

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/typeforge/typeforge/internal/adapter"
	"github.com/typeforge/typeforge/internal/domain"
	"github.com/typeforge/typeforge/internal/fetch"
	"github.com/typeforge/typeforge/internal/schemaconv"
)

// The three token patterns a raw Postman URL can carry path parameters in.
var (
	mustachePattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)
	colonPattern    = regexp.MustCompile(`:([A-Za-z0-9_]+)`)
	bracePattern    = regexp.MustCompile(`\{([^{}]+)\}`)
)

// Adapter implements adapter.Adapter for Postman collections.
type Adapter struct {
	fetcher *fetch.Fetcher
	logger  *slog.Logger
}

func NewAdapter(fetcher *fetch.Fetcher, logger *slog.Logger) *Adapter {
	return &Adapter{
		fetcher: fetcher,
		logger:  logger.With("component", "postman_adapter"),
	}
}

func (a *Adapter) Type() domain.SourceKind { return domain.SourceKindPostman }

func (a *Adapter) CanHandle(cfg adapter.SourceConfig) bool {
	return cfg.Type == "" || cfg.Type == domain.SourceKindPostman
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
		return nil, fmt.Errorf("source %s: payload is not a Postman collection", adapter.SourceName(cfg))
	}

	def := &domain.ServiceDefinition{
		Source: domain.SourceInfo{Kind: domain.SourceKindPostman, Raw: m},
	}
	if info, ok := m["info"].(map[string]interface{}); ok {
		def.Title, _ = info["name"].(string)
		def.Description, _ = info["description"].(string)
	}

	w := &walker{used: make(map[string]int)}
	w.walk(items(m), nil)
	def.Endpoints = w.endpoints
	return def, nil
}

// IsDocument is the collection shape guard: an info.schema string mentioning
// postman.
func IsDocument(m map[string]interface{}) bool {
	info, ok := m["info"].(map[string]interface{})
	if !ok {
		return false
	}
	schema, ok := info["schema"].(string)
	return ok && strings.Contains(strings.ToLower(schema), "postman")
}

type walker struct {
	endpoints []domain.EndpointDefinition
	used      map[string]int
}

// walk recurses folders, accumulating folder names as tags.
func (w *walker) walk(entries []interface{}, folders []string) {
	for _, entry := range entries {
		item, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		if children := items(item); children != nil {
			name, _ := item["name"].(string)
			next := folders
			if name != "" {
				next = append(append([]string{}, folders...), name)
			}
			w.walk(children, next)
			continue
		}
		if request, ok := item["request"].(map[string]interface{}); ok {
			w.endpoints = append(w.endpoints, w.leaf(item, request, folders))
		}
	}
}

func (w *walker) leaf(item, request map[string]interface{}, folders []string) domain.EndpointDefinition {
	method, _ := request["method"].(string)
	if method == "" {
		method = "GET"
	}
	method = strings.ToUpper(method)

	rawURL, urlObj := requestURL(request)
	path := derivePath(rawURL, urlObj)

	ep := domain.EndpointDefinition{
		Method: method,
		Path:   path,
		Tags:   append([]string{}, folders...),
	}
	ep.Name, _ = item["name"].(string)
	ep.Description = requestDescription(request)

	id := domain.SanitizeID(ep.Name)
	if id == "" {
		id = domain.SanitizeID(method + "_" + path)
	}
	w.used[id]++
	if n := w.used[id]; n > 1 {
		id = fmt.Sprintf("%s_%d", id, n)
	}
	ep.ID = id

	for _, name := range pathParamNames(rawURL) {
		ep.Parameters = append(ep.Parameters, domain.ParameterDefinition{
			Name:     name,
			Location: domain.LocationPath,
			Required: true,
			Schema:   &domain.Schema{Kind: domain.KindString},
		})
	}
	ep.Parameters = append(ep.Parameters, keyedParams(urlObj, "query", domain.LocationQuery)...)
	ep.Parameters = append(ep.Parameters, keyedParams(request, "header", domain.LocationHeader)...)

	if body, ok := request["body"].(map[string]interface{}); ok {
		ep.Body, ep.BodyType = deriveBody(body)
	}
	ep.Responses = deriveResponses(item)
	return ep
}

func items(m map[string]interface{}) []interface{} {
	s, _ := m["item"].([]interface{})
	return s
}

func requestURL(request map[string]interface{}) (string, map[string]interface{}) {
	switch u := request["url"].(type) {
	case string:
		return u, nil
	case map[string]interface{}:
		raw, _ := u["raw"].(string)
		return raw, u
	}
	return "", nil
}

func requestDescription(request map[string]interface{}) string {
	switch d := request["description"].(type) {
	case string:
		return d
	case map[string]interface{}:
		content, _ := d["content"].(string)
		return content
	}
	return ""
}

// derivePath prefers the structured path segments, falling back to the raw
// URL string with scheme, host and query stripped. Postman's {{var}} and
// :name tokens are normalized to {name} templates.
func derivePath(rawURL string, urlObj map[string]interface{}) string {
	if urlObj != nil {
		if segments, ok := urlObj["path"].([]interface{}); ok && len(segments) > 0 {
			parts := make([]string, 0, len(segments))
			for _, seg := range segments {
				if s, ok := seg.(string); ok && s != "" {
					parts = append(parts, normalizeSegment(s))
				}
			}
			if len(parts) > 0 {
				return "/" + strings.Join(parts, "/")
			}
		}
	}

	path := stripOrigin(rawURL)
	path = mustachePattern.ReplaceAllStringFunc(path, func(token string) string {
		return "{" + mustachePattern.FindStringSubmatch(token)[1] + "}"
	})
	if idx := strings.Index(path, "?"); idx >= 0 {
		path = path[:idx]
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		parts = append(parts, normalizeSegment(seg))
	}
	return "/" + strings.Join(parts, "/")
}

// stripOrigin drops the scheme and host (including any port) from a raw
// Postman URL, leaving only the path-and-beyond part.
func stripOrigin(rawURL string) string {
	path := rawURL
	if idx := strings.Index(path, "://"); idx >= 0 {
		path = path[idx+3:]
		if slash := strings.Index(path, "/"); slash >= 0 {
			path = path[slash:]
		} else {
			path = "/"
		}
	}
	// A leading {{base_url}} style variable stands in for the host.
	if strings.HasPrefix(path, "{{") {
		if end := strings.Index(path, "}}"); end >= 0 {
			path = path[end+2:]
		}
	}
	return path
}

func normalizeSegment(seg string) string {
	if strings.HasPrefix(seg, ":") && len(seg) > 1 {
		return "{" + seg[1:] + "}"
	}
	seg = mustachePattern.ReplaceAllStringFunc(seg, func(token string) string {
		return "{" + mustachePattern.FindStringSubmatch(token)[1] + "}"
	})
	return seg
}

// pathParamNames checks all three token patterns against the path part of
// the raw URL and returns a deduplicated name list in first-seen order. The
// scheme and host are stripped first so a port (localhost:3000) or host
// variable ({{base_url}}) never becomes a phantom parameter; all-digit names
// are rejected for the same reason.
func pathParamNames(rawURL string) []string {
	seen := make(map[string]struct{})
	var names []string
	add := func(name string) {
		if name == "" || isAllDigits(name) {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	path := stripOrigin(rawURL)
	for _, match := range mustachePattern.FindAllStringSubmatch(path, -1) {
		add(match[1])
	}
	stripped := mustachePattern.ReplaceAllString(path, "")
	for _, match := range colonPattern.FindAllStringSubmatch(stripped, -1) {
		add(match[1])
	}
	for _, match := range bracePattern.FindAllStringSubmatch(stripped, -1) {
		add(match[1])
	}
	return names
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// keyedParams converts Postman's [{key, value, description}] lists.
func keyedParams(m map[string]interface{}, field string, loc domain.ParameterLocation) []domain.ParameterDefinition {
	if m == nil {
		return nil
	}
	entries, ok := m[field].([]interface{})
	if !ok {
		return nil
	}
	var out []domain.ParameterDefinition
	for _, raw := range entries {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		key, _ := entry["key"].(string)
		if key == "" {
			continue
		}
		schema := &domain.Schema{Kind: domain.KindString}
		if d, ok := entry["description"].(string); ok {
			schema.Description = d
		}
		out = append(out, domain.ParameterDefinition{
			Name:     key,
			Location: loc,
			Schema:   schema,
		})
	}
	return out
}

// deriveBody maps the request body modes: raw JSON bodies are
// example-inferred, everything else collapses to string/object placeholders.
func deriveBody(body map[string]interface{}) (*domain.Schema, string) {
	mode, _ := body["mode"].(string)
	switch mode {
	case "raw":
		raw, _ := body["raw"].(string)
		if raw == "" {
			return nil, ""
		}
		var example interface{}
		if err := json.Unmarshal([]byte(raw), &example); err == nil {
			return schemaconv.InferFromExample(example), "application/json"
		}
		return &domain.Schema{Kind: domain.KindString}, "text/plain"
	case "urlencoded":
		return formSchema(body, "urlencoded"), "application/x-www-form-urlencoded"
	case "formdata":
		return formSchema(body, "formdata"), "multipart/form-data"
	case "file":
		return &domain.Schema{Kind: domain.KindString}, "application/octet-stream"
	case "":
		return nil, ""
	default:
		return &domain.Schema{Kind: domain.KindObject}, ""
	}
}

func formSchema(body map[string]interface{}, field string) *domain.Schema {
	s := &domain.Schema{Kind: domain.KindObject}
	entries, ok := body[field].([]interface{})
	if !ok {
		return s
	}
	for _, raw := range entries {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		key, _ := entry["key"].(string)
		if key == "" {
			continue
		}
		if s.Properties == nil {
			s.Properties = make(map[string]*domain.Schema)
		}
		s.Properties[key] = &domain.Schema{Kind: domain.KindString}
	}
	return s
}

// deriveResponses pulls exactly one response example, the first if present,
// and infers its body schema.
func deriveResponses(item map[string]interface{}) []domain.ResponseDefinition {
	entries, ok := item["response"].([]interface{})
	if !ok || len(entries) == 0 {
		return nil
	}
	first, ok := entries[0].(map[string]interface{})
	if !ok {
		return nil
	}
	rd := domain.ResponseDefinition{Status: 200}
	if code, ok := first["code"].(float64); ok {
		rd.Status = int(code)
	}
	rd.Description, _ = first["name"].(string)
	if body, ok := first["body"].(string); ok && body != "" {
		var example interface{}
		if err := json.Unmarshal([]byte(body), &example); err == nil {
			rd.Schema = schemaconv.InferFromExample(example)
			rd.ContentType = "application/json"
		} else {
			rd.Schema = &domain.Schema{Kind: domain.KindString}
			rd.ContentType = "text/plain"
		}
	}
	return []domain.ResponseDefinition{rd}
}
