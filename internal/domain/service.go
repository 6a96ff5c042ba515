package domain

import (
	"sort"
	"strings"

	"github.com/mohae/deepcopy"
)

// SourceKind identifies the document dialect a service definition was parsed
// from. Adapters declare the kind they handle; source configs select adapters
// by the same tag.
type SourceKind string

const (
	SourceKindOpenAPI SourceKind = "openapi"
	SourceKindSwagger SourceKind = "swagger"
	SourceKindPostman SourceKind = "postman"
	SourceKindApifox  SourceKind = "apifox"
)

// ParameterLocation is where a parameter travels on the wire.
type ParameterLocation string

const (
	LocationPath   ParameterLocation = "path"
	LocationQuery  ParameterLocation = "query"
	LocationHeader ParameterLocation = "header"
	LocationBody   ParameterLocation = "body"
)

// ParameterDefinition describes a single named parameter of an endpoint.
// Name uniqueness within an (endpoint, location) pair is expected but not
// enforced; on collision the last one generated wins in emitted code.
type ParameterDefinition struct {
	Name     string            `json:"name"`
	Location ParameterLocation `json:"location"`
	Required bool              `json:"required"`
	Schema   *Schema           `json:"schema,omitempty"`
	Style    string            `json:"style,omitempty"`
}

// ResponseDefinition is one declared response of an endpoint. Status 0 means
// the source declared a non-numeric key (e.g. "default").
type ResponseDefinition struct {
	Status      int     `json:"status"`
	Description string  `json:"description,omitempty"`
	ContentType string  `json:"contentType,omitempty"`
	Schema      *Schema `json:"schema,omitempty"`
}

// EndpointDefinition is one normalized HTTP operation.
//
// ID must be a non-empty identifier-safe string unique within the owning
// ServiceDefinition; producers sanitize and disambiguate before constructing
// it (operationId when present, METHOD_path otherwise).
type EndpointDefinition struct {
	ID          string                `json:"id"`
	Name        string                `json:"name,omitempty"`
	Description string                `json:"description,omitempty"`
	Path        string                `json:"path"`
	Method      string                `json:"method"`
	Tags        []string              `json:"tags,omitempty"`
	Parameters  []ParameterDefinition `json:"parameters,omitempty"`
	Body        *Schema               `json:"body,omitempty"`
	BodyType    string                `json:"bodyType,omitempty"`
	Responses   []ResponseDefinition  `json:"responses,omitempty"`
}

// ParametersIn returns the endpoint's parameters for one location, in
// declaration order.
func (e *EndpointDefinition) ParametersIn(loc ParameterLocation) []ParameterDefinition {
	var out []ParameterDefinition
	for _, p := range e.Parameters {
		if p.Location == loc {
			out = append(out, p)
		}
	}
	return out
}

// SuccessResponse returns the first response with a 2xx status, or nil.
func (e *EndpointDefinition) SuccessResponse() *ResponseDefinition {
	for i := range e.Responses {
		if e.Responses[i].Status >= 200 && e.Responses[i].Status <= 299 {
			return &e.Responses[i]
		}
	}
	return nil
}

// SortResponses orders responses so the first 2xx entry sorts before all
// others; ties keep their relative order.
func SortResponses(responses []ResponseDefinition) {
	sort.SliceStable(responses, func(i, j int) bool {
		iOK := responses[i].Status >= 200 && responses[i].Status <= 299
		jOK := responses[j].Status >= 200 && responses[j].Status <= 299
		return iOK && !jOK
	})
}

// SourceInfo records where a service definition came from.
type SourceInfo struct {
	Kind SourceKind  `json:"kind"`
	Raw  interface{} `json:"-"`
}

// ServiceDefinition is the unified intermediate representation of an API
// surface. It is owned exclusively by the pipeline run that created it and is
// deep-cloned before any normalization mutation.
type ServiceDefinition struct {
	Title       string                `json:"title,omitempty"`
	Version     string                `json:"version,omitempty"`
	Description string                `json:"description,omitempty"`
	Servers     []string              `json:"servers,omitempty"`
	Types       map[string]*Schema    `json:"types,omitempty"`
	Endpoints   []EndpointDefinition  `json:"endpoints"`
	Source      SourceInfo            `json:"source"`
}

// Clone returns a deep copy safe to mutate without touching the receiver.
func (s *ServiceDefinition) Clone() *ServiceDefinition {
	if s == nil {
		return nil
	}
	return deepcopy.Copy(s).(*ServiceDefinition)
}

// SanitizeID turns an arbitrary string into an identifier-safe endpoint id.
// Non-alphanumeric runs collapse to a single underscore.
func SanitizeID(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}
