// Package fetch resolves one or many raw document sources (HTTP, local file,
// discovery-chain) into a single raw payload, merging multiple OpenAPI-like
// documents when required.
package fetch

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseMode controls how a response body is decoded.
type ParseMode string

const (
	// ParseAuto sniffs the response Content-Type: JSON media types decode to
	// a document, text/* to a string, anything else to raw bytes.
	ParseAuto   ParseMode = "auto"
	ParseJSON   ParseMode = "json"
	ParseText   ParseMode = "text"
	ParseBuffer ParseMode = "buffer"
)

// Request describes one document retrieval. A URL with a file scheme or with
// no scheme at all is read from local storage and JSON-parsed.
type Request struct {
	URL     string
	Method  string
	Headers map[string]string
	Query   map[string]string
	Body    interface{}
	Parse   ParseMode
}

// Resolver turns a discovery bootstrap response into the actual follow-up
// request(s). An error here fails the whole source; discovery must never
// silently produce an empty document.
type Resolver func(bootstrap interface{}) ([]Request, error)

// Discovery is a source whose real document location is only known after an
// initial bootstrap request.
type Discovery struct {
	Bootstrap Request
	Resolve   Resolver
}

// Source is one configured document source: exactly one of Request, Requests
// or Discovery should be set. When multiple requests are involved their
// payloads are merged with Merge (or MergeFunc, which overrides everything).
type Source struct {
	Request   *Request
	Requests  []Request
	Discovery *Discovery

	Merge     Strategy
	MergeFunc MergeFunc
}

// IsLocal reports whether the request URL points at local storage rather
// than the network.
func (r Request) IsLocal() (string, bool) {
	if strings.HasPrefix(r.URL, "file://") {
		return strings.TrimPrefix(r.URL, "file://"), true
	}
	u, err := url.Parse(r.URL)
	if err != nil || u.Scheme == "" {
		return r.URL, true
	}
	return "", false
}

// Common schema paths exposed by popular frameworks, probed by
// WellKnownResolver when a bootstrap payload carries no explicit link.
var CommonSchemaPaths = []string{
	"/openapi.json",
	"/docs/openapi.json",
	"/swagger.json",
	"/v3/api-docs",
	"/api-docs",
	"/api/openapi.json",
	"/swagger/v1/swagger.json",
}

// WellKnownResolver returns a Resolver for services that publish the schema
// location in their bootstrap payload (under a url/openapi_url/schema_url
// key). When no link is present it falls back to probing the common schema
// paths under baseURL.
func WellKnownResolver(baseURL string) Resolver {
	return func(bootstrap interface{}) ([]Request, error) {
		if m, ok := bootstrap.(map[string]interface{}); ok {
			for _, key := range []string{"url", "openapi_url", "schema_url"} {
				if link, ok := m[key].(string); ok && link != "" {
					resolved, err := resolveAgainst(baseURL, link)
					if err != nil {
						return nil, err
					}
					return []Request{{URL: resolved, Parse: ParseJSON}}, nil
				}
			}
		}
		requests := make([]Request, 0, len(CommonSchemaPaths))
		for _, p := range CommonSchemaPaths {
			requests = append(requests, Request{URL: strings.TrimSuffix(baseURL, "/") + p, Parse: ParseJSON})
		}
		return requests, nil
	}
}

func resolveAgainst(base, link string) (string, error) {
	linkURL, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("invalid discovered link %q: %w", link, err)
	}
	if linkURL.IsAbs() {
		return link, nil
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	return baseURL.ResolveReference(linkURL).String(), nil
}
