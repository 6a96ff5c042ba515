package generate

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/typeforge/typeforge/internal/domain"
)

// endpointSegments derives the output path segments for an endpoint: every
// slash-delimited, brace/colon-stripped segment of the path template,
// slugified. When the template yields nothing usable, the endpoint's name or
// id becomes a single fallback segment.
func endpointSegments(ep *domain.EndpointDefinition) []string {
	var segments []string
	for _, raw := range strings.Split(strings.Trim(ep.Path, "/"), "/") {
		raw = strings.TrimPrefix(raw, ":")
		raw = strings.Trim(raw, "{}")
		if slug := slugify(raw); slug != "" {
			segments = append(segments, slug)
		}
	}
	if len(segments) > 0 {
		return segments
	}
	fallback := ep.Name
	if fallback == "" {
		fallback = ep.ID
	}
	if slug := slugify(fallback); slug != "" {
		return []string{slug}
	}
	return []string{"endpoint"}
}

// slugify hyphen-cases a segment: letters and digits survive lowercased,
// everything else collapses to single hyphens.
func slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case r >= 'A' && r <= 'Z':
			// Break camelCase words apart.
			if !lastHyphen {
				b.WriteByte('-')
			}
			b.WriteRune(r + ('a' - 'A'))
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// pascalCase converts an identifier-safe id into PascalCase.
func pascalCase(id string) string {
	parts := strings.FieldsFunc(id, func(r rune) bool {
		return r == '_' || r == '-'
	})
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

// camelCase converts an identifier-safe id into camelCase.
func camelCase(id string) string {
	p := pascalCase(id)
	if p == "" {
		return p
	}
	return strings.ToLower(p[:1]) + p[1:]
}

// relativeImport computes the module specifier from the directory holding
// fromFile to the extension-less module at toPath.
func relativeImport(fromFile, toPath string) string {
	fromDir := path.Dir(fromFile)
	up := 0
	if fromDir != "." {
		up = strings.Count(fromDir, "/") + 1
	}
	prefix := strings.Repeat("../", up)
	if prefix == "" {
		prefix = "./"
	}
	return prefix + toPath
}

// paramBucket collapses same-location parameters into one object schema.
// On a name collision the last parameter generated wins.
type paramBucket struct {
	schema      *domain.Schema
	anyRequired bool
}

func bucketFor(params []domain.ParameterDefinition) *paramBucket {
	if len(params) == 0 {
		return nil
	}
	b := &paramBucket{schema: &domain.Schema{
		Kind:       domain.KindObject,
		Properties: make(map[string]*domain.Schema, len(params)),
	}}
	required := make(map[string]bool)
	for _, p := range params {
		schema := p.Schema
		if schema == nil {
			schema = &domain.Schema{Kind: domain.KindUnknown}
		}
		b.schema.Properties[p.Name] = schema
		required[p.Name] = p.Required
	}
	for name, isRequired := range required {
		if isRequired {
			b.schema.Required = append(b.schema.Required, name)
			b.anyRequired = true
		}
	}
	// Keep the required list stable.
	sort.Strings(b.schema.Required)
	return b
}

// renderEndpointFile emits one endpoint module: request shape, response
// type, caller type, and a concrete client class extending the shared
// transport base.
func renderEndpointFile(ep *domain.EndpointDefinition, filename, transportPath string) string {
	typeName := pascalCase(ep.ID)
	methodName := camelCase(ep.ID)
	requestType := typeName + "Request"
	responseType := typeName + "Response"

	pathBucket := bucketFor(ep.ParametersIn(domain.LocationPath))
	queryBucket := bucketFor(ep.ParametersIn(domain.LocationQuery))
	headerBucket := bucketFor(ep.ParametersIn(domain.LocationHeader))

	var b strings.Builder
	fmt.Fprintf(&b, "// Auto-generated for %s %s\n", ep.Method, ep.Path)
	b.WriteString("// Do not edit manually.\n\n")
	fmt.Fprintf(&b, "import { HttpClientBase } from '%s';\n\n", relativeImport(filename, transportPath))

	if ep.Description != "" {
		fmt.Fprintf(&b, "/** %s */\n", sanitizeComment(ep.Description))
	}
	fmt.Fprintf(&b, "export interface %s {\n", requestType)
	writeBucket(&b, "path", pathBucket)
	writeBucket(&b, "query", queryBucket)
	writeBucket(&b, "headers", headerBucket)
	if ep.Body != nil {
		fmt.Fprintf(&b, "  body: %s;\n", RenderType(ep.Body, 1))
	}
	b.WriteString("  signal?: AbortSignal;\n")
	b.WriteString("}\n\n")

	fmt.Fprintf(&b, "export type %s = %s;\n\n", responseType, responseTypeExpr(ep))
	fmt.Fprintf(&b, "export type %sCaller = (request: %s) => Promise<%s>;\n\n",
		typeName, requestType, responseType)

	fmt.Fprintf(&b, "export class %sClient extends HttpClientBase {\n", typeName)
	arg := fmt.Sprintf("request: %s", requestType)
	if !requestHasRequiredFields(ep, pathBucket, queryBucket, headerBucket) {
		arg += " = {}"
	}
	fmt.Fprintf(&b, "  %s(%s): Promise<%s> {\n", methodName, arg, responseType)
	b.WriteString("    return this.request({\n")
	fmt.Fprintf(&b, "      method: '%s',\n", ep.Method)
	fmt.Fprintf(&b, "      path: '%s',\n", ep.Path)
	if pathBucket != nil {
		b.WriteString("      pathParams: request.path,\n")
	}
	if queryBucket != nil {
		b.WriteString("      query: request.query,\n")
	}
	if headerBucket != nil {
		b.WriteString("      headers: request.headers,\n")
	}
	if ep.Body != nil {
		b.WriteString("      body: request.body,\n")
		if ep.BodyType != "" {
			fmt.Fprintf(&b, "      contentType: '%s',\n", ep.BodyType)
		}
	}
	b.WriteString("      signal: request.signal,\n")
	b.WriteString("    });\n")
	b.WriteString("  }\n")
	b.WriteString("}\n")
	return b.String()
}

func writeBucket(b *strings.Builder, field string, bucket *paramBucket) {
	if bucket == nil {
		return
	}
	optional := "?"
	if bucket.anyRequired {
		optional = ""
	}
	fmt.Fprintf(b, "  %s%s: %s;\n", field, optional, RenderType(bucket.schema, 1))
}

// responseTypeExpr derives the response type from the first 2xx response, or
// void when the endpoint declares none.
func responseTypeExpr(ep *domain.EndpointDefinition) string {
	resp := ep.SuccessResponse()
	if resp == nil || resp.Schema == nil {
		return "void"
	}
	return RenderType(resp.Schema, 0)
}

func requestHasRequiredFields(ep *domain.EndpointDefinition, buckets ...*paramBucket) bool {
	if ep.Body != nil {
		return true
	}
	for _, bucket := range buckets {
		if bucket != nil && bucket.anyRequired {
			return true
		}
	}
	return false
}
