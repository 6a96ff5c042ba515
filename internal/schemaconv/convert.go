// Package schemaconv converts source-specific, JSON-Schema-flavored type
// descriptors into the unified domain.Schema algebra, and infers schemas
// from literal example payloads when no descriptor is declared.
//
// Both operations are pure and total over well-formed input: malformed nodes
// degrade to the unknown kind instead of failing the whole document. $ref
// nodes are not resolved; a descriptor that is only a $ref converts to
// unknown.
package schemaconv

import (
	"github.com/typeforge/typeforge/internal/domain"
)

// maxDepth bounds recursion so adversarially nested (or accidentally cyclic)
// raw payloads degrade to unknown instead of exhausting the stack.
const maxDepth = 64

// Convert maps a raw type descriptor into a Schema. It returns nil only when
// raw is not a JSON object, which lets callers omit unknown fields.
func Convert(raw interface{}) *domain.Schema {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	return convertMap(m, 0)
}

func convertMap(m map[string]interface{}, depth int) *domain.Schema {
	if depth > maxDepth {
		return &domain.Schema{Kind: domain.KindUnknown}
	}

	s := &domain.Schema{}
	if d, ok := m["description"].(string); ok {
		s.Description = d
	}
	if nullable, ok := m["nullable"].(bool); ok && nullable {
		s.Nullable = true
	}

	typeName, hasType := resolveType(m, s)
	if hasType {
		convertTyped(typeName, m, s, depth)
		return s
	}

	// No type declared: oneOf/anyOf, then enum, then unknown.
	if variants := unionVariants(m, depth); len(variants) > 0 {
		s.Kind = domain.KindOneOf
		s.Variants = variants
		return s
	}
	if values, ok := m["enum"].([]interface{}); ok && len(values) > 0 {
		s.Kind = domain.KindEnum
		s.Values = values
		return s
	}
	s.Kind = domain.KindUnknown
	return s
}

// resolveType extracts the primitive type name, treating a type array by
// preferring the non-"null" member and marking the node nullable.
func resolveType(m map[string]interface{}, s *domain.Schema) (string, bool) {
	switch t := m["type"].(type) {
	case string:
		return t, true
	case []interface{}:
		name := ""
		for _, entry := range t {
			str, ok := entry.(string)
			if !ok {
				continue
			}
			if str == "null" {
				s.Nullable = true
				continue
			}
			if name == "" {
				name = str
			}
		}
		if name != "" {
			return name, true
		}
		if s.Nullable {
			// ["null"] alone is a null type, not a nullable unknown.
			return "null", true
		}
	}
	return "", false
}

func convertTyped(typeName string, m map[string]interface{}, s *domain.Schema, depth int) {
	switch typeName {
	case "string":
		s.Kind = domain.KindString
	case "number":
		s.Kind = domain.KindNumber
	case "integer":
		s.Kind = domain.KindInteger
	case "boolean":
		s.Kind = domain.KindBoolean
	case "null":
		s.Kind = domain.KindNull
		s.Nullable = false
	case "any":
		s.Kind = domain.KindAny
	case "object":
		convertObject(m, s, depth)
	case "array":
		convertArray(m, s, depth)
	default:
		s.Kind = domain.KindUnknown
	}
}

func convertObject(m map[string]interface{}, s *domain.Schema, depth int) {
	s.Kind = domain.KindObject
	if props, ok := m["properties"].(map[string]interface{}); ok {
		s.Properties = make(map[string]*domain.Schema, len(props))
		for name, rawProp := range props {
			propMap, ok := rawProp.(map[string]interface{})
			if !ok {
				s.Properties[name] = &domain.Schema{Kind: domain.KindUnknown}
				continue
			}
			s.Properties[name] = convertMap(propMap, depth+1)
		}
	}
	if required, ok := m["required"].([]interface{}); ok {
		for _, entry := range required {
			name, ok := entry.(string)
			if !ok {
				continue
			}
			// Required must stay a subset of the declared properties.
			if _, declared := s.Properties[name]; declared {
				s.Required = append(s.Required, name)
			}
		}
	}
	switch ap := m["additionalProperties"].(type) {
	case bool:
		s.AdditionalProperties = &domain.AdditionalProperties{Allowed: ap}
	case map[string]interface{}:
		s.AdditionalProperties = &domain.AdditionalProperties{
			Allowed: true,
			Schema:  convertMap(ap, depth+1),
		}
	}
}

func convertArray(m map[string]interface{}, s *domain.Schema, depth int) {
	s.Kind = domain.KindArray
	if items, ok := m["items"].(map[string]interface{}); ok {
		s.Element = convertMap(items, depth+1)
	}
	if min, ok := intField(m, "minItems"); ok && min >= 0 {
		s.MinItems = &min
	}
	if max, ok := intField(m, "maxItems"); ok && max >= 0 {
		if s.MinItems == nil || *s.MinItems <= max {
			s.MaxItems = &max
		}
	}
}

// unionVariants converts oneOf then anyOf entries; both map to the oneOf
// kind. Entries that are not objects become unknown variants so positions
// stay stable.
func unionVariants(m map[string]interface{}, depth int) []*domain.Schema {
	var variants []*domain.Schema
	for _, key := range []string{"oneOf", "anyOf"} {
		entries, ok := m[key].([]interface{})
		if !ok {
			continue
		}
		for _, entry := range entries {
			entryMap, ok := entry.(map[string]interface{})
			if !ok {
				variants = append(variants, &domain.Schema{Kind: domain.KindUnknown})
				continue
			}
			variants = append(variants, convertMap(entryMap, depth+1))
		}
	}
	return variants
}

func intField(m map[string]interface{}, key string) (int, bool) {
	switch v := m[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}
