package generate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/typeforge/typeforge/internal/domain"
)

// RenderType renders a Schema as a TypeScript type expression. indent is the
// current indentation depth for nested object literals. Properties render in
// sorted order so output is byte-stable across runs.
func RenderType(s *domain.Schema, indent int) string {
	if s == nil {
		return "unknown"
	}
	rendered := renderKind(s, indent)
	if s.Nullable {
		rendered += " | null"
	}
	return rendered
}

func renderKind(s *domain.Schema, indent int) string {
	switch s.Kind {
	case domain.KindString:
		return "string"
	case domain.KindNumber, domain.KindInteger:
		return "number"
	case domain.KindBoolean:
		return "boolean"
	case domain.KindNull:
		return "null"
	case domain.KindAny:
		return "any"
	case domain.KindUnknown:
		return "unknown"
	case domain.KindEnum:
		return renderEnum(s)
	case domain.KindOneOf:
		return renderOneOf(s, indent)
	case domain.KindArray:
		if s.Element == nil {
			return "Array<unknown>"
		}
		return fmt.Sprintf("Array<%s>", RenderType(s.Element, indent))
	case domain.KindObject:
		return renderObject(s, indent)
	default:
		return "unknown"
	}
}

// renderEnum renders the ordered literal union of enum values.
func renderEnum(s *domain.Schema) string {
	if len(s.Values) == 0 {
		return "never"
	}
	parts := make([]string, 0, len(s.Values))
	for _, v := range s.Values {
		parts = append(parts, renderLiteral(v))
	}
	return strings.Join(parts, " | ")
}

func renderLiteral(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return "null"
	case string:
		return "'" + strings.ReplaceAll(value, "'", "\\'") + "'"
	case bool:
		if value {
			return "true"
		}
		return "false"
	case float64:
		// Shortest decimal form, never exponent notation: 2 not 2.000000,
		// 1000000 not 1e+06.
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	default:
		return "unknown"
	}
}

func renderOneOf(s *domain.Schema, indent int) string {
	if len(s.Variants) == 0 {
		return "never"
	}
	parts := make([]string, 0, len(s.Variants))
	for _, variant := range s.Variants {
		parts = append(parts, RenderType(variant, indent))
	}
	return strings.Join(parts, " | ")
}

func renderObject(s *domain.Schema, indent int) string {
	hasIndex := s.AdditionalProperties != nil &&
		(s.AdditionalProperties.Allowed || s.AdditionalProperties.Schema != nil)
	if len(s.Properties) == 0 && !hasIndex {
		return "Record<string, unknown>"
	}

	inner := strings.Repeat("  ", indent+1)
	outer := strings.Repeat("  ", indent)
	var b strings.Builder
	b.WriteString("{\n")

	for _, name := range sortedPropertyNames(s.Properties) {
		prop := s.Properties[name]
		if prop != nil && prop.Description != "" {
			b.WriteString(inner)
			b.WriteString("/** " + sanitizeComment(prop.Description) + " */\n")
		}
		optional := ""
		if !s.IsRequired(name) {
			optional = "?"
		}
		b.WriteString(inner)
		b.WriteString(fmt.Sprintf("%s%s: %s;\n", propertyKey(name), optional, RenderType(prop, indent+1)))
	}

	if hasIndex {
		indexType := "unknown"
		if s.AdditionalProperties.Schema != nil {
			indexType = RenderType(s.AdditionalProperties.Schema, indent+1)
		}
		b.WriteString(inner)
		b.WriteString(fmt.Sprintf("[key: string]: %s;\n", indexType))
	}

	b.WriteString(outer)
	b.WriteString("}")
	return b.String()
}

func sortedPropertyNames(props map[string]*domain.Schema) []string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// propertyKey quotes property names that are not valid identifiers.
func propertyKey(name string) string {
	if isIdentifier(name) {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "\\'") + "'"
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		alpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || r == '$'
		digit := r >= '0' && r <= '9'
		if i == 0 && !alpha {
			return false
		}
		if !alpha && !digit {
			return false
		}
	}
	return true
}

func sanitizeComment(s string) string {
	s = strings.ReplaceAll(s, "*/", "*\\/")
	return strings.Join(strings.Fields(s), " ")
}
