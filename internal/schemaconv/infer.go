package schemaconv

import (
	"github.com/typeforge/typeforge/internal/domain"
)

// InferFromExample walks a decoded JSON example value and produces the
// closest Schema for it. Postman collections carry literal example payloads
// instead of declared schemas, so this is the only typing signal available
// for them.
func InferFromExample(value interface{}) *domain.Schema {
	return inferValue(value, 0)
}

func inferValue(value interface{}, depth int) *domain.Schema {
	if depth > maxDepth {
		return &domain.Schema{Kind: domain.KindUnknown}
	}

	switch v := value.(type) {
	case nil:
		return &domain.Schema{Kind: domain.KindNull}
	case bool:
		return &domain.Schema{Kind: domain.KindBoolean}
	case float64, int, int64:
		return &domain.Schema{Kind: domain.KindNumber}
	case string:
		return &domain.Schema{Kind: domain.KindString}
	case []interface{}:
		s := &domain.Schema{Kind: domain.KindArray}
		// The first element stands in for the whole list.
		if len(v) > 0 {
			s.Element = inferValue(v[0], depth+1)
		}
		return s
	case map[string]interface{}:
		s := &domain.Schema{Kind: domain.KindObject}
		if len(v) > 0 {
			s.Properties = make(map[string]*domain.Schema, len(v))
			for name, entry := range v {
				s.Properties[name] = inferValue(entry, depth+1)
			}
		}
		return s
	default:
		return &domain.Schema{Kind: domain.KindUnknown}
	}
}
