package domain

// Kind identifies which member of the schema union a node represents.
// Exactly one kind applies per node.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindInteger Kind = "integer"
	KindBoolean Kind = "boolean"
	KindNull    Kind = "null"
	KindAny     Kind = "any"
	KindUnknown Kind = "unknown"
	KindEnum    Kind = "enum"
	KindOneOf   Kind = "oneOf"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
)

// Schema is the internal type-algebra node used for every parameter, body,
// response and shared type shape, regardless of which document dialect it
// came from. Schemas are immutable value trees once constructed; cycles are
// not supported.
type Schema struct {
	Kind        Kind   `json:"kind"`
	Nullable    bool   `json:"nullable,omitempty"`
	Description string `json:"description,omitempty"`

	// Object nodes. Required must be a subset of Properties keys.
	Properties           map[string]*Schema    `json:"properties,omitempty"`
	Required             []string              `json:"required,omitempty"`
	AdditionalProperties *AdditionalProperties `json:"additionalProperties,omitempty"`

	// Array nodes. Element may be nil when the source declared no item type.
	Element  *Schema `json:"element,omitempty"`
	MinItems *int    `json:"minItems,omitempty"`
	MaxItems *int    `json:"maxItems,omitempty"`

	// Enum nodes carry an ordered list of literal values
	// (string/number/boolean/nil).
	Values []interface{} `json:"values,omitempty"`

	// OneOf nodes carry an ordered, non-empty list of variants.
	Variants []*Schema `json:"variants,omitempty"`
}

// AdditionalProperties models the three-valued additionalProperties field:
// absent (nil pointer), boolean, or a nested schema.
type AdditionalProperties struct {
	Allowed bool    `json:"allowed"`
	Schema  *Schema `json:"schema,omitempty"`
}

// IsRequired reports whether name appears in the Required set.
func (s *Schema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}
