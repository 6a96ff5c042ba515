package pipeline

import (
	"fmt"

	"github.com/typeforge/typeforge/internal/domain"
)

// Transform is a pure normalization step. It may mutate the received
// definition in place and return nil, or return a replacement definition.
// The pipeline always hands transforms a deep clone, never the original.
type Transform func(def *domain.ServiceDefinition) *domain.ServiceDefinition

// SchemaExtension converts one auxiliary input payload into a named schema
// merged into the definition's types map. An empty returned name falls back
// to "<extension>-<inputIndex>-<extensionIndex>".
type SchemaExtension struct {
	Name    string
	Convert func(input interface{}) (string, *domain.Schema, error)
}

// normalize clones the current definition, applies the configured transforms
// in order, then feeds every extension input through every extension. Later
// inputs and extensions overwrite earlier ones on key collision.
func normalize(rc *Context, params RunParams) error {
	def := rc.Definition.Clone()

	for _, transform := range params.Transforms {
		if replaced := transform(def); replaced != nil {
			def = replaced
		}
	}

	for inputIdx, input := range params.ExtensionInputs {
		for extIdx, ext := range params.Extensions {
			name, schema, err := ext.Convert(input)
			if err != nil {
				return fmt.Errorf("extension %s on input %d: %w", ext.Name, inputIdx, err)
			}
			if schema == nil {
				continue
			}
			if name == "" {
				name = fmt.Sprintf("%s-%d-%d", ext.Name, inputIdx, extIdx)
			}
			if def.Types == nil {
				def.Types = make(map[string]*domain.Schema)
			}
			def.Types[name] = schema
		}
	}

	rc.Definition = def
	return nil
}
