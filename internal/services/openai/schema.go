package openai

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

const (
	propertiesKey           = "properties"
	additionalPropertiesKey = "additionalProperties"
	typeKey                 = "type"
	requiredKey             = "required"
	itemsKey                = "items"
)

// SchemaFor reflects T into a strict JSON schema suitable for structured outputs.
// Every object forbids additional properties and lists all properties as required.
func SchemaFor[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	raw, err := schema.MarshalJSON()
	if err != nil {
		panic(err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	delete(out, "$schema")
	delete(out, "$id")
	enforceStrict(out)
	return out
}

func enforceStrict(schema map[string]any) {
	if kind, ok := schema[typeKey].(string); ok && kind == "object" {
		schema[additionalPropertiesKey] = false
		if props, ok := schema[propertiesKey].(map[string]any); ok && len(props) > 0 {
			required := make([]string, 0, len(props))
			for name := range props {
				required = append(required, name)
			}
			schema[requiredKey] = required
		}
	}
	if props, ok := schema[propertiesKey].(map[string]any); ok {
		for _, prop := range props {
			if child, ok := prop.(map[string]any); ok {
				enforceStrict(child)
			}
		}
	}
	if items, ok := schema[itemsKey].(map[string]any); ok {
		enforceStrict(items)
	}
}
