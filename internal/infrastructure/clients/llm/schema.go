package llm

import (
	"fmt"
	"sort"
)

// Schema is a JSON-schema fragment for the structured-output contract.
//
// The contract requires every declared property to appear in "required";
// optionality is expressed as a nullable type ([T, "null"]), never by
// omitting the property from required. Many providers reject schemas that
// break this, so SelfCheck enforces it at startup.
type Schema map[string]interface{}

func object(props map[string]Schema) Schema {
	required := make([]string, 0, len(props))
	for name := range props {
		required = append(required, name)
	}
	sort.Strings(required)

	p := make(map[string]interface{}, len(props))
	for name, s := range props {
		p[name] = s
	}

	return Schema{
		"type":                 "object",
		"properties":           p,
		"required":             required,
		"additionalProperties": false,
	}
}

func str() Schema            { return Schema{"type": "string"} }
func nullableStr() Schema    { return Schema{"type": []string{"string", "null"}} }
func number() Schema         { return Schema{"type": "number"} }
func nullableNumber() Schema { return Schema{"type": []string{"number", "null"}} }
func nullableInt() Schema    { return Schema{"type": []string{"integer", "null"}} }
func boolean() Schema        { return Schema{"type": "boolean"} }
func nullableBool() Schema   { return Schema{"type": []string{"boolean", "null"}} }

func enum(values ...string) Schema {
	return Schema{"type": "string", "enum": values}
}

// gateSchema classifies domain membership and query language.
var gateSchema = object(map[string]Schema{
	"outcome":        enum("CONTINUE", "STOP", "ASK_CLARIFY"),
	"query_language": nullableStr(),
	"reason":         nullableStr(),
})

// intentSchema chooses the provider route and location hints.
var intentSchema = object(map[string]Schema{
	"route":            enum("TEXTSEARCH", "NEARBY", "LANDMARK"),
	"confidence":       number(),
	"city_text":        nullableStr(),
	"region_candidate": nullableStr(),
})

// mappingSchema is the provider-ready query mapping.
var mappingSchema = object(map[string]Schema{
	"query_text":  str(),
	"cuisine_key": nullableStr(),
	"strictness":  enum("loose", "normal", "strict"),
	"open_now":    boolean(),
	"landmark":    nullableStr(),
	"radius_m":    nullableInt(),
})

// constraintsSchema extracts hard post-filter constraints.
var constraintsSchema = object(map[string]Schema{
	"min_rating":   nullableNumber(),
	"min_price":    nullableInt(),
	"max_price":    nullableInt(),
	"open_now":     nullableBool(),
	"price_intent": enum("none", "cheap", "luxury"),
	"quality_want": boolean(),
})

// schemas is the canonical registry; both the runtime validator and the
// external-call contract are derived from it.
var schemas = map[string]Schema{
	"gate":        gateSchema,
	"intent":      intentSchema,
	"mapping":     mappingSchema,
	"constraints": constraintsSchema,
}

// SelfCheck asserts that every declared property of every registered schema
// (recursively) is present in its required list. Called at startup.
func SelfCheck() error {
	for name, s := range schemas {
		if err := checkAllRequired(name, s); err != nil {
			return err
		}
	}
	return nil
}

func checkAllRequired(name string, s Schema) error {
	if s["type"] != "object" {
		return nil
	}

	props, _ := s["properties"].(map[string]interface{})
	required, _ := s["required"].([]string)

	requiredSet := make(map[string]struct{}, len(required))
	for _, r := range required {
		requiredSet[r] = struct{}{}
	}

	for prop, raw := range props {
		if _, ok := requiredSet[prop]; !ok {
			return fmt.Errorf("schema %q: property %q is not in required", name, prop)
		}
		if child, ok := raw.(Schema); ok {
			if err := checkAllRequired(name+"."+prop, child); err != nil {
				return err
			}
		}
	}

	if len(required) != len(props) {
		return fmt.Errorf("schema %q: required lists %d names for %d properties", name, len(required), len(props))
	}

	return nil
}
