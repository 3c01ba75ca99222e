// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package plugin

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/samber/oops"
)

// SchemaID is the value plugin authors put under SchemaKey.
const SchemaID = "https://widgetdeck.dev/schemas/widget.schema.json"

var (
	schemaMu    sync.Mutex
	schemaCache *jschema.Schema
)

// GenerateSchema reflects Manifest into a JSON schema document. Unknown keys
// are allowed since widgets carry their own settings next to the known ones.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	schema := r.Reflect(&Manifest{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "WidgetDeck widget manifest"
	schema.Description = "Schema for widget plugin config.json files"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code(CodeSchemaInvalid).Wrapf(err, "marshal schema")
	}
	return data, nil
}

// ValidateSchema validates a parsed manifest against the generated schema.
func ValidateSchema(cfg map[string]any) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(toJSONValue(cfg)); err != nil {
		return oops.Code(CodeSchemaInvalid).
			With("name", cfg["name"]).
			Wrapf(err, "schema validation failed")
	}
	return nil
}

func compiledSchema() (*jschema.Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()
	if schemaCache != nil {
		return schemaCache, nil
	}

	raw, err := GenerateSchema()
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, oops.Code(CodeSchemaInvalid).Wrapf(err, "parse schema")
	}

	c := jschema.NewCompiler()
	if err := c.AddResource("widget.schema.json", doc); err != nil {
		return nil, oops.Code(CodeSchemaInvalid).Wrapf(err, "add schema resource")
	}
	sch, err := c.Compile("widget.schema.json")
	if err != nil {
		return nil, oops.Code(CodeSchemaInvalid).Wrapf(err, "compile schema")
	}
	schemaCache = sch
	return sch, nil
}

// toJSONValue normalises values the validator cannot walk, such as typed
// maps and slices built in Go rather than decoded from JSON.
func toJSONValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = toJSONValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = toJSONValue(item)
		}
		return out
	case string, float64, bool, nil, json.Number:
		return val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return val
		}
		var out any
		if err := json.Unmarshal(b, &out); err != nil {
			return val
		}
		return out
	}
}
