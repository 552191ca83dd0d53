// Package schema compiles a JSON Schema from a spec's declared FunctionArg
// list and validates raw, untyped arguments against it — a second line of
// defense beyond core.CoerceArgs's primitive-type coercion, applied to
// arguments a model supplies in a tool call (see SPEC_FULL.md, DOMAIN
// STACK).
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/lwcsrf/netflux/core"
)

// Build renders a spec's argument schema as a JSON Schema document.
func Build(args []core.FunctionArg) map[string]any {
	properties := map[string]any{}
	required := make([]string, 0, len(args))

	for _, a := range args {
		prop := map[string]any{"description": a.Description}
		switch a.Type {
		case core.ArgString:
			prop["type"] = "string"
			if len(a.Enum) > 0 {
				enum := make([]any, len(a.Enum))
				for i, e := range a.Enum {
					enum[i] = e
				}
				prop["enum"] = enum
			}
		case core.ArgInt:
			prop["type"] = "integer"
		case core.ArgFloat:
			prop["type"] = "number"
		case core.ArgBool:
			prop["type"] = "boolean"
		}
		properties[a.Name] = prop
		if !a.Optional {
			required = append(required, a.Name)
		}
	}

	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

// Compile builds and compiles a *jsonschema.Schema for a spec identified
// by name (used only to form a unique in-memory resource URL).
func Compile(specName string, args []core.FunctionArg) (*jsonschema.Schema, error) {
	doc := Build(args)

	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("schema: marshal doc for %s: %w", specName, err)
	}
	typed, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("schema: unmarshal doc for %s: %w", specName, err)
	}

	c := jsonschema.NewCompiler()
	url := "mem://netflux/" + specName + ".json"
	if err := c.AddResource(url, typed); err != nil {
		return nil, fmt.Errorf("schema: add resource for %s: %w", specName, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("schema: compile %s: %w", specName, err)
	}
	return sch, nil
}

// Validate checks a raw argument map against a compiled schema.
func Validate(sch *jsonschema.Schema, raw map[string]any) error {
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("schema: marshal instance: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("schema: unmarshal instance: %w", err)
	}
	return sch.Validate(inst)
}
