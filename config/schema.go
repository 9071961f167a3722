package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

var (
	fileSchema  *jsonschema.Schema
	compileOnce sync.Once
	compileErr  error
)

func compileSchema() error {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal config schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("llmtest.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("add config schema resource: %w", err)
			return
		}
		fileSchema, err = compiler.Compile("llmtest.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile config schema: %w", err)
		}
	})
	return compileErr
}

// parseFile decodes a YAML config file and validates it. An empty file
// holds no options.
func parseFile(data []byte) (map[string]any, error) {
	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if values == nil {
		return map[string]any{}, nil
	}

	if err := compileSchema(); err != nil {
		return nil, err
	}
	// the validator works on JSON values
	raw, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	if err := fileSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return values, nil
}
