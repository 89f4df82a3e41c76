package pipeline

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gh-download/ghpipe/pkg/console"
	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schemas/ghpipe.schema.json
var configSchemaJSON string

const configSchemaURL = "ghpipe.schema.json"

var (
	configSchemaOnce sync.Once
	configSchema     *jsonschema.Schema
	configSchemaErr  error
)

func compiledConfigSchema() (*jsonschema.Schema, error) {
	configSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(configSchemaJSON))
		if err != nil {
			configSchemaErr = fmt.Errorf("failed to parse embedded schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(configSchemaURL, doc); err != nil {
			configSchemaErr = fmt.Errorf("failed to add embedded schema: %w", err)
			return
		}
		configSchema, configSchemaErr = compiler.Compile(configSchemaURL)
	})
	return configSchema, configSchemaErr
}

// validateSchema checks raw YAML against the embedded JSON schema. The YAML
// is converted to JSON first so numbers and maps have JSON types.
func validateSchema(data []byte) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	jsonBytes, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to convert YAML to JSON: %w", err)
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonBytes))
	if err != nil {
		return fmt.Errorf("failed to read converted JSON: %w", err)
	}

	schema, err := compiledConfigSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(instance); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			return errors.New(console.FormatErrorWithSuggestions(
				"configuration does not match schema: "+validationErr.Error(),
				[]string{
					"Quote interpreter versions (\"3.10\", not 3.10) so they stay strings",
					"Remove keys that are not part of the ghpipe configuration",
				},
			))
		}
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
