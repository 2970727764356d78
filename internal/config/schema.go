package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

var schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)

// ValidateFile checks a YAML override file against the config schema, so
// misspelled keys are reported instead of silently ignored.
func ValidateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := validateDocument(data); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

func validateDocument(data []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(docJSON))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	errs := make([]error, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, fmt.Errorf("%s: %s", e.Field(), e.Description()))
	}
	return errors.Join(errs...)
}
