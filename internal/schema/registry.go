// Package schema holds the static event-type schema table and the pure
// validation and summarization functions built on it.
package schema

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed schemas.yaml
var schemasYAML []byte

type schemaDoc struct {
	EventTypes map[string]eventTypeDef `yaml:"event_types"`
}

type eventTypeDef struct {
	Required []string `yaml:"required"`
}

// Registry maps event types to their required-field lists.
type Registry struct {
	required map[string][]string
}

// Load parses the embedded schema document. It fails only if the embedded
// YAML is malformed, which is a build defect rather than a runtime state.
func Load() (*Registry, error) {
	return Parse(schemasYAML)
}

// MustLoad is Load for initialization paths where a malformed embedded
// schema should stop the process.
func MustLoad() *Registry {
	r, err := Load()
	if err != nil {
		panic(err)
	}
	return r
}

// Parse builds a Registry from a YAML schema document.
func Parse(data []byte) (*Registry, error) {
	var doc schemaDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema document: %w", err)
	}
	if len(doc.EventTypes) == 0 {
		return nil, fmt.Errorf("schema document defines no event types")
	}

	required := make(map[string][]string, len(doc.EventTypes))
	for name, def := range doc.EventTypes {
		required[name] = def.Required
	}
	return &Registry{required: required}, nil
}

// Known reports whether eventType has a schema.
func (r *Registry) Known(eventType string) bool {
	_, ok := r.required[eventType]
	return ok
}

// Validate checks that every required field for eventType is present in the
// record. An unknown event type is itself a validation failure.
func (r *Registry) Validate(record map[string]interface{}, eventType string) (bool, []string) {
	fields, ok := r.required[eventType]
	if !ok {
		return false, []string{"Unknown event type"}
	}

	var missing []string
	for _, f := range fields {
		if _, present := record[f]; !present {
			missing = append(missing, f)
		}
	}
	return len(missing) == 0, missing
}
