// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

package seed

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the seed file schema. Seed files may reference it
// from a yaml-language-server comment for editor completion.
const SchemaID = "https://pitchside.dev/schemas/users-seed.schema.json"

// GenerateSchema generates the JSON Schema for seed files from the File struct.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&File{})

	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "Pitchside User Seed File"
	schema.Description = "Accounts created by `pitchside seed`"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("SEED_SCHEMA_GENERATE_FAILED").Wrap(err)
	}
	return data, nil
}

var compiledSchema = sync.OnceValues(func() (*jschema.Schema, error) {
	schemaBytes, err := GenerateSchema()
	if err != nil {
		return nil, err
	}
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
	if err != nil {
		return nil, oops.Code("SEED_SCHEMA_GENERATE_FAILED").With("operation", "parse schema").Wrap(err)
	}

	c := jschema.NewCompiler()
	if err := c.AddResource(SchemaID, doc); err != nil {
		return nil, oops.Code("SEED_SCHEMA_GENERATE_FAILED").With("operation", "add schema resource").Wrap(err)
	}
	sch, err := c.Compile(SchemaID)
	if err != nil {
		return nil, oops.Code("SEED_SCHEMA_GENERATE_FAILED").With("operation", "compile schema").Wrap(err)
	}
	return sch, nil
})

// ValidateSchema validates YAML seed data against the seed file schema.
func ValidateSchema(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return oops.Code("SEED_EMPTY").Errorf("seed data is empty")
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return oops.Code("SEED_INVALID_YAML").Wrap(err)
	}

	// Round-trip through JSON so the validator sees JSON types only.
	raw, err := json.Marshal(doc)
	if err != nil {
		return oops.Code("SEED_INVALID_YAML").With("operation", "convert to JSON").Wrap(err)
	}
	inst, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return oops.Code("SEED_INVALID_YAML").With("operation", "convert to JSON").Wrap(err)
	}

	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(inst); err != nil {
		return oops.Code("SEED_SCHEMA_INVALID").
			Public(FormatSchemaError(err)).
			Wrap(err)
	}
	return nil
}

// FormatSchemaError returns the validator's message without its preamble.
func FormatSchemaError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if _, rest, ok := strings.Cut(msg, "jsonschema validation failed with"); ok {
		// Drop the schema URL line, keep the violations.
		if _, violations, ok := strings.Cut(rest, "\n"); ok {
			return strings.TrimSpace(violations)
		}
	}
	return msg
}
