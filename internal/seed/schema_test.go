// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

package seed_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchside/pitchside/internal/seed"
	"github.com/pitchside/pitchside/pkg/errutil"
)

func TestGenerateSchema(t *testing.T) {
	data, err := seed.GenerateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, seed.SchemaID, schema["$id"])
	assert.Equal(t, false, schema["additionalProperties"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "version")
	assert.Contains(t, props, "users")
}

func TestValidateSchema_Example(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "users.yaml"))
	require.NoError(t, err)
	assert.NoError(t, seed.ValidateSchema(data))
}

func TestValidateSchema_ErrorNamesTheField(t *testing.T) {
	err := seed.ValidateSchema([]byte(`
version: 1.0.0
users:
  - {name: A, email: a@club.example, role: coach, password: x}
`))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "SEED_SCHEMA_INVALID")

	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Contains(t, oopsErr.Public(), "/users/0/role")
}

func TestFormatSchemaError(t *testing.T) {
	assert.Empty(t, seed.FormatSchemaError(nil))
	assert.Equal(t, "plain", seed.FormatSchemaError(oops.Errorf("plain")))
}
