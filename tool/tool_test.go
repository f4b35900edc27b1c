package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const echoSchema = `{
  "type": "object",
  "properties": {"text": {"type": "string"}},
  "required": ["text"],
  "additionalProperties": false
}`

func TestCompileAndValidate(t *testing.T) {
	s, err := Compile("echo.json", []byte(echoSchema))
	require.NoError(t, err)

	assert.NoError(t, s.Validate(map[string]any{"text": "ok"}))
	assert.Error(t, s.Validate(map[string]any{"wrong": 1}))
	assert.Error(t, s.Validate(map[string]any{"text": 5}))
}

func TestNilSchemaAlwaysValidates(t *testing.T) {
	var s *Schema
	assert.NoError(t, s.Validate(map[string]any{"anything": true}))
	assert.Nil(t, s.Raw())
}

func TestCompileInvalidJSON(t *testing.T) {
	_, err := Compile("bad.json", []byte("{not json"))
	assert.Error(t, err)
}
