package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSpecArgsRejectsDuplicateNames(t *testing.T) {
	err := ValidateSpecArgs([]FunctionArg{
		{Name: "x", Type: ArgString},
		{Name: "x", Type: ArgInt},
	})
	assert.Error(t, err)
}

func TestValidateSpecArgsRejectsEnumOnNonString(t *testing.T) {
	err := ValidateSpecArgs([]FunctionArg{
		{Name: "n", Type: ArgInt, Enum: []string{"1", "2"}},
	})
	assert.Error(t, err)
}

func TestValidateSpecArgsAcceptsEnumOnString(t *testing.T) {
	err := ValidateSpecArgs([]FunctionArg{
		{Name: "color", Type: ArgString, Enum: []string{"red", "blue"}},
	})
	assert.NoError(t, err)
}

func TestCoerceArgsRejectsUnknownKey(t *testing.T) {
	schema := []FunctionArg{{Name: "a", Type: ArgString}}
	_, err := CoerceArgs(schema, map[string]any{"a": "x", "b": "y"})
	assert.Error(t, err)
}

func TestCoerceArgsRejectsMissingRequired(t *testing.T) {
	schema := []FunctionArg{{Name: "a", Type: ArgString}}
	_, err := CoerceArgs(schema, map[string]any{})
	assert.Error(t, err)
}

func TestCoerceArgsOptionalMissingIsAbsent(t *testing.T) {
	schema := []FunctionArg{{Name: "a", Type: ArgString, Optional: true}}
	args, err := CoerceArgs(schema, map[string]any{})
	require.NoError(t, err)
	assert.False(t, args.Has("a"))
}

func TestCoerceArgsBoolAcceptsStringLiterals(t *testing.T) {
	schema := []FunctionArg{{Name: "flag", Type: ArgBool}}

	args, err := CoerceArgs(schema, map[string]any{"flag": "true"})
	require.NoError(t, err)
	assert.True(t, args.Bool("flag"))

	args, err = CoerceArgs(schema, map[string]any{"flag": "false"})
	require.NoError(t, err)
	assert.False(t, args.Bool("flag"))

	_, err = CoerceArgs(schema, map[string]any{"flag": "nope"})
	assert.Error(t, err)
}

func TestCoerceArgsIntRejectsNonIntegralFloat(t *testing.T) {
	schema := []FunctionArg{{Name: "n", Type: ArgInt}}

	args, err := CoerceArgs(schema, map[string]any{"n": 5.0})
	require.NoError(t, err)
	assert.Equal(t, int64(5), args.Int("n"))

	_, err = CoerceArgs(schema, map[string]any{"n": 5.5})
	assert.Error(t, err)
}

func TestCoerceArgsEnumRejectsValueOutsideSet(t *testing.T) {
	schema := []FunctionArg{{Name: "color", Type: ArgString, Enum: []string{"red", "blue"}}}

	args, err := CoerceArgs(schema, map[string]any{"color": "red"})
	require.NoError(t, err)
	assert.Equal(t, "red", args.String("color"))

	_, err = CoerceArgs(schema, map[string]any{"color": "green"})
	assert.Error(t, err)
}

func TestCoerceArgsWrongTypeRejected(t *testing.T) {
	schema := []FunctionArg{{Name: "a", Type: ArgString}}
	_, err := CoerceArgs(schema, map[string]any{"a": 5})
	assert.Error(t, err)
}
