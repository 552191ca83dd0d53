package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwcsrf/netflux/core"
)

func TestBuildMarksOnlyRequiredNonOptional(t *testing.T) {
	doc := Build([]core.FunctionArg{
		{Name: "a", Type: core.ArgString},
		{Name: "b", Type: core.ArgInt, Optional: true},
	})

	assert.Equal(t, "object", doc["type"])
	assert.Equal(t, false, doc["additionalProperties"])
	assert.ElementsMatch(t, []string{"a"}, doc["required"])

	props := doc["properties"].(map[string]any)
	assert.Contains(t, props, "a")
	assert.Contains(t, props, "b")
}

func TestBuildEnumOnlyOnStringArgs(t *testing.T) {
	doc := Build([]core.FunctionArg{
		{Name: "color", Type: core.ArgString, Enum: []string{"red", "blue"}},
	})
	props := doc["properties"].(map[string]any)
	color := props["color"].(map[string]any)
	assert.Equal(t, []any{"red", "blue"}, color["enum"])
}

func TestCompileAndValidateRoundTrip(t *testing.T) {
	args := []core.FunctionArg{
		{Name: "x", Type: core.ArgInt},
		{Name: "label", Type: core.ArgString, Optional: true},
	}
	sch, err := Compile("sample", args)
	require.NoError(t, err)

	assert.NoError(t, Validate(sch, map[string]any{"x": 5}))
	assert.NoError(t, Validate(sch, map[string]any{"x": 5, "label": "ok"}))
}

func TestValidateRejectsMissingRequired(t *testing.T) {
	sch, err := Compile("sample2", []core.FunctionArg{{Name: "x", Type: core.ArgInt}})
	require.NoError(t, err)

	err = Validate(sch, map[string]any{})
	assert.Error(t, err)
}

func TestValidateRejectsUnknownProperty(t *testing.T) {
	sch, err := Compile("sample3", []core.FunctionArg{{Name: "x", Type: core.ArgInt}})
	require.NoError(t, err)

	err = Validate(sch, map[string]any{"x": 1, "y": 2})
	assert.Error(t, err)
}

func TestValidateRejectsWrongType(t *testing.T) {
	sch, err := Compile("sample4", []core.FunctionArg{{Name: "x", Type: core.ArgInt}})
	require.NoError(t, err)

	err = Validate(sch, map[string]any{"x": "not-an-int"})
	assert.Error(t, err)
}
