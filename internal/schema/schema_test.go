package schema_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsonls/jsonls/internal/schema"
)

func fromJSON(t *testing.T, raw string) *schema.Schema {
	t.Helper()
	var v any
	require.NoErrorf(t, json.Unmarshal([]byte(raw), &v), "unmarshal %q", raw)
	return schema.FromValue(v)
}

func TestDraftFromSchemaURI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		uri  string
		want schema.Draft
	}{
		{"http://json-schema.org/draft-04/schema#", schema.Draft4},
		{"http://json-schema.org/draft-06/schema#", schema.Draft6},
		{"http://json-schema.org/draft-07/schema#", schema.Draft7},
		{"https://json-schema.org/draft/2019-09/schema", schema.Draft201909},
		{"https://json-schema.org/draft/2020-12/schema", schema.Draft202012},
		{"unknown", schema.Draft7},
	}
	for _, tc := range tests {
		assert.Equalf(t, tc.want, schema.DraftFromSchemaURI(tc.uri), "DraftFromSchemaURI(%q)", tc.uri)
	}
}

func TestParseEmptySchema(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{}`)
	assert.Empty(t, s.Properties, "expected no properties")
	assert.Empty(t, s.Types, "expected no types")
}

func TestParseBooleanSchemas(t *testing.T) {
	t.Parallel()

	trueSchema := schema.FromValue(true)
	assert.Nil(t, trueSchema.Not, "expected true schema to accept everything")

	falseSchema := schema.FromValue(false)
	assert.NotNil(t, falseSchema.Not, "expected false schema to reject everything via not:{}")
}

func TestParseTypeStringAndArray(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"type": "string"}`)
	require.Len(t, s.Types, 1)
	assert.Equal(t, schema.TypeString, s.Types[0])

	s = fromJSON(t, `{"type": ["string", "number"]}`)
	assert.Len(t, s.Types, 2)
}

func TestParseProperties(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"properties": {"name": {"type": "string"}, "age": {"type": "integer"}}}`)
	require.Len(t, s.Properties, 2)
	assert.NotNil(t, s.Properties["name"])
	assert.NotNil(t, s.Properties["age"])
}

func TestParseRequired(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"required": ["name", "email"]}`)
	require.Len(t, s.Required, 2)
	assert.Equal(t, "name", s.Required[0])
	assert.Equal(t, "email", s.Required[1])
}

func TestParseEnumAndConst(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"enum": ["red", "green", "blue"]}`)
	assert.Len(t, s.EnumValues, 3)

	s = fromJSON(t, `{"const": 42}`)
	require.True(t, s.HasConst)
	assert.Equal(t, float64(42), s.ConstValue)
}

func TestParseNumericConstraints(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"minimum": 0, "maximum": 100, "multipleOf": 5}`)
	require.NotNil(t, s.Minimum)
	assert.Equal(t, float64(0), *s.Minimum)
	require.NotNil(t, s.Maximum)
	assert.Equal(t, float64(100), *s.Maximum)
	require.NotNil(t, s.MultipleOf)
	assert.Equal(t, float64(5), *s.MultipleOf)
}

func TestParseExclusiveLimitDraft4Bool(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"exclusiveMinimum": true, "exclusiveMaximum": false}`)
	require.NotNil(t, s.ExclusiveMinimum)
	require.True(t, s.ExclusiveMinimum.IsBoolean)
	require.NotNil(t, s.ExclusiveMinimum.Bool)
	assert.True(t, *s.ExclusiveMinimum.Bool)

	require.NotNil(t, s.ExclusiveMaximum)
	require.True(t, s.ExclusiveMaximum.IsBoolean)
	require.NotNil(t, s.ExclusiveMaximum.Bool)
	assert.False(t, *s.ExclusiveMaximum.Bool)
}

func TestParseExclusiveLimitDraft6Number(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"exclusiveMinimum": 0, "exclusiveMaximum": 100}`)
	require.NotNil(t, s.ExclusiveMinimum)
	require.False(t, s.ExclusiveMinimum.IsBoolean)
	require.NotNil(t, s.ExclusiveMinimum.Number)
	assert.Equal(t, float64(0), *s.ExclusiveMinimum.Number)

	require.NotNil(t, s.ExclusiveMaximum)
	require.False(t, s.ExclusiveMaximum.IsBoolean)
	require.NotNil(t, s.ExclusiveMaximum.Number)
	assert.Equal(t, float64(100), *s.ExclusiveMaximum.Number)
}

func TestParseStringConstraints(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"minLength": 1, "maxLength": 255, "pattern": "^[a-z]+$", "format": "email"}`)
	require.NotNil(t, s.MinLength)
	assert.Equal(t, uint64(1), *s.MinLength)
	require.NotNil(t, s.MaxLength)
	assert.Equal(t, uint64(255), *s.MaxLength)
	assert.Equal(t, "^[a-z]+$", s.Pattern)
	assert.Equal(t, "email", s.Format)
}

func TestParseErrorMessage(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"errorMessage": {"minLength": "too short", "pattern": "bad shape"}}`)
	require.Len(t, s.ErrorMessage, 2)
	assert.Equal(t, "too short", s.ErrorMessage["minLength"])
	assert.Equal(t, "bad shape", s.ErrorMessage["pattern"])
}

func TestParseErrorMessageSkipsNonStringEntries(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"errorMessage": {"minLength": "too short", "maximum": 5}}`)
	require.Len(t, s.ErrorMessage, 1)
	assert.Equal(t, "too short", s.ErrorMessage["minLength"])
	_, ok := s.ErrorMessage["maximum"]
	assert.False(t, ok, "expected a non-string errorMessage entry to be dropped")
}

func TestParseErrorMessageAbsent(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"type": "string"}`)
	assert.Nil(t, s.ErrorMessage)
}

func TestParseComposition(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"allOf": [{"type": "object"}], "anyOf": [{"type": "string"}, {"type": "number"}], "oneOf": [{}]}`)
	assert.Len(t, s.AllOf, 1)
	assert.Len(t, s.AnyOf, 2)
	assert.Len(t, s.OneOf, 1)
}

func TestParseDefinitions(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"definitions": {"Foo": {"type": "string"}}, "$defs": {"Bar": {"type": "number"}}}`)
	assert.NotNil(t, s.Definitions["Foo"])
	assert.NotNil(t, s.Defs["Bar"])
}

func TestParseVSCodeExtensions(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"markdownDescription": "# Title", "doNotSuggest": true, "deprecationMessage": "Use X instead"}`)
	assert.Equal(t, "# Title", s.MarkdownDescription)
	assert.True(t, s.DoNotSuggest)
	assert.Equal(t, "Use X instead", s.DeprecationMessage)
}

func TestParseDependencies(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"dependencies": {"a": ["b", "c"], "d": {"type": "object"}}}`)
	require.Len(t, s.Dependencies, 2)
	assert.Len(t, s.Dependencies["a"].Properties, 2)
	assert.NotNil(t, s.Dependencies["d"].Schema)
}

func TestParseConditional(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"if": {"type": "string"}, "then": {"minLength": 1}, "else": {"type": "number"}}`)
	assert.NotNil(t, s.If)
	assert.NotNil(t, s.Then)
	assert.NotNil(t, s.Else)
}

func TestParseArrayConstraints(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"items": {"type": "string"}, "minItems": 1, "maxItems": 10, "uniqueItems": true}`)
	assert.NotNil(t, s.Items.AsSchema())
	require.NotNil(t, s.MinItems)
	assert.Equal(t, uint64(1), *s.MinItems)
	require.NotNil(t, s.MaxItems)
	assert.Equal(t, uint64(10), *s.MaxItems)
	assert.True(t, s.UniqueItems)
}

func TestParsePrefixItems(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"prefixItems": [{"type": "string"}, {"type": "number"}]}`)
	assert.Len(t, s.PrefixItems, 2)
}

func TestParseRef(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"$ref": "#/definitions/Foo"}`)
	assert.Equal(t, "#/definitions/Foo", s.Ref)
}

func TestParseDefaultSnippets(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"defaultSnippets": [{"label": "empty", "body": {}}]}`)
	require.Len(t, s.DefaultSnippets, 1)
	assert.Equal(t, "empty", s.DefaultSnippets[0].Label)
}

func TestResolvePathSegmentDirectProperty(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"properties": {"name": {"type": "string"}}}`)
	resolved := s.ResolvePathSegment("name", nil)
	require.NotNil(t, resolved)
	require.Len(t, resolved.Types, 1)
	assert.Equal(t, schema.TypeString, resolved.Types[0])
}

func TestResolvePathSegmentArrayIndex(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"prefixItems": [{"type": "string"}, {"type": "number"}], "items": {"type": "boolean"}}`)

	r := s.ResolvePathSegment("0", nil)
	require.NotNil(t, r)
	assert.Equal(t, schema.TypeString, r.Types[0], "expected index 0 to resolve to string")

	r = s.ResolvePathSegment("1", nil)
	require.NotNil(t, r)
	assert.Equal(t, schema.TypeNumber, r.Types[0], "expected index 1 to resolve to number")

	r = s.ResolvePathSegment("5", nil)
	require.NotNil(t, r)
	assert.Equal(t, schema.TypeBoolean, r.Types[0], "expected out-of-range index to fall back to items schema")
}

func TestResolvePathSegmentThroughComposition(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"allOf": [{"properties": {"name": {"type": "string"}}}]}`)
	resolved := s.ResolvePathSegment("name", nil)
	assert.NotNil(t, resolved, "expected name to resolve through allOf")
}

func TestResolvePathMultiSegment(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"definitions": {"A": {"type": "integer"}}, "$ref": "#/definitions/A"}`)
	resolved := s.Definitions["A"].ResolvePath(nil, nil)
	require.NotNil(t, resolved)
	require.Len(t, resolved.Types, 1)
	assert.Equal(t, schema.TypeInteger, resolved.Types[0])
}

func TestResolvePathSegmentFollowsRefBeforeDescending(t *testing.T) {
	t.Parallel()

	target := fromJSON(t, `{"properties": {"name": {"type": "string"}}}`)
	root := fromJSON(t, `{"$ref": "#/$defs/widget"}`)
	resolve := func(ref string) *schema.Schema {
		if ref == "#/$defs/widget" {
			return target
		}
		return nil
	}

	resolved := root.ResolvePathSegment("name", resolve)
	require.NotNil(t, resolved, "expected $ref to be followed before descending into properties")
	require.Len(t, resolved.Types, 1)
	assert.Equal(t, schema.TypeString, resolved.Types[0])
}

func TestResolvePathFollowsRefOnFinalResult(t *testing.T) {
	t.Parallel()

	target := fromJSON(t, `{"type": "boolean"}`)
	root := fromJSON(t, `{"properties": {"flag": {"$ref": "#/$defs/flag"}}}`)
	resolve := func(ref string) *schema.Schema {
		if ref == "#/$defs/flag" {
			return target
		}
		return nil
	}

	resolved := root.ResolvePath([]string{"flag"}, resolve)
	require.NotNil(t, resolved, "expected the leaf $ref to be resolved before returning")
	require.Len(t, resolved.Types, 1)
	assert.Equal(t, schema.TypeBoolean, resolved.Types[0])
}

func TestResolvedStopsAtCycle(t *testing.T) {
	t.Parallel()

	a := fromJSON(t, `{"$ref": "#/$defs/b"}`)
	b := fromJSON(t, `{"$ref": "#/$defs/a"}`)
	resolve := func(ref string) *schema.Schema {
		switch ref {
		case "#/$defs/a":
			return a
		case "#/$defs/b":
			return b
		}
		return nil
	}

	resolved := a.Resolved(resolve)
	require.NotNil(t, resolved, "expected Resolved to stop at its hop bound rather than loop forever")
}
