package validate_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsonls/jsonls/internal/schema"
	"github.com/jsonls/jsonls/internal/schemastore"
	"github.com/jsonls/jsonls/internal/validate"
)

func fromJSON(t *testing.T, raw string) *schema.Schema {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return schema.FromValue(v)
}

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func newCtx() validate.Context {
	return validate.NewContext("file:///doc.json", validate.NewRegexCache(), nil)
}

func TestValidateTypeUnion(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"type": ["string", "number"]}`)

	assert.Empty(t, validate.Validate(decode(t, `"hello"`), s, newCtx()), "expected no diagnostics for string")
	assert.Empty(t, validate.Validate(decode(t, `3.5`), s, newCtx()), "expected no diagnostics for number")
	assert.NotEmpty(t, validate.Validate(decode(t, `true`), s, newCtx()), "expected a diagnostic for boolean against string|number")
}

func TestValidateIntegerSatisfiesNumber(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"type": "number"}`)
	assert.Empty(t, validate.Validate(decode(t, `4`), s, newCtx()), "expected integer value to satisfy type number")
}

func TestValidateRequired(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"type": "object", "required": ["a", "b"]}`)
	diags := validate.Validate(decode(t, `{"a": 1}`), s, newCtx())
	require.Len(t, diags, 1)
}

func TestValidateProperties(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{
		"type": "object",
		"properties": {"a": {"type": "string"}}
	}`)
	diags := validate.Validate(decode(t, `{"a": 5}`), s, newCtx())
	require.Len(t, diags, 1)
	require.Len(t, diags[0].Pointer, 1)
	assert.Equal(t, "a", diags[0].Pointer[0])
}

func TestValidateAdditionalPropertiesFalse(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{
		"type": "object",
		"properties": {"a": {"type": "string"}},
		"additionalProperties": false
	}`)
	diags := validate.Validate(decode(t, `{"a": "x", "b": 1}`), s, newCtx())
	require.Lenf(t, diags, 1, "expected exactly 1 diagnostic for disallowed property")
}

func TestValidatePatternProperties(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{
		"type": "object",
		"patternProperties": {"^x-": {"type": "number"}}
	}`)
	diags := validate.Validate(decode(t, `{"x-foo": "bad"}`), s, newCtx())
	require.Len(t, diags, 1)
}

func TestValidateStringConstraints(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"type": "string", "minLength": 3, "maxLength": 5, "pattern": "^[a-z]+$"}`)

	cases := []struct {
		name string
		v    string
		want int
	}{
		{"too short", `"ab"`, 1},
		{"too long", `"abcdef"`, 1},
		{"pattern mismatch", `"AB"`, 2}, // pattern fails, and "AB" (length 2) also fails minLength 3
		{"ok", `"abc"`, 0},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			diags := validate.Validate(decode(t, tc.v), s, newCtx())
			assert.Lenf(t, diags, tc.want, "%s", tc.name)
		})
	}
}

func TestValidateNumericConstraints(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"type": "number", "minimum": 0, "maximum": 10, "multipleOf": 2.5}`)

	assert.Empty(t, validate.Validate(decode(t, `5`), s, newCtx()), "expected 5 to be valid")
	assert.Lenf(t, validate.Validate(decode(t, `-2.5`), s, newCtx()), 1, "expected minimum violation")
	assert.Lenf(t, validate.Validate(decode(t, `12.5`), s, newCtx()), 1, "expected maximum violation")
	assert.Lenf(t, validate.Validate(decode(t, `4`), s, newCtx()), 1, "expected multipleOf violation")
}

func TestValidateExclusiveBoundsDraft4Boolean(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"type": "number", "minimum": 0, "exclusiveMinimum": true}`)
	assert.Lenf(t, validate.Validate(decode(t, `0`), s, newCtx()), 1, "expected exclusiveMinimum violation at the boundary")
	assert.Empty(t, validate.Validate(decode(t, `0.1`), s, newCtx()), "expected value above boundary to pass")
}

func TestValidateExclusiveBoundsDraft6Number(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"type": "number", "exclusiveMaximum": 10}`)
	assert.Lenf(t, validate.Validate(decode(t, `10`), s, newCtx()), 1, "expected exclusiveMaximum violation at the boundary")
	assert.Empty(t, validate.Validate(decode(t, `9.9`), s, newCtx()), "expected value below boundary to pass")
}

func TestValidateArrayConstraints(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"type": "array", "minItems": 2, "maxItems": 3, "uniqueItems": true}`)

	assert.Lenf(t, validate.Validate(decode(t, `[1]`), s, newCtx()), 1, "expected minItems violation")
	assert.Lenf(t, validate.Validate(decode(t, `[1,2,3,4]`), s, newCtx()), 1, "expected maxItems violation")
	assert.Lenf(t, validate.Validate(decode(t, `[1,2,1]`), s, newCtx()), 1, "expected uniqueItems violation")
}

func TestValidatePrefixItemsAndItems(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{
		"type": "array",
		"prefixItems": [{"type": "string"}, {"type": "number"}],
		"items": {"type": "boolean"}
	}`)
	diags := validate.Validate(decode(t, `["a", 1, true, "bad"]`), s, newCtx())
	require.Lenf(t, diags, 1, "expected exactly 1 diagnostic for trailing non-boolean item")
	require.Len(t, diags[0].Pointer, 1)
	assert.Equal(t, "3", diags[0].Pointer[0])
}

func TestValidateContains(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"type": "array", "contains": {"type": "number", "minimum": 10}}`)
	assert.NotEmpty(t, validate.Validate(decode(t, `[1,2,3]`), s, newCtx()), "expected contains violation")
	assert.Empty(t, validate.Validate(decode(t, `[1,2,20]`), s, newCtx()), "expected contains satisfied")
}

func TestValidateEnumAndConst(t *testing.T) {
	t.Parallel()

	enumSchema := fromJSON(t, `{"enum": ["a", "b"]}`)
	assert.Lenf(t, validate.Validate(decode(t, `"c"`), enumSchema, newCtx()), 1, "expected enum violation")

	constSchema := fromJSON(t, `{"const": 42}`)
	assert.Lenf(t, validate.Validate(decode(t, `41`), constSchema, newCtx()), 1, "expected const violation")
	assert.Empty(t, validate.Validate(decode(t, `42`), constSchema, newCtx()), "expected const satisfied")
}

func TestValidateOneOf(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"oneOf": [{"type": "string"}, {"type": "number", "minimum": 0}]}`)

	assert.Empty(t, validate.Validate(decode(t, `"x"`), s, newCtx()), "expected exactly-one-match to pass")
	assert.NotEmpty(t, validate.Validate(decode(t, `true`), s, newCtx()), "expected zero-match to fail")
}

func TestValidateOneOfOverlapFails(t *testing.T) {
	t.Parallel()

	// Both branches accept any number, so a passing value matches twice.
	s := fromJSON(t, `{"oneOf": [{"type": "number"}, {"type": "number", "minimum": -100}]}`)
	assert.NotEmpty(t, validate.Validate(decode(t, `5`), s, newCtx()), "expected overlap-match to fail oneOf")
}

func TestValidateAnyOf(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"anyOf": [{"type": "string"}, {"type": "number"}]}`)
	assert.Empty(t, validate.Validate(decode(t, `5`), s, newCtx()), "expected anyOf to accept a matching branch")
	assert.NotEmpty(t, validate.Validate(decode(t, `true`), s, newCtx()), "expected anyOf to reject when no branch matches")
}

func TestValidateAllOf(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"allOf": [{"type": "number"}, {"minimum": 5}]}`)
	assert.Empty(t, validate.Validate(decode(t, `10`), s, newCtx()), "expected allOf to accept a value matching every branch")
	assert.Lenf(t, validate.Validate(decode(t, `1`), s, newCtx()), 1, "expected allOf to surface the single failing branch")
}

func TestValidateNot(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"not": {"type": "string"}}`)
	assert.Empty(t, validate.Validate(decode(t, `5`), s, newCtx()), "expected not to accept a non-matching value")
	assert.NotEmpty(t, validate.Validate(decode(t, `"x"`), s, newCtx()), "expected not to reject a matching value")
}

func TestValidateConditional(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{
		"if": {"properties": {"kind": {"const": "a"}}},
		"then": {"required": ["aOnly"]},
		"else": {"required": ["bOnly"]}
	}`)

	assert.Empty(t, validate.Validate(decode(t, `{"kind": "a", "aOnly": 1}`), s, newCtx()), "expected then-branch to be satisfied")
	assert.Lenf(t, validate.Validate(decode(t, `{"kind": "a"}`), s, newCtx()), 1, "expected then-branch violation")
	assert.Lenf(t, validate.Validate(decode(t, `{"kind": "b"}`), s, newCtx()), 1, "expected else-branch violation")
}

func TestValidateDeprecated(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"deprecated": true}`)
	diags := validate.Validate(decode(t, `1`), s, newCtx())
	require.Len(t, diags, 1)
	assert.Equal(t, validate.KindDeprecated, diags[0].Kind)
	assert.Equal(t, validate.SeverityWarning, diags[0].Severity, "expected deprecated diagnostic to be a warning")
}

func TestValidateErrorMessageOverridesMatchingKeyword(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{
		"type": "string",
		"minLength": 3,
		"errorMessage": {"minLength": "needs at least 3 characters"}
	}`)
	diags := validate.Validate(decode(t, `"ab"`), s, newCtx())
	require.Len(t, diags, 1)
	assert.Equal(t, "needs at least 3 characters", diags[0].Message)
}

func TestValidateErrorMessageLeavesNonMatchingKeywordAlone(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{
		"type": "string",
		"minLength": 3,
		"maxLength": 5,
		"errorMessage": {"minLength": "needs at least 3 characters"}
	}`)
	diags := validate.Validate(decode(t, `"abcdef"`), s, newCtx())
	require.Len(t, diags, 1)
	assert.NotEqual(t, "needs at least 3 characters", diags[0].Message, "expected the maxLength violation to keep its default message")
}

func TestValidateRefCycleTerminates(t *testing.T) {
	t.Parallel()

	target := fromJSON(t, `{"type": "string"}`)
	resolver := stubResolver{schemas: map[string]*schema.Schema{"file:///doc.json#/$defs/self": nil}}
	// The $ref's URI is already in Visited, as it is when an outer frame of
	// a self-referential schema is validating it. The resolver would return
	// a string schema that the number below fails, so only the Visited
	// short-circuit yields no diagnostics.
	resolver.schemas["file:///doc.json#/$defs/self"] = target

	s := &schema.Schema{Ref: "#/$defs/self"}
	ctx := validate.NewContext("file:///doc.json", validate.NewRegexCache(), resolver)
	ctx = ctxWithVisited(ctx, "file:///doc.json#/$defs/self")

	diags := validate.Validate(float64(42), s, ctx)
	assert.Nil(t, diags, "expected a $ref whose target is already visited to short-circuit with no diagnostics")
}

// TestValidateRefIntoDefinitions reproduces the concrete $ref scenario end to
// end, through the real schemastore.Resolver rather than a stub:
// {"definitions":{"A":{"type":"integer"}},"$ref":"#/definitions/A"} against
// 1.5 must report a type error at the root.
func TestValidateRefIntoDefinitions(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"definitions": {"A": {"type": "integer"}}, "$ref": "#/definitions/A"}`)
	resolver := schemastore.NewResolverWithTransport(8, rawTransport{
		"file:///doc.json": `{"definitions": {"A": {"type": "integer"}}, "$ref": "#/definitions/A"}`,
	})
	ctx := validate.NewContext("file:///doc.json", validate.NewRegexCache(), resolver)

	diags := validate.Validate(decode(t, `1.5`), s, ctx)
	require.Lenf(t, diags, 1, "expected a single type-violation diagnostic for 1.5 against the $ref'd integer schema")
	assert.Equal(t, validate.KindSchemaViolation, diags[0].Kind)

	assert.Empty(t, validate.Validate(decode(t, `1`), s, ctx), "expected no diagnostics for an integer value")
}

// rawTransport is a schemastore.Transport backed by an in-memory map of URI
// to raw document bytes.
type rawTransport map[string]string

func (t rawTransport) FetchRaw(_ context.Context, uri string) ([]byte, error) {
	body, ok := t[uri]
	if !ok {
		return nil, fmt.Errorf("rawTransport: no such document: %s", uri)
	}
	return []byte(body), nil
}

// ctxWithVisited seeds a Context's Visited set for cycle tests without
// exposing a mutator on Context itself.
func ctxWithVisited(ctx validate.Context, uri string) validate.Context {
	ctx.Visited[uri] = struct{}{}
	return ctx
}

type stubResolver struct {
	schemas map[string]*schema.Schema
}

func (r stubResolver) Resolve(baseURI, ref string) (*schema.Schema, error) {
	key := baseURI + ref
	if s, ok := r.schemas[key]; ok {
		return s, nil
	}
	return nil, nil
}

func TestValidateDeterministic(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{
		"type": "object",
		"required": ["a"],
		"properties": {"a": {"type": "string", "minLength": 3}}
	}`)
	v := decode(t, `{"a": "x"}`)

	first := validate.Validate(v, s, newCtx())
	second := validate.Validate(v, s, newCtx())

	require.Equal(t, len(first), len(second), "expected repeated validation to be deterministic in count")
	for i := range first {
		assert.Equalf(t, first[i], second[i], "expected diagnostic %d to be identical across runs", i)
	}
}

func TestRegexCacheCompilesOnce(t *testing.T) {
	t.Parallel()

	cache := validate.NewRegexCache()
	re1, err1 := cache.Compile("^[a-z]+$")
	require.NoError(t, err1)
	re2, err2 := cache.Compile("^[a-z]+$")
	require.NoError(t, err2)
	assert.Same(t, re1, re2, "expected the same compiled regex instance to be returned from cache")
}

func TestRegexCacheInvalidPatternReturnsError(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"type": "string", "pattern": "(unterminated"}`)
	diags := validate.Validate(decode(t, `"x"`), s, newCtx())
	require.Len(t, diags, 1)
	assert.Equal(t, validate.KindRegexCompileFailure, diags[0].Kind)
}

func TestValidateStopsAtCancelledContext(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{
		"type": "object",
		"properties": {
			"a": {"type": "string"},
			"b": {"type": "string"},
			"c": {"type": "string"}
		}
	}`)
	v := decode(t, `{"a": 1, "b": 2, "c": 3}`)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	diags := validate.Validate(v, s, newCtx().WithCtx(cancelled))
	assert.Emptyf(t, diags, "expected validation against an already-cancelled context to stop before reporting any of the 3 violations")
}

func TestValidateContinuesWithoutCtx(t *testing.T) {
	t.Parallel()

	s := fromJSON(t, `{"type": "object", "properties": {"a": {"type": "string"}}}`)
	diags := validate.Validate(decode(t, `{"a": 1}`), s, newCtx())
	require.Lenf(t, diags, 1, "expected the usual single type violation when no cancellation context is set")
}
