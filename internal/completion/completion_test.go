package completion_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsonls/jsonls/internal/completion"
	"github.com/jsonls/jsonls/internal/document"
	"github.com/jsonls/jsonls/internal/schema"
)

func snapshot(t *testing.T, text string) document.Snapshot {
	t.Helper()
	doc, err := document.Open(context.Background(), "file:///a.json", 0, []byte(text))
	require.NoError(t, err)
	return doc.Snapshot()
}

func testSchema() *schema.Schema {
	return schema.FromValue(map[string]any{
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
			"age":  map[string]any{"type": "integer"},
		},
		"required": []any{"name"},
	})
}

func TestCompletionsPropertyNames(t *testing.T) {
	t.Parallel()

	// Cursor in the empty gap before the closing brace: property-name context.
	snap := snapshot(t, `{}`)
	items := completion.Completions(snap, 1, testSchema(), nil)
	assert.Len(t, items, 2)
}

func TestCompletionsSkipsExistingKeys(t *testing.T) {
	t.Parallel()

	// Cursor in the gap between the trailing comma and the closing brace.
	snap := snapshot(t, `{"name": "a", }`)
	items := completion.Completions(snap, 13, testSchema(), nil)
	for _, it := range items {
		assert.NotEqual(t, "name", it.Label, "expected existing key to be excluded")
	}
	require.Len(t, items, 1, "expected only the remaining \"age\" property")
}

func TestCompletionsEnumValues(t *testing.T) {
	t.Parallel()

	s := schema.FromValue(map[string]any{
		"properties": map[string]any{
			"color": map[string]any{
				"enum": []any{"red", "green", "blue"},
			},
		},
	})
	snap := snapshot(t, `{"color": "red"}`)
	items := completion.Completions(snap, 12, s, nil) // cursor inside the "red" value string
	assert.GreaterOrEqual(t, len(items), 3)
}

func TestCompletionsFollowsRefBeforeListingProperties(t *testing.T) {
	t.Parallel()

	target := schema.FromValue(map[string]any{
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
			"age":  map[string]any{"type": "integer"},
		},
	})
	root := schema.FromValue(map[string]any{"$ref": "#/$defs/widget"})
	resolve := func(ref string) *schema.Schema {
		if ref == "#/$defs/widget" {
			return target
		}
		return nil
	}

	snap := snapshot(t, `{}`)
	items := completion.Completions(snap, 1, root, resolve)
	assert.Len(t, items, 2, "expected 2 property completions resolved through $ref")
}

func TestCompletionsNoSchemaReturnsStructuralOnly(t *testing.T) {
	t.Parallel()

	snap := snapshot(t, `{"a": "x"}`)
	items := completion.Completions(snap, 7, nil, nil) // cursor inside the "x" value string
	assert.Len(t, items, 2, "expected the 2 structural completions")
}
