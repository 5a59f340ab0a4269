package links_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsonls/jsonls/internal/document"
	"github.com/jsonls/jsonls/internal/links"
)

func snapshot(t *testing.T, text string) document.Snapshot {
	t.Helper()
	doc, err := document.Open(context.Background(), "file:///a.json", 0, []byte(text))
	require.NoError(t, err)
	return doc.Snapshot()
}

func TestDetectRefLink(t *testing.T) {
	t.Parallel()

	found := links.DocumentLinks(snapshot(t, `{"$ref": "#/definitions/thing"}`))
	require.Len(t, found, 1)
	assert.Equal(t, "file:///a.json#/definitions/thing", found[0].Target)
}

func TestDetectURLLink(t *testing.T) {
	t.Parallel()

	found := links.DocumentLinks(snapshot(t, `{"homepage": "https://example.com/docs"}`))
	require.Len(t, found, 1)
	assert.Equal(t, "https://example.com/docs", found[0].Target)
}

func TestDetectHTTPRef(t *testing.T) {
	t.Parallel()

	found := links.DocumentLinks(snapshot(t, `{"$ref": "https://example.com/schema.json"}`))
	require.Len(t, found, 1)
	assert.Equal(t, "https://example.com/schema.json", found[0].Target)
}

func TestNoLinksInPlainJSON(t *testing.T) {
	t.Parallel()

	found := links.DocumentLinks(snapshot(t, `{"name": "hello", "count": 3}`))
	assert.Empty(t, found)
}

func TestFindDefinitionInternalRef(t *testing.T) {
	t.Parallel()

	snap := snapshot(t, `{"definitions": {"thing": {"type": "string"}}, "$ref": "#/definitions/thing"}`)
	offset := 60 // somewhere inside the "#/definitions/thing" string literal
	_, ok := links.FindDefinition(snap, offset)
	assert.True(t, ok, "expected FindDefinition to resolve an internal $ref")
}

func TestFindDefinitionNotARef(t *testing.T) {
	t.Parallel()

	snap := snapshot(t, `{"name": "hello"}`)
	_, ok := links.FindDefinition(snap, 11)
	assert.False(t, ok, "expected no definition for a plain string value")
}

func TestFindDefinitionExternalRefReturnsNone(t *testing.T) {
	t.Parallel()

	snap := snapshot(t, `{"$ref": "https://example.com/schema.json"}`)
	offset := 15
	_, ok := links.FindDefinition(snap, offset)
	assert.False(t, ok, "expected no definition for an external $ref")
}
