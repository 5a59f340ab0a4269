package sortdoc_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsonls/jsonls/internal/document"
	"github.com/jsonls/jsonls/internal/sortdoc"
)

func snapshot(t *testing.T, text string) document.Snapshot {
	t.Helper()
	doc, err := document.Open(context.Background(), "file:///a.json", 0, []byte(text))
	require.NoError(t, err)
	return doc.Snapshot()
}

func TestSortDocumentAlphabetical(t *testing.T) {
	t.Parallel()

	edits := sortdoc.SortDocument(snapshot(t, `{"b": 2, "a": 1}`))
	require.Len(t, edits, 1)
	sorted := edits[0].NewText
	assert.Lessf(t, strings.Index(sorted, `"a"`), strings.Index(sorted, `"b"`), "expected \"a\" before \"b\", got %q", sorted)
}

func TestSortNestedObjects(t *testing.T) {
	t.Parallel()

	edits := sortdoc.SortDocument(snapshot(t, `{"z": {"b": 2, "a": 1}, "a": 1}`))
	require.Len(t, edits, 1)
	sorted := edits[0].NewText
	assert.Lessf(t, strings.Index(sorted, `"a": 1`), strings.Index(sorted, `"z"`), "expected top-level \"a\" before \"z\", got %q", sorted)
}

func TestSortAlreadySorted(t *testing.T) {
	t.Parallel()

	edits := sortdoc.SortDocument(snapshot(t, "{\n  \"a\": 1,\n  \"b\": 2\n}\n"))
	assert.Empty(t, edits)
}

func TestSortSkipsSyntaxErrors(t *testing.T) {
	t.Parallel()

	edits := sortdoc.SortDocument(snapshot(t, `{"b": , "a": 1}`))
	assert.Empty(t, edits, "expected no edits for invalid JSON")
}

func TestSortToleratesCommentsAndTrailingCommas(t *testing.T) {
	t.Parallel()

	edits := sortdoc.SortDocument(snapshot(t, "{\n  // note\n  \"b\": 2,\n  \"a\": 1,\n}"))
	require.Lenf(t, edits, 1, "expected 1 edit for a JSONC document with a comment and trailing comma")
	sorted := edits[0].NewText
	assert.Lessf(t, strings.Index(sorted, `"a"`), strings.Index(sorted, `"b"`), "expected \"a\" before \"b\", got %q", sorted)
}

func TestSortPreservesNumberFormatting(t *testing.T) {
	t.Parallel()

	edits := sortdoc.SortDocument(snapshot(t, `{"b": 2, "a": 1.50}`))
	require.Len(t, edits, 1)
	assert.Contains(t, edits[0].NewText, "1.50", "expected original number formatting preserved")
}
