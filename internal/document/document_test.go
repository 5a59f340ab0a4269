package document_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsonls/jsonls/internal/document"
	"github.com/jsonls/jsonls/protocol"
)

func TestOpenParsesTree(t *testing.T) {
	t.Parallel()

	doc, err := document.Open(context.Background(), "file:///a.json", 0, []byte(`{"a": 1}`))
	require.NoError(t, err)
	assert.False(t, doc.Tree.HasError(), "expected no syntax errors for valid JSON")
}

func TestApplyChangeIncrementalEdit(t *testing.T) {
	t.Parallel()

	doc, err := document.Open(context.Background(), "file:///a.json", 0, []byte(`{"a": 1}`))
	require.NoError(t, err)

	// Replace "1" with "2".
	rng := protocol.Range{
		Start: protocol.Position{Line: 0, Character: 6},
		End:   protocol.Position{Line: 0, Character: 7},
	}
	err = doc.ApplyChange(context.Background(), 1, []protocol.TextDocumentContentChangeEvent{
		{Range: &rng, Text: "2"},
	})
	require.NoError(t, err)

	assert.Equal(t, `{"a": 2}`, string(doc.Text))
	assert.False(t, doc.Tree.HasError(), "expected no syntax errors after edit")
	assert.Equal(t, 1, doc.Version)
}

func TestApplyChangeMultilineInsert(t *testing.T) {
	t.Parallel()

	doc, err := document.Open(context.Background(), "file:///a.json", 0, []byte("{\n  \"a\": 1\n}"))
	require.NoError(t, err)

	rng := protocol.Range{
		Start: protocol.Position{Line: 1, Character: 8},
		End:   protocol.Position{Line: 1, Character: 8},
	}
	err = doc.ApplyChange(context.Background(), 1, []protocol.TextDocumentContentChangeEvent{
		{Range: &rng, Text: ",\n  \"b\": 2"},
	})
	require.NoError(t, err)

	assert.Contains(t, string(doc.Text), `"b": 2`)
	assert.False(t, doc.Tree.HasError(), "expected no syntax errors after multiline edit")
}

func TestApplyChangeFullReplace(t *testing.T) {
	t.Parallel()

	doc, err := document.Open(context.Background(), "file:///a.json", 0, []byte(`{"a": 1}`))
	require.NoError(t, err)

	err = doc.ApplyChange(context.Background(), 2, []protocol.TextDocumentContentChangeEvent{
		{Text: `{"b": 2}`},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"b": 2}`, string(doc.Text))
}

func TestApplyChangeRejectsInvalidRange(t *testing.T) {
	t.Parallel()

	doc, err := document.Open(context.Background(), "file:///a.json", 0, []byte(`{"a": 1}`))
	require.NoError(t, err)
	origText := string(doc.Text)

	rng := protocol.Range{
		Start: protocol.Position{Line: 0, Character: 7},
		End:   protocol.Position{Line: 0, Character: 2}, // start > end
	}
	err = doc.ApplyChange(context.Background(), 1, []protocol.TextDocumentContentChangeEvent{
		{Range: &rng, Text: "x"},
	})
	require.Error(t, err)
	assert.Equal(t, origText, string(doc.Text), "expected document unchanged after rejected edit")
}

func TestStoreOpenChangeCloseSnapshot(t *testing.T) {
	t.Parallel()

	store := document.NewStore()
	uri := protocol.DocumentURI("file:///a.json")

	_, err := store.Open(context.Background(), uri, 0, []byte(`{}`))
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	snap, ok := store.Snapshot(uri)
	require.True(t, ok, "expected snapshot to exist")
	assert.Equal(t, "{}", string(snap.Text))

	store.Close(uri)
	_, ok = store.Snapshot(uri)
	assert.False(t, ok, "expected no snapshot after close")
}

func TestStoreChangeUnopenedDocumentErrors(t *testing.T) {
	t.Parallel()

	store := document.NewStore()
	err := store.Change(context.Background(), "file:///missing.json", 1, nil)
	require.Error(t, err, "expected error changing an unopened document")
}
