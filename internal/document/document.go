// Package document pairs source text with a syntax tree and a line index,
// applying LSP edits atomically and keeping all three mutually consistent.
package document

import (
	"context"
	"fmt"
	"sync"

	"github.com/jsonls/jsonls/internal/lineindex"
	"github.com/jsonls/jsonls/internal/syntax"
	"github.com/jsonls/jsonls/protocol"
)

// Document pairs source text with a SyntaxTree and LineIndex, kept
// mutually consistent across every applied change.
type Document struct {
	URI     protocol.DocumentURI
	Text    []byte
	Version int
	Lines   *lineindex.LineIndex
	Tree    *syntax.Tree
}

// Open builds a fresh Document by fully parsing text.
func Open(ctx context.Context, uri protocol.DocumentURI, version int, text []byte) (*Document, error) {
	tree, err := syntax.Parse(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("document: open %s: %w", uri, err)
	}
	return &Document{
		URI:     uri,
		Text:    text,
		Version: version,
		Lines:   lineindex.Build(text),
		Tree:    tree,
	}, nil
}

// ApplyChange applies the given LSP content changes in order, as received in
// a single didChange notification. A change with no Range is a full-text
// replacement; otherwise it is an incremental edit. On any rejected change
// the whole notification is discarded and the document is left unmodified.
func (d *Document) ApplyChange(ctx context.Context, version int, changes []protocol.TextDocumentContentChangeEvent) error {
	origText, origLines, origTree := d.Text, d.Lines, d.Tree

	for _, change := range changes {
		if change.Range == nil {
			if err := d.replaceFull(ctx, []byte(change.Text)); err != nil {
				d.Text, d.Lines, d.Tree = origText, origLines, origTree
				return err
			}
			continue
		}
		if err := d.applyRangeEdit(ctx, *change.Range, change.Text); err != nil {
			d.Text, d.Lines, d.Tree = origText, origLines, origTree
			return err
		}
	}

	d.Version = version
	return nil
}

func (d *Document) replaceFull(ctx context.Context, text []byte) error {
	tree, err := syntax.Parse(ctx, text)
	if err != nil {
		return fmt.Errorf("document: %s: full replace parse: %w", d.URI, err)
	}
	d.Tree = tree
	d.Text = text
	d.Lines = lineindex.Build(text)
	return nil
}

// applyRangeEdit converts the LSP range to a byte range via LineIndex,
// splices the text, updates LineIndex, and incrementally re-parses the
// syntax tree.
func (d *Document) applyRangeEdit(ctx context.Context, r protocol.Range, newText string) error {
	startByte := d.Lines.PositionToOffset(int(r.Start.Line), int(r.Start.Character))
	endByte := d.Lines.PositionToOffset(int(r.End.Line), int(r.End.Character))
	if startByte > endByte || startByte < 0 || endByte > len(d.Text) {
		return fmt.Errorf("document: %s: invalid edit range %+v", d.URI, r)
	}

	startRow, startCol := d.Lines.OffsetToPosition(startByte)
	oldEndRow, oldEndCol := d.Lines.OffsetToPosition(endByte)

	spliced := make([]byte, 0, len(d.Text)-(endByte-startByte)+len(newText))
	spliced = append(spliced, d.Text[:startByte]...)
	spliced = append(spliced, newText...)
	spliced = append(spliced, d.Text[endByte:]...)

	newEndByte := startByte + len(newText)

	edit := syntax.Edit{
		StartByte:   uint32(startByte),
		OldEndByte:  uint32(endByte),
		NewEndByte:  uint32(newEndByte),
		StartPoint:  syntax.Point{Row: uint32(startRow), Column: uint32(startCol)},
		OldEndPoint: syntax.Point{Row: uint32(oldEndRow), Column: uint32(oldEndCol)},
	}

	lines := *d.Lines
	lines.Update(startByte, endByte, []byte(newText), spliced)
	newEndRow, newEndCol := lines.OffsetToPosition(newEndByte)
	edit.NewEndPoint = syntax.Point{Row: uint32(newEndRow), Column: uint32(newEndCol)}

	tree, err := syntax.Reparse(ctx, d.Tree, spliced, edit)
	if err != nil {
		return fmt.Errorf("document: %s: incremental reparse: %w", d.URI, err)
	}

	d.Tree = tree
	d.Text = spliced
	d.Lines = &lines
	return nil
}

// Snapshot is an immutable view of a Document's text/tree/line-index triple,
// safe to read after the lock protecting the owning DocumentStore is
// released: callers take a Snapshot once at request entry and observe that
// exact state for the life of the request, even as further edits land.
type Snapshot struct {
	URI     protocol.DocumentURI
	Text    []byte
	Version int
	Lines   *lineindex.LineIndex
	Tree    *syntax.Tree
}

// Snapshot captures d's current state. Text, Lines, and Tree are not mutated
// in place by later edits (ApplyChange always assigns fresh values), so a
// Snapshot's fields remain stable even while d continues to change.
func (d *Document) Snapshot() Snapshot {
	return Snapshot{
		URI:     d.URI,
		Text:    d.Text,
		Version: d.Version,
		Lines:   d.Lines,
		Tree:    d.Tree,
	}
}

// RangeOf converts a [startByte, endByte) byte span into an LSP Range using
// s's line index, the common first step every presentation-layer traversal
// (colors, folding, selection, symbols, links) takes before reporting a node.
func (s Snapshot) RangeOf(startByte, endByte int) protocol.Range {
	startLine, startCol := s.Lines.OffsetToPosition(startByte)
	endLine, endCol := s.Lines.OffsetToPosition(endByte)
	return protocol.Range{
		Start: protocol.Position{Line: uint(startLine), Character: uint(startCol)},
		End:   protocol.Position{Line: uint(endLine), Character: uint(endCol)},
	}
}

// Store is a concurrency-safe mapping from document URI to Document.
// Readers (queries) take the read lock to obtain a Snapshot; writers
// (open/change/close) take the write lock.
type Store struct {
	mu   sync.RWMutex
	docs map[protocol.DocumentURI]*Document
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{docs: make(map[protocol.DocumentURI]*Document)}
}

// Open creates and stores a new Document, replacing any existing one at the
// same URI.
func (s *Store) Open(ctx context.Context, uri protocol.DocumentURI, version int, text []byte) (*Document, error) {
	doc, err := Open(ctx, uri, version, text)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.docs[uri] = doc
	s.mu.Unlock()
	return doc, nil
}

// Change applies changes to the document at uri. Returns an error if the
// document is not open.
func (s *Store) Change(ctx context.Context, uri protocol.DocumentURI, version int, changes []protocol.TextDocumentContentChangeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[uri]
	if !ok {
		return fmt.Errorf("document: %s: not open", uri)
	}
	return doc.ApplyChange(ctx, version, changes)
}

// Close removes the document at uri from the store.
func (s *Store) Close(uri protocol.DocumentURI) {
	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()
}

// Snapshot returns a consistent snapshot of the document at uri, or false if
// it is not open.
func (s *Store) Snapshot(uri protocol.DocumentURI) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[uri]
	if !ok {
		return Snapshot{}, false
	}
	return doc.Snapshot(), true
}

// Len reports the number of currently open documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// URIs returns the URIs of every currently open document, in no particular
// order. Used to re-run validation across the whole open set after a
// workspace/didChangeConfiguration notification changes schema associations.
func (s *Store) URIs() []protocol.DocumentURI {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uris := make([]protocol.DocumentURI, 0, len(s.docs))
	for uri := range s.docs {
		uris = append(uris, uri)
	}
	return uris
}
