// Package selection builds the nested range chains behind
// textDocument/selectionRange, widening a cursor position outward through
// every enclosing node up to the document root.
package selection

import (
	"github.com/jsonls/jsonls/internal/document"
	"github.com/jsonls/jsonls/internal/syntax"
	"github.com/jsonls/jsonls/protocol"
)

// SelectionRanges returns one SelectionRange chain per requested position, in
// the same order as positions.
func SelectionRanges(snap document.Snapshot, positions []protocol.Position) []protocol.SelectionRange {
	ranges := make([]protocol.SelectionRange, len(positions))
	for i, pos := range positions {
		offset := snap.Lines.PositionToOffset(int(pos.Line), int(pos.Character))
		ranges[i] = buildChain(snap, offset)
	}
	return ranges
}

// buildChain returns the innermost SelectionRange at offset, with Parent
// pointing outward through every ancestor up to the document root.
func buildChain(snap document.Snapshot, offset int) protocol.SelectionRange {
	chain := syntax.AncestorsAt(snap.Tree.Root(), offset)
	if len(chain) == 0 {
		// Empty document: fall back to the whole (empty) span, no parent.
		return protocol.SelectionRange{Range: snap.RangeOf(0, 0)}
	}

	var cur *protocol.SelectionRange
	for i := len(chain) - 1; i >= 0; i-- {
		n := chain[i]
		sr := protocol.SelectionRange{
			Range:  snap.RangeOf(n.StartByte(), n.EndByte()),
			Parent: cur,
		}
		cur = &sr
	}
	return *cur
}
