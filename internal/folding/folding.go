// Package folding reports which spans of a document an editor can collapse:
// every multi-line object, array, or comment block.
package folding

import (
	"github.com/jsonls/jsonls/internal/document"
	"github.com/jsonls/jsonls/internal/syntax"
	"github.com/jsonls/jsonls/protocol"
)

// FoldingRanges walks snap's tree and returns a fold for every object,
// array, or comment block that spans more than one line. Comment blocks
// never appear as tree nodes (the parser sanitizes them away before
// parsing), so they're read from snap.Tree.Comments instead.
func FoldingRanges(snap document.Snapshot) []protocol.FoldingRange {
	var ranges []protocol.FoldingRange
	collect(snap, snap.Tree.Root(), &ranges)
	for _, c := range snap.Tree.Comments() {
		appendFoldRange(snap, c.StartByte, c.EndByte, protocol.FoldingRangeKindComment, &ranges)
	}
	return ranges
}

func collect(snap document.Snapshot, n syntax.Node, ranges *[]protocol.FoldingRange) {
	switch n.Kind() {
	case syntax.KindObject, syntax.KindArray:
		appendFold(snap, n, protocol.FoldingRangeKindRegion, ranges)
	}

	for i := 0; i < n.ChildCount(); i++ {
		collect(snap, n.Child(i), ranges)
	}
}

func appendFold(snap document.Snapshot, n syntax.Node, kind protocol.FoldingRangeKind, ranges *[]protocol.FoldingRange) {
	appendFoldRange(snap, n.StartByte(), n.EndByte(), kind, ranges)
}

func appendFoldRange(snap document.Snapshot, startByte, endByte int, kind protocol.FoldingRangeKind, ranges *[]protocol.FoldingRange) {
	startLine, startCol := snap.Lines.OffsetToPosition(startByte)
	endLine, endCol := snap.Lines.OffsetToPosition(endByte)
	if endLine <= startLine {
		return // Only multi-line spans are worth folding.
	}

	sc := uint(startCol)
	ec := uint(endCol)
	*ranges = append(*ranges, protocol.FoldingRange{
		StartLine:      uint(startLine),
		StartCharacter: &sc,
		EndLine:        uint(endLine),
		EndCharacter:   &ec,
		Kind:           &kind,
	})
}
