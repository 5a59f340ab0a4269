// Package symbols builds the hierarchical outline behind
// textDocument/documentSymbol from a document's parsed tree.
package symbols

import (
	"fmt"

	"github.com/jsonls/jsonls/internal/document"
	"github.com/jsonls/jsonls/internal/syntax"
	"github.com/jsonls/jsonls/protocol"
)

const maxDetailRunes = 60

// DocumentSymbols returns the outline of snap: one symbol per key at the
// root, each carrying its nested children. A document whose root value is
// not an object (a bare array or scalar) has no named top-level symbols.
func DocumentSymbols(snap document.Snapshot) []protocol.DocumentSymbol {
	root := documentValue(snap.Tree.Root())
	if root.IsZero() || root.Kind() != syntax.KindObject {
		return nil
	}
	return collectObject(snap, root)
}

// documentValue returns the single named value wrapped by the tree's
// document root, or the zero Node for an empty document.
func documentValue(root syntax.Node) syntax.Node {
	if root.NamedChildCount() == 0 {
		return syntax.Node{}
	}
	return root.NamedChild(0)
}

func collectObject(snap document.Snapshot, obj syntax.Node) []protocol.DocumentSymbol {
	var out []protocol.DocumentSymbol
	for i := 0; i < obj.NamedChildCount(); i++ {
		pair := obj.NamedChild(i)
		if pair.Kind() != syntax.KindPair {
			continue
		}
		key := pair.ChildByFieldName("key")
		value := pair.ChildByFieldName("value")
		if key.IsZero() || value.IsZero() {
			continue
		}
		name, ok := syntax.StringContents(key, snap.Text)
		if !ok {
			name = string(key.Text(snap.Text))
		}
		out = append(out, protocol.DocumentSymbol{
			Name:           name,
			Detail:         valueDetail(value, snap.Text),
			Kind:           symbolKind(value),
			Range:          snap.RangeOf(pair.StartByte(), pair.EndByte()),
			SelectionRange: snap.RangeOf(key.StartByte(), key.EndByte()),
			Children:       collectChildren(snap, value),
		})
	}
	return out
}

func collectArray(snap document.Snapshot, arr syntax.Node) []protocol.DocumentSymbol {
	var out []protocol.DocumentSymbol
	index := 0
	for i := 0; i < arr.NamedChildCount(); i++ {
		item := arr.NamedChild(i)
		out = append(out, protocol.DocumentSymbol{
			Name:           arrayIndexName(index),
			Detail:         valueDetail(item, snap.Text),
			Kind:           symbolKind(item),
			Range:          snap.RangeOf(item.StartByte(), item.EndByte()),
			SelectionRange: snap.RangeOf(item.StartByte(), item.EndByte()),
			Children:       collectChildren(snap, item),
		})
		index++
	}
	return out
}

func collectChildren(snap document.Snapshot, value syntax.Node) []protocol.DocumentSymbol {
	switch value.Kind() {
	case syntax.KindObject:
		return collectObject(snap, value)
	case syntax.KindArray:
		return collectArray(snap, value)
	default:
		return nil
	}
}

func symbolKind(value syntax.Node) protocol.SymbolKind {
	switch value.Kind() {
	case syntax.KindObject:
		return protocol.SymbolKindObject
	case syntax.KindArray:
		return protocol.SymbolKindArray
	case syntax.KindString:
		return protocol.SymbolKindString
	case syntax.KindNumber:
		return protocol.SymbolKindNumber
	case syntax.KindTrue, syntax.KindFalse:
		return protocol.SymbolKindBoolean
	case syntax.KindNull:
		return protocol.SymbolKindNull
	default:
		return protocol.SymbolKindKey
	}
}

func valueDetail(value syntax.Node, src []byte) string {
	if value.Kind() == syntax.KindString {
		if s, ok := syntax.StringContents(value, src); ok {
			return truncate(s)
		}
	}
	return truncate(string(value.Text(src)))
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxDetailRunes {
		return s
	}
	return string(runes[:maxDetailRunes]) + "..."
}

func arrayIndexName(i int) string {
	return fmt.Sprintf("[%d]", i)
}
