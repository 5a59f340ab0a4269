// Package formatting reformats a document by walking its parsed tree
// directly, copying leaf text verbatim from the source so string escapes
// and number literals survive unchanged.
package formatting

import (
	"strings"

	"github.com/jsonls/jsonls/internal/document"
	"github.com/jsonls/jsonls/internal/syntax"
	"github.com/jsonls/jsonls/protocol"
)

// FormatDocument reformats the whole document, or returns no edits if the
// document has syntax errors or is already formatted.
func FormatDocument(snap document.Snapshot, options protocol.FormattingOptions) []protocol.TextEdit {
	if snap.Tree.HasError() {
		return nil
	}

	formatted, ok := reformat(snap, options)
	if !ok || formatted == string(snap.Text) {
		return nil
	}

	return []protocol.TextEdit{{
		Range:   fullRange(snap),
		NewText: formatted,
	}}
}

// FormatRange reformats the whole document regardless of the requested
// range; most editors tolerate a wider edit than they asked for.
func FormatRange(snap document.Snapshot, _ protocol.Range, options protocol.FormattingOptions) []protocol.TextEdit {
	return FormatDocument(snap, options)
}

func fullRange(snap document.Snapshot) protocol.Range {
	return snap.RangeOf(0, len(snap.Text))
}

func reformat(snap document.Snapshot, options protocol.FormattingOptions) (string, bool) {
	root := snap.Tree.Root()
	value := rootValue(root)
	if value.IsZero() {
		return "", false
	}

	indent := "\t"
	if options.InsertSpaces {
		indent = strings.Repeat(" ", int(options.TabSize))
	}

	var out strings.Builder
	out.Grow(len(snap.Text))
	formatNode(value, snap.Text, indent, 0, &out)

	text := out.String()
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text, true
}

func rootValue(root syntax.Node) syntax.Node {
	for i := 0; i < root.NamedChildCount(); i++ {
		c := root.NamedChild(i)
		if isValueKind(c.Kind()) {
			return c
		}
	}
	return syntax.Node{}
}

func isValueKind(kind string) bool {
	switch kind {
	case syntax.KindObject, syntax.KindArray, syntax.KindString, syntax.KindNumber,
		syntax.KindTrue, syntax.KindFalse, syntax.KindNull:
		return true
	default:
		return false
	}
}

func formatNode(n syntax.Node, src []byte, indent string, depth int, out *strings.Builder) {
	switch n.Kind() {
	case syntax.KindObject:
		formatObject(n, src, indent, depth, out)
	case syntax.KindArray:
		formatArray(n, src, indent, depth, out)
	default:
		// Leaf nodes: copy verbatim, preserving exact escapes and formatting.
		out.Write(n.Text(src))
	}
}

func formatObject(n syntax.Node, src []byte, indent string, depth int, out *strings.Builder) {
	var pairs []syntax.Node
	for i := 0; i < n.NamedChildCount(); i++ {
		if c := n.NamedChild(i); c.Kind() == syntax.KindPair {
			pairs = append(pairs, c)
		}
	}
	if len(pairs) == 0 {
		out.WriteString("{}")
		return
	}

	out.WriteString("{\n")
	for i, pair := range pairs {
		writeIndent(out, indent, depth+1)
		if key := pair.ChildByFieldName("key"); !key.IsZero() {
			out.Write(key.Text(src))
		}
		out.WriteString(": ")
		if value := pair.ChildByFieldName("value"); !value.IsZero() {
			formatNode(value, src, indent, depth+1, out)
		}
		if i < len(pairs)-1 {
			out.WriteByte(',')
		}
		out.WriteByte('\n')
	}
	writeIndent(out, indent, depth)
	out.WriteByte('}')
}

func formatArray(n syntax.Node, src []byte, indent string, depth int, out *strings.Builder) {
	var items []syntax.Node
	for i := 0; i < n.NamedChildCount(); i++ {
		if c := n.NamedChild(i); isValueKind(c.Kind()) {
			items = append(items, c)
		}
	}
	if len(items) == 0 {
		out.WriteString("[]")
		return
	}

	out.WriteString("[\n")
	for i, item := range items {
		writeIndent(out, indent, depth+1)
		formatNode(item, src, indent, depth+1, out)
		if i < len(items)-1 {
			out.WriteByte(',')
		}
		out.WriteByte('\n')
	}
	writeIndent(out, indent, depth)
	out.WriteByte(']')
}

func writeIndent(out *strings.Builder, indent string, depth int) {
	for i := 0; i < depth; i++ {
		out.WriteString(indent)
	}
}
