// Package hover renders schema-driven tooltips: the JSON path under the
// cursor, the matching sub-schema's description/type/default/enum, and the
// node's own value.
package hover

import (
	"fmt"
	"strings"

	"github.com/jsonls/jsonls/internal/document"
	"github.com/jsonls/jsonls/internal/schema"
	"github.com/jsonls/jsonls/internal/syntax"
	"github.com/jsonls/jsonls/protocol"
)

const maxEnumValuesShown = 20
const maxInlineValueLength = 200

// Hover produces hover content for the node at offset, or ok=false if there
// is nothing worth showing (no path, no schema match, no renderable value).
// resolve follows $ref encountered along the way and may be nil if the
// caller has no way to fetch other schema documents.
func Hover(snap document.Snapshot, offset int, root *schema.Schema, resolve schema.RefResolver) (protocol.Hover, bool) {
	node := syntax.NodeAt(snap.Tree.Root(), offset)
	if node.IsZero() {
		return protocol.Hover{}, false
	}

	var sections []string

	path := syntax.JSONPath(node, snap.Text)
	if len(path) > 0 {
		sections = append(sections, "`/"+strings.Join(path, "/")+"`")
	}

	if root != nil {
		if sub := root.ResolvePath(path, resolve); sub != nil {
			sections = append(sections, schemaSections(sub)...)
		}
	}

	if s := valueSection(node, snap.Text); s != "" {
		sections = append(sections, s)
	}

	if len(sections) == 0 {
		return protocol.Hover{}, false
	}

	r := snap.RangeOf(node.StartByte(), node.EndByte())
	return protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: strings.Join(sections, "\n\n"),
		},
		Range: &r,
	}, true
}

func schemaSections(sub *schema.Schema) []string {
	var sections []string

	if desc := sub.MarkdownDescription; desc != "" {
		sections = append(sections, desc)
	} else if sub.Description != "" {
		sections = append(sections, sub.Description)
	}

	if len(sub.Types) > 0 {
		names := make([]string, len(sub.Types))
		for i, t := range sub.Types {
			names[i] = string(t)
		}
		sections = append(sections, fmt.Sprintf("Type: `%s`", strings.Join(names, " | ")))
	}

	if sub.HasDefault {
		sections = append(sections, fmt.Sprintf("Default: `%v`", sub.Default))
	}

	if n := len(sub.EnumValues); n > 0 && n <= maxEnumValuesShown {
		vals := make([]string, n)
		for i, v := range sub.EnumValues {
			vals[i] = fmt.Sprintf("`%v`", v)
		}
		sections = append(sections, "Allowed values: "+strings.Join(vals, ", "))
	}

	if sub.Deprecated {
		msg := sub.DeprecationMessage
		if msg == "" {
			msg = "Deprecated"
		}
		sections = append(sections, "**Deprecated:** "+msg)
	}

	return sections
}

func valueSection(n syntax.Node, src []byte) string {
	switch n.Kind() {
	case syntax.KindString:
		if s, ok := syntax.StringContents(n, src); ok && len(s) < maxInlineValueLength {
			return fmt.Sprintf("Value: `%q`", s)
		}
	case syntax.KindNumber, syntax.KindTrue, syntax.KindFalse, syntax.KindNull:
		return fmt.Sprintf("Value: `%s`", n.Text(src))
	}
	return ""
}
