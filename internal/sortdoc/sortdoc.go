// Package sortdoc implements the json.sort executeCommand: recursively
// sorting every object's properties alphabetically. Unlike package
// formatting, which walks the parsed tree to preserve source text exactly,
// sorting needs reordered keys the tree can't provide, so it round-trips
// through a decoded value tree instead.
package sortdoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jsonls/jsonls/internal/document"
	"github.com/jsonls/jsonls/internal/syntax"
	"github.com/jsonls/jsonls/protocol"
)

// SortDocument returns a single edit that rewrites the whole document with
// every object's keys sorted alphabetically, or no edits if the document has
// syntax errors, fails to parse, or already reads exactly as the sorted,
// re-indented output would.
func SortDocument(snap document.Snapshot) []protocol.TextEdit {
	if snap.Tree.HasError() {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(syntax.SanitizeJSONC(snap.Text)))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil
	}

	sorted := sortValue(value)
	indent := detectIndent(string(snap.Text))

	var out strings.Builder
	out.Grow(len(snap.Text))
	formatValue(sorted, indent, 0, &out)
	out.WriteByte('\n')

	newText := out.String()
	if newText == string(snap.Text) {
		return nil
	}

	return []protocol.TextEdit{{
		Range:   snap.RangeOf(0, len(snap.Text)),
		NewText: newText,
	}}
}

type sortedObject struct {
	keys   []string
	values map[string]any
}

func sortValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		values := make(map[string]any, len(val))
		for k, child := range val {
			keys = append(keys, k)
			values[k] = sortValue(child)
		}
		sort.Strings(keys)
		return sortedObject{keys: keys, values: values}
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = sortValue(child)
		}
		return out
	default:
		return v
	}
}

func detectIndent(text string) string {
	lines := strings.Split(text, "\n")
	for _, line := range lines[minInt(1, len(lines)):] {
		if strings.HasPrefix(line, "\t") {
			return "\t"
		}
		trimmed := strings.TrimLeft(line, " ")
		if n := len(line) - len(trimmed); n > 0 {
			return strings.Repeat(" ", n)
		}
	}
	return "  "
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func formatValue(v any, indent string, depth int, out *strings.Builder) {
	switch val := v.(type) {
	case nil:
		out.WriteString("null")
	case bool:
		if val {
			out.WriteString("true")
		} else {
			out.WriteString("false")
		}
	case json.Number:
		out.WriteString(val.String())
	case string:
		writeJSONString(val, out)
	case []any:
		formatArray(val, indent, depth, out)
	case sortedObject:
		formatObject(val, indent, depth, out)
	default:
		fmt.Fprintf(out, "%v", val)
	}
}

func formatArray(arr []any, indent string, depth int, out *strings.Builder) {
	if len(arr) == 0 {
		out.WriteString("[]")
		return
	}
	out.WriteString("[\n")
	for i, item := range arr {
		writeIndent(out, indent, depth+1)
		formatValue(item, indent, depth+1, out)
		if i < len(arr)-1 {
			out.WriteByte(',')
		}
		out.WriteByte('\n')
	}
	writeIndent(out, indent, depth)
	out.WriteByte(']')
}

func formatObject(obj sortedObject, indent string, depth int, out *strings.Builder) {
	if len(obj.keys) == 0 {
		out.WriteString("{}")
		return
	}
	out.WriteString("{\n")
	for i, key := range obj.keys {
		writeIndent(out, indent, depth+1)
		writeJSONString(key, out)
		out.WriteString(": ")
		formatValue(obj.values[key], indent, depth+1, out)
		if i < len(obj.keys)-1 {
			out.WriteByte(',')
		}
		out.WriteByte('\n')
	}
	writeIndent(out, indent, depth)
	out.WriteByte('}')
}

func writeIndent(out *strings.Builder, indent string, depth int) {
	for i := 0; i < depth; i++ {
		out.WriteString(indent)
	}
}

func writeJSONString(s string, out *strings.Builder) {
	out.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			out.WriteString(`\"`)
		case '\\':
			out.WriteString(`\\`)
		case '\n':
			out.WriteString(`\n`)
		case '\r':
			out.WriteString(`\r`)
		case '\t':
			out.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(out, `\u%04x`, r)
			} else {
				out.WriteRune(r)
			}
		}
	}
	out.WriteByte('"')
}
