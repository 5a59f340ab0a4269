// Package links detects $ref and bare URL references inside a JSON document
// and resolves $ref go-to-definition requests by walking JSON Pointers
// directly over the parsed tree.
package links

import (
	"strconv"
	"strings"

	"github.com/jsonls/jsonls/internal/document"
	"github.com/jsonls/jsonls/internal/syntax"
	"github.com/jsonls/jsonls/protocol"
)

// DocumentLinks returns a link for every "$ref" value and every bare
// http(s):// URL found in a string value.
func DocumentLinks(snap document.Snapshot) []protocol.DocumentLink {
	var out []protocol.DocumentLink
	collect(snap, snap.Tree.Root(), &out)
	return out
}

func collect(snap document.Snapshot, n syntax.Node, links *[]protocol.DocumentLink) {
	if n.Kind() == syntax.KindString {
		raw, ok := syntax.StringContents(n, snap.Text)
		if !ok {
			return
		}
		r := snap.RangeOf(n.StartByte(), n.EndByte())
		if isRefValue(snap, n) {
			if target, ok := refTarget(snap.URI, raw); ok {
				*links = append(*links, protocol.DocumentLink{Range: r, Target: target})
			}
			return
		}
		if isBareURL(raw) {
			*links = append(*links, protocol.DocumentLink{Range: r, Target: raw})
		}
		return
	}

	for i := 0; i < n.NamedChildCount(); i++ {
		collect(snap, n.NamedChild(i), links)
	}
}

func isRefValue(snap document.Snapshot, value syntax.Node) bool {
	parent := value.Parent()
	if parent.Kind() != syntax.KindPair {
		return false
	}
	if parent.ChildByFieldName("value").StartByte() != value.StartByte() {
		return false
	}
	key := parent.ChildByFieldName("key")
	name, ok := syntax.StringContents(key, snap.Text)
	return ok && name == "$ref"
}

func refTarget(docURI protocol.DocumentURI, ref string) (string, bool) {
	if ref == "" {
		return "", false
	}
	if strings.HasPrefix(ref, "#") {
		return string(docURI) + ref, true
	}
	return ref, true
}

func isBareURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// FindDefinition resolves a $ref string under the cursor at offset to the
// range of the node its internal JSON Pointer designates. It reports false
// for any position not inside an internal (same-document, "#/..."-form)
// $ref value.
func FindDefinition(snap document.Snapshot, offset int) (protocol.Range, bool) {
	var strNode syntax.Node
	for _, n := range syntax.AncestorsAt(snap.Tree.Root(), offset) {
		if n.Kind() == syntax.KindString {
			strNode = n
			break
		}
	}
	if strNode.IsZero() || !isRefValue(snap, strNode) {
		return protocol.Range{}, false
	}

	raw, ok := syntax.StringContents(strNode, snap.Text)
	if !ok || !strings.HasPrefix(raw, "#") {
		return protocol.Range{}, false
	}

	target, ok := resolvePointer(snap, strings.TrimPrefix(raw, "#"))
	if !ok {
		return protocol.Range{}, false
	}
	return snap.RangeOf(target.StartByte(), target.EndByte()), true
}

// resolvePointer walks an RFC 6901 JSON Pointer directly over snap's parsed
// tree, without building an intermediate decoded value.
func resolvePointer(snap document.Snapshot, pointer string) (syntax.Node, bool) {
	cur := rootValue(snap.Tree.Root())
	if cur.IsZero() {
		return syntax.Node{}, false
	}
	if pointer == "" {
		return cur, true
	}

	for _, raw := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		seg := unescapeSegment(raw)
		switch cur.Kind() {
		case syntax.KindObject:
			next, ok := lookupProperty(snap, cur, seg)
			if !ok {
				return syntax.Node{}, false
			}
			cur = next
		case syntax.KindArray:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= cur.NamedChildCount() {
				return syntax.Node{}, false
			}
			cur = cur.NamedChild(idx)
		default:
			return syntax.Node{}, false
		}
	}
	return cur, true
}

func lookupProperty(snap document.Snapshot, obj syntax.Node, name string) (syntax.Node, bool) {
	for i := 0; i < obj.NamedChildCount(); i++ {
		pair := obj.NamedChild(i)
		if pair.Kind() != syntax.KindPair {
			continue
		}
		key := pair.ChildByFieldName("key")
		if n, ok := syntax.StringContents(key, snap.Text); ok && n == name {
			return pair.ChildByFieldName("value"), true
		}
	}
	return syntax.Node{}, false
}

func rootValue(root syntax.Node) syntax.Node {
	if root.NamedChildCount() == 0 {
		return syntax.Node{}
	}
	return root.NamedChild(0)
}

func unescapeSegment(s string) string {
	s = strings.ReplaceAll(s, "~1", "/")
	s = strings.ReplaceAll(s, "~0", "~")
	return s
}
