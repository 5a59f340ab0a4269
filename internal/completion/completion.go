// Package completion produces schema-driven suggestions for property names,
// values, enum members, and schema-declared snippets at a cursor position.
package completion

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/jsonls/jsonls/internal/document"
	"github.com/jsonls/jsonls/internal/schema"
	"github.com/jsonls/jsonls/internal/syntax"
	"github.com/jsonls/jsonls/protocol"
)

// Completions produces completion items at offset, guided by root (which
// may be nil if the document has no associated schema). resolve follows
// $ref encountered while walking the schema and may be nil if the caller
// has no way to fetch other schema documents.
func Completions(snap document.Snapshot, offset int, root *schema.Schema, resolve schema.RefResolver) []protocol.CompletionItem {
	var items []protocol.CompletionItem

	switch ctx := determineContext(snap, offset); c := ctx.(type) {
	case propertyNameContext:
		if root != nil {
			sub := resolveSchemaForNode(snap, c.object, root, resolve)
			completePropertyNames(snap, c.object, sub, resolve, &items)
		}
	case propertyValueContext:
		if root != nil {
			sub := resolveSchemaForNode(snap, c.object, root, resolve)
			if prop, ok := sub.Properties[c.key]; ok {
				completeValue(prop.Resolved(resolve), &items)
			}
		}
		items = append(items,
			snippetItem("{ }", "Empty object", "{$1}"),
			snippetItem("[ ]", "Empty array", "[$1]"),
		)
	case arrayItemContext:
		if root != nil {
			sub := resolveSchemaForNode(snap, c.array, root, resolve)
			if item := arrayItemSchema(sub, c.index); item != nil {
				completeValue(item.Resolved(resolve), &items)
			}
		}
	}

	return items
}

// -- context --

type propertyNameContext struct{ object syntax.Node }
type propertyValueContext struct {
	object syntax.Node
	key    string
}
type arrayItemContext struct {
	array syntax.Node
	index int
}
type noContext struct{}

func determineContext(snap document.Snapshot, offset int) any {
	node := syntax.NodeAt(snap.Tree.Root(), offset)
	if node.IsZero() {
		return noContext{}
	}

	switch node.Kind() {
	case syntax.KindObject:
		textBefore := snap.Text[:offset]
		if colon := lastIndexByte(textBefore, ':'); colon >= 0 {
			lastSep := maxInt(lastIndexByte(textBefore, ','), lastIndexByte(textBefore, '{'))
			if colon > lastSep {
				if key, ok := findKeyAtColon(snap, node, colon); ok {
					return propertyValueContext{object: node, key: key}
				}
			}
		}
		return propertyNameContext{object: node}

	case syntax.KindArray:
		return arrayItemContext{array: node, index: arrayItems(node).len()}

	case syntax.KindString:
		parent := node.Parent()
		if parent.Kind() != syntax.KindPair {
			return noContext{}
		}
		grandparent := parent.Parent()
		if grandparent.Kind() != syntax.KindObject {
			return noContext{}
		}
		if parent.ChildByFieldName("key").StartByte() == node.StartByte() {
			return propertyNameContext{object: grandparent}
		}
		key, _ := pairKey(snap, parent)
		return propertyValueContext{object: grandparent, key: key}

	case syntax.KindPair:
		if object := node.Parent(); object.Kind() == syntax.KindObject {
			key, _ := pairKey(snap, node)
			return propertyValueContext{object: object, key: key}
		}
		return noContext{}

	default:
		if pair := node.Parent(); pair.Kind() == syntax.KindPair {
			if object := pair.Parent(); object.Kind() == syntax.KindObject {
				key, _ := pairKey(snap, pair)
				return propertyValueContext{object: object, key: key}
			}
		}
		if array := node.Parent(); array.Kind() == syntax.KindArray {
			items := arrayItems(array)
			return arrayItemContext{array: array, index: items.indexOf(node)}
		}
		return noContext{}
	}
}

// findKeyAtColon scans object's pairs for the colon node closest to (at or
// before) colonByte, returning the key belonging to that pair.
func findKeyAtColon(snap document.Snapshot, object syntax.Node, colonByte int) (string, bool) {
	bestDist := -1
	bestKey := ""
	found := false

	for _, pair := range objectPairs(object) {
		for i := 0; i < pair.ChildCount(); i++ {
			child := pair.Child(i)
			if child.Kind() != ":" || child.StartByte() > colonByte {
				continue
			}
			dist := colonByte - child.StartByte()
			if !found || dist < bestDist {
				if key, ok := pairKey(snap, pair); ok {
					bestDist = dist
					bestKey = key
					found = true
				}
			}
		}
	}
	return bestKey, found
}

func objectPairs(object syntax.Node) []syntax.Node {
	var pairs []syntax.Node
	for i := 0; i < object.NamedChildCount(); i++ {
		if c := object.NamedChild(i); c.Kind() == syntax.KindPair {
			pairs = append(pairs, c)
		}
	}
	return pairs
}

type nodeList []syntax.Node

func (l nodeList) len() int { return len(l) }
func (l nodeList) indexOf(n syntax.Node) int {
	for i, c := range l {
		if c.StartByte() == n.StartByte() {
			return i
		}
	}
	return 0
}

func arrayItems(array syntax.Node) nodeList {
	var items nodeList
	for i := 0; i < array.NamedChildCount(); i++ {
		if c := array.NamedChild(i); isValueKind(c.Kind()) {
			items = append(items, c)
		}
	}
	return items
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

func pairKey(snap document.Snapshot, pair syntax.Node) (string, bool) {
	key := pair.ChildByFieldName("key")
	if key.IsZero() {
		return "", false
	}
	return syntax.StringContents(key, snap.Text)
}

func lastIndexByte(b []byte, c byte) int {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] == c {
			return i
		}
	}
	return -1
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// -- schema resolution --

func resolveSchemaForNode(snap document.Snapshot, node syntax.Node, root *schema.Schema, resolve schema.RefResolver) *schema.Schema {
	path := syntax.JSONPath(node, snap.Text)
	cur := root
	for _, seg := range path {
		next := cur.ResolvePathSegment(seg, resolve)
		if next == nil {
			next = &schema.Schema{}
		}
		cur = next
	}
	return cur.Resolved(resolve)
}

func arrayItemSchema(s *schema.Schema, index int) *schema.Schema {
	if index < len(s.PrefixItems) {
		return s.PrefixItems[index]
	}
	return s.Items.AsSchema()
}

// -- item generation --

func completePropertyNames(snap document.Snapshot, object syntax.Node, s *schema.Schema, resolve schema.RefResolver, items *[]protocol.CompletionItem) {
	existing := make(map[string]bool)
	for _, pair := range objectPairs(object) {
		if key, ok := pairKey(snap, pair); ok {
			existing[key] = true
		}
	}

	keys := make([]string, 0, len(s.Properties))
	for k := range s.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		propSchema := s.Properties[key].Resolved(resolve)
		if existing[key] || propSchema.DoNotSuggest {
			continue
		}

		var detail string
		if len(propSchema.Types) > 0 {
			detail = string(propSchema.Types[0])
		}

		isRequired := contains(s.Required, key)
		sortPrefix := "1_"
		if isRequired {
			sortPrefix = "0_"
		}

		item := protocol.CompletionItem{
			Label:            key,
			Kind:             kindPtr(protocol.Property),
			Detail:           detail,
			Documentation:    documentationOf(propSchema),
			InsertText:       fmt.Sprintf("%q: %s", key, defaultValueSnippet(propSchema)),
			InsertTextFormat: formatPtr(protocol.SnippetFormat),
			SortText:         sortPrefix + key,
		}
		if propSchema.Deprecated {
			item.Deprecated = true
			item.Tags = []protocol.CompletionItemTag{protocol.CompletionItemTagDeprecated}
		}
		*items = append(*items, item)
	}

	for _, sub := range s.AllOf {
		completePropertyNames(snap, object, sub.Resolved(resolve), resolve, items)
	}
	for _, sub := range s.AnyOf {
		completePropertyNames(snap, object, sub.Resolved(resolve), resolve, items)
	}
	for _, sub := range s.OneOf {
		completePropertyNames(snap, object, sub.Resolved(resolve), resolve, items)
	}
	if s.Then != nil {
		completePropertyNames(snap, object, s.Then.Resolved(resolve), resolve, items)
	}
	if s.Else != nil {
		completePropertyNames(snap, object, s.Else.Resolved(resolve), resolve, items)
	}

	appendSnippetItems(s, items)
}

func completeValue(s *schema.Schema, items *[]protocol.CompletionItem) {
	for i, val := range s.EnumValues {
		label := formatJSONValue(val)
		item := protocol.CompletionItem{
			Label:      label,
			Kind:       kindPtr(protocol.EnumMember),
			InsertText: label,
		}
		if i < len(s.MarkdownEnumDescriptions) {
			item.Documentation = markupDoc(s.MarkdownEnumDescriptions[i])
		} else if i < len(s.EnumDescriptions) {
			item.Documentation = markupDoc(s.EnumDescriptions[i])
		}
		*items = append(*items, item)
	}

	if s.HasConst {
		*items = append(*items, valueItem(formatJSONValue(s.ConstValue)))
	}

	if containsType(s.Types, schema.TypeBoolean) && len(s.EnumValues) == 0 {
		*items = append(*items, valueItem("true"), valueItem("false"))
	}
	if containsType(s.Types, schema.TypeNull) && len(s.EnumValues) == 0 {
		*items = append(*items, valueItem("null"))
	}

	if s.HasDefault {
		label := formatJSONValue(s.Default)
		*items = append(*items, protocol.CompletionItem{
			Label:      label + " (default)",
			Kind:       kindPtr(protocol.Value),
			InsertText: label,
			Preselect:  true,
		})
	}

	appendSnippetItems(s, items)
}

func appendSnippetItems(s *schema.Schema, items *[]protocol.CompletionItem) {
	for _, snip := range s.DefaultSnippets {
		if snip.Body == nil {
			continue
		}
		label := snip.Label
		if label == "" {
			label = "snippet"
		}
		insert, err := json.MarshalIndent(snip.Body, "", "  ")
		if err != nil {
			continue
		}
		*items = append(*items, protocol.CompletionItem{
			Label:            label,
			Kind:             kindPtr(protocol.Snippet),
			Detail:           snip.Description,
			InsertText:       string(insert),
			InsertTextFormat: formatPtr(protocol.SnippetFormat),
		})
	}
}

func defaultValueSnippet(s *schema.Schema) string {
	if s.HasConst {
		return formatJSONValue(s.ConstValue)
	}
	if len(s.EnumValues) == 1 {
		return formatJSONValue(s.EnumValues[0])
	}
	if s.HasDefault {
		return formatJSONValue(s.Default)
	}
	if len(s.Types) == 0 {
		return "$1"
	}
	switch s.Types[0] {
	case schema.TypeString:
		return `"$1"`
	case schema.TypeNumber, schema.TypeInteger:
		return "${1:0}"
	case schema.TypeBoolean:
		return "${1:false}"
	case schema.TypeNull:
		return "null"
	case schema.TypeArray:
		return "[$1]"
	case schema.TypeObject:
		return "{$1}"
	default:
		return "$1"
	}
}

func formatJSONValue(v any) string {
	if s, ok := v.(string); ok {
		return strconv.Quote(s)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func valueItem(label string) protocol.CompletionItem {
	return protocol.CompletionItem{
		Label:      label,
		Kind:       kindPtr(protocol.Value),
		InsertText: label,
	}
}

func snippetItem(label, detail, insert string) protocol.CompletionItem {
	return protocol.CompletionItem{
		Label:            label,
		Kind:             kindPtr(protocol.Struct),
		Detail:           detail,
		InsertText:       insert,
		InsertTextFormat: formatPtr(protocol.SnippetFormat),
	}
}

func documentationOf(s *schema.Schema) json.RawMessage {
	desc := s.MarkdownDescription
	if desc == "" {
		desc = s.Description
	}
	if desc == "" {
		return nil
	}
	return markupDoc(desc)
}

func markupDoc(value string) json.RawMessage {
	b, err := json.Marshal(protocol.MarkupContent{Kind: protocol.Markdown, Value: value})
	if err != nil {
		return nil
	}
	return b
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsType(types []schema.Type, t schema.Type) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}

func kindPtr(k protocol.CompletionItemKind) *protocol.CompletionItemKind { return &k }
func formatPtr(f protocol.InsertTextFormat) *protocol.InsertTextFormat   { return &f }
