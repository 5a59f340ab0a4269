package syntax

import "strconv"

// DecodeValue walks n (expected to be a value node: object, array, string,
// number, true, false, or null) into a plain Go value using the same
// types encoding/json would produce for strict JSON: map[string]any,
// []any, string, float64, bool, nil. Comments and trailing commas are
// already gone by this point — sanitizeJSONC blanked them before the
// grammar ever ran, so there is no comment node to skip and no trailing
// comma to leave a gap. ok is false if n's subtree contains anything the
// grammar couldn't make sense of.
func DecodeValue(n Node, src []byte) (v any, ok bool) {
	switch n.Kind() {
	case KindObject:
		return decodeObject(n, src)
	case KindArray:
		return decodeArray(n, src)
	case KindString:
		return StringContents(n, src)
	case KindNumber:
		f, err := strconv.ParseFloat(string(n.Text(src)), 64)
		if err != nil {
			return nil, false
		}
		return f, true
	case KindTrue:
		return true, true
	case KindFalse:
		return false, true
	case KindNull:
		return nil, true
	default:
		return nil, false
	}
}

func decodeObject(obj Node, src []byte) (map[string]any, bool) {
	out := make(map[string]any, obj.NamedChildCount())
	for i := 0; i < obj.NamedChildCount(); i++ {
		pair := obj.NamedChild(i)
		if pair.Kind() != KindPair {
			continue
		}
		key := pair.ChildByFieldName("key")
		name, ok := StringContents(key, src)
		if !ok {
			return nil, false
		}
		value := pair.ChildByFieldName("value")
		if value.IsZero() {
			return nil, false
		}
		v, ok := DecodeValue(value, src)
		if !ok {
			return nil, false
		}
		out[name] = v
	}
	return out, true
}

func decodeArray(arr Node, src []byte) ([]any, bool) {
	out := make([]any, 0, arr.NamedChildCount())
	for i := 0; i < arr.NamedChildCount(); i++ {
		item := arr.NamedChild(i)
		v, ok := DecodeValue(item, src)
		if !ok {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}

// RootValue returns the document's top-level value node — the single named
// child of the document root — or the zero Node for an empty document.
// The server's validation, $schema lookup and pointer-to-range code start
// from it; formatting, symbols and links each keep an equivalent local
// helper of their own.
func RootValue(root Node) Node {
	if root.NamedChildCount() == 0 {
		return Node{}
	}
	return root.NamedChild(0)
}
