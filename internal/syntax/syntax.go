// Package syntax wraps tree-sitter's incremental JSON parser behind the
// narrow tree contract the rest of the core depends on: node kind, byte
// range, ordered/field-named children, and error predicates.
package syntax

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	sitter "github.com/smacker/go-tree-sitter"
	tsjson "github.com/smacker/go-tree-sitter/json"
)

// Node kinds produced by tree-sitter-json that the core inspects by name.
// KindComment never appears in a parsed tree — sanitizeJSONC blanks
// comments to whitespace before the grammar runs, so Tree.Comments is the
// only way to find one — but the name is kept as the label spec.md expects
// consumers of the node-kind vocabulary to recognize.
const (
	KindDocument = "document"
	KindObject   = "object"
	KindArray    = "array"
	KindPair     = "pair"
	KindString   = "string"
	KindNumber   = "number"
	KindTrue     = "true"
	KindFalse    = "false"
	KindNull     = "null"
	KindComment  = "comment"
	KindError    = "ERROR"
	KindMissing  = "MISSING"
)

// Point is a (row, column) position tree-sitter reports alongside byte
// offsets; column counts UTF-8 bytes on the row, not UTF-16 units.
type Point struct {
	Row    uint32
	Column uint32
}

// Edit describes a single text mutation for incremental re-parsing.
type Edit struct {
	StartByte   uint32
	OldEndByte  uint32
	NewEndByte  uint32
	StartPoint  Point
	OldEndPoint Point
	NewEndPoint Point
}

// Tree is a parsed concrete syntax tree over some document text.
type Tree struct {
	inner    *sitter.Tree
	comments []CommentSpan
}

// Node is a handle into a Tree.
type Node struct {
	inner *sitter.Node
}

func language() *sitter.Language {
	return tsjson.GetLanguage()
}

// Parse performs a full parse of text. Comments and a trailing comma before
// a closing brace/bracket are sanitized out before the grammar sees them
// (see sanitizeJSONC); Tree.Comments recovers the comment spans the grammar
// never gets to parse as nodes.
func Parse(ctx context.Context, text []byte) (*Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(language())

	sanitized, comments := sanitizeJSONC(text)
	tree, err := parser.ParseCtx(ctx, nil, sanitized)
	if err != nil {
		return nil, fmt.Errorf("syntax: parse: %w", err)
	}
	return &Tree{inner: tree, comments: comments}, nil
}

// Reparse applies edit to old's underlying tree and performs an incremental
// re-parse against the new full text, reusing unchanged subtrees. edit's
// byte offsets are computed against the unsanitized text, but sanitizing
// only ever masks bytes in place (same length, same positions), so they
// apply unchanged to the sanitized copy tree-sitter actually holds.
func Reparse(ctx context.Context, old *Tree, newText []byte, edit Edit) (*Tree, error) {
	old.inner.Edit(sitter.EditInput{
		StartIndex:  edit.StartByte,
		OldEndIndex: edit.OldEndByte,
		NewEndIndex: edit.NewEndByte,
		StartPoint:  sitter.Point{Row: edit.StartPoint.Row, Column: edit.StartPoint.Column},
		OldEndPoint: sitter.Point{Row: edit.OldEndPoint.Row, Column: edit.OldEndPoint.Column},
		NewEndPoint: sitter.Point{Row: edit.NewEndPoint.Row, Column: edit.NewEndPoint.Column},
	})

	parser := sitter.NewParser()
	parser.SetLanguage(language())

	sanitized, comments := sanitizeJSONC(newText)
	tree, err := parser.ParseCtx(ctx, old.inner, sanitized)
	if err != nil {
		return nil, fmt.Errorf("syntax: reparse: %w", err)
	}
	return &Tree{inner: tree, comments: comments}, nil
}

// Comments returns the byte spans of every // and /* */ comment found
// while parsing, outermost document order.
func (t *Tree) Comments() []CommentSpan {
	return t.comments
}

// Close releases the tree's underlying tree-sitter resources.
func (t *Tree) Close() {
	if t.inner != nil {
		t.inner.Close()
	}
}

// Root returns the tree's root node.
func (t *Tree) Root() Node {
	return Node{inner: t.inner.RootNode()}
}

// HasError reports whether the tree contains any ERROR or MISSING node.
func (t *Tree) HasError() bool {
	return t.Root().hasErrorRec()
}

func (n Node) hasErrorRec() bool {
	if n.IsError() || n.IsMissing() {
		return true
	}
	for i := 0; i < n.ChildCount(); i++ {
		if n.Child(i).hasErrorRec() {
			return true
		}
	}
	return false
}

// IsZero reports whether n is the zero Node (no underlying tree-sitter node).
func (n Node) IsZero() bool { return n.inner == nil }

// Kind returns the node's grammar kind, one of the Kind* constants for
// well-formed input, or a grammar-specific literal such as "," or ":" for
// punctuation nodes.
func (n Node) Kind() string {
	if n.inner == nil {
		return ""
	}
	return n.inner.Type()
}

// StartByte returns the byte offset where n begins.
func (n Node) StartByte() int {
	if n.inner == nil {
		return 0
	}
	return int(n.inner.StartByte())
}

// EndByte returns the byte offset one past where n ends.
func (n Node) EndByte() int {
	if n.inner == nil {
		return 0
	}
	return int(n.inner.EndByte())
}

// StartPoint returns n's starting row/column.
func (n Node) StartPoint() Point {
	if n.inner == nil {
		return Point{}
	}
	p := n.inner.StartPoint()
	return Point{Row: p.Row, Column: p.Column}
}

// EndPoint returns n's ending row/column.
func (n Node) EndPoint() Point {
	if n.inner == nil {
		return Point{}
	}
	p := n.inner.EndPoint()
	return Point{Row: p.Row, Column: p.Column}
}

// Text returns the slice of src spanned by n.
func (n Node) Text(src []byte) []byte {
	if n.inner == nil {
		return nil
	}
	return src[n.StartByte():n.EndByte()]
}

// ChildCount returns the number of children, named and anonymous.
func (n Node) ChildCount() int {
	if n.inner == nil {
		return 0
	}
	return int(n.inner.ChildCount())
}

// Child returns the i'th child, or the zero Node if out of range.
func (n Node) Child(i int) Node {
	if n.inner == nil || i < 0 || i >= n.ChildCount() {
		return Node{}
	}
	return Node{inner: n.inner.Child(i)}
}

// NamedChildCount returns the number of named (non-punctuation) children.
func (n Node) NamedChildCount() int {
	if n.inner == nil {
		return 0
	}
	return int(n.inner.NamedChildCount())
}

// NamedChild returns the i'th named child.
func (n Node) NamedChild(i int) Node {
	if n.inner == nil || i < 0 || i >= n.NamedChildCount() {
		return Node{}
	}
	return Node{inner: n.inner.NamedChild(i)}
}

// ChildByFieldName returns the child bound to the given grammar field, such
// as "key" or "value" on a pair node, or the zero Node if unset.
func (n Node) ChildByFieldName(name string) Node {
	if n.inner == nil {
		return Node{}
	}
	c := n.inner.ChildByFieldName(name)
	if c == nil {
		return Node{}
	}
	return Node{inner: c}
}

// Parent returns n's parent, or the zero Node at the root.
func (n Node) Parent() Node {
	if n.inner == nil {
		return Node{}
	}
	p := n.inner.Parent()
	if p == nil {
		return Node{}
	}
	return Node{inner: p}
}

// IsNamed reports whether n is a named node (as opposed to punctuation like
// "," or ":").
func (n Node) IsNamed() bool {
	return n.inner != nil && n.inner.IsNamed()
}

// IsError reports whether n is an ERROR node produced by error recovery.
func (n Node) IsError() bool {
	return n.inner != nil && n.inner.HasError() && n.inner.Type() == KindError
}

// IsMissing reports whether n is a MISSING node synthesized by error
// recovery to stand in for a token the grammar expected but did not find.
func (n Node) IsMissing() bool {
	return n.inner != nil && n.inner.IsMissing()
}

// NodeAt returns the smallest named node whose byte range contains offset,
// walking down from root.
func NodeAt(root Node, offset int) Node {
	best := root
	cur := root
	for {
		found := Node{}
		for i := 0; i < cur.ChildCount(); i++ {
			c := cur.Child(i)
			if offset >= c.StartByte() && offset < c.EndByte() {
				found = c
				break
			}
			// Zero-width cursor position at end of a node's span still
			// counts as inside it, so trailing offsets resolve sensibly.
			if offset == c.EndByte() && c.EndByte() == c.StartByte() {
				found = c
				break
			}
		}
		if found.IsZero() {
			break
		}
		if found.IsNamed() {
			best = found
		}
		cur = found
	}
	return best
}

// AncestorsAt returns the chain of named nodes containing offset, ordered
// from the innermost node outward to root (inclusive of root).
func AncestorsAt(root Node, offset int) []Node {
	var chain []Node
	n := NodeAt(root, offset)
	for !n.IsZero() {
		chain = append(chain, n)
		n = n.Parent()
	}
	return chain
}

// StringContents returns the decoded value of a string node — quotes
// stripped, JSON escapes resolved — or ok=false if n is not a well-formed
// string node (including a string still under error recovery, since
// json.Unmarshal on its raw source text will fail the same way).
func StringContents(n Node, src []byte) (string, bool) {
	if n.Kind() != KindString {
		return "", false
	}
	var v string
	if err := json.Unmarshal(n.Text(src), &v); err != nil {
		return "", false
	}
	return v, true
}

// JSONPath returns the JSON Pointer-style path from the document root down
// to n: a property name for each enclosing pair, an array index for each
// enclosing array item, ordered outermost first.
func JSONPath(n Node, src []byte) []string {
	var segments []string
	cur := n
	for {
		parent := cur.Parent()
		if parent.IsZero() {
			break
		}
		switch parent.Kind() {
		case KindPair:
			if parent.ChildByFieldName("value").StartByte() == cur.StartByte() {
				if key := parent.ChildByFieldName("key"); !key.IsZero() {
					if name, ok := StringContents(key, src); ok {
						segments = append([]string{name}, segments...)
					}
				}
			}
		case KindArray:
			segments = append([]string{strconv.Itoa(indexAmongNamedChildren(parent, cur))}, segments...)
		}
		cur = parent
	}
	return segments
}

func indexAmongNamedChildren(parent, item Node) int {
	for i := 0; i < parent.NamedChildCount(); i++ {
		if parent.NamedChild(i).StartByte() == item.StartByte() {
			return i
		}
	}
	return 0
}
