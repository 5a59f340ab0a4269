package protocol

// FoldingRangeParams parameters for textDocument/foldingRange request.
type FoldingRangeParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

// FoldingRangeKind the kind of a folding range.
type FoldingRangeKind string

const (
	FoldingRangeKindComment FoldingRangeKind = "comment"
	FoldingRangeKindRegion  FoldingRangeKind = "region"
)

// FoldingRange represents a folding range in a document.
type FoldingRange struct {
	StartLine      uint              `json:"startLine"`
	StartCharacter *uint             `json:"startCharacter,omitempty"`
	EndLine        uint              `json:"endLine"`
	EndCharacter   *uint             `json:"endCharacter,omitempty"`
	Kind           *FoldingRangeKind `json:"kind,omitempty"`
	CollapsedText  string            `json:"collapsedText,omitempty"`
}
