package protocol

// TextEdit a textual edit applicable to a text document.
type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// OptionalVersionedTextDocumentIdentifier identifies a document version that
// may be null, used by TextDocumentEdit so edits can target documents the
// server never received a version for.
type OptionalVersionedTextDocumentIdentifier struct {
	TextDocumentIdentifier
	Version *int `json:"version"`
}

// TextDocumentEdit describes textual changes on a single text document.
type TextDocumentEdit struct {
	TextDocument OptionalVersionedTextDocumentIdentifier `json:"textDocument"`
	Edits        []TextEdit                              `json:"edits"`
}

// WorkspaceEdit represents changes to many resources managed in the workspace.
type WorkspaceEdit struct {
	// Changes maps document URI to the list of edits to apply.
	Changes map[DocumentURI][]TextEdit `json:"changes,omitempty"`
	// DocumentChanges is the preferred, version-aware alternative to Changes.
	DocumentChanges []TextDocumentEdit `json:"documentChanges,omitempty"`
}
