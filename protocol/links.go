package protocol

import "encoding/json"

// DocumentLinkParams parameters for textDocument/documentLink request.
type DocumentLinkParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

// DocumentLink a range in a text document that links to an internal or
// external resource.
type DocumentLink struct {
	Range   Range           `json:"range"`
	Target  string          `json:"target,omitempty"`
	Tooltip string          `json:"tooltip,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// DefinitionParams parameters for textDocument/definition request.
type DefinitionParams struct {
	TextDocumentPositionParams
}
