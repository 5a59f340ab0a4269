package protocol

import "encoding/json"

// FormattingOptions value-object describing what options formatting should use.
type FormattingOptions struct {
	TabSize      uint            `json:"tabSize"`
	InsertSpaces bool            `json:"insertSpaces"`
	Extra        json.RawMessage `json:"-"`
}

// DocumentFormattingParams parameters for textDocument/formatting request.
type DocumentFormattingParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Options      FormattingOptions      `json:"options"`
}

// DocumentRangeFormattingParams parameters for textDocument/rangeFormatting request.
type DocumentRangeFormattingParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Range        Range                  `json:"range"`
	Options      FormattingOptions      `json:"options"`
}

// DidChangeConfigurationParams parameters for workspace/didChangeConfiguration.
type DidChangeConfigurationParams struct {
	Settings json.RawMessage `json:"settings"`
}
