package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jsonls/jsonls/internal/colors"
	"github.com/jsonls/jsonls/internal/completion"
	"github.com/jsonls/jsonls/internal/folding"
	"github.com/jsonls/jsonls/internal/formatting"
	"github.com/jsonls/jsonls/internal/hover"
	"github.com/jsonls/jsonls/internal/links"
	"github.com/jsonls/jsonls/internal/schema"
	"github.com/jsonls/jsonls/internal/schemastore"
	"github.com/jsonls/jsonls/internal/selection"
	"github.com/jsonls/jsonls/internal/sortdoc"
	"github.com/jsonls/jsonls/internal/symbols"
	"github.com/jsonls/jsonls/jsonrpc2"
	"github.com/jsonls/jsonls/protocol"
)

// schemaFor returns the schema associated with the document currently open
// at uri and a RefResolver that follows $ref relative to that schema's own
// URI, or (nil, nil) if no schema applies — every feature handler below
// treats a nil schema as "structural completion/hover only", never an error.
func (s *Server) schemaFor(ctx context.Context, uri protocol.DocumentURI) (*schema.Schema, schema.RefResolver) {
	snap, ok := s.docs.Snapshot(uri)
	if !ok {
		return nil, nil
	}
	schemaURI, ok := schemastore.AssociateDocument(string(uri), dollarSchemaOf(snap), s.cfg.Associations())
	if !ok {
		return nil, nil
	}
	root, err := s.resolver.Fetch(ctx, schemaURI)
	if err != nil {
		s.logger.Debug("no schema available", "uri", uri, "schemaURI", schemaURI, "err", err)
		return nil, nil
	}
	resolve := func(ref string) *schema.Schema {
		target, err := s.resolver.Resolve(schemaURI, ref)
		if err != nil {
			s.logger.Debug("could not resolve $ref", "ref", ref, "base", schemaURI, "err", err)
			return nil
		}
		return target
	}
	return root, resolve
}

// handleCompletion: func(ctx context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error)
func (s *Server) handleCompletion(ctx context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
	uri := params.TextDocument.URI
	snap, ok := s.docs.Snapshot(uri)
	if !ok {
		return &protocol.CompletionList{Items: []protocol.CompletionItem{}}, nil
	}
	offset := snap.Lines.PositionToOffset(int(params.Position.Line), int(params.Position.Character))
	root, resolve := s.schemaFor(ctx, uri)
	items := completion.Completions(snap, offset, root, resolve)
	return &protocol.CompletionList{Items: items}, nil
}

// handleHover: func(ctx context.Context, params *protocol.HoverParams) (*protocol.Hover, error)
func (s *Server) handleHover(ctx context.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	uri := params.TextDocument.URI
	snap, ok := s.docs.Snapshot(uri)
	if !ok {
		return nil, nil
	}
	offset := snap.Lines.PositionToOffset(int(params.Position.Line), int(params.Position.Character))
	root, resolve := s.schemaFor(ctx, uri)
	h, ok := hover.Hover(snap, offset, root, resolve)
	if !ok {
		return nil, nil
	}
	return &h, nil
}

// handleDocumentSymbol: func(ctx context.Context, params *protocol.DocumentSymbolParams) ([]protocol.DocumentSymbol, error)
func (s *Server) handleDocumentSymbol(ctx context.Context, params *protocol.DocumentSymbolParams) ([]protocol.DocumentSymbol, error) {
	snap, ok := s.docs.Snapshot(params.TextDocument.URI)
	if !ok {
		return []protocol.DocumentSymbol{}, nil
	}
	return symbols.DocumentSymbols(snap), nil
}

// handleDocumentColor: func(ctx context.Context, params *protocol.DocumentColorParams) ([]protocol.ColorInformation, error)
func (s *Server) handleDocumentColor(ctx context.Context, params *protocol.DocumentColorParams) ([]protocol.ColorInformation, error) {
	snap, ok := s.docs.Snapshot(params.TextDocument.URI)
	if !ok {
		return []protocol.ColorInformation{}, nil
	}
	return colors.DocumentColors(snap), nil
}

// handleColorPresentation: func(ctx context.Context, params *protocol.ColorPresentationParams) ([]protocol.ColorPresentation, error)
func (s *Server) handleColorPresentation(ctx context.Context, params *protocol.ColorPresentationParams) ([]protocol.ColorPresentation, error) {
	return colors.ColorPresentations(params.Color), nil
}

// handleFormatting: func(ctx context.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error)
func (s *Server) handleFormatting(ctx context.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	snap, ok := s.docs.Snapshot(params.TextDocument.URI)
	if !ok {
		return []protocol.TextEdit{}, nil
	}
	return formatting.FormatDocument(snap, params.Options), nil
}

// handleRangeFormatting: func(ctx context.Context, params *protocol.DocumentRangeFormattingParams) ([]protocol.TextEdit, error)
func (s *Server) handleRangeFormatting(ctx context.Context, params *protocol.DocumentRangeFormattingParams) ([]protocol.TextEdit, error) {
	snap, ok := s.docs.Snapshot(params.TextDocument.URI)
	if !ok {
		return []protocol.TextEdit{}, nil
	}
	return formatting.FormatRange(snap, params.Range, params.Options), nil
}

// handleDocumentLink: func(ctx context.Context, params *protocol.DocumentLinkParams) ([]protocol.DocumentLink, error)
func (s *Server) handleDocumentLink(ctx context.Context, params *protocol.DocumentLinkParams) ([]protocol.DocumentLink, error) {
	snap, ok := s.docs.Snapshot(params.TextDocument.URI)
	if !ok {
		return []protocol.DocumentLink{}, nil
	}
	return links.DocumentLinks(snap), nil
}

// handleDefinition: func(ctx context.Context, params *protocol.DefinitionParams) (*protocol.Location, error)
func (s *Server) handleDefinition(ctx context.Context, params *protocol.DefinitionParams) (*protocol.Location, error) {
	uri := params.TextDocument.URI
	snap, ok := s.docs.Snapshot(uri)
	if !ok {
		return nil, nil
	}
	offset := snap.Lines.PositionToOffset(int(params.Position.Line), int(params.Position.Character))
	r, ok := links.FindDefinition(snap, offset)
	if !ok {
		return nil, nil
	}
	return &protocol.Location{URI: uri, Range: r}, nil
}

// handleFoldingRange: func(ctx context.Context, params *protocol.FoldingRangeParams) ([]protocol.FoldingRange, error)
func (s *Server) handleFoldingRange(ctx context.Context, params *protocol.FoldingRangeParams) ([]protocol.FoldingRange, error) {
	snap, ok := s.docs.Snapshot(params.TextDocument.URI)
	if !ok {
		return []protocol.FoldingRange{}, nil
	}
	return folding.FoldingRanges(snap), nil
}

// handleSelectionRange: func(ctx context.Context, params *protocol.SelectionRangeParams) ([]protocol.SelectionRange, error)
func (s *Server) handleSelectionRange(ctx context.Context, params *protocol.SelectionRangeParams) ([]protocol.SelectionRange, error) {
	snap, ok := s.docs.Snapshot(params.TextDocument.URI)
	if !ok {
		return []protocol.SelectionRange{}, nil
	}
	return selection.SelectionRanges(snap, params.Positions), nil
}

// handleExecuteCommand: func(ctx context.Context, params *protocol.ExecuteCommandParams) (*protocol.WorkspaceEdit, error)
// Only "json.sort" is registered: it returns a WorkspaceEdit replacing the
// named document with its keys sorted recursively (array order untouched).
func (s *Server) handleExecuteCommand(ctx context.Context, params *protocol.ExecuteCommandParams) (*protocol.WorkspaceEdit, error) {
	if params.Command != "json.sort" {
		return nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, fmt.Sprintf("unknown command: %s", params.Command))
	}
	if len(params.Arguments) == 0 {
		return nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, "json.sort requires a document URI argument")
	}

	var uri protocol.DocumentURI
	if err := json.Unmarshal(params.Arguments[0], &uri); err != nil {
		return nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, fmt.Sprintf("invalid json.sort argument: %v", err))
	}

	snap, ok := s.docs.Snapshot(uri)
	if !ok {
		return nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, fmt.Sprintf("document not open: %s", uri))
	}

	edits := sortdoc.SortDocument(snap)
	return &protocol.WorkspaceEdit{
		Changes: map[protocol.DocumentURI][]protocol.TextEdit{uri: edits},
	}, nil
}
