package server

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/jsonls/jsonls/internal/document"
	"github.com/jsonls/jsonls/internal/schemastore"
	"github.com/jsonls/jsonls/internal/syntax"
	"github.com/jsonls/jsonls/internal/validate"
	"github.com/jsonls/jsonls/protocol"
)

// handleDidOpen: func(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error
func (s *Server) handleDidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	if _, err := s.docs.Open(ctx, uri, params.TextDocument.Version, []byte(params.TextDocument.Text)); err != nil {
		s.logger.Error("failed to open document", "uri", uri, "err", err)
		return nil
	}
	s.cancelDebounce(uri)
	s.validateAndPublish(ctx, uri, params.TextDocument.Version)
	return nil
}

// handleDidChange: func(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error
func (s *Server) handleDidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI
	version := params.TextDocument.Version
	if err := s.docs.Change(ctx, uri, version, params.ContentChanges); err != nil {
		s.logger.Error("failed to apply change", "uri", uri, "err", err)
		return nil
	}
	s.scheduleValidate(uri, version)
	return nil
}

// handleDidSave: func(ctx context.Context, params *protocol.DidSaveTextDocumentParams) error
func (s *Server) handleDidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.cancelDebounce(uri)
	snap, ok := s.docs.Snapshot(uri)
	if !ok {
		return nil
	}
	s.validateAndPublish(ctx, uri, snap.Version)
	return nil
}

// handleDidClose: func(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error
func (s *Server) handleDidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.cancelDebounce(uri)
	s.docs.Close(uri)
	s.Notify(ctx, protocol.MethodTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// handleDidChangeConfiguration: func(ctx context.Context, params *protocol.DidChangeConfigurationParams) error
func (s *Server) handleDidChangeConfiguration(ctx context.Context, params *protocol.DidChangeConfigurationParams) error {
	if err := s.cfg.SetFromSettings(params.Settings); err != nil {
		s.logger.Warn("failed to parse configuration", "err", err)
		return nil
	}
	s.seedInlineSchemas(params.Settings)

	for _, uri := range s.docs.URIs() {
		snap, ok := s.docs.Snapshot(uri)
		if !ok {
			continue
		}
		s.validateAndPublish(ctx, uri, snap.Version)
	}
	return nil
}

// scheduleValidate replaces any pending debounce timer for uri with a fresh
// one, per spec.md §9's "per-URI latest-writer-wins token with a timer"
// note: a burst of didChange notifications collapses to one validation pass
// after the editor goes quiet for s.debounce.
func (s *Server) scheduleValidate(uri protocol.DocumentURI, version int) {
	token := uuid.New()
	entry := &debounceEntry{token: token}

	s.debounceMu.Lock()
	if old, ok := s.debounceTimers[uri]; ok {
		old.timer.Stop()
	}
	s.debounceTimers[uri] = entry
	s.debounceMu.Unlock()

	entry.timer = time.AfterFunc(s.debounce, func() {
		s.debounceMu.Lock()
		current, ok := s.debounceTimers[uri]
		s.debounceMu.Unlock()
		if !ok || current.token != token {
			return
		}
		s.validateAndPublish(context.Background(), uri, version)
	})
}

// cancelDebounce stops and discards any pending debounce timer for uri, for
// the didOpen/didSave/didClose events that want validation to run (or
// diagnostics to clear) right away instead of after a delay.
func (s *Server) cancelDebounce(uri protocol.DocumentURI) {
	s.debounceMu.Lock()
	if e, ok := s.debounceTimers[uri]; ok {
		e.timer.Stop()
		delete(s.debounceTimers, uri)
	}
	s.debounceMu.Unlock()
}

// validateAndPublish runs the schema validation pipeline against uri's
// current snapshot and publishes the resulting diagnostics. A syntax error
// in the document itself short-circuits schema validation: there is no
// well-formed value to check keywords against.
func (s *Server) validateAndPublish(ctx context.Context, uri protocol.DocumentURI, version int) {
	snap, ok := s.docs.Snapshot(uri)
	if !ok {
		return
	}

	if snap.Tree.HasError() {
		s.publishDiagnostics(ctx, uri, version, []protocol.Diagnostic{{
			Range:    snap.RangeOf(0, len(snap.Text)),
			Severity: protocol.SeverityError,
			Source:   "jsonls",
			Message:  "document is not well-formed JSON",
		}})
		return
	}

	value, ok := syntax.DecodeValue(syntax.RootValue(snap.Tree.Root()), snap.Text)
	if !ok {
		return
	}

	schemaURI, ok := schemastore.AssociateDocument(string(uri), dollarSchemaOf(snap), s.cfg.Associations())
	if !ok {
		s.publishDiagnostics(ctx, uri, version, []protocol.Diagnostic{})
		return
	}

	root, err := s.resolver.Fetch(ctx, schemaURI)
	if err != nil {
		s.logger.Warn("failed to fetch schema", "uri", schemaURI, "err", err)
		if s.currentState() == stateRunning {
			msg := fmt.Sprintf("could not load schema %s for %s: %v", schemaURI, uri, err)
			if notifyErr := protocol.ShowNotification(ctx, s.conn, protocol.Warning, msg); notifyErr != nil {
				s.logger.Debug("failed to show schema-fetch warning", "err", notifyErr)
			}
		}
		return
	}

	diags := validate.Validate(value, root, validate.NewContext(schemaURI, s.regexes, s.resolver).WithCtx(ctx))

	protoDiags := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		protoDiags = append(protoDiags, toProtocolDiagnostic(snap, d))
	}
	s.publishDiagnostics(ctx, uri, version, protoDiags)
}

// publishDiagnostics sends diags for version, unless a newer version of uri
// is already current: a schema fetch or validation pass that started for an
// older version but finished late must never overwrite diagnostics already
// published for a version the client has moved past.
func (s *Server) publishDiagnostics(ctx context.Context, uri protocol.DocumentURI, version int, diags []protocol.Diagnostic) {
	if snap, ok := s.docs.Snapshot(uri); ok && snap.Version > version {
		return
	}

	v := version
	if err := s.Notify(ctx, protocol.MethodTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Version:     &v,
		Diagnostics: diags,
	}); err != nil {
		s.logger.Warn("failed to publish diagnostics", "uri", uri, "err", err)
	}
}

func toProtocolDiagnostic(snap document.Snapshot, d validate.Diagnostic) protocol.Diagnostic {
	severity := protocol.SeverityError
	if d.Severity == validate.SeverityWarning {
		severity = protocol.SeverityWarning
	}
	return protocol.Diagnostic{
		Range:    pointerToRange(snap, d.Pointer),
		Severity: severity,
		Source:   "jsonls",
		Message:  d.Message,
	}
}

// dollarSchemaOf returns the document's top-level "$schema" property value,
// or "" if absent or the document's root isn't an object.
func dollarSchemaOf(snap document.Snapshot) string {
	root := syntax.RootValue(snap.Tree.Root())
	if root.Kind() != syntax.KindObject {
		return ""
	}
	for i := 0; i < root.NamedChildCount(); i++ {
		pair := root.NamedChild(i)
		if pair.Kind() != syntax.KindPair {
			continue
		}
		key := pair.ChildByFieldName("key")
		name, ok := syntax.StringContents(key, snap.Text)
		if !ok || name != "$schema" {
			continue
		}
		if v, ok := syntax.StringContents(pair.ChildByFieldName("value"), snap.Text); ok {
			return v
		}
	}
	return ""
}

// pointerToRange walks pointer's segments directly over snap's parsed tree
// to find the source range a validation Diagnostic refers to, the same
// tree-walking shape internal/links.resolvePointer uses to jump to a $ref
// target — except pointer here is already split into literal property
// names (validate.Diagnostic.Pointer), not escaped "/"-joined text. If the
// walk runs out of matching structure partway through, the range of the
// last node reached is returned rather than failing outright, so a
// diagnostic about a missing required property still points at something
// useful: the object that should have contained it.
func pointerToRange(snap document.Snapshot, pointer []string) protocol.Range {
	cur := syntax.RootValue(snap.Tree.Root())
	if cur.IsZero() {
		return protocol.Range{}
	}

	for _, seg := range pointer {
		switch cur.Kind() {
		case syntax.KindObject:
			next, ok := lookupObjectProperty(snap, cur, seg)
			if !ok {
				return snap.RangeOf(cur.StartByte(), cur.EndByte())
			}
			cur = next
		case syntax.KindArray:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= cur.NamedChildCount() {
				return snap.RangeOf(cur.StartByte(), cur.EndByte())
			}
			cur = cur.NamedChild(idx)
		default:
			return snap.RangeOf(cur.StartByte(), cur.EndByte())
		}
	}
	return snap.RangeOf(cur.StartByte(), cur.EndByte())
}

func lookupObjectProperty(snap document.Snapshot, obj syntax.Node, name string) (syntax.Node, bool) {
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
