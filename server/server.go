package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/jsonls/jsonls/config"
	"github.com/jsonls/jsonls/internal/document"
	"github.com/jsonls/jsonls/internal/schemastore"
	"github.com/jsonls/jsonls/internal/validate"
	"github.com/jsonls/jsonls/jsonrpc2"
	"github.com/jsonls/jsonls/protocol"
)

// supportedCommands lists the workspace/executeCommand command IDs this
// server implements.
var supportedCommands = []string{"json.sort"}

// Server represents an LSP server.
type Server struct {
	conn         *jsonrpc2.Conn
	handlers     map[string]*typedHandler
	mu           sync.RWMutex
	state        atomic.Value // Stores serverState (uninitialized, initializing, running, shutdown)
	shutdownOnce sync.Once
	pendingReqs  sync.WaitGroup
	logger       *log.Logger
	initParams   *protocol.InitializeParams
	initResult   *protocol.InitializeResult

	docs     *document.Store
	resolver *schemastore.Resolver
	regexes  *validate.RegexCache
	cfg      *config.Config

	debounce       time.Duration
	debounceMu     sync.Mutex
	debounceTimers map[protocol.DocumentURI]*debounceEntry

	cancelMu sync.Mutex
	cancels  map[string]context.CancelFunc
}

// debounceEntry tracks the single outstanding validation timer for a URI.
// A new edit replaces the entry wholesale under a fresh token; the fired
// callback checks its token is still the map's current one before
// publishing, so a superseded timer that fires late cannot clobber a newer
// validation pass.
type debounceEntry struct {
	token uuid.UUID
	timer *time.Timer
}

// serverState represents the lifecycle state of the server.
type serverState int

const (
	stateUninitialized serverState = iota
	stateInitializing
	stateRunning
	stateShutdown
)

// NewServer creates a new LSP server instance.
// It typically communicates over stdin/stdout.
func NewServer(opts ...Option) *Server {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	var resolver *schemastore.Resolver
	if options.schemaTransport != nil {
		resolver = schemastore.NewResolverWithTransport(options.schemaCacheSize, options.schemaTransport)
	} else {
		resolver = schemastore.NewResolver(options.schemaCacheSize, options.schemaConcurrency)
	}

	s := &Server{
		handlers:       make(map[string]*typedHandler),
		logger:         options.logger,
		docs:           document.NewStore(),
		resolver:       resolver,
		regexes:        validate.NewRegexCache(),
		cfg:            config.New(),
		debounce:       options.debounce,
		debounceTimers: make(map[protocol.DocumentURI]*debounceEntry),
		cancels:        make(map[string]context.CancelFunc),
	}
	s.state.Store(stateUninitialized)

	stream := jsonrpc2.NewStream(options.stream)
	s.conn = jsonrpc2.NewConn(stream)

	s.registerDefaultHandlers()

	return s
}

// registerDefaultHandlers registers handlers for required LSP methods and
// every document feature this server implements.
func (s *Server) registerDefaultHandlers() {
	s.Register(protocol.MethodInitialize, s.handleInitialize)
	s.Register(protocol.MethodInitialized, s.handleInitialized)
	s.Register(protocol.MethodShutdown, s.handleShutdown)
	s.Register(protocol.MethodExit, s.handleExit)
	s.Register(protocol.MethodCancelRequest, s.handleCancel)
	s.Register(protocol.MethodProgress, s.handleProgress)

	s.Register(protocol.MethodTextDocumentDidOpen, s.handleDidOpen)
	s.Register(protocol.MethodTextDocumentDidChange, s.handleDidChange)
	s.Register(protocol.MethodTextDocumentDidSave, s.handleDidSave)
	s.Register(protocol.MethodTextDocumentDidClose, s.handleDidClose)
	s.Register(protocol.MethodWorkspaceDidChangeConfiguration, s.handleDidChangeConfiguration)

	s.Register(protocol.MethodTextDocumentCompletion, s.handleCompletion)
	s.Register(protocol.MethodTextDocumentHover, s.handleHover)
	s.Register(protocol.MethodTextDocumentDocumentSymbol, s.handleDocumentSymbol)
	s.Register(protocol.MethodTextDocumentDocumentColor, s.handleDocumentColor)
	s.Register(protocol.MethodTextDocumentColorPresentation, s.handleColorPresentation)
	s.Register(protocol.MethodTextDocumentFormatting, s.handleFormatting)
	s.Register(protocol.MethodTextDocumentRangeFormatting, s.handleRangeFormatting)
	s.Register(protocol.MethodTextDocumentDocumentLink, s.handleDocumentLink)
	s.Register(protocol.MethodTextDocumentDefinition, s.handleDefinition)
	s.Register(protocol.MethodTextDocumentFoldingRange, s.handleFoldingRange)
	s.Register(protocol.MethodTextDocumentSelectionRange, s.handleSelectionRange)
	s.Register(protocol.MethodWorkspaceExecuteCommand, s.handleExecuteCommand)
}

// Register associates a handler function with an LSP method name.
// The handler func must match the expected signature patterns (see handler.go).
func (s *Server) Register(method string, handlerFunc any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.handlers[method]; exists {
		return fmt.Errorf("handler already registered for method: %s", method)
	}

	paramType, takesConn, takesParams, err := validateHandlerFunc(handlerFunc)
	if err != nil {
		return fmt.Errorf("invalid handler for method %s: %w", method, err)
	}

	s.handlers[method] = &typedHandler{
		h:           handlerFunc,
		paramType:   paramType,
		takesConn:   takesConn,
		takesParams: takesParams,
	}
	s.logger.Debug("registered handler", "method", method, "takesConn", takesConn, "takesParams", takesParams)
	return nil
}

// Run starts the server's main loop, reading and processing messages.
// It blocks until the connection is closed or the server exits.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("server starting")
	defer s.logger.Info("server stopped")

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			s.logger.Info("context cancelled, closing connection", "err", ctx.Err())
			s.conn.Close() //nolint:errcheck
		case <-done:
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("context cancelled, exiting run loop", "err", ctx.Err())
			return ctx.Err()
		default:
		}

		msg, err := s.conn.Read(ctx)
		if err != nil {
			if err == io.EOF || err == io.ErrClosedPipe || err == context.Canceled || err == context.DeadlineExceeded {
				s.logger.Info("connection closed or context cancelled", "err", err)
				if s.currentState() == stateShutdown {
					return nil
				}
				s.logger.Warn("client closed connection before shutdown")
				if err == io.EOF {
					return io.ErrUnexpectedEOF
				}
				return err
			}

			s.logger.Error("error reading message", "err", err)
			if jsonErr, ok := err.(*jsonrpc2.ErrorObject); ok {
				s.logger.Error("fatal JSON-RPC format error", "err", jsonErr)
			}
			return fmt.Errorf("fatal error reading message: %w", err)
		}

		s.pendingReqs.Add(1)
		go func(m any) {
			defer s.pendingReqs.Done()
			s.handleMessage(ctx, m)
		}(msg)
	}
}

// currentState safely gets the current server state.
func (s *Server) currentState() serverState {
	state, _ := s.state.Load().(serverState)
	return state
}

// handleMessage dispatches incoming messages to appropriate handlers.
func (s *Server) handleMessage(ctx context.Context, msg interface{}) {
	switch m := msg.(type) {
	case *jsonrpc2.RequestMessage:
		s.handleRequest(ctx, m)
	case *jsonrpc2.NotificationMessage:
		s.handleNotification(ctx, m)
	case *jsonrpc2.ResponseMessage:
		s.logger.Warn("received unexpected response", "id", string(m.ID))
	default:
		s.logger.Warn("received unknown message type", "type", fmt.Sprintf("%T", msg))
	}
}

// handleRequest handles an incoming request message.
func (s *Server) handleRequest(ctx context.Context, req *jsonrpc2.RequestMessage) {
	method := req.Method
	s.logger.Debug("--> request", "method", method, "id", string(req.ID))

	currentState := s.currentState()
	if currentState == stateShutdown {
		s.sendResponse(ctx, req.ID, nil, jsonrpc2.NewError(jsonrpc2.InvalidRequest, "server is shutting down"))
		return
	}
	if currentState == stateUninitialized && method != protocol.MethodInitialize {
		s.sendResponse(ctx, req.ID, nil, jsonrpc2.NewError(jsonrpc2.ServerNotInitialized, "server not initialized"))
		return
	}
	if currentState == stateInitializing && method != protocol.MethodInitialize {
		s.sendResponse(ctx, req.ID, nil, jsonrpc2.NewError(jsonrpc2.ServerNotInitialized, "server is initializing"))
		return
	}

	s.mu.RLock()
	handler, found := s.handlers[method]
	s.mu.RUnlock()

	if !found {
		s.logger.Warn("no handler for request", "method", method)
		s.sendResponse(ctx, req.ID, nil, jsonrpc2.NewError(jsonrpc2.MethodNotFound, fmt.Sprintf("method not found: %s", method)))
		return
	}

	reqCtx, cancel := s.registerCancel(ctx, req.ID)
	defer s.unregisterCancel(req.ID, cancel)

	result, err := handler.invoke(reqCtx, s.conn, req.Params)

	var errResp *jsonrpc2.ErrorObject
	if err != nil {
		if jsonErr, ok := err.(*jsonrpc2.ErrorObject); ok {
			errResp = jsonErr
		} else {
			errResp = jsonrpc2.NewError(jsonrpc2.InternalError, err.Error())
			s.logger.Error("handler error", "method", method, "id", string(req.ID), "err", err)
		}
	}

	s.sendResponse(ctx, req.ID, result, errResp)
}

// handleNotification handles an incoming notification message.
func (s *Server) handleNotification(ctx context.Context, n *jsonrpc2.NotificationMessage) {
	method := n.Method
	s.logger.Debug("--> notification", "method", method)

	currentState := s.currentState()
	if currentState == stateShutdown && method != protocol.MethodExit {
		s.logger.Debug("ignoring notification during shutdown", "method", method)
		return
	}

	isEarlyNotification := method == protocol.MethodCancelRequest || method == protocol.MethodProgress
	if currentState == stateUninitialized && !isEarlyNotification {
		s.logger.Debug("ignoring notification before initialization", "method", method)
		return
	}

	if method == protocol.MethodExit {
		s.mu.RLock()
		handler, found := s.handlers[method]
		s.mu.RUnlock()
		if found {
			if _, err := handler.invoke(ctx, nil, nil); err != nil {
				s.logger.Error("error in exit handler", "err", err)
			}
		} else {
			s.logger.Warn("no exit handler registered, exiting(1)")
			s.conn.Close() //nolint:errcheck
			os.Exit(1)
		}
		return
	}

	s.mu.RLock()
	handler, found := s.handlers[method]
	s.mu.RUnlock()

	if !found {
		s.logger.Debug("no handler for notification, ignoring", "method", method)
		return
	}

	if _, err := handler.invoke(ctx, s.conn, n.Params); err != nil {
		s.logger.Error("handler error processing notification", "method", method, "err", err)
	}
}

// sendResponse marshals and sends a JSON-RPC response.
func (s *Server) sendResponse(ctx context.Context, id json.RawMessage, result interface{}, respErr *jsonrpc2.ErrorObject) {
	if len(id) == 0 || string(id) == "null" {
		s.logger.Warn("attempted to send response for notification or invalid request ID")
		return
	}

	response := &jsonrpc2.ResponseMessage{
		JSONRPC: jsonrpc2.Version,
		ID:      id,
	}

	if respErr != nil {
		response.Error = respErr
	} else if result != nil {
		rawResult, err := json.Marshal(result)
		if err != nil {
			s.logger.Error("error marshalling result", "id", string(id), "err", err)
			response.Error = jsonrpc2.NewError(jsonrpc2.InternalError, fmt.Sprintf("failed to marshal result: %v", err))
		} else {
			response.Result = rawResult
		}
	} else {
		response.Result = json.RawMessage("null")
	}

	s.logger.Debug("<-- response", "id", string(id), "hasError", response.Error != nil)

	if err := s.conn.Write(ctx, response); err != nil {
		s.logger.Error("error writing response", "id", string(id), "err", err)
	}
}

// --- Standard Handlers ---

// handleInitialize: func(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error)
func (s *Server) handleInitialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	if !s.state.CompareAndSwap(stateUninitialized, stateInitializing) {
		errMsg := "server already initialized or is shutting down"
		s.logger.Error("initialize failed", "reason", errMsg, "state", s.currentState())
		return nil, jsonrpc2.NewError(jsonrpc2.InvalidRequest, errMsg)
	}
	s.logger.Info("handling initialize request")
	s.initParams = params

	if params.ClientInfo != nil {
		s.logger.Info("client", "name", params.ClientInfo.Name, "version", params.ClientInfo.Version)
	}

	if params.InitializationOptions != nil {
		if err := s.cfg.SetFromSettings(params.InitializationOptions); err != nil {
			s.logger.Warn("failed to parse initializationOptions", "err", err)
		} else {
			s.seedInlineSchemas(params.InitializationOptions)
		}
	}

	result := &protocol.InitializeResult{
		Capabilities: s.determineServerCapabilities(),
		ServerInfo: &protocol.ServerInfo{
			Name:    "jsonls",
			Version: "0.1.0",
		},
	}
	s.initResult = result

	s.logger.Info("initialize successful, waiting for 'initialized' notification")
	return result, nil
}

// seedInlineSchemas pre-populates the resolver's cache for every inline
// schema body found in raw, so subsequent Resolve calls against a synthetic
// "inline:N" URI never try to fetch anything.
func (s *Server) seedInlineSchemas(raw json.RawMessage) {
	inline, err := config.InlineSchemas(raw)
	if err != nil {
		s.logger.Warn("failed to extract inline schemas", "err", err)
		return
	}
	for uri, body := range inline {
		if err := s.resolver.Seed(uri, body); err != nil {
			s.logger.Warn("failed to seed inline schema", "uri", uri, "err", err)
		}
	}
}

// determineServerCapabilities inspects registered handlers to build the capabilities struct.
func (s *Server) determineServerCapabilities() protocol.ServerCapabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()

	caps := protocol.ServerCapabilities{}

	_, hasOpen := s.handlers[protocol.MethodTextDocumentDidOpen]
	_, hasChange := s.handlers[protocol.MethodTextDocumentDidChange]
	_, hasClose := s.handlers[protocol.MethodTextDocumentDidClose]
	_, hasSave := s.handlers[protocol.MethodTextDocumentDidSave]

	if hasOpen || hasChange || hasClose || hasSave {
		caps.TextDocumentSync = &protocol.TextDocumentSyncOptions{
			OpenClose: hasOpen || hasClose,
			Change:    protocol.SyncFull,
		}
		if hasSave {
			caps.TextDocumentSync.Save = &protocol.SaveOptions{IncludeText: false}
		}
	}

	if _, ok := s.handlers[protocol.MethodTextDocumentHover]; ok {
		caps.HoverProvider = &protocol.HoverOptions{}
	}

	if _, ok := s.handlers[protocol.MethodTextDocumentCompletion]; ok {
		caps.CompletionProvider = &protocol.CompletionOptions{
			TriggerCharacters: []string{`"`, ":", " "},
		}
	}

	if _, ok := s.handlers[protocol.MethodTextDocumentDefinition]; ok {
		caps.DefinitionProvider = &protocol.DefinitionOptions{}
	}

	if _, ok := s.handlers[protocol.MethodTextDocumentDocumentSymbol]; ok {
		caps.DocumentSymbolProvider = true
	}

	if _, ok := s.handlers[protocol.MethodTextDocumentDocumentColor]; ok {
		caps.ColorProvider = true
	}

	if _, ok := s.handlers[protocol.MethodTextDocumentFormatting]; ok {
		caps.DocumentFormattingProvider = true
	}

	if _, ok := s.handlers[protocol.MethodTextDocumentRangeFormatting]; ok {
		caps.DocumentRangeFormattingProvider = true
	}

	if _, ok := s.handlers[protocol.MethodTextDocumentDocumentLink]; ok {
		caps.DocumentLinkProvider = &protocol.DocumentLinkOptions{}
	}

	if _, ok := s.handlers[protocol.MethodTextDocumentFoldingRange]; ok {
		caps.FoldingRangeProvider = true
	}

	if _, ok := s.handlers[protocol.MethodTextDocumentSelectionRange]; ok {
		caps.SelectionRangeProvider = true
	}

	if _, ok := s.handlers[protocol.MethodWorkspaceExecuteCommand]; ok {
		caps.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
			Commands: supportedCommands,
		}
	}

	s.logger.Debug("determined server capabilities", "caps", fmt.Sprintf("%+v", caps))
	return caps
}

// handleInitialized: func(ctx context.Context, params *protocol.InitializedParams) error
func (s *Server) handleInitialized(ctx context.Context, params *protocol.InitializedParams) error {
	if s.state.CompareAndSwap(stateInitializing, stateRunning) {
		s.logger.Info("server running")
	} else {
		s.logger.Warn("received 'initialized' in unexpected state", "state", s.currentState())
	}
	return nil
}

// handleShutdown: func(ctx context.Context) error
func (s *Server) handleShutdown(ctx context.Context) error {
	s.logger.Info("handling shutdown request")

	s.shutdownOnce.Do(func() {
		if s.state.CompareAndSwap(stateRunning, stateShutdown) ||
			s.state.CompareAndSwap(stateInitializing, stateShutdown) ||
			s.state.CompareAndSwap(stateUninitialized, stateShutdown) {
			s.logger.Info("server transitioning to shutdown")
		} else {
			s.logger.Warn("shutdown requested but already shutting down", "state", s.currentState())
		}
	})

	return nil
}

// handleExit: func(ctx context.Context)
func (s *Server) handleExit(ctx context.Context) {
	s.logger.Info("handling exit notification")

	exitCode := 1
	if s.currentState() == stateShutdown {
		exitCode = 0
	}

	waitCh := make(chan struct{})
	go func() {
		s.pendingReqs.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		s.logger.Info("all pending tasks completed before exit")
	case <-time.After(2 * time.Second):
		s.logger.Warn("timed out waiting for pending tasks during exit")
	}

	if err := s.conn.Close(); err != nil {
		s.logger.Error("error closing connection during exit", "err", err)
	}

	os.Exit(exitCode)
}

// registerCancel derives a cancellable context for the request identified by
// id and records its cancel func so a later $/cancelRequest can reach it.
// Notifications and requests with a null/empty id (which should not occur
// for req.ID) are not tracked.
func (s *Server) registerCancel(parent context.Context, id json.RawMessage) (context.Context, context.CancelFunc) {
	key := string(id)
	reqCtx, cancel := context.WithCancel(parent)
	if key == "" || key == "null" {
		return reqCtx, cancel
	}
	s.cancelMu.Lock()
	s.cancels[key] = cancel
	s.cancelMu.Unlock()
	return reqCtx, cancel
}

// unregisterCancel removes id's cancel func once its request has completed,
// then calls cancel to release the context's resources.
func (s *Server) unregisterCancel(id json.RawMessage, cancel context.CancelFunc) {
	key := string(id)
	s.cancelMu.Lock()
	delete(s.cancels, key)
	s.cancelMu.Unlock()
	cancel()
}

// handleCancel handles "$/cancelRequest" notifications by cancelling the
// context passed to the named request's handler. Long-running validator
// calls check this via validate.Context's embedded context.Context at safe
// points between top-level schema children, per spec.md §5; every other
// handler here already runs fast enough that cancellation mid-flight just
// means the handler observes ctx.Err() on its next blocking call, if any.
func (s *Server) handleCancel(ctx context.Context, params *protocol.CancelParams) {
	if params == nil {
		return
	}
	key := string(params.ID)
	s.cancelMu.Lock()
	cancel, ok := s.cancels[key]
	s.cancelMu.Unlock()
	if !ok {
		s.logger.Debug("cancellation request for unknown or completed id", "id", key)
		return
	}
	s.logger.Debug("cancelling in-flight request", "id", key)
	cancel()
}

// handleProgress handles "$/progress" notifications from the client. This
// server never requests progress reporting, so incoming progress updates
// are only logged.
func (s *Server) handleProgress(ctx context.Context, params *protocol.ProgressParams) {
	if params == nil {
		return
	}
	s.logger.Debug("received progress notification", "value", string(params.Value))
}

// Notify sends a notification to the client.
func (s *Server) Notify(ctx context.Context, method string, params interface{}) error {
	currentState := s.currentState()
	if currentState != stateRunning {
		return fmt.Errorf("cannot send notification %s while server state is %d", method, currentState)
	}

	var rawParams json.RawMessage
	var err error
	if params != nil {
		rawParams, err = json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to marshal notification params for %s: %w", method, err)
		}
	}

	notification := &jsonrpc2.NotificationMessage{
		JSONRPC: jsonrpc2.Version,
		Method:  method,
		Params:  rawParams,
	}

	s.logger.Debug("<-- notification", "method", method)

	if err := s.conn.Write(ctx, notification); err != nil {
		s.logger.Error("error writing notification", "method", method, "err", err)
		return fmt.Errorf("failed to write notification %s: %w", method, err)
	}

	return nil
}
