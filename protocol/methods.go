package protocol

// Defines constants for common LSP method names.

const (
	// Text Document Synchronization
	MethodTextDocumentDidOpen   = "textDocument/didOpen"
	MethodTextDocumentDidChange = "textDocument/didChange"
	MethodTextDocumentDidSave   = "textDocument/didSave"
	MethodTextDocumentDidClose  = "textDocument/didClose"

	// Language Features
	MethodTextDocumentHover      = "textDocument/hover"
	MethodTextDocumentCompletion = "textDocument/completion"
	MethodCompletionItemResolve  = "completionItem/resolve"
	MethodTextDocumentDefinition      = "textDocument/definition"
	MethodTextDocumentDocumentSymbol  = "textDocument/documentSymbol"
	MethodTextDocumentDocumentColor   = "textDocument/documentColor"
	MethodTextDocumentColorPresentation = "textDocument/colorPresentation"
	MethodTextDocumentFormatting      = "textDocument/formatting"
	MethodTextDocumentRangeFormatting = "textDocument/rangeFormatting"
	MethodTextDocumentDocumentLink    = "textDocument/documentLink"
	MethodTextDocumentFoldingRange    = "textDocument/foldingRange"
	MethodTextDocumentSelectionRange  = "textDocument/selectionRange"

	// Workspace Features
	MethodWorkspaceExecuteCommand        = "workspace/executeCommand"
	MethodWorkspaceApplyEdit             = "workspace/applyEdit"
	MethodWorkspaceDidChangeConfiguration = "workspace/didChangeConfiguration"

	// Window Features
	MethodWindowShowMessage        = "window/showMessage"
	MethodWindowShowMessageRequest = "window/showMessageRequest"
	MethodWindowLogMessage         = "window/logMessage"

	// Diagnostics
	MethodTextDocumentPublishDiagnostics = "textDocument/publishDiagnostics"

	// General Lifecycle
	MethodInitialize    = "initialize"
	MethodInitialized   = "initialized"
	MethodShutdown      = "shutdown"
	MethodExit          = "exit"
	MethodCancelRequest = "$/cancelRequest" // Notification to cancel a request
	MethodProgress      = "$/progress"      // Notification for progress updates
)
