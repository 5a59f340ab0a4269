// Command jsonls-lsp runs a JSON/JSONC language server over stdin/stdout.
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"

	"github.com/jsonls/jsonls/server"
)

func main() {
	ctx := context.Background()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "jsonls"})
	if os.Getenv("JSONLS_DEBUG") != "" {
		logger.SetLevel(log.DebugLevel)
	}

	srv := server.NewServer(server.WithLogger(logger))

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("server error", "err", err)
	}
	logger.Info("server stopped")
}
