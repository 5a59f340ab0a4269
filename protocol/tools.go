package protocol

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jsonls/jsonls/jsonrpc2"
)

// ShowNotification sends a window/showMessage notification directly over
// conn, for callers that hold a *jsonrpc2.Conn but not a *server.Server
// (importing server here would cycle). Callers that do hold a Server should
// prefer its Notify method instead, which also enforces the server's
// lifecycle state.
func ShowNotification(ctx context.Context, conn *jsonrpc2.Conn, msgType MessageType, message string) error {
	if conn == nil {
		return fmt.Errorf("cannot show notification %q: nil connection", message)
	}

	rawParams, err := json.Marshal(ShowMessageParams{Type: msgType, Message: message})
	if err != nil {
		return fmt.Errorf("marshalling showMessage params: %w", err)
	}

	return conn.Write(ctx, &jsonrpc2.NotificationMessage{
		JSONRPC: jsonrpc2.Version,
		Method:  MethodWindowShowMessage,
		Params:  rawParams,
	})
}
