package server

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jsonls/jsonls/protocol"
)

func TestHandleCancelCancelsRegisteredRequest(t *testing.T) {
	t.Parallel()

	s := NewServer()
	id := json.RawMessage(`"abc"`)

	ctx, cancel := s.registerCancel(context.Background(), id)
	defer cancel()

	select {
	case <-ctx.Done():
		t.Fatal("context should not be done before $/cancelRequest arrives")
	default:
	}

	s.handleCancel(nil, &protocol.CancelParams{ID: id})

	select {
	case <-ctx.Done():
	default:
		t.Fatal("expected context to be cancelled after $/cancelRequest")
	}
}

func TestHandleCancelUnknownIDIsNoop(t *testing.T) {
	t.Parallel()

	s := NewServer()
	s.handleCancel(nil, &protocol.CancelParams{ID: json.RawMessage(`"nope"`)})
}

func TestUnregisterCancelRemovesEntry(t *testing.T) {
	t.Parallel()

	s := NewServer()
	id := json.RawMessage(`42`)

	_, cancel := s.registerCancel(context.Background(), id)
	s.unregisterCancel(id, cancel)

	s.cancelMu.Lock()
	_, found := s.cancels[string(id)]
	s.cancelMu.Unlock()
	assert.False(t, found, "expected the cancel func to be removed from the registry after unregisterCancel")
}
