package bridge

import (
	"context"
	stdjson "encoding/json"
	"fmt"

	"github.com/starford/quire/internal/sse"
)

// Transport carries commands from the host to the view. Commands sent
// through one Transport arrive in send order.
type Transport interface {
	Send(ctx context.Context, cmd Command) error
}

// SSETransport publishes commands on an SSE broker. The SSE event name is the
// command type and the data is the full envelope.
type SSETransport struct {
	broker *sse.Broker
}

// NewSSETransport wraps broker.
func NewSSETransport(broker *sse.Broker) *SSETransport {
	return &SSETransport{broker: broker}
}

// Send encodes cmd and hands it to every connected view. It fails when a
// view fell behind and was disconnected; that view re-syncs when it
// reconnects and reports loaded again.
func (t *SSETransport) Send(ctx context.Context, cmd Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := EncodeCommand(cmd)
	if err != nil {
		return err
	}
	event := sse.Event{Type: string(cmd.CommandType()), Data: stdjson.RawMessage(data)}
	if err := t.broker.Deliver(ctx, event); err != nil {
		return fmt.Errorf("bridge: send %s: %w", cmd.CommandType(), err)
	}
	return nil
}

// StickyTypes lists the command types a late-joining view should receive
// immediately on connect.
func StickyTypes() []string {
	return []string{string(TypeTheme), string(TypeNoMenu)}
}
