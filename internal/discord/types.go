package discord

import (
	"context"

	"github.com/kapu/discord-dispatch-bot/internal/emitter"
)

type ConnectionState string

const (
	StateConnecting   ConnectionState = "CONNECTING"
	StateConnected    ConnectionState = "CONNECTED"
	StateDisconnected ConnectionState = "DISCONNECTED"
	StateResumed      ConnectionState = "RESUMED"
	StateClosed       ConnectionState = "CLOSED"
)

func (s ConnectionState) String() string {
	return string(s)
}

type StateCallback func(state ConnectionState)

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

// Dispatcher receives every translated gateway event.
type Dispatcher interface {
	Emit(ctx context.Context, d emitter.Dispatch) error
}
