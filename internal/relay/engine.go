// Package relay owns best-effort message delivery to registered addresses.
package relay

import (
	"github.com/rs/zerolog"

	"github.com/danmuck/relayctl/internal/observability"
	"github.com/danmuck/relayctl/internal/presence"
)

// Engine routes a message to whatever connection is currently bound to the
// target address. Stateless: no retries, no queueing, and a miss is not an
// error.
type Engine struct {
	registry *presence.Registry
	log      zerolog.Logger
}

// NewEngine creates a relay engine over the given registry.
func NewEngine(registry *presence.Registry, log zerolog.Logger) *Engine {
	return &Engine{registry: registry, log: log}
}

// Relay sends msg verbatim to the connection bound to toAddress. Returns
// false when the target is absent; delivery is only meaningful while the
// target is concurrently connected.
func (e *Engine) Relay(toAddress string, msg any) bool {
	entry, ok := e.registry.Lookup(toAddress)
	if !ok {
		observability.RecordRelay("miss")
		e.log.Debug().Str("to", presence.Normalize(toAddress)).Msg("relay target absent")
		return false
	}
	if err := entry.Conn.Send(msg); err != nil {
		observability.RecordRelay("send_failed")
		e.log.Debug().Str("to", entry.Address).Err(err).Msg("relay send failed")
		return false
	}
	observability.RecordRelay("delivered")
	return true
}
