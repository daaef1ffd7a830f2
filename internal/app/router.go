package app

import (
	"github.com/rs/zerolog/log"

	"github.com/parleyhq/parley/internal/core"
	"github.com/parleyhq/parley/internal/domain"
)

// Router delivers signaling events to connections in a room. Payloads
// are opaque to it; it encodes each event once and hands frames to the
// per-connection transports. Delivery is best effort: a recipient that
// is gone or backpressured is skipped and logged, never reported back
// to the sender and never allowed to hold up the remaining recipients.
type Router struct {
	registry *Registry
}

func NewRouter(registry *Registry) *Router {
	return &Router{registry: registry}
}

// Forward sends one event into roomID. With a target it delivers to
// that connection only, after checking the target still belongs to the
// room; without one it fans out to every member except the sender.
func (r *Router) Forward(kind core.EventKind, payload any, roomID domain.RoomID, sender, target domain.ConnID) {
	frame, err := core.Encode(kind, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Str("kind", string(kind)).Msg("encode event")
		return
	}
	if target != "" {
		b, ok := r.registry.Lookup(target)
		if !ok || b.RoomID != roomID {
			log.Debug().Str("module", "app.router").Str("kind", string(kind)).Str("target", string(target)).Msg("target gone, dropped")
			return
		}
		if err := b.Conn.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.router").Str("kind", string(kind)).Str("target", string(target)).Msg("targeted delivery failed")
		}
		return
	}
	sent := 0
	for _, b := range r.registry.MembersOf(roomID) {
		if b.ConnID == sender {
			continue
		}
		if err := b.Conn.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.router").Str("kind", string(kind)).Str("conn", string(b.ConnID)).Msg("broadcast delivery failed")
			continue
		}
		sent++
	}
	log.Debug().Str("module", "app.router").Str("kind", string(kind)).Str("room", string(roomID)).Int("sent_to", sent).Msg("broadcast")
}
