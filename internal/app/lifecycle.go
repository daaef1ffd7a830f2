package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/parleyhq/parley/internal/core"
	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/internal/persistence"
)

const persistTimeout = 5 * time.Second

// Lifecycle orchestrates join, leave and disconnect sequences across
// the room store, the connection registry and the router, and keeps the
// persistence collaborator informed of call status transitions.
type Lifecycle struct {
	rooms    *RoomStore
	registry *Registry
	router   *Router
	calls    persistence.Store
}

func NewLifecycle(rooms *RoomStore, registry *Registry, router *Router, calls persistence.Store) *Lifecycle {
	return &Lifecycle{rooms: rooms, registry: registry, router: router, calls: calls}
}

// HandleJoin binds the connection and adds the user to the room. The
// registry bind happens first: a crash mid-sequence leaves a dangling
// registry entry that disconnect cleanup replays away, never a roster
// entry without a binding. On failure nothing is mutated and no peer
// sees a partial join; the error goes back to the joining connection
// alone.
func (l *Lifecycle) HandleJoin(connID domain.ConnID, roomID domain.RoomID, userID domain.UserID, conn core.SignalConnection) (domain.Room, error) {
	if err := l.registry.Bind(connID, roomID, userID, conn); err != nil {
		return domain.Room{}, err
	}
	room, err := l.rooms.Join(roomID, userID, connID)
	if err != nil {
		l.registry.Unbind(connID)
		return domain.Room{}, err
	}
	log.Info().Str("module", "app.lifecycle").Str("conn", string(connID)).Str("user", string(userID)).Str("room", string(roomID)).Msg("user joined room")

	l.router.Forward(core.EventRoomJoined, core.RoomJoinedPayload{
		RoomID:       string(roomID),
		Status:       room.Status,
		Participants: room.Participants,
	}, roomID, "", connID)

	l.router.Forward(core.EventUserJoined, core.UserJoinedPayload{
		ConnectionID: string(connID),
		UserID:       string(userID),
	}, roomID, connID, "")

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	users := lo.Map(room.Participants, func(p domain.Participant, _ int) domain.UserID { return p.UserID })
	if err := l.calls.UpsertCallParticipants(ctx, roomID, users); err != nil {
		log.Warn().Err(err).Str("module", "app.lifecycle").Str("room", string(roomID)).Msg("upsert call participants")
	}
	return room, nil
}

// HandleLeave removes a connection from its room, explicit leave and
// transport disconnect alike. Safe to invoke any number of times for
// the same connection: the roster removal inside the store is the
// exactly-once gate, so peers get a single user-left no matter how many
// cleanup paths fire.
func (l *Lifecycle) HandleLeave(connID domain.ConnID) {
	b, ok := l.registry.Lookup(connID)
	if !ok {
		return
	}
	room, removed, err := l.rooms.Leave(b.RoomID, connID)
	l.registry.Unbind(connID)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.lifecycle").Str("conn", string(connID)).Str("room", string(b.RoomID)).Msg("leave room")
		return
	}
	if !removed {
		return
	}
	log.Info().Str("module", "app.lifecycle").Str("conn", string(connID)).Str("user", string(b.UserID)).Str("room", string(b.RoomID)).Msg("user left room")

	l.router.Forward(core.EventUserLeft, core.UserLeftPayload{
		ConnectionID: string(connID),
		UserID:       string(b.UserID),
	}, b.RoomID, connID, "")

	if room.Status == domain.RoomEnded {
		l.finalize(room)
	}
}

// HandleDisconnect is the transport-level twin of HandleLeave, invoked
// when a connection drops without an explicit leave-room.
func (l *Lifecycle) HandleDisconnect(connID domain.ConnID) {
	l.HandleLeave(connID)
}

func (l *Lifecycle) finalize(room domain.Room) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	endedAt := time.Now()
	if err := l.calls.MarkCallEnded(ctx, room.ID, endedAt, endedAt.Sub(room.CreatedAt)); err != nil {
		log.Warn().Err(err).Str("module", "app.lifecycle").Str("room", string(room.ID)).Msg("mark call ended")
	}
	if err := l.calls.FinalizeRoom(ctx, room.ID); err != nil {
		log.Warn().Err(err).Str("module", "app.lifecycle").Str("room", string(room.ID)).Msg("finalize room")
	}
	log.Info().Str("module", "app.lifecycle").Str("room", string(room.ID)).Msg("call finalized")
}
