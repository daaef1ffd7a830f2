package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/parleyhq/parley/internal/core"
	"github.com/parleyhq/parley/internal/domain"
)

// Binding ties a live connection to its room and user. The transport
// handle rides along so fan-out never needs a second lookup table.
type Binding struct {
	ConnID domain.ConnID
	RoomID domain.RoomID
	UserID domain.UserID
	Conn   core.SignalConnection
}

// Registry is the concurrent-safe connection table. It owns no business
// logic; the lifecycle manager decides when entries come and go.
type Registry struct {
	mu     sync.RWMutex
	conns  map[domain.ConnID]*Binding
	byRoom map[domain.RoomID]map[domain.ConnID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[domain.ConnID]*Binding),
		byRoom: make(map[domain.RoomID]map[domain.ConnID]struct{}),
	}
}

// Bind registers a connection. A connection already bound elsewhere must
// be unbound first; rebinding fails with ErrDuplicateBinding.
func (r *Registry) Bind(connID domain.ConnID, roomID domain.RoomID, userID domain.UserID, conn core.SignalConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[connID]; ok {
		return domain.ErrDuplicateBinding
	}
	r.conns[connID] = &Binding{ConnID: connID, RoomID: roomID, UserID: userID, Conn: conn}
	members, ok := r.byRoom[roomID]
	if !ok {
		members = make(map[domain.ConnID]struct{})
		r.byRoom[roomID] = members
	}
	members[connID] = struct{}{}
	log.Debug().Str("module", "app.registry").Str("conn", string(connID)).Str("room", string(roomID)).Str("user", string(userID)).Msg("bound connection")
	return nil
}

func (r *Registry) Lookup(connID domain.ConnID) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if b, ok := r.conns[connID]; ok {
		return *b, true
	}
	return Binding{}, false
}

// Unbind removes a connection. Removing an absent connection is a no-op.
func (r *Registry) Unbind(connID domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.conns[connID]
	if !ok {
		return
	}
	delete(r.conns, connID)
	if members, ok := r.byRoom[b.RoomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.byRoom, b.RoomID)
		}
	}
	log.Debug().Str("module", "app.registry").Str("conn", string(connID)).Msg("unbound connection")
}

// MembersOf snapshots the bindings currently attached to a room.
func (r *Registry) MembersOf(roomID domain.RoomID) []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.byRoom[roomID]
	out := make([]Binding, 0, len(members))
	for connID := range members {
		out = append(out, *r.conns[connID])
	}
	return out
}
