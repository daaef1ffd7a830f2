package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/parleyhq/parley/internal/domain"
)

// RoomStore is the authoritative in-memory room map. Every mutation is
// a single critical section and returns the post-mutation snapshot, so
// callers never need a read after a write to learn what they changed.
type RoomStore struct {
	mu              sync.RWMutex
	rooms           map[domain.RoomID]*domain.Room
	defaultCapacity int
}

func NewRoomStore(defaultCapacity int) *RoomStore {
	if defaultCapacity <= 0 {
		defaultCapacity = 5
	}
	return &RoomStore{
		rooms:           make(map[domain.RoomID]*domain.Room),
		defaultCapacity: defaultCapacity,
	}
}

// GetOrCreate returns the room, creating it in waiting state with the
// creator as an offline member when unseen. For an existing room the
// stored capacity and creator win; the arguments are ignored.
func (s *RoomStore) GetOrCreate(roomID domain.RoomID, creator domain.UserID, capacity int) domain.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[roomID]; ok {
		return snapshot(room)
	}
	if capacity <= 0 {
		capacity = s.defaultCapacity
	}
	room := &domain.Room{
		ID:              roomID,
		CreatedBy:       creator,
		Participants:    []domain.Participant{{UserID: creator, JoinedAt: time.Now()}},
		Status:          domain.RoomWaiting,
		MaxParticipants: capacity,
		CreatedAt:       time.Now(),
	}
	s.rooms[roomID] = room
	log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Str("creator", string(creator)).Int("capacity", capacity).Msg("room created")
	return snapshot(room)
}

// Join adds userID to the roster bound to connID. A user that is
// already a member gets its connection updated instead of a second
// entry, and does not count against capacity again. The whole check-
// and-append is one critical section: two joins racing for the last
// open slot cannot both win.
func (s *RoomStore) Join(roomID domain.RoomID, userID domain.UserID, connID domain.ConnID) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	joined := false
	for i := range room.Participants {
		if room.Participants[i].UserID == userID {
			room.Participants[i].ConnID = connID
			joined = true
			break
		}
	}
	if !joined {
		if len(room.Participants) >= room.MaxParticipants {
			return domain.Room{}, domain.ErrRoomFull
		}
		room.Participants = append(room.Participants, domain.Participant{
			UserID:   userID,
			ConnID:   connID,
			JoinedAt: time.Now(),
		})
	}
	if len(room.Participants) == room.MaxParticipants && room.Status == domain.RoomWaiting {
		room.Status = domain.RoomActive
		log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Msg("room is full, now active")
	}
	return snapshot(room), nil
}

// JoinOffline records membership with no live connection (the HTTP
// pre-join path). Capacity applies the same as Join.
func (s *RoomStore) JoinOffline(roomID domain.RoomID, userID domain.UserID) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	for i := range room.Participants {
		if room.Participants[i].UserID == userID {
			return snapshot(room), nil
		}
	}
	if len(room.Participants) >= room.MaxParticipants {
		return domain.Room{}, domain.ErrRoomFull
	}
	room.Participants = append(room.Participants, domain.Participant{
		UserID:   userID,
		JoinedAt: time.Now(),
	})
	if len(room.Participants) == room.MaxParticipants && room.Status == domain.RoomWaiting {
		room.Status = domain.RoomActive
	}
	return snapshot(room), nil
}

// Leave removes the roster entry matching connID; the connection, not
// the user, is authoritative. The removed flag reports whether this
// call actually took the entry out, which makes leave/disconnect
// double-invocation safe for callers that notify peers.
func (s *RoomStore) Leave(roomID domain.RoomID, connID domain.ConnID) (domain.Room, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return domain.Room{}, false, domain.ErrRoomNotFound
	}
	removed := false
	for i, p := range room.Participants {
		if p.ConnID == connID && connID != "" {
			room.Participants = append(room.Participants[:i], room.Participants[i+1:]...)
			removed = true
			break
		}
	}
	if removed && len(room.Participants) == 0 && room.Status != domain.RoomEnded {
		room.Status = domain.RoomEnded
		log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Msg("room emptied, now ended")
	}
	return snapshot(room), removed, nil
}

func (s *RoomStore) Get(roomID domain.RoomID) (domain.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if room, ok := s.rooms[roomID]; ok {
		return snapshot(room), true
	}
	return domain.Room{}, false
}

func (s *RoomStore) List() []domain.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		out = append(out, snapshot(room))
	}
	return out
}

// SweepEnded evicts ended rooms from the in-memory map. The durable
// record stays with the persistence collaborator; this only drops
// bookkeeping for rooms that can never become live again.
func (s *RoomStore) SweepEnded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, room := range s.rooms {
		if room.Status == domain.RoomEnded {
			delete(s.rooms, id)
			n++
		}
	}
	if n > 0 {
		log.Debug().Str("module", "app.rooms").Int("evicted", n).Msg("swept ended rooms")
	}
	return n
}

func snapshot(room *domain.Room) domain.Room {
	out := *room
	out.Participants = make([]domain.Participant, len(room.Participants))
	copy(out.Participants, room.Participants)
	return out
}
