package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/parleyhq/parley/internal/domain"
)

// MemoryStore keeps records in process memory. Used when no database is
// configured and throughout the tests. Same semantics as the postgres
// store, minus durability.
type MemoryStore struct {
	mu    sync.Mutex
	rooms map[domain.RoomID]domain.Room
	calls map[domain.RoomID]domain.Call
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms: make(map[domain.RoomID]domain.Room),
		calls: make(map[domain.RoomID]domain.Call),
	}
}

func (s *MemoryStore) CreateRoom(_ context.Context, room domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.ID]; ok {
		return nil
	}
	s.rooms[room.ID] = room
	s.calls[room.ID] = domain.Call{
		RoomID:       room.ID,
		Participants: lo.Map(room.Participants, func(p domain.Participant, _ int) domain.UserID { return p.UserID }),
		Status:       domain.CallActive,
		StartedAt:    room.CreatedAt,
	}
	return nil
}

func (s *MemoryStore) FinalizeRoom(_ context.Context, roomID domain.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	room.Status = domain.RoomEnded
	s.rooms[roomID] = room
	return nil
}

func (s *MemoryStore) UpsertCallParticipants(_ context.Context, roomID domain.RoomID, participants []domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	call, ok := s.calls[roomID]
	if !ok {
		return ErrCallNotFound
	}
	call.Participants = lo.Union(call.Participants, participants)
	s.calls[roomID] = call
	return nil
}

func (s *MemoryStore) MarkCallEnded(_ context.Context, roomID domain.RoomID, endedAt time.Time, duration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	call, ok := s.calls[roomID]
	if !ok {
		return ErrCallNotFound
	}
	call.Status = domain.CallEnded
	call.EndedAt = &endedAt
	call.Duration = duration
	s.calls[roomID] = call
	return nil
}

func (s *MemoryStore) ListEndedCalls(_ context.Context, userID domain.UserID, page, limit int) ([]domain.Call, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matches := lo.Filter(lo.Values(s.calls), func(c domain.Call, _ int) bool {
		return c.Status == domain.CallEnded && lo.Contains(c.Participants, userID)
	})
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].EndedAt.After(*matches[j].EndedAt)
	})
	total := int64(len(matches))
	start := (page - 1) * limit
	if start >= len(matches) {
		return []domain.Call{}, total, nil
	}
	return matches[start:min(start+limit, len(matches))], total, nil
}

func (s *MemoryStore) GetCall(_ context.Context, roomID domain.RoomID) (domain.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	call, ok := s.calls[roomID]
	if !ok {
		return domain.Call{}, ErrCallNotFound
	}
	return call, nil
}
