package app

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/parleyhq/parley/internal/domain"
)

func TestRoomStoreGetOrCreate(t *testing.T) {
	store := NewRoomStore(5)

	room := store.GetOrCreate("r1", "alice", 2)
	if room.Status != domain.RoomWaiting {
		t.Errorf("new room status = %s, want waiting", room.Status)
	}
	if room.MaxParticipants != 2 {
		t.Errorf("capacity = %d, want 2", room.MaxParticipants)
	}
	if len(room.Participants) != 1 || room.Participants[0].UserID != "alice" {
		t.Fatalf("creator not in roster: %+v", room.Participants)
	}
	if room.Participants[0].ConnID != "" {
		t.Error("creator should start without a live connection")
	}

	// idempotent: existing capacity and creator win
	again := store.GetOrCreate("r1", "bob", 10)
	if again.CreatedBy != "alice" || again.MaxParticipants != 2 {
		t.Errorf("existing room overwritten: creator=%s capacity=%d", again.CreatedBy, again.MaxParticipants)
	}

	defaulted := store.GetOrCreate("r2", "alice", 0)
	if defaulted.MaxParticipants != 5 {
		t.Errorf("default capacity = %d, want 5", defaulted.MaxParticipants)
	}
}

func TestRoomStoreJoin(t *testing.T) {
	store := NewRoomStore(5)
	store.GetOrCreate("r1", "alice", 2)

	if _, err := store.Join("missing", "bob", "c1"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("join missing room err = %v, want ErrRoomNotFound", err)
	}

	// creator connects: existing entry is rebound, not duplicated
	room, err := store.Join("r1", "alice", "c-alice")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if len(room.Participants) != 1 {
		t.Fatalf("roster has %d entries after creator connect, want 1", len(room.Participants))
	}
	if room.Participants[0].ConnID != "c-alice" {
		t.Errorf("creator connID = %s, want c-alice", room.Participants[0].ConnID)
	}
	if room.Status != domain.RoomWaiting {
		t.Errorf("status = %s, want waiting below capacity", room.Status)
	}

	room, err = store.Join("r1", "bob", "c-bob")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if room.Status != domain.RoomActive {
		t.Errorf("status at capacity = %s, want active", room.Status)
	}

	if _, err := store.Join("r1", "carol", "c-carol"); !errors.Is(err, domain.ErrRoomFull) {
		t.Errorf("join full room err = %v, want ErrRoomFull", err)
	}

	// a member reconnecting does not count against capacity
	room, err = store.Join("r1", "bob", "c-bob2")
	if err != nil {
		t.Fatalf("member rejoin: %v", err)
	}
	if p, _ := room.Member("bob"); p.ConnID != "c-bob2" {
		t.Errorf("rejoin did not rebind connection: %s", p.ConnID)
	}
}

func TestRoomStoreLeave(t *testing.T) {
	store := NewRoomStore(5)
	store.GetOrCreate("r1", "alice", 3)
	store.Join("r1", "alice", "c-alice")
	store.Join("r1", "bob", "c-bob")

	if _, _, err := store.Leave("missing", "c1"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("leave missing room err = %v, want ErrRoomNotFound", err)
	}

	room, removed, err := store.Leave("r1", "c-bob")
	if err != nil || !removed {
		t.Fatalf("Leave = removed %v err %v", removed, err)
	}
	if _, ok := room.Member("bob"); ok {
		t.Error("bob still in roster after leave")
	}
	if room.Status == domain.RoomEnded {
		t.Error("room ended while a participant remains")
	}

	// second leave with the same connection is a no-op
	_, removed, err = store.Leave("r1", "c-bob")
	if err != nil {
		t.Fatalf("repeat Leave: %v", err)
	}
	if removed {
		t.Error("repeat Leave reported a removal")
	}

	room, removed, _ = store.Leave("r1", "c-alice")
	if !removed {
		t.Fatal("final Leave did not remove")
	}
	if room.Status != domain.RoomEnded {
		t.Errorf("empty room status = %s, want ended", room.Status)
	}
}

func TestRoomStoreLeaveIgnoresOfflineMembers(t *testing.T) {
	store := NewRoomStore(5)
	store.GetOrCreate("r1", "alice", 3)
	store.Join("r1", "bob", "c-bob")

	// alice is a member with no connection; bob leaving must not touch her
	room, removed, err := store.Leave("r1", "c-bob")
	if err != nil || !removed {
		t.Fatalf("Leave = removed %v err %v", removed, err)
	}
	if _, ok := room.Member("alice"); !ok {
		t.Error("offline member removed by someone else's leave")
	}
	if room.Status == domain.RoomEnded {
		t.Error("room ended while an offline member remains in roster")
	}
}

func TestRoomStoreJoinOffline(t *testing.T) {
	store := NewRoomStore(5)
	store.GetOrCreate("r1", "alice", 2)

	room, err := store.JoinOffline("r1", "bob")
	if err != nil {
		t.Fatalf("JoinOffline: %v", err)
	}
	p, ok := room.Member("bob")
	if !ok || p.ConnID != "" {
		t.Fatalf("offline member wrong: %+v ok=%v", p, ok)
	}

	// repeat pre-join is a no-op
	room, err = store.JoinOffline("r1", "bob")
	if err != nil || len(room.Participants) != 2 {
		t.Fatalf("repeat JoinOffline: err=%v roster=%d", err, len(room.Participants))
	}

	if _, err := store.JoinOffline("r1", "carol"); !errors.Is(err, domain.ErrRoomFull) {
		t.Errorf("offline join past capacity err = %v, want ErrRoomFull", err)
	}
}

// Concurrent joins racing for the final slots must never push the
// roster past capacity, and exactly capacity joins may win.
func TestRoomStoreConcurrentJoinCapacity(t *testing.T) {
	const capacity = 4
	const contenders = 32

	store := NewRoomStore(5)
	store.GetOrCreate("race", "owner", capacity)
	// the owner entry occupies one slot; contenders fight for the rest

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := domain.UserID(fmt.Sprintf("user-%d", i))
			conn := domain.ConnID(fmt.Sprintf("conn-%d", i))
			if _, err := store.Join("race", user, conn); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else if !errors.Is(err, domain.ErrRoomFull) {
				t.Errorf("unexpected join error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if wins != capacity-1 {
		t.Errorf("%d concurrent joins won, want %d", wins, capacity-1)
	}
	room, _ := store.Get("race")
	if len(room.Participants) != capacity {
		t.Errorf("roster = %d entries, want %d", len(room.Participants), capacity)
	}
	if room.Status != domain.RoomActive {
		t.Errorf("status = %s, want active at capacity", room.Status)
	}
}

func TestRoomStoreSweepEnded(t *testing.T) {
	store := NewRoomStore(5)
	store.GetOrCreate("live", "alice", 2)
	store.GetOrCreate("dead", "bob", 2)
	store.Join("dead", "bob", "c-bob")
	store.Leave("dead", "c-bob")

	if n := store.SweepEnded(); n != 1 {
		t.Errorf("SweepEnded = %d, want 1", n)
	}
	if _, ok := store.Get("dead"); ok {
		t.Error("ended room survived the sweep")
	}
	if _, ok := store.Get("live"); !ok {
		t.Error("live room evicted by the sweep")
	}
}
