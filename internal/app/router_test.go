package app

import (
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/pion/webrtc/v4"

	"github.com/parleyhq/parley/internal/core"
	"github.com/parleyhq/parley/internal/domain"
)

func setupRoomConns(t *testing.T, reg *Registry, roomID domain.RoomID, ids ...domain.ConnID) map[domain.ConnID]*fakeConn {
	t.Helper()
	conns := make(map[domain.ConnID]*fakeConn, len(ids))
	for _, id := range ids {
		conn := &fakeConn{}
		if err := reg.Bind(id, roomID, domain.UserID("user-"+id), conn); err != nil {
			t.Fatalf("Bind(%s): %v", id, err)
		}
		conns[id] = conn
	}
	return conns
}

func TestRouterTargetedForward(t *testing.T) {
	reg := NewRegistry()
	router := NewRouter(reg)
	conns := setupRoomConns(t, reg, "r1", "a", "b", "c")

	payload := core.OfferPayload{Offer: webrtc.SessionDescription{Type: webrtc.SDPTypeOffer}, SenderConnectionID: "a"}
	router.Forward(core.EventOffer, payload, "r1", "a", "b")

	if got := len(conns["b"].frames); got != 1 {
		t.Fatalf("target received %d frames, want 1", got)
	}
	for _, id := range []domain.ConnID{"a", "c"} {
		if got := len(conns[id].frames); got != 0 {
			t.Errorf("connection %s received %d frames, want 0", id, got)
		}
	}

	env := conns["b"].events()[0]
	if env.Event != core.EventOffer {
		t.Errorf("delivered kind = %s, want offer", env.Event)
	}
	var relayed core.OfferPayload
	if err := jsoniter.Unmarshal(env.Data, &relayed); err != nil {
		t.Fatalf("decode relayed payload: %v", err)
	}
	if relayed.SenderConnectionID != "a" {
		t.Errorf("senderConnectionId = %q, want a", relayed.SenderConnectionID)
	}
}

func TestRouterBroadcastExcludesSender(t *testing.T) {
	reg := NewRegistry()
	router := NewRouter(reg)
	conns := setupRoomConns(t, reg, "r1", "a", "b", "c")
	outsider := setupRoomConns(t, reg, "r2", "x")

	router.Forward(core.EventICECandidate, core.ICECandidatePayload{SenderConnectionID: "a"}, "r1", "a", "")

	if got := len(conns["a"].frames); got != 0 {
		t.Errorf("sender received its own broadcast (%d frames)", got)
	}
	for _, id := range []domain.ConnID{"b", "c"} {
		if got := len(conns[id].frames); got != 1 {
			t.Errorf("room member %s received %d frames, want 1", id, got)
		}
	}
	if got := len(outsider["x"].frames); got != 0 {
		t.Errorf("member of another room received %d frames, want 0", got)
	}
}

func TestRouterTargetGoneIsSilent(t *testing.T) {
	reg := NewRegistry()
	router := NewRouter(reg)
	conns := setupRoomConns(t, reg, "r1", "a", "b")

	// never-bound target
	router.Forward(core.EventAnswer, core.AnswerPayload{}, "r1", "a", "ghost")
	// target bound to a different room
	setupRoomConns(t, reg, "r2", "far")
	router.Forward(core.EventAnswer, core.AnswerPayload{}, "r1", "a", "far")

	for id, conn := range conns {
		if got := len(conn.frames); got != 0 {
			t.Errorf("connection %s received %d frames from dropped forwards", id, got)
		}
	}
}

func TestRouterSlowReceiverIsolated(t *testing.T) {
	reg := NewRegistry()
	router := NewRouter(reg)
	conns := setupRoomConns(t, reg, "r1", "a", "b", "c", "d")
	conns["b"].fail = true

	router.Forward(core.EventStartRecording, core.RecordingPayload{RoomID: "r1"}, "r1", "a", "")

	for _, id := range []domain.ConnID{"c", "d"} {
		if got := len(conns[id].frames); got != 1 {
			t.Errorf("healthy member %s received %d frames, want 1", id, got)
		}
	}
	if got := len(conns["a"].frames); got != 0 {
		t.Errorf("sender saw %d frames, want 0", got)
	}
}
