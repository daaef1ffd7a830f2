package signal

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"github.com/parleyhq/parley/internal/core"
	"github.com/parleyhq/parley/internal/domain"
)

// roomOf resolves the sender's room and rejects relays into rooms the
// sender is not bound to.
func (ctl *Controller) roomOf(connID domain.ConnID, claimed string) (domain.RoomID, bool) {
	b, ok := ctl.Registry.Lookup(connID)
	if !ok {
		log.Debug().Str("module", "signal").Str("conn", string(connID)).Msg("relay from unbound connection")
		return "", false
	}
	if claimed != "" && claimed != string(b.RoomID) {
		log.Warn().Str("module", "signal").Str("conn", string(connID)).Str("claimed", claimed).Str("bound", string(b.RoomID)).Msg("relay into foreign room rejected")
		return "", false
	}
	return b.RoomID, true
}

func (ctl *Controller) handleOffer(connID domain.ConnID, _ core.SignalConnection, data []byte) {
	var p core.OfferPayload
	if err := jsoniter.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad offer payload")
		return
	}
	roomID, ok := ctl.roomOf(connID, p.RoomID)
	if !ok {
		return
	}
	target := domain.ConnID(p.TargetConnectionID)
	out := core.OfferPayload{Offer: p.Offer, SenderConnectionID: string(connID)}
	ctl.Router.Forward(core.EventOffer, out, roomID, connID, target)
}

func (ctl *Controller) handleAnswer(connID domain.ConnID, _ core.SignalConnection, data []byte) {
	var p core.AnswerPayload
	if err := jsoniter.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad answer payload")
		return
	}
	roomID, ok := ctl.roomOf(connID, p.RoomID)
	if !ok {
		return
	}
	target := domain.ConnID(p.TargetConnectionID)
	out := core.AnswerPayload{Answer: p.Answer, SenderConnectionID: string(connID)}
	ctl.Router.Forward(core.EventAnswer, out, roomID, connID, target)
}

func (ctl *Controller) handleCandidate(connID domain.ConnID, _ core.SignalConnection, data []byte) {
	var p core.ICECandidatePayload
	if err := jsoniter.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad candidate payload")
		return
	}
	roomID, ok := ctl.roomOf(connID, p.RoomID)
	if !ok {
		return
	}
	target := domain.ConnID(p.TargetConnectionID)
	out := core.ICECandidatePayload{Candidate: p.Candidate, SenderConnectionID: string(connID)}
	ctl.Router.Forward(core.EventICECandidate, out, roomID, connID, target)
}

func (ctl *Controller) handleRecording(connID domain.ConnID, _ core.SignalConnection, kind core.EventKind, data []byte) {
	var p core.RecordingPayload
	if err := jsoniter.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad recording payload")
		return
	}
	roomID, ok := ctl.roomOf(connID, p.RoomID)
	if !ok {
		return
	}
	out := core.RecordingPayload{RoomID: string(roomID), SenderConnectionID: string(connID)}
	ctl.Router.Forward(kind, out, roomID, connID, "")
}
