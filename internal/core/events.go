package core

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/pion/webrtc/v4"

	"github.com/parleyhq/parley/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EventKind is the closed set of signaling event names. Dispatch on it
// is exhaustive; an unknown name is rejected at decode time instead of
// being silently ignored somewhere downstream.
type EventKind string

const (
	// client -> server
	EventJoinRoom  EventKind = "join-room"
	EventLeaveRoom EventKind = "leave-room"

	// relayed both directions
	EventOffer          EventKind = "offer"
	EventAnswer         EventKind = "answer"
	EventICECandidate   EventKind = "ice-candidate"
	EventStartRecording EventKind = "start-recording"
	EventStopRecording  EventKind = "stop-recording"

	// server -> client
	EventRoomJoined EventKind = "room-joined"
	EventUserJoined EventKind = "user-joined"
	EventUserLeft   EventKind = "user-left"
	EventError      EventKind = "error"
)

// Inbound returns whether clients are allowed to send this kind.
func (k EventKind) Inbound() bool {
	switch k {
	case EventJoinRoom, EventLeaveRoom, EventOffer, EventAnswer,
		EventICECandidate, EventStartRecording, EventStopRecording:
		return true
	case EventRoomJoined, EventUserJoined, EventUserLeft, EventError:
		return false
	}
	return false
}

// Envelope is the wire shape of every event: a name plus an opaque
// payload. The router never looks inside Data.
type Envelope struct {
	Event EventKind           `json:"event"`
	Data  jsoniter.RawMessage `json:"data,omitempty"`
}

// Encode marshals an outbound event into a single frame. Payloads are
// marshaled once per forward, not once per recipient.
func Encode(kind EventKind, payload any) (Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	frame, err := json.Marshal(Envelope{Event: kind, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", kind, err)
	}
	return frame, nil
}

// Decode parses an inbound frame and rejects names outside the closed
// client-to-server set.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	if !env.Event.Inbound() {
		return env, fmt.Errorf("unknown inbound event %q", env.Event)
	}
	return env, nil
}

// JoinRoom / LeaveRoom are the membership requests.
type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

type LeaveRoomPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId,omitempty"`
}

// OfferPayload carries an SDP offer. RoomID and TargetConnectionID are
// routing hints consumed by the gateway; SenderConnectionID is set on
// the relayed copy.
type OfferPayload struct {
	RoomID             string                    `json:"roomId,omitempty"`
	Offer              webrtc.SessionDescription `json:"offer"`
	TargetConnectionID string                    `json:"targetConnectionId,omitempty"`
	SenderConnectionID string                    `json:"senderConnectionId,omitempty"`
}

type AnswerPayload struct {
	RoomID             string                    `json:"roomId,omitempty"`
	Answer             webrtc.SessionDescription `json:"answer"`
	TargetConnectionID string                    `json:"targetConnectionId,omitempty"`
	SenderConnectionID string                    `json:"senderConnectionId,omitempty"`
}

type ICECandidatePayload struct {
	RoomID             string                  `json:"roomId,omitempty"`
	Candidate          webrtc.ICECandidateInit `json:"candidate"`
	TargetConnectionID string                  `json:"targetConnectionId,omitempty"`
	SenderConnectionID string                  `json:"senderConnectionId,omitempty"`
}

// RecordingPayload covers start-recording and stop-recording.
type RecordingPayload struct {
	RoomID             string `json:"roomId"`
	SenderConnectionID string `json:"senderConnectionId,omitempty"`
}

// RoomJoinedPayload is the roster snapshot sent to a joining client.
type RoomJoinedPayload struct {
	RoomID       string               `json:"roomId"`
	Status       domain.RoomStatus    `json:"status"`
	Participants []domain.Participant `json:"participants"`
}

type UserJoinedPayload struct {
	ConnectionID string `json:"connectionId"`
	UserID       string `json:"userId"`
}

type UserLeftPayload struct {
	ConnectionID string `json:"connectionId"`
	UserID       string `json:"userId,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
