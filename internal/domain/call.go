package domain

import "time"

type CallStatus string

const (
	CallActive     CallStatus = "active"
	CallProcessing CallStatus = "processing"
	CallEnded      CallStatus = "ended"
)

// CallSummary holds the post-processing artifacts attached to a call by
// the downstream pipeline. The signaling core never writes these.
type CallSummary struct {
	Overview    string   `json:"overview,omitempty"`
	KeyPoints   []string `json:"keyPoints,omitempty"`
	Decisions   []string `json:"decisions,omitempty"`
	ActionItems []string `json:"actionItems,omitempty"`
}

// Call is the durable record of one call, owned by the persistence
// collaborator. The core only drives its status transitions.
type Call struct {
	RoomID       RoomID        `json:"roomId"`
	Participants []UserID      `json:"participants"`
	Status       CallStatus    `json:"status"`
	StartedAt    time.Time     `json:"startedAt"`
	EndedAt      *time.Time    `json:"endedAt,omitempty"`
	Duration     time.Duration `json:"duration"`
	AudioURL     string        `json:"audioUrl,omitempty"`
	VideoURL     string        `json:"videoUrl,omitempty"`
	Transcript   string        `json:"transcript,omitempty"`
	Summary      *CallSummary  `json:"summary,omitempty"`
}
