// Package domain contains entities without logic, just meta-data.
package domain

import (
	"errors"
	"time"
)

type (
	RoomID string
	UserID string
	ConnID string
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrDuplicateBinding = errors.New("connection already bound")
)

type RoomStatus string

const (
	RoomWaiting RoomStatus = "waiting"
	RoomActive  RoomStatus = "active"
	RoomEnded   RoomStatus = "ended"
)

// Participant is one roster entry. ConnID is empty while the user is a
// recognized member without a live connection (HTTP pre-join, reconnect
// window).
type Participant struct {
	UserID   UserID    `json:"userId"`
	ConnID   ConnID    `json:"connectionId,omitempty"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Room is a snapshot of a room record. Mutation happens only inside the
// room store; callers always receive value copies.
type Room struct {
	ID              RoomID        `json:"roomId"`
	CreatedBy       UserID        `json:"createdBy"`
	Participants    []Participant `json:"participants"`
	Status          RoomStatus    `json:"status"`
	MaxParticipants int           `json:"maxParticipants"`
	CreatedAt       time.Time     `json:"createdAt"`
}

// Member returns the roster entry for userID, if any.
func (r Room) Member(userID UserID) (Participant, bool) {
	for _, p := range r.Participants {
		if p.UserID == userID {
			return p, true
		}
	}
	return Participant{}, false
}

// Connected counts participants with a live connection.
func (r Room) Connected() int {
	n := 0
	for _, p := range r.Participants {
		if p.ConnID != "" {
			n++
		}
	}
	return n
}
