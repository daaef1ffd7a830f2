// Package persistence owns the durable room and call records. The
// signaling core drives status transitions through the Store interface
// and never touches storage directly; post-processing artifacts
// (recordings, transcripts, summaries) are written by a downstream
// pipeline outside this service.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/parleyhq/parley/internal/domain"
)

var ErrCallNotFound = errors.New("call not found")

type Store interface {
	// CreateRoom records a new room and opens its call record.
	CreateRoom(ctx context.Context, room domain.Room) error
	// FinalizeRoom marks the room record ended.
	FinalizeRoom(ctx context.Context, roomID domain.RoomID) error
	// UpsertCallParticipants merges the given users into the call's
	// participant list, keeping users who already left.
	UpsertCallParticipants(ctx context.Context, roomID domain.RoomID, participants []domain.UserID) error
	// MarkCallEnded closes the call record with its end time and duration.
	MarkCallEnded(ctx context.Context, roomID domain.RoomID, endedAt time.Time, duration time.Duration) error
	// GetCall returns the call record for a room.
	GetCall(ctx context.Context, roomID domain.RoomID) (domain.Call, error)
	// ListEndedCalls pages through the finished calls a user took part
	// in, most recently ended first. Returns the page and the total
	// number of matches. page and limit must be positive.
	ListEndedCalls(ctx context.Context, userID domain.UserID, page, limit int) ([]domain.Call, int64, error)
}
