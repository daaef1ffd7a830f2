package signal

import (
	"errors"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"github.com/parleyhq/parley/internal/core"
	"github.com/parleyhq/parley/internal/domain"
)

func (ctl *Controller) handleJoinRoom(connID domain.ConnID, c core.SignalConnection, data []byte) {
	var p core.JoinRoomPayload
	if err := jsoniter.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(c, "bad payload")
		return
	}
	if p.RoomID == "" || p.UserID == "" {
		ctl.sendError(c, "roomId and userId are required")
		return
	}

	_, err := ctl.Lifecycle.HandleJoin(connID, domain.RoomID(p.RoomID), domain.UserID(p.UserID), c)
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		ctl.sendError(c, "Room not found")
	case errors.Is(err, domain.ErrRoomFull):
		ctl.sendError(c, "Room is full")
	case errors.Is(err, domain.ErrDuplicateBinding):
		ctl.sendError(c, "Already in a room")
	case err != nil:
		log.Error().Err(err).Str("module", "signal").Str("conn", string(connID)).Msg("join failed")
		ctl.sendError(c, "Failed to join room")
	}
}

func (ctl *Controller) handleLeaveRoom(connID domain.ConnID, _ core.SignalConnection) {
	// The leave-room payload names a room and user, but the connection
	// alone is authoritative for which roster entry goes away.
	ctl.Lifecycle.HandleLeave(connID)
}
