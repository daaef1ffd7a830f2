package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/internal/persistence"
)

type createRoomRequest struct {
	RoomID          string `json:"roomId"`
	MaxParticipants int    `json:"maxParticipants"`
}

type roomInfo struct {
	RoomID          string            `json:"roomId"`
	Status          domain.RoomStatus `json:"status"`
	Participants    int               `json:"participants"`
	MaxParticipants int               `json:"maxParticipants"`
}

func toRoomInfo(room domain.Room) roomInfo {
	return roomInfo{
		RoomID:          string(room.ID),
		Status:          room.Status,
		Participants:    len(room.Participants),
		MaxParticipants: room.MaxParticipants,
	}
}

// handleCreateRoom opens a room (idempotent per roomId) and its call
// record. Clients connect to the room over the signal websocket
// afterwards; join-room on a room nobody created fails.
func (a *API) handleCreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	userID := domain.UserID(c.GetString("user_id"))
	roomID := domain.RoomID(req.RoomID)
	if roomID == "" {
		roomID = domain.RoomID(uuid.NewString())
	}

	room := a.Rooms.GetOrCreate(roomID, userID, req.MaxParticipants)
	if err := a.Calls.CreateRoom(c.Request.Context(), room); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("room", string(roomID)).Msg("persist room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Room created successfully",
		"room":    toRoomInfo(room),
	})
}

func (a *API) handleListRooms(c *gin.Context) {
	rooms := lo.Map(a.Rooms.List(), func(room domain.Room, _ int) roomInfo {
		return toRoomInfo(room)
	})
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (a *API) handleGetRoom(c *gin.Context) {
	roomID := domain.RoomID(c.Param("roomId"))
	room, ok := a.Rooms.Get(roomID)
	if !ok {
		// Ended rooms get swept from memory; their call records are
		// durable and stay readable.
		call, err := a.Calls.GetCall(c.Request.Context(), roomID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"call": call})
		return
	}
	resp := gin.H{"room": toRoomInfo(room)}
	if call, err := a.Calls.GetCall(c.Request.Context(), roomID); err == nil {
		resp["call"] = call
	}
	c.JSON(http.StatusOK, resp)
}

// handleJoinRoom reserves a roster slot before the websocket connects.
// The member sits in the roster with no connection until its join-room
// event binds one.
func (a *API) handleJoinRoom(c *gin.Context) {
	roomID := domain.RoomID(c.Param("roomId"))
	userID := domain.UserID(c.GetString("user_id"))

	room, err := a.Rooms.JoinOffline(roomID, userID)
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	case errors.Is(err, domain.ErrRoomFull):
		c.JSON(http.StatusConflict, gin.H{"error": "room is full"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join room"})
		return
	}

	users := lo.Map(room.Participants, func(p domain.Participant, _ int) domain.UserID { return p.UserID })
	if err := a.Calls.UpsertCallParticipants(c.Request.Context(), roomID, users); err != nil && !errors.Is(err, persistence.ErrCallNotFound) {
		log.Warn().Err(err).Str("module", "adapters.http").Str("room", string(roomID)).Msg("upsert call participants")
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Joined room successfully",
		"room":    toRoomInfo(room),
	})
}
