package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/parleyhq/parley/internal/core"
	"github.com/parleyhq/parley/internal/domain"
)

func (ctl *Controller) writePump(ctx context.Context, connID domain.ConnID, c *wsConn) {
	ticker := time.NewTicker(ctl.Cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Cfg.WriteTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("conn", string(connID)).Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Cfg.WriteTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("conn", string(connID)).Msg("writePump write error")
				return
			}
		}
	}
}

// readPump owns the connection lifetime. Whatever ends the loop - peer
// close, read error, server shutdown - disconnect cleanup runs exactly
// once from its defer.
func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, connID domain.ConnID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(connID)).Msg("connection closing")
		cancel()
		c.Close()
		ctl.Lifecycle.HandleDisconnect(connID)
	}()

	// A peer that vanishes without closing the TCP stream never errors
	// the read on its own. The deadline brackets each awaited pong, so a
	// dead peer is detected within PongWait of its last sign of life.
	c.conn.SetReadLimit(ctl.Cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.Cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.Cfg.PongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Debug().Err(err).Str("module", "signal").Str("conn", string(connID)).Msg("readPump read error")
				}
				return
			}
			ctl.handleFrame(connID, c, data)
		}
	}
}

func (ctl *Controller) handleFrame(connID domain.ConnID, c core.SignalConnection, data []byte) {
	env, err := core.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(connID)).Msg("bad inbound frame")
		ctl.sendError(c, "malformed event")
		return
	}

	switch env.Event {
	case core.EventJoinRoom:
		ctl.handleJoinRoom(connID, c, env.Data)
	case core.EventLeaveRoom:
		ctl.handleLeaveRoom(connID, c)
	case core.EventOffer:
		ctl.handleOffer(connID, c, env.Data)
	case core.EventAnswer:
		ctl.handleAnswer(connID, c, env.Data)
	case core.EventICECandidate:
		ctl.handleCandidate(connID, c, env.Data)
	case core.EventStartRecording:
		ctl.handleRecording(connID, c, core.EventStartRecording, env.Data)
	case core.EventStopRecording:
		ctl.handleRecording(connID, c, core.EventStopRecording, env.Data)
	case core.EventRoomJoined, core.EventUserJoined, core.EventUserLeft, core.EventError:
		// server-to-client kinds, already rejected by Decode
	}
}
