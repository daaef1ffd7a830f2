// Package signal is the per-connection session gateway: it upgrades
// HTTP requests to websocket connections, pumps frames in and out, and
// dispatches inbound events to the lifecycle manager and the router.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/parleyhq/parley/internal/app"
	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/core"
	"github.com/parleyhq/parley/internal/domain"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

type Controller struct {
	Lifecycle *app.Lifecycle
	Router    *app.Router
	Registry  *app.Registry
	Cfg       *config.Config
}

func NewController(cfg *config.Config, lifecycle *app.Lifecycle, router *app.Router, registry *app.Registry) *Controller {
	return &Controller{Lifecycle: lifecycle, Router: router, Registry: registry, Cfg: cfg}
}

// wsConn adapts a gorilla connection to core.SignalConnection. The send
// channel is the per-recipient FIFO buffer; a full buffer fails fast
// instead of blocking the caller.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the connection until it
// drops. Every websocket connection gets a fresh connection ID; a
// reconnecting client comes back as a new connection that rebinds its
// roster entry on join.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	connID := domain.ConnID(uuid.NewString())
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(connID)).Msg("new WS connection")

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, connID, conn)
	go ctl.readPump(ctx, cancel, connID, conn)
}

func (ctl *Controller) sendEvent(conn core.SignalConnection, kind core.EventKind, payload any) {
	frame, err := core.Encode(kind, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("kind", string(kind)).Msg("encode event")
		return
	}
	if err := conn.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("kind", string(kind)).Msg("send event")
	}
}

func (ctl *Controller) sendError(conn core.SignalConnection, message string) {
	ctl.sendEvent(conn, core.EventError, core.ErrorPayload{Message: message})
}
