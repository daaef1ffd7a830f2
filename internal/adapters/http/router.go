package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/parleyhq/parley/internal/adapters/signal"
	"github.com/parleyhq/parley/internal/app"
	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/persistence"
)

// API holds the handler dependencies for the HTTP surface.
type API struct {
	Cfg   *config.Config
	Rooms *app.RoomStore
	Calls persistence.Store
}

func SetupRouter(ctx context.Context, cfg *config.Config, api *API, lifecycle *app.Lifecycle, sigRouter *app.Router, registry *app.Registry) *gin.Engine {
	ctl := signal.NewController(cfg, lifecycle, sigRouter, registry)

	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("ParleySessions", store))

	log.Info().Str("module", "adapters.http").Msg("router setup")

	apiGroup := r.Group("/api")
	apiGroup.POST("/auth/guest", api.handleGuest)

	authed := apiGroup.Group("", AuthRequired(cfg.Secret))
	authed.POST("/rooms", api.handleCreateRoom)
	authed.GET("/rooms", api.handleListRooms)
	authed.GET("/rooms/:roomId", api.handleGetRoom)
	authed.POST("/rooms/:roomId/join", api.handleJoinRoom)
	authed.GET("/calls", api.handleCallHistory)

	authed.GET("/ws/signal", func(c *gin.Context) {
		ctl.HandleSignal(ctx, c)
	})

	return r
}
