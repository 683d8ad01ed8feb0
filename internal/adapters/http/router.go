package http

import (
	"context"
	"net/http"
	"time"

	"github.com/dkeye/PartyCast/internal/adapters/signal"
	"github.com/dkeye/PartyCast/internal/config"
	"github.com/dkeye/PartyCast/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const HeaderLobbyName = "PartyCast-Lobby-Name"

// Lobby is the part of the party lobby the HTTP surface exposes.
type Lobby interface {
	signal.Lobby
	Title() string
	Snapshot() (protocol.Lobby, error)
}

// ArtworkStore resolves cached artwork refs to files.
type ArtworkStore interface {
	Artwork(ref string) (string, bool)
}

// SessionIDMiddleware stamps every request with a fresh id for log correlation.
func SessionIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("session_id", uuid.NewString())
		c.Next()
	}
}

func LobbyNameMiddleware(title string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header(HeaderLobbyName, title)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, lobby Lobby, art ArtworkStore) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(LobbyNameMiddleware(lobby.Title()))
	r.Use(SessionIDMiddleware())

	var limiter *signal.HandshakeLimiter
	if cfg.HandshakeLimit > 0 {
		limiter = signal.NewHandshakeLimiter(cfg.HandshakeLimit, cfg.HandshakeWindow)
	}
	ctrl := signal.NewSignalWSController(lobby, limiter, signal.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		SendBuffer: cfg.SendBuffer,
	})
	ws := func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("sid", c.GetString("session_id")).Msg("ws endpoint hit")
		ctrl.HandleSignal(ctx, c)
	}
	r.GET("/", ws)
	r.GET("/ws", ws)

	r.GET("/art/:ref", func(c *gin.Context) {
		path, ok := art.Artwork(c.Param("ref"))
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}
		c.Header("Cache-Control", "max-age=3600")
		c.File(path)
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	api := r.Group("/api")
	api.GET("/lobby", func(c *gin.Context) {
		snap, err := lobby.Snapshot()
		if err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Msg("snapshot")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, snap)
	})

	log.Info().Str("module", "adapters.http").Str("title", lobby.Title()).Msg("router setup")
	return r
}
