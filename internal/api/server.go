// Package api is the HTTP control surface: the narrow contract UIs consume
// instead of touching the player, repository or explore flow directly.
package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/MasterOfPuppets/wradio/internal/api/middleware"
	"github.com/MasterOfPuppets/wradio/internal/client"
	"github.com/MasterOfPuppets/wradio/internal/config"
	"github.com/MasterOfPuppets/wradio/internal/explore"
	"github.com/MasterOfPuppets/wradio/internal/prefs"
	"github.com/MasterOfPuppets/wradio/internal/station"
)

type Server struct {
	cfg     *config.Config
	repo    *station.Repository
	player  *client.Client
	explore *explore.Controller
	prefs   *prefs.Store
	router  *gin.Engine
}

func New(cfg *config.Config, repo *station.Repository, player *client.Client, exp *explore.Controller, prefStore *prefs.Store) *Server {
	if cfg.Player.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:     cfg,
		repo:    repo,
		player:  player,
		explore: exp,
		prefs:   prefStore,
		router:  gin.Default(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	// CORS Configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}

	s.router.Use(cors.New(corsConfig))
}

func (s *Server) setupRoutes() {
	// Health Check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "wradio"})
	})

	// API Group
	v1 := s.router.Group("/api/v1")
	if s.cfg.API.AuthSecret != "" {
		v1.Use(middleware.RequireAuth([]byte(s.cfg.API.AuthSecret)))
	}
	{
		// Player
		v1.GET("/state", s.GetState)
		v1.GET("/state/stream", s.StreamState)
		v1.POST("/play", s.Play)
		v1.POST("/resume", s.Resume)
		v1.POST("/pause", s.Pause)
		v1.POST("/stop", s.Stop)
		v1.POST("/error/clear", s.ClearError)

		// Library
		v1.GET("/stations", s.GetStations)
		v1.POST("/stations", s.AddStation)
		v1.PUT("/stations/:uuid", s.UpdateStation)
		v1.DELETE("/stations/:uuid", s.DeleteStation)
		v1.DELETE("/stations", s.DeleteAllStations)

		// Explore
		v1.GET("/explore", s.GetExplore)
		v1.POST("/explore/search", s.ExploreSearch)
		v1.POST("/explore/import", s.ExploreImport)

		// Settings
		v1.GET("/settings/buffer", s.GetBufferSeconds)
		v1.PUT("/settings/buffer", s.SetBufferSeconds)
		v1.POST("/settings/reset", s.ResetSettings)
	}
}

// Start runs the server on the configured port
func (s *Server) Start(addr string) error {
	return s.router.Run(addr)
}
