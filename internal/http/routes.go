package http

import (
	"time"

	"idle_tapper/internal/http/handlers"
	"idle_tapper/internal/http/middleware"
	"idle_tapper/internal/ws"

	"github.com/gin-gonic/gin"
)

// Limits are requests per window. Zero values take the defaults below.
type Limits struct {
	API        int
	APIWindow  time.Duration
	Auth       int
	AuthWindow time.Duration
	Tap        int
	TapWindow  time.Duration
}

func (l *Limits) defaults() {
	if l.API <= 0 {
		l.API = 120
	}
	if l.APIWindow <= 0 {
		l.APIWindow = time.Minute
	}
	if l.Auth <= 0 {
		l.Auth = 10
	}
	if l.AuthWindow <= 0 {
		l.AuthWindow = time.Minute
	}
	if l.Tap <= 0 {
		l.Tap = 600
	}
	if l.TapWindow <= 0 {
		l.TapWindow = time.Minute
	}
}

type Deps struct {
	Handler       *handlers.Handler
	Health        *handlers.HealthHandler
	Hub           *ws.Hub
	Limits        Limits
	AllowedOrigin string
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	d.Limits.defaults()
	h := d.Handler

	// Health checks (no rate limiting)
	r.GET("/health", d.Health.Health)
	r.GET("/healthz", d.Health.Liveness)
	r.GET("/readyz", d.Health.Readiness)

	// Push channel; authenticates with ?token=
	r.GET("/ws", h.WS(d.Hub, d.AllowedOrigin))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(d.Limits.API, d.Limits.APIWindow))

	v1.POST("/auth", middleware.RedisRateLimit(d.Limits.Auth, d.Limits.AuthWindow), h.Auth)
	v1.GET("/catalog", h.Catalog)
	v1.GET("/leaderboard", h.GetLeaderboard)

	player := v1.Group("")
	player.Use(middleware.JWT(h.Authn))
	{
		player.GET("/state", h.State)
		player.POST("/tap", middleware.TapRateLimit(d.Limits.Tap, d.Limits.TapWindow), h.Tap)
		player.POST("/navigate", h.Navigate)

		player.GET("/upgrades", h.GetUpgrades)
		player.POST("/upgrades/:kind", h.BuyUpgrade)

		player.POST("/packs/:pack/open", h.OpenPack)
		player.GET("/cards", h.GetCards)

		player.POST("/suits/:id/buy", h.BuySuit)
		player.POST("/suits/:id/equip", h.EquipSuit)
		player.POST("/pets/:id/buy", h.BuyPet)
		player.POST("/pets/:id/equip", h.EquipPet)

		player.GET("/map", h.GetMap)
		player.POST("/map/:code/conquer", h.Conquer)

		player.GET("/achievements", h.GetAchievements)
		player.POST("/achievements/:id/claim", h.ClaimAchievement)
		player.POST("/titles/:id/equip", h.EquipTitle)

		player.GET("/save/export", h.ExportSave)
		player.POST("/save/import", h.ImportSave)
		player.POST("/save/reset", h.ResetSave)
		player.GET("/save/history", h.SaveHistory)
	}
}
