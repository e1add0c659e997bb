package handlers

import (
	"errors"
	"net/http"

	"idle_tapper/internal/auth"
	"idle_tapper/internal/economy"
	"idle_tapper/internal/http/middleware"
	"idle_tapper/internal/logger"
	"idle_tapper/internal/repository"
	"idle_tapper/internal/save"
	"idle_tapper/internal/service"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Sessions  *service.Sessions
	Authn     *auth.Authenticator
	// Snapshots is nil when no database is configured.
	Snapshots *repository.SnapshotRepository
	Audit     *service.AuditService
}

func NewHandler(sessions *service.Sessions, authn *auth.Authenticator, snapshots *repository.SnapshotRepository, audit *service.AuditService) *Handler {
	return &Handler{
		Sessions:  sessions,
		Authn:     authn,
		Snapshots: snapshots,
		Audit:     audit,
	}
}

// getUserID reads the player id the JWT middleware stored on the context.
func getUserID(c *gin.Context) (int64, bool) {
	uidVal, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return 0, false
	}
	switch v := uidVal.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// withSession runs fn against the caller's session. fn writes the success
// response itself; errors are mapped here. A session evicted between lookup
// and use is looked up once more.
func (h *Handler) withSession(c *gin.Context, fn func(s *service.Session) error) {
	playerID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	ctx := c.Request.Context()

	for attempt := 0; ; attempt++ {
		s, err := h.Sessions.Get(ctx, playerID)
		if err != nil {
			writeError(c, err)
			return
		}
		err = fn(s)
		if errors.Is(err, service.ErrSessionClosed) && attempt == 0 {
			continue
		}
		if err != nil {
			writeError(c, err)
		}
		return
	}
}

var (
	badRequest = []error{
		economy.ErrInsufficientFunds,
		economy.ErrInsufficientCoupons,
		economy.ErrMaxLevel,
		economy.ErrInvalidQuantity,
		economy.ErrRegionLocked,
		economy.ErrAlreadyOwned,
		economy.ErrNotOwned,
		economy.ErrAchievementLocked,
		economy.ErrAlreadyClaimed,
		economy.ErrTitleLocked,
		save.ErrInvalidImport,
	}
	notFound = []error{
		economy.ErrUnknownUpgrade,
		economy.ErrUnknownPack,
		economy.ErrUnknownCountry,
		economy.ErrUnknownItem,
	}
)

func writeError(c *gin.Context, err error) {
	for _, target := range badRequest {
		if errors.Is(err, target) {
			c.JSON(http.StatusBadRequest, gin.H{"error": target.Error()})
			return
		}
	}
	for _, target := range notFound {
		if errors.Is(err, target) {
			c.JSON(http.StatusNotFound, gin.H{"error": target.Error()})
			return
		}
	}
	if errors.Is(err, service.ErrSessionClosed) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session unavailable, retry"})
		return
	}
	logger.Error("request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
