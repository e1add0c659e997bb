package handlers

import (
	"io"
	"net/http"
	"strconv"

	"idle_tapper/internal/domain"
	"idle_tapper/internal/service"

	"github.com/gin-gonic/gin"
)

const maxImportSize = 1 << 20

// ExportSave downloads the player's save as JSON.
func (h *Handler) ExportSave(c *gin.Context) {
	h.withSession(c, func(s *service.Session) error {
		data, err := s.Export(c.Request.Context())
		if err != nil {
			return err
		}
		name := "save-" + strconv.FormatInt(s.PlayerID(), 10) + ".json"
		c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
		c.Data(http.StatusOK, "application/json", data)
		return nil
	})
}

// ImportSave replaces the save with the uploaded JSON body. Out-of-range
// values are clamped and counted in "fixes".
func (h *Handler) ImportSave(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	if len(data) > maxImportSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "save too large"})
		return
	}

	h.withSession(c, func(s *service.Session) error {
		fixes, err := s.Import(c.Request.Context(), data)
		if err != nil {
			return err
		}
		v := s.View()
		h.Audit.LogWithRequest(c.Request.Context(), s.PlayerID(), domain.AuditActionImport,
			c.ClientIP(), c.Request.UserAgent(), map[string]any{
				"fixes":    fixes,
				"bytes":    len(data),
				"revision": v.State.Revision,
				"balance":  v.State.Balance,
			})
		c.JSON(http.StatusOK, gin.H{"fixes": fixes, "view": v})
		return nil
	})
}

// ResetSave wipes the save back to defaults.
func (h *Handler) ResetSave(c *gin.Context) {
	h.withSession(c, func(s *service.Session) error {
		before := s.View().State
		if err := s.Reset(c.Request.Context()); err != nil {
			return err
		}
		v := s.View()
		h.Audit.LogWithRequest(c.Request.Context(), s.PlayerID(), domain.AuditActionReset,
			c.ClientIP(), c.Request.UserAgent(), map[string]any{
				"revision":       v.State.Revision,
				"lost_balance":   before.Balance,
				"lost_earnings":  before.TotalEarnings,
				"lost_cards":     len(before.Collection.Cards),
				"lost_countries": len(before.Owned),
			})
		c.JSON(http.StatusOK, gin.H{"view": v})
		return nil
	})
}

// SaveHistory lists the caller's recorded imports and resets.
func (h *Handler) SaveHistory(c *gin.Context) {
	if !h.Audit.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history unavailable"})
		return
	}
	playerID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	entries, err := h.Audit.History(c.Request.Context(), playerID, 50)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}
