package handlers

import (
	"net/http"

	"idle_tapper/internal/service"

	"github.com/gin-gonic/gin"
)

// State returns the main screen view for the caller.
func (h *Handler) State(c *gin.Context) {
	h.withSession(c, func(s *service.Session) error {
		c.JSON(http.StatusOK, s.View())
		return nil
	})
}

type TapRequest struct {
	Count int64 `json:"count"`
}

// Tap applies a batch of taps. An empty body counts as one tap; larger
// batches are capped by the economy rules.
func (h *Handler) Tap(c *gin.Context) {
	req := TapRequest{Count: 1}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}
	}
	h.withSession(c, func(s *service.Session) error {
		out, err := s.Tap(req.Count)
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, out)
		return nil
	})
}

type NavigateRequest struct {
	Tab string `json:"tab" binding:"required,max=32"`
}

// Navigate relays a tab switch to the player's other connected clients.
func (h *Handler) Navigate(c *gin.Context) {
	var req NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tab required"})
		return
	}
	h.withSession(c, func(s *service.Session) error {
		s.Navigate(req.Tab)
		c.Status(http.StatusNoContent)
		return nil
	})
}

// Catalog lists the shop, packs, regions and achievements.
func (h *Handler) Catalog(c *gin.Context) {
	cat := h.Sessions.Catalog()
	c.JSON(http.StatusOK, gin.H{
		"suits":        cat.Suits,
		"pets":         cat.Pets,
		"packs":        cat.Packs,
		"regions":      cat.Regions,
		"upgrades":     cat.Upgrades,
		"achievements": cat.Achievements,
	})
}
