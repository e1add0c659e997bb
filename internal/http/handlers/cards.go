package handlers

import (
	"net/http"

	"idle_tapper/internal/economy"
	"idle_tapper/internal/service"

	"github.com/gin-gonic/gin"
)

// OpenPack spends coupons on :pack and returns the drawn cards.
func (h *Handler) OpenPack(c *gin.Context) {
	pack := c.Param("pack")
	h.withSession(c, func(s *service.Session) error {
		cards, err := s.OpenPack(c.Request.Context(), pack)
		if err != nil {
			return err
		}
		v := s.View()
		c.JSON(http.StatusOK, gin.H{
			"cards":    cards,
			"coupons":  v.Coupons,
			"cardMult": v.Multipliers.CardMultAll,
		})
		return nil
	})
}

// GetCards returns the collection with per-rarity counts.
func (h *Handler) GetCards(c *gin.Context) {
	h.withSession(c, func(s *service.Session) error {
		col, counts := s.Cards()
		c.JSON(http.StatusOK, gin.H{
			"cards":    col.Cards,
			"counts":   counts,
			"cardMult": economy.CardMultFromCounts(counts),
		})
		return nil
	})
}
