package handlers

import (
	"net/http"

	"idle_tapper/internal/economy"
	"idle_tapper/internal/service"

	"github.com/gin-gonic/gin"
)

// GetUpgrades returns the price of the next level for every upgrade.
func (h *Handler) GetUpgrades(c *gin.Context) {
	h.withSession(c, func(s *service.Session) error {
		c.JSON(http.StatusOK, gin.H{"upgrades": s.Upgrades()})
		return nil
	})
}

// maxUpgradeQty bounds one purchase; no upgrade has more levels than this.
const maxUpgradeQty = 1000

type BuyUpgradeRequest struct {
	Qty int `json:"qty"`
}

// BuyUpgrade buys qty levels of :kind. qty defaults to 1.
func (h *Handler) BuyUpgrade(c *gin.Context) {
	req := BuyUpgradeRequest{Qty: 1}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}
	}
	if req.Qty > maxUpgradeQty {
		c.JSON(http.StatusBadRequest, gin.H{"error": economy.ErrMaxLevel.Error()})
		return
	}
	kind := economy.UpgradeKind(c.Param("kind"))

	h.withSession(c, func(s *service.Session) error {
		cost, err := s.BuyUpgrade(kind, req.Qty)
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, gin.H{
			"cost":     cost,
			"view":     s.View(),
			"upgrades": s.Upgrades(),
		})
		return nil
	})
}
