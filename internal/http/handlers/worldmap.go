package handlers

import (
	"net/http"
	"strings"

	"idle_tapper/internal/economy"
	"idle_tapper/internal/service"

	"github.com/gin-gonic/gin"
)

// GetMap returns every region with its lock state and owned countries.
func (h *Handler) GetMap(c *gin.Context) {
	h.withSession(c, func(s *service.Session) error {
		v := s.View()
		c.JSON(http.StatusOK, gin.H{
			"regions":  s.Map(),
			"bonuses":  v.MapBonuses,
			"nextCost": nextCountryCost(len(v.State.Owned)),
		})
		return nil
	})
}

// Conquer buys the country :code.
func (h *Handler) Conquer(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))
	h.withSession(c, func(s *service.Session) error {
		cost, bonuses, err := s.Conquer(code)
		if err != nil {
			return err
		}
		v := s.View()
		c.JSON(http.StatusOK, gin.H{
			"cost":     cost,
			"bonuses":  bonuses,
			"balance":  v.State.Balance,
			"nextCost": nextCountryCost(len(v.State.Owned)),
		})
		return nil
	})
}

func nextCountryCost(owned int) int64 {
	return economy.CostForCountry("", owned)
}
