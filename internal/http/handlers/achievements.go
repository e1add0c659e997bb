package handlers

import (
	"net/http"

	"idle_tapper/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAchievements lists achievements with progress and claim state.
func (h *Handler) GetAchievements(c *gin.Context) {
	h.withSession(c, func(s *service.Session) error {
		c.JSON(http.StatusOK, gin.H{
			"achievements": s.Achievements(),
			"titles":       s.View().State.TitleState,
		})
		return nil
	})
}

// ClaimAchievement pays out :id once its threshold is reached.
func (h *Handler) ClaimAchievement(c *gin.Context) {
	id := c.Param("id")
	h.withSession(c, func(s *service.Session) error {
		a, err := s.ClaimAchievement(id)
		if err != nil {
			return err
		}
		v := s.View()
		c.JSON(http.StatusOK, gin.H{
			"reward":  a.Reward,
			"title":   a.Title,
			"balance": v.State.Balance,
			"titles":  v.State.TitleState,
		})
		return nil
	})
}

func (h *Handler) EquipTitle(c *gin.Context) {
	id := c.Param("id")
	h.withSession(c, func(s *service.Session) error {
		if err := s.EquipTitle(id); err != nil {
			return err
		}
		c.JSON(http.StatusOK, gin.H{"titles": s.View().State.TitleState})
		return nil
	})
}
