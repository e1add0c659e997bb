package handlers

import (
	"net/http"

	"idle_tapper/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) BuySuit(c *gin.Context) {
	h.buy(c, (*service.Session).BuySuit)
}

func (h *Handler) EquipSuit(c *gin.Context) {
	h.equip(c, (*service.Session).EquipSuit)
}

func (h *Handler) BuyPet(c *gin.Context) {
	h.buy(c, (*service.Session).BuyPet)
}

func (h *Handler) EquipPet(c *gin.Context) {
	h.equip(c, (*service.Session).EquipPet)
}

func (h *Handler) buy(c *gin.Context, fn func(*service.Session, string) (int64, error)) {
	id := c.Param("id")
	h.withSession(c, func(s *service.Session) error {
		price, err := fn(s, id)
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, gin.H{"price": price, "view": s.View()})
		return nil
	})
}

func (h *Handler) equip(c *gin.Context, fn func(*service.Session, string) error) {
	id := c.Param("id")
	h.withSession(c, func(s *service.Session) error {
		if err := fn(s, id); err != nil {
			return err
		}
		c.JSON(http.StatusOK, gin.H{"view": s.View()})
		return nil
	})
}
