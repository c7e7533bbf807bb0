package handler

import (
	"net/http"
	"time"

	"gamepay/internal/model"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health 健康检查
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	if err := model.CheckDBHealth(h.db); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": err.Error(),
			"time":     time.Now().Unix(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": model.GetDBStats(h.db),
		"time":     time.Now().Unix(),
	})
}
