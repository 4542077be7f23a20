package downdetect

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const checkTimeout = 3 * time.Second

type DowndetectController struct {
	downdetectService *DowndetectService
	logger            *slog.Logger
}

func (c *DowndetectController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/downdetect/is-available", c.IsAvailable)
}

// IsAvailable
// @Summary Availability probe
// @Description 200 when the ingestion listener is up and the cache (if configured) answers, 503 otherwise
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /downdetect/is-available [get]
func (c *DowndetectController) IsAvailable(ctx *gin.Context) {
	checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), checkTimeout)
	defer cancel()

	if err := c.downdetectService.IsAvailable(checkCtx); err != nil {
		c.logger.Warn("availability check failed", slog.String("error", err.Error()))
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "available"})
}
