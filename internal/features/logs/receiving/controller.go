package logs_receiving

import (
	"net/http"
	"strconv"

	logs_core "logrelay/internal/features/logs/core"

	"github.com/gin-gonic/gin"
)

type ReceivingController struct {
	logReceivingService *LogReceivingService
}

func (c *ReceivingController) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/logs/submit", c.SubmitLogs)
}

// SubmitLogs
// @Summary Submit log entries over HTTP
// @Description Submit one or more log entries to a room. Entries are stored in the room's ring and pushed to its subscribers the same way entries from TCP clients are.
// @Description
// @Description **Validation Requirements:**
// @Description - Rate Limiting: requests per client IP are limited with a 5x burst
// @Description - Batch Limits: Maximum 1000 logs per batch, maximum 10MB total batch size
// @Description - Log Requirements: level (debug/verbose/message/warning/error/fatal), non-empty title, size within the configured limit
// @Tags logs
// @Accept json
// @Produce json
// @Param room query string false "Room, the default room when omitted"
// @Param request body SubmitLogsRequestDTO true "Log entries to submit (1-1000 logs, max 10MB total)"
// @Success 202 {object} SubmitLogsResponseDTO "Logs accepted (may include partial rejection for invalid logs)"
// @Failure 400 {object} map[string]string "Invalid request format or batch limits exceeded"
// @Failure 429 {object} map[string]string "Rate limit exceeded"
// @Router /logs/submit [post]
func (c *ReceivingController) SubmitLogs(ctx *gin.Context) {
	var request SubmitLogsRequestDTO
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	response, err := c.logReceivingService.SubmitLogs(ctx.Query("room"), &request, ctx.ClientIP())
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusAccepted, response)
}

func (c *ReceivingController) handleError(ctx *gin.Context, err error) {
	if rateLimitErr, ok := asRateLimitError(err); ok {
		ctx.Header("Retry-After", strconv.Itoa(rateLimitErr.RetryAfterSec))
		ctx.JSON(http.StatusTooManyRequests, gin.H{
			"error": rateLimitErr.Error(),
			"code":  logs_core.ErrorRateLimitExceeded,
		})
		return
	}

	if validationErr, ok := err.(*logs_core.ValidationError); ok {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error": validationErr.Message,
			"code":  validationErr.Code,
		})
		return
	}

	ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process logs"})
}
