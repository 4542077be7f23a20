package logs_querying

import (
	"errors"
	"net/http"

	logs_core "logrelay/internal/features/logs/core"

	"github.com/gin-gonic/gin"
)

type LogQueryController struct {
	logQueryService *LogQueryService
}

func (c *LogQueryController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/logs/query", c.ExecuteQuery)
	router.DELETE("/logs", c.ClearLogs)
}

// ExecuteQuery
// @Summary Query a room's log store
// @Description Filters by time, session, message, level, entry type, app and host. limit defaults to 1000 and is capped at 10000.
// @Tags logs-query
// @Produce json
// @Security BearerAuth
// @Param room query string false "Room ID"
// @Param from query string false "RFC3339 or unix seconds/milliseconds"
// @Param to query string false "RFC3339 or unix seconds/milliseconds"
// @Param between query string false "from,to"
// @Param level query string false "Comma-separated level names or numbers"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Param order query string false "asc or desc"
// @Success 200 {object} logs_core.LogQueryResponseDTO
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 429 {object} map[string]string
// @Router /logs/query [get]
func (c *LogQueryController) ExecuteQuery(ctx *gin.Context) {
	response, err := c.logQueryService.ExecuteQuery(
		ctx.Query("room"),
		ctx.ClientIP(),
		ctx.Request.URL.Query(),
	)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response)
}

// ClearLogs
// @Summary Clear a room's log store
// @Tags logs-query
// @Produce json
// @Security BearerAuth
// @Param room query string false "Room ID"
// @Success 200 {object} ClearLogsResponseDTO
// @Failure 401 {object} map[string]string
// @Router /logs [delete]
func (c *LogQueryController) ClearLogs(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.logQueryService.ClearLogs(ctx.Query("room")))
}

func (c *LogQueryController) handleError(ctx *gin.Context, err error) {
	var validationErr *logs_core.ValidationError
	if errors.As(err, &validationErr) {
		ctx.JSON(c.getStatusCodeForQueryValidationError(validationErr.Code), gin.H{
			"error": validationErr.Message,
			"code":  validationErr.Code,
			"field": validationErr.Field,
		})
		return
	}

	ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to execute query"})
}

func (c *LogQueryController) getStatusCodeForQueryValidationError(errorCode string) int {
	switch errorCode {
	case logs_core.ErrorTooManyConcurrentQueries:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadRequest
	}
}
