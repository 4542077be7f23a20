package streams_querying

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type StreamQueryController struct {
	streamQueryService *StreamQueryService
}

func (c *StreamQueryController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/streams", c.ListChannels)
	router.GET("/streams/query", c.QueryStream)
	router.DELETE("/streams", c.ClearStreams)
}

// ListChannels
// @Summary List stream channels of a room
// @Tags streams
// @Produce json
// @Security BearerAuth
// @Param room query string false "Room ID"
// @Success 200 {object} streams_core.ChannelsResponseDTO
// @Failure 401 {object} map[string]string
// @Router /streams [get]
func (c *StreamQueryController) ListChannels(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.streamQueryService.ListChannels(ctx.Query("room")))
}

// QueryStream
// @Summary Query one stream channel
// @Description limit defaults to 100 and is capped at 1000; a warning is returned when results were truncated
// @Tags streams
// @Produce json
// @Security BearerAuth
// @Param room query string false "Room ID"
// @Param channel query string true "Channel name"
// @Param from query string false "RFC3339 or unix seconds/milliseconds"
// @Param to query string false "RFC3339 or unix seconds/milliseconds"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Param order query string false "asc or desc"
// @Success 200 {object} streams_core.StreamQueryResponseDTO
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /streams/query [get]
func (c *StreamQueryController) QueryStream(ctx *gin.Context) {
	response, err := c.streamQueryService.QueryStream(ctx.Query("room"), ctx.Request.URL.Query())
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			ctx.JSON(http.StatusBadRequest, gin.H{
				"error": validationErr.Message,
				"code":  validationErr.Code,
				"field": validationErr.Field,
			})
			return
		}

		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query stream"})
		return
	}

	ctx.JSON(http.StatusOK, response)
}

// ClearStreams
// @Summary Clear one stream channel or all of them
// @Tags streams
// @Produce json
// @Security BearerAuth
// @Param room query string false "Room ID"
// @Param channel query string false "Channel name; all channels when omitted"
// @Success 200 {object} streams_core.ClearStreamsResponseDTO
// @Failure 401 {object} map[string]string
// @Router /streams [delete]
func (c *StreamQueryController) ClearStreams(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.streamQueryService.ClearStreams(ctx.Query("room"), ctx.Query("channel")))
}
