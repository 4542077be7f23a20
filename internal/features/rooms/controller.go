package rooms

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type RoomsController struct {
	roomRegistry *RoomRegistry
}

func (c *RoomsController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/rooms", c.GetRooms)
	router.GET("/watches", c.GetWatches)
}

// GetRooms
// @Summary List rooms
// @Description List every room with its entry, watch, stream, connection and subscriber counts
// @Tags rooms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} RoomsResponseDTO
// @Failure 401 {object} map[string]string
// @Router /rooms [get]
func (c *RoomsController) GetRooms(ctx *gin.Context) {
	rooms := c.roomRegistry.List()

	response := RoomsResponseDTO{Rooms: make([]RoomSummaryDTO, 0, len(rooms))}
	for _, room := range rooms {
		response.Rooms = append(response.Rooms, room.Summary())
	}

	ctx.JSON(http.StatusOK, response)
}

// GetWatches
// @Summary Get the watch table of a room
// @Tags rooms
// @Produce json
// @Security BearerAuth
// @Param room query string false "Room ID"
// @Success 200 {object} WatchesResponseDTO
// @Failure 401 {object} map[string]string
// @Router /watches [get]
func (c *RoomsController) GetWatches(ctx *gin.Context) {
	roomID := c.roomRegistry.ResolveID(ctx.Query("room"))

	response := WatchesResponseDTO{Room: roomID, Watches: map[string]Watch{}}
	if room, exists := c.roomRegistry.Get(roomID); exists {
		response.Watches = room.Watches().Snapshot()
	}

	ctx.JSON(http.StatusOK, response)
}
