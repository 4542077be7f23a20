package rooms

import (
	"logrelay/internal/config"
	logs_core "logrelay/internal/features/logs/core"
	"logrelay/internal/util/logger"
)

var env = config.GetEnv()

var roomRegistry = NewRoomRegistry(
	env.DefaultRoom,
	env.RoomLogCapacity,
	env.RoomStreamCapacity,
	logs_core.GetLogQueryBuilder(),
	logger.GetLogger(),
)

var roomsController = &RoomsController{
	roomRegistry,
}

func GetRoomRegistry() *RoomRegistry {
	return roomRegistry
}

func GetRoomsController() *RoomsController {
	return roomsController
}
