package streams_querying

import (
	"logrelay/internal/features/rooms"
	streams_core "logrelay/internal/features/streams/core"
	"logrelay/internal/util/logger"
)

var streamQueryService = &StreamQueryService{
	rooms.GetRoomRegistry(),
	streams_core.GetStreamCoreService(),
	logger.GetLogger(),
}

var streamQueryController = &StreamQueryController{
	streamQueryService,
}

func GetStreamQueryService() *StreamQueryService {
	return streamQueryService
}

func GetStreamQueryController() *StreamQueryController {
	return streamQueryController
}
