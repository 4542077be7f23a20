package logs_cleanup

import (
	"logrelay/internal/config"
	"logrelay/internal/features/rooms"
	"logrelay/internal/util/logger"

	"github.com/coder/quartz"
)

var logCleanupBackgroundService = &LogCleanupBackgroundService{
	roomRegistry: rooms.GetRoomRegistry(),
	retention:    config.GetEnv().RetentionPeriod,
	clock:        quartz.NewReal(),
	logger:       logger.GetLogger(),
}

func GetLogCleanupBackgroundService() *LogCleanupBackgroundService {
	return logCleanupBackgroundService
}
