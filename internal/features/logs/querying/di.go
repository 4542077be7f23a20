package logs_querying

import (
	"logrelay/internal/cache"
	"logrelay/internal/config"
	logs_core "logrelay/internal/features/logs/core"
	"logrelay/internal/features/realtime"
	"logrelay/internal/features/rooms"
	"logrelay/internal/util/logger"
)

var env = config.GetEnv()

var concurrentQueryLimiter = newConcurrentQueryLimiter()

var queryValidator = &QueryValidator{
	logger.GetLogger(),
}

var logQueryService = &LogQueryService{
	rooms.GetRoomRegistry(),
	logs_core.GetLogCoreService(),
	concurrentQueryLimiter,
	queryValidator,
	realtime.GetHub(),
	logger.GetLogger(),
}

var logQueryController = &LogQueryController{
	logQueryService,
}

func newConcurrentQueryLimiter() ConcurrentQueryLimiter {
	if env.IsValkeyConfigured() {
		return NewValkeyConcurrentQueryLimiter(cache.GetCache(), env.MaxConcurrentQueries, logger.GetLogger())
	}
	return NewInMemoryConcurrentQueryLimiter(env.MaxConcurrentQueries)
}

func GetLogQueryService() *LogQueryService {
	return logQueryService
}

func GetLogQueryController() *LogQueryController {
	return logQueryController
}
