package logs_receiving

import (
	"logrelay/internal/cache"
	"logrelay/internal/config"
	"logrelay/internal/features/ingestion"
	"logrelay/internal/features/rooms"
	"logrelay/internal/util/logger"
	rate_limit "logrelay/internal/util/rate_limit"
)

var env = config.GetEnv()

var logReceivingService = NewLogReceivingService(
	ingestion.GetIngestionServer().PacketService(),
	rooms.GetRoomRegistry(),
	newSubmissionLimiter(),
	env.SubmitRequestsPerSecond,
	env.MaxSubmittedLogKB,
	logger.GetLogger(),
)

var receivingController = &ReceivingController{
	logReceivingService,
}

func GetLogReceivingService() *LogReceivingService {
	return logReceivingService
}

func GetReceivingController() *ReceivingController {
	return receivingController
}

func newSubmissionLimiter() rate_limit.RateLimiter {
	if client := cache.GetCache(); client != nil {
		return rate_limit.NewValkeyRateLimiter(client, "logrelay:rate_limit:submissions:")
	}
	return rate_limit.NewInMemoryRateLimiter()
}
