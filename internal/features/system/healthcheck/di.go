package system_healthcheck

import (
	"time"

	"logrelay/internal/features/ingestion"
	"logrelay/internal/features/realtime"
	"logrelay/internal/features/rooms"
	"logrelay/internal/util/logger"
)

var healthcheckService = &HealthcheckService{
	roomRegistry:    rooms.GetRoomRegistry(),
	hub:             realtime.GetHub(),
	ingestionServer: ingestion.GetIngestionServer(),
	startedAt:       time.Now(),
	logger:          logger.GetLogger(),
}
var healthcheckController = &HealthcheckController{
	healthcheckService,
}

func GetHealthcheckController() *HealthcheckController {
	return healthcheckController
}
