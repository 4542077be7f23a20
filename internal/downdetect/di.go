package downdetect

import (
	"logrelay/internal/cache"
	"logrelay/internal/features/ingestion"
	"logrelay/internal/util/logger"
)

var downdetectService = &DowndetectService{
	ingestionServer: ingestion.GetIngestionServer(),
	cacheClient:     cache.GetCache(),
}
var downdetectController = &DowndetectController{
	downdetectService,
	logger.GetLogger(),
}

func GetDowndetectController() *DowndetectController {
	return downdetectController
}
