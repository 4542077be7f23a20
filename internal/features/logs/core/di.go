package logs_core

import (
	"logrelay/internal/util/logger"
)

var logQueryBuilder = NewQueryBuilder(logger.GetLogger())

var logCoreService = &LogCoreService{}

func GetLogQueryBuilder() *QueryBuilder {
	return logQueryBuilder
}

func GetLogCoreService() *LogCoreService {
	return logCoreService
}
