package ingestion

import (
	"logrelay/internal/config"
	"logrelay/internal/features/realtime"
	"logrelay/internal/features/rooms"
	"logrelay/internal/util/logger"
)

var env = config.GetEnv()

var ingestionServer = NewIngestionServer(
	env.TcpListenAddr,
	env.MaxFrameSize,
	rooms.GetRoomRegistry(),
	realtime.GetHub(),
	logger.GetLogger(),
)

func GetIngestionServer() *IngestionServer {
	return ingestionServer
}
