package realtime

import (
	"logrelay/internal/config"
	"logrelay/internal/features/auth"
	"logrelay/internal/features/rooms"
	env_utils "logrelay/internal/util/env"
	"logrelay/internal/util/logger"

	"github.com/coder/websocket"
)

var env = config.GetEnv()

var hub = NewHub(rooms.GetRoomRegistry(), env.SubscriberBufferSize, logger.GetLogger())

var realtimeController = &RealtimeController{
	hub:              hub,
	roomRegistry:     rooms.GetRoomRegistry(),
	authService:      auth.GetTokenAuthService(),
	initEntriesLimit: env.InitEntriesLimit,
	acceptOptions: &websocket.AcceptOptions{
		// the dashboard dev server runs on another origin
		InsecureSkipVerify: env.EnvMode == env_utils.EnvModeDevelopment,
	},
	logger: logger.GetLogger(),
}

func GetHub() *Hub {
	return hub
}

func GetRealtimeController() *RealtimeController {
	return realtimeController
}

func SetupDependencies() {
	rooms.GetRoomRegistry().AddRoomCreationListener(hub)
}
