package system_healthcheck

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"logrelay/internal/features/ingestion"
	logs_core "logrelay/internal/features/logs/core"
	"logrelay/internal/features/realtime"
	"logrelay/internal/features/rooms"
	"logrelay/internal/util/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestRouter(t *testing.T) (*gin.Engine, *rooms.RoomRegistry) {
	t.Helper()

	log := logger.GetLogger()
	registry := rooms.NewRoomRegistry("default", 100, 100, logs_core.NewQueryBuilder(log), log)
	hub := realtime.NewHub(registry, 16, log)

	controller := &HealthcheckController{&HealthcheckService{
		roomRegistry:    registry,
		hub:             hub,
		ingestionServer: ingestion.NewIngestionServer("127.0.0.1:0", 1<<20, registry, hub, log),
		startedAt:       time.Now().Add(-time.Minute),
		logger:          log,
	}}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	controller.RegisterRoutes(router.Group("/api"))

	return router, registry
}

func getHealth(t *testing.T, router *gin.Engine) HealthResponseDTO {
	t.Helper()

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/system/health", nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	var response HealthResponseDTO
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	return response
}

func Test_GetHealth_WhenListenerIsDown_ReportsDegraded(t *testing.T) {
	router, _ := createTestRouter(t)

	response := getHealth(t, router)

	assert.Equal(t, HealthStatusDegraded, response.Status)
	assert.False(t, response.Ingestion.IsListening)
	assert.GreaterOrEqual(t, response.UptimeSeconds, int64(60))
	assert.Empty(t, response.Clients)
}

func Test_GetHealth_CountsRoomsConnectionsAndSubscribers(t *testing.T) {
	router, registry := createTestRouter(t)
	registry.AddConnection("alpha", uuid.New())
	registry.AddConnection("alpha", uuid.New())
	registry.AddSubscriber("beta", uuid.New())

	response := getHealth(t, router)

	assert.Equal(t, 2, response.Rooms)
	assert.Equal(t, 2, response.Connections)
	assert.Equal(t, 1, response.Subscribers)
}
