package system_healthcheck

import (
	"time"

	"logrelay/internal/features/ingestion"
)

type HealthStatus string

const (
	HealthStatusOk       HealthStatus = "ok"
	HealthStatusDegraded HealthStatus = "degraded"
)

type MemoryDTO struct {
	TotalBytes      uint64  `json:"totalBytes"`
	UsedBytes       uint64  `json:"usedBytes"`
	AvailableBytes  uint64  `json:"availableBytes"`
	UsedPercent     float64 `json:"usedPercent"`
	ProcessRSSBytes uint64  `json:"processRssBytes"`
}

type HealthResponseDTO struct {
	Status          HealthStatus                  `json:"status"`
	StartedAt       time.Time                     `json:"startedAt"`
	UptimeSeconds   int64                         `json:"uptimeSeconds"`
	Rooms           int                           `json:"rooms"`
	Connections     int                           `json:"connections"`
	Subscribers     int                           `json:"subscribers"`
	DroppedMessages int64                         `json:"droppedMessages"`
	Ingestion       ingestion.ServerStatsDTO      `json:"ingestion"`
	Clients         []ingestion.ConnectionInfoDTO `json:"clients"`
	// nil when host figures are unavailable
	Memory *MemoryDTO `json:"memory,omitempty"`
}
