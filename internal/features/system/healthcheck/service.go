package system_healthcheck

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"logrelay/internal/features/ingestion"
	"logrelay/internal/features/realtime"
	"logrelay/internal/features/rooms"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

type HealthcheckService struct {
	roomRegistry    *rooms.RoomRegistry
	hub             *realtime.Hub
	ingestionServer *ingestion.IngestionServer
	startedAt       time.Time
	logger          *slog.Logger
}

func (s *HealthcheckService) GetHealth(ctx context.Context) *HealthResponseDTO {
	connections, subscribers := s.roomRegistry.Totals()
	stats := s.ingestionServer.Stats()

	status := HealthStatusOk
	if !stats.IsListening {
		status = HealthStatusDegraded
	}

	response := &HealthResponseDTO{
		Status:          status,
		StartedAt:       s.startedAt,
		UptimeSeconds:   int64(time.Since(s.startedAt).Seconds()),
		Rooms:           s.roomRegistry.Len(),
		Connections:     connections,
		Subscribers:     subscribers,
		DroppedMessages: s.hub.DroppedCount(),
		Ingestion:       stats,
		Clients:         s.ingestionServer.Connections(),
	}

	memory, err := s.readMemory(ctx)
	if err != nil {
		s.logger.Warn("failed to read memory figures", slog.String("error", err.Error()))
	} else {
		response.Memory = memory
	}

	return response
}

func (s *HealthcheckService) readMemory(ctx context.Context) (*MemoryDTO, error) {
	virtualMemory, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read host memory: %w", err)
	}

	memory := &MemoryDTO{
		TotalBytes:     virtualMemory.Total,
		UsedBytes:      virtualMemory.Used,
		AvailableBytes: virtualMemory.Available,
		UsedPercent:    virtualMemory.UsedPercent,
	}

	currentProcess, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("failed to open current process: %w", err)
	}
	memoryInfo, err := currentProcess.MemoryInfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read process memory: %w", err)
	}
	memory.ProcessRSSBytes = memoryInfo.RSS

	return memory, nil
}
