package logs_cleanup

import (
	"context"
	"log/slog"
	"time"

	"logrelay/internal/features/rooms"

	"github.com/coder/quartz"
)

const retentionCleanupInterval = 1 * time.Minute

// LogCleanupBackgroundService removes entries and stream items older than
// the retention period from every room. Capacity limits still apply on
// top of it.
type LogCleanupBackgroundService struct {
	roomRegistry *rooms.RoomRegistry
	retention    time.Duration
	clock        quartz.Clock
	logger       *slog.Logger

	cancel context.CancelFunc
	waiter quartz.Waiter
}

func (s *LogCleanupBackgroundService) StartWorkers(ctx context.Context) {
	if s.retention <= 0 {
		s.logger.Info("Retention cleanup disabled, stores are bounded by capacity only")
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)

	s.logger.Info("Retention cleanup worker started",
		slog.Duration("retention", s.retention),
		slog.Duration("interval", retentionCleanupInterval))

	s.waiter = s.clock.TickerFunc(ctx, retentionCleanupInterval, func() error {
		s.enforceRetention()
		return nil
	}, "retention")
}

func (s *LogCleanupBackgroundService) Stop() {
	if s.cancel == nil {
		return
	}

	s.cancel()
	_ = s.waiter.Wait()
	s.logger.Info("Retention cleanup worker stopped")
}

func (s *LogCleanupBackgroundService) enforceRetention() (deletedEntries int, deletedItems int) {
	cutoff := s.clock.Now().Add(-s.retention)

	for _, room := range s.roomRegistry.List() {
		entries := room.Logs().DeleteOlderThan(cutoff)
		items := room.Streams().DeleteOlderThan(cutoff)

		if entries > 0 || items > 0 {
			s.logger.Debug("Removed expired data from room",
				slog.String("room", room.ID),
				slog.Int("entries", entries),
				slog.Int("streamItems", items))
		}

		deletedEntries += entries
		deletedItems += items
	}

	if deletedEntries > 0 || deletedItems > 0 {
		s.logger.Info("Retention cleanup completed",
			slog.Int("deletedEntries", deletedEntries),
			slog.Int("deletedStreamItems", deletedItems))
	}

	return deletedEntries, deletedItems
}
