package logs_querying

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	logs_core "logrelay/internal/features/logs/core"

	"github.com/valkey-io/valkey-go"
)

// ConcurrentQueryLimiter caps how many queries one client runs at a time.
// Clients are keyed by remote IP.
type ConcurrentQueryLimiter interface {
	AcquireQuerySlot(clientKey string, queryID string) error
	ReleaseQuerySlot(clientKey string, queryID string)
	GetActiveQueryCount(clientKey string) (int, error)
	CleanupAllQuerySlots() error
}

const (
	queryKeyPrefix = "logrelay:concurrent_queries:client:"
	queryTimeout   = 30 * time.Minute // stale slots expire on their own
)

func newTooManyQueriesError(active int, limit int) *logs_core.ValidationError {
	return &logs_core.ValidationError{
		Code:    logs_core.ErrorTooManyConcurrentQueries,
		Message: fmt.Sprintf("maximum concurrent queries exceeded (%d/%d)", active, limit),
	}
}

// ValkeyConcurrentQueryLimiter shares slot counters between instances.
type ValkeyConcurrentQueryLimiter struct {
	client               valkey.Client
	maxConcurrentQueries int
	logger               *slog.Logger
}

func NewValkeyConcurrentQueryLimiter(
	client valkey.Client,
	maxConcurrentQueries int,
	logger *slog.Logger,
) *ValkeyConcurrentQueryLimiter {
	return &ValkeyConcurrentQueryLimiter{client, maxConcurrentQueries, logger}
}

func (l *ValkeyConcurrentQueryLimiter) AcquireQuerySlot(clientKey string, queryID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := queryKeyPrefix + clientKey

	currentCount, err := l.client.Do(ctx, l.client.B().Incr().Key(key).Build()).AsInt64()
	if err != nil {
		return fmt.Errorf("failed to increment query counter: %w", err)
	}

	if currentCount > int64(l.maxConcurrentQueries) {
		l.client.Do(ctx, l.client.B().Decr().Key(key).Build())
		return newTooManyQueriesError(int(currentCount-1), l.maxConcurrentQueries)
	}

	l.client.Do(ctx, l.client.B().Expire().Key(key).Seconds(int64(queryTimeout.Seconds())).Build())

	return nil
}

func (l *ValkeyConcurrentQueryLimiter) ReleaseQuerySlot(clientKey string, queryID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result := l.client.Do(ctx, l.client.B().Decr().Key(queryKeyPrefix+clientKey).Build())
	if result.Error() != nil {
		l.logger.Error("Failed to release query slot",
			slog.String("client", clientKey),
			slog.String("queryId", queryID),
			slog.String("error", result.Error().Error()))
	}
}

func (l *ValkeyConcurrentQueryLimiter) GetActiveQueryCount(clientKey string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := l.client.Do(ctx, l.client.B().Get().Key(queryKeyPrefix+clientKey).Build()).AsInt64()
	if valkey.IsValkeyNil(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read query counter: %w", err)
	}

	return int(count), nil
}

// CleanupAllQuerySlots removes counters left behind by a previous run.
func (l *ValkeyConcurrentQueryLimiter) CleanupAllQuerySlots() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	keys, err := l.client.Do(ctx, l.client.B().Keys().Pattern(queryKeyPrefix+"*").Build()).AsStrSlice()
	if err != nil {
		return fmt.Errorf("failed to find query tracking keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	deletedCount, err := l.client.Do(ctx, l.client.B().Del().Key(keys...).Build()).AsInt64()
	if err != nil {
		return fmt.Errorf("failed to delete stale query tracking keys: %w", err)
	}

	if deletedCount > 0 {
		l.logger.Info("Cleaned up stale query tracking keys", slog.Int("count", int(deletedCount)))
	}

	return nil
}

// InMemoryConcurrentQueryLimiter is used when no Valkey is configured.
type InMemoryConcurrentQueryLimiter struct {
	mu                   sync.Mutex
	active               map[string]int
	maxConcurrentQueries int
}

func NewInMemoryConcurrentQueryLimiter(maxConcurrentQueries int) *InMemoryConcurrentQueryLimiter {
	return &InMemoryConcurrentQueryLimiter{
		active:               make(map[string]int),
		maxConcurrentQueries: maxConcurrentQueries,
	}
}

func (l *InMemoryConcurrentQueryLimiter) AcquireQuerySlot(clientKey string, queryID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active[clientKey] >= l.maxConcurrentQueries {
		return newTooManyQueriesError(l.active[clientKey], l.maxConcurrentQueries)
	}

	l.active[clientKey]++
	return nil
}

func (l *InMemoryConcurrentQueryLimiter) ReleaseQuerySlot(clientKey string, queryID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active[clientKey] <= 1 {
		delete(l.active, clientKey)
		return
	}
	l.active[clientKey]--
}

func (l *InMemoryConcurrentQueryLimiter) GetActiveQueryCount(clientKey string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active[clientKey], nil
}

func (l *InMemoryConcurrentQueryLimiter) CleanupAllQuerySlots() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.active)
	return nil
}
