package downdetect

import (
	"context"
	"errors"
	"fmt"

	cache_utils "logrelay/internal/util/cache"

	"github.com/valkey-io/valkey-go"
)

var ErrIngestionNotListening = errors.New("ingestion listener is not accepting connections")

type ListenerStatus interface {
	IsListening() bool
}

type DowndetectService struct {
	ingestionServer ListenerStatus
	// nil when Valkey is not configured
	cacheClient valkey.Client
}

func (s *DowndetectService) IsAvailable(ctx context.Context) error {
	if !s.ingestionServer.IsListening() {
		return ErrIngestionNotListening
	}

	if s.cacheClient != nil {
		if err := cache_utils.Ping(ctx, s.cacheClient); err != nil {
			return fmt.Errorf("cache check failed: %w", err)
		}
	}

	return nil
}
