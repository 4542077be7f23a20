package config

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

var (
	isShouldShutdown atomic.Bool
	signalOnce       sync.Once
	shutdownCtx      context.Context
)

// StartListeningForShutdownSignal returns a context that is cancelled once
// SIGINT or SIGTERM arrives. IsShouldShutdown flips at the same moment.
func StartListeningForShutdownSignal() context.Context {
	signalOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		shutdownCtx = ctx

		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

		go func() {
			received := <-signals
			log.Info("Shutdown signal received", "signal", received.String())
			isShouldShutdown.Store(true)
			cancel()
		}()
	})

	return shutdownCtx
}

func IsShouldShutdown() bool {
	return isShouldShutdown.Load()
}
