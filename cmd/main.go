package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"logrelay/internal/cache"
	"logrelay/internal/config"
	"logrelay/internal/downdetect"
	"logrelay/internal/features/auth"
	"logrelay/internal/features/ingestion"
	logs_cleanup "logrelay/internal/features/logs/cleanup"
	logs_querying "logrelay/internal/features/logs/querying"
	logs_receiving "logrelay/internal/features/logs/receiving"
	"logrelay/internal/features/realtime"
	"logrelay/internal/features/rooms"
	streams_querying "logrelay/internal/features/streams/querying"
	system_healthcheck "logrelay/internal/features/system/healthcheck"
	cache_utils "logrelay/internal/util/cache"
	env_utils "logrelay/internal/util/env"
	"logrelay/internal/util/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := logger.GetLogger()
	ctx := config.StartListeningForShutdownSignal()

	setUpDependencies()

	testCacheConnection(log)

	runStartupTasks(log)
	runBackgroundTasks(ctx, log)
	defer logs_cleanup.GetLogCleanupBackgroundService().Stop()

	gin.SetMode(gin.ReleaseMode)
	ginApp := gin.Default()

	// Add GZIP compression middleware
	ginApp.Use(gzip.Gzip(
		gzip.DefaultCompression,
		// websocket upgrades need the raw connection
		gzip.WithExcludedPaths([]string{"/api/ws"}),
	))

	enableCors(ginApp)
	setUpRoutes(ginApp)

	if err := runServers(ctx, log, ginApp); err != nil && !config.IsShouldShutdown() {
		log.Error("Server stopped unexpectedly", "error", err)
		logs_cleanup.GetLogCleanupBackgroundService().Stop()
		os.Exit(1)
	}

	log.Info("Server gracefully stopped")
}

// runServers runs the TCP ingestion listener and the HTTP API until ctx is
// cancelled or either of them fails.
func runServers(ctx context.Context, log *slog.Logger, app *gin.Engine) error {
	env := config.GetEnv()

	httpServer := &http.Server{
		Addr:              env.HttpListenAddr,
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}
	ingestionServer := ingestion.GetIngestionServer()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("Ingestion listener starting", "addr", env.TcpListenAddr)
		return ingestionServer.Run(groupCtx)
	})

	group.Go(func() error {
		log.Info("HTTP server starting", "addr", env.HttpListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("Shutting down servers")

		realtime.GetHub().Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", "error", err)
		}
		return nil
	})

	return group.Wait()
}

func setUpRoutes(r *gin.Engine) {
	api := r.Group("/api")

	// Public routes
	downdetect.GetDowndetectController().RegisterRoutes(api)
	// the websocket authenticates during its own handshake
	realtime.GetRealtimeController().RegisterRoutes(api)

	// Protected routes
	protected := api.Group("")
	protected.Use(auth.AuthMiddleware(auth.GetTokenAuthService()))

	logs_querying.GetLogQueryController().RegisterRoutes(protected)
	logs_receiving.GetReceivingController().RegisterRoutes(protected)
	streams_querying.GetStreamQueryController().RegisterRoutes(protected)
	rooms.GetRoomsController().RegisterRoutes(protected)
	system_healthcheck.GetHealthcheckController().RegisterRoutes(protected)
}

func setUpDependencies() {
	realtime.SetupDependencies()
}

func runStartupTasks(log *slog.Logger) {
	if err := logs_querying.GetLogQueryService().CleanupPendingQueries(); err != nil {
		log.Error("Failed to cleanup pending queries on startup", slog.String("error", err.Error()))
	}
}

func runBackgroundTasks(ctx context.Context, log *slog.Logger) {
	log.Info("Preparing to run background tasks...")

	logs_cleanup.GetLogCleanupBackgroundService().StartWorkers(ctx)

	log.Info("Background tasks started successfully")
}

func testCacheConnection(log *slog.Logger) {
	if !config.GetEnv().IsValkeyConfigured() {
		log.Info("Valkey is not configured, query limits stay in process")
		return
	}

	log.Info("Testing Valkey connection...")
	if err := cache_utils.TestCacheConnection(cache.GetCache()); err != nil {
		log.Error("Failed to connect to Valkey", "error", err)
		os.Exit(1)
	}
	log.Info("Valkey connection test successful")
}

func enableCors(ginApp *gin.Engine) {
	if config.GetEnv().EnvMode == env_utils.EnvModeDevelopment {
		ginApp.Use(cors.New(developmentCorsConfig()))
	}
}

func developmentCorsConfig() cors.Config {
	return cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Length",
			"Content-Type",
			"Authorization",
			"Accept",
			"Accept-Language",
			"Accept-Encoding",
		},
		ExposeHeaders: []string{"Retry-After"},
	}
}
