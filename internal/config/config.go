package config

import (
	env_utils "logrelay/internal/util/env"
	"logrelay/internal/util/logger"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

var log = logger.GetLogger()

const (
	minRoomLogCapacity = 1
	maxRoomLogCapacity = 5_000_000
)

type EnvVariables struct {
	IsTesting       bool
	EnvMode         env_utils.EnvMode `env:"ENV_MODE"               env-default:"development"`
	BackendRootPath string            `env:"BACKEND_ROOT_PATH"`
	LogLevel        string            `env:"LOG_LEVEL"              env-default:"info"`
	// listeners
	TcpListenAddr  string `env:"TCP_LISTEN_ADDR"        env-default:":4228"`
	HttpListenAddr string `env:"HTTP_LISTEN_ADDR"       env-default:":4005"`
	// auth
	AuthToken string `env:"AUTH_TOKEN"`
	// rooms
	DefaultRoom          string `env:"DEFAULT_ROOM"           env-default:"default"`
	RoomLogCapacity      int    `env:"ROOM_LOG_CAPACITY"      env-default:"10000"`
	RoomStreamCapacity   int    `env:"ROOM_STREAM_CAPACITY"   env-default:"10000"`
	MaxFrameSize         int    `env:"MAX_FRAME_SIZE"         env-default:"16777216"`
	SubscriberBufferSize int    `env:"SUBSCRIBER_BUFFER_SIZE" env-default:"1024"`
	InitEntriesLimit     int    `env:"INIT_ENTRIES_LIMIT"     env-default:"500"`
	MaxConcurrentQueries int    `env:"MAX_CONCURRENT_QUERIES" env-default:"5"`
	// http submission, zero disables the per-client limit
	SubmitRequestsPerSecond int `env:"SUBMIT_REQUESTS_PER_SECOND" env-default:"100"`
	MaxSubmittedLogKB       int `env:"MAX_SUBMITTED_LOG_KB"       env-default:"64"`
	// zero keeps data until capacity evicts it
	RetentionPeriod time.Duration `env:"RETENTION_PERIOD"       env-default:"0s"`
	// cache, optional: when VALKEY_HOST is empty the query limiter stays in process
	ValkeyHost     string `env:"VALKEY_HOST"`
	ValkeyPort     string `env:"VALKEY_PORT"            env-default:"6379"`
	ValkeyUsername string `env:"VALKEY_USERNAME"`
	ValkeyPassword string `env:"VALKEY_PASSWORD"`
	ValkeyIsSsl    bool   `env:"VALKEY_IS_SSL"          env-default:"false"`
}

var (
	env  EnvVariables
	once sync.Once
)

func GetEnv() EnvVariables {
	once.Do(loadEnvVariables)
	return env
}

// IsValkeyConfigured reports whether a shared Valkey instance should be used.
func (e EnvVariables) IsValkeyConfigured() bool {
	return e.ValkeyHost != ""
}

func loadEnvVariables() {
	cwd, err := os.Getwd()
	if err != nil {
		log.Warn("could not get current working directory", "error", err)
		cwd = "."
	}

	backendRoot := cwd
	for {
		if _, err := os.Stat(filepath.Join(backendRoot, "go.mod")); err == nil {
			break
		}

		parent := filepath.Dir(backendRoot)
		if parent == backendRoot {
			break
		}

		backendRoot = parent
	}

	envPaths := []string{
		filepath.Join(cwd, ".env"),
		filepath.Join(backendRoot, ".env"),
	}

	var loaded bool
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Info("Successfully loaded .env", "path", path)
			loaded = true
			break
		}
	}

	if !loaded {
		log.Info("No .env file found, using process environment and defaults")
	}

	err = cleanenv.ReadEnv(&env)
	if err != nil {
		log.Error("Configuration could not be loaded", "error", err)
		os.Exit(1)
	}

	if env.BackendRootPath == "" {
		env.BackendRootPath = backendRoot
	}

	for _, arg := range os.Args {
		if strings.Contains(arg, "test") {
			env.IsTesting = true
			break
		}
	}

	if env.EnvMode != env_utils.EnvModeDevelopment && env.EnvMode != env_utils.EnvModeProduction {
		log.Error("ENV_MODE is invalid", "mode", env.EnvMode)
		os.Exit(1)
	}
	log.Info("ENV_MODE loaded", "mode", env.EnvMode)

	if env.TcpListenAddr == "" {
		log.Error("TCP_LISTEN_ADDR is empty")
		os.Exit(1)
	}
	if env.HttpListenAddr == "" {
		log.Error("HTTP_LISTEN_ADDR is empty")
		os.Exit(1)
	}

	if env.DefaultRoom == "" {
		log.Error("DEFAULT_ROOM is empty")
		os.Exit(1)
	}

	if env.RoomLogCapacity < minRoomLogCapacity || env.RoomLogCapacity > maxRoomLogCapacity {
		log.Error("ROOM_LOG_CAPACITY is out of range",
			"value", env.RoomLogCapacity,
			"min", minRoomLogCapacity,
			"max", maxRoomLogCapacity)
		os.Exit(1)
	}
	if env.RoomStreamCapacity < 1 {
		log.Error("ROOM_STREAM_CAPACITY must be positive", "value", env.RoomStreamCapacity)
		os.Exit(1)
	}
	if env.MaxFrameSize < 1 {
		log.Error("MAX_FRAME_SIZE must be positive", "value", env.MaxFrameSize)
		os.Exit(1)
	}
	if env.SubscriberBufferSize < 1 {
		log.Error("SUBSCRIBER_BUFFER_SIZE must be positive", "value", env.SubscriberBufferSize)
		os.Exit(1)
	}

	if env.InitEntriesLimit < 0 {
		log.Error("INIT_ENTRIES_LIMIT must not be negative", "value", env.InitEntriesLimit)
		os.Exit(1)
	}
	if env.SubmitRequestsPerSecond < 0 {
		log.Error("SUBMIT_REQUESTS_PER_SECOND must not be negative", "value", env.SubmitRequestsPerSecond)
		os.Exit(1)
	}
	if env.MaxSubmittedLogKB < 1 {
		log.Error("MAX_SUBMITTED_LOG_KB must be positive", "value", env.MaxSubmittedLogKB)
		os.Exit(1)
	}
	if env.MaxConcurrentQueries < 1 {
		log.Error("MAX_CONCURRENT_QUERIES must be positive", "value", env.MaxConcurrentQueries)
		os.Exit(1)
	}

	if env.RetentionPeriod < 0 {
		log.Error("RETENTION_PERIOD must not be negative", "value", env.RetentionPeriod)
		os.Exit(1)
	}

	if env.IsValkeyConfigured() && env.ValkeyPort == "" {
		log.Error("VALKEY_PORT is empty")
		os.Exit(1)
	}

	log.Info("Environment variables loaded successfully!")
}
