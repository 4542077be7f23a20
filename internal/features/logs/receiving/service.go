package logs_receiving

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"logrelay/internal/features/ingestion"
	logs_core "logrelay/internal/features/logs/core"
	"logrelay/internal/features/protocol"
	"logrelay/internal/features/rooms"
	rate_limit "logrelay/internal/util/rate_limit"
	time_parser "logrelay/internal/util/time"

	"github.com/google/uuid"
)

const (
	RequestsBurstMultiplier = 5

	MaxBatchSize      = 1000
	MaxBatchSizeBytes = 10 * 1024 * 1024

	MaxLogSizeFactor = 1024
)

// PacketHandler is the ingestion path shared with TCP connections.
type PacketHandler interface {
	Handle(packetContext ingestion.PacketContext, packet protocol.Packet)
}

// LogReceivingService accepts log entries over HTTP for producers that
// cannot speak the binary protocol. Accepted entries are stored and
// published exactly like entries read from a TCP connection.
type LogReceivingService struct {
	packetHandler     PacketHandler
	roomRegistry      *rooms.RoomRegistry
	rateLimiter       rate_limit.RateLimiter
	requestsPerSecond int
	maxLogSizeBytes   int
	now               func() time.Time
	logger            *slog.Logger
}

func NewLogReceivingService(
	packetHandler PacketHandler,
	roomRegistry *rooms.RoomRegistry,
	rateLimiter rate_limit.RateLimiter,
	requestsPerSecond int,
	maxLogSizeKB int,
	logger *slog.Logger,
) *LogReceivingService {
	return &LogReceivingService{
		packetHandler:     packetHandler,
		roomRegistry:      roomRegistry,
		rateLimiter:       rateLimiter,
		requestsPerSecond: requestsPerSecond,
		maxLogSizeBytes:   maxLogSizeKB * MaxLogSizeFactor,
		now:               time.Now,
		logger:            logger,
	}
}

func (s *LogReceivingService) SubmitLogs(
	roomID string,
	request *SubmitLogsRequestDTO,
	clientIP string,
) (*SubmitLogsResponseDTO, error) {
	if err := s.validateBasicBatchLimits(request); err != nil {
		return nil, err
	}

	if err := s.validateRateLimit(clientIP); err != nil {
		return nil, err
	}

	receivedAt := s.now().UTC()
	validEntries, errors, totalBatchSize := s.processLogItems(request.Logs, receivedAt)

	if err := s.validateTotalBatchSize(totalBatchSize); err != nil {
		return nil, err
	}

	roomID = s.roomRegistry.ResolveID(roomID)
	s.handleValidEntries(validEntries, roomID, clientIP, receivedAt)

	return &SubmitLogsResponseDTO{
		Room:     roomID,
		Accepted: len(validEntries),
		Rejected: len(errors),
		Errors:   errors,
	}, nil
}

func (s *LogReceivingService) processLogItems(
	logRequests []LogItemRequestDTO,
	receivedAt time.Time,
) ([]protocol.LogEntry, []LogSubmissionError, int) {
	var validEntries []protocol.LogEntry
	var errors []LogSubmissionError
	var totalBatchSize int

	for i, logRequest := range logRequests {
		logSize, err := s.calculateLogSize(&logRequest)
		if err != nil {
			errors = append(errors, LogSubmissionError{
				Index:   i,
				Message: fmt.Sprintf("failed to calculate log size: %v", err),
			})
			continue
		}

		totalBatchSize += logSize

		entry, err := s.toLogEntry(&logRequest, logSize, receivedAt)
		if err != nil {
			message := err.Error()
			if validationErr, ok := err.(*logs_core.ValidationError); ok {
				message = validationErr.Code
			}

			errors = append(errors, LogSubmissionError{
				Index:   i,
				Message: message,
			})
			continue
		}

		validEntries = append(validEntries, entry)
	}

	return validEntries, errors, totalBatchSize
}

func (s *LogReceivingService) handleValidEntries(
	entries []protocol.LogEntry,
	roomID string,
	clientIP string,
	receivedAt time.Time,
) {
	if len(entries) == 0 {
		return
	}

	submissionID := uuid.New()
	for _, entry := range entries {
		s.packetHandler.Handle(ingestion.PacketContext{
			ConnectionID: submissionID,
			RemoteAddr:   clientIP,
			AppName:      entry.AppName,
			HostName:     entry.HostName,
			RoomID:       roomID,
			ReceivedAt:   receivedAt,
		}, entry)
	}

	s.logger.Debug("accepted submitted logs",
		slog.String("room", roomID),
		slog.String("clientIp", clientIP),
		slog.Int("count", len(entries)))
}

func (s *LogReceivingService) toLogEntry(
	logRequest *LogItemRequestDTO,
	logSize int,
	receivedAt time.Time,
) (protocol.LogEntry, error) {
	entryType, err := entryTypeForLevel(logRequest.Level)
	if err != nil {
		return protocol.LogEntry{}, err
	}

	if strings.TrimSpace(logRequest.Title) == "" {
		return protocol.LogEntry{}, &logs_core.ValidationError{
			Code:    logs_core.ErrorTitleEmpty,
			Message: "title cannot be empty",
			Field:   "title",
		}
	}

	if logSize > s.maxLogSizeBytes {
		return protocol.LogEntry{}, &logs_core.ValidationError{
			Code:    logs_core.ErrorLogTooLarge,
			Message: fmt.Sprintf("log size %d bytes exceeds maximum %d bytes", logSize, s.maxLogSizeBytes),
			Field:   "size",
		}
	}

	timestamp := receivedAt
	if logRequest.Timestamp != "" {
		timestamp, err = time_parser.ParseTimestamp(logRequest.Timestamp)
		if err != nil {
			return protocol.LogEntry{}, &logs_core.ValidationError{
				Code:    logs_core.ErrorInvalidLogTimestamp,
				Message: err.Error(),
				Field:   "timestamp",
			}
		}
	}

	var data []byte
	if logRequest.Data != "" {
		data = []byte(logRequest.Data)
	}

	return protocol.LogEntry{
		EntryType:   entryType,
		AppName:     logRequest.AppName,
		SessionName: logRequest.SessionName,
		Title:       logRequest.Title,
		HostName:    logRequest.HostName,
		Timestamp:   protocol.OleDateFromTime(timestamp),
		Data:        data,
	}, nil
}

// entryTypeForLevel picks the entry type whose derived level is the
// requested one. Control has no severity and cannot be submitted.
func entryTypeForLevel(value string) (protocol.LogEntryType, error) {
	invalid := &logs_core.ValidationError{
		Code:    logs_core.ErrorInvalidLogLevel,
		Message: "invalid log level",
		Field:   "level",
	}

	level, err := protocol.ParseLevel(value)
	if err != nil {
		return 0, invalid
	}

	switch level {
	case protocol.LevelDebug:
		return protocol.LogEntryTypeDebug, nil
	case protocol.LevelVerbose:
		return protocol.LogEntryTypeVerbose, nil
	case protocol.LevelMessage:
		return protocol.LogEntryTypeMessage, nil
	case protocol.LevelWarning:
		return protocol.LogEntryTypeWarning, nil
	case protocol.LevelError:
		return protocol.LogEntryTypeError, nil
	case protocol.LevelFatal:
		return protocol.LogEntryTypeFatal, nil
	default:
		return 0, invalid
	}
}

func (s *LogReceivingService) validateBasicBatchLimits(request *SubmitLogsRequestDTO) error {
	if len(request.Logs) == 0 {
		return &logs_core.ValidationError{
			Code:    logs_core.ErrorBatchTooLarge,
			Message: "batch cannot be empty",
		}
	}

	if len(request.Logs) > MaxBatchSize {
		return &logs_core.ValidationError{
			Code:    logs_core.ErrorBatchTooLarge,
			Message: fmt.Sprintf("batch size cannot exceed %d logs", MaxBatchSize),
		}
	}

	return nil
}

func (s *LogReceivingService) validateRateLimit(clientIP string) error {
	if s.requestsPerSecond == 0 {
		return nil
	}

	result, err := s.rateLimiter.CheckRateLimit(
		clientIP,
		s.requestsPerSecond,
		s.requestsPerSecond*RequestsBurstMultiplier,
	)
	if err != nil {
		// a broken limiter must not stop ingestion
		s.logger.Warn("submission rate limit check failed", slog.String("error", err.Error()))
		return nil
	}

	if !result.Allowed {
		return &RateLimitExceededError{RetryAfterSec: max(result.RetryAfterSec, 1)}
	}

	return nil
}

func (s *LogReceivingService) validateTotalBatchSize(totalBatchSize int) error {
	if totalBatchSize > MaxBatchSizeBytes {
		return &logs_core.ValidationError{
			Code:    logs_core.ErrorBatchTooLarge,
			Message: fmt.Sprintf("batch size %d bytes exceeds maximum %d bytes", totalBatchSize, MaxBatchSizeBytes),
		}
	}

	return nil
}

func (s *LogReceivingService) calculateLogSize(entry *LogItemRequestDTO) (int, error) {
	jsonData, err := json.Marshal(entry)
	if err != nil {
		return 0, err
	}

	return len(jsonData), nil
}
