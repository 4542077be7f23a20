package logs_core

type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Error codes for log querying
const (
	ErrorTooManyConcurrentQueries = "TOO_MANY_CONCURRENT_QUERIES"
	ErrorInvalidTimestamp         = "INVALID_TIMESTAMP"
	ErrorInvalidTimeRange         = "INVALID_TIME_RANGE"
	ErrorInvalidLevel             = "INVALID_LEVEL"
	ErrorInvalidEntryType         = "INVALID_ENTRY_TYPE"
	ErrorInvalidLimit             = "INVALID_LIMIT"
	ErrorInvalidOffset            = "INVALID_OFFSET"
	ErrorInvalidOrder             = "INVALID_ORDER"
	ErrorInvalidBoolean           = "INVALID_BOOLEAN"
	ErrorInvalidQueryValue        = "INVALID_QUERY_VALUE"
)

// Error codes for log submission
const (
	ErrorBatchTooLarge       = "BATCH_TOO_LARGE"
	ErrorInvalidLogLevel     = "INVALID_LOG_LEVEL"
	ErrorTitleEmpty          = "TITLE_EMPTY"
	ErrorLogTooLarge         = "LOG_TOO_LARGE"
	ErrorRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	ErrorInvalidLogTimestamp = "INVALID_LOG_TIMESTAMP"
)
