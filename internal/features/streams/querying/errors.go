package streams_querying

type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

const (
	ErrorChannelRequired  = "CHANNEL_REQUIRED"
	ErrorInvalidTimestamp = "INVALID_TIMESTAMP"
	ErrorInvalidTimeRange = "INVALID_TIME_RANGE"
	ErrorInvalidLimit     = "INVALID_LIMIT"
	ErrorInvalidOffset    = "INVALID_OFFSET"
	ErrorInvalidOrder     = "INVALID_ORDER"
)
