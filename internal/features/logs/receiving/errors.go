package logs_receiving

import (
	"errors"
	"fmt"
)

type RateLimitExceededError struct {
	RetryAfterSec int
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("submission rate limit exceeded, retry after %d seconds", e.RetryAfterSec)
}

func asRateLimitError(err error) (*RateLimitExceededError, bool) {
	var rateLimitErr *RateLimitExceededError
	if errors.As(err, &rateLimitErr) {
		return rateLimitErr, true
	}
	return nil, false
}
