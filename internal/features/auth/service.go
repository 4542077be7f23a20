package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"logrelay/internal/util/rate_limit"
)

const (
	// a client may fail authFailureBurst times in a row, then once per
	// second
	authFailureRefillPerSecond = 1
	authFailureBurst           = 10
)

var (
	ErrTokenRequired = errors.New("authorization token required")
	ErrInvalidToken  = errors.New("invalid token")
)

type TooManyFailuresError struct {
	RetryAfterSec int
}

func (e *TooManyFailuresError) Error() string {
	return fmt.Sprintf("too many failed authentication attempts, retry in %ds", e.RetryAfterSec)
}

// TokenAuthService checks a single static bearer token. An empty
// configured token disables authentication. Failed attempts are throttled
// per client when a failure limiter is set.
type TokenAuthService struct {
	token          string
	failureLimiter rate_limit.RateLimiter
	logger         *slog.Logger
}

func NewTokenAuthService(token string, failureLimiter rate_limit.RateLimiter, logger *slog.Logger) *TokenAuthService {
	return &TokenAuthService{
		token:          token,
		failureLimiter: failureLimiter,
		logger:         logger,
	}
}

func (s *TokenAuthService) IsRequired() bool {
	return s.token != ""
}

func (s *TokenAuthService) IsValid(token string) bool {
	if !s.IsRequired() {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) == 1
}

// Authenticate validates token on behalf of clientKey (usually the client
// IP). A throttled client is rejected before its token is looked at.
func (s *TokenAuthService) Authenticate(clientKey string, token string) error {
	if !s.IsRequired() {
		return nil
	}

	if s.failureLimiter != nil {
		info, err := s.failureLimiter.GetRateLimitInfo(clientKey, authFailureRefillPerSecond, authFailureBurst)
		if err != nil {
			s.logger.Warn("failed to check auth failure limit",
				slog.String("client", clientKey),
				slog.String("error", err.Error()))
		} else if !info.Allowed {
			return &TooManyFailuresError{RetryAfterSec: info.RetryAfterSec}
		}
	}

	if token == "" {
		return ErrTokenRequired
	}

	if s.IsValid(token) {
		return nil
	}

	s.recordFailure(clientKey)
	return ErrInvalidToken
}

func (s *TokenAuthService) recordFailure(clientKey string) {
	if s.failureLimiter == nil {
		return
	}

	result, err := s.failureLimiter.CheckRateLimit(clientKey, authFailureRefillPerSecond, authFailureBurst)
	if err != nil {
		s.logger.Warn("failed to record auth failure",
			slog.String("client", clientKey),
			slog.String("error", err.Error()))
		return
	}

	if result.Remaining == 0 {
		s.logger.Warn("client is being throttled after repeated auth failures",
			slog.String("client", clientKey))
	}
}

// TokenFromRequest reads "Authorization: Bearer <token>" and falls back to
// the token query parameter, which browsers must use for websockets.
func TokenFromRequest(request *http.Request) string {
	header := request.Header.Get("Authorization")
	if header != "" {
		if token, found := strings.CutPrefix(header, "Bearer "); found {
			return strings.TrimSpace(token)
		}
		return strings.TrimSpace(header)
	}

	return request.URL.Query().Get("token")
}
