package auth

import (
	"logrelay/internal/cache"
	"logrelay/internal/config"
	"logrelay/internal/util/logger"
	"logrelay/internal/util/rate_limit"
)

var tokenAuthService = NewTokenAuthService(
	config.GetEnv().AuthToken,
	newFailureLimiter(),
	logger.GetLogger(),
)

func GetTokenAuthService() *TokenAuthService {
	return tokenAuthService
}

func newFailureLimiter() rate_limit.RateLimiter {
	if client := cache.GetCache(); client != nil {
		return rate_limit.NewValkeyRateLimiter(client, "logrelay:rate_limit:auth_failures:")
	}
	return rate_limit.NewInMemoryRateLimiter()
}
