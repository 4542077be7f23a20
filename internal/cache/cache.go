package cache

import (
	"crypto/tls"
	"fmt"
	"sync"

	"logrelay/internal/config"

	"github.com/valkey-io/valkey-go"
)

var (
	once         sync.Once
	valkeyClient valkey.Client
)

// GetCache returns the shared Valkey client. It is nil when VALKEY_HOST is
// not set; callers fall back to in-process state then.
func GetCache() valkey.Client {
	once.Do(func() {
		env := config.GetEnv()
		if !env.IsValkeyConfigured() {
			return
		}

		options := valkey.ClientOption{
			InitAddress: []string{env.ValkeyHost + ":" + env.ValkeyPort},
			Password:    env.ValkeyPassword,
			Username:    env.ValkeyUsername,
		}

		if env.ValkeyIsSsl {
			options.TLSConfig = &tls.Config{
				ServerName: env.ValkeyHost,
			}
		}

		client, err := valkey.NewClient(options)
		if err != nil {
			panic(fmt.Sprintf("failed to connect to valkey at %s: %v", options.InitAddress[0], err))
		}

		valkeyClient = client
	})

	return valkeyClient
}
