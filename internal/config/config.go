package config

import (
	"fmt"
	"time"

	"github.com/jonno85/bin-relay/internal/domain"
)

const (
	DefaultRelayTimeout    = 25 * time.Second
	DefaultPlatformTimeout = 30 * time.Second
	DefaultClientTimeout   = 20 * time.Second
	DefaultMaxResponse     = 10 * 1024 * 1024
	DefaultOutcomeHistory  = 100
	DefaultWatchSettle     = 2 * time.Second
	DefaultRelayURL        = "http://localhost:8080/api/process-bin"
	DevelopmentEnv         = "development"
)

// RelayConfig configures the relay service. Timeouts nest:
// PlatformTimeout > RelayTimeout, and clients use a deadline below RelayTimeout.
type RelayConfig struct {
	UpstreamURL      string
	MaxPayloadBytes  int64
	MaxResponseBytes int64
	RelayTimeout     time.Duration
	PlatformTimeout  time.Duration
	AppEnv           string
	Redis            RedisConfig
	OutcomeHistory   int64
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether an outcome store is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// Development reports whether diagnostics such as stack traces may be exposed.
func (c RelayConfig) Development() bool {
	return c.AppEnv == DevelopmentEnv
}

func (c RelayConfig) Validate() error {
	if c.UpstreamURL == "" {
		return domain.New(domain.KindValidation, "config", "UPSTREAM_URL is not set")
	}
	if c.RelayTimeout <= 0 || c.PlatformTimeout <= 0 {
		return domain.New(domain.KindValidation, "config", "timeouts must be positive")
	}
	if c.PlatformTimeout <= c.RelayTimeout {
		return domain.New(domain.KindValidation, "config", fmt.Sprintf(
			"PLATFORM_TIMEOUT (%s) must be greater than RELAY_TIMEOUT (%s)", c.PlatformTimeout, c.RelayTimeout))
	}
	if c.MaxPayloadBytes < 0 {
		return domain.New(domain.KindValidation, "config", "MAX_PAYLOAD_BYTES must not be negative")
	}
	return nil
}

// CoordinatorConfig configures the client side of an upload.
type CoordinatorConfig struct {
	RelayURL        string
	ClientTimeout   time.Duration
	MaxPayloadBytes int64
	FileExtension   string
	WatchSettle     time.Duration
	OutputDir       string
}

func (c CoordinatorConfig) Validate() error {
	if c.RelayURL == "" {
		return domain.New(domain.KindValidation, "config", "RELAY_URL is not set")
	}
	if c.ClientTimeout <= 0 {
		return domain.New(domain.KindValidation, "config", "CLIENT_TIMEOUT must be positive")
	}
	return nil
}

// CheckNesting verifies the client deadline expires before the relay's own.
func CheckNesting(relay RelayConfig, client CoordinatorConfig) error {
	if client.ClientTimeout >= relay.RelayTimeout {
		return domain.New(domain.KindValidation, "config", fmt.Sprintf(
			"CLIENT_TIMEOUT (%s) must be shorter than RELAY_TIMEOUT (%s)", client.ClientTimeout, relay.RelayTimeout))
	}
	return nil
}
