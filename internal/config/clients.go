package config

import (
	"github.com/jonno85/bin-relay/internal/adapter"
)

// AppClients holds the external collaborators of the relay.
type AppClients struct {
	Upstream adapter.Upstream
	Recorder adapter.OutcomeRecorder
}

// NewAppClients builds the upstream client and, when REDIS_ADDR is set, the outcome store.
func NewAppClients(cfg RelayConfig) *AppClients {
	clients := &AppClients{
		Upstream: adapter.NewUpstreamClient(cfg.UpstreamURL, cfg.MaxResponseBytes, nil),
		Recorder: adapter.NoopRecorder{},
	}
	if cfg.Redis.Enabled() {
		clients.Recorder = adapter.NewRedisClientImpl(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.OutcomeHistory)
	}
	return clients
}
