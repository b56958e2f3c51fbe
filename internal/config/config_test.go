package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonno85/bin-relay/internal/domain"
)

func TestLoadRelayConfig_Defaults(t *testing.T) {
	t.Setenv("UPSTREAM_URL", "https://upstream.example/process")

	cfg, err := LoadRelayConfig()
	require.NoError(t, err)

	assert.Equal(t, int64(domain.DefaultMaxPayload), cfg.MaxPayloadBytes)
	assert.Equal(t, DefaultRelayTimeout, cfg.RelayTimeout)
	assert.Equal(t, DefaultPlatformTimeout, cfg.PlatformTimeout)
	assert.False(t, cfg.Development())
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadRelayConfig_Overrides(t *testing.T) {
	t.Setenv("UPSTREAM_URL", "http://127.0.0.1:9999")
	t.Setenv("MAX_PAYLOAD_BYTES", "1024")
	t.Setenv("RELAY_TIMEOUT_SEC", "0.5")
	t.Setenv("PLATFORM_TIMEOUT_SEC", "1")
	t.Setenv("APP_ENV", "development")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")

	cfg, err := LoadRelayConfig()
	require.NoError(t, err)

	assert.Equal(t, int64(1024), cfg.MaxPayloadBytes)
	assert.Equal(t, 500*time.Millisecond, cfg.RelayTimeout)
	assert.Equal(t, time.Second, cfg.PlatformTimeout)
	assert.True(t, cfg.Development())
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestLoadRelayConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing upstream", env: map[string]string{}},
		{name: "bad size", env: map[string]string{"UPSTREAM_URL": "http://x", "MAX_PAYLOAD_BYTES": "five"}},
		{name: "bad timeout", env: map[string]string{"UPSTREAM_URL": "http://x", "RELAY_TIMEOUT_SEC": "soon"}},
		{name: "relay not nested in platform", env: map[string]string{"UPSTREAM_URL": "http://x", "RELAY_TIMEOUT_SEC": "30", "PLATFORM_TIMEOUT_SEC": "30"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("UPSTREAM_URL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadRelayConfig()
			require.Error(t, err)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		})
	}
}

func TestLoadCoordinatorConfig(t *testing.T) {
	t.Setenv("CLIENT_TIMEOUT_SEC", "3")

	cfg, err := LoadCoordinatorConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultRelayURL, cfg.RelayURL)
	assert.Equal(t, 3*time.Second, cfg.ClientTimeout)
	assert.Equal(t, domain.BinExtension, cfg.FileExtension)
	assert.Equal(t, DefaultWatchSettle, cfg.WatchSettle)
}

func TestLoadCoordinatorConfig_Nesting(t *testing.T) {
	t.Setenv("CLIENT_TIMEOUT_SEC", "25")

	_, err := LoadCoordinatorConfig()
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Contains(t, err.Error(), "CLIENT_TIMEOUT")

	t.Setenv("RELAY_TIMEOUT_SEC", "40")
	cfg, err := LoadCoordinatorConfig()
	require.NoError(t, err)
	assert.Equal(t, 25*time.Second, cfg.ClientTimeout)
}

func TestCheckNesting(t *testing.T) {
	relay := RelayConfig{RelayTimeout: DefaultRelayTimeout}

	assert.NoError(t, CheckNesting(relay, CoordinatorConfig{ClientTimeout: DefaultClientTimeout}))
	assert.Error(t, CheckNesting(relay, CoordinatorConfig{ClientTimeout: DefaultRelayTimeout}))
}
