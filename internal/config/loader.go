package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/jonno85/bin-relay/internal/domain"
)

// LoadDotEnv loads a .env file when one is present.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found or error loading .env file", "err", err)
	}
}

// LoadRelayConfig reads the relay configuration from the environment.
func LoadRelayConfig() (RelayConfig, error) {
	cfg := RelayConfig{
		UpstreamURL: os.Getenv("UPSTREAM_URL"),
		AppEnv:      get("APP_ENV", "production"),
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
	}
	var err error
	if cfg.MaxPayloadBytes, err = getInt64("MAX_PAYLOAD_BYTES", domain.DefaultMaxPayload); err != nil {
		return cfg, err
	}
	if cfg.MaxResponseBytes, err = getInt64("MAX_RESPONSE_BYTES", DefaultMaxResponse); err != nil {
		return cfg, err
	}
	if cfg.RelayTimeout, err = getSeconds("RELAY_TIMEOUT_SEC", DefaultRelayTimeout); err != nil {
		return cfg, err
	}
	if cfg.PlatformTimeout, err = getSeconds("PLATFORM_TIMEOUT_SEC", DefaultPlatformTimeout); err != nil {
		return cfg, err
	}
	if cfg.OutcomeHistory, err = getInt64("OUTCOME_HISTORY", DefaultOutcomeHistory); err != nil {
		return cfg, err
	}
	db, err := getInt64("REDIS_DB", 0)
	if err != nil {
		return cfg, err
	}
	cfg.Redis.DB = int(db)
	return cfg, cfg.Validate()
}

// LoadCoordinatorConfig reads the client configuration from the environment.
func LoadCoordinatorConfig() (CoordinatorConfig, error) {
	cfg := CoordinatorConfig{
		RelayURL:      get("RELAY_URL", DefaultRelayURL),
		FileExtension: get("FILE_EXTENSION", domain.BinExtension),
		OutputDir:     get("OUTPUT_DIR", "./output"),
	}
	var err error
	if cfg.MaxPayloadBytes, err = getInt64("MAX_PAYLOAD_BYTES", domain.DefaultMaxPayload); err != nil {
		return cfg, err
	}
	if cfg.ClientTimeout, err = getSeconds("CLIENT_TIMEOUT_SEC", DefaultClientTimeout); err != nil {
		return cfg, err
	}
	if cfg.WatchSettle, err = getSeconds("WATCH_SETTLE_SEC", DefaultWatchSettle); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	// The client deadline has to fire before the relay gives up on upstream.
	relayTimeout, err := getSeconds("RELAY_TIMEOUT_SEC", DefaultRelayTimeout)
	if err != nil {
		return cfg, err
	}
	return cfg, CheckNesting(RelayConfig{RelayTimeout: relayTimeout}, cfg)
}

// LogLevel parses LOG_LEVEL, defaulting to info.
func LogLevel() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func get(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt64(k string, def int64) (int64, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, domain.Wrap(domain.KindValidation, "config", k+" is not a valid integer", err)
	}
	return n, nil
}

// getSeconds accepts whole or fractional seconds, e.g. "25" or "0.5".
func getSeconds(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		slog.Debug(k+" is not set, using default", "default", def.String())
		return def, nil
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, domain.Wrap(domain.KindValidation, "config", k+" is not a valid number of seconds", err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
