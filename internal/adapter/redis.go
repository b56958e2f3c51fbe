package adapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	redis "github.com/redis/go-redis/v9"

	"github.com/jonno85/bin-relay/internal/domain"
)

const (
	OutcomesKey = "relay:outcomes"
	CountsKey   = "relay:outcome-counts"
)

// OutcomeRecorder stores a summary of each relay request.
type OutcomeRecorder interface {
	Record(ctx context.Context, outcome domain.Outcome) error
	Stats(ctx context.Context, limit int64) (domain.Stats, error)
	Close() error
}

type RedisClientImpl struct {
	redisClient *redis.Client
	history     int64
}

// NewRedisClientImpl connects to redis. history caps the number of recent
// outcomes kept, counters are never trimmed.
func NewRedisClientImpl(addr, password string, db int, history int64) *RedisClientImpl {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		slog.Error("Failed to connect to Redis", "err", err)
	}
	if history <= 0 {
		history = 1
	}
	return &RedisClientImpl{
		redisClient: client,
		history:     history,
	}
}

func (r *RedisClientImpl) Record(ctx context.Context, outcome domain.Outcome) error {
	jsonBytes, err := json.Marshal(outcome)
	if err != nil {
		return err
	}
	_, err = r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if err := pipe.LPush(ctx, OutcomesKey, jsonBytes).Err(); err != nil {
			return err
		}
		if err := pipe.LTrim(ctx, OutcomesKey, 0, r.history-1).Err(); err != nil {
			return err
		}
		return pipe.HIncrBy(ctx, CountsKey, outcome.OutcomeLabel(), 1).Err()
	})
	slog.Debug("Recorded outcome", "requestID", outcome.RequestID, "outcome", outcome.OutcomeLabel(), "err", err)
	return err
}

// Stats returns the per-outcome counters and up to limit most recent outcomes, newest first.
func (r *RedisClientImpl) Stats(ctx context.Context, limit int64) (domain.Stats, error) {
	stats := domain.Stats{Counts: map[string]int64{}, Recent: []domain.Outcome{}}

	counts, err := r.redisClient.HGetAll(ctx, CountsKey).Result()
	if err != nil {
		return stats, err
	}
	for label, raw := range counts {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return stats, err
		}
		stats.Counts[label] = n
	}

	if limit <= 0 || limit > r.history {
		limit = r.history
	}
	items, err := r.redisClient.LRange(ctx, OutcomesKey, 0, limit-1).Result()
	if err != nil {
		return stats, err
	}
	for _, item := range items {
		var outcome domain.Outcome
		if err := json.Unmarshal([]byte(item), &outcome); err != nil {
			slog.Warn("Skipping unreadable outcome", "err", err)
			continue
		}
		stats.Recent = append(stats.Recent, outcome)
	}
	return stats, nil
}

func (r *RedisClientImpl) Close() error {
	return r.redisClient.Close()
}

// NoopRecorder is used when no redis is configured.
type NoopRecorder struct{}

func (NoopRecorder) Record(context.Context, domain.Outcome) error { return nil }

func (NoopRecorder) Stats(context.Context, int64) (domain.Stats, error) {
	return domain.Stats{Counts: map[string]int64{}, Recent: []domain.Outcome{}}, nil
}

func (NoopRecorder) Close() error { return nil }
