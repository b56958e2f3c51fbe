package adapter

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonno85/bin-relay/internal/domain"
)

func newTestRecorder(t *testing.T, history int64) (*RedisClientImpl, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	recorder := NewRedisClientImpl(mr.Addr(), "", 0, history)
	t.Cleanup(func() { _ = recorder.Close() })
	return recorder, mr
}

func TestRedisClientImpl_RecordAndStats(t *testing.T) {
	recorder, _ := newTestRecorder(t, 3)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, recorder.Record(ctx, domain.Outcome{
			RequestID:   fmt.Sprintf("req-%d", i),
			FileName:    "a.bin",
			Success:     true,
			Status:      200,
			MetricCount: 8,
			CompletedAt: time.Unix(int64(i), 0).UTC(),
		}))
	}
	require.NoError(t, recorder.Record(ctx, domain.Outcome{
		RequestID: "req-timeout",
		Kind:      domain.KindTimeout,
		Status:    408,
	}))

	stats, err := recorder.Stats(ctx, 10)
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"success": 4, "timeout": 1}, stats.Counts)
	require.Len(t, stats.Recent, 3)
	assert.Equal(t, "req-timeout", stats.Recent[0].RequestID)
	assert.Equal(t, "req-3", stats.Recent[1].RequestID)
	assert.Equal(t, domain.KindTimeout, stats.Recent[0].Kind)
}

func TestRedisClientImpl_StatsLimit(t *testing.T) {
	recorder, _ := newTestRecorder(t, 10)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, recorder.Record(ctx, domain.Outcome{RequestID: fmt.Sprintf("req-%d", i), Success: true}))
	}

	stats, err := recorder.Stats(ctx, 2)
	require.NoError(t, err)
	require.Len(t, stats.Recent, 2)
	assert.Equal(t, "req-4", stats.Recent[0].RequestID)
}

func TestRedisClientImpl_Unavailable(t *testing.T) {
	recorder, mr := newTestRecorder(t, 10)
	mr.Close()

	err := recorder.Record(context.Background(), domain.Outcome{RequestID: "lost"})
	assert.Error(t, err)
}

func TestNoopRecorder(t *testing.T) {
	var recorder OutcomeRecorder = NoopRecorder{}

	require.NoError(t, recorder.Record(context.Background(), domain.Outcome{}))
	stats, err := recorder.Stats(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, stats.Counts)
	assert.Empty(t, stats.Recent)
}
