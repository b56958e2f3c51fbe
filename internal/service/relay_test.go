package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonno85/bin-relay/internal/adapter"
	"github.com/jonno85/bin-relay/internal/config"
	"github.com/jonno85/bin-relay/internal/domain"
)

type stubUpstream struct {
	body     []byte
	err      error
	calls    int
	fileName string
}

func (s *stubUpstream) Post(_ context.Context, fileName string, _ []byte) ([]byte, error) {
	s.calls++
	s.fileName = fileName
	return s.body, s.err
}

func testRelayConfig() config.RelayConfig {
	return config.RelayConfig{
		UpstreamURL:     "http://upstream.invalid",
		MaxPayloadBytes: 16,
		RelayTimeout:    time.Second,
		PlatformTimeout: 2 * time.Second,
	}
}

func newTestRelay(upstream adapter.Upstream) *RelayService {
	return NewRelayService(testRelayConfig(), &config.AppClients{Upstream: upstream})
}

func TestRelayService_Process_Success(t *testing.T) {
	body := `{"Results":{"HR":72,"Wellness":88},"Ranges":{"HR":{"MinVal":40,"MaxVal":180}}}`
	upstream := &stubUpstream{body: []byte(body)}

	env, err := newTestRelay(upstream).Process(context.Background(), domain.UploadRequest{
		Payload:    []byte{1, 2, 3},
		FileName:   "20231027_1700.bin",
		ReceivedAt: time.Now(),
	})
	require.NoError(t, err)

	assert.True(t, env.Success)
	assert.Empty(t, env.Error)
	assert.Equal(t, "Metric,Value\nHR,72\nWellness,88\n", env.CSVString)
	assert.Equal(t, "20231027_1700.csv", env.CSVFileName)
	assert.JSONEq(t, body, string(env.Results))
	assert.GreaterOrEqual(t, env.ProcessingTime, int64(0))
	assert.Equal(t, "20231027_1700.bin", upstream.fileName)
}

func TestRelayService_Process_SynthesizesFileName(t *testing.T) {
	upstream := &stubUpstream{body: []byte(`{"Results":{}}`)}
	received := time.UnixMilli(1700000000000)

	env, err := newTestRelay(upstream).Process(context.Background(), domain.UploadRequest{
		Payload:    []byte{1},
		ReceivedAt: received,
	})
	require.NoError(t, err)

	assert.Equal(t, "file_1700000000000", upstream.fileName)
	assert.Equal(t, "file_1700000000000.csv", env.CSVFileName)
	assert.Equal(t, "Metric,Value\n", env.CSVString)
}

func TestRelayService_Process_Failures(t *testing.T) {
	tests := []struct {
		name         string
		payload      []byte
		upstream     *stubUpstream
		want         domain.Kind
		wantUpstream bool
	}{
		{
			name:     "empty payload",
			payload:  nil,
			upstream: &stubUpstream{},
			want:     domain.KindValidation,
		},
		{
			name:     "payload over ceiling",
			payload:  make([]byte, 17),
			upstream: &stubUpstream{},
			want:     domain.KindPayloadTooLarge,
		},
		{
			name:         "missing Results",
			payload:      []byte{1},
			upstream:     &stubUpstream{body: []byte(`{"Ranges":{}}`)},
			want:         domain.KindInvalidResponse,
			wantUpstream: true,
		},
		{
			name:         "upstream non-200",
			payload:      []byte{1},
			upstream:     &stubUpstream{err: domain.New(domain.KindUpstream, "post", "API request failed with status: 500")},
			want:         domain.KindUpstream,
			wantUpstream: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := newTestRelay(tt.upstream).Process(context.Background(), domain.UploadRequest{
				Payload:    tt.payload,
				FileName:   "a.bin",
				ReceivedAt: time.Now(),
			})
			require.Error(t, err)

			assert.Equal(t, tt.want, domain.KindOf(err))
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
			assert.Equal(t, tt.want, env.ErrorKind)
			assert.False(t, env.TimeoutError)
			assert.Empty(t, env.CSVString)
			assert.Nil(t, env.Results)
			if tt.wantUpstream {
				assert.Equal(t, 1, tt.upstream.calls)
			} else {
				assert.Zero(t, tt.upstream.calls)
			}
		})
	}
}

func TestRelayService_Process_UpstreamTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.ReadAll(r.Body)
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := testRelayConfig()
	cfg.RelayTimeout = 50 * time.Millisecond
	relay := NewRelayService(cfg, &config.AppClients{Upstream: adapter.NewUpstreamClient(srv.URL, 0, srv.Client())})

	start := time.Now()
	env, err := relay.Process(context.Background(), domain.UploadRequest{Payload: []byte{1}, FileName: "slow.bin", ReceivedAt: start})
	require.Error(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, domain.KindTimeout, domain.KindOf(err))
	assert.Equal(t, http.StatusRequestTimeout, domain.HTTPStatus(domain.KindOf(err)))
	assert.True(t, env.TimeoutError)
	assert.GreaterOrEqual(t, env.ProcessingTime, int64(50))
}

func TestRelayService_ObserveRecordsOutcome(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	recorder := adapter.NewRedisClientImpl(mr.Addr(), "", 0, 10)
	defer recorder.Close()

	relay := NewRelayService(testRelayConfig(), &config.AppClients{
		Upstream: &stubUpstream{body: []byte(`{"Results":{"HR":72,"Wellness":88}}`)},
		Recorder: recorder,
	})
	req := domain.UploadRequest{Payload: []byte("hello"), FileName: "a.bin", ReceivedAt: time.Now()}
	env, err := relay.Process(context.Background(), req)
	require.NoError(t, err)

	relay.Observe(context.Background(), "req-1", req, env, http.StatusOK)

	stats, err := relay.Stats(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Counts["success"])
	require.Len(t, stats.Recent, 1)
	outcome := stats.Recent[0]
	assert.Equal(t, "req-1", outcome.RequestID)
	assert.Equal(t, "a.bin", outcome.FileName)
	assert.Equal(t, 2, outcome.MetricCount)
	assert.Equal(t, int64(5), outcome.PayloadBytes)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", outcome.PayloadHash)
}
