package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jonno85/bin-relay/internal/adapter"
	"github.com/jonno85/bin-relay/internal/config"
	"github.com/jonno85/bin-relay/internal/domain"
	"github.com/jonno85/bin-relay/internal/metrics"
	"github.com/jonno85/bin-relay/internal/service/utils"
)

const recordTimeout = time.Second

// RelayService forwards one binary payload to the upstream API and turns the
// returned metrics into a CSV artifact. It keeps no state between requests.
type RelayService struct {
	upstream adapter.Upstream
	recorder adapter.OutcomeRecorder
	cfg      config.RelayConfig
}

// NewRelayService creates a new RelayService instance.
func NewRelayService(cfg config.RelayConfig, appClients *config.AppClients) *RelayService {
	recorder := appClients.Recorder
	if recorder == nil {
		recorder = adapter.NoopRecorder{}
	}
	return &RelayService{
		upstream: appClients.Upstream,
		recorder: recorder,
		cfg:      cfg,
	}
}

// Process runs req through the size gate, the upstream call, response
// validation and CSV synthesis. The envelope is never nil and err is set
// exactly when the envelope reports a failure.
func (rs *RelayService) Process(ctx context.Context, req domain.UploadRequest) (*domain.RelayEnvelope, error) {
	start := req.ReceivedAt
	if start.IsZero() {
		start = time.Now()
	}
	fileName := domain.ResolveFileName(req.FileName, start)

	if err := req.Validate(rs.cfg.MaxPayloadBytes); err != nil {
		slog.Warn("Rejected payload", "fileName", fileName, "bytes", len(req.Payload), "err", err)
		return rs.Fail(err, start), err
	}
	metrics.PayloadBytes.Observe(float64(len(req.Payload)))
	slog.Info("Sending data to API", "fileName", fileName, "bytes", len(req.Payload), "receiveTime", time.Since(start).String())

	body, err := rs.callUpstream(ctx, fileName, req.Payload)
	if err != nil {
		slog.Error("API error", "fileName", fileName, "elapsed", time.Since(start).String(), "err", err)
		return rs.Fail(err, start), err
	}

	csvStart := time.Now()
	results, err := domain.DecodeResults(body)
	if err != nil {
		slog.Error("Invalid API response", "fileName", fileName, "err", err)
		return rs.Fail(err, start), err
	}
	artifact := domain.CsvArtifact{
		FileName: domain.CSVFileName(fileName),
		Content:  domain.SynthesizeCSV(results),
	}
	metrics.CSVRows.Observe(float64(results.Len()))
	slog.Info("CSV generation completed", "fileName", artifact.FileName, "rows", results.Len(),
		"csvTime", time.Since(csvStart).String(), "total", time.Since(start).String())

	return domain.SuccessEnvelope(json.RawMessage(body), artifact, time.Since(start)), nil
}

// callUpstream bounds the upstream exchange by the relay's own timeout.
func (rs *RelayService) callUpstream(ctx context.Context, fileName string, payload []byte) ([]byte, error) {
	upstreamCtx, cancel := context.WithTimeout(ctx, rs.cfg.RelayTimeout)
	defer cancel()

	apiStart := time.Now()
	body, err := rs.upstream.Post(upstreamCtx, fileName, payload)
	label := "success"
	if err != nil {
		label = string(domain.KindOf(err))
	}
	metrics.UpstreamDuration.WithLabelValues(label).Observe(time.Since(apiStart).Seconds())
	slog.Debug("API response received", "fileName", fileName, "elapsed", time.Since(apiStart).String(), "err", err)
	return body, err
}

// Fail builds the failure envelope for err, timed from start.
func (rs *RelayService) Fail(err error, start time.Time) *domain.RelayEnvelope {
	return domain.FailureEnvelope(err, time.Since(start))
}

// Observe counts the finished request and stores its outcome. Store failures
// are logged and never affect the response.
func (rs *RelayService) Observe(ctx context.Context, requestID string, req domain.UploadRequest, env *domain.RelayEnvelope, status int) {
	outcome := domain.Outcome{
		RequestID:      requestID,
		FileName:       domain.ResolveFileName(req.FileName, req.ReceivedAt),
		Success:        env.Success,
		Kind:           env.ErrorKind,
		Status:         status,
		ProcessingTime: env.ProcessingTime,
		PayloadBytes:   int64(len(req.Payload)),
		CompletedAt:    time.Now().UTC(),
	}
	if len(req.Payload) > 0 {
		outcome.PayloadHash = utils.ComputeHash(req.Payload)
	}
	if env.Success {
		if results, err := env.Metrics(); err == nil {
			outcome.MetricCount = results.Len()
		}
	}
	metrics.RequestsTotal.WithLabelValues(outcome.OutcomeLabel()).Inc()

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := rs.recorder.Record(recordCtx, outcome); err != nil {
		slog.Warn("Failed to record outcome", "requestID", requestID, "err", err)
	}
}

// Stats returns the recorded outcome summary.
func (rs *RelayService) Stats(ctx context.Context, limit int64) (domain.Stats, error) {
	return rs.recorder.Stats(ctx, limit)
}

func (rs *RelayService) Config() config.RelayConfig {
	return rs.cfg
}
