package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/jonno85/bin-relay/internal/domain"
	"github.com/jonno85/bin-relay/internal/middleware"
	"github.com/jonno85/bin-relay/internal/service"
)

const platformTimeoutMessage = "The file processing exceeded the serverless function time limit. Please use a smaller file."

type RelayHandler struct {
	Relay *service.RelayService
}

// ProcessBin relays the raw request body and answers with a RelayEnvelope.
// The status follows the failure kind so callers need not parse the message.
func (h *RelayHandler) ProcessBin(w http.ResponseWriter, r *http.Request) {
	req := domain.UploadRequest{
		FileName:     r.Header.Get(domain.FileNameHeader),
		DeclaredSize: r.ContentLength,
		ReceivedAt:   time.Now(),
	}
	slog.Info("Request started", "requestID", middleware.RequestID(r.Context()), "fileName", req.FileName, "contentLength", r.ContentLength)

	var env *domain.RelayEnvelope
	payload, err := h.readPayload(w, r)
	if err != nil {
		env = h.Relay.Fail(err, req.ReceivedAt)
	} else {
		req.Payload = payload
		env, err = h.Relay.Process(r.Context(), req)
	}

	status := http.StatusOK
	if err != nil {
		status = domain.HTTPStatus(domain.KindOf(err))
	}
	render.Status(r, status)
	render.JSON(w, r, env)

	// The inbound context only carries a deadline when the platform ceiling
	// wraps this handler, so its expiry means the caller got the ceiling's 503.
	if errors.Is(r.Context().Err(), context.DeadlineExceeded) {
		env, status = h.ceilingEnvelope(), http.StatusServiceUnavailable
	}
	h.Relay.Observe(r.Context(), middleware.RequestID(r.Context()), req, env, status)
}

// readPayload reads the body, refusing anything over the size ceiling before it is buffered.
func (h *RelayHandler) readPayload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	maxBytes := h.Relay.Config().MaxPayloadBytes
	if maxBytes > 0 && r.ContentLength > maxBytes {
		return nil, domain.PayloadTooLarge(r.ContentLength, maxBytes)
	}
	if r.Body == nil || r.Body == http.NoBody {
		return nil, domain.New(domain.KindValidation, "read_body", "No binary data received")
	}

	body := r.Body
	if maxBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	payload, err := io.ReadAll(body)
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return nil, domain.PayloadTooLarge(maxErr.Limit+1, maxErr.Limit)
	}
	if err != nil {
		return nil, domain.Wrap(domain.KindValidation, "read_body", "Failed to read binary data", err)
	}
	return payload, nil
}

// WithPlatformCeiling bounds next by the platform execution ceiling. When the
// ceiling is hit the caller gets a 503 carrying a timeout envelope.
func (h *RelayHandler) WithPlatformCeiling(next http.Handler) http.Handler {
	cfg := h.Relay.Config()
	if cfg.PlatformTimeout <= 0 {
		return next
	}
	body, err := json.Marshal(h.ceilingEnvelope())
	if err != nil {
		body = []byte(platformTimeoutMessage)
	}
	ceiling := http.TimeoutHandler(next, cfg.PlatformTimeout, string(body))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// TimeoutHandler writes its body straight to w, and replaces these
		// headers with the handler's own when it finishes in time.
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		ceiling.ServeHTTP(w, r)
	})
}

func (h *RelayHandler) ceilingEnvelope() *domain.RelayEnvelope {
	timeout := h.Relay.Config().PlatformTimeout
	return domain.FailureEnvelope(domain.New(domain.KindTimeout, "platform", platformTimeoutMessage), timeout)
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusMethodNotAllowed)
	render.JSON(w, r, &domain.RelayEnvelope{Success: false, Error: "Method not allowed", ErrorKind: domain.KindValidation})
}
