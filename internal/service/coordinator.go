package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jonno85/bin-relay/internal/config"
	"github.com/jonno85/bin-relay/internal/domain"
)

// UploadState is the coordinator's position in the upload lifecycle.
type UploadState string

const (
	StateIdle       UploadState = "idle"
	StateDragging   UploadState = "dragging"
	StateProcessing UploadState = "processing"
	StateSuccess    UploadState = "success"
	StateError      UploadState = "error"
)

// ResultKind tells a UI which remedy to show for a finished upload.
type ResultKind string

const (
	ResultNone      ResultKind = ""
	ResultSuccess   ResultKind = "success"
	ResultTimeout   ResultKind = "timeout"
	ResultSizeError ResultKind = "size_error"
	ResultError     ResultKind = "error"
)

var (
	ErrUploadInFlight    = errors.New("an upload is already in progress")
	ErrInvalidTransition = errors.New("invalid upload state transition")
)

// Snapshot is a copy of the coordinator's derived state.
type Snapshot struct {
	State          UploadState
	FileName       string
	ErrorMessage   string
	IsTimeout      bool
	IsSizeError    bool
	ProcessingTime time.Duration
	Metrics        *domain.MetricMap
	CSV            *domain.CsvArtifact
}

// Result classifies a terminal snapshot.
func (s Snapshot) Result() ResultKind {
	switch {
	case s.State == StateSuccess:
		return ResultSuccess
	case s.State != StateError:
		return ResultNone
	case s.IsSizeError:
		return ResultSizeError
	case s.IsTimeout:
		return ResultTimeout
	default:
		return ResultError
	}
}

// UploadCoordinator drives one file at a time through validation, transmission
// to the relay and classification of the result.
type UploadCoordinator struct {
	cfg        config.CoordinatorConfig
	httpClient *http.Client
	onChange   func(UploadState)

	mu   sync.Mutex
	snap Snapshot
}

type CoordinatorOption func(*UploadCoordinator)

// WithHTTPClient replaces the client used to reach the relay.
func WithHTTPClient(client *http.Client) CoordinatorOption {
	return func(uc *UploadCoordinator) {
		uc.httpClient = client
	}
}

// WithStateListener registers fn to be called after every state change.
func WithStateListener(fn func(UploadState)) CoordinatorOption {
	return func(uc *UploadCoordinator) {
		uc.onChange = fn
	}
}

func NewUploadCoordinator(cfg config.CoordinatorConfig, opts ...CoordinatorOption) *UploadCoordinator {
	if cfg.FileExtension == "" {
		cfg.FileExtension = domain.BinExtension
	}
	if cfg.ClientTimeout <= 0 {
		cfg.ClientTimeout = config.DefaultClientTimeout
	}
	uc := &UploadCoordinator{
		cfg:        cfg,
		httpClient: &http.Client{},
		snap:       Snapshot{State: StateIdle},
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *UploadCoordinator) Snapshot() Snapshot {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.snap
}

func (uc *UploadCoordinator) State() UploadState {
	return uc.Snapshot().State
}

// BeginDrag moves Idle to Dragging.
func (uc *UploadCoordinator) BeginDrag() error {
	return uc.move(StateIdle, StateDragging)
}

// EndDrag moves Dragging back to Idle.
func (uc *UploadCoordinator) EndDrag() error {
	return uc.move(StateDragging, StateIdle)
}

func (uc *UploadCoordinator) move(from, to UploadState) error {
	uc.mu.Lock()
	if uc.snap.State != from {
		current := uc.snap.State
		uc.mu.Unlock()
		return fmt.Errorf("%w: %s to %s from %s", ErrInvalidTransition, from, to, current)
	}
	uc.snap.State = to
	uc.mu.Unlock()
	uc.notify(to)
	return nil
}

// Reset clears all derived state, releasing any held CSV, and returns to Idle.
func (uc *UploadCoordinator) Reset() error {
	uc.mu.Lock()
	if uc.snap.State == StateProcessing {
		uc.mu.Unlock()
		return ErrUploadInFlight
	}
	uc.snap = Snapshot{State: StateIdle}
	uc.mu.Unlock()
	uc.notify(StateIdle)
	return nil
}

// Upload validates req locally, sends it to the relay under the client
// deadline and leaves the coordinator in Success or Error. It refuses to start
// while another upload is in flight or before a finished one is reset.
func (uc *UploadCoordinator) Upload(ctx context.Context, req domain.UploadRequest) (Snapshot, error) {
	uc.mu.Lock()
	switch uc.snap.State {
	case StateProcessing:
		uc.mu.Unlock()
		return uc.Snapshot(), ErrUploadInFlight
	case StateSuccess, StateError:
		current := uc.snap.State
		uc.mu.Unlock()
		return uc.Snapshot(), fmt.Errorf("%w: reset before uploading from %s", ErrInvalidTransition, current)
	}

	if !strings.HasSuffix(req.FileName, uc.cfg.FileExtension) {
		uc.snap = Snapshot{State: StateError, ErrorMessage: fmt.Sprintf("Please upload a %s file", uc.cfg.FileExtension)}
		return uc.finish()
	}
	if err := req.Validate(uc.cfg.MaxPayloadBytes); err != nil {
		uc.snap = Snapshot{
			State:        StateError,
			ErrorMessage: domain.MessageOf(err),
			IsSizeError:  domain.KindOf(err) == domain.KindPayloadTooLarge,
		}
		return uc.finish()
	}

	uc.snap = Snapshot{State: StateProcessing, FileName: req.FileName}
	uc.mu.Unlock()
	uc.notify(StateProcessing)

	slog.Info("Processing file", "fileName", req.FileName, "size", domain.FormatMiB(int64(len(req.Payload))))
	next := uc.transmit(ctx, req)
	next.FileName = req.FileName

	uc.mu.Lock()
	uc.snap = next
	return uc.finish()
}

// finish publishes the terminal snapshot. It must be called with mu held.
func (uc *UploadCoordinator) finish() (Snapshot, error) {
	snap := uc.snap
	uc.mu.Unlock()
	uc.notify(snap.State)
	return snap, nil
}

func (uc *UploadCoordinator) notify(state UploadState) {
	if uc.onChange != nil {
		uc.onChange(state)
	}
}

// transmit performs the single request to the relay and classifies what came back.
func (uc *UploadCoordinator) transmit(ctx context.Context, req domain.UploadRequest) Snapshot {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, uc.cfg.ClientTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, uc.cfg.RelayURL, bytes.NewReader(req.Payload))
	if err != nil {
		return failure(fmt.Sprintf("Error processing file: invalid relay URL: %v", err), time.Since(start))
	}
	httpReq.Header.Set("Content-Type", domain.ContentTypeBinary)
	httpReq.Header.Set(domain.FileNameHeader, req.FileName)

	resp, err := uc.httpClient.Do(httpReq)
	if err != nil {
		return uc.transportFailure(ctx, err, time.Since(start))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	if err != nil {
		return uc.transportFailure(ctx, err, elapsed)
	}
	slog.Info("Response received", "elapsed", elapsed.String(), "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyFailure(resp.StatusCode, body, elapsed)
	}
	return classifySuccess(body, elapsed)
}

func (uc *UploadCoordinator) transportFailure(ctx context.Context, err error, elapsed time.Duration) Snapshot {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		snap := failure(fmt.Sprintf("Error processing file: Request timed out after %s", uc.cfg.ClientTimeout), elapsed)
		snap.IsTimeout = true
		return snap
	}
	slog.Error("Relay request failed", "elapsed", elapsed.String(), "err", err)
	return failure(fmt.Sprintf("Error processing file: Server request failed: %v", err), elapsed)
}

// classifyFailure reads a non-2xx response. The body is decoded as an
// envelope, and used verbatim when it is not one.
func classifyFailure(status int, body []byte, elapsed time.Duration) Snapshot {
	message := fmt.Sprintf("Server request failed with status: %d", status)
	snap := failure(message, elapsed)

	var env domain.RelayEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Error != "" {
			snap.ErrorMessage = env.Error
		}
		if env.ProcessingTime > 0 {
			snap.ProcessingTime = env.Elapsed()
		}
		snap.IsTimeout = env.TimeoutError || env.ErrorKind == domain.KindTimeout
		snap.IsSizeError = env.ErrorKind == domain.KindPayloadTooLarge
	} else if text := strings.TrimSpace(string(body)); text != "" {
		snap.ErrorMessage = text
	}

	switch status {
	case http.StatusRequestEntityTooLarge:
		snap.IsSizeError = true
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		snap.IsTimeout = true
	}
	slog.Error("Server response error", "status", status, "message", snap.ErrorMessage,
		"timeout", snap.IsTimeout, "sizeError", snap.IsSizeError)
	snap.ErrorMessage = "Error processing file: " + snap.ErrorMessage
	return snap
}

func classifySuccess(body []byte, elapsed time.Duration) Snapshot {
	var env domain.RelayEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return failure("Error processing file: Invalid response format", elapsed)
	}
	if env.ProcessingTime > 0 {
		elapsed = env.Elapsed()
	}
	if !env.Success {
		message := env.Error
		if message == "" {
			message = "Processing failed"
		}
		return failure("Error processing file: "+message, elapsed)
	}
	results, err := env.Metrics()
	if err != nil {
		return failure("Error processing file: Invalid response format", elapsed)
	}
	artifact := env.Artifact()
	return Snapshot{
		State:          StateSuccess,
		ProcessingTime: elapsed,
		Metrics:        results,
		CSV:            &artifact,
	}
}

func failure(message string, elapsed time.Duration) Snapshot {
	return Snapshot{State: StateError, ErrorMessage: message, ProcessingTime: elapsed}
}

// SaveCSV writes the held CSV into dir and returns its path. No network call is made.
func (uc *UploadCoordinator) SaveCSV(dir string) (string, error) {
	snap := uc.Snapshot()
	if snap.State != StateSuccess || snap.CSV == nil {
		return "", fmt.Errorf("%w: no CSV available in state %s", ErrInvalidTransition, snap.State)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, filepath.Base(snap.CSV.FileName))
	if err := os.WriteFile(path, []byte(snap.CSV.Content), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
