package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/jonno85/bin-relay/internal/domain"
)

const (
	timeoutMessage = "The file processing timed out. The file may be too large or the service is temporarily busy."

	// errorBodyPrefix bounds how much of a non-200 body is read for logging.
	errorBodyPrefix = 256
)

// Upstream posts a binary payload to the processing API and returns the raw JSON body.
type Upstream interface {
	Post(ctx context.Context, fileName string, payload []byte) ([]byte, error)
}

// UpstreamClient talks to the fixed processing endpoint. It applies no timeout
// of its own, the caller's context bounds the whole exchange.
type UpstreamClient struct {
	url              string
	httpClient       *http.Client
	maxResponseBytes int64
}

func NewUpstreamClient(url string, maxResponseBytes int64, httpClient *http.Client) *UpstreamClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &UpstreamClient{
		url:              url,
		httpClient:       httpClient,
		maxResponseBytes: maxResponseBytes,
	}
}

func (u *UpstreamClient) Post(ctx context.Context, fileName string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, bytes.NewReader(payload))
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "upstream_post", "failed to build upstream request", err)
	}
	req.Header.Set("Content-Type", domain.ContentTypeBinary)
	req.Header.Set(domain.FileNameHeader, fileName)

	slog.Debug("Sending data to API", "url", u.url, "fileName", fileName, "bytes", len(payload))
	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, "upstream_post", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		prefix, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyPrefix))
		slog.Warn("Upstream returned non-200", "status", resp.StatusCode, "body", string(prefix))
		return nil, domain.New(domain.KindUpstream, "upstream_post",
			fmt.Sprintf("API request failed with status: %d", resp.StatusCode))
	}

	body, err := u.readBody(resp.Body)
	if err != nil {
		return nil, classifyTransportError(ctx, "upstream_read", err)
	}
	return body, nil
}

func (u *UpstreamClient) readBody(r io.Reader) ([]byte, error) {
	if u.maxResponseBytes <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, u.maxResponseBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > u.maxResponseBytes {
		return nil, domain.New(domain.KindInvalidResponse, "upstream_read",
			fmt.Sprintf("Invalid response from API: body exceeds %d bytes", u.maxResponseBytes))
	}
	return body, nil
}

// classifyTransportError separates deadline expiry from other network failures.
func classifyTransportError(ctx context.Context, op string, err error) error {
	var typed *domain.Error
	if errors.As(err, &typed) {
		return typed
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.Wrap(domain.KindTimeout, op, timeoutMessage, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.Wrap(domain.KindTimeout, op, timeoutMessage, err)
	}
	return domain.Wrap(domain.KindTransport, op, "API request failed", err)
}
