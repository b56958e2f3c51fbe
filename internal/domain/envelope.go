package domain

import (
	"encoding/json"
	"time"
)

// RelayEnvelope is the uniform JSON body the relay answers with.
// On success Results and CSVString are set, otherwise Error is.
type RelayEnvelope struct {
	Success        bool            `json:"success"`
	Error          string          `json:"error,omitempty"`
	ErrorKind      Kind            `json:"errorKind,omitempty"`
	Results        json.RawMessage `json:"results,omitempty"`
	CSVString      string          `json:"csvString,omitempty"`
	CSVFileName    string          `json:"csvFileName,omitempty"`
	ProcessingTime int64           `json:"processingTime"`
	TimeoutError   bool            `json:"timeoutError,omitempty"`

	// Diagnostics, only populated outside production.
	Name  string `json:"name,omitempty"`
	Stack string `json:"stack,omitempty"`
}

// SuccessEnvelope wraps a full upstream payload and its CSV artifact.
func SuccessEnvelope(payload json.RawMessage, artifact CsvArtifact, elapsed time.Duration) *RelayEnvelope {
	return &RelayEnvelope{
		Success:        true,
		Results:        payload,
		CSVString:      artifact.Content,
		CSVFileName:    artifact.FileName,
		ProcessingTime: elapsed.Milliseconds(),
	}
}

// FailureEnvelope describes err. TimeoutError is set only for timeout-class failures.
func FailureEnvelope(err error, elapsed time.Duration) *RelayEnvelope {
	kind := KindOf(err)
	return &RelayEnvelope{
		Success:        false,
		Error:          MessageOf(err),
		ErrorKind:      kind,
		ProcessingTime: elapsed.Milliseconds(),
		TimeoutError:   kind == KindTimeout,
	}
}

func (e *RelayEnvelope) Elapsed() time.Duration {
	return time.Duration(e.ProcessingTime) * time.Millisecond
}

// Metrics decodes the MetricMap out of the embedded upstream payload.
func (e *RelayEnvelope) Metrics() (*MetricMap, error) {
	return DecodeResults(e.Results)
}

// Artifact returns the CSV carried by a successful envelope.
func (e *RelayEnvelope) Artifact() CsvArtifact {
	return CsvArtifact{FileName: e.CSVFileName, Content: e.CSVString}
}
