package domain

import "time"

// Outcome summarises one relay request for the stats store. It never holds
// the payload or the CSV.
type Outcome struct {
	RequestID      string    `json:"request_id"`
	FileName       string    `json:"file_name"`
	Success        bool      `json:"success"`
	Kind           Kind      `json:"kind,omitempty"`
	Status         int       `json:"status"`
	ProcessingTime int64     `json:"processing_time_ms"`
	PayloadBytes   int64     `json:"payload_bytes"`
	PayloadHash    string    `json:"payload_sha256,omitempty"`
	MetricCount    int       `json:"metric_count"`
	CompletedAt    time.Time `json:"completed_at"`
}

// OutcomeLabel is the counter label for o: "success" or its failure kind.
func (o Outcome) OutcomeLabel() string {
	if o.Success {
		return "success"
	}
	if o.Kind == "" {
		return string(KindInternal)
	}
	return string(o.Kind)
}

// Stats is the aggregate view served by the stats endpoint.
type Stats struct {
	Counts map[string]int64 `json:"counts"`
	Recent []Outcome        `json:"recent"`
}
