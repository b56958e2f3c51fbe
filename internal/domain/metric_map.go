package domain

import (
	"encoding/json"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Metric is a single named measurement returned by the upstream API.
type Metric struct {
	Name  string
	Value float64
}

// MetricMap keeps metrics in the order the upstream API sent them.
type MetricMap struct {
	om *orderedmap.OrderedMap[string, float64]
}

func NewMetricMap() *MetricMap {
	return &MetricMap{om: orderedmap.New[string, float64]()}
}

// MetricMapOf builds a map from metrics, keeping their order.
func MetricMapOf(metrics ...Metric) *MetricMap {
	m := NewMetricMap()
	for _, metric := range metrics {
		m.Set(metric.Name, metric.Value)
	}
	return m
}

func (m *MetricMap) init() {
	if m.om == nil {
		m.om = orderedmap.New[string, float64]()
	}
}

// Set adds or overwrites a metric. An overwritten metric keeps its original position.
func (m *MetricMap) Set(name string, value float64) {
	m.init()
	m.om.Set(name, value)
}

func (m *MetricMap) Get(name string) (float64, bool) {
	if m == nil || m.om == nil {
		return 0, false
	}
	return m.om.Get(name)
}

func (m *MetricMap) Len() int {
	if m == nil || m.om == nil {
		return 0
	}
	return m.om.Len()
}

// Entries returns the metrics in insertion order.
func (m *MetricMap) Entries() []Metric {
	if m == nil || m.om == nil {
		return nil
	}
	entries := make([]Metric, 0, m.om.Len())
	for pair := m.om.Oldest(); pair != nil; pair = pair.Next() {
		entries = append(entries, Metric{Name: pair.Key, Value: pair.Value})
	}
	return entries
}

func (m *MetricMap) UnmarshalJSON(data []byte) error {
	m.om = orderedmap.New[string, float64]()
	return m.om.UnmarshalJSON(data)
}

func (m *MetricMap) MarshalJSON() ([]byte, error) {
	if m == nil || m.om == nil {
		return []byte("{}"), nil
	}
	return m.om.MarshalJSON()
}

// FormatValue renders a metric value the shortest way that round-trips, 72 rather than 72.000000.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// UpstreamPayload is the part of the upstream body the relay depends on.
type UpstreamPayload struct {
	Results json.RawMessage `json:"Results"`
}

// DecodeResults extracts the ordered Results object from a full upstream payload.
func DecodeResults(body []byte) (*MetricMap, error) {
	var payload UpstreamPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, Wrap(KindInvalidResponse, "decode_results", "Invalid response from API: body is not a JSON object", err)
	}
	if len(payload.Results) == 0 || string(payload.Results) == "null" {
		return nil, New(KindInvalidResponse, "decode_results", "Invalid response from API: Results field is missing")
	}
	metrics := NewMetricMap()
	if err := json.Unmarshal(payload.Results, metrics); err != nil {
		return nil, Wrap(KindInvalidResponse, "decode_results", "Invalid response from API: Results is not a metric map", err)
	}
	return metrics, nil
}
