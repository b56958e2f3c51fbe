package domain

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	CSVHeader    = "Metric,Value"
	CSVExtension = ".csv"
)

// CsvArtifact is the downloadable two-column table produced from a MetricMap.
type CsvArtifact struct {
	FileName string
	Content  string
}

// SynthesizeCSV renders metrics as "Metric,Value" rows in map order. Names are
// upstream identifiers and are written without quoting.
func SynthesizeCSV(metrics *MetricMap) string {
	var sb strings.Builder
	sb.WriteString(CSVHeader)
	sb.WriteByte('\n')
	for _, metric := range metrics.Entries() {
		sb.WriteString(metric.Name)
		sb.WriteByte(',')
		sb.WriteString(FormatValue(metric.Value))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ParseCSV reads back a synthesized CSV, splitting each row on its first comma.
func ParseCSV(content string) (*MetricMap, error) {
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	if len(lines) == 0 || lines[0] != CSVHeader {
		return nil, New(KindValidation, "parse_csv", "missing Metric,Value header")
	}
	metrics := NewMetricMap()
	for i, line := range lines[1:] {
		name, raw, ok := strings.Cut(line, ",")
		if !ok {
			return nil, New(KindValidation, "parse_csv", fmt.Sprintf("row %d has no value", i+1))
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, Wrap(KindValidation, "parse_csv", fmt.Sprintf("row %d value is not numeric", i+1), err)
		}
		metrics.Set(name, value)
	}
	return metrics, nil
}
