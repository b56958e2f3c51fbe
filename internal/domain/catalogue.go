package domain

// MetricInfo describes how a known metric is presented.
type MetricInfo struct {
	Key   string
	Label string
	Unit  string
}

// KnownMetrics lists the metrics with a display label, in display order.
var KnownMetrics = []MetricInfo{
	{Key: "HR", Label: "Heart Rate", Unit: "bpm"},
	{Key: "BloodCirculation", Label: "Blood Circulation"},
	{Key: "FitnessRaw", Label: "Fitness Raw"},
	{Key: "Metabolism", Label: "Metabolism"},
	{Key: "Hydration", Label: "Hydration"},
	{Key: "Calmness", Label: "Calmness"},
	{Key: "FitnessAvg", Label: "Fitness Avg"},
	{Key: "Wellness", Label: "Wellness"},
}

// DisplayMetric is a known metric paired with its value.
type DisplayMetric struct {
	MetricInfo
	Value float64
}

// DisplayMetrics keeps the known metrics of m, in the order m holds them.
// Unknown keys are dropped here but always kept in the CSV.
func DisplayMetrics(m *MetricMap) []DisplayMetric {
	known := make(map[string]MetricInfo, len(KnownMetrics))
	for _, info := range KnownMetrics {
		known[info.Key] = info
	}
	var out []DisplayMetric
	for _, metric := range m.Entries() {
		if info, ok := known[metric.Name]; ok {
			out = append(out, DisplayMetric{MetricInfo: info, Value: metric.Value})
		}
	}
	return out
}
