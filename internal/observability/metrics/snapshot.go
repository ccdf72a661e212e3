package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// CountersByLabel sums a counter family by one label's values. Missing
// families and gather errors yield an empty map.
func CountersByLabel(gatherer prometheus.Gatherer, family, label string) map[string]float64 {
	out := map[string]float64{}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return out
	}

	var mf *dto.MetricFamily
	for _, candidate := range mfs {
		if candidate != nil && candidate.GetName() == family {
			mf = candidate
			break
		}
	}
	if mf == nil {
		return out
	}
	for _, m := range mf.GetMetric() {
		if m == nil || m.GetCounter() == nil {
			continue
		}
		out[labelValue(m, label)] += m.GetCounter().GetValue()
	}
	return out
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
