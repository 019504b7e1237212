// Package stats is the metrics facade.  Library code records counters,
// gauges and summaries against a StatsFactory; the binary decides which
// backend (VictoriaMetrics, go-metrics, or nothing) receives them.
package stats

import (
	"sort"
	"strconv"
	"strings"
)

type CounterStat interface {
	Inc()
	Add(float64)
}

type GaugeStat interface {
	Set(float64)
	Get() float64

	Inc()
	Add(float64)

	Dec()
	Sub(float64)
}

type SummaryStat interface {
	Observe(float64)
}

type StatsFactory interface {
	NewCounter(
		metric string,
		tags map[string]string) CounterStat

	NewGauge(
		metric string,
		tags map[string]string) GaugeStat

	NewSummary(
		metric string,
		tags map[string]string) SummaryStat
}

func sortedTagKeys(tags map[string]string) []string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PrometheusName renders metric{k="v",...} with dots replaced by
// underscores and tags sorted by key.
func PrometheusName(metric string, tags map[string]string) string {
	name := strings.ReplaceAll(metric, ".", "_")
	if len(tags) == 0 {
		return name
	}

	parts := make([]string, 0, len(tags))
	for _, k := range sortedTagKeys(tags) {
		parts = append(
			parts,
			strings.ReplaceAll(k, ".", "_")+"="+strconv.Quote(tags[k]))
	}
	return name + "{" + strings.Join(parts, ",") + "}"
}

// FlatName renders metric[k=v,...] for backends without label support.
func FlatName(metric string, tags map[string]string) string {
	if len(tags) == 0 {
		return metric
	}

	parts := make([]string, 0, len(tags))
	for _, k := range sortedTagKeys(tags) {
		parts = append(parts, k+"="+tags[k])
	}
	return metric + "[" + strings.Join(parts, ",") + "]"
}
