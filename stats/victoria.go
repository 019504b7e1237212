package stats

import (
	"github.com/VictoriaMetrics/metrics"
)

type victoriaGauge struct {
	*metrics.FloatCounter
}

func (g victoriaGauge) Inc() {
	g.FloatCounter.Add(1)
}

func (g victoriaGauge) Dec() {
	g.FloatCounter.Sub(1)
}

type victoriaCounter struct {
	*metrics.FloatCounter
}

func (c victoriaCounter) Inc() {
	c.FloatCounter.Add(1)
}

type victoriaSummary struct {
	*metrics.Summary
}

func (s victoriaSummary) Observe(value float64) {
	s.Summary.Update(value)
}

type victoriaStatsFactory struct {
	set *metrics.Set
}

// NewVictoriaFactory registers stats in set, named per PrometheusName.  The
// set is exposed by the caller, typically via set.WritePrometheus.
func NewVictoriaFactory(set *metrics.Set) StatsFactory {
	return victoriaStatsFactory{set: set}
}

func (f victoriaStatsFactory) NewCounter(
	metric string,
	tags map[string]string) CounterStat {

	return victoriaCounter{
		f.set.GetOrCreateFloatCounter(PrometheusName(metric, tags)),
	}
}

func (f victoriaStatsFactory) NewGauge(
	metric string,
	tags map[string]string) GaugeStat {

	return victoriaGauge{
		f.set.GetOrCreateFloatCounter(PrometheusName(metric, tags)),
	}
}

func (f victoriaStatsFactory) NewSummary(
	metric string,
	tags map[string]string) SummaryStat {

	return victoriaSummary{
		f.set.GetOrCreateSummary(PrometheusName(metric, tags)),
	}
}
