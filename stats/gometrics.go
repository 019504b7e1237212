package stats

import (
	"sync"

	gometrics "github.com/rcrowley/go-metrics"
)

type goMetricsCounter struct {
	counter gometrics.Counter
}

func (c goMetricsCounter) Inc() {
	c.counter.Inc(1)
}

func (c goMetricsCounter) Add(value float64) {
	c.counter.Inc(int64(value))
}

type goMetricsGauge struct {
	mutex *sync.Mutex
	gauge gometrics.GaugeFloat64
}

func (g goMetricsGauge) Set(value float64) {
	g.gauge.Update(value)
}

func (g goMetricsGauge) Get() float64 {
	return g.gauge.Value()
}

func (g goMetricsGauge) Inc() {
	g.Add(1)
}

func (g goMetricsGauge) Dec() {
	g.Add(-1)
}

func (g goMetricsGauge) Sub(value float64) {
	g.Add(-value)
}

func (g goMetricsGauge) Add(value float64) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.gauge.Update(g.gauge.Value() + value)
}

type goMetricsSummary struct {
	histogram gometrics.Histogram
}

func (s goMetricsSummary) Observe(value float64) {
	s.histogram.Update(int64(value))
}

type goMetricsStatsFactory struct {
	registry gometrics.Registry

	mutex  sync.Mutex
	gauges map[string]*sync.Mutex
}

// NewGoMetricsFactory registers stats in registry, named per FlatName.
// Summaries are histograms over an exponentially decaying sample.
func NewGoMetricsFactory(registry gometrics.Registry) StatsFactory {
	return &goMetricsStatsFactory{
		registry: registry,
		gauges:   make(map[string]*sync.Mutex),
	}
}

func (f *goMetricsStatsFactory) NewCounter(
	metric string,
	tags map[string]string) CounterStat {

	return goMetricsCounter{
		gometrics.GetOrRegisterCounter(FlatName(metric, tags), f.registry),
	}
}

func (f *goMetricsStatsFactory) NewGauge(
	metric string,
	tags map[string]string) GaugeStat {

	name := FlatName(metric, tags)

	f.mutex.Lock()
	mutex, ok := f.gauges[name]
	if !ok {
		mutex = &sync.Mutex{}
		f.gauges[name] = mutex
	}
	f.mutex.Unlock()

	return goMetricsGauge{
		mutex: mutex,
		gauge: gometrics.GetOrRegisterGaugeFloat64(name, f.registry),
	}
}

func (f *goMetricsStatsFactory) NewSummary(
	metric string,
	tags map[string]string) SummaryStat {

	return goMetricsSummary{
		gometrics.GetOrRegisterHistogram(
			FlatName(metric, tags),
			f.registry,
			gometrics.NewExpDecaySample(1028, 0.015)),
	}
}
