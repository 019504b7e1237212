package stats

var (
	NoOpStatsFactory StatsFactory = noopStatsFactory{}
)

// noopStat satisfies every stat interface and records nothing.
type noopStat struct {
}

func (s noopStat) Inc() {
}

func (s noopStat) Add(v float64) {
}

func (s noopStat) Dec() {
}

func (s noopStat) Sub(v float64) {
}

func (s noopStat) Set(v float64) {
}

func (s noopStat) Get() float64 {
	return 0
}

func (s noopStat) Observe(v float64) {
}

type noopStatsFactory struct {
}

func (f noopStatsFactory) NewCounter(
	metric string,
	tags map[string]string) CounterStat {

	return noopStat{}
}

func (f noopStatsFactory) NewGauge(
	metric string,
	tags map[string]string) GaugeStat {

	return noopStat{}
}

func (f noopStatsFactory) NewSummary(
	metric string,
	tags map[string]string) SummaryStat {

	return noopStat{}
}
