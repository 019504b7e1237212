package main

import (
	"io"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/memshard/memshard/dlog"
	"github.com/memshard/memshard/errors"
	"github.com/memshard/memshard/memcache"
	"github.com/memshard/memshard/net2"
	"github.com/memshard/memshard/stats"
)

const envPrefix = "memshard"

// Log lines are flushed at exit anyway.
const (
	consoleBufferSize    = 32 * 1024
	consoleFlushInterval = time.Second
)

const (
	flagServers           = "servers"
	flagWaitTimeout       = "wait-timeout"
	flagConnectTimeout    = "connect-timeout"
	flagReconnectInterval = "reconnect-interval"
	flagSocksProxy        = "socks-proxy"
	flagLogLevel          = "log-level"
	flagMetrics           = "metrics"
)

const (
	metricsNone       = "none"
	metricsPrometheus = "prometheus"
	metricsFlat       = "flat"
)

// Everything a single invocation needs, resolved from flags, the
// environment and .env files.
type config struct {
	Servers           []string
	WaitTimeout       time.Duration
	ConnectTimeout    time.Duration
	ReconnectInterval time.Duration
	SocksProxy        string
	LogLevel          logger.LogLevel
	Metrics           string
}

func setupFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String(
		flagServers,
		"localhost:11211",
		"Comma separated memcache servers (host:port or unix:/path)")
	flags.Duration(
		flagWaitTimeout,
		memcache.DefaultWaitTimeout,
		"How long to wait for a response before resetting the connection")
	flags.Duration(
		flagConnectTimeout,
		memcache.DefaultConnectTimeout,
		"Dial timeout")
	flags.Duration(
		flagReconnectInterval,
		memcache.DefaultReconnectInterval,
		"How often dead servers are retried")
	flags.String(
		flagSocksProxy,
		"",
		"Tunnel connections through this SOCKS5 proxy (host:port)")
	flags.String(
		flagLogLevel,
		"warn",
		"Log level (debug, info, warn, error)")
	flags.String(
		flagMetrics,
		metricsNone,
		"Dump client metrics to stderr after the command (none, prometheus, flat)")
}

// Loads .env files and wires MEMSHARD_* environment variables into v.
func initEnv(v *viper.Viper) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

func loadConfig(v *viper.Viper, cmd *cobra.Command) (*config, error) {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	var servers []string
	for _, server := range strings.Split(v.GetString(flagServers), ",") {
		server = strings.TrimSpace(server)
		if server != "" {
			servers = append(servers, server)
		}
	}
	if len(servers) == 0 {
		return nil, errors.New("no servers given")
	}

	level, err := dlog.ParseLevel(v.GetString(flagLogLevel))
	if err != nil {
		return nil, err
	}

	format := strings.ToLower(v.GetString(flagMetrics))
	switch format {
	case metricsNone, metricsPrometheus, metricsFlat:
	default:
		return nil, errors.Newf(
			"invalid metrics format: %s. must be one of none, prometheus, flat",
			format)
	}

	return &config{
		Servers:           servers,
		WaitTimeout:       v.GetDuration(flagWaitTimeout),
		ConnectTimeout:    v.GetDuration(flagConnectTimeout),
		ReconnectInterval: v.GetDuration(flagReconnectInterval),
		SocksProxy:        v.GetString(flagSocksProxy),
		LogLevel:          level,
		Metrics:           format,
	}, nil
}

// The metric sinks of one invocation.
type metricSinks struct {
	format   string
	set      *metrics.Set
	registry gometrics.Registry
}

func newMetricSinks(format string) *metricSinks {
	return &metricSinks{
		format:   format,
		set:      metrics.NewSet(),
		registry: gometrics.NewRegistry(),
	}
}

func (m *metricSinks) factory() stats.StatsFactory {
	switch m.format {
	case metricsPrometheus:
		return stats.NewVictoriaFactory(m.set)
	case metricsFlat:
		return stats.NewGoMetricsFactory(m.registry)
	}
	return stats.NoOpStatsFactory
}

func (m *metricSinks) dump(w io.Writer) {
	switch m.format {
	case metricsPrometheus:
		m.set.WritePrometheus(w)
	case metricsFlat:
		gometrics.WriteOnce(m.registry, w)
	}
}

func (c *config) clientOptions(statsFactory stats.StatsFactory) memcache.Options {
	dlog.ConfigureConsole(consoleBufferSize, consoleFlushInterval)
	dlog.Install(c.LogLevel)

	return memcache.Options{
		Logger: logger.GetLogger("memcache"),
		Stats:  statsFactory,
		Connection: net2.ConnectionOptions{
			DialTimeout: c.ConnectTimeout,
			SocksProxy:  c.SocksProxy,
		},
		WaitTimeout:       c.WaitTimeout,
		ReconnectInterval: c.ReconnectInterval,
	}
}

// Overridden by tests.
var newCache = func(c *config, statsFactory stats.StatsFactory) (memcache.Cache, error) {
	return memcache.New(c.Servers, c.clientOptions(statsFactory))
}
