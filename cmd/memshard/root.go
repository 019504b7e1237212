package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/memshard/memshard/dlog"
	"github.com/memshard/memshard/memcache"
)

// State shared by the subcommands of one root command.
type app struct {
	v       *viper.Viper
	cache   memcache.Cache
	metrics *metricSinks
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "memshard",
		Short: "Run cache operations against sharded memcache servers",
		Long: `memshard routes each key to one of the configured memcache servers with a
consistent hash ring, failing over to another server when the owner is down.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}
	setupFlags(root)

	root.AddCommand(
		a.getCmd(),
		a.gatCmd(),
		a.storeCmd("set", "Store a value unconditionally"),
		a.storeCmd("add", "Store a value only if the key does not exist"),
		a.storeCmd("replace", "Store a value only if the key exists"),
		a.deleteCmd(),
		a.touchCmd(),
		a.counterCmd("incr", "Increment a counter, creating it when absent"),
		a.counterCmd("decr", "Decrement a counter, flooring at zero"),
		a.flushCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	initEnv(a.v)
	conf, err := loadConfig(a.v, cmd)
	if err != nil {
		return err
	}

	a.metrics = newMetricSinks(conf.Metrics)
	a.cache, err = newCache(conf, a.metrics.factory())
	return err
}

func (a *app) teardown(cmd *cobra.Command, _ []string) error {
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.metrics != nil {
		a.metrics.dump(cmd.ErrOrStderr())
	}
	return dlog.Flush()
}

func (a *app) context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
