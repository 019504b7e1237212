package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/memshard/memshard/errors"
)

const missOutput = "(nil)"

func printValue(cmd *cobra.Command, value []byte) {
	if value == nil {
		fmt.Fprintln(cmd.OutOrStdout(), missOutput)
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(value))
}

func printStored(cmd *cobra.Command, stored bool) {
	if stored {
		fmt.Fprintln(cmd.OutOrStdout(), "STORED")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "NOT_STORED")
	}
}

func parseTtl(arg string) (int, error) {
	ttl, err := strconv.Atoi(arg)
	if err != nil {
		return 0, errors.Wrapf(err, "ttl must be a number of seconds")
	}
	return ttl, nil
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Print the value of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := a.cache.Get(a.context(cmd), args[0])
			if err != nil {
				return err
			}
			printValue(cmd, value)
			return nil
		},
	}
}

func (a *app) gatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gat [key] [ttl]",
		Short: "Print the value of a key and reset its expiration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, err := parseTtl(args[1])
			if err != nil {
				return err
			}
			value, err := a.cache.Gat(a.context(cmd), args[0], ttl)
			if err != nil {
				return err
			}
			printValue(cmd, value)
			return nil
		},
	}
}

// set, add and replace share their arguments.
func (a *app) storeCmd(verb string, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   verb + " [key] [value]",
		Short: short,
		Args:  cobra.ExactArgs(2),
	}
	ttl := cmd.Flags().Int("ttl", 0, "Expiration in seconds (0 means never)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx := a.context(cmd)
		key := args[0]
		value := []byte(args[1])

		var stored bool
		var err error
		switch verb {
		case "set":
			err = a.cache.Set(ctx, key, value, *ttl)
			stored = err == nil
		case "add":
			stored, err = a.cache.Add(ctx, key, value, *ttl)
		case "replace":
			stored, err = a.cache.Replace(ctx, key, value, *ttl)
		}
		if err != nil {
			return err
		}
		printStored(cmd, stored)
		return nil
	}
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [key]",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cache.Delete(a.context(cmd), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
}

func (a *app) touchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "touch [key] [ttl]",
		Short: "Reset the expiration of a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, err := parseTtl(args[1])
			if err != nil {
				return err
			}
			if err := a.cache.Touch(a.context(cmd), args[0], ttl); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
}

// incr and decr share their arguments.
func (a *app) counterCmd(verb string, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   verb + " [key] [offset]",
		Short: short,
		Args:  cobra.RangeArgs(1, 2),
	}
	initial := cmd.Flags().Uint64("initial", 0, "Value of a newly created counter")
	ttl := cmd.Flags().Int("ttl", 0, "Expiration in seconds of a newly created counter")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		offset := uint64(1)
		if len(args) == 2 {
			var err error
			offset, err = strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return errors.Wrapf(err, "offset must be a non-negative number")
			}
		}

		apply := a.cache.Increment
		if verb == "decr" {
			apply = a.cache.Decrement
		}

		value, ok, err := apply(a.context(cmd), args[0], offset, *initial, *ttl)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), missOutput)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	}
	return cmd
}

func (a *app) flushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Invalidate every entry on every server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cache.Flush(a.context(cmd)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
}
