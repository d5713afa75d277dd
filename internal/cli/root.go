// Package cli implements the gradectl command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yigit/gradebook/internal/app/services"
	"github.com/yigit/gradebook/internal/config"
)

// Runtime is what the commands operate on.
type Runtime struct {
	Service services.GradingService
	Migrate func(ctx context.Context) (int, error)
	Seed    func(ctx context.Context) (int, error)
	Close   func()
}

// Opener builds a Runtime from a config file. Diagnostics go to logs.
type Opener func(ctx context.Context, configPath string, logs io.Writer) (*Runtime, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Memory     bool
	open       Opener
}

// NewRootCommand creates the root command backed by the configured database.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOpener(OpenDatabaseRuntime)
}

// NewRootCommandWithOpener creates the root command with a custom runtime
// source.
func NewRootCommandWithOpener(open Opener) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:           "gradectl",
		Short:         "gradectl - grade statistics and publication",
		Long:          "Inspect offering statistics, list score anomalies and publish score records.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c",
		config.GetEnv("GRADECTL_CONFIG", "configs/config.yaml"), "path to the configuration file")
	cmd.PersistentFlags().BoolVar(&opts.Memory, "memory", false,
		"use an in-memory store loaded with the demo data instead of the database")

	cmd.AddCommand(NewSummaryCommand(opts))
	cmd.AddCommand(NewAnomaliesCommand(opts))
	cmd.AddCommand(NewPublishCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))

	return cmd
}

// withRuntime opens the runtime for the duration of fn.
func withRuntime(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, rt *Runtime) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	open := opts.open
	if opts.Memory {
		open = OpenMemoryRuntime
	}
	rt, err := open(ctx, opts.ConfigPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if rt.Close != nil {
		defer rt.Close()
	}
	return fn(ctx, rt)
}

func parseOfferingID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid offering id %q: must be a positive integer", arg)
	}
	return id, nil
}
