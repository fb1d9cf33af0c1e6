// Package main implements missionctl, the operator CLI for missiond. It talks
// to the configured store directly and shares the server's configuration
// flags and MISSIOND_* environment variables.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/fieldops/missiond/internal/app"
	"github.com/fieldops/missiond/internal/config"
	"github.com/fieldops/missiond/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "missionctl",
		Short:         "Operate a missiond store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(root.PersistentFlags())
	root.PersistentFlags().Bool("json", false, "output JSON")

	root.AddCommand(userCmd())
	root.AddCommand(missionCmd())
	return root
}

// env is what every store-backed command runs with.
type env struct {
	opts  *config.Options
	store *app.Store
	log   *zap.Logger
}

func withStore(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	opts, err := config.Load(viper.New(), cmd.Flags())
	if err != nil {
		return err
	}

	l := logger.New()
	if err := l.Init(opts.LogLevel); err != nil {
		return err
	}
	defer func() { _ = l.Log.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := app.OpenStore(ctx, opts)
	if err != nil {
		return fmt.Errorf("open %s store: %w", opts.Store, err)
	}
	defer func() { _ = store.Close(context.Background()) }()

	return fn(ctx, &env{opts: opts, store: store, log: l.Log})
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}
