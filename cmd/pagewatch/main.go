package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/pagewatch/internal/config"
	"github.com/JakeFAU/pagewatch/internal/logbuffer"
	"github.com/JakeFAU/pagewatch/internal/logging"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "pagewatch: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the single pagewatch command.
func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "pagewatch",
		Short: "Watches a web page for changes, notifies a webhook, and archives snapshots.",
		Long: `pagewatch polls a page on a fixed interval and hashes its HTML. When the
hash changes it posts a webhook message and submits a set of URLs to the
Wayback Machine. Recent log lines are served as an HTML page.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfgFile)
		},
	}
	cmd.Flags().StringVar(&cfgFile, "config", "", "path to a YAML config file (env overrides use the PAGEWATCH_ prefix)")
	return cmd
}

func run(parent context.Context, cfgFile string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	buf := logbuffer.New(cfg.Logging.BufferSize)
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
		FilePath:    cfg.Logging.File,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxBackups:  cfg.Logging.MaxBackups,
		Buffer:      buf,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := newService(ctx, cfg, buf, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	return svc.Serve(ctx)
}
