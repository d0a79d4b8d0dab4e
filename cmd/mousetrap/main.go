// Package main provides the CLI entry point for Mousetrap.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/five82/mousetrap/internal/config"
	mterrors "github.com/five82/mousetrap/internal/errors"
	"github.com/five82/mousetrap/internal/logging"
	"github.com/five82/mousetrap/internal/reporter"
)

const (
	appName    = "mousetrap"
	appVersion = "0.1.0"
)

var (
	cfgFile    string
	verbose    bool
	jsonOutput bool
	eventsFile string
	logDir     string
	noLog      bool
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if mterrors.IsCancelled(err) {
			fmt.Fprintln(os.Stderr, "Cancelled")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           appName,
	Short:         "Cut per-subject clips and build behavior targets from annotations",
	Long:          "Mousetrap cuts one clip per annotated subject out of behavior recordings and turns Caltech behavior annotations into per-frame classifier targets.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cmd.SetContext(config.WithConfig(cmd.Context(), cfg))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, appVersion)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./mousetrap.yaml or ~/.config/mousetrap/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output for troubleshooting")
	flags.BoolVar(&jsonOutput, "json", false, "emit JSON progress events on stdout instead of terminal output")
	flags.StringVar(&eventsFile, "events", "", "also append JSON progress events to this file")
	flags.StringVarP(&logDir, "log-dir", "l", "", "log directory (defaults to OUTPUT/logs)")
	flags.BoolVar(&noLog, "no-log", false, "disable log file creation")

	rootCmd.AddCommand(clipCmd)
	rootCmd.AddCommand(intervalsCmd)
	rootCmd.AddCommand(labelsCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// run bundles what every pipeline command sets up before working.
type run struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *config.Config
	logger *logging.Logger
	rep    reporter.Reporter
	events *os.File
}

// startRun sets up logging under outputDir, the reporter and a context
// cancelled on SIGINT/SIGTERM.
func startRun(cmd *cobra.Command, outputDir string) (*run, error) {
	cfg := config.FromContext(cmd.Context())

	dir := logDir
	if dir == "" {
		dir = cfg.LogDir
	}
	if dir == "" {
		dir = filepath.Join(outputDir, "logs")
	}
	cfg.LogDir = dir

	logger, err := logging.Setup(dir, verbose, noLog)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	if logger == nil && verbose {
		logging.Init(true, cmd.ErrOrStderr())
	}

	r := &run{cfg: cfg, logger: logger}

	var rep reporter.Reporter
	if jsonOutput {
		jr := reporter.NewJSONReporterWithWriter(cmd.OutOrStdout())
		logger.Info("JSON run ID: %s", jr.RunID())
		rep = jr
	} else {
		rep = reporter.NewTerminalReporterWithWriters(cmd.OutOrStdout(), cmd.ErrOrStderr(), verbose)
	}
	if eventsFile != "" {
		f, err := os.OpenFile(eventsFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			_ = logger.Close()
			return nil, fmt.Errorf("failed to open events file: %w", err)
		}
		r.events = f
		rep = reporter.NewCompositeReporter(rep, reporter.NewJSONReporterWithWriter(f))
	}
	r.rep = rep

	ctx, cancel := context.WithCancel(cmd.Context())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("Interrupted, finishing current step")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	r.ctx, r.cancel = ctx, cancel

	return r, nil
}

func (r *run) close() {
	r.cancel()
	if r.events != nil {
		_ = r.events.Close()
	}
	_ = r.logger.Close()
}

// applyFlag runs set when the named flag was given on the command line, so
// config file values survive unless explicitly overridden.
func applyFlag(cmd *cobra.Command, name string, set func()) {
	if cmd.Flags().Changed(name) {
		set()
	}
}
