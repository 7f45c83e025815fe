package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"surveydeck/internal/config"
	"surveydeck/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globalOptions are the flags shared by every command.
type globalOptions struct {
	configPath string
	verbose    bool
	logDir     string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:   "surveydeck",
		Short: "Clean questionnaire exports, aggregate answers and build chart decks",
		Long: `surveydeck turns a questionnaire export into cleaned data, per-question
statistics and a chart deck.

Configuration is read from an optional YAML file (--config), then from
SURVEY_* environment variables (a .env file is loaded when present), and
finally from command-line flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.logDir, "log-dir", "", "Directory for the rotating log file")

	rootCmd.AddCommand(
		newCleanCmd(opts),
		newStatsCmd(opts),
		newProfileCmd(opts),
		newDeckCmd(opts),
	)
	return rootCmd
}

// inputFlags locate the survey export and its definition.
type inputFlags struct {
	data     string
	sheet    string
	settings string
	workbook string
}

func (f *inputFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.data, "data", "", "Survey export (.xlsx or .csv)")
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "Sheet to read from the export (default: first sheet)")
	cmd.Flags().StringVar(&f.settings, "settings", "", "Survey definition file (YAML)")
	cmd.Flags().StringVar(&f.workbook, "workbook", "", "Settings workbook with the question and region mappings")
}

func (f *inputFlags) apply(cfg *config.Config) {
	if f.data != "" {
		cfg.Data.File = f.data
	}
	if f.sheet != "" {
		cfg.Data.Sheet = f.sheet
	}
	if f.settings != "" {
		cfg.Data.Settings = f.settings
	}
	if f.workbook != "" {
		cfg.Data.Workbook = f.workbook
	}
}

// setup loads and validates the configuration with flag overrides, then
// initialises logging.
func setup(opts *globalOptions, in *inputFlags, override func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	in.apply(cfg)
	if opts.logDir != "" {
		cfg.LogDir = opts.logDir
	}
	if opts.verbose {
		cfg.Verbose = true
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := logging.Init(cfg.Verbose, cfg.LogDir); err != nil {
		return nil, err
	}
	logging.Component("cli").Debug().
		Str("data", cfg.Data.File).
		Str("settings", cfg.Data.Settings).
		Str("workbook", cfg.Data.Workbook).
		Int("workers", cfg.Workers).
		Msg("Configuration loaded")
	return cfg, nil
}
