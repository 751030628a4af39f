// Package cmd provides CLI command implementations
package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/SpecMatch/internal/config"
)

// app carries the state shared by all subcommands of one invocation.
type app struct {
	configPath string
	verbose    bool

	log *slog.Logger
	cfg *config.Config
}

// Execute runs the command line and cancels on SIGINT/SIGTERM.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCmd(version).ExecuteContext(ctx)
}

func NewRootCmd(version string) *cobra.Command {
	a := &app{log: newLogger(io.Discard, false)}

	rootCmd := &cobra.Command{
		Use:   "specmatch",
		Short: "SpecMatch - spectral library search and similarity scoring",
		Long: `SpecMatch scores measured MS/MS spectra against reference libraries.

It imports MSP and SPTXT libraries into SQLite, ranks library candidates by
a composite of precursor mass, retention time, isotope pattern and fragment
similarity, and builds molecular networks from pairwise peak matching.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.log = newLogger(cmd.ErrOrStderr(), a.verbose)

			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			if a.configPath != "" {
				a.log.Debug("loaded config", "path", a.configPath)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file (defaults apply when absent)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newImportCmd(a),
		newSearchCmd(a),
		newClusterCmd(a),
		newSummarizeCmd(a),
		newValidateCmd(a),
	)

	return rootCmd
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
