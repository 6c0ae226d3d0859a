// Package cmd provides the CLI commands for semcode.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/flupkede/codesearch/internal/logging"
	"github.com/flupkede/codesearch/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the semcode CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "semcode",
		Short: "Local-first hybrid code search",
		Long: `semcode indexes a codebase into a local hybrid vector + lexical
database and answers natural-language and identifier queries against it.

It runs entirely locally: no network calls unless an HTTP embedding
provider is configured.`,
		Version: version.Version,
	}
	cmd.SetVersionTemplate("semcode version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.codesearch/logs/")
	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
