package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ledgerlens/ledgerlens/internal/config"
	"github.com/ledgerlens/ledgerlens/version"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "ledgerlens",
	Short: "Bank statement extraction pipeline with LLM-powered parsing",
	Long: `LedgerLens turns bank statements (PDF, scanned images, spreadsheets)
into structured transaction records.

The pipeline includes:
  - Document triage: text PDF, scanned PDF, image, or spreadsheet
  - Deterministic parsers for recognized issuer layouts
  - LLM text and vision extraction with schema propagation
  - Content-addressed result caching with TTL
  - Token cost accounting in USD and KRW`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.ledgerlens/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn, error",
	)

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the process logger. Logs go to stderr so stdout stays
// clean for command output.
func newLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

func loadConfig() (*config.Manager, error) {
	return config.NewManager(cfgFile)
}
