package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"go-toolbox-factory/internal/config"
	tblog "go-toolbox-factory/internal/log"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "factory-cli",
	Short: "Build block editor toolbox configurations",
	Long: `factory-cli composes toolbox configurations for a block-based editor.
It builds toolbox XML from a YAML description, inspects block libraries and
runs an interactive editing session in the terminal.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads and validates the config selected by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger logs to stderr so command output on stdout stays clean. The
// returned func closes the log file, if any.
func newLogger(cfg *config.Config) (*slog.Logger, func()) {
	logger, closer := tblog.New(tblog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	}, os.Stderr)
	return logger, func() { closer.Close() }
}
