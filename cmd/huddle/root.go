package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/huddle/internal/config"
	"github.com/aretw0/huddle/internal/logging"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var rootCmd = &cobra.Command{
	Use:   "huddle",
	Short: "Huddle runs shared activities for a room of participants",
	Long: `Huddle keeps every participant of a room on the same activity state.
Activities are plugins addressed by slug; events travel as "<slug>:<action>" tags.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to huddle.yaml (default: ./huddle.yaml if present)")
	rootCmd.PersistentFlags().String("log-level", "", "Override the log level (debug, info, warn, error)")
}

// loadConfig resolves configuration and builds the stderr logger.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, logging.New(logging.ParseLevel(cfg.LogLevel)), nil
}

// isTerminal reports whether f is an interactive terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
