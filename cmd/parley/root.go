package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"mercator-hq/parley/pkg/cli"
	"mercator-hq/parley/pkg/config"
	"mercator-hq/parley/pkg/security/secrets"
)

const defaultConfigFile = "config.yaml"

var (
	// Global flags
	cfgFile string
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley - multi-provider LLM chat gateway",
	Long: `Parley is a chat gateway that puts several LLM providers behind one
authenticated HTTP API.

It provides:
  - One chat endpoint for OpenAI, Gemini, Claude, Grok and Deepseek models
  - Streaming answers as server-sent events
  - Image and document attachments
  - Per-user chat and message quotas with premium model gating
  - Durable conversation history in SQLite or PostgreSQL

Settings come from a YAML file, PARLEY_* environment variables and an
optional .env file, in increasing order of precedence for the environment.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadEnvFile,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.NewStatus(os.Stderr).Fail(err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfigFile, "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging (same as --log-level debug)")
}

// loadEnvFile loads the dotenv file into the process environment. Variables
// already set are left alone. A missing default file is not an error.
func loadEnvFile(cmd *cobra.Command, _ []string) error {
	if envFile == "" {
		return nil
	}
	err := godotenv.Load(envFile)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("env-file") {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", envFile, err)
}

// configPath returns the configuration file to read. When the default file
// does not exist the configuration comes from defaults and the environment,
// and the empty path is returned.
func configPath(cmd *cobra.Command) string {
	if cmd.Flags().Changed("config") {
		return cfgFile
	}
	if _, err := os.Stat(cfgFile); errors.Is(err, fs.ErrNotExist) {
		return ""
	}
	return cfgFile
}

// loadConfig loads the configuration for one-shot commands and resolves
// its secret references.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(configPath(cmd))
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	if err := secrets.Resolve(context.Background(), cfg); err != nil {
		return nil, cli.NewConfigError("secrets", err.Error())
	}
	return cfg, nil
}
