package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/parley/pkg/cli"
	"mercator-hq/parley/pkg/config"
	"mercator-hq/parley/pkg/security/secrets"
	"mercator-hq/parley/pkg/server"
	"mercator-hq/parley/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	noWatch       bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the chat gateway",
	Long: `Start the chat gateway with the specified configuration.

The gateway serves POST /chat, POST /chat/stream and DELETE /chat/{sessionId}
plus /health, /ready and /metrics. Edits to the configuration file are picked
up without a restart for provider credentials, routing, prompts and the log
level.

Examples:
  # Start with config.yaml, or defaults plus PARLEY_* variables if it is absent
  parley run

  # Start with a custom config
  parley run --config /etc/parley/config.yaml

  # Override listen address
  parley run --listen 0.0.0.0:8080

  # Validate config without starting the server
  parley run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
	runCmd.Flags().BoolVar(&runFlags.noWatch, "no-watch", false, "do not reload when the config file changes")
}

// applyRunOverrides applies command-line overrides to cfg. It also runs on
// every reload so the flags keep winning over the file.
func applyRunOverrides(cfg *config.Config) {
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	switch {
	case runFlags.logLevel != "":
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	case verbose:
		cfg.Telemetry.Logging.Level = "debug"
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)
	if err := config.Initialize(path); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()
	applyRunOverrides(cfg)
	if runFlags.logLevel != "" {
		if _, err := logging.ParseLevel(runFlags.logLevel); err != nil {
			return cli.NewConfigError("telemetry.logging.level", err.Error())
		}
	}

	status := cli.NewStatus(cmd.OutOrStdout())
	source := path
	if source == "" {
		source = "defaults and environment"
	}

	if runFlags.dryRun {
		if err := secrets.Resolve(cmd.Context(), cfg); err != nil {
			return cli.NewConfigError("secrets", err.Error())
		}
		status.Success("Configuration valid (%s)", source)
		status.Println("  Listen address: %s", cfg.Server.ListenAddress)
		status.Println("  Storage backend: %s", cfg.Storage.Backend)
		status.Println("  Attachment backend: %s", cfg.Attachments.Backend)
		status.Println("  Providers: %d", len(cfg.Providers))
		return nil
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	app, err := server.NewApp(ctx, cfg, server.Options{
		Version:  Version,
		LogLevel: new(slog.LevelVar),
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		if err := app.Close(context.Background()); err != nil {
			app.Logger().Error("shutdown incomplete", "error", err)
		}
	}()
	logger := app.Logger()
	slog.SetDefault(logger)

	status.Success("Configuration loaded (%s)", source)
	status.Success("Chat store: %s", cfg.Storage.Backend)
	status.Success("Attachment store: %s", cfg.Attachments.Backend)
	if configured := app.Providers().ConfiguredProviders(); len(configured) == 0 {
		status.Warn("No provider has a usable API key; /ready reports 503 until one is configured")
	} else {
		status.Success("Providers configured: %s", strings.Join(configured, ", "))
	}

	if err := app.StartBackground(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	if path != "" && !runFlags.noWatch {
		watcher, err := config.NewWatcher(path, 0, logger)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		watcher.OnReload(func(next *config.Config) {
			applyRunOverrides(next)
			app.Reload(next)
		})
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				logger.Error("config watcher stopped", "error", err)
			}
		}()
		status.Success("Watching %s for changes", path)
	}

	srv := server.NewServer(cfg.Server, app.Handler(), logger)
	status.Success("Listening on %s", cfg.Server.ListenAddress)
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	status.Success("Server stopped")
	return nil
}
