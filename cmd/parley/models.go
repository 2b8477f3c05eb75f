package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mercator-hq/parley/pkg/cli"
	"mercator-hq/parley/pkg/config"
	"mercator-hq/parley/pkg/providerfactory"
	"mercator-hq/parley/pkg/routing"
)

var modelsFlags struct {
	format string
}

var modelsCmd = &cobra.Command{
	Use:   "models [model-id...]",
	Short: "Show how model ids are routed",
	Long: `Show the routing table: which substring of a model id selects which
provider, whether it is a premium model and whether that provider has a
usable API key.

With model ids as arguments, classify each one instead and print the provider
and canonical model it resolves to.

Examples:
  # Print the marker table
  parley models

  # Classify model ids
  parley models gpt-4o claude-3-opus gemini-pro

  # Machine-readable output
  parley models --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseFormat(modelsFlags.format)
		if err != nil {
			return err
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		var table *cli.Table
		if len(args) == 0 {
			table, err = markerTable(cfg)
		} else {
			table, err = classifyTable(cfg, args)
		}
		if err != nil {
			return cli.NewCommandError("models", err)
		}
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), table)
	},
}

func init() {
	modelsCmd.Flags().StringVarP(&modelsFlags.format, "format", "f", "text", "output format (text, json, csv)")
	rootCmd.AddCommand(modelsCmd)
}

func newRouter(cfg *config.Config) (*routing.Router, *providerfactory.Manager, error) {
	manager, err := providerfactory.NewManagerFromConfig(cfg.Providers)
	if err != nil {
		return nil, nil, err
	}
	return routing.NewRouter(manager, cfg.Routing), manager, nil
}

// markerTable lists the marker table followed by the default route.
func markerTable(cfg *config.Config) (*cli.Table, error) {
	router, manager, err := newRouter(cfg)
	if err != nil {
		return nil, err
	}
	defer manager.Close()

	configured := make(map[string]bool)
	for _, name := range manager.ConfiguredProviders() {
		configured[name] = true
	}

	table := &cli.Table{Headers: []string{"MARKER", "PROVIDER", "PREMIUM", "CONFIGURED"}}
	for _, m := range router.Markers() {
		table.AddRow(m.Marker, m.Provider, strconv.FormatBool(m.Premium), strconv.FormatBool(configured[m.Provider]))
	}
	table.AddRow(
		fmt.Sprintf("(default: %s)", router.DefaultModel()),
		cfg.Routing.DefaultProvider,
		"false",
		strconv.FormatBool(configured[cfg.Routing.DefaultProvider]),
	)
	return table, nil
}

// classifyTable classifies each model id. A model whose provider has no
// usable key is reported in the STATUS column rather than failing the
// command.
func classifyTable(cfg *config.Config, models []string) (*cli.Table, error) {
	router, manager, err := newRouter(cfg)
	if err != nil {
		return nil, err
	}
	defer manager.Close()

	table := &cli.Table{Headers: []string{"MODEL", "PROVIDER", "RESOLVED", "PREMIUM", "STATUS"}}
	for _, id := range models {
		route, err := router.Classify(id)
		if err != nil {
			table.AddRow(id, "-", "-", strconv.FormatBool(router.IsPremium(id)), err.Error())
			continue
		}
		table.AddRow(id, route.ProviderName, route.Model, strconv.FormatBool(route.Premium), "ok")
	}
	return table, nil
}
