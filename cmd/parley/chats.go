package main

import (
	"context"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/parley/pkg/cli"
	"mercator-hq/parley/pkg/storage"
)

var chatsFlags struct {
	user   string
	format string
}

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List a user's durable chats",
	Long: `List the chats a user owns in the durable store, most recently updated
first. The message count is what the per-user message quota is measured
against.

Examples:
  parley chats --user alice
  parley chats --user alice --format csv`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseFormat(chatsFlags.format)
		if err != nil {
			return err
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return withStore(cmd.Context(), cfg.Storage, func(store storage.Store) error {
			table, err := chatTable(cmd.Context(), store, chatsFlags.user)
			if err != nil {
				return cli.NewCommandError("chats", err)
			}
			return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), table)
		})
	},
}

func init() {
	chatsCmd.Flags().StringVarP(&chatsFlags.user, "user", "u", "", "owner user id (required)")
	chatsCmd.Flags().StringVarP(&chatsFlags.format, "format", "f", "text", "output format (text, json, csv)")
	_ = chatsCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(chatsCmd)
}

func chatTable(ctx context.Context, store storage.ChatStore, userID string) (*cli.Table, error) {
	chats, err := store.ListChats(ctx, userID)
	if err != nil {
		return nil, err
	}
	table := &cli.Table{Headers: []string{"SESSION", "MODEL", "MESSAGES", "CREATED", "UPDATED"}}
	for _, c := range chats {
		table.AddRow(
			c.ID,
			c.Model,
			strconv.Itoa(c.MessageCount),
			c.CreatedAt.Format(time.RFC3339),
			c.UpdatedAt.Format(time.RFC3339),
		)
	}
	return table, nil
}
