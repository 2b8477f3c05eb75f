package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/parley/pkg/cli"
	"mercator-hq/parley/pkg/config"
	"mercator-hq/parley/pkg/storage"
)

var usersFlags struct {
	subscribed     bool
	subscriptionID string
	format         string
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect and update user subscription state",
}

var usersSetCmd = &cobra.Command{
	Use:   "set <user-id>",
	Short: "Set a user's subscription flag or billing subscription id",
	Long: `Set the cached subscription state of a user.

--subscribed grants premium models and lifts the chat and message quotas.
--subscription-id records the billing subscription to check when the user
is not marked subscribed.

Examples:
  parley users set alice --subscribed
  parley users set alice --subscribed=false
  parley users set bob --subscription-id sub_1234`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		update := userUpdate{}
		if cmd.Flags().Changed("subscribed") {
			update.subscribed = &usersFlags.subscribed
		}
		if cmd.Flags().Changed("subscription-id") {
			update.subscriptionID = &usersFlags.subscriptionID
		}
		if update.subscribed == nil && update.subscriptionID == nil {
			return fmt.Errorf("nothing to change: pass --subscribed or --subscription-id")
		}

		if err := withStore(cmd.Context(), cfg.Storage, func(store storage.Store) error {
			return setUser(cmd.Context(), store, args[0], update, cmd.OutOrStdout())
		}); err != nil {
			return cli.NewCommandError("users set", err)
		}
		return nil
	},
}

var usersGetCmd = &cobra.Command{
	Use:   "get <user-id>",
	Short: "Print a user's subscription state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseFormat(usersFlags.format)
		if err != nil {
			return err
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return withStore(cmd.Context(), cfg.Storage, func(store storage.Store) error {
			u, err := store.GetUser(cmd.Context(), args[0])
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("user %q has no subscription record", args[0])
			}
			if err != nil {
				return err
			}
			return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), userTable(u))
		})
	},
}

func init() {
	usersSetCmd.Flags().BoolVar(&usersFlags.subscribed, "subscribed", false, "cached subscription flag")
	usersSetCmd.Flags().StringVar(&usersFlags.subscriptionID, "subscription-id", "", "billing subscription id")
	usersGetCmd.Flags().StringVarP(&usersFlags.format, "format", "f", "text", "output format (text, json, csv)")
	usersCmd.AddCommand(usersSetCmd, usersGetCmd)
	rootCmd.AddCommand(usersCmd)
}

// withStore opens the durable store, runs fn and closes it. The memory
// backend is rejected since a fresh process has nothing in it.
func withStore(ctx context.Context, cfg config.StorageConfig, fn func(storage.Store) error) error {
	if cfg.Backend == storage.BackendMemory {
		return fmt.Errorf("storage.backend is %q; configure sqlite or postgres to manage durable state", cfg.Backend)
	}
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// userUpdate holds the fields to change; nil fields are kept.
type userUpdate struct {
	subscribed     *bool
	subscriptionID *string
}

func setUser(ctx context.Context, store storage.UserStore, id string, update userUpdate, out io.Writer) error {
	u, err := store.GetUser(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		u = &storage.UserRecord{ID: id}
	} else if err != nil {
		return err
	}

	if update.subscribed != nil {
		u.IsSubscribed = *update.subscribed
	}
	if update.subscriptionID != nil {
		u.SubscriptionID = *update.subscriptionID
	}
	u.UpdatedAt = time.Now().UTC()

	if err := store.SaveUser(ctx, u); err != nil {
		return err
	}
	cli.NewStatus(out).Success("Updated %s (subscribed=%t, subscription=%q)", u.ID, u.IsSubscribed, u.SubscriptionID)
	return nil
}

func userTable(u *storage.UserRecord) *cli.Table {
	table := &cli.Table{Headers: []string{"USER", "SUBSCRIBED", "SUBSCRIPTION", "UPDATED"}}
	table.AddRow(u.ID, strconv.FormatBool(u.IsSubscribed), u.SubscriptionID, u.UpdatedAt.Format(time.RFC3339))
	return table
}
