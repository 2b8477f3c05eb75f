package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/parley/pkg/config"
	"mercator-hq/parley/pkg/security/auth"
)

var tokenFlags struct {
	user string
	ttl  time.Duration
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for a user",
	Long: `Issue a signed bearer token for a user id using auth.jwt_secret.

Tokens are meant for development and integration testing. Production
deployments normally receive tokens from their identity provider.

Examples:
  # Token with the configured lifetime
  parley token --user alice

  # Short-lived token
  parley token --user alice --ttl 15m

  # Call the gateway with it
  curl -H "Authorization: Bearer $(parley token --user alice)" ...`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		token, err := issueToken(cfg.Auth, tokenFlags.user, tokenFlags.ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenFlags.user, "user", "u", "", "user id to put in the token subject (required)")
	tokenCmd.Flags().DurationVar(&tokenFlags.ttl, "ttl", 0, "token lifetime (default auth.token_ttl)")
	_ = tokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(tokenCmd)
}

func issueToken(cfg config.AuthConfig, userID string, ttl time.Duration) (string, error) {
	if ttl < 0 {
		return "", fmt.Errorf("ttl must not be negative")
	}
	authenticator, err := auth.NewJWTAuthenticator(cfg)
	if err != nil {
		return "", err
	}
	return authenticator.IssueToken(userID, ttl)
}
