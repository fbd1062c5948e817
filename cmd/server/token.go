package main

import (
	"fmt"
	"time"

	"emperror.dev/errors"
	"github.com/formvoice/core/internal/config"
	"github.com/formvoice/core/internal/pkg/jwt"
	"github.com/spf13/cobra"
)

var tokenArgs struct {
	UserID string
	TTL    time.Duration
}

// newTokenCommand mints an access token for the authenticated routes.
func newTokenCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "token",
		Short: "Print a signed access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(rootArgs.ConfigPath)
			if err != nil {
				return err
			}
			if tokenArgs.UserID == "" {
				return errors.New("--user is required")
			}
			token, err := jwt.NewSigner(cfg.JWTSecret).Sign(tokenArgs.UserID, tokenArgs.TTL)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	command.Flags().StringVar(&tokenArgs.UserID, "user", "", "user id stored in the token")
	command.Flags().DurationVar(&tokenArgs.TTL, "ttl", 24*time.Hour, "token lifetime")
	return command
}
