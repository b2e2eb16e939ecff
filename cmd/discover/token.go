package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"jobmatch/internal/pkg/jwt"

	"github.com/spf13/cobra"
)

var tokenOpts struct {
	subject string
	ttl     time.Duration
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an access token for the HTTP API, signed with jwt.secret",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := setup()
		if err != nil {
			return err
		}
		if strings.TrimSpace(cfg.JWT.Secret) == "" {
			return errors.New("jwt.secret is not configured")
		}

		tok, err := jwt.NewHMACService(cfg.JWT.Secret).GenerateAccessToken(tokenOpts.subject, tokenOpts.ttl)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
		return err
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().StringVar(&tokenOpts.subject, "subject", "discover-cli", "token subject")
	tokenCmd.Flags().DurationVar(&tokenOpts.ttl, "ttl", 24*time.Hour, "token lifetime")
}
