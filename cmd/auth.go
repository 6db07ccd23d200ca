package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/availsync/internal/google"
)

func newAuthCmd() *cobra.Command {
	var (
		noBrowser bool
		port      int
		timeout   time.Duration
		revoke    bool
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize availsync to access Google Calendar",
		Long: `Run the OAuth flow for the configured account and store the token in the
user cache directory.

A local callback server listens on 127.0.0.1. The browser is opened on the
consent page; with --no-browser the URL is only printed. The token is
refreshed automatically afterwards, so this is needed only once per account.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			if revoke {
				if err := google.DeleteToken(cfg.Account); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Token removed for account %q\n", cfg.Account)
				return nil
			}

			conf, err := google.LoadOAuthConfig(credentialsPath(cfg))
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			tok, err := google.Authorize(ctx, conf, google.AuthorizeOptions{
				Port:      port,
				NoBrowser: noBrowser,
				Timeout:   timeout,
				Out:       cmd.ErrOrStderr(),
			})
			if err != nil {
				return fmt.Errorf("authorization failed: %w", err)
			}
			if err := google.SaveToken(cfg.Account, tok); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Token saved for account %q\n", cfg.Account)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the authorization URL instead of opening a browser")
	cmd.Flags().IntVar(&port, "port", 0, "Port of the local callback server (default: random)")
	cmd.Flags().DurationVar(&timeout, "timeout", google.DefaultAuthTimeout, "How long to wait for the browser callback")
	cmd.Flags().BoolVar(&revoke, "revoke", false, "Delete the stored token instead of authorizing")

	return cmd
}
