package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/duetapp/duet"
	"github.com/duetapp/duet/internal/keys"
)

var errNoAPI = errors.New("no backend configured: pass --api-url or set DUET_API_BASE_URL")

func newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("DUET_PASSWORD")
			}
			return withApp(cmd, func(ctx context.Context, a *duet.App) error {
				if a.Session == nil {
					return errNoAPI
				}
				if err := a.Session.Login(ctx, duet.Credentials{Email: email, Password: password}); err != nil {
					return err
				}
				name := email
				if u := a.Profile.Get().User; u != nil && u.Name != "" {
					name = u.Name
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%d workspace(s))\n", name, len(a.Workspaces.Get().Workspaces))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password (default $DUET_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear local user data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *duet.App) error {
				if a.Session != nil {
					a.Session.Logout(ctx)
				} else {
					// Offline: nothing to revoke, clear everything locally.
					for _, k := range keys.All() {
						if err := a.Reset(ctx, k); err != nil {
							return err
						}
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}
