package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login <user-id>",
		Short: "Sign in, merging the guest cart and favorites into the account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				if err := app.Engine.Login(ctx, args[0]); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), app.Engine.State())
			})
		},
	}
}

func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and start a fresh guest session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(_ context.Context, app *App) error {
				app.Engine.Logout()
				return printJSON(cmd.OutOrStdout(), app.Engine.Session())
			})
		},
	}
}

func NewSessionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(_ context.Context, app *App) error {
				return printJSON(cmd.OutOrStdout(), app.Engine.Session())
			})
		},
	}
}
