package cli

import (
	"context"
	"fmt"

	"github.com/fjod/storefront-sync/internal/domain"
	"github.com/spf13/cobra"
)

func NewFavoritesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "Show or change the favorites of the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(_ context.Context, app *App) error {
				return printJSON(cmd.OutOrStdout(), app.Engine.Favorites())
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle <product-id>",
		Short: "Add or remove a favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(_ context.Context, app *App) error {
				member, err := app.Engine.ToggleFavorite(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s favorite: %t\n", args[0], member)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every favorite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(_ context.Context, app *App) error {
				return app.Engine.ClearCollection(domain.CollectionFavorites)
			})
		},
	})

	return cmd
}
