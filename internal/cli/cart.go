package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fjod/storefront-sync/internal/domain"
	"github.com/spf13/cobra"
)

func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show or change the cart of the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(_ context.Context, app *App) error {
				return printJSON(cmd.OutOrStdout(), app.Engine.Cart())
			})
		},
	}

	cmd.AddCommand(newCartAddCommand(rootOpts))
	cmd.AddCommand(&cobra.Command{
		Use:   "set <identity> <quantity>",
		Short: "Set the quantity of a line item; 0 removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q: %w", args[1], err)
			}
			return withApp(cmd, rootOpts, func(_ context.Context, app *App) error {
				if err := app.Engine.UpdateQuantity(args[0], quantity); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), app.Engine.Cart())
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <identity>",
		Short: "Remove a line item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(_ context.Context, app *App) error {
				if err := app.Engine.RemoveItem(args[0]); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), app.Engine.Cart())
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(_ context.Context, app *App) error {
				return app.Engine.ClearCollection(domain.CollectionCart)
			})
		},
	})

	return cmd
}

type cartAddOptions struct {
	Name     string
	Price    float64
	Image    string
	Quantity int
	Variant  []string
}

func newCartAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &cartAddOptions{}

	cmd := &cobra.Command{
		Use:     "add <product-id>",
		Short:   "Add a product variant to the cart",
		Example: `  storefront cart add sku-42 --name "Desk lamp" --price 19.90 --variant color=red --qty 2`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			variant, err := parseVariant(opts.Variant)
			if err != nil {
				return err
			}
			product := domain.Product{ID: args[0], Name: opts.Name, UnitPrice: opts.Price, Image: opts.Image}
			return withApp(cmd, rootOpts, func(_ context.Context, app *App) error {
				if err := app.Engine.AddItem(product, variant, opts.Quantity); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), app.Engine.Cart())
			})
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "product display name")
	cmd.Flags().Float64Var(&opts.Price, "price", 0, "unit price")
	cmd.Flags().StringVar(&opts.Image, "image", "", "product image URL")
	cmd.Flags().IntVar(&opts.Quantity, "qty", 1, "quantity to add")
	cmd.Flags().StringArrayVar(&opts.Variant, "variant", nil, "variant attribute as name=value (repeatable)")

	return cmd
}

func parseVariant(pairs []string) (domain.Variant, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	variant := domain.Variant{}
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid variant %q: want name=value", pair)
		}
		variant[name] = value
	}
	return variant, nil
}
