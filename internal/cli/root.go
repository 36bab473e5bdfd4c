// Package cli is the storefront command line: the HTTP server and one-shot
// cart, favorites and session commands against the configured backends.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fjod/storefront-sync/internal/config"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Config     config.Config
}

// NewRootCommand creates the root command for the storefront CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront cart and favorites sync",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			opts.Config = cfg
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "storefront.toml", "path to the TOML config file")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewCartCommand(opts))
	cmd.AddCommand(NewFavoritesCommand(opts))
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewSessionCommand(opts))

	return cmd
}

// withApp opens the backends, runs fn, waits for the background writes to
// settle and prints the notices raised on the way.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, app *App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := OpenApp(ctx, opts.Config)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := fn(ctx, app); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, opts.Config.RemoteTimeout+5*time.Second)
	defer cancel()
	if err := app.Engine.Wait(waitCtx); err != nil {
		return fmt.Errorf("waiting for sync: %w", err)
	}
	for _, n := range app.Notices.Drain() {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", n.Kind, n.Message)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
