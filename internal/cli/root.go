package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	EnvFile    string
	As         string // owner used when token auth is disabled
	Token      string // bearer token used when token auth is enabled
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the mallctl CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "mallctl",
		Short: "mallctl - storefront collections, orders and review backlog",
		Long: `Manage carts, wishlists and orders against the configured store.

Collections are scoped to the caller: --as when token auth is disabled,
otherwise the subject of --token. Reads are served from cached views that
mutations invalidate.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	flags.StringVar(&opts.EnvFile, "env-file", "", "path to a .env file (default: ./.env if present)")
	flags.StringVar(&opts.As, "as", "", "owner id to act as when token auth is disabled")
	flags.StringVar(&opts.Token, "token", "", "bearer token when token auth is enabled")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewCollectionCommand(opts, "cart"))
	cmd.AddCommand(NewCollectionCommand(opts, "wishlist"))
	cmd.AddCommand(NewOrdersCommand(opts))
	cmd.AddCommand(NewApprovalsCommand(opts))
	cmd.AddCommand(NewViewsCommand(opts))
	cmd.AddCommand(NewScenarioCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
