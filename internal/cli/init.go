package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/mallstore/internal/config"
)

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the store schema",
		Long: `Create tables and indexes in the configured SQL store.

The schema is idempotent; running init against an initialized store is a
no-op. The postgrest driver has no schema to apply: the REST server owns it.

Examples:
  mallctl init
  mallctl init --config mallstore.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, cmd)
		},
	}
}

func runInit(opts *RootOptions, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)

	cfg, _, err := loadConfig(opts, cmd.ErrOrStderr())
	if err != nil {
		return out.Fail(err)
	}
	if cfg.Store.Driver == config.DriverPostgREST {
		return out.Fail(NewExitError(ExitCommandError, "init: the postgrest driver has no local schema"))
	}

	_, closer, err := openGateway(cmd.Context(), cfg)
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "failed to open store", err))
	}
	defer closer.Close()

	target := cfg.Store.Path
	if cfg.Store.Driver == config.DriverPostgres {
		target = "postgres"
	}
	data := map[string]string{"driver": cfg.Store.Driver, "target": target}
	return out.Success(data, func(w io.Writer) {
		fmt.Fprintf(w, "✓ schema ready (%s: %s)\n", cfg.Store.Driver, target)
	})
}
