package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/mallstore/internal/views"
)

// ViewsOptions holds flags for the views command group.
type ViewsOptions struct {
	*RootOptions
	GraphFile string
	Params    views.Params
}

// GraphEdge is one mutation kind and the view templates it invalidates.
type GraphEdge struct {
	Kind      views.Kind       `json:"kind"`
	Templates []views.Template `json:"templates"`
}

// NewViewsCommand creates the views command group.
func NewViewsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ViewsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "views",
		Short: "Inspect the view invalidation graph",
	}
	cmd.PersistentFlags().StringVar(&opts.GraphFile, "graph", "", "CUE graph file to load instead of the built-in graph")

	graph := &cobra.Command{
		Use:   "graph",
		Short: "Print which views each mutation kind invalidates",
		Long: `Print the invalidation graph: for each mutation kind, the view key
templates it makes stale. With --graph the file is compiled and validated
first, so this doubles as a checker for custom graphs.

Examples:
  mallctl views graph
  mallctl views graph --graph ./graph.cue --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(opts.RootOptions, cmd)
			g, err := opts.loadGraph()
			if err != nil {
				return out.Fail(WrapExitError(ExitCommandError, "failed to load graph", err))
			}

			edges := make([]GraphEdge, 0, len(g.Kinds()))
			for _, kind := range g.Kinds() {
				edges = append(edges, GraphEdge{Kind: kind, Templates: g.Templates(kind)})
			}
			return out.Success(edges, func(w io.Writer) {
				for _, e := range edges {
					fmt.Fprintf(w, "%s\n", e.Kind)
					for _, t := range e.Templates {
						fmt.Fprintf(w, "  -> %s\n", t)
					}
				}
			})
		},
	}

	expand := &cobra.Command{
		Use:   "expand <kind>",
		Short: "Print the concrete view keys a mutation would invalidate",
		Long: `Print the concrete view keys a mutation would invalidate. Templates
whose placeholders are not supplied are skipped.

Examples:
  mallctl views expand wishlist.add --owner alice --item sku-1
  mallctl views expand order.status --customer alice`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(opts.RootOptions, cmd)
			g, err := opts.loadGraph()
			if err != nil {
				return out.Fail(WrapExitError(ExitCommandError, "failed to load graph", err))
			}

			kind := views.Kind(args[0])
			if len(g.Templates(kind)) == 0 {
				return out.Fail(NewExitError(ExitCommandError, fmt.Sprintf("unknown mutation kind %q", kind)))
			}

			keys := g.Expand(kind, opts.Params)
			return out.Success(keys, func(w io.Writer) {
				for _, k := range keys {
					fmt.Fprintln(w, k)
				}
			})
		},
	}
	expand.Flags().StringVar(&opts.Params.Owner, "owner", "", "value for {owner}")
	expand.Flags().StringVar(&opts.Params.Item, "item", "", "value for {item}")
	expand.Flags().StringVar(&opts.Params.Customer, "customer", "", "value for {customer}")

	cmd.AddCommand(graph, expand)
	return cmd
}

func (o *ViewsOptions) loadGraph() (*views.Graph, error) {
	if o.GraphFile == "" {
		return views.DefaultGraph()
	}
	src, err := os.ReadFile(o.GraphFile)
	if err != nil {
		return nil, err
	}
	return views.LoadGraph(filepath.Base(o.GraphFile), src)
}
