package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/mallstore/internal/model"
)

// CollectionOptions holds flags for collection subcommands.
type CollectionOptions struct {
	*RootOptions
	Collection model.CollectionType
	Quantity   int
	Item       string
}

// NewCollectionCommand creates the cart or wishlist command group.
func NewCollectionCommand(rootOpts *RootOptions, name string) *cobra.Command {
	opts := &CollectionOptions{RootOptions: rootOpts, Collection: model.CollectionType(name)}

	cmd := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("Manage the caller's %s", name),
	}

	add := &cobra.Command{
		Use:   "add <item-key>",
		Short: fmt.Sprintf("Add an item to the %s", name),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts.RootOptions, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				e, err := a.svc.AddToCollection(ctx, opts.Collection, args[0], model.Payload{Quantity: opts.quantity()})
				if err != nil {
					return out.Fail(err)
				}
				return out.Success(e, func(w io.Writer) {
					fmt.Fprintf(w, "✓ %s %s\n", e.Audit.Action, formatEntry(e))
				})
			})
		},
	}

	update := &cobra.Command{
		Use:   "update <entry-id>",
		Short: fmt.Sprintf("Update an entry of the %s", name),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts.RootOptions, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				e, err := a.svc.UpdateCollectionEntry(ctx, opts.Collection, args[0], model.Payload{Quantity: opts.quantity()})
				if err != nil {
					return out.Fail(err)
				}
				return out.Success(e, func(w io.Writer) {
					fmt.Fprintf(w, "✓ updated %s\n", formatEntry(e))
				})
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove [entry-id]",
		Short: fmt.Sprintf("Remove an entry from the %s by id or --item", name),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := model.Target{ItemKey: opts.Item}
			if len(args) == 1 {
				target.EntryID = args[0]
			}
			return withApp(opts.RootOptions, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				if err := a.svc.RemoveFromCollection(ctx, opts.Collection, target); err != nil {
					return out.Fail(err)
				}
				return out.Success(map[string]string{"entry_id": target.EntryID, "item_key": target.ItemKey}, func(w io.Writer) {
					fmt.Fprintln(w, "✓ removed")
				})
			})
		},
	}
	remove.Flags().StringVar(&opts.Item, "item", "", "remove by item key instead of entry id")

	list := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List the %s", name),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts.RootOptions, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				entries, err := a.svc.ListCollection(ctx, opts.Collection)
				if err != nil {
					return out.Fail(err)
				}
				return out.Success(entries, func(w io.Writer) {
					if len(entries) == 0 {
						fmt.Fprintf(w, "%s is empty\n", name)
						return
					}
					for _, e := range entries {
						fmt.Fprintln(w, formatEntry(e))
					}
				})
			})
		},
	}

	cmd.AddCommand(add, update, remove, list)

	if opts.Collection.HasQuantity() {
		add.Flags().IntVarP(&opts.Quantity, "quantity", "q", 1, "quantity to add")
		update.Flags().IntVarP(&opts.Quantity, "quantity", "q", 1, "new quantity")
		cmd.AddCommand(newCartCountCommand(opts))
	} else {
		cmd.AddCommand(newMembershipCommand(opts))
	}

	return cmd
}

func (o *CollectionOptions) quantity() int {
	if !o.Collection.HasQuantity() {
		return 0
	}
	return o.Quantity
}

func newCartCountCommand(opts *CollectionOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Total quantity across the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts.RootOptions, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				total, err := a.svc.CartCount(ctx)
				if err != nil {
					return out.Fail(err)
				}
				return out.Success(map[string]int64{"total": total}, func(w io.Writer) {
					fmt.Fprintln(w, total)
				})
			})
		},
	}
}

func newMembershipCommand(opts *CollectionOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "has <item-key>",
		Short: "Report whether an item is on the wishlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts.RootOptions, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				member, err := a.svc.CheckMembership(ctx, args[0])
				if err != nil {
					return out.Fail(err)
				}
				return out.Success(map[string]bool{"member": member}, func(w io.Writer) {
					if member {
						fmt.Fprintf(w, "✓ %s is on the wishlist\n", args[0])
					} else {
						fmt.Fprintf(w, "✗ %s is not on the wishlist\n", args[0])
					}
				})
			})
		},
	}
}

func formatEntry(e model.Entry) string {
	if e.Collection.HasQuantity() {
		return fmt.Sprintf("%s  %s  x%d", e.ID, e.ItemKey, e.Quantity)
	}
	return fmt.Sprintf("%s  %s", e.ID, e.ItemKey)
}

// withApp opens the storefront for one command and closes it afterwards.
func withApp(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, a *app, out *OutputFormatter) error) error {
	out := newFormatter(opts, cmd)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := openApp(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return out.Fail(err)
	}
	defer a.Close()

	return fn(a.context(ctx), a, out)
}
