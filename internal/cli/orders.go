package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/mallstore/internal/model"
)

// OrdersOptions holds flags for the orders command group.
type OrdersOptions struct {
	*RootOptions
	Mine bool
}

// NewOrdersCommand creates the orders command group.
func NewOrdersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrdersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List orders and change their status",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List orders newest first, grouped by order number",
		Long: `List orders newest first. Each order shows its lines with the first
media item of each line's variant.

Examples:
  mallctl orders list --as staff
  mallctl orders list --mine --as alice --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts.RootOptions, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				list := a.svc.ListGroupedOrders
				if opts.Mine {
					list = a.svc.ListCustomerOrders
				}
				orders, err := list(ctx)
				if err != nil {
					return out.Fail(err)
				}
				return out.Success(orders, func(w io.Writer) {
					printOrders(w, orders)
				})
			})
		},
	}
	list.Flags().BoolVar(&opts.Mine, "mine", false, "only the caller's own orders")

	setStatus := &cobra.Command{
		Use:   "set-status <order-no> <status>",
		Short: "Move every line of an order to a new status",
		Long: fmt.Sprintf(`Move every line of an order to a new status.

Valid statuses: %v`, model.OrderStatuses),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts.RootOptions, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				if err := a.svc.UpdateOrderStatus(ctx, args[0], args[1]); err != nil {
					return out.Fail(err)
				}
				data := map[string]string{"order_no": args[0], "status": args[1]}
				return out.Success(data, func(w io.Writer) {
					fmt.Fprintf(w, "✓ order %s is now %s\n", args[0], args[1])
				})
			})
		},
	}

	cmd.AddCommand(list, setStatus)
	return cmd
}

func printOrders(w io.Writer, orders []model.Order) {
	if len(orders) == 0 {
		fmt.Fprintln(w, "No orders.")
		return
	}
	for _, o := range orders {
		fmt.Fprintf(w, "%s  %s  %s  %s\n", o.OrderNo, o.Date.Format("2006-01-02"), o.Status, o.Customer.ID)
		for _, l := range o.Lines {
			media := "-"
			if len(l.Media) > 0 {
				media = l.Media[0].URL
			}
			fmt.Fprintf(w, "  %s  x%d  %s\n", l.VariantID, l.Quantity, media)
		}
	}
}
