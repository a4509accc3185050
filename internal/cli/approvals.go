package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewApprovalsCommand creates the approvals command group.
func NewApprovalsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approvals",
		Short: "Inspect the catalog review backlog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Count pending products, rejected products and variant approvals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				s, err := a.svc.GetApprovalStats(ctx)
				if err != nil {
					return out.Fail(err)
				}
				return out.Success(s, func(w io.Writer) {
					fmt.Fprintf(w, "pending:           %d\n", s.Pending)
					fmt.Fprintf(w, "rejected:          %d\n", s.Rejected)
					fmt.Fprintf(w, "variant approvals: %d\n", s.VariantApprovals)
					fmt.Fprintf(w, "total:             %d\n", s.Total)
				})
			})
		},
	})

	return cmd
}
