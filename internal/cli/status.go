package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/nada/pkg/model"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <execution_id>",
		Short: "Check the status of an execution once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			_, r, err := backend()
			if err != nil {
				return err
			}
			outcome, err := r.Resolve(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("get status: %w", err)
			}

			resp := model.NewStatusResponse(outcome)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Execution: %s\n", id)
			fmt.Fprintf(out, "  Status:  %s\n", resp.Status)
			if resp.Answer != "" {
				fmt.Fprintf(out, "  Answer:  %s\n", resp.Answer)
			}
			return nil
		},
	}
}
