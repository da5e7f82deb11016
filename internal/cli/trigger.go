package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newTriggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trigger <question...>",
		Short: "Start the analysis flow and print the execution id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, _, err := backend()
			if err != nil {
				return err
			}

			id, err := l.Launch(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("trigger: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}
