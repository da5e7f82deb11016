package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/nada/internal/poller"
	"github.com/me/nada/pkg/model"
)

// Errors returned by ask for non-successful submissions.
var (
	ErrJobFailed   = errors.New("job failed, check Kestra logs")
	ErrJobTimedOut = errors.New("timed out waiting for the job")
)

func newAskCmd() *cobra.Command {
	var quiet bool
	var interval, timeout time.Duration
	var maxAttempts int

	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Ask a question and wait for the answer",
		Long: `Starts the analysis flow for the question, polls its status until it
finishes, and prints the answer to stdout. Progress goes to stderr.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

			pcfg := cfg.Poller()
			if cmd.Flags().Changed("interval") {
				pcfg.Interval = interval
			}
			if cmd.Flags().Changed("timeout") {
				pcfg.Timeout = timeout
			}
			if cmd.Flags().Changed("max-attempts") {
				pcfg.MaxAttempts = maxAttempts
			}

			l, r, err := backend()
			if err != nil {
				return err
			}

			stderr := cmd.ErrOrStderr()
			c := poller.New(l, r, pcfg, logger, poller.WithEventHandler(func(ev poller.Event) {
				if ev.Kind == poller.EventProgress && !quiet {
					fmt.Fprintln(stderr, ev.Message)
				}
			}))

			if !c.Submit(cmd.Context(), question) {
				return model.ErrInvalidInput
			}
			snap, err := c.Wait(cmd.Context())
			if err != nil {
				c.Stop()
				return err
			}

			switch snap.State {
			case model.JobStateSucceeded:
				fmt.Fprintln(cmd.OutOrStdout(), snap.Answer)
				return nil
			case model.JobStateFailed:
				return fmt.Errorf("execution %s: %w", snap.ExecutionID, ErrJobFailed)
			case model.JobStateTimedOut:
				return fmt.Errorf("execution %s after %d polls: %w", snap.ExecutionID, snap.Attempts, ErrJobTimedOut)
			default:
				if snap.Err == nil {
					return fmt.Errorf("submission ended in state %s", snap.State)
				}
				return snap.Err
			}
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress messages")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Delay between status polls")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "Give up after this long (0 for no limit)")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "Give up after this many polls (0 for no limit)")

	return cmd
}
