package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/carlog/internal/api"
	"github.com/roach88/carlog/internal/store"
)

// StatusResult holds the statuses of the requested batches.
type StatusResult struct {
	Batches []api.BatchStatus `json:"batches"`
}

func (r StatusResult) String() string {
	var b strings.Builder
	for i, st := range r.Batches {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s  %s", st.ID, st.Status)
		if st.Message != "" {
			fmt.Fprintf(&b, "  (%s)", st.Message)
		}
		for _, tx := range st.InvalidTransactions {
			fmt.Fprintf(&b, "\n  %s %s: %s", tx.ID, tx.Code, tx.Message)
		}
	}
	return b.String()
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <batch-id>...",
		Short: "Show batch statuses",
		Long: `Show the status of submitted batches.

Statuses: PENDING, COMMITTED, PARTIAL, REJECTED, INVALID, UNKNOWN.
Rejected transactions are listed with their error code.

Exit codes:
  0 - Every batch is PENDING or COMMITTED
  1 - At least one batch is PARTIAL, REJECTED, INVALID or UNKNOWN
  2 - Command error

Examples:
  carlog status 3045022100ab...
  carlog status <id1> <id2> --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd, args)
		},
	}
	return cmd
}

func runStatus(opts *RootOptions, cmd *cobra.Command, ids []string) error {
	formatter := opts.formatter(cmd)
	c, err := opts.newClient(nil)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	statuses, err := c.BatchStatus(commandContext(cmd), ids...)
	if err != nil {
		return formatter.FailRequest("batch status", err)
	}
	if err := formatter.Success(StatusResult{Batches: statuses}); err != nil {
		return err
	}
	for _, st := range statuses {
		if st.Status != store.BatchPending && st.Status != store.BatchCommitted {
			return NewExitError(ExitFailure, fmt.Sprintf("batch %s is %s", st.ID, st.Status))
		}
	}
	return nil
}
