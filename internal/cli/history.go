package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/carlog/internal/client"
	"github.com/roach88/carlog/internal/ir"
)

// HistoryResult is the decoded entry of one VIN.
type HistoryResult struct {
	VIN         string `json:"vin"`
	Address     string `json:"address"`
	Identity    string `json:"identity"`
	WorkDate    string `json:"work_date"`
	Work        string `json:"work"`
	Mileage     int64  `json:"mileage"`
	Description string `json:"description"`
	Brand       string `json:"brand"`
	Model       string `json:"model"`
	Timestamp   int64  `json:"timestamp"`
}

func newHistoryResult(address string, e ir.LedgerEntry) HistoryResult {
	return HistoryResult{
		VIN:         e.VIN,
		Address:     address,
		Identity:    e.Identity,
		WorkDate:    e.WorkDate,
		Work:        e.WorkString(),
		Mileage:     e.Mileage,
		Description: e.Description,
		Brand:       e.Brand,
		Model:       e.Model,
		Timestamp:   e.Timestamp,
	}
}

func (r HistoryResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "VIN:         %s\n", r.VIN)
	if r.Brand != "" || r.Model != "" {
		fmt.Fprintf(&b, "Vehicle:     %s %s\n", r.Brand, r.Model)
	}
	fmt.Fprintf(&b, "Work date:   %s\n", r.WorkDate)
	fmt.Fprintf(&b, "Work:        %s\n", r.Work)
	fmt.Fprintf(&b, "Mileage:     %d km\n", r.Mileage)
	if r.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", r.Description)
	}
	fmt.Fprintf(&b, "Identity:    %s\n", r.Identity)
	fmt.Fprintf(&b, "Recorded:    %s", time.Unix(r.Timestamp, 0).UTC().Format(time.RFC3339))
	return b.String()
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <vin>",
		Short: "Show the current entry of a vehicle",
		Long: `Show the current ledger entry of a vehicle.

Only the latest entry is kept; every accepted write replaces it.

Exit codes:
  0 - Entry found
  1 - VIN not registered
  2 - Command error (node unreachable, bad config)

Examples:
  carlog history 1HGCM82633A004352
  carlog history 1HGCM82633A004352 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, cmd, args[0])
		},
	}
	return cmd
}

func runHistory(opts *RootOptions, cmd *cobra.Command, vin string) error {
	formatter := opts.formatter(cmd)
	c, err := opts.newClient(nil)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	e, err := c.History(commandContext(cmd), vin)
	if errors.Is(err, client.ErrNotFound) {
		return formatter.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("no entry for VIN %s", vin), nil)
	}
	if err != nil {
		return formatter.FailRequest("history "+vin, err)
	}
	return formatter.Success(newHistoryResult(ir.DeriveAddress(opts.family(), vin), *e))
}

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Limit int
}

// ListResult holds the entries returned by list.
type ListResult struct {
	Entries []HistoryResult `json:"entries"`
}

func (r ListResult) String() string {
	if len(r.Entries) == 0 {
		return "No entries."
	}
	var b strings.Builder
	for i, e := range r.Entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%-17s  %-10s  work %-12s  %8d km  %s", e.VIN, e.WorkDate, e.Work, e.Mileage, shortKey(e.Identity))
	}
	return b.String()
}

func shortKey(pub string) string {
	if len(pub) > 16 {
		return pub[:16] + "…"
	}
	return pub
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered vehicles",
		Long: `List the entries of the carLogger namespace, ordered by address.

Examples:
  carlog list
  carlog list --limit 20 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of entries (0 = node default)")
	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	if opts.Limit < 0 {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, "--limit must not be negative", nil)
	}
	c, err := opts.newClient(nil)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	listed, err := c.List(commandContext(cmd), opts.Limit)
	if err != nil {
		return formatter.FailRequest("list", err)
	}
	out := ListResult{Entries: make([]HistoryResult, len(listed))}
	for i, l := range listed {
		out.Entries[i] = newHistoryResult(l.Address, l.Entry)
	}
	return formatter.Success(out)
}
