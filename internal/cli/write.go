package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/carlog/internal/api"
	"github.com/roach88/carlog/internal/client"
	"github.com/roach88/carlog/internal/codec"
	"github.com/roach88/carlog/internal/ir"
	"github.com/roach88/carlog/internal/store"
)

// WriteOptions holds flags shared by create, add and delete.
type WriteOptions struct {
	*RootOptions
	Wait     time.Duration // 0 returns as soon as the node accepted the batch
	Interval time.Duration
}

// WriteResult is printed after a write was submitted.
type WriteResult struct {
	Op       string                   `json:"op"`
	VIN      string                   `json:"vin"`
	Address  string                   `json:"address"`
	BatchIDs []string                 `json:"batch_ids"`
	Link     string                   `json:"link"`
	Status   store.BatchStatus        `json:"status,omitempty"`
	Rejected []api.InvalidTransaction `json:"rejected,omitempty"`
}

func (r WriteResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s submitted\n", r.Op, r.VIN)
	fmt.Fprintf(&b, "  address: %s\n", r.Address)
	fmt.Fprintf(&b, "  batch:   %s\n", strings.Join(r.BatchIDs, ","))
	if r.Status != "" {
		fmt.Fprintf(&b, "  status:  %s\n", r.Status)
	} else {
		fmt.Fprintf(&b, "  status:  %s\n", r.Link)
	}
	for _, tx := range r.Rejected {
		fmt.Fprintf(&b, "  rejected %s: %s\n", tx.Code, tx.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}

// sendFunc performs one client write.
type sendFunc func(ctx context.Context, c *client.Client) (*client.SubmitResult, error)

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WriteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <vin> <key> <date> <brand> <model> [description]",
		Short: "Register a vehicle",
		Long: `Register a vehicle under its VIN.

The entry starts with no work and zero mileage and is owned by <key>.
<key> is a hex private key, a key file, a key name under client.key_dir,
or "-" for --keyfile.

Examples:
  carlog create 1HGCM82633A004352 garage 2024-01-01 Toyota Corolla
  carlog create 1HGCM82633A004352 - 2024-01-01 Toyota Corolla "first owner" --wait 5s`,
		Args:          cobra.RangeArgs(5, 6),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			vin, date, brand, model := args[0], args[2], args[3], args[4]
			desc := optionalArg(args, 5)
			return runWrite(opts, cmd, ir.OpCreate, vin, args[1], func(ctx context.Context, c *client.Client) (*client.SubmitResult, error) {
				return c.Create(ctx, vin, date, brand, model, desc)
			})
		},
	}
	addWriteFlags(cmd, opts)
	return cmd
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	return newWorkCommand(rootOpts, ir.OpAdd, "Record work done on a vehicle",
		`Record work done on a registered vehicle.

<work> is one or more integer work codes joined by "|", e.g. "3|7".
The new entry replaces the previous one and is owned by <key>.
Put "--" after the flags when a work code is negative, so that it is not
read as a flag.

Examples:
  carlog add 1HGCM82633A004352 garage 2024-03-05 "3|7" 15000 "oil, filters"
  carlog add --wait 5s 1HGCM82633A004352 garage 2024-03-05 -- "-3|7" 15000`)
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return newWorkCommand(rootOpts, ir.OpDelete, "Record removal of work codes",
		`Record the removal of work codes from a registered vehicle.

The codes are stored negated: deleting "3|7" stores "-3|-7".
As with add, "--" lets a negative work code through as an argument.

Examples:
  carlog delete 1HGCM82633A004352 garage 2024-04-01 7 16000 warranty`)
}

func newWorkCommand(rootOpts *RootOptions, kind ir.OpKind, short, long string) *cobra.Command {
	opts := &WriteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           string(kind) + " [flags] [--] <vin> <key> <date> <work> <km> [description]",
		Short:         short,
		Long:          long,
		Args:          cobra.RangeArgs(5, 6),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			vin, date := args[0], args[2]
			desc := optionalArg(args, 5)
			codes, km, err := parseWork(args[3], args[4])
			if err != nil {
				return opts.formatter(cmd).Fail(ExitCommandError, ErrCodeUsage, err.Error(), nil)
			}
			return runWrite(opts, cmd, kind, vin, args[1], func(ctx context.Context, c *client.Client) (*client.SubmitResult, error) {
				if kind == ir.OpAdd {
					return c.Add(ctx, vin, date, codes, km, desc)
				}
				return c.Delete(ctx, vin, date, codes, km, desc)
			})
		},
	}
	addWriteFlags(cmd, opts)
	return cmd
}

func addWriteFlags(cmd *cobra.Command, opts *WriteOptions) {
	cmd.Flags().DurationVar(&opts.Wait, "wait", 0, "wait up to this long for the batch to reach a final status")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 200*time.Millisecond, "status poll interval while waiting")
}

func optionalArg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return ""
}

// parseWork parses the <work> and <km> arguments.
func parseWork(work, km string) ([]int64, int64, error) {
	codes, err := codec.ParseWorkCodes(work)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid work %q: %w", work, err)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(km), 10, 64)
	if err != nil || n < 0 {
		return nil, 0, fmt.Errorf("invalid km %q: must be a non-negative integer", km)
	}
	return codes, n, nil
}

func runWrite(opts *WriteOptions, cmd *cobra.Command, kind ir.OpKind, vin, key string, send sendFunc) error {
	formatter := opts.formatter(cmd)
	log := opts.logger().With("op", string(kind), "vin", vin)

	signer, err := opts.resolveSigner(key)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeKey, err.Error(), nil)
	}
	c, err := opts.newClient(signer)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	ctx := commandContext(cmd)
	res, err := send(ctx, c)
	if err != nil {
		if errors.Is(err, codec.ErrInvalidOperation) {
			return formatter.Fail(ExitCommandError, ErrCodeUsage, err.Error(), nil)
		}
		return formatter.FailRequest(fmt.Sprintf("%s %s", kind, vin), err)
	}
	log.Debug("batch submitted", "batch_ids", res.BatchIDs)

	out := WriteResult{
		Op:       string(kind),
		VIN:      vin,
		Address:  ir.DeriveAddress(opts.family(), vin),
		BatchIDs: res.BatchIDs,
		Link:     res.Link,
	}
	if opts.Wait <= 0 || len(res.BatchIDs) == 0 {
		return formatter.Success(out)
	}

	wctx, cancel := context.WithTimeout(ctx, opts.Wait)
	defer cancel()
	st, err := c.WaitForBatch(wctx, res.BatchIDs[0], opts.Interval)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return formatter.Fail(ExitFailure, ErrCodeTimeout,
				fmt.Sprintf("batch %s not final after %s", res.BatchIDs[0], opts.Wait), out)
		}
		return formatter.FailRequest("batch status", err)
	}

	out.Status = st.Status
	out.Rejected = st.InvalidTransactions
	if st.Status != store.BatchCommitted {
		msg := fmt.Sprintf("%s %s: batch %s", kind, vin, st.Status)
		if len(st.InvalidTransactions) > 0 {
			msg = fmt.Sprintf("%s %s: %s", kind, vin, st.InvalidTransactions[0].Code)
		} else if st.Message != "" {
			msg = fmt.Sprintf("%s: %s", msg, st.Message)
		}
		return formatter.Fail(ExitFailure, ErrCodeRejected, msg, out)
	}
	return formatter.Success(out)
}
