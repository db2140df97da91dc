package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	appreminder "github.com/turtacn/ContractKeeper/internal/application/reminder"
	"github.com/turtacn/ContractKeeper/internal/domain/contract"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// sweepSource identifies contractctl as the sender of sweep requests.
const sweepSource = "contractctl"

type sweepOptions struct {
	async bool
	at    string
}

func newSweepCmd() *cobra.Command {
	opts := &sweepOptions{}
	cmd := &cobra.Command{
		Use:   "sweep <reminders|trash>",
		Short: "Run a reminder or trash sweep now",
		Long: `Run one of the worker's periodic sweeps immediately.

By default the sweep runs in this process under the same cluster lock the
worker uses.  With --async a request is published to Kafka and the worker
picks it up.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{kafka.SweepReminders, kafka.SweepTrash},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, args[0], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.async, "async", false, "publish a sweep request for the worker instead of running locally")
	cmd.Flags().StringVar(&opts.at, "at", "", "evaluate as of this date (YYYY-MM-DD); defaults to now")
	return cmd
}

func runSweep(cmd *cobra.Command, sweep string, opts *sweepOptions) error {
	if sweep != kafka.SweepReminders && sweep != kafka.SweepTrash {
		return errors.InvalidParam(fmt.Sprintf("unknown sweep %q (reminders, trash)", sweep))
	}
	now := time.Now()
	if opts.at != "" {
		if opts.async {
			return errors.InvalidParam("--at cannot be combined with --async")
		}
		d, err := time.ParseInLocation(contract.DateLayout, opts.at, time.Local)
		if err != nil {
			return errors.InvalidParam("--at must be a date (YYYY-MM-DD)")
		}
		now = d
	}

	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg, err := cliCtx.Config()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
	defer cancel()

	rt, err := cliCtx.Backend.Open(ctx, cfg, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	if opts.async {
		if rt.Publisher == nil {
			return errors.New(errors.ErrCodeFeatureDisabled, "kafka is disabled; run the sweep without --async")
		}
		msg, err := kafka.NewSweepRequest(sweep, requestedBy(), sweepSource)
		if err != nil {
			return err
		}
		if err := rt.Publisher.Publish(ctx, msg); err != nil {
			return err
		}
		PrintSuccess(cmd, fmt.Sprintf("%s sweep requested", sweep))
		return nil
	}

	switch sweep {
	case kafka.SweepReminders:
		res, err := rt.Sweeps.Reminders(ctx, now)
		if err != nil {
			return err
		}
		return printReminderSweep(cmd, cliCtx, res)
	default:
		purged, err := rt.Sweeps.Trash(ctx, now)
		if err != nil {
			return err
		}
		if cliCtx.OutputFormat == OutputJSON {
			return printJSON(cmd.OutOrStdout(), map[string]int{"purged": purged})
		}
		PrintSuccess(cmd, fmt.Sprintf("purged %d expired contract(s) from the trash", purged))
		return nil
	}
}

func requestedBy() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return sweepSource
}

func printReminderSweep(cmd *cobra.Command, cliCtx *CLIContext, res *appreminder.SweepResult) error {
	if cliCtx.OutputFormat == OutputJSON {
		return printJSON(cmd.OutOrStdout(), res)
	}
	out := cmd.OutOrStdout()
	if len(res.Dispatches) > 0 {
		rows := make([][]string, 0, len(res.Dispatches))
		for _, d := range res.Dispatches {
			rows = append(rows, []string{
				strconv.FormatInt(d.ContractID, 10),
				truncate(d.ContractName, 40),
				string(d.Stage),
				d.Deadline,
				formatAttempts(d),
				formatRecorded(d),
			})
		}
		if err := renderTable(out, []string{"ID", "Contract", "Stage", "Deadline", "Transports", "Recorded"}, rows); err != nil {
			return err
		}
	}
	for _, f := range res.Failures {
		fmt.Fprintf(out, "%s contract %d (%s): %s\n", color.RedString("failed"), f.ContractID, f.Stage, f.Error)
	}
	fmt.Fprintf(out, "\nCandidates: %d  Sent: %d  Failed: %d  Duration: %s\n",
		res.Candidates, res.Sent, len(res.Failures), res.Duration.Round(time.Millisecond))
	return nil
}

func formatAttempts(d appreminder.Dispatch) string {
	if d.AlreadySent {
		return "-"
	}
	parts := make([]string, 0, len(d.Attempts))
	for _, a := range d.Attempts {
		switch {
		case a.Skipped:
			parts = append(parts, a.Transport+":skipped")
		case a.Success:
			parts = append(parts, color.GreenString(a.Transport+":ok"))
		default:
			parts = append(parts, color.RedString(a.Transport+":failed"))
		}
	}
	return strings.Join(parts, " ")
}

func formatRecorded(d appreminder.Dispatch) string {
	switch {
	case d.AlreadySent:
		return "already sent"
	case d.Recorded:
		return color.GreenString("yes")
	default:
		return color.YellowString("no")
	}
}

//Personal.AI order the ending
