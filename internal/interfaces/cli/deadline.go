package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/ContractKeeper/internal/domain/contract"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// DeadlineResult is the printed result of `deadline`.
type DeadlineResult struct {
	EndDate   string `json:"endDate"`
	Period    string `json:"period"`
	Deadline  string `json:"deadline"`
	Formatted string `json:"formatted"`
	DaysLeft  int    `json:"daysLeft"`
}

// urgentDays colours deadlines that are close.
const urgentDays = 30

func newDeadlineCmd() *cobra.Command {
	var (
		endDate string
		period  string
		today   string
	)
	cmd := &cobra.Command{
		Use:   "deadline",
		Short: "Compute a cancellation deadline",
		Long: `Compute the last day a contract can be cancelled: the end date minus the
cancellation period ("3 months", "14 days", "1 year"...).  Month arithmetic
clamps to the end of shorter months.  No configuration is needed.`,
		Example: `  contractctl deadline --end 2026-12-31 --period "3 months"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			end, err := time.Parse(contract.DateLayout, endDate)
			if err != nil {
				return errors.InvalidParam("--end must be a date (YYYY-MM-DD)")
			}
			d, ok := contract.CalculateDeadline(&end, period)
			if !ok {
				return errors.InvalidParam(fmt.Sprintf("invalid period %q (expected e.g. \"3 months\")", period))
			}
			ref := contract.DateOf(time.Now())
			if today != "" {
				if ref, err = time.Parse(contract.DateLayout, today); err != nil {
					return errors.InvalidParam("--today must be a date (YYYY-MM-DD)")
				}
			}

			res := DeadlineResult{
				EndDate:   end.Format(contract.DateLayout),
				Period:    period,
				Deadline:  d.Format(contract.DateLayout),
				Formatted: contract.FormatDeadline(d),
				DaysLeft:  int(d.Sub(ref).Hours() / 24),
			}
			if cliCtx.OutputFormat == OutputJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}
			return renderTable(cmd.OutOrStdout(), []string{"End date", "Period", "Deadline", "Days left"},
				[][]string{{res.EndDate, res.Period, res.Formatted, colorDaysLeft(res.DaysLeft)}})
		},
	}
	cmd.Flags().StringVar(&endDate, "end", "", "contract end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&period, "period", "", "cancellation period, e.g. \"3 months\"")
	cmd.Flags().StringVar(&today, "today", "", "reference date for days left (YYYY-MM-DD); defaults to today")
	_ = cmd.MarkFlagRequired("end")
	_ = cmd.MarkFlagRequired("period")
	return cmd
}

func colorDaysLeft(days int) string {
	s := fmt.Sprintf("%d", days)
	switch {
	case days < 0:
		return color.RedString(s + " (passed)")
	case days <= urgentDays:
		return color.YellowString(s)
	default:
		return color.GreenString(s)
	}
}

//Personal.AI order the ending
