package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yigit/gradebook/internal/app/services"
)

// NewSummaryCommand creates the summary command.
func NewSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <offering-id>",
		Short: "Show the statistics of a course offering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseOfferingID(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd, rootOpts, func(ctx context.Context, rt *Runtime) error {
				report, err := rt.Service.Summary(ctx, id)
				if err != nil {
					return err
				}
				printSummary(cmd.OutOrStdout(), report)
				return nil
			})
		},
	}
}

func printSummary(w io.Writer, report *services.OfferingReport) {
	s := report.Summary
	if o := report.Offering; o != nil {
		name := fmt.Sprintf("offering %d", o.ID)
		if o.Course != nil {
			name = fmt.Sprintf("offering %d %s %s", o.ID, o.Course.Code, o.Course.Name)
		}
		fmt.Fprintf(w, "%s  semester %s  room %s  %s\n", name, o.Semester, o.Room, o.TimeSlot)
	}
	fmt.Fprintf(w, "students %d  average %.1f  excellence %.1f%%  pass %.1f%%\n",
		s.StudentCount, s.AverageTotal, s.ExcellenceRate, s.PassRate)
	fmt.Fprintf(w, "status %s (%s)\n", s.Status, s.StatusPolicy)
	if s.Skipped > 0 {
		fmt.Fprintf(w, "skipped %d malformed record(s)\n", s.Skipped)
	}
	if report.Abnormal() {
		fmt.Fprintf(w, "ABNORMAL: %s\n", report.Anomaly.Reason())
	}
}
