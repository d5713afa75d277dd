package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewAnomaliesCommand creates the anomalies command.
func NewAnomaliesCommand(rootOpts *RootOptions) *cobra.Command {
	var policy string

	cmd := &cobra.Command{
		Use:   "anomalies <offering-id>",
		Short: "List students whose scores swung unusually",
		Long: `List the score records of an offering that swung by more than 20 points.

Policies:
  midterm_final   final score against midterm score
  cross_offering  total against the student's average in other offerings
  both            either of the above

Without --policy the configured default is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseOfferingID(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd, rootOpts, func(ctx context.Context, rt *Runtime) error {
				report, err := rt.Service.Anomalies(ctx, id, policy)
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "offering %d  policy %s  anomalies %d\n", report.OfferingID, report.Policy, len(report.Anomalies))
				for _, a := range report.Anomalies {
					fmt.Fprintf(w, "record %d  student %d  %s %.1f  baseline %.1f  (%s)\n",
						a.RecordID, a.StudentID, a.Kind, a.Magnitude, a.Baseline, a.Policy)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&policy, "policy", "p", "", "detection policy (midterm_final|cross_offering|both)")

	return cmd
}
