package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ErrPartialPublish is returned when some records of an offering could not
// be published. Running publish again retries only those records.
var ErrPartialPublish = errors.New("offering partially published")

// NewPublishCommand creates the publish command.
func NewPublishCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <offering-id>",
		Short: "Publish every unpublished score record of an offering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseOfferingID(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd, rootOpts, func(ctx context.Context, rt *Runtime) error {
				result, err := rt.Service.Publish(ctx, id)
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				if result.NothingToPublish() {
					fmt.Fprintf(w, "offering %d has no score records\n", id)
					return nil
				}
				fmt.Fprintf(w, "offering %d  published %d/%d  already published %d  batch %s\n",
					id, result.Succeeded, result.Attempted, result.AlreadyPublished, result.BatchID)
				if result.Skipped > 0 {
					fmt.Fprintf(w, "skipped %d record(s) with an unknown status\n", result.Skipped)
				}
				for _, f := range result.Failed {
					fmt.Fprintf(w, "failed record %d: %s\n", f.RecordID, f.Err)
				}
				if result.Partial() {
					return fmt.Errorf("%w: %d record(s) failed", ErrPartialPublish, len(result.Failed))
				}
				return nil
			})
		},
	}
}
