package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewRebuildCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the similarity index",
		Long:  `Reconstruct the similarity index by replaying every stored document. Records that fail to index are reported and skipped.`,
		Args:  cobra.NoArgs,
		RunE:  makeRebuildRunner(a),
	}

	return cmd
}

func makeRebuildRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		svc, _, err := a.service(cmd)
		if err != nil {
			return err
		}

		report, err := svc.Rebuild(cmd.Context())
		if err != nil {
			return fmt.Errorf("rebuild index: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d records\n", report.Indexed)
		for _, id := range report.Skipped {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s\n", id)
		}
		return nil
	}
}
