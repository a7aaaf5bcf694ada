package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func NewCountCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count stored documents",
		Long:  `Print the number of live documents in the collection.`,
		Args:  cobra.NoArgs,
		RunE:  makeCountRunner(a),
	}

	return cmd
}

func makeCountRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		svc, _, err := a.service(cmd)
		if err != nil {
			return err
		}

		n, err := svc.Count(cmd.Context())
		if err != nil {
			return fmt.Errorf("count documents: %w", err)
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(map[string]int64{"count": n})
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d\n", n)
		return nil
	}
}
