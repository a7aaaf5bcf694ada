package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func NewCollectionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"ls"},
		Short:   "List collections",
		Long:    `List every collection with its dimension, metric, and live document count.`,
		Args:    cobra.NoArgs,
		RunE:    makeCollectionsRunner(a),
	}

	return cmd
}

func makeCollectionsRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		svc, _, err := a.service(cmd)
		if err != nil {
			return err
		}

		infos, err := svc.Collections(cmd.Context())
		if err != nil {
			return fmt.Errorf("list collections: %w", err)
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			out := make([]map[string]any, 0, len(infos))
			for _, info := range infos {
				out = append(out, map[string]any{
					"name":      info.Name,
					"dimension": info.Dimension,
					"metric":    info.Metric,
					"records":   info.Records,
				})
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		for _, info := range infos {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tdim=%d\tmetric=%s\trecords=%d\n",
				info.Name, info.Dimension, info.Metric, info.Records)
		}
		return nil
	}
}
