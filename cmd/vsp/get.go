package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func NewGetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Retrieve a document",
		Long:  `Retrieve and display the content of a stored document.`,
		Args:  cobra.ExactArgs(1),
		RunE:  makeGetRunner(a),
	}

	return cmd
}

func makeGetRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		svc, _, err := a.service(cmd)
		if err != nil {
			return err
		}

		rec, err := svc.Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("get document: %w", err)
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"id":         rec.ID,
				"content":    rec.Content,
				"created_at": rec.CreatedAt,
			})
		}

		fmt.Fprintln(cmd.OutOrStdout(), rec.Content)
		return nil
	}
}
