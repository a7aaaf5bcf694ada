package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewDelCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "del <id>",
		Aliases: []string{"delete", "rm"},
		Short:   "Delete a document",
		Long:    `Delete a document by id from the store and the index.`,
		Args:    cobra.ExactArgs(1),
		RunE:    makeDelRunner(a),
	}

	return cmd
}

func makeDelRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		svc, _, err := a.service(cmd)
		if err != nil {
			return err
		}

		if err := svc.Delete(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("delete document: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	}
}
