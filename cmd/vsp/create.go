package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func NewCreateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create [content]",
		Short: "Store a document",
		Long:  `Embed a piece of text and store it with its vector. Reads from stdin if content is not provided.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  makeCreateRunner(a),
	}

	return cmd
}

func makeCreateRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		content, err := resolveContent(args)
		if err != nil {
			return err
		}
		if content == "" {
			return fmt.Errorf("content is empty")
		}

		svc, _, err := a.service(cmd)
		if err != nil {
			return err
		}

		rec, err := svc.Create(cmd.Context(), content)
		if err != nil {
			return fmt.Errorf("create document: %w", err)
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"id":         rec.ID,
				"created_at": rec.CreatedAt,
			})
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", rec.ID)
		return nil
	}
}

func resolveContent(args []string) (string, error) {
	if len(args) >= 1 {
		return args[0], nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}
