package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aqora-io/vector-search-playground/internal"
	"github.com/spf13/cobra"
)

func NewSearchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search documents by semantic similarity",
		Long:  `Embed the query text and return the most similar stored documents, best match first.`,
		Args:  cobra.ExactArgs(1),
		RunE:  makeSearchRunner(a),
	}

	cmd.Flags().IntP("top-k", "k", internal.DefaultTopK, "Maximum results")
	cmd.Flags().Float64P("threshold", "t", internal.DefaultThreshold, "Similarity threshold (cosine: minimum similarity, l2: maximum distance)")
	cmd.Flags().Bool("no-threshold", false, "Disable threshold filtering")
	return cmd
}

func makeSearchRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		query := args[0]
		topK, _ := cmd.Flags().GetInt("top-k")
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		noThreshold, _ := cmd.Flags().GetBool("no-threshold")
		asJSON, _ := cmd.Flags().GetBool("json")

		svc, cfg, err := a.service(cmd)
		if err != nil {
			return err
		}

		var thr *float64
		if !noThreshold {
			thr = &threshold
		}

		results, partial, err := svc.Search(cmd.Context(), query, topK, thr)
		if errors.Is(err, internal.ErrCollectionNotFound) {
			fmt.Fprintf(cmd.ErrOrStderr(), "collection %q not found, nothing indexed yet\n", cfg.Collection.Name)
			results = nil
		} else if err != nil {
			return fmt.Errorf("search: %w", err)
		}

		if partial {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: search interrupted, results are partial")
		}

		if asJSON {
			return outputResultsJSON(cmd, results)
		}

		for _, r := range results {
			fmt.Fprintf(cmd.OutOrStdout(), "%.4f  %s  %s\n", r.Score, r.ID, firstLine(r.Content))
		}
		return nil
	}
}

func outputResultsJSON(cmd *cobra.Command, results []internal.QueryResult) error {
	out := make([]map[string]any, 0, len(results))
	for _, r := range results {
		out = append(out, map[string]any{
			"id":      r.ID,
			"score":   r.Score,
			"content": r.Content,
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 80 {
		s = s[:77] + "..."
	}
	return s
}
