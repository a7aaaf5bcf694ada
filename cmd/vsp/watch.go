package main

import (
	"fmt"
	"time"

	"github.com/aqora-io/vector-search-playground/internal"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func NewWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Watch a directory and ingest documents",
		Long:  `Ingest text files (.txt, .md) from a directory, then keep watching it and store new or changed files as documents.`,
		Args:  cobra.ExactArgs(1),
		RunE:  makeWatchRunner(a),
	}

	cmd.Flags().Duration("debounce", 500*time.Millisecond, "Debounce window for batching changes")
	return cmd
}

func makeWatchRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		debounce, _ := cmd.Flags().GetDuration("debounce")

		svc, _, err := a.service(cmd)
		if err != nil {
			return err
		}
		ingestor := internal.NewIngestor(svc, a.log)

		n, err := ingestor.IngestDir(cmd.Context(), dir)
		if err != nil {
			return fmt.Errorf("initial ingest: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d files from %s\n", n, dir)

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer watcher.Close()

		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for changes...\n", dir)

		timer := time.NewTimer(0)
		if !timer.Stop() {
			<-timer.C
		}
		pending := make(map[string]struct{})

		for {
			select {
			case <-cmd.Context().Done():
				return nil
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
					continue
				}
				if !internal.Ingestible(event.Name) {
					continue
				}
				if len(pending) == 0 {
					timer.Reset(debounce)
				}
				pending[event.Name] = struct{}{}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "watch error: %v\n", err)
			case <-timer.C:
				for path := range pending {
					rec, err := ingestor.IngestFile(cmd.Context(), path)
					if err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "ingest %s: %v\n", path, err)
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", rec.ID, path)
				}
				pending = make(map[string]struct{})
			}
		}
	}
}
