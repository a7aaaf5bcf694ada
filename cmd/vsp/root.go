package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewRootCmd(version string, a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "vsp",
		Short:         "Semantic document search from the command line",
		Long:          `Store short text documents with dense vector embeddings and search them by semantic similarity.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	addPersistentFlags(rootCmd)
	setHelpWithExternals(rootCmd)

	if a != nil {
		addSubcommands(rootCmd, a)
	}

	return rootCmd
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "Config file path")
	cmd.PersistentFlags().StringP("db", "d", "", "Database path (env VSP_DB)")
	cmd.PersistentFlags().StringP("collection", "c", "", "Collection name (env VSP_COLLECTION)")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().Bool("debug", false, "Verbose logging")
}

func addSubcommands(root *cobra.Command, a *app) {
	root.AddCommand(
		NewCreateCmd(a),
		NewSearchCmd(a),
		NewCountCmd(a),
		NewCollectionsCmd(a),
		NewGetCmd(a),
		NewDelCmd(a),
		NewRebuildCmd(a),
		NewWatchCmd(a),
	)
}

func isBuiltin(name string) bool {
	switch name {
	case "create", "search", "count", "collections", "ls",
		"get", "del", "delete", "rm", "rebuild", "watch",
		"help", "completion":
		return true
	}
	return false
}

func setHelpWithExternals(cmd *cobra.Command) {
	defaultHelp := cmd.HelpFunc()

	cmd.SetHelpFunc(func(c *cobra.Command, args []string) {
		defaultHelp(c, args)
		printExternalCommands(c)
	})
}

func printExternalCommands(cmd *cobra.Command) {
	externals := externalNames()
	if len(externals) == 0 {
		return
	}

	fmt.Fprintln(cmd.OutOrStdout(), "\nExternal commands (vsp-*):")
	for _, name := range externals {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", name)
	}
}
