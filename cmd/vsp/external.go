package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Subcommands that are not built in are served by vsp-<name> binaries
// on PATH, git style.
const externalPrefix = "vsp-"

// resolveExternal returns the path of the binary serving an external
// subcommand.
func resolveExternal(name string) (string, error) {
	path, err := exec.LookPath(externalPrefix + name)
	if err != nil {
		return "", fmt.Errorf("unknown command %q: %s%s not found in PATH", name, externalPrefix, name)
	}
	return path, nil
}

// externalNames lists the subcommand names served by vsp-* binaries on
// PATH, deduplicated and sorted.
func externalNames() []string {
	seen := make(map[string]bool)
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if name, ok := externalName(entry); ok {
				seen[name] = true
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// externalName maps a PATH directory entry to the subcommand it
// serves, if the entry is an executable vsp-* binary.
func externalName(entry os.DirEntry) (string, bool) {
	name, found := strings.CutPrefix(entry.Name(), externalPrefix)
	if !found || name == "" || entry.IsDir() {
		return "", false
	}
	info, err := entry.Info()
	if err != nil || info.Mode()&0111 == 0 {
		return "", false
	}
	return name, true
}

// runExternal executes vsp-<name> with the CLI's stdio and the
// environment from externalEnv.
func runExternal(ctx context.Context, name string, args []string, version string) error {
	bin, err := resolveExternal(name)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Env = append(os.Environ(), externalEnv(version)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// externalEnv is the extra environment exported to external commands.
func externalEnv(version string) []string {
	bin, _ := os.Executable()
	root, _ := os.Getwd()
	return []string{
		"VSP_VERSION=" + version,
		"VSP_BIN=" + bin,
		"VSP_ROOT=" + root,
	}
}
