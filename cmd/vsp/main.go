package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/aqora-io/vector-search-playground/internal"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	ctx := context.Background()

	if tryExternalCommand(ctx) {
		return
	}

	a := &app{}
	defer a.close()

	rootCmd := NewRootCmd(version, a)
	if err := fang.Execute(ctx, rootCmd); err != nil {
		os.Exit(1)
	}
}

func tryExternalCommand(ctx context.Context) bool {
	if len(os.Args) < 2 {
		return false
	}

	cmd := os.Args[1]
	if cmd == "" || cmd[0] == '-' {
		return false
	}

	if isBuiltin(cmd) {
		return false
	}

	if _, err := resolveExternal(cmd); err != nil {
		return false
	}

	if err := runExternal(ctx, cmd, os.Args[2:], version); err != nil {
		fmt.Fprintf(os.Stderr, "vsp %s: %v\n", cmd, err)
		os.Exit(1)
	}

	return true
}

// app lazily wires the database, embedder, and document service from
// the persistent flags of whichever command runs.
type app struct {
	mu  sync.Mutex
	cfg *internal.Config
	db  *internal.SQLiteDB
	svc *internal.DocumentService
	log *zap.Logger
}

func (a *app) service(cmd *cobra.Command) (*internal.DocumentService, *internal.Config, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.svc != nil {
		return a.svc, a.cfg, nil
	}

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	if db := flagOrEnv(cmd, "db", "VSP_DB"); db != "" {
		cfg.Database = db
	}
	if col := flagOrEnv(cmd, "collection", "VSP_COLLECTION"); col != "" {
		cfg.Collection.Name = col
	}

	debug, _ := cmd.Flags().GetBool("debug")
	log, err := newLogger(debug)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	embedder, err := internal.NewEmbedder(cfg.Embeddings)
	if err != nil {
		return nil, nil, fmt.Errorf("create embedder: %w", err)
	}

	db, err := internal.OpenSQLiteDB(cfg.Database)
	if err != nil {
		_ = embedder.Close()
		return nil, nil, err
	}

	a.cfg = cfg
	a.db = db
	a.log = log
	a.svc = internal.NewDocumentService(db, embedder, cfg, log)
	return a.svc, a.cfg, nil
}

func (a *app) close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.svc != nil {
		_ = a.svc.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func flagOrEnv(cmd *cobra.Command, flag, env string) string {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v
	}
	return os.Getenv(env)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
