// Command pipestack-migrate creates the workspaces table and the
// workspace_created notification trigger the Workspace Watcher (§4.4)
// depends on. It is idempotent: rerunning it against an already-migrated
// database is a no-op.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cuemby/pipestack/pkg/store"
)

var (
	dsn     = flag.String("dsn", "", "Postgres connection string (required)")
	dryRun  = flag.Bool("dry-run", false, "print the statements that would run without applying them")
	timeout = flag.Duration("timeout", 30*time.Second, "overall migration timeout")
)

const createWorkspacesTable = `
CREATE TABLE IF NOT EXISTS workspaces (
	slug         TEXT PRIMARY KEY,
	nats_account TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`

func main() {
	flag.Parse()
	if *dsn == "" {
		log.Fatal("pipestack-migrate: -dsn is required")
	}

	log.Println("pipestack-migrate: workspaces schema")
	log.Println("====================================")

	if *dryRun {
		log.Println("dry run, would execute:")
		log.Println(createWorkspacesTable)
		log.Println("then install the workspace_created notification trigger (pkg/store.EnsureNotifyTrigger)")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, *dsn)
	if err != nil {
		log.Fatalf("open pool: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, createWorkspacesTable); err != nil {
		log.Fatalf("create workspaces table: %v", err)
	}
	log.Println("workspaces table present")

	st, err := store.New(ctx, *dsn)
	if err != nil {
		log.Fatalf("connect workspace store: %v", err)
	}
	defer st.Close()

	if err := st.EnsureNotifyTrigger(ctx); err != nil {
		log.Fatalf("install notification trigger: %v", err)
	}
	log.Println("workspace_created trigger present")
	log.Println("migration complete")
}
