// Package store is the workspace relational store (external system of
// record, §3 "Workspace"): slug to NATS account mapping, plus the
// notification trigger the Workspace Watcher listens on.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cuemby/pipestack/pkg/log"
)

// WorkspaceStore wraps a pooled Postgres connection for workspace reads and
// writes. Individual queries are short-lived; the pool is shared across
// components per §5 "Shared resources".
type WorkspaceStore struct {
	pool *pgxpool.Pool
}

// New opens a connection pool against dsn and verifies connectivity with a
// cheap query before returning, mirroring pipeline_manager's test_connection.
func New(ctx context.Context, dsn string) (*WorkspaceStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &WorkspaceStore{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *WorkspaceStore) Close() {
	s.pool.Close()
}

// NatsAccount returns the tenant account public key for slug, or "" if the
// workspace has none yet.
func (s *WorkspaceStore) NatsAccount(ctx context.Context, slug string) (string, error) {
	var account *string
	err := s.pool.QueryRow(ctx,
		`SELECT nats_account FROM workspaces WHERE slug = $1`, slug,
	).Scan(&account)
	if err == pgx.ErrNoRows {
		return "", fmt.Errorf("workspace %q not found", slug)
	}
	if err != nil {
		return "", fmt.Errorf("query nats_account: %w", err)
	}
	if account == nil {
		return "", nil
	}
	return *account, nil
}

// SetNatsAccount persists the tenant account public key for slug (identity
// manager step 9).
func (s *WorkspaceStore) SetNatsAccount(ctx context.Context, slug, accountPub string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE workspaces SET nats_account = $1 WHERE slug = $2`, accountPub, slug)
	if err != nil {
		return fmt.Errorf("update nats_account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workspace %q not found", slug)
	}
	return nil
}

// EnsureNotifyTrigger installs the workspace_created notification trigger if
// it is not already present, rather than assuming an operator migration
// already ran.
func (s *WorkspaceStore) EnsureNotifyTrigger(ctx context.Context) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.triggers
			WHERE trigger_name = 'workspace_created_notify'
		)`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check trigger: %w", err)
	}
	if exists {
		return nil
	}

	log.Logger.Info().Msg("installing workspace_created notification trigger")
	_, err = s.pool.Exec(ctx, `
		CREATE OR REPLACE FUNCTION notify_workspace_created() RETURNS trigger AS $$
		BEGIN
			PERFORM pg_notify('workspace_created', json_build_object('slug', NEW.slug)::text);
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql;

		CREATE TRIGGER workspace_created_notify
		AFTER INSERT ON workspaces
		FOR EACH ROW EXECUTE FUNCTION notify_workspace_created();
	`)
	if err != nil {
		return fmt.Errorf("install trigger: %w", err)
	}
	return nil
}

// AcquireNotifyConn checks out a dedicated connection for LISTEN/NOTIFY; the
// caller must release it when done. pgxpool connections used for
// WaitForNotification must not be shared with pooled query traffic.
func (s *WorkspaceStore) AcquireNotifyConn(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire notify connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN workspace_created"); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen workspace_created: %w", err)
	}
	return conn, nil
}
