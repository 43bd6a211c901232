// Package deploy implements the Deployer (C5): resolves a workspace's
// tenant account, compiles its pipeline into a manifest pair (§4.1), and
// submits both to the tenant-scoped reconciler over the bus, providers
// first (§4.2 ordering).
package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/cuemby/pipestack/pkg/bus"
	"github.com/cuemby/pipestack/pkg/compiler"
	"github.com/cuemby/pipestack/pkg/log"
	"github.com/cuemby/pipestack/pkg/manifest"
	"github.com/cuemby/pipestack/pkg/store"
)

// TenantNotReadyError is returned when a workspace has no tenant account
// yet — the Identity Manager has not provisioned it, or the slug does not
// exist at all.
type TenantNotReadyError struct {
	Slug string
}

func (e *TenantNotReadyError) Error() string {
	return fmt.Sprintf("No NATS account configured for workspace: %s", e.Slug)
}

// BusPublishFailedError wraps a manifest submission failure after retries
// are exhausted.
type BusPublishFailedError struct {
	Manifest string
	Err      error
}

func (e *BusPublishFailedError) Error() string {
	return fmt.Sprintf("BusPublishFailed{%s}: %v", e.Manifest, e.Err)
}
func (e *BusPublishFailedError) Unwrap() error { return e.Err }

// Config carries the retry policy and system configuration the Deployer
// needs beyond the pipeline itself.
type Config struct {
	MaxAttempts    int
	RetryDelay     time.Duration
	RequestTimeout time.Duration
}

// ArtifactPublisher is the subset of pkg/artifact.Publisher the Deployer
// depends on for C8 (pushing processor-wasm blobs to the OCI registry
// between compile and submit, per the C4 → C8 → C5 control flow in §2).
type ArtifactPublisher interface {
	PublishPipeline(ctx context.Context, pipeline *manifest.Pipeline, workspaceSlug string) error
}

// Deployer resolves tenant identity, compiles, fans artifacts out to the
// registry, and submits manifests over a shared bus connection authenticated
// as the platform user (§5 "Shared resources": the connection is safe for
// concurrent publish/subscribe and is injected, not owned, by the Deployer).
type Deployer struct {
	store        *store.WorkspaceStore
	platformConn *nats.Conn
	compiler     compiler.Options
	artifacts    ArtifactPublisher
	cfg          Config
}

// New constructs a Deployer bound to the workspace store and a bus
// connection already authenticated with the platform user's credentials.
// artifacts may be nil for workspaces/tests that never declare
// processor-wasm nodes.
func New(st *store.WorkspaceStore, platformConn *nats.Conn, compilerOpts compiler.Options, artifacts ArtifactPublisher, cfg Config) *Deployer {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &Deployer{store: st, platformConn: platformConn, compiler: compilerOpts, artifacts: artifacts, cfg: cfg}
}

// Deploy compiles pipeline for workspaceSlug (C4), pushes any
// processor-wasm artifacts to the registry (C8), then submits both
// resulting manifests to the tenant-scoped reconciler, providers first
// (C5, §4.2 step 4). Artifact push and manifest compilation do not depend
// on each other's output, but artifacts are pushed before either manifest
// is submitted so the reconciler never references an image that isn't in
// the registry yet.
func (d *Deployer) Deploy(ctx context.Context, pipeline *manifest.Pipeline, workspaceSlug string) error {
	tenantAccount, err := d.resolveTenantAccount(ctx, workspaceSlug)
	if err != nil {
		return err
	}

	pipelineApp, providersApp, err := compiler.Compile(pipeline, workspaceSlug, d.compiler)
	if err != nil {
		return err
	}

	if d.artifacts != nil {
		if err := d.artifacts.PublishPipeline(ctx, pipeline, workspaceSlug); err != nil {
			return err
		}
	}

	providersYAML, err := manifest.MarshalCanonicalYAML(providersApp)
	if err != nil {
		return fmt.Errorf("serialize providers manifest: %w", err)
	}
	pipelineYAML, err := manifest.MarshalCanonicalYAML(pipelineApp)
	if err != nil {
		return fmt.Errorf("serialize pipeline manifest: %w", err)
	}

	subject := bus.TenantControlSubject(tenantAccount)

	if err := d.submitWithRetry(ctx, subject, providersApp.Metadata.Name, providersYAML); err != nil {
		return err
	}
	if err := d.submitWithRetry(ctx, subject, pipelineApp.Metadata.Name, pipelineYAML); err != nil {
		return err
	}
	return nil
}

// DeployProviders compiles and submits only the providers manifest for
// workspaceSlug, for the /deploy-providers admin endpoint (§6). The
// providers manifest is pipeline-independent at this call site: it is built
// with neither ingress nor egress HTTP capabilities enabled, since there is
// no pipeline to derive the presence bits from (invariant I5).
func (d *Deployer) DeployProviders(ctx context.Context, workspaceSlug string) error {
	tenantAccount, err := d.resolveTenantAccount(ctx, workspaceSlug)
	if err != nil {
		return err
	}

	providersApp, err := compiler.CompileProvidersOnly(workspaceSlug, d.compiler)
	if err != nil {
		return err
	}
	providersYAML, err := manifest.MarshalCanonicalYAML(providersApp)
	if err != nil {
		return fmt.Errorf("serialize providers manifest: %w", err)
	}

	subject := bus.TenantControlSubject(tenantAccount)
	return d.submitWithRetry(ctx, subject, providersApp.Metadata.Name, providersYAML)
}

func (d *Deployer) resolveTenantAccount(ctx context.Context, workspaceSlug string) (string, error) {
	account, err := d.store.NatsAccount(ctx, workspaceSlug)
	if err != nil || account == "" {
		return "", &TenantNotReadyError{Slug: workspaceSlug}
	}
	return account, nil
}

// submitWithRetry submits one manifest, retrying BusPublishFailed/timeout
// errors with bounded linear backoff (§7, default 3 attempts). put-and-deploy
// is idempotent at the target: resubmitting the same name+version is a
// no-op, so retrying after an ambiguous failure is always safe.
func (d *Deployer) submitWithRetry(ctx context.Context, subject, manifestName string, body []byte) error {
	var lastErr error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, d.cfg.RequestTimeout)
		_, err := d.platformConn.RequestWithContext(reqCtx, subject+".put-and-deploy", body)
		cancel()
		if err == nil {
			log.Logger.Info().Str("manifest", manifestName).Str("subject", subject).Msg("manifest submitted")
			return nil
		}
		lastErr = err
		log.Logger.Warn().Err(err).Str("manifest", manifestName).Int("attempt", attempt).Msg("manifest submission failed, retrying")
		if attempt < d.cfg.MaxAttempts {
			select {
			case <-time.After(time.Duration(attempt) * d.cfg.RetryDelay):
			case <-ctx.Done():
				return &BusPublishFailedError{Manifest: manifestName, Err: ctx.Err()}
			}
		}
	}
	return &BusPublishFailedError{Manifest: manifestName, Err: lastErr}
}
