/*
Package log provides structured logging for the control plane using zerolog.

It wraps zerolog with a single global Logger, configurable level and output,
and helper constructors for the context fields the control plane's
components attach most often: workspace slug, pipeline name, request ID.

# Usage

Initializing the logger:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Simple logging:

	log.Info("deployer starting")
	log.Error("compile failed")

Structured logging with context:

	log.Logger.Info().
		Str("workspace_slug", slug).
		Str("pipeline", pipeline.Name).
		Msg("manifest compiled")

Context loggers:

	wsLog := log.WithWorkspace(slug)
	wsLog.Info().Msg("tenant account provisioned")

	pipeLog := log.WithPipeline(slug, pipeline.Name)
	pipeLog.Warn().Err(err).Msg("manifest submission retrying")

# Integration points

  - pkg/identity: workspace-scoped logs during account provisioning
  - pkg/watcher: workspace-scoped logs for notification-triggered work
  - pkg/deploy: manifest submission and retry logs (manifest, subject, attempt)
  - pkg/api: request logs for the admin HTTP surface
  - pkg/secrets: an instance_id-tagged startup log; request failures go
    through the global Logger without per-request fields

# Security

Never log secrets: account seeds, user seeds, or decrypted credential
tuples never go through Logger. Only public keys, slugs, and subjects are
logged.
*/
package log
