// Command pipestack-control runs the control plane: the Workspace Watcher
// (C6), Identity Manager (C7), Secrets Backend (C9), and the admin HTTP
// surface fronting the Pipeline Compiler (C4), Artifact Publisher (C8), and
// Deployer (C5).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cuemby/pipestack/pkg/api"
	"github.com/cuemby/pipestack/pkg/artifact"
	"github.com/cuemby/pipestack/pkg/bus"
	"github.com/cuemby/pipestack/pkg/compiler"
	"github.com/cuemby/pipestack/pkg/config"
	"github.com/cuemby/pipestack/pkg/deploy"
	"github.com/cuemby/pipestack/pkg/identity"
	"github.com/cuemby/pipestack/pkg/log"
	"github.com/cuemby/pipestack/pkg/manifest/builders"
	"github.com/cuemby/pipestack/pkg/secrets"
	"github.com/cuemby/pipestack/pkg/secretstore"
	"github.com/cuemby/pipestack/pkg/store"
	"github.com/cuemby/pipestack/pkg/watcher"
)

func main() {
	root := &cobra.Command{
		Use:   "pipestack-control",
		Short: "pipestack control plane: watcher, identity manager, secrets backend, admin API",
		RunE:  run,
	}
	root.Flags().Bool("json-logs", true, "emit structured JSON logs instead of console output")
	root.Flags().String("log-level", "info", "debug, info, warn, or error")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	jsonLogs, _ := cmd.Flags().GetBool("json-logs")
	level, _ := cmd.Flags().GetString("log-level")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonLogs, Output: os.Stdout})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(cfg.Nats, cfg.Database, cfg.Cloudflare, cfg.Registry, cfg.Secrets); err != nil {
		fmt.Fprintln(os.Stderr, config.HelpBlock())
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(ctx, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("connect workspace store: %w", err)
	}
	defer st.Close()

	// Two independent handles to the same server (§5 "Shared resources"):
	// the operator identity drives resolver claims updates, the platform
	// user identity drives tenant-scoped deploy publishes.
	operatorConn, err := bus.Connect(cfg.Nats.URL, "", cfg.Nats.OperatorSeed)
	if err != nil {
		return fmt.Errorf("connect operator bus handle: %w", err)
	}
	defer operatorConn.Close()

	platformConn, err := bus.Connect(cfg.Nats.URL, "", cfg.Nats.PlatformUserSeed)
	if err != nil {
		return fmt.Errorf("connect platform bus handle: %w", err)
	}
	defer platformConn.Close()

	resolver := bus.NewResolverClient(operatorConn)

	secretStore, err := secretstore.NewHTTPStore(cfg.Secrets.UpstreamURL, cfg.Secrets.UpstreamToken, cfg.Secrets.CredentialEncryptionKey)
	if err != nil {
		return fmt.Errorf("construct credential secret store: %w", err)
	}

	idMgr, err := identity.New(st, resolver, secretStore, identity.Config{
		OperatorSeed:       cfg.Nats.OperatorSeed,
		CentralAccountSeed: cfg.Nats.CentralAccountSeed,
		PlatformPrefix:     cfg.PlatformPrefix,
	})
	if err != nil {
		return fmt.Errorf("construct identity manager: %w", err)
	}

	wsWatcher := watcher.New(st, idMgr)

	envelope, err := secrets.NewEnvelope(cfg.Secrets.ServerXkeySeed)
	if err != nil {
		return fmt.Errorf("construct secrets envelope: %w", err)
	}
	upstream := secrets.NewHTTPUpstream(cfg.Secrets.UpstreamURL, cfg.Secrets.UpstreamToken)
	secretsBackend := secrets.New(platformConn, envelope, upstream, secrets.Config{
		SubjectPrefix: cfg.Secrets.SubjectPrefix,
		APIVersion:    cfg.Secrets.APIVersion,
		BackendName:   cfg.Secrets.BackendName,
		ClockSkew:     time.Duration(cfg.Secrets.ClockSkewSecs) * time.Second,
		ProjectID:     cfg.Secrets.ProjectID,
		Environment:   cfg.Secrets.Environment,
	})

	publisher, err := artifact.New(ctx, artifact.Config{
		AccountID:     cfg.Cloudflare.AccountID,
		R2AccessKeyID: cfg.Cloudflare.R2AccessKeyID,
		R2SecretKey:   cfg.Cloudflare.R2SecretKey,
		R2Bucket:      cfg.Cloudflare.R2Bucket,
		RegistryURL:   cfg.Registry.URL,
	})
	if err != nil {
		return fmt.Errorf("construct artifact publisher: %w", err)
	}

	deployer := deploy.New(st, platformConn, compiler.Options{
		Registry:        builders.RegistryConfig{URL: cfg.Registry.URL, InternalURL: cfg.Registry.InternalURL},
		NatsClusterURIs: cfg.Nats.URL,
		TenantJWT:       cfg.Nats.CentralAccountPub,
		TenantSeed:      cfg.Nats.CentralAccountSeed,
	}, publisher, deploy.Config{})

	server := api.NewServer(deployer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return wsWatcher.Run(gctx) })
	g.Go(func() error { return secretsBackend.Run(gctx) })
	g.Go(func() error { return server.ListenAndServe(gctx, cfg.HTTP.Addr) })

	log.Info("pipestack control plane started")
	err = g.Wait()
	log.Info("pipestack control plane stopped")
	return err
}
