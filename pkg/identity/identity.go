// Package identity implements the Identity Manager (C7): mints a tenant
// account+user in the NATS hierarchical trust system, publishes updates to
// the resolver, maintains the central account's import grants, and persists
// the tenant's credential tuple.
package identity

import (
	"context"
	"fmt"

	"github.com/nats-io/jwt/v2"
	"github.com/nats-io/nkeys"

	"github.com/cuemby/pipestack/pkg/bus"
	"github.com/cuemby/pipestack/pkg/log"
	"github.com/cuemby/pipestack/pkg/secretstore"
	"github.com/cuemby/pipestack/pkg/store"
)

// PersistFailedError is returned when steps 1-9 succeed but the credential
// tuple could not be written to the secret store (§4.4 failure semantics).
type PersistFailedError struct {
	Slug string
	Err  error
}

func (e *PersistFailedError) Error() string {
	return fmt.Sprintf("PersistFailed{%s}: %v", e.Slug, e.Err)
}

func (e *PersistFailedError) Unwrap() error { return e.Err }

// ResolverUnreachableError wraps a failed publish/lookup against the
// resolver's system control subjects.
type ResolverUnreachableError struct {
	Op  string
	Err error
}

func (e *ResolverUnreachableError) Error() string {
	return fmt.Sprintf("ResolverUnreachable{%s}: %v", e.Op, e.Err)
}

func (e *ResolverUnreachableError) Unwrap() error { return e.Err }

// Manager mints tenant identities and maintains the central account's grant
// table, per the sequential ten-step algorithm in §4.4.
type Manager struct {
	store         *store.WorkspaceStore
	resolver      *bus.ResolverClient
	secrets       secretstore.Store
	operatorKP    nkeys.KeyPair
	centralKP     nkeys.KeyPair
	centralPub    string
	platformPrefix string
}

// Config carries the operator and central-account signing keys, loaded once
// at startup from configured seeds and held as immutable handles.
type Config struct {
	OperatorSeed       string
	CentralAccountSeed string
	PlatformPrefix     string
}

// New constructs a Manager, decoding the operator and central account seeds
// into in-memory key pairs.
func New(st *store.WorkspaceStore, resolver *bus.ResolverClient, secrets secretstore.Store, cfg Config) (*Manager, error) {
	operatorKP, err := nkeys.FromSeed([]byte(cfg.OperatorSeed))
	if err != nil {
		return nil, fmt.Errorf("decode operator seed: %w", err)
	}
	centralKP, err := nkeys.FromSeed([]byte(cfg.CentralAccountSeed))
	if err != nil {
		return nil, fmt.Errorf("decode central account seed: %w", err)
	}
	centralPub, err := centralKP.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("central account public key: %w", err)
	}
	prefix := cfg.PlatformPrefix
	if prefix == "" {
		prefix = "platform"
	}
	return &Manager{
		store:          st,
		resolver:       resolver,
		secrets:        secrets,
		operatorKP:     operatorKP,
		centralKP:      centralKP,
		centralPub:     centralPub,
		platformPrefix: prefix,
	}, nil
}

// wellKnownCentralImportSubject is the service subject every tenant account
// imports from the central account (§4.4 step 2), scoped per-account via
// the central account's own self-export (see the wadm.api.> self-export
// built in rebuildCentralAccountJWT).
const wellKnownCentralImportSubject = "wadm.api.>"

// Provision runs the identity-manager algorithm for slug. It first
// short-circuits if the workspace already has a natsAccount populated,
// since the watcher's dispatch is at-least-once and minting twice would
// orphan the previous account's credentials.
func (m *Manager) Provision(ctx context.Context, slug string) error {
	logger := log.WithWorkspace(slug)

	existing, err := m.store.NatsAccount(ctx, slug)
	if err != nil {
		return fmt.Errorf("read workspace: %w", err)
	}
	if existing != "" {
		logger.Info().Str("nats_account", existing).Msg("workspace already provisioned, skipping")
		return nil
	}

	// Step 1: fresh account key pair and signing key.
	accountKP, err := nkeys.CreateAccount()
	if err != nil {
		return fmt.Errorf("create account keypair: %w", err)
	}
	accountPub, err := accountKP.PublicKey()
	if err != nil {
		return fmt.Errorf("account public key: %w", err)
	}
	signingKP, err := nkeys.CreateAccount()
	if err != nil {
		return fmt.Errorf("create account signing keypair: %w", err)
	}
	signingPub, err := signingKP.PublicKey()
	if err != nil {
		return fmt.Errorf("signing public key: %w", err)
	}

	// Step 2: account claims — unlimited limits, exports ctl.>/evt.>, imports
	// the well-known central subject.
	ac := jwt.NewAccountClaims(accountPub)
	ac.Name = slug
	ac.Limits = jwt.OperatorLimits{
		NatsLimits:      jwt.NatsLimits{Subs: jwt.NoLimit, Data: jwt.NoLimit, Payload: jwt.NoLimit},
		AccountLimits:   jwt.AccountLimits{Imports: jwt.NoLimit, Exports: jwt.NoLimit, Conn: jwt.NoLimit, LeafNodeConn: jwt.NoLimit},
		JetStreamLimits: jwt.JetStreamLimits{},
	}
	ac.SigningKeys.Add(signingPub)
	ac.Exports.Add(&jwt.Export{
		Name:    "ctl",
		Subject: "ctl.>",
		Type:    jwt.Service,
	})
	ac.Exports.Add(&jwt.Export{
		Name:    "evt",
		Subject: "evt.>",
		Type:    jwt.Stream,
	})
	ac.Imports.Add(&jwt.Import{
		Name:         "central-wadm-api",
		Subject:      wellKnownCentralImportSubject,
		Account:      m.centralPub,
		LocalSubject: wellKnownCentralImportSubject,
		Type:         jwt.Service,
	})

	// Step 3: sign with the operator key.
	accountJWT, err := ac.Encode(m.operatorKP)
	if err != nil {
		return fmt.Errorf("encode account jwt: %w", err)
	}

	// Step 4: publish to the resolver.
	if err := m.resolver.PublishClaimsUpdate(ctx, accountJWT); err != nil {
		return &ResolverUnreachableError{Op: "CLAIMS.UPDATE(tenant)", Err: err}
	}

	// Steps 5-7: read, merge, re-sign, and republish the central account JWT.
	if err := m.updateCentralAccountImports(ctx, slug, accountPub); err != nil {
		return err
	}

	// Step 8: default user with scoped permissions.
	userKP, err := nkeys.CreateUser()
	if err != nil {
		return fmt.Errorf("create user keypair: %w", err)
	}
	userPub, err := userKP.PublicKey()
	if err != nil {
		return fmt.Errorf("user public key: %w", err)
	}
	userSeed, err := userKP.Seed()
	if err != nil {
		return fmt.Errorf("user seed: %w", err)
	}

	uc := jwt.NewUserClaims(userPub)
	uc.IssuerAccount = accountPub
	pubSubjects := []string{"$JS.>", "$KV.>", "_INBOX.>", "pipestack.>", slug + ".>", "ctl.>", "_R_.>"}
	subSubjects := []string{"$JS.>", "$KV.>", "_INBOX.>", "pipestack.>", slug + ".>", "_R_.>"}
	uc.Permissions.Pub.Allow.Add(pubSubjects...)
	uc.Permissions.Sub.Allow.Add(subSubjects...)

	userJWT, err := uc.Encode(signingKP)
	if err != nil {
		return fmt.Errorf("encode user jwt: %w", err)
	}

	// Step 9: persist the account public key into the workspace row.
	if err := m.store.SetNatsAccount(ctx, slug, accountPub); err != nil {
		return fmt.Errorf("persist nats_account: %w", err)
	}

	accountSeed, err := accountKP.Seed()
	if err != nil {
		return fmt.Errorf("account seed: %w", err)
	}

	// Step 10: persist the full credential tuple to the secret store.
	tuple := secretstore.CredentialTuple{
		AccountNkey: accountPub,
		AccountJWT:  accountJWT,
		UserNkey:    userPub,
		UserJWT:     userJWT,
		UserSeed:    string(userSeed),
	}
	_ = accountSeed // the account key's own seed is not part of the persisted tuple per §4.4 step 10
	if err := m.secrets.PersistWorkspaceCredentials(ctx, m.platformPrefix, slug, tuple); err != nil {
		logger.Error().Err(err).Msg("CredentialPersistMissing")
		return &PersistFailedError{Slug: slug, Err: err}
	}

	logger.Info().Str("nats_account", accountPub).Msg("tenant identity provisioned")
	return nil
}

// updateCentralAccountImports implements §4.4 steps 5-7: read the central
// account's current JWT from the resolver, append this tenant's ctl./evt.
// imports if not already present, re-sign, and republish.
func (m *Manager) updateCentralAccountImports(ctx context.Context, slug, tenantAccountPub string) error {
	var cc *jwt.AccountClaims

	currentJWT, err := m.resolver.LookupAccountClaims(ctx, m.centralPub)
	if err != nil || currentJWT == "" {
		log.Logger.Warn().Err(err).Msg("central account jwt unreadable, starting from an empty import set")
		cc = jwt.NewAccountClaims(m.centralPub)
	} else {
		cc, err = jwt.DecodeAccountClaims(currentJWT)
		if err != nil {
			log.Logger.Warn().Err(err).Msg("central account jwt unparsable, starting from an empty import set")
			cc = jwt.NewAccountClaims(m.centralPub)
		}
	}

	hasService := false
	hasStream := false
	for _, imp := range cc.Imports {
		if imp.Account == tenantAccountPub {
			if imp.Type == jwt.Service {
				hasService = true
			}
			if imp.Type == jwt.Stream {
				hasStream = true
			}
		}
	}

	if !hasService {
		cc.Imports.Add(&jwt.Import{
			Name:         fmt.Sprintf("%s-ctl", slug),
			Subject:      "ctl.>",
			Account:      tenantAccountPub,
			LocalSubject: jwt.RenamingSubject(fmt.Sprintf("%s.ctl.>", slug)),
			Type:         jwt.Service,
		})
	}
	if !hasStream {
		cc.Imports.Add(&jwt.Import{
			Name:         fmt.Sprintf("%s-evt", slug),
			Subject:      "evt.>",
			Account:      tenantAccountPub,
			LocalSubject: jwt.RenamingSubject(fmt.Sprintf("mt.%s.evt.>", tenantAccountPub)),
			Type:         jwt.Stream,
		})
	}

	// Self-export wadm.api.> scoped per-account so each tenant's import of
	// the well-known central subject resolves to its own scoped view.
	hasSelfExport := false
	for _, exp := range cc.Exports {
		if exp.Subject == "*.wadm.api.>" {
			hasSelfExport = true
			break
		}
	}
	if !hasSelfExport {
		pos := uint(1)
		cc.Exports.Add(&jwt.Export{
			Name:                 "wadm-api",
			Subject:              "*.wadm.api.>",
			Type:                 jwt.Service,
			AccountTokenPosition: pos,
		})
	}

	centralJWT, err := cc.Encode(m.operatorKP)
	if err != nil {
		return fmt.Errorf("encode central account jwt: %w", err)
	}
	if err := m.resolver.PublishClaimsUpdate(ctx, centralJWT); err != nil {
		return &ResolverUnreachableError{Op: "CLAIMS.UPDATE(central)", Err: err}
	}
	return nil
}

// ImportCount reports the number of imports currently on the central
// account's claims, the quantity invariant I8 constrains.
func (m *Manager) ImportCount(ctx context.Context) (int, error) {
	currentJWT, err := m.resolver.LookupAccountClaims(ctx, m.centralPub)
	if err != nil {
		return 0, err
	}
	cc, err := jwt.DecodeAccountClaims(currentJWT)
	if err != nil {
		return 0, err
	}
	return len(cc.Imports), nil
}
