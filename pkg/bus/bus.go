// Package bus wraps the NATS connections the control plane needs: two
// independent handles to the same server authenticated with distinct
// identities (platform operator for resolver updates, platform user for
// tenant-scoped deploys), sharing neither state nor subscriptions, plus the
// resolver request/response helpers the Identity Manager uses.
package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const resolverTimeout = 30 * time.Second

// Connect opens a NATS connection authenticated with the given user JWT and
// seed; when either is empty, the connection is opened without credentials.
// Each call returns an independent connection; callers needing
// multiple identities call this once per identity.
func Connect(url string, userJWT, userSeed string) (*nats.Conn, error) {
	opts := []nats.Option{nats.Timeout(10 * time.Second)}
	if userJWT != "" && userSeed != "" {
		opts = append(opts, nats.UserJWTAndSeed(userJWT, userSeed))
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return nc, nil
}

// ResolverClient issues claims updates and account lookups against the
// trust system's reserved system subjects, using the operator-identity
// connection.
type ResolverClient struct {
	nc *nats.Conn
}

// NewResolverClient wraps an already-connected operator-identity connection.
func NewResolverClient(nc *nats.Conn) *ResolverClient {
	return &ResolverClient{nc: nc}
}

// PublishClaimsUpdate pushes an account JWT to the resolver on
// $SYS.REQ.CLAIMS.UPDATE.
func (r *ResolverClient) PublishClaimsUpdate(ctx context.Context, accountJWT string) error {
	if err := r.nc.Publish("$SYS.REQ.CLAIMS.UPDATE", []byte(accountJWT)); err != nil {
		return fmt.Errorf("publish claims update: %w", err)
	}
	return r.nc.FlushWithContext(ctx)
}

// LookupAccountClaims reads an account's current JWT via
// $SYS.REQ.ACCOUNT.{pub}.CLAIMS.LOOKUP. Returns an empty string if the
// resolver has no claims for that account.
func (r *ResolverClient) LookupAccountClaims(ctx context.Context, accountPub string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, resolverTimeout)
	defer cancel()
	subject := fmt.Sprintf("$SYS.REQ.ACCOUNT.%s.CLAIMS.LOOKUP", accountPub)
	msg, err := r.nc.RequestWithContext(ctx, subject, nil)
	if err != nil {
		return "", fmt.Errorf("lookup account claims: %w", err)
	}
	return string(msg.Data), nil
}

// TenantControlSubject returns the subject the tenant-scoped reconciler
// listens on for its account.
func TenantControlSubject(tenantAccountPub string) string {
	return tenantAccountPub + ".ctl.api"
}

// DefaultResolverTimeout bounds outbound resolver lookups (§5 "Cancellation
// & timeouts": identity resolver lookup uses a 30s timeout).
const DefaultResolverTimeout = resolverTimeout
