package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/cuemby/pipestack/pkg/log"
)

// SecretRequestMalformedError reports a request payload that failed to
// parse as a SecretRequest.
type SecretRequestMalformedError struct{ Err error }

func (e *SecretRequestMalformedError) Error() string {
	return fmt.Sprintf("SecretRequestMalformed: %v", e.Err)
}
func (e *SecretRequestMalformedError) Unwrap() error { return e.Err }

// SecretCallerInvalidError wraps an entity-JWT validation failure.
type SecretCallerInvalidError struct{ Err error }

func (e *SecretCallerInvalidError) Error() string {
	return fmt.Sprintf("SecretCallerInvalid: %v", e.Err)
}
func (e *SecretCallerInvalidError) Unwrap() error { return e.Err }

// Config carries the bus-subject naming and validation window C9 uses.
type Config struct {
	SubjectPrefix string
	APIVersion    string
	BackendName   string
	ClockSkew     time.Duration
	ProjectID     string
	Environment   string
}

func (c Config) mainSubject() string {
	return fmt.Sprintf("%s.%s.%s.get", c.SubjectPrefix, c.APIVersion, c.BackendName)
}

func (c Config) xkeySubject() string {
	return fmt.Sprintf("%s.%s.%s.server_xkey", c.SubjectPrefix, c.APIVersion, c.BackendName)
}

// Backend is the Secrets Backend (C9): a long-lived request/response
// service over the bus, validating tenant JWTs and brokering upstream
// secret fetch through an encrypted sealed-box envelope.
type Backend struct {
	nc         *nats.Conn
	envelope   *Envelope
	upstream   Upstream
	cfg        Config
	instanceID string
}

// New constructs a Backend with a fresh instance id for log correlation
// across replicas, mirroring InfisicalSecretsBackend.
func New(nc *nats.Conn, envelope *Envelope, upstream Upstream, cfg Config) *Backend {
	if cfg.ClockSkew == 0 {
		cfg.ClockSkew = 300 * time.Second
	}
	return &Backend{
		nc:         nc,
		envelope:   envelope,
		upstream:   upstream,
		cfg:        cfg,
		instanceID: uuid.NewString(),
	}
}

// Run starts the two independent FIFO-per-subscription handler loops and
// blocks until ctx is cancelled.
func (b *Backend) Run(ctx context.Context) error {
	logger := log.Logger.With().Str("instance_id", b.instanceID).Logger()

	mainSub, err := b.nc.Subscribe(b.cfg.mainSubject(), func(msg *nats.Msg) {
		b.handleGet(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", b.cfg.mainSubject(), err)
	}
	defer mainSub.Unsubscribe()

	xkeySub, err := b.nc.Subscribe(b.cfg.xkeySubject(), func(msg *nats.Msg) {
		b.handleServerXkey(msg)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", b.cfg.xkeySubject(), err)
	}
	defer xkeySub.Unsubscribe()

	logger.Info().
		Str("main_subject", b.cfg.mainSubject()).
		Str("xkey_subject", b.cfg.xkeySubject()).
		Msg("secrets backend listening")

	<-ctx.Done()
	return nil
}

// handleServerXkey replies with the server's long-lived curve public key,
// unencrypted (it IS the discovery mechanism for the encryption scheme).
func (b *Backend) handleServerXkey(msg *nats.Msg) {
	if msg.Reply == "" {
		return
	}
	pub, err := b.envelope.ServerPublicKey()
	if err != nil {
		log.Logger.Error().Err(err).Msg("server xkey unavailable")
		return
	}
	_ = msg.Respond([]byte(pub))
}

const hostXkeyHeader = "Host-Xkey"
const serverResponseXkeyHeader = "Server-Response-Xkey"

// handleGet implements §4.5's six-step operation. If the caller's public
// key cannot be determined (header missing), no response is sent at all,
// per §4.5 failure semantics.
func (b *Backend) handleGet(ctx context.Context, msg *nats.Msg) {
	callerPub := msg.Header.Get(hostXkeyHeader)
	if callerPub == "" {
		log.Logger.Warn().Msg("secret request missing Host-Xkey header, dropping")
		return
	}

	resp, err := b.process(ctx, msg.Data, callerPub)
	if err != nil {
		log.Logger.Warn().Err(err).Msg("secret request failed")
	}
	b.respond(msg, resp, callerPub)
}

func (b *Backend) process(ctx context.Context, sealed []byte, callerPub string) (SecretResponse, error) {
	plain, err := b.envelope.Open(sealed, callerPub)
	if err != nil {
		return errorResponse(err.Error()), err
	}

	var req SecretRequest
	if jsonErr := json.Unmarshal(plain, &req); jsonErr != nil {
		wrapped := &SecretRequestMalformedError{Err: jsonErr}
		return errorResponse(wrapped.Error()), wrapped
	}

	if _, err := validateEntityJWT(req.Context.EntityJWT, b.cfg.ClockSkew, time.Now()); err != nil {
		wrapped := &SecretCallerInvalidError{Err: err}
		return errorResponse(err.Error()), wrapped
	}

	value, err := b.upstream.Fetch(ctx, req.Key, req.Field, b.cfg.ProjectID, b.cfg.Environment)
	if err != nil {
		return errorResponse(err.Error()), err
	}

	version := req.Version
	if version == "" {
		version = "latest"
	}
	return SecretResponse{Secret: &SecretValue{
		Name:         req.Key,
		Version:      version,
		StringSecret: value,
	}}, nil
}

func (b *Backend) respond(msg *nats.Msg, resp SecretResponse, callerPub string) {
	if msg.Reply == "" {
		return
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		log.Logger.Error().Err(err).Msg("marshal secret response")
		return
	}
	sealed, ephemeralPub, err := b.envelope.Seal(payload, callerPub)
	if err != nil {
		log.Logger.Error().Err(err).Msg("seal secret response")
		return
	}

	reply := nats.NewMsg(msg.Reply)
	reply.Data = sealed
	reply.Header.Set(serverResponseXkeyHeader, ephemeralPub)
	if err := b.nc.PublishMsg(reply); err != nil {
		log.Logger.Error().Err(err).Msg("publish secret response")
	}
}
