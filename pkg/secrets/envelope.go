package secrets

import (
	"fmt"

	"github.com/nats-io/nkeys"
)

// SecretDecryptFailedError wraps a sealed-box open failure.
type SecretDecryptFailedError struct{ Err error }

func (e *SecretDecryptFailedError) Error() string { return fmt.Sprintf("SecretDecryptFailed: %v", e.Err) }
func (e *SecretDecryptFailedError) Unwrap() error  { return e.Err }

// Envelope wraps the server's long-lived curve25519 key pair and implements
// the sealed-box protocol described in §4.5/§9: per-request ephemeral caller
// keys presented in a header, per-response ephemeral server keys returned in
// a header.
type Envelope struct {
	server nkeys.KeyPair // a curve key pair under the hood
}

// NewEnvelope loads the server's long-lived curve key pair from a seed.
func NewEnvelope(curveSeed string) (*Envelope, error) {
	kp, err := nkeys.FromCurveSeed([]byte(curveSeed))
	if err != nil {
		return nil, fmt.Errorf("decode server curve seed: %w", err)
	}
	return &Envelope{server: kp}, nil
}

// ServerPublicKey returns the server's long-lived curve public key, served
// on the server_xkey discovery subject.
func (e *Envelope) ServerPublicKey() (string, error) {
	return e.server.PublicKey()
}

// Open decrypts a request sealed caller->server, given the caller's
// ephemeral public key from the Host-Xkey header.
func (e *Envelope) Open(sealed []byte, callerPub string) ([]byte, error) {
	plain, err := e.server.Open(sealed, callerPub)
	if err != nil {
		return nil, &SecretDecryptFailedError{Err: err}
	}
	return plain, nil
}

// Seal encrypts a response for callerPub using a fresh ephemeral server key
// pair, returning the ciphertext and the ephemeral public key to place in
// the Server-Response-Xkey header.
func (e *Envelope) Seal(plaintext []byte, callerPub string) (sealed []byte, ephemeralPub string, err error) {
	ephemeral, err := nkeys.CreateCurveKeys()
	if err != nil {
		return nil, "", fmt.Errorf("create ephemeral curve keypair: %w", err)
	}
	ephemeralPub, err = ephemeral.PublicKey()
	if err != nil {
		return nil, "", fmt.Errorf("ephemeral public key: %w", err)
	}
	sealed, err = ephemeral.Seal(plaintext, callerPub)
	if err != nil {
		return nil, "", fmt.Errorf("seal response: %w", err)
	}
	return sealed, ephemeralPub, nil
}
