package secrets

import (
	"testing"

	"github.com/nats-io/nkeys"
	"github.com/stretchr/testify/require"
)

func newTestEnvelope(t *testing.T) *Envelope {
	t.Helper()
	kp, err := nkeys.CreateCurveKeys()
	require.NoError(t, err)
	seed, err := kp.Seed()
	require.NoError(t, err)
	env, err := NewEnvelope(string(seed))
	require.NoError(t, err)
	return env
}

// TestEnvelopeRoundTrip covers invariant I6: for any plaintext and any caller
// key pair, a value sealed caller->server decrypts back to the same bytes,
// and the server's sealed response likewise decrypts on the caller's side.
func TestEnvelopeRoundTrip(t *testing.T) {
	env := newTestEnvelope(t)
	serverPub, err := env.ServerPublicKey()
	require.NoError(t, err)

	caller, err := nkeys.CreateCurveKeys()
	require.NoError(t, err)
	callerPub, err := caller.PublicKey()
	require.NoError(t, err)

	plaintext := []byte(`{"key":"api_password"}`)
	sealed, err := caller.Seal(plaintext, serverPub)
	require.NoError(t, err)

	opened, err := env.Open(sealed, callerPub)
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)

	response := []byte(`{"secret":{"name":"api_password","stringSecret":"hunter2"}}`)
	respSealed, ephemeralPub, err := env.Seal(response, callerPub)
	require.NoError(t, err)
	require.NotEmpty(t, ephemeralPub)

	respOpened, err := caller.Open(respSealed, ephemeralPub)
	require.NoError(t, err)
	require.Equal(t, response, respOpened)
}

func TestEnvelopeOpenRejectsTamperedCiphertext(t *testing.T) {
	env := newTestEnvelope(t)
	serverPub, err := env.ServerPublicKey()
	require.NoError(t, err)

	caller, err := nkeys.CreateCurveKeys()
	require.NoError(t, err)
	callerPub, err := caller.PublicKey()
	require.NoError(t, err)

	sealed, err := caller.Seal([]byte("hello"), serverPub)
	require.NoError(t, err)
	sealed[0] ^= 0xFF

	_, err = env.Open(sealed, callerPub)
	require.Error(t, err)
	var decryptErr *SecretDecryptFailedError
	require.ErrorAs(t, err, &decryptErr)
}
