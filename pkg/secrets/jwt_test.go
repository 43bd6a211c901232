package secrets

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeSegment(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(b)
}

func buildJWT(t *testing.T, claims entityClaims) string {
	t.Helper()
	header := encodeSegment(t, map[string]string{"alg": "ed25519", "typ": "JWT"})
	payload := encodeSegment(t, claims)
	return strings.Join([]string{header, payload, "sig"}, ".")
}

// TestValidateEntityJWT covers invariant I7: a valid 3-segment JWT with a
// base64url payload yields sub and exp without loss.
func TestValidateEntityJWT(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	token := buildJWT(t, entityClaims{Subject: "component-abc", Expiry: now.Add(time.Hour).Unix()})

	claims, err := validateEntityJWT(token, 300*time.Second, now)
	require.NoError(t, err)
	assert.Equal(t, "component-abc", claims.Subject)
	assert.Equal(t, now.Add(time.Hour).Unix(), claims.Expiry)
}

// TestValidateEntityJWT_MalformedFormat covers §8 S5: a two-segment token
// is rejected with an "Invalid JWT format" error.
func TestValidateEntityJWT_MalformedFormat(t *testing.T) {
	_, err := validateEntityJWT("only.two", 300*time.Second, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid JWT format")
}

func TestValidateEntityJWT_MissingSubject(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	token := buildJWT(t, entityClaims{Expiry: now.Add(time.Hour).Unix()})

	_, err := validateEntityJWT(token, 300*time.Second, now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing sub claim")
}

func TestValidateEntityJWT_Expired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	token := buildJWT(t, entityClaims{Subject: "component-abc", Expiry: now.Add(-time.Hour).Unix()})

	_, err := validateEntityJWT(token, 300*time.Second, now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestValidateEntityJWT_WithinClockSkew(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	// Expired 100s ago, but within a 300s skew window.
	token := buildJWT(t, entityClaims{Subject: "component-abc", Expiry: now.Add(-100 * time.Second).Unix()})

	_, err := validateEntityJWT(token, 300*time.Second, now)
	require.NoError(t, err)
}

func TestValidateEntityJWT_NotYetValid(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	token := buildJWT(t, entityClaims{Subject: "component-abc", NotBefore: now.Add(time.Hour).Unix(), Expiry: now.Add(2 * time.Hour).Unix()})

	_, err := validateEntityJWT(token, 300*time.Second, now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not yet valid")
}
