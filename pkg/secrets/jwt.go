package secrets

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// entityClaims is the subset of JWT payload fields this backend cares
// about. Signature verification is explicitly out of scope for the core
// (§9 open question): the host, not this backend, is responsible for
// having already verified component identity before a request arrives.
type entityClaims struct {
	Subject   string `json:"sub"`
	NotBefore int64  `json:"nbf"`
	Expiry    int64  `json:"exp"`
}

// InvalidJWTError reports a malformed or out-of-window entity JWT (§8 S5).
type InvalidJWTError struct {
	Reason string
}

func (e *InvalidJWTError) Error() string {
	return fmt.Sprintf("Invalid JWT format: %s", e.Reason)
}

// validateEntityJWT parses a 3-segment dot-delimited JWT, base64url-decodes
// its payload without padding, and enforces sub presence and an nbf/exp
// clock-skew window. clockSkew is the configured tolerance, applied in
// whole seconds.
func validateEntityJWT(token string, clockSkew time.Duration, now time.Time) (*entityClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, &InvalidJWTError{Reason: "expected 3 dot-delimited segments"}
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, &InvalidJWTError{Reason: "payload is not valid base64url"}
	}

	var claims entityClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, &InvalidJWTError{Reason: "payload is not valid JSON"}
	}

	if claims.Subject == "" {
		return nil, &InvalidJWTError{Reason: "missing sub claim"}
	}

	nowUnix := now.Unix()
	skew := int64(clockSkew.Seconds())
	if claims.NotBefore != 0 && nowUnix+skew < claims.NotBefore {
		return nil, &InvalidJWTError{Reason: "token not yet valid (nbf)"}
	}
	if claims.Expiry != 0 && nowUnix-skew > claims.Expiry {
		return nil, &InvalidJWTError{Reason: "token expired (exp)"}
	}

	return &claims, nil
}
