// Package secretstore persists the Identity Manager's tenant credential
// tuples to the upstream secret store under a deterministic path layout,
// encrypting each value at rest with pkg/security before it ever leaves the
// process.
package secretstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cuemby/pipestack/pkg/security"
)

// CredentialTuple is the tenant identity bundle persisted per workspace
// (§4.4 step 10, §6 "Persisted state layout").
type CredentialTuple struct {
	AccountNkey string
	AccountJWT  string
	UserNkey    string
	UserJWT     string
	UserSeed    string
}

// paths returns the five deterministic secret-store keys for a workspace,
// e.g. "/platform/workspaces/acme/account_nkey".
func paths(prefix, slug string) map[string]string {
	base := fmt.Sprintf("/%s/workspaces/%s", prefix, slug)
	return map[string]string{
		"account_nkey": base + "/account_nkey",
		"account_jwt":  base + "/account_jwt",
		"user_nkey":    base + "/user_nkey",
		"user_jwt":     base + "/user_jwt",
		"user_seed":    base + "/user_seed",
	}
}

// Store persists tenant credential tuples.
type Store interface {
	PersistWorkspaceCredentials(ctx context.Context, platformPrefix, slug string, tuple CredentialTuple) error
}

// HTTPStore implements Store against an upstream HTTP secret store (the
// same upstream collaborator C9 fetches runtime secrets from), encrypting
// every value with a SecretsManager before the PUT.
type HTTPStore struct {
	client  *http.Client
	baseURL string
	token   string
	secrets *security.SecretsManager
}

// NewHTTPStore constructs a Store bound to an upstream base URL and bearer
// token, encrypting values with a key derived from encryptionPassword.
func NewHTTPStore(baseURL, token, encryptionPassword string) (*HTTPStore, error) {
	sm, err := security.NewSecretsManagerFromPassword(encryptionPassword)
	if err != nil {
		return nil, fmt.Errorf("create secrets manager: %w", err)
	}
	return &HTTPStore{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
		token:   token,
		secrets: sm,
	}, nil
}

// PersistWorkspaceCredentials writes all five fields of tuple, creating
// parent folders idempotently (the upstream store's PUT-by-path semantics
// already create intermediate folders as needed).
func (s *HTTPStore) PersistWorkspaceCredentials(ctx context.Context, platformPrefix, slug string, tuple CredentialTuple) error {
	values := map[string]string{
		"account_nkey": tuple.AccountNkey,
		"account_jwt":  tuple.AccountJWT,
		"user_nkey":    tuple.UserNkey,
		"user_jwt":     tuple.UserJWT,
		"user_seed":    tuple.UserSeed,
	}
	keyPaths := paths(platformPrefix, slug)

	for field, value := range values {
		encrypted, err := s.secrets.EncryptSecret([]byte(value))
		if err != nil {
			return fmt.Errorf("encrypt %s: %w", field, err)
		}
		if err := s.put(ctx, keyPaths[field], encrypted); err != nil {
			return fmt.Errorf("persist %s: %w", field, err)
		}
	}
	return nil
}

func (s *HTTPStore) put(ctx context.Context, path string, value []byte) error {
	body, err := json.Marshal(map[string]string{"value": string(value)})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("secret store returned status %d", resp.StatusCode)
	}
	return nil
}
