/*
Package security provides at-rest encryption for tenant credential material
before it leaves the control plane for the upstream secret store.

# Architecture

The control plane never writes a tenant's account JWT, user JWT, or user
seed to the upstream secret store in cleartext. pkg/secretstore wraps every
field with a SecretsManager before the PUT:

	┌────────────────────────────────────────────────────────┐
	│                  Identity Manager (C7)                 │
	│        mints account_jwt, user_jwt, user_seed          │
	└───────────────────────┬──────────────────────────────────┘
	                        │ CredentialTuple
	                        ▼
	┌────────────────────────────────────────────────────────┐
	│              SecretsManager.EncryptSecret               │
	│                    AES-256-GCM                          │
	│         (nonce generated per call, prepended)           │
	└───────────────────────┬──────────────────────────────────┘
	                        │ ciphertext
	                        ▼
	┌────────────────────────────────────────────────────────┐
	│         Upstream secret store (pkg/secretstore)         │
	└────────────────────────────────────────────────────────┘

This is a distinct layer from C9's sealed-box envelope protocol (pkg/secrets):
the envelope protects a request/response in flight between a running
component and the secrets backend; SecretsManager protects the identity
manager's own credential writes at rest. The two never share key material.
*/
package security
