package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/pipestack/pkg/deploy"
	"github.com/cuemby/pipestack/pkg/manifest"
)

// fakeDeployer lets handler tests control the deploy outcome without a live
// bus connection or database.
type fakeDeployer struct {
	deployErr          error
	deployProvidersErr error
	lastPipeline       *manifest.Pipeline
	lastSlug           string
}

func (f *fakeDeployer) Deploy(ctx context.Context, pipeline *manifest.Pipeline, workspaceSlug string) error {
	f.lastPipeline = pipeline
	f.lastSlug = workspaceSlug
	return f.deployErr
}

func (f *fakeDeployer) DeployProviders(ctx context.Context, workspaceSlug string) error {
	f.lastSlug = workspaceSlug
	return f.deployProvidersErr
}

func TestHandleHealth(t *testing.T) {
	s := NewServer(&fakeDeployer{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
}

func TestHandleDeploy_Success(t *testing.T) {
	fd := &fakeDeployer{}
	s := NewServer(fd)

	reqBody := deployRequest{
		Pipeline:      manifest.Pipeline{Name: "mine", Version: "1"},
		WorkspaceSlug: "acme",
	}
	payload, err := json.Marshal(reqBody)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/deploy", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body resultResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "deployed", body.Result)
	assert.Equal(t, "acme", fd.lastSlug)
	assert.Equal(t, "mine", fd.lastPipeline.Name)
}

// TestHandleDeploy_TenantNotReady covers §8 S3: deploying against a
// workspace with no NATS account returns 500 with a "No NATS account
// configured" result string.
func TestHandleDeploy_TenantNotReady(t *testing.T) {
	fd := &fakeDeployer{deployErr: &deploy.TenantNotReadyError{Slug: "ghost"}}
	s := NewServer(fd)

	reqBody := deployRequest{
		Pipeline:      manifest.Pipeline{Name: "mine", Version: "1"},
		WorkspaceSlug: "ghost",
	}
	payload, err := json.Marshal(reqBody)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/deploy", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body resultResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Result, "No NATS account configured")
}

func TestHandleDeploy_MalformedBody(t *testing.T) {
	s := NewServer(&fakeDeployer{})

	req := httptest.NewRequest(http.MethodPost, "/deploy", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleDeployProviders_Success(t *testing.T) {
	fd := &fakeDeployer{}
	s := NewServer(fd)

	payload, err := json.Marshal(deployProvidersRequest{WorkspaceSlug: "acme"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/deploy-providers", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acme", fd.lastSlug)
}
