// Package api implements the HTTP admin surface (§6): health checks and the
// deploy/deploy-providers entry points that front the Pipeline Compiler and
// Deployer.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cuemby/pipestack/pkg/log"
	"github.com/cuemby/pipestack/pkg/manifest"
)

// Deployer is the subset of pkg/deploy.Deployer the admin server depends on,
// kept as an interface so handlers can be exercised against a fake without a
// live bus connection or database.
type Deployer interface {
	Deploy(ctx context.Context, pipeline *manifest.Pipeline, workspaceSlug string) error
	DeployProviders(ctx context.Context, workspaceSlug string) error
}

// Server is the admin HTTP server: GET /health, POST /deploy, POST
// /deploy-providers, bound to port 3000 by default (§6).
type Server struct {
	router   chi.Router
	deployer Deployer
}

// NewServer constructs the admin HTTP server bound to a Deployer.
func NewServer(deployer Deployer) *Server {
	s := &Server{deployer: deployer}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Get("/health", s.handleHealth)
	r.Post("/deploy", s.handleDeploy)
	r.Post("/deploy-providers", s.handleDeployProviders)
	s.router = r

	return s
}

// ListenAndServe serves the admin HTTP API on addr (default ":3000") until
// ctx is cancelled, shutting down gracefully with best-effort cleanup of
// outstanding requests (§5 "Cancellation & timeouts").
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Logger.Info().Str("addr", addr).Msg("admin HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("admin request handled")
	})
}

// healthResponse is the GET /health payload.
type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy"})
}

// deployRequest is the POST /deploy body: the same shape whether it arrived
// as JSON or as YAML re-encoded to JSON by an upstream gateway (§6).
type deployRequest struct {
	Pipeline      manifest.Pipeline `json:"pipeline"`
	WorkspaceSlug string            `json:"workspaceSlug"`
}

// deployProvidersRequest is the POST /deploy-providers body.
type deployProvidersRequest struct {
	WorkspaceSlug string `json:"workspaceSlug"`
}

// resultResponse wraps every deploy outcome, success or failure, in a single
// "result" string field per §6.
type resultResponse struct {
	Result string `json:"result"`
}

func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	var req deployRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusInternalServerError, resultResponse{Result: "malformed deploy request: " + err.Error()})
		return
	}

	if err := s.deployer.Deploy(r.Context(), &req.Pipeline, req.WorkspaceSlug); err != nil {
		log.WithWorkspace(req.WorkspaceSlug).Error().Err(err).Msg("deploy failed")
		writeJSON(w, http.StatusInternalServerError, resultResponse{Result: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resultResponse{Result: "deployed"})
}

func (s *Server) handleDeployProviders(w http.ResponseWriter, r *http.Request) {
	var req deployProvidersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusInternalServerError, resultResponse{Result: "malformed deploy-providers request: " + err.Error()})
		return
	}

	if err := s.deployer.DeployProviders(r.Context(), req.WorkspaceSlug); err != nil {
		log.WithWorkspace(req.WorkspaceSlug).Error().Err(err).Msg("deploy-providers failed")
		writeJSON(w, http.StatusInternalServerError, resultResponse{Result: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resultResponse{Result: "deployed"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
