// Package httpapi implements the four HTTP endpoints: job submission,
// manifest retrieval, task-state retrieval, and a liveness probe,
// grounded on libvuln/http and libindex/http's small-handler-struct,
// explicit-status-code style.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/quay/zlog"

	"github.com/quay/ubi-manifest"
	"github.com/quay/ubi-manifest/config"
	"github.com/quay/ubi-manifest/coordinator"
	"github.com/quay/ubi-manifest/pkg/jsonerr"
	"github.com/quay/ubi-manifest/resultstore"
	"github.com/quay/ubi-manifest/task"
)

// Server wires the four endpoints to their collaborators and exposes a
// ready-to-mount http.Handler via Mux.
type Server struct {
	Topology   Topology
	Config     *config.Resolver
	Tasks      *task.Manager
	Store      resultstore.Store
	Coordinator *coordinator.Coordinator

	// RequireRoles, when true, enforces the call-context role checks
	// (creator for POST /manifest, reader for the GET endpoints).
	// Disabled by default so the handlers are directly testable without
	// forging auth headers; cmd/ubimanifestd turns it on.
	RequireRoles bool
}

// Mux builds the http.Handler serving all four endpoints.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/manifest", s.handleManifestCollection)
	mux.HandleFunc("/api/v1/manifest/", s.handleManifestItem)
	mux.HandleFunc("/api/v1/task/", s.handleTask)
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	return mux
}

// manifestRequest is the POST /api/v1/manifest request body.
type manifestRequest struct {
	RepoIDs []string `json:"repo_ids"`
}

// manifestJob is one entry of the POST /api/v1/manifest response.
type manifestJob struct {
	TaskID string     `json:"task_id"`
	State  task.State `json:"state"`
}

func (s *Server) handleManifestCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonerr.Error(w, &jsonerr.Response{Code: "method-not-allowed", Message: "endpoint only allows POST"}, http.StatusMethodNotAllowed)
		return
	}
	if !s.authorize(w, r, "creator") {
		return
	}

	var req manifestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonerr.Error(w, &jsonerr.Response{Code: "bad-request", Message: fmt.Sprintf("could not decode request body: %v", err)}, http.StatusBadRequest)
		return
	}
	if len(req.RepoIDs) == 0 {
		jsonerr.Error(w, &jsonerr.Response{Code: "bad-request", Message: "repo_ids must not be empty"}, http.StatusBadRequest)
		return
	}

	jobs := make([]manifestJob, 0, len(req.RepoIDs))
	for _, repoID := range req.RepoIDs {
		entry, ok := s.Topology.Resolve(repoID)
		if !ok {
			jsonerr.Error(w, &jsonerr.Response{
				Code:    "not-found",
				Message: fmt.Sprintf("no repo class matches %q; known: %s", repoID, knownRepoIDs(s.Topology)),
			}, http.StatusNotFound)
			return
		}
		cfg, err := s.Config.Resolve(entry.InputContentSet, entry.OutputContentSet, entry.Version)
		if err != nil {
			jsonerr.Error(w, &jsonerr.Response{Code: "not-found", Message: err.Error()}, http.StatusNotFound)
			return
		}

		id := s.Tasks.Submit(r.Context(), coordinator.Job{Groups: []coordinator.GroupInput{{Group: entry.Group, Config: cfg}}})
		state, _ := s.Tasks.State(id)
		jobs = append(jobs, manifestJob{TaskID: id, State: state})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(jobs); err != nil {
		zlog.Error(r.Context()).Err(err).Msg("failed encoding manifest job response")
	}
}

// manifestResponse is the GET /api/v1/manifest/{repo_id} response body.
type manifestResponse struct {
	RepoID  string                       `json:"repo_id"`
	Content []ubimanifest.ManifestEntry `json:"content"`
}

func (s *Server) handleManifestItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonerr.Error(w, &jsonerr.Response{Code: "method-not-allowed", Message: "endpoint only allows GET"}, http.StatusMethodNotAllowed)
		return
	}
	if !s.authorize(w, r, "reader") {
		return
	}

	repoID := strings.TrimPrefix(r.URL.Path, "/api/v1/manifest/")
	if repoID == "" {
		jsonerr.Error(w, &jsonerr.Response{Code: "bad-request", Message: "missing repo_id in path"}, http.StatusBadRequest)
		return
	}

	entries, ok, err := s.Store.Get(r.Context(), repoID)
	if err != nil {
		jsonerr.Error(w, &jsonerr.Response{Code: "internal", Message: err.Error()}, http.StatusInternalServerError)
		return
	}
	if !ok {
		jsonerr.Error(w, &jsonerr.Response{Code: "not-found", Message: fmt.Sprintf("no manifest for repo %q", repoID)}, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(manifestResponse{RepoID: repoID, Content: entries}); err != nil {
		zlog.Error(r.Context()).Err(err).Msg("failed encoding manifest response")
	}
}

type taskResponse struct {
	TaskID string     `json:"task_id"`
	State  task.State `json:"state"`
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonerr.Error(w, &jsonerr.Response{Code: "method-not-allowed", Message: "endpoint only allows GET"}, http.StatusMethodNotAllowed)
		return
	}
	if !s.authorize(w, r, "reader") {
		return
	}

	taskID := strings.TrimPrefix(r.URL.Path, "/api/v1/task/")
	if taskID == "" {
		jsonerr.Error(w, &jsonerr.Response{Code: "bad-request", Message: "missing task_id in path"}, http.StatusBadRequest)
		return
	}

	state, ok := s.Tasks.State(taskID)
	if !ok {
		jsonerr.Error(w, &jsonerr.Response{Code: "not-found", Message: fmt.Sprintf("no task %q", taskID)}, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(taskResponse{TaskID: taskID, State: state}); err != nil {
		zlog.Error(r.Context()).Err(err).Msg("failed encoding task response")
	}
}

// statusResponse is the GET /api/v1/status response body: liveness of
// the server itself and its result-store dependency.
type statusResponse struct {
	OK         bool   `json:"ok"`
	ResultStore string `json:"result_store"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonerr.Error(w, &jsonerr.Response{Code: "method-not-allowed", Message: "endpoint only allows GET"}, http.StatusMethodNotAllowed)
		return
	}

	resp := statusResponse{OK: true, ResultStore: "ok"}
	if err := s.Store.Ping(r.Context()); err != nil {
		resp.OK = false
		resp.ResultStore = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	if !resp.OK {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		zlog.Error(r.Context()).Err(err).Msg("failed encoding status response")
	}
}

// authorize enforces the call-context role check when s.RequireRoles
// is set, writing the 400/403 responses spec.md's auth section
// describes. Reports whether the caller may proceed.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, role string) bool {
	if !s.RequireRoles {
		return true
	}
	cc, err := parseCallContext(r.Header.Get(CallContextHeader))
	if err != nil {
		jsonerr.Error(w, &jsonerr.Response{Code: "bad-request", Message: err.Error()}, http.StatusBadRequest)
		return false
	}
	if !cc.hasRole(role) {
		jsonerr.Error(w, &jsonerr.Response{Code: "forbidden", Message: fmt.Sprintf("missing required role %q", role)}, http.StatusForbidden)
		return false
	}
	return true
}
