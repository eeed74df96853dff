package testhelpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-github/v62/github"
)

// MockGitHubServerConfig configures the behavior of a mock GitHub server
type MockGitHubServerConfig struct {
	// Owner and Repo for the mock server
	Owner string
	Repo  string
	// Deployments stores deployment requests that were received
	Deployments []*github.DeploymentRequest
	// Statuses maps deployment IDs to the status requests received for them
	Statuses map[int64][]*github.DeploymentStatusRequest
	// FailDeployments makes deployment creation return a 422
	FailDeployments bool
	// AuthHeaders records the Authorization header of every request
	AuthHeaders []string

	mu     sync.Mutex
	nextID int64
}

// NewMockGitHubServerConfig creates a new mock server config with defaults
func NewMockGitHubServerConfig() *MockGitHubServerConfig {
	return &MockGitHubServerConfig{
		Owner:    "owner",
		Repo:     "repo",
		Statuses: make(map[int64][]*github.DeploymentStatusRequest),
		nextID:   1000,
	}
}

// NewMockGitHubServer creates an httptest server that mocks the GitHub deployments API
func NewMockGitHubServer(t *testing.T, config *MockGitHubServerConfig) *httptest.Server {
	if config == nil {
		config = NewMockGitHubServerConfig()
	}
	if config.Statuses == nil {
		config.Statuses = make(map[int64][]*github.DeploymentStatusRequest)
	}

	basePath := "/repos/" + config.Owner + "/" + config.Repo + "/deployments"

	handler := func(w http.ResponseWriter, r *http.Request) {
		config.mu.Lock()
		defer config.mu.Unlock()
		config.AuthHeaders = append(config.AuthHeaders, r.Header.Get("Authorization"))

		path := r.URL.Path

		// POST /repos/{owner}/{repo}/deployments
		if path == basePath && r.Method == http.MethodPost {
			if config.FailDeployments {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnprocessableEntity)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{"message": "Conflict: Commit status checks failed"})
				return
			}

			var req github.DeploymentRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, fmt.Sprintf("Failed to decode request body: %v", err), http.StatusBadRequest)
				return
			}
			config.Deployments = append(config.Deployments, &req)
			config.nextID++

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(&github.Deployment{
				ID:          github.Int64(config.nextID),
				Ref:         req.Ref,
				Environment: req.Environment,
				Description: req.Description,
				URL:         github.String(fmt.Sprintf("https://api.github.com%s/%d", basePath, config.nextID)),
			})
			return
		}

		// POST /repos/{owner}/{repo}/deployments/{id}/statuses
		if strings.HasPrefix(path, basePath+"/") && strings.HasSuffix(path, "/statuses") && r.Method == http.MethodPost {
			idStr := strings.TrimSuffix(strings.TrimPrefix(path, basePath+"/"), "/statuses")
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				http.Error(w, fmt.Sprintf("Invalid deployment id: %s", idStr), http.StatusBadRequest)
				return
			}

			var req github.DeploymentStatusRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, fmt.Sprintf("Failed to decode request body: %v", err), http.StatusBadRequest)
				return
			}
			config.Statuses[id] = append(config.Statuses[id], &req)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(&github.DeploymentStatus{
				ID:          github.Int64(id*10 + int64(len(config.Statuses[id]))),
				State:       req.State,
				Description: req.Description,
				Environment: req.Environment,
			})
			return
		}

		http.Error(w, fmt.Sprintf("Unhandled path: %s (method: %s)", path, r.Method), http.StatusNotFound)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(basePath, handler)
	mux.HandleFunc(basePath+"/", handler)

	server := httptest.NewServer(mux)
	t.Cleanup(func() { server.Close() })
	return server
}

// NewMockGitHubClient creates a GitHub client configured to use a mock server
func NewMockGitHubClient(t *testing.T, config *MockGitHubServerConfig) (*github.Client, *httptest.Server) {
	server := NewMockGitHubServer(t, config)
	client := github.NewClient(nil)
	baseURL, _ := url.Parse(server.URL + "/")
	client.BaseURL = baseURL
	client.UploadURL = baseURL
	return client, server
}
