// Package testutil provides shared test helpers for creating config files and a fake backend.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// SetupTestConfig creates a minimal config file pointing at baseURL and the report directory for testing.
// Returns the path to the generated config file.
func SetupTestConfig(t *testing.T, tmpDir, baseURL string) string {
	t.Helper()

	reportDir := filepath.Join(tmpDir, "reports")
	require.NoError(t, os.MkdirAll(reportDir, 0755))

	configContent := fmt.Sprintf(`backend:
  base_url: %s
  timeout: 5s
quiz:
  user_id: test-user
  num_questions: 3
  observation_delay: 0s
reconnect:
  attempts: 2
  delay: 1ms
outputs:
  report_directory: %s
`,
		baseURL,
		reportDir,
	)

	cfgPath := filepath.Join(tmpDir, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(configContent), 0644))
	return cfgPath
}

// SetupTestConfigWithAuthToken creates a config file with a fake bearer token for tests
// that check the Authorization header.
func SetupTestConfigWithAuthToken(t *testing.T, tmpDir, baseURL, token string) string {
	t.Helper()
	cfgPath := SetupTestConfig(t, tmpDir, baseURL)

	content, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	content = []byte(strings.Replace(string(content), "  timeout: 5s\n", fmt.Sprintf("  timeout: 5s\n  auth_token: %s\n", token), 1))
	require.NoError(t, os.WriteFile(cfgPath, content, 0644))
	return cfgPath
}

// FakeBackend serves canned JSON bodies for the backend endpoints
type FakeBackend struct {
	Server *httptest.Server

	mu        sync.Mutex
	progress  map[string]string
	histories map[string]string
	requests  []*http.Request
}

// NewFakeBackend starts a server that is closed when the test finishes.
// Unknown sessions and users get the backend's {"error": ...} envelope with status 200.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	backend := &FakeBackend{
		progress:  make(map[string]string),
		histories: make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /progress/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
		backend.serve(w, r, backend.progress, r.PathValue("sessionID"), "Session not found")
	})
	mux.HandleFunc("GET /history/{userID}", func(w http.ResponseWriter, r *http.Request) {
		backend.serve(w, r, backend.histories, r.PathValue("userID"), "User not found")
	})
	backend.Server = httptest.NewServer(mux)
	t.Cleanup(backend.Server.Close)
	return backend
}

// URL is the base URL of the server
func (backend *FakeBackend) URL() string {
	return backend.Server.URL
}

// SetProgress sets the body of GET /progress/{sessionID}
func (backend *FakeBackend) SetProgress(sessionID, body string) {
	backend.mu.Lock()
	defer backend.mu.Unlock()
	backend.progress[sessionID] = body
}

// SetHistory sets the body of GET /history/{userID}
func (backend *FakeBackend) SetHistory(userID, body string) {
	backend.mu.Lock()
	defer backend.mu.Unlock()
	backend.histories[userID] = body
}

// Requests returns the requests received so far
func (backend *FakeBackend) Requests() []*http.Request {
	backend.mu.Lock()
	defer backend.mu.Unlock()
	return append([]*http.Request(nil), backend.requests...)
}

func (backend *FakeBackend) serve(w http.ResponseWriter, r *http.Request, bodies map[string]string, key, notFound string) {
	backend.mu.Lock()
	backend.requests = append(backend.requests, r)
	body, ok := bodies[key]
	backend.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		_ = json.NewEncoder(w).Encode(map[string]string{"error": notFound})
		return
	}
	_, _ = w.Write([]byte(body))
}
