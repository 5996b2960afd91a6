package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghimport/internal/github"
)

func fakeGateway(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/github/repos", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode([]github.Repository{
			{ID: 1, FullName: "octo/hello", DefaultBranch: "main", UpdatedAt: "not-a-time"},
		})
	})
	mux.HandleFunc("GET /api/github/repos/{owner}/{repo}/contents", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("path") {
		case "":
			_ = json.NewEncoder(w).Encode([]github.Content{
				{Name: "cmd", Path: "cmd", Type: "dir"},
				{Name: "go.mod", Path: "go.mod", Type: "file"},
			})
		case "cmd":
			_ = json.NewEncoder(w).Encode([]github.Content{{Name: "main.go", Path: "cmd/main.go", Type: "file"}})
		}
	})
	mux.HandleFunc("POST /api/projects", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "1-main-9", "created": true})
	})
	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]bool{"authenticated": r.Header.Get("Authorization") == "Bearer tok"})
	})
	mux.HandleFunc("GET /api/github/repos/{owner}/{repo}/file", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "go.mod", r.URL.Query().Get("path"))
		assert.Equal(t, "dev", r.URL.Query().Get("ref"))
		_ = json.NewEncoder(w).Encode(map[string]any{"name": "go.mod", "path": "go.mod", "text": "module x\n"})
	})
	mux.HandleFunc("GET /api/projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "1-main-9" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "project not found"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "1-main-9", "branch": "main", "status": "error", "error": "import interrupted",
			"repository": map[string]any{"id": 1, "full_name": "octo/hello"},
			"zip_url":    "https://github.com/octo/hello/archive/refs/heads/main.zip",
		})
	})
	mux.HandleFunc("GET /api/projects/{id}/snapshot", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"project_id": "1-main-9", "branch": "main", "captured_at": "2024-05-01T10:00:00Z",
			"repository": map[string]any{"id": 1, "full_name": "octo/hello"},
			"root":       []map[string]any{{"name": "cmd", "path": "cmd", "type": "dir"}, {"name": "go.mod", "path": "go.mod", "type": "file"}},
			"languages":  map[string]int{"Go": 100},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	outputFormat = "human"
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestReposCommand(t *testing.T) {
	srv := fakeGateway(t)

	out, err := execute(t, "repos", "--gateway", srv.URL, "--token", "tok")
	require.NoError(t, err)
	assert.Contains(t, out, "octo/hello")
	assert.Contains(t, out, "public")

	out, err = execute(t, "repos", "--gateway", srv.URL, "--token", "tok", "--format", "json")
	require.NoError(t, err)
	var repos []github.Repository
	require.NoError(t, json.Unmarshal([]byte(out), &repos))
	assert.Len(t, repos, 1)
}

func TestTreeCommand(t *testing.T) {
	srv := fakeGateway(t)

	out, err := execute(t, "tree", "octo/hello", "--gateway", srv.URL, "--token", "tok", "--depth", "1")
	require.NoError(t, err)
	assert.Equal(t, "cmd/\n  main.go\ngo.mod\n", out)
}

func TestProjectsImportCommand(t *testing.T) {
	srv := fakeGateway(t)

	out, err := execute(t, "projects", "import", "octo/hello", "--gateway", srv.URL, "--token", "tok")
	require.NoError(t, err)
	assert.Equal(t, "Imported octo/hello@main as 1-main-9\n", out)

	_, err = execute(t, "projects", "import", "octo/other", "--gateway", srv.URL, "--token", "tok")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not found"))
}

func TestCommandsRequireToken(t *testing.T) {
	_, err := execute(t, "repos", "--token", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token")
}

func TestStatusCommand(t *testing.T) {
	srv := fakeGateway(t)

	out, err := execute(t, "status", "--gateway", srv.URL, "--token", "tok")
	require.NoError(t, err)
	assert.Equal(t, "Authenticated with "+srv.URL+"\n", out)

	out, err = execute(t, "status", "--gateway", srv.URL, "--token", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Not authenticated")
}

func TestFileCommand(t *testing.T) {
	srv := fakeGateway(t)

	out, err := execute(t, "file", "octo/hello", "go.mod", "--ref", "dev", "--gateway", srv.URL, "--token", "tok")
	require.NoError(t, err)
	assert.Equal(t, "module x\n", out)
}

func TestProjectsShowAndSnapshot(t *testing.T) {
	srv := fakeGateway(t)

	out, err := execute(t, "projects", "show", "1-main-9", "--gateway", srv.URL, "--token", "tok")
	require.NoError(t, err)
	assert.Contains(t, out, "octo/hello")
	assert.Contains(t, out, "import interrupted")
	assert.Contains(t, out, "main.zip")

	_, err = execute(t, "projects", "show", "nope", "--gateway", srv.URL, "--token", "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project not found")

	out, err = execute(t, "projects", "snapshot", "1-main-9", "--gateway", srv.URL, "--token", "tok")
	require.NoError(t, err)
	assert.Contains(t, out, "octo/hello@main captured")
	assert.Contains(t, out, "100.0%")
	assert.Contains(t, out, "cmd/\ngo.mod\n")
}
