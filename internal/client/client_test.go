package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghimport/internal/filetree"
	"ghimport/internal/gateway/handler"
	"ghimport/internal/github"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL + "/", Token: "tok", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_SendsBearerAndDecodes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/github/repos", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, []github.Repository{{ID: 1, FullName: "octo/hello"}})
	})
	mux.HandleFunc("GET /api/github/repos/{owner}/{repo}/contents", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "octo", r.PathValue("owner"))
		assert.Equal(t, "src", r.URL.Query().Get("path"))
		assert.Equal(t, "dev", r.URL.Query().Get("ref"))
		writeJSON(w, http.StatusOK, []github.Content{{Name: "a.go", Path: "src/a.go", Type: "file"}})
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	repos, err := c.Repositories(ctx)
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, "octo/hello", repos[0].FullName)

	contents, err := c.Contents(ctx, "octo", "hello", "src", "dev")
	require.NoError(t, err)
	require.Len(t, contents, 1)
	assert.Equal(t, "src/a.go", contents[0].Path)
}

func TestClient_APIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/github/repos/{owner}/{repo}/branches", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "failed to list branches", "details": "not found"})
	})
	c := newTestClient(t, mux)

	_, err := c.Branches(context.Background(), "octo", "missing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "failed to list branches", apiErr.Message)
	assert.Equal(t, "not found", apiErr.Details)
}

func TestClient_PendingStatsAreEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/github/repos/{owner}/{repo}/stats/commit_activity", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusAccepted, []github.CommitActivity{})
	})
	c := newTestClient(t, mux)

	weeks, err := c.CommitActivity(context.Background(), "octo", "hello")
	require.NoError(t, err)
	assert.Empty(t, weeks)
}

func TestClient_ProjectsRoundTrip(t *testing.T) {
	var mu sync.Mutex
	var removed string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/projects", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "main", body["branch"])
		writeJSON(w, http.StatusCreated, map[string]any{"id": "1-main-5", "created": true})
	})
	mux.HandleFunc("DELETE /api/projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		removed = r.PathValue("id")
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	res, err := c.Import(ctx, github.Repository{ID: 1, FullName: "octo/hello"}, "main")
	require.NoError(t, err)
	assert.Equal(t, "1-main-5", res.ID)
	assert.True(t, res.Created)

	require.NoError(t, c.RemoveProject(ctx, "1-main-5"))
	mu.Lock()
	assert.Equal(t, "1-main-5", removed)
	mu.Unlock()
}

func TestResource_FetchSuccessAndFailure(t *testing.T) {
	var fail atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/github/repos", func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to list repositories"})
			return
		}
		writeJSON(w, http.StatusOK, []github.Repository{{ID: 1}})
	})
	c := newTestClient(t, mux)
	res := c.Repos()

	assert.Equal(t, State[[]github.Repository]{Data: []github.Repository{}}, res.Snapshot())

	require.NoError(t, res.Fetch(context.Background()))
	st := res.Snapshot()
	assert.False(t, st.Loading)
	assert.Empty(t, st.Err)
	assert.Len(t, st.Data, 1)

	fail.Store(true)
	require.Error(t, res.Fetch(context.Background()))
	st = res.Snapshot()
	assert.Equal(t, "Failed to load repositories. Please try again.", st.Err)
	assert.Empty(t, st.Data)
	assert.NotNil(t, st.Data)
}

func TestResource_Messages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "boom"})
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	cases := map[string]interface {
		Fetch(context.Context) error
	}{
		"Failed to load branches":           c.BranchList("o", "r"),
		"Failed to load language data":      c.LanguageData("o", "r"),
		"Failed to fetch contributors":      c.ContributorList("o", "r"),
		"Failed to fetch contributor stats": c.ContributorStatsData("o", "r"),
		"Failed to fetch commit activity":   c.CommitActivityData("o", "r"),
		"Failed to load imported projects":  c.ProjectList(),
	}
	for want, r := range cases {
		require.Error(t, r.Fetch(ctx))
		var got string
		switch res := r.(type) {
		case *Resource[[]github.Branch]:
			got = res.Snapshot().Err
		case *Resource[github.Languages]:
			got = res.Snapshot().Err
		case *Resource[[]github.Contributor]:
			got = res.Snapshot().Err
		case *Resource[[]github.ContributorStats]:
			got = res.Snapshot().Err
		case *Resource[[]github.CommitActivity]:
			got = res.Snapshot().Err
		case *Resource[[]handler.ProjectView]:
			got = res.Snapshot().Err
		}
		assert.Equal(t, want, got)
	}
}

func TestTreeLoader(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/github/repos/{owner}/{repo}/contents", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("path") {
		case "":
			writeJSON(w, http.StatusOK, []github.Content{{Name: "src", Path: "src", Type: "dir"}})
		case "src":
			writeJSON(w, http.StatusOK, []github.Content{{Name: "a.go", Path: "src/a.go", Type: "file"}})
		}
	})
	c := newTestClient(t, mux)

	tree := filetree.New(c.TreeLoader("octo", "hello", "main"), filetree.Options{})
	require.NoError(t, tree.LoadAll(context.Background(), 1))
	require.Len(t, tree.Nodes(), 1)
	require.Len(t, tree.Nodes()[0].Children, 1)
	assert.Equal(t, []string{"src"}, tree.Expanded())
}
