package handler

import (
	"context"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"

	"ghimport/internal/filetree"
	"ghimport/internal/github"
	"ghimport/internal/highlight"
)

const maxTreeDepth = 5

type TreeResponse struct {
	Nodes    []*filetree.Node `json:"nodes"`
	Expanded []string         `json:"expanded"`
}

// Tree loads the directory at ?path and expands it ?depth levels deep
// (default 0, at most maxTreeDepth).
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	owner, repo := repoParams(r)
	q := r.URL.Query()
	depth := 0
	if raw := q.Get("depth"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "depth must be a non-negative integer", err)
			return
		}
		depth = min(n, maxTreeDepth)
	}
	token, ref := session(r).Token, q.Get("ref")
	tree := filetree.New(filetree.LoaderFunc(func(ctx context.Context, path string) ([]github.Content, error) {
		return h.gh.Contents(ctx, token, owner, repo, path, ref)
	}), filetree.Options{Root: q.Get("path")})

	if err := tree.LoadAll(r.Context(), depth); err != nil {
		h.writeUpstream(w, r, "failed to load tree", err)
		return
	}
	writeJSON(w, http.StatusOK, TreeResponse{Nodes: tree.Nodes(), Expanded: tree.Expanded()})
}

type FileResponse struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Size     int    `json:"size"`
	Language string `json:"language"`
	HTML     string `json:"html"`
	Fallback bool   `json:"fallback,omitempty"`
	Text     string `json:"text"`
}

// File fetches one file and returns it syntax highlighted.
func (h *Handler) File(w http.ResponseWriter, r *http.Request) {
	owner, repo := repoParams(r)
	q := r.URL.Query()
	path := strings.Trim(q.Get("path"), "/")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required", nil)
		return
	}
	contents, err := h.gh.Contents(r.Context(), session(r).Token, owner, repo, path, q.Get("ref"))
	if err != nil {
		h.writeUpstream(w, r, "failed to fetch file", err)
		return
	}
	if len(contents) != 1 || !contents[0].IsFile() || contents[0].Content == "" {
		writeError(w, http.StatusUnprocessableEntity, "No content found in file", nil)
		return
	}
	file := contents[0]
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(file.Content, "\n", ""))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "No content found in file", err)
		return
	}
	text := string(raw)
	res := highlight.Render(file.Name, text)
	writeJSON(w, http.StatusOK, FileResponse{
		Name:     file.Name,
		Path:     file.Path,
		Size:     file.Size,
		Language: res.Language,
		HTML:     res.HTML,
		Fallback: res.Fallback,
		Text:     text,
	})
}
