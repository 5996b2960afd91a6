package handler

import (
	"errors"
	"net/http"

	"ghimport/internal/github"
)

func (h *Handler) Repos(w http.ResponseWriter, r *http.Request) {
	repos, err := h.gh.Repositories(r.Context(), session(r).Token)
	if err != nil {
		h.writeUpstream(w, r, "failed to list repositories", err)
		return
	}
	writeJSON(w, http.StatusOK, repos)
}

func (h *Handler) Branches(w http.ResponseWriter, r *http.Request) {
	owner, repo := repoParams(r)
	branches, err := h.gh.Branches(r.Context(), session(r).Token, owner, repo)
	if err != nil {
		h.writeUpstream(w, r, "failed to list branches", err)
		return
	}
	writeJSON(w, http.StatusOK, branches)
}

// Contents always answers with an array; a single file is wrapped.
func (h *Handler) Contents(w http.ResponseWriter, r *http.Request) {
	owner, repo := repoParams(r)
	q := r.URL.Query()
	contents, err := h.gh.Contents(r.Context(), session(r).Token, owner, repo, q.Get("path"), q.Get("ref"))
	if err != nil {
		h.writeUpstream(w, r, "failed to get contents", err)
		return
	}
	writeJSON(w, http.StatusOK, contents)
}

func (h *Handler) Contributors(w http.ResponseWriter, r *http.Request) {
	owner, repo := repoParams(r)
	list, err := h.gh.Contributors(r.Context(), session(r).Token, owner, repo)
	if err != nil {
		h.writeUpstream(w, r, "failed to list contributors", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) Languages(w http.ResponseWriter, r *http.Request) {
	owner, repo := repoParams(r)
	langs, err := h.gh.Languages(r.Context(), session(r).Token, owner, repo)
	if err != nil {
		h.writeUpstream(w, r, "failed to list languages", err)
		return
	}
	writeJSON(w, http.StatusOK, langs)
}

// CommitActivity answers 202 with an empty list while GitHub is still
// computing the statistics.
func (h *Handler) CommitActivity(w http.ResponseWriter, r *http.Request) {
	owner, repo := repoParams(r)
	weeks, err := h.gh.CommitActivity(r.Context(), session(r).Token, owner, repo)
	if errors.Is(err, github.ErrPending) {
		writeJSON(w, http.StatusAccepted, []github.CommitActivity{})
		return
	}
	if err != nil {
		h.writeUpstream(w, r, "failed to get commit activity", err)
		return
	}
	writeJSON(w, http.StatusOK, weeks)
}

func (h *Handler) ContributorStats(w http.ResponseWriter, r *http.Request) {
	owner, repo := repoParams(r)
	stats, err := h.gh.ContributorStats(r.Context(), session(r).Token, owner, repo)
	if errors.Is(err, github.ErrPending) {
		writeJSON(w, http.StatusAccepted, []github.ContributorStats{})
		return
	}
	if err != nil {
		h.writeUpstream(w, r, "failed to get contributor stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
