package handler

import (
	"errors"
	"net/http"
	"strconv"

	"ghimport/internal/github"
	"ghimport/internal/insights"
)

type HeatmapResponse struct {
	Days    []insights.DayActivity `json:"days"`
	Summary insights.CommitSummary `json:"summary"`
}

func (h *Handler) Heatmap(w http.ResponseWriter, r *http.Request) {
	owner, repo := repoParams(r)
	weeks, err := h.gh.CommitActivity(r.Context(), session(r).Token, owner, repo)
	status := http.StatusOK
	switch {
	case errors.Is(err, github.ErrPending):
		status, weeks = http.StatusAccepted, nil
	case err != nil:
		h.writeUpstream(w, r, "failed to get commit activity", err)
		return
	}
	days := insights.Heatmap(weeks)
	if days == nil {
		days = []insights.DayActivity{}
	}
	writeJSON(w, status, HeatmapResponse{Days: days, Summary: insights.Summarize(weeks)})
}

func (h *Handler) TopContributors(w http.ResponseWriter, r *http.Request) {
	owner, repo := repoParams(r)
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer", err)
			return
		}
		limit = n
	}
	list, err := h.gh.Contributors(r.Context(), session(r).Token, owner, repo)
	if err != nil {
		h.writeUpstream(w, r, "failed to list contributors", err)
		return
	}
	ranked := insights.TopContributors(list, limit)
	if ranked == nil {
		ranked = []insights.RankedContributor{}
	}
	writeJSON(w, http.StatusOK, ranked)
}

func (h *Handler) MonthlyDensity(w http.ResponseWriter, r *http.Request) {
	owner, repo := repoParams(r)
	stats, err := h.gh.ContributorStats(r.Context(), session(r).Token, owner, repo)
	status := http.StatusOK
	switch {
	case errors.Is(err, github.ErrPending):
		status, stats = http.StatusAccepted, nil
	case err != nil:
		h.writeUpstream(w, r, "failed to get contributor stats", err)
		return
	}
	writeJSON(w, status, insights.MonthlyDensity(stats, h.now()))
}

func (h *Handler) LanguageComposition(w http.ResponseWriter, r *http.Request) {
	owner, repo := repoParams(r)
	langs, err := h.gh.Languages(r.Context(), session(r).Token, owner, repo)
	if err != nil {
		h.writeUpstream(w, r, "failed to list languages", err)
		return
	}
	shares := insights.LanguageComposition(langs)
	if shares == nil {
		shares = []insights.LanguageShare{}
	}
	writeJSON(w, http.StatusOK, shares)
}
