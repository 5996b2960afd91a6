package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	projectrepo "ghimport/internal/gateway/repository/project"
	"ghimport/internal/gateway/repository/snapshot"
	projectsvc "ghimport/internal/gateway/service/project"
	"ghimport/internal/github"
)

// ProjectView is an imported project with its browser and archive links.
type ProjectView struct {
	projectsvc.ImportedProject
	HTMLURL string `json:"html_url"`
	ZipURL  string `json:"zip_url"`
}

func viewOf(p projectsvc.ImportedProject) ProjectView {
	return ProjectView{
		ImportedProject: p,
		HTMLURL:         github.RepoURL(p.Repository.FullName),
		ZipURL:          github.ZipURL(p.Repository.FullName, p.Branch),
	}
}

type ImportRequest struct {
	Repository github.Repository `json:"repository"`
	Branch     string            `json:"branch"`
}

// caller resolves the user behind the request or writes the failure.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (projectsvc.Caller, bool) {
	sess := session(r)
	userID, err := h.userID(r.Context(), sess)
	if err != nil {
		h.writeUpstream(w, r, "failed to resolve github user", err)
		return projectsvc.Caller{}, false
	}
	return projectsvc.Caller{UserID: userID, Token: sess.Token}, true
}

func (h *Handler) writeProjectError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, projectrepo.ErrNotFound):
		writeError(w, http.StatusNotFound, "project not found", nil)
	case errors.Is(err, snapshot.ErrNotFound):
		writeError(w, http.StatusNotFound, "snapshot not found", nil)
	case errors.Is(err, projectsvc.ErrInvalidImport):
		writeError(w, http.StatusBadRequest, "invalid import", err)
	default:
		h.log.Error("project request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	c, ok := h.caller(w, r)
	if !ok {
		return
	}
	list, err := h.projects.List(r.Context(), c.UserID)
	if err != nil {
		h.writeProjectError(w, r, err)
		return
	}
	views := make([]ProjectView, 0, len(list))
	for _, p := range list {
		views = append(views, viewOf(p))
	}
	writeJSON(w, http.StatusOK, views)
}

// ImportProject answers 201 for a new import and 200 with the existing id
// when the repository and branch were already imported.
func (h *Handler) ImportProject(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	c, ok := h.caller(w, r)
	if !ok {
		return
	}
	res, err := h.projects.Import(r.Context(), c, req.Repository, req.Branch)
	if err != nil {
		h.writeProjectError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	c, ok := h.caller(w, r)
	if !ok {
		return
	}
	p, err := h.projects.Get(r.Context(), c.UserID, r.PathValue("id"))
	if err != nil {
		h.writeProjectError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(p))
}

func (h *Handler) RemoveProject(w http.ResponseWriter, r *http.Request) {
	c, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.projects.Remove(r.Context(), c.UserID, r.PathValue("id")); err != nil {
		h.writeProjectError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ProjectSnapshot(w http.ResponseWriter, r *http.Request) {
	c, ok := h.caller(w, r)
	if !ok {
		return
	}
	snap, err := h.projects.Snapshot(r.Context(), c.UserID, r.PathValue("id"))
	if err != nil {
		h.writeProjectError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
