package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/methodology"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/scoring"
	"go.uber.org/zap"
)

type treeResponse struct {
	methodology.Tree
	Warnings []string `json:"warnings,omitempty"`
}

func newTreeResponse(t methodology.Tree) treeResponse {
	return treeResponse{Tree: t, Warnings: t.Warnings()}
}

func (h *handler) handleListMethodologies(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.Methodologies.List(r.Context())
	if err != nil {
		h.respondFailure(w, err, "server.handleListMethodologies")
		return
	}
	if list == nil {
		list = []methodology.Methodology{}
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *handler) handleActiveTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.deps.Methodologies.ActiveTree(r.Context())
	if err != nil {
		h.respondFailure(w, err, "server.handleActiveTree")
		return
	}
	h.writeJSON(w, http.StatusOK, newTreeResponse(tree))
}

func (h *handler) handleTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.deps.Methodologies.Tree(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondFailure(w, err, "server.handleTree")
		return
	}
	h.writeJSON(w, http.StatusOK, newTreeResponse(tree))
}

// handleCreateMethodology creates an empty methodology, or a whole tree when
// the body carries pillars.
func (h *handler) handleCreateMethodology(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCreateMethodology"

	var body methodology.Tree
	if !h.decodeJSON(w, r, &body, op) {
		return
	}

	if len(body.Pillars) > 0 {
		tree, err := h.deps.Methodologies.Import(r.Context(), body)
		if err != nil {
			h.respondFailure(w, err, op)
			return
		}
		h.writeJSON(w, http.StatusCreated, newTreeResponse(tree))
		return
	}

	m, err := h.deps.Methodologies.Create(r.Context(), body.Methodology)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusCreated, newTreeResponse(methodology.Tree{Methodology: m, Pillars: []methodology.Pillar{}}))
}

func (h *handler) handleImportMethodology(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleImportMethodology"

	if h.maxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("failed to read document: %v", err), op)
		return
	}

	tree, err := methodology.UnmarshalYAML(data)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	tree, err = h.deps.Methodologies.Import(r.Context(), tree)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusCreated, newTreeResponse(tree))
}

func (h *handler) handleExportMethodology(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleExportMethodology"

	tree, err := h.deps.Methodologies.Tree(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	data, err := methodology.MarshalYAML(tree)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}

	w.Header().Set("Content-Type", "application/x-yaml")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName(tree.Version)+".yaml"))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("failed to write methodology export",
			zap.String("op", op),
			zap.Error(err),
		)
	}
}

func (h *handler) handleDeleteMethodology(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Methodologies.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondFailure(w, err, "server.handleDeleteMethodology")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleActivateMethodology(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleActivateMethodology"

	id := chi.URLParam(r, "id")
	if err := h.deps.Methodologies.SetActive(r.Context(), id); err != nil {
		h.respondFailure(w, err, op)
		return
	}
	m, err := h.deps.Methodologies.Get(r.Context(), id)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, m)
}

func (h *handler) handleCreatePillar(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCreatePillar"

	var p methodology.Pillar
	if !h.decodeJSON(w, r, &p, op) {
		return
	}
	p.MethodologyID = chi.URLParam(r, "id")
	created, err := h.deps.Pillars.Create(r.Context(), p)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *handler) handleUpdatePillar(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleUpdatePillar"

	var p methodology.Pillar
	if !h.decodeJSON(w, r, &p, op) {
		return
	}
	p.ID = chi.URLParam(r, "id")
	if err := h.deps.Pillars.Update(r.Context(), p); err != nil {
		h.respondFailure(w, err, op)
		return
	}
	updated, err := h.deps.Pillars.Get(r.Context(), p.ID)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *handler) handleDeletePillar(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Pillars.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondFailure(w, err, "server.handleDeletePillar")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleCreateCriterion(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCreateCriterion"

	var c methodology.Criterion
	if !h.decodeJSON(w, r, &c, op) {
		return
	}
	c.PillarID = chi.URLParam(r, "id")
	created, err := h.deps.Criteria.Create(r.Context(), c)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *handler) handleUpdateCriterion(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleUpdateCriterion"

	var c methodology.Criterion
	if !h.decodeJSON(w, r, &c, op) {
		return
	}
	c.ID = chi.URLParam(r, "id")
	if err := h.deps.Criteria.Update(r.Context(), c); err != nil {
		h.respondFailure(w, err, op)
		return
	}
	updated, err := h.deps.Criteria.Get(r.Context(), c.ID)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *handler) handleDeleteCriterion(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Criteria.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondFailure(w, err, "server.handleDeleteCriterion")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleCreateRange(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCreateRange"

	var rg scoring.Range
	if !h.decodeJSON(w, r, &rg, op) {
		return
	}
	rg.CriterionID = chi.URLParam(r, "id")
	created, err := h.deps.Ranges.Create(r.Context(), rg)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *handler) handleDeleteRange(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Ranges.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondFailure(w, err, "server.handleDeleteRange")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fileName turns a version label into a safe download name.
func fileName(version string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		case r == ' ':
			return '-'
		default:
			return -1
		}
	}, strings.TrimSpace(version))
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", ".")
	}
	name = strings.Trim(name, ".-")
	if name == "" {
		return "methodology"
	}
	return name
}
