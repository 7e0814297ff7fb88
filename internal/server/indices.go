package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/analysis"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/market"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/scoring"
)

type indexUpdateRequest struct {
	Value *float64 `json:"value"`
	Unit  string   `json:"unit"`
}

type evaluateRequest struct {
	CriterionID string                `json:"criterion_id"`
	Type        scoring.CriterionType `json:"type"`
	Ranges      []scoring.Range       `json:"ranges"`
	Value       interface{}           `json:"value"`
}

type evaluateResponse struct {
	Matched bool           `json:"matched"`
	Range   *scoring.Range `json:"range,omitempty"`
	Value   interface{}    `json:"value"`
}

func (h *handler) handleListIndices(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.Indices.List(r.Context())
	if err != nil {
		h.respondFailure(w, err, "server.handleListIndices")
		return
	}
	if list == nil {
		list = []market.Index{}
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *handler) handleUpdateIndex(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleUpdateIndex"

	var req indexUpdateRequest
	if !h.decodeJSON(w, r, &req, op) {
		return
	}
	if req.Value == nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "value is required", op)
		return
	}
	idx, err := h.deps.Indices.Update(r.Context(), chi.URLParam(r, "id"), *req.Value, req.Unit)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, idx)
}

// handleUpsertIndex adds an index, or replaces value, unit and description of
// the index with the same name.
func (h *handler) handleUpsertIndex(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleUpsertIndex"

	var idx market.Index
	if !h.decodeJSON(w, r, &idx, op) {
		return
	}
	idx.Name = strings.TrimSpace(idx.Name)
	if idx.Name == "" {
		h.respondErrorWithOp(w, http.StatusBadRequest, "name is required", op)
		return
	}
	if err := h.deps.Indices.Upsert(r.Context(), idx); err != nil {
		h.respondFailure(w, err, op)
		return
	}
	saved, err := h.deps.Indices.GetByName(r.Context(), idx.Name)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, saved)
}

// handleEvaluate matches a single value against the ranges of a stored
// criterion, or against ranges given inline with their type.
func (h *handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleEvaluate"

	var req evaluateRequest
	if !h.decodeJSON(w, r, &req, op) {
		return
	}

	typ, ranges := req.Type, req.Ranges
	if req.CriterionID != "" {
		c, err := h.deps.Criteria.Get(r.Context(), req.CriterionID)
		if err != nil {
			h.respondFailure(w, err, op)
			return
		}
		if ranges, err = h.deps.Ranges.ForCriterion(r.Context(), c.ID); err != nil {
			h.respondFailure(w, err, op)
			return
		}
		typ = c.Type
	}
	if !typ.Valid() {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("unsupported criterion type %q", typ), op)
		return
	}

	value, err := scoring.ParseCriterionValue(typ, req.Value)
	if err != nil {
		h.respondFailure(w, fmt.Errorf("%w: %v", analysis.ErrInvalidInput, err), op)
		return
	}

	resp := evaluateResponse{Value: value.Raw()}
	if matched, ok := scoring.Evaluate(value, ranges); ok {
		resp.Matched = true
		resp.Range = &matched
	}
	h.writeJSON(w, http.StatusOK, resp)
}
