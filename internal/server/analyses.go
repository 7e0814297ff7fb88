package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/analysis"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/fund"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/store"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/constants"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/output"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/scoring"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/validation"
	"go.uber.org/zap"
)

type previewRequest struct {
	Inputs    map[string]interface{} `json:"inputs"`
	Overrides map[string]string      `json:"overrides"`
}

type previewResponse struct {
	MethodologyID      string           `json:"methodology_id"`
	MethodologyVersion string           `json:"methodology_version"`
	Result             *analysis.Result `json:"result"`
	Error              string           `json:"error,omitempty"`
}

type analysisResponse struct {
	Analysis store.Analysis   `json:"analysis"`
	Result   *analysis.Result `json:"result,omitempty"`
}

// handlePreview scores inputs against the active methodology without saving.
// When nothing can be scored it answers 422 with the per-criterion detail so
// the caller can prompt for overrides.
func (h *handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	const op = "server.handlePreview"

	var req previewRequest
	if !h.decodeJSON(w, r, &req, op) {
		return
	}

	result, m, err := h.deps.Analyses.Preview(r.Context(), req.Inputs, req.Overrides)
	resp := previewResponse{MethodologyID: m.ID, MethodologyVersion: m.Version, Result: &result}
	if errors.Is(err, scoring.ErrNoScore) {
		resp.Error = err.Error()
		h.writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCreateAnalysis"

	var req analysis.Request
	if !h.decodeJSON(w, r, &req, op) {
		return
	}
	a, result, err := h.deps.Analyses.Create(r.Context(), currentUser(r).ID, req)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusCreated, analysisResponse{Analysis: a, Result: result})
}

func (h *handler) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.Analyses.List(r.Context(), currentUser(r).ID)
	if err != nil {
		h.respondFailure(w, err, "server.handleListAnalyses")
		return
	}
	if list == nil {
		list = []store.Analysis{}
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *handler) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleGetAnalysis"

	u := currentUser(r)
	a, err := h.deps.Analyses.Get(r.Context(), u.ID, chi.URLParam(r, "id"), u.Admin)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	result, err := analysis.DecodeResult(a.Results)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, analysisResponse{Analysis: a, Result: result})
}

func (h *handler) handleUpdateAnalysis(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleUpdateAnalysis"

	var req analysis.Request
	if !h.decodeJSON(w, r, &req, op) {
		return
	}
	a, result, err := h.deps.Analyses.Update(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"), req)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, analysisResponse{Analysis: a, Result: result})
}

func (h *handler) handleExportAnalysis(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleExportAnalysis"

	outputFormat := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	u := currentUser(r)
	a, err := h.deps.Analyses.Get(r.Context(), u.ID, chi.URLParam(r, "id"), u.Admin)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	result, err := analysis.DecodeResult(a.Results)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}

	var buf bytes.Buffer
	if err := output.Write(&buf, outputFormat, a, result); err != nil {
		h.respondFailure(w, err, op)
		return
	}

	ext := "txt"
	if outputFormat == constants.OutputFormatCSV {
		ext = "csv"
	}
	w.Header().Set("Content-Type", output.ContentType(outputFormat))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%s-%s.%s", a.Ticker, a.ID, ext)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("failed to write analysis export",
			zap.String("op", op),
			zap.Error(err),
		)
	}
}

func (h *handler) handleFund(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleFund"

	ticker := chi.URLParam(r, "ticker")
	if err := validation.ValidateTicker(ticker); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	quote, err := h.deps.Analyses.Quote(r.Context(), ticker)
	if err != nil {
		status := statusFor(err)
		if !errors.Is(err, fund.ErrNotFound) {
			status = http.StatusBadGateway
		}
		h.respondErrorWithOp(w, status, err.Error(), op)
		return
	}
	h.writeJSON(w, http.StatusOK, quote)
}
