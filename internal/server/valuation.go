package server

import (
	"net/http"

	"github.com/rodrigomagnidea-lab/EzValuation/pkg/valuation"
)

type gordonRequest struct {
	Dividend float64 `json:"dividend"`
	Growth   float64 `json:"growth"`
	Discount float64 `json:"discount"`
}

type fcfeRequest struct {
	Flows          []float64 `json:"flows"`
	Discount       float64   `json:"discount"`
	TerminalGrowth *float64  `json:"terminal_growth"`
}

type ipcaPlusRequest struct {
	MonthlyDividend float64  `json:"monthly_dividend"`
	IPCA            *float64 `json:"ipca"`
	Premium         *float64 `json:"premium"`
	Years           *int     `json:"years"`
}

type ipcaPlusResponse struct {
	valuation.IPCAPlusResult
	IPCA    float64 `json:"ipca"`
	Premium float64 `json:"premium"`
	Years   int     `json:"years"`
}

type capRateRequest struct {
	NOI           float64 `json:"noi"`
	PropertyValue float64 `json:"property_value"`
}

type pvpRequest struct {
	Price float64 `json:"price"`
	NAV   float64 `json:"nav"`
}

type vacancyRequest struct {
	Physical  float64 `json:"physical"`
	Financial float64 `json:"financial"`
}

type ntnbSpreadRequest struct {
	FIIYield  float64  `json:"fii_yield"`
	NTNBYield *float64 `json:"ntnb_yield"`
}

func (h *handler) handleGordon(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleGordon"

	var req gordonRequest
	if !h.decodeJSON(w, r, &req, op) {
		return
	}
	fair, err := valuation.Gordon(req.Dividend, req.Growth, req.Discount)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]float64{"fair_value": fair})
}

func (h *handler) handleFCFE(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleFCFE"

	var req fcfeRequest
	if !h.decodeJSON(w, r, &req, op) {
		return
	}
	growth := h.deps.TerminalGrowth
	if req.TerminalGrowth != nil {
		growth = *req.TerminalGrowth
	}
	res, err := valuation.FCFE(req.Flows, req.Discount, growth)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// handleIPCAPlus fills missing ipca and premium from the market indices and
// a missing horizon from configuration.
func (h *handler) handleIPCAPlus(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleIPCAPlus"

	var req ipcaPlusRequest
	if !h.decodeJSON(w, r, &req, op) {
		return
	}

	ipca, premium := 0.0, 0.0
	if req.IPCA == nil || req.Premium == nil {
		ipca, premium = h.deps.Analyses.IPCADefaults(r.Context())
	}
	if req.IPCA != nil {
		ipca = *req.IPCA
	}
	if req.Premium != nil {
		premium = *req.Premium
	}
	years := h.deps.ProjectionYears
	if req.Years != nil {
		years = *req.Years
	}

	res, err := valuation.IPCAPlus(req.MonthlyDividend, ipca, premium, years)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, ipcaPlusResponse{IPCAPlusResult: res, IPCA: ipca, Premium: premium, Years: years})
}

func (h *handler) handleCapRate(w http.ResponseWriter, r *http.Request) {
	var req capRateRequest
	if !h.decodeJSON(w, r, &req, "server.handleCapRate") {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]float64{"cap_rate": valuation.CapRate(req.NOI, req.PropertyValue)})
}

func (h *handler) handlePVP(w http.ResponseWriter, r *http.Request) {
	var req pvpRequest
	if !h.decodeJSON(w, r, &req, "server.handlePVP") {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]float64{"p_vp": valuation.PVP(req.Price, req.NAV)})
}

func (h *handler) handleVacancy(w http.ResponseWriter, r *http.Request) {
	var req vacancyRequest
	if !h.decodeJSON(w, r, &req, "server.handleVacancy") {
		return
	}
	h.writeJSON(w, http.StatusOK, valuation.Vacancy(req.Physical, req.Financial))
}

// handleNTNBSpread uses the stored NTN-B index unless the request supplies a yield.
func (h *handler) handleNTNBSpread(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleNTNBSpread"

	var req ntnbSpreadRequest
	if !h.decodeJSON(w, r, &req, op) {
		return
	}

	if req.NTNBYield != nil {
		h.writeJSON(w, http.StatusOK, map[string]float64{
			"spread":     valuation.NTNBSpread(req.FIIYield, *req.NTNBYield),
			"ntnb_yield": *req.NTNBYield,
		})
		return
	}

	spread, ntnb, err := h.deps.Analyses.NTNBSpread(r.Context(), req.FIIYield)
	if err != nil {
		h.respondFailure(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]float64{"spread": spread, "ntnb_yield": ntnb})
}
