// Package server exposes the EzValuation JSON API over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/analysis"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/fund"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/market"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/methodology"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/store"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/constants"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/scoring"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/valuation"
	"go.uber.org/zap"
)

// Dependencies are the collaborators the handlers delegate to.
type Dependencies struct {
	DB            *store.DB
	Methodologies *store.MethodologyRepository
	Pillars       *store.PillarRepository
	Criteria      *store.CriterionRepository
	Ranges        *store.RangeRepository
	Indices       *store.IndexRepository
	Analyses      *analysis.Service

	// Valuation horizon and growth used when a request leaves them out.
	ProjectionYears int
	TerminalGrowth  float64
}

type handler struct {
	deps        Dependencies
	logger      *zap.Logger
	maxBodySize int64
	version     string
}

// NewHandler builds the router serving the API.
func NewHandler(deps Dependencies, cfg *Config, logger *zap.Logger, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = &Config{}
		_ = cfg.normalize()
	}
	if deps.ProjectionYears <= 0 {
		deps.ProjectionYears = constants.DefaultProjectionYears
	}
	if deps.TerminalGrowth == 0 {
		deps.TerminalGrowth = constants.DefaultTerminalGrowth
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		deps:        deps,
		logger:      logger,
		maxBodySize: cfg.BodySizeBytes(),
		version:     trimmedVersion,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.loggingMiddleware)
	r.Use(middleware.Timeout(60 * time.Second))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", constants.HeaderUserID, constants.HeaderUserRole},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/health", h.handleHealth)
	r.Get("/api/version", h.handleVersion)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.identity)

		r.Route("/methodologies", func(r chi.Router) {
			r.Get("/", h.handleListMethodologies)
			r.Get("/active", h.handleActiveTree)
			r.Get("/{id}/tree", h.handleTree)
			r.Get("/{id}/export", h.handleExportMethodology)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Post("/", h.handleCreateMethodology)
				r.Post("/import", h.handleImportMethodology)
				r.Delete("/{id}", h.handleDeleteMethodology)
				r.Post("/{id}/activate", h.handleActivateMethodology)
				r.Post("/{id}/pillars", h.handleCreatePillar)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Put("/pillars/{id}", h.handleUpdatePillar)
			r.Delete("/pillars/{id}", h.handleDeletePillar)
			r.Post("/pillars/{id}/criteria", h.handleCreateCriterion)
			r.Put("/criteria/{id}", h.handleUpdateCriterion)
			r.Delete("/criteria/{id}", h.handleDeleteCriterion)
			r.Post("/criteria/{id}/ranges", h.handleCreateRange)
			r.Delete("/ranges/{id}", h.handleDeleteRange)
			r.Post("/indices", h.handleUpsertIndex)
			r.Put("/indices/{id}", h.handleUpdateIndex)
		})

		r.Get("/indices", h.handleListIndices)
		r.Post("/evaluate", h.handleEvaluate)

		r.Route("/analyses", func(r chi.Router) {
			r.Post("/score", h.handlePreview)
			r.Post("/", h.handleCreateAnalysis)
			r.Get("/", h.handleListAnalyses)
			r.Get("/{id}", h.handleGetAnalysis)
			r.Put("/{id}", h.handleUpdateAnalysis)
			r.Get("/{id}/export", h.handleExportAnalysis)
		})

		r.Route("/valuation", func(r chi.Router) {
			r.Post("/gordon", h.handleGordon)
			r.Post("/fcfe", h.handleFCFE)
			r.Post("/ipca-plus", h.handleIPCAPlus)
			r.Post("/cap-rate", h.handleCapRate)
			r.Post("/p-vp", h.handlePVP)
			r.Post("/vacancy", h.handleVacancy)
			r.Post("/ntnb-spread", h.handleNTNBSpread)
		})

		r.Get("/funds/{ticker}", h.handleFund)
	})

	return r
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if h.deps.DB != nil {
		if err := h.deps.DB.Ping(r.Context()); err != nil {
			h.respondErrorWithOp(w, http.StatusServiceUnavailable, "database unavailable", "server.handleHealth")
			return
		}
	}
	h.writeJSON(w, http.StatusOK, status)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

// decodeJSON reads a JSON body into dst, enforcing the body size limit.
// It writes the error response itself and reports whether decoding succeeded.
func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, op string) bool {
	if h.maxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds limit of %d bytes", h.maxBodySize), op)
			return false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return false
	}
	return true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, fund.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, analysis.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, scoring.ErrNoScore):
		return http.StatusUnprocessableEntity
	case errors.Is(err, valuation.ErrInvalidParameter),
		errors.Is(err, analysis.ErrInvalidInput),
		errors.Is(err, methodology.ErrInvalid),
		errors.Is(err, market.ErrUnknownUnit):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) respondFailure(w http.ResponseWriter, err error, op string) {
	h.respondErrorWithOp(w, statusFor(err), err.Error(), op)
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("op", op),
			zap.Int("status", status),
			zap.String("error", msg),
		)
	} else {
		h.logger.Debug("request rejected",
			zap.String("op", op),
			zap.Int("status", status),
			zap.String("error", msg),
		)
	}

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response",
			zap.String("op", "server.writeJSON"),
			zap.Error(err),
		)
	}
}
