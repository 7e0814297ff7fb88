package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rodrigomagnidea-lab/EzValuation/internal/fund"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/market"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/methodology"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/store"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/constants"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/scoring"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/validation"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/valuation"
	"go.uber.org/zap"
)

// ErrForbidden is returned when a user touches another user's analysis.
var ErrForbidden = errors.New("analysis belongs to another user")

// MethodologySource loads methodology trees.
type MethodologySource interface {
	Tree(ctx context.Context, id string) (methodology.Tree, error)
	ActiveTree(ctx context.Context) (methodology.Tree, error)
}

// IndexSource reads market indices by name.
type IndexSource interface {
	GetByName(ctx context.Context, name string) (market.Index, error)
}

// Repository persists analyses.
type Repository interface {
	Create(ctx context.Context, a store.Analysis) (store.Analysis, error)
	Update(ctx context.Context, a store.Analysis) (store.Analysis, error)
	Get(ctx context.Context, id string) (store.Analysis, error)
	ListByUser(ctx context.Context, userID string) ([]store.Analysis, error)
}

// Defaults are used when an index is missing or unusable.
type Defaults struct {
	IPCA    float64
	Premium float64
}

// Service coordinates scoring, fund lookups and persistence.
type Service struct {
	methodologies MethodologySource
	indices       IndexSource
	analyses      Repository
	quotes        fund.Provider
	defaults      Defaults
	logger        *zap.Logger
}

// NewService wires a Service. quotes may be nil, in which case analyses are
// always created in manual mode.
func NewService(methodologies MethodologySource, indices IndexSource, analyses Repository,
	quotes fund.Provider, defaults Defaults, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaults.IPCA == 0 {
		defaults.IPCA = constants.DefaultIPCA
	}
	if defaults.Premium == 0 {
		defaults.Premium = constants.DefaultIPCAPremium
	}
	return &Service{
		methodologies: methodologies,
		indices:       indices,
		analyses:      analyses,
		quotes:        quotes,
		defaults:      defaults,
		logger:        logger,
	}
}

// Request carries the user-editable part of an analysis.
type Request struct {
	Ticker    string                 `json:"ticker"`
	Segment   string                 `json:"segment"`
	Status    store.Status           `json:"status"`
	Inputs    map[string]interface{} `json:"inputs"`
	Overrides map[string]string      `json:"overrides"`
}

// Preview scores the inputs against the active methodology without saving.
func (s *Service) Preview(ctx context.Context, inputs map[string]interface{}, overrides map[string]string) (Result, methodology.Methodology, error) {
	tree, err := s.methodologies.ActiveTree(ctx)
	if err != nil {
		return Result{}, methodology.Methodology{}, fmt.Errorf("failed to load active methodology: %w", err)
	}
	result, err := Score(tree, inputs, overrides)
	return result, tree.Methodology, err
}

// Create scores a new analysis against the active methodology and saves it.
// A failed fund lookup leaves fund_data empty. A completed analysis must be
// scorable; a draft is saved even without a score.
func (s *Service) Create(ctx context.Context, userID string, req Request) (store.Analysis, *Result, error) {
	const op = "analysis.Service.Create"

	if err := validation.ValidateTicker(req.Ticker); err != nil {
		return store.Analysis{}, nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	ticker := strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(req.Ticker)), constants.TickerSuffix)
	status, err := normalizeStatus(req.Status)
	if err != nil {
		return store.Analysis{}, nil, err
	}

	tree, err := s.methodologies.ActiveTree(ctx)
	if err != nil {
		return store.Analysis{}, nil, fmt.Errorf("failed to load active methodology: %w", err)
	}

	result, err := s.scoreForSave(tree, req, status)
	if err != nil {
		return store.Analysis{}, nil, err
	}
	result.FundData = s.lookupFund(ctx, ticker)

	encoded, err := result.Encode()
	if err != nil {
		return store.Analysis{}, nil, err
	}

	a, err := s.analyses.Create(ctx, store.Analysis{
		UserID:             userID,
		Ticker:             ticker,
		Segment:            strings.TrimSpace(req.Segment),
		Status:             status,
		MethodologyID:      tree.ID,
		MethodologyVersion: tree.Version,
		Inputs:             req.Inputs,
		Overrides:          req.Overrides,
		Results:            encoded,
	})
	if err != nil {
		return store.Analysis{}, nil, fmt.Errorf("failed to save analysis: %w", err)
	}

	s.logger.Info("analysis saved",
		zap.String("op", op),
		zap.String("id", a.ID),
		zap.String("ticker", a.Ticker),
		zap.String("methodology_version", a.MethodologyVersion),
		zap.Bool("scored", result.Scored()),
		zap.Bool("manual_mode", result.FundData == nil),
	)
	return a, &result, nil
}

// Update rescores an analysis against the methodology it was created with
// and saves the new inputs. The previous fund snapshot is kept.
func (s *Service) Update(ctx context.Context, userID string, id string, req Request) (store.Analysis, *Result, error) {
	existing, err := s.Get(ctx, userID, id, false)
	if err != nil {
		return store.Analysis{}, nil, err
	}
	status, err := normalizeStatus(req.Status)
	if err != nil {
		return store.Analysis{}, nil, err
	}

	tree, err := s.methodologies.Tree(ctx, existing.MethodologyID)
	if err != nil {
		return store.Analysis{}, nil, fmt.Errorf("failed to load methodology %s of analysis: %w", existing.MethodologyVersion, err)
	}

	result, err := s.scoreForSave(tree, req, status)
	if err != nil {
		return store.Analysis{}, nil, err
	}
	if previous, err := DecodeResult(existing.Results); err == nil && previous != nil {
		result.FundData = previous.FundData
	}

	encoded, err := result.Encode()
	if err != nil {
		return store.Analysis{}, nil, err
	}

	existing.Status = status
	existing.Inputs = req.Inputs
	existing.Overrides = req.Overrides
	existing.Results = encoded
	if seg := strings.TrimSpace(req.Segment); seg != "" {
		existing.Segment = seg
	}

	updated, err := s.analyses.Update(ctx, existing)
	if err != nil {
		return store.Analysis{}, nil, fmt.Errorf("failed to update analysis: %w", err)
	}

	s.logger.Info("analysis updated",
		zap.String("op", "analysis.Service.Update"),
		zap.String("id", updated.ID),
		zap.String("status", string(updated.Status)),
	)
	return updated, &result, nil
}

func (s *Service) scoreForSave(tree methodology.Tree, req Request, status store.Status) (Result, error) {
	result, err := Score(tree, req.Inputs, req.Overrides)
	if err != nil {
		if errors.Is(err, scoring.ErrNoScore) && status == store.StatusDraft {
			return result, nil
		}
		return Result{}, err
	}
	return result, nil
}

func (s *Service) lookupFund(ctx context.Context, ticker string) *fund.Quote {
	if s.quotes == nil {
		return nil
	}
	quote, err := s.quotes.Quote(ctx, ticker)
	if err != nil {
		s.logger.Warn("fund lookup failed, continuing in manual mode",
			zap.String("op", "analysis.Service.lookupFund"),
			zap.String("ticker", ticker),
			zap.Error(err),
		)
		return nil
	}
	return quote
}

// Quote looks up live fund data directly.
func (s *Service) Quote(ctx context.Context, ticker string) (*fund.Quote, error) {
	if s.quotes == nil {
		return nil, fmt.Errorf("fund lookups are disabled")
	}
	return s.quotes.Quote(ctx, ticker)
}

// Get returns an analysis the user owns. Admins may read any analysis.
func (s *Service) Get(ctx context.Context, userID, id string, admin bool) (store.Analysis, error) {
	a, err := s.analyses.Get(ctx, id)
	if err != nil {
		return store.Analysis{}, err
	}
	if a.UserID != userID && !admin {
		return store.Analysis{}, fmt.Errorf("%w: %s", ErrForbidden, id)
	}
	return a, nil
}

// List returns the analyses of a user, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]store.Analysis, error) {
	return s.analyses.ListByUser(ctx, userID)
}

// NTNBSpread compares a fund yield (decimal) with the stored NTN-B yield.
// It returns the spread in percentage points and the NTN-B yield used.
func (s *Service) NTNBSpread(ctx context.Context, fiiYield float64) (float64, float64, error) {
	idx, err := s.indices.GetByName(ctx, constants.IndexNTNB)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load NTN-B index: %w", err)
	}
	ntnb, err := idx.Decimal()
	if err != nil {
		return 0, 0, err
	}
	return valuation.NTNBSpread(fiiYield, ntnb), ntnb, nil
}

// IPCADefaults returns the IPCA expectation and the real premium to prefill
// an IPCA+ valuation. Each rate comes from the active methodology's index
// snapshot when it carries one, then from the global IPCA and NTN-B market
// indices, and finally from the configured defaults.
func (s *Service) IPCADefaults(ctx context.Context) (ipca, premium float64) {
	var snapshot map[string]float64
	tree, err := s.methodologies.ActiveTree(ctx)
	if err == nil {
		snapshot = tree.Indices
	} else {
		s.logger.Debug("no active methodology for IPCA+ defaults",
			zap.String("op", "analysis.Service.IPCADefaults"),
			zap.Error(err),
		)
	}

	ipca, ok := snapshot[constants.MethodologyIndexIPCA]
	if !ok {
		ipca = s.indexOr(ctx, constants.IndexIPCA, s.defaults.IPCA)
	}
	premium, ok = snapshot[constants.MethodologyIndexNTNBReal]
	if !ok {
		premium = s.indexOr(ctx, constants.IndexNTNB, s.defaults.Premium)
	}
	return ipca, premium
}

func (s *Service) indexOr(ctx context.Context, name string, fallback float64) float64 {
	idx, err := s.indices.GetByName(ctx, name)
	if err == nil {
		var v float64
		if v, err = idx.Decimal(); err == nil {
			return v
		}
	}
	s.logger.Warn("using default for market index",
		zap.String("op", "analysis.Service.indexOr"),
		zap.String("index", name),
		zap.Float64("default", fallback),
		zap.Error(err),
	)
	return fallback
}

func normalizeStatus(status store.Status) (store.Status, error) {
	if status == "" {
		return store.StatusDraft, nil
	}
	if !status.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return status, nil
}
