package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rodrigomagnidea-lab/EzValuation/internal/fund"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/market"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/methodology"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/store"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/constants"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubMethodologies struct {
	trees  map[string]methodology.Tree
	active string
}

func (s *stubMethodologies) Tree(_ context.Context, id string) (methodology.Tree, error) {
	t, ok := s.trees[id]
	if !ok {
		return methodology.Tree{}, store.ErrNotFound
	}
	return t, nil
}

func (s *stubMethodologies) ActiveTree(ctx context.Context) (methodology.Tree, error) {
	if s.active == "" {
		return methodology.Tree{}, store.ErrNotFound
	}
	return s.Tree(ctx, s.active)
}

type stubIndices map[string]market.Index

func (s stubIndices) GetByName(_ context.Context, name string) (market.Index, error) {
	idx, ok := s[name]
	if !ok {
		return market.Index{}, store.ErrNotFound
	}
	return idx, nil
}

type memoryAnalyses struct {
	items map[string]store.Analysis
	seq   int
}

func (m *memoryAnalyses) Create(_ context.Context, a store.Analysis) (store.Analysis, error) {
	m.seq++
	a.ID = fmt.Sprintf("a%d", m.seq)
	m.items[a.ID] = a
	return a, nil
}

func (m *memoryAnalyses) Update(_ context.Context, a store.Analysis) (store.Analysis, error) {
	if _, ok := m.items[a.ID]; !ok {
		return a, store.ErrNotFound
	}
	m.items[a.ID] = a
	return a, nil
}

func (m *memoryAnalyses) Get(_ context.Context, id string) (store.Analysis, error) {
	a, ok := m.items[id]
	if !ok {
		return a, store.ErrNotFound
	}
	return a, nil
}

func (m *memoryAnalyses) ListByUser(_ context.Context, userID string) ([]store.Analysis, error) {
	var out []store.Analysis
	for _, a := range m.items {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

type stubQuotes struct {
	quote *fund.Quote
	err   error
}

func (s stubQuotes) Quote(context.Context, string) (*fund.Quote, error) {
	return s.quote, s.err
}

func newTestService(quotes fund.Provider, indices stubIndices) (*Service, *memoryAnalyses) {
	tree := testTree()
	repo := &memoryAnalyses{items: map[string]store.Analysis{}}
	methodologies := &stubMethodologies{trees: map[string]methodology.Tree{tree.ID: tree}, active: tree.ID}
	return NewService(methodologies, indices, repo, quotes, Defaults{}, zap.NewNop()), repo
}

func TestCreateStoresMethodologySnapshot(t *testing.T) {
	quote := &fund.Quote{Ticker: "HGLG11.SA", Price: 160}
	svc, repo := newTestService(stubQuotes{quote: quote}, nil)

	a, result, err := svc.Create(context.Background(), "u1", Request{
		Ticker: " hglg11 ", Status: store.StatusCompleted,
		Inputs: map[string]interface{}{"pvp": 0.9, "indep": true},
	})
	require.NoError(t, err)
	assert.Equal(t, "HGLG11", a.Ticker)
	assert.Equal(t, "m1", a.MethodologyID)
	assert.Equal(t, "v1", a.MethodologyVersion)
	require.True(t, result.Scored())
	assert.Equal(t, 7.0, *result.FinalScore)
	assert.Equal(t, 160.0, result.FundData.Price)

	stored, err := DecodeResult(repo.items[a.ID].Results)
	require.NoError(t, err)
	assert.Equal(t, 7.0, *stored.FinalScore)
}

func TestCreateManualModeOnQuoteFailure(t *testing.T) {
	svc, _ := newTestService(stubQuotes{err: errors.New("upstream down")}, nil)

	_, result, err := svc.Create(context.Background(), "u1", Request{
		Ticker: "HGLG11", Inputs: map[string]interface{}{"tenant": "Multi"},
	})
	require.NoError(t, err)
	assert.Nil(t, result.FundData)
	assert.True(t, result.Scored())
}

func TestCreateNoScore(t *testing.T) {
	svc, repo := newTestService(nil, nil)
	ctx := context.Background()

	_, _, err := svc.Create(ctx, "u1", Request{Ticker: "HGLG11", Status: store.StatusCompleted})
	assert.ErrorIs(t, err, scoring.ErrNoScore)
	assert.Empty(t, repo.items)

	a, result, err := svc.Create(ctx, "u1", Request{Ticker: "HGLG11", Status: store.StatusDraft})
	require.NoError(t, err)
	assert.Equal(t, store.StatusDraft, a.Status)
	assert.False(t, result.Scored())
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(nil, nil)
	ctx := context.Background()

	_, _, err := svc.Create(ctx, "u1", Request{Ticker: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = svc.Create(ctx, "u1", Request{Ticker: "HGLG11", Status: "archived"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetAndUpdateOwnership(t *testing.T) {
	quote := &fund.Quote{Ticker: "HGLG11.SA", Price: 150}
	svc, _ := newTestService(stubQuotes{quote: quote}, nil)
	ctx := context.Background()

	a, _, err := svc.Create(ctx, "owner", Request{Ticker: "HGLG11", Inputs: map[string]interface{}{"tenant": "Mono"}})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "intruder", a.ID, false)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Get(ctx, "admin-user", a.ID, true)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, "owner", "missing", false)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, _, err = svc.Update(ctx, "intruder", a.ID, Request{})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, result, err := svc.Update(ctx, "owner", a.ID, Request{
		Status: store.StatusCompleted, Inputs: map[string]interface{}{"tenant": "Multi"},
	})
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, updated.Status)
	assert.Equal(t, 9.0, *result.FinalScore)
	require.NotNil(t, result.FundData, "fund snapshot should be kept on update")
	assert.Equal(t, 150.0, result.FundData.Price)
}

func TestNTNBSpread(t *testing.T) {
	indices := stubIndices{constants.IndexNTNB: {Name: constants.IndexNTNB, Value: 6, Unit: "%"}}
	svc, _ := newTestService(nil, indices)

	spread, ntnb, err := svc.NTNBSpread(context.Background(), 0.10)
	require.NoError(t, err)
	assert.InDelta(t, 0.06, ntnb, 1e-12)
	assert.InDelta(t, 4.0, spread, 1e-9)

	empty, _ := newTestService(nil, stubIndices{})
	_, _, err = empty.NTNBSpread(context.Background(), 0.10)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestIPCADefaults(t *testing.T) {
	indices := stubIndices{
		constants.IndexIPCA: {Name: constants.IndexIPCA, Value: 0.05, Unit: "decimal"},
		constants.IndexNTNB: {Name: constants.IndexNTNB, Value: 7, Unit: "unknown"},
	}
	svc, _ := newTestService(nil, indices)

	ipca, premium := svc.IPCADefaults(context.Background())
	assert.InDelta(t, 0.05, ipca, 1e-12)
	assert.InDelta(t, constants.DefaultIPCAPremium, premium, 1e-12, "bad unit falls back to default")
}

func TestIPCADefaultsPrecedence(t *testing.T) {
	indices := stubIndices{
		constants.IndexIPCA: {Name: constants.IndexIPCA, Value: 5, Unit: constants.UnitPercent},
		constants.IndexNTNB: {Name: constants.IndexNTNB, Value: 6.5, Unit: constants.UnitPercent},
	}

	tests := []struct {
		name        string
		snapshot    map[string]float64
		active      bool
		indices     stubIndices
		wantIPCA    float64
		wantPremium float64
	}{
		{
			name:        "methodology snapshot wins",
			snapshot:    map[string]float64{constants.MethodologyIndexIPCA: 0.04, constants.MethodologyIndexNTNBReal: 0.055},
			active:      true,
			indices:     indices,
			wantIPCA:    0.04,
			wantPremium: 0.055,
		},
		{
			name:        "missing snapshot key falls back to market index",
			snapshot:    map[string]float64{constants.MethodologyIndexIPCA: 0.04},
			active:      true,
			indices:     indices,
			wantIPCA:    0.04,
			wantPremium: 0.065,
		},
		{
			name:        "no active methodology uses market indices",
			active:      false,
			indices:     indices,
			wantIPCA:    0.05,
			wantPremium: 0.065,
		},
		{
			name:        "nothing stored uses configured defaults",
			snapshot:    map[string]float64{"cdi": 0.1},
			active:      true,
			indices:     stubIndices{},
			wantIPCA:    constants.DefaultIPCA,
			wantPremium: constants.DefaultIPCAPremium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := testTree()
			tree.Indices = tt.snapshot
			methodologies := &stubMethodologies{trees: map[string]methodology.Tree{tree.ID: tree}}
			if tt.active {
				methodologies.active = tree.ID
			}
			svc := NewService(methodologies, tt.indices, &memoryAnalyses{items: map[string]store.Analysis{}},
				nil, Defaults{}, zap.NewNop())

			ipca, premium := svc.IPCADefaults(context.Background())
			assert.InDelta(t, tt.wantIPCA, ipca, 1e-12)
			assert.InDelta(t, tt.wantPremium, premium, 1e-12)
		})
	}
}
