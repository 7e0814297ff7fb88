package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rodrigomagnidea-lab/EzValuation/internal/market"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/methodology"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "test.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func bound(s string) *string { return &s }

func TestMigrateIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Migrate(context.Background()))
}

func TestMethodologyLifecycle(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewMethodologyRepository(db)

	_, err := repo.Active(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	m1, err := repo.Create(ctx, methodology.Methodology{Version: "v1", Indices: map[string]float64{"IPCA": 4.5}})
	require.NoError(t, err)
	m2, err := repo.Create(ctx, methodology.Methodology{Version: "v2"})
	require.NoError(t, err)
	assert.False(t, m1.IsActive)

	require.NoError(t, repo.SetActive(ctx, m1.ID))
	active, err := repo.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, m1.ID, active.ID)
	assert.Equal(t, 4.5, active.Indices["IPCA"])

	require.NoError(t, repo.SetActive(ctx, m2.ID))
	active, err = repo.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, m2.ID, active.ID)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	activeCount := 0
	for _, m := range list {
		if m.IsActive {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount)
	assert.Equal(t, m2.ID, list[0].ID, "newest first")

	_, err = repo.Create(ctx, methodology.Methodology{Version: "  "})
	assert.ErrorIs(t, err, methodology.ErrInvalid)
}

func TestSetActiveUnknownKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewMethodologyRepository(db)

	m, err := repo.Create(ctx, methodology.Methodology{Version: "v1"})
	require.NoError(t, err)
	require.NoError(t, repo.SetActive(ctx, m.ID))

	err = repo.SetActive(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)

	active, err := repo.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, m.ID, active.ID)
}

func buildTree(t *testing.T, db *DB) (methodology.Methodology, methodology.Pillar, methodology.Criterion) {
	t.Helper()
	ctx := context.Background()

	m, err := NewMethodologyRepository(db).Create(ctx, methodology.Methodology{Version: "v1"})
	require.NoError(t, err)
	p, err := NewPillarRepository(db).Create(ctx, methodology.Pillar{MethodologyID: m.ID, Name: "Gestão", Weight: 2})
	require.NoError(t, err)
	c, err := NewCriterionRepository(db).Create(ctx, methodology.Criterion{PillarID: p.ID, Name: "P/VP", Type: scoring.TypeNumeric})
	require.NoError(t, err)
	return m, p, c
}

func TestTreePreservesRangeOrder(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	m, _, c := buildTree(t, db)
	ranges := NewRangeRepository(db)

	// Low points first on purpose; storage must not reorder by points.
	labels := []string{"Caro", "Justo", "Barato"}
	bands := []scoring.Range{
		{Min: bound("1.1"), Label: "Caro", Points: 2, Color: scoring.ColorRed, Impact: scoring.ImpactPenaltyLight},
		{Min: bound("0.9"), Max: bound("1.1"), Label: "Justo", Points: 6, Color: scoring.ColorYellow, Impact: scoring.ImpactNeutral},
		{Max: bound("0.9"), Label: "Barato", Points: 10, Color: scoring.ColorGreen, Impact: scoring.ImpactNeutral},
	}
	for _, rg := range bands {
		rg.CriterionID = c.ID
		_, err := ranges.Create(ctx, rg)
		require.NoError(t, err)
	}

	tree, err := NewMethodologyRepository(db).Tree(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, tree.Pillars, 1)
	require.Len(t, tree.Pillars[0].Criteria, 1)
	got := tree.Pillars[0].Criteria[0].Ranges
	require.Len(t, got, 3)
	for i, rg := range got {
		assert.Equal(t, labels[i], rg.Label)
		assert.Equal(t, i, rg.Position)
	}
	assert.Nil(t, got[0].Max)
	assert.Nil(t, got[2].Min)
	require.NotNil(t, got[1].Min)
	assert.Equal(t, "0.9", *got[1].Min)

	// 1.1 belongs to both Caro and Justo; stored order picks Caro.
	matched, ok := scoring.Evaluate(scoring.Numeric(1.1), got)
	require.True(t, ok)
	assert.Equal(t, "Caro", matched.Label)
}

func TestRangeValidationAgainstCriterionType(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	_, _, c := buildTree(t, db)

	_, err := NewRangeRepository(db).Create(ctx, scoring.Range{
		CriterionID: c.ID, Min: bound("abc"), Label: "X", Color: scoring.ColorRed, Impact: scoring.ImpactNeutral,
	})
	assert.ErrorIs(t, err, methodology.ErrInvalid)

	_, err = NewRangeRepository(db).Create(ctx, scoring.Range{
		CriterionID: "missing", Label: "X", Color: scoring.ColorRed, Impact: scoring.ImpactNeutral,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	m, p, c := buildTree(t, db)

	_, err := NewRangeRepository(db).Create(ctx, scoring.Range{
		CriterionID: c.ID, Label: "Sim", Points: 10, Color: scoring.ColorGreen, Impact: scoring.ImpactNeutral,
	})
	require.NoError(t, err)

	require.NoError(t, NewMethodologyRepository(db).Delete(ctx, m.ID))

	_, err = NewPillarRepository(db).Get(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = NewCriterionRepository(db).Get(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	left, err := NewRangeRepository(db).ForCriterion(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	assert.ErrorIs(t, NewMethodologyRepository(db).Delete(ctx, m.ID), ErrNotFound)
}

func TestPillarAndCriterionUpdate(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	_, p, c := buildTree(t, db)
	pillars := NewPillarRepository(db)
	criteria := NewCriterionRepository(db)

	p.Weight = 3.5
	p.Description = "Qualidade da gestão"
	require.NoError(t, pillars.Update(ctx, p))
	got, err := pillars.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.5, got.Weight)
	assert.Equal(t, "Qualidade da gestão", got.Description)

	p.Weight = 0
	assert.ErrorIs(t, pillars.Update(ctx, p), methodology.ErrInvalid)

	c.Type = scoring.TypePercent
	c.Unit = "%"
	require.NoError(t, criteria.Update(ctx, c))
	gotC, err := criteria.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, scoring.TypePercent, gotC.Type)

	c.ID = "missing"
	assert.ErrorIs(t, criteria.Update(ctx, c), ErrNotFound)

	_, err = pillars.Create(ctx, methodology.Pillar{MethodologyID: "missing", Name: "X", Weight: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImportTree(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewMethodologyRepository(db)

	in := methodology.Tree{
		Methodology: methodology.Methodology{Version: "importada"},
		Pillars: []methodology.Pillar{
			{Name: "Gestão", Weight: 1, Criteria: []methodology.Criterion{
				{Name: "Independente", Type: scoring.TypeBoolean, Ranges: []scoring.Range{
					{Label: "Sim", Points: 10, Color: scoring.ColorGreen, Impact: scoring.ImpactNeutral},
					{Label: "Não", Points: 2, Color: scoring.ColorRed, Impact: scoring.ImpactPenaltyLight},
				}},
			}},
		},
	}

	out, err := repo.Import(ctx, in)
	require.NoError(t, err)
	require.NotEmpty(t, out.ID)

	loaded, err := repo.Tree(ctx, out.ID)
	require.NoError(t, err)
	assert.Equal(t, "importada", loaded.Version)
	require.Len(t, loaded.Pillars[0].Criteria[0].Ranges, 2)
	assert.Equal(t, "Não", loaded.Pillars[0].Criteria[0].Ranges[1].Label)
}

func TestIndexRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewIndexRepository(db)

	require.NoError(t, repo.Seed(ctx, market.DefaultIndices()))
	require.NoError(t, repo.Seed(ctx, market.DefaultIndices()))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 4)

	ntnb, err := repo.GetByName(ctx, "NTN-B")
	require.NoError(t, err)
	assert.Equal(t, 6.0, ntnb.Value)

	updated, err := repo.Update(ctx, ntnb.ID, 0.0625, "decimal")
	require.NoError(t, err)
	assert.Equal(t, 0.0625, updated.Value)
	assert.Equal(t, "decimal", updated.Unit)

	// Seeding again must not overwrite an admin edit.
	require.NoError(t, repo.Seed(ctx, market.DefaultIndices()))
	again, err := repo.GetByName(ctx, "NTN-B")
	require.NoError(t, err)
	assert.Equal(t, 0.0625, again.Value)

	_, err = repo.Update(ctx, ntnb.ID, 1, "pp")
	assert.ErrorIs(t, err, market.ErrUnknownUnit)
	_, err = repo.Update(ctx, "missing", 1, "")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetByName(ctx, "IGP-M")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Upsert(ctx, market.Index{Name: "IGP-M", Value: 3.1, Unit: "%"}))
	igpm, err := repo.GetByName(ctx, "IGP-M")
	require.NoError(t, err)
	assert.Equal(t, 3.1, igpm.Value)
}

func TestAnalysisRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewAnalysisRepository(db)

	first, err := repo.Create(ctx, Analysis{
		UserID: "u1", Ticker: "HGLG11", MethodologyID: "m1", MethodologyVersion: "v1",
		Inputs: map[string]interface{}{"c1": 0.95}, Overrides: map[string]string{"c2": "r9"},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, first.Status)

	second, err := repo.Create(ctx, Analysis{UserID: "u1", Ticker: "KNRI11", Status: StatusCompleted,
		MethodologyID: "m1", MethodologyVersion: "v1", Results: json.RawMessage(`{"final_score":7}`)})
	require.NoError(t, err)
	_, err = repo.Create(ctx, Analysis{UserID: "u2", Ticker: "XPML11", MethodologyID: "m1", MethodologyVersion: "v1"})
	require.NoError(t, err)

	list, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	got, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.95, got.Inputs["c1"])
	assert.Equal(t, "r9", got.Overrides["c2"])
	assert.Nil(t, got.Results)

	got.Status = StatusCompleted
	got.Results = json.RawMessage(`{"final_score":5.5}`)
	updated, err := repo.Update(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)
	assert.JSONEq(t, `{"final_score":5.5}`, string(updated.Results))
	assert.Equal(t, "v1", updated.MethodologyVersion)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	empty, err := repo.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = repo.Create(ctx, Analysis{Ticker: "X"})
	assert.Error(t, err)
}
