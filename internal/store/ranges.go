package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/methodology"
	"github.com/rodrigomagnidea-lab/EzValuation/pkg/scoring"
	"go.uber.org/zap"
)

// RangeRepository manages the threshold ranges of criteria.
type RangeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRangeRepository creates a repository on db.
func NewRangeRepository(db *DB) *RangeRepository {
	return &RangeRepository{db: db.conn, logger: db.logger}
}

// Create appends a range to its criterion. The range is validated against the
// criterion's declared type. Appending never reorders existing ranges.
func (r *RangeRepository) Create(ctx context.Context, rg scoring.Range) (scoring.Range, error) {
	err := WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		var typ string
		err := tx.QueryRowContext(ctx, "SELECT type FROM criteria WHERE id = ?", rg.CriterionID).Scan(&typ)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("criterion %s: %w", rg.CriterionID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load criterion %s: %w", rg.CriterionID, err)
		}
		if err := methodology.ValidateRange(scoring.CriterionType(typ), rg); err != nil {
			return err
		}
		pos, err := nextPosition(ctx, tx, "ranges", "criterion_id", rg.CriterionID)
		if err != nil {
			return err
		}
		rg.Position = pos
		return insertRange(ctx, tx, &rg)
	})
	if err != nil {
		return rg, err
	}

	r.logger.Info("range created",
		zap.String("op", "store.RangeRepository.Create"),
		zap.String("id", rg.ID),
		zap.String("criterion_id", rg.CriterionID),
		zap.Int("position", rg.Position),
	)
	return rg, nil
}

func insertRange(ctx context.Context, tx *sql.Tx, rg *scoring.Range) error {
	rg.ID = uuid.NewString()
	_, err := tx.ExecContext(ctx,
		`INSERT INTO ranges (id, criterion_id, min_value, max_value, label, points, color, impact, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rg.ID, rg.CriterionID, nullable(rg.Min), nullable(rg.Max), rg.Label, rg.Points,
		string(rg.Color), string(rg.Impact), rg.Position)
	if err != nil {
		return fmt.Errorf("failed to insert range %q: %w", rg.Label, err)
	}
	return nil
}

// Delete removes a range. Remaining ranges keep their positions.
func (r *RangeRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM ranges WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete range %s: %w", id, err)
	}
	if err := requireOneRow(res, "range", id); err != nil {
		return err
	}

	r.logger.Info("range deleted",
		zap.String("op", "store.RangeRepository.Delete"),
		zap.String("id", id),
	)
	return nil
}

// ForCriterion returns the ranges of one criterion in evaluation order.
func (r *RangeRepository) ForCriterion(ctx context.Context, criterionID string) ([]scoring.Range, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, criterion_id, min_value, max_value, label, points, color, impact, position
		 FROM ranges WHERE criterion_id = ? ORDER BY position, rowid`, criterionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ranges: %w", err)
	}
	defer rows.Close()

	var out []scoring.Range
	for rows.Next() {
		rg, err := scanRange(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rg)
	}
	return out, rows.Err()
}

func scanRange(row rowScanner) (scoring.Range, error) {
	var (
		rg            scoring.Range
		lo, hi        sql.NullString
		color, impact string
	)
	if err := row.Scan(&rg.ID, &rg.CriterionID, &lo, &hi, &rg.Label, &rg.Points, &color, &impact, &rg.Position); err != nil {
		return rg, fmt.Errorf("failed to scan range: %w", err)
	}
	if lo.Valid {
		rg.Min = &lo.String
	}
	if hi.Valid {
		rg.Max = &hi.String
	}
	rg.Color = scoring.Color(color)
	rg.Impact = scoring.Impact(impact)
	return rg, nil
}

// listRanges returns the ranges of every criterion of a methodology keyed by
// criterion id, each slice in evaluation order.
func listRanges(ctx context.Context, db *sql.DB, methodologyID string) (map[string][]scoring.Range, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT r.id, r.criterion_id, r.min_value, r.max_value, r.label, r.points, r.color, r.impact, r.position
		 FROM ranges r
		 JOIN criteria c ON c.id = r.criterion_id
		 JOIN pillars p ON p.id = c.pillar_id
		 WHERE p.methodology_id = ? ORDER BY r.criterion_id, r.position, r.rowid`, methodologyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ranges: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]scoring.Range)
	for rows.Next() {
		rg, err := scanRange(rows)
		if err != nil {
			return nil, err
		}
		out[rg.CriterionID] = append(out[rg.CriterionID], rg)
	}
	return out, rows.Err()
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
