package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/market"
	"go.uber.org/zap"
)

// IndexRepository manages the global market indices.
type IndexRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewIndexRepository creates a repository on db.
func NewIndexRepository(db *DB) *IndexRepository {
	return &IndexRepository{db: db.conn, logger: db.logger}
}

const indexColumns = "id, name, value, unit, description, updated_at"

func scanIndex(row rowScanner) (market.Index, error) {
	var (
		idx       market.Index
		updatedAt string
	)
	if err := row.Scan(&idx.ID, &idx.Name, &idx.Value, &idx.Unit, &idx.Description, &updatedAt); err != nil {
		return idx, err
	}
	t, err := parseTime(updatedAt)
	if err != nil {
		return idx, err
	}
	idx.UpdatedAt = t
	return idx, nil
}

// List returns all indices ordered by name.
func (r *IndexRepository) List(ctx context.Context) ([]market.Index, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+indexColumns+" FROM market_indices ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list market indices: %w", err)
	}
	defer rows.Close()

	var out []market.Index
	for rows.Next() {
		idx, err := scanIndex(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan market index: %w", err)
		}
		out = append(out, idx)
	}
	return out, rows.Err()
}

// GetByName returns the index with the given name.
func (r *IndexRepository) GetByName(ctx context.Context, name string) (market.Index, error) {
	idx, err := scanIndex(r.db.QueryRowContext(ctx,
		"SELECT "+indexColumns+" FROM market_indices WHERE name = ?", name))
	if errors.Is(err, sql.ErrNoRows) {
		return idx, fmt.Errorf("market index %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return idx, fmt.Errorf("failed to get market index %s: %w", name, err)
	}
	return idx, nil
}

// Update sets the value of an index, and its unit when unit is not empty.
func (r *IndexRepository) Update(ctx context.Context, id string, value float64, unit string) (market.Index, error) {
	if unit != "" && !market.ValidUnit(unit) {
		return market.Index{}, fmt.Errorf("%w %q", market.ErrUnknownUnit, unit)
	}

	res, err := r.db.ExecContext(ctx,
		"UPDATE market_indices SET value = ?, unit = COALESCE(NULLIF(?, ''), unit), updated_at = ? WHERE id = ?",
		value, unit, formatTime(now()), id)
	if err != nil {
		return market.Index{}, fmt.Errorf("failed to update market index %s: %w", id, err)
	}
	if err := requireOneRow(res, "market index", id); err != nil {
		return market.Index{}, err
	}

	idx, err := scanIndex(r.db.QueryRowContext(ctx,
		"SELECT "+indexColumns+" FROM market_indices WHERE id = ?", id))
	if err != nil {
		return idx, fmt.Errorf("failed to reload market index %s: %w", id, err)
	}

	r.logger.Info("market index updated",
		zap.String("op", "store.IndexRepository.Update"),
		zap.String("name", idx.Name),
		zap.Float64("value", idx.Value),
		zap.String("unit", idx.Unit),
	)
	return idx, nil
}

// Upsert inserts an index or replaces the value, unit and description of the
// index with the same name.
func (r *IndexRepository) Upsert(ctx context.Context, idx market.Index) error {
	if !market.ValidUnit(idx.Unit) {
		return fmt.Errorf("%w %q for index %s", market.ErrUnknownUnit, idx.Unit, idx.Name)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO market_indices (id, name, value, unit, description, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET
		     value = excluded.value,
		     unit = excluded.unit,
		     description = excluded.description,
		     updated_at = excluded.updated_at`,
		uuid.NewString(), idx.Name, idx.Value, idx.Unit, idx.Description, formatTime(now()))
	if err != nil {
		return fmt.Errorf("failed to upsert market index %s: %w", idx.Name, err)
	}
	return nil
}

// Seed inserts the given indices that do not exist yet. Existing values are
// left untouched.
func (r *IndexRepository) Seed(ctx context.Context, indices []market.Index) error {
	seeded := 0
	err := WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		for _, idx := range indices {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO market_indices (id, name, value, unit, description, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT (name) DO NOTHING`,
				uuid.NewString(), idx.Name, idx.Value, idx.Unit, idx.Description, formatTime(now()))
			if err != nil {
				return fmt.Errorf("failed to seed market index %s: %w", idx.Name, err)
			}
			if n, _ := res.RowsAffected(); n == 1 {
				seeded++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if seeded > 0 {
		r.logger.Info("market indices seeded",
			zap.String("op", "store.IndexRepository.Seed"),
			zap.Int("count", seeded),
		)
	}
	return nil
}
