package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/methodology"
	"go.uber.org/zap"
)

// PillarRepository manages the pillars of a methodology.
type PillarRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPillarRepository creates a repository on db.
func NewPillarRepository(db *DB) *PillarRepository {
	return &PillarRepository{db: db.conn, logger: db.logger}
}

// Create appends a pillar to its methodology.
func (r *PillarRepository) Create(ctx context.Context, p methodology.Pillar) (methodology.Pillar, error) {
	if err := methodology.ValidatePillar(p); err != nil {
		return p, err
	}
	err := WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		if err := exists(ctx, tx, "methodologies", "methodology", p.MethodologyID); err != nil {
			return err
		}
		pos, err := nextPosition(ctx, tx, "pillars", "methodology_id", p.MethodologyID)
		if err != nil {
			return err
		}
		p.Position = pos
		return insertPillar(ctx, tx, &p)
	})
	if err != nil {
		return p, err
	}

	r.logger.Info("pillar created",
		zap.String("op", "store.PillarRepository.Create"),
		zap.String("id", p.ID),
		zap.String("methodology_id", p.MethodologyID),
	)
	return p, nil
}

func insertPillar(ctx context.Context, tx *sql.Tx, p *methodology.Pillar) error {
	p.ID = uuid.NewString()
	_, err := tx.ExecContext(ctx,
		`INSERT INTO pillars (id, methodology_id, name, weight, description, position)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.MethodologyID, p.Name, p.Weight, p.Description, p.Position)
	if err != nil {
		return fmt.Errorf("failed to insert pillar %q: %w", p.Name, err)
	}
	return nil
}

// Get returns a pillar without its criteria.
func (r *PillarRepository) Get(ctx context.Context, id string) (methodology.Pillar, error) {
	var p methodology.Pillar
	err := r.db.QueryRowContext(ctx,
		"SELECT id, methodology_id, name, weight, description, position FROM pillars WHERE id = ?", id).
		Scan(&p.ID, &p.MethodologyID, &p.Name, &p.Weight, &p.Description, &p.Position)
	if errors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("pillar %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return p, fmt.Errorf("failed to get pillar %s: %w", id, err)
	}
	return p, nil
}

// Update changes the name, weight and description of a pillar.
func (r *PillarRepository) Update(ctx context.Context, p methodology.Pillar) error {
	if err := methodology.ValidatePillar(p); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE pillars SET name = ?, weight = ?, description = ? WHERE id = ?",
		p.Name, p.Weight, p.Description, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update pillar %s: %w", p.ID, err)
	}
	return requireOneRow(res, "pillar", p.ID)
}

// Delete removes a pillar and everything beneath it.
func (r *PillarRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM pillars WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete pillar %s: %w", id, err)
	}
	if err := requireOneRow(res, "pillar", id); err != nil {
		return err
	}

	r.logger.Info("pillar deleted",
		zap.String("op", "store.PillarRepository.Delete"),
		zap.String("id", id),
	)
	return nil
}

func listPillars(ctx context.Context, db *sql.DB, methodologyID string) ([]methodology.Pillar, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, methodology_id, name, weight, description, position
		 FROM pillars WHERE methodology_id = ? ORDER BY position, rowid`, methodologyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pillars: %w", err)
	}
	defer rows.Close()

	var out []methodology.Pillar
	for rows.Next() {
		var p methodology.Pillar
		if err := rows.Scan(&p.ID, &p.MethodologyID, &p.Name, &p.Weight, &p.Description, &p.Position); err != nil {
			return nil, fmt.Errorf("failed to scan pillar: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
