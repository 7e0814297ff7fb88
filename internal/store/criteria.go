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

// CriterionRepository manages criteria of pillars.
type CriterionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCriterionRepository creates a repository on db.
func NewCriterionRepository(db *DB) *CriterionRepository {
	return &CriterionRepository{db: db.conn, logger: db.logger}
}

const criterionColumns = "c.id, c.pillar_id, c.name, c.type, c.unit, c.rule_description, c.position"

func scanCriterion(row rowScanner) (methodology.Criterion, error) {
	var (
		c   methodology.Criterion
		typ string
	)
	err := row.Scan(&c.ID, &c.PillarID, &c.Name, &typ, &c.Unit, &c.RuleDescription, &c.Position)
	c.Type = scoring.CriterionType(typ)
	return c, err
}

// Create appends a criterion to its pillar.
func (r *CriterionRepository) Create(ctx context.Context, c methodology.Criterion) (methodology.Criterion, error) {
	if err := methodology.ValidateCriterion(c); err != nil {
		return c, err
	}
	err := WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		if err := exists(ctx, tx, "pillars", "pillar", c.PillarID); err != nil {
			return err
		}
		pos, err := nextPosition(ctx, tx, "criteria", "pillar_id", c.PillarID)
		if err != nil {
			return err
		}
		c.Position = pos
		return insertCriterion(ctx, tx, &c)
	})
	if err != nil {
		return c, err
	}

	r.logger.Info("criterion created",
		zap.String("op", "store.CriterionRepository.Create"),
		zap.String("id", c.ID),
		zap.String("pillar_id", c.PillarID),
		zap.String("type", string(c.Type)),
	)
	return c, nil
}

func insertCriterion(ctx context.Context, tx *sql.Tx, c *methodology.Criterion) error {
	c.ID = uuid.NewString()
	_, err := tx.ExecContext(ctx,
		`INSERT INTO criteria (id, pillar_id, name, type, unit, rule_description, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.PillarID, c.Name, string(c.Type), c.Unit, c.RuleDescription, c.Position)
	if err != nil {
		return fmt.Errorf("failed to insert criterion %q: %w", c.Name, err)
	}
	return nil
}

// Get returns a criterion without its ranges.
func (r *CriterionRepository) Get(ctx context.Context, id string) (methodology.Criterion, error) {
	c, err := scanCriterion(r.db.QueryRowContext(ctx,
		"SELECT "+criterionColumns+" FROM criteria c WHERE c.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("criterion %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return c, fmt.Errorf("failed to get criterion %s: %w", id, err)
	}
	return c, nil
}

// Update changes the definition of a criterion. Changing its type does not
// touch existing ranges.
func (r *CriterionRepository) Update(ctx context.Context, c methodology.Criterion) error {
	if err := methodology.ValidateCriterion(c); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE criteria SET name = ?, type = ?, unit = ?, rule_description = ? WHERE id = ?",
		c.Name, string(c.Type), c.Unit, c.RuleDescription, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update criterion %s: %w", c.ID, err)
	}
	return requireOneRow(res, "criterion", c.ID)
}

// Delete removes a criterion and its ranges.
func (r *CriterionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM criteria WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete criterion %s: %w", id, err)
	}
	if err := requireOneRow(res, "criterion", id); err != nil {
		return err
	}

	r.logger.Info("criterion deleted",
		zap.String("op", "store.CriterionRepository.Delete"),
		zap.String("id", id),
	)
	return nil
}

func listCriteria(ctx context.Context, db *sql.DB, methodologyID string) ([]methodology.Criterion, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+criterionColumns+`
		 FROM criteria c JOIN pillars p ON p.id = c.pillar_id
		 WHERE p.methodology_id = ? ORDER BY c.position, c.rowid`, methodologyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list criteria: %w", err)
	}
	defer rows.Close()

	var out []methodology.Criterion
	for rows.Next() {
		c, err := scanCriterion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan criterion: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
