package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rodrigomagnidea-lab/EzValuation/internal/methodology"
	"go.uber.org/zap"
)

// MethodologyRepository manages methodologies and loads their full trees.
type MethodologyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMethodologyRepository creates a repository on db.
func NewMethodologyRepository(db *DB) *MethodologyRepository {
	return &MethodologyRepository{db: db.conn, logger: db.logger}
}

const methodologyColumns = "id, version, is_active, indices, created_at"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMethodology(row rowScanner) (methodology.Methodology, error) {
	var (
		m         methodology.Methodology
		active    int
		indices   string
		createdAt string
	)
	if err := row.Scan(&m.ID, &m.Version, &active, &indices, &createdAt); err != nil {
		return m, err
	}
	m.IsActive = active == 1
	if indices != "" && indices != "{}" {
		if err := json.Unmarshal([]byte(indices), &m.Indices); err != nil {
			return m, fmt.Errorf("invalid indices snapshot for methodology %s: %w", m.ID, err)
		}
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return m, err
	}
	m.CreatedAt = t
	return m, nil
}

// List returns every methodology, newest first.
func (r *MethodologyRepository) List(ctx context.Context) ([]methodology.Methodology, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+methodologyColumns+" FROM methodologies ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list methodologies: %w", err)
	}
	defer rows.Close()

	var out []methodology.Methodology
	for rows.Next() {
		m, err := scanMethodology(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan methodology: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Get returns a methodology by id.
func (r *MethodologyRepository) Get(ctx context.Context, id string) (methodology.Methodology, error) {
	m, err := scanMethodology(r.db.QueryRowContext(ctx,
		"SELECT "+methodologyColumns+" FROM methodologies WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return m, fmt.Errorf("methodology %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return m, fmt.Errorf("failed to get methodology %s: %w", id, err)
	}
	return m, nil
}

// Active returns the active methodology.
func (r *MethodologyRepository) Active(ctx context.Context) (methodology.Methodology, error) {
	m, err := scanMethodology(r.db.QueryRowContext(ctx,
		"SELECT "+methodologyColumns+" FROM methodologies WHERE is_active = 1"))
	if errors.Is(err, sql.ErrNoRows) {
		return m, fmt.Errorf("active methodology: %w", ErrNotFound)
	}
	if err != nil {
		return m, fmt.Errorf("failed to get active methodology: %w", err)
	}
	return m, nil
}

// Create inserts an inactive methodology.
func (r *MethodologyRepository) Create(ctx context.Context, m methodology.Methodology) (methodology.Methodology, error) {
	if err := methodology.ValidateMethodology(m); err != nil {
		return m, err
	}
	err := WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		m, err = insertMethodology(ctx, tx, m)
		return err
	})
	if err != nil {
		return m, err
	}

	r.logger.Info("methodology created",
		zap.String("op", "store.MethodologyRepository.Create"),
		zap.String("id", m.ID),
		zap.String("version", m.Version),
	)
	return m, nil
}

func insertMethodology(ctx context.Context, tx *sql.Tx, m methodology.Methodology) (methodology.Methodology, error) {
	indices := []byte("{}")
	if len(m.Indices) > 0 {
		var err error
		if indices, err = json.Marshal(m.Indices); err != nil {
			return m, fmt.Errorf("failed to encode indices snapshot: %w", err)
		}
	}

	m.ID = uuid.NewString()
	m.IsActive = false
	m.CreatedAt = now()
	_, err := tx.ExecContext(ctx,
		"INSERT INTO methodologies (id, version, is_active, indices, created_at) VALUES (?, ?, 0, ?, ?)",
		m.ID, m.Version, string(indices), formatTime(m.CreatedAt))
	if err != nil {
		return m, fmt.Errorf("failed to insert methodology: %w", err)
	}
	return m, nil
}

// Delete removes a methodology together with its pillars, criteria and ranges.
func (r *MethodologyRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM methodologies WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete methodology %s: %w", id, err)
	}
	if err := requireOneRow(res, "methodology", id); err != nil {
		return err
	}

	r.logger.Info("methodology deleted",
		zap.String("op", "store.MethodologyRepository.Delete"),
		zap.String("id", id),
	)
	return nil
}

// SetActive makes id the only active methodology. Clearing the previous
// active flag and setting the new one happen in one transaction, so an
// unknown id leaves the previous activation in place.
func (r *MethodologyRepository) SetActive(ctx context.Context, id string) error {
	err := WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE methodologies SET is_active = 0 WHERE is_active = 1"); err != nil {
			return fmt.Errorf("failed to clear active methodology: %w", err)
		}
		res, err := tx.ExecContext(ctx, "UPDATE methodologies SET is_active = 1 WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to activate methodology %s: %w", id, err)
		}
		return requireOneRow(res, "methodology", id)
	})
	if err != nil {
		return err
	}

	r.logger.Info("methodology activated",
		zap.String("op", "store.MethodologyRepository.SetActive"),
		zap.String("id", id),
	)
	return nil
}

// Tree loads a methodology with pillars, criteria and ranges in persisted
// order.
func (r *MethodologyRepository) Tree(ctx context.Context, id string) (methodology.Tree, error) {
	m, err := r.Get(ctx, id)
	if err != nil {
		return methodology.Tree{}, err
	}
	return r.loadTree(ctx, m)
}

// ActiveTree loads the tree of the active methodology.
func (r *MethodologyRepository) ActiveTree(ctx context.Context) (methodology.Tree, error) {
	m, err := r.Active(ctx)
	if err != nil {
		return methodology.Tree{}, err
	}
	return r.loadTree(ctx, m)
}

func (r *MethodologyRepository) loadTree(ctx context.Context, m methodology.Methodology) (methodology.Tree, error) {
	tree := methodology.Tree{Methodology: m}

	pillars, err := listPillars(ctx, r.db, m.ID)
	if err != nil {
		return tree, err
	}
	criteria, err := listCriteria(ctx, r.db, m.ID)
	if err != nil {
		return tree, err
	}
	ranges, err := listRanges(ctx, r.db, m.ID)
	if err != nil {
		return tree, err
	}

	for ci := range criteria {
		criteria[ci].Ranges = ranges[criteria[ci].ID]
	}
	byPillar := make(map[string][]methodology.Criterion)
	for _, c := range criteria {
		byPillar[c.PillarID] = append(byPillar[c.PillarID], c)
	}
	for pi := range pillars {
		pillars[pi].Criteria = byPillar[pillars[pi].ID]
	}
	tree.Pillars = pillars
	return tree, nil
}

// Import stores a complete tree as a new inactive methodology in one
// transaction and returns it with the assigned ids.
func (r *MethodologyRepository) Import(ctx context.Context, tree methodology.Tree) (methodology.Tree, error) {
	if err := tree.Validate(); err != nil {
		return tree, err
	}

	err := WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		m, err := insertMethodology(ctx, tx, tree.Methodology)
		if err != nil {
			return err
		}
		tree.Methodology = m

		for pi := range tree.Pillars {
			p := &tree.Pillars[pi]
			p.MethodologyID = m.ID
			p.Position = pi
			if err := insertPillar(ctx, tx, p); err != nil {
				return err
			}
			for ci := range p.Criteria {
				c := &p.Criteria[ci]
				c.PillarID = p.ID
				c.Position = ci
				if err := insertCriterion(ctx, tx, c); err != nil {
					return err
				}
				for ri := range c.Ranges {
					rg := &c.Ranges[ri]
					rg.CriterionID = c.ID
					rg.Position = ri
					if err := insertRange(ctx, tx, rg); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return methodology.Tree{}, err
	}

	r.logger.Info("methodology imported",
		zap.String("op", "store.MethodologyRepository.Import"),
		zap.String("id", tree.ID),
		zap.Int("pillars", len(tree.Pillars)),
		zap.Int("criteria", tree.CriterionCount()),
	)
	return tree, nil
}
