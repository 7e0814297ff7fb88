package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Status is the lifecycle state of an analysis.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusCompleted
}

// Analysis is a saved evaluation of one fund against one methodology
// snapshot. Results is kept as the encoded document produced by the analysis
// service; it is nil for drafts that could not be scored.
type Analysis struct {
	ID                 string                 `json:"id"`
	UserID             string                 `json:"user_id"`
	Ticker             string                 `json:"ticker"`
	Segment            string                 `json:"segment"`
	Status             Status                 `json:"status"`
	MethodologyID      string                 `json:"methodology_id"`
	MethodologyVersion string                 `json:"methodology_version"`
	Inputs             map[string]interface{} `json:"inputs"`
	Overrides          map[string]string      `json:"overrides"`
	Results            json.RawMessage        `json:"results,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// AnalysisRepository persists analyses.
type AnalysisRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAnalysisRepository creates a repository on db.
func NewAnalysisRepository(db *DB) *AnalysisRepository {
	return &AnalysisRepository{db: db.conn, logger: db.logger}
}

const analysisColumns = `id, user_id, ticker, segment, status, methodology_id, methodology_version,
	inputs, overrides, results, created_at, updated_at`

func scanAnalysis(row rowScanner) (Analysis, error) {
	var (
		a                    Analysis
		status               string
		inputs, overrides    string
		results              sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&a.ID, &a.UserID, &a.Ticker, &a.Segment, &status, &a.MethodologyID, &a.MethodologyVersion,
		&inputs, &overrides, &results, &createdAt, &updatedAt)
	if err != nil {
		return a, err
	}
	a.Status = Status(status)
	if err := json.Unmarshal([]byte(inputs), &a.Inputs); err != nil {
		return a, fmt.Errorf("invalid inputs for analysis %s: %w", a.ID, err)
	}
	if err := json.Unmarshal([]byte(overrides), &a.Overrides); err != nil {
		return a, fmt.Errorf("invalid overrides for analysis %s: %w", a.ID, err)
	}
	if results.Valid {
		a.Results = json.RawMessage(results.String)
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return a, err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return a, err
	}
	return a, nil
}

func encodeAnalysisFields(a Analysis) (string, string, interface{}, error) {
	inputs := a.Inputs
	if inputs == nil {
		inputs = map[string]interface{}{}
	}
	overrides := a.Overrides
	if overrides == nil {
		overrides = map[string]string{}
	}
	in, err := json.Marshal(inputs)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to encode inputs: %w", err)
	}
	ov, err := json.Marshal(overrides)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to encode overrides: %w", err)
	}
	var results interface{}
	if len(a.Results) > 0 {
		results = string(a.Results)
	}
	return string(in), string(ov), results, nil
}

// Create inserts an analysis, assigning its id and timestamps.
func (r *AnalysisRepository) Create(ctx context.Context, a Analysis) (Analysis, error) {
	if strings.TrimSpace(a.UserID) == "" {
		return a, fmt.Errorf("analysis owner is required")
	}
	if a.Status == "" {
		a.Status = StatusDraft
	}
	if !a.Status.Valid() {
		return a, fmt.Errorf("invalid analysis status %q", a.Status)
	}
	inputs, overrides, results, err := encodeAnalysisFields(a)
	if err != nil {
		return a, err
	}

	a.ID = uuid.NewString()
	a.CreatedAt = now()
	a.UpdatedAt = a.CreatedAt
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO analyses (`+analysisColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Ticker, a.Segment, string(a.Status), a.MethodologyID, a.MethodologyVersion,
		inputs, overrides, results, formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	if err != nil {
		return a, fmt.Errorf("failed to insert analysis: %w", err)
	}

	r.logger.Info("analysis created",
		zap.String("op", "store.AnalysisRepository.Create"),
		zap.String("id", a.ID),
		zap.String("ticker", a.Ticker),
		zap.String("status", string(a.Status)),
	)
	return a, nil
}

// Update rewrites the segment, inputs, overrides, results and status of an
// analysis.
func (r *AnalysisRepository) Update(ctx context.Context, a Analysis) (Analysis, error) {
	if !a.Status.Valid() {
		return a, fmt.Errorf("invalid analysis status %q", a.Status)
	}
	inputs, overrides, results, err := encodeAnalysisFields(a)
	if err != nil {
		return a, err
	}

	a.UpdatedAt = now()
	res, err := r.db.ExecContext(ctx,
		`UPDATE analyses SET segment = ?, status = ?, inputs = ?, overrides = ?, results = ?, updated_at = ?
		 WHERE id = ?`,
		a.Segment, string(a.Status), inputs, overrides, results, formatTime(a.UpdatedAt), a.ID)
	if err != nil {
		return a, fmt.Errorf("failed to update analysis %s: %w", a.ID, err)
	}
	if err := requireOneRow(res, "analysis", a.ID); err != nil {
		return a, err
	}
	return r.Get(ctx, a.ID)
}

// Get returns an analysis by id.
func (r *AnalysisRepository) Get(ctx context.Context, id string) (Analysis, error) {
	a, err := scanAnalysis(r.db.QueryRowContext(ctx,
		"SELECT "+analysisColumns+" FROM analyses WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return a, fmt.Errorf("analysis %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return a, fmt.Errorf("failed to get analysis %s: %w", id, err)
	}
	return a, nil
}

// ListByUser returns the analyses of a user, newest first.
func (r *AnalysisRepository) ListByUser(ctx context.Context, userID string) ([]Analysis, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+analysisColumns+" FROM analyses WHERE user_id = ? ORDER BY created_at DESC, rowid DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	out := []Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
