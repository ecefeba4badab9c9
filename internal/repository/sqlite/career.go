package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/careerdeck/internal/apperror"
	"github.com/sakif/careerdeck/internal/model"
	"github.com/sakif/careerdeck/internal/repository"
)

var (
	_ repository.GoalRepository        = (*DB)(nil)
	_ repository.ReferenceRepository   = (*DB)(nil)
	_ repository.FeatureFlagRepository = (*DB)(nil)
)

// =========================================================================
// CAREER GOALS
// =========================================================================

const goalColumns = `id, user_id, title, description, target_date, progress, status, created_at, updated_at`

func (db *DB) CreateGoal(ctx context.Context, g *model.CareerGoal) error {
	now := time.Now()
	g.ID = xid.New().String()
	g.CreatedAt = now
	g.UpdatedAt = now
	if g.Status == "" {
		g.Status = model.GoalActive
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO career_goals (`+goalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Title, g.Description, g.TargetDate, g.Progress,
		string(g.Status), g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting goal: %w", err)
	}
	return nil
}

func (db *DB) GetGoal(ctx context.Context, id string) (*model.CareerGoal, error) {
	var (
		g      model.CareerGoal
		status string
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM career_goals WHERE id = ?`, id,
	).Scan(&g.ID, &g.UserID, &g.Title, &g.Description, &g.TargetDate, &g.Progress,
		&status, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errIsNoRows(err) {
			return nil, apperror.NotFound("goal", id)
		}
		return nil, fmt.Errorf("sqlite: getting goal %s: %w", id, err)
	}
	g.Status = model.GoalStatus(status)
	return &g, nil
}

func (db *DB) ListGoals(ctx context.Context, userID string) ([]model.CareerGoal, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM career_goals WHERE user_id = ? ORDER BY created_at DESC, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing goals: %w", err)
	}
	defer rows.Close()

	goals := make([]model.CareerGoal, 0)
	for rows.Next() {
		var (
			g      model.CareerGoal
			status string
		)
		if err := rows.Scan(&g.ID, &g.UserID, &g.Title, &g.Description, &g.TargetDate,
			&g.Progress, &status, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning goal row: %w", err)
		}
		g.Status = model.GoalStatus(status)
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating goals: %w", err)
	}
	return goals, nil
}

// UpdateGoal writes every mutable field. Ownership is checked by the service.
func (db *DB) UpdateGoal(ctx context.Context, g *model.CareerGoal) error {
	g.UpdatedAt = time.Now()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE career_goals
		 SET title = ?, description = ?, target_date = ?, progress = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		g.Title, g.Description, g.TargetDate, g.Progress, string(g.Status), g.UpdatedAt, g.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating goal %s: %w", g.ID, err)
	}
	return rowsAffected(res, apperror.NotFound("goal", g.ID))
}

func (db *DB) DeleteGoal(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM career_goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting goal %s: %w", id, err)
	}
	return rowsAffected(res, apperror.NotFound("goal", id))
}

// =========================================================================
// REFERENCES
// =========================================================================

const referenceColumns = `id, user_id, name, email, relationship, company, status, created_at, updated_at`

func (db *DB) CreateReference(ctx context.Context, r *model.Reference) error {
	now := time.Now()
	r.ID = xid.New().String()
	r.CreatedAt = now
	r.UpdatedAt = now
	if r.Status == "" {
		r.Status = model.ReferencePending
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO career_references (`+referenceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Name, r.Email, r.Relationship, r.Company,
		string(r.Status), r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting reference: %w", err)
	}
	return nil
}

func (db *DB) GetReference(ctx context.Context, id string) (*model.Reference, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+referenceColumns+` FROM career_references WHERE id = ?`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting reference %s: %w", id, err)
	}
	refs, err := scanReferences(rows)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, apperror.NotFound("reference", id)
	}
	return &refs[0], nil
}

func (db *DB) ListReferences(ctx context.Context, userID string) ([]model.Reference, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+referenceColumns+` FROM career_references WHERE user_id = ? ORDER BY created_at DESC, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing references: %w", err)
	}
	return scanReferences(rows)
}

func (db *DB) UpdateReference(ctx context.Context, r *model.Reference) error {
	r.UpdatedAt = time.Now()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE career_references
		 SET name = ?, email = ?, relationship = ?, company = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		r.Name, r.Email, r.Relationship, r.Company, string(r.Status), r.UpdatedAt, r.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating reference %s: %w", r.ID, err)
	}
	return rowsAffected(res, apperror.NotFound("reference", r.ID))
}

func (db *DB) DeleteReference(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM career_references WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting reference %s: %w", id, err)
	}
	return rowsAffected(res, apperror.NotFound("reference", id))
}

// CountReceived feeds the trust badge.
func (db *DB) CountReceived(ctx context.Context, userID string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM career_references WHERE user_id = ? AND status = 'received'`,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting received references: %w", err)
	}
	return n, nil
}

func scanReferences(rows *sql.Rows) ([]model.Reference, error) {
	defer rows.Close()

	refs := make([]model.Reference, 0)
	for rows.Next() {
		var (
			r      model.Reference
			status string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Name, &r.Email, &r.Relationship,
			&r.Company, &status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning reference row: %w", err)
		}
		r.Status = model.ReferenceStatus(status)
		refs = append(refs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating references: %w", err)
	}
	return refs, nil
}

// =========================================================================
// FEATURE FLAGS
// =========================================================================

func (db *DB) ListFlags(ctx context.Context) ([]model.FeatureFlag, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT key, description, enabled, rollout_percent, updated_at FROM feature_flags ORDER BY key`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing feature flags: %w", err)
	}
	defer rows.Close()

	flags := make([]model.FeatureFlag, 0)
	for rows.Next() {
		var f model.FeatureFlag
		if err := rows.Scan(&f.Key, &f.Description, &f.Enabled, &f.RolloutPercent, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning feature flag row: %w", err)
		}
		flags = append(flags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating feature flags: %w", err)
	}
	return flags, nil
}

func (db *DB) GetFlag(ctx context.Context, key string) (*model.FeatureFlag, error) {
	var f model.FeatureFlag
	err := db.conn.QueryRowContext(ctx,
		`SELECT key, description, enabled, rollout_percent, updated_at FROM feature_flags WHERE key = ?`, key,
	).Scan(&f.Key, &f.Description, &f.Enabled, &f.RolloutPercent, &f.UpdatedAt)
	if err != nil {
		if errIsNoRows(err) {
			return nil, apperror.NotFound("feature flag", key)
		}
		return nil, fmt.Errorf("sqlite: getting feature flag %s: %w", key, err)
	}
	return &f, nil
}

func (db *DB) SaveFlag(ctx context.Context, f *model.FeatureFlag) error {
	f.UpdatedAt = time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO feature_flags (key, description, enabled, rollout_percent, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET
		   description = excluded.description,
		   enabled = excluded.enabled,
		   rollout_percent = excluded.rollout_percent,
		   updated_at = excluded.updated_at`,
		f.Key, f.Description, f.Enabled, f.RolloutPercent, f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving feature flag %s: %w", f.Key, err)
	}
	return nil
}

func (db *DB) DeleteFlag(ctx context.Context, key string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM feature_flags WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("sqlite: deleting feature flag %s: %w", key, err)
	}
	return rowsAffected(res, apperror.NotFound("feature flag", key))
}
