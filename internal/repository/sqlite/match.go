package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/careerdeck/internal/apperror"
	"github.com/sakif/careerdeck/internal/model"
	"github.com/sakif/careerdeck/internal/repository"
)

var _ repository.MatchRepository = (*DB)(nil)

const matchSelect = `
	SELECT m.id, m.member_id, m.score, m.status, m.notified_at, m.created_at,
	       j.id, j.title, j.location, j.employment_type, j.salary_low, j.salary_high,
	       j.company, j.posted_at
	FROM matches m
	JOIN jobs j ON j.id = m.job_id`

// UpsertJob inserts a posting or refreshes its fields when the ID exists.
func (db *DB) UpsertJob(ctx context.Context, job *model.Job) error {
	if job.ID == "" {
		job.ID = xid.New().String()
	}
	if job.PostedAt.IsZero() {
		job.PostedAt = time.Now()
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO jobs (id, title, location, employment_type, salary_low, salary_high, company, posted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   title = excluded.title,
		   location = excluded.location,
		   employment_type = excluded.employment_type,
		   salary_low = excluded.salary_low,
		   salary_high = excluded.salary_high,
		   company = excluded.company,
		   posted_at = excluded.posted_at`,
		job.ID, job.Title, job.Location, job.EmploymentType,
		job.SalaryLow, job.SalaryHigh, job.Company, job.PostedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting job %s: %w", job.ID, err)
	}
	return nil
}

// CreateMatch inserts a new active match. The (member_id, job_id) UNIQUE
// constraint turns a duplicate pairing into a Conflict.
func (db *DB) CreateMatch(ctx context.Context, m *model.Match) error {
	m.ID = xid.New().String()
	m.CreatedAt = time.Now()
	if m.Status == "" {
		m.Status = model.MatchActive
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO matches (id, member_id, job_id, score, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.MemberID, m.Job.ID, m.MatchScore, string(m.Status), m.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Conflict(fmt.Sprintf("member already has a match for job %s", m.Job.ID))
		}
		return fmt.Errorf("sqlite: creating match: %w", err)
	}
	return nil
}

// ListActive returns the member's active matches, best score first.
func (db *DB) ListActive(ctx context.Context, memberID string, opts repository.ListOptions) ([]model.Match, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx,
		matchSelect+`
		 WHERE m.member_id = ? AND m.status = 'active'
		 ORDER BY m.score DESC, m.created_at DESC, m.id
		 LIMIT ? OFFSET ?`,
		memberID, limit, max(opts.Offset, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing matches: %w", err)
	}
	return scanMatches(rows)
}

// GetByJob returns the member's match for a job, whatever its status.
func (db *DB) GetByJob(ctx context.Context, memberID, jobID string) (*model.Match, error) {
	rows, err := db.conn.QueryContext(ctx,
		matchSelect+` WHERE m.member_id = ? AND m.job_id = ?`,
		memberID, jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting match for job %s: %w", jobID, err)
	}
	matches, err := scanMatches(rows)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, apperror.NotFound("match for job", jobID)
	}
	return &matches[0], nil
}

// SetStatus moves a match from → to. The WHERE on the current status makes
// the transition a compare-and-swap: a concurrent dismiss/apply loses with
// Conflict instead of overwriting.
func (db *DB) SetStatus(ctx context.Context, matchID string, from, to model.MatchStatus) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE matches SET status = ? WHERE id = ? AND status = ?`,
		string(to), matchID, string(from),
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating match %s: %w", matchID, err)
	}
	return rowsAffected(res, apperror.Conflict(fmt.Sprintf("match %s is no longer %s", matchID, from)))
}

// PendingNotifications returns active matches at or above minScore that have
// not been announced yet, best first.
func (db *DB) PendingNotifications(ctx context.Context, minScore, limit int) ([]model.Match, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.conn.QueryContext(ctx,
		matchSelect+`
		 WHERE m.status = 'active' AND m.notified_at IS NULL AND m.score >= ?
		 ORDER BY m.score DESC, m.created_at
		 LIMIT ?`,
		minScore, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing pending notifications: %w", err)
	}
	return scanMatches(rows)
}

// MarkNotified stamps notified_at once; a second call is a no-op.
func (db *DB) MarkNotified(ctx context.Context, matchID string, at time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE matches SET notified_at = ? WHERE id = ? AND notified_at IS NULL`,
		at, matchID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: marking match %s notified: %w", matchID, err)
	}
	return nil
}

func scanMatches(rows *sql.Rows) ([]model.Match, error) {
	defer rows.Close()

	matches := make([]model.Match, 0)
	for rows.Next() {
		var (
			m        model.Match
			status   string
			notified sql.NullTime
		)
		if err := rows.Scan(
			&m.ID, &m.MemberID, &m.MatchScore, &status, &notified, &m.CreatedAt,
			&m.Job.ID, &m.Job.Title, &m.Job.Location, &m.Job.EmploymentType,
			&m.Job.SalaryLow, &m.Job.SalaryHigh, &m.Job.Company, &m.Job.PostedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning match row: %w", err)
		}
		m.Status = model.MatchStatus(status)
		if notified.Valid {
			t := notified.Time
			m.NotifiedAt = &t
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating matches: %w", err)
	}
	return matches, nil
}

// errIsNoRows is shared by the single-row getters.
func errIsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
