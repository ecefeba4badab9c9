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

var _ repository.CoachingRepository = (*DB)(nil)

const coachColumns = `id, name, headline, specialties, session_types, hourly_rate, work_start, work_end, weekdays`

const coachingSessionColumns = `id, coach_id, user_id, date, time, duration, type, topic, status, created_at, updated_at`

func (db *DB) UpsertCoach(ctx context.Context, c *model.Coach) error {
	specialties, err := encodeJSON(nonNil(c.Specialties))
	if err != nil {
		return fmt.Errorf("sqlite: encoding specialties: %w", err)
	}
	types := c.SessionTypes
	if types == nil {
		types = []model.SessionMedium{}
	}
	sessionTypes, err := encodeJSON(types)
	if err != nil {
		return fmt.Errorf("sqlite: encoding session types: %w", err)
	}
	days := c.Weekdays
	if days == nil {
		days = []time.Weekday{}
	}
	weekdays, err := encodeJSON(days)
	if err != nil {
		return fmt.Errorf("sqlite: encoding weekdays: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO coaches (`+coachColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name,
		   headline = excluded.headline,
		   specialties = excluded.specialties,
		   session_types = excluded.session_types,
		   hourly_rate = excluded.hourly_rate,
		   work_start = excluded.work_start,
		   work_end = excluded.work_end,
		   weekdays = excluded.weekdays`,
		c.ID, c.Name, c.Headline, specialties, sessionTypes, c.HourlyRate,
		c.WorkStart, c.WorkEnd, weekdays,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting coach %s: %w", c.ID, err)
	}
	return nil
}

func (db *DB) ListCoaches(ctx context.Context) ([]model.Coach, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+coachColumns+` FROM coaches ORDER BY name, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing coaches: %w", err)
	}
	defer rows.Close()

	coaches := make([]model.Coach, 0)
	for rows.Next() {
		c, err := scanCoach(rows)
		if err != nil {
			return nil, err
		}
		coaches = append(coaches, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating coaches: %w", err)
	}
	return coaches, nil
}

func (db *DB) GetCoach(ctx context.Context, id string) (*model.Coach, error) {
	c, err := scanCoach(db.conn.QueryRowContext(ctx,
		`SELECT `+coachColumns+` FROM coaches WHERE id = ?`, id,
	))
	if err != nil {
		if errIsNoRows(err) {
			return nil, apperror.NotFound("coach", id)
		}
		return nil, fmt.Errorf("sqlite: getting coach %s: %w", id, err)
	}
	return c, nil
}

func scanCoach(row rowScanner) (*model.Coach, error) {
	var (
		c                        model.Coach
		specialties, types, days sql.NullString
	)
	if err := row.Scan(
		&c.ID, &c.Name, &c.Headline, &specialties, &types, &c.HourlyRate,
		&c.WorkStart, &c.WorkEnd, &days,
	); err != nil {
		return nil, err
	}
	c.Specialties = []string{}
	c.SessionTypes = []model.SessionMedium{}
	c.Weekdays = []time.Weekday{}
	if err := decodeJSON(specialties, &c.Specialties); err != nil {
		return nil, fmt.Errorf("decoding specialties for %s: %w", c.ID, err)
	}
	if err := decodeJSON(types, &c.SessionTypes); err != nil {
		return nil, fmt.Errorf("decoding session types for %s: %w", c.ID, err)
	}
	if err := decodeJSON(days, &c.Weekdays); err != nil {
		return nil, fmt.Errorf("decoding weekdays for %s: %w", c.ID, err)
	}
	return &c, nil
}

// ScheduledOn returns the coach's live bookings on date, earliest first.
func (db *DB) ScheduledOn(ctx context.Context, coachID, date string) ([]model.CoachingSession, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+coachingSessionColumns+` FROM coaching_sessions
		 WHERE coach_id = ? AND date = ? AND status = 'scheduled'
		 ORDER BY time`,
		coachID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing scheduled sessions: %w", err)
	}
	return scanCoachingSessions(rows)
}

// CreateBooking books a coaching session.
//
// The overlap check and the insert run in the same transaction on the single
// pooled connection, so two requests for the same slot cannot both pass the
// check. The loser gets apperror.ErrConflict.
func (db *DB) CreateBooking(ctx context.Context, s *model.CoachingSession) error {
	start, err := model.ParseClock(s.Time)
	if err != nil {
		return apperror.ValidationFailed("time", err.Error())
	}

	now := time.Now()
	s.ID = xid.New().String()
	s.Status = model.CoachingScheduled
	s.CreatedAt = now
	s.UpdatedAt = now

	return db.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT time, duration FROM coaching_sessions
			 WHERE coach_id = ? AND date = ? AND status = 'scheduled'`,
			s.CoachID, s.Date,
		)
		if err != nil {
			return fmt.Errorf("sqlite: checking coach schedule: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				clock    string
				duration int
			)
			if err := rows.Scan(&clock, &duration); err != nil {
				return fmt.Errorf("sqlite: scanning schedule row: %w", err)
			}
			taken, err := model.ParseClock(clock)
			if err != nil {
				continue
			}
			if model.Overlaps(start, s.Duration, taken, duration) {
				return apperror.Conflict(fmt.Sprintf("coach is already booked at %s on %s", clock, s.Date))
			}
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("sqlite: iterating schedule: %w", err)
		}
		rows.Close()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO coaching_sessions (`+coachingSessionColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID, s.CoachID, s.UserID, s.Date, s.Time, s.Duration, string(s.Type),
			s.Topic, string(s.Status), s.CreatedAt, s.UpdatedAt,
		); err != nil {
			return fmt.Errorf("sqlite: inserting coaching session: %w", err)
		}
		return nil
	})
}

func (db *DB) GetBooking(ctx context.Context, id string) (*model.CoachingSession, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+coachingSessionColumns+` FROM coaching_sessions WHERE id = ?`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting coaching session %s: %w", id, err)
	}
	sessions, err := scanCoachingSessions(rows)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, apperror.NotFound("coaching session", id)
	}
	return &sessions[0], nil
}

// ListBookingsByUser returns every booking the user made, soonest first.
func (db *DB) ListBookingsByUser(ctx context.Context, userID string) ([]model.CoachingSession, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+coachingSessionColumns+` FROM coaching_sessions
		 WHERE user_id = ?
		 ORDER BY date, time`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing coaching sessions: %w", err)
	}
	return scanCoachingSessions(rows)
}

// SetBookingStatus moves a booking from -> to only if it is still in from,
// so a cancel racing a completion cannot overwrite a terminal state.
func (db *DB) SetBookingStatus(ctx context.Context, id string, from, to model.CoachingStatus) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE coaching_sessions SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), time.Now(), id, string(from),
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating coaching session %s: %w", id, err)
	}
	return rowsAffected(res, apperror.Conflict(fmt.Sprintf("coaching session %s is no longer %s", id, from)))
}

func scanCoachingSessions(rows *sql.Rows) ([]model.CoachingSession, error) {
	defer rows.Close()

	sessions := make([]model.CoachingSession, 0)
	for rows.Next() {
		var (
			s      model.CoachingSession
			typ    string
			status string
		)
		if err := rows.Scan(
			&s.ID, &s.CoachID, &s.UserID, &s.Date, &s.Time, &s.Duration,
			&typ, &s.Topic, &status, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning coaching session row: %w", err)
		}
		s.Type = model.SessionMedium(typ)
		s.Status = model.CoachingStatus(status)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating coaching sessions: %w", err)
	}
	return sessions, nil
}
