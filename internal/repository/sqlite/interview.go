package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/careerdeck/internal/apperror"
	"github.com/sakif/careerdeck/internal/model"
	"github.com/sakif/careerdeck/internal/repository"
)

var _ repository.InterviewRepository = (*DB)(nil)

// =========================================================================
// QUESTION BANK
// =========================================================================

// UpsertQuestion inserts or replaces a bank entry. Used by the YAML seeder,
// so re-running the seed picks up edited text and tips.
func (db *DB) UpsertQuestion(ctx context.Context, q *model.Question) error {
	tips, err := encodeJSON(nonNil(q.Tips))
	if err != nil {
		return fmt.Errorf("sqlite: encoding tips: %w", err)
	}
	tags, err := encodeJSON(nonNil(q.Tags))
	if err != nil {
		return fmt.Errorf("sqlite: encoding tags: %w", err)
	}
	var star sql.NullString
	if q.STARGuidance != nil {
		s, err := encodeJSON(q.STARGuidance)
		if err != nil {
			return fmt.Errorf("sqlite: encoding STAR guidance: %w", err)
		}
		star = sql.NullString{String: s, Valid: true}
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO questions (id, text, category, difficulty, tips, star_guidance, tags, time_limit_seconds)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   text = excluded.text,
		   category = excluded.category,
		   difficulty = excluded.difficulty,
		   tips = excluded.tips,
		   star_guidance = excluded.star_guidance,
		   tags = excluded.tags,
		   time_limit_seconds = excluded.time_limit_seconds`,
		q.ID, q.Text, string(q.Category), string(q.Difficulty), tips, star, tags, q.TimeLimitSeconds,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting question %s: %w", q.ID, err)
	}
	return nil
}

// ListQuestions returns the bank ordered by category, difficulty rank and id.
// Bookmarked reflects userID's bookmarks (false for anonymous callers).
func (db *DB) ListQuestions(ctx context.Context, userID string, f repository.QuestionFilter) ([]model.Question, error) {
	query := `
		SELECT q.id, q.text, q.category, q.difficulty, q.tips, q.star_guidance, q.tags,
		       q.time_limit_seconds, b.question_id IS NOT NULL
		FROM questions q
		LEFT JOIN question_bookmarks b ON b.question_id = q.id AND b.user_id = ?
		WHERE 1 = 1`
	args := []any{userID}

	if f.Category != "" {
		query += ` AND q.category = ?`
		args = append(args, string(f.Category))
	}
	if f.Difficulty != "" {
		query += ` AND q.difficulty = ?`
		args = append(args, string(f.Difficulty))
	}
	if f.Tag != "" {
		query += ` AND EXISTS (SELECT 1 FROM json_each(q.tags) WHERE json_each.value = ?)`
		args = append(args, f.Tag)
	}
	query += ` ORDER BY q.category,
		CASE q.difficulty WHEN 'easy' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END,
		q.id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing questions: %w", err)
	}
	defer rows.Close()

	questions := make([]model.Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating questions: %w", err)
	}
	return questions, nil
}

func (db *DB) GetQuestion(ctx context.Context, id string) (*model.Question, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, text, category, difficulty, tips, star_guidance, tags, time_limit_seconds, 0
		 FROM questions WHERE id = ?`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting question %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("sqlite: getting question %s: %w", id, err)
		}
		return nil, apperror.NotFound("question", id)
	}
	return scanQuestion(rows)
}

// ToggleBookmark flips the bookmark inside one transaction.
func (db *DB) ToggleBookmark(ctx context.Context, userID, questionID string) (bool, error) {
	var bookmarked bool
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM question_bookmarks WHERE user_id = ? AND question_id = ?`,
			userID, questionID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: removing bookmark: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			bookmarked = false
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO question_bookmarks (user_id, question_id, created_at) VALUES (?, ?, ?)`,
			userID, questionID, time.Now(),
		); err != nil {
			return fmt.Errorf("sqlite: adding bookmark: %w", err)
		}
		bookmarked = true
		return nil
	})
	return bookmarked, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (*model.Question, error) {
	var (
		q          model.Question
		category   string
		difficulty string
		tips, tags sql.NullString
		star       sql.NullString
	)
	if err := row.Scan(
		&q.ID, &q.Text, &category, &difficulty, &tips, &star, &tags,
		&q.TimeLimitSeconds, &q.Bookmarked,
	); err != nil {
		return nil, fmt.Errorf("sqlite: scanning question row: %w", err)
	}
	q.Category = model.Category(category)
	q.Difficulty = model.Difficulty(difficulty)
	q.Tips = []string{}
	q.Tags = []string{}
	if err := decodeJSON(tips, &q.Tips); err != nil {
		return nil, fmt.Errorf("sqlite: decoding tips for %s: %w", q.ID, err)
	}
	if err := decodeJSON(tags, &q.Tags); err != nil {
		return nil, fmt.Errorf("sqlite: decoding tags for %s: %w", q.ID, err)
	}
	if star.Valid {
		q.STARGuidance = &model.STARGuidance{}
		if err := decodeJSON(star, q.STARGuidance); err != nil {
			return nil, fmt.Errorf("sqlite: decoding STAR guidance for %s: %w", q.ID, err)
		}
	}
	return &q, nil
}

// =========================================================================
// PRACTICE SESSIONS
// =========================================================================

// CreateSession stores the session header and its ordered question list in
// one transaction.
func (db *DB) CreateSession(ctx context.Context, s *model.PracticeSession) error {
	s.ID = xid.New().String()
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}
	if s.Answers == nil {
		s.Answers = []model.Answer{}
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO practice_sessions (id, user_id, type, company, started_at)
			 VALUES (?, ?, ?, ?, ?)`,
			s.ID, s.UserID, string(s.Type), s.Company, s.StartedAt,
		); err != nil {
			return fmt.Errorf("sqlite: creating practice session: %w", err)
		}
		for i, q := range s.Questions {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO session_questions (session_id, position, question_id) VALUES (?, ?, ?)`,
				s.ID, i, q.ID,
			); err != nil {
				return fmt.Errorf("sqlite: adding question %s to session: %w", q.ID, err)
			}
		}
		return nil
	})
}

// GetSession loads a session with its questions (in order) and answers.
func (db *DB) GetSession(ctx context.Context, id string) (*model.PracticeSession, error) {
	var (
		s           model.PracticeSession
		typ         string
		completedAt sql.NullTime
		score       sql.NullInt64
		feedback    sql.NullString
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, type, company, duration_seconds, started_at, completed_at, score, feedback
		 FROM practice_sessions WHERE id = ?`, id,
	).Scan(&s.ID, &s.UserID, &typ, &s.Company, &s.DurationSeconds, &s.StartedAt, &completedAt, &score, &feedback)
	if err != nil {
		if errIsNoRows(err) {
			return nil, apperror.NotFound("practice session", id)
		}
		return nil, fmt.Errorf("sqlite: getting practice session %s: %w", id, err)
	}
	s.Type = model.SessionType(typ)
	if completedAt.Valid {
		t := completedAt.Time
		s.CompletedAt = &t
	}
	if score.Valid {
		v := int(score.Int64)
		s.Score = &v
	}
	if feedback.Valid {
		s.Feedback = &model.SessionFeedback{}
		if err := decodeJSON(feedback, s.Feedback); err != nil {
			return nil, fmt.Errorf("sqlite: decoding feedback for %s: %w", id, err)
		}
	}

	if s.Questions, err = db.sessionQuestions(ctx, id); err != nil {
		return nil, err
	}
	if s.Answers, err = db.sessionAnswers(ctx, id); err != nil {
		return nil, err
	}
	return &s, nil
}

func (db *DB) sessionQuestions(ctx context.Context, sessionID string) ([]model.Question, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT q.id, q.text, q.category, q.difficulty, q.tips, q.star_guidance, q.tags,
		        q.time_limit_seconds, 0
		 FROM session_questions sq
		 JOIN questions q ON q.id = sq.question_id
		 WHERE sq.session_id = ?
		 ORDER BY sq.position`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading session questions: %w", err)
	}
	defer rows.Close()

	questions := make([]model.Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

func (db *DB) sessionAnswers(ctx context.Context, sessionID string) ([]model.Answer, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT a.question_id, a.text, a.audio_url, a.video_url, a.submitted_at
		 FROM session_answers a
		 JOIN session_questions sq ON sq.session_id = a.session_id AND sq.question_id = a.question_id
		 WHERE a.session_id = ?
		 ORDER BY sq.position`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading session answers: %w", err)
	}
	defer rows.Close()

	answers := make([]model.Answer, 0)
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.QuestionID, &a.Text, &a.AudioURL, &a.VideoURL, &a.SubmittedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning answer row: %w", err)
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// ListSessions returns session headers (no questions/answers), newest first.
func (db *DB) ListSessions(ctx context.Context, userID string, opts repository.ListOptions) ([]model.PracticeSession, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, type, company, duration_seconds, started_at, completed_at, score
		 FROM practice_sessions
		 WHERE user_id = ?
		 ORDER BY started_at DESC
		 LIMIT ? OFFSET ?`,
		userID, limit, max(opts.Offset, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing practice sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]model.PracticeSession, 0)
	for rows.Next() {
		var (
			s           model.PracticeSession
			typ         string
			completedAt sql.NullTime
			score       sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.UserID, &typ, &s.Company, &s.DurationSeconds, &s.StartedAt, &completedAt, &score); err != nil {
			return nil, fmt.Errorf("sqlite: scanning practice session row: %w", err)
		}
		s.Type = model.SessionType(typ)
		if completedAt.Valid {
			t := completedAt.Time
			s.CompletedAt = &t
		}
		if score.Valid {
			v := int(score.Int64)
			s.Score = &v
		}
		s.Questions = []model.Question{}
		s.Answers = []model.Answer{}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating practice sessions: %w", err)
	}
	return sessions, nil
}

// SaveAnswer upserts the answer for (session, question). The insert only
// happens while the session is open, so an answer racing a completion loses
// with Conflict.
func (db *DB) SaveAnswer(ctx context.Context, sessionID string, a *model.Answer) error {
	if a.SubmittedAt.IsZero() {
		a.SubmittedAt = time.Now()
	}
	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO session_answers (session_id, question_id, text, audio_url, video_url, submitted_at)
			 SELECT ?, ?, ?, ?, ?, ?
			 WHERE EXISTS (SELECT 1 FROM practice_sessions WHERE id = ? AND completed_at IS NULL)
			 ON CONFLICT (session_id, question_id) DO UPDATE SET
			   text = excluded.text,
			   audio_url = excluded.audio_url,
			   video_url = excluded.video_url,
			   submitted_at = excluded.submitted_at`,
			sessionID, a.QuestionID, a.Text, a.AudioURL, a.VideoURL, a.SubmittedAt, sessionID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: saving answer for %s: %w", a.QuestionID, err)
		}
		return openSessionWrite(ctx, tx, res, sessionID)
	})
}

// DeleteAnswer removes the answer for (session, question). Deleting an
// answer that was never saved is not an error; a completed session is.
func (db *DB) DeleteAnswer(ctx context.Context, sessionID, questionID string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := openSessionWrite(ctx, tx, nil, sessionID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM session_answers WHERE session_id = ? AND question_id = ?`,
			sessionID, questionID,
		); err != nil {
			return fmt.Errorf("sqlite: deleting answer for %s: %w", questionID, err)
		}
		return nil
	})
}

// openSessionWrite turns a write that touched no rows into NotFound or
// Conflict. With a nil result it checks the session state up front.
func openSessionWrite(ctx context.Context, tx *sql.Tx, res sql.Result, sessionID string) error {
	if res != nil {
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if n > 0 {
			return nil
		}
	}

	var completed sql.NullTime
	err := tx.QueryRowContext(ctx,
		`SELECT completed_at FROM practice_sessions WHERE id = ?`, sessionID,
	).Scan(&completed)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apperror.NotFound("practice session", sessionID)
	case err != nil:
		return fmt.Errorf("sqlite: checking session %s: %w", sessionID, err)
	case completed.Valid:
		return apperror.Conflict("practice session already completed")
	}
	return nil
}

// CompleteSession writes score, feedback and completed_at exactly once.
// The `completed_at IS NULL` guard makes a second completion a Conflict.
func (db *DB) CompleteSession(ctx context.Context, sessionID string, fb *model.SessionFeedback, durationSeconds int, at time.Time) error {
	raw, err := encodeJSON(fb)
	if err != nil {
		return fmt.Errorf("sqlite: encoding feedback: %w", err)
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE practice_sessions
			 SET completed_at = ?, score = ?, feedback = ?, duration_seconds = ?
			 WHERE id = ? AND completed_at IS NULL`,
			at, fb.OverallScore, raw, durationSeconds, sessionID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: completing session %s: %w", sessionID, err)
		}
		return openSessionWrite(ctx, tx, res, sessionID)
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
