// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary builds
// without a C toolchain. All repositories hang off a single *DB that owns the
// connection pool and runs the migrations at startup.
//
// CONNECTION POOL SIZE:
// SQLite allows one writer at a time. We cap the pool at one connection,
// which serialises every statement and transaction through the same handle.
// That keeps ":memory:" databases coherent (each new connection to
// ":memory:" would otherwise be an empty, separate database) and makes the
// read-check-insert in CreateBooking atomic without relying on
// BEGIN IMMEDIATE.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements every repository
// interface from the parent package.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/careerdeck.db" → file-based database (persistent)
//   - ":memory:"           → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers continue while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping is used by the /health handler.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates every table. CREATE ... IF NOT EXISTS makes it safe to run
// on every start; later column additions go through addColumnIfNotExists.
func (db *DB) migrate() error {
	steps := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id            TEXT PRIMARY KEY,
				github_id     INTEGER UNIQUE,
				login         TEXT NOT NULL,
				email         TEXT NOT NULL DEFAULT '',
				password_hash TEXT NOT NULL DEFAULT '',
				avatar_url    TEXT NOT NULL DEFAULT '',
				created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_users_password_email
				ON users(email) WHERE password_hash <> '';
		`},
		{"jobs and matches", `
			CREATE TABLE IF NOT EXISTS jobs (
				id              TEXT PRIMARY KEY,
				title           TEXT NOT NULL,
				location        TEXT NOT NULL DEFAULT '',
				employment_type TEXT NOT NULL DEFAULT '',
				salary_low      INTEGER NOT NULL DEFAULT 0,
				salary_high     INTEGER NOT NULL DEFAULT 0,
				company         TEXT NOT NULL DEFAULT '',
				posted_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE TABLE IF NOT EXISTS matches (
				id          TEXT PRIMARY KEY,
				member_id   TEXT NOT NULL,
				job_id      TEXT NOT NULL REFERENCES jobs(id),
				score       INTEGER NOT NULL CHECK (score BETWEEN 0 AND 100),
				status      TEXT NOT NULL DEFAULT 'active',
				notified_at DATETIME,
				created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE (member_id, job_id)
			);
			CREATE INDEX IF NOT EXISTS idx_matches_member_status ON matches(member_id, status, score DESC);
			CREATE INDEX IF NOT EXISTS idx_matches_pending ON matches(status, notified_at);
		`},
		{"interview", `
			CREATE TABLE IF NOT EXISTS questions (
				id                 TEXT PRIMARY KEY,
				text               TEXT NOT NULL,
				category           TEXT NOT NULL,
				difficulty         TEXT NOT NULL,
				tips               TEXT NOT NULL DEFAULT '[]',
				star_guidance      TEXT,
				tags               TEXT NOT NULL DEFAULT '[]',
				time_limit_seconds INTEGER NOT NULL
			);
			CREATE TABLE IF NOT EXISTS question_bookmarks (
				user_id     TEXT NOT NULL,
				question_id TEXT NOT NULL REFERENCES questions(id),
				created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (user_id, question_id)
			);
			CREATE TABLE IF NOT EXISTS practice_sessions (
				id               TEXT PRIMARY KEY,
				user_id          TEXT NOT NULL,
				type             TEXT NOT NULL,
				company          TEXT NOT NULL DEFAULT '',
				duration_seconds INTEGER NOT NULL DEFAULT 0,
				started_at       DATETIME NOT NULL,
				completed_at     DATETIME,
				score            INTEGER,
				feedback         TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_practice_sessions_user ON practice_sessions(user_id, started_at DESC);
			CREATE TABLE IF NOT EXISTS session_questions (
				session_id  TEXT NOT NULL REFERENCES practice_sessions(id) ON DELETE CASCADE,
				position    INTEGER NOT NULL,
				question_id TEXT NOT NULL REFERENCES questions(id),
				PRIMARY KEY (session_id, position)
			);
			CREATE TABLE IF NOT EXISTS session_answers (
				session_id   TEXT NOT NULL REFERENCES practice_sessions(id) ON DELETE CASCADE,
				question_id  TEXT NOT NULL,
				text         TEXT NOT NULL DEFAULT '',
				audio_url    TEXT NOT NULL DEFAULT '',
				video_url    TEXT NOT NULL DEFAULT '',
				submitted_at DATETIME NOT NULL,
				PRIMARY KEY (session_id, question_id)
			);
		`},
		{"coaching", `
			CREATE TABLE IF NOT EXISTS coaches (
				id            TEXT PRIMARY KEY,
				name          TEXT NOT NULL,
				headline      TEXT NOT NULL DEFAULT '',
				specialties   TEXT NOT NULL DEFAULT '[]',
				session_types TEXT NOT NULL DEFAULT '[]',
				hourly_rate   INTEGER NOT NULL DEFAULT 0,
				work_start    TEXT NOT NULL,
				work_end      TEXT NOT NULL,
				weekdays      TEXT NOT NULL DEFAULT '[]'
			);
			CREATE TABLE IF NOT EXISTS coaching_sessions (
				id         TEXT PRIMARY KEY,
				coach_id   TEXT NOT NULL REFERENCES coaches(id),
				user_id    TEXT NOT NULL,
				date       TEXT NOT NULL,
				time       TEXT NOT NULL,
				duration   INTEGER NOT NULL,
				type       TEXT NOT NULL,
				topic      TEXT NOT NULL DEFAULT '',
				status     TEXT NOT NULL DEFAULT 'scheduled',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_coaching_sessions_coach_date ON coaching_sessions(coach_id, date);
			CREATE INDEX IF NOT EXISTS idx_coaching_sessions_user ON coaching_sessions(user_id);
		`},
		{"career records", `
			CREATE TABLE IF NOT EXISTS career_goals (
				id          TEXT PRIMARY KEY,
				user_id     TEXT NOT NULL,
				title       TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				target_date TEXT NOT NULL DEFAULT '',
				progress    INTEGER NOT NULL DEFAULT 0,
				status      TEXT NOT NULL DEFAULT 'active',
				created_at  DATETIME NOT NULL,
				updated_at  DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_career_goals_user ON career_goals(user_id);
			CREATE TABLE IF NOT EXISTS career_references (
				id           TEXT PRIMARY KEY,
				user_id      TEXT NOT NULL,
				name         TEXT NOT NULL,
				email        TEXT NOT NULL DEFAULT '',
				relationship TEXT NOT NULL DEFAULT '',
				company      TEXT NOT NULL DEFAULT '',
				status       TEXT NOT NULL DEFAULT 'pending',
				created_at   DATETIME NOT NULL,
				updated_at   DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_career_references_user ON career_references(user_id);
			CREATE TABLE IF NOT EXISTS feature_flags (
				key             TEXT PRIMARY KEY,
				description     TEXT NOT NULL DEFAULT '',
				enabled         INTEGER NOT NULL DEFAULT 0,
				rollout_percent INTEGER NOT NULL DEFAULT 100,
				updated_at      DATETIME NOT NULL
			);
		`},
	}

	for _, step := range steps {
		if _, err := db.conn.Exec(step.sql); err != nil {
			return fmt.Errorf("creating %s tables: %w", step.name, err)
		}
	}

	// Roles arrived after the first deploy; add the column in place.
	if err := db.addColumnIfNotExists("users", "role", "TEXT NOT NULL DEFAULT 'member'"); err != nil {
		return fmt.Errorf("adding role to users: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// Makes ALTER TABLE migrations idempotent.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

// withTx runs fn inside a transaction, committing on nil and rolling back on
// error. fn must use tx for every statement: the pool has one connection.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// JSON columns hold small lists (tags, tips, weekdays). A NULL or empty
// column decodes to the zero value.
func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeJSON(raw sql.NullString, v any) error {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw.String), v)
}

// rowsAffected maps a zero-row UPDATE/DELETE to notFound.
func rowsAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
