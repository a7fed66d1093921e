package out

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"deepwork/internal/modules/session/domain"
	sessionout "deepwork/internal/modules/session/port/out"
	apperrors "deepwork/internal/platform/errors"
	"deepwork/internal/platform/lock"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// user_version history:
// 1 - sessions and pauses tables
const currentSchemaVersion = 1

const timeLayout = time.RFC3339Nano

// SQLiteStore persists sessions in a single SQLite file. Every Update is one
// SQL transaction taken under the session's keyed lock.
type SQLiteStore struct {
	db    *sql.DB
	locks *lock.Keyed
}

var _ sessionout.SessionStore = (*SQLiteStore)(nil)

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; queries inside a transaction must use the tx.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, locks: lock.NewKeyed()}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create session tables: %w", err)
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported %d", version, currentSchemaVersion)
	}
	if version < currentSchemaVersion {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Create(ctx context.Context, session domain.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, session.ID).Scan(&exists)
	switch {
	case err == nil:
		return fmt.Errorf("%w: session %s already exists", apperrors.ErrConflict, session.ID)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check session %s: %w", session.ID, err)
	}

	const stmt = `
INSERT INTO sessions (id, title, goal, scheduled_minutes, status, created_at, start_time, pause_count, cumulative_paused_seconds, completed_at, actual_duration_minutes)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`
	if _, err := tx.ExecContext(ctx, stmt,
		session.ID,
		session.Title,
		session.Goal,
		session.ScheduledMinutes,
		string(session.Status),
		session.CreatedAt.UTC().Format(timeLayout),
		nullTime(session.StartTime),
		session.PauseCount,
		session.CumulativePausedSeconds,
		nullTime(session.CompletedAt),
		nullInt(session.ActualDurationMinutes),
	); err != nil {
		return fmt.Errorf("insert session %s: %w", session.ID, err)
	}
	if err := writePauses(ctx, tx, session); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (domain.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Session{}, fmt.Errorf("begin read: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	return loadSession(ctx, tx, id)
}

func (s *SQLiteStore) Update(ctx context.Context, id string, mutate func(*domain.Session) error) (domain.Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Session{}, fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	session, err := loadSession(ctx, tx, id)
	if err != nil {
		return domain.Session{}, err
	}
	if err := mutate(&session); err != nil {
		return domain.Session{}, err
	}

	const stmt = `
UPDATE sessions SET
  status = ?,
  start_time = ?,
  pause_count = ?,
  cumulative_paused_seconds = ?,
  completed_at = ?,
  actual_duration_minutes = ?
WHERE id = ?;
`
	if _, err := tx.ExecContext(ctx, stmt,
		string(session.Status),
		nullTime(session.StartTime),
		session.PauseCount,
		session.CumulativePausedSeconds,
		nullTime(session.CompletedAt),
		nullInt(session.ActualDurationMinutes),
		session.ID,
	); err != nil {
		return domain.Session{}, fmt.Errorf("update session %s: %w", id, err)
	}
	if err := writePauses(ctx, tx, session); err != nil {
		return domain.Session{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Session{}, fmt.Errorf("commit update: %w", err)
	}
	return session, nil
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]domain.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin list: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, selectSessions+` ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	sessions := []domain.Session{}
	index := map[string]int{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		index[session.ID] = len(sessions)
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	_ = rows.Close()

	pauseRows, err := tx.QueryContext(ctx, `SELECT session_id, id, reason, paused_at, resumed_at FROM pauses ORDER BY session_id, seq`)
	if err != nil {
		return nil, fmt.Errorf("list pauses: %w", err)
	}
	defer pauseRows.Close()
	for pauseRows.Next() {
		var sessionID string
		pause, err := scanPause(pauseRows, &sessionID)
		if err != nil {
			return nil, err
		}
		if i, ok := index[sessionID]; ok {
			sessions[i].PauseLog = append(sessions[i].PauseLog, pause)
		}
	}
	if err := pauseRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pauses: %w", err)
	}
	return sessions, nil
}

const selectSessions = `
SELECT id, title, goal, scheduled_minutes, status, created_at, start_time, pause_count, cumulative_paused_seconds, completed_at, actual_duration_minutes
FROM sessions`

type rowScanner interface {
	Scan(dest ...any) error
}

func loadSession(ctx context.Context, tx *sql.Tx, id string) (domain.Session, error) {
	session, err := scanSession(tx.QueryRowContext(ctx, selectSessions+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, notFound(id)
	}
	if err != nil {
		return domain.Session{}, err
	}

	rows, err := tx.QueryContext(ctx, `SELECT session_id, id, reason, paused_at, resumed_at FROM pauses WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return domain.Session{}, fmt.Errorf("load pauses for %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var sessionID string
		pause, err := scanPause(rows, &sessionID)
		if err != nil {
			return domain.Session{}, err
		}
		session.PauseLog = append(session.PauseLog, pause)
	}
	if err := rows.Err(); err != nil {
		return domain.Session{}, fmt.Errorf("iterate pauses for %s: %w", id, err)
	}
	return session, nil
}

func scanSession(row rowScanner) (domain.Session, error) {
	var (
		session     domain.Session
		status      string
		createdAt   string
		startTime   sql.NullString
		completedAt sql.NullString
		actual      sql.NullInt64
	)
	if err := row.Scan(
		&session.ID,
		&session.Title,
		&session.Goal,
		&session.ScheduledMinutes,
		&status,
		&createdAt,
		&startTime,
		&session.PauseCount,
		&session.CumulativePausedSeconds,
		&completedAt,
		&actual,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, err
		}
		return domain.Session{}, fmt.Errorf("scan session: %w", err)
	}
	session.Status = domain.Status(status)
	var err error
	if session.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return domain.Session{}, fmt.Errorf("parse created_at for %s: %w", session.ID, err)
	}
	if session.StartTime, err = parseNullTime(startTime); err != nil {
		return domain.Session{}, fmt.Errorf("parse start_time for %s: %w", session.ID, err)
	}
	if session.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return domain.Session{}, fmt.Errorf("parse completed_at for %s: %w", session.ID, err)
	}
	if actual.Valid {
		minutes := int(actual.Int64)
		session.ActualDurationMinutes = &minutes
	}
	return session, nil
}

func scanPause(row rowScanner, sessionID *string) (domain.Pause, error) {
	var (
		pause     domain.Pause
		pausedAt  string
		resumedAt sql.NullString
	)
	if err := row.Scan(sessionID, &pause.ID, &pause.Reason, &pausedAt, &resumedAt); err != nil {
		return domain.Pause{}, fmt.Errorf("scan pause: %w", err)
	}
	var err error
	if pause.PausedAt, err = time.Parse(timeLayout, pausedAt); err != nil {
		return domain.Pause{}, fmt.Errorf("parse paused_at: %w", err)
	}
	if pause.ResumedAt, err = parseNullTime(resumedAt); err != nil {
		return domain.Pause{}, fmt.Errorf("parse resumed_at: %w", err)
	}
	return pause, nil
}

// writePauses upserts the pause log. Entries are append-only so existing rows
// only ever gain a resumed_at.
func writePauses(ctx context.Context, tx *sql.Tx, session domain.Session) error {
	const stmt = `
INSERT INTO pauses (session_id, seq, id, reason, paused_at, resumed_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(session_id, seq) DO UPDATE SET
  resumed_at=excluded.resumed_at;
`
	for i, pause := range session.PauseLog {
		if _, err := tx.ExecContext(ctx, stmt,
			session.ID,
			i,
			pause.ID,
			pause.Reason,
			pause.PausedAt.UTC().Format(timeLayout),
			nullTime(pause.ResumedAt),
		); err != nil {
			return fmt.Errorf("write pause %d for %s: %w", i, session.ID, err)
		}
	}
	return nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func parseNullTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
