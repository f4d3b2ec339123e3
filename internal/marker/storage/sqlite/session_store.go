// Package sqlite persists detection-session statistics for later review
// and reporting.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Session is a persisted pipeline run: one row per construction-to-close
// lifetime, with a summary attached on finish.
type Session struct {
	SessionID   string          `json:"session_id"`
	Dictionary  string          `json:"dictionary"`
	FrameWidth  int             `json:"frame_width"`
	FrameHeight int             `json:"frame_height"`
	StartedAt   int64           `json:"started_at"`
	FinishedAt  *int64          `json:"finished_at,omitempty"`
	SummaryJSON json.RawMessage `json:"summary,omitempty"`
}

// TickStat is one persisted detection tick.
type TickStat struct {
	SessionID   string `json:"session_id"`
	Tick        uint64 `json:"tick"`
	MarkerCount int    `json:"marker_count"`
	AnchorCount int    `json:"anchor_count"`
	PoseCount   int    `json:"pose_count"`
	RecordedAt  int64  `json:"recorded_at"`
}

// SessionStore provides persistence for pipeline sessions and their
// per-tick statistics.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore creates a store over an opened database.
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// CreateSession inserts a new session row. If SessionID is empty a UUID is
// generated; StartedAt defaults to now.
func (s *SessionStore) CreateSession(sess *Session) error {
	if sess.SessionID == "" {
		sess.SessionID = uuid.New().String()
	}
	if sess.StartedAt == 0 {
		sess.StartedAt = time.Now().UnixNano()
	}
	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO sessions (session_id, dictionary, frame_width, frame_height, started_at)
			VALUES (?, ?, ?, ?, ?)`,
			sess.SessionID, sess.Dictionary, sess.FrameWidth, sess.FrameHeight, sess.StartedAt,
		)
		return err
	})
}

// UpdateFrameSize records the calibrated frame dimensions once known.
func (s *SessionStore) UpdateFrameSize(sessionID string, width, height int) error {
	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			UPDATE sessions SET frame_width = ?, frame_height = ? WHERE session_id = ?`,
			width, height, sessionID,
		)
		return err
	})
}

// RecordTick persists one detection tick's statistics.
func (s *SessionStore) RecordTick(stat *TickStat) error {
	if stat.RecordedAt == 0 {
		stat.RecordedAt = time.Now().UnixNano()
	}
	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO tick_stats (session_id, tick, marker_count, anchor_count, pose_count, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			stat.SessionID, stat.Tick, stat.MarkerCount, stat.AnchorCount, stat.PoseCount, stat.RecordedAt,
		)
		return err
	})
}

// FinishSession marks a session complete and attaches its summary.
func (s *SessionStore) FinishSession(sessionID string, summary json.RawMessage) error {
	var summaryStr interface{}
	if len(summary) > 0 {
		summaryStr = string(summary)
	}
	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			UPDATE sessions SET finished_at = ?, summary_json = ? WHERE session_id = ?`,
			time.Now().UnixNano(), summaryStr, sessionID,
		)
		return err
	})
}

// GetSession returns a single session by id.
func (s *SessionStore) GetSession(sessionID string) (*Session, error) {
	row := s.db.QueryRow(`
		SELECT session_id, dictionary, frame_width, frame_height, started_at, finished_at, summary_json
		FROM sessions WHERE session_id = ?`, sessionID)
	return scanSession(row)
}

// LatestSession returns the most recently started session, or nil when the
// store is empty.
func (s *SessionStore) LatestSession() (*Session, error) {
	row := s.db.QueryRow(`
		SELECT session_id, dictionary, frame_width, frame_height, started_at, finished_at, summary_json
		FROM sessions ORDER BY started_at DESC LIMIT 1`)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sess, err
}

// ListSessions returns sessions ordered by start time descending.
func (s *SessionStore) ListSessions(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT session_id, dictionary, frame_width, frame_height, started_at, finished_at, summary_json
		FROM sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// TicksForSession returns a session's tick statistics in tick order.
func (s *SessionStore) TicksForSession(sessionID string) ([]*TickStat, error) {
	rows, err := s.db.Query(`
		SELECT session_id, tick, marker_count, anchor_count, pose_count, recorded_at
		FROM tick_stats WHERE session_id = ? ORDER BY tick ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query tick stats: %w", err)
	}
	defer rows.Close()

	var stats []*TickStat
	for rows.Next() {
		var t TickStat
		if err := rows.Scan(&t.SessionID, &t.Tick, &t.MarkerCount, &t.AnchorCount, &t.PoseCount, &t.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan tick stat: %w", err)
		}
		stats = append(stats, &t)
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*Session, error) {
	var sess Session
	var finishedAt sql.NullInt64
	var summaryStr sql.NullString
	err := row.Scan(&sess.SessionID, &sess.Dictionary, &sess.FrameWidth, &sess.FrameHeight,
		&sess.StartedAt, &finishedAt, &summaryStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	if finishedAt.Valid {
		sess.FinishedAt = &finishedAt.Int64
	}
	if summaryStr.Valid {
		sess.SummaryJSON = json.RawMessage(summaryStr.String)
	}
	return &sess, nil
}

// retryOnBusy retries a write a few times when sqlite reports the database
// is locked. Non-busy errors fail immediately.
func retryOnBusy(fn func() error) error {
	const maxAttempts = 3
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !isBusyError(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
	}
	return err
}

func isBusyError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
