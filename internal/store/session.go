package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session is one run of the tracking loop.
type Session struct {
	ID            string     `json:"id"`
	CameraID      int        `json:"camera_id"`
	ScreenWidth   int        `json:"screen_width"`
	ScreenHeight  int        `json:"screen_height"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	Frames        int64      `json:"frames"`
	PoseFrames    int64      `json:"pose_frames"`
	SkippedFrames int64      `json:"skipped_frames"`
	Calibrations  int64      `json:"calibrations"`
	Toggles       int64      `json:"toggles"`
	EndReason     string     `json:"end_reason,omitempty"`
}

// SessionCounters are the running totals written by Update.
type SessionCounters struct {
	Frames        int64
	PoseFrames    int64
	SkippedFrames int64
	Calibrations  int64
	Toggles       int64
}

// SessionEvent is a control event recorded during a session.
type SessionEvent struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Kind      string    `json:"kind"`
	Source    string    `json:"source"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionRepository provides access to tracking sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

const sessionColumns = `id, camera_id, screen_width, screen_height, started_at, ended_at,
	frames, pose_frames, skipped_frames, calibrations, toggles, end_reason`

// Create inserts a new session, assigning an id and start time when unset.
func (r *SessionRepository) Create(sess *Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, camera_id, screen_width, screen_height, started_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.CameraID, sess.ScreenWidth, sess.ScreenHeight, sess.StartedAt,
	)
	return err
}

// Update writes the running counters of a session.
func (r *SessionRepository) Update(id string, c SessionCounters) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET frames = ?, pose_frames = ?, skipped_frames = ?, calibrations = ?, toggles = ?
		 WHERE id = ?`,
		c.Frames, c.PoseFrames, c.SkippedFrames, c.Calibrations, c.Toggles, id,
	)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// Finish writes the final counters, end time and reason.
func (r *SessionRepository) Finish(id string, c SessionCounters, reason string) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET frames = ?, pose_frames = ?, skipped_frames = ?, calibrations = ?, toggles = ?,
		 ended_at = ?, end_reason = ?
		 WHERE id = ?`,
		c.Frames, c.PoseFrames, c.SkippedFrames, c.Calibrations, c.Toggles, time.Now(), reason, id,
	)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// GetByID retrieves a session.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	sess, err := scanSession(r.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List returns the most recent sessions first. A non-positive limit returns all.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
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

// Delete removes a session and its events.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// AddEvent records a control event for a session.
func (r *SessionRepository) AddEvent(ev *SessionEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	result, err := r.db.Exec(
		`INSERT INTO session_events (session_id, kind, source, detail, created_at) VALUES (?, ?, ?, ?, ?)`,
		ev.SessionID, ev.Kind, ev.Source, ev.Detail, ev.CreatedAt,
	)
	if err != nil {
		return err
	}
	ev.ID, err = result.LastInsertId()
	return err
}

// Events returns the events of a session in insertion order.
func (r *SessionRepository) Events(sessionID string) ([]*SessionEvent, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, kind, source, detail, created_at
		 FROM session_events WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*SessionEvent
	for rows.Next() {
		ev := &SessionEvent{}
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Kind, &ev.Source, &ev.Detail, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	sess := &Session{}
	var ended sql.NullTime
	err := row.Scan(
		&sess.ID, &sess.CameraID, &sess.ScreenWidth, &sess.ScreenHeight, &sess.StartedAt, &ended,
		&sess.Frames, &sess.PoseFrames, &sess.SkippedFrames, &sess.Calibrations, &sess.Toggles, &sess.EndReason,
	)
	if err != nil {
		return nil, err
	}
	if ended.Valid {
		t := ended.Time
		sess.EndedAt = &t
	}
	return sess, nil
}

func checkAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
