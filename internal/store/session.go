package store

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/ayusman/holdfast/internal/hold"
)

// Session is one logged climb.
type Session struct {
	ID          string     `json:"id"`
	Route       string     `json:"route"`
	Limbs       []string   `json:"limbs"`
	SharedGrabs bool       `json:"shared_grabs"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	Completed   bool       `json:"completed"`
	// RouteHolds and Grabs are counts filled in on read.
	RouteHolds int `json:"route_holds"`
	Grabs      int `json:"grabs"`
}

// SessionRepository stores climb sessions and their route holds.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a session together with the holds of its route in a
// single transaction.
func (r *SessionRepository) Create(sess *Session, holds []hold.Detection) error {
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO sessions (id, route, limbs, shared_grabs, started_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.Route, strings.Join(sess.Limbs, ","), sess.SharedGrabs, sess.StartedAt,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO session_holds (session_id, position, x1, y1, x2, y2, confidence, class)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, h := range holds {
		b := h.Box
		if _, err := stmt.Exec(sess.ID, i, b.X1, b.Y1, b.X2, b.Y2, h.Confidence, h.Class); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	sess.RouteHolds = len(holds)
	return nil
}

const sessionColumns = `s.id, s.route, s.limbs, s.shared_grabs, s.started_at, s.ended_at, s.completed,
	(SELECT COUNT(*) FROM session_holds h WHERE h.session_id = s.id),
	(SELECT COUNT(*) FROM grabs g WHERE g.session_id = s.id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	sess := &Session{}
	var limbs string
	var shared, completed int
	var ended sql.NullTime

	err := row.Scan(&sess.ID, &sess.Route, &limbs, &shared, &sess.StartedAt, &ended, &completed,
		&sess.RouteHolds, &sess.Grabs)
	if err != nil {
		return nil, err
	}

	if limbs != "" {
		sess.Limbs = strings.Split(limbs, ",")
	}
	sess.SharedGrabs = shared != 0
	sess.Completed = completed != 0
	if ended.Valid {
		t := ended.Time
		sess.EndedAt = &t
	}
	return sess, nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	sess, err := scanSession(r.db.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions s WHERE s.id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List retrieves all sessions, newest first.
func (r *SessionRepository) List() ([]*Session, error) {
	rows, err := r.db.Query(`SELECT ` + sessionColumns + ` FROM sessions s ORDER BY s.started_at DESC`)
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

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Holds returns the route holds recorded for a session, in route order.
func (r *SessionRepository) Holds(sessionID string) ([]hold.Detection, error) {
	rows, err := r.db.Query(
		`SELECT x1, y1, x2, y2, confidence, class
		 FROM session_holds
		 WHERE session_id = ?
		 ORDER BY position`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holds []hold.Detection
	for rows.Next() {
		var h hold.Detection
		b := &h.Box
		if err := rows.Scan(&b.X1, &b.Y1, &b.X2, &b.Y2, &h.Confidence, &h.Class); err != nil {
			return nil, err
		}
		holds = append(holds, h)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return holds, nil
}

// End marks a session as finished.
func (r *SessionRepository) End(id string, endedAt time.Time, completed bool) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET ended_at = ?, completed = ? WHERE id = ?`,
		endedAt, completed, id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a session and everything logged for it.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
