package store

import (
	"database/sql"
	"time"

	"github.com/ayusman/holdfast/internal/hold"
)

// Grab is one hold reaching the grabbed set.
type Grab struct {
	ID        int64          `json:"id"`
	SessionID string         `json:"session_id"`
	Limb      string         `json:"limb"`
	Hold      hold.Detection `json:"hold"`
	Distance  float64        `json:"distance"`
	Frame     uint64         `json:"frame"`
	GrabbedAt time.Time      `json:"grabbed_at"`
}

// GrabRepository stores grabs.
type GrabRepository struct {
	db *sql.DB
}

// Grabs returns the grab repository for this store.
func (s *Store) Grabs() *GrabRepository {
	return &GrabRepository{db: s.db}
}

// Create inserts a grab and sets its ID.
func (r *GrabRepository) Create(g *Grab) error {
	if g.GrabbedAt.IsZero() {
		g.GrabbedAt = time.Now()
	}

	b := g.Hold.Box
	result, err := r.db.Exec(
		`INSERT INTO grabs (session_id, limb, x1, y1, x2, y2, distance, frame, grabbed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.SessionID, g.Limb, b.X1, b.Y1, b.X2, b.Y2, g.Distance, int64(g.Frame), g.GrabbedAt,
	)
	if err != nil {
		return err
	}

	g.ID, err = result.LastInsertId()
	return err
}

// GetBySessionID returns a session's grabs in the order they happened.
func (r *GrabRepository) GetBySessionID(sessionID string) ([]Grab, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, limb, x1, y1, x2, y2, distance, frame, grabbed_at
		 FROM grabs
		 WHERE session_id = ?
		 ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grabs []Grab
	for rows.Next() {
		var g Grab
		var frame int64
		b := &g.Hold.Box
		if err := rows.Scan(&g.ID, &g.SessionID, &g.Limb, &b.X1, &b.Y1, &b.X2, &b.Y2,
			&g.Distance, &frame, &g.GrabbedAt); err != nil {
			return nil, err
		}
		g.Frame = uint64(frame)
		grabs = append(grabs, g)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return grabs, nil
}
