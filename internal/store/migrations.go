package store

// runMigrations creates the climb log schema.
func (s *Store) runMigrations() error {
	migrations := []string{
		// One row per climb
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			route TEXT NOT NULL,
			limbs TEXT NOT NULL DEFAULT '',
			shared_grabs INTEGER NOT NULL DEFAULT 1,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			completed INTEGER NOT NULL DEFAULT 0
		)`,

		// Holds of the selected route, in route order
		`CREATE TABLE IF NOT EXISTS session_holds (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			x1 REAL NOT NULL,
			y1 REAL NOT NULL,
			x2 REAL NOT NULL,
			y2 REAL NOT NULL,
			confidence REAL NOT NULL DEFAULT 0,
			class INTEGER NOT NULL DEFAULT 0
		)`,

		// Grabs in the order they happened
		`CREATE TABLE IF NOT EXISTS grabs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			limb TEXT NOT NULL,
			x1 REAL NOT NULL,
			y1 REAL NOT NULL,
			x2 REAL NOT NULL,
			y2 REAL NOT NULL,
			distance REAL NOT NULL,
			frame INTEGER NOT NULL,
			grabbed_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_session_holds_session_id ON session_holds(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_grabs_session_id ON grabs(session_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
