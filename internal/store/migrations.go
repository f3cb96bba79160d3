package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Rounds table - one row per resolved round
		`CREATE TABLE IF NOT EXISTS rounds (
			id TEXT PRIMARY KEY,
			number INTEGER NOT NULL,
			player TEXT NOT NULL,
			opponent TEXT NOT NULL,
			outcome TEXT NOT NULL CHECK(outcome IN ('win', 'lose', 'draw')),
			message TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			resolved_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_rounds_number ON rounds(number)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
