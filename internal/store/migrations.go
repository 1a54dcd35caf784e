package store

import "fmt"

// schema lists one statement per version. Version n is applied when the
// database's user_version is below n. Entries are only ever appended.
var schema = []string{
	`CREATE TABLE jewelry (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL CHECK(category IN ('Earring', 'Necklace', 'Ring', 'Bracelet')),
		image_url TEXT NOT NULL CHECK(image_url <> ''),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX idx_jewelry_category ON jewelry(category)`,

	// Per-category overrides of the placement constants.
	`CREATE TABLE anchor_calibrations (
		category TEXT PRIMARY KEY CHECK(category IN ('Earring', 'Necklace', 'Ring', 'Bracelet')),
		scale REAL NOT NULL CHECK(scale > 0),
		offset_x REAL NOT NULL DEFAULT 0,
		offset_y REAL NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}

// SchemaVersion returns the schema version recorded in the database.
func (s *Store) SchemaVersion() (int, error) {
	var v int
	if err := s.db.QueryRow(`PRAGMA user_version`).Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

// migrate applies the schema versions the database has not seen yet, each
// in its own transaction.
func (s *Store) migrate() error {
	current, err := s.SchemaVersion()
	if err != nil {
		return err
	}
	if current > len(schema) {
		return fmt.Errorf("database schema version %d is newer than supported version %d", current, len(schema))
	}

	for v := current + 1; v <= len(schema); v++ {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(schema[v-1]); err != nil {
			tx.Rollback()
			return fmt.Errorf("version %d: %w", v, err)
		}
		// PRAGMA does not take bound parameters.
		if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, v)); err != nil {
			tx.Rollback()
			return fmt.Errorf("version %d: %w", v, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("version %d: %w", v, err)
		}
	}
	return nil
}
