package sqlite

import "database/sql"

// Schema notes: events reference sessions by ID only, no FK — a session may
// be created concurrently with its first events and must never block an
// append. Prompt records carry their run results denormalized per provider.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		ip_hash TEXT NOT NULL,
		user_agent TEXT,
		created_at TEXT NOT NULL,
		created_at_epoch INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		data TEXT,
		created_at TEXT NOT NULL,
		created_at_epoch INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, created_at_epoch)`,
	`CREATE TABLE IF NOT EXISTS prompt_records (
		id TEXT PRIMARY KEY,
		session_id TEXT,
		raw_prompt TEXT NOT NULL,
		pack_key TEXT,
		clarifiers TEXT NOT NULL DEFAULT '[]',
		clarifier_answers TEXT NOT NULL DEFAULT '{}',
		optimized_prompt TEXT NOT NULL DEFAULT '',
		ran_openai INTEGER NOT NULL DEFAULT 0,
		ran_anthropic INTEGER NOT NULL DEFAULT 0,
		ran_google INTEGER NOT NULL DEFAULT 0,
		result_openai TEXT,
		result_anthropic TEXT,
		result_google TEXT,
		metrics TEXT,
		created_at TEXT NOT NULL,
		created_at_epoch INTEGER NOT NULL,
		updated_at_epoch INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_prompt_records_session ON prompt_records(session_id, created_at_epoch)`,
}

// runMigrations applies the schema. Statements are idempotent so this runs
// on every startup.
func runMigrations(db *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
