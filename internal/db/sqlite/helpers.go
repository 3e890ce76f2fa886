// Package sqlite provides SQLite database operations for refinery.
package sqlite

import "database/sql"

// nullString converts a string to sql.NullString.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
