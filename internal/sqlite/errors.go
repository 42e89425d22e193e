package sqlite

import "strings"

// The driver exposes constraint failures only through the error text,
// so classification matches on the SQLite message prefixes.

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
