package adapter

import "strconv"

// Dialect captures the SQL differences between the database/sql backends.
type Dialect struct {
	// Name is the dialect name (e.g., "duckdb", "postgres").
	Name string

	// DefaultSchema is used when a table name is not qualified.
	DefaultSchema string

	// NumberedPlaceholders selects $1, $2, ... instead of ?.
	NumberedPlaceholders bool
}

// Placeholder returns the bind parameter marker for the n-th argument (1-based).
func (d Dialect) Placeholder(n int) string {
	if d.NumberedPlaceholders {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Placeholders returns count comma-separated markers starting at 1.
func (d Dialect) Placeholders(count int) []string {
	out := make([]string, count)
	for i := range out {
		out[i] = d.Placeholder(i + 1)
	}
	return out
}
