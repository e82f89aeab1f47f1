package storage

import (
	"database/sql/driver"
	"strings"

	"modernc.org/sqlite"

	"txreport/internal/storage/sqlfilter"
)

// Search folds case with strings.ToLower in every backend. SQLite's own
// lower() leaves non-ASCII letters alone, so connections get a Unicode-aware
// replacement.
func init() {
	sqlite.MustRegisterDeterministicScalarFunction(sqlfilter.UnicodeLower, 1, unicodeLower)
}

func unicodeLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}
