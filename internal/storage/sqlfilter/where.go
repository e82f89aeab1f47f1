// Package sqlfilter renders core.Filter as a SQL WHERE clause shared by the
// relational backends.
package sqlfilter

import (
	"fmt"
	"strings"

	"txreport/internal/core"
)

// Dialect captures the differences between SQL engines that matter to the
// filter: placeholder syntax, boolean encoding and case folding.
type Dialect struct {
	Placeholder func(n int) string
	Bool        func(b bool) any
	// Lower names a SQL function that folds case the way strings.ToLower does.
	Lower string
}

// UnicodeLower is the SQLite function the storage package registers in
// place of the built-in lower(), which folds ASCII only.
const UnicodeLower = "unicode_lower"

// SQLite uses positional "?" placeholders and stores booleans as integers.
var SQLite = Dialect{
	Lower:       UnicodeLower,
	Placeholder: func(int) string { return "?" },
	Bool: func(b bool) any {
		if b {
			return 1
		}
		return 0
	},
}

// Postgres uses numbered placeholders and native booleans.
var Postgres = Dialect{
	Lower:       "LOWER",
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	Bool:        func(b bool) any { return b },
}

type builder struct {
	d     Dialect
	conds []string
	args  []any
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return b.d.Placeholder(len(b.args))
}

// Where returns a clause without the WHERE keyword ("1 = 1" when
// unconstrained) and its arguments. Placeholders are numbered from 1.
func Where(d Dialect, f core.Filter) (string, []any) {
	b := &builder{d: d}
	if f.MatchesNothing() {
		return "1 = 0", nil
	}
	if f.Month.Constrained() {
		b.conds = append(b.conds, "sale_month = "+b.arg(int(f.Month.Month())))
	}
	if f.Sold != nil {
		b.conds = append(b.conds, "sold = "+b.arg(d.Bool(*f.Sold)))
	}
	if r := f.Price; r != nil {
		op := ">"
		if r.FloorInclusive {
			op = ">="
		}
		b.conds = append(b.conds, "price "+op+" "+b.arg(r.Floor))
		if r.Ceiling < maxCeiling {
			b.conds = append(b.conds, "price <= "+b.arg(r.Ceiling))
		}
	}
	if f.Search != "" {
		pattern := "%" + EscapeLike(strings.ToLower(f.Search)) + "%"
		alts := []string{
			d.Lower + "(title) LIKE " + b.arg(pattern) + ` ESCAPE '\'`,
			d.Lower + "(description) LIKE " + b.arg(pattern) + ` ESCAPE '\'`,
		}
		if v, ok := f.SearchPrice(); ok {
			alts = append(alts, "price = "+b.arg(v))
		}
		b.conds = append(b.conds, "("+strings.Join(alts, " OR ")+")")
	}
	if len(b.conds) == 0 {
		return "1 = 1", nil
	}
	return strings.Join(b.conds, " AND "), b.args
}

// Anything above this is treated as an open upper bound.
const maxCeiling = 1e300

// EscapeLike escapes LIKE wildcards so the term is matched literally.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
