package sqlfilter

import (
	"reflect"
	"testing"

	"txreport/internal/core"
)

func TestWhere(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		filter   core.Filter
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "unconstrained",
			dialect: SQLite,
			filter:  core.Filter{},
			wantSQL: "1 = 1",
		},
		{
			name:    "impossible month",
			dialect: SQLite,
			filter:  core.MonthFilter(core.MatchMonth("abc")),
			wantSQL: "1 = 0",
		},
		{
			name:     "month and sold sqlite",
			dialect:  SQLite,
			filter:   core.MonthFilter(core.MatchMonth("3")).WithSold(true),
			wantSQL:  "sale_month = ? AND sold = ?",
			wantArgs: []any{3, 1},
		},
		{
			name:     "month and sold postgres",
			dialect:  Postgres,
			filter:   core.MonthFilter(core.MatchMonth("3")).WithSold(false),
			wantSQL:  "sale_month = $1 AND sold = $2",
			wantArgs: []any{3, false},
		},
		{
			name:     "first bucket",
			dialect:  Postgres,
			filter:   core.Filter{}.WithPrice(core.BucketRange(0)),
			wantSQL:  "price >= $1 AND price <= $2",
			wantArgs: []any{0.0, 100.0},
		},
		{
			name:     "open bucket",
			dialect:  Postgres,
			filter:   core.Filter{}.WithPrice(core.BucketRange(9)),
			wantSQL:  "price > $1",
			wantArgs: []any{900.0},
		},
		{
			name:     "text search",
			dialect:  SQLite,
			filter:   core.SearchFilter("Back_Pack"),
			wantSQL:  `(unicode_lower(title) LIKE ? ESCAPE '\' OR unicode_lower(description) LIKE ? ESCAPE '\')`,
			wantArgs: []any{`%back\_pack%`, `%back\_pack%`},
		},
		{
			name:     "numeric search",
			dialect:  Postgres,
			filter:   core.SearchFilter("109.95"),
			wantSQL:  `(LOWER(title) LIKE $1 ESCAPE '\' OR LOWER(description) LIKE $2 ESCAPE '\' OR price = $3)`,
			wantArgs: []any{"%109.95%", "%109.95%", 109.95},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := Where(tt.dialect, tt.filter)
			if sql != tt.wantSQL {
				t.Errorf("sql = %q, want %q", sql, tt.wantSQL)
			}
			if len(args) != len(tt.wantArgs) || (len(args) > 0 && !reflect.DeepEqual(args, tt.wantArgs)) {
				t.Errorf("args = %#v, want %#v", args, tt.wantArgs)
			}
		})
	}
}

func TestEscapeLike(t *testing.T) {
	if got := EscapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Errorf("EscapeLike = %q", got)
	}
}
