package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect captures the SQL differences between supported drivers.
type Dialect struct {
	// Name selects the embedded migration directory.
	Name string
	// DriverName is the database/sql driver registered for the dialect.
	DriverName string
	// numbered reports whether placeholders are $1, $2 ... instead of '?'.
	numbered bool
	// forUpdate is appended to row-locking selects.
	forUpdate string
	// lockMeetings runs before the overlap check of an insert.
	lockMeetings string
	upsertFaq    string
}

var (
	// SQLite uses modernc.org/sqlite. Write transactions are serialized by the
	// connection pool, so no explicit row locks are needed.
	SQLite = Dialect{
		Name:       "sqlite",
		DriverName: "sqlite",
		upsertFaq: `INSERT INTO faqs (short_name, question, answer, position) VALUES (?, ?, ?, ?)
			ON CONFLICT (short_name) DO UPDATE SET question = excluded.question, answer = excluded.answer, position = excluded.position`,
	}

	// MySQL uses github.com/go-sql-driver/mysql. InnoDB next-key locks taken
	// by the FOR UPDATE overlap probe block concurrent inserts in the range.
	MySQL = Dialect{
		Name:       "mysql",
		DriverName: "mysql",
		forUpdate:  " FOR UPDATE",
		upsertFaq: `INSERT INTO faqs (short_name, question, answer, position) VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE question = VALUES(question), answer = VALUES(answer), position = VALUES(position)`,
	}

	// Postgres uses github.com/jackc/pgx/v5/stdlib.
	Postgres = Dialect{
		Name:         "postgres",
		DriverName:   "pgx",
		numbered:     true,
		forUpdate:    " FOR UPDATE",
		lockMeetings: "LOCK TABLE meetings IN SHARE ROW EXCLUSIVE MODE",
		upsertFaq: `INSERT INTO faqs (short_name, question, answer, position) VALUES (?, ?, ?, ?)
			ON CONFLICT (short_name) DO UPDATE SET question = excluded.question, answer = excluded.answer, position = excluded.position`,
	}
)

// DialectFor resolves a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return SQLite, nil
	case "mysql":
		return MySQL, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
}

// Rebind rewrites '?' placeholders for dialects with numbered parameters.
func (d Dialect) Rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
