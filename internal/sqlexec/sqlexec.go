// Package sqlexec is the boundary to "the embedded relational engine (an SQL
// executor with transactions and user-defined scalar/aggregate functions)"
// that spec.md §1 names as an out-of-scope external collaborator, specified
// here by interface only. Concrete adapters embed modernc.org/sqlite (the
// default, matching §6's "single file containing the relational engine's
// database plus the catalog tables"), github.com/go-sql-driver/mysql, and
// github.com/lib/pq, so a bdb connection can point at an external store
// instead of an embedded file without the core caring which.
package sqlexec

import (
	"context"
	"database/sql"
)

// ScalarFunc is a model-operator scalar function shim, registered with the
// engine under a fixed name (spec.md §4.6). Args arrive already decoded by
// the driver into Go values; args[i] are never interpreted here.
type ScalarFunc func(args ...interface{}) (interface{}, error)

// Executor is the narrow interface the catalog, compiler, and executor
// driver use to reach the underlying relational store. It exists so the
// core never imports a specific driver package directly.
type Executor interface {
	// Dialect reports which SQL dialect's quoting/placeholder conventions
	// the compiler should emit for.
	Dialect() Dialect

	// Begin starts a new transaction (spec.md §5: "BEGIN/COMMIT/ROLLBACK
	// map 1:1 to the engine's transactions. Nesting is forbidden").
	Begin(ctx context.Context) (Tx, error)

	// RegisterScalarFunc installs a scalar SQL function under name,
	// callable from compiled BQL→SQL text (spec.md §4.6). Returns an error
	// if the underlying engine does not support user-defined functions
	// (true of the plain database/sql mysql/postgres paths here — see
	// DESIGN.md).
	RegisterScalarFunc(name string, nargs int, fn ScalarFunc) error

	// Close releases the underlying connection pool.
	Close() error
}

// Dialect distinguishes the handful of SQL-text differences the compiler
// must account for (quoting, LIMIT/OFFSET syntax, parameter placeholders).
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectMySQL
	DialectPostgres
)

// Tx is one open transaction. The catalog and compiler issue all of their
// reads/writes through it; committing or rolling back ends its lifetime.
type Tx interface {
	Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row
	Commit() error
	Rollback() error
}

// QuoteIdent quotes name as an identifier for d, doubling any embedded quote
// character per the dialect's own escaping rule.
func QuoteIdent(d Dialect, name string) string {
	switch d {
	case DialectMySQL:
		return "`" + escapeDoubled(name, '`') + "`"
	default:
		return `"` + escapeDoubled(name, '"') + `"`
	}
}

func escapeDoubled(s string, q byte) string {
	out := make([]byte, 0, len(s)+2)
	for i := 0; i < len(s); i++ {
		if s[i] == q {
			out = append(out, q)
		}
		out = append(out, s[i])
	}
	return string(out)
}
