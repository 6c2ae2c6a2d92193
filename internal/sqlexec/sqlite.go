package sqlexec

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteExecutor is the default embedded adapter (spec.md §6: "a single file
// containing the relational engine's database plus the catalog tables"),
// backed by the pure-Go modernc.org/sqlite driver so the whole repository
// needs no cgo toolchain.
type SQLiteExecutor struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if absent) a SQLite-backed store at path; ""
// opens a private in-memory database, used by tests.
func OpenSQLite(path string) (*SQLiteExecutor, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // spec.md §5: single logical thread per connection
	return &SQLiteExecutor{db: db, path: path}, nil
}

func (s *SQLiteExecutor) Dialect() Dialect { return DialectSQLite }

func (s *SQLiteExecutor) Close() error { return s.db.Close() }

func (s *SQLiteExecutor) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx}, nil
}

// RegisterScalarFunc installs fn as a deterministic SQLite scalar function
// named name, callable from compiled BQL→SQL text (spec.md §4.6). Every
// connection opened from this *sql.DB's pool shares the process-wide
// registration performed by modernc.org/sqlite, consistent with spec.md
// §5's "the model-operator function table [is] process-wide and
// initialized once."
func (s *SQLiteExecutor) RegisterScalarFunc(name string, nargs int, fn ScalarFunc) error {
	return sqlite.RegisterDeterministicScalarFunction(name, int32(nargs),
		func(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			in := make([]interface{}, len(args))
			for i, a := range args {
				in[i] = a
			}
			out, err := fn(in...)
			if err != nil {
				return nil, err
			}
			return toDriverValue(out)
		})
}

func toDriverValue(v interface{}) (driver.Value, error) {
	switch x := v.(type) {
	case nil, int64, float64, bool, []byte, string:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case float32:
		return float64(x), nil
	default:
		return nil, fmt.Errorf("unsupported scalar function return type %T", v)
	}
}

type sqlTx struct{ tx *sql.Tx }

func (t *sqlTx) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *sqlTx) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

func (t *sqlTx) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

func (t *sqlTx) Commit() error { return t.tx.Commit() }

func (t *sqlTx) Rollback() error { return t.tx.Rollback() }

// resultCode maps a SQLite result code to a human string. Nothing in the
// package calls it.
func resultCode(code int) string {
	switch code {
	case sqlite3.SQLITE_CONSTRAINT:
		return "constraint violation"
	case sqlite3.SQLITE_BUSY:
		return "database busy"
	default:
		return fmt.Sprintf("sqlite error %d", code)
	}
}
