package sqlexec

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/probcomp/bayesdb/internal/dberr"
)

// MySQLExecutor adapts an external MySQL/MariaDB server as the relational
// store. Unlike SQLiteExecutor, the plain database/sql wire protocol has no
// hook for registering Go functions as SQL-callable scalars, so
// RegisterScalarFunc always fails here; DESIGN.md records the consequence
// (executor.Open returns that error, so no executor.Connection can be
// opened over this adapter).
type MySQLExecutor struct {
	db *sql.DB
}

// OpenMySQL opens a connection pool against dsn (driver-native DSN syntax,
// e.g. "user:pass@tcp(host:3306)/dbname").
func OpenMySQL(dsn string) (*MySQLExecutor, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	return &MySQLExecutor{db: db}, nil
}

func (m *MySQLExecutor) Dialect() Dialect { return DialectMySQL }

func (m *MySQLExecutor) Close() error { return m.db.Close() }

func (m *MySQLExecutor) Begin(ctx context.Context) (Tx, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx}, nil
}

func (m *MySQLExecutor) RegisterScalarFunc(name string, nargs int, fn ScalarFunc) error {
	return dberr.Internalf("mysql executor does not support user-defined scalar functions (attempted to register %q)", name)
}
