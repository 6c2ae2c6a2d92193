package sqlexec

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/probcomp/bayesdb/internal/dberr"
)

// PostgresExecutor adapts an external PostgreSQL server. As with
// MySQLExecutor, the lib/pq wire protocol exposes no user-defined-function
// hook, so RegisterScalarFunc fails; see DESIGN.md.
type PostgresExecutor struct {
	db *sql.DB
}

// OpenPostgres opens a connection pool against a "postgres://" connection
// string.
func OpenPostgres(dsn string) (*PostgresExecutor, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return &PostgresExecutor{db: db}, nil
}

func (p *PostgresExecutor) Dialect() Dialect { return DialectPostgres }

func (p *PostgresExecutor) Close() error { return p.db.Close() }

func (p *PostgresExecutor) Begin(ctx context.Context) (Tx, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx}, nil
}

func (p *PostgresExecutor) RegisterScalarFunc(name string, nargs int, fn ScalarFunc) error {
	return dberr.Internalf("postgres executor does not support user-defined scalar functions (attempted to register %q)", name)
}
