// Package bayesdb is the embedded programmatic interface of spec.md §6:
// open, execute, next_row, close, register_backend, set_default_generator.
// It wires the default modernc.org/sqlite-backed executor and the
// diag_gauss reference statistical backend, and applies the §6
// environment-variable toggles (overridable per call via OpenOptions so an
// embedder never has to mutate its own process environment).
package bayesdb

import (
	"context"

	"go.uber.org/zap"

	"github.com/probcomp/bayesdb/internal/ast"
	"github.com/probcomp/bayesdb/internal/backend"
	"github.com/probcomp/bayesdb/internal/backend/diaggauss"
	"github.com/probcomp/bayesdb/internal/config"
	"github.com/probcomp/bayesdb/internal/executor"
	"github.com/probcomp/bayesdb/internal/logutil"
	"github.com/probcomp/bayesdb/internal/parser"
	"github.com/probcomp/bayesdb/internal/sqlexec"
)

// OpenOptions overrides bayesdb.toml and the process environment for one
// Open call (spec.md §6: "may be overridden per-call via OpenOptions for
// embedding code that does not want to mutate its process environment").
type OpenOptions struct {
	ConfigPath          string // path to a bayesdb.toml; "" uses config.Default()
	WizardMode          *bool
	DisableVersionCheck *bool
	CatalogCacheSize    int
	Backends            []backend.Backend // extra backends registered alongside diag_gauss
	Logger              *zap.Logger        // "" / nil keeps the process-wide logger
}

// BayesDB is one open embedded database: a SQL executor, its catalog, a
// backend registry, and the single connection driving statement execution
// (spec.md §5: "a single bdb connection").
type BayesDB struct {
	conn      *executor.Connection
	wizard    bool
	noVersion bool
	closers   []func() error
}

// Open opens (creating if absent) the single-file database at path, or a
// private in-memory database if path is "".
func Open(path string) (*BayesDB, error) {
	return OpenWith(path, OpenOptions{})
}

// OpenWith is Open with explicit overrides.
func OpenWith(path string, opts OpenOptions) (*BayesDB, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	if opts.WizardMode != nil {
		cfg.WizardMode = *opts.WizardMode
	}
	if opts.DisableVersionCheck != nil {
		cfg.DisableVersionCheck = *opts.DisableVersionCheck
	}

	if opts.Logger != nil {
		logutil.SetGlobalLogger(opts.Logger)
	}

	ex, err := sqlexec.OpenSQLite(path)
	if err != nil {
		return nil, err
	}

	dgDir := ""
	if path != "" {
		dgDir = path + ".diaggauss"
	}
	dg, err := diaggauss.Open(dgDir)
	if err != nil {
		ex.Close()
		return nil, err
	}
	registry := backend.NewRegistry()
	if err := registry.Register(dg); err != nil {
		ex.Close()
		return nil, err
	}
	for _, b := range opts.Backends {
		if err := registry.Register(b); err != nil {
			ex.Close()
			return nil, err
		}
	}

	cacheSize := opts.CatalogCacheSize
	if cacheSize <= 0 {
		cacheSize = cfg.Catalog.CacheSize
	}

	conn, err := executor.Open(context.Background(), ex, cacheSize, registry)
	if err != nil {
		ex.Close()
		return nil, err
	}
	return &BayesDB{
		conn:      conn,
		wizard:    cfg.WizardMode,
		noVersion: cfg.DisableVersionCheck,
		closers:   []func() error{dg.Close},
	}, nil
}

// RegisterBackend adds an additional statistical backend after Open,
// available to subsequent CREATE GENERATOR ... USING statements.
func (db *BayesDB) RegisterBackend(b backend.Backend) error {
	return db.conn.RegisterBackend(b)
}

// SetDefaultGenerator overrides which generator answers "the" generator of
// population when it carries more than one (spec.md §6).
func (db *BayesDB) SetDefaultGenerator(population, generator string) {
	db.conn.SetDefaultGenerator(population, generator)
}

// WizardMode reports whether BAYESDB_WIZARD_MODE (or its OpenOptions
// override) is in effect for this connection.
func (db *BayesDB) WizardMode() bool { return db.wizard }

// Cursor iterates one statement's result rows.
type Cursor struct{ c *executor.Cursor }

// Next advances the cursor; it returns false once exhausted or on error.
func (cur *Cursor) Next(ctx context.Context) (bool, error) {
	if cur.c == nil {
		return false, nil
	}
	return cur.c.Next(ctx)
}

// Scan copies the current row's columns into dest.
func (cur *Cursor) Scan(dest ...interface{}) error {
	return cur.c.Scan(dest...)
}

// Columns returns the result column names.
func (cur *Cursor) Columns() ([]string, error) {
	if cur.c == nil {
		return nil, nil
	}
	return cur.c.Columns()
}

// Close abandons the cursor early.
func (cur *Cursor) Close() error {
	if cur.c == nil {
		return nil
	}
	return cur.c.Close()
}

// Execute parses and runs one BQL phrase, returning a Cursor for statements
// that produce rows (SELECT, ESTIMATE, SIMULATE, INFER, INFER EXPLICIT) and
// a nil Cursor otherwise (spec.md §6 execute/next_row).
func (db *BayesDB) Execute(ctx context.Context, phrase string) (*Cursor, error) {
	stmt, err := parser.ParseOne(phrase)
	if err != nil {
		return nil, err
	}
	return db.ExecuteStmt(ctx, stmt)
}

// ExecuteStmt runs an already-parsed statement, as Execute does internally;
// exposed for callers driving a parser.ParseAll script one phrase at a time.
func (db *BayesDB) ExecuteStmt(ctx context.Context, stmt ast.Statement) (*Cursor, error) {
	cur, err := db.conn.Execute(ctx, stmt)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return &Cursor{}, nil
	}
	return &Cursor{c: cur}, nil
}

// Interrupt requests cancellation of the connection's current operation
// (spec.md §5's interrupt flag).
func (db *BayesDB) Interrupt() { db.conn.Interrupt() }

// Close releases the underlying store and any backend-private resources
// (e.g. diag_gauss's pebble instance).
func (db *BayesDB) Close() error {
	err := db.conn.Close()
	for _, c := range db.closers {
		if cerr := c(); err == nil {
			err = cerr
		}
	}
	return err
}
