// Package executor drives one bayesdb connection: transaction lifecycle
// (spec.md §5: "BEGIN/COMMIT/ROLLBACK map 1:1 to the engine's transactions.
// Nesting is forbidden"), the single-threaded interrupt flag polled between
// ANALYZE chunks and emitted cursor rows (spec.md §5), and dispatch of every
// parsed statement to the catalog, compiler, and backend registry.
package executor

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/probcomp/bayesdb/internal/ast"
	"github.com/probcomp/bayesdb/internal/backend"
	"github.com/probcomp/bayesdb/internal/catalog"
	"github.com/probcomp/bayesdb/internal/dberr"
	"github.com/probcomp/bayesdb/internal/logutil"
	"github.com/probcomp/bayesdb/internal/operators"
	"github.com/probcomp/bayesdb/internal/sqlexec"
)

// Connection is one bayesdb session: a catalog, a backend registry, and the
// single SQL executor they share.
type Connection struct {
	ex       sqlexec.Executor
	cat      *catalog.Catalog
	registry *backend.Registry
	log      *zap.Logger

	tx        sqlexec.Tx // non-nil while an explicit/implicit transaction is open
	explicit  bool       // true if the open tx came from a user BEGIN
	interrupt atomic.Bool

	defaultGenerator map[string]string // population name -> generator name override (set_default_generator)
}

// RegisterBackend adds an additional statistical backend, available to
// subsequent CREATE GENERATOR ... USING statements (spec.md §6
// register_backend).
func (c *Connection) RegisterBackend(b backend.Backend) error {
	return c.registry.Register(b)
}

// SetDefaultGenerator overrides which generator resolves a population's
// "the" generator (spec.md §6 embedded interface set_default_generator),
// used when a population carries more than one and AmbiguousDefaultGenerator
// would otherwise result.
func (c *Connection) SetDefaultGenerator(population, generator string) {
	if c.defaultGenerator == nil {
		c.defaultGenerator = make(map[string]string)
	}
	c.defaultGenerator[population] = generator
}

// Open prepares a connection: installs the catalog schema if absent and
// registers the model-operator scalar functions (internal/operators)
// against ex, resolving generators through cat/registry.
func Open(ctx context.Context, ex sqlexec.Executor, cacheSize int, registry *backend.Registry) (*Connection, error) {
	cat, err := catalog.New(ex, cacheSize)
	if err != nil {
		return nil, err
	}
	c := &Connection{ex: ex, cat: cat, registry: registry, log: logutil.GetGlobalLogger()}

	// Register before the first Begin: the SQLite driver installs registered
	// functions on each connection as it opens it, and the pool keeps
	// reusing the connection that first Begin opens.
	if err := operators.Register(ex, c.resolveGenerator); err != nil {
		return nil, err
	}

	tx, err := ex.Begin(ctx)
	if err != nil {
		return nil, err
	}
	if err := catalog.InstallSchema(ctx, tx); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return c, nil
}

// Interrupt requests cancellation of the connection's current operation,
// observed at the three poll points of spec.md §5.
func (c *Connection) Interrupt() { c.interrupt.Store(true) }

func (c *Connection) checkInterrupt() error {
	if c.interrupt.CompareAndSwap(true, false) {
		return dberr.Cancelled()
	}
	return nil
}

// Close releases the underlying SQL executor.
func (c *Connection) Close() error {
	if c.tx != nil {
		c.tx.Rollback()
	}
	return c.ex.Close()
}

// resolveGenerator is the operators.Resolver this connection installs: it
// looks up a generator's backend by id using whatever transaction is
// currently open (spec.md §5: all catalog reads happen inside the caller's
// transaction, never a side connection).
func (c *Connection) resolveGenerator(generatorID int64) (*operators.GeneratorInfo, error) {
	if c.tx == nil {
		return nil, dberr.Internal("bql operator invoked outside a transaction")
	}
	ctx := context.Background()
	g, err := c.lookupGeneratorByID(ctx, generatorID)
	if err != nil {
		return nil, err
	}
	b, err := c.registry.Lookup(g.Backend)
	if err != nil {
		return nil, err
	}
	vars, err := c.cat.VariablesOfPopulation(ctx, c.tx, g.PopulationID)
	if err != nil {
		return nil, err
	}
	byVarno := make(map[backend.Varno]string, len(vars))
	colnoByVarno := make(map[backend.Varno]int, len(vars))
	for _, v := range vars {
		byVarno[backend.Varno(v.Varno)] = v.Stattype
		colnoByVarno[backend.Varno(v.Varno)] = v.Colno
	}

	tableID, err := c.cat.PopulationTableID(ctx, c.tx, g.PopulationID)
	if err != nil {
		return nil, err
	}
	tableName, err := c.lookupTableName(ctx, c.tx, tableID)
	if err != nil {
		return nil, err
	}
	cols, err := c.cat.TableColumns(ctx, c.tx, tableID)
	if err != nil {
		return nil, err
	}
	columnByColno := make(map[int]string, len(cols))
	for _, col := range cols {
		columnByColno[col.Colno] = col.Name
	}

	return &operators.GeneratorInfo{
		Backend: b,
		Stattype: func(vn backend.Varno) string {
			return byVarno[vn]
		},
		ColumnPairData: func(v1, v2 backend.Varno) ([]interface{}, []interface{}, error) {
			colno1, ok1 := colnoByVarno[v1]
			colno2, ok2 := colnoByVarno[v2]
			col1, nameOK1 := columnByColno[colno1]
			col2, nameOK2 := columnByColno[colno2]
			if !ok1 || !ok2 || !nameOK1 || !nameOK2 {
				return nil, nil, dberr.Internal("correlation: variable has no base-table column")
			}
			query := fmt.Sprintf(
				"SELECT %s, %s FROM %s WHERE %s IS NOT NULL AND %s IS NOT NULL",
				quoteIdent(col1), quoteIdent(col2), quoteIdent(tableName), quoteIdent(col1), quoteIdent(col2))
			rows, err := c.tx.Query(ctx, query)
			if err != nil {
				return nil, nil, dberr.Internalf("fetching correlation data: %v", err)
			}
			defer rows.Close()
			var data1, data2 []interface{}
			for rows.Next() {
				var a, bVal interface{}
				if err := rows.Scan(&a, &bVal); err != nil {
					return nil, nil, dberr.Internal(err.Error())
				}
				data1 = append(data1, a)
				data2 = append(data2, bVal)
			}
			return data1, data2, rows.Err()
		},
	}, nil
}

func (c *Connection) lookupGeneratorByID(ctx context.Context, generatorID int64) (*catalog.Generator, error) {
	row := c.tx.QueryRow(ctx, "SELECT name FROM bayesdb_generator WHERE id = ?", generatorID)
	var name string
	if err := row.Scan(&name); err != nil {
		return nil, dberr.Internalf("generator id %d not found: %v", generatorID, err)
	}
	return c.cat.LookupGenerator(ctx, c.tx, name)
}

// begin opens an implicit one-statement transaction if none is already
// open; the explicit BEGIN statement is handled by execBegin.
func (c *Connection) begin(ctx context.Context) (sqlexec.Tx, bool, error) {
	if c.tx != nil {
		return c.tx, false, nil
	}
	tx, err := c.ex.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	c.tx = tx
	return tx, true, nil
}

func (c *Connection) endImplicit(owned bool, err error) error {
	if !owned {
		return err
	}
	tx := c.tx
	c.tx = nil
	if err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Execute runs one parsed statement to completion, returning a Cursor for
// statements that produce rows (plain SELECT, ESTIMATE, SIMULATE, INFER,
// INFER EXPLICIT) or nil otherwise.
func (c *Connection) Execute(ctx context.Context, stmt ast.Statement) (*Cursor, error) {
	if err := c.checkInterrupt(); err != nil {
		return nil, err
	}
	switch n := stmt.(type) {
	case *ast.BeginStmt:
		return nil, c.execBegin(ctx)
	case *ast.CommitStmt:
		return nil, c.execCommit(ctx)
	case *ast.RollbackStmt:
		return nil, c.execRollback(ctx)
	case *ast.EmptyStmt:
		return nil, nil

	case *ast.CreateTableStmt:
		return nil, c.withImplicitTx(ctx, func(tx sqlexec.Tx) error { return c.execCreateTable(ctx, tx, n) })
	case *ast.DropTableStmt:
		return nil, c.withImplicitTx(ctx, func(tx sqlexec.Tx) error { return c.execDropTable(ctx, tx, n) })

	case *ast.CreatePopulationStmt:
		return nil, c.withImplicitTx(ctx, func(tx sqlexec.Tx) error { return c.execCreatePopulation(ctx, tx, n) })
	case *ast.AlterPopulationStmt:
		return nil, c.withImplicitTx(ctx, func(tx sqlexec.Tx) error { return c.execAlterPopulation(ctx, tx, n) })
	case *ast.DropPopulationStmt:
		return nil, c.withImplicitTx(ctx, func(tx sqlexec.Tx) error { return c.execDropPopulation(ctx, tx, n) })

	case *ast.CreateGeneratorStmt:
		return nil, c.withImplicitTx(ctx, func(tx sqlexec.Tx) error { return c.execCreateGenerator(ctx, tx, n) })
	case *ast.AlterGeneratorStmt:
		return nil, c.withImplicitTx(ctx, func(tx sqlexec.Tx) error { return c.execAlterGenerator(ctx, tx, n) })
	case *ast.DropGeneratorStmt:
		return nil, c.withImplicitTx(ctx, func(tx sqlexec.Tx) error { return c.execDropGenerator(ctx, tx, n) })

	case *ast.InitializeModelsStmt:
		return nil, c.withImplicitTx(ctx, func(tx sqlexec.Tx) error { return c.execInitializeModels(ctx, tx, n) })
	case *ast.DropModelsStmt:
		return nil, c.withImplicitTx(ctx, func(tx sqlexec.Tx) error { return c.execDropModels(ctx, tx, n) })
	case *ast.AnalyzeStmt:
		return nil, c.execAnalyze(ctx, n)

	case *ast.SelectStmt:
		return c.execQuery(ctx, n, nil)
	case *ast.EstimateStmt:
		return c.execEstimate(ctx, n)
	case *ast.SimulateStmt:
		return c.execSimulate(ctx, n)
	case *ast.InferStmt:
		return c.execInfer(ctx, n)
	case *ast.InferExplicitStmt:
		return c.execInferExplicit(ctx, n)

	default:
		return nil, dberr.Internalf("executor: unsupported statement type %T", stmt)
	}
}

func (c *Connection) execBegin(ctx context.Context) error {
	if c.tx != nil {
		return dberr.Transaction("BEGIN while a transaction is already open (nesting is forbidden)")
	}
	tx, err := c.ex.Begin(ctx)
	if err != nil {
		return err
	}
	c.tx = tx
	c.explicit = true
	return nil
}

func (c *Connection) execCommit(ctx context.Context) error {
	if c.tx == nil || !c.explicit {
		return dberr.Transaction("COMMIT without a matching BEGIN")
	}
	tx := c.tx
	c.tx, c.explicit = nil, false
	return tx.Commit()
}

func (c *Connection) execRollback(ctx context.Context) error {
	if c.tx == nil || !c.explicit {
		return dberr.Transaction("ROLLBACK without a matching BEGIN")
	}
	tx := c.tx
	c.tx, c.explicit = nil, false
	return tx.Rollback()
}

// withImplicitTx runs fn inside the caller's open explicit transaction if
// one exists, or a fresh one-statement implicit transaction otherwise. When
// it runs inside the caller's own explicit transaction, fn additionally
// runs in its own savepoint (SPEC_FULL.md's per-phrase savepoint
// supplement), so one failing MML statement inside a user BEGIN...COMMIT
// block rolls back only its own catalog mutation rather than the whole
// ambient transaction.
func (c *Connection) withImplicitTx(ctx context.Context, fn func(tx sqlexec.Tx) error) error {
	tx, owned, err := c.begin(ctx)
	if err != nil {
		return err
	}
	if !owned {
		return c.withSavepoint(ctx, tx, fn)
	}
	err = fn(tx)
	return c.endImplicit(owned, err)
}

// withSavepoint runs fn inside a freshly named SAVEPOINT on tx, releasing it
// on success and rolling back to it (then releasing it) on failure, exactly
// as original_source/bayesdb.py's sqlite3_savepoint does: "ROLLBACK TO
// undoes any effects but leaves the savepoint as is... for either success
// or failure we must release the savepoint explicitly."
func (c *Connection) withSavepoint(ctx context.Context, tx sqlexec.Tx, fn func(tx sqlexec.Tx) error) error {
	name := "x" + strings.ReplaceAll(uuid.New().String(), "-", "")
	if _, err := tx.Exec(ctx, "SAVEPOINT "+name); err != nil {
		return err
	}
	fnErr := fn(tx)
	if fnErr != nil {
		if _, err := tx.Exec(ctx, "ROLLBACK TO "+name); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, "RELEASE "+name); err != nil {
		if fnErr != nil {
			return fnErr
		}
		return err
	}
	return fnErr
}
