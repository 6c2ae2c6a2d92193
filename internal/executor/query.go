package executor

import (
	"context"
	"database/sql"

	"github.com/probcomp/bayesdb/internal/ast"
	"github.com/probcomp/bayesdb/internal/backend"
	"github.com/probcomp/bayesdb/internal/catalog"
	"github.com/probcomp/bayesdb/internal/compiler"
	"github.com/probcomp/bayesdb/internal/dberr"
	"github.com/probcomp/bayesdb/internal/modelset"
	"github.com/probcomp/bayesdb/internal/sqlexec"
)

// Cursor iterates a query's result rows, polling the connection's interrupt
// flag between each one (spec.md §5 point ii: "between emitted cursor
// rows"). It owns the implicit transaction the query ran in, if any, and
// commits it once the rows are exhausted or rolls it back on error.
type Cursor struct {
	conn    *Connection
	tx      sqlexec.Tx
	owned   bool
	rows    *sql.Rows
	cleanup func(sqlexec.Tx) error
	done    bool
}

// Next advances the cursor, returning false once rows are exhausted (at
// which point the underlying transaction has already been finalized).
func (cur *Cursor) Next(ctx context.Context) (bool, error) {
	if cur.done {
		return false, nil
	}
	if err := cur.conn.checkInterrupt(); err != nil {
		cur.finish(err)
		return false, err
	}
	if !cur.rows.Next() {
		return false, cur.finish(cur.rows.Err())
	}
	return true, nil
}

// Scan copies the current row's columns into dest, as database/sql.Rows.Scan.
func (cur *Cursor) Scan(dest ...interface{}) error {
	return cur.rows.Scan(dest...)
}

// Columns returns the result column names.
func (cur *Cursor) Columns() ([]string, error) {
	return cur.rows.Columns()
}

// Close finalizes the cursor early, e.g. when a caller abandons iteration
// before exhausting it.
func (cur *Cursor) Close() error {
	if cur.done {
		return nil
	}
	cur.rows.Close()
	return cur.finish(nil)
}

func (cur *Cursor) finish(err error) error {
	cur.done = true
	if cur.cleanup != nil {
		if cerr := cur.cleanup(cur.tx); err == nil {
			err = cerr
		}
	}
	return cur.conn.endImplicit(cur.owned, err)
}

// runPlan executes a compiled plan's SQL against tx and wraps the result in
// a Cursor; tx was opened by the caller (owned indicates whether this
// Cursor should commit/rollback it once exhausted).
func (c *Connection) runPlan(ctx context.Context, tx sqlexec.Tx, owned bool, plan *compiler.Plan, cleanup func(sqlexec.Tx) error) (*Cursor, error) {
	rows, err := tx.Query(ctx, plan.SQL, plan.Args...)
	if err != nil {
		c.endImplicit(owned, err)
		return nil, dberr.Internalf("executing compiled query: %v", err)
	}
	return &Cursor{conn: c, tx: tx, owned: owned, rows: rows, cleanup: cleanup}, nil
}

// execQuery runs a plain pass-through SELECT (spec.md §8 property 2: "a
// statement with no BQL operator node compiles to itself").
func (c *Connection) execQuery(ctx context.Context, n *ast.SelectStmt, scope *compiler.Scope) (*Cursor, error) {
	plan, err := compiler.Compile(n, scope)
	if err != nil {
		return nil, err
	}
	tx, owned, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	return c.runPlan(ctx, tx, owned, plan, nil)
}

// buildScope resolves a population/generator/model-set triple from the
// catalog into the fully-resolved Scope the compiler requires; modeledBy
// empty means "the population's sole generator" (spec.md §4.3).
func (c *Connection) buildScope(ctx context.Context, tx sqlexec.Tx, populationName, modeledBy string, usingModels *ast.ModelSpec) (*compiler.Scope, error) {
	pop, err := c.cat.LookupPopulation(ctx, tx, populationName)
	if err != nil {
		return nil, err
	}
	tableName, err := c.lookupTableName(ctx, tx, pop.TableID)
	if err != nil {
		return nil, err
	}
	vars, err := c.cat.VariablesOfPopulation(ctx, tx, pop.ID)
	if err != nil {
		return nil, err
	}
	scope := &compiler.Scope{
		PopulationID:   pop.ID,
		BaseTable:      tableName,
		RowIDColumn:    "rowid",
		VariableVarno:  make(map[string]int32, len(vars)),
		VariableColumn: make(map[string]string, len(vars)),
	}
	for _, v := range vars {
		scope.VariableVarno[v.Name] = v.Varno
		scope.VariableColumn[v.Name] = v.Name
	}

	if modeledBy == "" {
		if override, ok := c.defaultGenerator[populationName]; ok {
			modeledBy = override
		}
	}
	var gen *catalog.Generator
	if modeledBy != "" {
		gen, err = c.cat.LookupGenerator(ctx, tx, modeledBy)
	} else {
		gen, err = c.cat.DefaultGenerator(ctx, tx, populationName, pop.ID)
	}
	if err != nil {
		return nil, err
	}
	scope.GeneratorID = gen.ID
	scope.GeneratorName = gen.Name

	modelIDs, err := resolveModelSpec(ctx, c.cat, tx, gen.ID, usingModels)
	if err != nil {
		return nil, err
	}
	scope.ModelSet = modelset.FromSlice(modelIDs)
	return scope, nil
}

func (c *Connection) execEstimate(ctx context.Context, n *ast.EstimateStmt) (*Cursor, error) {
	tx, owned, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	scope, err := c.buildScope(ctx, tx, n.Source.Population, n.ModeledBy, n.UsingModels)
	if err != nil {
		c.endImplicit(owned, err)
		return nil, err
	}
	plan, err := compiler.Compile(n, scope)
	if err != nil {
		c.endImplicit(owned, err)
		return nil, err
	}
	return c.runPlan(ctx, tx, owned, plan, nil)
}

func (c *Connection) execInfer(ctx context.Context, n *ast.InferStmt) (*Cursor, error) {
	tx, owned, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	scope, err := c.buildScope(ctx, tx, n.Population, n.ModeledBy, n.UsingModels)
	if err != nil {
		c.endImplicit(owned, err)
		return nil, err
	}
	plan, err := compiler.Compile(n, scope)
	if err != nil {
		c.endImplicit(owned, err)
		return nil, err
	}
	return c.runPlan(ctx, tx, owned, plan, nil)
}

func (c *Connection) execInferExplicit(ctx context.Context, n *ast.InferExplicitStmt) (*Cursor, error) {
	tx, owned, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	scope, err := c.buildScope(ctx, tx, n.Population, n.ModeledBy, n.UsingModels)
	if err != nil {
		c.endImplicit(owned, err)
		return nil, err
	}
	plan, err := compiler.Compile(n, scope)
	if err != nil {
		c.endImplicit(owned, err)
		return nil, err
	}
	return c.runPlan(ctx, tx, owned, plan, nil)
}

// execSimulate runs SIMULATE's two phases (spec.md §4.4): draw samples from
// the generator's backend, materialize them into a temp table, then read it
// back with the compiled projection. The temp table is dropped once the
// cursor is exhausted or abandoned.
func (c *Connection) execSimulate(ctx context.Context, n *ast.SimulateStmt) (*Cursor, error) {
	tx, owned, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	scope, err := c.buildScope(ctx, tx, n.Population, n.ModeledBy, n.UsingModels)
	if err != nil {
		c.endImplicit(owned, err)
		return nil, err
	}
	plan, err := compiler.Compile(n, scope)
	if err != nil {
		c.endImplicit(owned, err)
		return nil, err
	}
	sp := plan.Simulate

	limitRow := tx.QueryRow(ctx, "SELECT "+sp.LimitSQL, sp.LimitArgs...)
	var limit int64
	if err := limitRow.Scan(&limit); err != nil {
		err = dberr.Internalf("evaluating SIMULATE LIMIT: %v", err)
		c.endImplicit(owned, err)
		return nil, err
	}
	if limit < 0 {
		err := dberr.Internal("SIMULATE LIMIT must not be negative")
		c.endImplicit(owned, err)
		return nil, err
	}

	constraints := make([]backend.Target, len(sp.Constraints))
	for i, cexpr := range sp.Constraints {
		row := tx.QueryRow(ctx, "SELECT "+cexpr.ValueSQL, cexpr.ValueArgs...)
		var v interface{}
		if err := row.Scan(&v); err != nil {
			err = dberr.Internalf("evaluating SIMULATE GIVEN clause: %v", err)
			c.endImplicit(owned, err)
			return nil, err
		}
		constraints[i] = backend.Target{Varno: backend.Varno(cexpr.Varno), Value: v}
	}

	g, err := c.lookupGeneratorByID(ctx, sp.GeneratorID)
	if err != nil {
		c.endImplicit(owned, err)
		return nil, err
	}
	b, err := c.registry.Lookup(g.Backend)
	if err != nil {
		c.endImplicit(owned, err)
		return nil, err
	}

	targetVarnos := make([]backend.Varno, len(sp.TargetVarno))
	for i, vn := range sp.TargetVarno {
		targetVarnos[i] = backend.Varno(vn)
	}

	models := sp.ModelSet.ToSlice()
	if len(models) == 0 {
		err := dberr.NoModels(g.Name)
		c.endImplicit(owned, err)
		return nil, err
	}
	samples := make([][]interface{}, 0, limit)
	for i := 0; int64(i) < limit; i++ {
		if err := c.checkInterrupt(); err != nil {
			c.endImplicit(owned, err)
			return nil, err
		}
		modelID := models[i%len(models)]
		draw, err := b.SimulateJoint(sp.GeneratorID, modelID, targetVarnos, constraints, 1)
		if err != nil {
			err = dberr.Backend(g.Backend, err)
			c.endImplicit(owned, err)
			return nil, err
		}
		samples = append(samples, draw[0])
	}

	if err := createSimulateTable(ctx, tx, sp.TempTable, sp.Targets); err != nil {
		c.endImplicit(owned, err)
		return nil, err
	}
	if err := insertSimulateRows(ctx, tx, sp.TempTable, sp.Targets, samples); err != nil {
		c.endImplicit(owned, err)
		return nil, err
	}

	cleanup := func(tx sqlexec.Tx) error {
		_, err := tx.Exec(ctx, "DROP TABLE "+quoteIdent(sp.TempTable))
		return err
	}
	return c.runPlan(ctx, tx, owned, plan, cleanup)
}

func createSimulateTable(ctx context.Context, tx sqlexec.Tx, name string, cols []string) error {
	ddl := "CREATE TEMPORARY TABLE " + quoteIdent(name) + " ("
	for i, col := range cols {
		if i > 0 {
			ddl += ", "
		}
		ddl += quoteIdent(col)
	}
	ddl += ")"
	_, err := tx.Exec(ctx, ddl)
	if err != nil {
		return dberr.Internalf("materializing SIMULATE temp table: %v", err)
	}
	return nil
}

func insertSimulateRows(ctx context.Context, tx sqlexec.Tx, name string, cols []string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	stmt := "INSERT INTO " + quoteIdent(name) + " (" + fmtIdentCols(cols) + ") VALUES (" + placeholderList(len(cols)) + ")"
	for _, r := range rows {
		if _, err := tx.Exec(ctx, stmt, r...); err != nil {
			return dberr.Internalf("inserting SIMULATE row: %v", err)
		}
	}
	return nil
}

func fmtIdentCols(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += quoteIdent(c)
	}
	return out
}

func placeholderList(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			out += ", "
		}
		out += "?"
	}
	return out
}
