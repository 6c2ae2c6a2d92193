package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/probcomp/bayesdb/internal/ast"
	"github.com/probcomp/bayesdb/internal/backend"
	"github.com/probcomp/bayesdb/internal/cardinality"
	"github.com/probcomp/bayesdb/internal/catalog"
	"github.com/probcomp/bayesdb/internal/dberr"
	"github.com/probcomp/bayesdb/internal/sqlexec"
)

func (c *Connection) execCreateTable(ctx context.Context, tx sqlexec.Tx, n *ast.CreateTableStmt) error {
	if n.IfNotExists {
		if _, err := c.cat.LookupTable(ctx, tx, n.Name); err == nil {
			return nil
		}
	}
	cols := make([]catalog.ColumnDef, len(n.Columns))
	for i, cd := range n.Columns {
		cols[i] = catalog.ColumnDef{Name: cd.Name, Type: cd.Type, Rest: cd.Rest}
	}
	_, err := c.cat.CreateTable(ctx, tx, n.Name, cols)
	return err
}

func (c *Connection) execDropTable(ctx context.Context, tx sqlexec.Tx, n *ast.DropTableStmt) error {
	if n.IfExists {
		if _, err := c.cat.LookupTable(ctx, tx, n.Name); err != nil {
			return nil
		}
	}
	return c.cat.DropTable(ctx, tx, n.Name)
}

// resolveSchema turns a CREATE POPULATION ... WITH SCHEMA body into the
// variable list the catalog records, applying the heuristic guesser
// (internal/cardinality, ported from original_source/src/guess.py) to any
// column covered by a GUESS STATTYPES clause, and defaulting to numerical
// for any base-table column neither guessed nor explicitly typed (spec.md
// §3: "every population variable carries a stattype").
func (c *Connection) resolveSchema(ctx context.Context, tx sqlexec.Tx, tableName string, items []ast.SchemaItem) ([]catalog.VariableSpec, error) {
	table, err := c.cat.LookupTable(ctx, tx, tableName)
	if err != nil {
		return nil, err
	}
	cols, err := c.cat.TableColumns(ctx, tx, table.ID)
	if err != nil {
		return nil, err
	}

	assigned := make(map[string]string) // column -> stattype
	ignored := make(map[string]bool)
	var latents []catalog.VariableSpec

	needsGuess := func(names []string, all bool) error {
		targets := names
		if all {
			targets = make([]string, 0, len(cols))
			for _, col := range cols {
				targets = append(targets, col.Name)
			}
		}
		for _, name := range targets {
			if ignored[name] {
				continue
			}
			sketch := cardinality.New()
			rows, err := tx.Query(ctx, fmt.Sprintf("SELECT %s FROM %s", quoteIdent(name), quoteIdent(tableName)))
			if err != nil {
				return dberr.Internal(err.Error())
			}
			allIntegral, allNonNegative := true, true
			for rows.Next() {
				var v interface{}
				if err := rows.Scan(&v); err != nil {
					rows.Close()
					return dberr.Internal(err.Error())
				}
				switch x := v.(type) {
				case int64:
					sketch.Observe([]byte(fmt.Sprintf("%d", x)))
					if x < 0 {
						allNonNegative = false
					}
				case float64:
					sketch.Observe([]byte(fmt.Sprintf("%v", x)))
					allIntegral = false
				case string:
					sketch.Observe([]byte(x))
					allIntegral = false
				case nil:
				default:
					sketch.Observe([]byte(fmt.Sprintf("%v", x)))
				}
			}
			rows.Close()
			guess := cardinality.GuessStattype(sketch, allIntegral, allNonNegative)
			assigned[name] = string(guess)
			blob, _ := sketch.Marshal()
			if err := c.cat.SetColumnStats(ctx, tx, table.ID, name, string(guess), blob); err != nil {
				return err
			}
		}
		return nil
	}

	for _, item := range items {
		switch {
		case item.Ignore:
			for _, name := range item.Columns {
				ignored[name] = true
			}
		case item.Latent:
			for _, name := range item.Columns {
				latents = append(latents, catalog.VariableSpec{Name: name, Stattype: item.Stattype, Latent: true})
			}
		case item.Stattype != "":
			for _, name := range item.Columns {
				assigned[name] = item.Stattype
			}
		case item.GuessAll:
			if err := needsGuess(nil, true); err != nil {
				return nil, err
			}
		case len(item.GuessFor) > 0:
			if err := needsGuess(item.GuessFor, false); err != nil {
				return nil, err
			}
		}
	}

	var specs []catalog.VariableSpec
	for _, col := range cols {
		if ignored[col.Name] {
			continue
		}
		st, ok := assigned[col.Name]
		if !ok {
			st = string(cardinality.Numerical)
		}
		specs = append(specs, catalog.VariableSpec{Name: col.Name, Stattype: st})
	}
	specs = append(specs, latents...)
	return specs, nil
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}

func (c *Connection) execCreatePopulation(ctx context.Context, tx sqlexec.Tx, n *ast.CreatePopulationStmt) error {
	if n.IfNotExists {
		if _, err := c.cat.LookupPopulation(ctx, tx, n.Name); err == nil {
			return nil
		}
	}
	specs, err := c.resolveSchema(ctx, tx, n.Table, n.Schema)
	if err != nil {
		return err
	}
	_, err = c.cat.CreatePopulation(ctx, tx, n.Name, n.Table, specs)
	return err
}

func (c *Connection) execAlterPopulation(ctx context.Context, tx sqlexec.Tx, n *ast.AlterPopulationStmt) error {
	pop, err := c.cat.LookupPopulation(ctx, tx, n.Name)
	if err != nil {
		return err
	}
	for _, a := range n.Actions {
		switch a.Kind {
		case "add_variable":
			if err := c.cat.AddVariable(ctx, tx, pop.ID, catalog.VariableSpec{Name: a.Column, Stattype: a.Stattype}); err != nil {
				return err
			}
		case "drop_variable":
			if err := c.cat.DropVariable(ctx, tx, pop.ID, a.Column); err != nil {
				return err
			}
		case "rename_variable":
			if err := c.cat.RenameVariable(ctx, tx, pop.ID, a.Column, a.NewName); err != nil {
				return err
			}
		case "set_stattype":
			if err := c.cat.SetStattype(ctx, tx, pop.ID, []string{a.Column}, a.Stattype); err != nil {
				return err
			}
		default:
			return dberr.Internalf("unknown ALTER POPULATION action %q", a.Kind)
		}
	}
	return nil
}

func (c *Connection) execDropPopulation(ctx context.Context, tx sqlexec.Tx, n *ast.DropPopulationStmt) error {
	if n.IfExists {
		if _, err := c.cat.LookupPopulation(ctx, tx, n.Name); err != nil {
			return nil
		}
	}
	return c.cat.DropPopulation(ctx, tx, n.Name)
}

func (c *Connection) lookupTableName(ctx context.Context, tx sqlexec.Tx, tableID int64) (string, error) {
	row := tx.QueryRow(ctx, "SELECT name FROM bayesdb_table WHERE id = ?", tableID)
	var name string
	if err := row.Scan(&name); err != nil {
		return "", dberr.Internalf("table id %d not found: %v", tableID, err)
	}
	return name, nil
}

func (c *Connection) execCreateGenerator(ctx context.Context, tx sqlexec.Tx, n *ast.CreateGeneratorStmt) error {
	if n.IfNotExists {
		if _, err := c.cat.LookupGenerator(ctx, tx, n.Name); err == nil {
			return nil
		}
	}
	pop, err := c.cat.LookupPopulation(ctx, tx, n.Population)
	if err != nil {
		return err
	}
	b, err := c.registry.Lookup(n.Backend)
	if err != nil {
		return err
	}
	vars, err := c.cat.VariablesOfPopulation(ctx, tx, pop.ID)
	if err != nil {
		return err
	}
	tableName, err := c.lookupTableName(ctx, tx, pop.TableID)
	if err != nil {
		return err
	}
	varInfos := make([]backend.VariableInfo, len(vars))
	for i, v := range vars {
		varInfos[i] = backend.VariableInfo{Varno: backend.Varno(v.Varno), Column: v.Name, Stattype: v.Stattype}
	}
	popInfo := backend.PopulationInfo{PopulationID: pop.ID, BaseTable: tableName, Variables: varInfos}

	g, err := c.cat.CreateGenerator(ctx, tx, n.Name, pop.ID, n.Backend, n.Schema)
	if err != nil {
		return err
	}
	if err := b.CreateGenerator(g.ID, popInfo, n.Schema); err != nil {
		return dberr.Backend(n.Backend, err)
	}
	if fb, ok := b.(fittableBackend); ok {
		if err := fitGenerator(ctx, tx, fb, g.ID, tableName, varInfos); err != nil {
			return err
		}
	}
	return nil
}

// fittableBackend is implemented by backends (diag_gauss among them) whose
// CreateGenerator needs the base table's actual row data rather than only
// its schema; backend.Backend's CreateGenerator signature carries only
// PopulationInfo, so the executor reads the rows itself and hands them over
// via this backend-private extension.
type fittableBackend interface {
	Fit(generatorID int64, varnos []backend.Varno, rows [][]float64)
}

// fitGenerator reads every row of tableName's modeled columns, in vars
// order, and hands the fully-materialized float64 matrix to fb.Fit. Rows
// with a non-numeric or NULL value in any modeled column are skipped rather
// than failing the whole CREATE GENERATOR, since a reference backend cannot
// usefully fit a partial row.
func fitGenerator(ctx context.Context, tx sqlexec.Tx, fb fittableBackend, generatorID int64, tableName string, vars []backend.VariableInfo) error {
	cols := make([]string, len(vars))
	varnos := make([]backend.Varno, len(vars))
	for i, v := range vars {
		cols[i] = v.Column
		varnos[i] = v.Varno
	}
	q := "SELECT " + fmtIdentCols(cols) + " FROM " + quoteIdent(tableName)
	rows, err := tx.Query(ctx, q)
	if err != nil {
		return dberr.Internalf("reading %s for generator fit: %v", tableName, err)
	}
	defer rows.Close()

	dest := make([]interface{}, len(cols))
	destPtr := make([]interface{}, len(cols))
	for i := range dest {
		destPtr[i] = &dest[i]
	}
	var data [][]float64
	for rows.Next() {
		if err := rows.Scan(destPtr...); err != nil {
			return dberr.Internalf("scanning %s row for generator fit: %v", tableName, err)
		}
		row := make([]float64, len(cols))
		ok := true
		for i, v := range dest {
			f, isNum := asFloat(v)
			if !isNum {
				ok = false
				break
			}
			row[i] = f
		}
		if ok {
			data = append(data, row)
		}
	}
	if err := rows.Err(); err != nil {
		return dberr.Internalf("reading %s for generator fit: %v", tableName, err)
	}
	fb.Fit(generatorID, varnos, data)
	return nil
}

func asFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

func (c *Connection) execAlterGenerator(ctx context.Context, tx sqlexec.Tx, n *ast.AlterGeneratorStmt) error {
	name := n.Name
	for _, action := range n.Actions {
		fields := strings.Fields(action)
		if len(fields) != 3 || !strings.EqualFold(fields[0], "RENAME") || !strings.EqualFold(fields[1], "TO") {
			return dberr.Internalf("ALTER GENERATOR: unsupported action %q", action)
		}
		if err := c.cat.RenameGenerator(ctx, tx, name, fields[2]); err != nil {
			return err
		}
		name = fields[2]
	}
	return nil
}

func (c *Connection) execDropGenerator(ctx context.Context, tx sqlexec.Tx, n *ast.DropGeneratorStmt) error {
	if n.IfExists {
		if _, err := c.cat.LookupGenerator(ctx, tx, n.Name); err != nil {
			return nil
		}
	}
	g, err := c.cat.DropGenerator(ctx, tx, n.Name)
	if err != nil {
		return err
	}
	b, err := c.registry.Lookup(g.Backend)
	if err != nil {
		return err
	}
	return b.DropGenerator(g.ID)
}

func (c *Connection) execInitializeModels(ctx context.Context, tx sqlexec.Tx, n *ast.InitializeModelsStmt) error {
	g, err := c.cat.LookupGenerator(ctx, tx, n.Generator)
	if err != nil {
		return err
	}
	if n.IfNotExists {
		existing, err := c.cat.ListModels(ctx, tx, g.ID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}
	}
	b, err := c.registry.Lookup(g.Backend)
	if err != nil {
		return err
	}
	ids, err := b.InitializeModels(g.ID, n.N)
	if err != nil {
		return dberr.Backend(g.Backend, err)
	}
	return c.cat.InitializeModels(ctx, tx, g.ID, ids)
}

func (c *Connection) execDropModels(ctx context.Context, tx sqlexec.Tx, n *ast.DropModelsStmt) error {
	g, err := c.cat.LookupGenerator(ctx, tx, n.Generator)
	if err != nil {
		return err
	}
	ids, err := resolveModelSpec(ctx, c.cat, tx, g.ID, n.Models)
	if err != nil {
		return err
	}
	b, err := c.registry.Lookup(g.Backend)
	if err != nil {
		return err
	}
	if err := b.DropModels(g.ID, ids); err != nil {
		return dberr.Backend(g.Backend, err)
	}
	return c.cat.DropModels(ctx, tx, g.ID, ids)
}

// resolveModelSpec expands a USING MODEL/MODELS selection to concrete model
// indices, defaulting to every model currently registered for generatorID
// (spec.md §4.3).
func resolveModelSpec(ctx context.Context, cat *catalog.Catalog, tx sqlexec.Tx, generatorID int64, spec *ast.ModelSpec) ([]int, error) {
	all, err := cat.ListModels(ctx, tx, generatorID)
	if err != nil {
		return nil, err
	}
	if spec == nil || spec.Default {
		return all, nil
	}
	if spec.Single != nil {
		for _, m := range all {
			if m == *spec.Single {
				return []int{m}, nil
			}
		}
		return nil, dberr.Internalf("no such model %d", *spec.Single)
	}
	if spec.RangeLo != nil && spec.RangeHi != nil {
		var out []int
		for _, m := range all {
			if m >= *spec.RangeLo && m <= *spec.RangeHi {
				out = append(out, m)
			}
		}
		return out, nil
	}
	return all, nil
}
