package catalog

import (
	"bytes"
	"context"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pierrec/lz4"

	"github.com/probcomp/bayesdb/internal/dberr"
	"github.com/probcomp/bayesdb/internal/sqlexec"
)

// Table is the bookkeeping row for one base table known to the catalog.
type Table struct {
	ID   int64
	Name string
}

// Column is one column of a base table, with its optional stattype guess
// left over from GUESS STATTYPES. The serialized cardinality sketch
// (internal/cardinality) written by SetColumnStats is not carried here.
type Column struct {
	ID            int64
	TableID       int64
	Name          string
	Colno         int
	StattypeGuess string
}

// ColumnDef describes one column of a CREATE TABLE statement, already
// resolved to a SQL type name by the compiler.
type ColumnDef struct {
	Name string
	Type string
	Rest string // constraints, forwarded verbatim (NOT NULL, PRIMARY KEY, ...)
}

// Population is a named, typed view over one base table (spec.md §3).
type Population struct {
	ID      int64
	Name    string
	TableID int64
}

// Variable is one statistically typed column of a population.
type Variable struct {
	PopulationID int64
	Varno        int32
	Colno        int
	Name         string
	Stattype     string
	Latent       bool
}

// VariableSpec is one variable to bind when creating or extending a
// population.
type VariableSpec struct {
	Name     string
	Stattype string
	Latent   bool
}

// Generator is a named, backend-bound probabilistic model of a population
// (spec.md §3).
type Generator struct {
	ID           int64
	Name         string
	PopulationID int64
	Backend      string
	Schema       string // decompressed opaque backend schema text
}

// Catalog is the per-database-connection handle to the bayesdb_* system
// tables. It holds an LRU keyed by "kind:name" that DROP/RENAME invalidate
// key by key, never wholesale. No lookup adds entries to it or reads from
// it, so every lookup queries the system tables.
type Catalog struct {
	ex    sqlexec.Executor
	cache *lru.Cache[string, int64]
}

// New returns a Catalog backed by ex, caching up to cacheSize resolved
// names.
func New(ex sqlexec.Executor, cacheSize int) (*Catalog, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	c, err := lru.New[string, int64](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Catalog{ex: ex, cache: c}, nil
}

func cacheKey(kind, name string) string { return kind + ":" + name }

func (c *Catalog) invalidate(kind, name string) { c.cache.Remove(cacheKey(kind, name)) }

// --- tables ---------------------------------------------------------------

// CreateTable executes the real CREATE TABLE DDL (dialect-quoted) and
// records bookkeeping rows for its columns.
func (c *Catalog) CreateTable(ctx context.Context, tx sqlexec.Tx, name string, cols []ColumnDef) (*Table, error) {
	var ddl bytes.Buffer
	ddl.WriteString("CREATE TABLE ")
	ddl.WriteString(sqlexec.QuoteIdent(c.ex.Dialect(), name))
	ddl.WriteString(" (")
	for i, col := range cols {
		if i > 0 {
			ddl.WriteString(", ")
		}
		ddl.WriteString(sqlexec.QuoteIdent(c.ex.Dialect(), col.Name))
		ddl.WriteByte(' ')
		ddl.WriteString(col.Type)
		if col.Rest != "" {
			ddl.WriteByte(' ')
			ddl.WriteString(col.Rest)
		}
	}
	ddl.WriteString(")")
	if _, err := tx.Exec(ctx, ddl.String()); err != nil {
		return nil, dberr.Internalf("creating base table %s: %v", name, err)
	}

	res, err := tx.Exec(ctx, "INSERT INTO bayesdb_table (name) VALUES (?)", name)
	if err != nil {
		return nil, dberr.Internalf("registering table %s: %v", name, err)
	}
	tableID, err := res.LastInsertId()
	if err != nil {
		return nil, dberr.Internal(err.Error())
	}
	for i, col := range cols {
		if _, err := tx.Exec(ctx,
			"INSERT INTO bayesdb_table_column (table_id, name, colno) VALUES (?, ?, ?)",
			tableID, col.Name, i); err != nil {
			return nil, dberr.Internalf("registering column %s.%s: %v", name, col.Name, err)
		}
	}
	return &Table{ID: tableID, Name: name}, nil
}

// PopulationsOnTable lists every population still backed by tableID, used
// to block dropping a base table that is still in use (spec.md §4.3 edge
// case: "Dropping a base-table column fails if any live population
// references it").
func (c *Catalog) PopulationsOnTable(ctx context.Context, tx sqlexec.Tx, tableID int64) ([]Population, error) {
	rows, err := tx.Query(ctx, "SELECT id, name FROM bayesdb_population WHERE table_id = ?", tableID)
	if err != nil {
		return nil, dberr.Internal(err.Error())
	}
	defer rows.Close()
	var out []Population
	for rows.Next() {
		p := Population{TableID: tableID}
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, dberr.Internal(err.Error())
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DropTable removes a table's bookkeeping and the underlying SQL table,
// failing if any population still references it (spec.md §4.3 edge case: a
// table with a live population cannot be dropped).
func (c *Catalog) DropTable(ctx context.Context, tx sqlexec.Tx, name string) error {
	t, err := c.LookupTable(ctx, tx, name)
	if err != nil {
		return err
	}
	pops, err := c.PopulationsOnTable(ctx, tx, t.ID)
	if err != nil {
		return err
	}
	if len(pops) > 0 {
		return dberr.TableReferenced(name, pops[0].Name)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM bayesdb_table_column WHERE table_id = ?", t.ID); err != nil {
		return dberr.Internal(err.Error())
	}
	if _, err := tx.Exec(ctx, "DELETE FROM bayesdb_table WHERE id = ?", t.ID); err != nil {
		return dberr.Internal(err.Error())
	}
	if _, err := tx.Exec(ctx, "DROP TABLE "+sqlexec.QuoteIdent(c.ex.Dialect(), name)); err != nil {
		return dberr.Internalf("dropping base table %s: %v", name, err)
	}
	c.invalidate("table", name)
	return nil
}

// LookupTable resolves name to its bookkeeping row, failing with
// NoSuchTable if unregistered.
func (c *Catalog) LookupTable(ctx context.Context, tx sqlexec.Tx, name string) (*Table, error) {
	row := tx.QueryRow(ctx, "SELECT id FROM bayesdb_table WHERE name = ?", name)
	var id int64
	if err := row.Scan(&id); err != nil {
		return nil, dberr.NoSuchTable(name)
	}
	return &Table{ID: id, Name: name}, nil
}

// TableColumns returns a table's columns in declaration order.
func (c *Catalog) TableColumns(ctx context.Context, tx sqlexec.Tx, tableID int64) ([]Column, error) {
	rows, err := tx.Query(ctx,
		"SELECT id, name, colno, IFNULL(stattype_guess, '') FROM bayesdb_table_column WHERE table_id = ? ORDER BY colno",
		tableID)
	if err != nil {
		return nil, dberr.Internal(err.Error())
	}
	defer rows.Close()
	var out []Column
	for rows.Next() {
		var col Column
		col.TableID = tableID
		if err := rows.Scan(&col.ID, &col.Name, &col.Colno, &col.StattypeGuess); err != nil {
			return nil, dberr.Internal(err.Error())
		}
		out = append(out, col)
	}
	return out, rows.Err()
}

// SetColumnStats persists a column's stattype guess and serialized
// cardinality sketch from GUESS STATTYPES (internal/cardinality).
func (c *Catalog) SetColumnStats(ctx context.Context, tx sqlexec.Tx, tableID int64, colName, guess string, sketch []byte) error {
	_, err := tx.Exec(ctx,
		"UPDATE bayesdb_table_column SET stattype_guess = ?, stats = ? WHERE table_id = ? AND name = ?",
		guess, sketch, tableID, colName)
	if err != nil {
		return dberr.Internal(err.Error())
	}
	return nil
}

// --- populations ------------------------------------------------------------

// CreatePopulation registers a new population over tableName with the given
// variables, assigning each a stable varno starting at 1 (spec.md §3).
func (c *Catalog) CreatePopulation(ctx context.Context, tx sqlexec.Tx, name, tableName string, vars []VariableSpec) (*Population, error) {
	t, err := c.LookupTable(ctx, tx, tableName)
	if err != nil {
		return nil, err
	}
	cols, err := c.TableColumns(ctx, tx, t.ID)
	if err != nil {
		return nil, err
	}
	colno := make(map[string]int, len(cols))
	for _, col := range cols {
		colno[col.Name] = col.Colno
	}

	res, err := tx.Exec(ctx, "INSERT INTO bayesdb_population (name, table_id) VALUES (?, ?)", name, t.ID)
	if err != nil {
		return nil, dberr.Internalf("registering population %s: %v", name, err)
	}
	popID, err := res.LastInsertId()
	if err != nil {
		return nil, dberr.Internal(err.Error())
	}

	for i, v := range vars {
		cn, ok := colno[v.Name]
		if !ok && !v.Latent {
			return nil, dberr.NoSuchColumn(v.Name)
		}
		varno := int32(i + 1)
		latent := 0
		if v.Latent {
			latent = 1
			cn = -1
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO bayesdb_variable (population_id, varno, colno, name, stattype, latent)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			popID, varno, cn, v.Name, v.Stattype, latent); err != nil {
			return nil, dberr.DuplicateVariable(tableName, v.Name)
		}
	}
	return &Population{ID: popID, Name: name, TableID: t.ID}, nil
}

// LookupPopulation resolves name, failing with NoSuchPopulation.
func (c *Catalog) LookupPopulation(ctx context.Context, tx sqlexec.Tx, name string) (*Population, error) {
	row := tx.QueryRow(ctx, "SELECT id, table_id FROM bayesdb_population WHERE name = ?", name)
	var p Population
	p.Name = name
	if err := row.Scan(&p.ID, &p.TableID); err != nil {
		return nil, dberr.NoSuchPopulation(name)
	}
	return &p, nil
}

// DropPopulation removes a population and its variables, failing if any
// generator still references it (spec.md §3: "dropped only when no
// generator references them").
func (c *Catalog) DropPopulation(ctx context.Context, tx sqlexec.Tx, name string) error {
	p, err := c.LookupPopulation(ctx, tx, name)
	if err != nil {
		return err
	}
	gens, err := c.GeneratorsOfPopulation(ctx, tx, p.ID)
	if err != nil {
		return err
	}
	if len(gens) > 0 {
		return dberr.PopulationReferenced(name, gens[0].Name)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM bayesdb_variable WHERE population_id = ?", p.ID); err != nil {
		return dberr.Internal(err.Error())
	}
	if _, err := tx.Exec(ctx, "DELETE FROM bayesdb_population WHERE id = ?", p.ID); err != nil {
		return dberr.Internal(err.Error())
	}
	c.invalidate("population", name)
	return nil
}

// VariablesOfPopulation returns a population's variables ordered by varno,
// the iteration order "FROM VARIABLES OF p" projects in (spec.md §4.4).
func (c *Catalog) VariablesOfPopulation(ctx context.Context, tx sqlexec.Tx, populationID int64) ([]Variable, error) {
	rows, err := tx.Query(ctx,
		`SELECT varno, colno, name, stattype, latent FROM bayesdb_variable
		 WHERE population_id = ? ORDER BY varno`, populationID)
	if err != nil {
		return nil, dberr.Internal(err.Error())
	}
	defer rows.Close()
	var out []Variable
	for rows.Next() {
		var v Variable
		var latent int
		v.PopulationID = populationID
		if err := rows.Scan(&v.Varno, &v.Colno, &v.Name, &v.Stattype, &latent); err != nil {
			return nil, dberr.Internal(err.Error())
		}
		v.Latent = latent != 0
		out = append(out, v)
	}
	return out, rows.Err()
}

// LookupVariable resolves a variable by name within a population, failing
// with NoSuchVariable.
func (c *Catalog) LookupVariable(ctx context.Context, tx sqlexec.Tx, populationID int64, name string) (*Variable, error) {
	row := tx.QueryRow(ctx,
		`SELECT varno, colno, stattype, latent FROM bayesdb_variable
		 WHERE population_id = ? AND name = ?`, populationID, name)
	v := Variable{PopulationID: populationID, Name: name}
	var latent int
	if err := row.Scan(&v.Varno, &v.Colno, &v.Stattype, &latent); err != nil {
		return nil, dberr.NoSuchVariable(name)
	}
	v.Latent = latent != 0
	return &v, nil
}

// AddVariable extends a population with one more variable (ALTER POPULATION
// ... ADD VARIABLE, spec.md §4.3), assigning it the next free varno.
func (c *Catalog) AddVariable(ctx context.Context, tx sqlexec.Tx, populationID int64, v VariableSpec) error {
	row := tx.QueryRow(ctx, "SELECT IFNULL(MAX(varno), 0) FROM bayesdb_variable WHERE population_id = ?", populationID)
	var maxVarno int32
	if err := row.Scan(&maxVarno); err != nil {
		return dberr.Internal(err.Error())
	}
	colno := -1
	latent := 0
	if v.Latent {
		latent = 1
	} else {
		var pop Population
		pop.ID = populationID
		cols, err := c.tableColumnsForPopulation(ctx, tx, populationID)
		if err != nil {
			return err
		}
		found := false
		for _, col := range cols {
			if col.Name == v.Name {
				colno = col.Colno
				found = true
				break
			}
		}
		if !found {
			return dberr.NoSuchColumn(v.Name)
		}
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO bayesdb_variable (population_id, varno, colno, name, stattype, latent)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		populationID, maxVarno+1, colno, v.Name, v.Stattype, latent); err != nil {
		return dberr.DuplicateVariable("", v.Name)
	}
	return nil
}

// PopulationTableID resolves the base table backing a population, for
// callers (e.g. correlation's raw-data fetch) that need the table without
// the full Population/Variable bookkeeping.
func (c *Catalog) PopulationTableID(ctx context.Context, tx sqlexec.Tx, populationID int64) (int64, error) {
	row := tx.QueryRow(ctx, "SELECT table_id FROM bayesdb_population WHERE id = ?", populationID)
	var tableID int64
	if err := row.Scan(&tableID); err != nil {
		return 0, dberr.Internal(err.Error())
	}
	return tableID, nil
}

func (c *Catalog) tableColumnsForPopulation(ctx context.Context, tx sqlexec.Tx, populationID int64) ([]Column, error) {
	tableID, err := c.PopulationTableID(ctx, tx, populationID)
	if err != nil {
		return nil, err
	}
	return c.TableColumns(ctx, tx, tableID)
}

// populationName resolves a population's name from its id, for use in error
// messages where only the id is at hand.
func (c *Catalog) populationName(ctx context.Context, tx sqlexec.Tx, populationID int64) (string, error) {
	row := tx.QueryRow(ctx, "SELECT name FROM bayesdb_population WHERE id = ?", populationID)
	var name string
	if err := row.Scan(&name); err != nil {
		return "", dberr.Internalf("population id %d not found: %v", populationID, err)
	}
	return name, nil
}

// DropVariable removes a variable from a population (ALTER POPULATION ...
// DROP VARIABLE), failing with dberr.ColumnReferenced if any generator
// still models this population (its opaque backend schema may reference
// the variable being dropped).
func (c *Catalog) DropVariable(ctx context.Context, tx sqlexec.Tx, populationID int64, name string) error {
	gens, err := c.GeneratorsOfPopulation(ctx, tx, populationID)
	if err != nil {
		return err
	}
	if len(gens) > 0 {
		popName, perr := c.populationName(ctx, tx, populationID)
		if perr != nil {
			return perr
		}
		return dberr.ColumnReferenced(popName, name)
	}
	res, err := tx.Exec(ctx, "DELETE FROM bayesdb_variable WHERE population_id = ? AND name = ?", populationID, name)
	if err != nil {
		return dberr.Internal(err.Error())
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return dberr.NoSuchVariable(name)
	}
	return nil
}

// RenameVariable renames a population variable in place.
func (c *Catalog) RenameVariable(ctx context.Context, tx sqlexec.Tx, populationID int64, oldName, newName string) error {
	res, err := tx.Exec(ctx, "UPDATE bayesdb_variable SET name = ? WHERE population_id = ? AND name = ?",
		newName, populationID, oldName)
	if err != nil {
		return dberr.Internal(err.Error())
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return dberr.NoSuchVariable(oldName)
	}
	return nil
}

// SetStattype updates the statistical type of one or more variables
// (ALTER POPULATION ... SET STATTYPES OF ...).
func (c *Catalog) SetStattype(ctx context.Context, tx sqlexec.Tx, populationID int64, names []string, stattype string) error {
	for _, name := range names {
		res, err := tx.Exec(ctx, "UPDATE bayesdb_variable SET stattype = ? WHERE population_id = ? AND name = ?",
			stattype, populationID, name)
		if err != nil {
			return dberr.Internal(err.Error())
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return dberr.NoSuchVariable(name)
		}
	}
	return nil
}

// --- generators -------------------------------------------------------------

// CreateGenerator registers a new generator bound to population, storing
// its opaque backend schema text lz4-compressed (SPEC_FULL.md: "generator
// schema blobs are stored lz4-compressed, consistent with the pack's use of
// pierrec/lz4 for compact on-disk payloads").
func (c *Catalog) CreateGenerator(ctx context.Context, tx sqlexec.Tx, name string, populationID int64, backendName, schemaText string) (*Generator, error) {
	compressed, err := compressSchema(schemaText)
	if err != nil {
		return nil, dberr.Internal(err.Error())
	}
	res, err := tx.Exec(ctx,
		"INSERT INTO bayesdb_generator (name, population_id, backend, schema_blob) VALUES (?, ?, ?, ?)",
		name, populationID, backendName, compressed)
	if err != nil {
		return nil, dberr.Internalf("registering generator %s: %v", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, dberr.Internal(err.Error())
	}
	return &Generator{ID: id, Name: name, PopulationID: populationID, Backend: backendName, Schema: schemaText}, nil
}

// LookupGenerator resolves name, failing with NoSuchGenerator.
func (c *Catalog) LookupGenerator(ctx context.Context, tx sqlexec.Tx, name string) (*Generator, error) {
	row := tx.QueryRow(ctx,
		"SELECT id, population_id, backend, schema_blob FROM bayesdb_generator WHERE name = ?", name)
	var g Generator
	g.Name = name
	var blob []byte
	if err := row.Scan(&g.ID, &g.PopulationID, &g.Backend, &blob); err != nil {
		return nil, dberr.NoSuchGenerator(name)
	}
	text, err := decompressSchema(blob)
	if err != nil {
		return nil, dberr.Internal(err.Error())
	}
	g.Schema = text
	return &g, nil
}

// GeneratorsOfPopulation lists every generator bound to a population, used
// to resolve "the" default generator (spec.md §4.3: exactly one generator
// or AmbiguousDefaultGenerator).
func (c *Catalog) GeneratorsOfPopulation(ctx context.Context, tx sqlexec.Tx, populationID int64) ([]Generator, error) {
	rows, err := tx.Query(ctx, "SELECT id, name, backend FROM bayesdb_generator WHERE population_id = ?", populationID)
	if err != nil {
		return nil, dberr.Internal(err.Error())
	}
	defer rows.Close()
	var out []Generator
	for rows.Next() {
		g := Generator{PopulationID: populationID}
		if err := rows.Scan(&g.ID, &g.Name, &g.Backend); err != nil {
			return nil, dberr.Internal(err.Error())
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// DefaultGenerator resolves the population's sole generator, or fails with
// AmbiguousDefaultGenerator if there is not exactly one (spec.md §4.3).
func (c *Catalog) DefaultGenerator(ctx context.Context, tx sqlexec.Tx, populationName string, populationID int64) (*Generator, error) {
	gens, err := c.GeneratorsOfPopulation(ctx, tx, populationID)
	if err != nil {
		return nil, err
	}
	if len(gens) != 1 {
		return nil, dberr.AmbiguousDefaultGenerator(populationName)
	}
	return c.LookupGenerator(ctx, tx, gens[0].Name)
}

// DropGenerator removes a generator's bookkeeping, including its model
// rows. Callers must drop backend-private state separately via
// backend.Backend.DropGenerator, in the same transaction's scope.
func (c *Catalog) DropGenerator(ctx context.Context, tx sqlexec.Tx, name string) (*Generator, error) {
	g, err := c.LookupGenerator(ctx, tx, name)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM bayesdb_generator_model WHERE generator_id = ?", g.ID); err != nil {
		return nil, dberr.Internal(err.Error())
	}
	if _, err := tx.Exec(ctx, "DELETE FROM bayesdb_generator WHERE id = ?", g.ID); err != nil {
		return nil, dberr.Internal(err.Error())
	}
	c.invalidate("generator", name)
	return g, nil
}

// RenameGenerator renames a generator in place (ALTER GENERATOR ... RENAME TO).
func (c *Catalog) RenameGenerator(ctx context.Context, tx sqlexec.Tx, oldName, newName string) error {
	res, err := tx.Exec(ctx, "UPDATE bayesdb_generator SET name = ? WHERE name = ?", newName, oldName)
	if err != nil {
		return dberr.Internal(err.Error())
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return dberr.NoSuchGenerator(oldName)
	}
	c.invalidate("generator", oldName)
	return nil
}

// --- models -------------------------------------------------------------

// InitializeModels records newly admitted model indices for a generator
// (spec.md §4.5/§8: exact create counts).
func (c *Catalog) InitializeModels(ctx context.Context, tx sqlexec.Tx, generatorID int64, modelIDs []int) error {
	for _, id := range modelIDs {
		if _, err := tx.Exec(ctx, "INSERT INTO bayesdb_generator_model (generator_id, modelno) VALUES (?, ?)", generatorID, id); err != nil {
			return dberr.Internal(err.Error())
		}
	}
	return nil
}

// DropModels removes model bookkeeping rows.
func (c *Catalog) DropModels(ctx context.Context, tx sqlexec.Tx, generatorID int64, modelIDs []int) error {
	for _, id := range modelIDs {
		if _, err := tx.Exec(ctx, "DELETE FROM bayesdb_generator_model WHERE generator_id = ? AND modelno = ?", generatorID, id); err != nil {
			return dberr.Internal(err.Error())
		}
	}
	return nil
}

// AddModelIterations adds delta to each listed model's iteration counter
// (spec.md §3: "Model state is owned by the backend; the catalog records
// only existence and a per-model iteration counter"). Called once per
// ANALYZE checkpoint chunk, in that chunk's own transaction.
func (c *Catalog) AddModelIterations(ctx context.Context, tx sqlexec.Tx, generatorID int64, modelIDs []int, delta int) error {
	for _, id := range modelIDs {
		if _, err := tx.Exec(ctx, "UPDATE bayesdb_generator_model SET iterations = iterations + ? WHERE generator_id = ? AND modelno = ?", delta, generatorID, id); err != nil {
			return dberr.Internal(err.Error())
		}
	}
	return nil
}

// ModelIterations returns the current iteration counter for one model.
func (c *Catalog) ModelIterations(ctx context.Context, tx sqlexec.Tx, generatorID int64, modelID int) (int, error) {
	row := tx.QueryRow(ctx, "SELECT iterations FROM bayesdb_generator_model WHERE generator_id = ? AND modelno = ?", generatorID, modelID)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, dberr.NoSuchModel(modelID)
	}
	return n, nil
}

// ListModels returns every currently-existing model index for a generator,
// ascending.
func (c *Catalog) ListModels(ctx context.Context, tx sqlexec.Tx, generatorID int64) ([]int, error) {
	rows, err := tx.Query(ctx, "SELECT modelno FROM bayesdb_generator_model WHERE generator_id = ? ORDER BY modelno", generatorID)
	if err != nil {
		return nil, dberr.Internal(err.Error())
	}
	defer rows.Close()
	var out []int
	for rows.Next() {
		var m int
		if err := rows.Scan(&m); err != nil {
			return nil, dberr.Internal(err.Error())
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// --- schema blob compression ------------------------------------------------

func compressSchema(text string) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write([]byte(text)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressSchema(data []byte) (string, error) {
	r := lz4.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
