package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probcomp/bayesdb/internal/dberr"
	"github.com/probcomp/bayesdb/internal/sqlexec"
)

func newTestCatalog(t *testing.T) (*Catalog, sqlexec.Executor, sqlexec.Tx) {
	t.Helper()
	ex, err := sqlexec.OpenSQLite("")
	require.NoError(t, err)
	t.Cleanup(func() { ex.Close() })

	ctx := context.Background()
	tx, err := ex.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, InstallSchema(ctx, tx))
	require.NoError(t, tx.Commit())

	tx, err = ex.Begin(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { tx.Rollback() })

	cat, err := New(ex, 64)
	require.NoError(t, err)
	return cat, ex, tx
}

func TestCreateAndLookupTable(t *testing.T) {
	cat, _, tx := newTestCatalog(t)
	ctx := context.Background()

	tbl, err := cat.CreateTable(ctx, tx, "t", []ColumnDef{
		{Name: "a", Type: "REAL"},
		{Name: "b", Type: "TEXT"},
		{Name: "c", Type: "INTEGER"},
	})
	require.NoError(t, err)
	assert.Equal(t, "t", tbl.Name)

	got, err := cat.LookupTable(ctx, tx, "t")
	require.NoError(t, err)
	assert.Equal(t, tbl.ID, got.ID)

	cols, err := cat.TableColumns(ctx, tx, tbl.ID)
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.Equal(t, "a", cols[0].Name)
	assert.Equal(t, 0, cols[0].Colno)
}

func TestLookupTableMissingReturnsNoSuchTable(t *testing.T) {
	cat, _, tx := newTestCatalog(t)
	_, err := cat.LookupTable(context.Background(), tx, "nope")
	var derr *dberr.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, dberr.KindName, derr.Kind)
}

func TestCreatePopulationAssignsSequentialVarnos(t *testing.T) {
	cat, _, tx := newTestCatalog(t)
	ctx := context.Background()

	_, err := cat.CreateTable(ctx, tx, "t", []ColumnDef{
		{Name: "a", Type: "REAL"},
		{Name: "b", Type: "TEXT"},
	})
	require.NoError(t, err)

	pop, err := cat.CreatePopulation(ctx, tx, "p", "t", []VariableSpec{
		{Name: "a", Stattype: "numerical"},
		{Name: "b", Stattype: "nominal"},
	})
	require.NoError(t, err)

	vars, err := cat.VariablesOfPopulation(ctx, tx, pop.ID)
	require.NoError(t, err)
	require.Len(t, vars, 2)
	assert.Equal(t, int32(1), vars[0].Varno)
	assert.Equal(t, int32(2), vars[1].Varno)
}

func TestCreatePopulationByteIdenticalAfterDrop(t *testing.T) {
	cat, _, tx := newTestCatalog(t)
	ctx := context.Background()

	_, err := cat.CreateTable(ctx, tx, "t", []ColumnDef{{Name: "a", Type: "REAL"}})
	require.NoError(t, err)

	before := dumpPopulationTable(t, tx)

	pop, err := cat.CreatePopulation(ctx, tx, "p", "t", []VariableSpec{{Name: "a", Stattype: "numerical"}})
	require.NoError(t, err)
	require.NoError(t, cat.DropPopulation(ctx, tx, pop.Name))

	after := dumpPopulationTable(t, tx)
	assert.Equal(t, before, after, "CREATE POPULATION then DROP POPULATION must leave bayesdb_population byte-identical")
}

func dumpPopulationTable(t *testing.T, tx sqlexec.Tx) []string {
	t.Helper()
	rows, err := tx.Query(context.Background(), "SELECT id, name, table_id FROM bayesdb_population ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id, tableID int64
		var name string
		require.NoError(t, rows.Scan(&id, &name, &tableID))
		out = append(out, name)
	}
	return out
}

func TestDefaultGeneratorAmbiguousWithTwoGenerators(t *testing.T) {
	cat, _, tx := newTestCatalog(t)
	ctx := context.Background()

	_, err := cat.CreateTable(ctx, tx, "t", []ColumnDef{{Name: "a", Type: "REAL"}})
	require.NoError(t, err)
	pop, err := cat.CreatePopulation(ctx, tx, "p", "t", []VariableSpec{{Name: "a", Stattype: "numerical"}})
	require.NoError(t, err)

	_, err = cat.CreateGenerator(ctx, tx, "g1", pop.ID, "diag_gauss", "")
	require.NoError(t, err)
	_, err = cat.CreateGenerator(ctx, tx, "g2", pop.ID, "diag_gauss", "")
	require.NoError(t, err)

	_, err = cat.DefaultGenerator(ctx, tx, "p", pop.ID)
	var derr *dberr.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, dberr.KindName, derr.Kind)
}

func TestGeneratorSchemaBlobRoundTripsThroughLz4(t *testing.T) {
	cat, _, tx := newTestCatalog(t)
	ctx := context.Background()

	_, err := cat.CreateTable(ctx, tx, "t", []ColumnDef{{Name: "a", Type: "REAL"}})
	require.NoError(t, err)
	pop, err := cat.CreatePopulation(ctx, tx, "p", "t", []VariableSpec{{Name: "a", Stattype: "numerical"}})
	require.NoError(t, err)

	schemaText := `{"columns": {"a": "numerical"}}`
	g, err := cat.CreateGenerator(ctx, tx, "g", pop.ID, "diag_gauss", schemaText)
	require.NoError(t, err)
	assert.Equal(t, schemaText, g.Schema)

	got, err := cat.LookupGenerator(ctx, tx, "g")
	require.NoError(t, err)
	assert.Equal(t, schemaText, got.Schema)
}

func TestInitializeAndDropModelsExactCounts(t *testing.T) {
	cat, _, tx := newTestCatalog(t)
	ctx := context.Background()

	_, err := cat.CreateTable(ctx, tx, "t", []ColumnDef{{Name: "a", Type: "REAL"}})
	require.NoError(t, err)
	pop, err := cat.CreatePopulation(ctx, tx, "p", "t", []VariableSpec{{Name: "a", Stattype: "numerical"}})
	require.NoError(t, err)
	g, err := cat.CreateGenerator(ctx, tx, "g", pop.ID, "diag_gauss", "")
	require.NoError(t, err)

	require.NoError(t, cat.InitializeModels(ctx, tx, g.ID, []int{0, 1, 2, 3}))
	models, err := cat.ListModels(ctx, tx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, models)

	require.NoError(t, cat.DropModels(ctx, tx, g.ID, []int{1, 2}))
	models, err = cat.ListModels(ctx, tx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3}, models)
}

func TestAddModelIterationsAccumulates(t *testing.T) {
	cat, _, tx := newTestCatalog(t)
	ctx := context.Background()

	_, err := cat.CreateTable(ctx, tx, "t", []ColumnDef{{Name: "a", Type: "REAL"}})
	require.NoError(t, err)
	pop, err := cat.CreatePopulation(ctx, tx, "p", "t", []VariableSpec{{Name: "a", Stattype: "numerical"}})
	require.NoError(t, err)
	g, err := cat.CreateGenerator(ctx, tx, "g", pop.ID, "diag_gauss", "")
	require.NoError(t, err)
	require.NoError(t, cat.InitializeModels(ctx, tx, g.ID, []int{0, 1}))

	n, err := cat.ModelIterations(ctx, tx, g.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, cat.AddModelIterations(ctx, tx, g.ID, []int{0, 1}, 5))
	require.NoError(t, cat.AddModelIterations(ctx, tx, g.ID, []int{0}, 3))

	n, err = cat.ModelIterations(ctx, tx, g.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	n, err = cat.ModelIterations(ctx, tx, g.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestAlterPopulationAddRenameDropVariable(t *testing.T) {
	cat, _, tx := newTestCatalog(t)
	ctx := context.Background()

	_, err := cat.CreateTable(ctx, tx, "t", []ColumnDef{
		{Name: "a", Type: "REAL"}, {Name: "b", Type: "TEXT"},
	})
	require.NoError(t, err)
	pop, err := cat.CreatePopulation(ctx, tx, "p", "t", []VariableSpec{{Name: "a", Stattype: "numerical"}})
	require.NoError(t, err)

	require.NoError(t, cat.AddVariable(ctx, tx, pop.ID, VariableSpec{Name: "b", Stattype: "nominal"}))
	vars, err := cat.VariablesOfPopulation(ctx, tx, pop.ID)
	require.NoError(t, err)
	require.Len(t, vars, 2)

	require.NoError(t, cat.RenameVariable(ctx, tx, pop.ID, "b", "bb"))
	_, err = cat.LookupVariable(ctx, tx, pop.ID, "bb")
	require.NoError(t, err)

	require.NoError(t, cat.DropVariable(ctx, tx, pop.ID, "bb"))
	vars, err = cat.VariablesOfPopulation(ctx, tx, pop.ID)
	require.NoError(t, err)
	assert.Len(t, vars, 1)
}

// TestDropPopulationRejectsWhileGeneratorReferencesIt implements spec.md §3:
// populations are "dropped only when no generator references them".
func TestDropPopulationRejectsWhileGeneratorReferencesIt(t *testing.T) {
	cat, _, tx := newTestCatalog(t)
	ctx := context.Background()

	_, err := cat.CreateTable(ctx, tx, "t", []ColumnDef{{Name: "a", Type: "REAL"}})
	require.NoError(t, err)
	pop, err := cat.CreatePopulation(ctx, tx, "p", "t", []VariableSpec{{Name: "a", Stattype: "numerical"}})
	require.NoError(t, err)
	_, err = cat.CreateGenerator(ctx, tx, "g", pop.ID, "diag_gauss", "")
	require.NoError(t, err)

	err = cat.DropPopulation(ctx, tx, "p")
	var derr *dberr.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, dberr.KindSchema, derr.Kind)

	_, err = cat.LookupPopulation(ctx, tx, "p")
	require.NoError(t, err, "population must still exist after the rejected drop")

	_, err = cat.DropGenerator(ctx, tx, "g")
	require.NoError(t, err)
	require.NoError(t, cat.DropPopulation(ctx, tx, "p"), "dropping the population must succeed once no generator references it")
}

// TestDropTableRejectsWhilePopulationReferencesIt implements spec.md §4.3:
// "Dropping a base-table column fails if any live population references
// it" — here for the whole table, which subsumes every one of its columns.
func TestDropTableRejectsWhilePopulationReferencesIt(t *testing.T) {
	cat, _, tx := newTestCatalog(t)
	ctx := context.Background()

	_, err := cat.CreateTable(ctx, tx, "t", []ColumnDef{{Name: "a", Type: "REAL"}})
	require.NoError(t, err)
	_, err = cat.CreatePopulation(ctx, tx, "p", "t", []VariableSpec{{Name: "a", Stattype: "numerical"}})
	require.NoError(t, err)

	err = cat.DropTable(ctx, tx, "t")
	var derr *dberr.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, dberr.KindSchema, derr.Kind)

	_, err = cat.LookupTable(ctx, tx, "t")
	require.NoError(t, err, "table must still exist after the rejected drop")

	require.NoError(t, cat.DropPopulation(ctx, tx, "p"))
	require.NoError(t, cat.DropTable(ctx, tx, "t"), "dropping the table must succeed once no population references it")
}

// TestDropVariableRejectsWhileGeneratorReferencesPopulation covers ALTER
// POPULATION ... DROP VARIABLE against a population still modeled by a
// generator: the generator's opaque backend schema may reference the
// variable being dropped, so the drop must be rejected (dberr.ColumnReferenced).
func TestDropVariableRejectsWhileGeneratorReferencesPopulation(t *testing.T) {
	cat, _, tx := newTestCatalog(t)
	ctx := context.Background()

	_, err := cat.CreateTable(ctx, tx, "t", []ColumnDef{
		{Name: "a", Type: "REAL"}, {Name: "b", Type: "TEXT"},
	})
	require.NoError(t, err)
	pop, err := cat.CreatePopulation(ctx, tx, "p", "t", []VariableSpec{
		{Name: "a", Stattype: "numerical"}, {Name: "b", Stattype: "nominal"},
	})
	require.NoError(t, err)
	_, err = cat.CreateGenerator(ctx, tx, "g", pop.ID, "diag_gauss", "")
	require.NoError(t, err)

	err = cat.DropVariable(ctx, tx, pop.ID, "b")
	var derr *dberr.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, dberr.KindSchema, derr.Kind)

	vars, err := cat.VariablesOfPopulation(ctx, tx, pop.ID)
	require.NoError(t, err)
	assert.Len(t, vars, 2, "variable must still exist after the rejected drop")
}
