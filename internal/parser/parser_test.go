package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probcomp/bayesdb/internal/ast"
)

// roundTrip asserts that reformatting a parsed phrase and re-parsing the
// result yields a Statement of the same concrete type, and that the second
// Format is a fixed point of the first (spec.md §8 property 1).
func roundTrip(t *testing.T, src string) ast.Statement {
	t.Helper()
	stmt, err := ParseOne(src)
	require.NoError(t, err)

	out := ast.Format(stmt)
	stmt2, err := ParseOne(out)
	require.NoError(t, err, "re-parsing Format(parse(src)) must succeed: %q", out)

	out2 := ast.Format(stmt2)
	assert.Equal(t, out, out2, "Format must be a fixed point after one round trip")
	assert.IsType(t, stmt, stmt2)
	return stmt2
}

func TestRoundTripTransactionControl(t *testing.T) {
	roundTrip(t, "BEGIN;")
	roundTrip(t, "BEGIN TRANSACTION;")
	roundTrip(t, "COMMIT;")
	roundTrip(t, "ROLLBACK;")
}

func TestRoundTripCreateTable(t *testing.T) {
	stmt := roundTrip(t, "CREATE TABLE IF NOT EXISTS t (a INTEGER, b TEXT NOT NULL);")
	ct := stmt.(*ast.CreateTableStmt)
	assert.Equal(t, "t", ct.Name)
	assert.True(t, ct.IfNotExists)
	require.Len(t, ct.Columns, 2)
	assert.Equal(t, "a", ct.Columns[0].Name)
	assert.Equal(t, "b", ct.Columns[1].Name)
}

func TestRoundTripDropTable(t *testing.T) {
	stmt := roundTrip(t, "DROP TABLE IF EXISTS t;")
	assert.True(t, stmt.(*ast.DropTableStmt).IfExists)
}

func TestRoundTripSelect(t *testing.T) {
	stmt := roundTrip(t, "SELECT a, b AS bee FROM t WHERE a > 1 ORDER BY a DESC LIMIT 10;")
	sel := stmt.(*ast.SelectStmt)
	require.Len(t, sel.Columns, 2)
	assert.Equal(t, "bee", sel.Columns[1].Alias)
	assert.NotNil(t, sel.Where)
	require.Len(t, sel.OrderBy, 1)
	assert.True(t, sel.OrderBy[0].Desc)
	assert.NotNil(t, sel.Limit)
}

func TestRoundTripSelectDistinct(t *testing.T) {
	stmt := roundTrip(t, "SELECT DISTINCT a FROM t;")
	assert.True(t, stmt.(*ast.SelectStmt).Distinct)
}

func TestRoundTripCreatePopulation(t *testing.T) {
	stmt := roundTrip(t, "CREATE POPULATION IF NOT EXISTS p FOR t WITH SCHEMA (a AS NUMERICAL, b AS CATEGORICAL);")
	cp := stmt.(*ast.CreatePopulationStmt)
	assert.Equal(t, "p", cp.Name)
	assert.Equal(t, "t", cp.Table)
	assert.True(t, cp.IfNotExists)
	require.Len(t, cp.Schema, 2)
}

func TestRoundTripDropPopulation(t *testing.T) {
	stmt := roundTrip(t, "DROP POPULATION IF EXISTS p;")
	assert.True(t, stmt.(*ast.DropPopulationStmt).IfExists)
}

func TestRoundTripCreateGenerator(t *testing.T) {
	stmt := roundTrip(t, "CREATE GENERATOR IF NOT EXISTS g FOR p USING diag_gauss();")
	cg := stmt.(*ast.CreateGeneratorStmt)
	assert.Equal(t, "g", cg.Name)
	assert.Equal(t, "p", cg.Population)
	assert.Equal(t, "diag_gauss", cg.Backend)
}

func TestRoundTripDropGenerator(t *testing.T) {
	stmt := roundTrip(t, "DROP GENERATOR IF EXISTS g;")
	assert.True(t, stmt.(*ast.DropGeneratorStmt).IfExists)
}

func TestRoundTripInitializeModels(t *testing.T) {
	stmt := roundTrip(t, "INITIALIZE 10 MODELS IF NOT EXISTS FOR g;")
	im := stmt.(*ast.InitializeModelsStmt)
	assert.Equal(t, 10, im.N)
	assert.Equal(t, "g", im.Generator)
	assert.True(t, im.IfNotExists)
}

func TestRoundTripAnalyze(t *testing.T) {
	stmt := roundTrip(t, "ANALYZE g FOR 5 MINUTES;")
	an := stmt.(*ast.AnalyzeStmt)
	assert.Equal(t, "g", an.Generator)
	assert.Equal(t, "minutes", an.Budget.Unit)
}

func TestRoundTripDropModels(t *testing.T) {
	stmt := roundTrip(t, "DROP MODELS FROM g;")
	assert.Equal(t, "g", stmt.(*ast.DropModelsStmt).Generator)
}

func TestRoundTripEstimate(t *testing.T) {
	stmt := roundTrip(t, "ESTIMATE a, b FROM p MODELED BY g WHERE a > 1 LIMIT 5;")
	es := stmt.(*ast.EstimateStmt)
	assert.Equal(t, "g", es.ModeledBy)
	require.Len(t, es.Columns, 2)
}

func TestRoundTripSimulate(t *testing.T) {
	stmt := roundTrip(t, "SIMULATE a, b FROM p GIVEN c = 1 LIMIT 5;")
	sim := stmt.(*ast.SimulateStmt)
	assert.Equal(t, "p", sim.Population)
	require.Len(t, sim.Columns, 2)
	require.Len(t, sim.Given, 1)
	assert.NotNil(t, sim.Limit)
}

func TestRoundTripInfer(t *testing.T) {
	stmt := roundTrip(t, "INFER a, b WITH CONFIDENCE 0.9 FROM p;")
	inf := stmt.(*ast.InferStmt)
	assert.Equal(t, "p", inf.Population)
	require.Len(t, inf.Columns, 2)
	assert.NotNil(t, inf.ConfidenceThreshold)
}

func TestRoundTripEmptyPhrase(t *testing.T) {
	stmt, err := ParseOne(";")
	require.NoError(t, err)
	assert.IsType(t, &ast.EmptyStmt{}, stmt)
}

func TestParseAllStopsAtFirstError(t *testing.T) {
	stmts, err := ParseAll("SELECT a FROM t; GARBAGE GARBAGE;")
	require.Error(t, err)
	require.Len(t, stmts, 1)
}

func TestParseOneRejectsMultiplePhrases(t *testing.T) {
	_, err := ParseOne("SELECT 1; SELECT 2;")
	assert.Error(t, err)
}

func TestParseOneRejectsEmptySource(t *testing.T) {
	_, err := ParseOne("")
	assert.Error(t, err)
}
