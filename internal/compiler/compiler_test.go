package compiler

import (
	"strings"
	"testing"

	"github.com/prashantv/gostub"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probcomp/bayesdb/internal/modelset"
	"github.com/probcomp/bayesdb/internal/parser"
)

func testScope() *Scope {
	return &Scope{
		PopulationID:   7,
		BaseTable:      "t",
		RowIDColumn:    "rowid",
		VariableVarno:  map[string]int32{"a": 1, "b": 2},
		VariableColumn: map[string]string{"a": "col_a", "b": "col_b"},
		GeneratorID:    3,
		GeneratorName:  "g",
		ModelSet:       modelset.FromSlice([]int{0, 1}),
	}
}

// TestCompilePlainSelectPassthroughGolden implements spec.md §8 property 2:
// a plain SELECT with no BQL operator node compiles to SQL equivalent to its
// own text (here, identical except that identifiers are quoted, binary
// expressions are parenthesized, and literals are bound as ? parameters).
func TestCompilePlainSelectPassthroughGolden(t *testing.T) {
	stmt, err := parser.ParseOne(`SELECT a, b FROM t WHERE a > 1;`)
	require.NoError(t, err)

	plan, err := Compile(stmt, nil)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(1)}, plan.Args)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "plain_select", []byte(plan.SQL))
}

func TestCompileEstimatePredictiveProbability(t *testing.T) {
	scope := testScope()
	stmt, err := parser.ParseOne(`ESTIMATE PREDICTIVE PROBABILITY OF a GIVEN b = 1 FROM p;`)
	require.NoError(t, err)

	plan, err := Compile(stmt, scope)
	require.NoError(t, err)

	ser, err := scope.ModelSet.Serialize()
	require.NoError(t, err)
	wantSQL := `SELECT bql_predictive_probability(?, ?, "rowid", ?, "col_a", ?, ?, ?) FROM "t"`
	assert.Equal(t, wantSQL, plan.SQL)
	assert.Equal(t, []interface{}{int64(3), ser, int32(1), int64(1), int32(2), int64(1)}, plan.Args)
}

func TestCompileEstimateDependenceProbabilityColumnContext(t *testing.T) {
	scope := testScope()
	stmt, err := parser.ParseOne(`ESTIMATE DEPENDENCE PROBABILITY WITH b FROM VARIABLES OF p;`)
	require.NoError(t, err)

	plan, err := Compile(stmt, scope)
	require.NoError(t, err)

	ser, err := scope.ModelSet.Serialize()
	require.NoError(t, err)
	wantSQL := `SELECT bql_dependence_probability(?, ?, "v"."varno", ?) FROM bayesdb_variable AS "v" WHERE "v"."population_id" = ?`
	assert.Equal(t, wantSQL, plan.SQL)
	assert.Equal(t, []interface{}{int64(3), ser, int32(2), int64(7)}, plan.Args)
}

// TestCompileEstimateDependenceProbabilityBarePairwiseContext implements
// spec.md §4.4's bare "DEPENDENCE PROBABILITY" form (no OF, no WITH), valid
// only in a pairwise column context, which takes v0.colno and v1.colno.
func TestCompileEstimateDependenceProbabilityBarePairwiseContext(t *testing.T) {
	scope := testScope()
	stmt, err := parser.ParseOne(`ESTIMATE DEPENDENCE PROBABILITY FROM PAIRWISE VARIABLES OF p;`)
	require.NoError(t, err)

	plan, err := Compile(stmt, scope)
	require.NoError(t, err)

	ser, err := scope.ModelSet.Serialize()
	require.NoError(t, err)
	wantSQL := `SELECT bql_dependence_probability(?, ?, "v0"."varno", "v1"."varno") ` +
		`FROM bayesdb_variable AS "v0", bayesdb_variable AS "v1" ` +
		`WHERE "v0"."population_id" = ? AND "v1"."population_id" = ?`
	assert.Equal(t, wantSQL, plan.SQL)
	assert.Equal(t, []interface{}{int64(3), ser, int64(7), int64(7)}, plan.Args)
}

// TestCompileInferExplicitPredictConfidenceSharesOneCall implements spec.md
// §4.4's "PREDICT c AS n CONFIDENCE cname becomes two output columns that
// both call bql_predict ... the compiler splits it into two projections
// sharing one call result": the value and confidence columns must both
// read bql_predict_pair's single result, not call the backend twice.
func TestCompileInferExplicitPredictConfidenceSharesOneCall(t *testing.T) {
	scope := testScope()
	stmt, err := parser.ParseOne(`INFER EXPLICIT a, PREDICT b AS bp CONFIDENCE bc FROM p;`)
	require.NoError(t, err)

	plan, err := Compile(stmt, scope)
	require.NoError(t, err)

	ser, err := scope.ModelSet.Serialize()
	require.NoError(t, err)

	innerSQL := `SELECT "a" AS "__infer_0", bql_predict_pair(?, ?, "rowid", ?) AS "__infer_1" FROM "t"`
	wantSQL := `SELECT "__infer_0" AS "a", bql_predict_pair_value("__infer_1") AS "bp", ` +
		`bql_predict_pair_confidence("__infer_1") AS "bc" FROM (` + innerSQL + `) AS "__infer"`
	assert.Equal(t, wantSQL, plan.SQL)
	assert.Equal(t, []interface{}{int64(3), ser, int32(2)}, plan.Args)
	assert.Equal(t, 1, strings.Count(plan.SQL, "bql_predict_pair("), "bql_predict_pair must be called exactly once per PREDICT...CONFIDENCE projection")
}

// TestCompileInferExplicitBarePredictSkipsPairing covers PREDICT with no
// CONFIDENCE clause: there is only one output column, so there is nothing
// to share and the plan stays a single flat SELECT.
func TestCompileInferExplicitBarePredictSkipsPairing(t *testing.T) {
	scope := testScope()
	stmt, err := parser.ParseOne(`INFER EXPLICIT PREDICT b AS bp FROM p;`)
	require.NoError(t, err)

	plan, err := Compile(stmt, scope)
	require.NoError(t, err)

	ser, err := scope.ModelSet.Serialize()
	require.NoError(t, err)
	wantSQL := `SELECT bql_predict(?, ?, "rowid", ?) AS "bp" FROM "t"`
	assert.Equal(t, wantSQL, plan.SQL)
	assert.Equal(t, []interface{}{int64(3), ser, int32(2)}, plan.Args)
}

func TestCompileEstimateRejectsRowOperatorInColumnContext(t *testing.T) {
	scope := testScope()
	stmt, err := parser.ParseOne(`ESTIMATE PREDICTIVE PROBABILITY OF a FROM VARIABLES OF p;`)
	require.NoError(t, err)

	_, err = Compile(stmt, scope)
	assert.Error(t, err, "a row-context operator must be rejected in a column context")
}

func TestCompileSimulateProducesTempTablePlan(t *testing.T) {
	stubs := gostub.Stub(&newTempSuffix, func() string { return "deadbeef" })
	defer stubs.Reset()

	scope := testScope()
	stmt, err := parser.ParseOne(`SIMULATE a, b FROM p GIVEN a = 1 LIMIT 10;`)
	require.NoError(t, err)

	plan, err := Compile(stmt, scope)
	require.NoError(t, err)
	require.NotNil(t, plan.Simulate)
	assert.Equal(t, int64(3), plan.Simulate.GeneratorID)
	assert.Equal(t, []string{"a", "b"}, plan.Simulate.Targets)
	assert.Equal(t, []int32{1, 2}, plan.Simulate.TargetVarno)
	require.Len(t, plan.Simulate.Constraints, 1)
	assert.Equal(t, int32(1), plan.Simulate.Constraints[0].Varno)
	assert.Equal(t, "?", plan.Simulate.Constraints[0].ValueSQL)
	assert.Equal(t, []interface{}{int64(1)}, plan.Simulate.Constraints[0].ValueArgs)
	assert.Equal(t, "?", plan.Simulate.LimitSQL)
	assert.Equal(t, []interface{}{int64(10)}, plan.Simulate.LimitArgs)
	assert.Equal(t, "bayesdb_simulate_deadbeef", plan.Simulate.TempTable)
	assert.Equal(t, `SELECT "a", "b" FROM "bayesdb_simulate_deadbeef"`, plan.SQL)
}

func TestCompileSimulateRequiresLimit(t *testing.T) {
	scope := testScope()
	stmt, err := parser.ParseOne(`SIMULATE a FROM p;`)
	require.NoError(t, err)

	_, err = Compile(stmt, scope)
	assert.Error(t, err)
}

func TestCompileImplicitInferFallsBackOnNull(t *testing.T) {
	scope := testScope()
	stmt, err := parser.ParseOne(`INFER a FROM p;`)
	require.NoError(t, err)

	plan, err := Compile(stmt, scope)
	require.NoError(t, err)
	assert.Contains(t, plan.SQL, `CASE WHEN "col_a" IS NULL THEN bql_infer(`)
	assert.Contains(t, plan.SQL, `ELSE "col_a" END AS "a"`)
}
