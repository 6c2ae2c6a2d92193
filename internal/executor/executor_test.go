package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probcomp/bayesdb/internal/backend"
	"github.com/probcomp/bayesdb/internal/backend/diaggauss"
	"github.com/probcomp/bayesdb/internal/parser"
	"github.com/probcomp/bayesdb/internal/sqlexec"
)

// run parses and executes one BQL phrase, failing the test on error.
func run(t *testing.T, conn *Connection, phrase string) *Cursor {
	t.Helper()
	stmt, err := parser.ParseOne(phrase)
	require.NoError(t, err, "parsing %q", phrase)
	cur, err := conn.Execute(context.Background(), stmt)
	require.NoError(t, err, "executing %q", phrase)
	return cur
}

// seedTable inserts spec.md §8's three-row fixture (1,2,3),(2,4,6),(3,6,9)
// directly through the raw SQL layer, since BQL itself has no INSERT (row
// loading is out of scope; see SPEC_FULL.md).
func seedTable(t *testing.T, ex sqlexec.Executor, table string) {
	t.Helper()
	ctx := context.Background()
	tx, err := ex.Begin(ctx)
	require.NoError(t, err)
	rows := [][3]float64{{1, 2, 3}, {2, 4, 6}, {3, 6, 9}}
	for _, r := range rows {
		_, err := tx.Exec(ctx, fmt.Sprintf(`INSERT INTO %q ("a", "b", "c") VALUES (?, ?, ?)`, table), r[0], r[1], r[2])
		require.NoError(t, err)
	}
	require.NoError(t, tx.Commit())
}

// TestEndToEndScenarios implements spec.md §8's end-to-end scenario list
// against a single connection (one in-memory SQLite executor, one
// diag_gauss backend, one set of registered bql_* scalar functions):
// modernc.org/sqlite registers scalar functions process-wide by name, so
// every scenario here shares one executor.Open call rather than each
// opening its own, and instead namespaces its own table/population/
// generator per subtest to avoid colliding in the shared catalog.
func TestEndToEndScenarios(t *testing.T) {
	ex, err := sqlexec.OpenSQLite("")
	require.NoError(t, err)
	t.Cleanup(func() { ex.Close() })

	dg, err := diaggauss.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { dg.Close() })

	registry := backend.NewRegistry()
	require.NoError(t, registry.Register(dg))

	conn, err := Open(context.Background(), ex, 0, registry)
	require.NoError(t, err)

	// setupPopulation runs scenario 1's setup for one namespaced
	// table/population/generator triple: CREATE TABLE, CREATE POPULATION,
	// CREATE GENERATOR USING diag_gauss(), INITIALIZE, ANALYZE.
	setupPopulation := func(t *testing.T, table, pop, gen string) {
		t.Helper()
		run(t, conn, fmt.Sprintf(`CREATE TABLE %s (a REAL, b REAL, c REAL);`, table))
		seedTable(t, ex, table)
		run(t, conn, fmt.Sprintf(`CREATE POPULATION %s FOR %s WITH SCHEMA (a, b, c AS NUMERICAL);`, pop, table))
		run(t, conn, fmt.Sprintf(`CREATE GENERATOR %s FOR %s USING diag_gauss();`, gen, pop))
		run(t, conn, fmt.Sprintf(`INITIALIZE 1 MODELS FOR %s;`, gen))
		run(t, conn, fmt.Sprintf(`ANALYZE %s FOR 0 ITERATIONS;`, gen))
	}

	t.Run("EstimateProbabilityDensity", func(t *testing.T) {
		setupPopulation(t, "t1", "p1", "g1")

		cur := run(t, conn, `ESTIMATE PROBABILITY DENSITY OF a = 2 FROM p1;`)
		require.NotNil(t, cur)
		ctx := context.Background()
		ok, err := cur.Next(ctx)
		require.NoError(t, err)
		require.True(t, ok)

		var density float64
		require.NoError(t, cur.Scan(&density))
		// column a's fitted mean is 2 (rows 1,2,3), so the density is the
		// Gaussian peak at its own mean: strictly positive.
		assert.Greater(t, density, 0.0)

		ok, err = cur.Next(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("SimulateReturnsRequestedRowCount", func(t *testing.T) {
		setupPopulation(t, "t2", "p2", "g2")

		cur := run(t, conn, `SIMULATE a, b FROM p2 LIMIT 5;`)
		ctx := context.Background()
		n := 0
		for {
			ok, err := cur.Next(ctx)
			require.NoError(t, err)
			if !ok {
				break
			}
			var a, b float64
			require.NoError(t, cur.Scan(&a, &b))
			n++
		}
		assert.Equal(t, 5, n)
	})

	t.Run("SimulateZeroLimitReturnsNoRows", func(t *testing.T) {
		setupPopulation(t, "t3", "p3", "g3")

		cur := run(t, conn, `SIMULATE a FROM p3 LIMIT 0;`)
		ctx := context.Background()
		ok, err := cur.Next(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("DependenceProbabilityIsZeroForDiagonalBackend", func(t *testing.T) {
		setupPopulation(t, "t4", "p4", "g4")

		cur := run(t, conn, `ESTIMATE DEPENDENCE PROBABILITY OF a WITH b FROM VARIABLES OF p4;`)
		ctx := context.Background()
		ok, err := cur.Next(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		var dep float64
		require.NoError(t, cur.Scan(&dep))
		assert.Equal(t, 0.0, dep)
	})

	t.Run("InferExplicitPredictsColumn", func(t *testing.T) {
		setupPopulation(t, "t5", "p5", "g5")

		cur := run(t, conn, `INFER EXPLICIT a, PREDICT b CONFIDENCE bc AS bp FROM p5 WHERE rowid = 1;`)
		ctx := context.Background()
		ok, err := cur.Next(ctx)
		require.NoError(t, err)
		require.True(t, ok)

		var a, bp, bc float64
		require.NoError(t, cur.Scan(&a, &bp, &bc))
		assert.Equal(t, 1.0, a)
		assert.GreaterOrEqual(t, bc, 0.0)
		assert.LessOrEqual(t, bc, 1.0)
	})

	t.Run("SavepointIsolatesFailingMMLStatement", func(t *testing.T) {
		run(t, conn, `BEGIN;`)
		run(t, conn, `CREATE TABLE t7 (a REAL, b REAL, c REAL);`)

		stmt, err := parser.ParseOne(`CREATE POPULATION p7 FOR t7_does_not_exist WITH SCHEMA (a, b, c AS NUMERICAL);`)
		require.NoError(t, err)
		_, err = conn.Execute(context.Background(), stmt)
		assert.Error(t, err, "CREATE POPULATION against a missing table must fail")

		run(t, conn, `COMMIT;`)

		cur := run(t, conn, `SELECT a FROM t7;`)
		ctx := context.Background()
		ok, err := cur.Next(ctx)
		require.NoError(t, err)
		assert.False(t, ok, "t7 should exist but be empty")
	})

	t.Run("SimulateRejectsGeneratorWithNoModels", func(t *testing.T) {
		setupTable := `CREATE TABLE t8 (a REAL, b REAL, c REAL);`
		run(t, conn, setupTable)
		seedTable(t, ex, "t8")
		run(t, conn, `CREATE POPULATION p8 FOR t8 WITH SCHEMA (a, b, c AS NUMERICAL);`)
		run(t, conn, `CREATE GENERATOR g8 FOR p8 USING diag_gauss();`)

		stmt, err := parser.ParseOne(`SIMULATE a FROM p8 MODELED BY g8 LIMIT 1;`)
		require.NoError(t, err)
		_, err = conn.Execute(context.Background(), stmt)
		assert.Error(t, err, "SIMULATE against a generator with no initialized models must fail cleanly, not panic")
	})

	t.Run("RollbackLeavesNoGenerator", func(t *testing.T) {
		run(t, conn, `CREATE TABLE t6 (a REAL, b REAL, c REAL);`)
		seedTable(t, ex, "t6")
		run(t, conn, `CREATE POPULATION p6 FOR t6 WITH SCHEMA (a, b, c AS NUMERICAL);`)

		run(t, conn, `BEGIN;`)
		run(t, conn, `CREATE GENERATOR g6 FOR p6 USING diag_gauss();`)
		run(t, conn, `ROLLBACK;`)

		stmt, err := parser.ParseOne(`ESTIMATE PROBABILITY DENSITY OF a = 2 FROM p6 MODELED BY g6;`)
		require.NoError(t, err)
		_, err = conn.Execute(context.Background(), stmt)
		assert.Error(t, err, "generator g6 must not exist after rollback")
	})
}
