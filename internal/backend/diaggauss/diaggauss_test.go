package diaggauss

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probcomp/bayesdb/internal/backend"
)

func openTestBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestInitializeModelsRequiresFitFirst(t *testing.T) {
	b := openTestBackend(t)
	_, err := b.InitializeModels(1, 1)
	assert.Error(t, err)
}

func TestFitInitializeAndLogpdfJoint(t *testing.T) {
	b := openTestBackend(t)
	varnos := []backend.Varno{1, 2}
	rows := [][]float64{{1, 10}, {2, 20}, {3, 30}}
	b.Fit(1, varnos, rows)

	ids, err := b.InitializeModels(1, 2)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	for _, m := range ids {
		density, err := b.LogpdfJoint(1, m, []backend.Target{{Varno: 1, Value: 2.0}}, nil)
		require.NoError(t, err)
		assert.False(t, math.IsInf(density, 0))
	}
}

func TestDependenceProbabilityIsDiagonal(t *testing.T) {
	b := openTestBackend(t)
	varnos := []backend.Varno{1, 2}
	b.Fit(1, varnos, [][]float64{{1, 10}, {2, 20}})
	ids, err := b.InitializeModels(1, 1)
	require.NoError(t, err)
	m := ids[0]

	self, err := b.ColumnDependenceProbability(1, m, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, self)

	cross, err := b.ColumnDependenceProbability(1, m, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cross, "a diagonal covariance has zero off-diagonal dependence by construction")
}

func TestMutualInformationNeverNegative(t *testing.T) {
	b := openTestBackend(t)
	varnos := []backend.Varno{1}
	b.Fit(1, varnos, [][]float64{{1}, {2}, {3}, {4}})
	ids, err := b.InitializeModels(1, 1)
	require.NoError(t, err)

	mi, err := b.ColumnMutualInformation(1, ids[0], 1, 1, nil, 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, mi, 0.0)

	cross, err := b.ColumnMutualInformation(1, ids[0], 1, 2, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cross)
}

func TestSimulateJointDrawsRequestedSampleCount(t *testing.T) {
	b := openTestBackend(t)
	varnos := []backend.Varno{1}
	b.Fit(1, varnos, [][]float64{{5}, {5}, {5}})
	ids, err := b.InitializeModels(1, 1)
	require.NoError(t, err)

	rows, err := b.SimulateJoint(1, ids[0], []backend.Varno{1}, nil, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 10)
	for _, r := range rows {
		assert.Len(t, r, 1)
	}
}

func TestDropModelsRemovesFittedParameters(t *testing.T) {
	b := openTestBackend(t)
	varnos := []backend.Varno{1}
	b.Fit(1, varnos, [][]float64{{1}, {2}})
	ids, err := b.InitializeModels(1, 1)
	require.NoError(t, err)

	require.NoError(t, b.DropModels(1, ids))
	_, err = b.LogpdfJoint(1, ids[0], []backend.Target{{Varno: 1, Value: 1.0}}, nil)
	assert.Error(t, err)
}

func TestDropGeneratorRemovesAllModels(t *testing.T) {
	b := openTestBackend(t)
	varnos := []backend.Varno{1}
	b.Fit(1, varnos, [][]float64{{1}, {2}, {3}})
	ids, err := b.InitializeModels(1, 3)
	require.NoError(t, err)
	require.Len(t, ids, 3)

	require.NoError(t, b.DropGenerator(1))
	for _, m := range ids {
		_, err := b.LogpdfJoint(1, m, []backend.Target{{Varno: 1, Value: 1.0}}, nil)
		assert.Error(t, err)
	}
}

func TestAnalyzeModelsReportsFullBudgetConsumed(t *testing.T) {
	b := openTestBackend(t)
	spent, err := b.AnalyzeModels(1, []int{0}, backend.AnalyzeProgram{}, backend.AnalyzeBudget{Unit: "iterations", Value: 5})
	require.NoError(t, err)
	assert.Equal(t, 5.0, spent)
}
