package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probcomp/bayesdb/internal/dberr"
)

type stubBackend struct{ name string }

func (s *stubBackend) Name() string { return s.name }
func (s *stubBackend) CreateGenerator(int64, PopulationInfo, string) error { return nil }
func (s *stubBackend) DropGenerator(int64) error                          { return nil }
func (s *stubBackend) InitializeModels(int64, int) ([]int, error)         { return nil, nil }
func (s *stubBackend) DropModels(int64, []int) error                      { return nil }
func (s *stubBackend) AnalyzeModels(int64, []int, AnalyzeProgram, AnalyzeBudget) (float64, error) {
	return 0, nil
}
func (s *stubBackend) LogpdfJoint(int64, int, []Target, []Target) (float64, error) { return 0, nil }
func (s *stubBackend) SimulateJoint(int64, int, []Varno, []Target, int) ([][]interface{}, error) {
	return nil, nil
}
func (s *stubBackend) ColumnDependenceProbability(int64, int, Varno, Varno) (float64, error) {
	return 0, nil
}
func (s *stubBackend) ColumnMutualInformation(int64, int, Varno, Varno, []Target, int) (float64, error) {
	return 0, nil
}
func (s *stubBackend) RowSimilarity(int64, int, int64, int64, Varno, bool) (float64, error) {
	return 0, nil
}
func (s *stubBackend) RowPredictiveProbability(int64, int, int64, Varno, interface{}, []Target) (float64, error) {
	return 0, nil
}
func (s *stubBackend) ColumnValueMap(int64, Varno) ([]ValueLabel, bool, error) { return nil, false, nil }

func TestRegistryLookupUnknownBackend(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("nope")
	var derr *dberr.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, dberr.KindName, derr.Kind)
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	b := &stubBackend{name: "diag_gauss"}
	require.NoError(t, r.Register(b))

	got, err := r.Lookup("diag_gauss")
	require.NoError(t, err)
	assert.Same(t, b, got)
}

func TestRegistryRejectsDuplicateName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubBackend{name: "dup"}))
	err := r.Register(&stubBackend{name: "dup"})
	assert.Error(t, err)
}

func TestRegistryNamesListsEveryRegistration(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubBackend{name: "a"}))
	require.NoError(t, r.Register(&stubBackend{name: "b"}))
	assert.ElementsMatch(t, []string{"a", "b"}, r.Names())
}
