package operators

import (
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/probcomp/bayesdb/internal/backend"
	"github.com/probcomp/bayesdb/internal/backend/backendmock"
	"github.com/probcomp/bayesdb/internal/dberr"
	"github.com/probcomp/bayesdb/internal/modelset"
)

// TestBackendErrorIsWrapped drives bql_dependence_probability against a
// gomock.Backend that fails, checking that operators.go surfaces the
// failure as a dberr.Error of KindBackend carrying the backend's name and
// the original cause, rather than the raw error or a panic. diag_gauss's
// ColumnDependenceProbability never returns an error, so this path has no
// coverage from the diag_gauss-backed end-to-end suite in
// internal/executor.
func TestBackendErrorIsWrapped(t *testing.T) {
	ctrl := gomock.NewController(t)
	mb := backendmock.NewMockBackend(ctrl)

	underlying := errors.New("pebble: closed")
	mb.EXPECT().
		ColumnDependenceProbability(int64(7), 3, backend.Varno(0), backend.Varno(1)).
		Return(0.0, underlying)
	mb.EXPECT().Name().Return("mockbackend").AnyTimes()

	resolve := func(generatorID int64) (*GeneratorInfo, error) {
		require.Equal(t, int64(7), generatorID)
		return &GeneratorInfo{Backend: mb}, nil
	}

	fn := dependenceProbability(resolve)

	set := modelset.FromSlice([]int{3})
	blob, err := set.Serialize()
	require.NoError(t, err)

	_, err = fn(int64(7), blob, int64(0), int64(1))
	require.Error(t, err)

	var derr *dberr.Error
	require.True(t, errors.As(err, &derr))
	require.Equal(t, dberr.KindBackend, derr.Kind)
	require.Equal(t, "mockbackend", derr.Backend)
	require.ErrorIs(t, err, underlying)
}
