package cardinality

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuessStattypeNominalForLowCardinality(t *testing.T) {
	sk := New()
	for i := 0; i < 200; i++ {
		sk.Observe([]byte(fmt.Sprintf("category-%d", i%3)))
	}
	assert.Equal(t, Nominal, GuessStattype(sk, false, false))
}

func TestGuessStattypeCountForNonNegativeIntegral(t *testing.T) {
	sk := New()
	for i := 0; i < 500; i++ {
		sk.Observe([]byte(fmt.Sprintf("%d", i)))
	}
	assert.Equal(t, Count, GuessStattype(sk, true, true))
}

func TestGuessStattypeNumericalForHighCardinalityFloats(t *testing.T) {
	sk := New()
	for i := 0; i < 500; i++ {
		sk.Observe([]byte(fmt.Sprintf("%d.%d", i, i*7%10)))
	}
	assert.Equal(t, Numerical, GuessStattype(sk, false, true))
}

func TestGuessStattypeEmptySketchDefaultsNumerical(t *testing.T) {
	assert.Equal(t, Numerical, GuessStattype(New(), false, false))
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	sk := New()
	for i := 0; i < 1000; i++ {
		sk.Observe([]byte(fmt.Sprintf("v%d", i)))
	}
	data, err := sk.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, sk.RowsObserved(), got.RowsObserved())
	assert.Equal(t, sk.DistinctEstimate(), got.DistinctEstimate())
}
