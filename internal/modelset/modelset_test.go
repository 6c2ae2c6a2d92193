package modelset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeInclusiveBothOrders(t *testing.T) {
	ascending := Range(2, 5)
	descending := Range(5, 2)
	assert.Equal(t, []int{2, 3, 4, 5}, ascending.ToSlice())
	assert.Equal(t, []int{2, 3, 4, 5}, descending.ToSlice())
}

func TestUnionAndIntersectDoNotMutateOperands(t *testing.T) {
	a := FromSlice([]int{1, 2, 3})
	b := FromSlice([]int{3, 4, 5})

	u := a.Union(b)
	i := a.Intersect(b)

	assert.Equal(t, []int{1, 2, 3, 4, 5}, u.ToSlice())
	assert.Equal(t, []int{3}, i.ToSlice())
	assert.Equal(t, []int{1, 2, 3}, a.ToSlice(), "Union must not mutate the receiver")
	assert.Equal(t, []int{3, 4, 5}, b.ToSlice(), "Intersect must not mutate the argument")
}

func TestSerializeRoundTrip(t *testing.T) {
	s := Range(10, 20)
	data, err := s.Serialize()
	require.NoError(t, err)

	got, err := Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, s.ToSlice(), got.ToSlice())
}

func TestEmptyAndSingle(t *testing.T) {
	assert.Equal(t, 0, Empty().Cardinality())
	single := Single(7)
	assert.True(t, single.Contains(7))
	assert.False(t, single.Contains(8))
	assert.Equal(t, 1, single.Cardinality())
}

func TestCloneIsIndependent(t *testing.T) {
	orig := FromSlice([]int{1, 2})
	clone := orig.Clone()
	mutated := clone.Union(Single(3))
	assert.Equal(t, []int{1, 2}, orig.ToSlice())
	assert.Equal(t, []int{1, 2}, clone.ToSlice())
	assert.Equal(t, []int{1, 2, 3}, mutated.ToSlice())
}
