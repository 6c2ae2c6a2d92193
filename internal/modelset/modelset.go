// Package modelset represents the set of model indices selected by
// "USING MODEL n" / "USING MODELS n0-n1" (spec.md §4.3), or "all models" when
// absent, as a Roaring bitmap so large generators with thousands of models
// resolve and union selections without an O(n) slice scan on every estimator
// call.
package modelset

import "github.com/RoaringBitmap/roaring"

// Set is an immutable-by-convention set of model indices. Callers that need
// to mutate should Clone first.
type Set struct {
	bm *roaring.Bitmap
}

// Empty returns a set with no models.
func Empty() *Set {
	return &Set{bm: roaring.New()}
}

// Single returns the one-model set {n}.
func Single(n int) *Set {
	s := Empty()
	s.bm.Add(uint32(n))
	return s
}

// Range returns the inclusive set {lo, lo+1, ..., hi}, matching "USING
// MODELS n0-n1" (spec.md §4.2).
func Range(lo, hi int) *Set {
	s := Empty()
	if hi < lo {
		lo, hi = hi, lo
	}
	s.bm.AddRange(uint64(lo), uint64(hi)+1)
	return s
}

// FromSlice returns the set containing exactly the given model indices,
// matching the generator's currently existing models ("all models" is the
// default when USING MODEL is absent; spec.md §4.3).
func FromSlice(ids []int) *Set {
	s := Empty()
	for _, id := range ids {
		s.bm.Add(uint32(id))
	}
	return s
}

// Contains reports whether n is selected.
func (s *Set) Contains(n int) bool {
	return s.bm.Contains(uint32(n))
}

// Cardinality returns the number of selected models.
func (s *Set) Cardinality() int {
	return int(s.bm.GetCardinality())
}

// ToSlice returns the selected model ids in ascending order, the order the
// model-set reduction (§4.6) and the PAIRWISE self-join streaming (§9)
// iterate in.
func (s *Set) ToSlice() []int {
	out := make([]int, 0, s.bm.GetCardinality())
	it := s.bm.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}

// Clone returns an independent copy.
func (s *Set) Clone() *Set {
	return &Set{bm: s.bm.Clone()}
}

// Union returns the set union of s and other, without mutating either.
func (s *Set) Union(other *Set) *Set {
	out := s.Clone()
	out.bm.Or(other.bm)
	return out
}

// Intersect returns the set intersection of s and other.
func (s *Set) Intersect(other *Set) *Set {
	out := s.Clone()
	out.bm.And(other.bm)
	return out
}

// Serialize encodes the set for storage in a compiled query's parameter
// list (the compiler passes model sets to operators as a serialized
// integer parameter per spec.md §4.4).
func (s *Set) Serialize() ([]byte, error) {
	return s.bm.ToBytes()
}

// Deserialize decodes a set previously produced by Serialize.
func Deserialize(data []byte) (*Set, error) {
	bm := roaring.New()
	if _, err := bm.FromBuffer(data); err != nil {
		return nil, err
	}
	return &Set{bm: bm}, nil
}
