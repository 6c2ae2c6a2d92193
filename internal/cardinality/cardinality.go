// Package cardinality estimates the number of distinct values in a
// base-table column without a full scan, backing the "GUESS STATTYPES"
// population-creation heuristic (spec.md §9 supplemented features, ported
// from original_source/src/guess.py) and the catalog column statistics
// (SPEC_FULL.md §3).
package cardinality

import (
	"bytes"
	"encoding/gob"

	"github.com/axiomhq/hyperloglog"
)

// Sketch is a serializable HyperLogLog distinct-value estimator for one
// base-table column.
type Sketch struct {
	hll  *hyperloglog.Sketch
	rows uint64
}

// New returns an empty sketch.
func New() *Sketch {
	return &Sketch{hll: hyperloglog.New()}
}

// Observe records one (possibly repeated) column value.
func (s *Sketch) Observe(value []byte) {
	s.hll.Insert(value)
	s.rows++
}

// DistinctEstimate returns the approximate number of distinct values
// observed.
func (s *Sketch) DistinctEstimate() uint64 {
	return s.hll.Estimate()
}

// RowsObserved returns the exact number of Observe calls, used alongside
// DistinctEstimate to compute a distinct/row ratio for the stattype
// guesser.
func (s *Sketch) RowsObserved() uint64 {
	return s.rows
}

// Marshal serializes the sketch for storage in bayesdb_table_column.stats.
func (s *Sketch) Marshal() ([]byte, error) {
	hllBytes, err := s.hll.MarshalBinary()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(struct {
		HLL  []byte
		Rows uint64
	}{hllBytes, s.rows}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a sketch previously produced by Marshal.
func Unmarshal(data []byte) (*Sketch, error) {
	var payload struct {
		HLL  []byte
		Rows uint64
	}
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	hll := hyperloglog.New()
	if err := hll.UnmarshalBinary(payload.HLL); err != nil {
		return nil, err
	}
	return &Sketch{hll: hll, rows: payload.Rows}, nil
}

// Stattype is one of the statistical types a variable may carry (spec.md
// §3): numerical, nominal, count, magnitude, cyclic, or a backend-registered
// extension represented as an opaque string.
type Stattype string

const (
	Numerical Stattype = "numerical"
	Nominal   Stattype = "nominal"
	Count     Stattype = "count"
	Magnitude Stattype = "magnitude"
	Cyclic    Stattype = "cyclic"
)

// GuessStattype ports the heuristic from original_source/src/guess.py to
// the HyperLogLog-backed statistics above: a column with at most 20
// estimated distinct values, or with at least 50 rows and a distinct/row
// ratio under 0.1, is nominal; any other all-non-negative-integral column
// is count; otherwise numerical. This is a deliberate narrowing from the
// original's exact-scan guesser to an approximate one (DESIGN.md).
func GuessStattype(sk *Sketch, allIntegral, allNonNegative bool) Stattype {
	if sk.rows == 0 {
		return Numerical
	}
	distinct := sk.DistinctEstimate()
	ratio := float64(distinct) / float64(sk.rows)

	const nominalThreshold = 0.1
	const minNominalRows = 50

	if distinct <= 20 || (sk.rows >= minNominalRows && ratio < nominalThreshold) {
		return Nominal
	}
	if allIntegral && allNonNegative {
		return Count
	}
	return Numerical
}
