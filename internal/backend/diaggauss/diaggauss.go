// Package diaggauss implements spec.md §4.5's reference backend: a
// per-column independent (diagonal) Gaussian whose density, simulation, and
// dependence/mutual-information answers are all closed-form. It exists so
// the end-to-end scenarios of spec.md §8 and this repository's own tests
// have a backend that needs no real inference engine, and it demonstrates
// the backend side of the §4.5 boundary with real persistence (a
// cockroachdb/pebble instance keyed by generator/model/varno) rather than an
// in-memory map.
package diaggauss

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/probcomp/bayesdb/internal/backend"
	"github.com/probcomp/bayesdb/internal/dberr"
)

// params is the fitted (mean, variance) pair for one (model, varno).
type params struct {
	Mean float64
	Var  float64
}

// Backend is the diag_gauss reference backend. Each model is an independent
// fit of every variable's mean and variance from the base table's rows that
// existed at INITIALIZE time (ANALYZE changes nothing, since a closed-form
// Gaussian has no iterative training).
type Backend struct {
	mu sync.Mutex
	db *pebble.DB

	// rows supplies each generator's fitting data: one float64 per variable
	// per row, keyed by generator id. Populated by Fit before models can be
	// usefully initialized; tests call Fit directly since this backend has
	// no SQL access of its own (it is not handed a SQLExecutor — per §4.5,
	// backends only see what the compiler decodes for them).
	rows      map[int64][][]float64
	varnosGen map[int64][]backend.Varno
	nextModel map[int64]int
}

// Open returns a diag_gauss backend persisting fitted parameters under dir
// (a dir holding no store yet gets a fresh pebble instance; "" uses an
// in-memory FS).
func Open(dir string) (*Backend, error) {
	var opts *pebble.Options
	if dir == "" {
		opts = &pebble.Options{FS: vfs.NewMem()}
		dir = "diag_gauss"
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, dberr.Backend("diag_gauss", err)
	}
	return &Backend{
		db:        db,
		rows:      make(map[int64][][]float64),
		varnosGen: make(map[int64][]backend.Varno),
		nextModel: make(map[int64]int),
	}, nil
}

func (b *Backend) Close() error { return b.db.Close() }

func (b *Backend) Name() string { return "diag_gauss" }

// Fit registers the rows a generator should be fit against: one float64 per
// variable (in the order of population.Variables) per base-table row. The
// executor calls this once when a generator is created, reading the
// population's base table through the SQLExecutor (backend.go's
// CreateGenerator signature carries only PopulationInfo, not row data, so
// the executor pulls rows itself and hands them to this backend-specific
// method via a type assertion — see internal/executor).
func (b *Backend) Fit(generatorID int64, varnos []backend.Varno, rows [][]float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rows[generatorID] = rows
	b.varnosGen[generatorID] = varnos
}

func (b *Backend) CreateGenerator(generatorID int64, population backend.PopulationInfo, schema string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.nextModel[generatorID]; !ok {
		b.nextModel[generatorID] = 0
	}
	return nil
}

func (b *Backend) DropGenerator(generatorID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.rows, generatorID)
	delete(b.varnosGen, generatorID)
	delete(b.nextModel, generatorID)
	lo, hi := keyRangeForGenerator(generatorID)
	iter := b.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	defer iter.Close()
	batch := b.db.NewBatch()
	for iter.First(); iter.Valid(); iter.Next() {
		if err := batch.Delete(append([]byte(nil), iter.Key()...), nil); err != nil {
			return dberr.Backend("diag_gauss", err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return dberr.Backend("diag_gauss", err)
	}
	return nil
}

func (b *Backend) InitializeModels(generatorID int64, n int) ([]int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rows, ok := b.rows[generatorID]
	if !ok {
		return nil, dberr.Backend("diag_gauss", fmt.Errorf("generator %d has not been fit with data", generatorID))
	}
	varnos := b.varnosGen[generatorID]
	fitted := fitDiagonal(rows, len(varnos))
	ids := make([]int, 0, n)
	for i := 0; i < n; i++ {
		modelID := b.nextModel[generatorID]
		b.nextModel[generatorID] = modelID + 1
		batch := b.db.NewBatch()
		for vi, vn := range varnos {
			if err := batch.Set(paramKey(generatorID, modelID, vn), encodeParams(fitted[vi]), nil); err != nil {
				return nil, dberr.Backend("diag_gauss", err)
			}
		}
		if err := batch.Commit(pebble.Sync); err != nil {
			return nil, dberr.Backend("diag_gauss", err)
		}
		ids = append(ids, modelID)
	}
	return ids, nil
}

func (b *Backend) DropModels(generatorID int64, modelIDs []int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	batch := b.db.NewBatch()
	for _, modelID := range modelIDs {
		lo, hi := keyRangeForModel(generatorID, modelID)
		iter := b.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
		for iter.First(); iter.Valid(); iter.Next() {
			if err := batch.Delete(append([]byte(nil), iter.Key()...), nil); err != nil {
				iter.Close()
				return dberr.Backend("diag_gauss", err)
			}
		}
		iter.Close()
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return dberr.Backend("diag_gauss", err)
	}
	return nil
}

// AnalyzeModels is a no-op: the diagonal Gaussian fit is already exact given
// the rows supplied at Fit time, so there is nothing iterative to do. It
// reports the checkpoint chunk it was given as consumed, so the ANALYZE
// driver advances one chunk per call until the budget is spent; "ANALYZE g
// FOR 0 ITERATIONS" (spec.md §8) makes no call at all.
func (b *Backend) AnalyzeModels(generatorID int64, modelIDs []int, program backend.AnalyzeProgram, checkpoint backend.AnalyzeBudget) (float64, error) {
	return checkpoint.Value, nil
}

func (b *Backend) getParams(generatorID int64, modelID int, vn backend.Varno) (params, error) {
	v, closer, err := b.db.Get(paramKey(generatorID, modelID, vn))
	if err != nil {
		return params{}, dberr.Backend("diag_gauss", fmt.Errorf("no fitted parameters for generator %d model %d variable %d: %w", generatorID, modelID, vn, err))
	}
	defer closer.Close()
	return decodeParams(v), nil
}

func (b *Backend) LogpdfJoint(generatorID int64, modelID int, targets, constraints []backend.Target) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0.0
	for _, t := range targets {
		x, ok := toFloat(t.Value)
		if !ok {
			return math.Inf(-1), nil
		}
		p, err := b.getParams(generatorID, modelID, t.Varno)
		if err != nil {
			return 0, err
		}
		total += logNormalPDF(x, p.Mean, p.Var)
	}
	return total, nil
}

func (b *Backend) SimulateJoint(generatorID int64, modelID int, targets []backend.Varno, constraints []backend.Target, nSamples int) ([][]interface{}, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]interface{}, nSamples)
	ps := make([]params, len(targets))
	for i, vn := range targets {
		p, err := b.getParams(generatorID, modelID, vn)
		if err != nil {
			return nil, err
		}
		ps[i] = p
	}
	rng := rand.New(rand.NewSource(int64(generatorID)<<32 ^ int64(modelID)))
	for i := range out {
		row := make([]interface{}, len(targets))
		for j, p := range ps {
			row[j] = p.Mean + math.Sqrt(p.Var)*rng.NormFloat64()
		}
		out[i] = row
	}
	return out, nil
}

// ColumnDependenceProbability declares independence between every pair of
// distinct columns, since a diagonal covariance has zero off-diagonal terms
// by construction — the exact behavior spec.md §8 scenario 3 exercises.
func (b *Backend) ColumnDependenceProbability(generatorID int64, modelID int, v0, v1 backend.Varno) (float64, error) {
	if v0 == v1 {
		return 1, nil
	}
	return 0, nil
}

// ColumnMutualInformation is 0 between distinct columns (independence) and
// the differential entropy of a Gaussian (Monte-Carlo free, since it is
// closed-form), clamped below at 0, when v0 == v1.
func (b *Backend) ColumnMutualInformation(generatorID int64, modelID int, v0, v1 backend.Varno, constraints []backend.Target, nSamples int) (float64, error) {
	if v0 != v1 {
		return 0, nil
	}
	b.mu.Lock()
	p, err := b.getParams(generatorID, modelID, v0)
	b.mu.Unlock()
	if err != nil {
		return 0, err
	}
	// Differential entropy of N(mean, var) in bits: 0.5*log2(2*pi*e*var).
	h := 0.5 * math.Log2(2*math.Pi*math.E*p.Var)
	if h < 0 {
		h = 0
	}
	return h, nil
}

func (b *Backend) RowSimilarity(generatorID int64, modelID int, r0, r1 int64, contextVarno backend.Varno, hasContext bool) (float64, error) {
	if r0 == r1 {
		return 1, nil
	}
	return 0, nil
}

func (b *Backend) RowPredictiveProbability(generatorID int64, modelID int, row int64, varno backend.Varno, storedValue interface{}, constraints []backend.Target) (float64, error) {
	return b.LogpdfJoint(generatorID, modelID, []backend.Target{{Varno: varno, Value: storedValue}}, constraints)
}

func (b *Backend) ColumnValueMap(generatorID int64, varno backend.Varno) ([]backend.ValueLabel, bool, error) {
	return nil, false, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

func logNormalPDF(x, mean, variance float64) float64 {
	if variance <= 0 {
		if x == mean {
			return math.Inf(1)
		}
		return math.Inf(-1)
	}
	d := x - mean
	return -0.5*math.Log(2*math.Pi*variance) - (d*d)/(2*variance)
}

// fitDiagonal computes per-variable (mean, variance) across rows, one
// []float64 per row of length nvars.
func fitDiagonal(rows [][]float64, nvars int) []params {
	out := make([]params, nvars)
	n := float64(len(rows))
	if n == 0 {
		for i := range out {
			out[i] = params{Mean: 0, Var: 1}
		}
		return out
	}
	for vi := 0; vi < nvars; vi++ {
		sum := 0.0
		for _, r := range rows {
			sum += r[vi]
		}
		mean := sum / n
		ss := 0.0
		for _, r := range rows {
			d := r[vi] - mean
			ss += d * d
		}
		variance := ss / n
		if variance == 0 {
			variance = 1e-9
		}
		out[vi] = params{Mean: mean, Var: variance}
	}
	return out
}

func paramKey(generatorID int64, modelID int, vn backend.Varno) []byte {
	key := make([]byte, 8+8+4)
	binary.BigEndian.PutUint64(key[0:8], uint64(generatorID))
	binary.BigEndian.PutUint64(key[8:16], uint64(int64(modelID)))
	binary.BigEndian.PutUint32(key[16:20], uint32(vn))
	return key
}

func keyRangeForGenerator(generatorID int64) (start, end []byte) {
	start = make([]byte, 8)
	binary.BigEndian.PutUint64(start, uint64(generatorID))
	end = make([]byte, 8)
	binary.BigEndian.PutUint64(end, uint64(generatorID)+1)
	return start, end
}

func keyRangeForModel(generatorID int64, modelID int) (start, end []byte) {
	start = make([]byte, 16)
	binary.BigEndian.PutUint64(start[0:8], uint64(generatorID))
	binary.BigEndian.PutUint64(start[8:16], uint64(int64(modelID)))
	end = make([]byte, 16)
	binary.BigEndian.PutUint64(end[0:8], uint64(generatorID))
	binary.BigEndian.PutUint64(end[8:16], uint64(int64(modelID))+1)
	return start, end
}

func encodeParams(p params) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], math.Float64bits(p.Mean))
	binary.BigEndian.PutUint64(buf[8:16], math.Float64bits(p.Var))
	return buf
}

func decodeParams(buf []byte) params {
	return params{
		Mean: math.Float64frombits(binary.BigEndian.Uint64(buf[0:8])),
		Var:  math.Float64frombits(binary.BigEndian.Uint64(buf[8:16])),
	}
}
