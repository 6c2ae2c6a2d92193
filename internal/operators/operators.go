// Package operators implements the model-operator scalar functions the
// compiler's lowered SQL calls by name (spec.md §4.6): one registered SQL
// function per BQL estimator, each fanning out across a generator's
// selected models and reducing per spec.md §4.6's dispatch table
// (arithmetic mean for probabilities/densities/correlations/dependence/
// mutual-information; mode/median plus a confidence score for PREDICT;
// uniform model sampling for SIMULATE, handled separately by
// internal/executor since it is not expressible as a scalar function).
package operators

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/probcomp/bayesdb/internal/backend"
	"github.com/probcomp/bayesdb/internal/cardinality"
	"github.com/probcomp/bayesdb/internal/dberr"
	"github.com/probcomp/bayesdb/internal/modelset"
	"github.com/probcomp/bayesdb/internal/sqlexec"
)

// GeneratorInfo is what the operators need about a generator to dispatch a
// call against its backend, supplied by internal/executor (which owns the
// catalog lookup).
type GeneratorInfo struct {
	Backend  backend.Backend
	Stattype func(varno backend.Varno) string // variable stattype, for PREDICT's mode/median choice

	// ColumnPairData fetches two base-table columns' paired, NOT-NULL data
	// for CORRELATION (spec.md §4.2), which (unlike every other estimator
	// here) is computed directly from the data rather than through a
	// backend call.
	ColumnPairData func(v1, v2 backend.Varno) (data1, data2 []interface{}, err error)
}

// Resolver looks up a generator by id, as recorded by CREATE GENERATOR.
type Resolver func(generatorID int64) (*GeneratorInfo, error)

// Register installs every bql_* scalar function on ex. nargs -1 marks a
// variadic function, used throughout since several forms carry an optional
// GIVEN clause of unknown arity.
func Register(ex sqlexec.Executor, resolve Resolver) error {
	fns := map[string]sqlexec.ScalarFunc{
		"bql_predictive_probability":  predictiveProbability(resolve),
		"bql_row_similarity":          rowSimilarity(resolve),
		"bql_dependence_probability":  dependenceProbability(resolve),
		"bql_mutual_information":      mutualInformation(resolve),
		"bql_correlation":             correlation(resolve, false),
		"bql_correlation_pvalue":      correlation(resolve, true),
		"bql_probability_density":     probabilityDensity(resolve),
		"bql_infer":                   infer(resolve),
		"bql_predict":                 predict(resolve),
		"bql_predict_confidence":      predictConfidence(resolve),
		"bql_predict_pair":            predictPair(resolve),
		"bql_predict_pair_value":      predictPairValue,
		"bql_predict_pair_confidence": predictPairConfidence,
	}
	for name, fn := range fns {
		if err := ex.RegisterScalarFunc(name, -1, fn); err != nil {
			return dberr.Internalf("registering %s: %v", name, err)
		}
	}
	return nil
}

func modelsOf(args []interface{}) ([]int, *modelset.Set, error) {
	blob, ok := args[1].([]byte)
	if !ok {
		return nil, nil, dberr.Internal("bql operator: expected a serialized model set argument")
	}
	set, err := modelset.Deserialize(blob)
	if err != nil {
		return nil, nil, dberr.Internal(err.Error())
	}
	return set.ToSlice(), set, nil
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

func asFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

// parseGiven reads the (ngiven, [varno, value]*ngiven) suffix starting at
// args[from], returning the constraint targets and the index just past the
// consumed arguments.
func parseGiven(args []interface{}, from int) ([]backend.Target, int, error) {
	if from >= len(args) {
		return nil, from, dberr.Internal("bql operator: missing GIVEN argument count")
	}
	n, ok := asInt64(args[from])
	if !ok {
		return nil, from, dberr.Internal("bql operator: GIVEN count is not an integer")
	}
	i := from + 1
	out := make([]backend.Target, 0, n)
	for k := int64(0); k < n; k++ {
		if i+1 >= len(args) {
			return nil, i, dberr.Internal("bql operator: truncated GIVEN argument list")
		}
		vn, ok := asInt64(args[i])
		if !ok {
			return nil, i, dberr.Internal("bql operator: GIVEN varno is not an integer")
		}
		out = append(out, backend.Target{Varno: backend.Varno(vn), Value: args[i+1]})
		i += 2
	}
	return out, i, nil
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func predictiveProbability(resolve Resolver) sqlexec.ScalarFunc {
	return func(args ...interface{}) (interface{}, error) {
		genID, ok := asInt64(args[0])
		if !ok {
			return nil, dberr.Internal("bql_predictive_probability: bad generator id")
		}
		gi, err := resolve(genID)
		if err != nil {
			return nil, err
		}
		models, _, err := modelsOf(args)
		if err != nil {
			return nil, err
		}
		row, ok := asInt64(args[2])
		if !ok {
			return nil, dberr.Internal("bql_predictive_probability: bad rowid")
		}
		varno, ok := asInt64(args[3])
		if !ok {
			return nil, dberr.Internal("bql_predictive_probability: bad varno")
		}
		observed := args[4]
		if observed == nil {
			return nil, nil
		}
		given, _, err := parseGiven(args, 5)
		if err != nil {
			return nil, err
		}
		vals := make([]float64, 0, len(models))
		for _, m := range models {
			p, err := gi.Backend.RowPredictiveProbability(genID, m, row, backend.Varno(varno), observed, given)
			if err != nil {
				return nil, dberr.Backend(gi.Backend.Name(), err)
			}
			vals = append(vals, p)
		}
		return mean(vals), nil
	}
}

func rowSimilarity(resolve Resolver) sqlexec.ScalarFunc {
	return func(args ...interface{}) (interface{}, error) {
		genID, ok := asInt64(args[0])
		if !ok {
			return nil, dberr.Internal("bql_row_similarity: bad generator id")
		}
		gi, err := resolve(genID)
		if err != nil {
			return nil, err
		}
		models, _, err := modelsOf(args)
		if err != nil {
			return nil, err
		}
		r0, ok := asInt64(args[2])
		if !ok {
			return nil, dberr.Internal("bql_row_similarity: bad row")
		}
		if args[3] == nil {
			return nil, nil
		}
		r1, ok := asInt64(args[3])
		if !ok {
			return nil, dberr.Internal("bql_row_similarity: bad target row")
		}
		var ctxVarno backend.Varno
		hasCtx := false
		if args[4] != nil {
			v, ok := asInt64(args[4])
			if !ok {
				return nil, dberr.Internal("bql_row_similarity: bad context varno")
			}
			ctxVarno = backend.Varno(v)
			hasCtx = true
		}
		vals := make([]float64, 0, len(models))
		for _, m := range models {
			s, err := gi.Backend.RowSimilarity(genID, m, r0, r1, ctxVarno, hasCtx)
			if err != nil {
				return nil, dberr.Backend(gi.Backend.Name(), err)
			}
			vals = append(vals, s)
		}
		return mean(vals), nil
	}
}

func dependenceProbability(resolve Resolver) sqlexec.ScalarFunc {
	return func(args ...interface{}) (interface{}, error) {
		genID, ok := asInt64(args[0])
		if !ok {
			return nil, dberr.Internal("bql_dependence_probability: bad generator id")
		}
		gi, err := resolve(genID)
		if err != nil {
			return nil, err
		}
		models, _, err := modelsOf(args)
		if err != nil {
			return nil, err
		}
		v1, ok1 := asInt64(args[2])
		v2, ok2 := asInt64(args[3])
		if !ok1 || !ok2 {
			return nil, dberr.Internal("bql_dependence_probability: bad column arguments")
		}
		vals := make([]float64, 0, len(models))
		for _, m := range models {
			p, err := gi.Backend.ColumnDependenceProbability(genID, m, backend.Varno(v1), backend.Varno(v2))
			if err != nil {
				return nil, dberr.Backend(gi.Backend.Name(), err)
			}
			vals = append(vals, p)
		}
		return mean(vals), nil
	}
}

func mutualInformation(resolve Resolver) sqlexec.ScalarFunc {
	return func(args ...interface{}) (interface{}, error) {
		genID, ok := asInt64(args[0])
		if !ok {
			return nil, dberr.Internal("bql_mutual_information: bad generator id")
		}
		gi, err := resolve(genID)
		if err != nil {
			return nil, err
		}
		models, _, err := modelsOf(args)
		if err != nil {
			return nil, err
		}
		v1, ok1 := asInt64(args[2])
		v2, ok2 := asInt64(args[3])
		if !ok1 || !ok2 {
			return nil, dberr.Internal("bql_mutual_information: bad column arguments")
		}
		given, next, err := parseGiven(args, 4)
		if err != nil {
			return nil, err
		}
		nSamples := 100
		if next < len(args) {
			if n, ok := asInt64(args[next]); ok {
				nSamples = int(n)
			}
		}
		vals := make([]float64, 0, len(models))
		for _, m := range models {
			mi, err := gi.Backend.ColumnMutualInformation(genID, m, backend.Varno(v1), backend.Varno(v2), given, nSamples)
			if err != nil {
				return nil, dberr.Backend(gi.Backend.Name(), err)
			}
			if mi < 0 {
				mi = 0
			}
			vals = append(vals, mi)
		}
		return mean(vals), nil
	}
}

// correlation implements CORRELATION/CORRELATION PVALUE (spec.md §4.2) as a
// direct statistic over the base table, not a backend call: it is computed
// from the raw paired data for the two variables, dispatched on their
// stattype pair exactly as bqlfn.py's correlation_methods table does
// (Pearson r² for numerical/numerical, Cramér's φ for categorical/
// categorical, ANOVA R² for the mixed case). Unlike every other estimator
// in this file, no generator/model averaging is involved: correlation is a
// property of the data, not of any particular fitted model.
func correlation(resolve Resolver, pvalue bool) sqlexec.ScalarFunc {
	return func(args ...interface{}) (interface{}, error) {
		genID, ok := asInt64(args[0])
		if !ok {
			return nil, dberr.Internal("bql_correlation: bad generator id")
		}
		gi, err := resolve(genID)
		if err != nil {
			return nil, err
		}
		v1, ok1 := asInt64(args[2])
		v2, ok2 := asInt64(args[3])
		if !ok1 || !ok2 {
			return nil, dberr.Internal("bql_correlation: bad column arguments")
		}
		if gi.ColumnPairData == nil {
			return nil, dberr.Internal("bql_correlation: generator has no base-table data access")
		}
		data0, data1, err := gi.ColumnPairData(backend.Varno(v1), backend.Varno(v2))
		if err != nil {
			return nil, err
		}
		cat0 := correlationCategory(gi.Stattype(backend.Varno(v1)))
		cat1 := correlationCategory(gi.Stattype(backend.Varno(v2)))
		if pvalue {
			return correlationPValueFor(cat0, cat1, data0, data1)
		}
		return correlationFor(cat0, cat1, data0, data1)
	}
}

func probabilityDensity(resolve Resolver) sqlexec.ScalarFunc {
	return func(args ...interface{}) (interface{}, error) {
		genID, ok := asInt64(args[0])
		if !ok {
			return nil, dberr.Internal("bql_probability_density: bad generator id")
		}
		gi, err := resolve(genID)
		if err != nil {
			return nil, err
		}
		models, _, err := modelsOf(args)
		if err != nil {
			return nil, err
		}
		targets, next, err := parseGiven(args, 2)
		if err != nil {
			return nil, err
		}
		given, _, err := parseGiven(args, next)
		if err != nil {
			return nil, err
		}
		vals := make([]float64, 0, len(models))
		for _, m := range models {
			d, err := gi.Backend.LogpdfJoint(genID, m, targets, given)
			if err != nil {
				return nil, dberr.Backend(gi.Backend.Name(), err)
			}
			vals = append(vals, math.Exp(d))
		}
		return mean(vals), nil
	}
}

// infer imputes a missing value (spec.md §4.4 "INFER implicit"), returning
// NULL whenever the reduced confidence falls below threshold (spec.md §8:
// "INFER never returns non-null below confidence threshold").
func infer(resolve Resolver) sqlexec.ScalarFunc {
	return func(args ...interface{}) (interface{}, error) {
		genID, ok := asInt64(args[0])
		if !ok {
			return nil, dberr.Internal("bql_infer: bad generator id")
		}
		gi, err := resolve(genID)
		if err != nil {
			return nil, err
		}
		models, _, err := modelsOf(args)
		if err != nil {
			return nil, err
		}
		row, ok := asInt64(args[2])
		if !ok {
			return nil, dberr.Internal("bql_infer: bad rowid")
		}
		varno, ok := asInt64(args[3])
		if !ok {
			return nil, dberr.Internal("bql_infer: bad varno")
		}
		threshold := 0.0
		if len(args) > 4 {
			if t, ok := asFloat64(args[4]); ok {
				threshold = t
			}
		}
		value, confidence, err := reducePrediction(gi, genID, models, row, backend.Varno(varno))
		if err != nil {
			return nil, err
		}
		if confidence < threshold {
			return nil, nil
		}
		return value, nil
	}
}

func predict(resolve Resolver) sqlexec.ScalarFunc {
	return func(args ...interface{}) (interface{}, error) {
		genID, ok := asInt64(args[0])
		if !ok {
			return nil, dberr.Internal("bql_predict: bad generator id")
		}
		gi, err := resolve(genID)
		if err != nil {
			return nil, err
		}
		models, _, err := modelsOf(args)
		if err != nil {
			return nil, err
		}
		row, ok := asInt64(args[2])
		if !ok {
			return nil, dberr.Internal("bql_predict: bad rowid")
		}
		varno, ok := asInt64(args[3])
		if !ok {
			return nil, dberr.Internal("bql_predict: bad varno")
		}
		value, _, err := reducePrediction(gi, genID, models, row, backend.Varno(varno))
		return value, err
	}
}

func predictConfidence(resolve Resolver) sqlexec.ScalarFunc {
	return func(args ...interface{}) (interface{}, error) {
		genID, ok := asInt64(args[0])
		if !ok {
			return nil, dberr.Internal("bql_predict_confidence: bad generator id")
		}
		gi, err := resolve(genID)
		if err != nil {
			return nil, err
		}
		models, _, err := modelsOf(args)
		if err != nil {
			return nil, err
		}
		row, ok := asInt64(args[2])
		if !ok {
			return nil, dberr.Internal("bql_predict_confidence: bad rowid")
		}
		varno, ok := asInt64(args[3])
		if !ok {
			return nil, dberr.Internal("bql_predict_confidence: bad varno")
		}
		_, confidence, err := reducePrediction(gi, genID, models, row, backend.Varno(varno))
		return confidence, err
	}
}

// predictPairEnvelope is the wire shape bql_predict_pair encodes into a
// blob, so the one underlying reducePrediction draw behind a
// PREDICT ... CONFIDENCE ... projection is computed exactly once per row and
// then split, rather than computed twice by two independent scalar calls
// (spec.md §4.4's "the compiler splits it into two projections sharing one
// call result").
type predictPairEnvelope struct {
	Value      interface{} `json:"value"`
	Confidence float64     `json:"confidence"`
}

// predictPair computes reducePrediction once and returns it JSON-encoded,
// so the outer query's two extraction calls (bql_predict_pair_value,
// bql_predict_pair_confidence) read the same draw instead of each
// triggering their own call into the backend.
func predictPair(resolve Resolver) sqlexec.ScalarFunc {
	return func(args ...interface{}) (interface{}, error) {
		genID, ok := asInt64(args[0])
		if !ok {
			return nil, dberr.Internal("bql_predict_pair: bad generator id")
		}
		gi, err := resolve(genID)
		if err != nil {
			return nil, err
		}
		models, _, err := modelsOf(args)
		if err != nil {
			return nil, err
		}
		row, ok := asInt64(args[2])
		if !ok {
			return nil, dberr.Internal("bql_predict_pair: bad rowid")
		}
		varno, ok := asInt64(args[3])
		if !ok {
			return nil, dberr.Internal("bql_predict_pair: bad varno")
		}
		value, confidence, err := reducePrediction(gi, genID, models, row, backend.Varno(varno))
		if err != nil {
			return nil, err
		}
		blob, err := json.Marshal(predictPairEnvelope{Value: value, Confidence: confidence})
		if err != nil {
			return nil, dberr.Internalf("bql_predict_pair: encoding result: %v", err)
		}
		return blob, nil
	}
}

func decodePredictPairEnvelope(blob interface{}) (predictPairEnvelope, error) {
	var raw []byte
	switch v := blob.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return predictPairEnvelope{}, dberr.Internal("bql predict pair: expected a blob argument")
	}
	var env predictPairEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return predictPairEnvelope{}, dberr.Internal("bql predict pair: corrupt blob")
	}
	return env, nil
}

// predictPairValue extracts the value half of a bql_predict_pair blob.
func predictPairValue(args ...interface{}) (interface{}, error) {
	env, err := decodePredictPairEnvelope(args[0])
	if err != nil {
		return nil, err
	}
	return env.Value, nil
}

// predictPairConfidence extracts the confidence half of a bql_predict_pair
// blob.
func predictPairConfidence(args ...interface{}) (interface{}, error) {
	env, err := decodePredictPairEnvelope(args[0])
	if err != nil {
		return nil, err
	}
	return env.Confidence, nil
}

// reducePrediction draws one simulated value per model (spec.md §4.5
// simulate_joint with n_samples=1, the standard way a closed-form or
// sampling-based backend answers "what is this variable's most likely
// value"), then reduces across models per spec.md §4.6: mode and posterior
// mass on the modal category for a nominal variable, median and
// 1-normalized-IQR for numerical/cyclic/count.
func reducePrediction(gi *GeneratorInfo, genID int64, models []int, row int64, varno backend.Varno) (interface{}, float64, error) {
	if len(models) == 0 {
		return nil, 0, dberr.Internalf("generator %d has no models to predict from", genID)
	}
	samples := make([]interface{}, 0, len(models))
	for _, m := range models {
		rows, err := gi.Backend.SimulateJoint(genID, m, []backend.Varno{varno}, nil, 1)
		if err != nil {
			return nil, 0, dberr.Backend(gi.Backend.Name(), err)
		}
		if len(rows) == 0 || len(rows[0]) == 0 {
			continue
		}
		samples = append(samples, rows[0][0])
	}
	if len(samples) == 0 {
		return nil, 0, nil
	}

	stattype := cardinality.Numerical
	if gi.Stattype != nil {
		stattype = cardinality.Stattype(gi.Stattype(varno))
	}
	if stattype == cardinality.Nominal {
		return reduceMode(samples)
	}
	return reduceMedian(samples)
}

func reduceMode(samples []interface{}) (interface{}, float64, error) {
	counts := make(map[interface{}]int, len(samples))
	for _, s := range samples {
		counts[s]++
	}
	var best interface{}
	bestCount := -1
	for v, c := range counts {
		if c > bestCount {
			best, bestCount = v, c
		}
	}
	return best, float64(bestCount) / float64(len(samples)), nil
}

func reduceMedian(samples []interface{}) (interface{}, float64, error) {
	xs := make([]float64, 0, len(samples))
	for _, s := range samples {
		f, ok := asFloat64(s)
		if !ok {
			return nil, 0, dberr.Internal("bql predict: expected a numeric sample for a non-nominal variable")
		}
		xs = append(xs, f)
	}
	sort.Float64s(xs)
	n := len(xs)
	median := xs[n/2]
	if n%2 == 0 && n > 0 {
		median = (xs[n/2-1] + xs[n/2]) / 2
	}
	q1 := xs[n/4]
	q3 := xs[(3*n)/4]
	if q3 == q1 {
		return median, 1.0, nil
	}
	iqr := q3 - q1
	spread := iqr / (xs[n-1] - xs[0] + 1e-12)
	confidence := 1 - spread
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return median, confidence, nil
}
