package operators

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/probcomp/bayesdb/internal/cardinality"
	"github.com/probcomp/bayesdb/internal/dberr"
)

// correlationCategory collapses a variable's stattype down to the
// categorical/numerical dispatch key the correlation methods below key on,
// treating CYCLIC as NUMERICAL the way the original approximates it (a
// documented limitation, not a bug here: see the CYCLIC XXX note in
// DESIGN.md).
func correlationCategory(stattype string) string {
	if stattype == string(cardinality.Nominal) {
		return "categorical"
	}
	return "numerical"
}

// correlationFor dispatches CORRELATION to the method matching the pair of
// variables' stattype categories, computed directly from base-table data
// rather than through any backend call.
func correlationFor(cat0, cat1 string, data0, data1 []interface{}) (interface{}, error) {
	switch {
	case cat0 == "numerical" && cat1 == "numerical":
		return correlationPearsonR2(data0, data1)
	case cat0 == "categorical" && cat1 == "categorical":
		return correlationCramerPhi(data0, data1)
	case cat0 == "categorical" && cat1 == "numerical":
		return correlationAnovaR2(data0, data1)
	case cat0 == "numerical" && cat1 == "categorical":
		return correlationAnovaR2(data1, data0)
	default:
		return nil, dberr.Internalf("bql_correlation: no method for stattype pair (%s, %s)", cat0, cat1)
	}
}

// correlationPValueFor is correlationFor's p-value counterpart.
func correlationPValueFor(cat0, cat1 string, data0, data1 []interface{}) (interface{}, error) {
	switch {
	case cat0 == "numerical" && cat1 == "numerical":
		return correlationPValuePearsonR2(data0, data1)
	case cat0 == "categorical" && cat1 == "categorical":
		return correlationPValueCramerPhi(data0, data1)
	case cat0 == "categorical" && cat1 == "numerical":
		return correlationPValueAnovaR2(data0, data1)
	case cat0 == "numerical" && cat1 == "categorical":
		return correlationPValueAnovaR2(data1, data0)
	default:
		return nil, dberr.Internalf("bql_correlation pvalue: no method for stattype pair (%s, %s)", cat0, cat1)
	}
}

func keyOf(v interface{}) string { return fmt.Sprintf("%v", v) }

func toFloatPairs(data0, data1 []interface{}) ([]float64, []float64, error) {
	if len(data0) != len(data1) {
		return nil, nil, dberr.Internal("bql_correlation: mismatched column data lengths")
	}
	x := make([]float64, len(data0))
	y := make([]float64, len(data1))
	for i := range data0 {
		v0, ok0 := asFloat64(data0[i])
		v1, ok1 := asFloat64(data1[i])
		if !ok0 || !ok1 {
			return nil, nil, dberr.Internal("bql_correlation: non-numeric value in a numerical column")
		}
		x[i] = v0
		y[i] = v1
	}
	return x, y, nil
}

// correlationPearsonR2 computes Pearson's r² between two numerical columns
// (numerical/numerical correlation, and cyclic's numerical approximation).
func correlationPearsonR2(data0, data1 []interface{}) (float64, error) {
	if len(data0) == 0 {
		return math.NaN(), nil
	}
	x, y, err := toFloatPairs(data0, data1)
	if err != nil {
		return 0, err
	}
	r := stat.Correlation(x, y, nil)
	return r * r, nil
}

func correlationPValuePearsonR2(data0, data1 []interface{}) (float64, error) {
	r2, err := correlationPearsonR2(data0, data1)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(r2) {
		return math.NaN(), nil
	}
	if r2 == 1 {
		return 0, nil
	}
	n := len(data0)
	t := r2 * math.Sqrt(float64(n-2)/(1-r2*r2))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	return 2 * dist.CDF(-math.Abs(t)), nil
}

// uniqueLevels returns the distinct values of data in order of first
// appearance, stringified for generic equality comparison.
func uniqueLevels(data []interface{}) []string {
	seen := make(map[string]bool, len(data))
	out := make([]string, 0, len(data))
	for _, v := range data {
		k := keyOf(v)
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// cramerphiChi2 builds the contingency table between two discrete columns
// and returns its Pearson chi² statistic along with each column's level
// count, NaN when either column has only one distinct level (no notion of
// correlation).
func cramerphiChi2(data0, data1 []interface{}) (chi2 float64, n0, n1 int) {
	n := len(data0)
	if n == 0 {
		return math.NaN(), 0, 0
	}
	levels0 := uniqueLevels(data0)
	levels1 := uniqueLevels(data1)
	n0, n1 = len(levels0), len(levels1)
	minLevels := n0
	if n1 < minLevels {
		minLevels = n1
	}
	if minLevels == 1 {
		return math.NaN(), n0, n1
	}
	idx0 := make(map[string]int, n0)
	for i, v := range levels0 {
		idx0[v] = i
	}
	idx1 := make(map[string]int, n1)
	for i, v := range levels1 {
		idx1[v] = i
	}
	ct := make([][]int, n0)
	for i := range ct {
		ct[i] = make([]int, n1)
	}
	rowTotal := make([]int, n0)
	colTotal := make([]int, n1)
	for i := 0; i < n; i++ {
		r, c := idx0[keyOf(data0[i])], idx1[keyOf(data1[i])]
		ct[r][c]++
		rowTotal[r]++
		colTotal[c]++
	}
	for r := 0; r < n0; r++ {
		for c := 0; c < n1; c++ {
			expected := float64(rowTotal[r]) * float64(colTotal[c]) / float64(n)
			if expected == 0 {
				continue
			}
			diff := float64(ct[r][c]) - expected
			chi2 += diff * diff / expected
		}
	}
	return chi2, n0, n1
}

// correlationCramerPhi computes Cramér's φ between two categorical columns.
func correlationCramerPhi(data0, data1 []interface{}) (float64, error) {
	chi2, n0, n1 := cramerphiChi2(data0, data1)
	if math.IsNaN(chi2) {
		return math.NaN(), nil
	}
	minLevels := n0
	if n1 < minLevels {
		minLevels = n1
	}
	n := len(data0)
	return math.Sqrt(chi2 / (float64(n) * float64(minLevels-1))), nil
}

func correlationPValueCramerPhi(data0, data1 []interface{}) (float64, error) {
	chi2, n0, n1 := cramerphiChi2(data0, data1)
	if math.IsNaN(chi2) {
		return math.NaN(), nil
	}
	dist := distuv.ChiSquared{K: float64((n0 - 1) * (n1 - 1))}
	return 1 - dist.CDF(chi2), nil
}

// anovaFStat computes a one-way ANOVA F statistic grouping dataY by
// dataGroup's distinct values, NaN when there is no data, no repeated
// group (every row its own group), or only one group (no variation to
// explain).
func anovaFStat(dataGroup, dataY []interface{}) (f float64, nGroups int) {
	n := len(dataGroup)
	groupIndex := make(map[string]int)
	for _, x := range dataGroup {
		k := keyOf(x)
		if _, ok := groupIndex[k]; !ok {
			groupIndex[k] = len(groupIndex)
		}
	}
	nGroups = len(groupIndex)
	if nGroups == 0 || nGroups == n || nGroups == 1 {
		return math.NaN(), nGroups
	}
	groups := make([][]float64, nGroups)
	for i := 0; i < n; i++ {
		y, ok := asFloat64(dataY[i])
		if !ok {
			return math.NaN(), nGroups
		}
		k := groupIndex[keyOf(dataGroup[i])]
		groups[k] = append(groups[k], y)
	}
	return oneWayF(groups), nGroups
}

func oneWayF(groups [][]float64) float64 {
	k := len(groups)
	var totalN int
	var grandSum float64
	for _, g := range groups {
		totalN += len(g)
		for _, v := range g {
			grandSum += v
		}
	}
	grandMean := grandSum / float64(totalN)
	var ssb, ssw float64
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		var sum float64
		for _, v := range g {
			sum += v
		}
		groupMean := sum / float64(len(g))
		d := groupMean - grandMean
		ssb += float64(len(g)) * d * d
		for _, v := range g {
			e := v - groupMean
			ssw += e * e
		}
	}
	dfb := float64(k - 1)
	dfw := float64(totalN - k)
	if dfw <= 0 || ssw == 0 {
		return math.NaN()
	}
	return (ssb / dfb) / (ssw / dfw)
}

// correlationAnovaR2 computes the ANOVA-based R² effect size between a
// categorical grouping column and a numerical column.
func correlationAnovaR2(dataGroup, dataY []interface{}) (float64, error) {
	f, nGroups := anovaFStat(dataGroup, dataY)
	if math.IsNaN(f) {
		return math.NaN(), nil
	}
	n := len(dataGroup)
	return 1 - 1/(1+f*(float64(nGroups-1)/float64(n-nGroups))), nil
}

func correlationPValueAnovaR2(dataGroup, dataY []interface{}) (float64, error) {
	f, nGroups := anovaFStat(dataGroup, dataY)
	if math.IsNaN(f) {
		return math.NaN(), nil
	}
	n := len(dataGroup)
	dist := distuv.F{D1: float64(nGroups - 1), D2: float64(n - nGroups)}
	return 1 - dist.CDF(f), nil
}
