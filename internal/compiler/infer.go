package compiler

import (
	"fmt"

	"github.com/probcomp/bayesdb/internal/ast"
)

// compileInfer lowers implicit INFER: every requested column passes its
// observed value through unchanged, falling back to the generator's
// prediction (bql_infer, spec.md §4.6's mode/median reduction, confidence-
// gated) only where the base table holds NULL (spec.md §4.4 "INFER implicit
// → bql_infer per column").
func compileInfer(n *ast.InferStmt, scope *Scope) (*Plan, error) {
	l := &lowerer{scope: scope, kind: ast.SrcPopulation}

	var threshold exprBuf
	if n.ConfidenceThreshold != nil {
		if err := writeExpr(&threshold, n.ConfidenceThreshold); err != nil {
			return nil, err
		}
	} else {
		threshold.param(0.0)
	}

	var b exprBuf
	b.lit("SELECT \"rowid\"")
	for _, c := range n.Columns {
		vn, err := scope.varno(c)
		if err != nil {
			return nil, err
		}
		col, err := scope.column(c)
		if err != nil {
			return nil, err
		}
		b.lit(", CASE WHEN ")
		b.lit(quoteName(col))
		b.lit(" IS NULL THEN bql_infer(")
		l.genArgs(&b)
		b.lit(`, "rowid", `)
		b.param(vn)
		b.lit(", ")
		b.lit(threshold.String())
		b.args = append(b.args, threshold.args...)
		b.lit(") ELSE ")
		b.lit(quoteName(col))
		b.lit(" END AS ")
		b.lit(quoteName(c))
	}
	b.lit(" FROM ")
	b.lit(quoteName(scope.BaseTable))
	if n.Where != nil {
		b.lit(" WHERE ")
		if err := l.expr(&b, n.Where); err != nil {
			return nil, err
		}
	}
	writeOrderLimitOffset(&b, n.OrderBy, n.Limit, n.Offset)

	return &Plan{SQL: b.String(), Args: b.args}, nil
}

// compileInferExplicit lowers INFER EXPLICIT, a SELECT over the base table
// whose PREDICT c AS n CONFIDENCE cname projections each expand to a pair of
// output columns (spec.md §4.4). When any projection asks for a confidence
// column, the two outputs must come from one shared prediction: for an
// arbitrary backend there is no guarantee that two independent
// bql_predict/bql_predict_confidence calls agree (only the shipped
// diag_gauss backend happens to, by reseeding its RNG from
// (generatorID, modelID) on every call). So this case lowers to two nested
// SELECTs: the inner computes one bql_predict_pair(...) blob per such
// projection, the outer splits that single blob into its value and
// confidence columns via bql_predict_pair_value/bql_predict_pair_confidence.
// A PREDICT with no CONFIDENCE clause has only one output column, so it
// still lowers to a single bql_predict(...) call with no pairing needed.
func compileInferExplicit(n *ast.InferExplicitStmt, scope *Scope) (*Plan, error) {
	needsPairing := false
	for _, item := range n.Columns {
		if pc, ok := item.Expr.(*ast.PredictConf); ok && pc.ConfidenceAlias != "" {
			needsPairing = true
			break
		}
	}
	if !needsPairing {
		return compileInferExplicitFlat(n, scope)
	}
	return compileInferExplicitPaired(n, scope)
}

// compileInferExplicitFlat handles the case where no projection needs a
// shared (value, confidence) call, so every projection can be emitted
// directly against the base table in a single SELECT.
func compileInferExplicitFlat(n *ast.InferExplicitStmt, scope *Scope) (*Plan, error) {
	l := &lowerer{scope: scope, kind: ast.SrcPopulation}

	var b exprBuf
	b.lit("SELECT ")
	for i, item := range n.Columns {
		if i > 0 {
			b.lit(", ")
		}
		if pc, ok := item.Expr.(*ast.PredictConf); ok {
			vn, err := scope.varnoOfExpr(pc.Column)
			if err != nil {
				return nil, err
			}
			b.lit("bql_predict(")
			l.genArgs(&b)
			b.lit(`, "rowid", `)
			b.param(vn)
			b.lit(")")
			if item.Alias != "" {
				b.lit(" AS " + quoteName(item.Alias))
			}
			continue
		}
		if err := l.expr(&b, item.Expr); err != nil {
			return nil, err
		}
		if item.Alias != "" {
			b.lit(" AS " + quoteName(item.Alias))
		}
	}
	b.lit(" FROM ")
	b.lit(quoteName(scope.BaseTable))
	if n.Where != nil {
		b.lit(" WHERE ")
		if err := l.expr(&b, n.Where); err != nil {
			return nil, err
		}
	}
	if len(n.GroupBy) > 0 {
		b.lit(" GROUP BY ")
		for i, g := range n.GroupBy {
			if i > 0 {
				b.lit(", ")
			}
			if err := l.expr(&b, g); err != nil {
				return nil, err
			}
		}
	}
	if n.Having != nil {
		b.lit(" HAVING ")
		if err := l.expr(&b, n.Having); err != nil {
			return nil, err
		}
	}
	writeOrderLimitOffset(&b, n.OrderBy, n.Limit, n.Offset)

	return &Plan{SQL: b.String(), Args: b.args}, nil
}

// compileInferExplicitPaired emits an inner SELECT that computes every
// PREDICT ... CONFIDENCE ... projection exactly once (as a bql_predict_pair
// blob, aliased per item), passing every other projection straight through
// under a synthetic alias, and an outer SELECT that reassembles the
// requested output columns: plain passthroughs and split (value,
// confidence) pairs for the paired items.
func compileInferExplicitPaired(n *ast.InferExplicitStmt, scope *Scope) (*Plan, error) {
	l := &lowerer{scope: scope, kind: ast.SrcPopulation}

	type outerCol struct {
		pair       bool
		innerAlias string
		valueAlias string // output name for the value column
		confAlias  string // output name for the confidence column, only when pair
	}
	cols := make([]outerCol, len(n.Columns))

	var inner exprBuf
	inner.lit("SELECT ")
	for i, item := range n.Columns {
		if i > 0 {
			inner.lit(", ")
		}
		synthetic := fmt.Sprintf("__infer_%d", i)
		if pc, ok := item.Expr.(*ast.PredictConf); ok && pc.ConfidenceAlias != "" {
			vn, err := scope.varnoOfExpr(pc.Column)
			if err != nil {
				return nil, err
			}
			inner.lit("bql_predict_pair(")
			l.genArgs(&inner)
			inner.lit(`, "rowid", `)
			inner.param(vn)
			inner.lit(") AS " + quoteName(synthetic))
			cols[i] = outerCol{pair: true, innerAlias: synthetic, valueAlias: item.Alias, confAlias: pc.ConfidenceAlias}
			continue
		}
		if pc, ok := item.Expr.(*ast.PredictConf); ok {
			vn, err := scope.varnoOfExpr(pc.Column)
			if err != nil {
				return nil, err
			}
			inner.lit("bql_predict(")
			l.genArgs(&inner)
			inner.lit(`, "rowid", `)
			inner.param(vn)
			inner.lit(") AS " + quoteName(synthetic))
			cols[i] = outerCol{innerAlias: synthetic, valueAlias: item.Alias}
			continue
		}
		if err := l.expr(&inner, item.Expr); err != nil {
			return nil, err
		}
		inner.lit(" AS " + quoteName(synthetic))
		cols[i] = outerCol{innerAlias: synthetic, valueAlias: defaultColumnName(item)}
	}
	inner.lit(" FROM ")
	inner.lit(quoteName(scope.BaseTable))
	if n.Where != nil {
		inner.lit(" WHERE ")
		if err := l.expr(&inner, n.Where); err != nil {
			return nil, err
		}
	}
	if len(n.GroupBy) > 0 {
		inner.lit(" GROUP BY ")
		for i, g := range n.GroupBy {
			if i > 0 {
				inner.lit(", ")
			}
			if err := l.expr(&inner, g); err != nil {
				return nil, err
			}
		}
	}
	if n.Having != nil {
		inner.lit(" HAVING ")
		if err := l.expr(&inner, n.Having); err != nil {
			return nil, err
		}
	}

	var b exprBuf
	b.lit("SELECT ")
	first := true
	for _, c := range cols {
		if !first {
			b.lit(", ")
		}
		first = false
		if c.pair {
			b.lit("bql_predict_pair_value(" + quoteName(c.innerAlias) + ")")
			if c.valueAlias != "" {
				b.lit(" AS " + quoteName(c.valueAlias))
			}
			b.lit(", bql_predict_pair_confidence(" + quoteName(c.innerAlias) + ") AS " + quoteName(c.confAlias))
			continue
		}
		b.lit(quoteName(c.innerAlias))
		if c.valueAlias != "" {
			b.lit(" AS " + quoteName(c.valueAlias))
		}
	}
	b.lit(" FROM (")
	b.lit(inner.String())
	b.args = append(b.args, inner.args...)
	b.lit(") AS \"__infer\"")
	writeOrderLimitOffset(&b, n.OrderBy, n.Limit, n.Offset)

	return &Plan{SQL: b.String(), Args: b.args}, nil
}

// defaultColumnName picks the output name SQLite would itself assign to an
// unaliased projection when it is a plain column reference (the common
// case for INFER EXPLICIT's passthrough columns); anything more complex
// must carry an explicit alias to survive being relayed through the inner
// SELECT of compileInferExplicitPaired.
func defaultColumnName(item ast.SelectItem) string {
	if item.Alias != "" {
		return item.Alias
	}
	if id, ok := item.Expr.(*ast.Ident); ok {
		return id.Name
	}
	return ""
}
