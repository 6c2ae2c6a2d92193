package compiler

import (
	"github.com/probcomp/bayesdb/internal/ast"
	"github.com/probcomp/bayesdb/internal/dberr"
)

// lowerer walks an Estimate/Infer projection or clause, rewriting every BQL
// operator node into a call to the matching internal/operators scalar
// function (spec.md §4.4, §4.6), recursing through the handful of plain-SQL
// wrapper nodes (parens, unary/binary operators, BETWEEN, IN, CASE, function
// calls) a BQL estimator can be nested inside. Any other plain node is
// rendered by the shared writeExpr, which cannot contain a further BQL node
// by parser construction.
type lowerer struct {
	scope *Scope
	kind  ast.EstimateSourceKind
}

func (l *lowerer) expr(b *exprBuf, e ast.Expr) error {
	switch n := e.(type) {
	case *ast.UnaryExpr:
		b.lit(n.Op + " ")
		return l.expr(b, n.X)
	case *ast.BinaryExpr:
		b.lit("(")
		if err := l.expr(b, n.X); err != nil {
			return err
		}
		b.lit(" " + n.Op + " ")
		if err := l.expr(b, n.Y); err != nil {
			return err
		}
		b.lit(")")
		return nil
	case *ast.ParenExpr:
		b.lit("(")
		if err := l.expr(b, n.X); err != nil {
			return err
		}
		b.lit(")")
		return nil
	case *ast.BetweenExpr:
		if err := l.expr(b, n.X); err != nil {
			return err
		}
		if n.Not {
			b.lit(" NOT BETWEEN ")
		} else {
			b.lit(" BETWEEN ")
		}
		if err := l.expr(b, n.Lo); err != nil {
			return err
		}
		b.lit(" AND ")
		return l.expr(b, n.Hi)
	case *ast.IsNullExpr:
		if err := l.expr(b, n.X); err != nil {
			return err
		}
		if n.Not {
			b.lit(" IS NOT NULL")
		} else {
			b.lit(" IS NULL")
		}
		return nil
	case *ast.CaseExpr:
		b.lit("CASE ")
		for _, w := range n.Whens {
			b.lit("WHEN ")
			if err := l.expr(b, w.Cond); err != nil {
				return err
			}
			b.lit(" THEN ")
			if err := l.expr(b, w.Then); err != nil {
				return err
			}
			b.lit(" ")
		}
		if n.Else != nil {
			b.lit("ELSE ")
			if err := l.expr(b, n.Else); err != nil {
				return err
			}
		}
		b.lit("END")
		return nil
	case *ast.FuncCall:
		b.lit(n.Name + "(")
		for i, a := range n.Args {
			if i > 0 {
				b.lit(", ")
			}
			if err := l.expr(b, a); err != nil {
				return err
			}
		}
		b.lit(")")
		return nil

	case *ast.PredProb:
		return l.predProb(b, n)
	case *ast.Sim:
		return l.similarity(b, n)
	case *ast.DepProb:
		return l.depProb(b, n)
	case *ast.MutInf:
		return l.mutInf(b, n)
	case *ast.Correl:
		return l.correl(b, n)
	case *ast.ProbDensity:
		return l.probDensity(b, n)

	default:
		return writeExpr(b, e)
	}
}

func (l *lowerer) requireRowContext(op string) error {
	if l.kind != ast.SrcPopulation {
		return dberr.WrongContext(op, contextName(l.kind))
	}
	return nil
}

func (l *lowerer) requireColumnContext(op string) error {
	if l.kind != ast.SrcVariablesOf && l.kind != ast.SrcPairwiseVariablesOf {
		return dberr.WrongContext(op, contextName(l.kind))
	}
	return nil
}

func contextName(k ast.EstimateSourceKind) string {
	switch k {
	case ast.SrcPopulation:
		return "population (row)"
	case ast.SrcPairwise:
		return "pairwise (row)"
	case ast.SrcVariablesOf:
		return "variables of (column)"
	case ast.SrcPairwiseVariablesOf:
		return "pairwise variables of (column)"
	default:
		return "unknown"
	}
}

func (l *lowerer) genArgs(b *exprBuf) {
	b.param(l.scope.GeneratorID)
	b.lit(", ")
	ser, _ := l.scope.ModelSet.Serialize()
	b.param(ser)
}

// rowIdentifier returns the rowid expression text for the current row
// context: plain "rowid" for single-row, "r0.rowid"/"r1.rowid" for
// pairwise row self-joins (spec.md §4.4 "pairwise row → self-join of base
// table").
func (l *lowerer) rowIdentifier(which int) string {
	if l.kind == ast.SrcPairwise {
		if which == 1 {
			return `"r1"."rowid"`
		}
		return `"r0"."rowid"`
	}
	return `"rowid"`
}

func (l *lowerer) predProb(b *exprBuf, n *ast.PredProb) error {
	if err := l.requireRowContext("PREDICTIVE PROBABILITY OF"); err != nil {
		return err
	}
	varno, err := l.scope.varnoOfExpr(n.Column)
	if err != nil {
		return err
	}
	name, err := identName(n.Column)
	if err != nil {
		return err
	}
	col, err := l.scope.column(name)
	if err != nil {
		return err
	}
	b.lit("bql_predictive_probability(")
	l.genArgs(b)
	b.lit(", ")
	b.lit(l.rowIdentifier(0))
	b.lit(", ")
	b.param(varno)
	b.lit(", ")
	b.lit(quoteName(col)) // the row's own observed value, the density's target
	b.lit(", ")
	if err := l.writeGiven(b, n.Given); err != nil {
		return err
	}
	b.lit(")")
	return nil
}

func (l *lowerer) similarity(b *exprBuf, n *ast.Sim) error {
	if l.kind != ast.SrcPopulation && l.kind != ast.SrcPairwise {
		return dberr.WrongContext("SIMILARITY TO", contextName(l.kind))
	}
	b.lit("bql_row_similarity(")
	l.genArgs(b)
	b.lit(", ")
	b.lit(l.rowIdentifier(0))
	b.lit(", ")
	// The target row-matching condition is lowered to a correlated
	// subquery selecting the matching rowid (spec.md §4.4: "SIMILARITY TO
	// as correlated subquery").
	b.lit("(SELECT \"rowid\" FROM ")
	b.lit(quoteName(l.scope.BaseTable))
	b.lit(" WHERE ")
	if err := writeExpr(b, n.Target); err != nil {
		return err
	}
	b.lit(")")
	b.lit(", ")
	if n.ContextColumn != nil {
		varno, err := l.scope.varnoOfExpr(n.ContextColumn)
		if err != nil {
			return err
		}
		b.param(varno)
	} else {
		b.lit("NULL")
	}
	b.lit(")")
	return nil
}

func (l *lowerer) depProb(b *exprBuf, n *ast.DepProb) error {
	if err := l.requireColumnContext("DEPENDENCE PROBABILITY"); err != nil {
		return err
	}
	b.lit("bql_dependence_probability(")
	l.genArgs(b)
	b.lit(", ")
	if err := l.columnPair(b, n.Col1, n.Col2); err != nil {
		return err
	}
	b.lit(")")
	return nil
}

func (l *lowerer) mutInf(b *exprBuf, n *ast.MutInf) error {
	if err := l.requireColumnContext("MUTUAL INFORMATION"); err != nil {
		return err
	}
	b.lit("bql_mutual_information(")
	l.genArgs(b)
	b.lit(", ")
	if err := l.columnPair(b, n.Col1, n.Col2); err != nil {
		return err
	}
	b.lit(", ")
	if err := l.writeGiven(b, n.Given); err != nil {
		return err
	}
	b.lit(", ")
	if n.NSamples != nil {
		if err := writeExpr(b, n.NSamples); err != nil {
			return err
		}
	} else {
		b.param(int64(100))
	}
	b.lit(")")
	return nil
}

func (l *lowerer) correl(b *exprBuf, n *ast.Correl) error {
	if err := l.requireColumnContext("CORRELATION"); err != nil {
		return err
	}
	fn := "bql_correlation"
	if n.PValue {
		fn = "bql_correlation_pvalue"
	}
	b.lit(fn + "(")
	l.genArgs(b)
	b.lit(", ")
	if err := l.columnPair(b, n.Col1, n.Col2); err != nil {
		return err
	}
	b.lit(")")
	return nil
}

// probDensity lowers the three PROBABILITY DENSITY forms of spec.md §4.2.
// "OF c=v" / "OF (c1=v1, ...)" name their target variables explicitly and
// require a row context; "OF VALUE v" leaves the variable implicit (the one
// the driving "FROM VARIABLES OF" join is currently iterating) and requires
// a column context. Both lower to the same call shape: (generator_id,
// modelset, ntargets, [varno, value]×ntargets, ngiven, [varno, value]×ngiven)
// so internal/operators has one parsing routine for either form.
func (l *lowerer) probDensity(b *exprBuf, n *ast.ProbDensity) error {
	b.lit("bql_probability_density(")
	l.genArgs(b)
	b.lit(", ")
	if len(n.Targets) > 0 {
		if err := l.requireRowContext("PROBABILITY DENSITY OF"); err != nil {
			return err
		}
		b.param(int64(len(n.Targets)))
		for _, t := range n.Targets {
			varno, err := l.scope.varnoOfExpr(t.Column)
			if err != nil {
				return err
			}
			b.lit(", ")
			b.param(varno)
			b.lit(", ")
			if err := writeExpr(b, t.Value); err != nil {
				return err
			}
		}
	} else {
		if err := l.requireColumnContext("PROBABILITY DENSITY OF VALUE"); err != nil {
			return err
		}
		b.param(int64(1))
		b.lit(`, "v"."varno", `)
		if err := writeExpr(b, n.Value); err != nil {
			return err
		}
	}
	b.lit(", ")
	if err := l.writeGiven(b, n.Given); err != nil {
		return err
	}
	b.lit(")")
	return nil
}

// writeGiven renders a GIVEN clause as a flat (count, varno, value, varno,
// value, ...) run of call arguments, evaluated once per row rather than
// folded to a constant (spec.md §4.4: "constraints are serialized as
// dynamic tuples, not constants"). A row-value tuple literal is not legal
// syntax as a scalar function argument, so the pairs are spliced directly
// into the enclosing call's variadic argument list instead of wrapped in
// parens; internal/operators reads the leading count to know how many
// (varno, value) pairs follow.
func (l *lowerer) writeGiven(b *exprBuf, given []ast.GivenConstraint) error {
	b.param(int64(len(given)))
	for _, g := range given {
		varno, err := l.scope.varnoOfExpr(g.Variable)
		if err != nil {
			return err
		}
		b.lit(", ")
		b.param(varno)
		b.lit(", ")
		if err := writeExpr(b, g.Value); err != nil {
			return err
		}
	}
	return nil
}

// columnPair writes the [[OF c1] WITH c2] shorthand's two operands directly
// into b, separated by ", ": an explicit column reference is written as a
// bound varno parameter, while a column omitted in a column context is
// written as the raw SQL text of the driving join's own varno column, so it
// varies per output row (per generator variable) instead of binding a
// constant (spec.md §4.4 "Column operators become scalar function calls on
// v.colno"). In a single-column context (SrcVariablesOf) only c1 (the OF
// clause) may be omitted this way, defaulting to "v"."varno"; c2 (WITH)
// must always be named explicitly there. In a pairwise column context
// (SrcPairwiseVariablesOf) both may be omitted — the bare
// "DEPENDENCE PROBABILITY"/"MUTUAL INFORMATION"/"CORRELATION" form with
// neither OF nor WITH, which spec.md §4.4 defines as taking v0.colno,
// v1.colno — defaulting respectively to "v0"."varno" and "v1"."varno".
func (l *lowerer) columnPair(b *exprBuf, c1, c2 ast.Expr) error {
	if err := l.writeColumnOperand(b, c1, `"v"."varno"`, `"v0"."varno"`); err != nil {
		return err
	}
	b.lit(", ")
	return l.writeColumnOperand(b, c2, "", `"v1"."varno"`)
}

// writeColumnOperand writes one operand of columnPair. If col is non-nil it
// is an explicit column reference, bound as a parameter. Otherwise it is
// written as singleSentinel when l.kind is SrcVariablesOf, or pairSentinel
// when l.kind is SrcPairwiseVariablesOf; an empty singleSentinel means the
// operand has no default in a single-column context and must be given.
func (l *lowerer) writeColumnOperand(b *exprBuf, col ast.Expr, singleSentinel, pairSentinel string) error {
	if col != nil {
		varno, err := l.scope.varnoOfExpr(col)
		if err != nil {
			return err
		}
		b.param(varno)
		return nil
	}
	switch l.kind {
	case ast.SrcVariablesOf:
		if singleSentinel == "" {
			return dberr.Internal("missing WITH column")
		}
		b.lit(singleSentinel)
		return nil
	case ast.SrcPairwiseVariablesOf:
		b.lit(pairSentinel)
		return nil
	default:
		return dberr.Internal("missing OF column in pairwise column context")
	}
}

func (s *Scope) varnoOfExpr(e ast.Expr) (int32, error) {
	name, err := identName(e)
	if err != nil {
		return 0, err
	}
	return s.varno(name)
}

func identName(e ast.Expr) (string, error) {
	switch n := e.(type) {
	case *ast.Ident:
		return n.Name, nil
	case *ast.QualifiedName:
		return n.Parts[len(n.Parts)-1], nil
	default:
		return "", dberr.Internalf("expected a column reference, got %T", e)
	}
}

// compileEstimate lowers ESTIMATE across its four query-header contexts
// (spec.md §4.2, §4.4).
func compileEstimate(n *ast.EstimateStmt, scope *Scope) (*Plan, error) {
	l := &lowerer{scope: scope, kind: n.Source.Kind}

	var b exprBuf
	b.lit("SELECT ")
	for i, item := range n.Columns {
		if i > 0 {
			b.lit(", ")
		}
		if err := l.expr(&b, item.Expr); err != nil {
			return nil, err
		}
		if item.Alias != "" {
			b.lit(" AS " + quoteName(item.Alias))
		}
	}

	b.lit(" FROM ")
	switch n.Source.Kind {
	case ast.SrcPopulation:
		b.lit(quoteName(scope.BaseTable))
	case ast.SrcPairwise:
		b.lit(quoteName(scope.BaseTable) + ` AS "r0", ` + quoteName(scope.BaseTable) + ` AS "r1"`)
	case ast.SrcVariablesOf:
		b.lit(`bayesdb_variable AS "v"`)
	case ast.SrcPairwiseVariablesOf:
		b.lit(`bayesdb_variable AS "v0", bayesdb_variable AS "v1"`)
	}

	var whereParts []string
	switch n.Source.Kind {
	case ast.SrcVariablesOf:
		whereParts = append(whereParts, `"v"."population_id" = ?`)
		b.args = append(b.args, scope.PopulationID)
	case ast.SrcPairwiseVariablesOf:
		whereParts = append(whereParts, `"v0"."population_id" = ?`, `"v1"."population_id" = ?`)
		b.args = append(b.args, scope.PopulationID, scope.PopulationID)
		if len(n.ForSubcols) > 0 {
			names := make([]int64, 0, len(n.ForSubcols))
			for _, e := range n.ForSubcols {
				vn, err := scope.varnoOfExpr(e)
				if err != nil {
					return nil, err
				}
				names = append(names, int64(vn))
			}
			ph := placeholders(len(names))
			whereParts = append(whereParts, `"v1"."varno" IN (`+ph+`)`)
			for _, vn := range names {
				b.args = append(b.args, vn)
			}
		}
	}

	if n.Where != nil {
		var wb exprBuf
		if err := l.expr(&wb, n.Where); err != nil {
			return nil, err
		}
		whereParts = append(whereParts, wb.String())
		b.args = append(b.args, wb.args...)
	}
	if len(whereParts) > 0 {
		b.lit(" WHERE ")
		for i, p := range whereParts {
			if i > 0 {
				b.lit(" AND ")
			}
			b.lit(p)
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
	if len(n.OrderBy) > 0 {
		b.lit(" ORDER BY ")
		for i, o := range n.OrderBy {
			if i > 0 {
				b.lit(", ")
			}
			if err := l.expr(&b, o.Expr); err != nil {
				return nil, err
			}
			if o.Desc {
				b.lit(" DESC")
			}
		}
	}
	if n.Limit != nil {
		b.lit(" LIMIT ")
		if err := writeExpr(&b, n.Limit); err != nil {
			return nil, err
		}
	}
	if n.Offset != nil {
		b.lit(" OFFSET ")
		if err := writeExpr(&b, n.Offset); err != nil {
			return nil, err
		}
	}

	return &Plan{SQL: b.String(), Args: b.args}, nil
}
