package compiler

import (
	"github.com/probcomp/bayesdb/internal/ast"
	"github.com/probcomp/bayesdb/internal/dberr"
)

// writeExpr renders a plain SQL expression (no BQL operator node may appear
// here; the parser only constructs those inside Estimate/Simulate/Infer
// projections, never inside an ordinary SelectStmt).
func writeExpr(b *exprBuf, e ast.Expr) error {
	switch n := e.(type) {
	case *ast.Ident:
		b.lit(quoteName(n.Name))
	case *ast.QualifiedName:
		for i, p := range n.Parts {
			if i > 0 {
				b.lit(".")
			}
			b.lit(quoteName(p))
		}
	case *ast.IntegerLit:
		b.param(n.Value)
	case *ast.FloatLit:
		b.param(n.Value)
	case *ast.StringLit:
		b.param(n.Value)
	case *ast.NullLit:
		b.lit("NULL")
	case *ast.BoolLit:
		b.param(n.Value)
	case *ast.Param:
		b.lit("?")
	case *ast.StarExpr:
		if n.Qualifier != "" {
			b.lit(quoteName(n.Qualifier) + ".*")
		} else {
			b.lit("*")
		}
	case *ast.UnaryExpr:
		b.lit(n.Op + " ")
		return writeExpr(b, n.X)
	case *ast.BinaryExpr:
		b.lit("(")
		if err := writeExpr(b, n.X); err != nil {
			return err
		}
		b.lit(" " + n.Op + " ")
		if err := writeExpr(b, n.Y); err != nil {
			return err
		}
		b.lit(")")
	case *ast.BetweenExpr:
		if err := writeExpr(b, n.X); err != nil {
			return err
		}
		if n.Not {
			b.lit(" NOT BETWEEN ")
		} else {
			b.lit(" BETWEEN ")
		}
		if err := writeExpr(b, n.Lo); err != nil {
			return err
		}
		b.lit(" AND ")
		return writeExpr(b, n.Hi)
	case *ast.InExpr:
		if err := writeExpr(b, n.X); err != nil {
			return err
		}
		if n.Not {
			b.lit(" NOT IN (")
		} else {
			b.lit(" IN (")
		}
		if n.Subquery != nil {
			if err := writeSelectStmt(b, n.Subquery); err != nil {
				return err
			}
		} else {
			for i, item := range n.List {
				if i > 0 {
					b.lit(", ")
				}
				if err := writeExpr(b, item); err != nil {
					return err
				}
			}
		}
		b.lit(")")
	case *ast.IsNullExpr:
		if err := writeExpr(b, n.X); err != nil {
			return err
		}
		if n.Not {
			b.lit(" IS NOT NULL")
		} else {
			b.lit(" IS NULL")
		}
	case *ast.LikeExpr:
		if err := writeExpr(b, n.X); err != nil {
			return err
		}
		if n.Not {
			b.lit(" NOT LIKE ")
		} else {
			b.lit(" LIKE ")
		}
		return writeExpr(b, n.Pattern)
	case *ast.CaseExpr:
		b.lit("CASE ")
		if n.Operand != nil {
			if err := writeExpr(b, n.Operand); err != nil {
				return err
			}
			b.lit(" ")
		}
		for _, w := range n.Whens {
			b.lit("WHEN ")
			if err := writeExpr(b, w.Cond); err != nil {
				return err
			}
			b.lit(" THEN ")
			if err := writeExpr(b, w.Then); err != nil {
				return err
			}
			b.lit(" ")
		}
		if n.Else != nil {
			b.lit("ELSE ")
			if err := writeExpr(b, n.Else); err != nil {
				return err
			}
			b.lit(" ")
		}
		b.lit("END")
	case *ast.FuncCall:
		b.lit(n.Name + "(")
		if n.Distinct {
			b.lit("DISTINCT ")
		}
		if n.Star {
			b.lit("*")
		} else {
			for i, a := range n.Args {
				if i > 0 {
					b.lit(", ")
				}
				if err := writeExpr(b, a); err != nil {
					return err
				}
			}
		}
		b.lit(")")
	case *ast.CollateExpr:
		if err := writeExpr(b, n.X); err != nil {
			return err
		}
		b.lit(" COLLATE " + n.Collation)
	case *ast.CastExpr:
		b.lit("CAST(")
		if err := writeExpr(b, n.X); err != nil {
			return err
		}
		b.lit(" AS " + n.Type + ")")
	case *ast.ParenExpr:
		b.lit("(")
		if err := writeExpr(b, n.X); err != nil {
			return err
		}
		b.lit(")")
	case *ast.ExprList:
		b.lit("(")
		for i, item := range n.Items {
			if i > 0 {
				b.lit(", ")
			}
			if err := writeExpr(b, item); err != nil {
				return err
			}
		}
		b.lit(")")
	case *ast.Subquery:
		b.lit("(")
		if err := writeSelectStmt(b, n.Select); err != nil {
			return err
		}
		b.lit(")")
	default:
		return dberr.Internalf("compiler: unexpected expression node %T in a plain-SQL context", e)
	}
	return nil
}

func writeSelectStmt(b *exprBuf, n *ast.SelectStmt) error {
	b.lit("SELECT ")
	if n.Distinct {
		b.lit("DISTINCT ")
	}
	for i, item := range n.Columns {
		if i > 0 {
			b.lit(", ")
		}
		if err := writeExpr(b, item.Expr); err != nil {
			return err
		}
		if item.Alias != "" {
			b.lit(" AS " + quoteName(item.Alias))
		}
	}
	if len(n.From) > 0 {
		b.lit(" FROM ")
		for i, t := range n.From {
			if i > 0 {
				b.lit(", ")
			}
			if err := writeTableExpr(b, t); err != nil {
				return err
			}
		}
	}
	if n.Where != nil {
		b.lit(" WHERE ")
		if err := writeExpr(b, n.Where); err != nil {
			return err
		}
	}
	if len(n.GroupBy) > 0 {
		b.lit(" GROUP BY ")
		for i, g := range n.GroupBy {
			if i > 0 {
				b.lit(", ")
			}
			if err := writeExpr(b, g); err != nil {
				return err
			}
		}
	}
	if n.Having != nil {
		b.lit(" HAVING ")
		if err := writeExpr(b, n.Having); err != nil {
			return err
		}
	}
	writeOrderLimitOffset(b, n.OrderBy, n.Limit, n.Offset)
	return nil
}

func writeOrderLimitOffset(b *exprBuf, orderBy []ast.OrderItem, limit, offset ast.Expr) error {
	if len(orderBy) > 0 {
		b.lit(" ORDER BY ")
		for i, o := range orderBy {
			if i > 0 {
				b.lit(", ")
			}
			if err := writeExpr(b, o.Expr); err != nil {
				return err
			}
			if o.Desc {
				b.lit(" DESC")
			}
		}
	}
	if limit != nil {
		b.lit(" LIMIT ")
		if err := writeExpr(b, limit); err != nil {
			return err
		}
	}
	if offset != nil {
		b.lit(" OFFSET ")
		if err := writeExpr(b, offset); err != nil {
			return err
		}
	}
	return nil
}

func writeTableExpr(b *exprBuf, t ast.TableExpr) error {
	switch n := t.(type) {
	case *ast.TableName:
		b.lit(quoteName(n.Name))
		if n.Alias != "" {
			b.lit(" AS " + quoteName(n.Alias))
		}
	case *ast.JoinExpr:
		if err := writeTableExpr(b, n.Left); err != nil {
			return err
		}
		if n.Kind != "" {
			b.lit(" " + n.Kind)
		}
		b.lit(" JOIN ")
		if err := writeTableExpr(b, n.Right); err != nil {
			return err
		}
		if n.On != nil {
			b.lit(" ON ")
			if err := writeExpr(b, n.On); err != nil {
				return err
			}
		}
	case *ast.SubqueryTable:
		b.lit("(")
		if err := writeSelectStmt(b, n.Select); err != nil {
			return err
		}
		b.lit(")")
		if n.Alias != "" {
			b.lit(" AS " + quoteName(n.Alias))
		}
	default:
		return dberr.Internalf("compiler: unexpected table expression %T", t)
	}
	return nil
}

// callFunc renders name(args...) into b, where args are already-written SQL
// fragments (placeholders and literal subexpressions), and returns nothing
// extra: callers build the fragments themselves via exprBuf helpers.
func callFunc(b *exprBuf, name string, argCount int) {
	b.lit(name + "(" + placeholders(argCount) + ")")
}
