package compiler

import (
	"github.com/probcomp/bayesdb/internal/ast"
	"github.com/probcomp/bayesdb/internal/dberr"
)

// compileSimulate lowers SIMULATE to a SimulatePlan the executor runs in two
// steps: call the generator's backend to fill a materialized temp table,
// then read it back with the returned SQL (spec.md §4.4's temp-table
// alternative to a virtual table).
func compileSimulate(n *ast.SimulateStmt, scope *Scope) (*Plan, error) {
	targets := make([]string, 0, len(n.Columns))
	targetVarno := make([]int32, 0, len(n.Columns))
	for _, c := range n.Columns {
		vn, err := scope.varno(c)
		if err != nil {
			return nil, err
		}
		targets = append(targets, c)
		targetVarno = append(targetVarno, vn)
	}

	constraints := make([]ConstraintExpr, 0, len(n.Given))
	for _, g := range n.Given {
		vn, err := scope.varnoOfExpr(g.Variable)
		if err != nil {
			return nil, err
		}
		var vb exprBuf
		if err := writeExpr(&vb, g.Value); err != nil {
			return nil, err
		}
		constraints = append(constraints, ConstraintExpr{Varno: vn, ValueSQL: vb.String(), ValueArgs: vb.args})
	}

	if n.Limit == nil {
		return nil, dberr.Internal("SIMULATE requires a LIMIT clause")
	}
	var lb exprBuf
	if err := writeExpr(&lb, n.Limit); err != nil {
		return nil, err
	}

	tempTable := "bayesdb_simulate_" + newTempSuffix()

	plan := &SimulatePlan{
		TempTable:   tempTable,
		GeneratorID: scope.GeneratorID,
		ModelSet:    scope.ModelSet,
		Targets:     targets,
		TargetVarno: targetVarno,
		Constraints: constraints,
		LimitSQL:    lb.String(),
		LimitArgs:   lb.args,
	}

	readback := "SELECT " + fmtIdentList(targets) + " FROM " + quoteName(tempTable)
	return &Plan{SQL: readback, Simulate: plan}, nil
}
