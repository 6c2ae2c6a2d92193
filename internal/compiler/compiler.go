// Package compiler lowers resolved BQL statements to SQL text plus bound
// parameters, per spec.md §4.4. It never touches the catalog or a backend
// itself; callers (internal/executor) resolve every name to a stable id
// first and hand the compiler a fully-resolved Scope.
//
// Every BQL operator form becomes a call to one of the process-wide scalar
// functions internal/operators registers under the engine's own
// user-defined-function mechanism (spec.md §4.6), so the rest of the
// compiled statement is ordinary SQL the underlying engine already knows
// how to plan and execute. Where the spec's two alternatives for SIMULATE
// diverge (virtual table vs. a materialized temp table, spec.md §4.4), this
// package takes the temp-table path and hands the executor a Plan carrying
// enough information to populate it.
package compiler

import (
	"strings"

	"github.com/probcomp/bayesdb/internal/ast"
	"github.com/probcomp/bayesdb/internal/dberr"
	"github.com/probcomp/bayesdb/internal/modelset"
)

// Scope is everything the compiler needs about a resolved population and
// (if present) its generator, looked up from the catalog by the executor
// before compilation starts.
type Scope struct {
	PopulationID   int64
	BaseTable      string
	RowIDColumn    string // usually "rowid"
	VariableVarno  map[string]int32
	VariableColumn map[string]string // variable name -> base table column name
	GeneratorID    int64
	GeneratorName  string
	ModelSet       *modelset.Set // resolved from USING MODEL(S), or every existing model
}

func (s *Scope) varno(name string) (int32, error) {
	v, ok := s.VariableVarno[name]
	if !ok {
		return 0, dberr.NoSuchVariable(name)
	}
	return v, nil
}

func (s *Scope) column(name string) (string, error) {
	c, ok := s.VariableColumn[name]
	if !ok {
		return "", dberr.NoSuchVariable(name)
	}
	return c, nil
}

// Plan is a compiled statement ready for execution.
type Plan struct {
	// SQL and Args are always populated: for plain pass-through statements
	// they are the statement's own text; for ESTIMATE/INFER they are the
	// lowered query; for SIMULATE they are the SELECT that reads back the
	// materialized temp table after Simulate has been populated.
	SQL  string
	Args []interface{}

	// Simulate is non-nil only for a SIMULATE statement: the executor must
	// run it (calling the backend directly, spec.md §4.5 simulate_joint)
	// and materialize its rows into TempTable before running SQL.
	Simulate *SimulatePlan
}

// SimulatePlan carries what the executor needs to populate a SIMULATE
// statement's backing temp table before reading it back.
type SimulatePlan struct {
	TempTable   string
	GeneratorID int64
	ModelSet    *modelset.Set
	Targets     []string // variable names, in projection order
	TargetVarno []int32
	Constraints []ConstraintExpr
	// LimitSQL/LimitArgs evaluate to the sample count; the executor runs
	// "SELECT <LimitSQL>" once to resolve it before calling SimulateJoint
	// (spec.md §4.2 "SIMULATE ... LIMIT n"; §8 "fail on negative").
	LimitSQL  string
	LimitArgs []interface{}
}

// ConstraintExpr is one GIVEN term after the variable side has been
// resolved to a varno; Value is left as SQL text + args (a dynamic tuple,
// spec.md §4.4: "constraints are serialized as dynamic (base.col1, ...)
// tuples, not constants") for the executor to evaluate once against the
// current row, not once per candidate model.
type ConstraintExpr struct {
	Varno     int32
	ValueSQL  string
	ValueArgs []interface{}
}

// exprBuf accumulates rendered SQL text and bound parameters as the
// compiler walks an expression tree.
type exprBuf struct {
	sb   strings.Builder
	args []interface{}
}

func (b *exprBuf) lit(s string) { b.sb.WriteString(s) }

func (b *exprBuf) param(v interface{}) {
	b.args = append(b.args, v)
	b.sb.WriteByte('?')
}

func (b *exprBuf) String() string { return b.sb.String() }

// placeholders renders a variadic argument list as "?, ?, ?" placeholders,
// used when emitting a function call.
func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Compile lowers a resolved AST statement. Plain SQL and MML bookkeeping
// statements (CREATE/DROP TABLE, BEGIN/COMMIT/ROLLBACK, CREATE/ALTER/DROP
// POPULATION|GENERATOR, INITIALIZE/ANALYZE/DROP MODELS) are not compiled
// here: the executor handles those directly against the catalog, since they
// carry no SQL-executable payload of their own. Compile only accepts the
// four BQL query forms and plain SELECT.
func Compile(stmt ast.Statement, scope *Scope) (*Plan, error) {
	switch n := stmt.(type) {
	case *ast.SelectStmt:
		return compilePlainSelect(n)
	case *ast.EstimateStmt:
		return compileEstimate(n, scope)
	case *ast.SimulateStmt:
		return compileSimulate(n, scope)
	case *ast.InferStmt:
		return compileInfer(n, scope)
	case *ast.InferExplicitStmt:
		return compileInferExplicit(n, scope)
	default:
		return nil, dberr.Internalf("compiler: unsupported statement type %T", stmt)
	}
}

// compilePlainSelect renders a SQL-only SELECT unchanged in meaning
// (spec.md §8 property 2): no BQL operator node can appear here because the
// parser only produces them inside Estimate/Simulate/Infer forms.
func compilePlainSelect(n *ast.SelectStmt) (*Plan, error) {
	var b exprBuf
	if err := writeSelectStmt(&b, n); err != nil {
		return nil, err
	}
	return &Plan{SQL: b.String(), Args: b.args}, nil
}

func quoteName(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func fmtIdentList(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = quoteName(n)
	}
	return strings.Join(out, ", ")
}
