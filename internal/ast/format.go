package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders a Statement back to BQL/SQL source text. It is the
// pretty-printer spec.md §8 property 1 requires: lex(P) |> parse |> Format
// must be semantically equivalent to P for every valid phrase P, and for a
// phrase that is already pure SQL, property 2 additionally requires the
// compiler's emitted SQL to equal the input up to whitespace — Format is
// not itself that compiler output, but the two share every plain-SQL
// sub-renderer below so the two properties stay consistent with each other.
func Format(s Statement) string {
	var sb strings.Builder
	writeStmt(&sb, s)
	sb.WriteByte(';')
	return sb.String()
}

func writeStmt(sb *strings.Builder, s Statement) {
	switch n := s.(type) {
	case *BeginStmt:
		sb.WriteString("BEGIN")
	case *CommitStmt:
		sb.WriteString("COMMIT")
	case *RollbackStmt:
		sb.WriteString("ROLLBACK")
	case *EmptyStmt:
	case *CreateTableStmt:
		writeCreateTable(sb, n)
	case *DropTableStmt:
		sb.WriteString("DROP TABLE ")
		if n.IfExists {
			sb.WriteString("IF EXISTS ")
		}
		sb.WriteString(ident(n.Name))
	case *SelectStmt:
		writeSelect(sb, n)
	case *CreatePopulationStmt:
		writeCreatePopulation(sb, n)
	case *AlterPopulationStmt:
		writeAlterPopulation(sb, n)
	case *DropPopulationStmt:
		sb.WriteString("DROP POPULATION ")
		if n.IfExists {
			sb.WriteString("IF EXISTS ")
		}
		sb.WriteString(ident(n.Name))
	case *CreateGeneratorStmt:
		writeCreateGenerator(sb, n)
	case *AlterGeneratorStmt:
		sb.WriteString("ALTER GENERATOR ")
		sb.WriteString(ident(n.Name))
		sb.WriteString(" ")
		sb.WriteString(strings.Join(n.Actions, ", "))
	case *DropGeneratorStmt:
		sb.WriteString("DROP GENERATOR ")
		if n.IfExists {
			sb.WriteString("IF EXISTS ")
		}
		sb.WriteString(ident(n.Name))
	case *InitializeModelsStmt:
		fmt.Fprintf(sb, "INITIALIZE %d MODELS ", n.N)
		if n.IfNotExists {
			sb.WriteString("IF NOT EXISTS ")
		}
		sb.WriteString("FOR ")
		sb.WriteString(ident(n.Generator))
	case *AnalyzeStmt:
		writeAnalyze(sb, n)
	case *DropModelsStmt:
		sb.WriteString("DROP MODELS ")
		writeModelSpec(sb, n.Models)
		sb.WriteString(" FROM ")
		sb.WriteString(ident(n.Generator))
	case *EstimateStmt:
		writeEstimate(sb, n)
	case *SimulateStmt:
		writeSimulate(sb, n)
	case *InferStmt:
		writeInfer(sb, n)
	case *InferExplicitStmt:
		writeInferExplicit(sb, n)
	default:
		sb.WriteString(fmt.Sprintf("<unknown statement %T>", s))
	}
}

func ident(name string) string {
	if name == "" {
		return name
	}
	needsQuote := false
	for i, r := range name {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9') {
			continue
		}
		needsQuote = true
		break
	}
	if !needsQuote {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func writeCreateTable(sb *strings.Builder, n *CreateTableStmt) {
	sb.WriteString("CREATE TABLE ")
	if n.IfNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(ident(n.Name))
	sb.WriteString(" (")
	for i, c := range n.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(ident(c.Name))
		sb.WriteByte(' ')
		sb.WriteString(c.Type)
		if c.Rest != "" {
			sb.WriteByte(' ')
			sb.WriteString(c.Rest)
		}
	}
	sb.WriteString(")")
}

func writeSelect(sb *strings.Builder, n *SelectStmt) {
	sb.WriteString("SELECT ")
	if n.Distinct {
		sb.WriteString("DISTINCT ")
	}
	writeSelectItems(sb, n.Columns)
	if len(n.From) > 0 {
		sb.WriteString(" FROM ")
		for i, t := range n.From {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeTableExpr(sb, t)
		}
	}
	writeTailClauses(sb, n.Where, n.GroupBy, n.Having, n.OrderBy, n.Limit, n.Offset)
}

func writeSelectItems(sb *strings.Builder, items []SelectItem) {
	for i, it := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(WriteExpr(it.Expr))
		if it.Alias != "" {
			sb.WriteString(" AS ")
			sb.WriteString(ident(it.Alias))
		}
	}
}

func writeTailClauses(sb *strings.Builder, where Expr, groupBy []Expr, having Expr, orderBy []OrderItem, limit, offset Expr) {
	if where != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(WriteExpr(where))
	}
	if len(groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		for i, e := range groupBy {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(WriteExpr(e))
		}
	}
	if having != nil {
		sb.WriteString(" HAVING ")
		sb.WriteString(WriteExpr(having))
	}
	if len(orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, o := range orderBy {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(WriteExpr(o.Expr))
			if o.Desc {
				sb.WriteString(" DESC")
			}
		}
	}
	if limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(WriteExpr(limit))
	}
	if offset != nil {
		sb.WriteString(" OFFSET ")
		sb.WriteString(WriteExpr(offset))
	}
}

func writeTableExpr(sb *strings.Builder, t TableExpr) {
	switch n := t.(type) {
	case *TableName:
		sb.WriteString(ident(n.Name))
		if n.Alias != "" {
			sb.WriteString(" AS ")
			sb.WriteString(ident(n.Alias))
		}
	case *SubqueryTable:
		sb.WriteString("(")
		writeSelect(sb, n.Select)
		sb.WriteString(")")
		if n.Alias != "" {
			sb.WriteString(" AS ")
			sb.WriteString(ident(n.Alias))
		}
	case *JoinExpr:
		writeTableExpr(sb, n.Left)
		sb.WriteByte(' ')
		if n.Kind != "" {
			sb.WriteString(n.Kind)
			sb.WriteByte(' ')
		}
		sb.WriteString("JOIN ")
		writeTableExpr(sb, n.Right)
		if n.On != nil {
			sb.WriteString(" ON ")
			sb.WriteString(WriteExpr(n.On))
		}
	}
}

func writeModelSpec(sb *strings.Builder, m *ModelSpec) {
	if m == nil || m.Default {
		return
	}
	sb.WriteString("MODEL")
	if m.RangeLo != nil {
		sb.WriteByte('S')
	}
	sb.WriteByte(' ')
	switch {
	case m.Single != nil:
		sb.WriteString(strconv.Itoa(*m.Single))
	case m.RangeLo != nil:
		fmt.Fprintf(sb, "%d-%d", *m.RangeLo, *m.RangeHi)
	}
}

func writeGivenClause(sb *strings.Builder, given []GivenConstraint) {
	if len(given) == 0 {
		return
	}
	sb.WriteString(" GIVEN (")
	for i, g := range given {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(WriteExpr(g.Variable))
		sb.WriteString(" = ")
		sb.WriteString(WriteExpr(g.Value))
	}
	sb.WriteString(")")
}

func writeCreatePopulation(sb *strings.Builder, n *CreatePopulationStmt) {
	sb.WriteString("CREATE POPULATION ")
	if n.IfNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(ident(n.Name))
	sb.WriteString(" FOR ")
	sb.WriteString(ident(n.Table))
	sb.WriteString(" WITH SCHEMA (")
	for i, item := range n.Schema {
		if i > 0 {
			sb.WriteString(", ")
		}
		switch {
		case item.GuessAll:
			sb.WriteString("GUESS STATTYPES FOR (*)")
		case len(item.GuessFor) > 0:
			sb.WriteString("GUESS STATTYPES FOR (")
			sb.WriteString(strings.Join(quoteAll(item.GuessFor), ", "))
			sb.WriteString(")")
		case item.Ignore:
			sb.WriteString("IGNORE ")
			sb.WriteString(strings.Join(quoteAll(item.Columns), ", "))
		default:
			sb.WriteString("MODEL ")
			sb.WriteString(strings.Join(quoteAll(item.Columns), ", "))
			sb.WriteString(" AS ")
			if item.Latent {
				sb.WriteString("LATENT ")
			}
			sb.WriteString(item.Stattype)
		}
	}
	sb.WriteString(")")
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = ident(n)
	}
	return out
}

func writeAlterPopulation(sb *strings.Builder, n *AlterPopulationStmt) {
	sb.WriteString("ALTER POPULATION ")
	sb.WriteString(ident(n.Name))
	sb.WriteByte(' ')
	for i, a := range n.Actions {
		if i > 0 {
			sb.WriteString(", ")
		}
		switch a.Kind {
		case "add_variable":
			sb.WriteString("ADD VARIABLE ")
			sb.WriteString(ident(a.Column))
			sb.WriteString(" AS ")
			sb.WriteString(a.Stattype)
		case "drop_variable":
			sb.WriteString("DROP VARIABLE ")
			sb.WriteString(ident(a.Column))
		case "rename_variable":
			sb.WriteString("RENAME VARIABLE ")
			sb.WriteString(ident(a.Column))
			sb.WriteString(" TO ")
			sb.WriteString(ident(a.NewName))
		case "set_stattype":
			sb.WriteString("SET STATTYPES OF ")
			sb.WriteString(ident(a.Column))
			sb.WriteString(" TO ")
			sb.WriteString(a.Stattype)
		}
	}
}

func writeCreateGenerator(sb *strings.Builder, n *CreateGeneratorStmt) {
	sb.WriteString("CREATE GENERATOR ")
	if n.IfNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(ident(n.Name))
	sb.WriteString(" FOR ")
	sb.WriteString(ident(n.Population))
	sb.WriteString(" USING ")
	sb.WriteString(n.Backend)
	sb.WriteString("(")
	sb.WriteString(n.Schema)
	sb.WriteString(")")
}

func writeAnalyze(sb *strings.Builder, n *AnalyzeStmt) {
	sb.WriteString("ANALYZE ")
	sb.WriteString(ident(n.Generator))
	if n.Models != nil && !n.Models.Default {
		sb.WriteByte(' ')
		writeModelSpec(sb, n.Models)
	}
	sb.WriteString(" FOR ")
	writeBudget(sb, n.Budget)
	if n.Checkpoint != nil {
		sb.WriteString(" CHECKPOINT ")
		writeBudget(sb, *n.Checkpoint)
	}
	if n.Program != "" {
		sb.WriteByte(' ')
		sb.WriteString(n.Program)
	}
	if n.Wait {
		sb.WriteString(" WAIT")
	}
}

func writeBudget(sb *strings.Builder, b AnalyzeBudget) {
	sb.WriteString(WriteExpr(b.Value))
	sb.WriteByte(' ')
	sb.WriteString(strings.ToUpper(b.Unit))
}

func writeEstimate(sb *strings.Builder, n *EstimateStmt) {
	sb.WriteString("ESTIMATE ")
	writeSelectItems(sb, n.Columns)
	sb.WriteString(" FROM ")
	switch n.Source.Kind {
	case SrcPopulation:
		sb.WriteString(ident(n.Source.Population))
	case SrcPairwise:
		sb.WriteString("PAIRWISE ")
		sb.WriteString(ident(n.Source.Population))
	case SrcVariablesOf:
		sb.WriteString("VARIABLES OF ")
		sb.WriteString(ident(n.Source.Population))
	case SrcPairwiseVariablesOf:
		sb.WriteString("PAIRWISE VARIABLES OF ")
		sb.WriteString(ident(n.Source.Population))
	}
	if n.ModeledBy != "" {
		sb.WriteString(" MODELED BY ")
		sb.WriteString(ident(n.ModeledBy))
	}
	if n.UsingModels != nil && !n.UsingModels.Default {
		sb.WriteString(" USING ")
		writeModelSpec(sb, n.UsingModels)
	}
	if len(n.ForSubcols) > 0 {
		sb.WriteString(" FOR (")
		for i, e := range n.ForSubcols {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(WriteExpr(e))
		}
		sb.WriteString(")")
	}
	writeTailClauses(sb, n.Where, n.GroupBy, n.Having, n.OrderBy, n.Limit, n.Offset)
}

func writeSimulate(sb *strings.Builder, n *SimulateStmt) {
	sb.WriteString("SIMULATE ")
	sb.WriteString(strings.Join(quoteAll(n.Columns), ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(ident(n.Population))
	if n.ModeledBy != "" {
		sb.WriteString(" MODELED BY ")
		sb.WriteString(ident(n.ModeledBy))
	}
	if n.UsingModels != nil && !n.UsingModels.Default {
		sb.WriteString(" USING ")
		writeModelSpec(sb, n.UsingModels)
	}
	writeGivenClause(sb, n.Given)
	if n.Limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(WriteExpr(n.Limit))
	}
}

func writeInfer(sb *strings.Builder, n *InferStmt) {
	sb.WriteString("INFER ")
	sb.WriteString(strings.Join(quoteAll(n.Columns), ", "))
	if n.ConfidenceThreshold != nil {
		sb.WriteString(" WITH CONFIDENCE ")
		sb.WriteString(WriteExpr(n.ConfidenceThreshold))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(ident(n.Population))
	if n.ModeledBy != "" {
		sb.WriteString(" MODELED BY ")
		sb.WriteString(ident(n.ModeledBy))
	}
	if n.UsingModels != nil && !n.UsingModels.Default {
		sb.WriteString(" USING ")
		writeModelSpec(sb, n.UsingModels)
	}
	writeTailClauses(sb, n.Where, nil, nil, n.OrderBy, n.Limit, n.Offset)
}

func writeInferExplicit(sb *strings.Builder, n *InferExplicitStmt) {
	sb.WriteString("INFER EXPLICIT ")
	writeSelectItems(sb, n.Columns)
	sb.WriteString(" FROM ")
	sb.WriteString(ident(n.Population))
	if n.ModeledBy != "" {
		sb.WriteString(" MODELED BY ")
		sb.WriteString(ident(n.ModeledBy))
	}
	if n.UsingModels != nil && !n.UsingModels.Default {
		sb.WriteString(" USING ")
		writeModelSpec(sb, n.UsingModels)
	}
	writeTailClauses(sb, n.Where, n.GroupBy, n.Having, n.OrderBy, n.Limit, n.Offset)
}

// WriteExpr renders an expression back to source text.
func WriteExpr(e Expr) string {
	var sb strings.Builder
	writeExpr(&sb, e)
	return sb.String()
}

func writeExpr(sb *strings.Builder, e Expr) {
	switch n := e.(type) {
	case nil:
		return
	case *Ident:
		sb.WriteString(ident(n.Name))
	case *QualifiedName:
		sb.WriteString(strings.Join(quoteAll(n.Parts), "."))
	case *IntegerLit:
		sb.WriteString(n.Text)
	case *FloatLit:
		sb.WriteString(n.Text)
	case *StringLit:
		sb.WriteByte('\'')
		sb.WriteString(strings.ReplaceAll(n.Value, "'", "''"))
		sb.WriteByte('\'')
	case *NullLit:
		sb.WriteString("NULL")
	case *BoolLit:
		if n.Value {
			sb.WriteString("TRUE")
		} else {
			sb.WriteString("FALSE")
		}
	case *Param:
		switch n.Kind {
		case ParamPositional:
			sb.WriteString("?")
		case ParamIndexed:
			fmt.Fprintf(sb, "?%d", n.Index)
		case ParamNamed:
			sb.WriteByte(n.Sigil)
			sb.WriteString(n.Name)
		}
	case *StarExpr:
		if n.Qualifier != "" {
			sb.WriteString(ident(n.Qualifier))
			sb.WriteByte('.')
		}
		sb.WriteByte('*')
	case *UnaryExpr:
		sb.WriteString(n.Op)
		sb.WriteByte(' ')
		writeExpr(sb, n.X)
	case *BinaryExpr:
		writeExpr(sb, n.X)
		sb.WriteByte(' ')
		sb.WriteString(n.Op)
		sb.WriteByte(' ')
		writeExpr(sb, n.Y)
	case *BetweenExpr:
		writeExpr(sb, n.X)
		if n.Not {
			sb.WriteString(" NOT")
		}
		sb.WriteString(" BETWEEN ")
		writeExpr(sb, n.Lo)
		sb.WriteString(" AND ")
		writeExpr(sb, n.Hi)
	case *InExpr:
		writeExpr(sb, n.X)
		if n.Not {
			sb.WriteString(" NOT")
		}
		sb.WriteString(" IN (")
		if n.Subquery != nil {
			writeSelect(sb, n.Subquery)
		} else {
			for i, it := range n.List {
				if i > 0 {
					sb.WriteString(", ")
				}
				writeExpr(sb, it)
			}
		}
		sb.WriteString(")")
	case *IsNullExpr:
		writeExpr(sb, n.X)
		sb.WriteString(" IS ")
		if n.Not {
			sb.WriteString("NOT ")
		}
		sb.WriteString("NULL")
	case *LikeExpr:
		writeExpr(sb, n.X)
		if n.Not {
			sb.WriteString(" NOT")
		}
		sb.WriteString(" LIKE ")
		writeExpr(sb, n.Pattern)
	case *CaseExpr:
		sb.WriteString("CASE ")
		if n.Operand != nil {
			writeExpr(sb, n.Operand)
			sb.WriteByte(' ')
		}
		for _, w := range n.Whens {
			sb.WriteString("WHEN ")
			writeExpr(sb, w.Cond)
			sb.WriteString(" THEN ")
			writeExpr(sb, w.Then)
			sb.WriteByte(' ')
		}
		if n.Else != nil {
			sb.WriteString("ELSE ")
			writeExpr(sb, n.Else)
			sb.WriteByte(' ')
		}
		sb.WriteString("END")
	case *FuncCall:
		sb.WriteString(n.Name)
		sb.WriteByte('(')
		if n.Distinct {
			sb.WriteString("DISTINCT ")
		}
		if n.Star {
			sb.WriteByte('*')
		} else {
			for i, a := range n.Args {
				if i > 0 {
					sb.WriteString(", ")
				}
				writeExpr(sb, a)
			}
		}
		sb.WriteByte(')')
	case *CollateExpr:
		writeExpr(sb, n.X)
		sb.WriteString(" COLLATE ")
		sb.WriteString(n.Collation)
	case *CastExpr:
		sb.WriteString("CAST(")
		writeExpr(sb, n.X)
		sb.WriteString(" AS ")
		sb.WriteString(n.Type)
		sb.WriteString(")")
	case *ParenExpr:
		sb.WriteByte('(')
		writeExpr(sb, n.X)
		sb.WriteByte(')')
	case *ExprList:
		sb.WriteByte('(')
		for i, it := range n.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeExpr(sb, it)
		}
		sb.WriteByte(')')
	case *Subquery:
		sb.WriteByte('(')
		writeSelect(sb, n.Select)
		sb.WriteByte(')')
	case *PredProb:
		sb.WriteString("PREDICTIVE PROBABILITY OF ")
		writeExpr(sb, n.Column)
		writeGivenClause(sb, n.Given)
	case *Sim:
		sb.WriteString("SIMILARITY TO (")
		writeExpr(sb, n.Target)
		sb.WriteString(")")
		if n.ContextColumn != nil {
			sb.WriteString(" IN THE CONTEXT OF ")
			writeExpr(sb, n.ContextColumn)
		}
	case *PredictConf:
		sb.WriteString("PREDICT ")
		writeExpr(sb, n.Column)
		sb.WriteString(" CONFIDENCE ")
		sb.WriteString(ident(n.ConfidenceAlias))
	case *DepProb:
		sb.WriteString("DEPENDENCE PROBABILITY")
		writeOfWith(sb, n.Col1, n.Col2)
	case *MutInf:
		sb.WriteString("MUTUAL INFORMATION")
		writeOfWith(sb, n.Col1, n.Col2)
		writeGivenClause(sb, n.Given)
		if n.NSamples != nil {
			sb.WriteString(" USING ")
			writeExpr(sb, n.NSamples)
			sb.WriteString(" SAMPLES")
		}
	case *Correl:
		sb.WriteString("CORRELATION")
		if n.PValue {
			sb.WriteString(" PVALUE")
		}
		writeOfWith(sb, n.Col1, n.Col2)
	case *ProbDensity:
		sb.WriteString("PROBABILITY DENSITY OF ")
		switch {
		case n.Value != nil:
			sb.WriteString("VALUE ")
			writeExpr(sb, n.Value)
		case len(n.Targets) == 1:
			writeExpr(sb, n.Targets[0].Column)
			sb.WriteString(" = ")
			writeExpr(sb, n.Targets[0].Value)
		default:
			sb.WriteByte('(')
			for i, t := range n.Targets {
				if i > 0 {
					sb.WriteString(", ")
				}
				writeExpr(sb, t.Column)
				sb.WriteString(" = ")
				writeExpr(sb, t.Value)
			}
			sb.WriteByte(')')
		}
		writeGivenClause(sb, n.Given)
	default:
		sb.WriteString(fmt.Sprintf("<unknown expr %T>", e))
	}
}

func writeOfWith(sb *strings.Builder, col1, col2 Expr) {
	if col1 != nil {
		sb.WriteString(" OF ")
		writeExpr(sb, col1)
	}
	if col2 != nil {
		sb.WriteString(" WITH ")
		writeExpr(sb, col2)
	}
}
