package parser

import (
	"github.com/probcomp/bayesdb/internal/ast"
	"github.com/probcomp/bayesdb/internal/lexer"
)

func (p *Parser) parseSelect() (ast.Statement, error) {
	return p.parseSelectBody()
}

// parseSelectBody parses plain SQL SELECT, the base every BQL query form
// extends (spec.md §1).
func (p *Parser) parseSelectBody() (*ast.SelectStmt, error) {
	if _, err := p.expect(lexer.K_SELECT); err != nil {
		return nil, err
	}
	st := &ast.SelectStmt{}
	if p.tok.Kind == lexer.K_DISTINCT {
		st.Distinct = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else if p.tok.Kind == lexer.K_ALL {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	items, err := p.parseSelectItems()
	if err != nil {
		return nil, err
	}
	st.Columns = items
	if p.tok.Kind == lexer.K_FROM {
		if err := p.advance(); err != nil {
			return nil, err
		}
		from, err := p.parseFromList()
		if err != nil {
			return nil, err
		}
		st.From = from
	}
	if err := p.parseTailClauses(&st.Where, &st.GroupBy, &st.Having, &st.OrderBy, &st.Limit, &st.Offset); err != nil {
		return nil, err
	}
	return st, nil
}

func (p *Parser) parseSelectItems() ([]ast.SelectItem, error) {
	var items []ast.SelectItem
	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.tok.Kind == lexer.T_COMMA {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return items, nil
}

func (p *Parser) parseSelectItem() (ast.SelectItem, error) {
	e, err := p.parseExpr()
	if err != nil {
		return ast.SelectItem{}, err
	}
	alias := ""
	if p.tok.Kind == lexer.K_AS {
		if err := p.advance(); err != nil {
			return ast.SelectItem{}, err
		}
		alias, err = p.expectName()
		if err != nil {
			return ast.SelectItem{}, err
		}
	} else if p.tok.Kind == lexer.L_NAME {
		alias, err = p.expectName()
		if err != nil {
			return ast.SelectItem{}, err
		}
	}
	// "PREDICT c AS n CONFIDENCE cname": the CONFIDENCE clause may also
	// follow the alias.
	if pc, ok := e.(*ast.PredictConf); ok && pc.ConfidenceAlias == "" && p.tok.Kind == lexer.K_CONFIDENCE {
		if err := p.advance(); err != nil {
			return ast.SelectItem{}, err
		}
		name, err := p.expectName()
		if err != nil {
			return ast.SelectItem{}, err
		}
		pc.ConfidenceAlias = name
	}
	return ast.SelectItem{Expr: e, Alias: alias}, nil
}

func (p *Parser) parseFromList() ([]ast.TableExpr, error) {
	var out []ast.TableExpr
	for {
		t, err := p.parseTableExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		if p.tok.Kind == lexer.T_COMMA {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return out, nil
}

func (p *Parser) parseTableExpr() (ast.TableExpr, error) {
	left, err := p.parseTablePrimary()
	if err != nil {
		return nil, err
	}
	for {
		kind := ""
		switch p.tok.Kind {
		case lexer.K_JOIN:
			kind = ""
		case lexer.K_INNER:
			kind = "INNER"
		case lexer.K_LEFT:
			kind = "LEFT"
		case lexer.K_RIGHT:
			kind = "RIGHT"
		case lexer.K_FULL:
			kind = "FULL"
		case lexer.K_CROSS:
			kind = "CROSS"
		default:
			return left, nil
		}
		if kind != "" {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.Kind == lexer.K_OUTER {
				if err := p.advance(); err != nil {
					return nil, err
				}
			}
		}
		if _, err := p.expect(lexer.K_JOIN); err != nil {
			return nil, err
		}
		right, err := p.parseTablePrimary()
		if err != nil {
			return nil, err
		}
		var on ast.Expr
		if p.tok.Kind == lexer.K_ON {
			if err := p.advance(); err != nil {
				return nil, err
			}
			on, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		left = &ast.JoinExpr{Left: left, Right: right, Kind: kind, On: on}
	}
}

func (p *Parser) parseTablePrimary() (ast.TableExpr, error) {
	if p.tok.Kind == lexer.T_LPAREN {
		if err := p.advance(); err != nil {
			return nil, err
		}
		sel, err := p.parseSelectBody()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.T_RPAREN); err != nil {
			return nil, err
		}
		alias := p.parseOptionalAlias()
		return &ast.SubqueryTable{Select: sel, Alias: alias}, nil
	}
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	alias := p.parseOptionalAlias()
	return &ast.TableName{Name: name, Alias: alias}, nil
}

// parseOptionalAlias returns "" on error too (alias is always optional);
// callers that need the name already consumed can simply ignore a parse
// miss here since it is not followed by required tokens.
func (p *Parser) parseOptionalAlias() string {
	if p.tok.Kind == lexer.K_AS {
		_ = p.advance()
		n, err := p.expectName()
		if err != nil {
			return ""
		}
		return n
	}
	if p.tok.Kind == lexer.L_NAME {
		n, err := p.expectName()
		if err != nil {
			return ""
		}
		return n
	}
	return ""
}

// parseTailClauses parses the WHERE/GROUP BY/HAVING/ORDER BY/LIMIT/OFFSET
// suffix shared by SELECT, ESTIMATE, implicit INFER, and INFER EXPLICIT
// (spec.md §4.2, §4.4).
func (p *Parser) parseTailClauses(where *ast.Expr, groupBy *[]ast.Expr, having *ast.Expr, orderBy *[]ast.OrderItem, limit, offset *ast.Expr) error {
	if p.tok.Kind == lexer.K_WHERE {
		if err := p.advance(); err != nil {
			return err
		}
		w, err := p.parseExpr()
		if err != nil {
			return err
		}
		*where = w
	}
	if p.tok.Kind == lexer.K_GROUP {
		if err := p.advance(); err != nil {
			return err
		}
		if _, err := p.expect(lexer.K_BY); err != nil {
			return err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return err
			}
			*groupBy = append(*groupBy, e)
			if p.tok.Kind == lexer.T_COMMA {
				if err := p.advance(); err != nil {
					return err
				}
				continue
			}
			break
		}
		if p.tok.Kind == lexer.K_HAVING {
			if err := p.advance(); err != nil {
				return err
			}
			h, err := p.parseExpr()
			if err != nil {
				return err
			}
			*having = h
		}
	}
	if p.tok.Kind == lexer.K_ORDER {
		if err := p.advance(); err != nil {
			return err
		}
		if _, err := p.expect(lexer.K_BY); err != nil {
			return err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return err
			}
			desc := false
			if p.tok.Kind == lexer.K_ASC {
				if err := p.advance(); err != nil {
					return err
				}
			} else if p.tok.Kind == lexer.K_DESC {
				desc = true
				if err := p.advance(); err != nil {
					return err
				}
			}
			*orderBy = append(*orderBy, ast.OrderItem{Expr: e, Desc: desc})
			if p.tok.Kind == lexer.T_COMMA {
				if err := p.advance(); err != nil {
					return err
				}
				continue
			}
			break
		}
	}
	if p.tok.Kind == lexer.K_LIMIT {
		if err := p.advance(); err != nil {
			return err
		}
		l, err := p.parseExpr()
		if err != nil {
			return err
		}
		*limit = l
		if p.tok.Kind == lexer.K_OFFSET {
			if err := p.advance(); err != nil {
				return err
			}
			o, err := p.parseExpr()
			if err != nil {
				return err
			}
			*offset = o
		} else if p.tok.Kind == lexer.T_COMMA {
			if err := p.advance(); err != nil {
				return err
			}
			o, err := p.parseExpr()
			if err != nil {
				return err
			}
			*offset = *limit
			*limit = o
		}
	}
	return nil
}

// parseEstimateSource parses the four query-header contexts of spec.md
// §4.2: "FROM p", "FROM PAIRWISE p", "FROM VARIABLES OF p", and "FROM
// PAIRWISE VARIABLES OF p" — the grammar that fixes which BQL operator
// forms are legal in the surrounding projection/WHERE/ORDER BY.
func (p *Parser) parseEstimateSource() (ast.EstimateSource, error) {
	if _, err := p.expect(lexer.K_FROM); err != nil {
		return ast.EstimateSource{}, err
	}
	pairwise := false
	if p.tok.Kind == lexer.K_PAIRWISE {
		pairwise = true
		if err := p.advance(); err != nil {
			return ast.EstimateSource{}, err
		}
	}
	variablesOf := false
	if p.tok.Kind == lexer.K_VARIABLES {
		variablesOf = true
		if err := p.advance(); err != nil {
			return ast.EstimateSource{}, err
		}
		if _, err := p.expect(lexer.K_OF); err != nil {
			return ast.EstimateSource{}, err
		}
	}
	pop, err := p.expectName()
	if err != nil {
		return ast.EstimateSource{}, err
	}
	switch {
	case pairwise && variablesOf:
		return ast.EstimateSource{Kind: ast.SrcPairwiseVariablesOf, Population: pop}, nil
	case pairwise:
		return ast.EstimateSource{Kind: ast.SrcPairwise, Population: pop}, nil
	case variablesOf:
		return ast.EstimateSource{Kind: ast.SrcVariablesOf, Population: pop}, nil
	default:
		return ast.EstimateSource{Kind: ast.SrcPopulation, Population: pop}, nil
	}
}

// parseModeledByAndModels parses the optional "MODELED BY g" / "USING MODEL
// ..." suffix shared by ESTIMATE/INFER/SIMULATE headers (spec.md §4.3:
// defaulting to the population's unique generator when omitted).
func (p *Parser) parseModeledByAndModels() (string, *ast.ModelSpec, error) {
	modeledBy := ""
	if p.tok.Kind == lexer.K_MODELED {
		if err := p.advance(); err != nil {
			return "", nil, err
		}
		if _, err := p.expect(lexer.K_BY); err != nil {
			return "", nil, err
		}
		name, err := p.expectName()
		if err != nil {
			return "", nil, err
		}
		modeledBy = name
	}
	models, err := p.parseModelSpec()
	if err != nil {
		return "", nil, err
	}
	return modeledBy, models, nil
}

// parseEstimate parses "ESTIMATE items FROM source [MODELED BY g] [USING
// MODEL(S) ...] [FOR (subcols)] [WHERE ...] [...tail]" (spec.md §4.2, §4.4).
func (p *Parser) parseEstimate(start ast.Position) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	st := &ast.EstimateStmt{}
	items, err := p.parseSelectItems()
	if err != nil {
		return nil, err
	}
	st.Columns = items
	src, err := p.parseEstimateSource()
	if err != nil {
		return nil, err
	}
	st.Source = src
	modeledBy, models, err := p.parseModeledByAndModels()
	if err != nil {
		return nil, err
	}
	st.ModeledBy = modeledBy
	st.UsingModels = models
	if p.tok.Kind == lexer.K_FOR {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.T_LPAREN); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			st.ForSubcols = append(st.ForSubcols, e)
			if p.tok.Kind == lexer.T_COMMA {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
		if _, err := p.expect(lexer.T_RPAREN); err != nil {
			return nil, err
		}
	}
	if err := p.parseTailClauses(&st.Where, &st.GroupBy, &st.Having, &st.OrderBy, &st.Limit, &st.Offset); err != nil {
		return nil, err
	}
	return st, nil
}

// parseSimulate parses "SIMULATE c1, c2 FROM p [MODELED BY g] [USING
// MODEL(S) ...] GIVEN ... [LIMIT n]" (spec.md §4.4).
func (p *Parser) parseSimulate(start ast.Position) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	cols, err := p.parseNameList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.K_FROM); err != nil {
		return nil, err
	}
	pop, err := p.expectName()
	if err != nil {
		return nil, err
	}
	modeledBy, models, err := p.parseModeledByAndModels()
	if err != nil {
		return nil, err
	}
	given, err := p.parseGivenClause()
	if err != nil {
		return nil, err
	}
	st := &ast.SimulateStmt{Columns: cols, Population: pop, ModeledBy: modeledBy, UsingModels: models, Given: given}
	if p.tok.Kind == lexer.K_LIMIT {
		if err := p.advance(); err != nil {
			return nil, err
		}
		l, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		st.Limit = l
	}
	return st, nil
}

// parseInfer dispatches between implicit INFER ("INFER c1, c2 [WITH
// CONFIDENCE k] FROM p ...") and "INFER EXPLICIT ..." (spec.md §4.4).
func (p *Parser) parseInfer(start ast.Position) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Kind == lexer.K_EXPLICIT {
		return p.parseInferExplicit(start)
	}
	cols, err := p.parseNameList()
	if err != nil {
		return nil, err
	}
	st := &ast.InferStmt{Columns: cols}
	if p.tok.Kind == lexer.K_WITH {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.K_CONFIDENCE); err != nil {
			return nil, err
		}
		c, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		st.ConfidenceThreshold = c
	}
	if _, err := p.expect(lexer.K_FROM); err != nil {
		return nil, err
	}
	pop, err := p.expectName()
	if err != nil {
		return nil, err
	}
	st.Population = pop
	modeledBy, models, err := p.parseModeledByAndModels()
	if err != nil {
		return nil, err
	}
	st.ModeledBy = modeledBy
	st.UsingModels = models
	if err := p.parseWhereOrderLimit(&st.Where, &st.OrderBy, &st.Limit, &st.Offset); err != nil {
		return nil, err
	}
	return st, nil
}

// parseWhereOrderLimit parses the WHERE/ORDER BY/LIMIT/OFFSET suffix of
// implicit INFER, which (unlike SELECT/ESTIMATE/INFER EXPLICIT) has no
// GROUP BY/HAVING clause in its grammar (spec.md §4.4).
func (p *Parser) parseWhereOrderLimit(where *ast.Expr, orderBy *[]ast.OrderItem, limit, offset *ast.Expr) error {
	var groupBy []ast.Expr
	var having ast.Expr
	return p.parseTailClauses(where, &groupBy, &having, orderBy, limit, offset)
}

// parseInferExplicit parses "INFER EXPLICIT items FROM p ..." which behaves
// like a SELECT over the population's base table with PREDICT ...
// CONFIDENCE ... projections available (spec.md §4.4).
func (p *Parser) parseInferExplicit(start ast.Position) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	items, err := p.parseSelectItems()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.K_FROM); err != nil {
		return nil, err
	}
	pop, err := p.expectName()
	if err != nil {
		return nil, err
	}
	modeledBy, models, err := p.parseModeledByAndModels()
	if err != nil {
		return nil, err
	}
	st := &ast.InferExplicitStmt{Columns: items, Population: pop, ModeledBy: modeledBy, UsingModels: models}
	if err := p.parseTailClauses(&st.Where, &st.GroupBy, &st.Having, &st.OrderBy, &st.Limit, &st.Offset); err != nil {
		return nil, err
	}
	return st, nil
}
