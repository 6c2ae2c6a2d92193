package parser

import (
	"github.com/probcomp/bayesdb/internal/ast"
	"github.com/probcomp/bayesdb/internal/dberr"
	"github.com/probcomp/bayesdb/internal/lexer"
)

// parsePrimary handles literals, identifiers, parenthesized expressions and
// subqueries, function calls, CASE, CAST, and every BQL-only operator form
// named in spec.md §4.2 (PREDICTIVE PROBABILITY, SIMILARITY, PREDICT ...
// CONFIDENCE, DEPENDENCE PROBABILITY, MUTUAL INFORMATION, CORRELATION
// [PVALUE], PROBABILITY DENSITY OF). The caller's query-header context
// (row / pairwise / variables-of / pairwise-variables-of) decides which of
// these are actually legal; parsePrimary builds all of them and leaves that
// check to the compiler (spec.md §4.2's "WrongContext" is a semantic error,
// not a syntax error).
func (p *Parser) parsePrimary() (ast.Expr, error) {
	start := pos(p.tok)
	switch p.tok.Kind {
	case lexer.T_LPAREN:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind == lexer.K_SELECT {
			sel, err := p.parseSelectBody()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.T_RPAREN); err != nil {
				return nil, err
			}
			return &ast.Subquery{Select: sel}, nil
		}
		first, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.tok.Kind == lexer.T_COMMA {
			items := []ast.Expr{first}
			for p.tok.Kind == lexer.T_COMMA {
				if err := p.advance(); err != nil {
					return nil, err
				}
				e, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				items = append(items, e)
			}
			if _, err := p.expect(lexer.T_RPAREN); err != nil {
				return nil, err
			}
			return &ast.ExprList{Items: items}, nil
		}
		if _, err := p.expect(lexer.T_RPAREN); err != nil {
			return nil, err
		}
		return &ast.ParenExpr{X: first}, nil

	case lexer.L_INTEGER:
		t := p.tok
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.IntegerLit{Text: t.Text, Value: t.IntVal}, nil

	case lexer.L_FLOAT:
		t := p.tok
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.FloatLit{Text: t.Text, Value: t.FloatVal}, nil

	case lexer.L_STRING:
		t := p.tok
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.StringLit{Value: t.Text}, nil

	case lexer.K_NULL:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.NullLit{}, nil

	case lexer.K_TRUE, lexer.K_FALSE:
		v := p.tok.Kind == lexer.K_TRUE
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.BoolLit{Value: v}, nil

	case lexer.L_NUMPAR:
		t := p.tok
		if err := p.advance(); err != nil {
			return nil, err
		}
		if t.Text == "?" {
			return &ast.Param{Kind: ast.ParamPositional, Index: t.ParamIndex}, nil
		}
		return &ast.Param{Kind: ast.ParamIndexed, Index: t.ParamIndex}, nil

	case lexer.L_NAMPAR:
		t := p.tok
		if err := p.advance(); err != nil {
			return nil, err
		}
		sigil := byte(':')
		if len(t.Text) > 0 {
			sigil = t.Text[0]
		}
		return &ast.Param{Kind: ast.ParamNamed, Name: t.ParamName, Sigil: sigil}, nil

	case lexer.T_STAR:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.StarExpr{}, nil

	case lexer.K_CASE:
		return p.parseCase(start)

	case lexer.K_CAST:
		return p.parseCast(start)

	case lexer.K_PREDICTIVE:
		return p.parsePredProb(start)

	case lexer.K_SIMILARITY:
		return p.parseSimilarity(start)

	case lexer.K_PREDICT:
		return p.parsePredictConf(start)

	case lexer.K_DEPENDENCE:
		return p.parseDepProb(start)

	case lexer.K_MUTUAL:
		return p.parseMutInf(start)

	case lexer.K_CORRELATION:
		return p.parseCorrel(start)

	case lexer.K_PROBABILITY:
		return p.parseProbDensity(start)

	case lexer.L_NAME:
		return p.parseNameOrCall(start)

	default:
		if p.tok.Text != "" {
			return p.parseNameOrCall(start)
		}
		return nil, dberr.Parse(start, "an expression", describe(p.tok))
	}
}

func (p *Parser) parseNameOrCall(start ast.Position) (ast.Expr, error) {
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind == lexer.T_LPAREN {
		if err := p.advance(); err != nil {
			return nil, err
		}
		call := &ast.FuncCall{Name: name}
		if p.tok.Kind == lexer.T_STAR {
			call.Star = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else if p.tok.Kind != lexer.T_RPAREN {
			if p.tok.Kind == lexer.K_DISTINCT {
				call.Distinct = true
				if err := p.advance(); err != nil {
					return nil, err
				}
			}
			for {
				arg, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				call.Args = append(call.Args, arg)
				if p.tok.Kind == lexer.T_COMMA {
					if err := p.advance(); err != nil {
						return nil, err
					}
					continue
				}
				break
			}
		}
		if _, err := p.expect(lexer.T_RPAREN); err != nil {
			return nil, err
		}
		return call, nil
	}
	parts := []string{name}
	for p.tok.Kind == lexer.T_DOT {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind == lexer.T_STAR {
			if err := p.advance(); err != nil {
				return nil, err
			}
			return &ast.StarExpr{Qualifier: joinParts(parts)}, nil
		}
		n2, err := p.expectName()
		if err != nil {
			return nil, err
		}
		parts = append(parts, n2)
	}
	if len(parts) == 1 {
		return &ast.Ident{Name: parts[0]}, nil
	}
	return &ast.QualifiedName{Parts: parts}, nil
}

func joinParts(parts []string) string {
	s := ""
	for i, x := range parts {
		if i > 0 {
			s += "."
		}
		s += x
	}
	return s
}

func (p *Parser) parseCase(start ast.Position) (ast.Expr, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	ce := &ast.CaseExpr{}
	if p.tok.Kind != lexer.K_WHEN {
		op, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Operand = op
	}
	for p.tok.Kind == lexer.K_WHEN {
		if err := p.advance(); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.K_THEN); err != nil {
			return nil, err
		}
		then, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Whens = append(ce.Whens, ast.WhenClause{Cond: cond, Then: then})
	}
	if p.tok.Kind == lexer.K_ELSE {
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Else = e
	}
	if _, err := p.expect(lexer.K_END); err != nil {
		return nil, err
	}
	return ce, nil
}

func (p *Parser) parseCast(start ast.Position) (ast.Expr, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.T_LPAREN); err != nil {
		return nil, err
	}
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.K_AS); err != nil {
		return nil, err
	}
	typ, err := p.parseTypeName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.T_RPAREN); err != nil {
		return nil, err
	}
	return &ast.CastExpr{X: x, Type: typ}, nil
}

func (p *Parser) parseTypeName() (string, error) {
	name, err := p.expectName()
	if err != nil {
		return "", err
	}
	if p.tok.Kind == lexer.T_LPAREN {
		name += "("
		if err := p.advance(); err != nil {
			return "", err
		}
		for p.tok.Kind != lexer.T_RPAREN {
			name += p.tok.Text
			if err := p.advance(); err != nil {
				return "", err
			}
			if p.tok.Kind == lexer.T_COMMA {
				name += ","
				if err := p.advance(); err != nil {
					return "", err
				}
			}
		}
		name += ")"
		if err := p.advance(); err != nil {
			return "", err
		}
	}
	return name, nil
}

// parseGivenClause parses "GIVEN v1 = e1, v2 = e2, ..." (spec.md §4.2).
func (p *Parser) parseGivenClause() ([]ast.GivenConstraint, error) {
	if p.tok.Kind != lexer.K_GIVEN {
		return nil, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	paren := false
	if p.tok.Kind == lexer.T_LPAREN {
		paren = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	var out []ast.GivenConstraint
	for {
		v, err := p.parseBitOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.T_EQ); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, ast.GivenConstraint{Variable: v, Value: val})
		if p.tok.Kind == lexer.T_COMMA {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if paren {
		if _, err := p.expect(lexer.T_RPAREN); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// parsePredProb parses "PREDICTIVE PROBABILITY OF c [GIVEN ...]".
func (p *Parser) parsePredProb(start ast.Position) (ast.Expr, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.K_PROBABILITY); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.K_OF); err != nil {
		return nil, err
	}
	col, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	given, err := p.parseGivenClause()
	if err != nil {
		return nil, err
	}
	return &ast.PredProb{Column: col, Given: given}, nil
}

// parseSimilarity parses "SIMILARITY TO (cond) [IN THE CONTEXT OF c]".
func (p *Parser) parseSimilarity(start ast.Position) (ast.Expr, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.K_TO); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.T_LPAREN); err != nil {
		return nil, err
	}
	target, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.T_RPAREN); err != nil {
		return nil, err
	}
	s := &ast.Sim{Target: target}
	if p.tok.Kind == lexer.K_IN {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.K_THE); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.K_CONTEXT); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.K_OF); err != nil {
			return nil, err
		}
		col, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		s.ContextColumn = col
	}
	return s, nil
}

// parsePredictConf parses "PREDICT c CONFIDENCE cname".
func (p *Parser) parsePredictConf(start ast.Position) (ast.Expr, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	col, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	pc := &ast.PredictConf{Column: col}
	if p.tok.Kind == lexer.K_CONFIDENCE {
		if err := p.advance(); err != nil {
			return nil, err
		}
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		pc.ConfidenceAlias = name
	}
	return pc, nil
}

// parseDepProb parses "DEPENDENCE PROBABILITY [[OF c1] WITH c2]".
func (p *Parser) parseDepProb(start ast.Position) (ast.Expr, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.K_PROBABILITY); err != nil {
		return nil, err
	}
	d := &ast.DepProb{}
	if p.tok.Kind == lexer.K_OF {
		if err := p.advance(); err != nil {
			return nil, err
		}
		c1, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		d.Col1 = c1
	}
	if p.tok.Kind == lexer.K_WITH {
		if err := p.advance(); err != nil {
			return nil, err
		}
		c2, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		d.Col2 = c2
	}
	return d, nil
}

// parseMutInf parses "MUTUAL INFORMATION [[OF c1] WITH c2] [GIVEN (...)]
// [USING n SAMPLES]".
func (p *Parser) parseMutInf(start ast.Position) (ast.Expr, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.K_INFORMATION); err != nil {
		return nil, err
	}
	m := &ast.MutInf{}
	if p.tok.Kind == lexer.K_OF {
		if err := p.advance(); err != nil {
			return nil, err
		}
		c1, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		m.Col1 = c1
	}
	if p.tok.Kind == lexer.K_WITH {
		if err := p.advance(); err != nil {
			return nil, err
		}
		c2, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		m.Col2 = c2
	}
	given, err := p.parseGivenClause()
	if err != nil {
		return nil, err
	}
	m.Given = given
	if p.tok.Kind == lexer.K_USING {
		if err := p.advance(); err != nil {
			return nil, err
		}
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.K_SAMPLES); err != nil {
			return nil, err
		}
		m.NSamples = n
	}
	return m, nil
}

// parseCorrel parses "CORRELATION [PVALUE] [[OF c1] WITH c2]".
func (p *Parser) parseCorrel(start ast.Position) (ast.Expr, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	c := &ast.Correl{}
	if p.tok.Kind == lexer.K_PVALUE {
		c.PValue = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.tok.Kind == lexer.K_OF {
		if err := p.advance(); err != nil {
			return nil, err
		}
		c1, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		c.Col1 = c1
	}
	if p.tok.Kind == lexer.K_WITH {
		if err := p.advance(); err != nil {
			return nil, err
		}
		c2, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		c.Col2 = c2
	}
	return c, nil
}

// parseProbDensity parses the three PROBABILITY DENSITY forms of spec.md
// §4.2: "OF c = v", "OF (c1=v1, ...)", and "OF VALUE v".
func (p *Parser) parseProbDensity(start ast.Position) (ast.Expr, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.K_DENSITY); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.K_OF); err != nil {
		return nil, err
	}
	pd := &ast.ProbDensity{}
	switch p.tok.Kind {
	case lexer.K_VALUE:
		if err := p.advance(); err != nil {
			return nil, err
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		pd.Value = v
	case lexer.T_LPAREN:
		if err := p.advance(); err != nil {
			return nil, err
		}
		for {
			col, err := p.parseBitOr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.T_EQ); err != nil {
				return nil, err
			}
			val, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			pd.Targets = append(pd.Targets, ast.ValueConstraint{Column: col, Value: val})
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
	default:
		col, err := p.parseBitOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.T_EQ); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		pd.Targets = append(pd.Targets, ast.ValueConstraint{Column: col, Value: val})
	}
	given, err := p.parseGivenClause()
	if err != nil {
		return nil, err
	}
	pd.Given = given
	return pd, nil
}
