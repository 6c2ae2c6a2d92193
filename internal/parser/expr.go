package parser

import (
	"github.com/probcomp/bayesdb/internal/ast"
	"github.com/probcomp/bayesdb/internal/dberr"
	"github.com/probcomp/bayesdb/internal/lexer"
)

// parseExpr is the entry point of the precedence chain: OR < AND < NOT <
// comparison < bitwise-or < bitwise-and/shift < add/sub < mul/div/mod <
// concat < unary < collate/primary — the "full Boolean/comparison/
// arithmetic/bitwise/concatenative/collate/unary precedence chain" of
// spec.md §4.2.
func (p *Parser) parseExpr() (ast.Expr, error) { return p.parseOr() }

func (p *Parser) parseOr() (ast.Expr, error) {
	x, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == lexer.K_OR {
		if err := p.advance(); err != nil {
			return nil, err
		}
		y, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		x = &ast.BinaryExpr{Op: "OR", X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	x, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == lexer.K_AND {
		if err := p.advance(); err != nil {
			return nil, err
		}
		y, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		x = &ast.BinaryExpr{Op: "AND", X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) parseNot() (ast.Expr, error) {
	if p.tok.Kind == lexer.K_NOT {
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: "NOT", X: x}, nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (ast.Expr, error) {
	x, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}
	for {
		switch p.tok.Kind {
		case lexer.T_EQ, lexer.T_NE, lexer.T_LT, lexer.T_LE, lexer.T_GT, lexer.T_GE:
			op := p.tok.Text
			if err := p.advance(); err != nil {
				return nil, err
			}
			y, err := p.parseBitOr()
			if err != nil {
				return nil, err
			}
			x = &ast.BinaryExpr{Op: op, X: x, Y: y}
		case lexer.K_IS:
			if err := p.advance(); err != nil {
				return nil, err
			}
			not := false
			if p.tok.Kind == lexer.K_NOT {
				not = true
				if err := p.advance(); err != nil {
					return nil, err
				}
			}
			if p.tok.Kind != lexer.K_NULL {
				return nil, dberr.Parse(pos(p.tok), "NULL", describe(p.tok))
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			x = &ast.IsNullExpr{X: x, Not: not}
		case lexer.K_NOT:
			// NOT LIKE / NOT IN / NOT BETWEEN / NOT GLOB
			if err := p.advance(); err != nil {
				return nil, err
			}
			nx, err := p.parseComparisonTail(x, true)
			if err != nil {
				return nil, err
			}
			x = nx
		case lexer.K_LIKE, lexer.K_GLOB, lexer.K_IN, lexer.K_BETWEEN:
			nx, err := p.parseComparisonTail(x, false)
			if err != nil {
				return nil, err
			}
			x = nx
		default:
			return x, nil
		}
	}
}

func (p *Parser) parseComparisonTail(x ast.Expr, not bool) (ast.Expr, error) {
	switch p.tok.Kind {
	case lexer.K_LIKE, lexer.K_GLOB:
		if err := p.advance(); err != nil {
			return nil, err
		}
		pat, err := p.parseBitOr()
		if err != nil {
			return nil, err
		}
		return &ast.LikeExpr{X: x, Pattern: pat, Not: not}, nil
	case lexer.K_BETWEEN:
		if err := p.advance(); err != nil {
			return nil, err
		}
		lo, err := p.parseBitOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.K_AND); err != nil {
			return nil, err
		}
		hi, err := p.parseBitOr()
		if err != nil {
			return nil, err
		}
		return &ast.BetweenExpr{X: x, Lo: lo, Hi: hi, Not: not}, nil
	case lexer.K_IN:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.T_LPAREN); err != nil {
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
			return &ast.InExpr{X: x, Subquery: sel, Not: not}, nil
		}
		var list []ast.Expr
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			list = append(list, e)
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
		return &ast.InExpr{X: x, List: list, Not: not}, nil
	default:
		return nil, dberr.Parse(pos(p.tok), "LIKE, IN, or BETWEEN", describe(p.tok))
	}
}

func (p *Parser) parseBitOr() (ast.Expr, error) {
	x, err := p.parseBitAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == lexer.T_PIPE {
		if err := p.advance(); err != nil {
			return nil, err
		}
		y, err := p.parseBitAnd()
		if err != nil {
			return nil, err
		}
		x = &ast.BinaryExpr{Op: "|", X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) parseBitAnd() (ast.Expr, error) {
	x, err := p.parseShift()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == lexer.T_AMP {
		if err := p.advance(); err != nil {
			return nil, err
		}
		y, err := p.parseShift()
		if err != nil {
			return nil, err
		}
		x = &ast.BinaryExpr{Op: "&", X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) parseShift() (ast.Expr, error) {
	x, err := p.parseAddSub()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == lexer.T_SHL || p.tok.Kind == lexer.T_SHR {
		op := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		y, err := p.parseAddSub()
		if err != nil {
			return nil, err
		}
		x = &ast.BinaryExpr{Op: op, X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) parseAddSub() (ast.Expr, error) {
	x, err := p.parseMulDiv()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == lexer.T_PLUS || p.tok.Kind == lexer.T_MINUS {
		op := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		y, err := p.parseMulDiv()
		if err != nil {
			return nil, err
		}
		x = &ast.BinaryExpr{Op: op, X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) parseMulDiv() (ast.Expr, error) {
	x, err := p.parseConcat()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == lexer.T_STAR || p.tok.Kind == lexer.T_SLASH || p.tok.Kind == lexer.T_PERCENT {
		op := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		y, err := p.parseConcat()
		if err != nil {
			return nil, err
		}
		x = &ast.BinaryExpr{Op: op, X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) parseConcat() (ast.Expr, error) {
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == lexer.T_CONCAT {
		if err := p.advance(); err != nil {
			return nil, err
		}
		y, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		x = &ast.BinaryExpr{Op: "||", X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	switch p.tok.Kind {
	case lexer.T_MINUS, lexer.T_PLUS, lexer.T_TILDE:
		op := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: op, X: x}, nil
	default:
		return p.parseCollate()
	}
}

func (p *Parser) parseCollate() (ast.Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == lexer.K_COLLATE {
		if err := p.advance(); err != nil {
			return nil, err
		}
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		x = &ast.CollateExpr{X: x, Collation: name}
	}
	return x, nil
}
