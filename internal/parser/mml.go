package parser

import (
	"github.com/probcomp/bayesdb/internal/ast"
	"github.com/probcomp/bayesdb/internal/dberr"
	"github.com/probcomp/bayesdb/internal/lexer"
)

// parseModelSpec parses an optional "USING MODEL n" / "USING MODELS n0-n1"
// selection (spec.md §4.3); returns nil (meaning "all models") if absent.
func (p *Parser) parseModelSpec() (*ast.ModelSpec, error) {
	if p.tok.Kind != lexer.K_USING {
		return nil, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	single := p.tok.Kind == lexer.K_MODEL
	if !single && p.tok.Kind != lexer.K_MODELS {
		return nil, dberr.Parse(pos(p.tok), "MODEL or MODELS", describe(p.tok))
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	lo, err := p.parseModelIndex()
	if err != nil {
		return nil, err
	}
	if single {
		return &ast.ModelSpec{Single: &lo}, nil
	}
	if p.tok.Kind == lexer.T_MINUS {
		if err := p.advance(); err != nil {
			return nil, err
		}
		hi, err := p.parseModelIndex()
		if err != nil {
			return nil, err
		}
		return &ast.ModelSpec{RangeLo: &lo, RangeHi: &hi}, nil
	}
	return &ast.ModelSpec{Single: &lo}, nil
}

func (p *Parser) parseModelIndex() (int, error) {
	if p.tok.Kind != lexer.L_INTEGER {
		return 0, dberr.Parse(pos(p.tok), "a model number", describe(p.tok))
	}
	n := int(p.tok.IntVal)
	if err := p.advance(); err != nil {
		return 0, err
	}
	return n, nil
}

// parseInitialize parses "INITIALIZE n MODELS [IF NOT EXISTS] FOR g"
// (spec.md §4.3).
func (p *Parser) parseInitialize(start ast.Position) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Kind != lexer.L_INTEGER {
		return nil, dberr.Parse(pos(p.tok), "a model count", describe(p.tok))
	}
	n := int(p.tok.IntVal)
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.K_MODELS); err != nil {
		return nil, err
	}
	ifNotExists, err := p.parseIfNotExists()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.K_FOR); err != nil {
		return nil, err
	}
	gen, err := p.expectName()
	if err != nil {
		return nil, err
	}
	return &ast.InitializeModelsStmt{N: n, Generator: gen, IfNotExists: ifNotExists}, nil
}

// parseDropModels parses "DROP MODELS [USING MODEL(S) ...] FROM g" (spec.md
// §4.3).
func (p *Parser) parseDropModels(start ast.Position) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	models, err := p.parseModelSpec()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.K_FROM); err != nil {
		return nil, err
	}
	gen, err := p.expectName()
	if err != nil {
		return nil, err
	}
	return &ast.DropModelsStmt{Generator: gen, Models: models}, nil
}

// parseBudget parses "n ITERATIONS|SECONDS|MINUTES" (spec.md §4.7).
func (p *Parser) parseBudget() (ast.AnalyzeBudget, error) {
	n, err := p.parseExpr()
	if err != nil {
		return ast.AnalyzeBudget{}, err
	}
	unit := ""
	switch p.tok.Kind {
	case lexer.K_ITERATIONS:
		unit = "iterations"
	case lexer.K_SECONDS:
		unit = "seconds"
	case lexer.K_MINUTES:
		unit = "minutes"
	default:
		return ast.AnalyzeBudget{}, dberr.Parse(pos(p.tok), "ITERATIONS, SECONDS, or MINUTES", describe(p.tok))
	}
	if err := p.advance(); err != nil {
		return ast.AnalyzeBudget{}, err
	}
	return ast.AnalyzeBudget{Unit: unit, Value: n}, nil
}

// parseAnalyze parses "ANALYZE g [MODELS spec] FOR budget [CHECKPOINT
// budget] (program) [WAIT]" (spec.md §4.7). The VARIABLES/SKIP/ROWS/
// SUBPROBLEMS/OPTIMIZED/QUIET program clauses are backend-specific and are
// captured verbatim, consistent with the generator-schema handling of
// CREATE GENERATOR.
func (p *Parser) parseAnalyze(start ast.Position) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	gen, err := p.expectName()
	if err != nil {
		return nil, err
	}
	st := &ast.AnalyzeStmt{Generator: gen}
	if p.tok.Kind == lexer.K_MODELS || p.tok.Kind == lexer.K_MODEL {
		if err := p.advance(); err != nil {
			return nil, err
		}
		lo, err := p.parseModelIndex()
		if err != nil {
			return nil, err
		}
		if p.tok.Kind == lexer.T_MINUS {
			if err := p.advance(); err != nil {
				return nil, err
			}
			hi, err := p.parseModelIndex()
			if err != nil {
				return nil, err
			}
			st.Models = &ast.ModelSpec{RangeLo: &lo, RangeHi: &hi}
		} else {
			st.Models = &ast.ModelSpec{Single: &lo}
		}
	}
	if _, err := p.expect(lexer.K_FOR); err != nil {
		return nil, err
	}
	budget, err := p.parseBudget()
	if err != nil {
		return nil, err
	}
	st.Budget = budget
	if p.tok.Kind == lexer.K_CHECKPOINT {
		if err := p.advance(); err != nil {
			return nil, err
		}
		cp, err := p.parseBudget()
		if err != nil {
			return nil, err
		}
		st.Checkpoint = &cp
	}
	if p.tok.Kind == lexer.T_LPAREN {
		program, err := p.captureParenText()
		if err != nil {
			return nil, err
		}
		st.Program = program
	}
	if p.tok.Kind == lexer.K_WAIT {
		st.Wait = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return st, nil
}
