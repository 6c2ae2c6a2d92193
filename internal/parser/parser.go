// Package parser implements the BQL grammar of spec.md §4.2 as a
// hand-written recursive-descent / precedence-climbing parser (the
// "hand-translated to a parser-combinator" alternative spec.md §9 names,
// since this repository does not invoke a goyacc-style table generator —
// see DESIGN.md). It produces the tagged ast package's Statement/Expr trees
// and preserves source positions for error localization.
package parser

import (
	"errors"
	"io"

	"github.com/probcomp/bayesdb/internal/ast"
	"github.com/probcomp/bayesdb/internal/dberr"
	"github.com/probcomp/bayesdb/internal/lexer"
)

// ErrEOF is returned by Next when the source is exhausted.
var ErrEOF = io.EOF

// Parser consumes BQL source phrase by phrase. Each call to Next parses (or
// fails to parse) exactly one semicolon-terminated phrase; on failure it
// recovers by skipping to the next T_SEMI (spec.md §4.2) so the caller can
// keep calling Next to process the remaining phrases of a multi-statement
// script.
type Parser struct {
	sc       *lexer.Scanner
	tok      lexer.Token
	lookhead *lexer.Token
	atEOF    bool
}

// New returns a parser over src.
func New(src string) *Parser {
	p := &Parser{sc: lexer.New(src)}
	return p
}

// ParseAll parses every phrase in src, stopping at the first error.
func ParseAll(src string) ([]ast.Statement, error) {
	p := New(src)
	var stmts []ast.Statement
	for {
		s, err := p.Next()
		if errors.Is(err, ErrEOF) {
			return stmts, nil
		}
		if err != nil {
			return stmts, err
		}
		stmts = append(stmts, s)
	}
}

// ParseOne parses exactly one phrase and fails if src contains more than
// one (or none).
func ParseOne(src string) (ast.Statement, error) {
	p := New(src)
	s, err := p.Next()
	if err != nil {
		return nil, err
	}
	if _, err := p.Next(); !errors.Is(err, ErrEOF) {
		return nil, dberr.Parse(s.Pos(), "end of input", "additional phrase")
	}
	return s, nil
}

func (p *Parser) advance() error {
	if p.lookhead != nil {
		p.tok = *p.lookhead
		p.lookhead = nil
		return nil
	}
	t, err := p.sc.Next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *Parser) peek() (lexer.Token, error) {
	if p.lookhead != nil {
		return *p.lookhead, nil
	}
	t, err := p.sc.Next()
	if err != nil {
		return lexer.Token{}, err
	}
	p.lookhead = &t
	return t, nil
}

func (p *Parser) at(k lexer.Kind) bool { return p.tok.Kind == k }

func (p *Parser) expect(k lexer.Kind) (lexer.Token, error) {
	if p.tok.Kind != k {
		return lexer.Token{}, dberr.Parse(pos(p.tok), lexer.KindName(k), describe(p.tok))
	}
	t := p.tok
	if err := p.advance(); err != nil {
		return lexer.Token{}, err
	}
	return t, nil
}

func pos(t lexer.Token) ast.Position { return ast.Position{Line: t.Line, Col: t.Col} }

func describe(t lexer.Token) string {
	if t.Kind == lexer.T_EOF {
		return "<eof>"
	}
	if t.Text != "" {
		return t.Text
	}
	return lexer.KindName(t.Kind)
}

// recoverToSemi skips tokens until (and including) the next T_SEMI, or EOF.
func (p *Parser) recoverToSemi() {
	for {
		if p.tok.Kind == lexer.T_SEMI || p.tok.Kind == lexer.T_EOF {
			return
		}
		if err := p.advance(); err != nil {
			return
		}
	}
}

// Next parses the next phrase.
func (p *Parser) Next() (stmt ast.Statement, err error) {
	if p.atEOF {
		return nil, ErrEOF
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Kind == lexer.T_EOF {
		p.atEOF = true
		return nil, ErrEOF
	}

	// The terminating T_SEMI is left as the current token; the advance at
	// the top of the next call steps past it.
	defer func() {
		if err != nil {
			p.recoverToSemi()
		}
	}()

	stmt, err = p.parsePhrase()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind != lexer.T_SEMI && p.tok.Kind != lexer.T_EOF {
		return nil, dberr.Parse(pos(p.tok), ";", describe(p.tok))
	}
	return stmt, nil
}

func (p *Parser) parsePhrase() (ast.Statement, error) {
	start := pos(p.tok)
	switch p.tok.Kind {
	case lexer.T_SEMI:
		return &ast.EmptyStmt{}, nil
	case lexer.K_BEGIN:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind == lexer.K_TRANSACTION {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		return &ast.BeginStmt{}, nil
	case lexer.K_COMMIT:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.CommitStmt{}, nil
	case lexer.K_ROLLBACK:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.RollbackStmt{}, nil
	case lexer.K_CREATE:
		return p.parseCreate(start)
	case lexer.K_ALTER:
		return p.parseAlter(start)
	case lexer.K_DROP:
		return p.parseDrop(start)
	case lexer.K_INITIALIZE:
		return p.parseInitialize(start)
	case lexer.K_ANALYZE:
		return p.parseAnalyze(start)
	case lexer.K_SELECT:
		return p.parseSelect()
	case lexer.K_ESTIMATE:
		return p.parseEstimate(start)
	case lexer.K_INFER:
		return p.parseInfer(start)
	case lexer.K_SIMULATE:
		return p.parseSimulate(start)
	default:
		return nil, dberr.Parse(start, "a BQL phrase", describe(p.tok))
	}
}

// expectName accepts L_NAME or a keyword used loosely as an identifier
// (spec.md §4.1: "fallback to identifier"), returning its text.
func (p *Parser) expectName() (string, error) {
	if p.tok.Kind == lexer.L_NAME {
		t := p.tok
		if err := p.advance(); err != nil {
			return "", err
		}
		return t.Text, nil
	}
	if p.tok.Text != "" && p.tok.Kind != lexer.T_EOF {
		t := p.tok
		if err := p.advance(); err != nil {
			return "", err
		}
		return t.Text, nil
	}
	return "", dberr.Parse(pos(p.tok), "a name", describe(p.tok))
}

func (p *Parser) atKeyword(k lexer.Kind) bool { return p.tok.Kind == k }

func (p *Parser) optional(k lexer.Kind) (bool, error) {
	if p.tok.Kind == k {
		if err := p.advance(); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}
