package parser

import (
	"github.com/probcomp/bayesdb/internal/ast"
	"github.com/probcomp/bayesdb/internal/dberr"
	"github.com/probcomp/bayesdb/internal/lexer"
)

// parseIfNotExists consumes an optional "IF NOT EXISTS".
func (p *Parser) parseIfNotExists() (bool, error) {
	if p.tok.Kind != lexer.K_IF {
		return false, nil
	}
	if err := p.advance(); err != nil {
		return false, err
	}
	if _, err := p.expect(lexer.K_NOT); err != nil {
		return false, err
	}
	if _, err := p.expect(lexer.K_EXISTS); err != nil {
		return false, err
	}
	return true, nil
}

// parseIfExists consumes an optional "IF EXISTS".
func (p *Parser) parseIfExists() (bool, error) {
	if p.tok.Kind != lexer.K_IF {
		return false, nil
	}
	if err := p.advance(); err != nil {
		return false, err
	}
	if _, err := p.expect(lexer.K_EXISTS); err != nil {
		return false, err
	}
	return true, nil
}

// parseCreate dispatches "CREATE TABLE", "CREATE POPULATION", and "CREATE
// GENERATOR" (spec.md §4.2, §4.3).
func (p *Parser) parseCreate(start ast.Position) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	switch p.tok.Kind {
	case lexer.K_TABLE:
		return p.parseCreateTable(start)
	case lexer.K_POPULATION:
		return p.parseCreatePopulation(start)
	case lexer.K_GENERATOR:
		return p.parseCreateGenerator(start)
	default:
		return nil, dberr.Parse(pos(p.tok), "TABLE, POPULATION, or GENERATOR", describe(p.tok))
	}
}

func (p *Parser) parseAlter(start ast.Position) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	switch p.tok.Kind {
	case lexer.K_POPULATION:
		return p.parseAlterPopulation(start)
	case lexer.K_GENERATOR:
		return p.parseAlterGenerator(start)
	default:
		return nil, dberr.Parse(pos(p.tok), "POPULATION or GENERATOR", describe(p.tok))
	}
}

func (p *Parser) parseDrop(start ast.Position) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	switch p.tok.Kind {
	case lexer.K_TABLE:
		if err := p.advance(); err != nil {
			return nil, err
		}
		ifExists, err := p.parseIfExists()
		if err != nil {
			return nil, err
		}
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		return &ast.DropTableStmt{Name: name, IfExists: ifExists}, nil
	case lexer.K_POPULATION:
		if err := p.advance(); err != nil {
			return nil, err
		}
		ifExists, err := p.parseIfExists()
		if err != nil {
			return nil, err
		}
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		return &ast.DropPopulationStmt{Name: name, IfExists: ifExists}, nil
	case lexer.K_GENERATOR:
		if err := p.advance(); err != nil {
			return nil, err
		}
		ifExists, err := p.parseIfExists()
		if err != nil {
			return nil, err
		}
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		return &ast.DropGeneratorStmt{Name: name, IfExists: ifExists}, nil
	case lexer.K_MODELS:
		return p.parseDropModels(start)
	default:
		return nil, dberr.Parse(pos(p.tok), "TABLE, POPULATION, GENERATOR, or MODELS", describe(p.tok))
	}
}

// parseCreateTable handles ordinary SQL "CREATE TABLE name (col type, ...)",
// kept verbatim for the base-table layer under populations (spec.md §1, §3).
func (p *Parser) parseCreateTable(start ast.Position) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	ifNotExists, err := p.parseIfNotExists()
	if err != nil {
		return nil, err
	}
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.T_LPAREN); err != nil {
		return nil, err
	}
	var cols []ast.ColumnDef
	for {
		cname, err := p.expectName()
		if err != nil {
			return nil, err
		}
		typ, err := p.parseTypeName()
		if err != nil {
			return nil, err
		}
		rest := ""
		for p.tok.Kind != lexer.T_COMMA && p.tok.Kind != lexer.T_RPAREN {
			if rest != "" {
				rest += " "
			}
			rest += describe(p.tok)
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		cols = append(cols, ast.ColumnDef{Name: cname, Type: typ, Rest: rest})
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
	return &ast.CreateTableStmt{Name: name, IfNotExists: ifNotExists, Columns: cols}, nil
}

// parseCreatePopulation handles "CREATE POPULATION p FOR t WITH SCHEMA (
// schema-items )" (spec.md §3, §4.3).
func (p *Parser) parseCreatePopulation(start ast.Position) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	ifNotExists, err := p.parseIfNotExists()
	if err != nil {
		return nil, err
	}
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.K_FOR); err != nil {
		return nil, err
	}
	table, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.K_WITH); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.K_SCHEMA); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.T_LPAREN); err != nil {
		return nil, err
	}
	var items []ast.SchemaItem
	for p.tok.Kind != lexer.T_RPAREN {
		item, err := p.parseSchemaItem()
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
	if _, err := p.expect(lexer.T_RPAREN); err != nil {
		return nil, err
	}
	return &ast.CreatePopulationStmt{Name: name, IfNotExists: ifNotExists, Table: table, Schema: items}, nil
}

func (p *Parser) parseColumnList() ([]string, error) {
	if _, err := p.expect(lexer.T_LPAREN); err != nil {
		return nil, err
	}
	var out []string
	if p.tok.Kind == lexer.T_STAR {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.T_RPAREN); err != nil {
			return nil, err
		}
		return nil, nil
	}
	for {
		n, err := p.expectName()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
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
	return out, nil
}

// parseSchemaItem parses one clause of a population schema body: "GUESS
// STATTYPES FOR (*|cols)", "[MODEL] col1, col2 AS stattype", "IGNORE cols",
// or "[MODEL] cols AS LATENT stattype" (spec.md §3's variable-latency
// extension).
func (p *Parser) parseSchemaItem() (ast.SchemaItem, error) {
	if p.tok.Kind == lexer.K_GUESS {
		if err := p.advance(); err != nil {
			return ast.SchemaItem{}, err
		}
		if _, err := p.expect(lexer.K_STATTYPES); err != nil {
			return ast.SchemaItem{}, err
		}
		if _, err := p.expect(lexer.K_FOR); err != nil {
			return ast.SchemaItem{}, err
		}
		cols, err := p.parseColumnList()
		if err != nil {
			return ast.SchemaItem{}, err
		}
		if cols == nil {
			return ast.SchemaItem{GuessAll: true}, nil
		}
		return ast.SchemaItem{GuessFor: cols}, nil
	}
	if p.tok.Kind == lexer.K_IGNORE {
		if err := p.advance(); err != nil {
			return ast.SchemaItem{}, err
		}
		cols, err := p.parseNameList()
		if err != nil {
			return ast.SchemaItem{}, err
		}
		return ast.SchemaItem{Columns: cols, Ignore: true}, nil
	}
	if p.tok.Kind == lexer.K_MODEL {
		if err := p.advance(); err != nil {
			return ast.SchemaItem{}, err
		}
	}
	cols, err := p.parseNameList()
	if err != nil {
		return ast.SchemaItem{}, err
	}
	if _, err := p.expect(lexer.K_AS); err != nil {
		return ast.SchemaItem{}, err
	}
	latent := false
	if p.tok.Kind == lexer.K_LATENT {
		latent = true
		if err := p.advance(); err != nil {
			return ast.SchemaItem{}, err
		}
	}
	stattype, err := p.expectName()
	if err != nil {
		return ast.SchemaItem{}, err
	}
	return ast.SchemaItem{Columns: cols, Stattype: stattype, Latent: latent}, nil
}

func (p *Parser) parseNameList() ([]string, error) {
	var out []string
	for {
		n, err := p.expectName()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
		if p.tok.Kind == lexer.T_COMMA {
			// The comma is always consumed and the next token read as a
			// name; there is no lookahead, so a list runs until the first
			// name not followed by a comma.
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return out, nil
}

func (p *Parser) parseAlterPopulation(start ast.Position) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	var actions []ast.AlterPopAction
	for {
		act, err := p.parseAlterPopAction()
		if err != nil {
			return nil, err
		}
		actions = append(actions, act)
		if p.tok.Kind == lexer.T_COMMA {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return &ast.AlterPopulationStmt{Name: name, Actions: actions}, nil
}

func (p *Parser) parseAlterPopAction() (ast.AlterPopAction, error) {
	switch p.tok.Kind {
	case lexer.K_ADD:
		if err := p.advance(); err != nil {
			return ast.AlterPopAction{}, err
		}
		if _, err := p.expect(lexer.K_VARIABLE); err != nil {
			return ast.AlterPopAction{}, err
		}
		col, err := p.expectName()
		if err != nil {
			return ast.AlterPopAction{}, err
		}
		if _, err := p.expect(lexer.K_AS); err != nil {
			return ast.AlterPopAction{}, err
		}
		stattype, err := p.expectName()
		if err != nil {
			return ast.AlterPopAction{}, err
		}
		return ast.AlterPopAction{Kind: "add_variable", Column: col, Stattype: stattype}, nil
	case lexer.K_DROP:
		if err := p.advance(); err != nil {
			return ast.AlterPopAction{}, err
		}
		if _, err := p.expect(lexer.K_VARIABLE); err != nil {
			return ast.AlterPopAction{}, err
		}
		col, err := p.expectName()
		if err != nil {
			return ast.AlterPopAction{}, err
		}
		return ast.AlterPopAction{Kind: "drop_variable", Column: col}, nil
	case lexer.K_RENAME:
		if err := p.advance(); err != nil {
			return ast.AlterPopAction{}, err
		}
		if _, err := p.expect(lexer.K_VARIABLE); err != nil {
			return ast.AlterPopAction{}, err
		}
		col, err := p.expectName()
		if err != nil {
			return ast.AlterPopAction{}, err
		}
		if _, err := p.expect(lexer.K_TO); err != nil {
			return ast.AlterPopAction{}, err
		}
		newName, err := p.expectName()
		if err != nil {
			return ast.AlterPopAction{}, err
		}
		return ast.AlterPopAction{Kind: "rename_variable", Column: col, NewName: newName}, nil
	case lexer.K_SET:
		if err := p.advance(); err != nil {
			return ast.AlterPopAction{}, err
		}
		if _, err := p.expect(lexer.K_STATTYPES); err != nil {
			return ast.AlterPopAction{}, err
		}
		if _, err := p.expect(lexer.K_OF); err != nil {
			return ast.AlterPopAction{}, err
		}
		col, err := p.expectName()
		if err != nil {
			return ast.AlterPopAction{}, err
		}
		if _, err := p.expect(lexer.K_TO); err != nil {
			return ast.AlterPopAction{}, err
		}
		stattype, err := p.expectName()
		if err != nil {
			return ast.AlterPopAction{}, err
		}
		return ast.AlterPopAction{Kind: "set_stattype", Column: col, Stattype: stattype}, nil
	default:
		return ast.AlterPopAction{}, dberr.Parse(pos(p.tok), "ADD, DROP, RENAME, or SET", describe(p.tok))
	}
}

// parseCreateGenerator handles "CREATE GENERATOR g FOR p USING backend(
// opaque-schema )" (spec.md §3, §4.3 — backend schema text is forwarded
// uninterpreted to the named backend, per the Backend protocol of §4.5).
func (p *Parser) parseCreateGenerator(start ast.Position) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	ifNotExists, err := p.parseIfNotExists()
	if err != nil {
		return nil, err
	}
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.K_FOR); err != nil {
		return nil, err
	}
	population, err := p.expectName()
	if err != nil {
		return nil, err
	}
	backend := "default"
	schema := ""
	if p.tok.Kind == lexer.K_USING {
		if err := p.advance(); err != nil {
			return nil, err
		}
		backend, err = p.expectName()
		if err != nil {
			return nil, err
		}
	}
	if p.tok.Kind == lexer.T_LPAREN {
		schema, err = p.captureParenText()
		if err != nil {
			return nil, err
		}
	}
	return &ast.CreateGeneratorStmt{Name: name, IfNotExists: ifNotExists, Population: population, Backend: backend, Schema: schema}, nil
}

// captureParenText consumes a balanced parenthesized group and returns its
// inner text verbatim, for backend-specific generator schema bodies the
// compiler does not itself interpret (spec.md §4.5).
func (p *Parser) captureParenText() (string, error) {
	if _, err := p.expect(lexer.T_LPAREN); err != nil {
		return "", err
	}
	depth := 1
	text := ""
	for depth > 0 {
		if p.tok.Kind == lexer.T_EOF {
			return "", dberr.Parse(pos(p.tok), ")", "<eof>")
		}
		if p.tok.Kind == lexer.T_LPAREN {
			depth++
		} else if p.tok.Kind == lexer.T_RPAREN {
			depth--
			if depth == 0 {
				if err := p.advance(); err != nil {
					return "", err
				}
				break
			}
		}
		if text != "" {
			text += " "
		}
		text += describe(p.tok)
		if err := p.advance(); err != nil {
			return "", err
		}
	}
	return text, nil
}

func (p *Parser) parseAlterGenerator(start ast.Position) (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	var actions []string
	for {
		act := ""
		for p.tok.Kind != lexer.T_COMMA && p.tok.Kind != lexer.T_SEMI && p.tok.Kind != lexer.T_EOF {
			if act != "" {
				act += " "
			}
			act += describe(p.tok)
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		actions = append(actions, act)
		if p.tok.Kind == lexer.T_COMMA {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return &ast.AlterGeneratorStmt{Name: name, Actions: actions}, nil
}
