package parser

import (
	"github.com/kjm99d/SpeedSQL/sql/ast"
	"github.com/kjm99d/SpeedSQL/sql/lexer"
)

// parseCreate dispatches CREATE TABLE / CREATE [UNIQUE] INDEX, per
// query_parser/parser/parse_ddl.go's column-definition loop, extended
// with the column constraint flags spec.md §3 lists on Table.Columns
// (foreign keys are dropped: spec.md's Non-goals exclude them).
func (p *Parser) parseCreate() ast.Statement {
	p.next() // CREATE
	switch {
	case p.atKeyword("TABLE"):
		return p.parseCreateTable()
	case p.atKeyword("UNIQUE"):
		p.next()
		if !p.expectKeyword("INDEX") {
			return nil
		}
		return p.parseCreateIndex(true)
	case p.atKeyword("INDEX"):
		p.next()
		return p.parseCreateIndex(false)
	default:
		p.fail("expected TABLE or INDEX after CREATE, got %q", p.cur.Value)
		return nil
	}
}

func (p *Parser) parseCreateTable() ast.Statement {
	p.next() // TABLE
	table, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.LPAREN, "("); !ok {
		return nil
	}

	var cols []ast.ColumnDef
	for p.cur.Kind != lexer.RPAREN {
		name, ok := p.expectIdent()
		if !ok {
			return nil
		}
		typ, ok := p.expectIdent()
		if !ok {
			return nil
		}
		col := ast.ColumnDef{Name: name, Type: typ}

		for {
			switch {
			case p.eatKeyword("NOT"):
				if !p.expectKeyword("NULL") {
					return nil
				}
				col.NotNull = true
			case p.eatKeyword("UNIQUE"):
				col.Unique = true
			case p.atKeyword("PRIMARY"):
				p.next()
				if !p.expectKeyword("KEY") {
					return nil
				}
				col.PrimaryKey = true
			case p.eatKeyword("AUTOINCREMENT"):
				col.AutoIncrement = true
			default:
				goto doneConstraints
			}
		}
	doneConstraints:

		cols = append(cols, col)
		if p.cur.Kind == lexer.COMMA {
			p.next()
			continue
		}
		break
	}

	if _, ok := p.expect(lexer.RPAREN, ")"); !ok {
		return nil
	}
	return &ast.CreateTableStmt{Table: table, Columns: cols}
}

func (p *Parser) parseCreateIndex(unique bool) ast.Statement {
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if !p.expectKeyword("ON") {
		return nil
	}
	table, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.LPAREN, "("); !ok {
		return nil
	}
	var cols []string
	for {
		col, ok := p.expectIdent()
		if !ok {
			return nil
		}
		cols = append(cols, col)
		if p.cur.Kind == lexer.COMMA {
			p.next()
			continue
		}
		break
	}
	if _, ok := p.expect(lexer.RPAREN, ")"); !ok {
		return nil
	}
	return &ast.CreateIndexStmt{Index: name, Table: table, Columns: cols, Unique: unique}
}

func (p *Parser) parseDrop() ast.Statement {
	p.next() // DROP
	switch {
	case p.atKeyword("TABLE"):
		p.next()
		name, ok := p.expectIdent()
		if !ok {
			return nil
		}
		return &ast.DropTableStmt{Table: name}
	case p.atKeyword("INDEX"):
		p.next()
		name, ok := p.expectIdent()
		if !ok {
			return nil
		}
		return &ast.DropIndexStmt{Index: name}
	default:
		p.fail("expected TABLE or INDEX after DROP, got %q", p.cur.Value)
		return nil
	}
}
