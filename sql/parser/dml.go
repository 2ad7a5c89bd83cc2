package parser

import (
	"github.com/kjm99d/SpeedSQL/sql/ast"
	"github.com/kjm99d/SpeedSQL/sql/lexer"
)

func (p *Parser) parseInsert() ast.Statement {
	p.next() // INSERT
	if !p.expectKeyword("INTO") {
		return nil
	}
	table, ok := p.expectIdent()
	if !ok {
		return nil
	}

	stmt := &ast.InsertStmt{Table: table}
	if p.cur.Kind == lexer.LPAREN {
		p.next()
		for {
			col, ok := p.expectIdent()
			if !ok {
				return nil
			}
			stmt.Columns = append(stmt.Columns, col)
			if p.cur.Kind == lexer.COMMA {
				p.next()
				continue
			}
			break
		}
		if _, ok := p.expect(lexer.RPAREN, ")"); !ok {
			return nil
		}
	}

	if !p.expectKeyword("VALUES") {
		return nil
	}
	for {
		row, ok := p.parseValuesRow()
		if !ok {
			return nil
		}
		stmt.Rows = append(stmt.Rows, row)
		if p.cur.Kind == lexer.COMMA {
			p.next()
			continue
		}
		break
	}
	return stmt
}

func (p *Parser) parseValuesRow() ([]ast.Expr, bool) {
	if _, ok := p.expect(lexer.LPAREN, "("); !ok {
		return nil, false
	}
	var row []ast.Expr
	for {
		row = append(row, p.parseExpr())
		if p.err != nil {
			return nil, false
		}
		if p.cur.Kind == lexer.COMMA {
			p.next()
			continue
		}
		break
	}
	if _, ok := p.expect(lexer.RPAREN, ")"); !ok {
		return nil, false
	}
	return row, true
}

func (p *Parser) parseUpdate() ast.Statement {
	p.next() // UPDATE
	table, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if !p.expectKeyword("SET") {
		return nil
	}

	stmt := &ast.UpdateStmt{Table: table}
	for {
		col, ok := p.expectIdent()
		if !ok {
			return nil
		}
		if _, ok := p.expect(lexer.EQ, "="); !ok {
			return nil
		}
		val := p.parseExpr()
		if p.err != nil {
			return nil
		}
		stmt.Assignments = append(stmt.Assignments, ast.Assignment{Column: col, Value: val})
		if p.cur.Kind == lexer.COMMA {
			p.next()
			continue
		}
		break
	}

	if p.eatKeyword("WHERE") {
		stmt.Where = p.parseExpr()
	}
	if p.err != nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseDelete() ast.Statement {
	p.next() // DELETE
	if !p.expectKeyword("FROM") {
		return nil
	}
	table, ok := p.expectIdent()
	if !ok {
		return nil
	}
	stmt := &ast.DeleteStmt{Table: table}
	if p.eatKeyword("WHERE") {
		stmt.Where = p.parseExpr()
	}
	if p.err != nil {
		return nil
	}
	return stmt
}
