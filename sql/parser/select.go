package parser

import (
	"strconv"

	"github.com/kjm99d/SpeedSQL/sql/ast"
	"github.com/kjm99d/SpeedSQL/sql/lexer"
)

// parseSelect implements spec.md §4.8's `sel` production.
func (p *Parser) parseSelect() ast.Statement {
	p.next() // SELECT

	stmt := &ast.SelectStmt{}
	for {
		col := ast.SelectColumn{Expr: p.parseExpr()}
		if p.err != nil {
			return nil
		}
		if p.eatKeyword("AS") {
			alias, ok := p.expectIdent()
			if !ok {
				return nil
			}
			col.Alias = alias
		} else if p.cur.Kind == lexer.IDENT {
			col.Alias = p.cur.Value
			p.next()
		}
		stmt.Columns = append(stmt.Columns, col)
		if p.cur.Kind == lexer.COMMA {
			p.next()
			continue
		}
		break
	}

	if p.eatKeyword("FROM") {
		ref := p.parseTableRef()
		if p.err != nil {
			return nil
		}
		stmt.From = &ref
		for p.atJoinStart() {
			jc := p.parseJoinClause()
			if p.err != nil {
				return nil
			}
			stmt.Joins = append(stmt.Joins, jc)
		}
	}

	if p.eatKeyword("WHERE") {
		stmt.Where = p.parseExpr()
	}

	if p.eatKeyword("GROUP") {
		if !p.expectKeyword("BY") {
			return nil
		}
		for {
			stmt.GroupBy = append(stmt.GroupBy, p.parseExpr())
			if p.cur.Kind == lexer.COMMA {
				p.next()
				continue
			}
			break
		}
	}

	if p.eatKeyword("HAVING") {
		stmt.Having = p.parseExpr()
	}

	if p.eatKeyword("ORDER") {
		if !p.expectKeyword("BY") {
			return nil
		}
		for {
			term := ast.OrderTerm{Expr: p.parseExpr()}
			if p.eatKeyword("DESC") {
				term.Desc = true
			} else {
				p.eatKeyword("ASC")
			}
			stmt.OrderBy = append(stmt.OrderBy, term)
			if p.cur.Kind == lexer.COMMA {
				p.next()
				continue
			}
			break
		}
	}

	if p.eatKeyword("LIMIT") {
		n, ok := p.expectInt()
		if !ok {
			return nil
		}
		stmt.Limit = &n
		if p.eatKeyword("OFFSET") {
			m, ok := p.expectInt()
			if !ok {
				return nil
			}
			stmt.Offset = &m
		}
	}

	if p.err != nil {
		return nil
	}
	return stmt
}

func (p *Parser) expectInt() (int64, bool) {
	if p.cur.Kind != lexer.INT {
		p.fail("expected integer, got %q", p.cur.Value)
		return 0, false
	}
	n, err := strconv.ParseInt(p.cur.Value, 10, 64)
	if err != nil {
		p.fail("bad integer %q", p.cur.Value)
		return 0, false
	}
	p.next()
	return n, true
}

func (p *Parser) parseTableRef() ast.TableRef {
	name, ok := p.expectIdent()
	if !ok {
		return ast.TableRef{}
	}
	ref := ast.TableRef{Name: name}
	if p.eatKeyword("AS") {
		alias, ok := p.expectIdent()
		if ok {
			ref.Alias = alias
		}
	} else if p.cur.Kind == lexer.IDENT && !p.atJoinStart() {
		ref.Alias = p.cur.Value
		p.next()
	}
	return ref
}

func (p *Parser) atJoinStart() bool {
	return p.atKeyword("JOIN") || p.atKeyword("LEFT") || p.atKeyword("RIGHT") || p.atKeyword("INNER")
}

func (p *Parser) parseJoinClause() ast.JoinClause {
	kind := ast.InnerJoin
	switch {
	case p.eatKeyword("LEFT"):
		kind = ast.LeftJoin
		p.eatKeyword("OUTER")
	case p.eatKeyword("RIGHT"):
		kind = ast.RightJoin
		p.eatKeyword("OUTER")
	case p.eatKeyword("INNER"):
	}
	if !p.expectKeyword("JOIN") {
		return ast.JoinClause{}
	}
	ref := p.parseTableRef()
	jc := ast.JoinClause{Kind: kind, Table: ref}
	if p.eatKeyword("ON") {
		jc.On = p.parseExpr()
	}
	return jc
}
