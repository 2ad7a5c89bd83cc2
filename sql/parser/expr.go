package parser

import (
	"strconv"
	"strings"

	"github.com/kjm99d/SpeedSQL/sql/ast"
	"github.com/kjm99d/SpeedSQL/sql/lexer"
)

// parseExpr parses a full expression at OR precedence, the top of
// spec.md §4.8's `expr := or` production.
func (p *Parser) parseExpr() ast.Expr { return p.parseOr() }

func (p *Parser) parseOr() ast.Expr {
	x := p.parseAnd()
	for p.atKeyword("OR") {
		p.next()
		y := p.parseAnd()
		x = &ast.BinaryExpr{Op: ast.Or, X: x, Y: y}
	}
	return x
}

func (p *Parser) parseAnd() ast.Expr {
	x := p.parseComp()
	for p.atKeyword("AND") {
		p.next()
		y := p.parseComp()
		x = &ast.BinaryExpr{Op: ast.And, X: x, Y: y}
	}
	return x
}

// parseComp handles one optional comparison, IS [NOT] NULL, or LIKE
// applied to a term, per spec.md §4.8's `comp` production (these do
// not chain or associate in the spec's simplified grammar).
func (p *Parser) parseComp() ast.Expr {
	x := p.parseTerm()
	switch {
	case p.atKeyword("IS"):
		p.next()
		not := p.eatKeyword("NOT")
		if !p.expectKeyword("NULL") {
			return x
		}
		return &ast.IsNullExpr{X: x, Not: not}
	case p.atKeyword("LIKE"):
		p.next()
		y := p.parseTerm()
		return &ast.BinaryExpr{Op: ast.Like, X: x, Y: y}
	case p.atKeyword("NOT") && p.peekKeyword("LIKE"):
		p.next()
		p.next()
		y := p.parseTerm()
		return &ast.UnaryExpr{Op: ast.Not, X: &ast.BinaryExpr{Op: ast.Like, X: x, Y: y}}
	}
	if op, ok := cmpOp(p.cur.Kind); ok {
		p.next()
		y := p.parseTerm()
		return &ast.BinaryExpr{Op: op, X: x, Y: y}
	}
	return x
}

func cmpOp(k lexer.Kind) (ast.BinaryOp, bool) {
	switch k {
	case lexer.EQ:
		return ast.Eq, true
	case lexer.NEQ:
		return ast.Ne, true
	case lexer.LT:
		return ast.Lt, true
	case lexer.LE:
		return ast.Le, true
	case lexer.GT:
		return ast.Gt, true
	case lexer.GE:
		return ast.Ge, true
	default:
		return 0, false
	}
}

func (p *Parser) parseTerm() ast.Expr {
	x := p.parseFactor()
	for p.cur.Kind == lexer.PLUS || p.cur.Kind == lexer.MINUS {
		op := ast.Add
		if p.cur.Kind == lexer.MINUS {
			op = ast.Sub
		}
		p.next()
		y := p.parseFactor()
		x = &ast.BinaryExpr{Op: op, X: x, Y: y}
	}
	return x
}

func (p *Parser) parseFactor() ast.Expr {
	x := p.parseUnary()
	for p.cur.Kind == lexer.STAR || p.cur.Kind == lexer.SLASH || p.cur.Kind == lexer.PERCENT {
		var op ast.BinaryOp
		switch p.cur.Kind {
		case lexer.STAR:
			op = ast.Mul
		case lexer.SLASH:
			op = ast.Div
		default:
			op = ast.Mod
		}
		p.next()
		y := p.parseUnary()
		x = &ast.BinaryExpr{Op: op, X: x, Y: y}
	}
	return x
}

func (p *Parser) parseUnary() ast.Expr {
	if p.cur.Kind == lexer.MINUS {
		p.next()
		return &ast.UnaryExpr{Op: ast.Neg, X: p.parseUnary()}
	}
	if p.atKeyword("NOT") {
		p.next()
		return &ast.UnaryExpr{Op: ast.Not, X: p.parseUnary()}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() ast.Expr {
	switch {
	case p.cur.Kind == lexer.INT:
		n, err := strconv.ParseInt(p.cur.Value, 10, 64)
		if err != nil {
			p.fail("bad integer literal %q", p.cur.Value)
			return nil
		}
		p.next()
		return &ast.Literal{Kind: ast.LitInt, Int: n}
	case p.cur.Kind == lexer.FLOAT:
		f, err := strconv.ParseFloat(p.cur.Value, 64)
		if err != nil {
			p.fail("bad float literal %q", p.cur.Value)
			return nil
		}
		p.next()
		return &ast.Literal{Kind: ast.LitFloat, Float: f}
	case p.cur.Kind == lexer.STRING:
		s := p.cur.Value
		p.next()
		return &ast.Literal{Kind: ast.LitString, Str: s}
	case p.atKeyword("NULL"):
		p.next()
		return &ast.Literal{Kind: ast.LitNull, IsNull: true}
	case p.cur.Kind == lexer.PARAM:
		idx := p.nextParam
		p.nextParam++
		p.next()
		return &ast.Param{Index: idx}
	case p.cur.Kind == lexer.STAR:
		p.next()
		return &ast.Star{}
	case p.cur.Kind == lexer.LPAREN:
		p.next()
		x := p.parseExpr()
		if _, ok := p.expect(lexer.RPAREN, ")"); !ok {
			return nil
		}
		return x
	case p.cur.Kind == lexer.IDENT:
		return p.parseIdentExpr()
	default:
		p.fail("unexpected token %q in expression", p.cur.Value)
		return nil
	}
}

// parseIdentExpr disambiguates a bare identifier into a function call,
// a table.column reference, or a plain column reference.
func (p *Parser) parseIdentExpr() ast.Expr {
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}

	if p.cur.Kind == lexer.LPAREN {
		p.next()
		var args []ast.Expr
		star := false
		if p.cur.Kind == lexer.STAR {
			star = true
			p.next()
		} else {
			for p.cur.Kind != lexer.RPAREN && p.err == nil {
				args = append(args, p.parseExpr())
				if p.cur.Kind == lexer.COMMA {
					p.next()
				} else {
					break
				}
			}
		}
		if _, ok := p.expect(lexer.RPAREN, ")"); !ok {
			return nil
		}
		return &ast.FuncCall{Name: strings.ToUpper(name), Args: args, Star: star}
	}

	if p.cur.Kind == lexer.DOT {
		p.next()
		col, ok := p.expectIdent()
		if !ok {
			return nil
		}
		return &ast.ColumnRef{Table: name, Column: col}
	}

	return &ast.ColumnRef{Column: name}
}
