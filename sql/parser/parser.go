// Package parser implements SpeedSQL's recursive-descent SQL parser,
// per spec.md §4.8's grammar.
//
// Grounded on query_parser/parser/parser.go: the two-token-lookahead
// (curToken/peekToken) scanning discipline and one-parseX-method-per-
// statement layout survive unchanged. The teacher's parser panics on
// a bad token; spec.md §4.8 instead requires "errors are non-fatal at
// the token level; once set, the parser records the first error and
// stops producing a tree" — so every parseX method here checks/sets a
// sticky p.err instead of panicking, and ParseStatement reports it
// through a normal error return.
package parser

import (
	"fmt"

	"github.com/kjm99d/SpeedSQL/dberr"
	"github.com/kjm99d/SpeedSQL/sql/ast"
	"github.com/kjm99d/SpeedSQL/sql/lexer"
)

type Parser struct {
	l    *lexer.Lexer
	cur  lexer.Token
	peek lexer.Token
	err  error

	nextParam int
}

// New builds a parser over sql. Call ParseStatement to get one
// statement at a time; the parser's position advances past it
// (including any trailing semicolon), so repeated calls implement
// spec.md §4.9's multi-statement exec loop.
func New(sql string) *Parser {
	p := &Parser{l: lexer.New(sql), nextParam: 1}
	p.next()
	p.next()
	return p
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

// AtEOF reports whether the parser has consumed the entire input
// (aside from trailing whitespace/semicolons).
func (p *Parser) AtEOF() bool { return p.cur.Kind == lexer.EOF }

func (p *Parser) fail(format string, args ...any) {
	if p.err != nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if p.cur.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", p.cur.Line, msg)
	}
	p.err = dberr.New(dberr.Error, msg)
}

func (p *Parser) atKeyword(name string) bool { return lexer.IsKeyword(p.cur, name) }

func (p *Parser) peekKeyword(name string) bool { return lexer.IsKeyword(p.peek, name) }

// eatKeyword consumes the named keyword if present and reports whether it did.
func (p *Parser) eatKeyword(name string) bool {
	if p.atKeyword(name) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) expectKeyword(name string) bool {
	if !p.atKeyword(name) {
		p.fail("expected %s, got %q", name, p.cur.Value)
		return false
	}
	p.next()
	return true
}

func (p *Parser) expect(kind lexer.Kind, what string) (lexer.Token, bool) {
	if p.cur.Kind != kind {
		p.fail("expected %s, got %q", what, p.cur.Value)
		return lexer.Token{}, false
	}
	tok := p.cur
	p.next()
	return tok, true
}

func (p *Parser) expectIdent() (string, bool) {
	if p.cur.Kind != lexer.IDENT {
		p.fail("expected identifier, got %q", p.cur.Value)
		return "", false
	}
	v := p.cur.Value
	p.next()
	return v, true
}

// ParseStatement parses and returns the next statement in the input.
// On a syntax error it returns the first error encountered; subsequent
// calls on the same Parser continue to return that same error.
func (p *Parser) ParseStatement() (ast.Statement, error) {
	if p.err != nil {
		return nil, p.err
	}
	stmt := p.parseStatement()
	if p.err != nil {
		return nil, p.err
	}
	for p.cur.Kind == lexer.SEMI {
		p.next()
	}
	return stmt, nil
}

func (p *Parser) parseStatement() ast.Statement {
	switch {
	case p.atKeyword("SELECT"):
		return p.parseSelect()
	case p.atKeyword("INSERT"):
		return p.parseInsert()
	case p.atKeyword("UPDATE"):
		return p.parseUpdate()
	case p.atKeyword("DELETE"):
		return p.parseDelete()
	case p.atKeyword("CREATE"):
		return p.parseCreate()
	case p.atKeyword("DROP"):
		return p.parseDrop()
	case p.atKeyword("BEGIN"):
		p.next()
		p.eatKeyword("TRANSACTION")
		return &ast.BeginStmt{}
	case p.atKeyword("COMMIT"):
		p.next()
		return &ast.CommitStmt{}
	case p.atKeyword("ROLLBACK"):
		return p.parseRollback()
	case p.atKeyword("SAVEPOINT"):
		p.next()
		name, ok := p.expectIdent()
		if !ok {
			return nil
		}
		return &ast.SavepointStmt{Name: name}
	case p.atKeyword("RELEASE"):
		p.next()
		p.eatKeyword("SAVEPOINT")
		name, ok := p.expectIdent()
		if !ok {
			return nil
		}
		return &ast.ReleaseStmt{Name: name}
	default:
		p.fail("unexpected token %q", p.cur.Value)
		return nil
	}
}

func (p *Parser) parseRollback() ast.Statement {
	p.next() // ROLLBACK
	if !p.eatKeyword("TO") {
		return &ast.RollbackStmt{}
	}
	p.eatKeyword("SAVEPOINT")
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	return &ast.RollbackStmt{To: name}
}
