package lexer

import "testing"

func collect(sql string) []Token {
	l := New(sql)
	var out []Token
	for {
		tok := l.NextToken()
		out = append(out, tok)
		if tok.Kind == EOF {
			return out
		}
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	toks := collect("SELECT id FROM t")
	want := []struct {
		kind  Kind
		value string
	}{
		{KEYWORD, "SELECT"}, {IDENT, "id"}, {KEYWORD, "FROM"}, {IDENT, "t"}, {EOF, ""},
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].Kind != w.kind || toks[i].Value != w.value {
			t.Fatalf("token %d: got %+v, want {%v %q}", i, toks[i], w.kind, w.value)
		}
	}
}

func TestNumberLiterals(t *testing.T) {
	toks := collect("42 3.14 2.5e10")
	if toks[0].Kind != INT || toks[0].Value != "42" {
		t.Fatalf("int literal: %+v", toks[0])
	}
	if toks[1].Kind != FLOAT || toks[1].Value != "3.14" {
		t.Fatalf("float literal: %+v", toks[1])
	}
	if toks[2].Kind != FLOAT || toks[2].Value != "2.5e10" {
		t.Fatalf("exponent float literal: %+v", toks[2])
	}
}

func TestStringLiteralsBothQuoteStyles(t *testing.T) {
	toks := collect(`'hello' "also"`)
	if toks[0].Kind != STRING || toks[0].Value != "hello" {
		t.Fatalf("single-quoted string: %+v", toks[0])
	}
	if toks[1].Kind != STRING || toks[1].Value != "also" {
		t.Fatalf("double-quoted string: %+v", toks[1])
	}
}

func TestBackslashEscapePassesThrough(t *testing.T) {
	toks := collect(`'line1\nline2'`)
	if toks[0].Kind != STRING || toks[0].Value != `line1\nline2` {
		t.Fatalf("expected backslash escape passed through unresolved, got %+v", toks[0])
	}
}

func TestUnterminatedStringIsIllegal(t *testing.T) {
	toks := collect(`'unterminated`)
	if toks[0].Kind != ILLEGAL {
		t.Fatalf("expected ILLEGAL token, got %+v", toks[0])
	}
}

func TestPositionalParameter(t *testing.T) {
	toks := collect("WHERE id = ?")
	last := toks[len(toks)-2]
	if last.Kind != PARAM {
		t.Fatalf("expected PARAM token before EOF, got %+v", last)
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	toks := collect("SELECT 1 -- trailing comment\n/* block */ , 2")
	kinds := make([]Kind, 0, len(toks))
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	want := []Kind{KEYWORD, INT, COMMA, INT, EOF}
	if len(kinds) != len(want) {
		t.Fatalf("got kinds %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kind %d: got %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestComparisonOperators(t *testing.T) {
	toks := collect("<> != <= >= < > =")
	want := []Kind{NEQ, NEQ, LE, GE, LT, GT, EQ, EOF}
	for i, w := range want {
		if toks[i].Kind != w {
			t.Fatalf("operator %d: got %v, want %v", i, toks[i].Kind, w)
		}
	}
}

func TestLineTrackingAcrossNewlines(t *testing.T) {
	toks := collect("SELECT 1\nFROM t\nWHERE 1=1")
	var fromLine int
	for _, tok := range toks {
		if IsKeyword(tok, "FROM") {
			fromLine = tok.Line
		}
	}
	if fromLine != 2 {
		t.Fatalf("expected FROM on line 2, got %d", fromLine)
	}
}
