package lexer

import "testing"

func kinds(src string) []Kind {
	l := New("test", src)
	var out []Kind
	for {
		t := l.Next()
		out = append(out, t.Kind)
		if t.Kind == EOF || t.Kind == Error {
			break
		}
	}
	return out
}

func assertKinds(t *testing.T, src string, want ...Kind) {
	t.Helper()
	got := kinds(src)
	if len(got) != len(want) {
		t.Fatalf("%q: got %v, want %v", src, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%q: token %d: got %v, want %v (full: %v)", src, i, got[i], want[i], got)
		}
	}
}

func TestASINewline(t *testing.T) {
	assertKinds(t, "x := 1\ny := 2\n", Ident, Declare, Number, Semi, Ident, Declare, Number, Semi, EOF)
}

func TestASIBlankLinesCollapse(t *testing.T) {
	assertKinds(t, "x := 1\n\n\ny := 2\n", Ident, Declare, Number, Semi, Ident, Declare, Number, Semi, EOF)
}

func TestASINoSemiInParens(t *testing.T) {
	assertKinds(t, "f(1,\n2)\n", Ident, LParen, Number, Comma, Number, RParen, Semi, EOF)
}

func TestASINoSemiInBrackets(t *testing.T) {
	assertKinds(t, "[1,\n2]\n", LBracket, Number, Comma, Number, RBracket, Semi, EOF)
}

func TestASIBraceDictLiteral(t *testing.T) {
	// Not primed by a blocky keyword: '{' opens an expression-level block,
	// so no synthetic semicolon is inserted before the newline.
	assertKinds(t, "d := {\"a\": 1,\n\"b\": 2}\n", Ident, Declare, LBrace, String, Colon, Number, Comma, String, Colon, Number, RBrace, Semi, EOF)
}

func TestASIBraceStatementBlock(t *testing.T) {
	assertKinds(t, "if true {\nx := 1\n}\n", If, True, LBrace, Ident, Declare, Number, Semi, RBrace, Semi, EOF)
}

func TestASIEOFTrailingSemi(t *testing.T) {
	assertKinds(t, "x := 1", Ident, Declare, Number, Semi, EOF)
}

func TestBlockyKeywordAsIdentifierStillPrimes(t *testing.T) {
	// The spec documents this as intentional: any lexeme spelled like a
	// blocky keyword primes the next '{', even outside blocky grammar.
	assertKinds(t, "for {\nx := 1\n}\n", For, LBrace, Ident, Declare, Number, Semi, RBrace, Semi, EOF)
}

func TestStringEscapes(t *testing.T) {
	l := New("test", `"a\nb\t\"c\""`)
	tok := l.Next()
	if tok.Kind != String {
		t.Fatalf("got %v", tok.Kind)
	}
	if tok.Text != "a\nb\t\"c\"" {
		t.Fatalf("got %q", tok.Text)
	}
}

func TestUnterminatedStringIsEOFError(t *testing.T) {
	l := New("test", `"abc`)
	tok := l.Next()
	if tok.Kind != Error || !tok.EOFErr {
		t.Fatalf("got %+v", tok)
	}
}

func TestNumberLiteralWithSeparators(t *testing.T) {
	l := New("test", "1'000.500")
	tok := l.Next()
	if tok.Kind != Number || tok.Text != "1'000.500" {
		t.Fatalf("got %+v", tok)
	}
}
