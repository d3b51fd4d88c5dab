package lexer

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/funvibe/liquid/internal/token"
)

type tok struct {
	Type    token.Type
	Literal string
	Value   string
	Line    int
}

func simplify(toks []token.Token) []tok {
	out := make([]tok, len(toks))
	for i, t := range toks {
		out[i] = tok{t.Type, t.Literal, t.Value, t.Line}
	}
	return out
}

func TestTokenize(t *testing.T) {
	input := "Hello {{ name | upcase }}!\n{% if x %}yes{% endif %}"
	toks, err := Tokenize(input)
	if err != nil {
		t.Fatal(err)
	}
	expected := []tok{
		{token.TEXT, "Hello ", "", 1},
		{token.OUTPUT, "", "name | upcase", 1},
		{token.TEXT, "!\n", "", 1},
		{token.TAG, "if", "x", 2},
		{token.TEXT, "yes", "", 2},
		{token.TAG, "endif", "", 2},
		{token.EOF, "", "", 2},
	}
	if diff := cmp.Diff(expected, simplify(toks)); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestWhitespaceControl(t *testing.T) {
	input := "a  \n{%- if x -%}\n  b  {{- y -}}  c"
	toks, err := Tokenize(input)
	if err != nil {
		t.Fatal(err)
	}
	expected := []tok{
		{token.TEXT, "a", "", 1},
		{token.TAG, "if", "x", 2},
		{token.TEXT, "b", "", 2},
		{token.OUTPUT, "", "y", 3},
		{token.TEXT, "c", "", 3},
		{token.EOF, "", "", 3},
	}
	if diff := cmp.Diff(expected, simplify(toks)); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestRawAndComment(t *testing.T) {
	input := "{% raw %}{{ not parsed }}{% endraw %}{% comment %}{% if %}{% endcomment %}x"
	toks, err := Tokenize(input)
	if err != nil {
		t.Fatal(err)
	}
	expected := []tok{
		{token.RAW, "{{ not parsed }}", "", 1},
		{token.COMMENT, "{% if %}", "", 1},
		{token.TEXT, "x", "", 1},
		{token.EOF, "", "", 1},
	}
	if diff := cmp.Diff(expected, simplify(toks)); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestUnterminated(t *testing.T) {
	for _, input := range []string{"{{ x ", "\n{% if x", "{% raw %}abc", "{%  %}"} {
		_, err := Tokenize(input)
		var lexErr *Error
		if !errors.As(err, &lexErr) {
			t.Errorf("Tokenize(%q): got err=%v, want *Error", input, err)
		}
	}
}

func TestExpressionLexer(t *testing.T) {
	input := `product.tags[0] | join: ", " == 1.5 != -2 <> x <= y >= z < a > b (1..3) and or contains in reversed empty nil null true false cols:2 has-dash? x = 'q'`
	expected := []struct {
		typ     token.Type
		literal string
	}{
		{token.IDENT, "product"}, {token.DOT, "."}, {token.IDENT, "tags"},
		{token.LBRACKET, "["}, {token.INTEGER, "0"}, {token.RBRACKET, "]"},
		{token.PIPE, "|"}, {token.IDENT, "join"}, {token.COLON, ":"}, {token.STRING, ", "},
		{token.EQ, "=="}, {token.FLOAT, "1.5"}, {token.NE, "!="}, {token.INTEGER, "-2"},
		{token.NE, "<>"}, {token.IDENT, "x"}, {token.LE, "<="}, {token.IDENT, "y"},
		{token.GE, ">="}, {token.IDENT, "z"}, {token.LT, "<"}, {token.IDENT, "a"},
		{token.GT, ">"}, {token.IDENT, "b"},
		{token.LPAREN, "("}, {token.INTEGER, "1"}, {token.RANGE, ".."}, {token.INTEGER, "3"}, {token.RPAREN, ")"},
		{token.AND, "and"}, {token.OR, "or"}, {token.CONTAINS, "contains"}, {token.IN, "in"},
		{token.REVERSED, "reversed"}, {token.EMPTY, "empty"}, {token.NIL, "nil"}, {token.NIL, "null"},
		{token.TRUE, "true"}, {token.FALSE, "false"},
		{token.IDENT, "cols"}, {token.COLON, ":"}, {token.INTEGER, "2"},
		{token.IDENT, "has-dash?"}, {token.IDENT, "x"}, {token.ASSIGN, "="}, {token.STRING, "q"},
		{token.EOF, ""},
	}

	l := New(input, 1)
	for i, want := range expected {
		got := l.NextToken()
		if got.Type != want.typ || got.Literal != want.literal {
			t.Fatalf("token %d: got=%s(%q), want=%s(%q)", i, got.Type, got.Literal, want.typ, want.literal)
		}
	}
}

func TestExpressionLexerIllegal(t *testing.T) {
	toks := New(`"open`, 1).Tokenize()
	if toks[0].Type != token.ILLEGAL {
		t.Errorf("unterminated string: got=%s", toks[0].Type)
	}
	toks = New(`a ! b`, 1).Tokenize()
	if toks[1].Type != token.ILLEGAL {
		t.Errorf("bare bang: got=%s", toks[1].Type)
	}
}
