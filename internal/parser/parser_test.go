package parser

import (
	"errors"
	"testing"

	"github.com/funvibe/liquid/internal/ast"
)

func parse(t *testing.T, input string) *ast.Template {
	t.Helper()
	tmpl, err := Parse("test", input)
	if err != nil {
		t.Fatalf("parser error: %s", err)
	}
	return tmpl
}

func TestParseStructure(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello", "Hello"},
		{"{{ x }}", "`x`"},
		{"{{ a.b[0]['c'] }}", "`a.b[0].c`"},
		{`{{ "s" | append: 'x', y | upcase }}`, "`\"s\" | append: \"x\", y | upcase`"},
		{"{{ x.first }}", "`x.first`"},
		{"{% if a == 1 %}y{% endif %}", "if (a == 1) { y }"},
		{"{% if a %}1{% elsif b %}2{% else %}3{% endif %}", "if a { 1 } elsif b { 2 } else { 3 }"},
		{"{% if a and b or c %}x{% endif %}", "if (a and (b or c)) { x }"},
		{"{% if a contains 'z' %}x{% endif %}", "if (a contains \"z\") { x }"},
		{"{% unless a %}x{% else %}y{% endunless %}", "unless a { x } else { y }"},
		{"{% for x in (1..3) %}{{ x }}{% endfor %}", "for (x in (1..3)) { `x` }"},
		{"{% for x in xs limit:2 offset:1 reversed %}{% else %}none{% endfor %}",
			"for (x in xs limit:2 offset:1 reversed) {  } else { none }"},
		{"{% tablerow p in ps cols:3 %}{{ p }}{% endtablerow %}", "tablerow(p in ps cols:3) { `p` }"},
		{"{% assign x = y | size %}", "var x = y | size"},
		{"{% capture c %}a{{ b }}{% endcapture %}", "var c = { a`b` }"},
		{"{% increment n %}{% decrement n %}", "increment(n)decrement(n)"},
		{"{% cycle 'a', 'b' %}", "cycle(\"a\", \"b\")"},
		{"{% for x in xs %}{% break %}{% continue %}{% endfor %}", "for (x in xs) { breakcontinue }"},
		{"{% raw %}{{ x }}{% endraw %}", "raw{{{ x }}}"},
		{"a{% comment %}ignored{% endcomment %}b", "ab"},
	}
	for _, tt := range tests {
		tmpl := parse(t, tt.input)
		if got := tmpl.String(); got != tt.expected {
			t.Errorf("Parse(%q):\n got=%q\nwant=%q", tt.input, got, tt.expected)
		}
	}
}

func TestCycleGroupsAndKeys(t *testing.T) {
	tmpl := parse(t, `{% cycle "g": 'a', b %}{% cycle 'a', b %}`)
	first := tmpl.Nodes[0].(*ast.Cycle)
	second := tmpl.Nodes[1].(*ast.Cycle)

	if first.Group != "g" || len(first.Args) != 2 {
		t.Fatalf("grouped cycle: group=%q args=%d", first.Group, len(first.Args))
	}
	if first.Key() != `g:"a",b` || second.Key() != `:"a",b` {
		t.Errorf("keys: got=%q,%q", first.Key(), second.Key())
	}
}

func TestSyntaxErrors(t *testing.T) {
	tests := []string{
		"{% if x %}",
		"{% endif %}",
		"{% for x xs %}{% endfor %}",
		"{% for x in xs cols:2 %}{% endfor %}",
		"{% tablerow x in xs bogus:2 %}{% endtablerow %}",
		"{% break %}",
		"{% if x %}{% continue %}{% endif %}",
		"{% nope %}",
		"{{ }}",
		"{{ x | }}",
		"{{ a b }}",
		"{{ (1..) }}",
		"{% assign = 1 %}",
		"{% capture %}{% endcapture %}",
		"{{ x",
		"{{ 'open }}",
		"{% increment a b %}",
	}
	for _, input := range tests {
		_, err := Parse("bad", input)
		var syntaxErr *SyntaxError
		if !errors.As(err, &syntaxErr) {
			t.Errorf("Parse(%q): got err=%v, want *SyntaxError", input, err)
		}
	}
}

func TestSyntaxErrorLine(t *testing.T) {
	_, err := Parse("page", "line one\nline two\n{% if %}")
	var syntaxErr *SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("got err=%v", err)
	}
	if syntaxErr.Line != 3 || syntaxErr.Name != "page" {
		t.Errorf("location: got=%s:%d, want=page:3", syntaxErr.Name, syntaxErr.Line)
	}
}

func TestBreakInsideNestedBlocks(t *testing.T) {
	parse(t, "{% for x in xs %}{% if x %}{% capture c %}{% break %}{% endcapture %}{% endif %}{% endfor %}")
	parse(t, "{% tablerow x in xs %}{% unless x %}{% continue %}{% endunless %}{% endtablerow %}")
}
