// Package token defines the tokens produced by the template and expression
// lexers.
package token

import "fmt"

type Type int

const (
	ILLEGAL Type = iota
	EOF

	// Template level
	TEXT    // literal template text
	OUTPUT  // {{ ... }}, Value holds the expression source
	TAG     // {% name ... %}, Literal is the tag name, Value the expression source
	RAW     // body of a raw block
	COMMENT // body of a comment block

	// Expression level
	IDENT
	STRING
	INTEGER
	FLOAT

	DOT      // .
	RANGE    // ..
	LBRACKET // [
	RBRACKET // ]
	LPAREN   // (
	RPAREN   // )
	PIPE     // |
	COLON    // :
	COMMA    // ,
	ASSIGN   // =

	EQ // ==
	NE // != or <>
	LT // <
	GT // >
	LE // <=
	GE // >=

	// Keywords
	AND
	OR
	CONTAINS
	IN
	TRUE
	FALSE
	NIL
	EMPTY
	REVERSED
)

var names = map[Type]string{
	ILLEGAL: "ILLEGAL", EOF: "EOF",
	TEXT: "TEXT", OUTPUT: "OUTPUT", TAG: "TAG", RAW: "RAW", COMMENT: "COMMENT",
	IDENT: "IDENT", STRING: "STRING", INTEGER: "INTEGER", FLOAT: "FLOAT",
	DOT: ".", RANGE: "..", LBRACKET: "[", RBRACKET: "]", LPAREN: "(", RPAREN: ")",
	PIPE: "|", COLON: ":", COMMA: ",", ASSIGN: "=",
	EQ: "==", NE: "!=", LT: "<", GT: ">", LE: "<=", GE: ">=",
	AND: "and", OR: "or", CONTAINS: "contains", IN: "in",
	TRUE: "true", FALSE: "false", NIL: "nil", EMPTY: "empty", REVERSED: "reversed",
}

func (t Type) String() string {
	if s, ok := names[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

var keywords = map[string]Type{
	"and":      AND,
	"or":       OR,
	"contains": CONTAINS,
	"in":       IN,
	"true":     TRUE,
	"false":    FALSE,
	"nil":      NIL,
	"null":     NIL,
	"empty":    EMPTY,
	"reversed": REVERSED,
}

// LookupIdent returns the keyword type for ident, or IDENT.
func LookupIdent(ident string) Type {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

type Token struct {
	Type    Type
	Literal string
	Value   string
	Line    int
	Column  int
}

func (t Token) String() string {
	if t.Value != "" {
		return fmt.Sprintf("%s(%q %q)@%d", t.Type, t.Literal, t.Value, t.Line)
	}
	return fmt.Sprintf("%s(%q)@%d", t.Type, t.Literal, t.Line)
}
