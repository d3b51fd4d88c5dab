package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/funvibe/liquid/internal/token"
)

// Lexer splits an expression (the inside of an output statement or the
// arguments of a tag) into tokens.
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int
	column       int
}

// New returns a lexer for an expression that starts on line.
func New(input string, line int) *Lexer {
	l := &Lexer{input: input, line: line}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	l.position = l.readPosition
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.readPosition++
		l.column++
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.readPosition += w
	l.column++
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) newToken(typ token.Type, literal string, line, col int) token.Token {
	return token.Token{Type: typ, Literal: literal, Line: line, Column: col}
}

// NextToken returns the next token, EOF at the end of input.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()
	line, col := l.line, l.column

	var tok token.Token
	switch l.ch {
	case 0:
		return l.newToken(token.EOF, "", line, col)
	case '.':
		if l.peekChar() == '.' {
			l.readChar()
			tok = l.newToken(token.RANGE, "..", line, col)
		} else {
			tok = l.newToken(token.DOT, ".", line, col)
		}
	case '[':
		tok = l.newToken(token.LBRACKET, "[", line, col)
	case ']':
		tok = l.newToken(token.RBRACKET, "]", line, col)
	case '(':
		tok = l.newToken(token.LPAREN, "(", line, col)
	case ')':
		tok = l.newToken(token.RPAREN, ")", line, col)
	case '|':
		tok = l.newToken(token.PIPE, "|", line, col)
	case ':':
		tok = l.newToken(token.COLON, ":", line, col)
	case ',':
		tok = l.newToken(token.COMMA, ",", line, col)
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.newToken(token.EQ, "==", line, col)
		} else {
			tok = l.newToken(token.ASSIGN, "=", line, col)
		}
	case '!':
		if l.peekChar() != '=' {
			tok = l.newToken(token.ILLEGAL, "!", line, col)
			break
		}
		l.readChar()
		tok = l.newToken(token.NE, "!=", line, col)
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok = l.newToken(token.LE, "<=", line, col)
		case '>':
			l.readChar()
			tok = l.newToken(token.NE, "<>", line, col)
		default:
			tok = l.newToken(token.LT, "<", line, col)
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.newToken(token.GE, ">=", line, col)
		} else {
			tok = l.newToken(token.GT, ">", line, col)
		}
	case '"', '\'':
		return l.readString(line, col)
	case '-':
		if isDigit(l.peekChar()) {
			return l.readNumber(line, col)
		}
		tok = l.newToken(token.ILLEGAL, "-", line, col)
	default:
		if isLetter(l.ch) {
			ident := l.readIdentifier()
			return l.newToken(token.LookupIdent(ident), ident, line, col)
		}
		if isDigit(l.ch) {
			return l.readNumber(line, col)
		}
		tok = l.newToken(token.ILLEGAL, string(l.ch), line, col)
	}

	l.readChar()
	return tok
}

// Tokenize returns every token up to and including EOF.
func (l *Lexer) Tokenize() []token.Token {
	var out []token.Token
	for {
		tok := l.NextToken()
		out = append(out, tok)
		if tok.Type == token.EOF {
			return out
		}
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '-' {
		l.readChar()
	}
	if l.ch == '?' {
		l.readChar()
	}
	return l.input[start:l.position]
}

func (l *Lexer) readNumber(line, col int) token.Token {
	start := l.position
	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}
	typ := token.INTEGER
	// A single dot followed by a digit makes a float; ".." is a range.
	if l.ch == '.' && isDigit(l.peekChar()) {
		typ = token.FLOAT
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.newToken(typ, l.input[start:l.position], line, col)
}

func (l *Lexer) readString(line, col int) token.Token {
	quote := l.ch
	l.readChar()
	var sb strings.Builder
	for l.ch != quote {
		if l.ch == 0 {
			return l.newToken(token.ILLEGAL, "unterminated string", line, col)
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	l.readChar()
	return l.newToken(token.STRING, sb.String(), line, col)
}

func isLetter(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}
