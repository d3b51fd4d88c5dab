// Package lexer turns template source into a token stream. Tokenize splits
// markup from text; the expression Lexer tokenizes what sits inside the
// delimiters.
package lexer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/funvibe/liquid/internal/config"
	"github.com/funvibe/liquid/internal/token"
)

// Error is a lexing failure with the line it occurred on.
type Error struct {
	Line int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

var (
	endRawPattern     = regexp.MustCompile(`\{%-?\s*endraw\s*-?%\}`)
	endCommentPattern = regexp.MustCompile(`\{%-?\s*endcomment\s*-?%\}`)
)

type scanner struct {
	src      string
	pos      int
	line     int
	tokens   []token.Token
	trimNext bool
}

// Tokenize splits source into TEXT, OUTPUT, TAG, RAW and COMMENT tokens,
// applying whitespace control, and appends EOF.
func Tokenize(source string) ([]token.Token, error) {
	s := &scanner{src: source, line: 1}
	if err := s.run(); err != nil {
		return nil, err
	}
	s.tokens = append(s.tokens, token.Token{Type: token.EOF, Line: s.line})
	return s.tokens, nil
}

func (s *scanner) run() error {
	for s.pos < len(s.src) {
		rest := s.src[s.pos:]
		idx := nextDelimiter(rest)
		if idx < 0 {
			s.text(rest)
			s.advance(len(rest))
			return nil
		}
		s.text(rest[:idx])
		s.advance(idx)

		var err error
		if strings.HasPrefix(s.src[s.pos:], "{{") {
			err = s.output()
		} else {
			err = s.tag()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func nextDelimiter(s string) int {
	out := strings.Index(s, "{{")
	tag := strings.Index(s, "{%")
	switch {
	case out < 0:
		return tag
	case tag < 0:
		return out
	case out < tag:
		return out
	}
	return tag
}

func (s *scanner) advance(n int) {
	s.line += strings.Count(s.src[s.pos:s.pos+n], "\n")
	s.pos += n
}

func (s *scanner) text(txt string) {
	if s.trimNext {
		txt = strings.TrimLeft(txt, " \t\r\n")
		s.trimNext = false
	}
	if txt == "" {
		return
	}
	s.tokens = append(s.tokens, token.Token{Type: token.TEXT, Literal: txt, Line: s.line})
}

// trimPrevious strips trailing whitespace from the last text token.
func (s *scanner) trimPrevious() {
	if n := len(s.tokens); n > 0 && s.tokens[n-1].Type == token.TEXT {
		trimmed := strings.TrimRight(s.tokens[n-1].Literal, " \t\r\n")
		if trimmed == "" {
			s.tokens = s.tokens[:n-1]
		} else {
			s.tokens[n-1].Literal = trimmed
		}
	}
}

// markup reads from the current "{{" or "{%" to the matching close and
// returns the trimmed inner source.
func (s *scanner) markup(close string) (string, error) {
	line := s.src[s.pos:]
	end := strings.Index(line[2:], close)
	if end < 0 {
		return "", &Error{Line: s.line, Msg: fmt.Sprintf("expected %q, found end of template", close)}
	}
	inner := line[2 : 2+end]
	s.trimNext = false
	if strings.HasPrefix(inner, "-") {
		s.trimPrevious()
		inner = inner[1:]
	}
	trimAfter := strings.HasSuffix(inner, "-")
	if trimAfter {
		inner = inner[:len(inner)-1]
	}
	s.advance(2 + end + len(close))
	s.trimNext = trimAfter
	return strings.TrimSpace(inner), nil
}

func (s *scanner) output() error {
	line := s.line
	expr, err := s.markup("}}")
	if err != nil {
		return err
	}
	s.tokens = append(s.tokens, token.Token{Type: token.OUTPUT, Value: expr, Line: line})
	return nil
}

func (s *scanner) tag() error {
	line := s.line
	inner, err := s.markup("%}")
	if err != nil {
		return err
	}
	name, expr := splitTag(inner)
	if name == "" {
		return &Error{Line: line, Msg: "missing tag name"}
	}

	switch name {
	case config.TagRaw:
		body, err := s.block(endRawPattern, config.TagEndRaw, line)
		if err != nil {
			return err
		}
		s.tokens = append(s.tokens, token.Token{Type: token.RAW, Literal: body, Line: line})
		return nil
	case config.TagComment:
		body, err := s.block(endCommentPattern, config.TagEndComment, line)
		if err != nil {
			return err
		}
		s.tokens = append(s.tokens, token.Token{Type: token.COMMENT, Literal: body, Line: line})
		return nil
	}

	s.tokens = append(s.tokens, token.Token{Type: token.TAG, Literal: name, Value: expr, Line: line})
	return nil
}

// block consumes everything up to the closing tag matched by end.
func (s *scanner) block(end *regexp.Regexp, endName string, line int) (string, error) {
	rest := s.src[s.pos:]
	loc := end.FindStringIndex(rest)
	if loc == nil {
		return "", &Error{Line: line, Msg: fmt.Sprintf("expected tag %s, found end of template", endName)}
	}
	body := rest[:loc[0]]
	closing := rest[loc[0]:loc[1]]
	if s.trimNext {
		body = strings.TrimLeft(body, " \t\r\n")
		s.trimNext = false
	}
	if strings.HasPrefix(closing, "{%-") {
		body = strings.TrimRight(body, " \t\r\n")
	}
	s.advance(loc[1])
	s.trimNext = strings.HasSuffix(closing, "-%}")
	return body, nil
}

func splitTag(inner string) (name, expr string) {
	idx := strings.IndexAny(inner, " \t\r\n")
	if idx < 0 {
		return inner, ""
	}
	return inner[:idx], strings.TrimSpace(inner[idx:])
}
