package interp

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenType int

const (
	tokenText   tokenType = iota // literal text
	tokenOpen                    // ${
	tokenClose                   // }
	tokenIdent                   // model, Name, partial
	tokenDot                     // .
	tokenComma                   // ,
	tokenLParen                  // (
	tokenRParen                  // )
	tokenString                  // "footer"
	tokenEOF
	tokenError
)

func (t tokenType) String() string {
	switch t {
	case tokenText:
		return "text"
	case tokenOpen:
		return "'${'"
	case tokenClose:
		return "'}'"
	case tokenIdent:
		return "identifier"
	case tokenDot:
		return "'.'"
	case tokenComma:
		return "','"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenString:
		return "string"
	case tokenEOF:
		return "end of input"
	default:
		return "error"
	}
}

const eof rune = -1

const (
	openDelim  = "${"
	closeDelim = "}"
	escape     = "$$"
)

type position struct {
	line int
	col  int
}

func (p position) String() string {
	return fmt.Sprintf("%d:%d", p.line, p.col)
}

type token struct {
	typ tokenType
	val string
	pos position
}

type lexer struct {
	input  string
	start  int
	pos    int
	width  int
	line   int
	col    int
	prev   position
	begin  position
	open   position
	tokens []token
}

type lexerState func(l *lexer) lexerState

// lex scans input eagerly; parse walks the resulting slice. After an error
// token the lexer resumes at the next line or closing brace so one pass can
// report several problems.
func lex(input string) []token {
	l := &lexer{
		input: input,
		line:  1,
		col:   1,
		begin: position{line: 1, col: 1},
	}
	for state := lexText; state != nil; {
		state = state(l)
	}
	return l.tokens
}

func (l *lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += w
	l.prev = position{line: l.line, col: l.col}
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

// backup undoes a single next call.
func (l *lexer) backup() {
	if l.width == 0 {
		return
	}
	l.pos -= l.width
	l.line, l.col = l.prev.line, l.prev.col
	l.width = 0
}

func (l *lexer) skip(n int) {
	for i := 0; i < n; i++ {
		l.next()
	}
}

func (l *lexer) emit(typ tokenType) {
	l.emitValue(typ, l.input[l.start:l.pos])
}

func (l *lexer) emitValue(typ tokenType, val string) {
	l.tokens = append(l.tokens, token{typ: typ, val: val, pos: l.begin})
	l.ignore()
}

func (l *lexer) ignore() {
	l.start = l.pos
	l.begin = position{line: l.line, col: l.col}
}

func (l *lexer) errorf(format string, args ...any) lexerState {
	l.errorAt(l.begin, format, args...)
	return lexRecover
}

func (l *lexer) errorAt(pos position, format string, args ...any) {
	l.tokens = append(l.tokens, token{typ: tokenError, val: fmt.Sprintf(format, args...), pos: pos})
}

// unterminated reports an expression left open at the end of a line or of
// the input and resumes scanning text from the current position.
func (l *lexer) unterminated(message string) lexerState {
	l.errorAt(l.open, "%s", message)
	l.ignore()
	return lexText
}

func lexRecover(l *lexer) lexerState {
	for {
		switch r := l.next(); r {
		case eof:
			l.ignore()
			return lexText
		case '\n', '}':
			l.ignore()
			return lexText
		}
	}
}

func lexText(l *lexer) lexerState {
	var text strings.Builder
	textStart := l.begin
	flush := func() {
		if text.Len() == 0 {
			return
		}
		l.tokens = append(l.tokens, token{typ: tokenText, val: text.String(), pos: textStart})
		text.Reset()
	}

	for {
		rest := l.input[l.pos:]
		switch {
		case strings.HasPrefix(rest, escape):
			l.skip(len(escape))
			text.WriteByte('$')
		case strings.HasPrefix(rest, openDelim):
			flush()
			l.ignore()
			l.open = l.begin
			l.skip(len(openDelim))
			l.emit(tokenOpen)
			return lexInside
		default:
			r := l.next()
			if r == eof {
				flush()
				l.ignore()
				l.emit(tokenEOF)
				return nil
			}
			// raw bytes, so invalid UTF-8 passes through unchanged
			text.WriteString(l.input[l.pos-l.width : l.pos])
			continue
		}
		l.ignore()
	}
}

func lexInside(l *lexer) lexerState {
	for {
		r := l.next()
		switch {
		case r == eof, r == '\n':
			return l.unterminated(fmt.Sprintf("unterminated expression, missing %q", closeDelim))
		case unicode.IsSpace(r):
			l.ignore()
		case r == '}':
			l.emit(tokenClose)
			return lexText
		case r == '.':
			l.emit(tokenDot)
		case r == ',':
			l.emit(tokenComma)
		case r == '(':
			l.emit(tokenLParen)
		case r == ')':
			l.emit(tokenRParen)
		case r == '"':
			return lexString
		case isIdentStart(r):
			l.backup()
			return lexIdent
		default:
			return l.errorf("unexpected character %q in expression", r)
		}
	}
}

func lexIdent(l *lexer) lexerState {
	for {
		r := l.next()
		if r == eof || !isIdentPart(r) {
			l.backup()
			break
		}
	}
	l.emit(tokenIdent)
	return lexInside
}

func lexString(l *lexer) lexerState {
	var value strings.Builder
	for {
		r := l.next()
		switch r {
		case eof, '\n':
			return l.unterminated("unterminated string literal")
		case '\\':
			escaped := l.next()
			switch escaped {
			case '"', '\\':
				value.WriteRune(escaped)
			case eof, '\n':
				return l.unterminated("unterminated string literal")
			default:
				return l.errorf("unknown escape sequence \\%c", escaped)
			}
		case '"':
			l.emitValue(tokenString, value.String())
			return lexInside
		default:
			value.WriteRune(r)
		}
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}
