package grammar

import (
	"unicode/utf8"

	"github.com/sandrolain/glot/pkg/types"
)

const eof = -1

// lexer converts grammar rule source text into a sequence of tokens.
// The implementation follows Rob Pike's "Lexical Scanning in Go"
// technique.
type lexer struct {
	input   string
	length  int
	start   int
	current int
	width   int
	err     error
}

func newLexer(input string) *lexer {
	return &lexer{
		input:  input,
		length: len(input),
	}
}

// next returns the next token from the input. When the end of the
// input is reached, next returns tokenEOF for all subsequent calls.
func (l *lexer) next() token {
	l.skipWhitespace()

	ch := l.nextRune()
	if ch == eof {
		return l.eofToken()
	}

	switch ch {
	case ':':
		return l.newToken(tokenColon)
	case ';':
		return l.newToken(tokenSemicolon)
	case '|':
		return l.newToken(tokenPipe)
	case '*':
		return l.newToken(tokenStar)
	case '+':
		return l.newToken(tokenPlus)
	case '?':
		return l.newToken(tokenQuestion)
	case '{':
		return l.newToken(tokenBraceOpen)
	case '}':
		return l.newToken(tokenBraceClose)
	case ',':
		return l.newToken(tokenComma)
	case '(':
		return l.newToken(tokenParenOpen)
	case ')':
		return l.newToken(tokenParenClose)
	case '"':
		l.ignore()
		return l.scanString()
	case '[':
		l.ignore()
		return l.scanCharSet()
	case '%':
		return l.scanCharCode()
	}

	if isDigit(ch) {
		l.acceptAll(isDigit)
		return l.newToken(tokenInt)
	}

	if isIdentStart(ch) {
		l.acceptAll(isIdentPart)
		return l.newToken(tokenIdent)
	}

	return l.errorToken(types.ErrRuleSyntax, "Unexpected character "+string(ch))
}

// Error returns the first error encountered during lexing, if any.
func (l *lexer) Error() error {
	return l.err
}

// scanString reads a string literal. The opening quote has already
// been consumed. Escape sequences are kept verbatim and decoded by the
// parser.
func (l *lexer) scanString() token {
Loop:
	for {
		switch l.nextRune() {
		case '"':
			break Loop
		case '\\':
			if r := l.nextRune(); r != eof {
				break
			}
			fallthrough
		case eof, '\n':
			return l.errorToken(types.ErrRuleStringNotClosed, "Unterminated string literal")
		}
	}

	l.backup()
	t := l.newToken(tokenString)
	l.acceptRune('"')
	l.ignore()
	return t
}

// scanCharSet reads the contents of a [lo-hi] character set. The
// opening bracket has already been consumed.
func (l *lexer) scanCharSet() token {
Loop:
	for {
		switch l.nextRune() {
		case ']':
			break Loop
		case eof, '\n':
			return l.errorToken(types.ErrRuleSyntax, "Unterminated character set")
		}
	}

	l.backup()
	t := l.newToken(tokenCharSet)
	l.acceptRune(']')
	l.ignore()
	return t
}

// scanCharCode reads a %dNN or %xHH character code, optionally with a
// -NN / -HH range suffix. The leading percent sign has already been
// consumed.
func (l *lexer) scanCharCode() token {
	if !l.acceptRunes2('d', 'x') {
		return l.errorToken(types.ErrRuleInvalidCharCode, "Expected d or x after %")
	}
	if !l.acceptAll(isHexDigit) {
		return l.errorToken(types.ErrRuleInvalidCharCode, "Missing character code digits")
	}
	if l.acceptRune('-') {
		if !l.acceptAll(isHexDigit) {
			return l.errorToken(types.ErrRuleInvalidCharCode, "Missing upper bound of character range")
		}
	}
	return l.newToken(tokenCharCode)
}

// Helper methods

func (l *lexer) eofToken() token {
	return token{
		Type:     tokenEOF,
		Position: l.current,
	}
}

func (l *lexer) errorToken(code types.ErrorCode, message string) token {
	t := l.newToken(tokenError)
	l.err = types.NewError(code, message, t.Position)
	return t
}

func (l *lexer) newToken(tt tokenType) token {
	t := token{
		Type:     tt,
		Value:    l.input[l.start:l.current],
		Position: l.start,
	}
	l.width = 0
	l.start = l.current
	return t
}

func (l *lexer) nextRune() rune {
	if l.current >= l.length {
		l.width = 0
		return eof
	}

	r, w := utf8.DecodeRuneInString(l.input[l.current:])
	l.width = w
	l.current += w
	return r
}

func (l *lexer) backup() {
	l.current -= l.width
}

func (l *lexer) ignore() {
	l.start = l.current
}

func (l *lexer) acceptRune(r rune) bool {
	return l.accept(func(c rune) bool {
		return c == r
	})
}

func (l *lexer) acceptRunes2(r1, r2 rune) bool {
	return l.accept(func(c rune) bool {
		return c == r1 || c == r2
	})
}

func (l *lexer) accept(isValid func(rune) bool) bool {
	if isValid(l.nextRune()) {
		return true
	}
	l.backup()
	return false
}

func (l *lexer) acceptAll(isValid func(rune) bool) bool {
	var matched bool
	for l.accept(isValid) {
		matched = true
	}
	return matched
}

// skipWhitespace consumes whitespace and // line comments.
func (l *lexer) skipWhitespace() {
	for {
		l.acceptAll(isWhitespace)
		l.ignore()

		if l.acceptRune('/') {
			if l.acceptRune('/') {
				for {
					ch := l.nextRune()
					if ch == eof || ch == '\n' {
						break
					}
				}
				l.ignore()
				continue
			}
			l.backup()
		}
		return
	}
}

// Character class helpers

func isWhitespace(ch rune) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch rune) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isIdentStart(ch rune) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch rune) bool {
	return isIdentStart(ch) || isDigit(ch) || ch == '-' || ch == '\''
}
