package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/sandrolain/glot/pkg/types"
)

const eof rune = -1

// Lexer tokenizes predicate and type-annotation source text.
type Lexer struct {
	input   string
	start   int
	current int
	width   int
	err     error
}

// NewLexer creates a lexer over input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Error returns the first error encountered during lexing, if any.
func (l *Lexer) Error() error {
	return l.err
}

// Next returns the next token. When the end of the input is reached it
// returns TokenEOF for all subsequent calls.
func (l *Lexer) Next() Token {
	l.skipWhitespace()

	ch := l.nextRune()
	if ch == eof {
		return Token{Type: TokenEOF, Position: l.current}
	}

	switch ch {
	case '+':
		return l.newToken(TokenPlus)
	case '*':
		return l.newToken(TokenStar)
	case '/':
		return l.newToken(TokenSlash)
	case '%':
		return l.newToken(TokenPercent)
	case '?':
		return l.newToken(TokenQuestion)
	case ':':
		return l.newToken(TokenColon)
	case ',':
		return l.newToken(TokenComma)
	case '(':
		return l.newToken(TokenParenOpen)
	case ')':
		return l.newToken(TokenParenClose)
	case '[':
		return l.newToken(TokenBracketOpen)
	case ']':
		return l.newToken(TokenBracketClose)
	case '{':
		return l.newToken(TokenBraceOpen)
	case '}':
		return l.newToken(TokenBraceClose)
	case '-':
		if l.acceptRune('>') {
			return l.newToken(TokenArrow)
		}
		return l.newToken(TokenMinus)
	case '=':
		if l.acceptRune('=') {
			return l.newToken(TokenEq)
		}
		return l.errorToken(types.ErrPredicateSyntax, `Unexpected "=", did you mean "=="?`)
	case '!':
		if l.acceptRune('=') {
			return l.newToken(TokenNe)
		}
		return l.newToken(TokenNot)
	case '<':
		if l.acceptRune('=') {
			return l.newToken(TokenLe)
		}
		return l.newToken(TokenLt)
	case '>':
		if l.acceptRune('=') {
			return l.newToken(TokenGe)
		}
		return l.newToken(TokenGt)
	case '&':
		if l.acceptRune('&') {
			return l.newToken(TokenAnd)
		}
		return l.errorToken(types.ErrPredicateSyntax, `Unexpected "&", did you mean "&&"?`)
	case '|':
		if l.acceptRune('|') {
			return l.newToken(TokenOr)
		}
		return l.newToken(TokenPipe)
	case '"':
		return l.scanString()
	}

	if ch >= '0' && ch <= '9' {
		l.acceptAll(isDigit)
		return l.newToken(TokenInt)
	}
	if isIdentStart(ch) {
		l.acceptAll(isIdentPart)
		return l.identToken()
	}

	return l.errorToken(types.ErrPredicateSyntax, "Unexpected character "+string(ch))
}

// scanString reads a string literal; the opening quote has already
// been consumed. Escape sequences are decoded here.
func (l *Lexer) scanString() Token {
	var sb strings.Builder
	for {
		switch ch := l.nextRune(); ch {
		case '"':
			t := Token{Type: TokenString, Value: sb.String(), Position: l.start}
			l.start = l.current
			return t
		case '\\':
			switch esc := l.nextRune(); esc {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			case eof:
				return l.errorToken(types.ErrStringNotClosed, "Unterminated string literal")
			default:
				sb.WriteRune(esc)
			}
		case eof, '\n':
			return l.errorToken(types.ErrStringNotClosed, "Unterminated string literal")
		default:
			sb.WriteRune(ch)
		}
	}
}

func (l *Lexer) identToken() Token {
	t := l.newToken(TokenIdent)
	switch t.Value {
	case "true", "false":
		t.Type = TokenBoolean
	case "in":
		t.Type = TokenIn
	}
	return t
}

func (l *Lexer) newToken(tt TokenType) Token {
	t := Token{
		Type:     tt,
		Value:    l.input[l.start:l.current],
		Position: l.start,
	}
	l.width = 0
	l.start = l.current
	return t
}

func (l *Lexer) errorToken(code types.ErrorCode, message string) Token {
	t := l.newToken(TokenError)
	l.err = types.NewError(code, message, t.Position)
	return t
}

func (l *Lexer) nextRune() rune {
	if l.current >= len(l.input) {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.current:])
	l.width = w
	l.current += w
	return r
}

func (l *Lexer) backup() {
	l.current -= l.width
	l.width = 0
}

func (l *Lexer) acceptRune(r rune) bool {
	if l.nextRune() == r {
		return true
	}
	l.backup()
	return false
}

func (l *Lexer) acceptAll(isValid func(rune) bool) {
	for {
		ch := l.nextRune()
		if ch == eof {
			return
		}
		if !isValid(ch) {
			l.backup()
			return
		}
	}
}

func (l *Lexer) skipWhitespace() {
	l.acceptAll(func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	l.start = l.current
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch rune) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch rune) bool {
	return isIdentStart(ch) || isDigit(ch) || ch == '\''
}
