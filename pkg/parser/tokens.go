package parser

import "fmt"

// TokenType identifies the kind of a lexical token of the predicate
// and type-annotation language.
type TokenType uint8

const (
	TokenEOF TokenType = iota
	TokenError

	TokenInt     // 42
	TokenString  // "text"
	TokenBoolean // true, false
	TokenIdent   // names, builtins, type names

	TokenPlus     // +
	TokenMinus    // -
	TokenStar     // *
	TokenSlash    // /
	TokenPercent  // %
	TokenEq       // ==
	TokenNe       // !=
	TokenLt       // <
	TokenLe       // <=
	TokenGt       // >
	TokenGe       // >=
	TokenAnd      // &&
	TokenOr       // ||
	TokenNot      // !
	TokenIn       // in
	TokenQuestion // ?
	TokenColon    // :
	TokenArrow    // ->
	TokenPipe     // |

	TokenComma        // ,
	TokenParenOpen    // (
	TokenParenClose   // )
	TokenBracketOpen  // [
	TokenBracketClose // ]
	TokenBraceOpen    // {
	TokenBraceClose   // }
)

var tokenNames = map[TokenType]string{
	TokenEOF:          "end of input",
	TokenError:        "error",
	TokenInt:          "integer",
	TokenString:       "string",
	TokenBoolean:      "boolean",
	TokenIdent:        "identifier",
	TokenPlus:         `"+"`,
	TokenMinus:        `"-"`,
	TokenStar:         `"*"`,
	TokenSlash:        `"/"`,
	TokenPercent:      `"%"`,
	TokenEq:           `"=="`,
	TokenNe:           `"!="`,
	TokenLt:           `"<"`,
	TokenLe:           `"<="`,
	TokenGt:           `">"`,
	TokenGe:           `">="`,
	TokenAnd:          `"&&"`,
	TokenOr:           `"||"`,
	TokenNot:          `"!"`,
	TokenIn:           `"in"`,
	TokenQuestion:     `"?"`,
	TokenColon:        `":"`,
	TokenArrow:        `"->"`,
	TokenPipe:         `"|"`,
	TokenComma:        `","`,
	TokenParenOpen:    `"("`,
	TokenParenClose:   `")"`,
	TokenBracketOpen:  `"["`,
	TokenBracketClose: `"]"`,
	TokenBraceOpen:    `"{"`,
	TokenBraceClose:   `"}"`,
}

func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", tt)
}

// Token is a lexical token with its source position.
type Token struct {
	Type     TokenType
	Value    string
	Position int
}

// operatorName maps a binary operator token to the builtin name the
// typer and evaluator dispatch on.
var operatorName = map[TokenType]string{
	TokenPlus:    "+",
	TokenMinus:   "-",
	TokenStar:    "*",
	TokenSlash:   "/",
	TokenPercent: "%",
	TokenEq:      "==",
	TokenNe:      "!=",
	TokenLt:      "<",
	TokenLe:      "<=",
	TokenGt:      ">",
	TokenGe:      ">=",
	TokenAnd:     "&&",
	TokenOr:      "||",
	TokenIn:      "in",
}
