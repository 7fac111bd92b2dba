package grammar

// tokenType represents the type of a lexical token in the rule DSL.
type tokenType uint8

const (
	// Special tokens
	tokenEOF tokenType = iota
	tokenError

	// Literals
	tokenIdent    // rule or symbol name
	tokenString   // "literal"
	tokenInt      // repetition bound
	tokenCharSet  // [a-z], value is the raw bracket contents
	tokenCharCode // %d65, %x41-5A, value is the raw form

	// Symbols
	tokenColon      // :
	tokenSemicolon  // ;
	tokenPipe       // |
	tokenStar       // *
	tokenPlus       // +
	tokenQuestion   // ?
	tokenBraceOpen  // {
	tokenBraceClose // }
	tokenComma      // ,
	tokenParenOpen  // (
	tokenParenClose // )
)

// String returns a string representation of the token type.
func (tt tokenType) String() string {
	switch tt {
	case tokenEOF:
		return "(eof)"
	case tokenError:
		return "(error)"
	case tokenIdent:
		return "(name)"
	case tokenString:
		return "(string)"
	case tokenInt:
		return "(int)"
	case tokenCharSet:
		return "(charset)"
	case tokenCharCode:
		return "(charcode)"
	case tokenColon:
		return ":"
	case tokenSemicolon:
		return ";"
	case tokenPipe:
		return "|"
	case tokenStar:
		return "*"
	case tokenPlus:
		return "+"
	case tokenQuestion:
		return "?"
	case tokenBraceOpen:
		return "{"
	case tokenBraceClose:
		return "}"
	case tokenComma:
		return ","
	case tokenParenOpen:
		return "("
	case tokenParenClose:
		return ")"
	default:
		return "(unknown)"
	}
}

// token is a lexical token with its source position.
type token struct {
	Type     tokenType
	Value    string
	Position int
}
