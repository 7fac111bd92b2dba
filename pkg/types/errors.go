package types

import "fmt"

// ErrorCode identifies a structured glot error.
type ErrorCode string

// Error codes, grouped by component.
const (
	// G01xx: grammar rule syntax
	ErrRuleSyntax          ErrorCode = "G0101"
	ErrRuleStringNotClosed ErrorCode = "G0102"
	ErrRuleInvalidCharCode ErrorCode = "G0103"
	ErrRuleCommentNotClose ErrorCode = "G0104"

	// G02xx: grammar definition
	ErrRedefinedRule     ErrorCode = "G0201"
	ErrMissingStartRule  ErrorCode = "G0202"
	ErrUnusedRule        ErrorCode = "G0203"
	ErrUndefinedSymbol   ErrorCode = "G0204"
	ErrInvalidCharRange  ErrorCode = "G0205"
	ErrInvalidRepetition ErrorCode = "G0206"
	ErrStartReferenced   ErrorCode = "G0207"

	// G03xx: word parsing
	ErrSyntaxError ErrorCode = "G0301"

	// P01xx: path selectors
	ErrPathSyntax          ErrorCode = "P0101"
	ErrPathUndefinedSymbol ErrorCode = "P0102"
	ErrPathUnreachable     ErrorCode = "P0103"
	ErrPathNotUnique       ErrorCode = "P0104"
	ErrPathNoMatch         ErrorCode = "P0105"

	// S01xx: predicate expression syntax
	ErrPredicateSyntax  ErrorCode = "S0101"
	ErrStringNotClosed  ErrorCode = "S0102"
	ErrNumberOutOfRange ErrorCode = "S0103"
	ErrUnexpectedEnd    ErrorCode = "S0104"
	ErrExpectedToken    ErrorCode = "S0105"

	// T01xx: name resolution
	ErrUndefinedName ErrorCode = "T0101"
	ErrRedefinedName ErrorCode = "T0102"

	// T02xx: type checking
	ErrArityMismatch    ErrorCode = "T0201"
	ErrTypeMismatch     ErrorCode = "T0202"
	ErrExpectSimpleType ErrorCode = "T0203"
	ErrMissingTypeAnnot ErrorCode = "T0204"
	ErrNotAFunction     ErrorCode = "T0205"

	// D01xx: generation
	ErrSolverExhausted ErrorCode = "D0101"
	ErrRetriesExceeded ErrorCode = "D0102"
	ErrNoProducer      ErrorCode = "D0103"

	// E01xx: predicate evaluation
	ErrEvalFailed ErrorCode = "E0101"
)

// Error represents a structured glot error.
//
// Position is a byte offset into the source text the error refers to
// (grammar rules, a path literal, or a predicate expression); it is -1
// when no source location applies. Related optionally points at a second
// location, e.g. the earlier definition for a redefined-name error.
type Error struct {
	Code     ErrorCode
	Message  string
	Position int
	Related  int
	Hint     string
	Err      error
}

// NewError creates a new glot error.
func NewError(code ErrorCode, message string, position int) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Position: position,
		Related:  -1,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Position >= 0 {
		msg = fmt.Sprintf("%s at position %d: %s", e.Code, e.Position, e.Message)
	} else {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Hint != "" {
		msg += " (hint: " + e.Hint + ")"
	}
	return msg
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithHint attaches a human-readable suggestion to the error.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// WithRelated attaches a second source position, e.g. the location of a
// conflicting earlier definition.
func (e *Error) WithRelated(position int) *Error {
	e.Related = position
	return e
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// ContractKind distinguishes the runtime contract violations surfaced
// during execution or fuzzing.
type ContractKind uint8

const (
	// PreconditionViolated reports a violated requires-clause.
	PreconditionViolated ContractKind = iota
	// PostconditionViolated reports a violated ensures-clause.
	PostconditionViolated
	// ArgTypeMismatch reports an argument value outside its declared type.
	ArgTypeMismatch
	// ReturnTypeMismatch reports a return value outside its declared type.
	ReturnTypeMismatch
)

// String returns a human-readable name of the contract kind.
func (k ContractKind) String() string {
	switch k {
	case PreconditionViolated:
		return "precondition violated"
	case PostconditionViolated:
		return "postcondition violated"
	case ArgTypeMismatch:
		return "argument type mismatch"
	case ReturnTypeMismatch:
		return "return type mismatch"
	default:
		return "contract violated"
	}
}

// ContractError is the runtime counterpart of the compile-time error
// taxonomy: a violated contract observed while executing a target under
// test. It aborts only the current test iteration; the fuzz driver
// records it as a distinct outcome, separate from unrelated failures.
type ContractError struct {
	Kind     ContractKind
	Fn       string   // name of the function whose contract was violated
	Cond     string   // source text of the violated condition, if known
	Details  []string // pretty-printed argument and return bindings
	Position int      // source position of the condition, -1 if unknown
}

// Error implements the error interface.
func (e *ContractError) Error() string {
	msg := e.Kind.String()
	if e.Fn != "" {
		msg += " in " + e.Fn
	}
	if e.Cond != "" {
		msg += ": " + e.Cond
	}
	return msg
}
