package types

import "strings"

// GrammarRef is the read-only view of a compiled grammar that the type
// system, path validation and predicate evaluation need. The concrete
// implementation lives in pkg/grammar; once built it is immutable and
// safe for concurrent use.
type GrammarRef interface {
	// Name returns the lang name the grammar was defined under.
	Name() string
	// Member reports whether word belongs to the language.
	Member(word string) bool
	// ParseTree parses word into a derivation tree rooted at start.
	ParseTree(word string) (*DerivationTree, error)
	// Count reports whether target can appear under the clause of the
	// rule named within: 0 never, 1 exactly once on every derivation,
	// 2 possibly more or indeterminate. With direct set, only direct
	// children are considered.
	Count(target, within string, direct bool) int
	// IsDefined reports whether symbol names a rule of the grammar.
	IsDefined(symbol string) bool
}

// NormalForm is a type in normal form: either a SimpleType or a
// Refinement of a simple base. Normalization guarantees refinements are
// never nested, so BaseOf always terminates.
type NormalForm interface {
	normalForm()
	String() string
}

// SimpleType is a bare type with no refinement attached.
//
// SimpleType is a closed sum; every consumer switches exhaustively
// over its variants.
type SimpleType interface {
	NormalForm
	simpleType()
}

// The simple types.
type (
	// IntType is the type of integers.
	IntType struct{}
	// BoolType is the type of booleans.
	BoolType struct{}
	// StringType is the type of strings.
	StringType struct{}
	// UnitType is the type of the unit value.
	UnitType struct{}
	// TopType is the supertype of every type.
	TopType struct{}
	// NoType marks a failed inference; it silences follow-up errors.
	NoType struct{}
	// ListType is the type of lists with Elem elements.
	ListType struct{ Elem SimpleType }
	// FunType is the type of functions from Args to Ret.
	FunType struct {
		Args []SimpleType
		Ret  SimpleType
	}
	// OverloadType groups alternative function signatures of one
	// builtin. It only occurs during type checking, never in a
	// normalized annotation.
	OverloadType struct{ Options []FunType }
	// LangType is the type of words of a compiled grammar.
	LangType struct{ Grammar GrammarRef }
)

func (IntType) simpleType()      {}
func (BoolType) simpleType()     {}
func (StringType) simpleType()   {}
func (UnitType) simpleType()     {}
func (TopType) simpleType()      {}
func (NoType) simpleType()       {}
func (ListType) simpleType()     {}
func (FunType) simpleType()      {}
func (OverloadType) simpleType() {}
func (LangType) simpleType()     {}

func (IntType) normalForm()      {}
func (BoolType) normalForm()     {}
func (StringType) normalForm()   {}
func (UnitType) normalForm()     {}
func (TopType) normalForm()      {}
func (NoType) normalForm()       {}
func (ListType) normalForm()     {}
func (FunType) normalForm()      {}
func (OverloadType) normalForm() {}
func (LangType) normalForm()     {}

func (IntType) String() string    { return "int" }
func (BoolType) String() string   { return "bool" }
func (StringType) String() string { return "string" }
func (UnitType) String() string   { return "unit" }
func (TopType) String() string    { return "top" }
func (NoType) String() string     { return "<error>" }

func (t ListType) String() string { return "[" + t.Elem.String() + "]" }

func (t FunType) String() string {
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = a.String()
	}
	return "(" + strings.Join(args, ", ") + ") -> " + t.Ret.String()
}

func (t OverloadType) String() string {
	opts := make([]string, len(t.Options))
	for i, o := range t.Options {
		opts[i] = o.String()
	}
	return strings.Join(opts, " | ")
}

func (t LangType) String() string { return t.Grammar.Name() }

// Refinement narrows Base to the values satisfying Pred, a boolean
// predicate over the single bound name "_". The predicate is captured
// when the refinement is constructed and re-evaluated on each check.
type Refinement struct {
	Base SimpleType
	Pred Expr
}

func (Refinement) normalForm() {}

func (t Refinement) String() string {
	return "{" + t.Base.String() + " | " + ExprString(t.Pred) + "}"
}

// BaseOf returns the simple type underlying a normal form.
func BaseOf(nf NormalForm) SimpleType {
	switch t := nf.(type) {
	case Refinement:
		return t.Base
	case SimpleType:
		return t
	default:
		return NoType{}
	}
}

// TypeEqual reports whether two simple types are structurally equal.
// Lang types compare by grammar identity.
func TypeEqual(a, b SimpleType) bool {
	switch x := a.(type) {
	case ListType:
		y, ok := b.(ListType)
		return ok && TypeEqual(x.Elem, y.Elem)
	case FunType:
		y, ok := b.(FunType)
		if !ok || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !TypeEqual(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return TypeEqual(x.Ret, y.Ret)
	case LangType:
		y, ok := b.(LangType)
		return ok && x.Grammar == y.Grammar
	case OverloadType:
		return false
	default:
		return a == b
	}
}

// TypeExpr is an unresolved type annotation, as written by the user.
// The typer normalizes a TypeExpr into a NormalForm.
type TypeExpr interface {
	typeExpr()
}

// The type annotation forms.
type (
	// TInt annotates the int type.
	TInt struct{}
	// TBool annotates the bool type.
	TBool struct{}
	// TString annotates the string type.
	TString struct{}
	// TUnit annotates the unit type.
	TUnit struct{}
	// TTop annotates the top type.
	TTop struct{}
	// TList annotates a list type.
	TList struct{ Elem TypeExpr }
	// TFun annotates a function type.
	TFun struct {
		Args []TypeExpr
		Ret  TypeExpr
	}
	// TNamed references a lang alias or type alias by name.
	TNamed struct {
		Name     string
		Position int
	}
	// TRefine annotates a refinement {Base | Pred}.
	TRefine struct {
		Base TypeExpr
		Pred Expr
	}
)

func (TInt) typeExpr()    {}
func (TBool) typeExpr()   {}
func (TString) typeExpr() {}
func (TUnit) typeExpr()   {}
func (TTop) typeExpr()    {}
func (TList) typeExpr()   {}
func (TFun) typeExpr()    {}
func (TNamed) typeExpr()  {}
func (TRefine) typeExpr() {}
