package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is a node of the predicate-expression AST.
//
// Expr is a closed sum; the typer, the predicate evaluator and the
// constraint compiler all switch exhaustively over its variants.
type Expr interface {
	exprNode()
	// Pos returns the byte offset of the expression in its source.
	Pos() int
}

// The expression forms.
type (
	// IntLit is an integer literal.
	IntLit struct {
		Value    int
		Position int
	}
	// BoolLit is a boolean literal.
	BoolLit struct {
		Value    bool
		Position int
	}
	// StringLit is a string literal.
	StringLit struct {
		Value    string
		Position int
	}
	// Var references a name: a bound variable, a parameter, or one of
	// the builtin operators and functions.
	Var struct {
		Name     string
		Position int
	}
	// App applies Fn to Args. Binary and unary operators are
	// applications of the operator name ("+", "prefix_!", ...).
	App struct {
		Fn       Expr
		Args     []Expr
		Position int
	}
	// Lambda is an anonymous function (x, y) -> body.
	Lambda struct {
		Params   []string
		Body     Expr
		Position int
	}
	// IfThenElse is the conditional cond ? then : else.
	IfThenElse struct {
		Cond, Then, Else Expr
		Position         int
	}
	// InLang tests membership of Receiver in the lang named Lang.
	InLang struct {
		Receiver Expr
		Lang     string
		Position int
	}
	// SelectExpr selects subtrees of Receiver's derivation in the lang
	// named Lang, following Path. With All set it evaluates to the
	// list of all selected words, otherwise to the unique selected
	// word (the path must be statically unique).
	SelectExpr struct {
		Receiver Expr
		Lang     string
		Path     *Path
		All      bool
		Position int
	}
)

func (IntLit) exprNode()     {}
func (BoolLit) exprNode()    {}
func (StringLit) exprNode()  {}
func (Var) exprNode()        {}
func (App) exprNode()        {}
func (Lambda) exprNode()     {}
func (IfThenElse) exprNode() {}
func (InLang) exprNode()     {}
func (SelectExpr) exprNode() {}

func (e IntLit) Pos() int     { return e.Position }
func (e BoolLit) Pos() int    { return e.Position }
func (e StringLit) Pos() int  { return e.Position }
func (e Var) Pos() int        { return e.Position }
func (e App) Pos() int        { return e.Position }
func (e Lambda) Pos() int     { return e.Position }
func (e IfThenElse) Pos() int { return e.Position }
func (e InLang) Pos() int     { return e.Position }
func (e SelectExpr) Pos() int { return e.Position }

// Apply builds the application of a named builtin to its arguments.
func Apply(name string, args ...Expr) App {
	return App{Fn: Var{Name: name}, Args: args}
}

// Infix builds a binary operator application.
func Infix(op string, lhs, rhs Expr) App {
	return Apply(op, lhs, rhs)
}

// Prefix builds a unary operator application; unary operators are
// registered under a "prefix_" key to keep them apart from their
// binary namesakes.
func Prefix(op string, operand Expr) App {
	return Apply("prefix_"+op, operand)
}

// Conjoin combines predicates with "&&", flattening the trivial cases.
func Conjoin(conjuncts ...Expr) Expr {
	switch len(conjuncts) {
	case 0:
		return BoolLit{Value: true}
	case 1:
		return conjuncts[0]
	default:
		e := conjuncts[0]
		for _, c := range conjuncts[1:] {
			e = Infix("&&", e, c)
		}
		return e
	}
}

var infixOps = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true,
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
	"&&": true, "||": true, "in": true,
}

// ExprString renders an expression back to predicate surface syntax.
// It is used for pretty-printing types and error details.
func ExprString(e Expr) string {
	switch x := e.(type) {
	case IntLit:
		return strconv.Itoa(x.Value)
	case BoolLit:
		return strconv.FormatBool(x.Value)
	case StringLit:
		return strconv.Quote(x.Value)
	case Var:
		return x.Name
	case App:
		if f, ok := x.Fn.(Var); ok {
			if name, found := strings.CutPrefix(f.Name, "prefix_"); found && len(x.Args) == 1 {
				return name + ExprString(x.Args[0])
			}
			if infixOps[f.Name] && len(x.Args) == 2 {
				return "(" + ExprString(x.Args[0]) + " " + f.Name + " " + ExprString(x.Args[1]) + ")"
			}
		}
		args := make([]string, len(x.Args))
		for i, a := range x.Args {
			args[i] = ExprString(a)
		}
		return ExprString(x.Fn) + "(" + strings.Join(args, ", ") + ")"
	case Lambda:
		return "(" + strings.Join(x.Params, ", ") + ") -> " + ExprString(x.Body)
	case IfThenElse:
		return fmt.Sprintf("(%s ? %s : %s)", ExprString(x.Cond), ExprString(x.Then), ExprString(x.Else))
	case InLang:
		return "(" + ExprString(x.Receiver) + " in " + x.Lang + ")"
	case SelectExpr:
		fn := "select"
		if x.All {
			fn = "select_all"
		}
		return fmt.Sprintf("%s(%s, %q, %s)", fn, x.Lang, x.Path.String(), ExprString(x.Receiver))
	default:
		return "<expr>"
	}
}
