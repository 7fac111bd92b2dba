package constraint

import (
	"strconv"

	"github.com/sandrolain/glot/pkg/types"
)

// Names of the structural predicates the solver registers alongside
// the tree quantifiers.
const (
	DirectChildPred = "ebnf_direct_child"
	KthChildPred    = "ebnf_kth_child"
)

// Translate compiles one conjunct into a constraint formula. The
// conjunct speaks about a single word bound to this. The second result
// is false when the conjunct falls outside the solvable fragment; such
// conjuncts are enforced by the post-generation filter instead.
func Translate(expr types.Expr, this string) (Formula, bool) {
	tr := translator{this: this, bound: map[string]bool{}}
	f, ok := tr.formula(expr)
	if !ok {
		return nil, false
	}
	if f.Sort() != SortFormula {
		return nil, false
	}
	return f, true
}

type translator struct {
	this  string
	bound map[string]bool
}

func (tr *translator) formula(expr types.Expr) (Formula, bool) {
	switch e := expr.(type) {
	case types.BoolLit:
		return BoolConst{Value: e.Value}, true
	case types.IntLit:
		return IntConst{Value: e.Value}, true
	case types.StringLit:
		return StrConst{Value: e.Value}, true
	case types.Var:
		if e.Name == tr.this {
			// the whole word, addressed at the derivation root
			return TreeAddr{Anchor: "start"}, true
		}
		if tr.bound[e.Name] {
			return BoundVar{Name: e.Name}, true
		}
		return nil, false
	case types.App:
		return tr.app(e)
	case types.SelectExpr:
		if e.All {
			return nil, false
		}
		return tr.treeAddr(e)
	default:
		// conditionals, lang membership and lambdas outside a
		// quantifier have no solver form
		return nil, false
	}
}

func (tr *translator) intArgs(args []types.Expr) ([]Formula, bool) {
	return tr.sorted(args, SortInt)
}

func (tr *translator) sorted(args []types.Expr, sort Sort) ([]Formula, bool) {
	out := make([]Formula, len(args))
	for i, arg := range args {
		f, ok := tr.formula(arg)
		if !ok || f.Sort() != sort {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

func (tr *translator) app(app types.App) (Formula, bool) {
	fn, ok := app.Fn.(types.Var)
	if !ok {
		return nil, false
	}

	switch fn.Name {
	case "&&", "||":
		op := "and"
		if fn.Name == "||" {
			op = "or"
		}
		operands, ok := tr.sorted(app.Args, SortFormula)
		if !ok {
			return nil, false
		}
		return Conn{Op: op, Operands: operands}, true

	case "prefix_!":
		operand, ok := tr.formula(app.Args[0])
		if !ok || operand.Sort() != SortFormula {
			return nil, false
		}
		return Neg{Operand: operand}, true

	case "prefix_-":
		args, ok := tr.intArgs(app.Args)
		if !ok {
			return nil, false
		}
		return Call{Fn: "-", Args: []Formula{IntConst{Value: 0}, args[0]}, Out: SortInt}, true

	case "+":
		if args, ok := tr.intArgs(app.Args); ok {
			return Call{Fn: "+", Args: args, Out: SortInt}, true
		}
		if args, ok := tr.sorted(app.Args, SortString); ok {
			return Call{Fn: "str.++", Args: args, Out: SortString}, true
		}
		return nil, false

	case "-", "*", "/", "%":
		args, ok := tr.intArgs(app.Args)
		if !ok {
			return nil, false
		}
		return Call{Fn: fn.Name, Args: args, Out: SortInt}, true

	case "==", "!=", "<", "<=", ">", ">=":
		return tr.compare(fn.Name, app.Args)

	case "in":
		args, ok := tr.sorted(app.Args, SortString)
		if !ok {
			return nil, false
		}
		return Call{Fn: "str.contains", Args: []Formula{args[1], args[0]}, Out: SortFormula}, true

	case "concat":
		args, ok := tr.sorted(app.Args, SortString)
		if !ok {
			return nil, false
		}
		return Call{Fn: "str.++", Args: args, Out: SortString}, true

	case "len":
		return tr.strFn("str.len", app.Args, SortInt)
	case "ord":
		return tr.strFn("str.to_code", app.Args, SortInt)
	case "isdigit":
		return tr.strFn("str.is_digit", app.Args, SortFormula)

	case "chr":
		args, ok := tr.intArgs(app.Args)
		if !ok {
			return nil, false
		}
		return Call{Fn: "str.from_code", Args: args, Out: SortString}, true

	case "int":
		// the solver form rejects leading minus signs
		return tr.strFn("str.to.int", app.Args, SortInt)
	case "str":
		args, ok := tr.intArgs(app.Args)
		if !ok {
			return nil, false
		}
		return Call{Fn: "str.from_int", Args: args, Out: SortString}, true

	case "at":
		s, ok := tr.formula(app.Args[0])
		if !ok || s.Sort() != SortString {
			return nil, false
		}
		i, ok := tr.formula(app.Args[1])
		if !ok || i.Sort() != SortInt {
			return nil, false
		}
		return Call{Fn: "str.at", Args: []Formula{s, i}, Out: SortString}, true

	case "substr":
		s, ok := tr.formula(app.Args[0])
		if !ok || s.Sort() != SortString {
			return nil, false
		}
		bounds, ok := tr.intArgs(app.Args[1:])
		if !ok {
			return nil, false
		}
		length := Call{Fn: "-", Args: []Formula{bounds[1], bounds[0]}, Out: SortInt}
		return Call{Fn: "str.substr", Args: []Formula{s, bounds[0], length}, Out: SortString}, true

	case "startswith", "endswith":
		args, ok := tr.sorted(app.Args, SortString)
		if !ok {
			return nil, false
		}
		smt := "str.prefixof"
		if fn.Name == "endswith" {
			smt = "str.suffixof"
		}
		// the pattern comes first in the solver form
		return Call{Fn: smt, Args: []Formula{args[1], args[0]}, Out: SortFormula}, true

	case "find", "index":
		args, ok := tr.sorted(app.Args[:2], SortString)
		if !ok {
			return nil, false
		}
		start := Formula(IntConst{Value: 0})
		if len(app.Args) == 3 {
			if start, ok = tr.formula(app.Args[2]); !ok || start.Sort() != SortInt {
				return nil, false
			}
		}
		return Call{Fn: "str.indexof", Args: []Formula{args[0], args[1], start}, Out: SortInt}, true

	case "replace":
		args, ok := tr.sorted(app.Args[:3], SortString)
		if !ok {
			return nil, false
		}
		switch len(app.Args) {
		case 3:
			return Call{Fn: "str.replace_all", Args: args, Out: SortString}, true
		case 4:
			// only replacing the first occurrence has a solver form
			if count, isLit := app.Args[3].(types.IntLit); isLit && count.Value == 1 {
				return Call{Fn: "str.replace", Args: args, Out: SortString}, true
			}
		}
		return nil, false

	case "forall", "exists":
		return tr.quantifier(fn.Name == "exists", app.Args)

	default:
		return nil, false
	}
}

func (tr *translator) strFn(smt string, args []types.Expr, out Sort) (Formula, bool) {
	operands, ok := tr.sorted(args, SortString)
	if !ok {
		return nil, false
	}
	return Call{Fn: smt, Args: operands, Out: out}, true
}

func (tr *translator) compare(op string, args []types.Expr) (Formula, bool) {
	if ints, ok := tr.intArgs(args); ok {
		switch op {
		case "==":
			return Call{Fn: "=", Args: ints, Out: SortFormula}, true
		case "!=":
			return Neg{Operand: Call{Fn: "=", Args: ints, Out: SortFormula}}, true
		default:
			return Call{Fn: op, Args: ints, Out: SortFormula}, true
		}
	}

	strs, ok := tr.sorted(args, SortString)
	if !ok {
		return nil, false
	}
	le := Call{Fn: "<=", Args: strs, Out: SortFormula}
	eq := Call{Fn: "=", Args: strs, Out: SortFormula}
	// only = and <= exist on strings; the others are rewritten
	switch op {
	case "==":
		return eq, true
	case "!=":
		return Neg{Operand: eq}, true
	case "<=":
		return le, true
	case "<":
		return Conn{Op: "and", Operands: []Formula{le, Neg{Operand: eq}}}, true
	case ">":
		return Neg{Operand: le}, true
	case ">=":
		return Conn{Op: "or", Operands: []Formula{Neg{Operand: le}, eq}}, true
	default:
		return nil, false
	}
}

// treeAddr translates a unique selection into a tree address. Indexed
// steps have no address syntax.
func (tr *translator) treeAddr(sel types.SelectExpr) (Formula, bool) {
	recv, ok := sel.Receiver.(types.Var)
	if !ok || recv.Name != tr.this {
		return nil, false
	}
	addr := TreeAddr{Anchor: "start"}
	if !sel.Path.Absolute() {
		addr.Steps = append(addr.Steps, AddrStep{Direct: false, Symbol: sel.Path.Anchor})
	}
	for _, step := range sel.Path.Steps {
		if step.Kind == types.StepDirectAt {
			return nil, false
		}
		addr.Steps = append(addr.Steps, AddrStep{
			Direct: step.Kind == types.StepDirect,
			Symbol: step.Symbol,
		})
	}
	return addr, true
}

// pathEdge is one parent-to-child edge of a quantified path.
type pathEdge struct {
	parent string
	child  string
	kind   types.PathStepKind
	index  int
}

func pathEdges(path *types.Path) []pathEdge {
	var edges []pathEdge
	parent := "start"
	if !path.Absolute() {
		edges = append(edges, pathEdge{parent: parent, child: path.Anchor, kind: types.StepIndirect})
		parent = path.Anchor
	}
	for _, step := range path.Steps {
		edges = append(edges, pathEdge{parent: parent, child: step.Symbol, kind: step.Kind, index: step.Index})
		parent = step.Symbol
	}
	return edges
}

// quantifier translates forall(lambda, select_all(L, path, this)) and
// its exists twin into nested tree quantifiers, innermost first over
// the reversed path edges. Each level binds the child symbol inside
// the binder of the level above; the outermost level binds inside
// start. Direct edges add a structural guard; indexed edges always
// bind existentially with a kth-child guard.
func (tr *translator) quantifier(exists bool, args []types.Expr) (Formula, bool) {
	if len(args) != 2 {
		return nil, false
	}
	lam, ok := args[0].(types.Lambda)
	if !ok || len(lam.Params) != 1 {
		return nil, false
	}
	sel, ok := args[1].(types.SelectExpr)
	if !ok || !sel.All {
		return nil, false
	}
	if recv, isVar := sel.Receiver.(types.Var); !isVar || recv.Name != tr.this {
		return nil, false
	}

	x := lam.Params[0]
	if tr.bound[x] {
		return nil, false
	}
	tr.bound[x] = true
	body, ok := tr.formula(lam.Body)
	delete(tr.bound, x)
	if !ok || body.Sort() != SortFormula {
		return nil, false
	}

	edges := pathEdges(sel.Path)
	// the innermost level binds the lambda parameter; outer levels
	// reuse their symbol names, primed on repetition
	binders := make([]string, len(edges))
	used := map[string]bool{x: true, "start": true}
	for i := range edges[:len(edges)-1] {
		b := edges[i].child
		for used[b] {
			b += "'"
		}
		binders[i] = b
		used[b] = true
	}
	binders[len(edges)-1] = x

	formula := body
	for i := len(edges) - 1; i >= 0; i-- {
		edge := edges[i]
		binder := binders[i]
		container := "start"
		if i > 0 {
			container = binders[i-1]
		}
		q := Quantifier{
			Exists:    exists,
			Symbol:    edge.child,
			Binder:    binder,
			Container: container,
			Body:      formula,
		}
		switch edge.kind {
		case types.StepDirect:
			q.Guard = &StructPred{Name: DirectChildPred, Args: []string{binder, container}}
		case types.StepDirectAt:
			q.Exists = true
			q.Guard = &StructPred{
				Name: KthChildPred,
				Args: []string{binder, container, strconv.Itoa(edge.index)},
			}
		}
		formula = q
	}
	return formula, true
}
