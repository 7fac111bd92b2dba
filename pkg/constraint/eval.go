package constraint

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sandrolain/glot/pkg/selector"
	"github.com/sandrolain/glot/pkg/types"
)

// floorDiv rounds toward negative infinity; floorMod takes the sign
// of the divisor. These match the predicate evaluator exactly so that
// a translated conjunct and its source agree on every word.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	r := a % b
	if r != 0 && ((r < 0) != (b < 0)) {
		r += b
	}
	return r
}

// indexFrom is str.indexof: the rune offset of the first occurrence of
// pattern at or after start, or -1.
func indexFrom(s, pattern string, start int) int {
	runes := []rune(s)
	if start < 0 || start > len(runes) {
		return -1
	}
	tail := string(runes[start:])
	i := strings.Index(tail, pattern)
	if i < 0 {
		return -1
	}
	return start + len([]rune(tail[:i]))
}

// Eval evaluates a formula against the derivation tree of one word.
// The reference solver uses it to reject candidate derivations, and
// the soundness tests compare it with direct predicate evaluation.
func Eval(f Formula, root *types.DerivationTree) (bool, error) {
	v, err := evalNode(f, root, map[string]*types.DerivationTree{})
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, types.NewError(types.ErrEvalFailed, "Formula is not boolean", -1)
	}
	return b, nil
}

func evalNode(f Formula, root *types.DerivationTree, binding map[string]*types.DerivationTree) (types.Value, error) {
	switch x := f.(type) {
	case BoolConst:
		return x.Value, nil
	case IntConst:
		return x.Value, nil
	case StrConst:
		return x.Value, nil
	case BoundVar:
		node, ok := binding[x.Name]
		if !ok {
			return nil, types.NewError(types.ErrEvalFailed,
				fmt.Sprintf("Variable %q is not bound", x.Name), -1)
		}
		return node.String(), nil
	case TreeAddr:
		node, err := resolveAddr(x, root)
		if err != nil {
			return nil, err
		}
		return node.String(), nil
	case Call:
		return evalCall(x, root, binding)
	case Conn:
		for _, operand := range x.Operands {
			v, err := evalNode(operand, root, binding)
			if err != nil {
				return nil, err
			}
			b, ok := v.(bool)
			if !ok {
				return nil, types.NewError(types.ErrEvalFailed, "Operand is not boolean", -1)
			}
			if (x.Op == "and") != b {
				return b, nil
			}
		}
		return x.Op == "and", nil
	case Neg:
		v, err := evalNode(x.Operand, root, binding)
		if err != nil {
			return nil, err
		}
		b, ok := v.(bool)
		if !ok {
			return nil, types.NewError(types.ErrEvalFailed, "Operand is not boolean", -1)
		}
		return !b, nil
	case StructPred:
		return evalStructPred(x, root, binding)
	case Quantifier:
		return evalQuantifier(x, root, binding)
	default:
		return nil, types.NewError(types.ErrEvalFailed, "Unsupported formula", -1)
	}
}

// resolveAddr follows a tree address; it must denote exactly one node.
func resolveAddr(addr TreeAddr, root *types.DerivationTree) (*types.DerivationTree, error) {
	current := []*types.DerivationTree{root}
	for _, step := range addr.Steps {
		var next []*types.DerivationTree
		for _, parent := range current {
			if step.Direct {
				next = append(next, selector.DirectChildren(parent, step.Symbol)...)
			} else {
				next = append(next, selector.Labelled(parent, step.Symbol)...)
			}
		}
		current = next
	}
	if len(current) != 1 {
		return nil, types.NewError(types.ErrEvalFailed,
			fmt.Sprintf("Address %s denotes %d nodes", Print(addr), len(current)), -1)
	}
	return current[0], nil
}

func containerNode(name string, root *types.DerivationTree, binding map[string]*types.DerivationTree) (*types.DerivationTree, error) {
	if name == "start" {
		return root, nil
	}
	node, ok := binding[name]
	if !ok {
		return nil, types.NewError(types.ErrEvalFailed,
			fmt.Sprintf("Container %q is not bound", name), -1)
	}
	return node, nil
}

func evalStructPred(p StructPred, root *types.DerivationTree, binding map[string]*types.DerivationTree) (bool, error) {
	if len(p.Args) < 2 {
		return false, types.NewError(types.ErrEvalFailed,
			fmt.Sprintf("Predicate %s needs a node and a parent", p.Name), -1)
	}
	node, err := containerNode(p.Args[0], root, binding)
	if err != nil {
		return false, err
	}
	parent, err := containerNode(p.Args[1], root, binding)
	if err != nil {
		return false, err
	}
	children := selector.DirectChildren(parent, node.Symbol())

	switch p.Name {
	case DirectChildPred:
		for _, child := range children {
			if child == node {
				return true, nil
			}
		}
		return false, nil
	case KthChildPred:
		if len(p.Args) != 3 {
			return false, types.NewError(types.ErrEvalFailed, "Missing child position", -1)
		}
		k, err := strconv.Atoi(p.Args[2])
		if err != nil || k < 1 {
			return false, types.NewError(types.ErrEvalFailed,
				fmt.Sprintf("Bad child position %q", p.Args[2]), -1)
		}
		return k <= len(children) && children[k-1] == node, nil
	default:
		return false, types.NewError(types.ErrEvalFailed,
			fmt.Sprintf("Unknown structural predicate %q", p.Name), -1)
	}
}

func evalQuantifier(q Quantifier, root *types.DerivationTree, binding map[string]*types.DerivationTree) (bool, error) {
	container, err := containerNode(q.Container, root, binding)
	if err != nil {
		return false, err
	}
	prev, shadowed := binding[q.Binder]
	restore := func() {
		if shadowed {
			binding[q.Binder] = prev
		} else {
			delete(binding, q.Binder)
		}
	}
	for _, node := range selector.Labelled(container, q.Symbol) {
		binding[q.Binder] = node
		hold := true
		if q.Guard != nil {
			if hold, err = evalStructPred(*q.Guard, root, binding); err != nil {
				restore()
				return false, err
			}
		}
		var body types.Value = !q.Exists
		if hold {
			if body, err = evalNode(q.Body, root, binding); err != nil {
				restore()
				return false, err
			}
		}
		restore()

		b, ok := body.(bool)
		if !ok {
			return false, types.NewError(types.ErrEvalFailed, "Quantifier body is not boolean", -1)
		}
		if q.Exists && hold && b {
			return true, nil
		}
		if !q.Exists && hold && !b {
			return false, nil
		}
	}
	return !q.Exists, nil
}

func evalCall(call Call, root *types.DerivationTree, binding map[string]*types.DerivationTree) (types.Value, error) {
	args := make([]types.Value, len(call.Args))
	for i, arg := range call.Args {
		v, err := evalNode(arg, root, binding)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	ints := func(i int) int { n, _ := args[i].(int); return n }
	strs := func(i int) string { s, _ := args[i].(string); return s }

	switch call.Fn {
	case "+":
		return ints(0) + ints(1), nil
	case "-":
		return ints(0) - ints(1), nil
	case "*":
		return ints(0) * ints(1), nil
	case "/":
		if ints(1) == 0 {
			return nil, types.NewError(types.ErrEvalFailed, "Division by zero", -1)
		}
		return floorDiv(ints(0), ints(1)), nil
	case "%":
		if ints(1) == 0 {
			return nil, types.NewError(types.ErrEvalFailed, "Division by zero", -1)
		}
		return floorMod(ints(0), ints(1)), nil
	case "=":
		return args[0] == args[1], nil
	case "<":
		return ints(0) < ints(1), nil
	case "<=":
		if s, ok := args[0].(string); ok {
			return s <= strs(1), nil
		}
		return ints(0) <= ints(1), nil
	case ">":
		return ints(0) > ints(1), nil
	case ">=":
		return ints(0) >= ints(1), nil

	case "str.++":
		return strs(0) + strs(1), nil
	case "str.len":
		return len([]rune(strs(0))), nil
	case "str.contains":
		return strings.Contains(strs(0), strs(1)), nil
	case "str.prefixof":
		return strings.HasPrefix(strs(1), strs(0)), nil
	case "str.suffixof":
		return strings.HasSuffix(strs(1), strs(0)), nil
	case "str.at":
		runes := []rune(strs(0))
		i := ints(1)
		if i < 0 || i >= len(runes) {
			return "", nil
		}
		return string(runes[i]), nil
	case "str.substr":
		runes := []rune(strs(0))
		offset, length := ints(1), ints(2)
		if offset < 0 || offset >= len(runes) || length <= 0 {
			return "", nil
		}
		end := offset + length
		if end > len(runes) {
			end = len(runes)
		}
		return string(runes[offset:end]), nil
	case "str.indexof":
		return indexFrom(strs(0), strs(1), ints(2)), nil
	case "str.replace":
		return strings.Replace(strs(0), strs(1), strs(2), 1), nil
	case "str.replace_all":
		return strings.ReplaceAll(strs(0), strs(1), strs(2)), nil
	case "str.is_digit":
		runes := []rune(strs(0))
		return len(runes) == 1 && runes[0] >= '0' && runes[0] <= '9', nil
	case "str.to_code":
		runes := []rune(strs(0))
		if len(runes) != 1 {
			return -1, nil
		}
		return int(runes[0]), nil
	case "str.from_code":
		n := ints(0)
		if n < 0 || n > 0x10FFFF {
			return "", nil
		}
		return string(rune(n)), nil
	case "str.to.int":
		// negative on any non-digit input
		s := strs(0)
		if s == "" {
			return -1, nil
		}
		n := 0
		for _, r := range s {
			if r < '0' || r > '9' {
				return -1, nil
			}
			n = n*10 + int(r-'0')
		}
		return n, nil
	case "str.from_int":
		n := ints(0)
		if n < 0 {
			return "", nil
		}
		return strconv.Itoa(n), nil
	default:
		return nil, types.NewError(types.ErrEvalFailed,
			fmt.Sprintf("Unknown solver builtin %q", call.Fn), -1)
	}
}
