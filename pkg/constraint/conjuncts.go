package constraint

import (
	"github.com/hashicorp/go-set/v3"

	"github.com/sandrolain/glot/pkg/types"
)

// Split breaks a predicate into its conjuncts: p && q splits both
// sides, !(p || q) splits the negations of both sides, everything else
// is atomic.
func Split(expr types.Expr) []types.Expr {
	if app, ok := expr.(types.App); ok {
		if fn, isVar := app.Fn.(types.Var); isVar && len(app.Args) == 2 && fn.Name == "&&" {
			return append(Split(app.Args[0]), Split(app.Args[1])...)
		}
		if fn, isVar := app.Fn.(types.Var); isVar && fn.Name == "prefix_!" {
			if inner, isApp := app.Args[0].(types.App); isApp {
				if op, ok := inner.Fn.(types.Var); ok && len(inner.Args) == 2 && op.Name == "||" {
					neg := func(e types.Expr) types.Expr { return types.Prefix("!", e) }
					return append(Split(neg(inner.Args[0])), Split(neg(inner.Args[1]))...)
				}
			}
		}
	}
	return []types.Expr{expr}
}

// FreeVars collects the names occurring free in an expression,
// builtin names included; callers intersect with the names they care
// about.
func FreeVars(expr types.Expr) *set.Set[string] {
	free := set.New[string](4)
	collectFree(expr, free, nil)
	return free
}

func collectFree(expr types.Expr, free *set.Set[string], bound []string) {
	switch e := expr.(type) {
	case types.Var:
		for _, b := range bound {
			if b == e.Name {
				return
			}
		}
		free.Insert(e.Name)
	case types.App:
		collectFree(e.Fn, free, bound)
		for _, arg := range e.Args {
			collectFree(arg, free, bound)
		}
	case types.Lambda:
		collectFree(e.Body, free, append(bound, e.Params...))
	case types.IfThenElse:
		collectFree(e.Cond, free, bound)
		collectFree(e.Then, free, bound)
		collectFree(e.Else, free, bound)
	case types.InLang:
		collectFree(e.Receiver, free, bound)
	case types.SelectExpr:
		collectFree(e.Receiver, free, bound)
	}
}

// Subst replaces free occurrences of names in an expression. Lambda
// parameters shadow the substitution inside their body.
func Subst(expr types.Expr, sub map[string]types.Expr) types.Expr {
	switch e := expr.(type) {
	case types.Var:
		if repl, ok := sub[e.Name]; ok {
			return repl
		}
		return e
	case types.App:
		args := make([]types.Expr, len(e.Args))
		for i, arg := range e.Args {
			args[i] = Subst(arg, sub)
		}
		return types.App{Fn: Subst(e.Fn, sub), Args: args, Position: e.Position}
	case types.Lambda:
		inner := sub
		for _, param := range e.Params {
			if _, shadowed := sub[param]; shadowed {
				inner = map[string]types.Expr{}
				for name, repl := range sub {
					inner[name] = repl
				}
				for _, p := range e.Params {
					delete(inner, p)
				}
				break
			}
		}
		return types.Lambda{Params: e.Params, Body: Subst(e.Body, inner), Position: e.Position}
	case types.IfThenElse:
		return types.IfThenElse{
			Cond:     Subst(e.Cond, sub),
			Then:     Subst(e.Then, sub),
			Else:     Subst(e.Else, sub),
			Position: e.Position,
		}
	case types.InLang:
		return types.InLang{Receiver: Subst(e.Receiver, sub), Lang: e.Lang, Position: e.Position}
	case types.SelectExpr:
		return types.SelectExpr{
			Receiver: Subst(e.Receiver, sub),
			Lang:     e.Lang,
			Path:     e.Path,
			All:      e.All,
			Position: e.Position,
		}
	default:
		return expr
	}
}

// ClassifyConjuncts partitions conjuncts of a multi-parameter
// condition: picked are those that mention no parameter other than
// param and can therefore constrain its generator alone, rest must be
// enforced across parameters.
func ClassifyConjuncts(conjuncts []types.Expr, param string, allParams []string) (picked, rest []types.Expr) {
	others := set.From(allParams)
	others.Remove(param)
	for _, c := range conjuncts {
		if FreeVars(c).Intersect(others).Empty() {
			picked = append(picked, c)
		} else {
			rest = append(rest, c)
		}
	}
	return picked, rest
}
