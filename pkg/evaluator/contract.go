package evaluator

import (
	"fmt"

	"github.com/sandrolain/glot/pkg/types"
)

// HasType reports whether a runtime value inhabits a normalized type.
// Lang-refined strings are checked by grammar membership, refinements
// by re-evaluating their predicate with "_" bound to the value.
func (e *Evaluator) HasType(v types.Value, nf types.NormalForm) (bool, error) {
	switch t := nf.(type) {
	case types.IntType:
		_, ok := v.(int)
		return ok, nil
	case types.BoolType:
		_, ok := v.(bool)
		return ok, nil
	case types.StringType:
		_, ok := v.(string)
		return ok, nil
	case types.UnitType:
		return v == nil, nil
	case types.TopType:
		return true, nil
	case types.LangType:
		s, ok := v.(string)
		return ok && t.Grammar.Member(s), nil
	case types.ListType:
		xs, ok := v.([]types.Value)
		if !ok {
			return false, nil
		}
		for _, x := range xs {
			ok, err := e.HasType(x, t.Elem)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case types.FunType:
		switch v.(type) {
		case Closure, builtinRef, customRef:
			return true, nil
		}
		return false, nil
	case types.Refinement:
		ok, err := e.HasType(v, t.Base)
		if err != nil || !ok {
			return false, err
		}
		env := NewEnv(nil)
		env.Bind("_", v)
		res, err := e.Eval(t.Pred, env)
		if err != nil {
			return false, err
		}
		b, ok := res.(bool)
		if !ok {
			return false, evalErr("Refinement predicate is not boolean", t.Pred.Pos())
		}
		return b, nil
	default:
		return false, nil
	}
}

// assertCond evaluates a contract condition and turns a false result
// into the typed contract violation.
func (e *Evaluator) assertCond(kind types.ContractKind, fn string, cond types.Expr, env *Env, details []string) error {
	v, err := e.Eval(cond, env)
	if err != nil {
		return err
	}
	b, ok := v.(bool)
	if !ok {
		return evalErr("Contract condition is not boolean", cond.Pos())
	}
	if b {
		return nil
	}
	return &types.ContractError{
		Kind:     kind,
		Fn:       fn,
		Cond:     types.ExprString(cond),
		Details:  details,
		Position: cond.Pos(),
	}
}

// AssertPre checks a requires-clause against the argument bindings in
// env. The details are pretty-printed bindings for the report.
func (e *Evaluator) AssertPre(fn string, cond types.Expr, env *Env, details ...string) error {
	return e.assertCond(types.PreconditionViolated, fn, cond, env, details)
}

// AssertPost checks an ensures-clause; env is expected to bind the
// arguments and the returned value.
func (e *Evaluator) AssertPost(fn string, cond types.Expr, env *Env, details ...string) error {
	return e.assertCond(types.PostconditionViolated, fn, cond, env, details)
}

// AssertArgType checks that an argument value inhabits its declared
// type.
func (e *Evaluator) AssertArgType(fn, arg string, v types.Value, nf types.NormalForm) error {
	ok, err := e.HasType(v, nf)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return &types.ContractError{
		Kind:     types.ArgTypeMismatch,
		Fn:       fn,
		Cond:     fmt.Sprintf("%s : %s", arg, nf),
		Details:  []string{fmt.Sprintf("%s = %s", arg, types.ShowValue(v))},
		Position: -1,
	}
}

// AssertReturnType checks that a return value inhabits the declared
// return type.
func (e *Evaluator) AssertReturnType(fn string, v types.Value, nf types.NormalForm) error {
	ok, err := e.HasType(v, nf)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return &types.ContractError{
		Kind:     types.ReturnTypeMismatch,
		Fn:       fn,
		Cond:     fmt.Sprintf("return : %s", nf),
		Details:  []string{"return = " + types.ShowValue(v)},
		Position: -1,
	}
}
