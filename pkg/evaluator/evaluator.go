// Package evaluator executes predicate expressions over concrete
// runtime values. It backs refinement checks, producer filters and the
// runtime contract assertions: the same predicate that refines a type
// statically is re-evaluated here against each candidate value.
package evaluator

import (
	"fmt"

	"github.com/sandrolain/glot/pkg/functions"
	"github.com/sandrolain/glot/pkg/selector"
	"github.com/sandrolain/glot/pkg/types"
)

// LangSource resolves lang names to their compiled grammars. The typer
// implements it; evaluation needs it for membership tests and select
// expressions.
type LangSource interface {
	Lang(name string) (types.GrammarRef, bool)
}

// Evaluator evaluates type-checked predicate expressions. It is
// stateless apart from the lang and function registries and safe for
// concurrent use.
type Evaluator struct {
	langs LangSource
	funcs *functions.Registry
}

// Option configures an evaluator.
type Option func(*Evaluator)

// WithFunctions makes the registered custom functions callable from
// predicates.
func WithFunctions(reg *functions.Registry) Option {
	return func(e *Evaluator) { e.funcs = reg }
}

// New creates an evaluator over the given lang registry. A nil registry
// is accepted; membership and select expressions then fail at runtime.
func New(langs LangSource, opts ...Option) *Evaluator {
	e := &Evaluator{langs: langs}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Env binds names to runtime values. Environments nest; a lambda
// application extends its closure environment with the parameters.
type Env struct {
	parent *Env
	vars   map[string]types.Value
}

// NewEnv creates an environment chained to parent.
func NewEnv(parent *Env) *Env {
	return &Env{parent: parent, vars: map[string]types.Value{}}
}

// Bind binds name to a value in this environment.
func (env *Env) Bind(name string, v types.Value) {
	env.vars[name] = v
}

// Lookup resolves name through the environment chain.
func (env *Env) Lookup(name string) (types.Value, bool) {
	for e := env; e != nil; e = e.parent {
		if v, ok := e.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Closure is the runtime value of a lambda: its parameters, body and
// captured environment.
type Closure struct {
	Params []string
	Body   types.Expr
	Env    *Env
}

// builtinRef is the runtime value of a builtin used as a function
// argument, as in forall(isdigit, xs).
type builtinRef struct {
	def *builtinDef
}

// customRef is the runtime value of a registered custom function.
type customRef struct {
	def *functions.CustomFunctionDef
}

func evalErr(msg string, pos int) error {
	return types.NewError(types.ErrEvalFailed, msg, pos)
}

// Eval evaluates a type-checked expression in env. Evaluation errors
// carry code E0101; they abort the enclosing check or test iteration.
func (e *Evaluator) Eval(expr types.Expr, env *Env) (types.Value, error) {
	switch x := expr.(type) {
	case types.IntLit:
		return x.Value, nil
	case types.BoolLit:
		return x.Value, nil
	case types.StringLit:
		return x.Value, nil
	case types.Var:
		if v, ok := env.Lookup(x.Name); ok {
			return v, nil
		}
		if def, ok := builtins[x.Name]; ok {
			return builtinRef{def: def}, nil
		}
		if e.funcs != nil {
			if def, ok := e.funcs.Lookup(x.Name); ok {
				return customRef{def: def}, nil
			}
		}
		return nil, evalErr(fmt.Sprintf("Name %q is not bound", x.Name), x.Position)
	case types.App:
		return e.evalApp(x, env)
	case types.Lambda:
		return Closure{Params: x.Params, Body: x.Body, Env: env}, nil
	case types.IfThenElse:
		cond, err := e.Eval(x.Cond, env)
		if err != nil {
			return nil, err
		}
		b, ok := cond.(bool)
		if !ok {
			return nil, evalErr("Condition is not a boolean", x.Cond.Pos())
		}
		if b {
			return e.Eval(x.Then, env)
		}
		return e.Eval(x.Else, env)
	case types.InLang:
		return e.evalInLang(x, env)
	case types.SelectExpr:
		return e.evalSelect(x, env)
	default:
		return nil, evalErr("Unsupported expression", expr.Pos())
	}
}

func (e *Evaluator) evalApp(app types.App, env *Env) (types.Value, error) {
	// && and || short-circuit; everything else is strict
	if v, ok := app.Fn.(types.Var); ok && len(app.Args) == 2 {
		if v.Name == "&&" || v.Name == "||" {
			return e.evalLogic(v.Name, app, env)
		}
	}
	fn, err := e.Eval(app.Fn, env)
	if err != nil {
		return nil, err
	}
	args := make([]types.Value, len(app.Args))
	for i, arg := range app.Args {
		if args[i], err = e.Eval(arg, env); err != nil {
			return nil, err
		}
	}
	return e.Apply(fn, args, app.Position)
}

func (e *Evaluator) evalLogic(op string, app types.App, env *Env) (types.Value, error) {
	lhs, err := e.Eval(app.Args[0], env)
	if err != nil {
		return nil, err
	}
	b, ok := lhs.(bool)
	if !ok {
		return nil, evalErr("Operand is not a boolean", app.Args[0].Pos())
	}
	if (op == "&&" && !b) || (op == "||" && b) {
		return b, nil
	}
	rhs, err := e.Eval(app.Args[1], env)
	if err != nil {
		return nil, err
	}
	if b, ok = rhs.(bool); !ok {
		return nil, evalErr("Operand is not a boolean", app.Args[1].Pos())
	}
	return b, nil
}

// Apply calls a function value: a closure from a lambda or a builtin
// passed by name.
func (e *Evaluator) Apply(fn types.Value, args []types.Value, pos int) (types.Value, error) {
	switch f := fn.(type) {
	case Closure:
		if len(f.Params) != len(args) {
			return nil, evalErr(fmt.Sprintf("Expected %d arguments but found %d", len(f.Params), len(args)), pos)
		}
		inner := NewEnv(f.Env)
		for i, param := range f.Params {
			inner.Bind(param, args[i])
		}
		return e.Eval(f.Body, inner)
	case builtinRef:
		if len(args) < f.def.MinArgs || len(args) > f.def.MaxArgs {
			return nil, evalErr(fmt.Sprintf("%s expects %d to %d arguments but found %d",
				f.def.Name, f.def.MinArgs, f.def.MaxArgs, len(args)), pos)
		}
		return f.def.Impl(e, args, pos)
	case customRef:
		v, err := f.def.Fn(args)
		if err != nil {
			return nil, evalErr(fmt.Sprintf("%s failed: %v", f.def.Name, err), pos)
		}
		return v, nil
	default:
		return nil, evalErr("Value is not a function", pos)
	}
}

func (e *Evaluator) resolveLang(name string, pos int) (types.GrammarRef, error) {
	if e.langs != nil {
		if g, ok := e.langs.Lang(name); ok {
			return g, nil
		}
	}
	return nil, evalErr(fmt.Sprintf("Lang %q is not defined", name), pos)
}

func (e *Evaluator) evalInLang(x types.InLang, env *Env) (types.Value, error) {
	recv, err := e.Eval(x.Receiver, env)
	if err != nil {
		return nil, err
	}
	word, ok := recv.(string)
	if !ok {
		return nil, evalErr("Membership test on a non-string value", x.Receiver.Pos())
	}
	g, err := e.resolveLang(x.Lang, x.Position)
	if err != nil {
		return nil, err
	}
	return g.Member(word), nil
}

func (e *Evaluator) evalSelect(x types.SelectExpr, env *Env) (types.Value, error) {
	recv, err := e.Eval(x.Receiver, env)
	if err != nil {
		return nil, err
	}
	word, ok := recv.(string)
	if !ok {
		return nil, evalErr("Selection on a non-string value", x.Receiver.Pos())
	}
	g, err := e.resolveLang(x.Lang, x.Position)
	if err != nil {
		return nil, err
	}
	tree, err := g.ParseTree(word)
	if err != nil {
		return nil, err
	}
	if x.All {
		nodes := selector.SelectAll(tree, x.Path)
		words := make([]types.Value, len(nodes))
		for i, node := range nodes {
			words[i] = node.String()
		}
		return words, nil
	}
	node, err := selector.SelectOne(tree, x.Path)
	if err != nil {
		return nil, err
	}
	return node.String(), nil
}
