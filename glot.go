// Package glot implements grammar-constrained refinement types for
// contract fuzzing.
//
// A lang is a context-free language compiled from EBNF-style rules; it
// doubles as a string type whose members are the words of the language.
// Refinement types narrow a base type by a boolean predicate over `_`.
// From parameter types and preconditions the package synthesizes input
// generators: predicate conjuncts that translate to solver constraints
// steer word generation directly, the rest become rejection filters.
//
// # Quick Start
//
//	env := glot.New()
//	digits, err := env.DefineLang("digits", `start: [0-9]+;`)
//
//	// {digits | len(_) > 2}
//	long, err := env.Refine(digits.Type, "len(_) > 2")
//
//	gen, err := env.BuildGenerator([]glot.Param{{Name: "s", Type: long}})
//	report, err := env.Fuzz("parse", target, 100, gen)
//
// # More Information
//
// For detailed documentation, see:
//   - Grammars: github.com/sandrolain/glot/pkg/grammar
//   - Types: github.com/sandrolain/glot/pkg/typer
//   - Constraints: github.com/sandrolain/glot/pkg/constraint
//   - Producers: github.com/sandrolain/glot/pkg/producer
package glot

import (
	"fmt"
	"io"

	"github.com/samber/lo"

	"github.com/sandrolain/glot/pkg/cache"
	"github.com/sandrolain/glot/pkg/constraint"
	"github.com/sandrolain/glot/pkg/evaluator"
	"github.com/sandrolain/glot/pkg/functions"
	"github.com/sandrolain/glot/pkg/grammar"
	"github.com/sandrolain/glot/pkg/parser"
	"github.com/sandrolain/glot/pkg/producer"
	"github.com/sandrolain/glot/pkg/solver"
	"github.com/sandrolain/glot/pkg/typer"
	"github.com/sandrolain/glot/pkg/types"
)

// Version returns the current version of glot.
func Version() string {
	return "v0.1.0-dev"
}

// ErrExited is the sentinel a fuzz target returns to stop its
// iteration early without counting it as a crash.
var ErrExited = producer.ErrExited

// Env holds the langs and type aliases of one fuzzing session and the
// evaluator backing its runtime checks. Not safe for concurrent
// definition; generators built from it are independent.
type Env struct {
	typer     *typer.Typer
	eval      *evaluator.Evaluator
	grammars  map[string]*grammar.Grammar
	funcs     *functions.Registry
	funcTypes map[string]types.NormalForm
	cache     *cache.Cache
	budget    int
	maxDepth  int
	seed      int64
	seeded    bool
	verbose   io.Writer
}

// Option configures an Env.
type Option func(*Env)

// WithCaching enables LRU caching of compiled grammars with the given
// capacity.
func WithCaching(capacity int) Option {
	return func(e *Env) { e.cache = cache.New(capacity) }
}

// WithBudget sets the initial candidate budget of synthesized solver
// generators.
func WithBudget(n int) Option {
	return func(e *Env) { e.budget = n }
}

// WithMaxDepth bounds the derivation depth of synthesized generators.
func WithMaxDepth(n int) Option {
	return func(e *Env) { e.maxDepth = n }
}

// WithSeed makes generator synthesis deterministic. Each synthesized
// solver gets its own seed derived from the given one.
func WithSeed(seed int64) Option {
	return func(e *Env) {
		e.seed = seed
		e.seeded = true
	}
}

// WithVerbose prints one colored line per fuzz iteration to w.
func WithVerbose(w io.Writer) Option {
	return func(e *Env) { e.verbose = w }
}

// New creates an empty environment.
func New(opts ...Option) *Env {
	t := typer.New()
	reg := &functions.Registry{}
	e := &Env{
		typer:     t,
		eval:      evaluator.New(t, evaluator.WithFunctions(reg)),
		grammars:  map[string]*grammar.Grammar{},
		funcs:     reg,
		funcTypes: map[string]types.NormalForm{},
		budget:    10,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Runtime exposes the evaluator backing this environment, for fuzz
// targets that assert contracts against values.
func (e *Env) Runtime() *evaluator.Evaluator {
	return e.eval
}

// Lang is a defined language: its compiled grammar and the type it
// introduces, {string | _ in name}.
type Lang struct {
	Name    string
	Grammar *grammar.Grammar
	Type    types.NormalForm
}

// Member reports whether word belongs to the language.
func (l *Lang) Member(word string) bool {
	return l.Grammar.Member(word)
}

// Count returns the number of target occurrences reachable from
// within, saturating at 2 ("two or more"). With direct set, only
// immediate children count.
func (l *Lang) Count(target, within string, direct bool) int {
	return l.Grammar.Count(target, within, direct)
}

// DefineLang compiles rules and registers the language under name,
// together with its implicit type alias. Rules may reference every
// lang defined earlier in this environment as an external symbol.
func (e *Env) DefineLang(name, rules string) (*Lang, error) {
	compile := func() (*grammar.Grammar, error) {
		return grammar.Compile(name, rules, e.grammars)
	}

	var g *grammar.Grammar
	var err error
	if e.cache != nil {
		g, err = e.cache.GetOrCompile(name+"\x00"+rules, compile)
	} else {
		g, err = compile()
	}
	if err != nil {
		return nil, err
	}

	if err := e.typer.DefineLang(name, g, -1); err != nil {
		return nil, err
	}
	e.grammars[name] = g
	return &Lang{
		Name:    name,
		Grammar: g,
		Type:    e.typer.Normalize(types.TNamed{Name: name}),
	}, nil
}

// Type parses a type annotation, for example "[int]" or
// "{digits | len(_) > 2}", and normalizes it.
func (e *Env) Type(src string) (types.NormalForm, error) {
	annot, err := parser.ParseType(src)
	if err != nil {
		return nil, err
	}
	nf := e.typer.Normalize(annot)
	if err := e.typer.Err(); err != nil {
		return nil, err
	}
	return nf, nil
}

// DefineFunc registers a custom function for use inside predicates.
// The signature is a function type annotation, for example
// "(string) -> bool"; applications are checked against it.
func (e *Env) DefineFunc(name, signature string, fn functions.CustomFunc) error {
	nf, err := e.Type(signature)
	if err != nil {
		return err
	}
	if _, ok := types.BaseOf(nf).(types.FunType); !ok {
		return types.NewError(types.ErrTypeMismatch,
			fmt.Sprintf("Signature of %q must be a function type, found %s", name, nf), -1)
	}
	if err := e.funcs.Register(&functions.CustomFunctionDef{Name: name, Signature: signature, Fn: fn}); err != nil {
		return err
	}
	e.funcTypes[name] = nf
	return nil
}

// DefineType registers a type alias under name.
func (e *Env) DefineType(name, src string) (types.NormalForm, error) {
	nf, err := e.Type(src)
	if err != nil {
		return nil, err
	}
	if err := e.typer.DefineTypeAlias(name, nf, -1); err != nil {
		return nil, err
	}
	return nf, nil
}

// Refine narrows base by a predicate over `_`. The predicate is
// checked against bool with `_` bound to the base type; nested
// refinements flatten into one conjunction.
func (e *Env) Refine(base types.NormalForm, predicate string) (types.NormalForm, error) {
	expr, err := e.checkPredicate(predicate, map[string]types.NormalForm{"_": base})
	if err != nil {
		return nil, err
	}
	return e.typer.Refine(base, expr), nil
}

// ListOf builds a list type. Element refinements are dropped: runtime
// checks look at the element base type only.
func (e *Env) ListOf(elem types.NormalForm) types.NormalForm {
	return types.ListType{Elem: types.BaseOf(elem)}
}

// Check parses a predicate, resolves lang memberships and verifies it
// against bool under the given parameter types. The resolved
// expression is returned for reuse.
func (e *Env) Check(predicate string, params map[string]types.NormalForm) (types.Expr, error) {
	return e.checkPredicate(predicate, params)
}

func (e *Env) checkPredicate(src string, params map[string]types.NormalForm) (types.Expr, error) {
	expr, err := parser.ParsePredicate(src)
	if err != nil {
		return nil, err
	}
	expr = e.typer.ResolveLangs(expr)

	scope := typer.NewScope(nil)
	for name, nf := range e.funcTypes {
		if err := scope.Define(name, nf, -1); err != nil {
			return nil, err
		}
	}
	for name, nf := range params {
		if err := scope.Define(name, nf, -1); err != nil {
			return nil, err
		}
	}
	if err := e.typer.Check(expr, types.BoolType{}, scope); err != nil {
		return nil, err
	}
	return expr, nil
}

// Eval parses and evaluates a predicate expression with the given
// variable bindings.
func (e *Env) Eval(src string, vars map[string]types.Value) (types.Value, error) {
	expr, err := parser.ParsePredicate(src)
	if err != nil {
		return nil, err
	}
	expr = e.typer.ResolveLangs(expr)

	env := evaluator.NewEnv(nil)
	for name, v := range vars {
		env.Bind(name, v)
	}
	return e.eval.Eval(expr, env)
}

// HasType reports whether a runtime value inhabits a type, evaluating
// refinement predicates with `_` bound to the value.
func (e *Env) HasType(v types.Value, nf types.NormalForm) (bool, error) {
	return e.eval.HasType(v, nf)
}

// Param describes one parameter of a function under test. Gen, when
// set, overrides generator synthesis for this parameter.
type Param struct {
	Name string
	Type types.NormalForm
	Gen  producer.Producer
}

// BuildGenerator synthesizes an argument-tuple producer from parameter
// types and preconditions.
//
// Preconditions are split into conjuncts. A conjunct mentioning only
// one parameter steers that parameter's generator; conjuncts relating
// several parameters become a rejection filter over the drawn tuple.
// For a lang-typed parameter, steering conjuncts that translate to
// solver constraints are handed to the word solver, the rest are
// rejection-sampled after generation. A parameter without a lang in
// its type needs an explicit Gen.
func (e *Env) BuildGenerator(params []Param, preconditions ...string) (producer.Producer, error) {
	names := lo.Map(params, func(p Param, _ int) string { return p.Name })
	scope := map[string]types.NormalForm{}
	for _, p := range params {
		scope[p.Name] = p.Type
	}

	var conjuncts []types.Expr
	for _, pre := range preconditions {
		expr, err := e.checkPredicate(pre, scope)
		if err != nil {
			return nil, err
		}
		conjuncts = append(conjuncts, constraint.Split(expr)...)
	}

	elems := make([]producer.Producer, len(params))
	remaining := conjuncts
	for i, p := range params {
		var picked []types.Expr
		picked, remaining = constraint.ClassifyConjuncts(remaining, p.Name, names)

		inner, err := e.paramProducer(p, picked)
		if err != nil {
			return nil, err
		}
		elems[i] = inner
	}

	// whatever is left relates several parameters
	var crossTest func(args []types.Value) (bool, error)
	if len(remaining) > 0 {
		cross := remaining
		crossTest = func(args []types.Value) (bool, error) {
			env := evaluator.NewEnv(nil)
			for j, name := range names {
				env.Bind(name, args[j])
			}
			return e.allHold(cross, env)
		}
	}
	return producer.Product{Producers: elems, Test: crossTest}, nil
}

// paramProducer builds the generator for one parameter. picked holds
// the conjuncts that mention this parameter only, still phrased in
// terms of its name.
func (e *Env) paramProducer(p Param, picked []types.Expr) (producer.Producer, error) {
	if p.Gen != nil {
		if len(picked) == 0 {
			return p.Gen, nil
		}
		return producer.Filtered{Inner: p.Gen, Test: e.valueTest(p.Name, picked)}, nil
	}

	// phrase everything in terms of `_`, like a refinement predicate
	hole := map[string]types.Expr{p.Name: types.Var{Name: "_"}}
	var conds []types.Expr
	if ref, ok := p.Type.(types.Refinement); ok {
		conds = append(conds, constraint.Split(ref.Pred)...)
	}
	for _, c := range picked {
		conds = append(conds, constraint.Subst(c, hole))
	}

	g, rest := e.extractLang(conds)
	if g == nil {
		return nil, types.NewError(types.ErrNoProducer,
			fmt.Sprintf("No generator for parameter %q: give it a lang-based type or an explicit Gen", p.Name), -1)
	}

	var formulas []constraint.Formula
	var filters []types.Expr
	for _, c := range rest {
		if f, ok := constraint.Translate(c, "_"); ok {
			formulas = append(formulas, f)
		} else {
			filters = append(filters, c)
		}
	}

	build := func(budget int) solver.Solver {
		opts := []solver.Option{solver.WithBudget(budget)}
		if e.maxDepth > 0 {
			opts = append(opts, solver.WithMaxDepth(e.maxDepth))
		}
		if e.seeded {
			e.seed++
			opts = append(opts, solver.WithSeed(e.seed))
		}
		return solver.NewRandom(g, formulas, opts...)
	}

	var test func(types.Value) (bool, error)
	if len(filters) > 0 {
		test = e.valueTest("_", filters)
	}
	return producer.NewSolver(build, e.budget, test), nil
}

// extractLang pulls the first `_ in L` conjunct out as the grammar to
// generate from. Further memberships stay behind as filters.
func (e *Env) extractLang(conds []types.Expr) (*grammar.Grammar, []types.Expr) {
	var g *grammar.Grammar
	var rest []types.Expr
	for _, c := range conds {
		if in, ok := c.(types.InLang); ok && g == nil {
			if v, ok := in.Receiver.(types.Var); ok && v.Name == "_" {
				if found, ok := e.grammars[in.Lang]; ok {
					g = found
					continue
				}
			}
		}
		rest = append(rest, c)
	}
	return g, rest
}

// valueTest evaluates conds with name bound to the candidate value.
func (e *Env) valueTest(name string, conds []types.Expr) func(types.Value) (bool, error) {
	return func(v types.Value) (bool, error) {
		env := evaluator.NewEnv(nil)
		env.Bind(name, v)
		return e.allHold(conds, env)
	}
}

func (e *Env) allHold(conds []types.Expr, env *evaluator.Env) (bool, error) {
	for _, c := range conds {
		v, err := e.eval.Eval(c, env)
		if err != nil {
			return false, err
		}
		ok, isBool := v.(bool)
		if !isBool {
			return false, evaluatorBoolError(c)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func evaluatorBoolError(c types.Expr) error {
	return types.NewError(types.ErrEvalFailed,
		fmt.Sprintf("Condition %s did not evaluate to a boolean", types.ExprString(c)), c.Pos())
}

// Fuzz runs the target times times on arguments drawn from the
// producer, classifying each outcome. A failing producer aborts the
// run; contract violations and crashes abort only their own iteration.
func (e *Env) Fuzz(name string, target producer.Target, times int, p producer.Producer) (*producer.Report, error) {
	var opts []producer.FuzzOption
	if e.verbose != nil {
		opts = append(opts, producer.WithProgress(e.verbose))
	}
	return producer.Fuzz(name, target, times, p, opts...)
}
