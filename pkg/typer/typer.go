// Package typer implements the refinement type system: normalization
// of type annotations, lang and type alias registries, subtyping and
// bidirectional expression checking.
package typer

import (
	"errors"
	"fmt"

	"github.com/sandrolain/glot/pkg/selector"
	"github.com/sandrolain/glot/pkg/types"
)

// Typer holds the lang and type alias registries and performs
// normalization and expression checking. Errors are collected per
// checking pass; a pass that reported anything fails as a whole.
type Typer struct {
	langs   map[string]types.GrammarRef
	aliases map[string]types.NormalForm
	defined map[string]int // definition positions of both namespaces
	errs    []error
}

// New creates an empty typer.
func New() *Typer {
	return &Typer{
		langs:   map[string]types.GrammarRef{},
		aliases: map[string]types.NormalForm{},
		defined: map[string]int{},
	}
}

func (t *Typer) report(err error) {
	t.errs = append(t.errs, err)
}

// Err returns every error reported since the last call, joined, and
// resets the collection.
func (t *Typer) Err() error {
	err := errors.Join(t.errs...)
	t.errs = nil
	return err
}

// DefineLang registers a compiled grammar under name, together with
// the implicit type alias {string | _ in name}.
func (t *Typer) DefineLang(name string, g types.GrammarRef, pos int) error {
	if prev, ok := t.defined[name]; ok {
		return types.NewError(types.ErrRedefinedName,
			fmt.Sprintf("Name %q is already defined", name), pos).WithRelated(prev)
	}
	t.langs[name] = g
	t.aliases[name] = types.Refinement{
		Base: types.StringType{},
		Pred: types.InLang{Receiver: types.Var{Name: "_"}, Lang: name},
	}
	t.defined[name] = pos
	return nil
}

// DefineTypeAlias registers a normal form under name. Lang names and
// type aliases share one namespace.
func (t *Typer) DefineTypeAlias(name string, nf types.NormalForm, pos int) error {
	if prev, ok := t.defined[name]; ok {
		return types.NewError(types.ErrRedefinedName,
			fmt.Sprintf("Name %q is already defined", name), pos).WithRelated(prev)
	}
	t.aliases[name] = nf
	t.defined[name] = pos
	return nil
}

// Lang resolves a registered lang by name.
func (t *Typer) Lang(name string) (types.GrammarRef, bool) {
	g, ok := t.langs[name]
	return g, ok
}

func (t *Typer) resolveLang(name string, pos int) (types.GrammarRef, bool) {
	g, ok := t.langs[name]
	if !ok {
		t.report(types.NewError(types.ErrUndefinedName,
			fmt.Sprintf("Lang %q is not defined", name), pos))
	}
	return g, ok
}

// Normalize expands a type annotation into normal form: aliases are
// resolved and nested refinements are flattened into one conjunction.
func (t *Typer) Normalize(annot types.TypeExpr) types.NormalForm {
	switch a := annot.(type) {
	case types.TInt:
		return types.IntType{}
	case types.TBool:
		return types.BoolType{}
	case types.TString:
		return types.StringType{}
	case types.TUnit:
		return types.UnitType{}
	case types.TTop:
		return types.TopType{}
	case types.TList:
		return types.ListType{Elem: t.Expand(a.Elem)}
	case types.TFun:
		args := make([]types.SimpleType, len(a.Args))
		for i, arg := range a.Args {
			args[i] = t.Expand(arg)
		}
		return types.FunType{Args: args, Ret: t.Expand(a.Ret)}
	case types.TNamed:
		if nf, ok := t.aliases[a.Name]; ok {
			return nf
		}
		t.report(types.NewError(types.ErrUndefinedName,
			fmt.Sprintf("Type %q is not defined", a.Name), a.Position))
		return types.NoType{}
	case types.TRefine:
		switch base := t.Normalize(a.Base).(type) {
		case types.Refinement:
			return types.Refinement{
				Base: base.Base,
				Pred: types.Infix("&&", a.Pred, base.Pred),
			}
		case types.SimpleType:
			return types.Refinement{Base: base, Pred: a.Pred}
		default:
			return types.NoType{}
		}
	default:
		return types.NoType{}
	}
}

// Refine narrows an existing normal form by another predicate,
// flattening into a single conjunction.
func (t *Typer) Refine(nf types.NormalForm, pred types.Expr) types.NormalForm {
	switch base := nf.(type) {
	case types.Refinement:
		return types.Refinement{Base: base.Base, Pred: types.Infix("&&", pred, base.Pred)}
	case types.SimpleType:
		return types.Refinement{Base: base, Pred: pred}
	default:
		return types.NoType{}
	}
}

// Expand normalizes an annotation and requires the result to be a
// simple type.
func (t *Typer) Expand(annot types.TypeExpr) types.SimpleType {
	switch nf := t.Normalize(annot).(type) {
	case types.Refinement:
		t.report(types.NewError(types.ErrExpectSimpleType,
			"A simple type is required here", annotPos(annot)))
		return nf.Base
	case types.SimpleType:
		return nf
	default:
		return types.NoType{}
	}
}

func annotPos(annot types.TypeExpr) int {
	if named, ok := annot.(types.TNamed); ok {
		return named.Position
	}
	return -1
}

// ResolveLangs rewrites "x in L" into a lang membership test wherever
// L names a registered lang rather than a string variable.
func (t *Typer) ResolveLangs(expr types.Expr) types.Expr {
	switch e := expr.(type) {
	case types.App:
		if f, ok := e.Fn.(types.Var); ok && f.Name == "in" && len(e.Args) == 2 {
			if v, ok := e.Args[1].(types.Var); ok {
				if _, isLang := t.langs[v.Name]; isLang {
					return types.InLang{
						Receiver: t.ResolveLangs(e.Args[0]),
						Lang:     v.Name,
						Position: e.Position,
					}
				}
			}
		}
		args := make([]types.Expr, len(e.Args))
		for i, arg := range e.Args {
			args[i] = t.ResolveLangs(arg)
		}
		return types.App{Fn: t.ResolveLangs(e.Fn), Args: args, Position: e.Position}
	case types.Lambda:
		return types.Lambda{Params: e.Params, Body: t.ResolveLangs(e.Body), Position: e.Position}
	case types.IfThenElse:
		return types.IfThenElse{
			Cond:     t.ResolveLangs(e.Cond),
			Then:     t.ResolveLangs(e.Then),
			Else:     t.ResolveLangs(e.Else),
			Position: e.Position,
		}
	case types.InLang:
		return types.InLang{Receiver: t.ResolveLangs(e.Receiver), Lang: e.Lang, Position: e.Position}
	case types.SelectExpr:
		return types.SelectExpr{
			Receiver: t.ResolveLangs(e.Receiver),
			Lang:     e.Lang,
			Path:     e.Path,
			All:      e.All,
			Position: e.Position,
		}
	default:
		return expr
	}
}

// Infer computes the simple type of an expression. Failures are
// reported and yield NoType, which silences follow-up errors.
func (t *Typer) Infer(expr types.Expr, scope *Scope) types.SimpleType {
	switch e := expr.(type) {
	case types.IntLit:
		return types.IntType{}
	case types.BoolLit:
		return types.BoolType{}
	case types.StringLit:
		return types.StringType{}
	case types.Var:
		if nf, ok := scope.Lookup(e.Name); ok {
			return types.BaseOf(nf)
		}
		if st, ok := predefType(e.Name); ok {
			return st
		}
		t.report(types.NewError(types.ErrUndefinedName,
			fmt.Sprintf("Name %q is not defined", e.Name), e.Position))
		return types.NoType{}
	case types.App:
		return t.inferApp(e, scope)
	case types.InLang:
		t.Ensure(e.Receiver, types.StringType{}, scope)
		t.resolveLang(e.Lang, e.Position)
		return types.BoolType{}
	case types.SelectExpr:
		t.Ensure(e.Receiver, types.StringType{}, scope)
		if g, ok := t.resolveLang(e.Lang, e.Position); ok {
			if err := selector.Validate(e.Path, g, !e.All); err != nil {
				t.report(err)
			}
		}
		if e.All {
			return types.ListType{Elem: types.StringType{}}
		}
		return types.StringType{}
	case types.IfThenElse:
		t.Ensure(e.Cond, types.BoolType{}, scope)
		then := t.Infer(e.Then, scope)
		t.Ensure(e.Else, then, scope)
		return then
	case types.Lambda:
		t.report(types.NewError(types.ErrMissingTypeAnnot,
			"Cannot infer the type of a lambda, annotate it", e.Position))
		return types.NoType{}
	default:
		return types.NoType{}
	}
}

func (t *Typer) inferApp(app types.App, scope *Scope) types.SimpleType {
	switch fn := t.Infer(app.Fn, scope).(type) {
	case types.FunType:
		if len(fn.Args) != len(app.Args) {
			t.report(types.NewError(types.ErrArityMismatch,
				fmt.Sprintf("Expected %d arguments but found %d", len(fn.Args), len(app.Args)), app.Position))
			return fn.Ret
		}
		for i, arg := range app.Args {
			t.Ensure(arg, fn.Args[i], scope)
		}
		return fn.Ret
	case types.OverloadType:
		return t.inferOverload(app, fn, scope)
	case types.NoType:
		return types.NoType{}
	default:
		t.report(types.NewError(types.ErrNotAFunction,
			fmt.Sprintf("Expected a function but found %s", fn), app.Fn.Pos()))
		return types.NoType{}
	}
}

// inferOverload picks the first signature the arguments satisfy.
func (t *Typer) inferOverload(app types.App, overload types.OverloadType, scope *Scope) types.SimpleType {
	actual := make([]types.SimpleType, len(app.Args))
	for i, arg := range app.Args {
		actual[i] = t.Infer(arg, scope)
	}
	for _, option := range overload.Options {
		if len(option.Args) != len(app.Args) {
			continue
		}
		ok := true
		for i, at := range actual {
			if !t.IsSubtype(at, option.Args[i]) {
				ok = false
				break
			}
		}
		if ok {
			return option.Ret
		}
	}
	t.report(types.NewError(types.ErrTypeMismatch,
		fmt.Sprintf("No signature of %s matches the arguments", overload), app.Position))
	return types.NoType{}
}

// Ensure checks an expression against an expected simple type.
func (t *Typer) Ensure(expr types.Expr, expected types.SimpleType, scope *Scope) {
	switch e := expr.(type) {
	case types.Lambda:
		fn, ok := expected.(types.FunType)
		if !ok {
			t.report(types.NewError(types.ErrTypeMismatch,
				fmt.Sprintf("Expected %s but found a function", expected), e.Position))
			return
		}
		if len(fn.Args) != len(e.Params) {
			t.report(types.NewError(types.ErrArityMismatch,
				fmt.Sprintf("Expected %d parameters but found %d", len(fn.Args), len(e.Params)), e.Position))
			return
		}
		inner := NewScope(scope)
		for i, param := range e.Params {
			if err := inner.Define(param, fn.Args[i], e.Position); err != nil {
				t.report(err)
			}
		}
		t.Ensure(e.Body, fn.Ret, inner)
	case types.IfThenElse:
		t.Ensure(e.Cond, types.BoolType{}, scope)
		t.Ensure(e.Then, expected, scope)
		t.Ensure(e.Else, expected, scope)
	default:
		actual := t.Infer(expr, scope)
		if !t.IsSubtype(actual, expected) {
			t.report(types.NewError(types.ErrTypeMismatch,
				fmt.Sprintf("Expected %s but found %s", expected, actual), expr.Pos()))
		}
	}
}

// Check verifies an expression against an expected simple type in one
// pass and returns the collected errors.
func (t *Typer) Check(expr types.Expr, expected types.SimpleType, scope *Scope) error {
	t.Ensure(expr, expected, scope)
	return t.Err()
}

// IsSubtype implements structural subtyping: reflexive, Top on top,
// lists covariant, functions contravariant in arguments and covariant
// in results, langs below string. NoType is compatible with anything
// to avoid follow-up noise.
func (t *Typer) IsSubtype(lower, upper types.SimpleType) bool {
	if types.TypeEqual(lower, upper) {
		return true
	}
	if _, ok := lower.(types.NoType); ok {
		return true
	}
	if _, ok := upper.(types.NoType); ok {
		return true
	}

	switch up := upper.(type) {
	case types.TopType:
		return true
	case types.StringType:
		_, isLang := lower.(types.LangType)
		return isLang
	case types.ListType:
		low, ok := lower.(types.ListType)
		return ok && t.IsSubtype(low.Elem, up.Elem)
	case types.FunType:
		low, ok := lower.(types.FunType)
		if !ok || len(low.Args) != len(up.Args) {
			return false
		}
		for i := range low.Args {
			if !t.IsSubtype(up.Args[i], low.Args[i]) {
				return false
			}
		}
		return t.IsSubtype(low.Ret, up.Ret)
	default:
		return false
	}
}
