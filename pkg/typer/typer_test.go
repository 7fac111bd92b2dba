package typer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/glot/pkg/grammar"
	"github.com/sandrolain/glot/pkg/parser"
	"github.com/sandrolain/glot/pkg/typer"
	"github.com/sandrolain/glot/pkg/types"
)

func newTyperWithLang(t *testing.T, name, rules string) (*typer.Typer, *grammar.Grammar) {
	t.Helper()
	g, err := grammar.Compile(name, rules, nil)
	require.NoError(t, err)
	ty := typer.New()
	require.NoError(t, ty.DefineLang(name, g, 0))
	return ty, g
}

func parsePredicate(t *testing.T, src string) types.Expr {
	t.Helper()
	e, err := parser.ParsePredicate(src)
	require.NoError(t, err)
	return e
}

func TestNormalizeBuiltins(t *testing.T) {
	ty := typer.New()
	tests := []struct {
		annot types.TypeExpr
		want  types.NormalForm
	}{
		{types.TInt{}, types.IntType{}},
		{types.TBool{}, types.BoolType{}},
		{types.TString{}, types.StringType{}},
		{types.TUnit{}, types.UnitType{}},
		{types.TTop{}, types.TopType{}},
		{types.TList{Elem: types.TInt{}}, types.ListType{Elem: types.IntType{}}},
		{
			types.TFun{Args: []types.TypeExpr{types.TInt{}, types.TString{}}, Ret: types.TBool{}},
			types.FunType{Args: []types.SimpleType{types.IntType{}, types.StringType{}}, Ret: types.BoolType{}},
		},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ty.Normalize(tc.annot))
		assert.NoError(t, ty.Err())
	}
}

func TestNormalizeUndefinedAlias(t *testing.T) {
	ty := typer.New()
	nf := ty.Normalize(types.TNamed{Name: "Missing"})
	assert.Equal(t, types.NoType{}, nf)
	err := ty.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(types.ErrUndefinedName))
}

func TestDefineLangImplicitAlias(t *testing.T) {
	ty, _ := newTyperWithLang(t, "Word", `start: [a-z]+;`)

	nf := ty.Normalize(types.TNamed{Name: "Word"})
	require.NoError(t, ty.Err())
	ref, ok := nf.(types.Refinement)
	require.True(t, ok, "lang alias should normalize to a refinement")
	assert.Equal(t, types.StringType{}, ref.Base)
	assert.Equal(t, "(_ in Word)", types.ExprString(ref.Pred))
}

func TestDefineRejectsRedefinition(t *testing.T) {
	ty, _ := newTyperWithLang(t, "Word", `start: [a-z]+;`)

	// same name in either namespace is rejected
	g2, err := grammar.Compile("Word", `start: [0-9];`, nil)
	require.NoError(t, err)
	assert.Error(t, ty.DefineLang("Word", g2, 10))
	assert.Error(t, ty.DefineTypeAlias("Word", types.IntType{}, 10))

	require.NoError(t, ty.DefineTypeAlias("Digit", types.IntType{}, 0))
	assert.Error(t, ty.DefineLang("Digit", g2, 10))
}

func TestRefinementFlattening(t *testing.T) {
	ty := typer.New()
	require.NoError(t, ty.DefineTypeAlias("Pos", types.Refinement{
		Base: types.IntType{},
		Pred: parsePredicate(t, "_ > 0"),
	}, 0))

	nf := ty.Normalize(types.TRefine{
		Base: types.TNamed{Name: "Pos"},
		Pred: parsePredicate(t, "_ < 10"),
	})
	require.NoError(t, ty.Err())

	ref, ok := nf.(types.Refinement)
	require.True(t, ok)
	assert.Equal(t, types.IntType{}, ref.Base)
	// refining a refinement conjoins rather than nesting
	assert.Equal(t, "((_ < 10) && (_ > 0))", types.ExprString(ref.Pred))
	assert.Equal(t, types.IntType{}, types.BaseOf(nf))
}

func TestExpandRejectsRefinement(t *testing.T) {
	ty := typer.New()
	st := ty.Expand(types.TRefine{Base: types.TInt{}, Pred: parsePredicate(t, "_ > 0")})
	assert.Equal(t, types.IntType{}, st)
	err := ty.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(types.ErrExpectSimpleType))
}

func TestIsSubtype(t *testing.T) {
	ty, g := newTyperWithLang(t, "Word", `start: [a-z]+;`)
	lang := types.LangType{Grammar: g}
	intList := types.ListType{Elem: types.IntType{}}
	topList := types.ListType{Elem: types.TopType{}}
	intToInt := types.FunType{Args: []types.SimpleType{types.IntType{}}, Ret: types.IntType{}}
	topToInt := types.FunType{Args: []types.SimpleType{types.TopType{}}, Ret: types.IntType{}}
	intToTop := types.FunType{Args: []types.SimpleType{types.IntType{}}, Ret: types.TopType{}}

	reflexive := []types.SimpleType{
		types.IntType{}, types.BoolType{}, types.StringType{}, types.TopType{},
		lang, intList, topList, intToInt, topToInt,
	}
	for _, st := range reflexive {
		assert.True(t, ty.IsSubtype(st, st), "reflexivity of %s", st)
	}

	assert.True(t, ty.IsSubtype(types.IntType{}, types.TopType{}))
	assert.True(t, ty.IsSubtype(lang, types.StringType{}))
	assert.True(t, ty.IsSubtype(intList, topList))
	assert.False(t, ty.IsSubtype(topList, intList))
	// contravariant in arguments, covariant in results
	assert.True(t, ty.IsSubtype(topToInt, intToInt))
	assert.False(t, ty.IsSubtype(intToInt, topToInt))
	assert.True(t, ty.IsSubtype(intToInt, intToTop))
	assert.False(t, ty.IsSubtype(types.StringType{}, lang))

	// transitivity samples: Lang <= String <= Top, [int] <= [top] <= top
	assert.True(t, ty.IsSubtype(lang, types.TopType{}))
	assert.True(t, ty.IsSubtype(intList, types.TopType{}))
}

func TestInfer(t *testing.T) {
	ty := typer.New()
	scope := typer.NewScope(nil)
	require.NoError(t, scope.Define("n", types.IntType{}, 0))
	require.NoError(t, scope.Define("s", types.StringType{}, 0))

	tests := []struct {
		src  string
		want types.SimpleType
	}{
		{"42", types.IntType{}},
		{"true", types.BoolType{}},
		{`"x"`, types.StringType{}},
		{"n + 1", types.IntType{}},
		{"s + s", types.StringType{}},
		{"n < 3", types.BoolType{}},
		{"s <= s", types.BoolType{}},
		{"n == n && true", types.BoolType{}},
		{"len(s)", types.IntType{}},
		{"substr(s, 0, n)", types.StringType{}},
		{"find(s, \"a\")", types.IntType{}},
		{"find(s, \"a\", 2)", types.IntType{}},
		{"n > 0 ? s : s", types.StringType{}},
		{"-n", types.IntType{}},
		{"!true", types.BoolType{}},
		{`"a" in s`, types.BoolType{}},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			got := ty.Infer(parsePredicate(t, tc.src), scope)
			require.NoError(t, ty.Err())
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestInferErrors(t *testing.T) {
	ty := typer.New()
	scope := typer.NewScope(nil)
	require.NoError(t, scope.Define("n", types.IntType{}, 0))

	tests := []struct {
		name string
		src  string
		code types.ErrorCode
	}{
		{"undefined name", "m + 1", types.ErrUndefinedName},
		{"arity", "len(n, n)", types.ErrArityMismatch},
		{"argument type", "len(n)", types.ErrTypeMismatch},
		{"no overload", `n + "x"`, types.ErrTypeMismatch},
		{"not a function", "n(1)", types.ErrNotAFunction},
		{"bare lambda", "(x) -> x", types.ErrMissingTypeAnnot},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ty.Infer(parsePredicate(t, tc.src), scope)
			err := ty.Err()
			require.Error(t, err)
			assert.Contains(t, err.Error(), string(tc.code))
		})
	}
}

func TestEnsureLambda(t *testing.T) {
	ty := typer.New()
	scope := typer.NewScope(nil)
	pred := types.FunType{Args: []types.SimpleType{types.StringType{}}, Ret: types.BoolType{}}

	ty.Ensure(parsePredicate(t, `(x) -> len(x) > 0`), pred, scope)
	assert.NoError(t, ty.Err())

	ty.Ensure(parsePredicate(t, `(x) -> x + 1`), pred, scope)
	err := ty.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(types.ErrTypeMismatch))

	ty.Ensure(parsePredicate(t, `(x, x) -> true`), types.FunType{
		Args: []types.SimpleType{types.StringType{}, types.StringType{}},
		Ret:  types.BoolType{},
	}, scope)
	err = ty.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(types.ErrRedefinedName))
}

func TestCheckQuantifiedSelection(t *testing.T) {
	ty, _ := newTyperWithLang(t, "Csv", `start: field ("," field)*; field: [a-z]+;`)
	scope := typer.NewScope(nil)
	require.NoError(t, scope.Define("_", types.StringType{}, 0))

	err := ty.Check(parsePredicate(t, `forall((x) -> len(x) > 0, select_all(Csv, "..field", _))`),
		types.BoolType{}, scope)
	assert.NoError(t, err)
}

func TestSelectTyping(t *testing.T) {
	ty, _ := newTyperWithLang(t, "Csv", `start: field ("," field)*; field: [a-z]+;`)
	scope := typer.NewScope(nil)
	require.NoError(t, scope.Define("_", types.StringType{}, 0))

	got := ty.Infer(parsePredicate(t, `select_all(Csv, "..field", _)`), scope)
	require.NoError(t, ty.Err())
	assert.Equal(t, types.ListType{Elem: types.StringType{}}, got)

	// select requires a statically unique path
	ty.Infer(parsePredicate(t, `select(Csv, "..field", _)`), scope)
	err := ty.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(types.ErrPathNotUnique))

	ty.Infer(parsePredicate(t, `select(Csv, ".field[1]", _)`), scope)
	assert.NoError(t, ty.Err())

	ty.Infer(parsePredicate(t, `select(Nope, ".field[1]", _)`), scope)
	err = ty.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(types.ErrUndefinedName))
}

func TestResolveLangs(t *testing.T) {
	ty, _ := newTyperWithLang(t, "Word", `start: [a-z]+;`)
	scope := typer.NewScope(nil)
	require.NoError(t, scope.Define("_", types.StringType{}, 0))
	require.NoError(t, scope.Define("s", types.StringType{}, 0))

	resolved := ty.ResolveLangs(parsePredicate(t, "_ in Word"))
	inLang, ok := resolved.(types.InLang)
	require.True(t, ok, "in with a lang name should resolve to a membership test")
	assert.Equal(t, "Word", inLang.Lang)
	assert.Equal(t, types.BoolType{}, ty.Infer(resolved, scope))
	assert.NoError(t, ty.Err())

	// string containment stays an ordinary application
	contains := ty.ResolveLangs(parsePredicate(t, `"a" in s`))
	_, ok = contains.(types.App)
	assert.True(t, ok)
}
