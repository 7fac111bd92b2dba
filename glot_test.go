package glot_test

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/glot"
	"github.com/sandrolain/glot/pkg/producer"
	"github.com/sandrolain/glot/pkg/types"
)

func errCode(t *testing.T, err error, code types.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	var gerr *types.Error
	require.True(t, errors.As(err, &gerr), "expected a structured error, got %v", err)
	assert.Equal(t, code, gerr.Code)
}

func TestMembership(t *testing.T) {
	env := glot.New()
	l, err := env.DefineLang("ab", `start: "a" | "a" "a";`)
	require.NoError(t, err)

	assert.True(t, l.Member("a"))
	assert.True(t, l.Member("aa"))
	assert.False(t, l.Member("aaa"))
}

func TestSelection(t *testing.T) {
	env := glot.New()
	_, err := env.DefineLang("path", `start: part ("/" part)*; part: [a-z]+;`)
	require.NoError(t, err)

	got, err := env.Eval(`select_all(path, "..part", _)`, map[string]types.Value{"_": "ab/cd/ef"})
	require.NoError(t, err)
	assert.Equal(t, []types.Value{"ab", "cd", "ef"}, got)
}

func TestRefinementNesting(t *testing.T) {
	env := glot.New()
	pos, err := env.Refine(types.IntType{}, "_ > 0")
	require.NoError(t, err)
	small, err := env.Refine(pos, "_ < 10")
	require.NoError(t, err)

	for _, tc := range []struct {
		v    types.Value
		want bool
	}{
		{5, true},
		{-1, false},
		{15, false},
	} {
		got, err := env.HasType(tc.v, small)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "value %v", tc.v)
	}
}

func TestReachabilityCount(t *testing.T) {
	env := glot.New()
	repeated, err := env.DefineLang("repeated", `start: digit+; digit: [0-9];`)
	require.NoError(t, err)
	single, err := env.DefineLang("single", `start: digit; digit: [0-9];`)
	require.NoError(t, err)

	assert.Equal(t, 2, repeated.Count("digit", "start", false))
	assert.Equal(t, 1, single.Count("digit", "start", false))
}

func TestDefineLangReferencesEarlierLangs(t *testing.T) {
	env := glot.New()
	_, err := env.DefineLang("word", `start: [a-z]+;`)
	require.NoError(t, err)
	row, err := env.DefineLang("row", `start: word ("," word)*;`)
	require.NoError(t, err)

	assert.True(t, row.Member("ab,cd"))
	assert.False(t, row.Member("ab,"))
}

func TestDefineLangRejectsRedefinition(t *testing.T) {
	env := glot.New(glot.WithCaching(8))
	_, err := env.DefineLang("word", `start: [a-z]+;`)
	require.NoError(t, err)
	_, err = env.DefineLang("word", `start: [0-9]+;`)
	errCode(t, err, types.ErrRedefinedName)
}

func TestTypeAliases(t *testing.T) {
	env := glot.New()
	_, err := env.DefineLang("digits", `start: [0-9]+;`)
	require.NoError(t, err)

	pos, err := env.DefineType("Pos", `{int | _ > 0}`)
	require.NoError(t, err)
	ok, err := env.HasType(3, pos)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = env.HasType(-3, pos)
	require.NoError(t, err)
	assert.False(t, ok)

	// aliases resolve inside later annotations
	nested, err := env.Type(`{Pos | _ < 10}`)
	require.NoError(t, err)
	ok, err = env.HasType(5, nested)
	require.NoError(t, err)
	assert.True(t, ok)

	short, err := env.Type(`{digits | len(_) < 3}`)
	require.NoError(t, err)
	ok, err = env.HasType("42", short)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = env.HasType("123", short)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = env.Type(`{Nope | _ > 0}`)
	errCode(t, err, types.ErrUndefinedName)
}

func TestListOf(t *testing.T) {
	env := glot.New()
	ints := env.ListOf(types.IntType{})
	ok, err := env.HasType([]types.Value{1, 2}, ints)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = env.HasType([]types.Value{1, "x"}, ints)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheck(t *testing.T) {
	env := glot.New()
	params := map[string]types.NormalForm{
		"s": types.StringType{},
		"n": types.IntType{},
	}

	_, err := env.Check(`len(s) > n`, params)
	assert.NoError(t, err)

	_, err = env.Check(`len(s)`, params)
	errCode(t, err, types.ErrTypeMismatch)

	_, err = env.Check(`len(m) > 0`, params)
	errCode(t, err, types.ErrUndefinedName)
}

func TestBuildGeneratorLang(t *testing.T) {
	env := glot.New(glot.WithSeed(7), glot.WithBudget(50))
	word, err := env.DefineLang("word", `start: [a-z]+;`)
	require.NoError(t, err)
	long, err := env.Refine(word.Type, "len(_) > 2")
	require.NoError(t, err)

	gen, err := env.BuildGenerator(
		[]glot.Param{{Name: "s", Type: long}},
		"len(s) < 6",
	)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		v, err := gen.Produce()
		require.NoError(t, err)
		args := v.([]types.Value)
		require.Len(t, args, 1)
		s := args[0].(string)
		assert.True(t, word.Member(s))
		assert.Greater(t, len(s), 2)
		assert.Less(t, len(s), 6)
	}
}

func TestBuildGeneratorQuantifiedPrecondition(t *testing.T) {
	env := glot.New(glot.WithSeed(11), glot.WithBudget(100))
	row, err := env.DefineLang("row", `start: field ("," field)*; field: [a-z]*;`)
	require.NoError(t, err)

	gen, err := env.BuildGenerator(
		[]glot.Param{{Name: "r", Type: row.Type}},
		`forall((f) -> len(f) > 0, select_all(row, "..field", r))`,
	)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		v, err := gen.Produce()
		require.NoError(t, err)
		s := v.([]types.Value)[0].(string)
		assert.True(t, row.Member(s))
		assert.NotEmpty(t, s)
		assert.False(t, strings.Contains(s, ",,"), "empty field in %q", s)
		assert.False(t, strings.HasPrefix(s, ","), "empty field in %q", s)
		assert.False(t, strings.HasSuffix(s, ","), "empty field in %q", s)
	}
}

func TestBuildGeneratorCrossParameter(t *testing.T) {
	env := glot.New()
	n := 0
	counter := producer.Func(func() (types.Value, error) {
		n++
		return n, nil
	})

	gen, err := env.BuildGenerator(
		[]glot.Param{
			{Name: "a", Type: types.IntType{}, Gen: counter},
			{Name: "b", Type: types.IntType{}, Gen: producer.Const{Value: 5}},
		},
		"a != b && a > 0",
	)
	require.NoError(t, err)

	seen := map[int]bool{}
	for i := 0; i < 8; i++ {
		v, err := gen.Produce()
		require.NoError(t, err)
		args := v.([]types.Value)
		require.Len(t, args, 2)
		a := args[0].(int)
		assert.NotEqual(t, 5, a)
		assert.Greater(t, a, 0)
		assert.Equal(t, 5, args[1])
		seen[a] = true
	}
	assert.False(t, seen[5], "the cross-parameter filter must reject a == b")
}

func TestBuildGeneratorExplicitGenFiltered(t *testing.T) {
	env := glot.New()
	n := 0
	counter := producer.Func(func() (types.Value, error) {
		n++
		return n, nil
	})

	gen, err := env.BuildGenerator(
		[]glot.Param{{Name: "n", Type: types.IntType{}, Gen: counter}},
		"n % 2 == 0",
	)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		v, err := gen.Produce()
		require.NoError(t, err)
		assert.Equal(t, 0, v.([]types.Value)[0].(int)%2)
	}
}

func TestBuildGeneratorNoProducer(t *testing.T) {
	env := glot.New()
	_, err := env.BuildGenerator([]glot.Param{{Name: "n", Type: types.IntType{}}})
	errCode(t, err, types.ErrNoProducer)
}

func TestBuildGeneratorRejectsBadPrecondition(t *testing.T) {
	env := glot.New()
	_, err := env.BuildGenerator(
		[]glot.Param{{Name: "n", Type: types.IntType{}, Gen: producer.Const{Value: 1}}},
		"n + 1",
	)
	errCode(t, err, types.ErrTypeMismatch)
}

func TestFuzzEndToEnd(t *testing.T) {
	env := glot.New(glot.WithSeed(3), glot.WithBudget(50))
	digits, err := env.DefineLang("digits", `start: [0-9]+;`)
	require.NoError(t, err)
	short, err := env.Refine(digits.Type, "len(_) <= 3")
	require.NoError(t, err)

	gen, err := env.BuildGenerator([]glot.Param{{Name: "s", Type: short}})
	require.NoError(t, err)

	target := func(args []types.Value) error {
		s := args[0].(string)
		if s == "0" {
			return glot.ErrExited
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		if n > 0 && strings.HasPrefix(s, "0") {
			return &types.ContractError{
				Kind: types.PreconditionViolated,
				Fn:   "parse",
				Cond: "no leading zeros",
			}
		}
		return nil
	}

	report, err := env.Fuzz("parse", target, 30, gen)
	require.NoError(t, err)
	assert.Len(t, report.Records, 30)
	assert.Equal(t, 30, report.Passed+report.Violations+report.Crashes+report.Exits)
	assert.Zero(t, report.Crashes)
	for _, r := range report.Records {
		s := r.Args[0].(string)
		assert.True(t, digits.Member(s))
		assert.LessOrEqual(t, len(s), 3)
	}
}

func TestFuzzVerbose(t *testing.T) {
	var buf bytes.Buffer
	env := glot.New(glot.WithVerbose(&buf))

	gen, err := env.BuildGenerator(
		[]glot.Param{{Name: "n", Type: types.IntType{}, Gen: producer.Const{Value: 1}}},
	)
	require.NoError(t, err)

	_, err = env.Fuzz("f", func([]types.Value) error { return nil }, 2, gen)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "[OK] f(1)")
}

func TestDefineFunc(t *testing.T) {
	env := glot.New()
	err := env.DefineFunc("double", "(int) -> int", func(args []types.Value) (types.Value, error) {
		return args[0].(int) * 2, nil
	})
	require.NoError(t, err)

	got, err := env.Eval("double(21)", nil)
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	// custom functions take part in refinement predicates
	even, err := env.Refine(types.IntType{}, "double(_) == _ * 2 && _ % 2 == 0")
	require.NoError(t, err)
	ok, err := env.HasType(4, even)
	require.NoError(t, err)
	assert.True(t, ok)

	// applications are checked against the signature
	_, err = env.Refine(types.IntType{}, `double("x") == 2`)
	errCode(t, err, types.ErrTypeMismatch)

	err = env.DefineFunc("double", "(int) -> int", func(args []types.Value) (types.Value, error) {
		return args[0], nil
	})
	errCode(t, err, types.ErrRedefinedName)

	err = env.DefineFunc("notafn", "int", nil)
	errCode(t, err, types.ErrTypeMismatch)
}

func TestPresets(t *testing.T) {
	names := glot.PresetNames()
	assert.Contains(t, names, "email")
	assert.True(t, sortedStrings(names))

	env := glot.New()
	email, err := env.DefinePreset("email")
	require.NoError(t, err)
	assert.True(t, email.Member("a@b.c"))
	assert.True(t, email.Member("jo_1@example.org"))
	assert.False(t, email.Member("nope"))

	_, err = env.DefinePreset("nope")
	errCode(t, err, types.ErrUndefinedName)
}

func sortedStrings(names []string) bool {
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			return false
		}
	}
	return true
}
