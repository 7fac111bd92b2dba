package evaluator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sandrolain/glot/pkg/types"
)

// builtinDef defines a builtin function of the predicate language.
type builtinDef struct {
	Name    string
	MinArgs int
	MaxArgs int
	Impl    builtinImpl
}

type builtinImpl func(e *Evaluator, args []types.Value, pos int) (types.Value, error)

var builtins map[string]*builtinDef

func init() {
	builtins = map[string]*builtinDef{
		"prefix_-": {Name: "prefix_-", MinArgs: 1, MaxArgs: 1, Impl: opNeg},
		"prefix_!": {Name: "prefix_!", MinArgs: 1, MaxArgs: 1, Impl: opNot},

		"+": {Name: "+", MinArgs: 2, MaxArgs: 2, Impl: opAdd},
		"-": {Name: "-", MinArgs: 2, MaxArgs: 2, Impl: opSub},
		"*": {Name: "*", MinArgs: 2, MaxArgs: 2, Impl: opMul},
		"/": {Name: "/", MinArgs: 2, MaxArgs: 2, Impl: opDiv},
		"%": {Name: "%", MinArgs: 2, MaxArgs: 2, Impl: opMod},

		"<":  {Name: "<", MinArgs: 2, MaxArgs: 2, Impl: opLt},
		"<=": {Name: "<=", MinArgs: 2, MaxArgs: 2, Impl: opLe},
		">":  {Name: ">", MinArgs: 2, MaxArgs: 2, Impl: opGt},
		">=": {Name: ">=", MinArgs: 2, MaxArgs: 2, Impl: opGe},
		"==": {Name: "==", MinArgs: 2, MaxArgs: 2, Impl: opEq},
		"!=": {Name: "!=", MinArgs: 2, MaxArgs: 2, Impl: opNe},
		"in": {Name: "in", MinArgs: 2, MaxArgs: 2, Impl: fnContains},

		"len":        {Name: "len", MinArgs: 1, MaxArgs: 1, Impl: fnLen},
		"concat":     {Name: "concat", MinArgs: 2, MaxArgs: 2, Impl: fnConcat},
		"substr":     {Name: "substr", MinArgs: 3, MaxArgs: 3, Impl: fnSubstr},
		"at":         {Name: "at", MinArgs: 2, MaxArgs: 2, Impl: fnAt},
		"ord":        {Name: "ord", MinArgs: 1, MaxArgs: 1, Impl: fnOrd},
		"chr":        {Name: "chr", MinArgs: 1, MaxArgs: 1, Impl: fnChr},
		"int":        {Name: "int", MinArgs: 1, MaxArgs: 1, Impl: fnInt},
		"str":        {Name: "str", MinArgs: 1, MaxArgs: 1, Impl: fnStr},
		"startswith": {Name: "startswith", MinArgs: 2, MaxArgs: 2, Impl: fnStartswith},
		"endswith":   {Name: "endswith", MinArgs: 2, MaxArgs: 2, Impl: fnEndswith},
		"isdigit":    {Name: "isdigit", MinArgs: 1, MaxArgs: 1, Impl: fnIsdigit},
		"find":       {Name: "find", MinArgs: 2, MaxArgs: 3, Impl: fnFind},
		"index":      {Name: "index", MinArgs: 2, MaxArgs: 3, Impl: fnFind},
		"replace":    {Name: "replace", MinArgs: 3, MaxArgs: 4, Impl: fnReplace},

		"forall": {Name: "forall", MinArgs: 2, MaxArgs: 2, Impl: fnForall},
		"exists": {Name: "exists", MinArgs: 2, MaxArgs: 2, Impl: fnExists},
		"first":  {Name: "first", MinArgs: 1, MaxArgs: 1, Impl: fnFirst},
		"last":   {Name: "last", MinArgs: 1, MaxArgs: 1, Impl: fnLast},
	}
}

func asInt(v types.Value, pos int) (int, error) {
	n, ok := v.(int)
	if !ok {
		return 0, evalErr(fmt.Sprintf("Expected an integer but found %s", types.ShowValue(v)), pos)
	}
	return n, nil
}

func asBool(v types.Value, pos int) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, evalErr(fmt.Sprintf("Expected a boolean but found %s", types.ShowValue(v)), pos)
	}
	return b, nil
}

func asString(v types.Value, pos int) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", evalErr(fmt.Sprintf("Expected a string but found %s", types.ShowValue(v)), pos)
	}
	return s, nil
}

func asList(v types.Value, pos int) ([]types.Value, error) {
	xs, ok := v.([]types.Value)
	if !ok {
		return nil, evalErr(fmt.Sprintf("Expected a list but found %s", types.ShowValue(v)), pos)
	}
	return xs, nil
}

func opNeg(_ *Evaluator, args []types.Value, pos int) (types.Value, error) {
	n, err := asInt(args[0], pos)
	if err != nil {
		return nil, err
	}
	return -n, nil
}

func opNot(_ *Evaluator, args []types.Value, pos int) (types.Value, error) {
	b, err := asBool(args[0], pos)
	if err != nil {
		return nil, err
	}
	return !b, nil
}

// opAdd adds integers or concatenates strings, matching its two
// signatures.
func opAdd(_ *Evaluator, args []types.Value, pos int) (types.Value, error) {
	if a, ok := args[0].(string); ok {
		b, err := asString(args[1], pos)
		if err != nil {
			return nil, err
		}
		return a + b, nil
	}
	a, err := asInt(args[0], pos)
	if err != nil {
		return nil, err
	}
	b, err := asInt(args[1], pos)
	if err != nil {
		return nil, err
	}
	return a + b, nil
}

func intOp(f func(a, b int) (types.Value, error)) builtinImpl {
	return func(_ *Evaluator, args []types.Value, pos int) (types.Value, error) {
		a, err := asInt(args[0], pos)
		if err != nil {
			return nil, err
		}
		b, err := asInt(args[1], pos)
		if err != nil {
			return nil, err
		}
		return f(a, b)
	}
}

var (
	opSub = intOp(func(a, b int) (types.Value, error) { return a - b, nil })
	opMul = intOp(func(a, b int) (types.Value, error) { return a * b, nil })
	opDiv = intOp(func(a, b int) (types.Value, error) {
		if b == 0 {
			return nil, evalErr("Division by zero", -1)
		}
		return floorDiv(a, b), nil
	})
	opMod = intOp(func(a, b int) (types.Value, error) {
		if b == 0 {
			return nil, evalErr("Division by zero", -1)
		}
		return floorMod(a, b), nil
	})
)

// floorDiv rounds toward negative infinity, so that
// floorDiv(a, b)*b + floorMod(a, b) == a and the remainder takes the
// sign of the divisor.
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

// compareOp orders two integers or two strings.
func compareOp(f func(c int) bool) builtinImpl {
	return func(_ *Evaluator, args []types.Value, pos int) (types.Value, error) {
		if a, ok := args[0].(string); ok {
			b, err := asString(args[1], pos)
			if err != nil {
				return nil, err
			}
			return f(strings.Compare(a, b)), nil
		}
		a, err := asInt(args[0], pos)
		if err != nil {
			return nil, err
		}
		b, err := asInt(args[1], pos)
		if err != nil {
			return nil, err
		}
		switch {
		case a < b:
			return f(-1), nil
		case a > b:
			return f(1), nil
		default:
			return f(0), nil
		}
	}
}

var (
	opLt = compareOp(func(c int) bool { return c < 0 })
	opLe = compareOp(func(c int) bool { return c <= 0 })
	opGt = compareOp(func(c int) bool { return c > 0 })
	opGe = compareOp(func(c int) bool { return c >= 0 })
)

func opEq(_ *Evaluator, args []types.Value, pos int) (types.Value, error) {
	return valueEqual(args[0], args[1]), nil
}

func opNe(_ *Evaluator, args []types.Value, pos int) (types.Value, error) {
	return !valueEqual(args[0], args[1]), nil
}

func valueEqual(a, b types.Value) bool {
	if xs, ok := a.([]types.Value); ok {
		ys, ok := b.([]types.Value)
		if !ok || len(xs) != len(ys) {
			return false
		}
		for i := range xs {
			if !valueEqual(xs[i], ys[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}

// fnContains implements "x in y": x occurs in y as a substring.
func fnContains(_ *Evaluator, args []types.Value, pos int) (types.Value, error) {
	needle, err := asString(args[0], pos)
	if err != nil {
		return nil, err
	}
	haystack, err := asString(args[1], pos)
	if err != nil {
		return nil, err
	}
	return strings.Contains(haystack, needle), nil
}

func fnLen(_ *Evaluator, args []types.Value, pos int) (types.Value, error) {
	s, err := asString(args[0], pos)
	if err != nil {
		return nil, err
	}
	return len([]rune(s)), nil
}

func fnConcat(_ *Evaluator, args []types.Value, pos int) (types.Value, error) {
	a, err := asString(args[0], pos)
	if err != nil {
		return nil, err
	}
	b, err := asString(args[1], pos)
	if err != nil {
		return nil, err
	}
	return a + b, nil
}

// fnSubstr slices s between rune offsets lo and hi, clamping both
// bounds into range.
func fnSubstr(_ *Evaluator, args []types.Value, pos int) (types.Value, error) {
	s, err := asString(args[0], pos)
	if err != nil {
		return nil, err
	}
	lo, err := asInt(args[1], pos)
	if err != nil {
		return nil, err
	}
	hi, err := asInt(args[2], pos)
	if err != nil {
		return nil, err
	}
	runes := []rune(s)
	lo = clamp(lo, len(runes))
	hi = clamp(hi, len(runes))
	if hi < lo {
		return "", nil
	}
	return string(runes[lo:hi]), nil
}

func clamp(i, n int) int {
	if i < 0 {
		i += n
	}
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func fnAt(_ *Evaluator, args []types.Value, pos int) (types.Value, error) {
	s, err := asString(args[0], pos)
	if err != nil {
		return nil, err
	}
	i, err := asInt(args[1], pos)
	if err != nil {
		return nil, err
	}
	runes := []rune(s)
	if i < 0 {
		i += len(runes)
	}
	if i < 0 || i >= len(runes) {
		return nil, evalErr(fmt.Sprintf("Index %d out of range for %q", i, s), pos)
	}
	return string(runes[i]), nil
}

func fnOrd(_ *Evaluator, args []types.Value, pos int) (types.Value, error) {
	s, err := asString(args[0], pos)
	if err != nil {
		return nil, err
	}
	runes := []rune(s)
	if len(runes) != 1 {
		return nil, evalErr(fmt.Sprintf("Expected a single character but found %q", s), pos)
	}
	return int(runes[0]), nil
}

func fnChr(_ *Evaluator, args []types.Value, pos int) (types.Value, error) {
	n, err := asInt(args[0], pos)
	if err != nil {
		return nil, err
	}
	if n < 0 || n > 0x10FFFF {
		return nil, evalErr(fmt.Sprintf("Character code %d out of range", n), pos)
	}
	return string(rune(n)), nil
}

func fnInt(_ *Evaluator, args []types.Value, pos int) (types.Value, error) {
	s, err := asString(args[0], pos)
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil, evalErr(fmt.Sprintf("Cannot parse %q as an integer", s), pos)
	}
	return n, nil
}

func fnStr(_ *Evaluator, args []types.Value, pos int) (types.Value, error) {
	n, err := asInt(args[0], pos)
	if err != nil {
		return nil, err
	}
	return strconv.Itoa(n), nil
}

func fnStartswith(_ *Evaluator, args []types.Value, pos int) (types.Value, error) {
	s, err := asString(args[0], pos)
	if err != nil {
		return nil, err
	}
	prefix, err := asString(args[1], pos)
	if err != nil {
		return nil, err
	}
	return strings.HasPrefix(s, prefix), nil
}

func fnEndswith(_ *Evaluator, args []types.Value, pos int) (types.Value, error) {
	s, err := asString(args[0], pos)
	if err != nil {
		return nil, err
	}
	suffix, err := asString(args[1], pos)
	if err != nil {
		return nil, err
	}
	return strings.HasSuffix(s, suffix), nil
}

func fnIsdigit(_ *Evaluator, args []types.Value, pos int) (types.Value, error) {
	s, err := asString(args[0], pos)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return false, nil
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false, nil
		}
	}
	return true, nil
}

// fnFind returns the rune offset of the first occurrence of the needle
// at or after the optional start offset, or -1.
func fnFind(_ *Evaluator, args []types.Value, pos int) (types.Value, error) {
	s, err := asString(args[0], pos)
	if err != nil {
		return nil, err
	}
	needle, err := asString(args[1], pos)
	if err != nil {
		return nil, err
	}
	start := 0
	if len(args) == 3 {
		if start, err = asInt(args[2], pos); err != nil {
			return nil, err
		}
	}
	runes := []rune(s)
	start = clamp(start, len(runes))
	tail := string(runes[start:])
	i := strings.Index(tail, needle)
	if i < 0 {
		return -1, nil
	}
	return start + len([]rune(tail[:i])), nil
}

// fnReplace replaces occurrences of old by new; with the optional
// fourth argument only the first n occurrences are replaced.
func fnReplace(_ *Evaluator, args []types.Value, pos int) (types.Value, error) {
	s, err := asString(args[0], pos)
	if err != nil {
		return nil, err
	}
	old, err := asString(args[1], pos)
	if err != nil {
		return nil, err
	}
	repl, err := asString(args[2], pos)
	if err != nil {
		return nil, err
	}
	n := -1
	if len(args) == 4 {
		if n, err = asInt(args[3], pos); err != nil {
			return nil, err
		}
	}
	return strings.Replace(s, old, repl, n), nil
}

func fnForall(e *Evaluator, args []types.Value, pos int) (types.Value, error) {
	return quantify(e, args, pos, true)
}

func fnExists(e *Evaluator, args []types.Value, pos int) (types.Value, error) {
	return quantify(e, args, pos, false)
}

func quantify(e *Evaluator, args []types.Value, pos int, all bool) (types.Value, error) {
	xs, err := asList(args[1], pos)
	if err != nil {
		return nil, err
	}
	for _, x := range xs {
		v, err := e.Apply(args[0], []types.Value{x}, pos)
		if err != nil {
			return nil, err
		}
		b, err := asBool(v, pos)
		if err != nil {
			return nil, err
		}
		if b != all {
			return !all, nil
		}
	}
	return all, nil
}

func fnFirst(_ *Evaluator, args []types.Value, pos int) (types.Value, error) {
	xs, err := asList(args[0], pos)
	if err != nil {
		return nil, err
	}
	if len(xs) == 0 {
		return nil, evalErr("Empty list has no first element", pos)
	}
	return xs[0], nil
}

func fnLast(_ *Evaluator, args []types.Value, pos int) (types.Value, error) {
	xs, err := asList(args[0], pos)
	if err != nil {
		return nil, err
	}
	if len(xs) == 0 {
		return nil, evalErr("Empty list has no last element", pos)
	}
	return xs[len(xs)-1], nil
}
