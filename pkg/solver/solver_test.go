package solver_test

import (
	"errors"
	"testing"

	"github.com/sandrolain/glot/pkg/constraint"
	"github.com/sandrolain/glot/pkg/grammar"
	"github.com/sandrolain/glot/pkg/parser"
	"github.com/sandrolain/glot/pkg/solver"
	"github.com/sandrolain/glot/pkg/types"
)

func compile(t *testing.T, src string) *grammar.Grammar {
	t.Helper()
	g, err := grammar.Compile("test", src, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return g
}

func translate(t *testing.T, src string) constraint.Formula {
	t.Helper()
	expr, err := parser.ParsePredicate(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	f, ok := constraint.Translate(expr, "_")
	if !ok {
		t.Fatalf("predicate %q did not translate", src)
	}
	return f
}

func TestRandomSolverRoundTrip(t *testing.T) {
	g := compile(t, `start: field ("," field)*; field: [a-z]+;`)
	s := solver.NewRandom(g, nil, solver.WithSeed(1))

	for i := 0; i < 50; i++ {
		word, err := s.Solve()
		if err != nil {
			t.Fatalf("solve %d: %v", i, err)
		}
		if !g.Member(word) {
			t.Errorf("solver produced %q outside the language", word)
		}
	}
}

func TestRandomSolverRespectsFormulas(t *testing.T) {
	g := compile(t, `start: [a-z]+;`)
	formulas := []constraint.Formula{
		translate(t, "len(_) > 2"),
		translate(t, "len(_) < 7"),
	}
	s := solver.NewRandom(g, formulas, solver.WithSeed(7), solver.WithBudget(200))

	for i := 0; i < 20; i++ {
		word, err := s.Solve()
		if err != nil {
			t.Fatalf("solve %d: %v", i, err)
		}
		if n := len(word); n <= 2 || n >= 7 {
			t.Errorf("word %q violates the length constraints", word)
		}
	}
}

func TestRandomSolverQuantifiedFormula(t *testing.T) {
	g := compile(t, `start: field ("," field)*; field: [a-z]+;`)
	formulas := []constraint.Formula{
		translate(t, `forall((x) -> len(x) > 1, select_all(test, "..field", _))`),
	}
	s := solver.NewRandom(g, formulas, solver.WithSeed(3), solver.WithBudget(500))

	word, err := s.Solve()
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	tree, err := g.ParseTree(word)
	if err != nil {
		t.Fatalf("parse %q: %v", word, err)
	}
	for _, field := range tree.Filter(func(n *types.DerivationTree) bool {
		return n.Value == types.NonterminalLabel("field")
	}) {
		if len(field.String()) <= 1 {
			t.Errorf("field %q of %q violates the constraint", field, word)
		}
	}
}

func TestRandomSolverExhausted(t *testing.T) {
	g := compile(t, `start: "a";`)
	s := solver.NewRandom(g, []constraint.Formula{constraint.BoolConst{Value: false}},
		solver.WithSeed(1), solver.WithBudget(5))

	_, err := s.Solve()
	if !errors.Is(err, solver.ErrExhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
}

func TestRandomSolverUnproductiveGrammar(t *testing.T) {
	g := compile(t, `start: a; a: "x" a;`)
	s := solver.NewRandom(g, nil, solver.WithSeed(1), solver.WithBudget(5))

	word, err := s.Solve()
	if !errors.Is(err, solver.ErrExhausted) {
		t.Fatalf("expected exhaustion, got %q, %v", word, err)
	}
}

func TestRandomSolverDepthBound(t *testing.T) {
	g := compile(t, `start: p; p: "(" p ")" | "";`)
	s := solver.NewRandom(g, nil, solver.WithSeed(5), solver.WithMaxDepth(6))

	for i := 0; i < 30; i++ {
		word, err := s.Solve()
		if err != nil {
			t.Fatalf("solve: %v", err)
		}
		if !g.Member(word) {
			t.Errorf("%q is outside the language", word)
		}
		if len(word) > 12 {
			t.Errorf("%q exceeds the depth bound", word)
		}
	}
}

func TestParseWord(t *testing.T) {
	g := compile(t, `start: [0-9]+;`)

	tree, err := solver.ParseWord(g, "042")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tree.String() != "042" {
		t.Errorf("tree spells %q, want %q", tree.String(), "042")
	}

	if _, err := solver.ParseWord(g, "4a"); err == nil {
		t.Error("expected an error for a word outside the language")
	}
}
