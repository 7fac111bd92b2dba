package grammar_test

import (
	"strings"
	"testing"

	"github.com/sandrolain/glot/pkg/grammar"
	"github.com/sandrolain/glot/pkg/types"
)

func compile(t *testing.T, src string) *grammar.Grammar {
	t.Helper()
	g, err := grammar.Compile("test", src, nil)
	if err != nil {
		t.Fatalf("Compile(%q) failed: %v", src, err)
	}
	return g
}

func hasCode(err error, code types.ErrorCode) bool {
	return err != nil && strings.Contains(err.Error(), string(code))
}

func TestMemberAlternatives(t *testing.T) {
	g := compile(t, `start: "a" | "a" "a";`)
	tests := []struct {
		word string
		want bool
	}{
		{"a", true},
		{"aa", true},
		{"aaa", false},
		{"", false},
		{"b", false},
	}
	for _, tc := range tests {
		if got := g.Member(tc.word); got != tc.want {
			t.Errorf("Member(%q) = %v, want %v", tc.word, got, tc.want)
		}
	}
}

func TestMemberRepetitions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want func(k int) bool
	}{
		{"star", `start: "ab"*;`, func(k int) bool { return true }},
		{"plus", `start: "ab"+;`, func(k int) bool { return k >= 1 }},
		{"optional", `start: "ab"?;`, func(k int) bool { return k <= 1 }},
		{"bounded", `start: "ab"{2,4};`, func(k int) bool { return k >= 2 && k <= 4 }},
		{"exact", `start: "ab"{3};`, func(k int) bool { return k == 3 }},
		{"at least", `start: "ab"{2,};`, func(k int) bool { return k >= 2 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := compile(t, tc.src)
			for k := 0; k <= 6; k++ {
				word := strings.Repeat("ab", k)
				if got := g.Member(word); got != tc.want(k) {
					t.Errorf("Member(%q) = %v, want %v", word, got, tc.want(k))
				}
			}
		})
	}
}

func TestMemberCharSet(t *testing.T) {
	g := compile(t, `start: [a-c] [0-9];`)
	tests := []struct {
		word string
		want bool
	}{
		{"a0", true},
		{"c9", true},
		{"d0", false},
		{"a", false},
		{"a00", false},
	}
	for _, tc := range tests {
		if got := g.Member(tc.word); got != tc.want {
			t.Errorf("Member(%q) = %v, want %v", tc.word, got, tc.want)
		}
	}
}

func TestMemberCharCodes(t *testing.T) {
	g := compile(t, `start: %d65 %x61-7a;`)
	if !g.Member("Az") {
		t.Error(`Member("Az") = false, want true`)
	}
	if g.Member("az") {
		t.Error(`Member("az") = true, want false`)
	}
}

func TestParseTree(t *testing.T) {
	g := compile(t, `start: part ("/" part)*; part: [a-z]+;`)

	tree, err := g.ParseTree("ab/cd")
	if err != nil {
		t.Fatalf("ParseTree failed: %v", err)
	}
	if tree.Value != "<start>" {
		t.Errorf("root = %q, want <start>", tree.Value)
	}
	if got := tree.String(); got != "ab/cd" {
		t.Errorf("String() = %q, want %q", got, "ab/cd")
	}

	parts := tree.Filter(func(n *types.DerivationTree) bool {
		return n.Value == "<part>"
	})
	if len(parts) != 2 {
		t.Fatalf("got %d <part> nodes, want 2", len(parts))
	}
	if parts[0].String() != "ab" || parts[1].String() != "cd" {
		t.Errorf("parts = %q, %q, want ab, cd", parts[0], parts[1])
	}
}

func TestParseTreeSyntaxError(t *testing.T) {
	g := compile(t, `start: "ab" "cd";`)
	_, err := g.ParseTree("abxd")
	if !hasCode(err, types.ErrSyntaxError) {
		t.Fatalf("ParseTree error = %v, want %s", err, types.ErrSyntaxError)
	}
}

func TestParseTreeEmptyWord(t *testing.T) {
	g := compile(t, `start: "a"*;`)
	tree, err := g.ParseTree("")
	if err != nil {
		t.Fatalf("ParseTree(\"\") failed: %v", err)
	}
	if got := tree.String(); got != "" {
		t.Errorf("String() = %q, want empty", got)
	}
}

func TestCount(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		target string
		within string
		direct bool
		want   int
	}{
		{"repeated", `start: digit+; digit: [0-9];`, "digit", "start", false, 2},
		{"single", `start: digit; digit: [0-9];`, "digit", "start", false, 1},
		{"absent", `start: digit; digit: [0-9];`, "start", "digit", false, 0},
		{"optional", `start: digit?; digit: [0-9];`, "digit", "start", false, 2},
		{"alternative agreement", `start: "x" digit | digit "y"; digit: [0-9];`, "digit", "start", false, 1},
		{"alternative disagreement", `start: digit | digit digit; digit: [0-9];`, "digit", "start", false, 2},
		{"indirect", `start: pair; pair: digit digit; digit: [0-9];`, "digit", "start", false, 2},
		{"cycle beside recursion", `start: a; a: b a | b; b: "x";`, "b", "start", false, 2},
		{"cycle away from target", `start: b tail; tail: "," tail | ""; b: "x";`, "b", "start", false, 1},
		{"direct only", `start: pair; pair: digit digit; digit: [0-9];`, "digit", "start", true, 0},
		// repetitions synthesize transparent nodes, so their
		// occurrences still count as direct children
		{"direct through repetition", `start: digit{2,3}; digit: [0-9];`, "digit", "start", true, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := compile(t, tc.src)
			if got := g.Count(tc.target, tc.within, tc.direct); got != tc.want {
				t.Errorf("Count(%q, %q, %v) = %d, want %d", tc.target, tc.within, tc.direct, got, tc.want)
			}
		})
	}
}

func TestCountCyclicTerminates(t *testing.T) {
	g := compile(t, `start: expr; expr: "x" | "(" expr "+" expr ")";`)
	if got := g.Count("expr", "start", false); got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}
	if got := g.Count("expr", "expr", false); got != 2 {
		t.Errorf("Count within expr = %d, want 2", got)
	}
}

func TestCountUndefined(t *testing.T) {
	g := compile(t, `start: "a";`)
	if got := g.Count("missing", "start", false); got != 0 {
		t.Errorf("Count = %d, want 0", got)
	}
	if got := g.Count("start", "missing", false); got != 0 {
		t.Errorf("Count within missing = %d, want 0", got)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code types.ErrorCode
	}{
		{"missing start", `part: "a";`, types.ErrMissingStartRule},
		{"redefined rule", `start: part; part: "a"; part: "b";`, types.ErrRedefinedRule},
		{"undefined symbol", `start: part;`, types.ErrUndefinedSymbol},
		{"unused rule", `start: "a"; part: "b";`, types.ErrUnusedRule},
		{"start referenced", `start: "a" start;`, types.ErrStartReferenced},
		{"reversed charset", `start: [z-a];`, types.ErrInvalidCharRange},
		{"single char charset", `start: [a-a];`, types.ErrInvalidCharRange},
		{"zero repetition", `start: "a"{0};`, types.ErrInvalidRepetition},
		{"one repetition", `start: "a"{1};`, types.ErrInvalidRepetition},
		{"reversed bounds", `start: "a"{4,2};`, types.ErrInvalidRepetition},
		{"angle bracket literal", `start: "<a>";`, types.ErrRuleSyntax},
		{"unterminated string", `start: "a;`, types.ErrRuleStringNotClosed},
		{"bad char code", `start: %q65;`, types.ErrRuleInvalidCharCode},
		{"missing semicolon", `start: "a"`, types.ErrRuleSyntax},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := grammar.Compile("test", tc.src, nil)
			if !hasCode(err, tc.code) {
				t.Fatalf("Compile(%q) error = %v, want %s", tc.src, err, tc.code)
			}
		})
	}
}

func TestCompileCollectsAllErrors(t *testing.T) {
	_, err := grammar.Compile("test", `start: missing; orphan: [a-a];`, nil)
	for _, code := range []types.ErrorCode{
		types.ErrUndefinedSymbol,
		types.ErrUnusedRule,
		types.ErrInvalidCharRange,
	} {
		if !hasCode(err, code) {
			t.Errorf("error does not report %s: %v", code, err)
		}
	}
}

func TestExternalSplice(t *testing.T) {
	inner, err := grammar.Compile("Pair", `start: [0-9] [0-9];`, nil)
	if err != nil {
		t.Fatalf("compile inner: %v", err)
	}
	outer, err := grammar.Compile("test", `start: "v" Pair;`, map[string]*grammar.Grammar{"Pair": inner})
	if err != nil {
		t.Fatalf("compile outer: %v", err)
	}

	if !outer.Member("v42") {
		t.Error(`Member("v42") = false, want true`)
	}
	if outer.Member("v4") {
		t.Error(`Member("v4") = true, want false`)
	}
	if !outer.IsDefined("Pair") {
		t.Error(`IsDefined("Pair") = false, want true`)
	}
	if got := outer.Count("Pair", "start", false); got != 1 {
		t.Errorf("Count(Pair, start) = %d, want 1", got)
	}

	tree, err := outer.ParseTree("v07")
	if err != nil {
		t.Fatalf("ParseTree failed: %v", err)
	}
	pairs := tree.Filter(func(n *types.DerivationTree) bool {
		return n.Value == "<Pair>"
	})
	if len(pairs) != 1 || pairs[0].String() != "07" {
		t.Fatalf("spliced <Pair> node = %v", pairs)
	}
}

func TestExternalSpliceRenamesRules(t *testing.T) {
	inner, err := grammar.Compile("Word", `start: letter+; letter: [a-z];`, nil)
	if err != nil {
		t.Fatalf("compile inner: %v", err)
	}
	outer, err := grammar.Compile("test", `start: Word "!" ;`, map[string]*grammar.Grammar{"Word": inner})
	if err != nil {
		t.Fatalf("compile outer: %v", err)
	}

	if !outer.IsDefined("Word:letter") {
		t.Error(`IsDefined("Word:letter") = false, want true`)
	}
	if outer.IsDefined("letter") {
		t.Error(`IsDefined("letter") = true, want false`)
	}
	if got := outer.Count("Word:letter", "start", false); got != 2 {
		t.Errorf("Count(Word:letter, start) = %d, want 2", got)
	}
}

func TestLocalRuleShadowsExternal(t *testing.T) {
	ext, err := grammar.Compile("part", `start: "X";`, nil)
	if err != nil {
		t.Fatalf("compile ext: %v", err)
	}
	g, err := grammar.Compile("test", `start: part; part: "y";`, map[string]*grammar.Grammar{"part": ext})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !g.Member("y") || g.Member("X") {
		t.Error("local rule did not shadow the external lang")
	}
}

func TestCanonicalSynthesizedNames(t *testing.T) {
	g := compile(t, `start: [a-b];`)
	canonical := g.Canonical()
	alts, ok := canonical["<-1>"]
	if !ok {
		t.Fatalf("no synthesized nonterminal in %v", canonical)
	}
	if len(alts) != 2 || alts[0] != "a" || alts[1] != "b" {
		t.Errorf("charset alternatives = %v, want [a b]", alts)
	}
	if got := canonical["<start>"]; len(got) != 1 || got[0] != "<-1>" {
		t.Errorf("start alternatives = %v, want [<-1>]", got)
	}
}

func TestGrammarName(t *testing.T) {
	g := compile(t, `start: "a";`)
	if g.Name() != "test" {
		t.Errorf("Name() = %q, want test", g.Name())
	}
}

func TestComments(t *testing.T) {
	g := compile(t, "// leading comment\nstart: \"a\"; // trailing\n")
	if !g.Member("a") {
		t.Error("comment handling broke the grammar")
	}
}

func TestEscapedLiterals(t *testing.T) {
	g := compile(t, `start: "a\"b" "\n";`)
	if !g.Member("a\"b\n") {
		t.Error("escape sequences not decoded")
	}
}
