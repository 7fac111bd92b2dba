package selector_test

import (
	"strings"
	"testing"

	"github.com/sandrolain/glot/pkg/grammar"
	"github.com/sandrolain/glot/pkg/selector"
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

func parsePath(t *testing.T, src string) *types.Path {
	t.Helper()
	p, err := selector.ParsePath(src)
	if err != nil {
		t.Fatalf("ParsePath(%q) failed: %v", src, err)
	}
	return p
}

func selectWords(t *testing.T, g *grammar.Grammar, word, path string) []string {
	t.Helper()
	tree, err := g.ParseTree(word)
	if err != nil {
		t.Fatalf("ParseTree(%q) failed: %v", word, err)
	}
	matches := selector.SelectAll(tree, parsePath(t, path))
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.String()
	}
	return out
}

func TestParsePath(t *testing.T) {
	tests := []struct {
		src      string
		anchor   string
		steps    []types.PathStep
		wantCode types.ErrorCode
	}{
		{src: "..part", steps: []types.PathStep{{Symbol: "part", Kind: types.StepIndirect}}},
		{src: ".a.b", steps: []types.PathStep{
			{Symbol: "a", Kind: types.StepDirect},
			{Symbol: "b", Kind: types.StepDirect, Position: 2},
		}},
		{src: ".a[2]", steps: []types.PathStep{{Symbol: "a", Kind: types.StepDirectAt, Index: 2}}},
		{src: "part", anchor: "part"},
		{src: "row..cell", anchor: "row", steps: []types.PathStep{
			{Symbol: "cell", Kind: types.StepIndirect, Position: 3},
		}},
		{src: "", wantCode: types.ErrPathSyntax},
		{src: ".", wantCode: types.ErrPathSyntax},
		{src: ".a[0]", wantCode: types.ErrPathSyntax},
		{src: ".a[x]", wantCode: types.ErrPathSyntax},
		{src: ".a[1", wantCode: types.ErrPathSyntax},
		{src: "..a[1]", wantCode: types.ErrPathSyntax},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			p, err := selector.ParsePath(tc.src)
			if tc.wantCode != "" {
				if err == nil || !strings.Contains(err.Error(), string(tc.wantCode)) {
					t.Fatalf("ParsePath(%q) error = %v, want %s", tc.src, err, tc.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePath(%q) failed: %v", tc.src, err)
			}
			if p.Anchor != tc.anchor {
				t.Errorf("anchor = %q, want %q", p.Anchor, tc.anchor)
			}
			if len(p.Steps) != len(tc.steps) {
				t.Fatalf("got %d steps, want %d", len(p.Steps), len(tc.steps))
			}
			for i, step := range p.Steps {
				if step != tc.steps[i] {
					t.Errorf("step %d = %+v, want %+v", i, step, tc.steps[i])
				}
			}
		})
	}
}

func TestSelectDescendants(t *testing.T) {
	g := compile(t, `start: part ("/" part)*; part: [a-z]+;`)
	got := selectWords(t, g, "ab/cd/ef", "..part")
	want := []string{"ab", "cd", "ef"}
	if len(got) != len(want) {
		t.Fatalf("selected %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("selected[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSelectDirect(t *testing.T) {
	g := compile(t, `start: pair pair; pair: digit digit; digit: [0-9];`)

	if got := selectWords(t, g, "1234", ".pair"); len(got) != 2 || got[0] != "12" || got[1] != "34" {
		t.Errorf(".pair selected %v", got)
	}
	if got := selectWords(t, g, "1234", ".pair[2]"); len(got) != 1 || got[0] != "34" {
		t.Errorf(".pair[2] selected %v", got)
	}
	if got := selectWords(t, g, "1234", ".pair[2].digit[1]"); len(got) != 1 || got[0] != "3" {
		t.Errorf(".pair[2].digit[1] selected %v", got)
	}
	// digits are not direct children of the root
	if got := selectWords(t, g, "1234", ".digit"); len(got) != 0 {
		t.Errorf(".digit selected %v, want nothing", got)
	}
	if got := selectWords(t, g, "1234", "..digit"); len(got) != 4 {
		t.Errorf("..digit selected %v, want 4 matches", got)
	}
}

func TestSelectRelativeAnchor(t *testing.T) {
	g := compile(t, `start: pair pair; pair: digit digit; digit: [0-9];`)
	if got := selectWords(t, g, "1234", "pair.digit[2]"); len(got) != 2 || got[0] != "2" || got[1] != "4" {
		t.Errorf("pair.digit[2] selected %v", got)
	}
	if got := selectWords(t, g, "1234", "digit"); len(got) != 4 {
		t.Errorf("digit selected %v, want 4 matches", got)
	}
}

func TestSelectDirectThroughSynthesized(t *testing.T) {
	// the repetition introduces a synthesized intermediate node that
	// selection must look through
	g := compile(t, `start: item+; item: [a-z] ";";`)
	if got := selectWords(t, g, "a;b;", ".item"); len(got) != 2 || got[0] != "a;" || got[1] != "b;" {
		t.Errorf(".item selected %v", got)
	}
}

func TestSelectOne(t *testing.T) {
	g := compile(t, `start: part ("/" part)*; part: [a-z]+;`)
	tree, err := g.ParseTree("ab/cd")
	if err != nil {
		t.Fatal(err)
	}

	one, err := selector.SelectOne(tree, parsePath(t, ".part[1]"))
	if err != nil {
		t.Fatalf("SelectOne failed: %v", err)
	}
	if one.String() != "ab" {
		t.Errorf("SelectOne = %q, want ab", one.String())
	}

	if _, err := selector.SelectOne(tree, parsePath(t, "..part")); err == nil ||
		!strings.Contains(err.Error(), string(types.ErrPathNotUnique)) {
		t.Errorf("ambiguous SelectOne error = %v, want %s", err, types.ErrPathNotUnique)
	}
	if _, err := selector.SelectOne(tree, parsePath(t, ".part[9]")); err == nil ||
		!strings.Contains(err.Error(), string(types.ErrPathNoMatch)) {
		t.Errorf("empty SelectOne error = %v, want %s", err, types.ErrPathNoMatch)
	}
}

func TestValidate(t *testing.T) {
	g := compile(t, `start: pair pair; pair: digit digit; digit: [0-9];`)
	tests := []struct {
		name     string
		path     string
		unique   bool
		wantCode types.ErrorCode
	}{
		{name: "direct chain", path: ".pair.digit"},
		{name: "descendants", path: "..digit"},
		{name: "relative", path: "pair.digit"},
		{name: "indexed unique", path: ".pair[1].digit[2]", unique: true},
		{name: "undefined symbol", path: ".word", wantCode: types.ErrPathUndefinedSymbol},
		{name: "undefined anchor", path: "word.digit", wantCode: types.ErrPathUndefinedSymbol},
		{name: "unreachable", path: ".digit", wantCode: types.ErrPathUnreachable},
		{name: "not unique", path: ".pair", unique: true, wantCode: types.ErrPathNotUnique},
		{name: "anchor not unique", path: "digit", unique: true, wantCode: types.ErrPathNotUnique},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := selector.Validate(parsePath(t, tc.path), g, tc.unique)
			if tc.wantCode == "" {
				if err != nil {
					t.Fatalf("Validate(%q) failed: %v", tc.path, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), string(tc.wantCode)) {
				t.Fatalf("Validate(%q) error = %v, want %s", tc.path, err, tc.wantCode)
			}
		})
	}
}

// A zero count must mean empty selections and a count of one exactly
// one match, on every parsed word.
func TestCountBoundsSelection(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		words []string
	}{
		{
			name:  "single pair",
			src:   `start: "v" pair; pair: digit digit; digit: [0-9];`,
			words: []string{"v12", "v90"},
		},
		{
			name:  "repeated pairs",
			src:   `start: "v" pair ("." pair)*; pair: digit digit; digit: [0-9];`,
			words: []string{"v12", "v12.34", "v12.34.56"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := compile(t, tc.src)
			for _, word := range tc.words {
				tree, err := g.ParseTree(word)
				if err != nil {
					t.Fatal(err)
				}
				for _, symbol := range []string{"pair", "digit"} {
					n := g.Count(symbol, "start", false)
					matches := selector.SelectAll(tree, &types.Path{
						Steps: []types.PathStep{{Symbol: symbol, Kind: types.StepIndirect}},
					})
					switch n {
					case 0:
						if len(matches) != 0 {
							t.Errorf("count(%s)=0 but %q selected %d nodes", symbol, word, len(matches))
						}
					case 1:
						if len(matches) != 1 {
							t.Errorf("count(%s)=1 but %q selected %d nodes", symbol, word, len(matches))
						}
					}
				}
			}
		})
	}
}
