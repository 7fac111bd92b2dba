// Package grammar compiles rule source text into immutable grammars
// and provides membership testing, parsing into derivation trees and
// reachability counting over them.
package grammar

import (
	"strconv"
	"strings"

	"github.com/sandrolain/glot/pkg/types"
)

// Grammar is a compiled, lowered grammar. It is immutable after
// compilation and safe for concurrent use.
type Grammar struct {
	name     string
	start    string
	prods    map[string][]expansion
	order    []string
	nullable map[string]bool
}

var _ types.GrammarRef = (*Grammar)(nil)

func newGrammar(name string, prods map[string][]expansion, order []string) *Grammar {
	return &Grammar{
		name:     name,
		start:    types.NonterminalLabel(StartRule),
		prods:    prods,
		order:    order,
		nullable: nullableLabels(prods),
	}
}

// Name returns the lang name the grammar was defined under.
func (g *Grammar) Name() string { return g.name }

// StartLabel returns the label of the start nonterminal.
func (g *Grammar) StartLabel() string { return g.start }

// IsDefined reports whether symbol names a nonterminal of the grammar,
// including the renamed rules of spliced languages.
func (g *Grammar) IsDefined(symbol string) bool {
	_, ok := g.prods[types.NonterminalLabel(symbol)]
	return ok
}

// Expansions returns the alternatives of a nonterminal label, each as
// its sequence of terminal chunks and <label> references. The returned
// slices are shared and must not be modified.
func (g *Grammar) Expansions(label string) [][]string {
	alts := g.prods[label]
	out := make([][]string, len(alts))
	for i, alt := range alts {
		out[i] = alt
	}
	return out
}

// Labels returns every nonterminal label in definition order.
func (g *Grammar) Labels() []string { return g.order }

// Canonical renders the lowered grammar as label -> alternative
// strings, mainly for debugging and golden tests.
func (g *Grammar) Canonical() map[string][]string {
	out := make(map[string][]string, len(g.prods))
	for label, alts := range g.prods {
		rendered := make([]string, len(alts))
		for i, alt := range alts {
			rendered[i] = strings.Join(alt, "")
		}
		out[label] = rendered
	}
	return out
}

// Member reports whether word belongs to the language.
func (g *Grammar) Member(word string) bool {
	_, err := newEarley(g).recognize(word)
	return err == nil
}

// ParseTree parses word into a derivation tree rooted at start. The
// error of an unparsable word carries the offset where recognition got
// stuck.
func (g *Grammar) ParseTree(word string) (*types.DerivationTree, error) {
	e := newEarley(g)
	spans, err := e.recognize(word)
	if err != nil {
		return nil, err
	}
	tree := spans.buildTree(g.start, 0, len(word))
	if tree == nil {
		return nil, types.NewError(types.ErrSyntaxError,
			"Cannot parse "+strconv.Quote(word), 0)
	}
	return tree, nil
}

// Count reports how often target can occur under the rule named
// within: 0 never, 1 exactly once on every derivation, 2 possibly more
// or indeterminate. With direct set, only direct children count, where
// synthesized nonterminals are looked through.
func (g *Grammar) Count(target, within string, direct bool) int {
	label := types.NonterminalLabel(within)
	if _, ok := g.prods[label]; !ok {
		return 0
	}
	c := &counter{
		grammar: g,
		target:  types.NonterminalLabel(target),
		direct:  direct,
		busy:    map[string]bool{},
		memo:    map[string]int{},
	}
	c.reach = c.reachable()
	return c.countLabel(label)
}

// counter computes the occurrence bound of one target nonterminal.
// Counts saturate at 2. A rule re-entered while already being counted
// is a cycle: when the re-entered rule can still produce the target the
// cycle makes the multiplicity unbounded and contributes 2, otherwise
// it contributes nothing. This keeps the walk finite on cyclic
// grammars without under-reporting occurrences that sit beside the
// recursive reference.
type counter struct {
	grammar *Grammar
	target  string
	direct  bool
	busy    map[string]bool
	memo    map[string]int
	reach   map[string]bool
}

func (c *counter) countLabel(label string) int {
	if n, ok := c.memo[label]; ok {
		return n
	}
	if c.busy[label] {
		if c.reach[label] {
			return 2
		}
		return 0
	}
	c.busy[label] = true
	defer delete(c.busy, label)

	alts := c.grammar.prods[label]
	n := c.countAlt(alts[0])
	for _, alt := range alts[1:] {
		if c.countAlt(alt) != n {
			n = 2
			break
		}
	}
	c.memo[label] = n
	return n
}

func (c *counter) countAlt(alt expansion) int {
	n := 0
	for _, element := range alt {
		if !isLabel(element) {
			continue
		}
		n = saturate(n + c.countElement(element))
	}
	return n
}

func (c *counter) countElement(label string) int {
	if strings.HasPrefix(label, syntheticLabelPrefix) {
		// synthesized nodes are transparent to selection
		return c.countLabel(label)
	}
	n := 0
	if label == c.target {
		n = 1
	}
	if !c.direct {
		n = saturate(n + c.countLabel(label))
	}
	return n
}

func saturate(n int) int {
	return min(n, 2)
}

// reachable computes by fixpoint the labels whose derivations can
// contain the target, under the same visibility rules as counting: in
// direct mode only synthesized nonterminals are looked through.
func (c *counter) reachable() map[string]bool {
	reach := map[string]bool{}
	for changed := true; changed; {
		changed = false
		for label, alts := range c.grammar.prods {
			if reach[label] {
				continue
			}
			for _, alt := range alts {
				if c.altReaches(alt, reach) {
					reach[label] = true
					changed = true
					break
				}
			}
		}
	}
	return reach
}

func (c *counter) altReaches(alt expansion, reach map[string]bool) bool {
	for _, element := range alt {
		if !isLabel(element) {
			continue
		}
		if element == c.target {
			return true
		}
		if reach[element] && (!c.direct || strings.HasPrefix(element, syntheticLabelPrefix)) {
			return true
		}
	}
	return false
}

// nullableLabels computes the set of nonterminals that can derive the
// empty string, by fixpoint iteration.
func nullableLabels(prods map[string][]expansion) map[string]bool {
	nullable := map[string]bool{}
	for changed := true; changed; {
		changed = false
		for label, alts := range prods {
			if nullable[label] {
				continue
			}
			for _, alt := range alts {
				if nullableAlt(alt, nullable) {
					nullable[label] = true
					changed = true
					break
				}
			}
		}
	}
	return nullable
}

func nullableAlt(alt expansion, nullable map[string]bool) bool {
	for _, element := range alt {
		if isLabel(element) {
			if !nullable[element] {
				return false
			}
		} else if element != "" {
			return false
		}
	}
	return true
}
