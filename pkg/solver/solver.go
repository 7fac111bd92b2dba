// Package solver generates words of a grammar, optionally subject to
// constraint formulas. The Solver interface is the boundary towards
// external constraint solvers; the package ships a reference solver
// built on random bounded derivation with formula rejection, so the
// library works stand-alone.
package solver

import (
	"errors"
	"math/rand"
	"strings"

	"github.com/sandrolain/glot/pkg/constraint"
	"github.com/sandrolain/glot/pkg/grammar"
	"github.com/sandrolain/glot/pkg/types"
)

// ErrExhausted reports that a solver session found no further word
// within its budget. Producers react by rebuilding the session with a
// doubled budget.
var ErrExhausted = errors.New("solver exhausted")

// Solver produces words of one language, one per Solve call.
type Solver interface {
	Solve() (string, error)
}

// ParseWord validates a solver-produced word against the grammar it
// was requested for and returns its derivation tree. External solver
// output passes through here before it is trusted.
func ParseWord(g types.GrammarRef, word string) (*types.DerivationTree, error) {
	return g.ParseTree(word)
}

// RandomSolver derives random words bounded by a depth limit and
// rejects candidates falsified by the constraint formulas. Alternatives
// that cannot terminate within the remaining depth are avoided, so
// derivation always completes.
type RandomSolver struct {
	grammar  *grammar.Grammar
	formulas []constraint.Formula
	budget   int
	maxDepth int
	rng      *rand.Rand
	minDepth map[string]int
}

// Option configures a RandomSolver.
type Option func(*RandomSolver)

// WithBudget sets how many candidates one Solve call may try before
// reporting exhaustion.
func WithBudget(n int) Option {
	return func(s *RandomSolver) { s.budget = n }
}

// WithMaxDepth bounds the derivation depth of generated words.
func WithMaxDepth(n int) Option {
	return func(s *RandomSolver) { s.maxDepth = n }
}

// WithSeed makes generation deterministic.
func WithSeed(seed int64) Option {
	return func(s *RandomSolver) { s.rng = rand.New(rand.NewSource(seed)) }
}

const (
	defaultBudget   = 10
	defaultMaxDepth = 24
)

// NewRandom creates a reference solver for one grammar. The formulas
// are conjoined: a candidate word must satisfy all of them.
func NewRandom(g *grammar.Grammar, formulas []constraint.Formula, opts ...Option) *RandomSolver {
	s := &RandomSolver{
		grammar:  g,
		formulas: formulas,
		budget:   defaultBudget,
		maxDepth: defaultMaxDepth,
		minDepth: minDepths(g),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return s
}

// Solve returns the next word satisfying every formula, or
// ErrExhausted when the budget runs out before a candidate passes.
func (s *RandomSolver) Solve() (string, error) {
	for range s.budget {
		word := s.derive(s.grammar.StartLabel(), s.maxDepth)
		ok, err := s.accept(word)
		if err != nil {
			return "", err
		}
		if ok {
			return word, nil
		}
	}
	return "", ErrExhausted
}

func (s *RandomSolver) accept(word string) (bool, error) {
	// derive can fall short of a real member when a nonterminal has no
	// terminating expansion, so candidates are checked before they count
	if !s.grammar.Member(word) {
		return false, nil
	}
	if len(s.formulas) == 0 {
		return true, nil
	}
	tree, err := s.grammar.ParseTree(word)
	if err != nil {
		return false, err
	}
	for _, f := range s.formulas {
		ok, err := constraint.Eval(f, tree)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (s *RandomSolver) derive(label string, depth int) string {
	var sb strings.Builder
	s.deriveInto(&sb, label, depth)
	return sb.String()
}

func (s *RandomSolver) deriveInto(sb *strings.Builder, label string, depth int) {
	if s.minDepth[label] >= unbounded {
		// a nonterminal with no terminating derivation
		return
	}
	alts := s.grammar.Expansions(label)
	var fitting [][]string
	for _, alt := range alts {
		if s.altDepth(alt) <= depth {
			fitting = append(fitting, alt)
		}
	}
	if len(fitting) == 0 {
		// over budget everywhere: take the shallowest way out
		best := alts[0]
		for _, alt := range alts[1:] {
			if s.altDepth(alt) < s.altDepth(best) {
				best = alt
			}
		}
		fitting = [][]string{best}
	}

	alt := fitting[s.rng.Intn(len(fitting))]
	for _, element := range alt {
		if types.IsNonterminalLabel(element) {
			s.deriveInto(sb, element, depth-1)
		} else {
			sb.WriteString(element)
		}
	}
}

// altDepth is the least derivation depth an alternative needs.
func (s *RandomSolver) altDepth(alt []string) int {
	depth := 1
	for _, element := range alt {
		if types.IsNonterminalLabel(element) {
			if d := s.minDepth[element] + 1; d > depth {
				depth = d
			}
		}
	}
	return depth
}

const unbounded = 1 << 30

// minDepths computes the least derivation depth of every nonterminal
// by fixpoint iteration.
func minDepths(g *grammar.Grammar) map[string]int {
	depth := map[string]int{}
	for _, label := range g.Labels() {
		depth[label] = unbounded
	}
	for changed := true; changed; {
		changed = false
		for _, label := range g.Labels() {
			best := unbounded
			for _, alt := range g.Expansions(label) {
				d := 1
				for _, element := range alt {
					if types.IsNonterminalLabel(element) {
						if sub := depth[element]; sub == unbounded {
							d = unbounded
							break
						} else if sub+1 > d {
							d = sub + 1
						}
					}
				}
				if d < best {
					best = d
				}
			}
			if best < depth[label] {
				depth[label] = best
				changed = true
			}
		}
	}
	return depth
}
