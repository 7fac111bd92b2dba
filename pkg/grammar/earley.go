package grammar

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sandrolain/glot/pkg/types"
)

// earley is a chart recognizer over the lowered production map. A run
// fills a span table of completed nonterminal spans from which a
// derivation tree is rebuilt afterwards.
type earley struct {
	grammar *Grammar
	word    string
	states  []*stateSet
	spans   *spanTable
}

type earleyItem struct {
	label  string
	alt    int
	dot    int
	origin int
}

type stateSet struct {
	items []earleyItem
	seen  map[earleyItem]bool
}

func (s *stateSet) add(item earleyItem) {
	if s.seen[item] {
		return
	}
	s.seen[item] = true
	s.items = append(s.items, item)
}

func newEarley(g *Grammar) *earley {
	return &earley{grammar: g}
}

// recognize runs the chart over word. It returns the filled span table
// on success and a syntax error carrying the offset where recognition
// got stuck otherwise.
func (e *earley) recognize(word string) (*spanTable, error) {
	e.word = word
	e.states = make([]*stateSet, len(word)+1)
	for i := range e.states {
		e.states[i] = &stateSet{seen: map[earleyItem]bool{}}
	}
	e.spans = newSpanTable(e.grammar, word)

	start := e.grammar.start
	for alt := range e.grammar.prods[start] {
		e.states[0].add(earleyItem{label: start, alt: alt})
	}

	reached := 0
	for i := 0; i <= len(word); i++ {
		set := e.states[i]
		if len(set.items) > 0 && i > reached {
			reached = i
		}
		for n := 0; n < len(set.items); n++ {
			e.process(set.items[n], i)
		}
	}

	if !e.spans.has(start, 0, len(word)) {
		return nil, types.NewError(types.ErrSyntaxError,
			fmt.Sprintf("Cannot parse %q", word), reached)
	}
	return e.spans, nil
}

func (e *earley) process(item earleyItem, i int) {
	alt := e.grammar.prods[item.label][item.alt]
	if item.dot == len(alt) {
		e.complete(item, i)
		return
	}
	element := alt[item.dot]
	if isLabel(element) {
		e.predict(item, element, i)
		return
	}
	e.scan(item, element, i)
}

func (e *earley) predict(item earleyItem, label string, i int) {
	for alt := range e.grammar.prods[label] {
		e.states[i].add(earleyItem{label: label, alt: alt, origin: i})
	}
	// a nullable prediction may complete without consuming input, so
	// advance the predictor right away
	if e.grammar.nullable[label] {
		e.spans.record(label, i, i)
		e.states[i].add(advanced(item))
	}
}

func (e *earley) scan(item earleyItem, chunk string, i int) {
	if strings.HasPrefix(e.word[i:], chunk) {
		e.states[i+len(chunk)].add(advanced(item))
	}
}

func (e *earley) complete(item earleyItem, i int) {
	e.spans.record(item.label, item.origin, i)
	for _, waiting := range e.states[item.origin].items {
		alt := e.grammar.prods[waiting.label][waiting.alt]
		if waiting.dot < len(alt) && alt[waiting.dot] == item.label {
			e.states[i].add(advanced(waiting))
		}
	}
}

func advanced(item earleyItem) earleyItem {
	item.dot++
	return item
}

// spanTable records, per nonterminal and start offset, every end
// offset the chart completed. buildTree walks it backtracking to
// recover one derivation tree.
type spanTable struct {
	grammar *Grammar
	word    string
	ends    map[spanKey]map[int]bool
	busy    map[treeKey]bool
	dead    map[treeKey]bool
}

type spanKey struct {
	label string
	lo    int
}

type treeKey struct {
	label  string
	lo, hi int
}

func newSpanTable(g *Grammar, word string) *spanTable {
	return &spanTable{
		grammar: g,
		word:    word,
		ends:    map[spanKey]map[int]bool{},
		busy:    map[treeKey]bool{},
		dead:    map[treeKey]bool{},
	}
}

func (s *spanTable) record(label string, lo, hi int) {
	key := spanKey{label, lo}
	if s.ends[key] == nil {
		s.ends[key] = map[int]bool{}
	}
	s.ends[key][hi] = true
}

func (s *spanTable) has(label string, lo, hi int) bool {
	return s.ends[spanKey{label, lo}][hi]
}

func (s *spanTable) endsFrom(label string, lo, max int) []int {
	var out []int
	for hi := range s.ends[spanKey{label, lo}] {
		if hi <= max {
			out = append(out, hi)
		}
	}
	sort.Ints(out)
	return out
}

// buildTree reconstructs one derivation of label over word[lo:hi], or
// nil when the span admits none.
func (s *spanTable) buildTree(label string, lo, hi int) *types.DerivationTree {
	if !s.has(label, lo, hi) {
		return nil
	}
	key := treeKey{label, lo, hi}
	if s.busy[key] || s.dead[key] {
		return nil
	}
	s.busy[key] = true
	defer delete(s.busy, key)

	for _, alt := range s.grammar.prods[label] {
		if kids, ok := s.matchSeq(alt, lo, hi); ok {
			return &types.DerivationTree{Value: label, Children: kids}
		}
	}
	s.dead[key] = true
	return nil
}

// matchSeq splits word[lo:hi] over the elements of one alternative.
func (s *spanTable) matchSeq(elements expansion, lo, hi int) ([]*types.DerivationTree, bool) {
	if len(elements) == 0 {
		return nil, lo == hi
	}
	element := elements[0]

	if !isLabel(element) {
		end := lo + len(element)
		if end > hi || s.word[lo:end] != element {
			return nil, false
		}
		rest, ok := s.matchSeq(elements[1:], end, hi)
		if !ok {
			return nil, false
		}
		return append([]*types.DerivationTree{{Value: element}}, rest...), true
	}

	for _, end := range s.endsFrom(element, lo, hi) {
		sub := s.buildTree(element, lo, end)
		if sub == nil {
			continue
		}
		rest, ok := s.matchSeq(elements[1:], end, hi)
		if !ok {
			continue
		}
		return append([]*types.DerivationTree{sub}, rest...), true
	}
	return nil, false
}
