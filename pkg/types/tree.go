package types

import "strings"

// Nonterminal labels are wrapped in angle brackets; nonterminals
// synthesized during grammar lowering additionally start with a dash,
// e.g. <-3>. Synthesized nodes do not exist in the source grammar and
// are structurally transparent to path selection.
const syntheticPrefix = "<-"

// NonterminalLabel returns the derivation-tree label of a grammar
// symbol, e.g. "part" -> "<part>".
func NonterminalLabel(symbol string) string {
	return "<" + symbol + ">"
}

// IsNonterminalLabel reports whether a tree node value names a
// nonterminal rather than terminal text.
func IsNonterminalLabel(value string) bool {
	return len(value) >= 2 && strings.HasPrefix(value, "<") && strings.HasSuffix(value, ">")
}

// DerivationTree is a node of the parse tree produced by matching a
// word against a grammar. Nonterminal nodes carry a label of the form
// <name> (or <-N> for synthesized nonterminals) and their children;
// terminal nodes carry the matched text and no children.
type DerivationTree struct {
	Value    string
	Children []*DerivationTree
}

// IsNonterminal reports whether the node is labeled by a nonterminal.
func (t *DerivationTree) IsNonterminal() bool {
	return IsNonterminalLabel(t.Value)
}

// IsSynthetic reports whether the node was synthesized during grammar
// lowering and therefore does not correspond to a source rule.
func (t *DerivationTree) IsSynthetic() bool {
	return strings.HasPrefix(t.Value, syntheticPrefix)
}

// Symbol returns the bare nonterminal name of the node ("part" for a
// node labeled "<part>"), or the empty string for terminal nodes.
func (t *DerivationTree) Symbol() string {
	if !t.IsNonterminal() {
		return ""
	}
	return t.Value[1 : len(t.Value)-1]
}

// String returns the word this subtree derives: the concatenation of
// its terminal leaves, left to right.
func (t *DerivationTree) String() string {
	var sb strings.Builder
	t.writeLeaves(&sb)
	return sb.String()
}

func (t *DerivationTree) writeLeaves(sb *strings.Builder) {
	if !t.IsNonterminal() {
		sb.WriteString(t.Value)
		return
	}
	for _, c := range t.Children {
		c.writeLeaves(sb)
	}
}

// Filter returns all nodes of the subtree, the receiver included, for
// which keep returns true, in pre-order.
func (t *DerivationTree) Filter(keep func(*DerivationTree) bool) []*DerivationTree {
	var out []*DerivationTree
	t.walk(func(n *DerivationTree) {
		if keep(n) {
			out = append(out, n)
		}
	})
	return out
}

func (t *DerivationTree) walk(visit func(*DerivationTree)) {
	visit(t)
	for _, c := range t.Children {
		c.walk(visit)
	}
}
