package selector

import (
	"fmt"

	"github.com/sandrolain/glot/pkg/types"
)

// Validate checks a parsed path against a grammar. Every symbol must
// name a grammar rule and every step must be reachable from the
// previous one. With requireUnique set, as needed when the path feeds
// a single-valued selection, every unindexed step must provably match
// exactly once.
func Validate(path *types.Path, g types.GrammarRef, requireUnique bool) error {
	for _, step := range path.Steps {
		if !g.IsDefined(step.Symbol) {
			return types.NewError(types.ErrPathUndefinedSymbol,
				fmt.Sprintf("Symbol %q is not defined in lang %s", step.Symbol, g.Name()), step.Position)
		}
	}

	prev := "start"
	if !path.Absolute() {
		if !g.IsDefined(path.Anchor) {
			return types.NewError(types.ErrPathUndefinedSymbol,
				fmt.Sprintf("Symbol %q is not defined in lang %s", path.Anchor, g.Name()), path.Position)
		}
		if err := checkCount(g, path.Anchor, prev, false, requireUnique, path.Position); err != nil {
			return err
		}
		prev = path.Anchor
	}

	for _, step := range path.Steps {
		direct := step.Kind != types.StepIndirect
		unique := requireUnique && step.Kind != types.StepDirectAt
		if err := checkCount(g, step.Symbol, prev, direct, unique, step.Position); err != nil {
			return err
		}
		prev = step.Symbol
	}
	return nil
}

func checkCount(g types.GrammarRef, symbol, within string, direct, unique bool, pos int) error {
	switch g.Count(symbol, within, direct) {
	case 0:
		return types.NewError(types.ErrPathUnreachable,
			fmt.Sprintf("Symbol %q is unreachable from %q", symbol, within), pos)
	case 2:
		if unique {
			return types.NewError(types.ErrPathNotUnique,
				fmt.Sprintf("There may be multiple nodes labelled %q under %q", symbol, within), pos)
		}
	}
	return nil
}

// SelectAll applies a path to a derivation tree and returns the
// selected subtrees in document order. Synthesized intermediate nodes
// are looked through at every step.
func SelectAll(tree *types.DerivationTree, path *types.Path) []*types.DerivationTree {
	var current []*types.DerivationTree
	if path.Absolute() {
		current = []*types.DerivationTree{tree}
	} else {
		current = labelled(tree, types.NonterminalLabel(path.Anchor))
	}

	for _, step := range path.Steps {
		if len(current) == 0 {
			return nil
		}
		label := types.NonterminalLabel(step.Symbol)
		var next []*types.DerivationTree
		for _, parent := range current {
			switch step.Kind {
			case types.StepDirect:
				next = append(next, directChildren(parent, label)...)
			case types.StepDirectAt:
				candidates := directChildren(parent, label)
				if len(candidates) >= step.Index {
					next = append(next, candidates[step.Index-1])
				}
			case types.StepIndirect:
				next = append(next, labelled(parent, label)...)
			}
		}
		current = next
	}
	return current
}

// SelectOne applies a path that must match exactly one subtree.
func SelectOne(tree *types.DerivationTree, path *types.Path) (*types.DerivationTree, error) {
	matches := SelectAll(tree, path)
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, types.NewError(types.ErrPathNoMatch,
			fmt.Sprintf("Path %s selected nothing", path), path.Position)
	default:
		return nil, types.NewError(types.ErrPathNotUnique,
			fmt.Sprintf("Path %s selected %d nodes", path, len(matches)), path.Position)
	}
}

// DirectChildren collects the direct children of parent labelled with
// symbol, descending through synthesized nodes. The structural
// constraint predicates share this notion of direct childhood.
func DirectChildren(parent *types.DerivationTree, symbol string) []*types.DerivationTree {
	return directChildren(parent, types.NonterminalLabel(symbol))
}

// Labelled collects every node of the subtree labelled with symbol,
// the root included.
func Labelled(tree *types.DerivationTree, symbol string) []*types.DerivationTree {
	return labelled(tree, types.NonterminalLabel(symbol))
}

// directChildren collects the direct children of parent carrying
// label, descending through synthesized nodes, which do not exist in
// the source grammar.
func directChildren(parent *types.DerivationTree, label string) []*types.DerivationTree {
	var out []*types.DerivationTree
	for _, child := range parent.Children {
		switch {
		case child.Value == label:
			out = append(out, child)
		case child.IsSynthetic():
			out = append(out, directChildren(child, label)...)
		}
	}
	return out
}

// labelled collects every node of the subtree carrying label, the
// root included.
func labelled(tree *types.DerivationTree, label string) []*types.DerivationTree {
	return tree.Filter(func(n *types.DerivationTree) bool {
		return n.Value == label
	})
}
