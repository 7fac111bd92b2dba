package types

import (
	"strconv"
	"strings"
)

// PathStepKind distinguishes the three step forms of the path language.
type PathStepKind uint8

const (
	// StepDirectAt selects exactly the k-th direct occurrence: .sym[k]
	StepDirectAt PathStepKind = iota
	// StepDirect selects every direct occurrence: .sym
	StepDirect
	// StepIndirect selects every descendant occurrence: ..sym
	StepIndirect
)

// PathStep is a single step of a compiled path.
type PathStep struct {
	Symbol   string
	Kind     PathStepKind
	Index    int // 1-based, only for StepDirectAt
	Position int
}

// Path is a compiled path over derivation trees. An absolute path
// starts stepping from the derivation root; a relative path first
// anchors on every node labeled Anchor, anywhere in the tree, and
// steps from there.
//
// A Path is parsed once from its literal syntax, statically validated
// against one grammar, and then reused to slice any derivation tree of
// that grammar.
type Path struct {
	Anchor   string // empty for absolute paths
	Steps    []PathStep
	Position int
}

// Absolute reports whether the path is rooted at the derivation root.
func (p *Path) Absolute() bool { return p.Anchor == "" }

// String renders the path back to its literal syntax.
func (p *Path) String() string {
	var sb strings.Builder
	sb.WriteString(p.Anchor)
	for _, s := range p.Steps {
		switch s.Kind {
		case StepDirectAt:
			sb.WriteString("." + s.Symbol + "[" + strconv.Itoa(s.Index) + "]")
		case StepDirect:
			sb.WriteString("." + s.Symbol)
		case StepIndirect:
			sb.WriteString(".." + s.Symbol)
		}
	}
	return sb.String()
}
