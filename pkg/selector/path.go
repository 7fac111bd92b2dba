// Package selector implements the path language over derivation
// trees: direct and indirect descent with optional k-th occurrence
// indexing, statically validated against a grammar through its
// reachability counter.
package selector

import (
	"fmt"
	"strconv"

	"github.com/sandrolain/glot/pkg/types"
)

// ParsePath parses a path literal.
//
// An absolute path is a chain of steps: ".a.b[2]" or "..part". A
// relative path starts with a bare symbol, the anchor, which matches
// anywhere under the root: "part" or "row..cell". Steps are ".sym"
// (every direct child), ".sym[k]" (the k-th direct child, k >= 1) and
// "..sym" (every descendant).
func ParsePath(src string) (*types.Path, error) {
	p := &pathParser{src: src}
	path := &types.Path{}

	if p.pos < len(src) && src[p.pos] != '.' {
		anchor, err := p.ident()
		if err != nil {
			return nil, err
		}
		path.Anchor = anchor
	}

	for p.pos < len(p.src) {
		step, err := p.step()
		if err != nil {
			return nil, err
		}
		path.Steps = append(path.Steps, step)
	}

	if path.Absolute() && len(path.Steps) == 0 {
		return nil, types.NewError(types.ErrPathSyntax, "Empty path", 0)
	}
	return path, nil
}

type pathParser struct {
	src string
	pos int
}

func (p *pathParser) step() (types.PathStep, error) {
	start := p.pos
	p.pos++ // the leading dot
	kind := types.StepDirect
	if p.pos < len(p.src) && p.src[p.pos] == '.' {
		kind = types.StepIndirect
		p.pos++
	}

	symbol, err := p.ident()
	if err != nil {
		return types.PathStep{}, err
	}
	step := types.PathStep{Symbol: symbol, Kind: kind, Position: start}

	if p.pos < len(p.src) && p.src[p.pos] == '[' {
		if kind == types.StepIndirect {
			return types.PathStep{}, types.NewError(types.ErrPathSyntax,
				"Descendant steps cannot be indexed", p.pos)
		}
		index, err := p.index()
		if err != nil {
			return types.PathStep{}, err
		}
		step.Kind = types.StepDirectAt
		step.Index = index
	}
	return step, nil
}

func (p *pathParser) ident() (string, error) {
	start := p.pos
	for p.pos < len(p.src) && isSymbolChar(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return "", types.NewError(types.ErrPathSyntax, "Expected a symbol name", start)
	}
	return p.src[start:p.pos], nil
}

func (p *pathParser) index() (int, error) {
	open := p.pos
	p.pos++ // the opening bracket
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start || p.pos >= len(p.src) || p.src[p.pos] != ']' {
		return 0, types.NewError(types.ErrPathSyntax, "Malformed index", open)
	}
	p.pos++
	k, err := strconv.Atoi(p.src[start : p.pos-1])
	if err != nil || k < 1 {
		return 0, types.NewError(types.ErrPathSyntax,
			fmt.Sprintf("Index must be at least 1, got %s", p.src[start:p.pos-1]), open)
	}
	return k, nil
}

func isSymbolChar(ch byte) bool {
	switch {
	case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		return true
	case ch == '_', ch == '-', ch == '\'', ch == ':':
		return true
	default:
		return false
	}
}
