package typer

import (
	"fmt"

	"github.com/sandrolain/glot/pkg/types"
)

// Scope is a parent-linked environment mapping names to types in
// normal form. Children read through to their parent but never write
// to it; a scope lives for one checking pass.
type Scope struct {
	parent *Scope
	vars   map[string]types.NormalForm
	pos    map[string]int
}

// NewScope creates a scope nested in parent; parent may be nil.
func NewScope(parent *Scope) *Scope {
	return &Scope{
		parent: parent,
		vars:   map[string]types.NormalForm{},
		pos:    map[string]int{},
	}
}

// Lookup resolves a name through the scope chain.
func (s *Scope) Lookup(name string) (types.NormalForm, bool) {
	if nf, ok := s.vars[name]; ok {
		return nf, true
	}
	if s.parent != nil {
		return s.parent.Lookup(name)
	}
	return nil, false
}

// Define binds a name in this scope. Redefining a name of the same
// scope is an error carrying both positions.
func (s *Scope) Define(name string, nf types.NormalForm, pos int) error {
	if prev, ok := s.pos[name]; ok {
		return types.NewError(types.ErrRedefinedName,
			fmt.Sprintf("Name %q is already defined", name), pos).WithRelated(prev)
	}
	s.vars[name] = nf
	s.pos[name] = pos
	return nil
}
