// Package functions provides types for registering custom predicate
// functions.
//
// Users can define their own functions and register them on an
// environment with [glot.Env.DefineFunc], making them available inside
// refinement predicates and preconditions.
//
// # Example
//
//	env := glot.New()
//	err := env.DefineFunc("luhn", "(string) -> bool", func(args []types.Value) (types.Value, error) {
//	    return luhnValid(args[0].(string)), nil
//	})
//	card, err := env.Refine(digits.Type, "luhn(_)")
package functions

import (
	"fmt"

	"github.com/sandrolain/glot/pkg/types"
)

// CustomFunc is the signature for user-defined predicate functions.
// args contains the evaluated arguments in order. The function should
// return a predicate value (int, bool, string or a list) or an error.
type CustomFunc func(args []types.Value) (types.Value, error)

// CustomFunctionDef describes a user-defined function together with
// its type annotation, e.g. "(string) -> bool". The annotation is
// parsed once and checked wherever the function is applied.
type CustomFunctionDef struct {
	// Name is the function name as it appears inside predicates.
	Name string
	// Signature is the function type annotation source.
	Signature string
	// Fn is the implementation.
	Fn CustomFunc
}

// Registry holds the custom functions of one environment. The zero
// value is empty and usable.
type Registry struct {
	defs map[string]*CustomFunctionDef
}

// Register adds a definition. Registering a name twice fails.
func (r *Registry) Register(def *CustomFunctionDef) error {
	if _, ok := r.defs[def.Name]; ok {
		return types.NewError(types.ErrRedefinedName,
			fmt.Sprintf("Function %q is already registered", def.Name), -1)
	}
	if r.defs == nil {
		r.defs = map[string]*CustomFunctionDef{}
	}
	r.defs[def.Name] = def
	return nil
}

// Lookup resolves a registered function by name.
func (r *Registry) Lookup(name string) (*CustomFunctionDef, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Names returns the registered function names, in no particular order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	return names
}
