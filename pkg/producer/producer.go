// Package producer composes the value generators behind contract
// fuzzing: constants, solver-backed language generators, filters and
// cross-parameter products, plus the fuzz driver consuming them.
package producer

import (
	"errors"
	"fmt"

	"github.com/sandrolain/glot/pkg/solver"
	"github.com/sandrolain/glot/pkg/types"
)

// Producer yields one value per Produce call.
type Producer interface {
	Produce() (types.Value, error)
}

// DefaultMaxRetries bounds rejection sampling and solver rebuilds. A
// producer whose constraints reject everything fails with a typed
// error instead of spinning forever.
const DefaultMaxRetries = 64

func retriesExceeded(what string) error {
	return types.NewError(types.ErrRetriesExceeded,
		fmt.Sprintf("Gave up producing %s after %d attempts", what, DefaultMaxRetries), -1)
}

// Const always produces the same value.
type Const struct {
	Value types.Value
}

func (c Const) Produce() (types.Value, error) { return c.Value, nil }

// Func adapts a plain function into a producer, for user-supplied
// generators.
type Func func() (types.Value, error)

func (f Func) Produce() (types.Value, error) { return f() }

// Filtered rejection-samples an inner producer until a value passes
// the test, bounded by the retry cap.
type Filtered struct {
	Inner Producer
	Test  func(types.Value) (bool, error)
}

func (f Filtered) Produce() (types.Value, error) {
	for range DefaultMaxRetries {
		v, err := f.Inner.Produce()
		if err != nil {
			return nil, err
		}
		ok, err := f.Test(v)
		if err != nil {
			return nil, err
		}
		if ok {
			return v, nil
		}
	}
	return nil, retriesExceeded("a filtered value")
}

// SolverProducer draws words from a solver session. On exhaustion it
// rebuilds the session with a doubled budget, up to the retry cap.
// Untranslatable conjuncts arrive as a Test and are rejection-sampled.
type SolverProducer struct {
	build   func(budget int) solver.Solver
	budget  int
	session solver.Solver
	test    func(types.Value) (bool, error)
}

// NewSolver creates a solver-backed producer. build is invoked with a
// budget whenever a fresh session is needed; test may be nil.
func NewSolver(build func(budget int) solver.Solver, budget int, test func(types.Value) (bool, error)) *SolverProducer {
	return &SolverProducer{
		build:   build,
		budget:  budget,
		session: build(budget),
		test:    test,
	}
}

func (p *SolverProducer) Produce() (types.Value, error) {
	for range DefaultMaxRetries {
		word, err := p.session.Solve()
		if errors.Is(err, solver.ErrExhausted) {
			p.budget *= 2
			p.session = p.build(p.budget)
			continue
		}
		if err != nil {
			return nil, err
		}
		if p.test != nil {
			ok, err := p.test(word)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		return word, nil
	}
	return nil, retriesExceeded("a word")
}

// Product draws one value per element producer and rejection-samples
// the tuple against the cross-parameter test, bounded by the retry
// cap. It produces a []types.Value.
type Product struct {
	Producers []Producer
	Test      func(args []types.Value) (bool, error)
}

func (p Product) Produce() (types.Value, error) {
	for range DefaultMaxRetries {
		args := make([]types.Value, len(p.Producers))
		for i, inner := range p.Producers {
			v, err := inner.Produce()
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		if p.Test != nil {
			ok, err := p.Test(args)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		return args, nil
	}
	return nil, retriesExceeded("an argument tuple")
}
