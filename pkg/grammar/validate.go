package grammar

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-set/v3"
	"github.com/sandrolain/glot/pkg/types"
)

// StartRule is the distinguished entry rule every grammar must define.
const StartRule = "start"

// Validate checks a parsed rule set for definition errors. It collects
// every problem it finds rather than stopping at the first one, so a
// grammar author sees the whole picture in one pass. external reports
// whether a name resolves to another defined language.
func Validate(rules []types.Rule, external func(name string) bool) error {
	if external == nil {
		external = func(string) bool { return false }
	}

	var errs []error
	defined := set.New[string](len(rules))
	for _, rule := range rules {
		if defined.Contains(rule.Name) {
			errs = append(errs, types.NewError(types.ErrRedefinedRule,
				fmt.Sprintf("Rule %q is defined more than once", rule.Name), rule.Position))
			continue
		}
		defined.Insert(rule.Name)
	}
	if !defined.Contains(StartRule) {
		errs = append(errs, types.NewError(types.ErrMissingStartRule,
			"No start rule defined", 0))
	}

	used := set.New[string](len(rules))
	for _, rule := range rules {
		errs = append(errs, validateClause(rule.Body, defined, used, external)...)
	}

	for _, rule := range rules {
		if rule.Name != StartRule && !used.Contains(rule.Name) {
			errs = append(errs, types.NewError(types.ErrUnusedRule,
				fmt.Sprintf("Rule %q is never used", rule.Name), rule.Position))
		}
	}

	return errors.Join(errs...)
}

func validateClause(clause types.Clause, defined, used *set.Set[string], external func(string) bool) []error {
	var errs []error
	switch c := clause.(type) {
	case types.Token:
		if strings.ContainsAny(c.Text, "<>") {
			errs = append(errs, types.NewError(types.ErrRuleSyntax,
				"Literal text must not contain '<' or '>'", c.Position))
		}
	case types.CharSet:
		if c.Hi <= c.Lo {
			err := types.NewError(types.ErrInvalidCharRange,
				fmt.Sprintf("Invalid character range [%c-%c]", c.Lo, c.Hi), c.Position)
			if c.Hi == c.Lo {
				err = err.WithHint(fmt.Sprintf("write the single character as the literal %q", string(c.Lo)))
			}
			errs = append(errs, err)
		}
	case types.Symbol:
		if c.Name == StartRule {
			errs = append(errs, types.NewError(types.ErrStartReferenced,
				"The start rule must not be referenced", c.Position).
				WithHint("move the shared clause into its own rule"))
			break
		}
		used.Insert(c.Name)
		if !defined.Contains(c.Name) && !external(c.Name) {
			errs = append(errs, types.NewError(types.ErrUndefinedSymbol,
				fmt.Sprintf("Rule %q is not defined", c.Name), c.Position))
		}
	case types.Rep:
		errs = append(errs, validateRep(c)...)
		errs = append(errs, validateClause(c.Clause, defined, used, external)...)
	case types.Seq:
		for _, part := range c.Clauses {
			errs = append(errs, validateClause(part, defined, used, external)...)
		}
	case types.Alt:
		for _, part := range c.Clauses {
			errs = append(errs, validateClause(part, defined, used, external)...)
		}
	}
	return errs
}

func validateRep(rep types.Rep) []error {
	var errs []error
	switch {
	case rep.Min < 0:
		errs = append(errs, types.NewError(types.ErrInvalidRepetition,
			"Repetition bound must not be negative", rep.Position))
	case rep.Max == 0:
		errs = append(errs, types.NewError(types.ErrInvalidRepetition,
			"Repetition upper bound must be positive", rep.Position).
			WithHint(`use "" for the empty string`))
	case rep.Min == rep.Max && rep.Min <= 1:
		errs = append(errs, types.NewError(types.ErrInvalidRepetition,
			fmt.Sprintf("Redundant repetition {%d}", rep.Min), rep.Position))
	case !rep.Unbounded() && rep.Max < rep.Min:
		errs = append(errs, types.NewError(types.ErrInvalidRepetition,
			fmt.Sprintf("Repetition bounds {%d,%d} are out of order", rep.Min, rep.Max), rep.Position))
	}
	return errs
}
