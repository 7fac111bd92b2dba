package grammar

import (
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/sandrolain/glot/pkg/types"
)

// An expansion is one alternative of a nonterminal in the lowered
// grammar: a sequence of terminal chunks and <nonterminal> labels.
// An empty expansion derives the empty string.
type expansion []string

func isLabel(element string) bool {
	return strings.HasPrefix(element, "<") && strings.HasSuffix(element, ">")
}

// Compile parses, validates and lowers rule source into a Grammar.
// externals maps lang names to previously compiled grammars; a rule
// body may reference them by name, and their productions are spliced
// into the result under renamed labels.
func Compile(name, src string, externals map[string]*Grammar) (*Grammar, error) {
	rules, err := ParseRules(src)
	if err != nil {
		return nil, err
	}

	local := lo.SliceToMap(rules, func(r types.Rule) (string, bool) { return r.Name, true })
	isExternal := func(symbol string) bool {
		if local[symbol] {
			return false
		}
		_, ok := externals[symbol]
		return ok
	}
	if err := Validate(rules, isExternal); err != nil {
		return nil, err
	}

	b := &builder{
		prods:     map[string][]expansion{},
		externals: externals,
		local:     local,
		spliced:   map[string]bool{},
	}
	for _, rule := range rules {
		b.lowerRule(rule)
	}
	return newGrammar(name, b.prods, b.order), nil
}

// builder lowers parsed rules into the canonical production map. Each
// charset, repetition and nested alternation becomes a fresh
// synthesized nonterminal <-N>.
type builder struct {
	prods     map[string][]expansion
	order     []string
	synth     int
	externals map[string]*Grammar
	local     map[string]bool
	spliced   map[string]bool
}

func (b *builder) define(label string, alts []expansion) {
	b.prods[label] = alts
	b.order = append(b.order, label)
}

func (b *builder) fresh() string {
	b.synth++
	return "<-" + strconv.Itoa(b.synth) + ">"
}

func (b *builder) lowerRule(rule types.Rule) {
	label := types.NonterminalLabel(rule.Name)
	if alt, ok := rule.Body.(types.Alt); ok {
		b.define(label, lo.Map(alt.Clauses, func(c types.Clause, _ int) expansion {
			return b.lower(c)
		}))
		return
	}
	b.define(label, []expansion{b.lower(rule.Body)})
}

// lower converts a clause into an expansion fragment, defining fresh
// nonterminals on the way.
func (b *builder) lower(clause types.Clause) expansion {
	switch c := clause.(type) {
	case types.Token:
		if c.Text == "" {
			return expansion{}
		}
		return expansion{c.Text}
	case types.CharSet:
		label := b.fresh()
		alts := make([]expansion, 0, c.Hi-c.Lo+1)
		for r := c.Lo; r <= c.Hi; r++ {
			alts = append(alts, expansion{string(r)})
		}
		b.define(label, alts)
		return expansion{label}
	case types.Symbol:
		if !b.local[c.Name] {
			if ext, ok := b.externals[c.Name]; ok {
				b.splice(c.Name, ext)
			}
		}
		return expansion{types.NonterminalLabel(c.Name)}
	case types.Seq:
		var out expansion
		for _, part := range c.Clauses {
			out = append(out, b.lower(part)...)
		}
		return out
	case types.Alt:
		label := b.fresh()
		b.define(label, lo.Map(c.Clauses, func(part types.Clause, _ int) expansion {
			return b.lower(part)
		}))
		return expansion{label}
	case types.Rep:
		return b.lowerRep(c)
	default:
		return expansion{}
	}
}

func (b *builder) lowerRep(rep types.Rep) expansion {
	element := b.lower(rep.Clause)

	if !rep.Unbounded() {
		label := b.fresh()
		alts := make([]expansion, 0, rep.Max-rep.Min+1)
		for k := rep.Min; k <= rep.Max; k++ {
			alts = append(alts, repeat(element, k))
		}
		b.define(label, alts)
		return expansion{label}
	}

	// element* as a right-recursive optional chain
	opt := b.fresh()
	b.define(opt, []expansion{{}, append(repeat(element, 1), opt)})
	prefix := repeat(element, rep.Min)
	if len(prefix) == 0 {
		return expansion{opt}
	}
	label := b.fresh()
	b.define(label, []expansion{append(prefix, opt)})
	return expansion{label}
}

func repeat(element expansion, k int) expansion {
	out := make(expansion, 0, k*len(element))
	for range k {
		out = append(out, element...)
	}
	return out
}

// splice copies the productions of an external grammar into this one.
// The external start rule becomes <name>, its other rules become
// <name:rule>, and its synthesized nonterminals are renumbered so they
// cannot collide with ours.
func (b *builder) splice(name string, ext *Grammar) {
	if b.spliced[name] {
		return
	}
	b.spliced[name] = true

	rename := map[string]string{}
	relabel := func(label string) string {
		if to, ok := rename[label]; ok {
			return to
		}
		var to string
		switch {
		case strings.HasPrefix(label, syntheticLabelPrefix):
			to = b.fresh()
		case label == types.NonterminalLabel(StartRule):
			to = types.NonterminalLabel(name)
		default:
			to = types.NonterminalLabel(name + ":" + innerSymbol(label))
		}
		rename[label] = to
		return to
	}

	for _, label := range ext.order {
		alts := lo.Map(ext.prods[label], func(alt expansion, _ int) expansion {
			out := make(expansion, len(alt))
			for i, element := range alt {
				if isLabel(element) {
					out[i] = relabel(element)
				} else {
					out[i] = element
				}
			}
			return out
		})
		b.define(relabel(label), alts)
	}
}

const syntheticLabelPrefix = "<-"

func innerSymbol(label string) string {
	return label[1 : len(label)-1]
}
