// Package types defines the shared vocabulary of glot.
//
// This package contains type definitions for:
//   - Clause and Rule: the EBNF-like grammar rule AST
//   - DerivationTree: parse trees over compiled grammars
//   - SimpleType and NormalForm: the refinement type system's normal forms
//   - Expr: predicate-expression AST nodes
//   - Path: compiled derivation-tree path selectors
//   - Error types: structured errors with codes and positions
package types

// RepUnbounded marks a repetition with no upper bound.
const RepUnbounded = -1

// Clause is one node of a grammar rule body.
//
// Clause is a closed sum: adding a new clause kind requires updating
// every switch over Clause, which the grammar compiler and the
// reachability counter rely on.
type Clause interface {
	clauseNode()
	// Pos returns the byte offset of the clause in the rule source.
	Pos() int
}

// Token is a literal terminal string.
type Token struct {
	Text     string
	Position int
}

// CharSet is an inclusive character range, e.g. [a-z] or %x41-5A.
type CharSet struct {
	Lo, Hi   rune
	Position int
}

// Symbol is a reference to a nonterminal, either a rule of the same
// grammar or the start symbol of another known grammar.
type Symbol struct {
	Name     string
	Position int
}

// Rep repeats Clause between Min and Max times.
// Max is RepUnbounded for open-ended repetitions.
type Rep struct {
	Clause   Clause
	Min, Max int
	Position int
}

// Seq is the concatenation of its clauses, in order.
type Seq struct {
	Clauses  []Clause
	Position int
}

// Alt is the ordered alternation of its clauses.
type Alt struct {
	Clauses  []Clause
	Position int
}

func (Token) clauseNode()   {}
func (CharSet) clauseNode() {}
func (Symbol) clauseNode()  {}
func (Rep) clauseNode()     {}
func (Seq) clauseNode()     {}
func (Alt) clauseNode()     {}

func (c Token) Pos() int   { return c.Position }
func (c CharSet) Pos() int { return c.Position }
func (c Symbol) Pos() int  { return c.Position }
func (c Rep) Pos() int     { return c.Position }
func (c Seq) Pos() int     { return c.Position }
func (c Alt) Pos() int     { return c.Position }

// Unbounded reports whether the repetition has no upper bound.
func (c Rep) Unbounded() bool { return c.Max == RepUnbounded }

// Rule binds a nonterminal name to its body clause.
type Rule struct {
	Name     string
	Body     Clause
	Position int // position of the rule name
}
