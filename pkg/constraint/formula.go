// Package constraint compiles predicate expressions into grammar
// constraint formulas for the generation solver. A predicate is split
// into conjuncts; each conjunct either translates into a formula the
// solver can enforce during derivation, or stays behind as a
// post-generation filter evaluated on candidate words.
package constraint

import (
	"strconv"
	"strings"
)

// Sort classifies formula nodes: a proper formula, an integer term or
// a string term.
type Sort uint8

const (
	SortFormula Sort = iota
	SortInt
	SortString
)

// Formula is a node of the constraint language.
//
// Formula is a closed sum; the printer and the tree evaluator switch
// exhaustively over its variants.
type Formula interface {
	formulaNode()
	Sort() Sort
}

// The formula forms.
type (
	// BoolConst is a constant formula.
	BoolConst struct{ Value bool }
	// IntConst is an integer constant term.
	IntConst struct{ Value int }
	// StrConst is a string constant term.
	StrConst struct{ Value string }
	// BoundVar references a variable bound by an enclosing quantifier.
	// It denotes the word derived from the bound subtree.
	BoundVar struct{ Name string }
	// TreeAddr addresses a unique subtree by its path from the
	// derivation root and denotes the word it derives.
	TreeAddr struct {
		Anchor string
		Steps  []AddrStep
	}
	// Call applies a solver builtin (arithmetic, comparison or str.*
	// function) to its argument terms.
	Call struct {
		Fn   string
		Args []Formula
		Out  Sort
	}
	// Conn connects subformulas with "and" or "or".
	Conn struct {
		Op       string
		Operands []Formula
	}
	// Neg negates a subformula.
	Neg struct{ Operand Formula }
	// StructPred constrains the tree structure around bound variables,
	// like ebnf_direct_child(x, y).
	StructPred struct {
		Name string
		Args []string
	}
	// Quantifier binds every (forall) or some (exists) subtree
	// labelled Symbol inside Container to Binder. A structural Guard,
	// when present, restricts the bound subtrees; it joins the body
	// with "implies" under forall and "and" under exists.
	Quantifier struct {
		Exists    bool
		Symbol    string
		Binder    string
		Container string
		Guard     *StructPred
		Body      Formula
	}
)

// AddrStep is one step of a tree address; direct steps are printed
// with "." and descendant steps with "..".
type AddrStep struct {
	Direct bool
	Symbol string
}

func (BoolConst) formulaNode()  {}
func (IntConst) formulaNode()   {}
func (StrConst) formulaNode()   {}
func (BoundVar) formulaNode()   {}
func (TreeAddr) formulaNode()   {}
func (Call) formulaNode()       {}
func (Conn) formulaNode()       {}
func (Neg) formulaNode()        {}
func (StructPred) formulaNode() {}
func (Quantifier) formulaNode() {}

func (BoolConst) Sort() Sort  { return SortFormula }
func (IntConst) Sort() Sort   { return SortInt }
func (StrConst) Sort() Sort   { return SortString }
func (BoundVar) Sort() Sort   { return SortString }
func (TreeAddr) Sort() Sort   { return SortString }
func (f Call) Sort() Sort     { return f.Out }
func (Conn) Sort() Sort       { return SortFormula }
func (Neg) Sort() Sort        { return SortFormula }
func (StructPred) Sort() Sort { return SortFormula }
func (Quantifier) Sort() Sort { return SortFormula }

// Print renders a formula in the solver wire syntax: SMT-LIB prefix
// terms for calls, infix connectives and tree quantifiers.
func Print(f Formula) string {
	var sb strings.Builder
	printInto(&sb, f)
	return sb.String()
}

func printInto(sb *strings.Builder, f Formula) {
	switch x := f.(type) {
	case BoolConst:
		sb.WriteString(strconv.FormatBool(x.Value))
	case IntConst:
		sb.WriteString(strconv.Itoa(x.Value))
	case StrConst:
		sb.WriteString(strconv.Quote(x.Value))
	case BoundVar:
		sb.WriteString(x.Name)
	case TreeAddr:
		sb.WriteString("<" + x.Anchor + ">")
		for _, step := range x.Steps {
			if step.Direct {
				sb.WriteString(".")
			} else {
				sb.WriteString("..")
			}
			sb.WriteString("<" + step.Symbol + ">")
		}
	case Call:
		sb.WriteString("(" + x.Fn)
		for _, arg := range x.Args {
			sb.WriteString(" ")
			printInto(sb, arg)
		}
		sb.WriteString(")")
	case Conn:
		sb.WriteString("(")
		for i, op := range x.Operands {
			if i > 0 {
				sb.WriteString(" " + x.Op + " ")
			}
			printInto(sb, op)
		}
		sb.WriteString(")")
	case Neg:
		sb.WriteString("(not ")
		printInto(sb, x.Operand)
		sb.WriteString(")")
	case StructPred:
		sb.WriteString(x.Name + "(" + strings.Join(x.Args, ", ") + ")")
	case Quantifier:
		kind := "forall"
		conn := "implies"
		if x.Exists {
			kind = "exists"
			conn = "and"
		}
		sb.WriteString("(" + kind + " <" + x.Symbol + "> " + x.Binder + " in " + x.Container + ": ")
		if x.Guard != nil {
			printInto(sb, *x.Guard)
			sb.WriteString(" " + conn + " ")
		}
		printInto(sb, x.Body)
		sb.WriteString(")")
	}
}
