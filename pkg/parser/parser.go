// Package parser implements the predicate expression language and the
// type annotation syntax of refinement types.
//
// The expression parser is a recursive descent parser using Pratt's
// top down operator precedence algorithm. It produces the Expr AST
// consumed by the typer, the evaluator and the constraint compiler.
package parser

import (
	"fmt"
	"strconv"

	"github.com/sandrolain/glot/pkg/selector"
	"github.com/sandrolain/glot/pkg/types"
)

// ParsePredicate parses a predicate expression.
func ParsePredicate(src string) (types.Expr, error) {
	p := NewParser(src)
	if p.current.Type == TokenEOF {
		return nil, types.NewError(types.ErrUnexpectedEnd, "Empty predicate", 0)
	}
	expr, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if p.current.Type != TokenEOF {
		return nil, p.errorf(types.ErrPredicateSyntax, "Unexpected %s", p.current.Type)
	}
	return expr, nil
}

// ParseType parses a type annotation, e.g. "int", "[string]",
// "(int, int) -> bool" or "{string | len(_) > 0}".
func ParseType(src string) (types.TypeExpr, error) {
	p := NewParser(src)
	if p.current.Type == TokenEOF {
		return nil, types.NewError(types.ErrUnexpectedEnd, "Empty type", 0)
	}
	te, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if p.current.Type != TokenEOF {
		return nil, p.errorf(types.ErrPredicateSyntax, "Unexpected %s", p.current.Type)
	}
	return te, nil
}

// Parser is a recursive descent parser over a token stream.
type Parser struct {
	lexer   *Lexer
	current Token
}

// NewParser creates a parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	p.advance()
	return p
}

// Operator precedence table; higher values bind more tightly.
var precedence = map[TokenType]int{
	TokenQuestion:  15,
	TokenOr:        25,
	TokenAnd:       30,
	TokenEq:        40,
	TokenNe:        40,
	TokenLt:        40,
	TokenLe:        40,
	TokenGt:        40,
	TokenGe:        40,
	TokenIn:        40,
	TokenPlus:      50,
	TokenMinus:     50,
	TokenStar:      60,
	TokenSlash:     60,
	TokenPercent:   60,
	TokenParenOpen: 80,
}

const unaryPrecedence = 70

func (p *Parser) advance() {
	p.current = p.lexer.Next()
}

func (p *Parser) expect(tt TokenType) (Token, error) {
	if p.current.Type != tt {
		return Token{}, p.errorf(types.ErrExpectedToken, "Expected %s but found %s", tt, p.current.Type)
	}
	t := p.current
	p.advance()
	return t, nil
}

func (p *Parser) errorf(code types.ErrorCode, format string, args ...any) error {
	if err := p.lexer.Error(); err != nil {
		return err
	}
	if p.current.Type == TokenEOF {
		code = types.ErrUnexpectedEnd
	}
	return types.NewError(code, fmt.Sprintf(format, args...), p.current.Position)
}

// parseExpression parses an expression whose operators bind more
// tightly than rbp.
func (p *Parser) parseExpression(rbp int) (types.Expr, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}
	for rbp < precedence[p.current.Type] {
		left, err = p.parseInfix(left)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parsePrefix() (types.Expr, error) {
	t := p.current
	switch t.Type {
	case TokenInt:
		p.advance()
		n, err := strconv.Atoi(t.Value)
		if err != nil {
			return nil, types.NewError(types.ErrNumberOutOfRange, "Integer literal out of range", t.Position)
		}
		return types.IntLit{Value: n, Position: t.Position}, nil
	case TokenString:
		p.advance()
		return types.StringLit{Value: t.Value, Position: t.Position}, nil
	case TokenBoolean:
		p.advance()
		return types.BoolLit{Value: t.Value == "true", Position: t.Position}, nil
	case TokenIdent:
		p.advance()
		if t.Value == "select" || t.Value == "select_all" {
			if p.current.Type == TokenParenOpen {
				return p.parseSelect(t)
			}
		}
		return types.Var{Name: t.Value, Position: t.Position}, nil
	case TokenMinus, TokenNot:
		p.advance()
		operand, err := p.parseExpression(unaryPrecedence)
		if err != nil {
			return nil, err
		}
		e := types.Prefix(t.Value, operand)
		e.Position = t.Position
		return e, nil
	case TokenParenOpen:
		return p.parseGrouping()
	case TokenEOF:
		return nil, types.NewError(types.ErrUnexpectedEnd, "Unexpected end of predicate", t.Position)
	default:
		return nil, p.errorf(types.ErrPredicateSyntax, "Unexpected %s", t.Type)
	}
}

func (p *Parser) parseInfix(left types.Expr) (types.Expr, error) {
	t := p.current
	switch t.Type {
	case TokenQuestion:
		return p.parseConditional(left)
	case TokenParenOpen:
		return p.parseCall(left)
	}

	op, ok := operatorName[t.Type]
	if !ok {
		return nil, p.errorf(types.ErrPredicateSyntax, "Unexpected %s", t.Type)
	}
	p.advance()
	right, err := p.parseExpression(precedence[t.Type])
	if err != nil {
		return nil, err
	}
	e := types.Infix(op, left, right)
	e.Position = t.Position
	return e, nil
}

func (p *Parser) parseConditional(cond types.Expr) (types.Expr, error) {
	t := p.current
	p.advance()
	then, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenColon); err != nil {
		return nil, err
	}
	// right associative
	els, err := p.parseExpression(precedence[TokenQuestion] - 1)
	if err != nil {
		return nil, err
	}
	return types.IfThenElse{Cond: cond, Then: then, Else: els, Position: t.Position}, nil
}

func (p *Parser) parseCall(fn types.Expr) (types.Expr, error) {
	t := p.current
	p.advance()
	var args []types.Expr
	if p.current.Type != TokenParenClose {
		for {
			arg, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.current.Type != TokenComma {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	return types.App{Fn: fn, Args: args, Position: t.Position}, nil
}

// parseGrouping parses a parenthesized expression or a lambda header.
// "(x) -> e" and "(x, y) -> e" are lambdas, "(e)" is grouping.
func (p *Parser) parseGrouping() (types.Expr, error) {
	open := p.current
	p.advance()

	var exprs []types.Expr
	if p.current.Type != TokenParenClose {
		for {
			e, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, e)
			if p.current.Type != TokenComma {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}

	if p.current.Type == TokenArrow {
		p.advance()
		params := make([]string, len(exprs))
		for i, e := range exprs {
			v, ok := e.(types.Var)
			if !ok {
				return nil, types.NewError(types.ErrPredicateSyntax,
					"Lambda parameters must be plain names", e.Pos())
			}
			params[i] = v.Name
		}
		body, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		return types.Lambda{Params: params, Body: body, Position: open.Position}, nil
	}

	if len(exprs) != 1 {
		return nil, types.NewError(types.ErrPredicateSyntax,
			"Expected a single parenthesized expression", open.Position)
	}
	return exprs[0], nil
}

// parseSelect parses the select and select_all special forms:
// select(Lang, ".a.b", expr).
func (p *Parser) parseSelect(name Token) (types.Expr, error) {
	p.advance() // the opening paren

	lang, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenComma); err != nil {
		return nil, err
	}
	pathLit, err := p.expect(TokenString)
	if err != nil {
		return nil, err
	}
	path, err := selector.ParsePath(pathLit.Value)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenComma); err != nil {
		return nil, err
	}
	receiver, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	return types.SelectExpr{
		Receiver: receiver,
		Lang:     lang.Value,
		Path:     path,
		All:      name.Value == "select_all",
		Position: name.Position,
	}, nil
}

// parseType parses a type annotation.
func (p *Parser) parseType() (types.TypeExpr, error) {
	t := p.current
	switch t.Type {
	case TokenIdent:
		p.advance()
		var base types.TypeExpr
		switch t.Value {
		case "int":
			base = types.TInt{}
		case "bool":
			base = types.TBool{}
		case "string":
			base = types.TString{}
		case "unit":
			base = types.TUnit{}
		case "top":
			base = types.TTop{}
		default:
			base = types.TNamed{Name: t.Value, Position: t.Position}
		}
		return p.parseTypeSuffix(base)
	case TokenBracketOpen:
		p.advance()
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenBracketClose); err != nil {
			return nil, err
		}
		return p.parseTypeSuffix(types.TList{Elem: elem})
	case TokenBraceOpen:
		return p.parseRefinementType()
	case TokenParenOpen:
		return p.parseFunType()
	default:
		return nil, p.errorf(types.ErrPredicateSyntax, "Expected a type but found %s", t.Type)
	}
}

// parseTypeSuffix handles the single-argument arrow form "T -> U".
func (p *Parser) parseTypeSuffix(base types.TypeExpr) (types.TypeExpr, error) {
	if p.current.Type != TokenArrow {
		return base, nil
	}
	p.advance()
	ret, err := p.parseType()
	if err != nil {
		return nil, err
	}
	return types.TFun{Args: []types.TypeExpr{base}, Ret: ret}, nil
}

// parseRefinementType parses "{T | predicate}".
func (p *Parser) parseRefinementType() (types.TypeExpr, error) {
	p.advance() // the opening brace
	base, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenPipe); err != nil {
		return nil, err
	}
	pred, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenBraceClose); err != nil {
		return nil, err
	}
	return types.TRefine{Base: base, Pred: pred}, nil
}

// parseFunType parses "(T1, ..., Tn) -> T" or a parenthesized type.
func (p *Parser) parseFunType() (types.TypeExpr, error) {
	open := p.current
	p.advance()

	var args []types.TypeExpr
	if p.current.Type != TokenParenClose {
		for {
			arg, err := p.parseType()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.current.Type != TokenComma {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}

	if p.current.Type != TokenArrow {
		if len(args) == 1 {
			return p.parseTypeSuffix(args[0])
		}
		return nil, types.NewError(types.ErrPredicateSyntax,
			"Expected \"->\" after the argument types", open.Position)
	}
	p.advance()
	ret, err := p.parseType()
	if err != nil {
		return nil, err
	}
	return types.TFun{Args: args, Ret: ret}, nil
}
