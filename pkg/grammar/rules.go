package grammar

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sandrolain/glot/pkg/types"
)

// ParseRules parses grammar rule source text into a rule list.
//
// The surface syntax is:
//
//	rule   := name ':' clause ';'
//	clause := alt
//	alt    := seq ('|' seq)*
//	seq    := rep+
//	rep    := atom ('*' | '+' | '?' | '{' n '}' | '{' n? ',' n? '}')?
//	atom   := "literal" | [lo-hi] | %dNN | %xHH | name | '(' clause ')'
//
// Line comments start with "//". The parsed rules are not yet
// validated; see Validate.
func ParseRules(src string) ([]types.Rule, error) {
	p := &ruleParser{lexer: newLexer(src)}
	p.advance()
	return p.parseRules()
}

// ruleParser implements a recursive descent parser for the rule DSL.
type ruleParser struct {
	lexer   *lexer
	current token
}

func (p *ruleParser) advance() {
	p.current = p.lexer.next()
}

func (p *ruleParser) errorf(code types.ErrorCode, format string, args ...any) error {
	if err := p.lexer.Error(); err != nil {
		return err
	}
	return types.NewError(code, fmt.Sprintf(format, args...), p.current.Position)
}

func (p *ruleParser) expect(tt tokenType) (token, error) {
	if p.current.Type != tt {
		return token{}, p.errorf(types.ErrRuleSyntax, "Expected %s but found %s", tt, p.current.Type)
	}
	t := p.current
	p.advance()
	return t, nil
}

func (p *ruleParser) parseRules() ([]types.Rule, error) {
	var rules []types.Rule
	for p.current.Type != tokenEOF {
		rule, err := p.parseRule()
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if len(rules) == 0 {
		return nil, types.NewError(types.ErrRuleSyntax, "Empty rule set", 0)
	}
	return rules, nil
}

func (p *ruleParser) parseRule() (types.Rule, error) {
	name, err := p.expect(tokenIdent)
	if err != nil {
		return types.Rule{}, err
	}
	if _, err := p.expect(tokenColon); err != nil {
		return types.Rule{}, err
	}
	body, err := p.parseClause()
	if err != nil {
		return types.Rule{}, err
	}
	if _, err := p.expect(tokenSemicolon); err != nil {
		return types.Rule{}, err
	}
	return types.Rule{Name: name.Value, Body: body, Position: name.Position}, nil
}

// parseClause parses an alternation.
func (p *ruleParser) parseClause() (types.Clause, error) {
	first, err := p.parseSeq()
	if err != nil {
		return nil, err
	}
	if p.current.Type != tokenPipe {
		return first, nil
	}

	clauses := []types.Clause{first}
	for p.current.Type == tokenPipe {
		p.advance()
		next, err := p.parseSeq()
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, next)
	}
	return types.Alt{Clauses: clauses, Position: first.Pos()}, nil
}

// parseSeq parses a concatenation of one or more repetitions.
func (p *ruleParser) parseSeq() (types.Clause, error) {
	first, err := p.parseRep()
	if err != nil {
		return nil, err
	}

	clauses := []types.Clause{first}
	for p.startsAtom() {
		next, err := p.parseRep()
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, next)
	}
	if len(clauses) == 1 {
		return first, nil
	}
	return types.Seq{Clauses: clauses, Position: first.Pos()}, nil
}

func (p *ruleParser) startsAtom() bool {
	switch p.current.Type {
	case tokenString, tokenCharSet, tokenCharCode, tokenIdent, tokenParenOpen:
		return true
	default:
		return false
	}
}

// parseRep parses an atom with an optional repetition suffix.
func (p *ruleParser) parseRep() (types.Clause, error) {
	atom, err := p.parseAtom()
	if err != nil {
		return nil, err
	}

	pos := p.current.Position
	switch p.current.Type {
	case tokenStar:
		p.advance()
		return types.Rep{Clause: atom, Min: 0, Max: types.RepUnbounded, Position: pos}, nil
	case tokenPlus:
		p.advance()
		return types.Rep{Clause: atom, Min: 1, Max: types.RepUnbounded, Position: pos}, nil
	case tokenQuestion:
		p.advance()
		return types.Rep{Clause: atom, Min: 0, Max: 1, Position: pos}, nil
	case tokenBraceOpen:
		p.advance()
		return p.parseRepRange(atom, pos)
	default:
		return atom, nil
	}
}

// parseRepRange parses the bracketed repetition forms {n} and {m?,n?}.
// The opening brace has already been consumed.
func (p *ruleParser) parseRepRange(atom types.Clause, pos int) (types.Clause, error) {
	lower := 0
	hasLower := false
	if p.current.Type == tokenInt {
		n, err := p.parseInt()
		if err != nil {
			return nil, err
		}
		lower = n
		hasLower = true
	}

	if p.current.Type == tokenBraceClose {
		if !hasLower {
			return nil, p.errorf(types.ErrRuleSyntax, "Expected repetition bound")
		}
		p.advance()
		// exact form {n}
		return types.Rep{Clause: atom, Min: lower, Max: lower, Position: pos}, nil
	}

	if _, err := p.expect(tokenComma); err != nil {
		return nil, err
	}

	upper := types.RepUnbounded
	if p.current.Type == tokenInt {
		n, err := p.parseInt()
		if err != nil {
			return nil, err
		}
		upper = n
	}
	if _, err := p.expect(tokenBraceClose); err != nil {
		return nil, err
	}
	return types.Rep{Clause: atom, Min: lower, Max: upper, Position: pos}, nil
}

func (p *ruleParser) parseInt() (int, error) {
	t, err := p.expect(tokenInt)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(t.Value)
	if err != nil {
		return 0, types.NewError(types.ErrRuleSyntax, "Invalid repetition bound "+t.Value, t.Position)
	}
	return n, nil
}

func (p *ruleParser) parseAtom() (types.Clause, error) {
	t := p.current
	switch t.Type {
	case tokenString:
		p.advance()
		return types.Token{Text: unquote(t.Value), Position: t.Position}, nil
	case tokenCharSet:
		p.advance()
		return p.parseCharSet(t)
	case tokenCharCode:
		p.advance()
		return p.parseCharCode(t)
	case tokenIdent:
		p.advance()
		return types.Symbol{Name: t.Value, Position: t.Position}, nil
	case tokenParenOpen:
		p.advance()
		clause, err := p.parseClause()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokenParenClose); err != nil {
			return nil, err
		}
		return clause, nil
	default:
		return nil, p.errorf(types.ErrRuleSyntax, "Expected a clause but found %s", t.Type)
	}
}

// parseCharSet decodes the raw contents of a [lo-hi] token.
func (p *ruleParser) parseCharSet(t token) (types.Clause, error) {
	runes := []rune(t.Value)
	if len(runes) != 3 || runes[1] != '-' {
		return nil, types.NewError(types.ErrRuleSyntax, "Character set must have the form [lo-hi]", t.Position)
	}
	return types.CharSet{Lo: runes[0], Hi: runes[2], Position: t.Position}, nil
}

// parseCharCode decodes a %dNN or %xHH token, optionally a range.
// A single code is equivalent to a one-character literal.
func (p *ruleParser) parseCharCode(t token) (types.Clause, error) {
	base := 10
	if t.Value[1] == 'x' {
		base = 16
	}
	body := t.Value[2:]

	lo, hi, isRange := body, body, false
	if at := strings.IndexByte(body, '-'); at >= 0 {
		lo, hi, isRange = body[:at], body[at+1:], true
	}

	loCode, err := strconv.ParseInt(lo, base, 32)
	if err != nil {
		return nil, types.NewError(types.ErrRuleInvalidCharCode, "Invalid character code "+t.Value, t.Position)
	}
	if !isRange {
		return types.Token{Text: string(rune(loCode)), Position: t.Position}, nil
	}

	hiCode, err := strconv.ParseInt(hi, base, 32)
	if err != nil {
		return nil, types.NewError(types.ErrRuleInvalidCharCode, "Invalid character code "+t.Value, t.Position)
	}
	return types.CharSet{Lo: rune(loCode), Hi: rune(hiCode), Position: t.Position}, nil
}

// unquote decodes the escape sequences of a string literal body (the
// quotes themselves were stripped by the lexer).
func unquote(raw string) string {
	if !strings.ContainsRune(raw, '\\') {
		return raw
	}

	var sb strings.Builder
	escaped := false
	for _, ch := range raw {
		if !escaped {
			if ch == '\\' {
				escaped = true
			} else {
				sb.WriteRune(ch)
			}
			continue
		}
		escaped = false
		switch ch {
		case 'n':
			sb.WriteRune('\n')
		case 't':
			sb.WriteRune('\t')
		case 'r':
			sb.WriteRune('\r')
		default:
			sb.WriteRune(ch)
		}
	}
	return sb.String()
}
