package pattern

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/zclconf/go-cty/cty"

	"github.com/wisplang/wisp/internal/ir"
)

// Resolver resolves operation names appearing in textual patterns. The
// registry package provides the standard implementation.
type Resolver interface {
	Lookup(name string) (*ir.Operation, error)
}

// predicates names the guards available to `?name:guard` variables.
var predicates = map[string]Predicate{
	"const": IsConstant,
	"param": IsParameter,
	"apply": IsApply,
}

// Parser parses the textual pattern mini-language:
//
//	(P (P ?x))        nested applications of operation P
//	?x                a logic variable
//	?v:const          a variable matching only Constant nodes
//	0, 2.5, "s", true cty literals
//
// A Parser shares one variable table across all its Parse calls, so `?x`
// in a rule's match pattern and `?x` in its rewrite pattern denote the
// same variable.
type Parser struct {
	resolver Resolver
	vars     map[string]*Var
}

// NewParser creates a parser resolving operation names through r.
func NewParser(r Resolver) *Parser {
	return &Parser{resolver: r, vars: make(map[string]*Var)}
}

// Var returns the parser's shared variable of the given name, creating it
// if no pattern has mentioned it yet.
func (p *Parser) Var(name string) *Var {
	if v, ok := p.vars[name]; ok {
		return v
	}
	v := NewVar(name)
	p.vars[name] = v
	return v
}

// Parse parses one pattern.
func (p *Parser) Parse(src string) (Pattern, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	pat, rest, err := p.parse(toks)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("trailing input after pattern: %q", strings.Join(rest, " "))
	}
	return pat, nil
}

func (p *Parser) parse(toks []string) (Pattern, []string, error) {
	if len(toks) == 0 {
		return nil, nil, fmt.Errorf("unexpected end of pattern")
	}
	tok := toks[0]
	toks = toks[1:]
	switch tok {
	case "(":
		var items []Pattern
		for {
			if len(toks) == 0 {
				return nil, nil, fmt.Errorf("missing closing parenthesis")
			}
			if toks[0] == ")" {
				return NewCall(items...), toks[1:], nil
			}
			item, rest, err := p.parse(toks)
			if err != nil {
				return nil, nil, err
			}
			items = append(items, item)
			toks = rest
		}
	case ")":
		return nil, nil, fmt.Errorf("unexpected closing parenthesis")
	default:
		pat, err := p.atom(tok)
		return pat, toks, err
	}
}

func (p *Parser) atom(tok string) (Pattern, error) {
	switch {
	case strings.HasPrefix(tok, "?"):
		name, guard, guarded := strings.Cut(tok[1:], ":")
		if name == "" {
			return nil, fmt.Errorf("variable with empty name: %q", tok)
		}
		v := p.Var(name)
		if guarded {
			pred, ok := predicates[guard]
			if !ok {
				return nil, fmt.Errorf("unknown variable guard %q in %q", guard, tok)
			}
			if v.Pred == nil {
				v.Pred = pred
			}
		}
		return v, nil
	case tok == "true":
		return cty.True, nil
	case tok == "false":
		return cty.False, nil
	case strings.HasPrefix(tok, `"`):
		if len(tok) < 2 || !strings.HasSuffix(tok, `"`) {
			return nil, fmt.Errorf("unterminated string literal %q", tok)
		}
		return cty.StringVal(tok[1 : len(tok)-1]), nil
	case isNumberStart(tok):
		v, err := cty.ParseNumberVal(tok)
		if err != nil {
			return nil, fmt.Errorf("bad numeric literal %q: %w", tok, err)
		}
		return v, nil
	default:
		op, err := p.resolver.Lookup(tok)
		if err != nil {
			return nil, err
		}
		return op, nil
	}
}

func isNumberStart(tok string) bool {
	r := rune(tok[0])
	if unicode.IsDigit(r) {
		return true
	}
	return (r == '-' || r == '.') && len(tok) > 1 && unicode.IsDigit(rune(tok[1]))
}

func tokenize(src string) ([]string, error) {
	var toks []string
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '(' || c == ')':
			toks = append(toks, string(c))
			i++
		case c == '"':
			j := strings.IndexByte(src[i+1:], '"')
			if j < 0 {
				return nil, fmt.Errorf("unterminated string literal in pattern")
			}
			toks = append(toks, src[i:i+j+2])
			i += j + 2
		case unicode.IsSpace(rune(c)):
			i++
		default:
			j := i
			for j < len(src) && src[j] != '(' && src[j] != ')' && !unicode.IsSpace(rune(src[j])) {
				j++
			}
			toks = append(toks, src[i:j])
			i = j
		}
	}
	return toks, nil
}
