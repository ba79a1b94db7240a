package rules

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"recondiag/internal/dataset"
)

// ConditionError reports a rule condition that failed to parse or that
// used a construct outside the restricted grammar. It is recoverable:
// the engine logs it and treats the rule as non-matching.
type ConditionError struct {
	Condition string
	Pos       int
	Msg       string
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("rule condition %q: %s (at offset %d)", e.Condition, e.Msg, e.Pos)
}

// The condition grammar is deliberately closed:
//
//	expr   := or
//	or     := and { "or" and }
//	and    := not { "and" not }
//	not    := "not" not | cmp
//	cmp    := operand [ "==" operand | "!=" operand | "is" ["not"] "None" ]
//	operand:= "(" expr ")" | field | literal
//	literal:= number | 'string' | "string" | True | False | None
//
// Field names are bare identifiers resolved against the row. There are no
// function calls, no attribute access, no arithmetic, no indexing; any such
// token fails the lexer or parser, so unsafe conditions are rejected before
// any row is touched.

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokEq
	tokNe
	tokLParen
	tokRParen
	tokAnd
	tokOr
	tokNot
	tokIs
	tokNone
	tokTrue
	tokFalse
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func lex(cond string) ([]token, *ConditionError) {
	var toks []token
	i := 0
	for i < len(cond) {
		c := cond[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case c == '=' && i+1 < len(cond) && cond[i+1] == '=':
			toks = append(toks, token{tokEq, "==", i})
			i += 2
		case c == '!' && i+1 < len(cond) && cond[i+1] == '=':
			toks = append(toks, token{tokNe, "!=", i})
			i += 2
		case c == '\'' || c == '"':
			quote := c
			j := i + 1
			for j < len(cond) && cond[j] != quote {
				j++
			}
			if j >= len(cond) {
				return nil, &ConditionError{cond, i, "unterminated string literal"}
			}
			toks = append(toks, token{tokString, cond[i+1 : j], i})
			i = j + 1
		case c >= '0' && c <= '9' || c == '-' && i+1 < len(cond) && cond[i+1] >= '0' && cond[i+1] <= '9':
			j := i + 1
			for j < len(cond) && (cond[j] >= '0' && cond[j] <= '9' || cond[j] == '.' || cond[j] == 'e' || cond[j] == 'E' || cond[j] == '+' || cond[j] == '-') {
				j++
			}
			if _, err := strconv.ParseFloat(cond[i:j], 64); err != nil {
				return nil, &ConditionError{cond, i, "malformed number"}
			}
			toks = append(toks, token{tokNumber, cond[i:j], i})
			i = j
		case isIdentStart(rune(c)):
			j := i + 1
			for j < len(cond) && isIdentPart(rune(cond[j])) {
				j++
			}
			word := cond[i:j]
			kind := tokIdent
			switch word {
			case "and":
				kind = tokAnd
			case "or":
				kind = tokOr
			case "not":
				kind = tokNot
			case "is":
				kind = tokIs
			case "None":
				kind = tokNone
			case "True":
				kind = tokTrue
			case "False":
				kind = tokFalse
			}
			toks = append(toks, token{kind, word, i})
			i = j
		default:
			return nil, &ConditionError{cond, i, fmt.Sprintf("illegal character %q", string(c))}
		}
	}
	toks = append(toks, token{tokEOF, "", len(cond)})
	return toks, nil
}

func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }
func isIdentPart(r rune) bool  { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }

// Expr is a compiled condition. It is immutable and safe for concurrent use.
type Expr struct {
	root node
	src  string
}

// Source returns the condition text the expression was compiled from.
func (e *Expr) Source() string { return e.src }

type node interface {
	eval(row dataset.Row) bool
}

// operand nodes produce values, not booleans; they appear only under
// comparison nodes or as bare truthiness tests.

type operand interface {
	value(row dataset.Row) dataset.Value
}

type fieldOp struct{ name string }

func (f fieldOp) value(row dataset.Row) dataset.Value { return row.Get(f.name) }

type literalOp struct{ v dataset.Value }

func (l literalOp) value(dataset.Row) dataset.Value { return l.v }

type andNode struct{ l, r node }

func (n andNode) eval(row dataset.Row) bool { return n.l.eval(row) && n.r.eval(row) }

type orNode struct{ l, r node }

func (n orNode) eval(row dataset.Row) bool { return n.l.eval(row) || n.r.eval(row) }

type notNode struct{ inner node }

func (n notNode) eval(row dataset.Row) bool { return !n.inner.eval(row) }

type isNullNode struct {
	op      operand
	negated bool
}

func (n isNullNode) eval(row dataset.Row) bool {
	null := n.op.value(row).IsNull()
	if n.negated {
		return !null
	}
	return null
}

type cmpNode struct {
	l, r operand
	ne   bool
}

func (n cmpNode) eval(row dataset.Row) bool {
	lv, rv := n.l.value(row), n.r.value(row)
	// Null never equals and never differs: comparisons against null are
	// false unless written as "is None" / "is not None".
	if lv.IsNull() || rv.IsNull() {
		return false
	}
	eq := valuesEqual(lv, rv)
	if n.ne {
		return !eq
	}
	return eq
}

func valuesEqual(a, b dataset.Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case dataset.KindNumber:
		return a.Num == b.Num
	case dataset.KindString:
		return a.Str == b.Str
	case dataset.KindBool:
		return a.B == b.B
	default:
		return false
	}
}

// truthNode tests a bare operand: true only for a boolean true cell.
type truthNode struct{ op operand }

func (n truthNode) eval(row dataset.Row) bool {
	b, ok := n.op.value(row).AsBool()
	return ok && b
}

type parser struct {
	cond string
	toks []token
	i    int
}

// Parse compiles a condition into an Expr, rejecting anything outside the
// restricted grammar. The returned error is always a *ConditionError.
func Parse(cond string) (*Expr, error) {
	if strings.TrimSpace(cond) == "" {
		return nil, &ConditionError{cond, 0, "empty condition"}
	}
	toks, lerr := lex(cond)
	if lerr != nil {
		return nil, lerr
	}
	p := &parser{cond: cond, toks: toks}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, p.errf("unexpected %q after expression", p.peek().text)
	}
	return &Expr{root: root, src: cond}, nil
}

// MustParse is Parse for statically known conditions (default rulesets).
func MustParse(cond string) *Expr {
	e, err := Parse(cond)
	if err != nil {
		panic(err)
	}
	return e
}

// Eval evaluates the condition against a row. Absent fields read as null.
func (e *Expr) Eval(row dataset.Row) bool { return e.root.eval(row) }

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) errf(format string, args ...any) *ConditionError {
	return &ConditionError{p.cond, p.peek().pos, fmt.Sprintf(format, args...)}
}

func (p *parser) parseOr() (node, *ConditionError) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, *ConditionError) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
	return left, nil
}

func (p *parser) parseNot() (node, *ConditionError) {
	if p.peek().kind == tokNot {
		p.next()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return notNode{inner}, nil
	}
	return p.parseCmp()
}

func (p *parser) parseCmp() (node, *ConditionError) {
	// Parenthesized boolean sub-expressions are nodes, not operands, so a
	// "(" here hands off to the boolean grammar directly.
	if p.peek().kind == tokLParen {
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, p.errf("expected ) ")
		}
		p.next()
		return inner, nil
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	switch p.peek().kind {
	case tokEq, tokNe:
		ne := p.next().kind == tokNe
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return cmpNode{left, right, ne}, nil
	case tokIs:
		p.next()
		negated := false
		if p.peek().kind == tokNot {
			p.next()
			negated = true
		}
		if p.peek().kind != tokNone {
			return nil, p.errf("expected None after is")
		}
		p.next()
		return isNullNode{left, negated}, nil
	default:
		return truthNode{left}, nil
	}
}

func (p *parser) parseOperand() (operand, *ConditionError) {
	t := p.peek()
	switch t.kind {
	case tokIdent:
		p.next()
		if p.peek().kind == tokLParen {
			return nil, p.errf("function calls are not allowed")
		}
		return fieldOp{t.text}, nil
	case tokNumber:
		p.next()
		n, _ := strconv.ParseFloat(t.text, 64)
		return literalOp{dataset.Number(n)}, nil
	case tokString:
		p.next()
		return literalOp{dataset.String(t.text)}, nil
	case tokTrue:
		p.next()
		return literalOp{dataset.Bool(true)}, nil
	case tokFalse:
		p.next()
		return literalOp{dataset.Bool(false)}, nil
	case tokNone:
		p.next()
		return literalOp{dataset.Null()}, nil
	default:
		return nil, p.errf("expected field or literal, got %q", t.text)
	}
}
