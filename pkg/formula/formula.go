// Package formula implements the arithmetic expression language used by
// calculated form fields. Expressions are parsed once when a schema is
// published and evaluated per payload; there is no runtime string eval.
package formula

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is a parsed formula ready for repeated evaluation.
type Expr struct {
	src  string
	root node
}

type node interface {
	eval(payload map[string]any) float64
	refs(into map[string]struct{})
}

type numberNode float64

func (n numberNode) eval(map[string]any) float64 { return float64(n) }
func (n numberNode) refs(map[string]struct{})    {}

type refNode string

func (n refNode) eval(payload map[string]any) float64 {
	value, ok := toNumber(payload[string(n)])
	if !ok {
		// Unresolved or non-numeric operands contribute the additive identity.
		return 0
	}

	return value
}

func (n refNode) refs(into map[string]struct{}) { into[string(n)] = struct{}{} }

type binaryNode struct {
	op          byte
	left, right node
}

func (n binaryNode) eval(payload map[string]any) float64 {
	left := n.left.eval(payload)
	right := n.right.eval(payload)

	switch n.op {
	case '+':
		return left + right
	case '-':
		return left - right
	case '*':
		return left * right
	default:
		if right == 0 {
			return 0
		}

		return left / right
	}
}

func (n binaryNode) refs(into map[string]struct{}) {
	n.left.refs(into)
	n.right.refs(into)
}

type negateNode struct{ inner node }

func (n negateNode) eval(payload map[string]any) float64 { return -n.inner.eval(payload) }
func (n negateNode) refs(into map[string]struct{})       { n.inner.refs(into) }

// Parse builds the expression AST. A syntax error here is a
// schema-authoring defect and fails schema compilation.
func Parse(src string) (*Expr, error) {
	p := &parser{src: src}

	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	p.skipSpace()

	if p.pos < len(p.src) {
		return nil, fmt.Errorf("formula %q: unexpected character %q at position %d", src, p.src[p.pos], p.pos)
	}

	return &Expr{src: src, root: root}, nil
}

// Eval computes the formula over the payload. Deterministic: the same
// payload always yields the same result.
func (e *Expr) Eval(payload map[string]any) float64 {
	return e.root.eval(payload)
}

// Refs returns the set of field keys the formula references.
func (e *Expr) Refs() []string {
	set := make(map[string]struct{})
	e.root.refs(set)

	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}

	return keys
}

// String returns the original source of the formula.
func (e *Expr) String() string {
	return e.src
}

type parser struct {
	src string
	pos int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for {
		p.skipSpace()

		if p.pos >= len(p.src) || (p.src[p.pos] != '+' && p.src[p.pos] != '-') {
			return left, nil
		}

		op := p.src[p.pos]
		p.pos++

		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}

		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		p.skipSpace()

		if p.pos >= len(p.src) || (p.src[p.pos] != '*' && p.src[p.pos] != '/') {
			return left, nil
		}

		op := p.src[p.pos]
		p.pos++

		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	p.skipSpace()

	if p.pos < len(p.src) && p.src[p.pos] == '-' {
		p.pos++

		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		return negateNode{inner: inner}, nil
	}

	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	p.skipSpace()

	if p.pos >= len(p.src) {
		return nil, fmt.Errorf("formula %q: unexpected end of input", p.src)
	}

	ch := p.src[p.pos]

	if ch == '(' {
		p.pos++

		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		p.skipSpace()

		if p.pos >= len(p.src) || p.src[p.pos] != ')' {
			return nil, fmt.Errorf("formula %q: missing closing parenthesis", p.src)
		}

		p.pos++

		return inner, nil
	}

	if ch >= '0' && ch <= '9' || ch == '.' {
		return p.parseNumber()
	}

	if isIdentStart(ch) {
		return p.parseIdent(), nil
	}

	return nil, fmt.Errorf("formula %q: unexpected character %q at position %d", p.src, ch, p.pos)
}

func (p *parser) parseNumber() (node, error) {
	start := p.pos
	for p.pos < len(p.src) && (p.src[p.pos] >= '0' && p.src[p.pos] <= '9' || p.src[p.pos] == '.') {
		p.pos++
	}

	value, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return nil, fmt.Errorf("formula %q: invalid number %q", p.src, p.src[start:p.pos])
	}

	return numberNode(value), nil
}

func (p *parser) parseIdent() node {
	start := p.pos
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}

	return refNode(p.src[start:p.pos])
}

func isIdentStart(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || ch >= '0' && ch <= '9'
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}

		return parsed, true
	default:
		return 0, false
	}
}
