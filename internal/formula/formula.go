// Package formula evaluates the arithmetic templates stored in policy data,
// such as the buyer ceiling and carry months definitions. It never executes
// code: a template is tokenized and parsed by recursive descent into a small
// expression tree.
//
// Supported: numbers, variables ({ARV} or ARV), unary minus, + - * /,
// parentheses, and the functions Max and Min. Unknown variables evaluate
// to 0 and division by zero evaluates to 0.
package formula

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/underwrite-cli/internal/numeric"
)

// Vars maps variable names to values.
type Vars map[string]float64

// Expr is a parsed formula.
type Expr struct {
	src  string
	root node
}

// Parse compiles src into an Expr.
func Parse(src string) (*Expr, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	if p.peek().kind == tokEOF {
		return nil, eris.New("formula: empty expression")
	}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, eris.Errorf("formula: unexpected %q at %d", t.text, t.pos)
	}
	return &Expr{src: src, root: root}, nil
}

// Eval parses and evaluates src in one step.
func Eval(src string, vars Vars) (float64, error) {
	e, err := Parse(src)
	if err != nil {
		return 0, err
	}
	return e.Eval(vars), nil
}

// Eval evaluates the expression. The result is always finite.
func (e *Expr) Eval(vars Vars) float64 {
	return numeric.Safe(e.root.eval(vars))
}

// String returns the source text.
func (e *Expr) String() string { return e.src }

// Variables lists the distinct variable names referenced, sorted.
func (e *Expr) Variables() []string {
	seen := map[string]bool{}
	e.root.collect(seen)
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type node interface {
	eval(Vars) float64
	collect(map[string]bool)
}

type numNode float64

func (n numNode) eval(Vars) float64        { return float64(n) }
func (n numNode) collect(map[string]bool) {}

type varNode string

func (n varNode) eval(vars Vars) float64 {
	if v, ok := vars[string(n)]; ok {
		return numeric.Safe(v)
	}
	for k, v := range vars {
		if strings.EqualFold(k, string(n)) {
			return numeric.Safe(v)
		}
	}
	return 0
}

func (n varNode) collect(seen map[string]bool) { seen[string(n)] = true }

type negNode struct{ x node }

func (n negNode) eval(vars Vars) float64         { return -n.x.eval(vars) }
func (n negNode) collect(seen map[string]bool) { n.x.collect(seen) }

type binNode struct {
	op   byte
	l, r node
}

func (n binNode) eval(vars Vars) float64 {
	l, r := n.l.eval(vars), n.r.eval(vars)
	switch n.op {
	case '+':
		return l + r
	case '-':
		return l - r
	case '*':
		return l * r
	default:
		if r == 0 {
			return 0
		}
		return l / r
	}
}

func (n binNode) collect(seen map[string]bool) {
	n.l.collect(seen)
	n.r.collect(seen)
}

type callNode struct {
	fn   string
	args []node
}

func (n callNode) eval(vars Vars) float64 {
	out := n.args[0].eval(vars)
	for _, a := range n.args[1:] {
		v := a.eval(vars)
		if n.fn == "max" && v > out || n.fn == "min" && v < out {
			out = v
		}
	}
	return out
}

func (n callNode) collect(seen map[string]bool) {
	for _, a := range n.args {
		a.collect(seen)
	}
}

var functions = map[string]bool{"max": true, "min": true}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// expr := term (("+" | "-") term)*
func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "+" && t.text != "-") {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binNode{op: t.text[0], l: left, r: right}
	}
}

// term := unary (("*" | "/") unary)*
func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "*" && t.text != "/") {
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binNode{op: t.text[0], l: left, r: right}
	}
}

// unary := ("-" | "+") unary | primary
func (p *parser) parseUnary() (node, error) {
	t := p.peek()
	if t.kind == tokOp && (t.text == "-" || t.text == "+") {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if t.text == "-" {
			return negNode{x: x}, nil
		}
		return x, nil
	}
	return p.parsePrimary()
}

// primary := number | ident | ident "(" expr ("," expr)* ")" | "(" expr ")"
func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return numNode(t.num), nil
	case tokIdent:
		fn := strings.ToLower(t.text)
		if p.peek().kind == tokLParen && functions[fn] {
			return p.parseCall(fn)
		}
		return varNode(t.text), nil
	case tokLParen:
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if c := p.next(); c.kind != tokRParen {
			return nil, eris.Errorf("formula: expected ) at %d", c.pos)
		}
		return x, nil
	case tokEOF:
		return nil, eris.New("formula: unexpected end of expression")
	default:
		return nil, eris.Errorf("formula: unexpected %q at %d", t.text, t.pos)
	}
}

func (p *parser) parseCall(fn string) (node, error) {
	p.next() // (
	var args []node
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		t := p.next()
		if t.kind == tokRParen {
			return callNode{fn: fn, args: args}, nil
		}
		if t.kind != tokComma {
			return nil, eris.Errorf("formula: expected , or ) at %d", t.pos)
		}
	}
}
