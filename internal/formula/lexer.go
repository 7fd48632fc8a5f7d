package formula

import (
	"strconv"
	"unicode"

	"github.com/rotisserie/eris"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

// tokenize splits a formula into tokens. Variables may be written bare
// (ARV) or braced ({ARV}); the multiplication and division signs × and ÷
// are accepted alongside * and /.
func tokenize(src string) ([]token, error) {
	var toks []token
	runes := []rune(src)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case r == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case r == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++
		case r == '+' || r == '-' || r == '*' || r == '/':
			toks = append(toks, token{kind: tokOp, text: string(r), pos: i})
			i++
		case r == '×':
			toks = append(toks, token{kind: tokOp, text: "*", pos: i})
			i++
		case r == '÷':
			toks = append(toks, token{kind: tokOp, text: "/", pos: i})
			i++
		case r == '{':
			start := i
			i++
			for i < len(runes) && runes[i] != '}' {
				i++
			}
			if i >= len(runes) {
				return nil, eris.Errorf("formula: unterminated variable at %d", start)
			}
			name := string(runes[start+1 : i])
			if name == "" {
				return nil, eris.Errorf("formula: empty variable at %d", start)
			}
			toks = append(toks, token{kind: tokIdent, text: name, pos: start})
			i++
		case unicode.IsDigit(r) || r == '.':
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			text := string(runes[start:i])
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, eris.Errorf("formula: bad number %q at %d", text, start)
			}
			toks = append(toks, token{kind: tokNumber, text: text, num: v, pos: start})
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: string(runes[start:i]), pos: start})
		default:
			return nil, eris.Errorf("formula: unexpected character %q at %d", r, i)
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(runes)})
	return toks, nil
}
