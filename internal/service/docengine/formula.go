package docengine

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormulaErrValue is what a broken formula displays as. A malformed
// expression degrades the shown value; it must never break rendering.
const FormulaErrValue = "Err"

// ValueResolver maps a variable name in a formula to its current numeric
// value. Unresolvable or non-numeric values resolve to 0, never to an error.
type ValueResolver func(name string) float64

// MapResolver builds a resolver over a plain string-value map, coercing
// non-numeric values to 0.
func MapResolver(values map[string]string) ValueResolver {
	return func(name string) float64 {
		v, err := strconv.ParseFloat(strings.TrimSpace(values[name]), 64)
		if err != nil {
			return 0
		}
		return v
	}
}

type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenVariable
	tokenOperator
	tokenLeftParen
	tokenRightParen
)

type token struct {
	kind tokenKind
	num  float64
	name string
	op   byte
}

// EvaluateFormula evaluates an arithmetic expression over numbers,
// variables (bare identifiers or {{name}}), the four binary operators and
// parentheses. Variables resolve through the given resolver. Division by
// zero yields 0 rather than an error, and the result is rounded to four
// decimal places. Malformed expressions return an error; callers on the
// render path display FormulaErrValue instead of propagating it.
func EvaluateFormula(expr string, resolve ValueResolver) (float64, error) {
	tokens, err := tokenizeFormula(expr)
	if err != nil {
		return 0, err
	}
	if len(tokens) == 0 {
		return 0, fmt.Errorf("empty formula")
	}
	rpn, err := toRPN(tokens)
	if err != nil {
		return 0, err
	}
	result, err := evalRPN(rpn, resolve)
	if err != nil {
		return 0, err
	}
	return math.Round(result*10000) / 10000, nil
}

// FormulaDisplay evaluates a formula for display, converting any parse or
// evaluation failure into the Err sentinel.
func FormulaDisplay(expr string, resolve ValueResolver) string {
	v, err := EvaluateFormula(expr, resolve)
	if err != nil {
		return FormulaErrValue
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func tokenizeFormula(expr string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c >= '0' && c <= '9' || c == '.':
			j := i
			for j < len(expr) && (expr[j] >= '0' && expr[j] <= '9' || expr[j] == '.') {
				j++
			}
			n, err := strconv.ParseFloat(expr[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("bad number %q", expr[i:j])
			}
			tokens = append(tokens, token{kind: tokenNumber, num: n})
			i = j
		case strings.HasPrefix(expr[i:], "{{"):
			end := strings.Index(expr[i:], "}}")
			if end < 0 {
				return nil, fmt.Errorf("unterminated variable reference")
			}
			name := strings.TrimSpace(expr[i+2 : i+end])
			if name == "" {
				return nil, fmt.Errorf("empty variable reference")
			}
			tokens = append(tokens, token{kind: tokenVariable, name: name})
			i += end + 2
		case isIdentStart(c):
			j := i
			for j < len(expr) && isIdentPart(expr[j]) {
				j++
			}
			tokens = append(tokens, token{kind: tokenVariable, name: expr[i:j]})
			i = j
		case c == '+' || c == '-' || c == '*' || c == '/':
			tokens = append(tokens, token{kind: tokenOperator, op: c})
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokenLeftParen})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokenRightParen})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q", c)
		}
	}
	return tokens, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

func precedence(op byte) int {
	if op == '*' || op == '/' {
		return 2
	}
	return 1
}

// toRPN converts the token stream to reverse Polish notation using the
// shunting-yard algorithm. All four operators are left-associative.
func toRPN(tokens []token) ([]token, error) {
	var output []token
	var stack []token
	for _, t := range tokens {
		switch t.kind {
		case tokenNumber, tokenVariable:
			output = append(output, t)
		case tokenOperator:
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				if top.kind != tokenOperator || precedence(top.op) < precedence(t.op) {
					break
				}
				output = append(output, top)
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, t)
		case tokenLeftParen:
			stack = append(stack, t)
		case tokenRightParen:
			matched := false
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if top.kind == tokenLeftParen {
					matched = true
					break
				}
				output = append(output, top)
			}
			if !matched {
				return nil, fmt.Errorf("mismatched parenthesis")
			}
		}
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.kind == tokenLeftParen {
			return nil, fmt.Errorf("mismatched parenthesis")
		}
		output = append(output, top)
	}
	return output, nil
}

func evalRPN(rpn []token, resolve ValueResolver) (float64, error) {
	var stack []float64
	for _, t := range rpn {
		switch t.kind {
		case tokenNumber:
			stack = append(stack, t.num)
		case tokenVariable:
			if resolve == nil {
				stack = append(stack, 0)
			} else {
				stack = append(stack, resolve(t.name))
			}
		case tokenOperator:
			if len(stack) < 2 {
				return 0, fmt.Errorf("missing operand for %q", string(t.op))
			}
			b := stack[len(stack)-1]
			a := stack[len(stack)-2]
			stack = stack[:len(stack)-2]
			var v float64
			switch t.op {
			case '+':
				v = a + b
			case '-':
				v = a - b
			case '*':
				v = a * b
			case '/':
				if b == 0 {
					v = 0
				} else {
					v = a / b
				}
			}
			stack = append(stack, v)
		}
	}
	if len(stack) != 1 {
		return 0, fmt.Errorf("malformed expression")
	}
	return stack[0], nil
}
