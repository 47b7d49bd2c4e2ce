package report

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"
)

// FormulaNode is one node of a parsed derived-metric expression tree.
type FormulaNode struct {
	Op    string
	Left  *FormulaNode
	Right *FormulaNode
	Value string
}

func tokenizeFormula(expr string) ([]string, error) {
	tokens := []string{}
	i := 0
	for i < len(expr) {
		c := expr[i]
		if unicode.IsSpace(rune(c)) {
			i++
			continue
		}
		if c == '(' || c == ')' || c == '+' || c == '-' || c == '*' || c == '/' {
			tokens = append(tokens, string(c))
			i++
			continue
		}
		start := i
		for i < len(expr) && (unicode.IsLetter(rune(expr[i])) || unicode.IsDigit(rune(expr[i])) || expr[i] == '.' || expr[i] == '_') {
			i++
		}
		if start == i {
			return nil, errors.New("formula: invalid token at " + expr[i:])
		}
		tokens = append(tokens, expr[start:i])
	}
	return tokens, nil
}

func parseFormulaExpr(tokens []string) (*FormulaNode, []string, error) {
	node, tokens, err := parseTerm(tokens)
	if err != nil {
		return nil, tokens, err
	}
	for len(tokens) > 0 && (tokens[0] == "+" || tokens[0] == "-") {
		op := tokens[0]
		right, rest, err := parseTerm(tokens[1:])
		if err != nil {
			return nil, tokens, err
		}
		node = &FormulaNode{Op: op, Left: node, Right: right}
		tokens = rest
	}
	return node, tokens, nil
}

func parseTerm(tokens []string) (*FormulaNode, []string, error) {
	node, tokens, err := parseFactor(tokens)
	if err != nil {
		return nil, tokens, err
	}
	for len(tokens) > 0 && (tokens[0] == "*" || tokens[0] == "/") {
		op := tokens[0]
		right, rest, err := parseFactor(tokens[1:])
		if err != nil {
			return nil, tokens, err
		}
		node = &FormulaNode{Op: op, Left: node, Right: right}
		tokens = rest
	}
	return node, tokens, nil
}

func parseFactor(tokens []string) (*FormulaNode, []string, error) {
	if len(tokens) == 0 {
		return nil, tokens, errors.New("unexpected end of formula")
	}
	if tokens[0] == "(" {
		node, rest, err := parseFormulaExpr(tokens[1:])
		if err != nil {
			return nil, tokens, err
		}
		if len(rest) == 0 || rest[0] != ")" {
			return nil, tokens, errors.New("missing )")
		}
		return node, rest[1:], nil
	}
	return &FormulaNode{Value: tokens[0]}, tokens[1:], nil
}

// ParseFormula parses an expression like "amount_sum / id_count * 100" into
// a tree. Leaves are either numeric constants or aggregate keys.
func ParseFormula(formula string) (*FormulaNode, error) {
	tokens, err := tokenizeFormula(formula)
	if err != nil {
		return nil, err
	}
	node, rest, err := parseFormulaExpr(tokens)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, errors.New("trailing tokens in formula")
	}
	return node, nil
}

// CollectLeafFields returns the aggregate keys a formula depends on.
func CollectLeafFields(node *FormulaNode) []string {
	if node == nil {
		return nil
	}
	if node.Op == "" {
		if _, err := strconv.ParseFloat(node.Value, 64); err == nil {
			return nil
		}
		return []string{node.Value}
	}
	l := CollectLeafFields(node.Left)
	r := CollectLeafFields(node.Right)
	return append(l, r...)
}

// EvalFormula evaluates the tree against the computed aggregate map.
// Division by zero yields zero: derived ratios over an empty period are
// reported as 0, not as a fault.
func EvalFormula(node *FormulaNode, vars map[string]float64) (float64, error) {
	if node == nil {
		return 0, errors.New("nil formula node")
	}
	if node.Op == "" {
		if f, err := strconv.ParseFloat(node.Value, 64); err == nil {
			return f, nil
		}
		v, ok := vars[node.Value]
		if !ok {
			return 0, fmt.Errorf("formula field %q not computed", node.Value)
		}
		return v, nil
	}
	l, err := EvalFormula(node.Left, vars)
	if err != nil {
		return 0, err
	}
	r, err := EvalFormula(node.Right, vars)
	if err != nil {
		return 0, err
	}
	switch node.Op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return 0, nil
		}
		return l / r, nil
	}
	return 0, fmt.Errorf("unknown operator %q", node.Op)
}
