// Package search finds tree nodes with CEL predicates.
//
// A predicate sees one node at a time through these variables:
//
//	name     string  the node's key, field name or "[i]"
//	kind     string  the classification (Object, String, ...)
//	display  string  the rendered value, strings quoted
//	text     string  the display with string quotes removed
//	type     string  the type label
//	depth    int     depth below the root
//	line     int     effective source line, 0 when unknown
//	children int     child count, estimated when not cheap
//
// Example: kind == "String" && text.contains("admin")
package search

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"
	celext "github.com/google/cel-go/ext"

	"github.com/oakwood-commons/kvtree/internal/adapter"
	"github.com/oakwood-commons/kvtree/internal/tree"
)

var (
	// ErrNotPredicate is returned when an expression does not produce a bool.
	ErrNotPredicate = errors.New("search expression must evaluate to a bool")
	// ErrNoMatch is returned when no node satisfies the predicate.
	ErrNoMatch = errors.New("no matching node")
)

// NewEnv creates the CEL environment predicates are compiled in. Additional
// options can extend it with custom functions.
func NewEnv(opts ...cel.EnvOption) (*cel.Env, error) {
	all := make([]cel.EnvOption, 0, 12+len(opts))
	all = append(all,
		cel.Variable("name", cel.StringType),
		cel.Variable("kind", cel.StringType),
		cel.Variable("display", cel.StringType),
		cel.Variable("text", cel.StringType),
		cel.Variable("type", cel.StringType),
		cel.Variable("depth", cel.IntType),
		cel.Variable("line", cel.IntType),
		cel.Variable("children", cel.IntType),
		celext.Strings(),
		celext.Encoders(),
		celext.Lists(),
		celext.Math(),
	)
	all = append(all, opts...)
	return cel.NewEnv(all...)
}

// Matcher is a compiled predicate.
type Matcher struct {
	expr string
	prg  cel.Program
}

// Compile builds a Matcher. Input that is not a CEL expression is treated as
// a case-insensitive substring searched in node names and displays.
func Compile(expr string, opts ...cel.EnvOption) (*Matcher, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty search expression")
	}
	if !IsCELExpression(expr) {
		expr = substringPredicate(expr)
	}
	env, err := NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compilation error: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: %q has type %s", ErrNotPredicate, expr, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Matcher{expr: expr, prg: prg}, nil
}

// String returns the compiled expression.
func (m *Matcher) String() string {
	return m.expr
}

// Match evaluates the predicate against n.
func (m *Matcher) Match(n *tree.Node) (bool, error) {
	out, _, err := m.prg.Eval(Activation(n))
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: got %T", ErrNotPredicate, out.Value())
	}
	return b, nil
}

// Activation returns the variables a predicate sees for n.
func Activation(n *tree.Node) map[string]any {
	return map[string]any{
		"name":     n.Name(),
		"kind":     n.Kind().String(),
		"display":  n.Display(),
		"text":     unquote(n),
		"type":     n.TypeName(),
		"depth":    int64(n.Depth()),
		"line":     int64(n.Line()),
		"children": int64(n.ChildCount()),
	}
}

func unquote(n *tree.Node) string {
	if n.Kind() != adapter.KindString {
		return n.Display()
	}
	d := strings.TrimSuffix(n.Display(), `..."`)
	if d != n.Display() {
		d += `"`
	}
	if s, err := strconv.Unquote(d); err == nil {
		return s
	}
	return strings.Trim(n.Display(), `"`)
}

var celOperator = regexp.MustCompile(`==|!=|<=|>=|<|>|&&|\|\||\b(?:has|size|matches|contains|startsWith|endsWith|exists|all)\s*\(`)

// IsCELExpression reports whether expr looks like a CEL predicate rather than
// plain search text.
func IsCELExpression(expr string) bool {
	return celOperator.MatchString(expr)
}

func substringPredicate(text string) string {
	q := strconv.Quote(strings.ToLower(text))
	return fmt.Sprintf("name.lowerAscii().contains(%s) || display.lowerAscii().contains(%s)", q, q)
}

// Next returns the first node after from, in full pre-order over the forest,
// that matches. The search wraps around to the start and may return from
// itself when it is the only match. A nil from searches from the beginning.
func Next(roots []*tree.Node, from *tree.Node, m *Matcher) (*tree.Node, error) {
	var (
		first, found *tree.Node
		passed       = from == nil
		evalErr      error
	)
	tree.Walk(roots, func(n *tree.Node) bool {
		if found != nil || evalErr != nil {
			return false
		}
		if n == from {
			passed = true
			if first != nil {
				return true
			}
		}
		ok, err := m.Match(n)
		if err != nil {
			evalErr = err
			return false
		}
		switch {
		case !ok:
		case passed && n != from:
			found = n
		case first == nil:
			first = n
		}
		return true
	})
	if evalErr != nil {
		return nil, evalErr
	}
	if found != nil {
		return found, nil
	}
	if first != nil {
		return first, nil
	}
	return nil, ErrNoMatch
}

// All returns every matching node in pre-order.
func All(roots []*tree.Node, m *Matcher) ([]*tree.Node, error) {
	var (
		out     []*tree.Node
		evalErr error
	)
	tree.Walk(roots, func(n *tree.Node) bool {
		if evalErr != nil {
			return false
		}
		ok, err := m.Match(n)
		if err != nil {
			evalErr = err
			return false
		}
		if ok {
			out = append(out, n)
		}
		return true
	})
	return out, evalErr
}
