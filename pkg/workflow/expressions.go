package workflow

import (
	"fmt"
	"strings"
)

// ConditionNode is a node of a GitHub Actions expression tree.
type ConditionNode interface {
	Render() string
}

// ExpressionNode is a raw expression with an optional description rendered
// as a comment in multiline disjunctions.
type ExpressionNode struct {
	Expression  string
	Description string
}

func (e *ExpressionNode) Render() string {
	return e.Expression
}

// AndNode is a logical AND. Both sides are parenthesized.
type AndNode struct {
	Left, Right ConditionNode
}

func (a *AndNode) Render() string {
	return fmt.Sprintf("(%s) && (%s)", a.Left.Render(), a.Right.Render())
}

// OrNode is a logical OR. Both sides are parenthesized.
type OrNode struct {
	Left, Right ConditionNode
}

func (o *OrNode) Render() string {
	return fmt.Sprintf("(%s) || (%s)", o.Left.Render(), o.Right.Render())
}

// NotNode negates its child.
type NotNode struct {
	Child ConditionNode
}

func (n *NotNode) Render() string {
	return fmt.Sprintf("!(%s)", n.Child.Render())
}

// DisjunctionNode joins terms with || without nesting.
type DisjunctionNode struct {
	Terms     []ConditionNode
	Multiline bool
}

func (d *DisjunctionNode) Render() string {
	if len(d.Terms) == 0 {
		return ""
	}
	if len(d.Terms) == 1 {
		return d.Terms[0].Render()
	}
	if !d.Multiline {
		parts := make([]string, len(d.Terms))
		for i, t := range d.Terms {
			parts[i] = t.Render()
		}
		return strings.Join(parts, " || ")
	}

	var lines []string
	for i, t := range d.Terms {
		if expr, ok := t.(*ExpressionNode); ok && expr.Description != "" {
			lines = append(lines, "# "+expr.Description)
		}
		line := t.Render()
		if i < len(d.Terms)-1 {
			line += " ||"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// ConjunctionNode joins terms with && without nesting.
type ConjunctionNode struct {
	Terms []ConditionNode
}

func (c *ConjunctionNode) Render() string {
	parts := make([]string, len(c.Terms))
	for i, t := range c.Terms {
		parts[i] = t.Render()
	}
	return strings.Join(parts, " && ")
}

// PropertyAccessNode reads a context property such as matrix.os.
type PropertyAccessNode struct {
	PropertyPath string
}

func (p *PropertyAccessNode) Render() string {
	return p.PropertyPath
}

// StringLiteralNode is a single-quoted string literal.
type StringLiteralNode struct {
	Value string
}

func (s *StringLiteralNode) Render() string {
	return "'" + strings.ReplaceAll(s.Value, "'", "''") + "'"
}

// BooleanLiteralNode is true or false.
type BooleanLiteralNode struct {
	Value bool
}

func (b *BooleanLiteralNode) Render() string {
	if b.Value {
		return "true"
	}
	return "false"
}

// ComparisonNode compares two operands.
type ComparisonNode struct {
	Left     ConditionNode
	Operator string
	Right    ConditionNode
}

func (c *ComparisonNode) Render() string {
	return fmt.Sprintf("%s %s %s", c.Left.Render(), c.Operator, c.Right.Render())
}

// FunctionCallNode calls an expression function.
type FunctionCallNode struct {
	FunctionName string
	Arguments    []ConditionNode
}

func (f *FunctionCallNode) Render() string {
	args := make([]string, len(f.Arguments))
	for i, a := range f.Arguments {
		args[i] = a.Render()
	}
	return fmt.Sprintf("%s(%s)", f.FunctionName, strings.Join(args, ", "))
}

// Interpolate wraps an expression for use inside a YAML value.
func Interpolate(node ConditionNode) string {
	return "${{ " + node.Render() + " }}"
}
