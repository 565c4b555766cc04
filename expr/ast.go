// Package expr compiles propensity and rate-rule expressions into
// evaluable programs. Expressions are parsed once at model-load time
// into a typed AST; identifier resolution happens at bind time so that
// an undefined name is caught before any simulation step runs.
package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Node is a parsed expression tree node.
type Node interface {
	String() string
}

// Num is a numeric literal.
type Num struct {
	Value float64
}

func (n *Num) String() string {
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

// Ident is a named reference to a species, parameter, volume or time.
type Ident struct {
	Name string
}

func (n *Ident) String() string { return n.Name }

// Unary is a prefix operator application.
type Unary struct {
	Op string
	X  Node
}

func (n *Unary) String() string {
	return fmt.Sprintf("(%s%s)", n.Op, n.X)
}

// Binary is an infix operator application.
type Binary struct {
	Op    string
	Left  Node
	Right Node
}

func (n *Binary) String() string {
	return fmt.Sprintf("(%s%s%s)", n.Left, n.Op, n.Right)
}

// Call is a builtin function application.
type Call struct {
	Func string
	Args []Node
}

func (n *Call) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", n.Func, strings.Join(args, ","))
}

// Expr is a compiled expression ready for binding.
type Expr struct {
	src  string
	root Node
}

// Compile parses an expression into its AST form.
func Compile(src string) (*Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("expr: empty expression")
	}
	p := newParser(src)
	root, err := p.parse()
	if err != nil {
		return nil, fmt.Errorf("expr: parse %q: %w", src, err)
	}
	return &Expr{src: src, root: root}, nil
}

// String returns the original expression source.
func (e *Expr) String() string { return e.src }

// AST returns the parsed expression tree.
func (e *Expr) AST() Node { return e.root }

// Names returns every identifier referenced by the expression, in
// first-appearance order.
func (e *Expr) Names() []string {
	seen := make(map[string]bool)
	var names []string
	var walk func(Node)
	walk = func(n Node) {
		switch t := n.(type) {
		case *Ident:
			if !seen[t.Name] {
				seen[t.Name] = true
				names = append(names, t.Name)
			}
		case *Unary:
			walk(t.X)
		case *Binary:
			walk(t.Left)
			walk(t.Right)
		case *Call:
			for _, a := range t.Args {
				walk(a)
			}
		}
	}
	walk(e.root)
	return names
}
