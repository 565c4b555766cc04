package expr

import (
	"fmt"
	"math"
)

// Program is a bound expression evaluated against a dense environment
// vector. The binding fixes which env slot each identifier reads, so
// evaluation performs no name lookups.
type Program func(env []float64) float64

// builtins maps function names to their arity.
var builtins = map[string]int{
	"abs":   1,
	"exp":   1,
	"log":   1,
	"log10": 1,
	"sqrt":  1,
	"sin":   1,
	"cos":   1,
	"tan":   1,
	"floor": 1,
	"ceil":  1,
	"pow":   2,
	"min":   2,
	"max":   2,
}

// Bind resolves every identifier against the given environment layout
// and returns an evaluable Program. An identifier absent from the index
// is reported as an error; this is the single cause of propensity
// failures, caught before simulation begins.
func (e *Expr) Bind(index map[string]int) (Program, error) {
	return bindNode(e.root, index)
}

func bindNode(n Node, index map[string]int) (Program, error) {
	switch t := n.(type) {
	case *Num:
		v := t.Value
		return func([]float64) float64 { return v }, nil

	case *Ident:
		slot, ok := index[t.Name]
		if !ok {
			return nil, fmt.Errorf("expr: unknown identifier %q", t.Name)
		}
		return func(env []float64) float64 { return env[slot] }, nil

	case *Unary:
		x, err := bindNode(t.X, index)
		if err != nil {
			return nil, err
		}
		if t.Op != "-" {
			return nil, fmt.Errorf("expr: unknown unary operator %q", t.Op)
		}
		return func(env []float64) float64 { return -x(env) }, nil

	case *Binary:
		l, err := bindNode(t.Left, index)
		if err != nil {
			return nil, err
		}
		r, err := bindNode(t.Right, index)
		if err != nil {
			return nil, err
		}
		return bindBinary(t.Op, l, r)

	case *Call:
		return bindCall(t, index)
	}
	return nil, fmt.Errorf("expr: unknown node type %T", n)
}

func bindBinary(op string, l, r Program) (Program, error) {
	switch op {
	case "+":
		return func(env []float64) float64 { return l(env) + r(env) }, nil
	case "-":
		return func(env []float64) float64 { return l(env) - r(env) }, nil
	case "*":
		return func(env []float64) float64 { return l(env) * r(env) }, nil
	case "/":
		return func(env []float64) float64 { return l(env) / r(env) }, nil
	case "^":
		return func(env []float64) float64 { return math.Pow(l(env), r(env)) }, nil
	case "<":
		return cmp(l, r, func(a, b float64) bool { return a < b }), nil
	case ">":
		return cmp(l, r, func(a, b float64) bool { return a > b }), nil
	case "<=":
		return cmp(l, r, func(a, b float64) bool { return a <= b }), nil
	case ">=":
		return cmp(l, r, func(a, b float64) bool { return a >= b }), nil
	case "==":
		return cmp(l, r, func(a, b float64) bool { return a == b }), nil
	case "!=":
		return cmp(l, r, func(a, b float64) bool { return a != b }), nil
	}
	return nil, fmt.Errorf("expr: unknown binary operator %q", op)
}

// cmp builds a comparison program evaluating to 1 or 0.
func cmp(l, r Program, test func(a, b float64) bool) Program {
	return func(env []float64) float64 {
		if test(l(env), r(env)) {
			return 1
		}
		return 0
	}
}

func bindCall(c *Call, index map[string]int) (Program, error) {
	arity, ok := builtins[c.Func]
	if !ok {
		return nil, fmt.Errorf("expr: unknown function %q", c.Func)
	}
	if len(c.Args) != arity {
		return nil, fmt.Errorf("expr: %s() requires %d argument(s), got %d", c.Func, arity, len(c.Args))
	}
	args := make([]Program, len(c.Args))
	for i, a := range c.Args {
		p, err := bindNode(a, index)
		if err != nil {
			return nil, err
		}
		args[i] = p
	}

	switch c.Func {
	case "abs":
		return unaryFn(args[0], math.Abs), nil
	case "exp":
		return unaryFn(args[0], math.Exp), nil
	case "log":
		return unaryFn(args[0], math.Log), nil
	case "log10":
		return unaryFn(args[0], math.Log10), nil
	case "sqrt":
		return unaryFn(args[0], math.Sqrt), nil
	case "sin":
		return unaryFn(args[0], math.Sin), nil
	case "cos":
		return unaryFn(args[0], math.Cos), nil
	case "tan":
		return unaryFn(args[0], math.Tan), nil
	case "floor":
		return unaryFn(args[0], math.Floor), nil
	case "ceil":
		return unaryFn(args[0], math.Ceil), nil
	case "pow":
		return binaryFn(args[0], args[1], math.Pow), nil
	case "min":
		return binaryFn(args[0], args[1], math.Min), nil
	case "max":
		return binaryFn(args[0], args[1], math.Max), nil
	}
	return nil, fmt.Errorf("expr: unknown function %q", c.Func)
}

func unaryFn(x Program, f func(float64) float64) Program {
	return func(env []float64) float64 { return f(x(env)) }
}

func binaryFn(x, y Program, f func(float64, float64) float64) Program {
	return func(env []float64) float64 { return f(x(env), y(env)) }
}
