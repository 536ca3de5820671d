package parser

import (
	"fmt"
	"log/slog"

	"github.com/ccdeps/ccdeps/pkg/platform"
)

type (
	// Expr is the AST of a preprocessor #if condition. Expressions can be
	// evaluated against a macro set or analyzed structurally.
	Expr interface {
		// Eval reports whether the expression holds for the given macro set.
		Eval(macros platform.Macros) bool
		String() string
	}
	// Defined is a defined(X) test.
	Defined struct{ Name Ident }
	// Not negates its operand.
	Not struct{ X Expr }
	// And is a && b.
	And struct{ L, R Expr }
	// Or is a || b.
	Or struct{ L, R Expr }
	// Compare is an integer comparison: A op B.
	Compare struct {
		Left  Value
		Op    string // "==", "!=", "<", "<=", ">", ">="
		Right Value
	}
)

type (
	// Value is an operand of a Compare expression.
	Value interface {
		// Resolve evaluates the value against a macro set. The bool flag
		// reports whether the value was actually defined; an undefined macro
		// resolves to 0.
		Resolve(macros platform.Macros) (int, bool)
		String() string
	}
	// Ident is a macro reference, e.g. _WIN32.
	Ident string
	// Constant is an integer literal, e.g. 42.
	Constant int
)

func (e Defined) String() string  { return fmt.Sprintf("defined(%s)", e.Name) }
func (e Compare) String() string  { return fmt.Sprintf("%s %s %s", e.Left, e.Op, e.Right) }
func (e Not) String() string      { return "!(" + e.X.String() + ")" }
func (e And) String() string      { return e.L.String() + " && " + e.R.String() }
func (e Or) String() string       { return e.L.String() + " || " + e.R.String() }
func (v Ident) String() string    { return string(v) }
func (v Constant) String() string { return fmt.Sprintf("%d", v) }

func (e Defined) Eval(macros platform.Macros) bool {
	_, defined := macros[string(e.Name)]
	return defined
}

func (e Compare) Eval(macros platform.Macros) bool {
	lv, _ := e.Left.Resolve(macros)
	rv, _ := e.Right.Resolve(macros)
	switch e.Op {
	case "==":
		return lv == rv
	case "!=":
		return lv != rv
	case "<":
		return lv < rv
	case "<=":
		return lv <= rv
	case ">":
		return lv > rv
	case ">=":
		return lv >= rv
	default:
		slog.Error("unknown compare operator", "expr", e.String())
		return false
	}
}

func (e Not) Eval(macros platform.Macros) bool { return !e.X.Eval(macros) }
func (e And) Eval(macros platform.Macros) bool { return e.L.Eval(macros) && e.R.Eval(macros) }
func (e Or) Eval(macros platform.Macros) bool  { return e.L.Eval(macros) || e.R.Eval(macros) }

func (v Ident) Resolve(macros platform.Macros) (int, bool) {
	value, defined := macros[string(v)]
	return value, defined
}

func (v Constant) Resolve(platform.Macros) (int, bool) {
	return int(v), true
}

// Negate flips the comparison to its opposite operator, e.g. == becomes !=.
func (e Compare) Negate() Compare {
	var op string
	switch e.Op {
	case "==":
		op = "!="
	case "!=":
		op = "=="
	case "<":
		op = ">="
	case "<=":
		op = ">"
	case ">":
		op = "<="
	case ">=":
		op = "<"
	default:
		panic(fmt.Sprintf("unknown compare operator in %v", e))
	}
	return Compare{Left: e.Left, Op: op, Right: e.Right}
}
