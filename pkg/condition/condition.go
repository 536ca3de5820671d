// Package condition maps preprocessor guard expressions to the set of
// platforms on which they hold.
package condition

import (
	"maps"
	"slices"

	"github.com/ccdeps/ccdeps/internal/collections"
	"github.com/ccdeps/ccdeps/pkg/parser"
	"github.com/ccdeps/ccdeps/pkg/platform"
)

// PlatformsForExpr returns the platforms for which the guard expression e
// evaluates to true.
//
// platformMacros maps every enabled platform to the macros assumed defined
// when compiling for it.
//
// Semantics of the return value:
//   - nil expression -> nil, signalling a generic include used everywhere
//   - no enabled platform matches -> empty non-nil slice; callers typically
//     attach the include to a default/fallback bucket
//   - otherwise the matching platforms, sorted with platform.Compare
func PlatformsForExpr(e parser.Expr, platformMacros map[platform.Platform]platform.Macros) []platform.Platform {
	if e == nil {
		return nil
	}
	// Convert the expression tree to disjunctive normal form exactly once;
	// from here on we work with conjunctions of macroTest literals.
	normalized := toDNF(e)
	enabled := slices.Collect(maps.Keys(platformMacros))

	matched := collections.Set[platform.Platform]{}

	// Evaluate each conjunction separately and union the results.
	for _, conjunct := range normalized {
		// Start with the full universe for this term.
		termSet := collections.ToSet(enabled)
		for _, lit := range conjunct {
			if lit.Comparison != nil {
				// Slow path: generic comparisons (e.g. "__GNUC__ >= 9") cannot
				// be answered by set operations, evaluate them per platform.
				filtered := collections.Set[platform.Platform]{}
				for p := range termSet {
					if lit.Comparison.Eval(platformMacros[p]) == !lit.Negated {
						filtered.Add(p)
					}
				}
				termSet = filtered
				continue
			}

			// Fast path: macro presence/absence is a set intersection or
			// difference.
			macroSet := platformsForMacro(lit.Macro, platformMacros)
			if lit.Negated {
				termSet = termSet.Diff(macroSet)
			} else {
				termSet = termSet.Intersect(macroSet)
			}

			// An empty set can never be revived by further literals in the
			// same conjunction.
			if len(termSet) == 0 {
				break
			}
		}
		matched.Join(termSet)
	}

	result := matched.Values()
	if result == nil {
		// Distinguish "no match" from the nil generic marker.
		result = []platform.Platform{}
	}
	slices.SortFunc(result, platform.Compare)
	return result
}

func platformsForMacro(macro string, platformMacros map[platform.Platform]platform.Macros) collections.Set[platform.Platform] {
	platforms := collections.Set[platform.Platform]{}
	for p, macros := range platformMacros {
		if _, defined := macros[macro]; defined {
			platforms.Add(p)
		}
	}
	return platforms
}

type (
	// macroTest is a single literal in DNF:
	//
	//	MACRO         -> Macro="MACRO", Negated=false, Comparison=nil
	//	!MACRO        -> Macro="MACRO", Negated=true,  Comparison=nil
	//	__GNUC__ >= 9 -> Macro="",      Negated=false, Comparison=&expr
	//
	// The literal carries an extracted macro name when possible so that
	// simple presence tests can be answered with set operations; generic
	// comparisons fall back to per-platform evaluation.
	macroTest struct {
		Macro      string
		Negated    bool
		Comparison *parser.Compare // nil for presence/absence literals
	}
	// conjunction is a logical AND of literals.
	conjunction []macroTest
	// dnf is a logical OR of conjunctions.
	dnf []conjunction
)

// toDNF converts the expression tree into DNF with negation occurring only
// on literals, so later code never needs to re-walk the AST.
func toDNF(e parser.Expr) dnf {
	return distribute(toNNF(e))
}

// toNNF pushes NOT operators inward until they wrap only atomic literals:
//
//	!!A       -> A
//	!(A && B) -> !A || !B
//	!(A || B) -> !A && !B
func toNNF(e parser.Expr) parser.Expr {
	switch n := e.(type) {
	case parser.Not:
		switch v := n.X.(type) {
		case parser.Not:
			return toNNF(v.X)
		case parser.And:
			return parser.Or{L: toNNF(parser.Not{X: v.L}), R: toNNF(parser.Not{X: v.R})}
		case parser.Or:
			return parser.And{L: toNNF(parser.Not{X: v.L}), R: toNNF(parser.Not{X: v.R})}
		default: // Defined or comparison literal
			return parser.Not{X: toNNF(n.X)}
		}
	case parser.And:
		return parser.And{L: toNNF(n.L), R: toNNF(n.R)}
	case parser.Or:
		return parser.Or{L: toNNF(n.L), R: toNNF(n.R)}
	default:
		return e
	}
}

// distribute converts an expression already in NNF to full DNF by applying
// the distributive law:
//
//	(l1 || l2) && (r1 || r2) -> l1&&r1 || l1&&r2 || l2&&r1 || l2&&r2
func distribute(e parser.Expr) dnf {
	switch n := e.(type) {
	case parser.And:
		left := distribute(n.L)
		right := distribute(n.R)
		var out dnf
		for _, lt := range left {
			for _, rt := range right {
				combined := make(conjunction, 0, len(lt)+len(rt))
				combined = append(combined, lt...)
				combined = append(combined, rt...)
				out = append(out, combined)
			}
		}
		return out

	case parser.Or:
		d := distribute(n.L)
		return append(d, distribute(n.R)...)

	case parser.Not:
		// Guaranteed literal after NNF.
		switch x := n.X.(type) {
		case parser.Compare:
			negated := x.Negate()
			return dnf{{{Comparison: &negated}}}
		default:
			name, _ := extractMacro(n.X)
			return dnf{{{Macro: name, Negated: true}}}
		}

	case parser.Compare:
		// Generic comparison, evaluated per platform later.
		return dnf{{{Comparison: &n}}}

	default:
		name, _ := extractMacro(n)
		return dnf{{{Macro: name, Negated: false}}}
	}
}

// extractMacro extracts the macro name referenced by the literal e. It
// understands simple defined-tests (defined(FOO) -> "FOO") and comparisons
// involving a single macro on exactly one side (__GNUC__ >= 9 -> "__GNUC__").
// A literal involving two different macros yields ("", false).
func extractMacro(e parser.Expr) (string, bool) {
	switch v := e.(type) {
	case parser.Defined:
		return string(v.Name), true
	case parser.Compare:
		lName, lIsMacro := valueMacro(v.Left)
		rName, rIsMacro := valueMacro(v.Right)
		switch {
		case lIsMacro && !rIsMacro:
			return lName, true
		case !lIsMacro && rIsMacro:
			return rName, true
		case lIsMacro && rIsMacro && lName == rName:
			return lName, true
		default:
			return "", false
		}
	default:
		return "", false
	}
}

// valueMacro returns the macro name when the value is an identifier.
func valueMacro(v parser.Value) (string, bool) {
	if ident, ok := v.(parser.Ident); ok {
		return string(ident), true
	}
	return "", false
}
