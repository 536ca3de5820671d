// Package parser implements a lightweight scanner/parser that extracts
// high-level information from a C/C++ translation unit without a full
// preprocessor or compiler front-end. It recognises:
//
//   - #include lines, both angle-bracket and quoted form
//   - conditional compilation guards (#if[*], #ifdef, #ifndef and friends),
//     converted into an Expr AST declared in the same package
//   - #error directives together with the guard they appear under
//   - the presence of a main() function, which distinguishes executables
//     from libraries
//
// It is not a complete preprocessor: only the grammar needed for dependency
// extraction is understood, everything else is skipped.
package parser

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/ccdeps/ccdeps/pkg/platform"
)

// SourceInfo is the extracted summary of a single translation unit.
type SourceInfo struct {
	Includes []Include
	Errors   []ErrorDirective
	HasMain  bool
}

// Include is a single #include directive.
type Include struct {
	Path string
	// IsSystemInclude reports whether the '<path>' syntax was used.
	IsSystemInclude bool
	// Condition is the #if guard the include appears under; nil means
	// unconditional.
	Condition Expr
}

// ErrorDirective is a #error directive and the guard it fires under.
type ErrorDirective struct {
	Message   string
	Condition Expr // nil -> unconditional
}

// ParseSource runs the extractor on an in-memory buffer.
func ParseSource(input string) (SourceInfo, error) {
	return parse(strings.NewReader(input))
}

// ParseSourceFile opens filename and feeds its contents to the extractor.
func ParseSourceFile(filename string) (SourceInfo, error) {
	file, err := os.Open(filename)
	if err != nil {
		return SourceInfo{}, err
	}
	defer file.Close()

	return parse(file)
}

// ParseMacros converts a slice of -D style macro definitions into a
// platform.Macros map. Each value must be an integer literal understood by
// the conditional-expression evaluator; a bare macro defaults to 1.
func ParseMacros(defs []string) (platform.Macros, error) {
	out := platform.Macros{}
	for _, d := range defs {
		d = strings.TrimPrefix(d, "-D") // tolerate gcc/clang style
		name, raw := d, ""

		if eq := strings.IndexByte(d, '='); eq >= 0 {
			name, raw = d[:eq], d[eq+1:]
		}

		if !macroIdentifierRegex.MatchString(name) {
			return out, fmt.Errorf("invalid macro name %q", name)
		}

		if raw == "" { // FOO -> FOO=1
			out[name] = 1
			continue
		}

		if !integerLiteralRegex.MatchString(raw) {
			return nil, fmt.Errorf("macro %s=%v, only integer literal values are allowed", name, raw)
		}
		value, err := parseIntLiteral(raw)
		if err != nil {
			return out, fmt.Errorf("macro %s: %w", name, err)
		}
		out[name] = value
	}
	return out, nil
}

type parser struct {
	tr        *tokenReader
	lastToken string

	sourceInfo SourceInfo

	// active #if/#else nesting; the conjunction of these is the current guard
	conditionStack []Expr
	// stack of already-seen branch expressions for each #if group, used to
	// build !previous for #else / #elif
	exprGroupStack [][]Expr
}

func parse(input io.Reader) (SourceInfo, error) {
	p := &parser{tr: newTokenReader(input)}
	for {
		tok, ok := p.tr.next()
		if !ok {
			return p.sourceInfo, p.tr.scanner.Err()
		}
		prev := p.lastToken
		p.lastToken = tok

		if strings.HasPrefix(tok, "#") {
			if err := p.parseDirective(tok); err != nil {
				return p.sourceInfo, err
			}
			continue
		}
		if tok == "main" {
			if next, exists := p.tr.next(); exists && next == "(" {
				if prev == "int" {
					p.sourceInfo.HasMain = true
				}
			}
		}
	}
}

// currentGuard returns the AND-conjunction of every active #if expression.
func (p *parser) currentGuard() Expr {
	if len(p.conditionStack) == 0 {
		return nil
	}
	acc := p.conditionStack[0]
	for i := 1; i < len(p.conditionStack); i++ {
		acc = And{acc, p.conditionStack[i]}
	}
	return acc
}

func (p *parser) pushCondition(expr Expr) { p.conditionStack = append(p.conditionStack, expr) }

func (p *parser) popCondition() bool {
	if len(p.conditionStack) == 0 {
		return false
	}
	p.conditionStack = p.conditionStack[:len(p.conditionStack)-1]
	return true
}

func (p *parser) currentGroup() []Expr {
	if len(p.exprGroupStack) == 0 {
		return nil
	}
	return p.exprGroupStack[len(p.exprGroupStack)-1]
}

func (p *parser) pushNewGroup(expr Expr) { p.exprGroupStack = append(p.exprGroupStack, []Expr{expr}) }

func (p *parser) appendToCurrentGroup(expr Expr) {
	if len(p.exprGroupStack) == 0 {
		return // malformed input, no group open
	}
	last := &p.exprGroupStack[len(p.exprGroupStack)-1]
	*last = append(*last, expr)
}

func (p *parser) popGroup() bool {
	if len(p.exprGroupStack) == 0 {
		return false
	}
	p.exprGroupStack = p.exprGroupStack[:len(p.exprGroupStack)-1]
	return true
}

// parseIdent returns the next macro identifier, skipping line continuations.
func (p *parser) parseIdent() (Ident, error) {
	token, ok := p.tr.next()
	if !ok {
		return "", fmt.Errorf("expected identifier, found EOF")
	}
	if token == "\\" {
		return p.parseIdent()
	}
	return Ident(token), nil
}

func (p *parser) handleInclude() error {
	isBracket := false
	include, ok := p.tr.next()
	if !ok {
		return fmt.Errorf("unexpected EOF after #include")
	}

	// "<foo>" style: we saw the opening '<'
	if include == "<" {
		isBracket = true
		include, ok = p.tr.next()
		if !ok {
			return fmt.Errorf("unexpected EOF in bracketed include")
		}
	} else if !strings.Contains(include, "\"") {
		// Malformed input, e.g. `#include weird>`
		isBracket = true
	}

	p.sourceInfo.Includes = append(p.sourceInfo.Includes, Include{
		Path:            strings.Trim(include, "\""),
		IsSystemInclude: isBracket,
		Condition:       p.currentGuard(),
	})
	return nil
}

func (p *parser) handleIfdef(kind string) error {
	ident, err := p.parseIdent()
	if err != nil {
		return err
	}
	var expr Expr = Defined{Name: ident}
	if kind == "#ifndef" {
		expr = Not{expr}
	}
	p.pushCondition(expr)
	p.pushNewGroup(expr)
	return nil
}

func (p *parser) handleIf() error {
	expr, err := p.parseExpr()
	if err != nil {
		return err
	}
	p.pushCondition(expr)
	p.pushNewGroup(expr)
	return nil
}

func (p *parser) handleElse() {
	cur := p.currentGroup()
	if !p.popCondition() || cur == nil {
		return // malformed, silently ignore
	}
	neg := Not{orAll(cur)}
	p.pushCondition(neg)
	p.appendToCurrentGroup(neg)
}

func (p *parser) handleElif(kind string) error {
	cur := p.currentGroup()
	if !p.popCondition() || cur == nil {
		return nil // malformed, silently ignore
	}

	var expr Expr
	switch kind {
	case "#elif":
		var err error
		expr, err = p.parseExpr()
		if err != nil {
			return err
		}
	case "#elifdef", "#elifndef":
		ident, err := p.parseIdent()
		if err != nil {
			return err
		}
		expr = Defined{Name: ident}
		if kind == "#elifndef" {
			expr = Not{expr}
		}
	}

	notPrev := Not{orAll(cur)}
	p.pushCondition(And{expr, notPrev})
	p.appendToCurrentGroup(expr) // only the raw expr feeds future !prev
	return nil
}

// handleError records a #error directive with the active guard. The raw
// remainder of the line forms the message, preserved verbatim.
func (p *parser) handleError() {
	p.tr.captureLine = true
	message, ok := p.tr.nextInternal(true)
	if !ok || message == eolToken {
		message = ""
	}
	p.sourceInfo.Errors = append(p.sourceInfo.Errors, ErrorDirective{
		Message:   strings.Trim(message, "\""),
		Condition: p.currentGuard(),
	})
}

func (p *parser) parseDirective(tok string) error {
	switch tok {
	case "#include":
		return p.handleInclude()
	case "#ifdef", "#ifndef":
		return p.handleIfdef(tok)
	case "#if":
		return p.handleIf()
	case "#else":
		p.handleElse()
	case "#elif", "#elifdef", "#elifndef":
		return p.handleElif(tok)
	case "#error":
		p.handleError()
	case "#endif":
		p.popCondition()
		p.popGroup()
	}
	return nil
}

// parseExpr reads tokens until the end of the (possibly continued) directive
// line and parses them into an Expr.
func (p *parser) parseExpr() (Expr, error) {
	ts := tokenStream{}
	tr := p.tr
collect:
	for {
		token, ok := tr.nextInternal(true)
		if !ok {
			return nil, fmt.Errorf("expected more tokens: %v", tr.scanner.Err())
		}
		switch token {
		case "\\":
			// Multiline expression, continue on the next line.
			if next, ok := tr.peekInternal(true); ok && next == eolToken {
				_, _ = tr.nextInternal(true)
				continue
			}
		case eolToken:
			break collect
		default:
			ts.tokens = append(ts.tokens, token)
		}
	}
	ep := exprParser{ts: &ts}
	return ep.parseOr()
}

// exprParser parses the collected token list of an #if condition, handling
// the binary (&&, ||) and unary negation (!) operators.
type exprParser struct {
	ts *tokenStream
}

func (ep *exprParser) parseOr() (Expr, error) {
	ts := ep.ts
	left, err := ep.parseAnd()
	if err != nil {
		return nil, err
	}
	for ts.peek("||") {
		_ = ts.consume("||")
		right, err := ep.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Or{left, right}
	}
	return left, nil
}

func (ep *exprParser) parseAnd() (Expr, error) {
	ts := ep.ts
	left, err := ep.parseUnary()
	if err != nil {
		return nil, err
	}
	for ts.peek("&&") {
		_ = ts.consume("&&")
		right, err := ep.parseUnary()
		if err != nil {
			return nil, err
		}
		left = And{left, right}
	}
	return left, nil
}

func (ep *exprParser) parseUnary() (Expr, error) {
	ts := ep.ts
	switch {
	case ts.peek("!"):
		_ = ts.consume("!")
		expr, err := ep.parseUnary()
		if err != nil {
			return nil, err
		}
		return Not{expr}, nil

	case ts.peek("("):
		_ = ts.consume("(")
		expr, err := ep.parseOr()
		if err != nil {
			return nil, err
		}
		if err := ts.consume(")"); err != nil {
			return nil, err
		}
		return expr, nil

	case ts.peek("defined"):
		_ = ts.consume("defined")
		if ts.peek("(") {
			_ = ts.consume("(")
			name, err := ts.next()
			if err != nil {
				return nil, err
			}
			if err := ts.consume(")"); err != nil {
				return nil, err
			}
			return Defined{Name: Ident(name)}, nil
		}
		name, err := ts.next()
		if err != nil {
			return nil, err
		}
		return Defined{Name: Ident(name)}, nil
	}

	token, err := ts.next()
	if err != nil {
		return nil, err
	}
	if ts.idx < len(ts.tokens) && isCompareOperator(ts.tokens[ts.idx]) {
		op, _ := ts.next() // ==, !=, <, ...
		left, err := interpretValue(token)
		if err != nil {
			return nil, err
		}
		rightToken, err := ts.next()
		if err != nil {
			return nil, err
		}
		right, err := interpretValue(rightToken)
		if err != nil {
			return nil, err
		}
		return Compare{Left: left, Op: op, Right: right}, nil
	}
	// A bare `#if X` is equivalent to `#if X != 0`.
	return Compare{Left: Ident(token), Op: "!=", Right: Constant(0)}, nil
}

// interpretValue converts a token into either an Ident or a Constant.
func interpretValue(token string) (Value, error) {
	if macroIdentifierRegex.MatchString(token) {
		return Ident(token), nil
	}
	if value, err := parseIntLiteral(token); err == nil {
		return Constant(value), nil
	}
	return nil, fmt.Errorf("%q is neither a valid identifier nor an integer constant", token)
}

func isCompareOperator(tok string) bool {
	switch tok {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	default:
		return false
	}
}

func parseIntLiteral(tok string) (int, error) {
	// Handle decimal, octal and hex (base 0) and ignore U/L suffixes.
	tok = strings.TrimRightFunc(tok, func(r rune) bool {
		return r == 'u' || r == 'U' || r == 'l' || r == 'L'
	})
	v, err := strconv.ParseInt(tok, 0, 64)
	return int(v), err
}

// A valid macro identifier starts with '_' or a letter, followed by '_',
// letters or decimal digits.
var macroIdentifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
var integerLiteralRegex = regexp.MustCompile(`^(?:0[xX][0-9a-fA-F]+|0[0-7]*|[1-9][0-9]*)(?:[uU](?:ll?|LL?)?|ll?[uU]?|LL?[uU]?)?$`)

func orAll(xs []Expr) Expr {
	if len(xs) == 0 {
		return nil
	}
	acc := xs[0]
	for i := 1; i < len(xs); i++ {
		acc = Or{acc, xs[i]}
	}
	return acc
}
