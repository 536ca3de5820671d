package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode"
)

// eolToken marks line boundaries in the token stream. Most consumers skip
// it; directive parsing uses it to find the end of a one-line expression.
const eolToken = "<EOL>"

func isBracket(char rune) bool {
	switch char {
	case '(', ')', '[', ']', '{', '}':
		return true
	default:
		return false
	}
}

func isEOL(char byte) bool { return char == '\n' }

// splitTokens is a bufio.SplitFunc producing the token stream the directive
// parser consumes. It skips whitespace, // line comments and /* */ block
// comments, and splits on brackets and the comparison/negation operators in
// addition to whitespace.
func splitTokens(data []byte, atEOF bool) (advance int, token []byte, err error) {
	i := 0
	for i < len(data) {
		char := data[i]
		switch {
		case isEOL(char):
			return i + 1, []byte(eolToken), nil

		case bytes.HasPrefix(data[i:], []byte("//")):
			end := bytes.IndexByte(data[i:], '\n')
			if end < 0 {
				if !atEOF {
					return i, nil, nil // comment may continue, need more data
				}
				i = len(data)
			} else {
				i += end // keep the newline so an EOL token is still emitted
			}

		case bytes.HasPrefix(data[i:], []byte("/*")):
			end := bytes.Index(data[i+2:], []byte("*/"))
			if end < 0 {
				if !atEOF {
					return i, nil, nil
				}
				i = len(data)
			} else {
				i += 2 + end + 2
			}

		case unicode.IsSpace(rune(char)):
			i++

		case isBracket(rune(char)):
			return i + 1, data[i : i+1], nil

		case char == '!' || char == '=' || char == '<' || char == '>':
			if i+1 >= len(data) && !atEOF {
				return i, nil, nil // could be a two-char operator
			}
			if i+1 < len(data) && data[i+1] == '=' {
				return i + 2, data[i : i+2], nil // "==", "!=", "<=", ">="
			}
			return i + 1, data[i : i+1], nil // "!", "<", ">"

		default:
			start := i
			for i < len(data) {
				char := rune(data[i])
				if isEOL(data[i]) ||
					char == '!' || char == '=' || char == '<' || char == '>' ||
					unicode.IsSpace(char) || isBracket(char) {
					return i, data[start:i], nil
				}
				i++
			}
			if !atEOF {
				return start, nil, nil // token may continue, need more data
			}
			return i, data[start:i], nil
		}
	}

	if atEOF {
		return len(data), nil, io.EOF
	}
	return i, nil, nil
}

// tokenReader wraps a bufio.Scanner with one-token look-ahead and automatic
// skipping of end-of-line markers unless a caller explicitly asks for them.
type tokenReader struct {
	scanner *bufio.Scanner
	buf     *string // one-token look-ahead; nil when empty

	// captureLine makes the next token span the raw remainder of the
	// current line, used for #error messages.
	captureLine bool
}

func newTokenReader(r io.Reader) *tokenReader {
	tr := &tokenReader{}
	tr.scanner = bufio.NewScanner(r)
	tr.scanner.Split(tr.split)
	return tr
}

func (tr *tokenReader) split(data []byte, atEOF bool) (int, []byte, error) {
	if !tr.captureLine {
		return splitTokens(data, atEOF)
	}

	end := bytes.IndexByte(data, '\n')
	if end < 0 {
		if !atEOF {
			return 0, nil, nil
		}
		end = len(data)
	}
	tr.captureLine = false
	tok := bytes.TrimSpace(data[:end])
	if tok == nil {
		tok = data[:0]
	}
	return end, tok, nil
}

// next returns the next token, skipping end-of-line markers.
func (tr *tokenReader) next() (string, bool) { return tr.nextInternal(false) }

// peek returns the next token without consuming it, skipping end-of-line markers.
func (tr *tokenReader) peek() (string, bool) { return tr.peekInternal(false) }

// fetch returns the next raw token, draining the look-ahead buffer first.
func (tr *tokenReader) fetch() (string, bool) {
	if tr.buf != nil {
		tok := *tr.buf
		tr.buf = nil
		return tok, true
	}
	if !tr.scanner.Scan() {
		return "", false
	}
	return tr.scanner.Text(), true
}

func (tr *tokenReader) nextInternal(keepEOL bool) (string, bool) {
	for {
		tok, ok := tr.fetch()
		if !ok {
			return "", false
		}
		if tok == eolToken && !keepEOL {
			continue
		}
		return tok, true
	}
}

func (tr *tokenReader) peekInternal(keepEOL bool) (string, bool) {
	if tr.buf != nil {
		if keepEOL || *tr.buf != eolToken {
			return *tr.buf, true
		}
		tr.buf = nil
	}
	tok, ok := tr.nextInternal(keepEOL)
	if !ok {
		return "", false
	}
	tr.buf = &tok
	return tok, true
}

// tokenStream is the already-collected token list of a single directive
// expression, consumed by the expression parser.
type tokenStream struct {
	tokens []string
	idx    int
}

func (ts *tokenStream) peek(s string) bool {
	return ts.idx < len(ts.tokens) && ts.tokens[ts.idx] == s
}

func (ts *tokenStream) consume(s string) error {
	if !ts.peek(s) {
		next := "<EOF>"
		if ts.idx < len(ts.tokens) {
			next = ts.tokens[ts.idx]
		}
		return fmt.Errorf("expected %v, got %v", s, next)
	}
	ts.idx++
	return nil
}

func (ts *tokenStream) next() (string, error) {
	if ts.idx >= len(ts.tokens) {
		return "", fmt.Errorf("unexpected end of expression")
	}
	val := ts.tokens[ts.idx]
	ts.idx++
	return val, nil
}
