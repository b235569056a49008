// Package highlight provides a display-only lexical scanner for SQL text.
// It never validates statements; unknown words simply come back as idents.
package highlight

import (
	"strings"
	"unicode"

	"github.com/tabq-dev/tabq/core"
)

// TokenClass labels a span of query text for rendering purposes.
type TokenClass int

const (
	ClassIdent TokenClass = iota
	ClassKeyword
	ClassFunction
	ClassType
	ClassString
	ClassNumber
	ClassComment
	ClassOperator
)

func (c TokenClass) String() string {
	switch c {
	case ClassKeyword:
		return "keyword"
	case ClassFunction:
		return "function"
	case ClassType:
		return "type"
	case ClassString:
		return "string"
	case ClassNumber:
		return "number"
	case ClassComment:
		return "comment"
	case ClassOperator:
		return "operator"
	default:
		return "ident"
	}
}

// Token is a classified half-open byte span [Start, End) of the scanned text.
type Token struct {
	Start int
	End   int
	Class TokenClass
}

// Scan tokenizes text for the given backend kind. Whitespace is skipped;
// every other byte belongs to exactly one token. Malformed input (an
// unterminated string or comment) yields a token extending to end of text.
func Scan(text string, kind core.Kind) []Token {
	var tokens []Token
	runes := []rune(text)

	// byte offset of each rune, plus the final length for span ends
	offsets := make([]int, len(runes)+1)
	for i, r := range runes {
		offsets[i+1] = offsets[i] + len(string(r))
	}

	i := 0
	for i < len(runes) {
		r := runes[i]

		switch {
		case unicode.IsSpace(r):
			i++

		case r == '-' && peek(runes, i+1) == '-':
			start := i
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			tokens = append(tokens, Token{offsets[start], offsets[i], ClassComment})

		case r == '/' && peek(runes, i+1) == '*':
			start := i
			i += 2
			for i < len(runes) && !(runes[i] == '*' && peek(runes, i+1) == '/') {
				i++
			}
			if i < len(runes) {
				i += 2
			}
			tokens = append(tokens, Token{offsets[start], offsets[i], ClassComment})

		case r == '\'':
			start := i
			i++
			for i < len(runes) {
				if runes[i] == '\'' {
					// '' escapes a quote inside the literal
					if peek(runes, i+1) == '\'' {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
			tokens = append(tokens, Token{offsets[start], offsets[i], ClassString})

		case r == '"':
			start := i
			i++
			for i < len(runes) && runes[i] != '"' {
				i++
			}
			if i < len(runes) {
				i++
			}
			tokens = append(tokens, Token{offsets[start], offsets[i], ClassIdent})

		case unicode.IsDigit(r) || (r == '.' && unicode.IsDigit(peek(runes, i+1))):
			start := i
			i = scanNumber(runes, i)
			tokens = append(tokens, Token{offsets[start], offsets[i], ClassNumber})

		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && isWordRune(runes[i]) {
				i++
			}
			word := strings.ToUpper(string(runes[start:i]))
			tokens = append(tokens, Token{offsets[start], offsets[i], classify(word, kind)})

		default:
			start := i
			i = scanOperator(runes, i)
			tokens = append(tokens, Token{offsets[start], offsets[i], ClassOperator})
		}
	}

	return tokens
}

func peek(runes []rune, i int) rune {
	if i < 0 || i >= len(runes) {
		return 0
	}
	return runes[i]
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func scanNumber(runes []rune, i int) int {
	for i < len(runes) && unicode.IsDigit(runes[i]) {
		i++
	}
	if peek(runes, i) == '.' {
		i++
		for i < len(runes) && unicode.IsDigit(runes[i]) {
			i++
		}
	}
	if r := peek(runes, i); r == 'e' || r == 'E' {
		j := i + 1
		if r := peek(runes, j); r == '+' || r == '-' {
			j++
		}
		if unicode.IsDigit(peek(runes, j)) {
			i = j
			for i < len(runes) && unicode.IsDigit(runes[i]) {
				i++
			}
		}
	}
	return i
}

// multi-rune operators are matched longest-first so "<=" is one token
var compoundOperators = []string{"<=", ">=", "<>", "!=", "||", "::", "<<", ">>"}

func scanOperator(runes []rune, i int) int {
	if i+1 < len(runes) {
		pair := string(runes[i : i+2])
		for _, op := range compoundOperators {
			if pair == op {
				return i + 2
			}
		}
	}
	return i + 1
}
