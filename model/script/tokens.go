package script

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes
const (
	whitespaceCode = iota
	inputPrefixCode
	errorPrefixCode
	intLiteralCode
)

// Token definitions
var (
	whitespaceToken  = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	inputPrefixToken = parsly.NewToken(inputPrefixCode, "InputPrefix", newPrefixMatcher(inputPrefix))
	errorPrefixToken = parsly.NewToken(errorPrefixCode, "ErrorPrefix", newPrefixMatcher(ErrorPrefix))
	intLiteralToken  = parsly.NewToken(intLiteralCode, "IntLiteral", newIntLiteralMatcher())
)

func newPrefixMatcher(prefix string) parsly.Matcher {
	return &prefixMatcher{prefix: prefix}
}

func newIntLiteralMatcher() parsly.Matcher {
	return &intLiteralMatcher{}
}

// prefixMatcher matches an exact literal at the cursor position
type prefixMatcher struct {
	prefix string
}

func (m *prefixMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	if pos+len(m.prefix) > cursor.InputSize {
		return 0
	}
	for i := 0; i < len(m.prefix); i++ {
		if input[pos+i] != m.prefix[i] {
			return 0
		}
	}
	return len(m.prefix)
}

// intLiteralMatcher matches an optionally signed run of decimal digits
type intLiteralMatcher struct{}

func (m *intLiteralMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	if pos >= size {
		return 0
	}

	matched := 0
	if input[pos] == '-' || input[pos] == '+' {
		matched++
	}

	digits := 0
	for i := pos + matched; i < size; i++ {
		if !isDigit(input[i]) {
			break
		}
		digits++
	}
	if digits == 0 {
		return 0
	}

	return matched + digits
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
