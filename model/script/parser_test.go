package script

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLine(t *testing.T) {
	const path = "fixtures/add.run"
	line := func(text string) Line { return NewLine(text, path, 1) }

	testCases := []struct {
		description string
		input       string
		expected    Directive
		expectedErr string
	}{
		{
			description: "send input",
			input:       "> 7\n",
			expected:    &SendInput{Payload: NewLine("7\n", path, 1), source: line("> 7\n")},
		},
		{
			description: "send input with trailing comment",
			input:       "> 12 # feed the READ\n",
			expected:    &SendInput{Payload: NewLine("12\n", path, 1), source: line("> 12 # feed the READ\n")},
		},
		{
			description: "expect error",
			input:       "error: div by zero\n",
			expected:    &ExpectError{source: line("error: div by zero\n")},
		},
		{
			description: "expect output",
			input:       "7\n",
			expected:    &ExpectOutput{Value: 7, source: line("7\n")},
		},
		{
			description: "expect negative output",
			input:       "-12\n",
			expected:    &ExpectOutput{Value: -12, source: line("-12\n")},
		},
		{
			description: "expect output with trailing comment",
			input:       "7 # the sum\n",
			expected:    &ExpectOutput{Value: 7, source: line("7 # the sum\n")},
		},
		{
			description: "expect output with leading whitespace",
			input:       "  7\n",
			expected:    &ExpectOutput{Value: 7, source: line("  7\n")},
		},
		{
			description: "expect output without final newline",
			input:       "7",
			expected:    &ExpectOutput{Value: 7, source: line("7")},
		},
		{
			description: "int32 max",
			input:       "2147483647\n",
			expected:    &ExpectOutput{Value: 2147483647, source: line("2147483647\n")},
		},
		{
			description: "int32 min",
			input:       "-2147483648\n",
			expected:    &ExpectOutput{Value: -2147483648, source: line("-2147483648\n")},
		},
		{
			description: "blank line",
			input:       "\n",
			expected:    &Blank{source: line("\n")},
		},
		{
			description: "whitespace only line",
			input:       "   \n",
			expected:    &Blank{source: line("   \n")},
		},
		{
			description: "comment line",
			input:       "# just a comment\n",
			expected:    &Blank{source: line("# just a comment\n")},
		},
		{
			description: "indented comment line",
			input:       "  # indented comment\n",
			expected:    &Blank{source: line("  # indented comment\n")},
		},
		{
			description: "int32 overflow",
			input:       "2147483648\n",
			expectedErr: path + ":1: number must be an int32",
		},
		{
			description: "int32 underflow",
			input:       "-2147483649\n",
			expectedErr: path + ":1: number must be an int32",
		},
		{
			description: "non numeric line",
			input:       "seven\n",
			expectedErr: path + ":1: line must contain a number",
		},
		{
			description: "two numbers on one line",
			input:       "5 6\n",
			expectedErr: path + ":1: line must contain a number",
		},
		{
			description: "input prefix must start the line",
			input:       " > 5\n",
			expectedErr: path + ":1: line must contain a number",
		},
		{
			description: "error prefix requires the space",
			input:       "error:x\n",
			expectedErr: path + ":1: line must contain a number",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			directive, err := parseLine(line(tc.input))

			if tc.expectedErr != "" {
				assert.EqualError(t, err, tc.expectedErr)
				return
			}
			assert.NoError(t, err)
			assert.EqualValues(t, tc.expected, directive)
		})
	}
}

func TestParse_collectsAllErrors(t *testing.T) {
	content := "5\nfoo\n> 1\n9999999999\n"
	parsed, err := Parse("fixtures/bad.run", content)

	assert.Nil(t, parsed)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "fixtures/bad.run:2: line must contain a number")
	assert.Contains(t, err.Error(), "fixtures/bad.run:4: number must be an int32")

	var parseErr *ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestParse_losslessSourceText(t *testing.T) {
	content := "> 7\n7\n\n# comment\nerror: oops\n-3 # neg\n"
	parsed, err := Parse("fixtures/roundtrip.run", content)
	assert.NoError(t, err)

	var rendered strings.Builder
	for _, directive := range parsed.Directives() {
		rendered.WriteString(directive.String())
	}
	assert.Equal(t, content, rendered.String())
}

func TestParse_idempotent(t *testing.T) {
	content := "> 1\n1\nerror: nope\n"
	first, err := Parse("fixtures/twice.run", content)
	assert.NoError(t, err)
	second, err := Parse("fixtures/twice.run", content)
	assert.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestScript_HasExpectedError(t *testing.T) {
	testCases := []struct {
		description string
		content     string
		expected    bool
	}{
		{
			description: "script with an expected error",
			content:     "> 1\nerror: overflow\n",
			expected:    true,
		},
		{
			description: "script without expected errors",
			content:     "> 1\n1\n",
			expected:    false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			parsed, err := Parse("fixtures/case.run", tc.content)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, parsed.HasExpectedError())
		})
	}
}
