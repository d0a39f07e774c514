package script

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/viant/parsly"
)

// ErrorPrefix marks diagnostic lines: scripts expect them on stderr with
// this exact literal, and subjects signal errors by starting a line with it.
const ErrorPrefix = "error: "

const inputPrefix = "> "

// Parse parses script content into a directive sequence. path tags every
// line for diagnostics. Malformed lines do not stop the parse: every parse
// error in the content is collected and reported together, so one pass
// surfaces every problem.
func Parse(path, content string) (*Script, error) {
	return ParseLines(SplitLines(path, content))
}

// ParseLines parses already-tagged raw lines into a directive sequence.
func ParseLines(lines []Line) (*Script, error) {
	directives := make([]Directive, 0, len(lines))
	var errs []error
	for _, line := range lines {
		directive, err := parseLine(line)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		directives = append(directives, directive)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &Script{directives: directives}, nil
}

// SplitLines splits content into raw lines, newline terminators kept, tagged
// with path and 1-based line numbers. A final unterminated line is kept as is.
func SplitLines(path, content string) []Line {
	if content == "" {
		return nil
	}
	raw := strings.SplitAfter(content, "\n")
	if raw[len(raw)-1] == "" {
		raw = raw[:len(raw)-1]
	}
	lines := make([]Line, len(raw))
	for i, text := range raw {
		lines[i] = NewLine(text, path, i+1)
	}
	return lines
}

// parseLine classifies one raw line. Prefixes are checked against the raw
// text before any stripping; only comment and blank detection strip.
func parseLine(line Line) (Directive, error) {
	cursor := parsly.NewCursor(line.Path, []byte(line.Text), 0)
	matched := cursor.MatchAny(inputPrefixToken, errorPrefixToken)
	switch matched.Code {
	case inputPrefixCode:
		return &SendInput{Payload: line.Slice(len(inputPrefix)).StripComment(), source: line}, nil
	case errorPrefixCode:
		return &ExpectError{source: line}, nil
	}
	if rest := strings.TrimLeftFunc(line.Text, unicode.IsSpace); rest == "" || rest[0] == '#' {
		return &Blank{source: line}, nil
	}
	return parseExpectOutput(line)
}

// parseExpectOutput parses the comment-stripped remainder as a signed 32-bit
// decimal literal.
func parseExpectOutput(line Line) (Directive, error) {
	text := strings.TrimSuffix(line.StripComment().Text, "\n")
	cursor := parsly.NewCursor(line.Path, []byte(text), 0)

	matched := cursor.MatchAfterOptional(whitespaceToken, intLiteralToken)
	if matched.Code != intLiteralToken.Code {
		return nil, NewParseError("line must contain a number", line)
	}
	literal := matched.Text(cursor)
	cursor.MatchOne(whitespaceToken)
	if cursor.Pos < cursor.InputSize {
		return nil, NewParseError("line must contain a number", line)
	}

	value, err := strconv.ParseInt(literal, 10, 32)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return nil, NewParseError("number must be an int32", line)
		}
		return nil, NewParseError("line must contain a number", line)
	}
	return &ExpectOutput{Value: int32(value), source: line}, nil
}
