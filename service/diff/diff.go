// Package diff renders unified diffs between expected and actual line
// sequences for conformance reports. Rendering is deterministic and performs
// no I/O, so report content can be asserted byte for byte.
package diff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Options control unified diff rendering.
type Options struct {
	// FromFile and ToFile label the two sides in the diff header.
	FromFile string
	ToFile   string
	// AllLines widens the hunk context to the whole input instead of the
	// default three lines, so ordered run scripts render in full.
	AllLines bool
	// Color wraps added, removed and hunk-header lines in ANSI escapes.
	Color bool
}

// Unified diffs a against b line-wise. Identical inputs yield the empty
// string. Lines keep their newline terminators; a final unterminated line is
// compared as written.
func Unified(a, b string, options Options) (string, error) {
	aLines := splitLines(a)
	bLines := splitLines(b)

	context := 3
	if options.AllLines {
		context = len(aLines)
		if len(bLines) > context {
			context = len(bLines)
		}
	}

	ud := difflib.UnifiedDiff{
		A:        aLines,
		B:        bLines,
		FromFile: options.FromFile,
		ToFile:   options.ToFile,
		Context:  context,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", err
	}

	if options.Color {
		text = colorize(text)
	}
	return text, nil
}

// splitLines splits keeping newline terminators, without inventing a
// terminator for the final line. difflib.SplitLines pads the last line with
// a newline, which would make diffs disagree with what the subject printed.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func colorize(diffText string) string {
	var b strings.Builder
	for _, line := range splitLines(diffText) {
		b.WriteString(colorDiffLine(line))
	}
	return b.String()
}

// colorDiffLine styles one diff line, newline terminator included, so whole
// rows change color in a terminal. Header lines (---, +++) pick up the
// removed/added colors through their first byte.
func colorDiffLine(line string) string {
	if line == "" {
		return line
	}
	switch line[0] {
	case '+':
		return green(line)
	case '-':
		return red(line)
	case '@':
		return blue(line)
	}
	return line
}

func green(text string) string {
	return "\033[1;32m" + text + "\033[0;0m"
}

func red(text string) string {
	return "\033[1;31m" + text + "\033[0;0m"
}

func blue(text string) string {
	return "\033[1;34m" + text + "\033[0;0m"
}
