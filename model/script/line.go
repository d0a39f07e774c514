package script

import (
	"fmt"
	"strings"
	"unicode"
)

// Line is one physical line of a script file together with its origin.
// The origin is diagnostic metadata only; content comparisons use Text.
// Derived lines keep the origin of the line they were derived from.
type Line struct {
	Text string
	Path string
	Num  int
}

// NewLine returns a line tagged with its origin. Line numbers are 1-based.
func NewLine(text, path string, num int) Line {
	return Line{Text: text, Path: path, Num: num}
}

// Context returns the origin rendered as path:line.
func (l Line) Context() string {
	return fmt.Sprintf("%s:%d", l.Path, l.Num)
}

// Slice returns the line content from byte offset from on.
func (l Line) Slice(from int) Line {
	return Line{Text: l.Text[from:], Path: l.Path, Num: l.Num}
}

// StripComment drops everything from the first '#' on, trims trailing
// whitespace and re-appends the newline terminator.
func (l Line) StripComment() Line {
	text, _, _ := strings.Cut(l.Text, "#")
	text = strings.TrimRightFunc(text, unicode.IsSpace) + "\n"
	return Line{Text: text, Path: l.Path, Num: l.Num}
}

func (l Line) String() string {
	return l.Text
}
