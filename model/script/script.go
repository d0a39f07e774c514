// Package script models expectation scripts: newline-delimited files whose
// lines either feed the subject's stdin, expect an exact stdout line, expect
// a diagnostic on stderr, or carry comments. Lines keep their file origin so
// failures can point back at the script.
package script

// Script is an ordered directive sequence parsed from one expectation file.
// It is immutable once parsed and owned by a single test case.
type Script struct {
	directives []Directive
}

// Directives returns the directives in script order. The returned slice is
// shared; callers must not mutate it.
func (s *Script) Directives() []Directive {
	return s.directives
}

// Len returns the number of directives, blank ones included.
func (s *Script) Len() int {
	return len(s.directives)
}

// HasExpectedError reports whether any directive expects a diagnostic on
// stderr. Scripts with expected errors require a non-zero subject exit code.
func (s *Script) HasExpectedError() bool {
	for _, d := range s.directives {
		if _, ok := d.(*ExpectError); ok {
			return true
		}
	}
	return false
}
