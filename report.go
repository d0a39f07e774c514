package simtest

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/simlang/simtest/service/diff"
)

const separatorWidth = 70

// CaseResult records one subject invocation and its verdict.
type CaseResult struct {
	Fixture string
	Phase   string
	Variant string
	// Cmd is the shell-equivalent command of the invocation.
	Cmd string
	// Failure is the full failure message, empty when the case passed.
	Failure  string
	Duration time.Duration
}

// Passed reports whether the case ran clean.
func (c *CaseResult) Passed() bool {
	return c.Failure == ""
}

func (c *CaseResult) title() string {
	return fmt.Sprintf("%s (%s, %s)", c.Fixture, c.Phase, c.Variant)
}

// Report aggregates the outcome of a session.
type Report struct {
	Cases   []*CaseResult
	Passed  int
	Failed  int
	Elapsed time.Duration
}

func (r *Report) add(result *CaseResult) {
	r.Cases = append(r.Cases, result)
	if result.Passed() {
		r.Passed++
	} else {
		r.Failed++
	}
}

// Ok reports whether every case passed.
func (r *Report) Ok() bool {
	return r.Failed == 0
}

// Print renders the report: a progress line, one block per failure, and a
// summary. Verbose mode lists one line per case instead of the progress
// characters, annotating failures with a diffstat when the failure carries a
// diff.
func (r *Report) Print(w io.Writer, verbose bool) {
	for _, result := range r.Cases {
		if verbose {
			fmt.Fprintln(w, caseLine(result))
			continue
		}
		if result.Passed() {
			fmt.Fprint(w, ".")
		} else {
			fmt.Fprint(w, "F")
		}
	}
	if !verbose && len(r.Cases) > 0 {
		fmt.Fprintln(w)
	}

	for _, result := range r.Cases {
		if result.Passed() {
			continue
		}
		fmt.Fprintln(w, strings.Repeat("=", separatorWidth))
		fmt.Fprintf(w, "FAIL: %s\n", result.title())
		fmt.Fprintln(w, strings.Repeat("-", separatorWidth))
		fmt.Fprintln(w, result.Failure)
	}

	plural := "s"
	if len(r.Cases) == 1 {
		plural = ""
	}
	fmt.Fprintln(w, strings.Repeat("-", separatorWidth))
	fmt.Fprintf(w, "Ran %d test%s in %.3fs\n\n", len(r.Cases), plural, r.Elapsed.Seconds())
	if r.Ok() {
		fmt.Fprintln(w, "OK")
	} else {
		fmt.Fprintf(w, "FAILED (failures=%d)\n", r.Failed)
	}
}

func caseLine(result *CaseResult) string {
	line := result.title() + " ... "
	if result.Passed() {
		return line + "ok"
	}
	line += "FAIL"
	if diffText := embeddedDiff(result.Failure); diffText != "" {
		if stats, err := diff.Stat(diffText); err == nil {
			line += fmt.Sprintf(" [+%d -%d]", stats.Added, stats.Deleted)
		}
	}
	return line
}

// embeddedDiff extracts the unified diff carried inside a failure message,
// or returns "" when the message has none. Colored diffs are not extracted;
// the ANSI escapes defeat both the header search and the diffstat parser.
func embeddedDiff(failure string) string {
	start := strings.Index(failure, "--- expected_")
	if start < 0 {
		return ""
	}
	text := failure[start:]
	if cut := strings.Index(text, "\n\nstderr was:"); cut >= 0 {
		text = text[:cut]
	}
	return text
}
