package conformance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/simlang/simtest/internal/idgen"
	"github.com/simlang/simtest/model/script"
	"github.com/simlang/simtest/runtime/subprocess"
	"github.com/simlang/simtest/service/diff"
	"github.com/simlang/simtest/tracing"
)

// OutputExpectation is the one-shot counterpart of a directive script: the
// exact stdout a phase must print, plus whether it must report diagnostics.
type OutputExpectation struct {
	Stdout   string
	HasError bool
}

// ParseOutput splits captured phase output into an expectation. Diagnostic
// lines are not compared verbatim; their presence only demands that the
// subject report at least one error and exit non-zero.
func ParseOutput(content string) *OutputExpectation {
	expectation := &OutputExpectation{}
	var stdout strings.Builder
	for _, line := range strings.SplitAfter(content, "\n") {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, script.ErrorPrefix) {
			expectation.HasError = true
			continue
		}
		stdout.WriteString(line)
	}
	expectation.Stdout = stdout.String()
	return expectation
}

// AssertOutput runs the invocation to completion and verifies the captured
// output against the expectation: stdout must match byte for byte, and the
// subject must report diagnostics (and exit non-zero) exactly when the
// expectation calls for them. Divergences come back as a *Failure.
func (r *Runner) AssertOutput(ctx context.Context, expectation *OutputExpectation, invocation *subprocess.Invocation) (err error) {
	_, span := tracing.StartSpan(ctx, fmt.Sprintf("conformance.assertOutput %s", invocation.Cmd()), "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{"run.id": idgen.New(), "run.cmd": invocation.Cmd()})

	result, err := invocation.Run()
	if err != nil {
		if errors.Is(err, subprocess.ErrTimeout) {
			return &Failure{Kind: KindTimeout, Message: "timed out waiting for program to finish"}
		}
		return err
	}

	if expectation.Stdout != result.Stdout {
		diffText, diffErr := diff.Unified(expectation.Stdout, result.Stdout, diff.Options{
			FromFile: "expected_stdout",
			ToFile:   "actual_stdout",
			Color:    r.color,
		})
		if diffErr != nil {
			diffText = fmt.Sprintf("diff unavailable: %v", diffErr)
		}
		return &Failure{
			Kind:    KindExpectation,
			Message: fmt.Sprintf("wrong stdout:\n%s\n\nstderr was:\n\n%s", diffText, result.Stderr),
		}
	}

	if expectation.HasError {
		if !strings.HasPrefix(result.Stderr, script.ErrorPrefix) {
			return &Failure{
				Kind:    KindExpectation,
				Message: fmt.Sprintf("expected stderr to have at least one error\n\nstdout was:\n\n%s\n\nstderr was:\n\n%s", result.Stdout, result.Stderr),
			}
		}
		if result.ExitCode == 0 {
			return &Failure{
				Kind:    KindPostCondition,
				Message: fmt.Sprintf("expected non-zero returncode\n\nstdout was:\n\n%s\n\nstderr was:\n\n%s", result.Stdout, result.Stderr),
			}
		}
		return nil
	}

	if result.Stderr != "" {
		return &Failure{
			Kind:    KindExpectation,
			Message: fmt.Sprintf("expected no errors to be reported\n\nstdout was:\n\n%s\n\nstderr was:\n\n%s", result.Stdout, result.Stderr),
		}
	}
	if result.ExitCode != 0 {
		return &Failure{
			Kind:    KindPostCondition,
			Message: fmt.Sprintf("expected returncode 0 (got: %d)\n\nstdout was:\n\n%s\n\nstderr was:\n\n%s", result.ExitCode, result.Stdout, result.Stderr),
		}
	}
	return nil
}
