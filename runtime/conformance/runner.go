// Package conformance verifies that a subject program behaves as its
// expectation script demands. Interactive scripts are replayed directive by
// directive against the running subject; one-shot expectations are checked
// against a completed run's captured output. Divergences surface as Failure
// values whose reports embed unified diffs of the exchange.
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

// Runner replays expectation scripts against subject invocations.
type Runner struct {
	color bool
}

// Option customises a Runner.
type Option func(*Runner)

// WithColor toggles ANSI coloring of the diffs embedded in failure reports.
func WithColor(color bool) Option {
	return func(r *Runner) {
		r.color = color
	}
}

// New creates a conformance runner.
func New(options ...Option) *Runner {
	runner := &Runner{}
	for _, option := range options {
		option(runner)
	}
	return runner
}

// Run starts the invocation and replays the script against it, driving the
// subject's stdin and matching its stdout and stderr in script order. The
// first divergence stops the replay and comes back as a *Failure. Once every
// directive is satisfied the subject must finish cleanly: no leftover stdout,
// and the exit-code class implied by the script (non-zero when a diagnostic
// was expected, zero with a silent stderr otherwise). Whatever the outcome,
// the subject is killed and reaped before Run returns.
func (r *Runner) Run(ctx context.Context, scr *script.Script, invocation *subprocess.Invocation) (err error) {
	_, span := tracing.StartSpan(ctx, fmt.Sprintf("conformance.run %s", invocation.Cmd()), "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{"run.id": idgen.New(), "run.cmd": invocation.Cmd()})

	program, err := invocation.Start()
	if err != nil {
		return err
	}
	defer program.Close()

	var history []string
	for _, directive := range scr.Directives() {
		v, err := r.expect(program, directive)
		if err != nil {
			return err
		}
		if v != nil {
			return r.replayFailure(v, history)
		}
		history = append(history, directive.String())
	}

	result, err := program.Wait()
	if err != nil {
		if errors.Is(err, subprocess.ErrTimeout) {
			return &Failure{
				Kind:    KindTimeout,
				Message: fmt.Sprintf("timed out waiting for program to finish\n\ncontext:\n\n%s", strings.Join(history, "")),
			}
		}
		return err
	}
	return r.verifyOutcome(scr, result, history)
}

// expect drives a single directive against the program. A divergence comes
// back as a violation; infrastructure problems (a broken pipe, an unpiped
// stdin) surface as plain errors.
func (r *Runner) expect(program *subprocess.Program, directive script.Directive) (*violation, error) {
	switch d := directive.(type) {
	case *script.SendInput:
		err := program.WriteLine(d.Payload.Text)
		switch {
		case err == nil:
			return nil, nil
		case errors.Is(err, subprocess.ErrTimeout):
			return &violation{kind: KindTimeout, message: "timeout while writing line to stdin", expected: []string{d.String()}}, nil
		default:
			return nil, err
		}
	case *script.ExpectOutput:
		line, err := program.ReadLine()
		if err != nil {
			if errors.Is(err, subprocess.ErrTimeout) {
				return &violation{kind: KindTimeout, message: "timeout while waiting for stdout line", expected: []string{d.String()}}, nil
			}
			return nil, err
		}
		if line != d.Expected() {
			return &violation{kind: KindExpectation, message: "unexpected stdout line", expected: []string{d.String()}, actual: []string{line}}, nil
		}
		return nil, nil
	case *script.ExpectError:
		line, err := program.ReadErrorLine()
		if err != nil {
			if errors.Is(err, subprocess.ErrTimeout) {
				return &violation{kind: KindTimeout, message: "timeout while waiting for stderr line", expected: []string{d.String()}}, nil
			}
			return nil, err
		}
		if !strings.HasPrefix(line, script.ErrorPrefix) {
			return &violation{kind: KindExpectation, message: "unexpected error line", expected: []string{d.String()}, actual: []string{line}}, nil
		}
		return nil, nil
	case *script.Blank:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported directive %T", directive)
	}
}

// replayFailure renders a violation as a unified diff between the exchange
// the script demanded and the exchange that took place. Both sides carry the
// already satisfied prefix so the divergence appears in context.
func (r *Runner) replayFailure(v *violation, history []string) *Failure {
	prefix := strings.Join(history, "")
	expected := prefix + strings.Join(v.expected, "")
	actual := prefix + strings.Join(v.actual, "")

	diffText, err := diff.Unified(expected, actual, diff.Options{
		FromFile: "expected_run",
		ToFile:   "actual_run",
		AllLines: true,
		Color:    r.color,
	})
	if err != nil {
		diffText = fmt.Sprintf("diff unavailable: %v", err)
	}
	return &Failure{Kind: v.kind, Message: fmt.Sprintf("%s:\n\n%s", v.message, diffText)}
}

// verifyOutcome checks the post-replay state of a finished subject: nothing
// may remain on stdout, and the exit-code class must match the script's
// expectation of success or failure.
func (r *Runner) verifyOutcome(scr *script.Script, result *subprocess.Result, history []string) error {
	transcript := strings.Join(history, "")

	if result.Stdout != "" {
		return &Failure{
			Kind: KindPostCondition,
			Message: fmt.Sprintf("expected no more stdout\n\ncontext:\n\n%s\n\nextra stdout:\n\n%s\n\nstderr:\n\n%s",
				transcript, result.Stdout, result.Stderr),
		}
	}

	if scr.HasExpectedError() {
		if result.ExitCode == 0 {
			return &Failure{
				Kind:    KindPostCondition,
				Message: fmt.Sprintf("expected non-zero returncode\n\ncontext:\n\n%s", transcript),
			}
		}
		return nil
	}

	if result.Stderr != "" {
		return &Failure{
			Kind:    KindPostCondition,
			Message: fmt.Sprintf("expected no more stderr\n\ncontext:\n\n%s\n\nextra stderr:\n\n%s", transcript, result.Stderr),
		}
	}
	if result.ExitCode != 0 {
		return &Failure{
			Kind:    KindPostCondition,
			Message: fmt.Sprintf("expected returncode 0 (got: %d)\n\ncontext:\n\n%s", result.ExitCode, transcript),
		}
	}
	return nil
}
