package simtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/viant/afs/url"

	"github.com/simlang/simtest/internal/clock"
	"github.com/simlang/simtest/internal/idgen"
	"github.com/simlang/simtest/progress"
	"github.com/simlang/simtest/runtime/conformance"
	"github.com/simlang/simtest/runtime/subprocess"
	"github.com/simlang/simtest/service/fixture"
	"github.com/simlang/simtest/service/toolchain"
	"github.com/simlang/simtest/tracing"
)

// Service drives a full conformance session: it builds the subject when a
// build is configured, discovers fixtures, and replays every expectation
// against the subject binary.
type Service struct {
	config    *Config
	phases    []string
	fixtures  *fixture.Service
	runner    *conformance.Runner
	toolchain *toolchain.Service
}

// New assembles a Service from DefaultConfig and the supplied options.
func New(options ...Option) (*Service, error) {
	ret := &Service{config: DefaultConfig()}
	for _, option := range options {
		option(ret)
	}
	if err := ret.config.Validate(); err != nil {
		return nil, err
	}
	fixtures, err := fixture.New(ret.config.Fixtures)
	if err != nil {
		return nil, err
	}
	ret.fixtures = fixtures
	ret.runner = conformance.New(conformance.WithColor(ret.config.Color))
	if ret.config.Build != nil {
		ret.toolchain = toolchain.New(ret.config.BuildCache)
	}
	return ret, nil
}

// Run executes the session and returns its report. The returned error covers
// harness problems such as a missing binary or a broken fixture layout;
// subject misbehavior is recorded per case in the report instead.
func (s *Service) Run(ctx context.Context) (report *Report, err error) {
	ctx, span := tracing.StartSpan(ctx, "simtest.Run", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	selected, err := s.selectedPhases()
	if err != nil {
		return nil, err
	}
	binary, err := s.ensureBinary(ctx)
	if err != nil {
		return nil, err
	}
	fixtures, err := s.fixtures.Discover(ctx)
	if err != nil {
		return nil, err
	}

	// Callers may install their own tracker to observe the session live.
	if _, ok := progress.FromContext(ctx); !ok {
		ctx, _ = progress.WithNewTracker(ctx, idgen.New(), s.config.Fixtures, nil)
	}

	started := clock.Now()
	report = &Report{}
	for _, aFixture := range fixtures {
		if !selected[aFixture.Phase()] {
			continue
		}
		for _, result := range s.runFixture(ctx, binary, aFixture) {
			report.add(result)
		}
	}
	report.Elapsed = clock.Now().Sub(started)
	span.WithAttributes(map[string]string{
		"session.cases":  fmt.Sprintf("%d", len(report.Cases)),
		"session.failed": fmt.Sprintf("%d", report.Failed),
	})
	return report, nil
}

// Close releases resources held across runs, such as build shell sessions.
func (s *Service) Close() error {
	if s.toolchain == nil {
		return nil
	}
	return s.toolchain.Close()
}

func (s *Service) ensureBinary(ctx context.Context) (string, error) {
	binary := s.config.Binary
	if s.config.Build != nil {
		built, err := s.toolchain.Ensure(ctx, s.config.Build)
		if err != nil {
			return "", err
		}
		binary = built
	}
	if err := subprocess.Validate(binary); err != nil {
		return "", err
	}
	return binary, nil
}

// selectedPhases resolves the phase selection into a set of expectation
// extensions. An empty selection means every configured phase.
func (s *Service) selectedPhases() (map[string]bool, error) {
	selected := map[string]bool{}
	if len(s.phases) == 0 {
		for phase := range s.config.Phases {
			selected[phase] = true
		}
		return selected, nil
	}
	for _, name := range s.phases {
		phase := normalizePhase(name)
		if _, ok := s.config.Phases[phase]; !ok {
			return nil, fmt.Errorf("invalid choice: %q (choose from %s)", name, strings.Join(s.phaseChoices(), ", "))
		}
		selected[phase] = true
	}
	return selected, nil
}

func (s *Service) phaseChoices() []string {
	var choices []string
	for phase := range s.config.Phases {
		if phase == runPhase {
			phase = "interpreter"
		}
		choices = append(choices, phase)
	}
	sort.Strings(choices)
	return choices
}

// runFixture produces the case results of one fixture. Batch phases run the
// subject twice, with the program as an argument and again on stdin; the
// interactive phase only supports the argument form because its stdin
// carries the scripted input.
func (s *Service) runFixture(ctx context.Context, binary string, aFixture *fixture.Fixture) []*CaseResult {
	flag := s.config.Phases[aFixture.Phase()]
	simPath := url.Path(aFixture.SimURL())
	timeout := s.config.Timeout()

	if aFixture.Phase() == runPhase {
		scr, err := s.fixtures.LoadScript(ctx, aFixture)
		if err != nil {
			return []*CaseResult{loadFailure(ctx, aFixture, err)}
		}
		invocation := subprocess.New(binary,
			[]string{flag, subprocess.RelativeToCwd(simPath, false)},
			subprocess.WithTimeout(timeout))
		return []*CaseResult{s.runCase(ctx, aFixture, "as argument", invocation, func(inv *subprocess.Invocation) error {
			return s.runner.Run(ctx, scr, inv)
		})}
	}

	expectation, err := s.fixtures.LoadOutput(ctx, aFixture)
	if err != nil {
		return []*CaseResult{loadFailure(ctx, aFixture, err)}
	}
	assert := func(inv *subprocess.Invocation) error {
		return s.runner.AssertOutput(ctx, expectation, inv)
	}
	asArgument := subprocess.New(binary,
		[]string{flag, subprocess.RelativeToCwd(simPath, false)},
		subprocess.WithTimeout(timeout))
	asStdin := subprocess.New(binary,
		[]string{flag},
		subprocess.WithStdinFile(simPath),
		subprocess.WithTimeout(timeout))
	return []*CaseResult{
		s.runCase(ctx, aFixture, "as argument", asArgument, assert),
		s.runCase(ctx, aFixture, "as stdin", asStdin, assert),
	}
}

// runCase runs one invocation and classifies its outcome. Conformance
// failures indict the subject and are prefixed with the command that
// produced them; any other error indicts the harness and is recorded as is.
func (s *Service) runCase(ctx context.Context, aFixture *fixture.Fixture, variant string, invocation *subprocess.Invocation, assert func(*subprocess.Invocation) error) *CaseResult {
	progress.UpdateCtx(ctx, progress.Delta{Total: 1, Running: 1})
	started := clock.Now()
	result := &CaseResult{
		Fixture: aFixture.Name(),
		Phase:   aFixture.Phase(),
		Variant: variant,
		Cmd:     invocation.Cmd(),
	}
	if err := assert(invocation); err != nil {
		var failure *conformance.Failure
		if errors.As(err, &failure) {
			result.Failure = fmt.Sprintf("while running: %s\n\n%s", invocation.Cmd(), failure.Message)
		} else {
			result.Failure = err.Error()
		}
	}
	result.Duration = clock.Now().Sub(started)
	if result.Passed() {
		progress.UpdateCtx(ctx, progress.Delta{Passed: 1, Running: -1})
	} else {
		progress.UpdateCtx(ctx, progress.Delta{Failed: 1, Running: -1})
	}
	return result
}

func loadFailure(ctx context.Context, aFixture *fixture.Fixture, err error) *CaseResult {
	progress.UpdateCtx(ctx, progress.Delta{Total: 1, Failed: 1})
	return &CaseResult{
		Fixture: aFixture.Name(),
		Phase:   aFixture.Phase(),
		Variant: "load",
		Failure: err.Error(),
	}
}
