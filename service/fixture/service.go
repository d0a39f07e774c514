// Package fixture discovers conformance fixtures on a filesystem-like store.
// A fixture is a sim program (*.sim) plus at least one expectation file whose
// extension names the phase to exercise; the layout is validated so that
// typos surface as discovery errors rather than silently skipped tests.
package fixture

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"

	"github.com/simlang/simtest/model/script"
	"github.com/simlang/simtest/runtime/conformance"
)

// Service discovers and loads fixtures under a fixtures root.
type Service struct {
	fs      afs.Service
	rootURL string
}

// New creates a fixture service rooted at the supplied location.
func New(rootURL string) (*Service, error) {
	if rootURL == "" {
		return nil, fmt.Errorf("fixtures root cannot be empty")
	}
	return &Service{
		fs:      afs.New(),
		rootURL: url.Normalize(rootURL, file.Scheme),
	}, nil
}

// Discover walks the fixtures tree and pairs every expectation file with its
// sim program. Hidden files and directories are ignored. Discovery fails on
// files without an extension, on expectation files whose sim program is
// missing, on sim programs with no expectations at all, and on distinct sim
// programs whose flattened test names collide.
func (s *Service) Discover(ctx context.Context) ([]*Fixture, error) {
	objects, err := s.fs.List(ctx, s.rootURL, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list fixtures at %s: %w", s.rootURL, err)
	}

	phasesBySim := map[string][]*Fixture{}
	simFiles := map[string]bool{}

	for _, object := range objects {
		if object.IsDir() {
			continue
		}
		relPath, err := s.relative(object.URL())
		if err != nil {
			return nil, err
		}
		if hidden(relPath) {
			continue
		}

		switch ext := path.Ext(relPath); {
		case ext == "" || ext == ".":
			return nil, fmt.Errorf("unexpected fixture file: %s", url.Path(object.URL()))
		case ext == ".sim":
			simFiles[object.URL()] = true
		default:
			fixture := newFixture(s.rootURL, relPath)
			phasesBySim[fixture.SimURL()] = append(phasesBySim[fixture.SimURL()], fixture)
		}
	}

	if err := s.validate(phasesBySim, simFiles); err != nil {
		return nil, err
	}

	var fixtures []*Fixture
	for _, paired := range phasesBySim {
		fixtures = append(fixtures, paired...)
	}
	sort.Slice(fixtures, func(i, j int) bool {
		return fixtures[i].PhasePath() < fixtures[j].PhasePath()
	})
	return fixtures, nil
}

// validate enforces the fixture layout: every expectation has its sim
// program, every sim program has expectations, and flattened test names stay
// unique across sim programs.
func (s *Service) validate(phasesBySim map[string][]*Fixture, simFiles map[string]bool) error {
	var missing []string
	for simURL := range phasesBySim {
		if !simFiles[simURL] {
			missing = append(missing, url.Path(simURL))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("these *.sim files have phases, but are missing:\n%s", strings.Join(missing, "\n"))
	}

	var testless []string
	for simURL := range simFiles {
		if _, ok := phasesBySim[simURL]; !ok {
			testless = append(testless, url.Path(simURL))
		}
	}
	if len(testless) > 0 {
		sort.Strings(testless)
		return fmt.Errorf("these *.sim files have no phases:\n%s", strings.Join(testless, "\n"))
	}

	// Flattening '/' and '.' to '_' can make distinct sim programs claim the
	// same test name; one representative per sim program keeps sibling phases
	// of a single program from tripping the check.
	simURLs := make([]string, 0, len(phasesBySim))
	for simURL := range phasesBySim {
		simURLs = append(simURLs, simURL)
	}
	sort.Strings(simURLs)

	names := map[string]*Fixture{}
	for _, simURL := range simURLs {
		representative := phasesBySim[simURL][0]
		if previous, ok := names[representative.Name()]; ok {
			return fmt.Errorf("name collision between %s and %s", representative.SimPath(), previous.SimPath())
		}
		names[representative.Name()] = representative
	}
	return nil
}

// LoadScript downloads and parses the fixture's expectation script. Line
// provenance keeps the fixtures directory name so parse errors point at a
// recognizable path.
func (s *Service) LoadScript(ctx context.Context, fixture *Fixture) (*script.Script, error) {
	data, err := s.fs.DownloadWithURL(ctx, fixture.PhaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to read phase file %s: %w", fixture.PhaseURL(), err)
	}
	return script.Parse(path.Join(path.Base(url.Path(s.rootURL)), fixture.PhasePath()), string(data))
}

// LoadOutput downloads the fixture's expectation file and splits it into the
// one-shot output expectation.
func (s *Service) LoadOutput(ctx context.Context, fixture *Fixture) (*conformance.OutputExpectation, error) {
	data, err := s.fs.DownloadWithURL(ctx, fixture.PhaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to read phase file %s: %w", fixture.PhaseURL(), err)
	}
	return conformance.ParseOutput(string(data)), nil
}

// relative maps an object URL onto its path below the fixtures root.
func (s *Service) relative(objectURL string) (string, error) {
	rel, err := filepath.Rel(url.Path(s.rootURL), url.Path(objectURL))
	if err != nil {
		return "", fmt.Errorf("fixture %s is outside the fixtures root %s: %w", objectURL, s.rootURL, err)
	}
	return filepath.ToSlash(rel), nil
}

// hidden reports whether any path component is dot-prefixed.
func hidden(relPath string) bool {
	for _, component := range strings.Split(relPath, "/") {
		if strings.HasPrefix(component, ".") {
			return true
		}
	}
	return false
}
