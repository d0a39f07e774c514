package fixture

import (
	"path"
	"strings"

	"github.com/viant/afs/url"
)

// Fixture pairs a sim program with one expectation file. The expectation
// file's extension names the toolchain phase it exercises; an optional
// subname before the extension distinguishes multiple expectations for the
// same phase, so fixtures/foo.bar.run pairs with fixtures/foo.sim.
type Fixture struct {
	phaseURL string
	simURL   string
	relPhase string
	relSim   string
}

func newFixture(rootURL, relPhase string) *Fixture {
	relSim := simPathForPhase(relPhase)
	return &Fixture{
		phaseURL: url.Join(rootURL, relPhase),
		simURL:   url.Join(rootURL, relSim),
		relPhase: relPhase,
		relSim:   relSim,
	}
}

// Name returns the fixture's test name: the phase file path relative to the
// fixtures root, without its extension, with separators and dots flattened
// to underscores. fixtures/foo/bar.scanner and fixtures/foo.bar.run are both
// named foo_bar.
func (f *Fixture) Name() string {
	base := strings.TrimSuffix(f.relPhase, path.Ext(f.relPhase))
	return strings.NewReplacer("/", "_", ".", "_").Replace(base)
}

// Phase returns the toolchain phase the fixture exercises, taken from the
// expectation file's extension.
func (f *Fixture) Phase() string {
	return strings.TrimPrefix(path.Ext(f.relPhase), ".")
}

// PhaseURL returns the expectation file's storage URL.
func (f *Fixture) PhaseURL() string {
	return f.phaseURL
}

// SimURL returns the sim program's storage URL.
func (f *Fixture) SimURL() string {
	return f.simURL
}

// PhasePath returns the expectation file path relative to the fixtures root.
func (f *Fixture) PhasePath() string {
	return f.relPhase
}

// SimPath returns the sim program path relative to the fixtures root.
func (f *Fixture) SimPath() string {
	return f.relSim
}

// simPathForPhase strips the phase extension and, when present, one subname
// extension, then appends .sim.
func simPathForPhase(relPhase string) string {
	base := strings.TrimSuffix(relPhase, path.Ext(relPhase))
	if subname := path.Ext(base); subname != "" {
		base = strings.TrimSuffix(base, subname)
	}
	return base + ".sim"
}
