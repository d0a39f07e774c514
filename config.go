package simtest

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/simlang/simtest/service/toolchain"
)

// Config is a serialisable representation of the harness configuration. It
// can be populated from YAML or built in code; start from DefaultConfig and
// override, since the zero value is not runnable.
type Config struct {
	// Binary is the subject compiler, resolved against the working directory
	// unless absolute. A configured Build replaces it with the built artifact.
	Binary string `json:"binary" yaml:"binary"`

	// Fixtures locates the fixture tree.
	Fixtures string `json:"fixtures" yaml:"fixtures"`

	// TimeoutMs bounds every exchange with the subject: each stdin write,
	// each awaited output line, and the final wait.
	TimeoutMs int `json:"timeoutMs" yaml:"timeoutMs"`

	// Phases maps expectation-file extensions onto the subject flag that
	// exercises the phase.
	Phases map[string]string `json:"phases" yaml:"phases"`

	Color   bool `json:"color" yaml:"color"`
	Verbose bool `json:"verbose" yaml:"verbose"`

	// Build, when set, compiles the subject before the session.
	Build *toolchain.Build `json:"build,omitempty" yaml:"build,omitempty"`

	// BuildCache is where build outcomes are memoized; empty disables the
	// cache.
	BuildCache string `json:"buildCache,omitempty" yaml:"buildCache,omitempty"`
}

// runPhase is the expectation extension whose scripts replay interactively.
const runPhase = "run"

// DefaultConfig returns the configuration the harness ships with: ./sc as
// the subject, fixtures/ as the tree, five seconds per exchange, and the
// standard phase flags.
func DefaultConfig() *Config {
	return &Config{
		Binary:    "./sc",
		Fixtures:  "fixtures",
		TimeoutMs: int(5 * time.Second / time.Millisecond),
		Phases: map[string]string{
			"scanner": "-s",
			"cst":     "-c",
			"st":      "-t",
			"ast":     "-a",
			runPhase:  "-i",
		},
	}
}

// LoadConfig reads a YAML config from the supplied location, layered over
// DefaultConfig so partial files inherit defaults.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	data, err := afs.New().DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", URL, err)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", URL, err)
	}
	return config, nil
}

// Timeout returns the per-exchange deadline.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Binary == "" && c.Build == nil {
		return fmt.Errorf("binary must be set when no build is configured")
	}
	if c.Fixtures == "" {
		return fmt.Errorf("fixtures root must not be empty")
	}
	if c.TimeoutMs <= 0 {
		return fmt.Errorf("timeoutMs must be > 0")
	}
	if len(c.Phases) == 0 {
		return fmt.Errorf("at least one phase must be configured")
	}
	for phase, flag := range c.Phases {
		if flag == "" {
			return fmt.Errorf("phase %q has no subject flag", phase)
		}
	}
	return nil
}

// normalizePhase maps user-facing phase selectors onto expectation
// extensions; the interactive phase is selected as "interpreter" but stored
// under the .run extension.
func normalizePhase(name string) string {
	if name == "interpreter" {
		return runPhase
	}
	return name
}
