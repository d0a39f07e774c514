package toolchain

import (
	"fmt"
	"path"
	"time"

	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

// Host names the machine a build runs on. URLs with host "localhost" run
// through a local shell session; anything else is reached over SSH with
// credentials resolved by name through the secret store.
type Host struct {
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
	Credentials string `json:"credentials,omitempty" yaml:"credentials,omitempty"`
}

// Build describes how to produce the subject binary: the source tree to
// fingerprint, the shell command that compiles it, and the artifact the
// command leaves behind (relative to the source tree unless absolute).
type Build struct {
	SourceURL string            `json:"sourceURL,omitempty" yaml:"sourceURL,omitempty"`
	Command   string            `json:"command,omitempty" yaml:"command,omitempty"`
	Artifact  string            `json:"artifact,omitempty" yaml:"artifact,omitempty"`
	Host      *Host             `json:"host,omitempty" yaml:"host,omitempty"`
	Env       map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	TimeoutMs int               `json:"timeoutMs,omitempty" yaml:"timeoutMs,omitempty"`
}

// remote reports whether the build leaves the local machine.
func (b *Build) remote() bool {
	return b.Host != nil && url.Host(b.Host.URL) != "localhost"
}

// sourceDir returns the directory the build command runs in.
func (b *Build) sourceDir() string {
	if b.SourceURL == "" {
		return ""
	}
	return url.Path(url.Normalize(b.SourceURL, file.Scheme))
}

// artifactPath resolves the artifact location the build is expected to
// produce.
func (b *Build) artifactPath() string {
	if path.IsAbs(b.Artifact) {
		return b.Artifact
	}
	return path.Join(b.sourceDir(), b.Artifact)
}

// BuildError reports a failed subject build. Failures are cached alongside
// successful outcomes so a broken toolchain does not rebuild on every run.
type BuildError struct {
	Output string
	Status int
}

// Error returns the captured build output with its exit status.
func (e *BuildError) Error() string {
	return fmt.Sprintf("build failed with exit %d:\n%s", e.Status, e.Output)
}

// outcome is the persisted cache entry for one build fingerprint.
type outcome struct {
	Fingerprint string    `json:"fingerprint"`
	Artifact    string    `json:"artifact,omitempty"`
	Output      string    `json:"output,omitempty"`
	Status      int       `json:"status"`
	BuiltAt     time.Time `json:"builtAt"`
}
