// Package toolchain builds the subject binary before a conformance session
// and memoizes the result. Outcomes are keyed by a content fingerprint of
// the build command plus every source file, so an unchanged toolchain is
// never rebuilt and a broken one fails fast with its captured output.
package toolchain

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
	"github.com/viant/gosh"
	"github.com/viant/gosh/runner"
	"github.com/viant/gosh/runner/local"
	rssh "github.com/viant/gosh/runner/ssh"
	"github.com/viant/scy/cred/secret"
	"golang.org/x/crypto/ssh"

	"github.com/simlang/simtest/internal/clock"
	"github.com/simlang/simtest/tracing"
)

// Service builds subjects and memoizes outcomes by content fingerprint.
type Service struct {
	fs       afs.Service
	cacheURL string

	mux      sync.Mutex
	sessions map[string]*gosh.Service

	// runCommand is stubbed in tests to keep them shell-free.
	runCommand func(ctx context.Context, build *Build, command string) (string, int, error)
}

// New creates a toolchain service. An empty cacheURL disables memoization;
// every Ensure call then rebuilds.
func New(cacheURL string) *Service {
	s := &Service{
		fs:       afs.New(),
		sessions: map[string]*gosh.Service{},
	}
	if cacheURL != "" {
		s.cacheURL = url.Normalize(cacheURL, file.Scheme)
	}
	s.runCommand = s.goshRun
	return s
}

// Ensure returns the path of the subject binary for the build, reusing a
// cached outcome when the fingerprint matches. Cached failures are replayed
// as *BuildError without rerunning the command.
func (s *Service) Ensure(ctx context.Context, build *Build) (binary string, err error) {
	_, span := tracing.StartSpan(ctx, fmt.Sprintf("toolchain.ensure %s", build.Command), "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	fingerprint, err := s.fingerprint(ctx, build)
	if err != nil {
		return "", err
	}
	span.WithAttributes(map[string]string{"build.fingerprint": fingerprint})

	if cached, ok := s.loadOutcome(ctx, fingerprint); ok {
		if cached.Status != 0 {
			return "", &BuildError{Output: cached.Output, Status: cached.Status}
		}
		ready, err := s.artifactReady(ctx, build, cached.Artifact)
		if err != nil {
			return "", err
		}
		if ready {
			return cached.Artifact, nil
		}
	}

	output, status, err := s.runCommand(ctx, build, build.Command)
	if err != nil {
		return "", fmt.Errorf("failed to run build command: %w", err)
	}

	result := &outcome{Fingerprint: fingerprint, Output: output, Status: status, BuiltAt: clock.Now()}
	if status != 0 {
		s.saveOutcome(ctx, result)
		return "", &BuildError{Output: output, Status: status}
	}

	artifact := build.artifactPath()
	ready, err := s.artifactReady(ctx, build, artifact)
	if err != nil {
		return "", err
	}
	if !ready {
		return "", fmt.Errorf("%w: %s", ErrArtifactMissing, artifact)
	}

	result.Artifact = artifact
	s.saveOutcome(ctx, result)
	return artifact, nil
}

// fingerprint digests the build command plus every source file, so cache
// entries invalidate when either changes. Remote builds must hold the same
// tree at the same path; the digest always reads the locally visible copy.
func (s *Service) fingerprint(ctx context.Context, build *Build) (string, error) {
	digest := sha256.New()
	digest.Write([]byte(build.Command))
	digest.Write([]byte{0})

	sourceURL := url.Normalize(build.SourceURL, file.Scheme)
	objects, err := s.fs.List(ctx, sourceURL, option.NewRecursive(true))
	if err != nil {
		return "", fmt.Errorf("failed to list build source %s: %w", sourceURL, err)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].URL() < objects[j].URL() })

	artifact := build.artifactPath()
	for _, object := range objects {
		if object.IsDir() {
			continue
		}
		// The artifact is build output, not input; digesting it would thrash
		// the cache on every rebuild. Hidden trees (VCS metadata) likewise.
		if url.Path(object.URL()) == artifact {
			continue
		}
		relPath := strings.TrimPrefix(strings.TrimPrefix(url.Path(object.URL()), url.Path(sourceURL)), "/")
		if hiddenPath(relPath) {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			return "", fmt.Errorf("failed to read build source %s: %w", object.URL(), err)
		}
		digest.Write([]byte(relPath))
		digest.Write([]byte{0})
		digest.Write(data)
		digest.Write([]byte{0})
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}

// artifactReady checks that the declared artifact exists. Local artifacts
// are checked through the filesystem; remote ones with a shell probe on the
// build host.
func (s *Service) artifactReady(ctx context.Context, build *Build, artifact string) (bool, error) {
	if artifact == "" {
		return false, nil
	}
	if build.remote() {
		_, status, err := s.runCommand(ctx, build, fmt.Sprintf("test -x %s", artifact))
		if err != nil {
			return false, fmt.Errorf("failed to probe artifact %s: %w", artifact, err)
		}
		return status == 0, nil
	}
	exists, err := s.fs.Exists(ctx, url.Normalize(artifact, file.Scheme))
	if err != nil {
		return false, fmt.Errorf("failed to check artifact %s: %w", artifact, err)
	}
	return exists, nil
}

func (s *Service) outcomeURL(fingerprint string) string {
	return url.Join(s.cacheURL, fingerprint+".json")
}

func (s *Service) loadOutcome(ctx context.Context, fingerprint string) (*outcome, bool) {
	if s.cacheURL == "" {
		return nil, false
	}
	entryURL := s.outcomeURL(fingerprint)
	exists, err := s.fs.Exists(ctx, entryURL)
	if err != nil || !exists {
		return nil, false
	}
	data, err := s.fs.DownloadWithURL(ctx, entryURL)
	if err != nil {
		log.Printf("toolchain: failed to read cached outcome %s: %v", entryURL, err)
		return nil, false
	}
	cached := &outcome{}
	if err := json.Unmarshal(data, cached); err != nil {
		log.Printf("toolchain: failed to decode cached outcome %s: %v", entryURL, err)
		return nil, false
	}
	return cached, true
}

// saveOutcome persists a cache entry. Caching is best-effort; a failed write
// must not fail the build.
func (s *Service) saveOutcome(ctx context.Context, result *outcome) {
	if s.cacheURL == "" {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		log.Printf("toolchain: failed to encode outcome %s: %v", result.Fingerprint, err)
		return
	}
	entryURL := s.outcomeURL(result.Fingerprint)
	if err := s.fs.Upload(ctx, entryURL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		log.Printf("toolchain: failed to cache outcome %s: %v", entryURL, err)
	}
}

// goshRun executes a command in the build's source directory on its host.
func (s *Service) goshRun(ctx context.Context, build *Build, command string) (string, int, error) {
	session, err := s.getSession(ctx, build.Host, build.Env)
	if err != nil {
		return "", 0, fmt.Errorf("failed to get session: %w", err)
	}
	if dir := build.sourceDir(); dir != "" {
		if _, _, err := session.Run(ctx, fmt.Sprintf("cd %s", dir)); err != nil {
			return "", 0, fmt.Errorf("failed to change directory: %w", err)
		}
	}
	timeout := build.TimeoutMs
	if timeout == 0 {
		timeout = int(time.Minute.Milliseconds())
	}
	return session.Run(ctx, command, runner.WithTimeout(timeout))
}

// getSession retrieves an existing shell session for the host or creates a
// new one.
func (s *Service) getSession(ctx context.Context, host *Host, env map[string]string) (*gosh.Service, error) {
	key := "localhost"
	if host != nil {
		key = host.URL
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	if session, ok := s.sessions[key]; ok {
		return session, nil
	}

	var envOptions []runner.Option
	if len(env) > 0 {
		envOptions = append(envOptions, runner.WithEnvironment(env))
	}

	var session *gosh.Service
	var err error
	if host == nil || url.Host(host.URL) == "localhost" {
		session, err = gosh.New(ctx, local.New(envOptions...))
	} else {
		config, configErr := s.sshConfig(ctx, host)
		if configErr != nil {
			return nil, fmt.Errorf("failed to get SSH config: %w", configErr)
		}
		address := url.Host(host.URL)
		if !strings.Contains(address, ":") {
			address += ":22"
		}
		session, err = gosh.New(ctx, rssh.New(address, config, envOptions...))
	}
	if err != nil {
		return nil, err
	}

	s.sessions[key] = session
	return session, nil
}

// hiddenPath reports whether any path component is dot-prefixed.
func hiddenPath(relPath string) bool {
	for _, component := range strings.Split(relPath, "/") {
		if strings.HasPrefix(component, ".") {
			return true
		}
	}
	return false
}

// sshConfig resolves the host's SSH credentials through the secret store.
func (s *Service) sshConfig(ctx context.Context, host *Host) (*ssh.ClientConfig, error) {
	credentials := host.Credentials
	if credentials == "" {
		credentials = "localhost"
	}
	secrets := secret.New()
	generic, err := secrets.GetCredentials(ctx, credentials)
	if err != nil {
		return nil, err
	}
	return generic.SSH.Config(ctx)
}

// Close releases all shell sessions held by this service.
func (s *Service) Close() error {
	s.mux.Lock()
	defer s.mux.Unlock()

	var errs []string
	for id, session := range s.sessions {
		if err := session.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("failed to close session %s: %v", id, err))
		}
	}
	s.sessions = map[string]*gosh.Service{}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing sessions: %s", strings.Join(errs, "; "))
	}
	return nil
}
