// Package subprocess wraps one subject process behind blocking, individually
// time-bounded line operations. Every timeout kills the subject and reaps it
// before control returns, so no operation ever leaves a live process behind.
package subprocess

import (
	"fmt"
	"os"
	"os/exec"
	"time"
)

// DefaultTimeout bounds each read, write and wait unless overridden.
const DefaultTimeout = 5 * time.Second

// Invocation describes one run of the subject binary. The zero stdin mode is
// a pipe the caller feeds interactively; WithStdinFile switches the subject
// to read a file directly, which makes WriteLine unsupported.
type Invocation struct {
	binary  string
	args    []string
	stdin   string
	timeout time.Duration
}

// Option customizes an invocation.
type Option func(i *Invocation)

// WithStdinFile feeds the subject's stdin from the file at path instead of
// an interactive pipe.
func WithStdinFile(path string) Option {
	return func(i *Invocation) {
		i.stdin = path
	}
}

// WithTimeout overrides the bound applied to each blocking operation.
func WithTimeout(timeout time.Duration) Option {
	return func(i *Invocation) {
		i.timeout = timeout
	}
}

// New returns an invocation of binary with args.
func New(binary string, args []string, options ...Option) *Invocation {
	i := &Invocation{binary: binary, args: args, timeout: DefaultTimeout}
	for _, option := range options {
		option(i)
	}
	return i
}

// Validate checks that the subject binary exists and is executable.
func Validate(binary string) error {
	info, err := os.Stat(binary)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBinaryNotFound, binary)
	}
	if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%w: %s", ErrBinaryNotExecutable, binary)
	}
	return nil
}

// Start spawns the subject process and returns a handle for interacting with
// it. Stdout and stderr are always piped; stdin is piped unless the
// invocation carries a stdin file. Pipe writes are direct syscalls, so
// interactive input is never defeated by userspace buffering.
func (i *Invocation) Start() (*Program, error) {
	cmd := exec.Command(i.binary, i.args...)

	var stdinFile *os.File
	if i.stdin != "" {
		f, err := os.Open(i.stdin)
		if err != nil {
			return nil, fmt.Errorf("open stdin file: %w", err)
		}
		cmd.Stdin = f
		stdinFile = f
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		closeQuietly(stdinFile)
		return nil, fmt.Errorf("pipe stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		closeQuietly(stdinFile)
		return nil, fmt.Errorf("pipe stderr: %w", err)
	}

	program := &Program{cmd: cmd, cmdLine: i.Cmd(), timeout: i.timeout}
	if i.stdin == "" {
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("pipe stdin: %w", err)
		}
		program.stdin = stdin
	}

	if err := cmd.Start(); err != nil {
		closeQuietly(stdinFile)
		return nil, fmt.Errorf("start %s: %w", i.binary, err)
	}
	// The child owns its inherited descriptor; release ours.
	closeQuietly(stdinFile)

	program.stdout = newLineStream(stdout)
	program.stderr = newLineStream(stderr)
	return program, nil
}

// Run starts the subject and waits for it to finish.
func (i *Invocation) Run() (*Result, error) {
	program, err := i.Start()
	if err != nil {
		return nil, err
	}
	return program.Wait()
}

func closeQuietly(f *os.File) {
	if f != nil {
		_ = f.Close()
	}
}
