package subprocess

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Program is a running subject process. One owner drives it at a time; the
// operations below never overlap in the conformance protocol. Any timeout
// terminates the subject before returning, after which the remaining stream
// content and exit code stay available through Wait.
type Program struct {
	cmd     *exec.Cmd
	cmdLine string
	timeout time.Duration

	stdin  io.WriteCloser
	stdout *lineStream
	stderr *lineStream

	killOnce sync.Once
	joinOnce sync.Once
	result   *Result
}

// Cmd returns the equivalent shell command of the invocation, for reports.
func (p *Program) Cmd() string {
	return p.cmdLine
}

// WriteLine writes one newline-terminated line to the subject's stdin,
// bounded by the timeout. On timeout the subject is killed and reaped before
// ErrTimeout is returned.
func (p *Program) WriteLine(line string) error {
	if p.stdin == nil {
		return fmt.Errorf("write stdin line: %w", ErrStdinUnavailable)
	}
	if !strings.HasSuffix(line, "\n") {
		return fmt.Errorf("write stdin line: %q is not newline terminated", line)
	}

	done := make(chan error, 1)
	go func() {
		_, err := io.WriteString(p.stdin, line)
		done <- err
	}()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("write stdin line: %w", err)
		}
		return nil
	case <-timer.C:
		p.terminate()
		return fmt.Errorf("write stdin line: %w", ErrTimeout)
	}
}

// ReadLine returns the subject's next stdout line, newline included, bounded
// by the timeout. Once stdout is closed it returns the empty string.
func (p *Program) ReadLine() (string, error) {
	line, err := p.nextLine(p.stdout)
	if err != nil {
		return "", fmt.Errorf("read stdout line: %w", err)
	}
	return line, nil
}

// ReadErrorLine returns the subject's next stderr line under the same
// contract as ReadLine.
func (p *Program) ReadErrorLine() (string, error) {
	line, err := p.nextLine(p.stderr)
	if err != nil {
		return "", fmt.Errorf("read stderr line: %w", err)
	}
	return line, nil
}

// Wait blocks until the subject has closed its streams and exited, bounded
// by the timeout, and returns the terminal snapshot. On timeout the subject
// is killed and reaped before ErrTimeout is returned.
func (p *Program) Wait() (*Result, error) {
	done := make(chan *Result, 1)
	go func() {
		done <- p.join()
	}()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case result := <-done:
		return result, nil
	case <-timer.C:
		p.terminate()
		return nil, fmt.Errorf("wait for program: %w", ErrTimeout)
	}
}

// Close terminates the subject if it is still running and releases every
// stream resource. Safe to call repeatedly and after Wait.
func (p *Program) Close() error {
	p.terminate()
	return nil
}

// Result returns the terminal snapshot once the subject has been reaped, nil
// before that.
func (p *Program) Result() *Result {
	return p.result
}

func (p *Program) nextLine(stream *lineStream) (string, error) {
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case line := <-stream.lines:
		return line, nil
	case <-timer.C:
		p.terminate()
		return "", ErrTimeout
	}
}

// terminate kills the subject and reaps it without a further timeout. It is
// idempotent and converges with a natural exit racing the kill: either way
// the process is confirmed dead when it returns.
func (p *Program) terminate() {
	p.kill()
	p.join()
}

// kill sends the kill signal at most once. Killing a process that already
// exited is a no-op, which is what makes terminate race-free.
func (p *Program) kill() {
	p.killOnce.Do(func() {
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
	})
}

// join closes the interactive stdin, drains both streams to EOF, reaps the
// process and caches the terminal snapshot. It runs its body once; later
// calls block until the first completes and share the cached result.
func (p *Program) join() *Result {
	p.joinOnce.Do(func() {
		if p.stdin != nil {
			_ = p.stdin.Close()
		}
		stderrDone := make(chan string, 1)
		go func() {
			stderrDone <- p.stderr.drain()
		}()
		stdout := p.stdout.drain()
		stderr := <-stderrDone

		// Pipes are fully consumed, reaping is now safe.
		_ = p.cmd.Wait()
		exitCode := -1
		if state := p.cmd.ProcessState; state != nil {
			exitCode = state.ExitCode()
		}
		p.result = &Result{
			Cmd:      p.cmdLine,
			Stdout:   stdout,
			Stderr:   stderr,
			ExitCode: exitCode,
		}
	})
	return p.result
}

// lineStream pumps one pipe into a channel of newline-terminated lines. The
// channel closes when the pipe reaches EOF; a final unterminated chunk is
// delivered as-is before closing.
type lineStream struct {
	lines chan string
}

func newLineStream(r io.Reader) *lineStream {
	s := &lineStream{lines: make(chan string)}
	go func() {
		reader := bufio.NewReader(r)
		for {
			line, err := reader.ReadString('\n')
			if len(line) > 0 {
				s.lines <- line
			}
			if err != nil {
				close(s.lines)
				return
			}
		}
	}()
	return s
}

// drain consumes every remaining line until the stream closes.
func (s *lineStream) drain() string {
	var b strings.Builder
	for line := range s.lines {
		b.WriteString(line)
	}
	return b.String()
}
