package subprocess

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shInvocation(script string, options ...Option) *Invocation {
	return New("/bin/sh", []string{"-c", script}, options...)
}

func TestProgram_interactiveEcho(t *testing.T) {
	program, err := shInvocation(`while read line; do echo "$line"; done`).Start()
	require.NoError(t, err)
	defer program.Close()

	assert.NoError(t, program.WriteLine("7\n"))
	line, err := program.ReadLine()
	assert.NoError(t, err)
	assert.Equal(t, "7\n", line)

	assert.NoError(t, program.WriteLine("-12\n"))
	line, err = program.ReadLine()
	assert.NoError(t, err)
	assert.Equal(t, "-12\n", line)

	result, err := program.Wait()
	require.NoError(t, err)
	assert.Equal(t, "", result.Stdout)
	assert.Equal(t, "", result.Stderr)
	assert.Equal(t, 0, result.ExitCode)
}

func TestProgram_waitCollectsRemainders(t *testing.T) {
	program, err := shInvocation(`echo a; echo b; echo oops >&2; exit 3`).Start()
	require.NoError(t, err)

	line, err := program.ReadLine()
	assert.NoError(t, err)
	assert.Equal(t, "a\n", line)

	result, err := program.Wait()
	require.NoError(t, err)
	assert.Equal(t, "b\n", result.Stdout)
	assert.Equal(t, "oops\n", result.Stderr)
	assert.Equal(t, 3, result.ExitCode)
	assert.True(t, result.Failed())
}

func TestProgram_readLineEOF(t *testing.T) {
	program, err := shInvocation(`exit 0`).Start()
	require.NoError(t, err)
	defer program.Close()

	line, err := program.ReadLine()
	assert.NoError(t, err)
	assert.Equal(t, "", line)
}

func TestProgram_readLineTimeoutKillsSubject(t *testing.T) {
	program, err := shInvocation(`sleep 5`, WithTimeout(50*time.Millisecond)).Start()
	require.NoError(t, err)

	started := time.Now()
	_, err = program.ReadLine()
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(started), 2*time.Second)

	// The subject was reaped before the timeout propagated.
	assert.NotNil(t, program.cmd.ProcessState)
	result := program.Result()
	require.NotNil(t, result)
	assert.Equal(t, -1, result.ExitCode)
}

func TestProgram_waitTimeoutKillsSubject(t *testing.T) {
	program, err := shInvocation(`sleep 5`, WithTimeout(50*time.Millisecond)).Start()
	require.NoError(t, err)

	_, err = program.Wait()
	assert.ErrorIs(t, err, ErrTimeout)
	assert.NotNil(t, program.cmd.ProcessState)
}

func TestProgram_writeLineTimeoutOnFullPipe(t *testing.T) {
	program, err := shInvocation(`sleep 5`, WithTimeout(50*time.Millisecond)).Start()
	require.NoError(t, err)

	// Larger than any kernel pipe buffer, so the write blocks until killed.
	line := strings.Repeat("x", 1<<20) + "\n"
	err = program.WriteLine(line)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.NotNil(t, program.cmd.ProcessState)
}

func TestProgram_writeLineRequiresNewline(t *testing.T) {
	program, err := shInvocation(`read line`).Start()
	require.NoError(t, err)
	defer program.Close()

	assert.Error(t, program.WriteLine("7"))
}

func TestProgram_writeLineUnavailableWithStdinFile(t *testing.T) {
	simFile := filepath.Join(t.TempDir(), "input.sim")
	require.NoError(t, os.WriteFile(simFile, []byte("7\n"), 0o644))

	program, err := New("/bin/cat", nil, WithStdinFile(simFile)).Start()
	require.NoError(t, err)
	defer program.Close()

	assert.ErrorIs(t, program.WriteLine("7\n"), ErrStdinUnavailable)
}

func TestInvocation_runWithStdinFile(t *testing.T) {
	simFile := filepath.Join(t.TempDir(), "input.sim")
	require.NoError(t, os.WriteFile(simFile, []byte("5\n7\n"), 0o644))

	result, err := New("/bin/cat", nil, WithStdinFile(simFile)).Run()
	require.NoError(t, err)
	assert.Equal(t, "5\n7\n", result.Stdout)
	assert.Equal(t, "", result.Stderr)
	assert.Equal(t, 0, result.ExitCode)
	assert.False(t, result.Failed())
}

func TestInvocation_runClosesInteractiveStdin(t *testing.T) {
	// cat with a piped stdin finishes only because Wait closes the pipe.
	result, err := New("/bin/cat", nil).Run()
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
}

func TestProgram_closeIsIdempotent(t *testing.T) {
	program, err := shInvocation(`sleep 5`).Start()
	require.NoError(t, err)

	assert.NoError(t, program.Close())
	assert.NoError(t, program.Close())
	assert.NotNil(t, program.Result())
}

func TestProgram_closeAfterWait(t *testing.T) {
	program, err := shInvocation(`exit 0`).Start()
	require.NoError(t, err)

	result, err := program.Wait()
	require.NoError(t, err)
	assert.NoError(t, program.Close())
	assert.Same(t, result, program.Result())
}
