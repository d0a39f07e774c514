package conformance

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simlang/simtest/model/script"
	"github.com/simlang/simtest/runtime/subprocess"
)

func shSubject(body string, options ...subprocess.Option) *subprocess.Invocation {
	return subprocess.New("/bin/sh", []string{"-c", body}, options...)
}

func mustParse(t *testing.T, content string) *script.Script {
	t.Helper()
	scr, err := script.Parse("fixtures/subject.run", content)
	require.NoError(t, err)
	return scr
}

func TestRunner_Run_interactiveExchange(t *testing.T) {
	scr := mustParse(t, "> 5\n5\n\n# echoed back twice\n> 7\n7\n")
	runner := New()

	// A script replays against any number of fresh subjects.
	for i := 0; i < 2; i++ {
		err := runner.Run(context.Background(), scr, shSubject(`while read x; do echo "$x"; done`))
		assert.NoError(t, err)
	}
}

func TestRunner_Run_expectedDiagnostic(t *testing.T) {
	scr := mustParse(t, "> 1\nerror: saw one\n")
	err := New().Run(context.Background(), scr, shSubject(`read x; echo "error: bad input" >&2; exit 1`))
	assert.NoError(t, err)
}

func TestRunner_Run_failures(t *testing.T) {
	var testCases = []struct {
		description string
		content     string
		subject     string
		timeout     time.Duration
		kind        Kind
		message     string
	}{
		{
			description: "unexpected stdout line",
			content:     "5\n",
			subject:     "echo 6",
			kind:        KindExpectation,
			message:     "unexpected stdout line:\n\n--- expected_run\n+++ actual_run\n@@ -1 +1 @@\n-5\n+6\n",
		},
		{
			description: "mismatch replays the satisfied prefix",
			content:     "> 1\n1\n2\n",
			subject:     `read x; echo "$x"; echo 3`,
			kind:        KindExpectation,
			message:     "unexpected stdout line:\n\n--- expected_run\n+++ actual_run\n@@ -1,3 +1,3 @@\n > 1\n 1\n-2\n+3\n",
		},
		{
			description: "unexpected error line",
			content:     "error: any\n",
			subject:     `echo "warning: odd" >&2; exit 1`,
			kind:        KindExpectation,
			message:     "unexpected error line:\n\n--- expected_run\n+++ actual_run\n@@ -1 +1 @@\n-error: any\n+warning: odd\n",
		},
		{
			description: "wait timeout reports context",
			content:     "> 1\n",
			subject:     "read x; sleep 5",
			timeout:     50 * time.Millisecond,
			kind:        KindTimeout,
			message:     "timed out waiting for program to finish\n\ncontext:\n\n> 1\n",
		},
		{
			description: "leftover stdout",
			content:     "1\n",
			subject:     "echo 1; echo 99",
			kind:        KindPostCondition,
			message:     "expected no more stdout\n\ncontext:\n\n1\n\n\nextra stdout:\n\n99\n\n\nstderr:\n\n",
		},
		{
			description: "diagnostic script requires a non-zero exit",
			content:     "error: boom\n",
			subject:     `echo "error: boom" >&2; exit 0`,
			kind:        KindPostCondition,
			message:     "expected non-zero returncode\n\ncontext:\n\nerror: boom\n",
		},
		{
			description: "leftover stderr",
			content:     "1\n",
			subject:     "echo 1; echo oops >&2",
			kind:        KindPostCondition,
			message:     "expected no more stderr\n\ncontext:\n\n1\n\n\nextra stderr:\n\noops\n",
		},
		{
			description: "clean script requires a zero exit",
			content:     "1\n",
			subject:     "echo 1; exit 3",
			kind:        KindPostCondition,
			message:     "expected returncode 0 (got: 3)\n\ncontext:\n\n1\n",
		},
	}

	for _, testCase := range testCases {
		var options []subprocess.Option
		if testCase.timeout != 0 {
			options = append(options, subprocess.WithTimeout(testCase.timeout))
		}
		err := New().Run(context.Background(), mustParse(t, testCase.content), shSubject(testCase.subject, options...))

		var failure *Failure
		if !assert.ErrorAs(t, err, &failure, testCase.description) {
			continue
		}
		assert.Equal(t, testCase.kind, failure.Kind, testCase.description)
		assert.Equal(t, testCase.message, failure.Message, testCase.description)
	}
}

func TestRunner_Run_timeoutKillsSubject(t *testing.T) {
	started := time.Now()
	err := New().Run(context.Background(), mustParse(t, "1\n"),
		shSubject("sleep 5", subprocess.WithTimeout(50*time.Millisecond)))

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, KindTimeout, failure.Kind)
	assert.Equal(t, "timeout while waiting for stdout line:\n\n--- expected_run\n+++ actual_run\n@@ -1 +0,0 @@\n-1\n", failure.Message)
	assert.Less(t, time.Since(started), 2*time.Second)
}

func TestRunner_Run_stdinWriteTimeout(t *testing.T) {
	content := "> " + strings.Repeat("1", 1<<20) + "\n"
	err := New().Run(context.Background(), mustParse(t, content),
		shSubject("sleep 5", subprocess.WithTimeout(50*time.Millisecond)))

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, KindTimeout, failure.Kind)
	assert.True(t, strings.HasPrefix(failure.Message, "timeout while writing line to stdin:"))
}

func TestRunner_Run_coloredReport(t *testing.T) {
	err := New(WithColor(true)).Run(context.Background(), mustParse(t, "5\n"), shSubject("echo 6"))

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "unexpected stdout line:\n\n"+
		"\033[1;31m--- expected_run\n\033[0;0m"+
		"\033[1;32m+++ actual_run\n\033[0;0m"+
		"\033[1;34m@@ -1 +1 @@\n\033[0;0m"+
		"\033[1;31m-5\n\033[0;0m"+
		"\033[1;32m+6\n\033[0;0m", failure.Message)
}

func TestRunner_Run_fileBackedStdinRejectsInputDirectives(t *testing.T) {
	stdin := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(stdin, []byte("1\n"), 0o644))

	err := New().Run(context.Background(), mustParse(t, "> 1\n"),
		subprocess.New("/bin/sh", []string{"-c", "cat >/dev/null"}, subprocess.WithStdinFile(stdin)))

	require.Error(t, err)
	var failure *Failure
	assert.False(t, errors.As(err, &failure))
	assert.ErrorIs(t, err, subprocess.ErrStdinUnavailable)
}
