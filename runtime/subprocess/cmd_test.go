package subprocess

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvocation_Cmd(t *testing.T) {
	testCases := []struct {
		description string
		invocation  *Invocation
		expected    string
	}{
		{
			description: "plain arguments",
			invocation:  New("/usr/bin/sc", []string{"-s", "fixtures/add.sim"}),
			expected:    "/usr/bin/sc -s fixtures/add.sim",
		},
		{
			description: "argument needing quotes",
			invocation:  New("/usr/bin/sc", []string{"-c", "echo hi"}),
			expected:    "/usr/bin/sc -c 'echo hi'",
		},
		{
			description: "argument with a single quote",
			invocation:  New("/usr/bin/sc", []string{"it's"}),
			expected:    `/usr/bin/sc 'it'"'"'s'`,
		},
		{
			description: "empty argument",
			invocation:  New("/usr/bin/sc", []string{""}),
			expected:    "/usr/bin/sc ''",
		},
		{
			description: "stdin redirect",
			invocation:  New("/usr/bin/sc", []string{"-i"}, WithStdinFile("fixtures/add.sim")),
			expected:    "/usr/bin/sc -i < fixtures/add.sim",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.invocation.Cmd())
		})
	}
}

func TestRelativeToCwd(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	assert.Equal(t, "./sc", RelativeToCwd(filepath.Join(cwd, "sc"), true))
	assert.Equal(t, filepath.Join("fixtures", "add.sim"), RelativeToCwd(filepath.Join(cwd, "fixtures", "add.sim"), false))
	assert.Equal(t, "/usr/bin/cat", RelativeToCwd("/usr/bin/cat", true))
	assert.Equal(t, "./sc", RelativeToCwd("./sc", true))
}

func TestValidate(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "sc")
	assert.ErrorIs(t, Validate(missing), ErrBinaryNotFound)

	plain := filepath.Join(t.TempDir(), "sc")
	require.NoError(t, os.WriteFile(plain, []byte("#!/bin/sh\n"), 0o644))
	assert.ErrorIs(t, Validate(plain), ErrBinaryNotExecutable)

	assert.NoError(t, Validate("/bin/sh"))
}
