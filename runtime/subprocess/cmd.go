package subprocess

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Cmd returns the equivalent shell command of the invocation, suitable for
// copy-pasting into a terminal: the binary rendered relative to the working
// directory, arguments shell-quoted, and a stdin redirect when the subject
// reads a file.
func (i *Invocation) Cmd() string {
	parts := make([]string, 0, len(i.args)+1)
	parts = append(parts, RelativeToCwd(i.binary, true))
	parts = append(parts, i.args...)

	cmd := joinCmd(parts)
	if i.stdin != "" {
		cmd += " < " + i.stdin
	}
	return cmd
}

// RelativeToCwd renders path relative to the working directory when the path
// is inside it. For binaries directly in the working directory the leading
// ./ is kept so the rendered command stays runnable.
func RelativeToCwd(path string, binary bool) string {
	if cwd, err := os.Getwd(); err == nil && filepath.IsAbs(path) {
		if rel, err := filepath.Rel(cwd, path); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			path = rel
		}
	}
	if binary && !strings.Contains(path, string(filepath.Separator)) {
		return "./" + path
	}
	return path
}

func joinCmd(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = shellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

var shellSafe = regexp.MustCompile(`^[\w@%+=:,./-]+$`)

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if shellSafe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
