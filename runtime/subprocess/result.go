package subprocess

// Result is the terminal snapshot of a finished subject process: the
// equivalent shell command, whatever stdout and stderr remained unconsumed
// when the process was reaped, and its exit code. Immutable.
type Result struct {
	Cmd      string
	Stdout   string
	Stderr   string
	ExitCode int
}

// Failed reports whether the subject signaled failure through its exit code
// or by writing to stderr.
func (r *Result) Failed() bool {
	return len(r.Stderr) != 0 || r.ExitCode != 0
}
