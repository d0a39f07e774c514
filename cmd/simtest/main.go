package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/simlang/simtest"
	"github.com/simlang/simtest/runtime/subprocess"
)

const (
	program = "simtest"
	version = "0.1.0"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run drives one harness session. Exit codes follow the usual test-runner
// contract: 0 all cases passed, 1 at least one case failed, 2 the harness
// itself could not run.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	defaults := simtest.DefaultConfig()

	flags := flag.NewFlagSet(program, flag.ContinueOnError)
	flags.SetOutput(stderr)
	var (
		binary    = flags.String("sc", defaults.Binary, "path to the simple compiler")
		fixtures  = flags.String("fixtures", defaults.Fixtures, "path to the fixture tree")
		timeout   = flags.Duration("timeout", defaults.Timeout(), "bound on each exchange with the subject")
		configURL = flags.String("config", "", "optional YAML config file")
		color     = flags.Bool("color", false, "color diffs in failure reports")
		verbose   = flags.Bool("v", false, "report each test case")
		trace     = flags.String("trace", "", "write OpenTelemetry traces to this file")
	)
	flags.Usage = func() {
		fmt.Fprintf(stderr, "usage: %s [flags] [phase ...]\n\nphases default to all of: ast, cst, interpreter, scanner, st\n\n", program)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return 2
	}

	config := defaults
	if *configURL != "" {
		loaded, err := simtest.LoadConfig(ctx, *configURL)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 2
		}
		config = loaded
	}
	// Explicit flags win over the config file.
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "sc":
			config.Binary = *binary
		case "fixtures":
			config.Fixtures = *fixtures
		case "timeout":
			config.TimeoutMs = int(timeout.Milliseconds())
		case "color":
			config.Color = *color
		case "v":
			config.Verbose = *verbose
		}
	})

	if config.Build == nil {
		if code := checkCompiler(stderr, config.Binary); code != 0 {
			return code
		}
	}

	options := []simtest.Option{
		simtest.WithConfig(config),
		simtest.WithPhases(flags.Args()...),
	}
	if *trace != "" {
		options = append(options, simtest.WithTracing(program, version, *trace))
	}
	srv, err := simtest.New(options...)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	defer srv.Close()

	report, err := srv.Run(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	report.Print(stdout, config.Verbose)
	if report.Ok() {
		return 0
	}
	return 1
}

// checkCompiler validates the subject binary up front so a bad -sc value
// gets an actionable message instead of a failed session.
func checkCompiler(stderr io.Writer, binary string) int {
	err := subprocess.Validate(binary)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, subprocess.ErrBinaryNotFound):
		fmt.Fprintf(stderr, "error: simple compiler does not exist: %s (try: %s -sc path/to/sc)\n", binary, program)
	case errors.Is(err, subprocess.ErrBinaryNotExecutable):
		fmt.Fprintf(stderr, "error: simple compiler is not executable: %s (try: chmod +x %s)\n", binary, binary)
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return 2
}
