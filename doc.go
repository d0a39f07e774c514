// Package simtest is a conformance harness for implementations of the
// simple language toolchain.
//
// The harness drives a subject compiler binary against a tree of fixtures
// and comes with pluggable service layers such as:
//
//   - fixture     – discovery and pairing of programs with expectations
//   - toolchain   – building the subject binary, locally or over SSH
//   - conformance – replaying expectations against a live subject
//   - subprocess  – time-bounded line exchange with the subject process
//
// Each compiler phase is exercised through its own expectation files: batch
// phases compare the subject's whole stdout against the expected text, while
// the interpreter phase replays a scripted stdin/stdout dialogue line by
// line. End-users typically interact via the high-level Service façade
// exposed by the root package:
//
//	srv, _ := simtest.New(simtest.WithBinary("./sc"))
//	report, _ := srv.Run(ctx)
//	report.Print(os.Stdout, false)
//
// For more details see the README and individual sub-packages.
package simtest
