// Package progress defines primitives for reporting and aggregating the
// progress of a conformance session driven by the harness.  It abstracts
// away the underlying communication mechanism so that callers can consume
// per-case updates in a uniform way regardless of whether they feed a
// terminal progress line, a log or an external observer.
package progress
