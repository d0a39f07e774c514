package script

import "strconv"

// Directive is a single expectation parsed from a script line. The set of
// implementations is closed: the conformance runner replays a script with a
// type switch over the kinds below, so adding a kind is a compile-visible
// change there.
type Directive interface {
	// Source returns the script line the directive was parsed from.
	Source() Line

	// String renders the directive for diagnostic context. It returns the
	// raw script line, newline terminator included.
	String() string

	isDirective()
}

// ExpectOutput expects the subject's next stdout line to be Value rendered
// in decimal followed by a newline.
type ExpectOutput struct {
	Value  int32
	source Line
}

// Expected returns the exact stdout line the subject has to produce.
func (d *ExpectOutput) Expected() string {
	return strconv.FormatInt(int64(d.Value), 10) + "\n"
}

func (d *ExpectOutput) Source() Line   { return d.source }
func (d *ExpectOutput) String() string { return d.source.Text }
func (d *ExpectOutput) isDirective()   {}

// ExpectError expects the subject's next stderr line to start with the
// diagnostic prefix. The message text after the prefix is not checked.
type ExpectError struct {
	source Line
}

func (d *ExpectError) Source() Line   { return d.source }
func (d *ExpectError) String() string { return d.source.Text }
func (d *ExpectError) isDirective()   {}

// SendInput writes Payload verbatim to the subject's stdin. Payload is the
// script line minus the input prefix, comment-stripped and always newline
// terminated.
type SendInput struct {
	Payload Line
	source  Line
}

func (d *SendInput) Source() Line   { return d.source }
func (d *SendInput) String() string { return d.source.Text }
func (d *SendInput) isDirective()   {}

// Blank is a comment or whitespace-only line. It expects nothing and is kept
// so diagnostic context renders the script as written.
type Blank struct {
	source Line
}

func (d *Blank) Source() Line   { return d.source }
func (d *Blank) String() string { return d.source.Text }
func (d *Blank) isDirective()   {}
