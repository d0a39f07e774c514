package conformance

// Kind classifies a conformance failure by the stage that detected it.
type Kind string

const (
	// KindExpectation reports a divergence between a scripted directive and
	// the behavior the subject actually exhibited.
	KindExpectation Kind = "expectation"

	// KindTimeout reports an exchange that exceeded its deadline; the subject
	// has been killed and reaped by the time the failure surfaces.
	KindTimeout Kind = "timeout"

	// KindPostCondition reports leftover output or a wrong exit-code class
	// discovered after every directive was satisfied.
	KindPostCondition Kind = "post-condition"
)

// Failure describes a conformance violation. It is an error so callers can
// propagate it alongside infrastructure errors, yet the two stay separable
// with errors.As: a Failure indicts the subject, anything else the harness.
type Failure struct {
	Kind    Kind
	Message string
}

// Error returns the rendered failure report.
func (f *Failure) Error() string {
	return f.Message
}

// violation is the pre-rendered form of an expectation failure: what the
// directive demanded and what the subject produced, both as terminated lines.
type violation struct {
	kind     Kind
	message  string
	expected []string
	actual   []string
}
