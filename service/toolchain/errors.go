package toolchain

import "errors"

var (
	// ErrArtifactMissing indicates a build reported success but did not leave
	// the declared artifact behind.
	ErrArtifactMissing = errors.New("toolchain: build artifact not found")
)
