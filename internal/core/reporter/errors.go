package reporter

import (
	"fmt"
	"strings"
)

// CommitError reports a failed commit against the intel platform.
type CommitError struct {
	Op  string // resource being committed, e.g. "incident"
	Err error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("failed to commit %s: %v", e.Op, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// IsExclusionError reports whether a commit failure message means the value
// is on the platform's exclusion list. The platform exposes no typed error
// code, so the message substring is the only available signal.
func IsExclusionError(msg string) bool {
	return strings.Contains(msg, "exclusion list")
}
