package scanner

import (
	"fmt"
	"strings"
)

// RestrictionReason categorizes why du could not read a path
type RestrictionReason int

const (
	RestrictionPermissionDenied RestrictionReason = iota
	RestrictionNotPermitted
)

// String returns the message du printed for the reason
func (r RestrictionReason) String() string {
	switch r {
	case RestrictionPermissionDenied:
		return "Permission denied"
	case RestrictionNotPermitted:
		return "Operation not permitted"
	default:
		return "Unspecified restriction"
	}
}

// MetricLabel is the reason as used in metric labels
func (r RestrictionReason) MetricLabel() string {
	switch r {
	case RestrictionPermissionDenied:
		return "permission_denied"
	case RestrictionNotPermitted:
		return "not_permitted"
	default:
		return "unknown"
	}
}

func parseReason(msg string) RestrictionReason {
	if strings.EqualFold(msg, "Operation not permitted") {
		return RestrictionNotPermitted
	}
	return RestrictionPermissionDenied
}

// ExitError reports a size-listing run that ended with a code other than
// 0 (clean) or 1 (finished with per-file errors).
type ExitError struct {
	Code   int
	Stderr string // Tail of the diagnostic stream
}

// Error implements the error interface
func (e *ExitError) Error() string {
	return fmt.Sprintf("du exited with code %d", e.Code)
}

// acceptableExit reports whether code still means the listing completed
func acceptableExit(code int) bool {
	return code == 0 || code == 1
}
