package enums

import (
	"fmt"
	"strings"
)

// ApplicationStatus tracks where a receiver's application sits in the donation lifecycle.
type ApplicationStatus string

const (
	ApplicationStatusOpen        ApplicationStatus = "open"
	ApplicationStatusPending     ApplicationStatus = "pending"
	ApplicationStatusUnavailable ApplicationStatus = "unavailable"
	ApplicationStatusCompleted   ApplicationStatus = "completed"
)

var validApplicationStatuses = []ApplicationStatus{
	ApplicationStatusOpen,
	ApplicationStatusPending,
	ApplicationStatusUnavailable,
	ApplicationStatusCompleted,
}

// String implements fmt.Stringer.
func (s ApplicationStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ApplicationStatus.
func (s ApplicationStatus) IsValid() bool {
	for _, candidate := range validApplicationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseApplicationStatus converts raw input into an ApplicationStatus. Matching is case-insensitive.
func ParseApplicationStatus(value string) (ApplicationStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validApplicationStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid application status %q", value)
}
