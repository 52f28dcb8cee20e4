package store

import (
	"fmt"
	"strings"
)

// QuarterConflictError reports epics that were already held by a different
// quarter when a selection replace committed. The replace is all-or-nothing:
// no row changed.
type QuarterConflictError struct {
	EpicIDs []string
}

func (e *QuarterConflictError) Error() string {
	return fmt.Sprintf("epics already assigned to another quarter: %s", strings.Join(e.EpicIDs, ", "))
}

// OverlapError reports the existing assignment that blocked an insert.
// AssignmentID is empty when the overlap was caught by the exclusion
// constraint at commit rather than by the in-transaction check.
type OverlapError struct {
	AssignmentID string
	MemberID     string
}

func (e *OverlapError) Error() string {
	if e.AssignmentID == "" {
		return fmt.Sprintf("member %s has an overlapping assignment", e.MemberID)
	}
	return fmt.Sprintf("member %s has overlapping assignment %s", e.MemberID, e.AssignmentID)
}
