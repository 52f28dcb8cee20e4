package planning

import (
	"errors"
	"time"
)

// ErrInvertedRange rejects assignment ranges whose end precedes their start.
var ErrInvertedRange = errors.New("start date is after end date")

// DateRange is an inclusive calendar interval. Both endpoints count: an
// assignment ending Jan 10 still occupies Jan 10.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Validate checks the mandatory start <= end invariant.
func (r DateRange) Validate() error {
	if r.End.Before(r.Start) {
		return ErrInvertedRange
	}
	return nil
}

// Overlaps reports whether two inclusive ranges share at least one day:
// s1 <= e2 && s2 <= e1.
func (r DateRange) Overlaps(other DateRange) bool {
	return !r.Start.After(other.End) && !other.Start.After(r.End)
}

// Assignment is a member's committed date range, as seen by the checker.
type Assignment struct {
	ID       string
	MemberID string
	Range    DateRange
}

// FirstConflict returns the first existing assignment for the member that
// overlaps the proposed range, or nil when the member is free. Assignments
// for other members never conflict.
func FirstConflict(memberID string, proposed DateRange, existing []Assignment) *Assignment {
	for i := range existing {
		if existing[i].MemberID != memberID {
			continue
		}
		if proposed.Overlaps(existing[i].Range) {
			return &existing[i]
		}
	}
	return nil
}

// IsAvailable reports whether the member has no overlapping assignment in
// the proposed range. Advisory at the edge; the store re-checks at commit.
func IsAvailable(memberID string, proposed DateRange, existing []Assignment) bool {
	return FirstConflict(memberID, proposed, existing) == nil
}
