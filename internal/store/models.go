package store

import (
	"time"

	"quarterdeck/api/internal/planning"
)

// Epic is the canonical backlog record; one row per (product, epic id).
type Epic struct {
	ID           string
	ProductID    string
	Name         string
	Description  string
	ThemeID      string
	InitiativeID string
	Track        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EffortEntry is one team's effort against one epic within a plan. At most
// one row per (epic, team) pair; absent pairs are implicitly zero.
type EffortEntry struct {
	EpicID string
	TeamID string
	Amount float64
	Notes  string
}

// CapacityPlan carries the effort entries for one product quarter. Absence
// of a plan row is a valid empty state, not an error.
type CapacityPlan struct {
	ProductID  string
	Year       int
	Quarter    int
	EffortUnit planning.EffortUnit
	Entries    []EffortEntry
	UpdatedAt  time.Time
}

// RatingConfig is the persisted band configuration for one product and unit.
type RatingConfig struct {
	ProductID string
	UnitType  planning.EffortUnit
	Bands     planning.RatingConfig
	UpdatedAt time.Time
}

// RoadmapItem is one epic's placement in one quarter. The global uniqueness
// of (product_id, epic_id) across all quarters is enforced in the schema.
type RoadmapItem struct {
	ProductID    string
	Year         int
	Quarter      int
	EpicID       string
	Reach        int
	Impact       int
	Confidence   int
	EffortRating int
	RiceScore    float64
	Status       string
	Published    bool
	StartDate    *time.Time
	EndDate      *time.Time
	UpdatedAt    time.Time
}

// Team is scoped to a product and planning period.
type Team struct {
	ID          string
	ProductID   string
	Year        int
	Quarter     int
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
}

type TeamMember struct {
	ID         string
	TeamID     string
	MemberName string
	Role       string
	CreatedAt  time.Time
}

// ResourceAssignment commits one member to one user story over an inclusive
// date range.
type ResourceAssignment struct {
	ID          string
	ProductID   string
	UserStoryID string
	MemberID    string
	StartDate   time.Time
	EndDate     time.Time
	CreatedAt   time.Time
}
