package planning

// EffortEntry is one team's effort against one epic within a capacity plan.
// At most one entry exists per (epic, team) pair; missing pairs are zero.
type EffortEntry struct {
	EpicID string
	TeamID string
	Amount float64
}

// EpicTotals sums effort per epic across all teams in the plan.
func EpicTotals(entries []EffortEntry) map[string]float64 {
	totals := make(map[string]float64)
	for _, entry := range entries {
		totals[entry.EpicID] += entry.Amount
	}
	return totals
}

// TeamTotals sums effort per team across all epics in the plan.
func TeamTotals(entries []EffortEntry) map[string]float64 {
	totals := make(map[string]float64)
	for _, entry := range entries {
		totals[entry.TeamID] += entry.Amount
	}
	return totals
}
