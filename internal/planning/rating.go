// Package planning holds the pure allocation and scoring rules: star-rating
// classification, RICE scoring, capacity aggregation, and assignment overlap
// checks. Nothing in here touches storage or the network.
package planning

// EffortUnit selects which rating band configuration applies to a plan.
type EffortUnit string

const (
	UnitSprints EffortUnit = "SPRINTS"
	UnitDays    EffortUnit = "DAYS"
)

// ValidUnit reports whether the string is a known effort unit.
func ValidUnit(unit string) bool {
	switch EffortUnit(unit) {
	case UnitSprints, UnitDays:
		return true
	}
	return false
}

// RatingConfig describes the five effort bands for one product and unit.
// Bands are caller-configured and may contain gaps or overlaps; Classify
// stays deterministic for both rather than rejecting the config.
type RatingConfig struct {
	Star1Max float64 `json:"star1Max"`
	Star2Min float64 `json:"star2Min"`
	Star2Max float64 `json:"star2Max"`
	Star3Min float64 `json:"star3Min"`
	Star3Max float64 `json:"star3Max"`
	Star4Min float64 `json:"star4Min"`
	Star4Max float64 `json:"star4Max"`
	Star5Min float64 `json:"star5Min"`
}

// Classify maps a total effort to a 1-5 star rating. The first matching band
// wins, walking up from one star. A total falling in a gap between bands is
// resolved against the next band's minimum. Always returns a value in 1..5.
func Classify(total float64, cfg RatingConfig) int {
	switch {
	case total <= cfg.Star1Max:
		return 1
	case total >= cfg.Star2Min && total <= cfg.Star2Max:
		return 2
	case total >= cfg.Star3Min && total <= cfg.Star3Max:
		return 3
	case total >= cfg.Star4Min && total <= cfg.Star4Max:
		return 4
	case total >= cfg.Star5Min:
		return 5
	}

	// Gap between bands: attribute the total to the band whose minimum it
	// falls short of, walking up from two stars.
	switch {
	case total < cfg.Star2Min:
		return 2
	case total < cfg.Star3Min:
		return 3
	case total < cfg.Star4Min:
		return 4
	case total < cfg.Star5Min:
		return 4
	}
	return 5
}
