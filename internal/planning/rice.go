package planning

// RICEScore computes (impact * confidence * reach) / effortRating. The effort
// denominator is the epic's star rating, never the raw capacity total. A
// non-positive effort yields zero rather than dividing. No rounding here;
// display rounding is a presentation concern.
func RICEScore(reach, impact, confidence, effortRating int) float64 {
	if effortRating <= 0 {
		return 0
	}
	return float64(impact*confidence*reach) / float64(effortRating)
}
