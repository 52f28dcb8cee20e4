package planning

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// contiguousConfig has no gaps and no overlaps: 0-2, 3-5, 6-8, 9-11, 12+.
var contiguousConfig = RatingConfig{
	Star1Max: 2,
	Star2Min: 3, Star2Max: 5,
	Star3Min: 6, Star3Max: 8,
	Star4Min: 9, Star4Max: 11,
	Star5Min: 12,
}

func TestClassify_BandLowerBounds(t *testing.T) {
	assert.Equal(t, 1, Classify(0, contiguousConfig))
	assert.Equal(t, 2, Classify(3, contiguousConfig))
	assert.Equal(t, 3, Classify(6, contiguousConfig))
	assert.Equal(t, 4, Classify(9, contiguousConfig))
	assert.Equal(t, 5, Classify(12, contiguousConfig))
}

func TestClassify_BandUpperBounds(t *testing.T) {
	assert.Equal(t, 1, Classify(2, contiguousConfig))
	assert.Equal(t, 2, Classify(5, contiguousConfig))
	assert.Equal(t, 3, Classify(8, contiguousConfig))
	assert.Equal(t, 4, Classify(11, contiguousConfig))
	assert.Equal(t, 5, Classify(500, contiguousConfig))
}

func TestClassify_ZeroAndNegativeTotals(t *testing.T) {
	// Zero and negative totals land in band one whenever star1Max >= 0.
	assert.Equal(t, 1, Classify(0, contiguousConfig))
	assert.Equal(t, 1, Classify(-3, contiguousConfig))
}

func TestClassify_MonotonicForContiguousConfig(t *testing.T) {
	previous := 0
	for total := 0.0; total <= 20; total += 0.5 {
		rating := Classify(total, contiguousConfig)
		assert.GreaterOrEqual(t, rating, previous, "rating regressed at total=%v", total)
		assert.GreaterOrEqual(t, rating, 1)
		assert.LessOrEqual(t, rating, 5)
		previous = rating
	}
}

func TestClassify_GapBetweenBands(t *testing.T) {
	// 0-2, then nothing until 5-7: totals 3 and 4 fall in the gap and
	// resolve against the next band minimum.
	gapped := RatingConfig{
		Star1Max: 2,
		Star2Min: 5, Star2Max: 7,
		Star3Min: 8, Star3Max: 10,
		Star4Min: 11, Star4Max: 13,
		Star5Min: 14,
	}
	assert.Equal(t, 2, Classify(3, gapped))
	assert.Equal(t, 2, Classify(4, gapped))
	assert.Equal(t, 2, Classify(5, gapped))
}

func TestClassify_GapAboveBandFour(t *testing.T) {
	// Gap between star4Max and star5Min resolves to 4, matching the
	// ladder's deliberate repeat of band four below star5Min.
	gapped := RatingConfig{
		Star1Max: 1,
		Star2Min: 2, Star2Max: 3,
		Star3Min: 4, Star3Max: 5,
		Star4Min: 6, Star4Max: 7,
		Star5Min: 10,
	}
	assert.Equal(t, 4, Classify(8, gapped))
	assert.Equal(t, 4, Classify(9, gapped))
	assert.Equal(t, 5, Classify(10, gapped))
}

func TestClassify_OverlappingBandsFirstMatchWins(t *testing.T) {
	overlapping := RatingConfig{
		Star1Max: 5,
		Star2Min: 3, Star2Max: 8,
		Star3Min: 6, Star3Max: 12,
		Star4Min: 10, Star4Max: 16,
		Star5Min: 14,
	}
	// 4 is inside both band one and band two; band one wins.
	assert.Equal(t, 1, Classify(4, overlapping))
	// 7 is inside bands two and three; band two wins.
	assert.Equal(t, 2, Classify(7, overlapping))
	assert.Equal(t, 5, Classify(20, overlapping))
}

func TestClassify_AlwaysInRange(t *testing.T) {
	configs := []RatingConfig{
		contiguousConfig,
		{}, // all-zero config is degenerate but must not escape 1..5
		{Star1Max: -1, Star2Min: 100, Star2Max: 50, Star5Min: 1000},
	}
	for _, cfg := range configs {
		for total := -5.0; total <= 30; total++ {
			rating := Classify(total, cfg)
			assert.GreaterOrEqual(t, rating, 1)
			assert.LessOrEqual(t, rating, 5)
		}
	}
}

func TestValidUnit(t *testing.T) {
	assert.True(t, ValidUnit("SPRINTS"))
	assert.True(t, ValidUnit("DAYS"))
	assert.False(t, ValidUnit("sprints"))
	assert.False(t, ValidUnit("WEEKS"))
	assert.False(t, ValidUnit(""))
}
