package planning

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRICEScore_ZeroWhenEffortNotPositive(t *testing.T) {
	assert.Equal(t, 0.0, RICEScore(4, 3, 2, 0))
	assert.Equal(t, 0.0, RICEScore(4, 3, 2, -1))
}

func TestRICEScore_ExactQuotient(t *testing.T) {
	// reach=4 impact=3 confidence=2 effort=2 -> (3*2*4)/2 = 12
	assert.Equal(t, 12.0, RICEScore(4, 3, 2, 2))
	// Fractional result is returned unrounded.
	assert.InDelta(t, 8.0/3.0, RICEScore(2, 2, 2, 3), 1e-12)
}

func TestRICEScore_ZeroInputsZeroScore(t *testing.T) {
	assert.Equal(t, 0.0, RICEScore(0, 3, 2, 4))
	assert.Equal(t, 0.0, RICEScore(4, 0, 2, 4))
	assert.Equal(t, 0.0, RICEScore(4, 3, 0, 4))
}
