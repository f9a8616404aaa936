package matchmaking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTolerancePercent(t *testing.T) {
	cases := []struct {
		minutes float64
		want    float64
	}{
		{0, 0.3},
		{1.5, 0.3},
		{2, 0.3},
		{2.01, 1.0},
		{4, 1.0},
		{4.5, 3.0},
		{6, 3.0},
		{6.01, 10.0},
		{120, 10.0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, tolerancePercent(c.minutes), "minutes=%v", c.minutes)
	}
}

func TestRangeByTolerance(t *testing.T) {
	cases := []struct {
		name  string
		wager int64
		tol   float64
		want  WagerRange
	}{
		{"fresh entry, wager 1000", 1000, 0.3, WagerRange{997, 1003}},
		{"widest tier, wager 1000", 1000, 10.0, WagerRange{900, 1100}},
		{"delta floors to zero", 25, 0.3, WagerRange{25, 25}},
		{"minimum wager", 1, 10.0, WagerRange{1, 1}},
		{"lower bound clamped to 1", 2, 100.0, WagerRange{1, 4}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, rangeByTolerance(c.wager, c.tol))
		})
	}
}

func TestWagerRangeContains(t *testing.T) {
	r := WagerRange{Min: 997, Max: 1003}

	assert.True(t, r.Contains(997))
	assert.True(t, r.Contains(1000))
	assert.True(t, r.Contains(1003))
	assert.False(t, r.Contains(996))
	assert.False(t, r.Contains(1004))
}
