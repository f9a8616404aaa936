package matchmaking

import "math"

// Tolerance ladder: the acceptable opponent-wager band widens with time
// waited in queue. Percentages, keyed by whole minutes waited.
func tolerancePercent(minutes float64) float64 {
	switch {
	case minutes <= 2:
		return 0.3
	case minutes <= 4:
		return 1.0
	case minutes <= 6:
		return 3.0
	default:
		return 10.0
	}
}

// WagerRange is the inclusive band of opponent wagers a waiter will accept.
type WagerRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// rangeByTolerance computes [max(1, wager-delta), wager+delta] where delta is
// the floored tolerance fraction of the wager.
func rangeByTolerance(wager int64, tolPercent float64) WagerRange {
	delta := int64(math.Floor(float64(wager) * tolPercent / 100.0))
	min := wager - delta
	if min < 1 {
		min = 1
	}
	return WagerRange{Min: min, Max: wager + delta}
}

// Contains reports whether w falls inside the band.
func (r WagerRange) Contains(w int64) bool {
	return w >= r.Min && w <= r.Max
}
