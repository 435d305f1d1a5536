package trust

import "math"

// ComputeScore floors the raw sum at zero, applies the multiplier, rounds half away from zero
// and clamps into [MinScore, MaxScore].
func ComputeScore(raw int64, multiplier float64) int64 {
	base := max(0, raw)
	return Clamp(int64(math.Round(float64(base) * multiplier)))
}

func Clamp(score int64) int64 {
	return min(MaxScore, max(MinScore, score))
}
