package sim

import (
	"math"
	"math/rand/v2"
)

// NewRand creates a seedable generator for one trajectory. Trajectory k
// of a run seeded with s uses NewRand(s, k) so runs are reproducible and
// trajectories are independent.
func NewRand(seed int64, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), stream))
}

// Exponential draws from Exp(rate).
func Exponential(rng *rand.Rand, rate float64) float64 {
	return rng.ExpFloat64() / rate
}

// LogUniform draws ln(U) for U uniform on (0,1). The result is strictly
// negative; a zero draw is rejected and retried.
func LogUniform(rng *rand.Rand) float64 {
	for {
		u := rng.Float64()
		if u > 0 {
			return math.Log(u)
		}
	}
}

// Poisson draws from a Poisson distribution with the given mean. Small
// means use Knuth's product method; large means use a normal
// approximation, clamped at zero.
func Poisson(rng *rand.Rand, mean float64) int64 {
	if mean <= 0 {
		return 0
	}
	if mean < 30 {
		limit := math.Exp(-mean)
		var k int64
		p := 1.0
		for {
			p *= rng.Float64()
			if p <= limit {
				return k
			}
			k++
		}
	}
	n := math.Round(mean + math.Sqrt(mean)*rng.NormFloat64())
	if n < 0 {
		return 0
	}
	return int64(n)
}
