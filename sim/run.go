package sim

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/gillespy-xyz/go-gillespy/results"
)

// TrajectoryFunc computes one realization. Implementations check ctx
// between steps and mark the trajectory timed out when it expires.
type TrajectoryFunc func(ctx context.Context, idx int, rng *rand.Rand) *results.Trajectory

// RunParallel executes cfg.Trajectories realizations concurrently, one
// goroutine each. Trajectory k is seeded with (cfg.Seed, k) so results
// are reproducible regardless of scheduling. When cfg.Timeout is set,
// the shared context expires after that wall-clock duration.
func RunParallel(ctx context.Context, cfg Config, fn TrajectoryFunc) []*results.Trajectory {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	trajs := make([]*results.Trajectory, cfg.Trajectories)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Trajectories; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			trajs[idx] = fn(ctx, idx, NewRand(cfg.Seed, uint64(idx)))
		}(i)
	}
	wg.Wait()
	return trajs
}
