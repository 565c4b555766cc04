package hybrid

import (
	"crypto/sha256"

	"github.com/gillespy-xyz/go-gillespy/model"
)

// fieldPlan is the reaction/rate-rule wiring for one partition: which
// reactions contribute flux, which drive jump clocks, and the net
// stoichiometry rows needed by the vector field.
type fieldPlan struct {
	det   []int // reactions integrated as flux
	stoch []int // reactions integrated as propensity clocks
}

// planCache memoizes field plans keyed by the partition hash. A model
// typically revisits a handful of partitions over a whole trajectory,
// so plans are built once and reused. The cache is trajectory-local and
// needs no locking.
type planCache struct {
	plans  map[[sha256.Size]byte]*fieldPlan
	hits   int64
	misses int64
}

func newPlanCache() *planCache {
	return &planCache{plans: make(map[[sha256.Size]byte]*fieldPlan)}
}

// hashPartition hashes the per-reaction flags; species flags are fully
// determined by them for plan purposes.
func hashPartition(p *partition) [sha256.Size]byte {
	buf := make([]byte, len(p.detReaction)+len(p.detSpecies))
	for i, d := range p.detReaction {
		if d {
			buf[i] = 1
		}
	}
	off := len(p.detReaction)
	for i, d := range p.detSpecies {
		if d {
			buf[off+i] = 1
		}
	}
	return sha256.Sum256(buf)
}

// get returns the plan for the partition, building it on first use.
func (c *planCache) get(m *model.Model, p *partition) *fieldPlan {
	key := hashPartition(p)
	if plan, ok := c.plans[key]; ok {
		c.hits++
		return plan
	}
	c.misses++
	plan := &fieldPlan{}
	for j := range m.Reactions {
		if p.detReaction[j] {
			plan.det = append(plan.det, j)
		} else {
			plan.stoch = append(plan.stoch, j)
		}
	}
	c.plans[key] = plan
	return plan
}

// CacheStats reports plan cache effectiveness for one trajectory.
type CacheStats struct {
	Hits   int64
	Misses int64
}

func (c *planCache) stats() CacheStats {
	return CacheStats{Hits: c.hits, Misses: c.misses}
}
