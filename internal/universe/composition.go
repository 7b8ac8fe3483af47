package universe

import (
	"math"
	"math/rand"
	"sort"

	"starbase-server/internal/resources"
)

// rollComposition distributes an asteroid's rolled value across a small set
// of mineral deposits. Pool draws are weighted by rarity, per-pool share caps
// are enforced with overflow spilling into lower pools, and a final rounding
// correction makes the deposit sum exactly equal the value.
func rollComposition(rng *rand.Rand, value int, forcePool *resources.Pool) []Deposit {
	if value <= 0 {
		return nil
	}

	draws := 1 + rng.Intn(3)
	ratios := make(map[resources.Type]float64)

	for i := 0; i < draws; i++ {
		pool := resources.RollPool(rng.Intn(resources.PoolWeightTotal))
		if forcePool != nil {
			pool = *forcePool
		}
		types := resources.ByPool[pool]
		picked := types[rng.Intn(len(types))]
		ratios[picked] += 0.5 + rng.Float64()
	}

	amounts := normalize(ratios, float64(value))
	applyPoolCaps(rng, amounts, float64(value))
	return roundToValue(amounts, value)
}

func normalize(ratios map[resources.Type]float64, value float64) map[resources.Type]float64 {
	var total float64
	for _, r := range ratios {
		total += r
	}

	amounts := make(map[resources.Type]float64, len(ratios))
	for t, r := range ratios {
		amounts[t] = r / total * value
	}
	return amounts
}

// applyPoolCaps trims every pool that exceeds its max share of the total
// value and redistributes the overflow into pools that still have headroom.
// The low pool has a share of 1.0, so a filler mineral from it can always
// absorb whatever the rarer pools reject.
func applyPoolCaps(rng *rand.Rand, amounts map[resources.Type]float64, value float64) {
	var overflow float64

	for _, pool := range []resources.Pool{resources.PoolExtreme, resources.PoolHigh, resources.PoolMedium} {
		poolCap := value * resources.PoolMaxShare[pool]
		total := poolTotal(amounts, pool)
		if total <= poolCap {
			continue
		}

		scale := poolCap / total
		for t := range amounts {
			if resources.PoolOf(t) == pool {
				amounts[t] *= scale
			}
		}
		overflow += total - poolCap
	}

	if overflow <= 0 {
		return
	}

	// Spill into existing deposits whose pools have headroom, weighted by
	// their current size.
	var receivers []resources.Type
	var receiverTotal float64
	for t, amount := range amounts {
		pool := resources.PoolOf(t)
		headroom := value*resources.PoolMaxShare[pool] - poolTotal(amounts, pool)
		if headroom > overflow/float64(len(amounts)) {
			receivers = append(receivers, t)
			receiverTotal += amount
		}
	}

	if len(receivers) == 0 || receiverTotal == 0 {
		lowTypes := resources.ByPool[resources.PoolLow]
		filler := lowTypes[rng.Intn(len(lowTypes))]
		amounts[filler] += overflow
		return
	}

	sort.Slice(receivers, func(i, j int) bool { return receivers[i] < receivers[j] })
	remaining := overflow
	for _, t := range receivers {
		want := overflow * amounts[t] / receiverTotal
		pool := resources.PoolOf(t)
		headroom := value*resources.PoolMaxShare[pool] - poolTotal(amounts, pool)
		if want > headroom {
			want = headroom
		}
		if want > remaining {
			want = remaining
		}
		if want <= 0 {
			continue
		}
		amounts[t] += want
		remaining -= want
	}

	// Whatever the receivers could not take lands on a low-pool filler,
	// whose share cap is the whole value.
	if remaining > 1e-9 {
		lowTypes := resources.ByPool[resources.PoolLow]
		filler := lowTypes[rng.Intn(len(lowTypes))]
		amounts[filler] += remaining
	}
}

func poolTotal(amounts map[resources.Type]float64, pool resources.Pool) float64 {
	var total float64
	for t, amount := range amounts {
		if resources.PoolOf(t) == pool {
			total += amount
		}
	}
	return total
}

// roundToValue floors every amount and hands the leftover units out one at a
// time, preferring minerals whose pool can still take them, so the deposit
// sum lands exactly on value without breaking a pool cap.
func roundToValue(amounts map[resources.Type]float64, value int) []Deposit {
	types := make([]resources.Type, 0, len(amounts))
	for t := range amounts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	floors := make(map[resources.Type]int64, len(types))
	var sum int64
	for _, t := range types {
		floors[t] = int64(math.Floor(amounts[t]))
		sum += floors[t]
	}

	remainder := int64(value) - sum
	for remainder > 0 {
		// Largest fractional part first, but skip minerals whose pool is at
		// its cap unless nothing else can take the unit.
		best := pickRemainderTarget(types, amounts, floors, int64(value), true)
		if best == "" {
			best = pickRemainderTarget(types, amounts, floors, int64(value), false)
		}
		floors[best]++
		amounts[best] = float64(floors[best])
		remainder--
	}

	deposits := make([]Deposit, 0, len(types))
	for _, t := range types {
		if floors[t] <= 0 {
			continue
		}
		deposits = append(deposits, Deposit{Resource: t, Amount: floors[t]})
	}
	return deposits
}

func pickRemainderTarget(types []resources.Type, amounts map[resources.Type]float64, floors map[resources.Type]int64, value int64, respectCaps bool) resources.Type {
	var best resources.Type
	bestFraction := -1.0

	for _, t := range types {
		if respectCaps {
			pool := resources.PoolOf(t)
			poolCap := int64(math.Ceil(float64(value) * resources.PoolMaxShare[pool]))
			var poolSum int64
			for _, other := range types {
				if resources.PoolOf(other) == pool {
					poolSum += floors[other]
				}
			}
			if poolSum+1 > poolCap {
				continue
			}
		}

		fraction := amounts[t] - math.Floor(amounts[t])
		if fraction > bestFraction {
			bestFraction = fraction
			best = t
		}
	}

	return best
}
