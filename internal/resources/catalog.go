package resources

// Pool is a rarity tier of minerals. Pool membership drives spawn weighting,
// the per-asteroid share cap and the minimum spawn distance to stations.
type Pool string

const (
	PoolLow     Pool = "low"
	PoolMedium  Pool = "medium"
	PoolHigh    Pool = "high"
	PoolExtreme Pool = "extreme"
)

type Type string

const (
	Carbon        Type = "Carbon"
	Titanium      Type = "Titanium"
	Hydrogenium   Type = "Hydrogenium"
	Cobalt        Type = "Cobalt"
	Iridium       Type = "Iridium"
	Uraninite     Type = "Uraninite"
	Thorium       Type = "Thorium"
	Astatine      Type = "Astatine"
	Hyperdiamond  Type = "Hyperdiamond"
	Kyberkristall Type = "Kyberkristall"
	Dilithium     Type = "Dilithium"
	Deuterium     Type = "Deuterium"
)

var Pools = []Pool{PoolLow, PoolMedium, PoolHigh, PoolExtreme}

var ByPool = map[Pool][]Type{
	PoolLow:     {Carbon, Titanium, Hydrogenium},
	PoolMedium:  {Cobalt, Iridium, Uraninite},
	PoolHigh:    {Thorium, Astatine, Hyperdiamond},
	PoolExtreme: {Kyberkristall, Dilithium, Deuterium},
}

// PoolWeights sum to 1000; a uniform roll in [0,1000) selects the band.
var PoolWeights = map[Pool]int{
	PoolLow:     600,
	PoolMedium:  250,
	PoolHigh:    125,
	PoolExtreme: 25,
}

const PoolWeightTotal = 1000

// PoolMaxShare caps how much of an asteroid's value a single pool may carry.
var PoolMaxShare = map[Pool]float64{
	PoolLow:     1.0,
	PoolMedium:  0.5,
	PoolHigh:    0.3,
	PoolExtreme: 0.2,
}

// PoolDistanceFactor scales the base asteroid-to-station distance: rarer
// deposits must spawn farther from any station.
var PoolDistanceFactor = map[Pool]float64{
	PoolLow:     1.0,
	PoolMedium:  1.5,
	PoolHigh:    2.5,
	PoolExtreme: 4.0,
}

func PoolOf(t Type) Pool {
	for pool, types := range ByPool {
		for _, candidate := range types {
			if candidate == t {
				return pool
			}
		}
	}
	return PoolLow
}

// RollPool maps a uniform roll in [0,PoolWeightTotal) to a pool via the
// cumulative weight table.
func RollPool(roll int) Pool {
	cumulative := 0
	for _, pool := range Pools {
		cumulative += PoolWeights[pool]
		if roll < cumulative {
			return pool
		}
	}
	return PoolLow
}

// RarestPool returns the highest-rarity pool present among the given types.
func RarestPool(types []Type) Pool {
	rank := map[Pool]int{PoolLow: 0, PoolMedium: 1, PoolHigh: 2, PoolExtreme: 3}
	rarest := PoolLow
	for _, t := range types {
		if pool := PoolOf(t); rank[pool] > rank[rarest] {
			rarest = pool
		}
	}
	return rarest
}
