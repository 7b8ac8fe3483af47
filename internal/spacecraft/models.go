package spacecraft

import (
	"time"

	"github.com/google/uuid"

	"starbase-server/internal/resources"
)

type Type string

const (
	Merlin   Type = "Merlin"
	Javelin  Type = "Javelin"
	Comet    Type = "Comet"
	Titan    Type = "Titan"
	Nomad    Type = "Nomad"
	Hercules Type = "Hercules"
)

// Spec is the static blueprint of a spacecraft type.
type Spec struct {
	Cargo     int64
	Combat    int64
	Speed     int
	Miner     bool
	BuildTime time.Duration
	Cost      map[resources.Type]int64
}

var Specs = map[Type]Spec{
	Merlin: {
		Cargo: 10, Combat: 40, Speed: 8, BuildTime: 2 * time.Minute,
		Cost: map[resources.Type]int64{resources.Carbon: 120, resources.Titanium: 80},
	},
	Javelin: {
		Cargo: 20, Combat: 120, Speed: 5, BuildTime: 6 * time.Minute,
		Cost: map[resources.Type]int64{resources.Carbon: 300, resources.Titanium: 220, resources.Cobalt: 60},
	},
	Comet: {
		Cargo: 500, Combat: 5, Speed: 6, BuildTime: 4 * time.Minute,
		Cost: map[resources.Type]int64{resources.Carbon: 200, resources.Titanium: 150},
	},
	Titan: {
		Cargo: 2000, Combat: 10, Speed: 3, BuildTime: 12 * time.Minute,
		Cost: map[resources.Type]int64{resources.Carbon: 800, resources.Titanium: 500, resources.Iridium: 120},
	},
	Nomad: {
		Cargo: 150, Combat: 8, Speed: 4, Miner: true, BuildTime: 5 * time.Minute,
		Cost: map[resources.Type]int64{resources.Carbon: 250, resources.Titanium: 180},
	},
	Hercules: {
		Cargo: 600, Combat: 15, Speed: 2, Miner: true, BuildTime: 10 * time.Minute,
		Cost: map[resources.Type]int64{resources.Carbon: 700, resources.Titanium: 450, resources.Uraninite: 90},
	},
}

// Manifest maps spacecraft types to committed counts.
type Manifest map[Type]int

// Cargo sums the cargo capacity of every ship in the manifest.
func (m Manifest) Cargo() int64 {
	var total int64
	for t, count := range m {
		total += Specs[t].Cargo * int64(count)
	}
	return total
}

// Combat sums the combat power of every ship in the manifest.
func (m Manifest) Combat() int64 {
	var total int64
	for t, count := range m {
		total += Specs[t].Combat * int64(count)
	}
	return total
}

// MinerCount counts ships with mining gear aboard.
func (m Manifest) MinerCount() int {
	count := 0
	for t, n := range m {
		if Specs[t].Miner {
			count += n
		}
	}
	return count
}

// ExtractionMultiplier is the fraction of loaded cargo a fleet actually
// extracts: 0.5 base, +0.1 per miner ship, capped at 1.0.
func (m Manifest) ExtractionMultiplier() float64 {
	multiplier := 0.5 + 0.1*float64(m.MinerCount())
	if multiplier > 1.0 {
		multiplier = 1.0
	}
	return multiplier
}

// SlowestSpeed is the fleet's travel speed, set by its slowest ship.
func (m Manifest) SlowestSpeed() int {
	slowest := 0
	for t, count := range m {
		if count <= 0 {
			continue
		}
		if slowest == 0 || Specs[t].Speed < slowest {
			slowest = Specs[t].Speed
		}
	}
	return slowest
}

type FleetEntry struct {
	UserID int  `json:"user_id"`
	Type   Type `json:"type"`
	Amount int  `json:"amount"`
}

// Lock reserves ships committed to an in-flight action so they cannot be
// double-committed elsewhere. GroupID ties the rows of one reservation
// together across release paths.
type Lock struct {
	ID        int64     `json:"id"`
	ActionID  int64     `json:"action_id"`
	GroupID   uuid.UUID `json:"group_id"`
	UserID    int       `json:"user_id"`
	Type      Type      `json:"type"`
	Amount    int       `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}
