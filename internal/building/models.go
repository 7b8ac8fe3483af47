package building

import (
	"math"
	"time"

	"starbase-server/internal/resources"
)

type Type string

const (
	StorageDepot    Type = "StorageDepot"
	Shipyard        Type = "Shipyard"
	ResearchLab     Type = "ResearchLab"
	DefenseGrid     Type = "DefenseGrid"
	SensorArray     Type = "SensorArray"
	RefineryComplex Type = "RefineryComplex"
)

// Attribute names a player stat a building modifies.
type Attribute string

const (
	AttrStorageCapacity    Attribute = "storage_capacity"
	AttrProductionSpeed    Attribute = "production_speed"
	AttrResearchSpeed      Attribute = "research_speed"
	AttrDefensePower       Attribute = "defense_power"
	AttrSensorRange        Attribute = "sensor_range"
	AttrExtractionEfficacy Attribute = "extraction_efficacy"
)

// EffectKind controls how a building's effect folds into the attribute.
type EffectKind string

const (
	// EffectAdditive adds the level effect onto the attribute.
	EffectAdditive EffectKind = "additive"
	// EffectMultiplicative scales the attribute by the level effect.
	EffectMultiplicative EffectKind = "multiplicative"
	// EffectReplace overwrites the attribute with the level effect.
	EffectReplace EffectKind = "replace"
)

// Spec is the static blueprint of a building type. BaseEffect is the level 1
// effect, grown geometrically by GrowthFactor per level. BaseBuildTime is the
// level 1 upgrade duration, grown the same way.
type Spec struct {
	Attribute     Attribute
	Kind          EffectKind
	BaseEffect    float64
	GrowthFactor  float64
	BaseBuildTime time.Duration
	BaseCost      map[resources.Type]int64
}

var Specs = map[Type]Spec{
	StorageDepot: {
		Attribute: AttrStorageCapacity, Kind: EffectAdditive,
		BaseEffect: 5000, GrowthFactor: 1.6, BaseBuildTime: 5 * time.Minute,
		BaseCost: map[resources.Type]int64{resources.Carbon: 400, resources.Titanium: 200},
	},
	Shipyard: {
		Attribute: AttrProductionSpeed, Kind: EffectMultiplicative,
		BaseEffect: 1.1, GrowthFactor: 1.05, BaseBuildTime: 10 * time.Minute,
		BaseCost: map[resources.Type]int64{resources.Carbon: 600, resources.Titanium: 400, resources.Cobalt: 80},
	},
	ResearchLab: {
		Attribute: AttrResearchSpeed, Kind: EffectMultiplicative,
		BaseEffect: 1.15, GrowthFactor: 1.04, BaseBuildTime: 15 * time.Minute,
		BaseCost: map[resources.Type]int64{resources.Carbon: 500, resources.Iridium: 120},
	},
	DefenseGrid: {
		Attribute: AttrDefensePower, Kind: EffectAdditive,
		BaseEffect: 200, GrowthFactor: 1.5, BaseBuildTime: 12 * time.Minute,
		BaseCost: map[resources.Type]int64{resources.Titanium: 700, resources.Uraninite: 100},
	},
	SensorArray: {
		Attribute: AttrSensorRange, Kind: EffectReplace,
		BaseEffect: 1500, GrowthFactor: 1.3, BaseBuildTime: 8 * time.Minute,
		BaseCost: map[resources.Type]int64{resources.Carbon: 350, resources.Cobalt: 90},
	},
	RefineryComplex: {
		Attribute: AttrExtractionEfficacy, Kind: EffectMultiplicative,
		BaseEffect: 1.05, GrowthFactor: 1.03, BaseBuildTime: 20 * time.Minute,
		BaseCost: map[resources.Type]int64{resources.Carbon: 900, resources.Titanium: 600, resources.Thorium: 40},
	},
}

// EffectAt returns the building's effect value at the given level. Level 0
// means not built; additive and replace effects contribute nothing, while a
// multiplicative effect is the neutral 1.
func (s Spec) EffectAt(level int) float64 {
	if level <= 0 {
		if s.Kind == EffectMultiplicative {
			return 1
		}
		return 0
	}
	return s.BaseEffect * math.Pow(s.GrowthFactor, float64(level-1))
}

// BuildTimeAt returns the upgrade duration from level-1 to level.
func (s Spec) BuildTimeAt(level int) time.Duration {
	if level <= 1 {
		return s.BaseBuildTime
	}
	scaled := float64(s.BaseBuildTime) * math.Pow(s.GrowthFactor, float64(level-1))
	return time.Duration(scaled)
}

// CostAt returns the resource cost of the upgrade to the given level.
func (s Spec) CostAt(level int) map[resources.Type]int64 {
	if level <= 0 {
		level = 1
	}
	factor := math.Pow(s.GrowthFactor, float64(level-1))
	cost := make(map[resources.Type]int64, len(s.BaseCost))
	for resource, base := range s.BaseCost {
		cost[resource] = int64(math.Ceil(float64(base) * factor))
	}
	return cost
}

type Building struct {
	ID        int64     `json:"id"`
	UserID    int       `json:"user_id"`
	Type      Type      `json:"type"`
	Level     int       `json:"level"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
