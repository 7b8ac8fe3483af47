package player

import (
	"time"

	"starbase-server/internal/building"
)

type Player struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Attributes are the derived per-player stats after building effects.
type Attributes struct {
	StorageCapacity    int64   `json:"storage_capacity"`
	ProductionSpeed    float64 `json:"production_speed"`
	ResearchSpeed      float64 `json:"research_speed"`
	DefensePower       int64   `json:"defense_power"`
	SensorRange        int     `json:"sensor_range"`
	ExtractionEfficacy float64 `json:"extraction_efficacy"`
}

// BaseAttributes are the stats of a player with no buildings.
func BaseAttributes() Attributes {
	return Attributes{
		StorageCapacity:    10000,
		ProductionSpeed:    1.0,
		ResearchSpeed:      1.0,
		DefensePower:       0,
		SensorRange:        500,
		ExtractionEfficacy: 1.0,
	}
}

// ApplyBuildings folds every building's effect at its level into the
// baseline attributes. Replace effects win over the baseline only when the
// building exists.
func ApplyBuildings(buildings []building.Building) Attributes {
	attrs := BaseAttributes()

	for _, b := range buildings {
		spec, ok := building.Specs[b.Type]
		if !ok || b.Level <= 0 {
			continue
		}
		effect := spec.EffectAt(b.Level)

		switch spec.Attribute {
		case building.AttrStorageCapacity:
			attrs.StorageCapacity = foldInt(attrs.StorageCapacity, effect, spec.Kind)
		case building.AttrProductionSpeed:
			attrs.ProductionSpeed = foldFloat(attrs.ProductionSpeed, effect, spec.Kind)
		case building.AttrResearchSpeed:
			attrs.ResearchSpeed = foldFloat(attrs.ResearchSpeed, effect, spec.Kind)
		case building.AttrDefensePower:
			attrs.DefensePower = foldInt(attrs.DefensePower, effect, spec.Kind)
		case building.AttrSensorRange:
			attrs.SensorRange = int(foldInt(int64(attrs.SensorRange), effect, spec.Kind))
		case building.AttrExtractionEfficacy:
			attrs.ExtractionEfficacy = foldFloat(attrs.ExtractionEfficacy, effect, spec.Kind)
		}
	}

	return attrs
}

func foldInt(current int64, effect float64, kind building.EffectKind) int64 {
	switch kind {
	case building.EffectAdditive:
		return current + int64(effect)
	case building.EffectMultiplicative:
		return int64(float64(current) * effect)
	case building.EffectReplace:
		return int64(effect)
	}
	return current
}

func foldFloat(current, effect float64, kind building.EffectKind) float64 {
	switch kind {
	case building.EffectAdditive:
		return current + effect
	case building.EffectMultiplicative:
		return current * effect
	case building.EffectReplace:
		return effect
	}
	return current
}
