package building_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"starbase-server/internal/building"
	"starbase-server/internal/resources"
)

func TestEffectAtLevelZeroIsNeutral(t *testing.T) {
	assert.Equal(t, 0.0, building.Specs[building.StorageDepot].EffectAt(0))
	assert.Equal(t, 0.0, building.Specs[building.SensorArray].EffectAt(0))
	assert.Equal(t, 1.0, building.Specs[building.Shipyard].EffectAt(0))
}

func TestEffectAtGrowsGeometrically(t *testing.T) {
	spec := building.Specs[building.StorageDepot]

	assert.InDelta(t, 5000, spec.EffectAt(1), 1e-9)
	assert.InDelta(t, 8000, spec.EffectAt(2), 1e-9)
	assert.InDelta(t, 12800, spec.EffectAt(3), 1e-9)
}

func TestBuildTimeAtScales(t *testing.T) {
	spec := building.Specs[building.Shipyard]

	assert.Equal(t, 10*time.Minute, spec.BuildTimeAt(1))
	assert.Equal(t, spec.BuildTimeAt(1), spec.BuildTimeAt(0))
	assert.Greater(t, spec.BuildTimeAt(3), spec.BuildTimeAt(2))
}

func TestCostAtScalesEveryResource(t *testing.T) {
	spec := building.Specs[building.DefenseGrid]

	level1 := spec.CostAt(1)
	assert.Equal(t, int64(700), level1[resources.Titanium])
	assert.Equal(t, int64(100), level1[resources.Uraninite])

	level2 := spec.CostAt(2)
	assert.Equal(t, int64(1050), level2[resources.Titanium])
	assert.Equal(t, int64(150), level2[resources.Uraninite])

	for resource, base := range spec.BaseCost {
		assert.GreaterOrEqual(t, spec.CostAt(4)[resource], base)
	}
}
