package spatial_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"starbase-server/internal/spatial"
)

func TestValidatorFailingConstraintOrder(t *testing.T) {
	validator := spatial.NewValidator()

	first := spatial.NewIndex(1000, 100)
	first.Insert(spatial.Point{X: 500, Y: 500}, 1)

	second := spatial.NewIndex(1000, 100)
	second.Insert(spatial.Point{X: 500, Y: 500}, 2)

	constraints := []spatial.Constraint{
		{Name: "asteroid_distance", Index: first, MinDistance: 100},
		{Name: "station_distance", Index: second, MinDistance: 100},
	}

	// Both constraints fail; the first one in order is reported.
	assert.Equal(t, "asteroid_distance", validator.FailingConstraint(spatial.Point{X: 510, Y: 510}, constraints))
	assert.False(t, validator.IsValid(spatial.Point{X: 510, Y: 510}, constraints))

	assert.Equal(t, "", validator.FailingConstraint(spatial.Point{X: 50, Y: 50}, constraints))
	assert.True(t, validator.IsValid(spatial.Point{X: 50, Y: 50}, constraints))
}

func TestValidatorSkipsInertConstraints(t *testing.T) {
	validator := spatial.NewValidator()

	populated := spatial.NewIndex(1000, 100)
	populated.Insert(spatial.Point{X: 500, Y: 500}, 1)

	constraints := []spatial.Constraint{
		{Name: "nil_index", Index: nil, MinDistance: 100},
		{Name: "zero_distance", Index: populated, MinDistance: 0},
	}

	assert.True(t, validator.IsValid(spatial.Point{X: 500, Y: 500}, constraints))
}

func TestInBounds(t *testing.T) {
	assert.True(t, spatial.InBounds(spatial.Point{X: 0, Y: 0}, 100))
	assert.True(t, spatial.InBounds(spatial.Point{X: 99, Y: 99}, 100))
	assert.False(t, spatial.InBounds(spatial.Point{X: 100, Y: 50}, 100))
	assert.False(t, spatial.InBounds(spatial.Point{X: 50, Y: -1}, 100))
}
