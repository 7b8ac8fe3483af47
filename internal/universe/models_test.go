package universe

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"starbase-server/internal/resources"
)

func TestSizeWeightsSumToTotal(t *testing.T) {
	sum := 0
	for _, spec := range sizeSpecs {
		sum += spec.Weight
	}
	assert.Equal(t, SizeWeightTotal, sum)
}

func TestRollSizeClassBands(t *testing.T) {
	assert.Equal(t, SizeSmall, RollSizeClass(0))
	assert.Equal(t, SizeSmall, RollSizeClass(594))
	assert.Equal(t, SizeMedium, RollSizeClass(595))
	assert.Equal(t, SizeMedium, RollSizeClass(894))
	assert.Equal(t, SizeLarge, RollSizeClass(895))
	assert.Equal(t, SizeLarge, RollSizeClass(994))
	assert.Equal(t, SizeExtreme, RollSizeClass(995))
	assert.Equal(t, SizeExtreme, RollSizeClass(999))
}

func TestTotalDepositsAndResourceTypes(t *testing.T) {
	a := Asteroid{Deposits: []Deposit{
		{Resource: resources.Carbon, Amount: 70},
		{Resource: resources.Cobalt, Amount: 30},
	}}

	assert.Equal(t, int64(100), a.TotalDeposits())
	assert.ElementsMatch(t, []resources.Type{resources.Carbon, resources.Cobalt}, a.ResourceTypes())
}

func TestGenerateNameEncodesSizeAndPool(t *testing.T) {
	rng := rand.New(rand.NewSource(5))

	name := generateName(rng, SizeExtreme, 1234, resources.PoolHigh)
	assert.NotEmpty(t, name)
	assert.Contains(t, name, "-")

	// Identical inputs with a fresh rng only differ in the prefix draw;
	// the suffix encodes value, size and pool deterministically.
	other := generateName(rand.New(rand.NewSource(5)), SizeExtreme, 1234, resources.PoolHigh)
	assert.Equal(t, name, other)
}
