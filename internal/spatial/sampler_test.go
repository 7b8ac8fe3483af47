package spatial_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"starbase-server/internal/spatial"
)

func TestGlobalBoundsUniform(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	bounds := spatial.GlobalBounds(5000)

	for i := 0; i < 1000; i++ {
		p := bounds.Uniform(rng)
		assert.True(t, bounds.Contains(p), "point %v outside global bounds", p)
	}
}

func TestCircleBoundsUniform(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	center := spatial.Point{X: 2500, Y: 2500}
	bounds := spatial.CircleBounds(5000, center, 800)

	for i := 0; i < 1000; i++ {
		p := bounds.Uniform(rng)
		assert.LessOrEqual(t, spatial.Distance(p, center), 800.0+1.5, "point %v outside circle", p)
	}
}

func TestCircleBoundsContains(t *testing.T) {
	center := spatial.Point{X: 100, Y: 100}
	bounds := spatial.CircleBounds(5000, center, 50)

	assert.True(t, bounds.Contains(spatial.Point{X: 120, Y: 100}))
	assert.False(t, bounds.Contains(spatial.Point{X: 200, Y: 100}))
	// Inside the circle but outside the universe square.
	edge := spatial.CircleBounds(100, spatial.Point{X: 90, Y: 90}, 50)
	assert.False(t, edge.Contains(spatial.Point{X: 120, Y: 90}))
}

func TestRegionalSamplerPrefersUntriedCells(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	bounds := spatial.GlobalBounds(1000)
	sampler := spatial.NewRegionalSampler(bounds, 500)

	// Burn attempts in every cell except the top-right one.
	for i := 0; i < 50; i++ {
		sampler.Record(spatial.Point{X: 100, Y: 100})
		sampler.Record(spatial.Point{X: 100, Y: 700})
		sampler.Record(spatial.Point{X: 700, Y: 100})
	}

	for i := 0; i < 20; i++ {
		p := sampler.Sample(rng)
		assert.GreaterOrEqual(t, p.X, 500)
		assert.GreaterOrEqual(t, p.Y, 500)
	}
}

func TestRegionalSamplerIgnoresOutOfAreaRecords(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	bounds := spatial.CircleBounds(1000, spatial.Point{X: 500, Y: 500}, 200)
	sampler := spatial.NewRegionalSampler(bounds, 100)

	// Recording far outside the search box must not panic or skew cells.
	sampler.Record(spatial.Point{X: 5000, Y: 5000})

	p := sampler.Sample(rng)
	assert.True(t, p.X >= 300 && p.X <= 700, "sample %v outside search box", p)
	assert.True(t, p.Y >= 300 && p.Y <= 700, "sample %v outside search box", p)
}
