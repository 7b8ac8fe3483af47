package spatial

import (
	"math"
	"math/rand"
)

// Bounds describes where a placement search may land: the whole universe
// square, or a circle around a point for scan-triggered spawns.
type Bounds struct {
	universeSize int
	center       Point
	radius       int
	circular     bool
}

func GlobalBounds(universeSize int) Bounds {
	return Bounds{universeSize: universeSize}
}

func CircleBounds(universeSize int, center Point, radius int) Bounds {
	return Bounds{universeSize: universeSize, center: center, radius: radius, circular: true}
}

func (b Bounds) Contains(p Point) bool {
	if !InBounds(p, b.universeSize) {
		return false
	}
	if !b.circular {
		return true
	}
	return Distance(p, b.center) <= float64(b.radius)
}

// Uniform draws a uniformly distributed point inside the bounds. For circles
// the radius is sqrt-scaled so density stays uniform over area.
func (b Bounds) Uniform(rng *rand.Rand) Point {
	if !b.circular {
		return Point{X: rng.Intn(b.universeSize), Y: rng.Intn(b.universeSize)}
	}

	angle := rng.Float64() * 2 * math.Pi
	r := math.Sqrt(rng.Float64()) * float64(b.radius)
	return Point{
		X: b.center.X + int(r*math.Cos(angle)),
		Y: b.center.Y + int(r*math.Sin(angle)),
	}
}

// box returns the axis-aligned bounding square of the search area, clipped
// to the universe.
func (b Bounds) box() (minX, minY, maxX, maxY int) {
	if !b.circular {
		return 0, 0, b.universeSize, b.universeSize
	}
	minX = max(0, b.center.X-b.radius)
	minY = max(0, b.center.Y-b.radius)
	maxX = min(b.universeSize, b.center.X+b.radius)
	maxY = min(b.universeSize, b.center.Y+b.radius)
	return minX, minY, maxX, maxY
}

// RegionalSampler converts pathological rejection sampling into a roughly
// linear scan. It partitions the search area into cells sized to the active
// constraint, counts attempts per cell, and prefers the least-tried cell, so
// a nearly saturated universe still gets its open pockets probed.
type RegionalSampler struct {
	minX, minY int
	cellSize   int
	cols       int
	rows       int
	attempts   []int
}

func NewRegionalSampler(b Bounds, cellSize int) *RegionalSampler {
	if cellSize < 1 {
		cellSize = 1
	}
	minX, minY, maxX, maxY := b.box()

	cols := (maxX - minX + cellSize - 1) / cellSize
	rows := (maxY - minY + cellSize - 1) / cellSize
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	return &RegionalSampler{
		minX:     minX,
		minY:     minY,
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		attempts: make([]int, cols*rows),
	}
}

// Record counts a failed attempt against the cell containing p.
func (s *RegionalSampler) Record(p Point) {
	col := (p.X - s.minX) / s.cellSize
	row := (p.Y - s.minY) / s.cellSize
	if col < 0 || col >= s.cols || row < 0 || row >= s.rows {
		return
	}
	s.attempts[row*s.cols+col]++
}

// Sample picks a uniformly random point inside the least-tried cell, with a
// random tiebreak between equally tried cells.
func (s *RegionalSampler) Sample(rng *rand.Rand) Point {
	best := 0
	ties := 1
	for i := 1; i < len(s.attempts); i++ {
		switch {
		case s.attempts[i] < s.attempts[best]:
			best = i
			ties = 1
		case s.attempts[i] == s.attempts[best]:
			ties++
			if rng.Intn(ties) == 0 {
				best = i
			}
		}
	}

	col := best % s.cols
	row := best / s.cols

	return Point{
		X: s.minX + col*s.cellSize + rng.Intn(s.cellSize),
		Y: s.minY + row*s.cellSize + rng.Intn(s.cellSize),
	}
}
