package spatial

import "math"

// Point is a location in universe coordinates.
type Point struct {
	X int
	Y int
}

func Distance(a, b Point) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

func distanceSquared(a, b Point) int64 {
	dx := int64(a.X - b.X)
	dy := int64(a.Y - b.Y)
	return dx*dx + dy*dy
}

type entry struct {
	point Point
	id    int64
}

// Index is a uniform grid over the universe square. Cell size should be at
// least as large as the most common query radius so a radius query only has
// to visit the immediate ring of cells around the center.
//
// The index holds a point snapshot of the backing entity set; the owning
// service is responsible for rebuilding it when that set changes.
type Index struct {
	cellSize int
	cols     int
	rows     int
	cells    [][]entry
	count    int
}

func NewIndex(universeSize, cellSize int) *Index {
	if cellSize < 1 {
		cellSize = 1
	}
	cols := (universeSize + cellSize - 1) / cellSize
	if cols < 1 {
		cols = 1
	}

	return &Index{
		cellSize: cellSize,
		cols:     cols,
		rows:     cols,
		cells:    make([][]entry, cols*cols),
	}
}

func (ix *Index) cellIndex(p Point) int {
	col := p.X / ix.cellSize
	row := p.Y / ix.cellSize

	if col < 0 {
		col = 0
	} else if col >= ix.cols {
		col = ix.cols - 1
	}
	if row < 0 {
		row = 0
	} else if row >= ix.rows {
		row = ix.rows - 1
	}

	return row*ix.cols + col
}

func (ix *Index) Insert(p Point, id int64) {
	idx := ix.cellIndex(p)
	ix.cells[idx] = append(ix.cells[idx], entry{point: p, id: id})
	ix.count++
}

func (ix *Index) Len() int {
	return ix.count
}

func (ix *Index) Clear() {
	for i := range ix.cells {
		ix.cells[i] = ix.cells[i][:0]
	}
	ix.count = 0
}

// visitRing calls fn for every entry in the ring of cells that could contain
// a point within radius of center. fn returning false stops the walk.
func (ix *Index) visitRing(center Point, radius int, fn func(e entry) bool) {
	ring := radius/ix.cellSize + 1
	col := center.X / ix.cellSize
	row := center.Y / ix.cellSize

	for dr := -ring; dr <= ring; dr++ {
		for dc := -ring; dc <= ring; dc++ {
			c := col + dc
			r := row + dr
			if c < 0 || c >= ix.cols || r < 0 || r >= ix.rows {
				continue
			}

			for _, e := range ix.cells[r*ix.cols+c] {
				if !fn(e) {
					return
				}
			}
		}
	}
}

// QueryRadius returns the ids of all entries within radius of center.
func (ix *Index) QueryRadius(center Point, radius int) []int64 {
	limit := int64(radius) * int64(radius)
	var result []int64

	ix.visitRing(center, radius, func(e entry) bool {
		if distanceSquared(center, e.point) <= limit {
			result = append(result, e.id)
		}
		return true
	})

	return result
}

// HasWithin reports whether any entry lies strictly closer than minDistance
// to center. It exits on the first hit, which is the common case during
// placement validation of a saturated universe.
func (ix *Index) HasWithin(center Point, minDistance int) bool {
	limit := int64(minDistance) * int64(minDistance)
	found := false

	ix.visitRing(center, minDistance, func(e entry) bool {
		if distanceSquared(center, e.point) < limit {
			found = true
			return false
		}
		return true
	})

	return found
}
