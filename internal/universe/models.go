package universe

import (
	"time"

	"starbase-server/internal/resources"
)

type SizeClass string

const (
	SizeSmall   SizeClass = "small"
	SizeMedium  SizeClass = "medium"
	SizeLarge   SizeClass = "large"
	SizeExtreme SizeClass = "extreme"
)

// sizeSpec drives the weighted size roll and every size-derived attribute.
// Weights sum to SizeWeightTotal.
type sizeSpec struct {
	Weight         int
	RenderScale    float64
	MultiplierMin  float64
	MultiplierMax  float64
	DistanceFactor float64
}

const SizeWeightTotal = 1000

var sizeOrder = []SizeClass{SizeSmall, SizeMedium, SizeLarge, SizeExtreme}

var sizeSpecs = map[SizeClass]sizeSpec{
	SizeSmall:   {Weight: 595, RenderScale: 1.0, MultiplierMin: 1.0, MultiplierMax: 2.0, DistanceFactor: 1.0},
	SizeMedium:  {Weight: 300, RenderScale: 1.6, MultiplierMin: 2.0, MultiplierMax: 4.0, DistanceFactor: 1.3},
	SizeLarge:   {Weight: 100, RenderScale: 2.4, MultiplierMin: 4.0, MultiplierMax: 7.0, DistanceFactor: 1.7},
	SizeExtreme: {Weight: 5, RenderScale: 3.5, MultiplierMin: 9.0, MultiplierMax: 13.0, DistanceFactor: 2.5},
}

// Base value roll range, independent of size class.
const (
	baseValueMin = 100
	baseValueMax = 300
)

func (s SizeClass) RenderScale() float64 {
	return sizeSpecs[s].RenderScale
}

func (s SizeClass) DistanceFactor() float64 {
	return sizeSpecs[s].DistanceFactor
}

// RollSizeClass maps a uniform roll in [0,SizeWeightTotal) to a size class
// via the cumulative weight table.
func RollSizeClass(roll int) SizeClass {
	cumulative := 0
	for _, size := range sizeOrder {
		cumulative += sizeSpecs[size].Weight
		if roll < cumulative {
			return size
		}
	}
	return SizeSmall
}

type Asteroid struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Size       SizeClass `json:"size"`
	Base       int       `json:"base"`
	Multiplier float64   `json:"multiplier"`
	Value      int       `json:"value"`
	X          int       `json:"x"`
	Y          int       `json:"y"`
	Deposits   []Deposit `json:"deposits"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Deposit struct {
	ID         int64          `json:"id"`
	AsteroidID int64          `json:"asteroid_id"`
	Resource   resources.Type `json:"resource"`
	Amount     int64          `json:"amount"`
}

// TotalDeposits sums the remaining deposit amounts.
func (a *Asteroid) TotalDeposits() int64 {
	var total int64
	for _, d := range a.Deposits {
		total += d.Amount
	}
	return total
}

// ResourceTypes lists the minerals present on the asteroid.
func (a *Asteroid) ResourceTypes() []resources.Type {
	types := make([]resources.Type, 0, len(a.Deposits))
	for _, d := range a.Deposits {
		types = append(types, d.Resource)
	}
	return types
}

// AsteroidPoint is the projection the spatial index is built from.
type AsteroidPoint struct {
	ID   int64
	X    int
	Y    int
	Size SizeClass
}

type Stats struct {
	AsteroidCount int `json:"asteroid_count"`
	DepositCount  int `json:"deposit_count"`
}
