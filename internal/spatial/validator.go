package spatial

// Constraint is one min-distance rule a candidate point must satisfy against
// an index of already-placed entities.
type Constraint struct {
	Name        string
	Index       *Index
	MinDistance int
}

// Validator answers whether a candidate point is a legal placement under a
// set of constraints. Constraints are checked in order and the first failing
// one rejects, so callers should order the most-likely-to-fail (or cheapest)
// constraint first.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// IsValid reports whether p keeps the required distance from every entity in
// every constraint index.
func (v *Validator) IsValid(p Point, constraints []Constraint) bool {
	return v.FailingConstraint(p, constraints) == ""
}

// FailingConstraint returns the name of the first violated constraint, or
// the empty string when p is legal.
func (v *Validator) FailingConstraint(p Point, constraints []Constraint) string {
	for _, c := range constraints {
		if c.Index == nil || c.MinDistance <= 0 {
			continue
		}
		if c.Index.HasWithin(p, c.MinDistance) {
			return c.Name
		}
	}
	return ""
}

// InBounds reports whether p lies inside the universe square.
func InBounds(p Point, universeSize int) bool {
	return p.X >= 0 && p.X < universeSize && p.Y >= 0 && p.Y < universeSize
}
