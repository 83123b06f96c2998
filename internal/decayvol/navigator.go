package decayvol

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Cursor is the current point and direction of a boundary search. It is
// owned by the caller, so a Navigator never holds per-query state.
type Cursor struct {
	Point Vec3
	Dir   Vec3
}

// Advance moves the cursor d length units along its direction.
func (c *Cursor) Advance(d float64) { c.Point = c.Point.Add(c.Dir.Mul(d)) }

// Navigator answers boundary queries against a solid model. All lengths
// are in the navigator's own Unit.
type Navigator interface {
	// NextBoundary moves the cursor to the next boundary along its direction,
	// or by maxStep when no boundary is closer, and reports whether a
	// boundary was crossed. Entering the world box counts as a boundary;
	// leaving it does not.
	NextBoundary(c *Cursor, maxStep float64) bool
	// Step moves the cursor without looking for boundaries.
	Step(c *Cursor, d float64)
	// Locate reports whether p is inside a solid.
	Locate(p Vec3) bool
	WorldBox() (min, max Vec3)
	// SolidBox is the bounding box of the solids alone.
	SolidBox() (min, max Vec3)
	Tolerance() float64
	Unit() string
}

// SDFNavigator implements Navigator over a signed distance field by
// sphere tracing: the field value bounds the distance to any surface,
// so stepping by it never skips one.
type SDFNavigator struct {
	solid      sdf.SDF3
	unit       string
	min, max   Vec3
	bmin, bmax Vec3
	tol        float64
}

// NewSDFNavigator wraps solid, expressed in unit, in a world box that
// exceeds the solid's bounding box by worldMargin on every side.
func NewSDFNavigator(solid sdf.SDF3, unit string, worldMargin float64) (*SDFNavigator, error) {
	if solid == nil {
		return nil, ErrEmptyGeometry
	}
	if _, err := LookupUnit(Length, unit); err != nil {
		return nil, err
	}
	if !(worldMargin > 0) {
		return nil, fmt.Errorf("%w: world margin must be > 0, got %g", ErrPrecondition, worldMargin)
	}
	bb := solid.BoundingBox()
	n := &SDFNavigator{
		solid: solid,
		unit:  unit,
		min:   Vec3{bb.Min.X - worldMargin, bb.Min.Y - worldMargin, bb.Min.Z - worldMargin},
		max:   Vec3{bb.Max.X + worldMargin, bb.Max.Y + worldMargin, bb.Max.Z + worldMargin},
		bmin:  Vec3{bb.Min.X, bb.Min.Y, bb.Min.Z},
		bmax:  Vec3{bb.Max.X, bb.Max.Y, bb.Max.Z},
	}
	n.tol = SDFTolerance * n.max.Sub(n.min).Len()
	return n, nil
}

func (n *SDFNavigator) eval(p Vec3) float64 {
	return n.solid.Evaluate(v3.Vec{X: p[0], Y: p[1], Z: p[2]})
}

func (n *SDFNavigator) Locate(p Vec3) bool { return n.eval(p) < 0 }

func (n *SDFNavigator) Step(c *Cursor, d float64) { c.Advance(d) }

func (n *SDFNavigator) WorldBox() (Vec3, Vec3) { return n.min, n.max }

func (n *SDFNavigator) SolidBox() (Vec3, Vec3) { return n.bmin, n.bmax }

func (n *SDFNavigator) Tolerance() float64 { return n.tol }

func (n *SDFNavigator) Unit() string { return n.unit }

func (n *SDFNavigator) NextBoundary(c *Cursor, maxStep float64) bool {
	ok, tIn, tOut := rayAABB(c.Point, c.Dir, n.min, n.max)
	if !insideAABB(c.Point, n.min, n.max) {
		if !ok || tOut <= 0 || tIn > maxStep {
			c.Advance(maxStep)
			return false
		}
		if tIn > n.tol {
			c.Advance(tIn)
			return true
		}
		// already on the world surface
	}

	limit := math.Min(maxStep, tOut)
	start := c.Point
	at := func(t float64) Vec3 { return start.Add(c.Dir.Mul(t)) }
	inside := n.eval(start) < 0

	tPrev, t := 0.0, 0.0
	for i := 0; i < SDFMaxSteps; i++ {
		d := n.eval(at(t))
		if (d < 0) != inside {
			// surface is in (tPrev, t]; land just past it
			lo, hi := tPrev, t
			for k := 0; k < SDFBisections && hi-lo > n.tol; k++ {
				mid := 0.5 * (lo + hi)
				if (n.eval(at(mid)) < 0) == inside {
					lo = mid
				} else {
					hi = mid
				}
			}
			c.Point = at(hi)
			return true
		}
		if t >= limit {
			break
		}
		tPrev = t
		t = math.Min(t+math.Max(math.Abs(d), n.tol), limit)
	}
	c.Point = at(limit)
	return false
}
