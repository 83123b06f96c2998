package decayvol

import "fmt"

// Trajectory is a straight flight path with a unit direction.
type Trajectory struct {
	Origin    Vec3
	Direction Vec3
}

// NewTrajectory normalizes dir; a zero direction has no flight path.
func NewTrajectory(origin, dir Vec3) (Trajectory, error) {
	l := dir.Len()
	if l == 0 || !isFinite(l) {
		return Trajectory{}, fmt.Errorf("%w: trajectory direction %v", ErrPrecondition, dir)
	}
	return Trajectory{Origin: origin, Direction: dir.Mul(1 / l)}, nil
}

// At returns the point s length units along the trajectory.
func (t Trajectory) At(s float64) Vec3 { return t.Origin.Add(t.Direction.Mul(s)) }

// Param is the signed distance of p's projection from the origin.
func (t Trajectory) Param(p Vec3) float64 { return p.Sub(t.Origin).Dot(t.Direction) }

// IntersectionResult of a trajectory with a detector volume. Entry and Exit
// are only meaningful when Hit is set; Entry precedes Exit along the direction.
type IntersectionResult struct {
	Hit         bool
	Entry, Exit Vec3
}

// Chord is the length of the trajectory segment inside the volume.
func (r IntersectionResult) Chord() float64 { return r.Exit.Sub(r.Entry).Len() }

// From drops the part of the crossing behind the trajectory origin. A
// particle produced inside the volume enters it at its production point.
func (r IntersectionResult) From(tr Trajectory) IntersectionResult {
	if r.Hit && tr.Param(r.Entry) < 0 {
		r.Entry = tr.Origin
	}
	return r
}

// Intersector finds where a trajectory crosses the detector volume.
type Intersector interface {
	Intersect(tr Trajectory) IntersectionResult
}

// rescalable intersectors hold lengths that follow an engine rebase.
type rescalable interface {
	rescaled(s Scale, u Units) Intersector
}
