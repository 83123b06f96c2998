package decayvol

import (
	"fmt"
	"math"
)

// VolumeBounds of an axis-aligned cuboid.
type VolumeBounds struct {
	HalfExtents Vec3
	Origin      Vec3
}

// NewVolumeBounds validates that every half extent is strictly positive.
func NewVolumeBounds(half, origin Vec3) (VolumeBounds, error) {
	for i := 0; i < 3; i++ {
		if !(half[i] > 0) || !isFinite(half[i]) {
			return VolumeBounds{}, fmt.Errorf("%w: half extents must be > 0 on all axes, got %v", ErrPrecondition, half)
		}
	}
	return VolumeBounds{HalfExtents: half, Origin: origin}, nil
}

// Face of the cuboid, named by its outward normal.
type Face uint8

const (
	FaceXPlus Face = iota
	FaceXMinus
	FaceYPlus
	FaceYMinus
	FaceZPlus
	FaceZMinus
)

var faceNames = [...]string{"+x", "-x", "+y", "-y", "+z", "-z"}

func (f Face) String() string { return faceNames[f] }

func (f Face) axis() int { return int(f) / 2 }

func (f Face) sign() float64 {
	if f%2 == 0 {
		return 1
	}
	return -1
}

// FaceCrossing is the contribution of one face to a box intersection.
type FaceCrossing struct {
	Face    Face
	Valid   bool    // the line crosses the face inside its rectangle
	Tangent bool    // direction has no component along the face normal
	Entry   bool    // direction points into the volume through this face
	T       float64 // line parameter of the crossing
	Point   Vec3
}

// BoxIntersector computes exact entry and exit points of a cuboid.
type BoxIntersector struct {
	Bounds VolumeBounds
}

func NewBoxIntersector(b VolumeBounds) *BoxIntersector { return &BoxIntersector{Bounds: b} }

// Faces evaluates every face for the line through the trajectory.
// A face parallel to the direction is a miss for that face only.
func (b *BoxIntersector) Faces(tr Trajectory) [6]FaceCrossing {
	var out [6]FaceCrossing
	L := b.Bounds.HalfExtents
	O := tr.Origin.Sub(b.Bounds.Origin)
	D := tr.Direction
	for f := FaceXPlus; f <= FaceZMinus; f++ {
		c := FaceCrossing{Face: f}
		ax, sg := f.axis(), f.sign()
		if D[ax] == 0 {
			c.Tangent = true
			out[f] = c
			continue
		}
		c.T = (sg*L[ax] - O[ax]) / D[ax]
		p := O.Add(D.Mul(c.T))
		p[ax] = sg * L[ax]
		u, v := (ax+1)%3, (ax+2)%3
		c.Valid = math.Abs(p[u]) <= L[u] && math.Abs(p[v]) <= L[v]
		c.Entry = sg*D[ax] < 0
		c.Point = p.Add(b.Bounds.Origin)
		out[f] = c
	}
	return out
}

// Intersect reports the earliest entry and latest exit crossing. A miss
// is an ordinary outcome and is never an error.
func (b *BoxIntersector) Intersect(tr Trajectory) IntersectionResult {
	return b.combine(tr, b.Faces(tr))
}

// combine picks the earliest entry and latest exit face. When rounding on
// an edge or a corner leaves only one side valid, both points come from
// the slab test instead.
func (b *BoxIntersector) combine(tr Trajectory, faces [6]FaceCrossing) IntersectionResult {
	var res IntersectionResult
	tEntry, tExit := math.Inf(1), math.Inf(-1)
	valid := false
	for _, c := range faces {
		if !c.Valid {
			continue
		}
		valid = true
		if c.Entry && c.T < tEntry {
			tEntry, res.Entry = c.T, c.Point
		}
		if !c.Entry && c.T > tExit {
			tExit, res.Exit = c.T, c.Point
		}
	}
	if !valid {
		return IntersectionResult{}
	}
	if !math.IsInf(tEntry, 0) && !math.IsInf(tExit, 0) && tEntry <= tExit {
		res.Hit = true
		return res
	}

	L, o := b.Bounds.HalfExtents, b.Bounds.Origin
	ok, tIn, tOut := rayAABB(tr.Origin, tr.Direction, o.Sub(L), o.Add(L))
	if !ok {
		return IntersectionResult{}
	}
	return IntersectionResult{Hit: true, Entry: tr.At(tIn), Exit: tr.At(tOut)}
}

func (b *BoxIntersector) rescaled(s Scale, _ Units) Intersector {
	return &BoxIntersector{Bounds: VolumeBounds{
		HalfExtents: b.Bounds.HalfExtents.Mul(s.Length),
		Origin:      b.Bounds.Origin.Mul(s.Length),
	}}
}
