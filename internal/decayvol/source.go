package decayvol

import (
	"fmt"
	"math"
	"math/rand"
)

// Source produces particles in the beam frame: vertices uniformly along a
// decay pipe starting at Origin, momenta inside a cone around Axis.
type Source struct {
	Origin     Vec3
	Axis       Vec3    // unit
	Angle      float64 // half-angle in radians, (0, π]
	PipeLength float64
	Mass       float64 // GeV
	PMin, PMax float64 // GeV
	Lifetime   float64 // engine time units

	// cached
	cosAngle float64
	U, V     Vec3 // orthonormal basis orthogonal to Axis
}

// robust orthonormal pair perpendicular to the unit vector a
func orthonormal2(a Vec3) (u, v Vec3) {
	h := Vec3{1, 0, 0}
	if math.Abs(a[0]) > 0.9 {
		h = Vec3{0, 1, 0}
	}
	u = h.Sub(a.Mul(h.Dot(a))).Normalize()
	v = a.Cross(u)
	return u, v
}

// NewSource validates and caches the sampling basis.
func NewSource(origin, axis Vec3, angle, pipeLength, mass, pMin, pMax, lifetime float64) (*Source, error) {
	if angle <= 0 || angle > math.Pi {
		return nil, fmt.Errorf("%w: source angle must be in (0, π], got %g", ErrPrecondition, angle)
	}
	if axis.Len() == 0 {
		return nil, fmt.Errorf("%w: source axis must be non-zero", ErrPrecondition)
	}
	if pipeLength < 0 {
		return nil, fmt.Errorf("%w: pipe length must be >= 0, got %g", ErrPrecondition, pipeLength)
	}
	if mass <= 0 {
		return nil, fmt.Errorf("%w: mass must be > 0, got %g", ErrPrecondition, mass)
	}
	if pMin <= 0 || pMax < pMin {
		return nil, fmt.Errorf("%w: momentum range must satisfy 0 < pMin <= pMax, got [%g, %g]", ErrPrecondition, pMin, pMax)
	}
	if lifetime <= 0 {
		return nil, fmt.Errorf("%w: lifetime must be > 0, got %g", ErrPrecondition, lifetime)
	}
	n := axis.Normalize()
	u, v := orthonormal2(n)
	return &Source{
		Origin:     origin,
		Axis:       n,
		Angle:      angle,
		PipeLength: pipeLength,
		Mass:       mass,
		PMin:       pMin,
		PMax:       pMax,
		Lifetime:   lifetime,
		cosAngle:   math.Cos(angle),
		U:          u,
		V:          v,
	}, nil
}

// ContainsDir reports whether a direction lies inside the cone.
func (s *Source) ContainsDir(d Vec3) bool {
	return s.Axis.Dot(d.Normalize()) >= s.cosAngle-1e-12
}

// SampleDir returns a unit direction uniform in solid angle inside the cone.
func (s *Source) SampleDir(rng *rand.Rand) Vec3 {
	cosT := 1 - rng.Float64()*(1-s.cosAngle)
	sinT := math.Sqrt(math.Max(0, 1-cosT*cosT))
	phi := 2 * math.Pi * rng.Float64()
	return s.Axis.Mul(cosT).
		Add(s.U.Mul(sinT * math.Cos(phi))).
		Add(s.V.Mul(sinT * math.Sin(phi))).
		Normalize()
}

// SampleVertex returns a production point along the decay pipe.
func (s *Source) SampleVertex(rng *rand.Rand) Vec3 {
	return s.Origin.Add(s.Axis.Mul(rng.Float64() * s.PipeLength))
}

// Particle samples a complete particle at production time zero.
func (s *Source) Particle(rng *rand.Rand) Particle {
	p := s.PMin + rng.Float64()*(s.PMax-s.PMin)
	mom := s.SampleDir(rng).Mul(p)
	E := math.Sqrt(p*p + s.Mass*s.Mass)
	return Particle{
		Vertex:   s.SampleVertex(rng).Vec4(0),
		Momentum: mom.Vec4(E),
		Lifetime: s.Lifetime,
	}
}

// Regenerate draws a new vertex; the particle keeps its momentum.
func (s *Source) Regenerate(_ Particle, rng *rand.Rand) (Vec3, error) {
	return s.SampleVertex(rng), nil
}

// rescaled copies the source into the units of an engine rebase.
func (s *Source) rescaled(sc Scale, _ Units) VertexRegenerator {
	n := *s
	n.Origin = s.Origin.Mul(sc.Length)
	n.PipeLength = s.PipeLength * sc.Length
	n.Lifetime = s.Lifetime * sc.Time
	return &n
}
