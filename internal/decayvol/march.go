package decayvol

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// MarchParams tune the boundary march. Lengths are in engine units.
type MarchParams struct {
	Margin         float64 // start this far behind the trajectory origin
	MaxStep        float64 // cap on the solid's largest dimension used for the first interior step
	MinStep        float64 // halving stops below twice this
	ShortChordStep float64 // forced chord for detectors thinner than the first step
	StepLimit      float64 // maxStep handed to every boundary query
	MaxIterations  int
}

// DefaultMarchParams returns the defaults expressed in u.
func DefaultMarchParams(u Units) MarchParams {
	k := 1 / u.Length.Factor
	return MarchParams{
		Margin:         DefaultMargin * k,
		MaxStep:        DefaultMaxStep * k,
		MinStep:        DefaultMinStep * k,
		ShortChordStep: DefaultShortChordStep * k,
		StepLimit:      DefaultStepLimit * k,
		MaxIterations:  DefaultMaxIterations,
	}
}

func (p MarchParams) validate() error {
	for _, v := range []float64{p.Margin, p.MaxStep, p.MinStep, p.ShortChordStep, p.StepLimit} {
		if !(v > 0) || !isFinite(v) {
			return fmt.Errorf("%w: march lengths must be > 0, got %+v", ErrPrecondition, p)
		}
	}
	if p.MaxIterations <= 0 {
		return fmt.Errorf("%w: march iterations must be > 0, got %d", ErrPrecondition, p.MaxIterations)
	}
	return nil
}

func (p MarchParams) scaled(k float64) MarchParams {
	return MarchParams{
		Margin:         p.Margin * k,
		MaxStep:        p.MaxStep * k,
		MinStep:        p.MinStep * k,
		ShortChordStep: p.ShortChordStep * k,
		StepLimit:      p.StepLimit * k,
		MaxIterations:  p.MaxIterations,
	}
}

// MarchIntersector finds entry and exit of an arbitrary solid by stepping
// through it with boundary queries against a Navigator.
type MarchIntersector struct {
	nav       Navigator
	params    MarchParams
	toNav     float64 // engine length -> navigator length
	navFactor float64 // navigator unit in metres
	log       *zap.Logger
}

// NewMarchIntersector checks params and the navigator unit against u.
func NewMarchIntersector(nav Navigator, params MarchParams, u Units, log *zap.Logger) (*MarchIntersector, error) {
	if nav == nil {
		return nil, fmt.Errorf("%w: nil navigator", ErrPrecondition)
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	nu, err := LookupUnit(Length, nav.Unit())
	if err != nil {
		return nil, err
	}
	return &MarchIntersector{
		nav:       nav,
		params:    params,
		toNav:     u.Length.Factor / nu.Factor,
		navFactor: nu.Factor,
		log:       nopIfNil(log),
	}, nil
}

func (m *MarchIntersector) Params() MarchParams { return m.params }

func (m *MarchIntersector) Intersect(tr Trajectory) IntersectionResult {
	limit := m.params.StepLimit * m.toNav
	wmin, wmax := m.nav.WorldBox()
	c := &Cursor{Point: tr.At(-m.params.Margin).Mul(m.toNav), Dir: tr.Direction}
	if m.nav.Locate(c.Point) {
		// production inside a solid: restart from where the line enters the world
		if ok, tIn, _ := rayAABB(c.Point, c.Dir, wmin, wmax); ok {
			c.Advance(tIn)
		}
	}

	found := m.nav.NextBoundary(c, limit)
	if found && onAABBSurface(c.Point, wmin, wmax, m.nav.Tolerance()) {
		// the world box itself was reported as the entry
		found = m.nav.NextBoundary(c, limit)
	}
	if !found {
		return IntersectionResult{}
	}
	entry := c.Point

	bmin, bmax := m.nav.SolidBox()
	size := bmax.Sub(bmin)
	step := math.Min(math.Max(size[0], math.Max(size[1], size[2])), m.params.MaxStep*m.toNav) / 2
	minStep := m.params.MinStep * m.toNav
	m.nav.Step(c, step)

	var exit Vec3
	i := 0
	for ; i < m.params.MaxIterations; i++ {
		if !m.nav.NextBoundary(c, limit) {
			break
		}
		exit = c.Point
		if step >= 2*minStep {
			step *= 0.5
		}
		m.nav.Step(c, step)
	}
	if i == m.params.MaxIterations {
		m.log.Warn("failed to exit the detector volume, dropping trajectory",
			zap.Int("iterations", i),
			zap.Float64s("entry", entry[:]),
		)
		return IntersectionResult{}
	}

	if exit == (Vec3{}) || exit == entry {
		m.log.Warn("detector section is shorter than the first step, forcing a short chord",
			zap.Float64("chord", m.params.ShortChordStep),
			zap.Float64s("entry", entry[:]),
		)
		c.Point = entry
		m.nav.Step(c, m.params.ShortChordStep*m.toNav)
		exit = c.Point
	}

	return IntersectionResult{
		Hit:   true,
		Entry: entry.Mul(1 / m.toNav),
		Exit:  exit.Mul(1 / m.toNav),
	}
}

func (m *MarchIntersector) rescaled(s Scale, u Units) Intersector {
	return &MarchIntersector{
		nav:       m.nav,
		params:    m.params.scaled(s.Length),
		toNav:     u.Length.Factor / m.navFactor,
		navFactor: m.navFactor,
		log:       m.log,
	}
}
