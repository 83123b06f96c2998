package decayvol

import (
	"fmt"
	"math/rand"
	"sync"

	"go.uber.org/zap"
)

// Particle is the decaying particle at production. Vertex is (x, y, z, t)
// in the beam frame and engine units; Momentum is (px, py, pz, E) in any
// consistent energy unit; Lifetime is the rest-frame lifetime in engine
// time units.
type Particle struct {
	Vertex   Vec4
	Momentum Vec4
	Lifetime float64
}

// Beta is |p|/E.
func (p Particle) Beta() float64 { return p.Momentum.Vec3().Len() / p.Momentum[3] }

// VertexRegenerator supplies a fresh beam-frame production vertex for a
// particle whose trajectory missed the detector.
type VertexRegenerator interface {
	Regenerate(p Particle, rng *rand.Rand) (Vec3, error)
}

// rescalableRegenerator regenerators hold lengths or times that follow an
// engine rebase.
type rescalableRegenerator interface {
	rescaled(s Scale, u Units) VertexRegenerator
}

// State of one Sample call.
type State uint8

const (
	StateInit State = iota
	StateAwaitingIntersection
	StateResampling
	StateIntersected
	StateSampled
	StateFailed
)

var stateNames = [...]string{"init", "awaiting-intersection", "resampling", "intersected", "sampled", "failed"}

func (s State) String() string { return stateNames[s] }

// DecaySample is the outcome of one Sample call. Lengths are in the units
// recorded in Units.
type DecaySample struct {
	OK           bool
	State        State
	Attempts     int // production vertices regenerated
	Production   Vec3
	Entry, Exit  Vec3
	TravelLength float64
	DecayPoint   Vec3
	Time         float64 // production time, passed through
	Weight       float64
	Units        Units
}

func failedSample(u Units, attempts int) DecaySample {
	s := SentinelCoord
	return DecaySample{
		State:      StateFailed,
		Attempts:   attempts,
		DecayPoint: Vec3{s, s, s},
		Time:       s,
		Units:      u,
	}
}

// Vertex returns the decay 4-vertex with its spatial part in the named
// length unit. Failed samples return the sentinel vertex unchanged.
func (d DecaySample) Vertex(unit string) (Vec4, error) {
	if !d.OK {
		s := SentinelCoord
		return Vec4{s, s, s, s}, nil
	}
	k, err := d.Units.LengthIn(unit)
	if err != nil {
		return Vec4{}, err
	}
	return d.DecayPoint.Mul(k).Vec4(d.Time), nil
}

// EngineOptions configure NewEngine. Zero values select the defaults.
type EngineOptions struct {
	MaxRetries     int
	RotateMomentum bool
	Regenerator    VertexRegenerator
	Logger         *zap.Logger
}

// Engine samples decay points inside a detector volume. Sample may be
// called concurrently; Rebase excludes every Sample while it swaps units.
type Engine struct {
	mu             sync.RWMutex
	units          Units
	frame          FrameTransform
	isect          Intersector
	maxRetries     int
	rotateMomentum bool
	regen          VertexRegenerator
	log            *zap.Logger
}

func NewEngine(u Units, frame FrameTransform, isect Intersector, opts EngineOptions) (*Engine, error) {
	if isect == nil {
		return nil, fmt.Errorf("%w: nil intersector", ErrPrecondition)
	}
	if !(u.SpeedOfLight > 0) {
		return nil, fmt.Errorf("%w: units not initialised", ErrPrecondition)
	}
	if opts.MaxRetries < 0 {
		return nil, fmt.Errorf("%w: negative retry bound %d", ErrPrecondition, opts.MaxRetries)
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = MaxRetries
	}
	return &Engine{
		units:          u,
		frame:          frame,
		isect:          isect,
		maxRetries:     opts.MaxRetries,
		rotateMomentum: opts.RotateMomentum,
		regen:          opts.Regenerator,
		log:            nopIfNil(opts.Logger),
	}, nil
}

func (e *Engine) Units() Units {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.units
}

func (e *Engine) Frame() FrameTransform {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.frame
}

func (e *Engine) Intersector() Intersector {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isect
}

// Rebase switches the engine to new units. Every stored length, angle and
// the cached speed of light, including those held by the intersector and
// the regenerator, are converted into a new snapshot which then replaces
// the old one in a single step. Rebasing to the active units changes nothing.
func (e *Engine) Rebase(length, angle, time string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	nu, s, err := e.units.Rebase(length, angle, time)
	if err != nil {
		return err
	}
	if s.identity() {
		return nil
	}
	frame := e.frame.rescaled(s, nu)
	isect := e.isect
	if r, ok := isect.(rescalable); ok {
		isect = r.rescaled(s, nu)
	}
	regen := e.regen
	if r, ok := regen.(rescalableRegenerator); ok {
		regen = r.rescaled(s, nu)
	}
	e.log.Debug("switching units", zap.Stringer("from", e.units), zap.Stringer("to", nu))
	e.units, e.frame, e.isect, e.regen = nu, frame, isect, regen
	return nil
}

// Regenerator returns the active vertex regenerator, in the engine units.
func (e *Engine) Regenerator() VertexRegenerator {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.regen
}

// accept reports whether res, already cut at the production point, is a
// usable crossing of tr: the exit must lie ahead and the chord must be non-zero.
func accept(tr Trajectory, res IntersectionResult) bool {
	return res.Hit && tr.Param(res.Exit) > 0 && res.Chord() > 0
}

// Probe reports whether the particle's first trajectory crosses the detector.
func (e *Engine) Probe(p Particle) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	dir := p.Momentum.Vec3()
	if e.rotateMomentum {
		dir = e.frame.RotateToDetector(dir)
	}
	tr, err := NewTrajectory(e.frame.ToDetectorFrame(p.Vertex.Vec3()), dir)
	if err != nil {
		return false, err
	}
	return accept(tr, e.isect.Intersect(tr).From(tr)), nil
}

// Sample finds a decay point for p inside the detector and its acceptance
// weight. Misses are retried with regenerated production vertices; when
// none hits, the sample carries the sentinel vertex and the error wraps
// ErrNoTrajectory. Malformed particles fail with ErrPrecondition or
// ErrBetaOutOfRange.
func (e *Engine) Sample(p Particle, rng *rand.Rand) (DecaySample, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !(p.Lifetime > 0) || !isFinite(p.Lifetime) {
		return failedSample(e.units, 0), fmt.Errorf("%w: lifetime must be > 0, got %g", ErrPrecondition, p.Lifetime)
	}
	beta := p.Beta()
	if !(beta > 0 && beta < 1) {
		return failedSample(e.units, 0), fmt.Errorf("%w: got %g", ErrBetaOutOfRange, beta)
	}
	dir := p.Momentum.Vec3()
	if e.rotateMomentum {
		dir = e.frame.RotateToDetector(dir)
	}

	var (
		state    = StateInit
		vertex   = p.Vertex.Vec3()
		attempts int
		tr       Trajectory
		res      IntersectionResult
		err      error
	)
	for {
		switch state {
		case StateInit:
			tr, err = NewTrajectory(e.frame.ToDetectorFrame(vertex), dir)
			if err != nil {
				return failedSample(e.units, attempts), err
			}
			state = StateAwaitingIntersection

		case StateAwaitingIntersection:
			res = e.isect.Intersect(tr).From(tr)
			switch {
			case accept(tr, res):
				state = StateIntersected
			case e.regen != nil && attempts < e.maxRetries:
				state = StateResampling
			default:
				state = StateFailed
			}

		case StateResampling:
			vertex, err = e.regen.Regenerate(p, rng)
			if err != nil {
				return failedSample(e.units, attempts), fmt.Errorf("regenerating production vertex: %w", err)
			}
			attempts++
			state = StateInit

		case StateIntersected:
			return e.sampleDecay(p, beta, tr, res, attempts, rng)

		case StateFailed:
			e.log.Error("unable to make a trajectory that intersects the detector",
				zap.Int("attempts", attempts),
				zap.Float64s("production", tr.Origin[:]),
			)
			return failedSample(e.units, attempts), fmt.Errorf("%w after %d regenerated vertices", ErrNoTrajectory, attempts)
		}
	}
}

func (e *Engine) sampleDecay(p Particle, beta float64, tr Trajectory, res IntersectionResult, attempts int, rng *rand.Rand) (DecaySample, error) {
	chord := res.Chord()
	c := e.units.SpeedOfLight
	sampler, err := NewDecayLengthSampler(beta, p.Lifetime, chord, c)
	if err != nil {
		return failedSample(e.units, attempts), err
	}
	travel := sampler.Draw(rng)
	distBefore := res.Entry.Sub(tr.Origin).Len()
	weight, err := AcceptanceWeight(beta, p.Lifetime, c, distBefore, chord)
	if err != nil {
		return failedSample(e.units, attempts), err
	}
	decay := res.Entry.Add(tr.Direction.Mul(travel))
	e.log.Debug("sampled decay",
		zap.Float64("chord", chord),
		zap.Float64("travel", travel),
		zap.Float64("weight", weight),
		zap.Int("attempts", attempts),
	)
	return DecaySample{
		OK:           true,
		State:        StateSampled,
		Attempts:     attempts,
		Production:   tr.Origin,
		Entry:        res.Entry,
		Exit:         res.Exit,
		TravelLength: travel,
		DecayPoint:   decay,
		Time:         p.Vertex[3],
		Weight:       weight,
		Units:        e.units,
	}, nil
}
