package decayvol

import (
	"fmt"
	"math"
	"math/rand"
)

// Gamma is the Lorentz factor for speed beta (fraction of c).
func Gamma(beta float64) float64 { return 1 / math.Sqrt(1-beta*beta) }

// DecayLengthSampler draws distances travelled inside the detector from the
// decay-length distribution truncated to the chord [0, MaxLength].
type DecayLengthSampler struct {
	Beta, Tau, MaxLength, C float64

	// cached
	gamma       float64
	lambda      float64 // mean lab-frame decay length, beta*gamma*c*tau
	restTimeMax float64
	pDecay      float64 // 1 - exp(-restTimeMax/tau)
}

// NewDecayLengthSampler needs beta strictly in (0,1); a massless or
// superluminal particle cannot be sampled.
func NewDecayLengthSampler(beta, tau, maxLength, c float64) (*DecayLengthSampler, error) {
	if !(beta > 0 && beta < 1) {
		return nil, fmt.Errorf("%w: got %g", ErrBetaOutOfRange, beta)
	}
	if !(tau > 0) || !isFinite(tau) {
		return nil, fmt.Errorf("%w: lifetime must be > 0, got %g", ErrPrecondition, tau)
	}
	if !(maxLength >= 0) || !isFinite(maxLength) {
		return nil, fmt.Errorf("%w: chord length must be >= 0, got %g", ErrPrecondition, maxLength)
	}
	if !(c > 0) {
		return nil, fmt.Errorf("%w: speed of light must be > 0, got %g", ErrPrecondition, c)
	}
	g := Gamma(beta)
	restTimeMax := maxLength / (beta * c) / g
	return &DecayLengthSampler{
		Beta:        beta,
		Tau:         tau,
		MaxLength:   maxLength,
		C:           c,
		gamma:       g,
		lambda:      beta * g * c * tau,
		restTimeMax: restTimeMax,
		pDecay:      -math.Expm1(-restTimeMax / tau),
	}, nil
}

// PExit is the probability of crossing the whole chord without decaying.
func (s *DecayLengthSampler) PExit() float64 { return 1 - s.pDecay }

func (s *DecayLengthSampler) RestTimeMax() float64 { return s.restTimeMax }

// TravelLength inverts the truncated exponential CDF: u=0 gives 0 and
// u=1 gives MaxLength.
func (s *DecayLengthSampler) TravelLength(u float64) float64 {
	// S0 = 1 - (1-PExit)*u
	restTime := -s.Tau * math.Log1p(-s.pDecay*u)
	elapsed := restTime * s.gamma
	d := elapsed * s.Beta * s.C
	if d > s.MaxLength {
		d = s.MaxLength
	}
	return d
}

// Draw samples a travel length with rng.
func (s *DecayLengthSampler) Draw(rng *rand.Rand) float64 { return s.TravelLength(rng.Float64()) }

// CDF of the truncated distribution.
func (s *DecayLengthSampler) CDF(d float64) float64 {
	switch {
	case d <= 0:
		return 0
	case d >= s.MaxLength:
		return 1
	}
	return -math.Expm1(-d/s.lambda) / s.pDecay
}

// Mean of the truncated distribution.
func (s *DecayLengthSampler) Mean() float64 {
	return s.lambda - s.MaxLength*(1-s.pDecay)/s.pDecay
}

// AcceptanceWeight is 1/P(survive to the entry) * 1/P(decay inside the
// chord) for a particle flying distBefore to the entry point and then
// chord through the detector.
func AcceptanceWeight(beta, tau, c, distBefore, chord float64) (float64, error) {
	if !(beta > 0 && beta < 1) {
		return 0, fmt.Errorf("%w: got %g", ErrBetaOutOfRange, beta)
	}
	labToRest := 1 / Gamma(beta)
	timeBefore := distBefore / (beta * c) * labToRest
	timeInside := chord / (beta * c) * labToRest

	survProb := math.Exp(-timeBefore / tau)
	decayProb := -math.Expm1(-timeInside / tau)
	w := 1 / survProb * (1 / decayProb)
	if !(w > 0) || !isFinite(w) {
		return w, fmt.Errorf("%w: survival %g, decay %g", ErrDegenerateWeight, survProb, decayProb)
	}
	return w, nil
}
