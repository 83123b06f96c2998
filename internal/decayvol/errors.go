package decayvol

import "errors"

var (
	// ErrPrecondition marks malformed input that points at a configuration or upstream bug.
	ErrPrecondition = errors.New("precondition violated")
	// ErrBetaOutOfRange is returned when the particle speed is not strictly inside (0, 1).
	ErrBetaOutOfRange = errors.New("beta must be in (0, 1)")
	// ErrUnknownUnit is returned for unit tokens missing from the unit table.
	ErrUnknownUnit = errors.New("unknown unit")
	// ErrNoTrajectory is returned when no production vertex yields a trajectory through the detector.
	ErrNoTrajectory = errors.New("no trajectory intersects the detector")
	// ErrDegenerateWeight is returned when the acceptance weight is not positive and finite.
	ErrDegenerateWeight = errors.New("degenerate acceptance weight")
	// ErrEmptyGeometry is returned for geometry descriptions without any solid.
	ErrEmptyGeometry = errors.New("geometry has no solids")
)
