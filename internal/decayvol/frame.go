package decayvol

import "github.com/go-gl/mathgl/mgl64"

// FrameRotation is one stage of the beam → hall → detector map: a rotation
// about Origin by the fixed Euler sequence, followed by a translation Shift.
// Angles are stored in the owning Units' angle unit, lengths in its length unit.
type FrameRotation struct {
	Angles EulerAngles
	Origin Vec3
	Shift  Vec3

	// cached
	rot mgl64.Mat3 // towards the detector
	inv mgl64.Mat3 // towards the beam
}

// NewFrameRotation builds a stage. radPerUnit converts Angles to radians.
// Going towards the detector the angles are applied negated, the
// convention the rotation parameters are published in.
func NewFrameRotation(angles EulerAngles, origin, shift Vec3, radPerUnit float64) FrameRotation {
	R := rotFromAngles(angles.Mul(radPerUnit).Neg())
	return FrameRotation{
		Angles: angles,
		Origin: origin,
		Shift:  shift,
		rot:    R,
		inv:    R.Transpose(),
	}
}

func (f FrameRotation) forward(p Vec3) Vec3 {
	return f.rot.Mul3x1(p.Sub(f.Origin)).Add(f.Origin).Add(f.Shift)
}

func (f FrameRotation) backward(p Vec3) Vec3 {
	return f.inv.Mul3x1(p.Sub(f.Shift).Sub(f.Origin)).Add(f.Origin)
}

func (f FrameRotation) rescaled(s Scale, radPerUnit float64) FrameRotation {
	return NewFrameRotation(f.Angles.Mul(s.Angle), f.Origin.Mul(s.Length), f.Shift.Mul(s.Length), radPerUnit)
}

// FrameTransform chains the beam → target-hall and target-hall → detector stages.
type FrameTransform struct {
	BeamToHall     FrameRotation
	HallToDetector FrameRotation
}

// NewFrameTransform builds the two stages. beamAngles rotate about the beam
// origin and are followed by beamShift; detAngles rotate about detCentre.
func NewFrameTransform(beamAngles EulerAngles, beamShift Vec3, detAngles EulerAngles, detCentre Vec3, u Units) FrameTransform {
	return FrameTransform{
		BeamToHall:     NewFrameRotation(beamAngles, Vec3{}, beamShift, u.Angle.Factor),
		HallToDetector: NewFrameRotation(detAngles, detCentre, Vec3{}, u.Angle.Factor),
	}
}

// IdentityFrame is the transform of a detector sitting on the beam axis at the beam origin.
func IdentityFrame() FrameTransform {
	return NewFrameTransform(EulerAngles{}, Vec3{}, EulerAngles{}, Vec3{}, Units{Angle: Unit{Name: "rad", Factor: 1}})
}

// ToDetectorFrame maps a beam-frame point into detector coordinates.
func (ft FrameTransform) ToDetectorFrame(p Vec3) Vec3 {
	return ft.HallToDetector.forward(ft.BeamToHall.forward(p))
}

// ToBeamFrame is the exact inverse of ToDetectorFrame.
func (ft FrameTransform) ToBeamFrame(p Vec3) Vec3 {
	return ft.BeamToHall.backward(ft.HallToDetector.backward(p))
}

// RotateToDetector applies only the rotations, for directions.
func (ft FrameTransform) RotateToDetector(v Vec3) Vec3 {
	return ft.HallToDetector.rot.Mul3x1(ft.BeamToHall.rot.Mul3x1(v))
}

func (ft FrameTransform) rescaled(s Scale, u Units) FrameTransform {
	return FrameTransform{
		BeamToHall:     ft.BeamToHall.rescaled(s, u.Angle.Factor),
		HallToDetector: ft.HallToDetector.rescaled(s, u.Angle.Factor),
	}
}
