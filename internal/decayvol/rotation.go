package decayvol

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// EulerAngles of one frame stage, in the order configurations list them.
// The sequence applied to a point is Ax2 about x, then Az about z, then Ax1 about x.
type EulerAngles struct {
	Ax1, Az, Ax2 float64
}

// AnglesFromSlice reads a configuration rotation vector (Ax1, Az, Ax2).
func AnglesFromSlice(name string, v []float64) (EulerAngles, error) {
	if len(v) != 3 {
		return EulerAngles{}, fmt.Errorf("%w: %s needs 3 Euler angles, got %d", ErrPrecondition, name, len(v))
	}
	return EulerAngles{Ax1: v[0], Az: v[1], Ax2: v[2]}, nil
}

func (a EulerAngles) Neg() EulerAngles { return EulerAngles{-a.Ax1, -a.Az, -a.Ax2} }

func (a EulerAngles) Mul(k float64) EulerAngles { return EulerAngles{a.Ax1 * k, a.Az * k, a.Ax2 * k} }

func (a EulerAngles) IsZero() bool { return a == EulerAngles{} }

// Compose rotation from angles (radians).
func rotFromAngles(a EulerAngles) mgl64.Mat3 {
	R := mgl64.Ident3()
	R = mgl64.Rotate3DX(a.Ax2).Mul3(R)
	R = mgl64.Rotate3DZ(a.Az).Mul3(R)
	R = mgl64.Rotate3DX(a.Ax1).Mul3(R)
	return R
}
