package decayvol

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type (
	Vec3 = mgl64.Vec3
	Vec4 = mgl64.Vec4
)

func isFinite(x float64) bool { return !math.IsInf(x, 0) && !math.IsNaN(x) }

func imax(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// vec3FromSlice converts a configuration triple into a vector.
func vec3FromSlice(name string, v []float64) (Vec3, error) {
	if len(v) != 3 {
		return Vec3{}, fmt.Errorf("%w: %s must have 3 components, got %d", ErrPrecondition, name, len(v))
	}
	return Vec3{v[0], v[1], v[2]}, nil
}

// vec3OrZero is vec3FromSlice for optional triples.
func vec3OrZero(name string, v []float64) (Vec3, error) {
	if len(v) == 0 {
		return Vec3{}, nil
	}
	return vec3FromSlice(name, v)
}
