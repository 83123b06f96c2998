package decayvol

import "math"

// rayAABB is the slab test of the line O + t*D against [minP, maxP].
// It returns the parameters of the first and last crossing; both may be
// negative when the box is behind O.
func rayAABB(O, D, minP, maxP Vec3) (bool, float64, float64) {
	const eps = 1e-12
	tmin, tmax := -1e300, 1e300

	for i := 0; i < 3; i++ {
		if math.Abs(D[i]) < eps {
			if O[i] < minP[i] || O[i] > maxP[i] {
				return false, 0, 0
			}
			continue
		}
		inv := 1 / D[i]
		t1 := (minP[i] - O[i]) * inv
		t2 := (maxP[i] - O[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
	}

	if tmin > tmax {
		return false, 0, 0
	}
	return true, tmin, tmax
}

// insideAABB reports whether p lies in the closed box.
func insideAABB(p, minP, maxP Vec3) bool {
	return p[0] >= minP[0] && p[0] <= maxP[0] &&
		p[1] >= minP[1] && p[1] <= maxP[1] &&
		p[2] >= minP[2] && p[2] <= maxP[2]
}

// onAABBSurface reports whether p lies within tol of any face of the box.
func onAABBSurface(p, minP, maxP Vec3, tol float64) bool {
	for i := 0; i < 3; i++ {
		if math.Abs(p[i]-minP[i]) <= tol || math.Abs(p[i]-maxP[i]) <= tol {
			return true
		}
	}
	return false
}
