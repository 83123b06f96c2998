package decayvol

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewUnits_SpeedOfLight(t *testing.T) {
	u, err := NewUnits("m", "rad", "s")
	require.NoError(t, err)
	require.Equal(t, speedOfLightSI, u.SpeedOfLight)

	u, err = NewUnits("cm", "deg", "ns")
	require.NoError(t, err)
	require.InDelta(t, 29.9792458, u.SpeedOfLight, 1e-9)
	require.InDelta(t, math.Pi/180, u.Angle.Factor, 1e-15)
}

func TestNewUnits_Unknown(t *testing.T) {
	_, err := NewUnits("furlong", "rad", "s")
	require.ErrorIs(t, err, ErrUnknownUnit)
	_, err = NewUnits("m", "grad", "s")
	require.ErrorIs(t, err, ErrUnknownUnit)
	_, err = NewUnits("m", "rad", "fortnight")
	require.ErrorIs(t, err, ErrUnknownUnit)
	// a valid token of the wrong kind
	_, err = LookupUnit(Time, "m")
	require.ErrorIs(t, err, ErrUnknownUnit)
}

func TestRebase_Ratios(t *testing.T) {
	u := MustUnits("m", "rad", "s")
	nu, s, err := u.Rebase("mm", "mrad", "ns")
	require.NoError(t, err)
	require.InDelta(t, 1e3, s.Length, 1e-9)
	require.InDelta(t, 1e3, s.Angle, 1e-9)
	require.InDelta(t, 1e9, s.Time, 1e-3)
	require.Equal(t, "mm", nu.Length.Name)
	require.InDelta(t, 299.792458, nu.SpeedOfLight, 1e-9)
}

func TestRebase_SameUnitsIsIdentity(t *testing.T) {
	u := MustUnits("cm", "deg", "us")
	nu, s, err := u.Rebase("cm", "deg", "us")
	require.NoError(t, err)
	require.True(t, s.identity())
	require.Equal(t, u, nu)
}

func TestRebase_KeepsLengthOverCT(t *testing.T) {
	// a length of 3 m flown in 20 ns
	u := MustUnits("m", "rad", "s")
	L, T := 3.0, 20e-9
	before := L / (u.SpeedOfLight * T)

	nu, s, err := u.Rebase("um", "rad", "ps")
	require.NoError(t, err)
	after := (L * s.Length) / (nu.SpeedOfLight * T * s.Time)
	require.InDelta(t, before, after, 1e-12)

	// and back again
	bu, bs, err := nu.Rebase("m", "rad", "s")
	require.NoError(t, err)
	require.InDelta(t, u.SpeedOfLight, bu.SpeedOfLight, 1e-6)
	require.InDelta(t, 1, s.Length*bs.Length, 1e-12)
}

func TestRebase_UnknownKeepsState(t *testing.T) {
	u := MustUnits("m", "rad", "s")
	nu, s, err := u.Rebase("m", "rad", "year")
	require.ErrorIs(t, err, ErrUnknownUnit)
	require.Equal(t, u, nu)
	require.True(t, s.identity())
}

func TestLifetimeConversions(t *testing.T) {
	u := MustUnits("m", "rad", "ns")
	tau, err := u.Lifetime(2, "us")
	require.NoError(t, err)
	require.InDelta(t, 2000, tau, 1e-9)

	tau, err = u.Lifetime(1e15, lifetimeGeV)
	require.NoError(t, err)
	require.InDelta(t, 6.582119569e-25*1e15/1e-9, tau, 1e-12)

	_, err = u.Lifetime(1, "GeV")
	require.ErrorIs(t, err, ErrUnknownUnit)

	k, err := u.LengthIn("cm")
	require.NoError(t, err)
	require.InDelta(t, 100, k, 1e-12)
	require.InDelta(t, math.Pi, MustUnits("m", "deg", "s").Radians(180), 1e-12)
}
