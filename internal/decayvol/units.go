package decayvol

import (
	"fmt"
	"math"
)

const (
	speedOfLightSI = 299_792_458.0   // m/s
	hbarGeVs       = 6.582119569e-25 // GeV*s
	lifetimeGeV    = "GeV^-1"        // natural lifetime token accepted by configs
	degree         = math.Pi / 180
)

// UnitKind is the dimension a unit token measures.
type UnitKind uint8

const (
	Length UnitKind = iota
	Angle
	Time
)

func (k UnitKind) String() string {
	switch k {
	case Length:
		return "length"
	case Angle:
		return "angle"
	case Time:
		return "time"
	}
	return fmt.Sprintf("UnitKind(%d)", k)
}

// factors relative to m, rad and s
var unitTable = map[UnitKind]map[string]float64{
	Length: {
		"fm": 1e-15,
		"nm": 1e-9,
		"um": 1e-6,
		"mm": 1e-3,
		"cm": 1e-2,
		"dm": 1e-1,
		"m":  1,
		"km": 1e3,
	},
	Angle: {
		"urad": 1e-6,
		"mrad": 1e-3,
		"rad":  1,
		"deg":  degree,
	},
	Time: {
		"ps": 1e-12,
		"ns": 1e-9,
		"us": 1e-6,
		"ms": 1e-3,
		"s":  1,
	},
}

// Unit is a named unit with its size in SI (m, rad, s).
type Unit struct {
	Name   string
	Factor float64
}

// LookupUnit resolves a unit token of the given kind.
func LookupUnit(kind UnitKind, name string) (Unit, error) {
	f, ok := unitTable[kind][name]
	if !ok {
		return Unit{}, fmt.Errorf("%w: %q is not a %s unit", ErrUnknownUnit, name, kind)
	}
	return Unit{Name: name, Factor: f}, nil
}

// Units is the unit state of one engine: every stored length, angle and
// time is expressed in these units. SpeedOfLight is cached in Length/Time.
type Units struct {
	Length, Angle, Time Unit
	SpeedOfLight        float64
}

// Scale holds the old/new ratios produced by a rebase. Multiplying a value
// stored in the old units by the ratio expresses it in the new units.
type Scale struct {
	Length, Angle, Time float64
}

func (s Scale) identity() bool { return s.Length == 1 && s.Angle == 1 && s.Time == 1 }

// NewUnits builds a unit state from three tokens.
func NewUnits(length, angle, time string) (Units, error) {
	l, err := LookupUnit(Length, length)
	if err != nil {
		return Units{}, err
	}
	a, err := LookupUnit(Angle, angle)
	if err != nil {
		return Units{}, err
	}
	t, err := LookupUnit(Time, time)
	if err != nil {
		return Units{}, err
	}
	return Units{
		Length:       l,
		Angle:        a,
		Time:         t,
		SpeedOfLight: speedOfLightSI * t.Factor / l.Factor,
	}, nil
}

// MustUnits is NewUnits for tokens known to be valid.
func MustUnits(length, angle, time string) Units {
	u, err := NewUnits(length, angle, time)
	if err != nil {
		panic(err)
	}
	return u
}

// Rebase returns the state for the new tokens and the ratios every stored
// field must be multiplied by. The cached speed of light is carried over
// through the same ratios so length/(c*time) does not move. Rebasing to
// the active units returns ratios of exactly 1.
func (u Units) Rebase(length, angle, time string) (Units, Scale, error) {
	nu, err := NewUnits(length, angle, time)
	if err != nil {
		return u, Scale{1, 1, 1}, err
	}
	s := Scale{
		Length: u.Length.Factor / nu.Length.Factor,
		Angle:  u.Angle.Factor / nu.Angle.Factor,
		Time:   u.Time.Factor / nu.Time.Factor,
	}
	nu.SpeedOfLight = u.SpeedOfLight * s.Length / s.Time
	return nu, s, nil
}

// LengthIn returns the multiplier converting a length in the active unit to the named one.
func (u Units) LengthIn(name string) (float64, error) {
	to, err := LookupUnit(Length, name)
	if err != nil {
		return 0, err
	}
	return u.Length.Factor / to.Factor, nil
}

// Radians converts an angle in the active unit to radians.
func (u Units) Radians(a float64) float64 { return a * u.Angle.Factor }

// NaturalLifetime converts a lifetime in GeV^-1 to the active time unit.
func (u Units) NaturalLifetime(tauInvGeV float64) float64 {
	return tauInvGeV * hbarGeVs / u.Time.Factor
}

// Lifetime converts a lifetime given in the named unit (a time token or
// "GeV^-1") to the active time unit.
func (u Units) Lifetime(tau float64, unit string) (float64, error) {
	if unit == lifetimeGeV {
		return u.NaturalLifetime(tau), nil
	}
	from, err := LookupUnit(Time, unit)
	if err != nil {
		return 0, err
	}
	return tau * from.Factor / u.Time.Factor, nil
}

func (u Units) String() string {
	return fmt.Sprintf("[%s, %s, %s] c=%g %s/%s", u.Length.Name, u.Angle.Name, u.Time.Name, u.SpeedOfLight, u.Length.Name, u.Time.Name)
}
