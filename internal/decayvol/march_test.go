package decayvol

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// scriptNav replays a fixed list of boundary moves along the cursor
// direction; when the script runs out it reports no boundary, unless
// forever is set.
type scriptNav struct {
	min, max Vec3
	moves    []float64
	forever  bool
	calls    int
}

func (n *scriptNav) NextBoundary(c *Cursor, maxStep float64) bool {
	n.calls++
	if n.forever {
		c.Advance(0.001)
		return true
	}
	if len(n.moves) == 0 {
		c.Advance(maxStep)
		return false
	}
	c.Advance(n.moves[0])
	n.moves = n.moves[1:]
	return true
}

func (n *scriptNav) Step(c *Cursor, d float64) { c.Advance(d) }
func (n *scriptNav) Locate(Vec3) bool { return false }
func (n *scriptNav) WorldBox() (Vec3, Vec3) { return n.min, n.max }
func (n *scriptNav) SolidBox() (Vec3, Vec3) { return n.min, n.max }
func (n *scriptNav) Tolerance() float64 { return 1e-9 }
func (n *scriptNav) Unit() string { return "m" }

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestMarch_SDFCubeInCentimetres(t *testing.T) {
	u := MustUnits("m", "rad", "s")
	nav, err := NewSDFNavigator(sdfCube(t, 100), "cm", 50)
	require.NoError(t, err)
	m, err := NewMarchIntersector(nav, DefaultMarchParams(u), u, nil)
	require.NoError(t, err)

	res := m.Intersect(mustTrajectory(t, Vec3{-2, 0, 0}, Vec3{1, 0, 0}))
	require.True(t, res.Hit)
	requireVecNear(t, Vec3{-1, 0, 0}, res.Entry, 1e-5)
	requireVecNear(t, Vec3{1, 0, 0}, res.Exit, 1e-5)
	require.InDelta(t, 2, res.Chord(), 2e-5)
}

func TestMarch_AgreesWithBox(t *testing.T) {
	u := MustUnits("m", "rad", "s")
	nav, err := NewSDFNavigator(sdfCube(t, 100), "cm", 50)
	require.NoError(t, err)
	m, err := NewMarchIntersector(nav, DefaultMarchParams(u), u, nil)
	require.NoError(t, err)
	b := unitBox(t)

	for _, tc := range []struct{ o, d Vec3 }{
		{Vec3{-3, 0.2, 0.1}, Vec3{1, 0.05, -0.02}},
		{Vec3{0.3, -4, 0.5}, Vec3{0, 1, 0.1}},
		{Vec3{-0.2, 0.4, 5}, Vec3{0.1, -0.1, -1}},
	} {
		tr := mustTrajectory(t, tc.o, tc.d)
		want := b.Intersect(tr)
		got := m.Intersect(tr)
		require.True(t, want.Hit)
		require.True(t, got.Hit)
		requireVecNear(t, want.Entry, got.Entry, 1e-4)
		requireVecNear(t, want.Exit, got.Exit, 1e-4)
	}
}

func TestMarch_Miss(t *testing.T) {
	u := MustUnits("m", "rad", "s")
	nav, err := NewSDFNavigator(sdfSphere(t, 100), "cm", 50)
	require.NoError(t, err)
	m, err := NewMarchIntersector(nav, DefaultMarchParams(u), u, nil)
	require.NoError(t, err)
	require.False(t, m.Intersect(mustTrajectory(t, Vec3{-2, 1.2, 0}, Vec3{1, 0, 0})).Hit)
	// crosses the world box only
	require.False(t, m.Intersect(mustTrajectory(t, Vec3{-2, 1.4, 1.4}, Vec3{1, 0, 0})).Hit)
}

func TestMarch_ProductionInsideRestartsAtWorldEntry(t *testing.T) {
	u := MustUnits("m", "rad", "s")
	nav, err := NewSDFNavigator(sdfSphere(t, 100), "cm", 50)
	require.NoError(t, err)
	m, err := NewMarchIntersector(nav, DefaultMarchParams(u), u, nil)
	require.NoError(t, err)
	res := m.Intersect(mustTrajectory(t, Vec3{}, Vec3{1, 0, 0}))
	require.True(t, res.Hit)
	requireVecNear(t, Vec3{-1, 0, 0}, res.Entry, 1e-5)
	requireVecNear(t, Vec3{1, 0, 0}, res.Exit, 1e-5)
}

func TestMarch_WorldBoxEntryIsSkipped(t *testing.T) {
	u := MustUnits("m", "rad", "s")
	p := DefaultMarchParams(u)

	// the first reported boundary is the world box at x=-1, the solid starts at x=-0.5
	nav := &scriptNav{min: Vec3{-1, -1, -1}, max: Vec3{1, 1, 1}, moves: []float64{4.1, 0.5}}
	m, err := NewMarchIntersector(nav, p, u, nil)
	require.NoError(t, err)
	res := m.Intersect(mustTrajectory(t, Vec3{-5, 0, 0}, Vec3{1, 0, 0}))
	require.True(t, res.Hit)
	require.InDelta(t, -0.5, res.Entry[0], 1e-12)

	// the same first boundary away from the world box is the entry
	nav = &scriptNav{min: Vec3{-10, -10, -10}, max: Vec3{10, 10, 10}, moves: []float64{4.1, 0.5}}
	m, err = NewMarchIntersector(nav, p, u, nil)
	require.NoError(t, err)
	res = m.Intersect(mustTrajectory(t, Vec3{-5, 0, 0}, Vec3{1, 0, 0}))
	require.True(t, res.Hit)
	require.InDelta(t, -1, res.Entry[0], 1e-12)
}

func TestMarch_ShortChordIsForced(t *testing.T) {
	u := MustUnits("m", "rad", "s")
	p := DefaultMarchParams(u)
	log, logs := observed()
	nav := &scriptNav{min: Vec3{-100, -100, -100}, max: Vec3{100, 100, 100}, moves: []float64{1}}
	m, err := NewMarchIntersector(nav, p, u, log)
	require.NoError(t, err)

	res := m.Intersect(mustTrajectory(t, Vec3{}, Vec3{1, 0, 0}))
	require.True(t, res.Hit)
	require.InDelta(t, 0.9, res.Entry[0], 1e-12)
	require.InDelta(t, p.ShortChordStep, res.Chord(), 1e-12)

	warns := logs.FilterMessage("detector section is shorter than the first step, forcing a short chord").All()
	require.Len(t, warns, 1)
	require.Equal(t, zapcore.WarnLevel, warns[0].Level)
}

func TestMarch_IterationBound(t *testing.T) {
	u := MustUnits("m", "rad", "s")
	p := DefaultMarchParams(u)
	p.MaxIterations = 50
	log, logs := observed()
	nav := &scriptNav{min: Vec3{-100, -100, -100}, max: Vec3{100, 100, 100}, forever: true}
	m, err := NewMarchIntersector(nav, p, u, log)
	require.NoError(t, err)

	require.False(t, m.Intersect(mustTrajectory(t, Vec3{}, Vec3{1, 0, 0})).Hit)
	require.Equal(t, 1+p.MaxIterations, nav.calls)
	require.Equal(t, 1, logs.FilterMessage("failed to exit the detector volume, dropping trajectory").Len())
}

func TestMarch_InvalidParams(t *testing.T) {
	u := MustUnits("m", "rad", "s")
	nav := &scriptNav{max: Vec3{1, 1, 1}}
	p := DefaultMarchParams(u)
	p.MinStep = 0
	_, err := NewMarchIntersector(nav, p, u, nil)
	require.ErrorIs(t, err, ErrPrecondition)

	p = DefaultMarchParams(u)
	p.MaxIterations = 0
	_, err = NewMarchIntersector(nav, p, u, nil)
	require.ErrorIs(t, err, ErrPrecondition)

	_, err = NewMarchIntersector(nil, DefaultMarchParams(u), u, nil)
	require.ErrorIs(t, err, ErrPrecondition)
}

func TestMarch_DefaultParamsFollowUnits(t *testing.T) {
	p := DefaultMarchParams(MustUnits("cm", "rad", "s"))
	require.InDelta(t, 10, p.Margin, 1e-12)
	require.InDelta(t, 1, p.MinStep, 1e-12)
	require.InDelta(t, 5, p.ShortChordStep, 1e-12)
	require.InDelta(t, 1e6, p.StepLimit, 1e-6)
}

func TestMarch_FirstStepFollowsTheSolid(t *testing.T) {
	u := MustUnits("m", "rad", "s")
	// a wide world around a 2 m cube; a first step sized from the world
	// would jump clean through the cube
	nav, err := NewSDFNavigator(sdfCube(t, 100), "cm", 1000)
	require.NoError(t, err)
	bmin, bmax := nav.SolidBox()
	requireVecNear(t, Vec3{-100, -100, -100}, bmin, 1e-9)
	requireVecNear(t, Vec3{100, 100, 100}, bmax, 1e-9)

	params := DefaultMarchParams(u)
	params.MaxStep = 100
	log, logs := observed()
	m, err := NewMarchIntersector(nav, params, u, log)
	require.NoError(t, err)

	res := m.Intersect(mustTrajectory(t, Vec3{-2, 0, 0}, Vec3{1, 0, 0}))
	require.True(t, res.Hit)
	requireVecNear(t, Vec3{-1, 0, 0}, res.Entry, 1e-5)
	requireVecNear(t, Vec3{1, 0, 0}, res.Exit, 1e-5)
	require.Zero(t, logs.FilterMessage("detector section is shorter than the first step, forcing a short chord").Len())
}
