package decayvol

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// a source aimed straight at a 4 m box 10 m downstream
func aimedConfig(t *testing.T, out string) string {
	t.Helper()
	return writeFile(t, t.TempDir(), "cfg.yaml", `
logLevel: error
volume:
  kind: box
  box: {unit: m, halfExtents: [2, 2, 2]}
source:
  origin: [0, 0, -10]
  axis: [0, 0, 1]
  angleDeg: 1
  pipeLength: 5
  lifetime: 1.0e-8
run:
  events: 200
  probeEvents: 100
  workers: 4
  seed: test
  out: `+out+`
  outputUnit: cm
`)
}

func TestRun_WritesRecords(t *testing.T) {
	out := filepath.Join(t.TempDir(), "decays.jsonl")
	require.NoError(t, Run(aimedConfig(t, out)))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		require.True(t, r.OK)
		require.Equal(t, 0, r.Attempts)
		require.GreaterOrEqual(t, r.Decay[2], -200.0)
		require.LessOrEqual(t, r.Decay[2], 200.0)
		require.Greater(t, r.Weight, 1.0)
		require.Empty(t, r.Reason)
		require.Equal(t, EventID("test", n).String(), r.ID)
		n++
	}
	require.NoError(t, sc.Err())
	require.Equal(t, 200, n)
}

func TestGenerate_IndependentOfWorkerCount(t *testing.T) {
	cfg, err := LoadConfig(aimedConfig(t, "unused.jsonl"))
	require.NoError(t, err)
	e, src, err := cfg.BuildEngine(nil)
	require.NoError(t, err)

	rc := cfg.Run
	rc.Workers = 1
	a, sa, err := Generate(context.Background(), e, src, rc)
	require.NoError(t, err)
	rc.Workers = 7
	b, sb, err := Generate(context.Background(), e, src, rc)
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.Equal(t, 200, sa.Accepted)
	require.Equal(t, sa.WeightSum, sb.WeightSum)
	require.Greater(t, sa.MeanWeight(), 1.0)
}

func TestGenerate_FailedEventsAreKept(t *testing.T) {
	cfg, err := LoadConfig(aimedConfig(t, "unused.jsonl"))
	require.NoError(t, err)
	cfg.Source.Axis = []float64{0, 0, -1} // away from the detector
	cfg.Engine.MaxRetries = 2
	e, src, err := cfg.BuildEngine(nil)
	require.NoError(t, err)

	rc := cfg.Run
	rc.Events = 10
	recs, sum, err := Generate(context.Background(), e, src, rc)
	require.NoError(t, err)
	require.Len(t, recs, 10)
	require.Equal(t, 10, sum.Failed)
	require.Equal(t, 20, sum.Attempts)
	for _, r := range recs {
		require.False(t, r.OK)
		require.Equal(t, ReasonNoTrajectory, r.Reason)
		require.Equal(t, [4]float64{SentinelCoord, SentinelCoord, SentinelCoord, SentinelCoord}, r.Decay)
	}
	require.Zero(t, sum.Degenerate)
	require.Zero(t, sum.MeanWeight())
}

func TestGenerate_DegenerateWeightsAreKept(t *testing.T) {
	cfg, err := LoadConfig(aimedConfig(t, "unused.jsonl"))
	require.NoError(t, err)
	// metres of flight before the box against micrometre decay lengths
	cfg.Source.Lifetime = 1e-15
	e, src, err := cfg.BuildEngine(nil)
	require.NoError(t, err)

	rc := cfg.Run
	rc.Events = 10
	recs, sum, err := Generate(context.Background(), e, src, rc)
	require.NoError(t, err)
	require.Len(t, recs, 10)
	require.Equal(t, 10, sum.Failed)
	require.Equal(t, 10, sum.Degenerate)
	for _, r := range recs {
		require.False(t, r.OK)
		require.Equal(t, ReasonDegenerateWeight, r.Reason)
		require.Equal(t, [4]float64{SentinelCoord, SentinelCoord, SentinelCoord, SentinelCoord}, r.Decay)
	}
}

func TestEstimateAcceptance(t *testing.T) {
	cfg, err := LoadConfig(aimedConfig(t, "unused.jsonl"))
	require.NoError(t, err)
	e, src, err := cfg.BuildEngine(nil)
	require.NoError(t, err)

	acc, err := estimateAcceptance(context.Background(), e, src, 500, 3, "x")
	require.NoError(t, err)
	require.Equal(t, 1.0, acc)

	away, err := NewSource(Vec3{0, 0, -10}, Vec3{0, 0, -1}, 0.01, 5, 0.1, 1, 2, 1e-8)
	require.NoError(t, err)
	acc, err = estimateAcceptance(context.Background(), e, away, 500, 3, "x")
	require.NoError(t, err)
	require.Equal(t, 0.0, acc)

	acc, err = estimateAcceptance(context.Background(), e, src, 0, 3, "x")
	require.NoError(t, err)
	require.Zero(t, acc)
}

func TestEventID_Reproducible(t *testing.T) {
	require.Equal(t, EventID("s", 1), EventID("s", 1))
	require.NotEqual(t, EventID("s", 1), EventID("s", 2))
	require.NotEqual(t, EventID("s", 1), EventID("t", 1))
	require.Equal(t, eventRNG(EventID("s", 1)).Int63(), eventRNG(EventID("s", 1)).Int63())
}

func TestSplitCoversAllItems(t *testing.T) {
	for _, n := range []int{1, 7, 100, 101} {
		for _, w := range []int{1, 3, 8} {
			sum := 0
			for i := 0; i < w; i++ {
				sum += split(n, w, i)
			}
			require.Equal(t, n, sum)
		}
	}
	require.Equal(t, 1, numWorkers(0, 1))
	require.Equal(t, 5, numWorkers(5, 100))
}
