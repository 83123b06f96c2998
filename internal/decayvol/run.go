package decayvol

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// eventNamespace scopes the name-based event IDs.
var eventNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("decayvol.event"))

// EventID is the reproducible ID of event i in a run seeded with seed.
func EventID(seed string, i int) uuid.UUID {
	return uuid.NewSHA1(eventNamespace, []byte(seed+"/"+strconv.Itoa(i)))
}

// eventRNG seeds one event's randomness from its ID, so an event is
// reproducible regardless of which worker handles it.
func eventRNG(id uuid.UUID) *rand.Rand {
	return rand.New(rand.NewSource(int64(xxhash.Sum64(id[:]))))
}

// Record is one line of the JSON output.
type Record struct {
	ID         string     `json:"id"`
	OK         bool       `json:"ok"`
	Attempts   int        `json:"attempts"`
	Production [3]float64 `json:"production"`
	Decay      [4]float64 `json:"decay"` // x, y, z in the output unit, t as produced
	Travel     float64    `json:"travel"`
	Weight     float64    `json:"weight"`
	Reason     string     `json:"reason,omitempty"` // why a failed event has no decay
}

// Reasons recorded for failed events.
const (
	ReasonNoTrajectory     = "no-trajectory"
	ReasonDegenerateWeight = "degenerate-weight"
)

// failureReason maps the per-event errors a batch keeps going after.
func failureReason(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrNoTrajectory):
		return ReasonNoTrajectory, true
	case errors.Is(err, ErrDegenerateWeight):
		return ReasonDegenerateWeight, true
	}
	return "", false
}

// Summary of a generated batch.
type Summary struct {
	Events     int
	Accepted   int
	Failed     int
	Degenerate int // failed events whose weight under- or overflowed
	Attempts   int
	WeightSum  float64
	Acceptance float64 // probed first-trajectory acceptance
	Elapsed    time.Duration
}

// MeanWeight over accepted events.
func (s Summary) MeanWeight() float64 {
	if s.Accepted == 0 {
		return 0
	}
	return s.WeightSum / float64(s.Accepted)
}

func newRecord(id uuid.UUID, d DecaySample, unit string) (Record, error) {
	v, err := d.Vertex(unit)
	if err != nil {
		return Record{}, err
	}
	k := 1.0
	if d.OK {
		if k, err = d.Units.LengthIn(unit); err != nil {
			return Record{}, err
		}
	}
	p := d.Production.Mul(k)
	return Record{
		ID:         id.String(),
		OK:         d.OK,
		Attempts:   d.Attempts,
		Production: [3]float64{p[0], p[1], p[2]},
		Decay:      [4]float64{v[0], v[1], v[2], v[3]},
		Travel:     d.TravelLength * k,
		Weight:     d.Weight,
	}, nil
}

// Generate samples rc.Events decays with rc.Workers workers sharing e.
// Events whose trajectory never reaches the detector, or whose weight is
// not finite, are kept as failed records; any other error aborts the batch.
func Generate(ctx context.Context, e *Engine, src *Source, rc RunCfg) ([]Record, Summary, error) {
	start := time.Now()
	recs := make([]Record, rc.Events)
	sum := Summary{Events: rc.Events}
	if rc.Events == 0 {
		return recs, sum, nil
	}
	workers := numWorkers(rc.Workers, rc.Events)

	g, ctx := errgroup.WithContext(ctx)
	first := 0
	for w := 0; w < workers; w++ {
		lo := first
		hi := lo + split(rc.Events, workers, w)
		first = hi
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				id := EventID(rc.Seed, i)
				rng := eventRNG(id)
				d, err := e.Sample(src.Particle(rng), rng)
				reason := ""
				if err != nil {
					var ok bool
					if reason, ok = failureReason(err); !ok {
						return fmt.Errorf("event %s: %w", id, err)
					}
				}
				if recs[i], err = newRecord(id, d, rc.OutputUnit); err != nil {
					return err
				}
				recs[i].Reason = reason
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, sum, err
	}

	for _, r := range recs {
		sum.Attempts += r.Attempts
		if r.OK {
			sum.Accepted++
			sum.WeightSum += r.Weight
		} else {
			sum.Failed++
		}
		if r.Reason == ReasonDegenerateWeight {
			sum.Degenerate++
		}
	}
	sum.Elapsed = time.Since(start)
	return recs, sum, nil
}

// WriteRecords writes one JSON object per line.
func WriteRecords(w io.Writer, recs []Record) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for i := range recs {
		if err := enc.Encode(&recs[i]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeRecordsFile(path string, recs []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteRecords(f, recs); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func Run(cfgPath string) error {
	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	log, err := NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	e, src, err := cfg.BuildEngine(log)
	if err != nil {
		return err
	}
	log.Info("engine ready",
		zap.Stringer("units", e.Units()),
		zap.String("volume", cfg.Volume.Kind),
		zap.Int("events", cfg.Run.Events),
	)

	ctx := context.Background()
	acc, err := estimateAcceptance(ctx, e, src, cfg.Run.ProbeEvents, cfg.Run.Workers, cfg.Run.Seed)
	if err != nil {
		return err
	}
	if acc == 0 && cfg.Run.ProbeEvents > 0 {
		log.Warn("no probed trajectory crosses the detector, events will rely on vertex regeneration",
			zap.Int("probes", cfg.Run.ProbeEvents))
	}

	recs, sum, err := Generate(ctx, e, src, cfg.Run)
	if err != nil {
		return err
	}
	sum.Acceptance = acc

	if err := writeRecordsFile(cfg.Run.Out, recs); err != nil {
		return err
	}
	log.Info("run finished",
		zap.Int("events", sum.Events),
		zap.Int("accepted", sum.Accepted),
		zap.Int("failed", sum.Failed),
		zap.Int("degenerate", sum.Degenerate),
		zap.Int("regenerated", sum.Attempts),
		zap.Float64("acceptance", sum.Acceptance),
		zap.Float64("meanWeight", sum.MeanWeight()),
		zap.Duration("elapsed", sum.Elapsed),
		zap.String("out", cfg.Run.Out),
	)
	return nil
}
