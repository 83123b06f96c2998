package decayvol

import (
	"context"
	"math/rand"
	"runtime"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
)

// workerSeed derives an independent, reproducible RNG seed for one worker.
func workerSeed(seed, tag string, wid int) int64 {
	return int64(xxhash.Sum64String(seed + "/" + tag + "/" + strconv.Itoa(wid)))
}

// split returns how many of n items worker w handles.
func split(n, workers, w int) int {
	per, rem := n/workers, n%workers
	if w < rem {
		return per + 1
	}
	return per
}

func numWorkers(requested, items int) int {
	w := requested
	if w <= 0 {
		w = runtime.NumCPU()
	}
	if w > items {
		w = items
	}
	return imax(w, 1)
}

// estimateAcceptance is the fraction of source particles whose first
// trajectory crosses the detector, with no vertex regeneration.
func estimateAcceptance(ctx context.Context, e *Engine, src *Source, trials, workers int, seed string) (float64, error) {
	if trials <= 0 {
		return 0, nil
	}
	workers = numWorkers(workers, trials)
	hits := make([]int, workers)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		n := split(trials, workers, w)
		if n == 0 {
			continue
		}
		g.Go(func() error {
			// independent RNG per worker
			rng := rand.New(rand.NewSource(workerSeed(seed, "probe", w)))
			for i := 0; i < n; i++ {
				if i%1024 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				ok, err := e.Probe(src.Particle(rng))
				if err != nil {
					return err
				}
				if ok {
					hits[w]++
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, h := range hits {
		total += h
	}
	return float64(total) / float64(trials), nil
}
