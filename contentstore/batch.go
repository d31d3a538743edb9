package contentstore

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/quay/ubi-manifest"
)

// concurrentSearch fans a criteria list out across windows of size
// batchSize, running up to maxInflight windowed searches against do
// concurrently, and folds every returned page back into a single
// channel. It closes the returned channel once every window has
// finished, and stops issuing new windows (without canceling in-flight
// ones) on the first error, which is sent on the error channel.
//
// The fan-out shape is grounded on the matcher package's worker-pool
// collector: a goroutine owns the WaitGroup and closes the output
// channel once every window's goroutine has returned, while a
// sync.Once guards the single send of the first error. Concurrency is bounded with a
// semaphore the way the updater manager bounds its batch of in-flight
// updaters.
func concurrentSearch(ctx context.Context, windows [][]Criteria, maxInflight int, do func(ctx context.Context, w []Criteria) (Page, error)) (<-chan Page, <-chan error) {
	out := make(chan Page, len(windows))
	errc := make(chan error, 1)
	if len(windows) == 0 {
		close(out)
		close(errc)
		return out, errc
	}
	if maxInflight <= 0 {
		maxInflight = 1
	}

	go func() {
		defer close(out)
		defer close(errc)

		sem := semaphore.NewWeighted(int64(maxInflight))
		var wg sync.WaitGroup
		var errOnce sync.Once
		stop := make(chan struct{})
		fail := func(err error) {
			errOnce.Do(func() {
				errc <- err
				close(stop)
			})
		}

	loop:
		for i := range windows {
			if ctx.Err() != nil {
				break
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				fail(err)
				break
			}
			select {
			case <-stop:
				sem.Release(1)
				break loop
			default:
			}
			wg.Add(1)
			go func(w []Criteria) {
				defer wg.Done()
				defer sem.Release(1)

				page, err := do(ctx, w)
				if err != nil {
					fail(err)
					return
				}
				select {
				case out <- page:
				case <-ctx.Done():
				}
			}(windows[i])
		}
		wg.Wait()
	}()

	return out, errc
}

// throttle wraps a do func with a per-client rate limiter, so paged
// requests issued by concurrentSearch don't exceed a configured
// requests-per-second budget against the store.
func throttle(lim *rate.Limiter, do func(ctx context.Context, w []Criteria) (Page, error)) func(ctx context.Context, w []Criteria) (Page, error) {
	if lim == nil {
		return do
	}
	return func(ctx context.Context, w []Criteria) (Page, error) {
		if err := lim.Wait(ctx); err != nil {
			return Page{}, err
		}
		return do(ctx, w)
	}
}

// Fold collects every page from a Search call into a single slice of
// units, in arrival order; it does not de-duplicate, and units keep the
// SourceRepoID the Client tagged them with. It returns after the page
// channel closes or the error channel yields a value, whichever first;
// once the page channel has closed it still waits for the error
// channel to yield or close, so an error sent alongside the close is
// not lost.
func Fold(ctx context.Context, pages <-chan Page, errc <-chan error) ([]ubimanifest.Unit, error) {
	var units []ubimanifest.Unit
	for {
		select {
		case p, ok := <-pages:
			if !ok {
				select {
				case err, ok := <-errc:
					if ok && err != nil {
						return units, err
					}
				case <-ctx.Done():
					return units, ctx.Err()
				}
				return units, nil
			}
			units = append(units, p.Units...)
		case err, ok := <-errc:
			if ok && err != nil {
				return units, err
			}
		case <-ctx.Done():
			return units, ctx.Err()
		}
	}
}

// logPage is a small debug hook used by Pulp.Search implementations to
// report windowed page sizes without pulling slog into the hot loop
// itself.
func logPage(ctx context.Context, repo string, unitType UnitType, n int) {
	slog.DebugContext(ctx, "fetched page", "repo", repo, "unit_type", string(unitType), "units", n)
}
