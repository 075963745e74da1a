package pdu

import (
	"context"
	"sync"
	"time"
)

// OutletResult is the outcome of one operation in a batch.
type OutletResult struct {
	Outlet OutletIndex
	Status OutletStatus
	Err    error
}

// RunBatch runs fn once per outlet on at most concurrency workers and returns
// the results in the order of outlets. Every call to fn is independent.
func RunBatch(ctx context.Context, concurrency int, outlets []OutletIndex, fn func(context.Context, OutletIndex) OutletResult) []OutletResult {
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(outlets) {
		concurrency = len(outlets)
	}

	type job struct {
		pos    int
		outlet OutletIndex
	}
	var (
		jobs    = make(chan job)
		results = make([]OutletResult, len(outlets))
		wg      sync.WaitGroup
	)

	// workers write to distinct positions, so results needs no lock
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					results[j.pos] = OutletResult{Outlet: j.outlet, Err: err}
					continue
				}
				results[j.pos] = fn(ctx, j.outlet)
			}
		}()
	}

	for pos, outlet := range outlets {
		jobs <- job{pos: pos, outlet: outlet}
	}
	close(jobs)
	wg.Wait()

	return results
}

// QueryOutlets reads several outlets of one device, one request per outlet.
func (c *Controller) QueryOutlets(ctx context.Context, addr Address, outlets []OutletIndex, concurrency int) []OutletResult {
	return RunBatch(ctx, concurrency, outlets, func(ctx context.Context, outlet OutletIndex) OutletResult {
		status, err := c.QueryState(ctx, addr, outlet)
		return OutletResult{Outlet: outlet, Status: status, Err: err}
	})
}

// SetOutlets switches several outlets of one device, one request per outlet.
// Successful results carry the requested state.
func (c *Controller) SetOutlets(ctx context.Context, addr Address, outlets []OutletIndex, on bool, concurrency int) []OutletResult {
	return RunBatch(ctx, concurrency, outlets, func(ctx context.Context, outlet OutletIndex) OutletResult {
		if err := c.SetState(ctx, addr, outlet, on); err != nil {
			return OutletResult{Outlet: outlet, Err: err}
		}
		return OutletResult{Outlet: outlet, Status: statusFor(on)}
	})
}

// CycleOutlets power cycles several outlets of one device in parallel.
func (c *Controller) CycleOutlets(ctx context.Context, addr Address, outlets []OutletIndex, delay time.Duration, concurrency int) []OutletResult {
	return RunBatch(ctx, concurrency, outlets, func(ctx context.Context, outlet OutletIndex) OutletResult {
		if err := c.Cycle(ctx, addr, outlet, delay); err != nil {
			return OutletResult{Outlet: outlet, Err: err}
		}
		return OutletResult{Outlet: outlet, Status: StatusOn}
	})
}

func statusFor(on bool) OutletStatus {
	if on {
		return StatusOn
	}
	return StatusOff
}
