package backtest

import (
	"context"
	"sync"
	"sync/atomic"
)

// ProgressFunc is called after each symbol finishes.
type ProgressFunc func(done, total int)

// ScanResult is the outcome of one symbol in a scan. Exactly one of Report
// and Err is set.
type ScanResult struct {
	Symbol string
	Report *Report
	Err    error
}

// Scanner runs the same backtest over many symbols in parallel.
type Scanner struct {
	runner   *Runner
	workers  int
	progress ProgressFunc
}

// NewScanner creates a scanner with the given number of workers.
func NewScanner(r *Runner, workers int) *Scanner {
	if workers < 1 {
		workers = 1
	}
	return &Scanner{runner: r, workers: workers}
}

// SetProgressCallback sets the progress callback function
func (s *Scanner) SetProgressCallback(fn ProgressFunc) {
	s.progress = fn
}

// Scan backtests every request and returns the results in request order.
// A failing symbol does not stop the others. Requests not started before
// ctx is canceled report ctx.Err().
func (s *Scanner) Scan(ctx context.Context, reqs []Request) []ScanResult {
	results := make([]ScanResult, len(reqs))
	if len(reqs) == 0 {
		return results
	}

	jobs := make(chan int, len(reqs))
	for i := range reqs {
		jobs <- i
	}
	close(jobs)

	var done int64
	var wg sync.WaitGroup
	for w := 0; w < min(s.workers, len(reqs)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res := ScanResult{Symbol: reqs[i].Symbol}
				if err := ctx.Err(); err != nil {
					res.Err = err
				} else {
					res.Report, res.Err = s.runner.Run(ctx, reqs[i])
				}
				results[i] = res

				n := atomic.AddInt64(&done, 1)
				if s.progress != nil {
					s.progress(int(n), len(reqs))
				}
			}
		}()
	}
	wg.Wait()
	return results
}
