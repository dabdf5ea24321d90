package graph

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ProgressCallback is called when a module's status changes
type ProgressCallback func(module string, status string, finished bool)

// ModuleFunc does the work for one module
type ModuleFunc func(ctx context.Context, module string) error

// ExecutionResult records how one module's work ended
type ExecutionResult struct {
	Module string
	Level  int
	Err    error
}

// Runner executes modules level by level. Modules of one level run in
// parallel; a level starts only after the previous one has finished.
type Runner struct {
	workers int
}

// NewRunner creates a runner with the given number of parallel workers.
// Zero or less uses the number of CPUs.
func NewRunner(workers int) *Runner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Runner{workers: workers}
}

// ExecuteWithProgress runs fn for every module, reporting status changes to
// progressCallback when it is not nil.
// Every module of a failing level is awaited before the first error is
// returned, and later levels are not started.
func (r *Runner) ExecuteWithProgress(ctx context.Context, levels [][]string, fn ModuleFunc, progressCallback ProgressCallback) ([]ExecutionResult, error) {
	var results []ExecutionResult

	for level, modules := range levels {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		levelResults := make([]ExecutionResult, len(modules))
		var mu sync.Mutex
		var g errgroup.Group
		g.SetLimit(r.workers)

		for i, module := range modules {
			g.Go(func() error {
				if progressCallback != nil {
					mu.Lock()
					progressCallback(module, "running", false)
					mu.Unlock()
				}

				err := fn(ctx, module)
				levelResults[i] = ExecutionResult{Module: module, Level: level, Err: err}

				if progressCallback != nil {
					status := "completed"
					if err != nil {
						status = "failed"
					}
					mu.Lock()
					progressCallback(module, status, true)
					mu.Unlock()
				}
				if err != nil {
					return fmt.Errorf("module %s failed: %w", module, err)
				}
				return nil
			})
		}

		err := g.Wait()
		results = append(results, levelResults...)
		if err != nil {
			return results, err
		}
	}

	return results, nil
}
