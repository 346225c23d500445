package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"
)

// planOutputs assigns every document its output path. A document whose path
// was already claimed by an earlier one gets ErrOutputConflict instead, so
// same-named inputs from different directories never overwrite each other.
func planOutputs(files []string, config *Config) ([]string, []error) {
	outs := make([]string, len(files))
	errs := make([]error, len(files))
	claimed := make(map[string]string, len(files))
	for i, in := range files {
		out := OutputPath(in, config.OutputDir, config.Suffix)
		outs[i] = out
		key := filepath.Clean(out)
		if abs, err := filepath.Abs(out); err == nil {
			key = abs
		}
		if prev, ok := claimed[key]; ok {
			errs[i] = fmt.Errorf("%w: %s is written for %s", ErrOutputConflict, out, prev)
			continue
		}
		claimed[key] = in
	}
	return outs, errs
}

// processSingleDocument redacts in into out.
func processSingleDocument(ctx context.Context, r Runner, in, out string, planErr error) DocumentResult {
	doc := DocumentResult{Input: in, Output: out}
	if planErr != nil {
		doc.Err = planErr
		return doc
	}
	if SameFile(in, out) {
		doc.Err = ErrOverwrite
		return doc
	}

	start := time.Now()
	res, err := r.Run(ctx, in, out)
	doc.Duration = time.Since(start)
	doc.Result = res
	if err != nil {
		doc.Err = err
	}
	return doc
}

// SameFile reports whether a and b name the same path.
func SameFile(a, b string) bool {
	aa, errA := filepath.Abs(a)
	bb, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return aa == bb
}

// processDocumentsParallel fans documents out to a bounded worker pool.
// Results keep input order. Without ContinueOnError the first failure
// stops dispatch and the remaining documents are marked skipped.
func processDocumentsParallel(ctx context.Context, r Runner, files []string, config *Config,
	workers int, progress ProgressCallback) []DocumentResult {
	results := make([]DocumentResult, len(files))
	outs, planErrs := planOutputs(files, config)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if progress != nil {
		progress.OnStart(len(files))
	}

	jobs := make(chan int)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	for range min(workers, len(files)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := runCtx.Err(); err != nil {
					results[i] = DocumentResult{Input: files[i], Err: fmt.Errorf("%w: %w", ErrSkipped, err)}
				} else {
					results[i] = processSingleDocument(runCtx, r, files[i], outs[i], planErrs[i])
					if results[i].Failed() && !config.ContinueOnError {
						cancel()
					}
				}
				mu.Lock()
				done++
				if progress != nil {
					progress.OnProgress(done, len(files))
				}
				mu.Unlock()
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if progress != nil {
		progress.OnComplete()
	}
	return results
}
