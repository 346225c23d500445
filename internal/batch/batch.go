// Package batch redacts many PDF documents with one pipeline.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MeKo-Tech/redactor/internal/redact"
)

// Runner redacts one document into an output file. *pipeline.Pipeline
// implements it.
type Runner interface {
	Run(ctx context.Context, in, out string) (*redact.MaskResult, error)
}

// ProgressCallback receives document-level progress.
type ProgressCallback interface {
	OnStart(total int)
	OnProgress(current, total int)
	OnComplete()
}

var (
	// ErrNoDocuments is returned when discovery finds nothing to process.
	ErrNoDocuments = errors.New("no PDF documents found")
	// ErrSkipped marks documents left unprocessed after an earlier failure.
	ErrSkipped = errors.New("skipped after earlier failure")
	// ErrOverwrite is reported when a document's output path is its input.
	ErrOverwrite = errors.New("output would overwrite input")
	// ErrOutputConflict is reported when an earlier document in the batch
	// already writes the same output path.
	ErrOutputConflict = errors.New("output path already used by another document")
)

// ProcessBatch discovers documents under paths and redacts each one.
// Per-document failures are reported in the Result; an error is returned
// only when discovery fails or, without ContinueOnError, when the first
// document fails.
func ProcessBatch(ctx context.Context, r Runner, paths []string, config *Config, progress ProgressCallback) (*Result, error) {
	files, err := discoverDocuments(paths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover documents: %w", err)
	}

	if len(files) == 0 {
		return nil, ErrNoDocuments
	}

	if config.OutputDir != "" {
		if err := os.MkdirAll(config.OutputDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	workers := config.Workers
	if workers <= 0 {
		workers = 1
	}

	startTime := time.Now()
	docs := processDocumentsParallel(ctx, r, files, config, workers, progress)
	res := &Result{
		Documents:   docs,
		Duration:    time.Since(startTime),
		WorkerCount: workers,
	}

	if !config.ContinueOnError {
		if err := res.FirstError(); err != nil {
			return res, fmt.Errorf("batch processing stopped: %w", err)
		}
	}
	return res, nil
}

// DocumentResult is the outcome of one document.
type DocumentResult struct {
	Input    string             `json:"input"`
	Output   string             `json:"output,omitempty"`
	Result   *redact.MaskResult `json:"result,omitempty"`
	Err      error              `json:"-"`
	Duration time.Duration      `json:"duration_ns"`
}

// Failed reports whether the document could not be redacted and written.
func (d DocumentResult) Failed() bool { return d.Err != nil }

// Result holds the result of batch processing.
type Result struct {
	Documents   []DocumentResult
	Duration    time.Duration
	WorkerCount int
}

// Totals aggregates every successful document's mask counts.
func (r *Result) Totals() *redact.MaskResult {
	total := redact.NewMaskResult()
	for _, d := range r.Documents {
		total.Merge(d.Result)
	}
	return total
}

// FailedCount returns the number of failed documents.
func (r *Result) FailedCount() int {
	n := 0
	for _, d := range r.Documents {
		if d.Failed() {
			n++
		}
	}
	return n
}

// FirstError returns the first document error in input order, ignoring
// documents that were skipped after an earlier failure.
func (r *Result) FirstError() error {
	var skipped error
	for _, d := range r.Documents {
		switch {
		case d.Err == nil:
		case errors.Is(d.Err, ErrSkipped):
			if skipped == nil {
				skipped = fmt.Errorf("%s: %w", d.Input, d.Err)
			}
		default:
			return fmt.Errorf("%s: %w", d.Input, d.Err)
		}
	}
	return skipped
}

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r.Documents, format)
}

// PrintStats writes processing statistics to w.
func (r *Result) PrintStats(w io.Writer) {
	totals := r.Totals()
	processed := len(r.Documents) - r.FailedCount()
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total documents: %d\n", len(r.Documents))
	_, _ = fmt.Fprintf(w, "  Processed: %d\n", processed)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", r.FailedCount())
	_, _ = fmt.Fprintf(w, "  Items found: %d\n", totals.TotalFound)
	_, _ = fmt.Fprintf(w, "  Masked: %d\n", totals.SuccessfulMasks)
	_, _ = fmt.Fprintf(w, "  Mask failures: %d\n", totals.FailedMasks)
	_, _ = fmt.Fprintf(w, "  Pages removed: %d\n", len(totals.Deleted()))
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", r.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", r.Duration.Round(time.Millisecond))
	if len(r.Documents) > 0 {
		_, _ = fmt.Fprintf(w, "  Avg per document: %v\n", (r.Duration / time.Duration(len(r.Documents))).Round(time.Millisecond))
	}
}
