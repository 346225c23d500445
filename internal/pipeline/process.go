package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/MeKo-Tech/redactor/internal/document"
	"github.com/MeKo-Tech/redactor/internal/geometry"
	"github.com/MeKo-Tech/redactor/internal/imagescan"
	"github.com/MeKo-Tech/redactor/internal/privacy"
	"github.com/MeKo-Tech/redactor/internal/redact"
	"github.com/MeKo-Tech/redactor/internal/sections"
)

// ErrSessionClosed is returned when a closed session is used.
var ErrSessionClosed = errors.New("session closed")

// Preview summarizes a document without modifying it.
type Preview struct {
	PageCount int    `json:"page_count"`
	Sample    string `json:"text_sample"`
	FileSize  int64  `json:"file_size"`
}

// Preview reports the page count, a first-page text sample and the file size.
func (p *Pipeline) Preview(ctx context.Context, path string) (*Preview, error) {
	doc, err := p.opener.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = doc.Close() }()

	pv := &Preview{PageCount: doc.PageCount()}
	if st, err := os.Stat(path); err == nil {
		pv.FileSize = st.Size()
	}
	if pv.PageCount > 0 {
		page, err := doc.Page(0)
		if err != nil {
			return nil, err
		}
		text, err := page.ExtractText()
		if err != nil {
			p.logger.Warn("preview: text extraction failed", "path", path, "error", err)
		}
		pv.Sample = truncate(text, PreviewRunes)
	}
	return pv, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i, count := 0, 0
	for i = range s {
		if count == n {
			break
		}
		count++
	}
	return s[:i] + "..."
}

// Session is an open, redacted document waiting to be persisted.
type Session struct {
	mu     sync.Mutex
	path   string
	doc    document.Document
	result *redact.MaskResult
	save   document.SaveOptions
}

// Result returns the redaction outcome.
func (s *Session) Result() *redact.MaskResult { return s.result }

// Path returns the input path.
func (s *Session) Path() string { return s.path }

// Persist writes the redacted document to path.
func (s *Session) Persist(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrSessionClosed
	}
	return s.doc.Save(ctx, path, s.save)
}

// Close releases the document. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil
	}
	err := s.doc.Close()
	s.doc = nil
	return err
}

// Redact opens path and redacts every page, then removes section pages.
// Only open failures and cancellation are returned as errors; every other
// failure is recorded in the session's MaskResult.
func (p *Pipeline) Redact(ctx context.Context, path string) (*Session, error) {
	start := time.Now()
	doc, err := p.opener.Open(ctx, path)
	if err != nil {
		p.recorder.DocumentDone(time.Since(start), err)
		return nil, err
	}
	p.logger.Info("redacting document", "path", path, "pages", doc.PageCount())

	res, err := p.redactDocument(ctx, doc)
	if err != nil {
		_ = doc.Close()
		p.recorder.DocumentDone(time.Since(start), err)
		return nil, err
	}
	p.recordOutcomes(res)
	p.recorder.DocumentDone(time.Since(start), nil)
	p.logger.Info("document redacted", "path", path, "found", res.TotalFound,
		"masked", res.SuccessfulMasks, "failed", res.FailedMasks, "removed_pages", len(res.Deleted()))

	return &Session{path: path, doc: doc, result: res, save: p.cfg.Save}, nil
}

// Run redacts in and writes the result to out.
func (p *Pipeline) Run(ctx context.Context, in, out string) (*redact.MaskResult, error) {
	s, err := p.Redact(ctx, in)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.Close() }()
	if err := s.Persist(ctx, out); err != nil {
		return s.Result(), err
	}
	return s.Result(), nil
}

func (p *Pipeline) redactDocument(ctx context.Context, doc document.Document) (*redact.MaskResult, error) {
	n := doc.PageCount()
	p.progress.OnStart(n)

	var (
		perPage []*redact.MaskResult
		err     error
	)
	if p.cfg.PageWorkers > 1 && n > 1 {
		perPage, err = p.processPagesParallel(ctx, doc, n)
	} else {
		perPage, err = p.processPagesSequential(ctx, doc, n)
	}
	if err != nil {
		return nil, err
	}

	res := redact.NewMaskResult()
	for _, r := range perPage {
		res.Merge(r)
	}
	p.progress.OnComplete()

	if p.cfg.SectionRemoval {
		plan := p.planner.Plan(doc)
		if !plan.Empty() {
			p.logger.Info("removing section pages", "pages", plan.Pages())
		}
		for _, idx := range sections.Remove(doc, plan, res) {
			p.recorder.PageRemoved(plan.Reasons[idx])
		}
	}
	return res, nil
}

func (p *Pipeline) processPagesSequential(ctx context.Context, doc document.Document, n int) ([]*redact.MaskResult, error) {
	out := make([]*redact.MaskResult, n)
	for i := range n {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("redaction cancelled at page %d: %w", i, err)
		}
		out[i] = p.processPageAt(ctx, doc, i)
		p.progress.OnProgress(i+1, n)
	}
	return out, nil
}

// processPagesParallel fans pages out to a bounded worker pool. Results are
// indexed by page so merging stays in page order.
func (p *Pipeline) processPagesParallel(ctx context.Context, doc document.Document, n int) ([]*redact.MaskResult, error) {
	workers := min(p.cfg.PageWorkers, n)
	jobs := make(chan int)
	out := make([]*redact.MaskResult, n)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = p.processPageAt(ctx, doc, i)
				mu.Lock()
				done++
				p.progress.OnProgress(done, n)
				mu.Unlock()
			}
		}()
	}

	var cancelled error
send:
	for i := range n {
		select {
		case jobs <- i:
		case <-ctx.Done():
			cancelled = fmt.Errorf("redaction cancelled at page %d: %w", i, ctx.Err())
			break send
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled != nil {
		return nil, cancelled
	}
	return out, nil
}

func (p *Pipeline) processPageAt(ctx context.Context, doc document.Document, i int) *redact.MaskResult {
	res := redact.NewMaskResult()
	page, err := doc.Page(i)
	if err != nil {
		p.logger.Error("page unavailable", "page", i, "error", err)
		p.progress.OnError(i, err)
		return res
	}
	if err := p.processPage(ctx, page, res); err != nil {
		p.progress.OnError(page.Index(), err)
	}
	return res
}

// processPage detects and redacts one page. The returned error is the
// page-level commit failure, already recorded in res.
func (p *Pipeline) processPage(ctx context.Context, page document.Page, res *redact.MaskResult) error {
	items := p.detect(ctx, page)
	for _, it := range items {
		p.recorder.ItemFound(it.Category, it.Source)
	}

	var protected []geometry.Rect
	if p.seals != nil && len(items) > 0 {
		var err error
		protected, err = p.seals.Detect(ctx, page)
		if err != nil {
			p.recorder.DetectionFailed("seal")
			p.logger.Warn("seal detection failed", "page", page.Index(), "error", err)
		}
	}

	p.logger.Debug("page scanned", "page", page.Index(), "items", len(items), "seals", len(protected))
	return p.applicator.Apply(ctx, page, items, protected, res)
}

func (p *Pipeline) detect(ctx context.Context, page document.Page) []privacy.Item {
	text, err := page.ExtractText()
	if err != nil {
		p.recorder.DetectionFailed("text")
		p.logger.Warn("text extraction failed", "page", page.Index(), "error", err)
	}
	items := privacy.ItemsOnPage(privacy.DetectTextWithOptions(text, p.cfg.Text), page.Index())

	if p.scanner != nil {
		r := p.scanner.Scan(ctx, page)
		items = append(items, r.Items...)
		var derr *imagescan.DetectionError
		if errors.As(r.Err, &derr) {
			p.recorder.DetectionFailed(derr.Stage)
		}
	}
	return items
}

func (p *Pipeline) recordOutcomes(res *redact.MaskResult) {
	for _, d := range res.Details {
		if d.Pattern == redact.PatternSection {
			continue
		}
		p.recorder.MaskOutcome(d.Status)
	}
}
