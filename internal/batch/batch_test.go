package batch

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/redactor/internal/geometry"
	"github.com/MeKo-Tech/redactor/internal/pipeline"
	"github.com/MeKo-Tech/redactor/internal/redact"
	"github.com/MeKo-Tech/redactor/internal/testutil"
)

// fakeRunner writes every output and fails inputs listed in fail.
type fakeRunner struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls []string
}

func (f *fakeRunner) Run(ctx context.Context, in, out string) (*redact.MaskResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, in)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.fail[filepath.Base(in)] {
		return nil, errors.New("corrupt document")
	}
	if err := os.WriteFile(out, []byte("%PDF-redacted\n"), 0o600); err != nil {
		return nil, err
	}
	res := redact.NewMaskResult()
	res.TotalFound, res.SuccessfulMasks = 1, 1
	res.Details = []redact.Outcome{{Page: 0, Pattern: "手机号码", Value: "18612345678", Status: redact.StatusSuccess, Masks: 1}}
	return res, nil
}

type countingProgress struct {
	mu              sync.Mutex
	total, last     int
	started, closed bool
}

func (c *countingProgress) OnStart(total int) { c.started, c.total = true, total }
func (c *countingProgress) OnProgress(cur, _ int) {
	c.mu.Lock()
	c.last = max(c.last, cur)
	c.mu.Unlock()
}
func (c *countingProgress) OnComplete() { c.closed = true }

func pdfDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		touch(t, filepath.Join(dir, n))
	}
	return dir
}

func TestProcessBatch(t *testing.T) {
	dir := pdfDir(t, "a.pdf", "b.pdf", "c.pdf")
	outDir := filepath.Join(t.TempDir(), "out")
	cfg := DefaultConfig()
	cfg.OutputDir = outDir
	cfg.Workers = 2
	progress := &countingProgress{}

	res, err := ProcessBatch(context.Background(), &fakeRunner{}, []string{dir}, cfg, progress)
	require.NoError(t, err)

	require.Len(t, res.Documents, 3)
	for i, name := range []string{"a", "b", "c"} {
		d := res.Documents[i]
		assert.Equal(t, filepath.Join(dir, name+".pdf"), d.Input)
		assert.Equal(t, filepath.Join(outDir, name+"_redacted.pdf"), d.Output)
		assert.FileExists(t, d.Output)
		assert.False(t, d.Failed())
	}
	assert.Equal(t, 2, res.WorkerCount)
	assert.Equal(t, 3, res.Totals().SuccessfulMasks)
	assert.Zero(t, res.FailedCount())
	assert.True(t, progress.started)
	assert.Equal(t, 3, progress.total)
	assert.Equal(t, 3, progress.last)
	assert.True(t, progress.closed)
}

func TestProcessBatchNoDocuments(t *testing.T) {
	_, err := ProcessBatch(context.Background(), &fakeRunner{}, []string{t.TempDir()}, DefaultConfig(), nil)
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestProcessBatchContinueOnError(t *testing.T) {
	dir := pdfDir(t, "a.pdf", "bad.pdf", "c.pdf")
	cfg := DefaultConfig()

	res, err := ProcessBatch(context.Background(), &fakeRunner{fail: map[string]bool{"bad.pdf": true}}, []string{dir}, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.FailedCount())
	assert.ErrorContains(t, res.FirstError(), "bad.pdf")
	assert.Equal(t, 2, res.Totals().TotalFound)
}

func TestProcessBatchStopsOnError(t *testing.T) {
	dir := pdfDir(t, "a_bad.pdf", "b.pdf", "c.pdf", "d.pdf")
	cfg := DefaultConfig()
	cfg.ContinueOnError = false
	cfg.Workers = 1
	runner := &fakeRunner{fail: map[string]bool{"a_bad.pdf": true}}

	res, err := ProcessBatch(context.Background(), runner, []string{dir}, cfg, nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "corrupt document")
	require.NotNil(t, res)

	assert.Equal(t, []string{filepath.Join(dir, "a_bad.pdf")}, runner.calls)
	for _, d := range res.Documents[1:] {
		assert.ErrorIs(t, d.Err, ErrSkipped)
	}
}

func TestProcessBatchRefusesOverwrite(t *testing.T) {
	dir := pdfDir(t, "a.pdf")
	cfg := DefaultConfig()
	cfg.Suffix = ""

	res, err := ProcessBatch(context.Background(), &fakeRunner{}, []string{dir}, cfg, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, res.Documents[0].Err, ErrOverwrite)
}

func TestProcessBatchWithPipeline(t *testing.T) {
	dir := pdfDir(t, "one.pdf", "two.pdf")
	opener := testutil.NewFakeOpener()
	for _, n := range []string{"one.pdf", "two.pdf"} {
		doc := testutil.NewFakeDocument()
		doc.Pages = append(doc.Pages, testutil.NewFakePage(0, "联系电话18612345678").
			WithOccurrence("18612345678", geometry.NewRect(100, 100, 180, 112)))
		opener.Add(filepath.Join(dir, n), doc)
	}
	p, err := pipeline.NewBuilder(opener).WithImageScan(false).WithSealProtection(false).Build()
	require.NoError(t, err)

	res, err := ProcessBatch(context.Background(), p, []string{dir}, DefaultConfig(), nil)
	require.NoError(t, err)
	totals := res.Totals()
	assert.Equal(t, 2, totals.TotalFound)
	assert.Equal(t, 2, totals.SuccessfulMasks)
	for _, d := range res.Documents {
		assert.FileExists(t, d.Output)
		assert.True(t, opener.Docs[d.Input].Closed)
	}
}

func sampleResult() *Result {
	ok := redact.NewMaskResult()
	ok.TotalFound, ok.SuccessfulMasks = 1, 1
	ok.Details = []redact.Outcome{
		{Page: 0, Category: "phone", Pattern: "手机号码", Value: "18612345678", Status: redact.StatusSuccess, Masks: 1},
	}
	ok.RecordDeletion(3, "报价清单", nil)
	return &Result{
		Documents: []DocumentResult{
			{Input: "a.pdf", Output: "a_redacted.pdf", Result: ok},
			{Input: "b.pdf", Output: "b_redacted.pdf", Err: errors.New("encrypted")},
		},
		WorkerCount: 2,
	}
}

func TestFormatText(t *testing.T) {
	out, err := sampleResult().FormatResults("text")
	require.NoError(t, err)
	assert.Contains(t, out, "# a.pdf\noutput: a_redacted.pdf\nfound=1 masked=1 failed=0 removed_pages=[3]\n")
	assert.Contains(t, out, "# b.pdf\nerror: encrypted\n")
}

func TestFormatJSON(t *testing.T) {
	out, err := sampleResult().FormatResults("json")
	require.NoError(t, err)

	var decoded struct {
		Documents []struct {
			Input  string `json:"input"`
			Error  string `json:"error"`
			Result *struct {
				TotalFound int `json:"total_found"`
			} `json:"result"`
		} `json:"documents"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded.Documents, 2)
	assert.Equal(t, 1, decoded.Documents[0].Result.TotalFound)
	assert.Equal(t, "encrypted", decoded.Documents[1].Error)
	assert.Nil(t, decoded.Documents[1].Result)
}

func TestFormatCSV(t *testing.T) {
	out, err := sampleResult().FormatResults("csv")
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "file", rows[0][0])
	assert.Equal(t, []string{"a.pdf", "a_redacted.pdf", "0", "phone", "手机号码", "18612345678", "success", "1", ""}, rows[1])
	assert.Equal(t, "section", rows[2][4])
	assert.Equal(t, "deleted", rows[2][6])
	assert.Equal(t, "encrypted", rows[3][8])
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	sampleResult().PrintStats(&buf)
	out := buf.String()
	assert.Contains(t, out, "Total documents: 2")
	assert.Contains(t, out, "Processed: 1")
	assert.Contains(t, out, "Failed: 1")
	assert.Contains(t, out, "Pages removed: 1")
}

func TestProcessBatchOutputConflict(t *testing.T) {
	first := pdfDir(t, "contract.pdf")
	second := pdfDir(t, "contract.pdf", "other.pdf")
	outDir := filepath.Join(t.TempDir(), "out")
	cfg := DefaultConfig()
	cfg.OutputDir = outDir
	cfg.Workers = 3
	runner := &fakeRunner{}

	res, err := ProcessBatch(context.Background(), runner, []string{first, second}, cfg, nil)
	require.NoError(t, err)
	require.Len(t, res.Documents, 3)

	assert.False(t, res.Documents[0].Failed())
	assert.Equal(t, filepath.Join(outDir, "contract_redacted.pdf"), res.Documents[0].Output)

	conflict := res.Documents[1]
	assert.Equal(t, filepath.Join(second, "contract.pdf"), conflict.Input)
	assert.ErrorIs(t, conflict.Err, ErrOutputConflict)
	assert.ErrorContains(t, conflict.Err, filepath.Join(first, "contract.pdf"))

	assert.False(t, res.Documents[2].Failed())
	assert.Equal(t, 1, res.FailedCount())
	assert.NotContains(t, runner.calls, filepath.Join(second, "contract.pdf"))
}
