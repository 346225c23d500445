package pipeline_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/redactor/internal/geometry"
	"github.com/MeKo-Tech/redactor/internal/ocr"
	"github.com/MeKo-Tech/redactor/internal/pipeline"
	"github.com/MeKo-Tech/redactor/internal/redact"
	"github.com/MeKo-Tech/redactor/internal/sections"
	"github.com/MeKo-Tech/redactor/internal/testutil"
)

const docPath = "scenario.pdf"

// scenario holds the state of one feature scenario.
type scenario struct {
	doc    *testutil.FakeDocument
	engine ocr.Engine
	result *redact.MaskResult
}

func (s *scenario) documentWithPages(table *godog.Table) error {
	var texts []string
	for _, row := range table.Rows[1:] {
		texts = append(texts, strings.TrimSpace(row.Cells[0].Value))
	}
	s.doc = testutil.NewFakeDocument(texts...)
	return nil
}

func (s *scenario) documentWithBlankPages(n int) error {
	s.doc = testutil.NewFakeDocument(make([]string, n)...)
	return nil
}

func (s *scenario) page(n int) (*testutil.FakePage, error) {
	if s.doc == nil || n < 1 || n > len(s.doc.Pages) {
		return nil, fmt.Errorf("no page %d", n)
	}
	return s.doc.Pages[n-1], nil
}

func (s *scenario) appearsAt(literal string, n int, coords string) error {
	p, err := s.page(n)
	if err != nil {
		return err
	}
	v, err := parseInts(coords)
	if err != nil || len(v) != 4 {
		return fmt.Errorf("bad rectangle %q", coords)
	}
	p.WithOccurrence(literal, geometry.NewRect(float64(v[0]), float64(v[1]), float64(v[2]), float64(v[3])))
	return nil
}

func (s *scenario) sealAt(n int, centre string) error {
	p, err := s.page(n)
	if err != nil {
		return err
	}
	v, err := parseInts(centre)
	if err != nil || len(v) != 2 {
		return fmt.Errorf("bad centre %q", centre)
	}
	img := testutil.BlankPage(int(p.PageSize.Width), int(p.PageSize.Height))
	testutil.DrawRing(img, v[0], v[1], 60, 45, testutil.SealRed)
	p.WithRaster(img)
	return nil
}

func (s *scenario) ocrReads(first, second string, conf float64) error {
	frags := []ocr.Fragment{
		{Polygon: geometry.QuadFromRect(geometry.NewRect(50, 50, 120, 70)), Text: first, Confidence: conf},
		{Polygon: geometry.QuadFromRect(geometry.NewRect(130, 50, 180, 70)), Text: second, Confidence: conf},
	}
	s.engine = ocr.EngineFunc(func(context.Context, string) ([]ocr.Fragment, error) { return frags, nil })
	return nil
}

func (s *scenario) redact(imageScan bool) error {
	b := pipeline.NewBuilder(testutil.NewFakeOpener().Add(docPath, s.doc)).WithImageScan(imageScan)
	if imageScan {
		b = b.WithOCR(s.engine)
	}
	p, err := b.Build()
	if err != nil {
		return err
	}
	dir, err := os.MkdirTemp("", "redactor-scenario-")
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(dir) }()
	s.result, err = p.Run(context.Background(), docPath, filepath.Join(dir, "out.pdf"))
	return err
}

func (s *scenario) removePages(list string) error {
	v, err := parseInts(list)
	if err != nil {
		return err
	}
	plan := sections.Plan{}
	for _, n := range v {
		plan.Unconditional = append(plan.Unconditional, n-1)
	}
	s.result = redact.NewMaskResult()
	sections.Remove(s.doc, plan, s.result)
	return nil
}

func (s *scenario) itemsFound(n int) error {
	if s.result.TotalFound != n {
		return fmt.Errorf("found %d items, want %d: %+v", s.result.TotalFound, n, s.result.Details)
	}
	return nil
}

func (s *scenario) masksSucceed(n int) error {
	if s.result.SuccessfulMasks != n {
		return fmt.Errorf("%d masks succeeded, want %d", s.result.SuccessfulMasks, n)
	}
	return nil
}

func (s *scenario) masksBalance() error {
	r := s.result
	if r.SuccessfulMasks+r.FailedMasks != r.TotalFound {
		return fmt.Errorf("unbalanced result: %s", r)
	}
	return nil
}

func (s *scenario) remainingPages(list string) error {
	want, err := parseInts(list)
	if err != nil {
		return err
	}
	var got []int
	for _, idx := range s.doc.Indices() {
		got = append(got, idx+1)
	}
	if !slices.Equal(got, want) {
		return fmt.Errorf("remaining pages %v, want %v", got, want)
	}
	return nil
}

func (s *scenario) untouched(n int) error {
	p, err := s.page(n)
	if err != nil {
		return err
	}
	if p.Commits != 0 || len(p.Committed) != 0 {
		return fmt.Errorf("page %d was modified: %d masks", n, len(p.Committed))
	}
	return nil
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func InitializeScenario(sc *godog.ScenarioContext) {
	s := &scenario{}

	sc.Step(`^a document with pages:$`, s.documentWithPages)
	sc.Step(`^a document with (\d+) blank pages$`, s.documentWithBlankPages)
	sc.Step(`^"([^"]*)" appears on page (\d+) at ([\d,]+)$`, s.appearsAt)
	sc.Step(`^page (\d+) carries a red seal centred at ([\d,]+)$`, s.sealAt)
	sc.Step(`^OCR reads "([^"]*)" and "([^"]*)" with confidence ([\d.]+) on every page$`, s.ocrReads)
	sc.Step(`^the document is redacted$`, func() error { return s.redact(false) })
	sc.Step(`^the document is redacted with image scanning$`, func() error { return s.redact(true) })
	sc.Step(`^pages ([\d,]+) are removed$`, s.removePages)
	sc.Step(`^(\d+) items are found$`, s.itemsFound)
	sc.Step(`^(\d+) masks succeed$`, s.masksSucceed)
	sc.Step(`^the masks balance$`, s.masksBalance)
	sc.Step(`^the remaining pages are ([\d,]+)$`, s.remainingPages)
	sc.Step(`^page (\d+) is untouched$`, s.untouched)
}

// TestFeatures runs the Godog scenarios under features/.
func TestFeatures(t *testing.T) {
	format := os.Getenv("GODOG_FORMAT")
	if format == "" {
		format = "progress"
	}
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   format,
			Tags:     os.Getenv("GODOG_TAGS"),
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
