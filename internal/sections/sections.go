// Package sections removes whole document sections, such as technical plans,
// quotations and financial reports, by keyword.
package sections

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/MeKo-Tech/redactor/internal/document"
	"github.com/MeKo-Tech/redactor/internal/redact"
)

// Reason classifies why a page is removed.
type Reason string

const (
	ReasonTechnicalPlan   Reason = "technical_plan"
	ReasonQuotation       Reason = "quotation"
	ReasonFinancialReport Reason = "financial_report"
)

// Label returns the section name used in audit rows.
func (r Reason) Label() string {
	switch r {
	case ReasonTechnicalPlan:
		return "技术方案"
	case ReasonQuotation:
		return "报价清单"
	case ReasonFinancialReport:
		return "财务报告"
	default:
		return string(r)
	}
}

// Keywords holds the section classification vocabulary.
type Keywords struct {
	TechnicalPlan   []string `mapstructure:"technical_plan" yaml:"technical_plan"`
	Quotation       []string `mapstructure:"quotation" yaml:"quotation"`
	FinancialReport []string `mapstructure:"financial_report" yaml:"financial_report"`
	// StopMarkers end a financial run without removing the page they are on.
	StopMarkers []string `mapstructure:"stop_markers" yaml:"stop_markers"`
}

// DefaultKeywords returns the built-in vocabulary.
func DefaultKeywords() Keywords {
	return Keywords{
		TechnicalPlan:   []string{"技术方案", "技术实施方案", "技术标"},
		Quotation:       []string{"报价清单", "投标报价", "商务报价"},
		FinancialReport: []string{"财务报告", "审计报告"},
		StopMarkers:     []string{"第", "章", "附录", "结束", "目 录", "目录", "技术方案", "报价"},
	}
}

// Plan lists the pages to delete, by document position.
type Plan struct {
	Unconditional []int
	FinancialRun  []int
	// Anchor is the first financial-report page, kept in the document. -1
	// when there is none.
	Anchor  int
	Reasons map[int]Reason
}

// Pages returns the union of both sets in descending order, the order in
// which they must be deleted.
func (p Plan) Pages() []int {
	out := slices.Concat(p.Unconditional, p.FinancialRun)
	slices.Sort(out)
	out = slices.Compact(out)
	slices.Reverse(out)
	return out
}

// Empty reports whether the plan removes nothing.
func (p Plan) Empty() bool {
	return len(p.Unconditional) == 0 && len(p.FinancialRun) == 0
}

// Planner classifies pages by section keywords.
type Planner struct {
	kw     Keywords
	logger *slog.Logger
}

// NewPlanner creates a planner. Empty keyword lists fall back to the defaults.
func NewPlanner(kw Keywords) *Planner {
	def := DefaultKeywords()
	if len(kw.TechnicalPlan) == 0 {
		kw.TechnicalPlan = def.TechnicalPlan
	}
	if len(kw.Quotation) == 0 {
		kw.Quotation = def.Quotation
	}
	if len(kw.FinancialReport) == 0 {
		kw.FinancialReport = def.FinancialReport
	}
	if len(kw.StopMarkers) == 0 {
		kw.StopMarkers = def.StopMarkers
	}
	return &Planner{kw: kw, logger: slog.Default()}
}

// WithLogger sets the logger.
func (p *Planner) WithLogger(l *slog.Logger) *Planner {
	if l != nil {
		p.logger = l
	}
	return p
}

// Plan classifies every page of doc. It must run before any page is deleted.
// Pages whose text cannot be read are treated as empty.
func (p *Planner) Plan(doc document.Document) Plan {
	n := doc.PageCount()
	texts := make([]string, n)
	for i := range n {
		texts[i] = p.pageText(doc, i)
	}
	return p.PlanTexts(texts)
}

// PlanTexts classifies pages given their text.
func (p *Planner) PlanTexts(texts []string) Plan {
	plan := Plan{Anchor: -1, Reasons: map[int]Reason{}}
	financial := map[int]bool{}

	for i, text := range texts {
		if containsAny(text, p.kw.TechnicalPlan) {
			plan.Unconditional = append(plan.Unconditional, i)
			plan.Reasons[i] = ReasonTechnicalPlan
		} else if containsAny(text, p.kw.Quotation) {
			plan.Unconditional = append(plan.Unconditional, i)
			plan.Reasons[i] = ReasonQuotation
		}
		if containsAny(text, p.kw.FinancialReport) {
			if plan.Anchor < 0 {
				plan.Anchor = i
			} else {
				financial[i] = true
			}
		}
	}

	if plan.Anchor >= 0 {
		for j := plan.Anchor + 1; j < len(texts); j++ {
			if financial[j] {
				continue
			}
			if containsAny(texts[j], p.kw.StopMarkers) {
				break
			}
			financial[j] = true
		}
	}

	for i := range financial {
		plan.FinancialRun = append(plan.FinancialRun, i)
		if _, ok := plan.Reasons[i]; !ok {
			plan.Reasons[i] = ReasonFinancialReport
		}
	}
	slices.Sort(plan.FinancialRun)
	return plan
}

func (p *Planner) pageText(doc document.Document, i int) string {
	page, err := doc.Page(i)
	if err != nil {
		p.logger.Warn("section planning: page unavailable", "page", i, "error", err)
		return ""
	}
	text, err := page.ExtractText()
	if err != nil {
		p.logger.Warn("section planning: text extraction failed", "page", i, "error", err)
		return ""
	}
	return text
}

// Remove deletes the planned pages in descending order and records one audit
// row per page in res. It returns the pages actually removed.
func Remove(doc document.Document, plan Plan, res *redact.MaskResult) []int {
	var removed []int
	for _, idx := range plan.Pages() {
		err := doc.DeletePage(idx)
		res.RecordDeletion(idx, plan.Reasons[idx].Label(), err)
		if err == nil {
			removed = append(removed, idx)
		}
	}
	return removed
}

func containsAny(text string, keys []string) bool {
	for _, k := range keys {
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}
