package redact

import (
	"fmt"

	"github.com/MeKo-Tech/redactor/internal/privacy"
)

// Status is the outcome of one redaction step.
type Status string

const (
	StatusSuccess Status = "success"
	// StatusSkipped marks an item protected by a seal. Skipped items are not
	// counted or reported.
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
	// StatusDeleted marks a removed page.
	StatusDeleted Status = "deleted"
)

// PatternSection is the Outcome pattern used for page removals.
const PatternSection = "section"

// Outcome is one row of the redaction audit log.
type Outcome struct {
	Page     int              `json:"page"`
	Category privacy.Category `json:"type,omitempty"`
	Pattern  string           `json:"pattern"`
	Value    string           `json:"value,omitempty"`
	Source   privacy.Source   `json:"source,omitempty"`
	Status   Status           `json:"status"`
	// Masks is the number of rectangles registered for the item.
	Masks int    `json:"masks,omitempty"`
	Error string `json:"error,omitempty"`
}

// MaskResult accumulates the outcome of a redaction run.
// SuccessfulMasks + FailedMasks == TotalFound always holds; page removals are
// recorded in Details only.
type MaskResult struct {
	TotalFound      int       `json:"total_found"`
	SuccessfulMasks int       `json:"successful_masks"`
	FailedMasks     int       `json:"failed_masks"`
	Details         []Outcome `json:"details"`
}

// NewMaskResult returns an empty result.
func NewMaskResult() *MaskResult {
	return &MaskResult{Details: []Outcome{}}
}

// Merge appends o to r.
func (r *MaskResult) Merge(o *MaskResult) {
	if o == nil {
		return
	}
	r.TotalFound += o.TotalFound
	r.SuccessfulMasks += o.SuccessfulMasks
	r.FailedMasks += o.FailedMasks
	r.Details = append(r.Details, o.Details...)
}

func (r *MaskResult) addSuccess(item privacy.Item, page, masks int) {
	r.TotalFound++
	r.SuccessfulMasks++
	r.Details = append(r.Details, outcome(item, page, StatusSuccess, masks, nil))
}

func (r *MaskResult) addFailure(item privacy.Item, page int, err error) {
	r.TotalFound++
	r.FailedMasks++
	r.Details = append(r.Details, outcome(item, page, StatusFailed, 0, err))
}

// RecordDeletion adds an audit row for a removed page. A non-nil err records
// a failed removal.
func (r *MaskResult) RecordDeletion(page int, reason string, err error) {
	o := Outcome{Page: page, Pattern: PatternSection, Value: reason, Status: StatusDeleted}
	if err != nil {
		o.Status = StatusFailed
		o.Error = err.Error()
	}
	r.Details = append(r.Details, o)
}

// Deleted returns the pages recorded as removed, in removal order.
func (r *MaskResult) Deleted() []int {
	var out []int
	for _, d := range r.Details {
		if d.Pattern == PatternSection && d.Status == StatusDeleted {
			out = append(out, d.Page)
		}
	}
	return out
}

func (r *MaskResult) String() string {
	return fmt.Sprintf("found=%d masked=%d failed=%d", r.TotalFound, r.SuccessfulMasks, r.FailedMasks)
}

func outcome(item privacy.Item, page int, st Status, masks int, err error) Outcome {
	o := Outcome{
		Page:     page,
		Category: item.Category,
		Pattern:  item.Category.Label(),
		Value:    item.Value,
		Source:   item.Source,
		Status:   st,
		Masks:    masks,
	}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}
