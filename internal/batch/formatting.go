package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/redactor/internal/redact"
)

// formatBatchResults formats the batch processing results in the specified format.
func formatBatchResults(docs []DocumentResult, format string) (string, error) {
	switch format {
	case "json":
		return formatJSON(docs)
	case "csv":
		return formatCSV(docs)
	default: // text
		return formatText(docs), nil
	}
}

type jsonDocument struct {
	DocumentResult
	Error string `json:"error,omitempty"`
}

// formatJSON formats results as JSON.
func formatJSON(docs []DocumentResult) (string, error) {
	out := struct {
		Documents []jsonDocument `json:"documents"`
	}{Documents: make([]jsonDocument, len(docs))}

	for i, d := range docs {
		out.Documents[i] = jsonDocument{DocumentResult: d}
		if d.Err != nil {
			out.Documents[i].Error = d.Err.Error()
		}
	}

	bts, err := json.MarshalIndent(out, "", "  ")
	return string(bts), err
}

// formatCSV writes one row per outcome, or one row per document without
// outcomes.
func formatCSV(docs []DocumentResult) (string, error) {
	rows := [][]string{{"file", "output", "page", "type", "pattern", "value", "status", "masks", "error"}}

	for _, d := range docs {
		if d.Err != nil {
			rows = append(rows, []string{d.Input, d.Output, "", "", "", "", string(redact.StatusFailed), "0", d.Err.Error()})
			continue
		}
		if d.Result == nil || len(d.Result.Details) == 0 {
			rows = append(rows, []string{d.Input, d.Output, "", "", "", "", "", "0", ""})
			continue
		}
		for _, o := range d.Result.Details {
			rows = append(rows, []string{
				d.Input,
				d.Output,
				strconv.Itoa(o.Page),
				string(o.Category),
				o.Pattern,
				o.Value,
				string(o.Status),
				strconv.Itoa(o.Masks),
				o.Error,
			})
		}
	}

	var output strings.Builder
	writer := csv.NewWriter(&output)
	if err := writer.WriteAll(rows); err != nil {
		return "", err
	}
	return output.String(), nil
}

// formatText formats results as plain text.
func formatText(docs []DocumentResult) string {
	var output strings.Builder
	for i, d := range docs {
		if i > 0 {
			output.WriteString("\n")
		}
		output.WriteString(fmt.Sprintf("# %s\n", d.Input))
		if d.Err != nil {
			output.WriteString(fmt.Sprintf("error: %v\n", d.Err))
			continue
		}
		output.WriteString(fmt.Sprintf("output: %s\n", d.Output))
		if d.Result != nil {
			output.WriteString(d.Result.String())
			if del := d.Result.Deleted(); len(del) > 0 {
				output.WriteString(fmt.Sprintf(" removed_pages=%v", del))
			}
			output.WriteString("\n")
		}
	}
	return output.String()
}
