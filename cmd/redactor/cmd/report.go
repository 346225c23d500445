package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/MeKo-Tech/redactor/internal/pipeline"
	"github.com/MeKo-Tech/redactor/internal/redact"
)

// redactReport is the JSON shape of a single-document run.
type redactReport struct {
	Input  string             `json:"input"`
	Output string             `json:"output"`
	Result *redact.MaskResult `json:"result"`
}

func writeRedactReport(w io.Writer, format, in, out string, res *redact.MaskResult) error {
	if format == "json" {
		return writeJSON(w, redactReport{Input: in, Output: out, Result: res})
	}

	_, _ = fmt.Fprintf(w, "input:  %s\noutput: %s\n", in, out)
	_, _ = fmt.Fprintf(w, "%s\n", res)
	if del := res.Deleted(); len(del) > 0 {
		pages := make([]string, len(del))
		for i, p := range del {
			pages[i] = strconv.Itoa(p + 1)
		}
		_, _ = fmt.Fprintf(w, "removed pages: %s\n", strings.Join(pages, ", "))
	}
	if len(res.Details) == 0 {
		return nil
	}

	rows := [][]string{{"PAGE", "TYPE", "VALUE", "STATUS", "DETAIL"}}
	for _, d := range res.Details {
		detail := d.Error
		if detail == "" && d.Masks > 0 {
			detail = fmt.Sprintf("%d mask(s)", d.Masks)
		}
		rows = append(rows, []string{strconv.Itoa(d.Page + 1), d.Pattern, d.Value, string(d.Status), detail})
	}
	_, _ = fmt.Fprintln(w)
	writeTable(w, rows)
	return nil
}

// writeTable pads columns by display width so CJK labels line up.
func writeTable(w io.Writer, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	for _, row := range rows {
		var b strings.Builder
		for i, cell := range row {
			if i == len(row)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
			b.WriteString("  ")
		}
		_, _ = fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}
}

func writePreview(w io.Writer, format, path string, pv *pipeline.Preview) error {
	if format == "json" {
		return writeJSON(w, struct {
			File string `json:"file"`
			*pipeline.Preview
		}{path, pv})
	}
	_, _ = fmt.Fprintf(w, "file:  %s\npages: %d\nsize:  %d bytes\n", path, pv.PageCount, pv.FileSize)
	if pv.Sample != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", pv.Sample)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
