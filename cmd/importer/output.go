package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/sykell/bookmarks/internal/importer"
)

const (
	outputJSON  = "json"
	outputTable = "table"
)

func (r *runner) writeJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *runner) writePreview(result *importer.PreviewResult) error {
	if r.format == outputJSON {
		return r.writeJSON(result)
	}

	t := r.newTable()
	t.AppendHeader(table.Row{"Row", "Status", "URL", "Detail"})
	for _, row := range result.Rows.Ready {
		t.AppendRow(table.Row{row.RowNumber, "ready", row.URL, strings.Join(row.Tags, ", ")})
	}
	for _, row := range result.Rows.Duplicates {
		t.AppendRow(table.Row{row.RowNumber, "duplicate", row.URL, string(row.Reason)})
	}
	for _, row := range result.Rows.Errors {
		t.AppendRow(table.Row{row.RowNumber, "error", "", row.Message})
	}
	t.SortBy([]table.SortBy{{Name: "Row", Mode: table.AscNumeric}})
	t.AppendFooter(table.Row{"", "", "", summaryLine(result.Summary)})
	t.Render()
	return nil
}

func (r *runner) writeCommit(report commitReport) error {
	if r.format == outputJSON {
		return r.writeJSON(report)
	}

	t := r.newTable()
	t.AppendHeader(table.Row{"File", "Import", "Status", "Total", "Imported", "Duplicates", "Failed"})
	if report.Result == nil {
		t.AppendRow(table.Row{report.File, "-", "skipped", 0, 0, 0, 0})
	} else {
		s := report.Result.Summary
		t.AppendRow(table.Row{report.File, report.Result.ImportID, s.Status, s.Total, s.Imported, s.Duplicates, s.Failed})
	}
	t.AppendFooter(table.Row{"preview", "", "", "", "", "", summaryLine(report.Preview)})
	t.Render()
	return nil
}

func (r *runner) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Footer = text.FormatDefault
	return t
}

func summaryLine(s importer.PreviewSummary) string {
	return fmt.Sprintf("%d total, %d ready, %d duplicate, %d invalid", s.Total, s.Ready, s.Duplicates, s.Errors)
}
