package services

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	sheetSummary    = "Summary"
	sheetQuestions  = "Questions"
	sheetComplaints = "Complaints"
)

// Export renders the same report as Summary into an XLSX workbook.
func (s *ReportService) Export(ctx context.Context, tenantID string, f ReportFilter) ([]byte, *Report, error) {
	r, err := s.Summary(ctx, tenantID, f)
	if err != nil {
		return nil, nil, err
	}
	b, err := WriteWorkbook(r)
	if err != nil {
		return nil, nil, err
	}
	return b, r, nil
}

// WriteWorkbook lays r out on three sheets: KPIs and timeline, per-question
// summaries, and complaint breakdowns.
func WriteWorkbook(r *Report) ([]byte, error) {
	x := excelize.NewFile()
	defer x.Close()

	if err := x.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, err
	}
	for _, name := range []string{sheetQuestions, sheetComplaints} {
		if _, err := x.NewSheet(name); err != nil {
			return nil, err
		}
	}

	w := &sheetWriter{x: x}

	w.use(sheetSummary)
	w.row("Period", r.PeriodLabel)
	if r.Since != nil {
		w.row("Since", r.Since.Format("2006-01-02 15:04"))
	}
	if r.RouteID != "" {
		w.row("Route", r.RouteID)
	}
	if r.VehicleID != "" {
		w.row("Vehicle", r.VehicleID)
	}
	w.row("Total submissions", r.TotalSubmissions)
	w.row("Total complaints", r.TotalComplaints)
	w.row()
	w.row("Bucket", "Submissions")
	for i, label := range r.Timeline.Labels {
		w.row(label, r.Timeline.Counts[i])
	}

	w.use(sheetQuestions)
	w.row("Question", "Kind", "Responses", "Summary")
	for _, q := range r.Questions {
		w.row(q.Text, string(q.Kind), q.Responses, q.Summary)
		for _, c := range q.Counts {
			w.row("", "", c.Count, c.Option)
		}
	}

	w.use(sheetComplaints)
	w.row("Reason", "Complaints")
	for _, c := range r.ComplaintsByReason {
		w.row(c.Label, c.Count)
	}
	w.row()
	w.row("Transit number", "Complaints")
	for _, c := range r.ComplaintsByVehicle {
		w.row(c.Label, c.Count)
	}

	if w.err != nil {
		return nil, w.err
	}
	x.SetActiveSheet(0)
	buf, err := x.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter appends rows to the current sheet and keeps the first error.
type sheetWriter struct {
	x     *excelize.File
	sheet string
	next  int
	err   error
}

func (w *sheetWriter) use(sheet string) {
	w.sheet, w.next = sheet, 1
}

func (w *sheetWriter) row(values ...any) {
	defer func() { w.next++ }()
	if w.err != nil || len(values) == 0 {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, w.next)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.x.SetSheetRow(w.sheet, cell, &values)
}
