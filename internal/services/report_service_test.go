package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tbourn/rider-feedback/internal/domain"
	"github.com/tbourn/rider-feedback/internal/repo"
	"github.com/tbourn/rider-feedback/internal/survey"
)

// reportNow is Wednesday 2025-06-11 11:00 in Mazatlan.
var reportNow = time.Date(2025, 6, 11, 18, 0, 0, 0, time.UTC)

type reportFixture struct {
	*world
	ride, onTime, comments, unanswered *domain.Question
	rude                               *domain.ComplaintReason
	svc                                *ReportService
}

// newReportFixture seeds three submissions today (two on vehicle 101 at
// 08:xx local, one on 900 at 10:10) and one last week, plus three
// complaints today.
func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	w := newWorld(t)
	f := &reportFixture{world: w}
	f.ride = w.question(t, domain.KindRating, "Ride", 1)
	f.onTime = w.question(t, domain.KindChoice, "On time", 2, "Yes", "No", "Maybe")
	f.comments = w.question(t, domain.KindText, "Comments", 3)
	f.unanswered = w.question(t, domain.KindRating, "Driver", 4)
	hidden := w.question(t, domain.KindRating, "Retired", 5)
	if err := w.db.Model(hidden).Update("active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	f.rude = w.reason(t, "Rude")

	yes, no := f.onTime.Options[0].ID, f.onTime.Options[1].ID
	rating := func(n int) survey.Response {
		return survey.Response{QuestionID: f.ride.ID, Value: survey.Value{Kind: domain.KindRating, Rating: n}}
	}
	choice := func(id string) survey.Response {
		return survey.Response{QuestionID: f.onTime.ID, Value: survey.Value{Kind: domain.KindChoice, OptionID: id}}
	}
	text := survey.Response{QuestionID: f.comments.ID, Value: survey.Value{Kind: domain.KindText, Text: "ok"}}
	seed := []struct {
		at        time.Time
		vehicle   string
		responses []survey.Response
	}{
		{time.Date(2025, 6, 2, 20, 0, 0, 0, time.UTC), w.v1.ID, []survey.Response{rating(1), choice(no)}},
		{time.Date(2025, 6, 11, 15, 0, 0, 0, time.UTC), w.v1.ID, []survey.Response{rating(5), choice(yes), text}},
		{time.Date(2025, 6, 11, 15, 30, 0, 0, time.UTC), w.v1.ID, []survey.Response{rating(4), choice(yes)}},
		{time.Date(2025, 6, 11, 17, 10, 0, 0, time.UTC), w.v2.ID, []survey.Response{rating(5)}},
	}
	ctx := context.Background()
	for _, s := range seed {
		svc := &SurveyService{DB: w.db, Now: fixedNow(s.at)}
		if _, err := svc.Reconcile(ctx, w.tenant.ID, s.vehicle, s.responses, survey.Complaint{}); err != nil {
			t.Fatalf("seed submission: %v", err)
		}
	}

	complaint := func(vehicleID string, reasonID *string, at time.Time) {
		c := &domain.Complaint{TenantID: w.tenant.ID, VehicleID: &vehicleID, ReasonID: reasonID, SubmittedAt: at}
		if err := repo.CreateComplaint(ctx, w.db, c); err != nil {
			t.Fatalf("seed complaint: %v", err)
		}
	}
	today := time.Date(2025, 6, 11, 16, 0, 0, 0, time.UTC)
	complaint(w.v1.ID, &f.rude.ID, today)
	complaint(w.v1.ID, nil, today)
	complaint(w.v2.ID, &f.rude.ID, today)

	f.svc = &ReportService{DB: w.db, Location: mazatlan, Now: fixedNow(reportNow)}
	return f
}

func summaryOf(t *testing.T, r *Report, questionID string) *QuestionSummary {
	t.Helper()
	for i := range r.Questions {
		if r.Questions[i].QuestionID == questionID {
			return &r.Questions[i]
		}
	}
	return nil
}

func TestPeriodStart(t *testing.T) {
	local := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, mazatlan) }
	tests := []struct {
		name   string
		period string
		now    time.Time
		want   time.Time
	}{
		{"today", PeriodToday, reportNow, local(2025, 6, 11)},
		{"today late utc is still local yesterday", PeriodToday, time.Date(2025, 6, 12, 3, 0, 0, 0, time.UTC), local(2025, 6, 11)},
		{"week from wednesday", PeriodWeek, reportNow, local(2025, 6, 9)},
		{"week from sunday", PeriodWeek, time.Date(2025, 6, 15, 18, 0, 0, 0, time.UTC), local(2025, 6, 9)},
		{"week from monday", PeriodWeek, time.Date(2025, 6, 9, 18, 0, 0, 0, time.UTC), local(2025, 6, 9)},
		{"week across month", PeriodWeek, time.Date(2025, 7, 2, 18, 0, 0, 0, time.UTC), local(2025, 6, 30)},
		{"month", PeriodMonth, reportNow, local(2025, 6, 1)},
		{"year", PeriodYear, reportNow, local(2025, 1, 1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := PeriodStart(tc.period, tc.now, mazatlan)
			if err != nil {
				t.Fatalf("PeriodStart: %v", err)
			}
			if got == nil || !got.Equal(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}

	if got, err := PeriodStart(PeriodAll, reportNow, mazatlan); err != nil || got != nil {
		t.Fatalf("all: got %v, %v", got, err)
	}
	if _, err := PeriodStart("fortnight", reportNow, mazatlan); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestMean(t *testing.T) {
	tests := []struct {
		total, count int64
		want         string
	}{
		{14, 3, "4.7"},
		{9, 2, "4.5"},
		{15, 4, "3.8"},
		{5, 1, "5.0"},
	}
	for _, tc := range tests {
		m, ok := Mean(tc.total, tc.count)
		if !ok || m.StringFixed(1) != tc.want {
			t.Fatalf("Mean(%d,%d) = %s,%v want %s", tc.total, tc.count, m.StringFixed(1), ok, tc.want)
		}
	}
	if _, ok := Mean(0, 0); ok {
		t.Fatalf("Mean with no answers should report false")
	}
}

func TestReport_SummaryToday(t *testing.T) {
	f := newReportFixture(t)
	r, err := f.svc.Summary(context.Background(), f.tenant.ID, ReportFilter{})
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if r.Period != PeriodToday || r.PeriodLabel != "Today" {
		t.Fatalf("unexpected period: %s %s", r.Period, r.PeriodLabel)
	}
	if r.TotalSubmissions != 3 || r.TotalComplaints != 3 {
		t.Fatalf("totals = %d/%d, want 3/3", r.TotalSubmissions, r.TotalComplaints)
	}

	if len(r.Questions) != 3 {
		t.Fatalf("expected ride, on time and driver only, got %+v", r.Questions)
	}
	ride := summaryOf(t, r, f.ride.ID)
	if ride == nil || ride.Summary != "4.7/5" || ride.Responses != 3 || ride.Average == nil {
		t.Fatalf("ride summary: %+v", ride)
	}
	onTime := summaryOf(t, r, f.onTime.ID)
	if onTime == nil || onTime.Summary != "Yes: 2" || len(onTime.Counts) != 1 {
		t.Fatalf("on time summary: %+v", onTime)
	}
	driver := summaryOf(t, r, f.unanswered.ID)
	if driver == nil || driver.Summary != NoData || driver.Average != nil {
		t.Fatalf("driver summary: %+v", driver)
	}
	if summaryOf(t, r, f.comments.ID) != nil {
		t.Fatalf("text questions must not be summarized")
	}

	wantReasons := []LabelCount{{"Rude", 2}, {NoReason, 1}}
	if len(r.ComplaintsByReason) != 2 || r.ComplaintsByReason[0] != wantReasons[0] || r.ComplaintsByReason[1] != wantReasons[1] {
		t.Fatalf("by reason = %+v", r.ComplaintsByReason)
	}
	wantVehicles := []LabelCount{{"101", 2}, {"900", 1}}
	if len(r.ComplaintsByVehicle) != 2 || r.ComplaintsByVehicle[0] != wantVehicles[0] || r.ComplaintsByVehicle[1] != wantVehicles[1] {
		t.Fatalf("by vehicle = %+v", r.ComplaintsByVehicle)
	}

	if len(r.Timeline.Labels) != 2 || r.Timeline.Labels[0] != "08:00" || r.Timeline.Labels[1] != "10:00" {
		t.Fatalf("timeline labels = %v", r.Timeline.Labels)
	}
	if r.Timeline.Counts[0] != 2 || r.Timeline.Counts[1] != 1 {
		t.Fatalf("timeline counts = %v", r.Timeline.Counts)
	}
}

func TestReport_SummaryAllTime(t *testing.T) {
	f := newReportFixture(t)
	r, err := f.svc.Summary(context.Background(), f.tenant.ID, ReportFilter{Period: "ALL"})
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if r.Since != nil || r.TotalSubmissions != 4 {
		t.Fatalf("all time: since=%v total=%d", r.Since, r.TotalSubmissions)
	}
	if s := summaryOf(t, r, f.ride.ID); s.Summary != "3.8/5" {
		t.Fatalf("ride summary = %q", s.Summary)
	}
	if s := summaryOf(t, r, f.onTime.ID); s.Summary != "Yes: 2, No: 1" {
		t.Fatalf("on time summary = %q", s.Summary)
	}
	if len(r.Timeline.Labels) != 2 || r.Timeline.Labels[0] != "2025-06-02" || r.Timeline.Labels[1] != "2025-06-11" {
		t.Fatalf("daily labels = %v", r.Timeline.Labels)
	}
	if r.Timeline.Counts[0] != 1 || r.Timeline.Counts[1] != 3 {
		t.Fatalf("daily counts = %v", r.Timeline.Counts)
	}
}

func TestReport_Filters(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	byRoute, err := f.svc.Summary(ctx, f.tenant.ID, ReportFilter{Period: PeriodToday, RouteID: f.route.ID})
	if err != nil {
		t.Fatalf("route filter: %v", err)
	}
	if byRoute.TotalSubmissions != 2 || byRoute.TotalComplaints != 2 {
		t.Fatalf("route totals = %d/%d", byRoute.TotalSubmissions, byRoute.TotalComplaints)
	}
	if s := summaryOf(t, byRoute, f.ride.ID); s.Summary != "4.5/5" {
		t.Fatalf("route ride = %q", s.Summary)
	}

	byVehicle, err := f.svc.Summary(ctx, f.tenant.ID, ReportFilter{Period: PeriodWeek, VehicleID: f.v2.ID})
	if err != nil {
		t.Fatalf("vehicle filter: %v", err)
	}
	if byVehicle.TotalSubmissions != 1 {
		t.Fatalf("vehicle total = %d", byVehicle.TotalSubmissions)
	}
	if s := summaryOf(t, byVehicle, f.ride.ID); s.Summary != "5.0/5" {
		t.Fatalf("vehicle ride = %q", s.Summary)
	}
	if s := summaryOf(t, byVehicle, f.onTime.ID); s.Summary != NoData {
		t.Fatalf("vehicle on time = %q", s.Summary)
	}

	errCases := []struct {
		name   string
		filter ReportFilter
		want   error
	}{
		{"both filters", ReportFilter{RouteID: f.route.ID, VehicleID: f.v1.ID}, ErrExclusiveFilter},
		{"bad period", ReportFilter{Period: "decade"}, ErrInvalidPeriod},
		{"unknown route", ReportFilter{RouteID: "nope"}, ErrNotFound},
		{"unknown vehicle", ReportFilter{VehicleID: "nope"}, ErrVehicleNotFound},
	}
	for _, tc := range errCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.svc.Summary(ctx, f.tenant.ID, tc.filter); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestReport_EmptyTenant(t *testing.T) {
	w := newWorld(t)
	q := w.question(t, domain.KindRating, "Ride", 1)
	svc := &ReportService{DB: w.db, Location: mazatlan, Now: fixedNow(reportNow)}

	r, err := svc.Summary(context.Background(), w.tenant.ID, ReportFilter{Period: PeriodMonth})
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if r.TotalSubmissions != 0 || len(r.Timeline.Labels) != 0 || len(r.ComplaintsByReason) != 0 {
		t.Fatalf("expected empty report: %+v", r)
	}
	if s := summaryOf(t, r, q.ID); s == nil || s.Summary != NoData {
		t.Fatalf("expected No data, got %+v", s)
	}
}

func TestBucket_MergesConsecutiveLabels(t *testing.T) {
	slot := func(ts time.Time, n int64) repo.SlotCount {
		return repo.SlotCount{Slot: ts.Unix() / int64(repo.TimeSlot/time.Second), Count: n}
	}
	slots := []repo.SlotCount{
		slot(time.Date(2025, 6, 11, 13, 0, 0, 0, time.UTC), 1),
		slot(time.Date(2025, 6, 11, 13, 45, 0, 0, time.UTC), 4),
		slot(time.Date(2025, 6, 11, 14, 0, 0, 0, time.UTC), 2),
	}
	tl := bucket(slots, true, mazatlan)
	if len(tl.Labels) != 2 || tl.Labels[0] != "06:00" || tl.Labels[1] != "07:00" {
		t.Fatalf("hourly labels = %v", tl.Labels)
	}
	if tl.Counts[0] != 5 || tl.Counts[1] != 2 {
		t.Fatalf("hourly counts = %v", tl.Counts)
	}

	daily := bucket(slots, false, mazatlan)
	if len(daily.Labels) != 1 || daily.Counts[0] != 7 {
		t.Fatalf("daily = %+v", daily)
	}
}

func TestBucket_HalfHourZoneSplitsDayOnSlotBoundary(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata") // UTC+05:30
	if err != nil {
		t.Fatalf("zone: %v", err)
	}
	slot := func(ts time.Time) repo.SlotCount {
		return repo.SlotCount{Slot: ts.Unix() / int64(repo.TimeSlot/time.Second), Count: 1}
	}
	// 18:15 UTC is 23:45 local, 18:30 UTC is 00:00 the next local day
	daily := bucket([]repo.SlotCount{
		slot(time.Date(2025, 6, 11, 18, 15, 0, 0, time.UTC)),
		slot(time.Date(2025, 6, 11, 18, 30, 0, 0, time.UTC)),
	}, false, kolkata)
	if len(daily.Labels) != 2 || daily.Labels[0] != "2025-06-11" || daily.Labels[1] != "2025-06-12" {
		t.Fatalf("daily labels = %v", daily.Labels)
	}
}

func TestReport_ExportWorkbook(t *testing.T) {
	f := newReportFixture(t)
	b, r, err := f.svc.Export(context.Background(), f.tenant.ID, ReportFilter{Period: PeriodToday})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if r.TotalSubmissions != 3 {
		t.Fatalf("report total = %d", r.TotalSubmissions)
	}

	x, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer x.Close()

	if got := x.GetSheetList(); len(got) != 3 || got[0] != "Summary" || got[1] != "Questions" || got[2] != "Complaints" {
		t.Fatalf("sheets = %v", got)
	}

	period, err := x.GetCellValue("Summary", "B1")
	if err != nil || period != "Today" {
		t.Fatalf("period cell = %q, %v", period, err)
	}

	rows, err := x.GetRows("Questions")
	if err != nil {
		t.Fatalf("questions rows: %v", err)
	}
	if len(rows) < 2 || rows[0][0] != "Question" {
		t.Fatalf("questions header = %v", rows)
	}
	if rows[1][0] != "Ride" || rows[1][3] != "4.7/5" {
		t.Fatalf("ride row = %v", rows[1])
	}

	complaints, err := x.GetRows("Complaints")
	if err != nil {
		t.Fatalf("complaints rows: %v", err)
	}
	if len(complaints) < 3 || complaints[1][0] != "Rude" || complaints[1][1] != "2" || complaints[2][0] != NoReason {
		t.Fatalf("complaints sheet = %v", complaints)
	}
}
