// Package services – ReportService
//
// This file implements the aggregation reporter. For a period token and an
// optional route-or-vehicle filter it computes one summary per active
// question plus the dashboard KPIs:
//
//   - rating: mean of matching answers rounded to one decimal, or "No data"
//   - choice / multi_choice: count per option text, zero counts omitted,
//     or "No data" when nothing was picked
//   - text: no summary (question omitted)
//
// Periods start at local midnight in the configured time zone: today, the
// Monday of this week, the first of this month, January 1st, or never (all).
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/rider-feedback/internal/domain"
	"github.com/tbourn/rider-feedback/internal/observability"
	"github.com/tbourn/rider-feedback/internal/repo"
)

// Report labels.
const (
	NoData   = "No data"
	NoReason = "No reason"
)

// Period tokens.
const (
	PeriodToday = "today"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
	PeriodAll   = "all"
)

var periodLabels = map[string]string{
	PeriodToday: "Today",
	PeriodWeek:  "This week",
	PeriodMonth: "This month",
	PeriodYear:  "This year",
	PeriodAll:   "All time",
}

// ReportService computes read-only aggregates.
type ReportService struct {
	DB       *gorm.DB
	Location *time.Location
	Now      func() time.Time
}

// ReportFilter selects the window and scope of a report. RouteID and
// VehicleID are mutually exclusive. An empty Period means today.
type ReportFilter struct {
	Period    string
	RouteID   string
	VehicleID string
}

// ChoiceCount is how often one option was picked.
type ChoiceCount struct {
	Option string `json:"option" example:"Crowded"`
	Count  int64  `json:"count"`
}

// QuestionSummary is the aggregate of one active, non-text question.
type QuestionSummary struct {
	QuestionID string              `json:"question_id" example:"9f0c2a6e-4c1b-4a57-9d2e-3f4b5c6d7e8f"`
	Text       string              `json:"text"`
	Kind       domain.QuestionKind `json:"kind"`
	Responses  int64               `json:"responses" example:"12"`
	Average    *decimal.Decimal    `json:"average,omitempty" swaggertype:"number" example:"4.7"`
	Counts     []ChoiceCount       `json:"counts,omitempty"`
	Summary    string              `json:"summary" example:"4.7/5"`
}

// LabelCount is a labelled count (reason label or transit number).
type LabelCount struct {
	Label string `json:"label" example:"Reckless driving"`
	Count int64  `json:"count"`
}

// Timeline is a series of submission counts. Labels are "HH:00" for today
// and "YYYY-MM-DD" otherwise, in the configured time zone.
type Timeline struct {
	Labels []string `json:"labels" example:"08:00,09:00"`
	Counts []int64  `json:"counts"`
}

// Report is the full dashboard payload.
type Report struct {
	Period              string            `json:"period" example:"today" enums:"today,week,month,year,all"`
	PeriodLabel         string            `json:"period_label" example:"Today"`
	Since               *time.Time        `json:"since,omitempty"`
	RouteID             string            `json:"route_id,omitempty"`
	VehicleID           string            `json:"vehicle_id,omitempty"`
	TotalSubmissions    int64             `json:"total_submissions" example:"57"`
	TotalComplaints     int64             `json:"total_complaints" example:"4"`
	ComplaintsByReason  []LabelCount      `json:"complaints_by_reason"`
	ComplaintsByVehicle []LabelCount      `json:"complaints_by_vehicle"`
	Questions           []QuestionSummary `json:"questions"`
	Timeline            Timeline          `json:"timeline"`
}

// PeriodStart returns the inclusive start of period relative to now in loc,
// or nil for "all". Unknown tokens yield ErrInvalidPeriod.
func PeriodStart(period string, now time.Time, loc *time.Location) (*time.Time, error) {
	now = now.In(localZone(loc))
	y, m, d := now.Date()
	var start time.Time
	switch period {
	case PeriodToday:
		start = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case PeriodWeek:
		offset := (int(now.Weekday()) + 6) % 7 // days since Monday
		start = time.Date(y, m, d-offset, 0, 0, 0, 0, now.Location())
	case PeriodMonth:
		start = time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	case PeriodYear:
		start = time.Date(y, time.January, 1, 0, 0, 0, 0, now.Location())
	case PeriodAll:
		return nil, nil
	default:
		return nil, ErrInvalidPeriod
	}
	return &start, nil
}

// Summary computes the report for the tenant.
func (s *ReportService) Summary(ctx context.Context, tenantID string, f ReportFilter) (_ *Report, err error) {
	ctx, span := observability.StartSpan(ctx, "report", "Summary", tenantID)
	defer func() { observability.EndSpan(span, err) }()

	sf, out, err := s.prepare(ctx, tenantID, f)
	if err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)

	if out.TotalSubmissions, err = repo.CountFilteredSubmissions(ctx, db, sf); err != nil {
		return nil, err
	}
	if out.TotalComplaints, err = repo.CountFilteredComplaints(ctx, db, sf); err != nil {
		return nil, err
	}

	reasons, err := repo.ComplaintsByReason(ctx, db, sf)
	if err != nil {
		return nil, err
	}
	out.ComplaintsByReason = make([]LabelCount, 0, len(reasons))
	for _, r := range reasons {
		label := NoReason
		if r.Label != nil {
			label = *r.Label
		}
		out.ComplaintsByReason = append(out.ComplaintsByReason, LabelCount{Label: label, Count: r.Count})
	}

	vehicles, err := repo.ComplaintsByVehicle(ctx, db, sf)
	if err != nil {
		return nil, err
	}
	out.ComplaintsByVehicle = make([]LabelCount, 0, len(vehicles))
	for _, v := range vehicles {
		out.ComplaintsByVehicle = append(out.ComplaintsByVehicle, LabelCount{Label: v.TransitNumber, Count: v.Count})
	}

	if out.Questions, err = s.questionSummaries(ctx, db, sf); err != nil {
		return nil, err
	}

	slots, err := repo.SubmissionSlots(ctx, db, sf)
	if err != nil {
		return nil, err
	}
	out.Timeline = bucket(slots, out.Period == PeriodToday, localZone(s.Location))
	return out, nil
}

// prepare validates f and resolves it into a repo filter and an empty report.
func (s *ReportService) prepare(ctx context.Context, tenantID string, f ReportFilter) (repo.StatsFilter, *Report, error) {
	f.Period = strings.ToLower(strings.TrimSpace(f.Period))
	if f.Period == "" {
		f.Period = PeriodToday
	}
	f.RouteID = strings.TrimSpace(f.RouteID)
	f.VehicleID = strings.TrimSpace(f.VehicleID)
	if f.RouteID != "" && f.VehicleID != "" {
		return repo.StatsFilter{}, nil, ErrExclusiveFilter
	}
	since, err := PeriodStart(f.Period, clock(s.Now), s.Location)
	if err != nil {
		return repo.StatsFilter{}, nil, err
	}
	if f.RouteID != "" {
		if _, err := repo.GetRoute(ctx, s.DB, tenantID, f.RouteID); err != nil {
			if isNotFound(err) {
				return repo.StatsFilter{}, nil, ErrNotFound
			}
			return repo.StatsFilter{}, nil, err
		}
	}
	if f.VehicleID != "" {
		if _, err := repo.GetVehicle(ctx, s.DB, tenantID, f.VehicleID); err != nil {
			if isNotFound(err) {
				return repo.StatsFilter{}, nil, ErrVehicleNotFound
			}
			return repo.StatsFilter{}, nil, err
		}
	}
	sf := repo.StatsFilter{TenantID: tenantID, Since: since, RouteID: f.RouteID, VehicleID: f.VehicleID}
	return sf, &Report{
		Period:      f.Period,
		PeriodLabel: periodLabels[f.Period],
		Since:       since,
		RouteID:     f.RouteID,
		VehicleID:   f.VehicleID,
	}, nil
}

func (s *ReportService) questionSummaries(ctx context.Context, db *gorm.DB, sf repo.StatsFilter) ([]QuestionSummary, error) {
	questions, err := repo.ListQuestions(ctx, db, sf.TenantID, true)
	if err != nil {
		return nil, err
	}
	out := make([]QuestionSummary, 0, len(questions))
	for _, q := range questions {
		qs := QuestionSummary{QuestionID: q.ID, Text: q.Text, Kind: q.Kind, Summary: NoData}
		switch q.Kind {
		case domain.KindRating:
			t, err := repo.SumRatings(ctx, db, sf, q.ID)
			if err != nil {
				return nil, err
			}
			qs.Responses = t.Count
			if mean, ok := Mean(t.Total, t.Count); ok {
				qs.Average = &mean
				qs.Summary = mean.StringFixed(1) + "/5"
			}
		case domain.KindChoice, domain.KindMultiChoice:
			counts, err := repo.CountOptions(ctx, db, sf, q.ID, q.Kind == domain.KindMultiChoice)
			if err != nil {
				return nil, err
			}
			parts := make([]string, 0, len(counts))
			for _, c := range counts {
				qs.Counts = append(qs.Counts, ChoiceCount{Option: c.Text, Count: c.Count})
				qs.Responses += c.Count
				parts = append(parts, fmt.Sprintf("%s: %d", c.Text, c.Count))
			}
			if len(parts) > 0 {
				qs.Summary = strings.Join(parts, ", ")
			}
		default:
			continue
		}
		out = append(out, qs)
	}
	return out, nil
}

// Mean returns total/count rounded half away from zero to one decimal. It
// reports false when count is zero.
func Mean(total, count int64) (decimal.Decimal, bool) {
	if count == 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(total).DivRound(decimal.NewFromInt(count), 1), true
}

// bucket folds slot counts into hourly or daily buckets in loc, keeping
// first-seen order (slots arrive sorted).
func bucket(slots []repo.SlotCount, hourly bool, loc *time.Location) Timeline {
	tl := Timeline{Labels: []string{}, Counts: []int64{}}
	for _, sc := range slots {
		t := sc.Start().In(loc)
		label := t.Format("2006-01-02")
		if hourly {
			label = t.Format("15") + ":00"
		}
		if n := len(tl.Labels); n > 0 && tl.Labels[n-1] == label {
			tl.Counts[n-1] += sc.Count
			continue
		}
		tl.Labels = append(tl.Labels, label)
		tl.Counts = append(tl.Counts, sc.Count)
	}
	return tl
}
