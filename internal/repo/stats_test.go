package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/rider-feedback/internal/domain"
)

func newTestDB(t *testing.T, migrate bool) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if migrate {
		if err := AutoMigrate(db); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

// fixture is a small tenant with two routes, three vehicles and one
// question per kind.
type fixture struct {
	tenant   *domain.Tenant
	routeA   *domain.Route
	routeB   *domain.Route
	v1, v2   *domain.Vehicle
	orphan   *domain.Vehicle // no route
	rating   *domain.Question
	text     *domain.Question
	choice   *domain.Question
	multi    *domain.Question
	reason   *domain.ComplaintReason
	baseTime time.Time
}

func seedFixture(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	f := &fixture{baseTime: now}
	var err error

	if f.tenant, err = CreateTenant(ctx, db, "acme", "Acme Transit", true, now); err != nil {
		t.Fatalf("tenant: %v", err)
	}
	if f.routeA, err = CreateRoute(ctx, db, f.tenant.ID, "Ruta A", now); err != nil {
		t.Fatalf("route: %v", err)
	}
	if f.routeB, err = CreateRoute(ctx, db, f.tenant.ID, "Ruta B", now); err != nil {
		t.Fatalf("route: %v", err)
	}
	mk := func(transit string, route *domain.Route) *domain.Vehicle {
		v := &domain.Vehicle{TenantID: f.tenant.ID, TransitNumber: transit, InternalNumber: "I" + transit}
		if route != nil {
			v.RouteID = &route.ID
		}
		if err := CreateVehicle(ctx, db, v, now); err != nil {
			t.Fatalf("vehicle %s: %v", transit, err)
		}
		return v
	}
	f.v1 = mk("101", f.routeA)
	f.v2 = mk("102", f.routeB)
	f.orphan = mk("900", nil)

	mkq := func(text string, kind domain.QuestionKind, pos int, opts ...string) *domain.Question {
		q := &domain.Question{TenantID: f.tenant.ID, Text: text, Kind: kind, Position: pos, Active: true}
		for i, o := range opts {
			q.Options = append(q.Options, domain.Option{Text: o, Position: i + 1})
		}
		if err := CreateQuestion(ctx, db, q, now); err != nil {
			t.Fatalf("question %s: %v", text, err)
		}
		return q
	}
	f.rating = mkq("How was the ride?", domain.KindRating, 1)
	f.text = mkq("Anything else?", domain.KindText, 2)
	f.choice = mkq("Was the bus clean?", domain.KindChoice, 3, "Yes", "No")
	f.multi = mkq("What did you like?", domain.KindMultiChoice, 4, "Driver", "Speed", "AC")

	if f.reason, err = CreateReason(ctx, db, f.tenant.ID, "Reckless driving", now); err != nil {
		t.Fatalf("reason: %v", err)
	}
	return f
}

func (f *fixture) submit(t *testing.T, db *gorm.DB, v *domain.Vehicle, at time.Time, answers ...domain.Answer) *domain.Submission {
	t.Helper()
	s, err := CreateSubmission(context.Background(), db, f.tenant.ID, v.ID, at)
	if err != nil {
		t.Fatalf("submission: %v", err)
	}
	for i := range answers {
		answers[i].SubmissionID = s.ID
		answers[i].CreatedAt = at
		if err := CreateAnswer(context.Background(), db, &answers[i]); err != nil {
			t.Fatalf("answer: %v", err)
		}
	}
	return s
}

func (f *fixture) complain(t *testing.T, db *gorm.DB, v *domain.Vehicle, reason *domain.ComplaintReason, text string, at time.Time) {
	t.Helper()
	c := &domain.Complaint{TenantID: f.tenant.ID, Text: text, SubmittedAt: at}
	if v != nil {
		c.VehicleID = &v.ID
	}
	if reason != nil {
		c.ReasonID = &reason.ID
	}
	if err := CreateComplaint(context.Background(), db, c); err != nil {
		t.Fatalf("complaint: %v", err)
	}
}

func rating(q *domain.Question, v int) domain.Answer {
	return domain.Answer{QuestionID: q.ID, RatingValue: &v}
}

func TestSumRatings_NoTable(t *testing.T) {
	db := newTestDB(t, false)
	if _, err := SumRatings(context.Background(), db, StatsFilter{TenantID: "t"}, "q"); err == nil {
		t.Fatalf("expected error due to missing tables")
	}
}

func TestSumRatings_FilterAndTotals(t *testing.T) {
	db := newTestDB(t, true)
	f := seedFixture(t, db)
	ctx := context.Background()

	old := f.baseTime.Add(-48 * time.Hour)
	f.submit(t, db, f.v1, f.baseTime, rating(f.rating, 5))
	f.submit(t, db, f.v1, f.baseTime, rating(f.rating, 4))
	f.submit(t, db, f.v2, f.baseTime, rating(f.rating, 5))
	f.submit(t, db, f.v2, old, rating(f.rating, 1))

	all, err := SumRatings(ctx, db, StatsFilter{TenantID: f.tenant.ID}, f.rating.ID)
	if err != nil {
		t.Fatalf("SumRatings: %v", err)
	}
	if all.Count != 4 || all.Total != 15 {
		t.Fatalf("unexpected totals: %+v", all)
	}

	since := f.baseTime.Add(-time.Hour)
	recent, _ := SumRatings(ctx, db, StatsFilter{TenantID: f.tenant.ID, Since: &since}, f.rating.ID)
	if recent.Count != 3 || recent.Total != 14 {
		t.Fatalf("unexpected recent totals: %+v", recent)
	}

	byRoute, _ := SumRatings(ctx, db, StatsFilter{TenantID: f.tenant.ID, RouteID: f.routeA.ID}, f.rating.ID)
	if byRoute.Count != 2 || byRoute.Total != 9 {
		t.Fatalf("unexpected route totals: %+v", byRoute)
	}

	byVehicle, _ := SumRatings(ctx, db, StatsFilter{TenantID: f.tenant.ID, VehicleID: f.v2.ID}, f.rating.ID)
	if byVehicle.Count != 2 || byVehicle.Total != 6 {
		t.Fatalf("unexpected vehicle totals: %+v", byVehicle)
	}

	none, _ := SumRatings(ctx, db, StatsFilter{TenantID: f.tenant.ID, VehicleID: f.orphan.ID}, f.rating.ID)
	if none.Count != 0 || none.Total != 0 {
		t.Fatalf("expected zero totals, got %+v", none)
	}
}

func TestCountOptions_SingleAndMulti_OmitZero(t *testing.T) {
	db := newTestDB(t, true)
	f := seedFixture(t, db)
	ctx := context.Background()

	yes, no := f.choice.Options[0], f.choice.Options[1]
	driver, ac := f.multi.Options[0], f.multi.Options[2]
	f.submit(t, db, f.v1, f.baseTime,
		domain.Answer{QuestionID: f.choice.ID, SelectedOptionID: &yes.ID},
		domain.Answer{QuestionID: f.multi.ID, SelectedOptions: []domain.Option{driver, ac}},
	)
	f.submit(t, db, f.v1, f.baseTime,
		domain.Answer{QuestionID: f.choice.ID, SelectedOptionID: &yes.ID},
		domain.Answer{QuestionID: f.multi.ID, SelectedOptions: []domain.Option{ac}},
	)
	f.submit(t, db, f.v2, f.baseTime,
		domain.Answer{QuestionID: f.choice.ID, SelectedOptionID: &no.ID},
	)

	single, err := CountOptions(ctx, db, StatsFilter{TenantID: f.tenant.ID}, f.choice.ID, false)
	if err != nil {
		t.Fatalf("CountOptions: %v", err)
	}
	if len(single) != 2 || single[0].Text != "Yes" || single[0].Count != 2 || single[1].Text != "No" || single[1].Count != 1 {
		t.Fatalf("unexpected single counts: %+v", single)
	}

	multi, err := CountOptions(ctx, db, StatsFilter{TenantID: f.tenant.ID}, f.multi.ID, true)
	if err != nil {
		t.Fatalf("CountOptions multi: %v", err)
	}
	// "Speed" never picked -> omitted; order follows option position.
	if len(multi) != 2 || multi[0].Text != "Driver" || multi[0].Count != 1 || multi[1].Text != "AC" || multi[1].Count != 2 {
		t.Fatalf("unexpected multi counts: %+v", multi)
	}

	routeB, _ := CountOptions(ctx, db, StatsFilter{TenantID: f.tenant.ID, RouteID: f.routeB.ID}, f.multi.ID, true)
	if len(routeB) != 0 {
		t.Fatalf("expected no multi counts on route B, got %+v", routeB)
	}
}

func TestComplaintKPIs(t *testing.T) {
	db := newTestDB(t, true)
	f := seedFixture(t, db)
	ctx := context.Background()

	f.complain(t, db, f.v1, f.reason, "too fast", f.baseTime)
	f.complain(t, db, f.v1, f.reason, "", f.baseTime)
	f.complain(t, db, f.v2, nil, "", f.baseTime)
	f.complain(t, db, nil, f.reason, "vehicle unknown", f.baseTime)

	n, err := CountFilteredComplaints(ctx, db, StatsFilter{TenantID: f.tenant.ID})
	if err != nil || n != 4 {
		t.Fatalf("CountFilteredComplaints = %d, %v", n, err)
	}

	reasons, err := ComplaintsByReason(ctx, db, StatsFilter{TenantID: f.tenant.ID})
	if err != nil {
		t.Fatalf("ComplaintsByReason: %v", err)
	}
	if len(reasons) != 2 {
		t.Fatalf("expected 2 reason groups, got %+v", reasons)
	}
	if reasons[0].Label == nil || *reasons[0].Label != "Reckless driving" || reasons[0].Count != 3 {
		t.Fatalf("unexpected first reason group: %+v", reasons[0])
	}
	if reasons[1].ReasonID != nil || reasons[1].Label != nil || reasons[1].Count != 1 {
		t.Fatalf("unexpected no-reason group: %+v", reasons[1])
	}

	vehicles, err := ComplaintsByVehicle(ctx, db, StatsFilter{TenantID: f.tenant.ID})
	if err != nil {
		t.Fatalf("ComplaintsByVehicle: %v", err)
	}
	if len(vehicles) != 2 || vehicles[0].TransitNumber != "101" || vehicles[0].Count != 2 || vehicles[1].TransitNumber != "102" {
		t.Fatalf("unexpected vehicle groups: %+v", vehicles)
	}

	routeA, _ := CountFilteredComplaints(ctx, db, StatsFilter{TenantID: f.tenant.ID, RouteID: f.routeA.ID})
	if routeA != 2 {
		t.Fatalf("expected 2 complaints on route A, got %d", routeA)
	}
}

func TestSubmissionSlots_GroupedOrderedAndFiltered(t *testing.T) {
	db := newTestDB(t, true)
	f := seedFixture(t, db)
	ctx := context.Background()

	t0 := f.baseTime.Truncate(TimeSlot)
	f.submit(t, db, f.v1, t0.Add(2*time.Hour))
	f.submit(t, db, f.v1, t0.Add(time.Minute))
	f.submit(t, db, f.v2, t0.Add(14*time.Minute))
	f.submit(t, db, f.v2, t0.Add(-72*time.Hour))

	since := t0
	slots, err := SubmissionSlots(ctx, db, StatsFilter{TenantID: f.tenant.ID, Since: &since})
	if err != nil {
		t.Fatalf("SubmissionSlots: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("unexpected slots: %+v", slots)
	}
	if !slots[0].Start().Equal(t0) || slots[0].Count != 2 {
		t.Fatalf("first slot = %v x%d; want %v x2", slots[0].Start(), slots[0].Count, t0)
	}
	if !slots[1].Start().Equal(t0.Add(2*time.Hour)) || slots[1].Count != 1 {
		t.Fatalf("second slot = %v x%d", slots[1].Start(), slots[1].Count)
	}

	byVehicle, err := SubmissionSlots(ctx, db, StatsFilter{TenantID: f.tenant.ID, VehicleID: f.v2.ID})
	if err != nil {
		t.Fatalf("SubmissionSlots: %v", err)
	}
	if len(byVehicle) != 2 || byVehicle[0].Count != 1 || byVehicle[1].Count != 1 {
		t.Fatalf("vehicle slots: %+v", byVehicle)
	}

	n, _ := CountFilteredSubmissions(ctx, db, StatsFilter{TenantID: f.tenant.ID})
	if n != 4 {
		t.Fatalf("expected 4 submissions, got %d", n)
	}
}
