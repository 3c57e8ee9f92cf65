package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/rider-feedback/internal/domain"
	"github.com/tbourn/rider-feedback/internal/repo"
)

// mazatlan pins America/Mazatlan's current offset (UTC-7, no DST) so the
// tests do not depend on the host's zoneinfo.
var mazatlan = time.FixedZone("MST", -7*60*60)

// fixedNow returns a clock stuck at t.
func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// one connection keeps the shared in-memory database free of table locks
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// world is a tenant with one route and two vehicles ("101" on the route,
// "900" without one) and an empty catalog.
type world struct {
	db     *gorm.DB
	tenant *domain.Tenant
	route  *domain.Route
	v1     *domain.Vehicle
	v2     *domain.Vehicle
}

func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()
	db := newTestDB(t)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	w := &world{db: db}

	var err error
	if w.tenant, err = repo.CreateTenant(ctx, db, "acme", "Acme Transit", true, now); err != nil {
		t.Fatalf("tenant: %v", err)
	}
	if w.route, err = repo.CreateRoute(ctx, db, w.tenant.ID, "Ruta Centro", now); err != nil {
		t.Fatalf("route: %v", err)
	}
	w.v1 = &domain.Vehicle{TenantID: w.tenant.ID, TransitNumber: "101", RouteID: &w.route.ID}
	if err := repo.CreateVehicle(ctx, db, w.v1, now); err != nil {
		t.Fatalf("vehicle: %v", err)
	}
	w.v2 = &domain.Vehicle{TenantID: w.tenant.ID, TransitNumber: "900"}
	if err := repo.CreateVehicle(ctx, db, w.v2, now); err != nil {
		t.Fatalf("vehicle: %v", err)
	}
	return w
}

// question adds an active question at pos with the given option texts.
func (w *world) question(t *testing.T, kind domain.QuestionKind, text string, pos int, options ...string) *domain.Question {
	t.Helper()
	q := &domain.Question{TenantID: w.tenant.ID, Text: text, Kind: kind, Position: pos, Active: true}
	for i, o := range options {
		q.Options = append(q.Options, domain.Option{Text: o, Position: i + 1})
	}
	if err := repo.CreateQuestion(context.Background(), w.db, q, time.Now()); err != nil {
		t.Fatalf("question %q: %v", text, err)
	}
	return q
}

func (w *world) reason(t *testing.T, label string) *domain.ComplaintReason {
	t.Helper()
	r, err := repo.CreateReason(context.Background(), w.db, w.tenant.ID, label, time.Now())
	if err != nil {
		t.Fatalf("reason: %v", err)
	}
	return r
}

func (w *world) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	if err := w.db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func (w *world) countLinks(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := w.db.Table("answer_options").Count(&n).Error; err != nil {
		t.Fatalf("count links: %v", err)
	}
	return n
}
