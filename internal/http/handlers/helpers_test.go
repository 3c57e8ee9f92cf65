package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/rider-feedback/internal/domain"
	"github.com/tbourn/rider-feedback/internal/http/middleware"
	"github.com/tbourn/rider-feedback/internal/repo"
	"github.com/tbourn/rider-feedback/internal/services"
	"github.com/tbourn/rider-feedback/internal/throttle"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())

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
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// app is a fully wired rider and operator surface over an in-memory store.
//
// Tenants: "acme" (vehicles 101 on route Ruta Centro and 900), "solo" (one
// vehicle S1) and "empty" (no vehicles).
type app struct {
	t      *testing.T
	db     *gorm.DB
	engine *gin.Engine
	h      *Handlers
	acme   *domain.Tenant
	route  *domain.Route
	v101   *domain.Vehicle
	v900   *domain.Vehicle
}

func newApp(t *testing.T) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	db := newTestDB(t)
	now := time.Now().UTC()

	a := &app{t: t, db: db}
	var err error
	if a.acme, err = repo.CreateTenant(ctx, db, "acme", "Acme Transit", true, now); err != nil {
		t.Fatalf("tenant: %v", err)
	}
	solo, err := repo.CreateTenant(ctx, db, "solo", "Solo Lines", true, now)
	if err != nil {
		t.Fatalf("tenant: %v", err)
	}
	if _, err := repo.CreateTenant(ctx, db, "empty", "Empty Co", true, now); err != nil {
		t.Fatalf("tenant: %v", err)
	}
	if a.route, err = repo.CreateRoute(ctx, db, a.acme.ID, "Ruta Centro", now); err != nil {
		t.Fatalf("route: %v", err)
	}
	a.v101 = &domain.Vehicle{TenantID: a.acme.ID, TransitNumber: "101", RouteID: &a.route.ID}
	a.v900 = &domain.Vehicle{TenantID: a.acme.ID, TransitNumber: "900"}
	for _, v := range []*domain.Vehicle{a.v101, a.v900, {TenantID: solo.ID, TransitNumber: "S1"}} {
		if err := repo.CreateVehicle(ctx, db, v, now); err != nil {
			t.Fatalf("vehicle: %v", err)
		}
	}

	h := New(Deps{
		Survey:    &services.SurveyService{DB: db, Throttle: throttle.NewMemory(time.Hour)},
		Catalog:   &services.CatalogService{DB: db},
		Transport: &services.TransportService{DB: db},
		Feedback:  &services.FeedbackService{DB: db},
		Reports:   &services.ReportService{DB: db},
		QR:        &services.QRService{DB: db, PublicBaseURL: "https://feedback.example.com"},
	})
	a.h = h
	a.engine = mount(h, &services.TenantService{DB: db})
	return a
}

// mount registers every endpoint the way the router does, minus the
// cross-cutting middleware.
func mount(h *Handlers, res middleware.TenantResolver) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())

	pub := r.Group("/t/:tenant", middleware.Tenant(res))
	pub.GET("/survey", h.SelectVehicle)
	pub.GET("/survey/:transit", h.SurveyForm)
	pub.POST("/survey/:transit", h.SubmitSurvey)
	pub.GET("/thank-you", h.ThankYou)

	api := r.Group("/api/v1/tenants/:tenant", middleware.Tenant(res))
	api.GET("/questions", h.ListQuestions)
	api.POST("/questions", h.CreateQuestion)
	api.PUT("/questions/:id", h.UpdateQuestion)
	api.DELETE("/questions/:id", h.DeleteQuestion)
	api.POST("/questions/:id/options", h.AddOption)
	api.DELETE("/options/:id", h.DeleteOption)
	api.GET("/complaint-reasons", h.ListReasons)
	api.POST("/complaint-reasons", h.CreateReason)
	api.GET("/routes", h.ListRoutes)
	api.POST("/routes", h.CreateRoute)
	api.GET("/vehicles", h.ListVehicles)
	api.POST("/vehicles", h.CreateVehicle)
	api.GET("/submissions", h.ListSubmissions)
	api.GET("/complaints", h.ListComplaints)
	api.GET("/reports/summary", h.ReportSummary)
	api.GET("/reports/export.xlsx", h.ReportExport)
	api.POST("/qr", h.GenerateQR)
	return r
}

func (a *app) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *app) get(path string) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (a *app) delete(path string) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodDelete, path, nil))
}

func (a *app) sendJSON(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return a.do(req)
}

func (a *app) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = "203.0.113.7:5555"
	return a.do(req)
}

// question creates a question through the operator API.
func (a *app) question(text string, kind domain.QuestionKind, options ...string) domain.Question {
	a.t.Helper()
	body, _ := json.Marshal(map[string]any{"text": text, "kind": kind, "options": options})
	w := a.sendJSON(http.MethodPost, "/api/v1/tenants/acme/questions", string(body))
	if w.Code != http.StatusCreated {
		a.t.Fatalf("create question: %d %s", w.Code, w.Body.String())
	}
	var q domain.Question
	decode(a.t, w.Body, &q)
	return q
}

func (a *app) reason(label string) domain.ComplaintReason {
	a.t.Helper()
	w := a.sendJSON(http.MethodPost, "/api/v1/tenants/acme/complaint-reasons", `{"label":"`+label+`"}`)
	if w.Code != http.StatusCreated {
		a.t.Fatalf("create reason: %d %s", w.Code, w.Body.String())
	}
	var r domain.ComplaintReason
	decode(a.t, w.Body, &r)
	return r
}

func decode(t *testing.T, body io.Reader, v any) {
	t.Helper()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var er ErrorResponse
	decode(t, bytes.NewReader(w.Body.Bytes()), &er)
	return er.Code
}
